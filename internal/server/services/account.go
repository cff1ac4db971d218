// Package services implements the backend core: account resolution, the
// ledger balance engine, budgets and receipt attachments. Services sit on
// top of the repository layer and carry no transport concerns.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dpetrovs/finledger/internal/common"
	"github.com/dpetrovs/finledger/internal/logging"
	"github.com/dpetrovs/finledger/internal/server/models"
	"github.com/dpetrovs/finledger/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// DefaultAccountName is the label given to auto-provisioned accounts.
const DefaultAccountName = "main"

// AccountService maps an authenticated identity to its single shared
// account and manages account membership.
type AccountService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	logger logging.Logger
}

func NewAccountService(db *sql.DB, repos repomanager.RepositoryManager, logger logging.Logger) *AccountService {
	return &AccountService{db: db, repos: repos, logger: logger}
}

// Resolve returns the account the user is authorized on, as owner or
// member. Returns common.ErrorNotFound when the user has none.
func (s *AccountService) Resolve(ctx context.Context, userID string) (*models.Account, error) {
	return s.repos.Accounts(s.db).GetByUserID(ctx, userID)
}

// Ensure finds the user's account or provisions a default one owned by the
// user, with no members and a zero balance. When a concurrent request wins
// the provisioning race, the existing account is re-read and returned
// instead of the failure.
func (s *AccountService) Ensure(ctx context.Context, userID string) (*models.Account, error) {
	accountRepo := s.repos.Accounts(s.db)

	account, err := accountRepo.GetByUserID(ctx, userID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}

	account = &models.Account{
		ID:          uuid.NewString(),
		OwnerUserID: userID,
		Name:        DefaultAccountName,
		Balance:     0,
	}

	err = accountRepo.Create(ctx, account)
	if err == nil {
		s.logger.Info(ctx, "provisioned account", "account_id", account.ID, "owner", userID)
		return account, nil
	}
	if !errors.Is(err, common.ErrorAlreadyExists) {
		return nil, fmt.Errorf("error creating account: %w", err)
	}

	// Lost the creation race; the winner's account is the account.
	return accountRepo.GetByUserID(ctx, userID)
}

// Collaborator is a member of an account together with its role.
type Collaborator struct {
	User *models.User
	Role string
}

// AddMember grants the user identified by email access to the caller's
// owned account. Self-adds are rejected; adding an existing member is
// idempotent.
func (s *AccountService) AddMember(ctx context.Context, userID, email string) (*models.User, error) {
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", common.ErrorValidation)
	}

	target, err := s.repos.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if target.ID == userID {
		return nil, fmt.Errorf("%w: cannot add yourself as a member", common.ErrorValidation)
	}

	account, err := s.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.repos.Accounts(s.db).AddMember(ctx, account.ID, target.ID); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "member added", "account_id", account.ID, "member", target.ID)
	return target, nil
}

// Collaborators returns the owner and members of the caller's account,
// owner first.
func (s *AccountService) Collaborators(ctx context.Context, userID string) ([]*Collaborator, error) {
	account, err := s.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}

	var result []*Collaborator

	owner, err := s.repos.Users(s.db).GetByID(ctx, account.OwnerUserID)
	if err == nil {
		result = append(result, &Collaborator{User: owner, Role: "owner"})
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}

	members, err := s.repos.Accounts(s.db).ListMembers(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		if m.ID == account.OwnerUserID {
			continue
		}
		result = append(result, &Collaborator{User: m, Role: "member"})
	}

	return result, nil
}

// validateID rejects identifiers that are not well-formed UUIDs before any
// storage lookup happens.
func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", common.ErrorInvalidID, id)
	}
	return nil
}
