package accounts

import (
	"context"

	"github.com/dpetrovs/finledger/internal/server/models"
)

type Repository interface {
	// GetByUserID returns the single account the user is authorized on,
	// as owner or as member.
	GetByUserID(ctx context.Context, userID string) (*models.Account, error)
	// Create inserts the account. Returns common.ErrorAlreadyExists when
	// the owner already has one (duplicate-provisioning race).
	Create(ctx context.Context, account *models.Account) error
	// ApplyBalanceDelta atomically adds delta to the account balance and
	// returns the resulting balance. Returns common.ErrorNotFound when no
	// account row matches.
	ApplyBalanceDelta(ctx context.Context, accountID string, delta int64) (int64, error)
	AddMember(ctx context.Context, accountID, userID string) error
	ListMembers(ctx context.Context, accountID string) ([]*models.User, error)
}
