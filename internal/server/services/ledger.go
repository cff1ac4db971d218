package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dpetrovs/finledger/internal/common"
	"github.com/dpetrovs/finledger/internal/logging"
	"github.com/dpetrovs/finledger/internal/server/models"
	"github.com/dpetrovs/finledger/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// LedgerService keeps Account.Balance consistent with the set of
// transactions as they are created, updated or deleted. The row write and
// the balance adjustment are two separate storage operations; when the
// second one fails the engine runs one best-effort compensating action
// (delete / snapshot write-back / resurrect) and reports
// common.ErrorBalanceUpdate. Compensation failures are logged and
// swallowed; callers must treat the reported error as "ledger state
// uncertain, re-read".
type LedgerService struct {
	db       *sql.DB
	repos    repomanager.RepositoryManager
	accounts *AccountService
	logger   logging.Logger
	now      func() time.Time
}

func NewLedgerService(db *sql.DB, repos repomanager.RepositoryManager, accounts *AccountService, logger logging.Logger) *LedgerService {
	return &LedgerService{
		db:       db,
		repos:    repos,
		accounts: accounts,
		logger:   logger,
		now:      time.Now,
	}
}

// TransactionView is a persisted transaction enriched with the author's
// presentation name (display name, falling back to email). The name is
// derived, never stored.
type TransactionView struct {
	*models.Transaction
	AddedByName string
}

// CreateTransactionParams is the caller-supplied part of a new ledger
// entry. Amount is a pointer so that a missing amount is distinguishable
// from zero.
type CreateTransactionParams struct {
	Description string
	Amount      *int64
	Type        models.TransactionType
	Date        *time.Time
	Category    string
}

func (p *CreateTransactionParams) validate() error {
	if p.Description == "" || p.Amount == nil || p.Type == "" {
		return fmt.Errorf("%w: description, amount and type are required", common.ErrorValidation)
	}
	if !p.Type.Valid() {
		return fmt.Errorf("%w: type must be %q or %q", common.ErrorValidation, models.TypeIncome, models.TypeExpense)
	}
	return nil
}

// CreateTransaction writes a ledger entry for the caller's account
// (provisioning the account when missing) and applies its signed amount to
// the account balance. When the balance increment cannot match the
// account, the just-created row is deleted so no balance-less transaction
// is left behind.
func (s *LedgerService) CreateTransaction(ctx context.Context, userID string, params CreateTransactionParams) (*TransactionView, error) {
	account, err := s.accounts.Ensure(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := params.validate(); err != nil {
		return nil, err
	}

	tx := &models.Transaction{
		ID:          uuid.NewString(),
		AccountID:   account.ID,
		AddedBy:     userID,
		Description: params.Description,
		Amount:      *params.Amount,
		Type:        params.Type,
		Date:        s.now(),
		Category:    params.Category,
	}
	if params.Date != nil {
		tx.Date = *params.Date
	}

	txRepo := s.repos.Transactions(s.db)
	if err := txRepo.Insert(ctx, tx); err != nil {
		return nil, err
	}

	signed := tx.SignedAmount()
	if _, err := s.repos.Accounts(s.db).ApplyBalanceDelta(ctx, account.ID, signed); err != nil {
		// Compensating delete: the row must not outlive its balance effect.
		if derr := txRepo.Delete(ctx, tx.ID, account.ID); derr != nil {
			s.logger.Error(ctx, "compensating delete failed",
				"transaction_id", tx.ID, "account_id", account.ID, "error", derr)
		}
		return nil, s.balanceUpdateError(ctx, "create", account.ID, signed, err)
	}

	return s.enrich(ctx, tx), nil
}

// ListTransactions returns all transactions of the caller's account,
// newest first, enriched with author names. No balance mutation happens.
func (s *LedgerService) ListTransactions(ctx context.Context, userID string) ([]*TransactionView, error) {
	account, err := s.accounts.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}

	txs, err := s.repos.Transactions(s.db).ListByAccount(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	userRepo := s.repos.Users(s.db)
	names := map[string]string{}
	views := make([]*TransactionView, 0, len(txs))
	for _, tx := range txs {
		name, ok := names[tx.AddedBy]
		if !ok {
			if user, err := userRepo.GetByID(ctx, tx.AddedBy); err == nil {
				name = user.Name()
			}
			names[tx.AddedBy] = name
		}
		views = append(views, &TransactionView{Transaction: tx, AddedByName: name})
	}
	return views, nil
}

// GetTransaction returns one transaction scoped to the caller's account.
// A transaction belonging to another account yields common.ErrorNotFound.
func (s *LedgerService) GetTransaction(ctx context.Context, userID, id string) (*TransactionView, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	account, err := s.accounts.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}

	tx, err := s.repos.Transactions(s.db).GetByID(ctx, id, account.ID)
	if err != nil {
		return nil, err
	}

	return s.enrich(ctx, tx), nil
}

// UpdateTransaction applies the allow-listed fields of upd and adjusts the
// account balance by the signed-amount delta between the old and the
// merged row. When the balance adjustment cannot match the account, the
// pre-update snapshot is written back best-effort.
func (s *LedgerService) UpdateTransaction(ctx context.Context, userID, id string, upd *models.TransactionUpdate) (*TransactionView, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	if upd.Type != nil && !upd.Type.Valid() {
		return nil, fmt.Errorf("%w: type must be %q or %q", common.ErrorValidation, models.TypeIncome, models.TypeExpense)
	}

	account, err := s.accounts.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}

	txRepo := s.repos.Transactions(s.db)

	existing, err := txRepo.GetByID(ctx, id, account.ID)
	if err != nil {
		return nil, err
	}
	oldSigned := existing.SignedAmount()

	updated, err := txRepo.Update(ctx, id, account.ID, upd)
	if err != nil {
		return nil, err
	}

	delta := updated.SignedAmount() - oldSigned
	if delta != 0 {
		if _, err := s.repos.Accounts(s.db).ApplyBalanceDelta(ctx, account.ID, delta); err != nil {
			// Best-effort rollback of the field update; not a guaranteed undo.
			if _, rerr := txRepo.Update(ctx, id, account.ID, existing.Snapshot()); rerr != nil {
				s.logger.Error(ctx, "compensating write-back failed",
					"transaction_id", id, "account_id", account.ID, "error", rerr)
			}
			return nil, s.balanceUpdateError(ctx, "update", account.ID, delta, err)
		}
	}

	return s.enrich(ctx, updated), nil
}

// DeleteTransaction removes a transaction and reverses its balance effect.
// When the reversal cannot match the account, the deleted row is
// resurrected best-effort with its original identity and fields.
func (s *LedgerService) DeleteTransaction(ctx context.Context, userID, id string) error {
	if err := validateID(id); err != nil {
		return err
	}

	account, err := s.accounts.Resolve(ctx, userID)
	if err != nil {
		return err
	}

	txRepo := s.repos.Transactions(s.db)

	existing, err := txRepo.GetByID(ctx, id, account.ID)
	if err != nil {
		return err
	}
	oldSigned := existing.SignedAmount()

	if err := txRepo.Delete(ctx, id, account.ID); err != nil {
		return err
	}

	if _, err := s.repos.Accounts(s.db).ApplyBalanceDelta(ctx, account.ID, -oldSigned); err != nil {
		if rerr := txRepo.Insert(ctx, existing); rerr != nil {
			s.logger.Error(ctx, "compensating resurrect failed",
				"transaction_id", id, "account_id", account.ID, "error", rerr)
		}
		return s.balanceUpdateError(ctx, "delete", account.ID, -oldSigned, err)
	}

	return nil
}

// balanceUpdateError classifies a failed balance adjustment. A missing
// account row becomes ErrorBalanceUpdate; anything else is surfaced as the
// underlying storage fault.
func (s *LedgerService) balanceUpdateError(ctx context.Context, op, accountID string, delta int64, err error) error {
	s.logger.Warn(ctx, "balance adjustment failed, compensation attempted",
		"op", op, "account_id", accountID, "delta", delta, "error", err)
	if errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("%w: account %s", common.ErrorBalanceUpdate, accountID)
	}
	return fmt.Errorf("error adjusting balance: %w", err)
}

func (s *LedgerService) enrich(ctx context.Context, tx *models.Transaction) *TransactionView {
	view := &TransactionView{Transaction: tx}
	if user, err := s.repos.Users(s.db).GetByID(ctx, tx.AddedBy); err == nil {
		view.AddedByName = user.Name()
	}
	return view
}
