package transactions

import (
	"context"

	"github.com/dpetrovs/finledger/internal/server/models"
)

type Repository interface {
	// Insert writes a full transaction row, id included. The ledger engine
	// also uses it to resurrect a deleted row after a failed balance
	// reversal.
	Insert(ctx context.Context, tx *models.Transaction) error
	GetByID(ctx context.Context, id, accountID string) (*models.Transaction, error)
	ListByAccount(ctx context.Context, accountID string) ([]*models.Transaction, error)
	// Update applies the non-nil fields of upd to the row scoped to
	// accountID and returns the merged row.
	Update(ctx context.Context, id, accountID string, upd *models.TransactionUpdate) (*models.Transaction, error)
	Delete(ctx context.Context, id, accountID string) error
}
