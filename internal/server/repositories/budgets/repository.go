package budgets

import (
	"context"

	"github.com/dpetrovs/finledger/internal/server/models"
)

type Repository interface {
	// Insert writes the budget row and its category/limit pairs. Callers
	// wanting both writes to be atomic bind the repository to a dbx.WithTx
	// handle.
	Insert(ctx context.Context, budget *models.Budget) error
	GetByID(ctx context.Context, id, accountID string) (*models.Budget, error)
	ListByAccount(ctx context.Context, accountID string) ([]*models.Budget, error)
	Update(ctx context.Context, id, accountID string, upd *models.BudgetUpdate) (*models.Budget, error)
	Delete(ctx context.Context, id, accountID string) error
}
