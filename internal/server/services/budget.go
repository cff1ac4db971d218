package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dpetrovs/finledger/internal/common"
	"github.com/dpetrovs/finledger/internal/dbx"
	"github.com/dpetrovs/finledger/internal/logging"
	"github.com/dpetrovs/finledger/internal/server/models"
	"github.com/dpetrovs/finledger/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// BudgetService is independent CRUD over spending limits scoped to the
// caller's account. It has no coupling to the ledger engine.
type BudgetService struct {
	db       *sql.DB
	repos    repomanager.RepositoryManager
	accounts *AccountService
	logger   logging.Logger
}

func NewBudgetService(db *sql.DB, repos repomanager.RepositoryManager, accounts *AccountService, logger logging.Logger) *BudgetService {
	return &BudgetService{db: db, repos: repos, accounts: accounts, logger: logger}
}

// CreateBudgetParams describes a new budget. Either Categories carries the
// category/limit pairs, or the single Category/Amount pair is used as a
// one-entry fallback.
type CreateBudgetParams struct {
	Name       string
	Period     models.BudgetPeriod
	StartDate  *time.Time
	EndDate    *time.Time
	Categories []models.BudgetCategory
	Category   string
	Amount     *int64
}

func (p *CreateBudgetParams) normalize() ([]models.BudgetCategory, models.BudgetPeriod, error) {
	if p.Name == "" {
		return nil, "", fmt.Errorf("%w: name is required", common.ErrorValidation)
	}

	period := p.Period
	if period == "" {
		period = models.PeriodMonthly
	}
	if !period.Valid() {
		return nil, "", fmt.Errorf("%w: invalid period", common.ErrorValidation)
	}

	var categories []models.BudgetCategory
	for _, c := range p.Categories {
		if c.Category == "" || c.Limit <= 0 {
			continue
		}
		categories = append(categories, c)
	}
	if len(categories) == 0 && p.Amount != nil && *p.Amount >= 0 {
		name := p.Category
		if name == "" {
			name = "General"
		}
		categories = []models.BudgetCategory{{Category: name, Limit: *p.Amount}}
	}

	return categories, period, nil
}

// CreateBudget provisions the caller's account when missing and writes the
// budget with its category set in one transaction.
func (s *BudgetService) CreateBudget(ctx context.Context, userID string, params CreateBudgetParams) (*models.Budget, error) {
	account, err := s.accounts.Ensure(ctx, userID)
	if err != nil {
		return nil, err
	}

	categories, period, err := params.normalize()
	if err != nil {
		return nil, err
	}

	budget := &models.Budget{
		ID:         uuid.NewString(),
		AccountID:  account.ID,
		Name:       params.Name,
		Period:     period,
		StartDate:  params.StartDate,
		EndDate:    params.EndDate,
		Categories: categories,
		CreatedBy:  userID,
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repos.Budgets(tx).Insert(ctx, budget)
	})
	if err != nil {
		return nil, fmt.Errorf("error creating budget: %w", err)
	}

	return s.repos.Budgets(s.db).GetByID(ctx, budget.ID, account.ID)
}

func (s *BudgetService) ListBudgets(ctx context.Context, userID string) ([]*models.Budget, error) {
	account, err := s.accounts.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.repos.Budgets(s.db).ListByAccount(ctx, account.ID)
}

func (s *BudgetService) GetBudget(ctx context.Context, userID, id string) (*models.Budget, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	account, err := s.accounts.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.repos.Budgets(s.db).GetByID(ctx, id, account.ID)
}

// UpdateBudget applies the allow-listed fields of upd. The row update and
// the category replacement run inside one transaction.
func (s *BudgetService) UpdateBudget(ctx context.Context, userID, id string, upd *models.BudgetUpdate) (*models.Budget, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	if upd.Period != nil && !upd.Period.Valid() {
		return nil, fmt.Errorf("%w: invalid period", common.ErrorValidation)
	}
	if upd.Categories != nil {
		valid := make([]models.BudgetCategory, 0, len(upd.Categories))
		for _, c := range upd.Categories {
			if c.Category == "" || c.Limit < 0 {
				continue
			}
			valid = append(valid, c)
		}
		upd.Categories = valid
	}

	account, err := s.accounts.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}

	var budget *models.Budget
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		budget, err = s.repos.Budgets(tx).Update(ctx, id, account.ID, upd)
		return err
	})
	if err != nil {
		return nil, err
	}

	return budget, nil
}

func (s *BudgetService) DeleteBudget(ctx context.Context, userID, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	account, err := s.accounts.Resolve(ctx, userID)
	if err != nil {
		return err
	}
	return s.repos.Budgets(s.db).Delete(ctx, id, account.ID)
}
