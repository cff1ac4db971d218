// Package budgets provides PostgreSQL-backed persistence for spending-limit
// declarations scoped to an account.
package budgets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dpetrovs/finledger/internal/common"
	"github.com/dpetrovs/finledger/internal/dbx"
	"github.com/dpetrovs/finledger/internal/server/models"
)

// PostgresRepository implements budget storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, budget *models.Budget) error {
	query :=
		`INSERT INTO budgets (id, account_id, name, period, start_date, end_date, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 `

	_, err := r.db.ExecContext(ctx, query,
		budget.ID, budget.AccountID, budget.Name, string(budget.Period),
		budget.StartDate, budget.EndDate, budget.CreatedBy)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return r.insertCategories(ctx, budget.ID, budget.Categories)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id, accountID string) (*models.Budget, error) {
	query :=
		`SELECT id, account_id, name, period, start_date, end_date, created_by, created_at
		 FROM budgets
		 WHERE id = $1 AND account_id = $2
		 `

	budget, err := r.scanBudget(r.db.QueryRowContext(ctx, query, id, accountID))
	if err != nil {
		return nil, err
	}

	if budget.Categories, err = r.loadCategories(ctx, budget.ID); err != nil {
		return nil, err
	}
	return budget, nil
}

func (r *PostgresRepository) ListByAccount(ctx context.Context, accountID string) ([]*models.Budget, error) {
	query :=
		`SELECT id, account_id, name, period, start_date, end_date, created_by, created_at
		 FROM budgets
		 WHERE account_id = $1
		 ORDER BY created_at DESC
		 `

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to select budgets: %w", err)
	}
	defer rows.Close()

	var result []*models.Budget
	for rows.Next() {
		budget, err := r.scanBudget(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, budget)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, budget := range result {
		if budget.Categories, err = r.loadCategories(ctx, budget.ID); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Update merges the non-nil fields of upd; a non-nil Categories slice
// replaces the whole category set.
func (r *PostgresRepository) Update(ctx context.Context, id, accountID string, upd *models.BudgetUpdate) (*models.Budget, error) {
	query :=
		`UPDATE budgets SET
			name = COALESCE($3::text, name),
			period = COALESCE($4::text, period),
			start_date = COALESCE($5::timestamptz, start_date),
			end_date = COALESCE($6::timestamptz, end_date)
		 WHERE id = $1 AND account_id = $2
		 RETURNING id, account_id, name, period, start_date, end_date, created_by, created_at
		 `

	var period *string
	if upd.Period != nil {
		s := string(*upd.Period)
		period = &s
	}

	budget, err := r.scanBudget(r.db.QueryRowContext(ctx, query,
		id, accountID, upd.Name, period, upd.StartDate, upd.EndDate))
	if err != nil {
		return nil, err
	}

	if upd.Categories != nil {
		if _, err := r.db.ExecContext(ctx, `DELETE FROM budget_categories WHERE budget_id = $1`, id); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if err := r.insertCategories(ctx, id, upd.Categories); err != nil {
			return nil, err
		}
	}

	if budget.Categories, err = r.loadCategories(ctx, budget.ID); err != nil {
		return nil, err
	}
	return budget, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id, accountID string) error {
	query :=
		`DELETE FROM budgets
		 WHERE id = $1 AND account_id = $2
		 `

	res, err := r.db.ExecContext(ctx, query, id, accountID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) insertCategories(ctx context.Context, budgetID string, categories []models.BudgetCategory) error {
	query :=
		`INSERT INTO budget_categories (budget_id, category, cap)
		 VALUES ($1, $2, $3)
		 `

	for _, c := range categories {
		if _, err := r.db.ExecContext(ctx, query, budgetID, c.Category, c.Limit); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}
	return nil
}

func (r *PostgresRepository) loadCategories(ctx context.Context, budgetID string) ([]models.BudgetCategory, error) {
	query :=
		`SELECT category, cap FROM budget_categories
		 WHERE budget_id = $1
		 ORDER BY category
		 `

	rows, err := r.db.QueryContext(ctx, query, budgetID)
	if err != nil {
		return nil, fmt.Errorf("failed to select budget categories: %w", err)
	}
	defer rows.Close()

	var result []models.BudgetCategory
	for rows.Next() {
		var c models.BudgetCategory
		if err := rows.Scan(&c.Category, &c.Limit); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PostgresRepository) scanBudget(row rowScanner) (*models.Budget, error) {
	budget := &models.Budget{}
	var start, end sql.NullTime
	err := row.Scan(&budget.ID, &budget.AccountID, &budget.Name, &budget.Period,
		&start, &end, &budget.CreatedBy, &budget.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if start.Valid {
		budget.StartDate = &start.Time
	}
	if end.Valid {
		budget.EndDate = &end.Time
	}
	return budget, nil
}
