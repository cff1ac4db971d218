// Package transactions provides PostgreSQL-backed persistence for ledger
// entries. All lookups are scoped by account id, so a transaction belonging
// to another account is indistinguishable from a missing one.
package transactions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dpetrovs/finledger/internal/common"
	"github.com/dpetrovs/finledger/internal/dbx"
	"github.com/dpetrovs/finledger/internal/server/models"
)

// PostgresRepository implements transaction storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, tx *models.Transaction) error {
	query :=
		`INSERT INTO transactions (id, account_id, added_by, description, amount, type, date, category)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''))
		 `

	_, err := r.db.ExecContext(ctx, query,
		tx.ID, tx.AccountID, tx.AddedBy, tx.Description, tx.Amount, string(tx.Type), tx.Date, tx.Category)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id, accountID string) (*models.Transaction, error) {
	query :=
		`SELECT id, account_id, added_by, description, amount, type, date, COALESCE(category, '')
		 FROM transactions
		 WHERE id = $1 AND account_id = $2
		 `

	tx := &models.Transaction{}
	err := r.db.QueryRowContext(ctx, query, id, accountID).Scan(
		&tx.ID, &tx.AccountID, &tx.AddedBy, &tx.Description, &tx.Amount, &tx.Type, &tx.Date, &tx.Category)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return tx, nil
}

func (r *PostgresRepository) ListByAccount(ctx context.Context, accountID string) ([]*models.Transaction, error) {
	query :=
		`SELECT id, account_id, added_by, description, amount, type, date, COALESCE(category, '')
		 FROM transactions
		 WHERE account_id = $1
		 ORDER BY date DESC
		 `

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to select transactions: %w", err)
	}
	defer rows.Close()

	var result []*models.Transaction
	for rows.Next() {
		var tx models.Transaction
		if err := rows.Scan(
			&tx.ID, &tx.AccountID, &tx.AddedBy, &tx.Description, &tx.Amount, &tx.Type, &tx.Date, &tx.Category,
		); err != nil {
			return nil, err
		}
		result = append(result, &tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Update merges the non-nil fields of upd into the stored row. NULL
// parameters fall through to the current column value; an explicit empty
// category clears it.
func (r *PostgresRepository) Update(ctx context.Context, id, accountID string, upd *models.TransactionUpdate) (*models.Transaction, error) {
	query :=
		`UPDATE transactions SET
			description = COALESCE($3::text, description),
			amount = COALESCE($4::bigint, amount),
			type = COALESCE($5::text, type),
			date = COALESCE($6::timestamptz, date),
			category = CASE WHEN $7::text IS NULL THEN category ELSE NULLIF($7, '') END
		 WHERE id = $1 AND account_id = $2
		 RETURNING id, account_id, added_by, description, amount, type, date, COALESCE(category, '')
		 `

	var typ *string
	if upd.Type != nil {
		s := string(*upd.Type)
		typ = &s
	}

	tx := &models.Transaction{}
	err := r.db.QueryRowContext(ctx, query,
		id, accountID, upd.Description, upd.Amount, typ, upd.Date, upd.Category).Scan(
		&tx.ID, &tx.AccountID, &tx.AddedBy, &tx.Description, &tx.Amount, &tx.Type, &tx.Date, &tx.Category)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return tx, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id, accountID string) error {
	query :=
		`DELETE FROM transactions
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
