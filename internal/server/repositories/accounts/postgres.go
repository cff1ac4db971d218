// Package accounts provides PostgreSQL-backed persistence for shared wallet
// accounts, including the atomic balance adjustment the ledger engine
// relies on.
package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dpetrovs/finledger/internal/common"
	"github.com/dpetrovs/finledger/internal/dbx"
	"github.com/dpetrovs/finledger/internal/server/models"
)

// PostgresRepository implements account storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByUserID returns the account owned by userID or listing userID as a
// member. Owner and members form a single authorized set.
func (r *PostgresRepository) GetByUserID(ctx context.Context, userID string) (*models.Account, error) {
	query :=
		`SELECT a.id, a.owner_user_id, a.name, a.balance, a.created_at FROM accounts a
		 WHERE a.owner_user_id = $1
		    OR EXISTS (SELECT 1 FROM account_members m WHERE m.account_id = a.id AND m.user_id = $1)
		 `

	account := &models.Account{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&account.ID, &account.OwnerUserID, &account.Name, &account.Balance, &account.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return account, nil
}

// Create inserts the account. The unique index on owner_user_id turns a
// concurrent duplicate provisioning into ErrorAlreadyExists instead of a
// second account.
func (r *PostgresRepository) Create(ctx context.Context, account *models.Account) error {
	query :=
		`INSERT INTO accounts (id, owner_user_id, name, balance)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (owner_user_id) DO NOTHING
		 `

	res, err := r.db.ExecContext(ctx, query,
		account.ID, account.OwnerUserID, account.Name, account.Balance)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorAlreadyExists
	}
	return nil
}

// ApplyBalanceDelta adds delta to the stored balance in a single UPDATE, so
// concurrent adjustments against the same account never lose updates.
func (r *PostgresRepository) ApplyBalanceDelta(ctx context.Context, accountID string, delta int64) (int64, error) {
	query :=
		`UPDATE accounts SET balance = balance + $2
		 WHERE id = $1
		 RETURNING balance
		 `

	var balance int64
	err := r.db.QueryRowContext(ctx, query, accountID, delta).Scan(&balance)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}

	return balance, nil
}

// AddMember grants userID access to the account. Adding an existing member
// is a no-op.
func (r *PostgresRepository) AddMember(ctx context.Context, accountID, userID string) error {
	query :=
		`INSERT INTO account_members (account_id, user_id)
		 VALUES ($1, $2)
		 ON CONFLICT (account_id, user_id) DO NOTHING
		 `

	if _, err := r.db.ExecContext(ctx, query, accountID, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// ListMembers returns the users granted access through account_members.
// The owner is not duplicated into the member set.
func (r *PostgresRepository) ListMembers(ctx context.Context, accountID string) ([]*models.User, error) {
	query :=
		`SELECT u.id, u.email, u.display_name, u.picture, u.created_at
		 FROM account_members m
		 JOIN users u ON u.id = m.user_id
		 WHERE m.account_id = $1
		 ORDER BY u.email
		 `

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to select members: %w", err)
	}
	defer rows.Close()

	var result []*models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Email, &u.DisplayName, &u.Picture, &u.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
