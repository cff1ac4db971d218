// Package receipts provides PostgreSQL-backed persistence for receipt
// metadata. The receipt content itself lives in object storage.
package receipts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dpetrovs/finledger/internal/common"
	"github.com/dpetrovs/finledger/internal/dbx"
	"github.com/dpetrovs/finledger/internal/server/models"
)

// PostgresRepository implements receipt storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CreateOrReplace upserts the receipt row for a transaction. A repeated
// upload request resets the key and the upload status.
func (r *PostgresRepository) CreateOrReplace(ctx context.Context, receipt *models.Receipt) error {
	query := `
		INSERT INTO receipts (id, transaction_id, account_id, storage_key, upload_status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (transaction_id)
		DO UPDATE SET
			storage_key = EXCLUDED.storage_key,
			upload_status = EXCLUDED.upload_status;
	`
	res, err := r.db.ExecContext(ctx, query,
		receipt.ID, receipt.TransactionID, receipt.AccountID, receipt.StorageKey, receipt.UploadStatus)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
	return nil
}

func (r *PostgresRepository) GetByTransactionID(ctx context.Context, transactionID, accountID string) (*models.Receipt, error) {
	query :=
		`SELECT id, transaction_id, account_id, storage_key, upload_status, created_at
		 FROM receipts
		 WHERE transaction_id = $1 AND account_id = $2
		 `

	receipt := &models.Receipt{}
	err := r.db.QueryRowContext(ctx, query, transactionID, accountID).Scan(
		&receipt.ID, &receipt.TransactionID, &receipt.AccountID,
		&receipt.StorageKey, &receipt.UploadStatus, &receipt.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return receipt, nil
}

// MarkUploaded flips the receipt for a transaction to uploaded. Exactly one
// row must be affected.
func (r *PostgresRepository) MarkUploaded(ctx context.Context, transactionID, accountID string) error {
	query := `UPDATE receipts SET upload_status = 'uploaded' WHERE transaction_id = $1 AND account_id = $2`
	res, err := r.db.ExecContext(ctx, query, transactionID, accountID)
	if err != nil {
		return fmt.Errorf("failed to mark uploaded: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
