package receipts

import (
	"context"

	"github.com/dpetrovs/finledger/internal/server/models"
)

type Repository interface {
	// CreateOrReplace upserts the receipt metadata by transaction id.
	// Requesting a new upload for a transaction replaces the old key.
	CreateOrReplace(ctx context.Context, receipt *models.Receipt) error
	GetByTransactionID(ctx context.Context, transactionID, accountID string) (*models.Receipt, error)
	MarkUploaded(ctx context.Context, transactionID, accountID string) error
}
