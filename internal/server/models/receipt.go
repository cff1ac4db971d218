package models

import "time"

// Receipt upload states.
const (
	ReceiptPending  = "pending"
	ReceiptUploaded = "uploaded"
)

// Receipt describes server-side metadata for a receipt image attached to a
// transaction. The content itself lives in object storage; clients move the
// bytes directly using presigned URLs.
type Receipt struct {
	ID            string
	TransactionID string
	AccountID     string
	// StorageKey is the object-storage key (path) of the uploaded blob.
	StorageKey string
	// UploadStatus tracks upload state ("pending", "uploaded").
	UploadStatus string
	CreatedAt    time.Time
}
