package models

import "time"

// Account is a shared wallet. Balance is the denormalized sum of the
// signed amounts of all transactions referencing the account, maintained
// incrementally by the ledger engine.
type Account struct {
	ID          string
	OwnerUserID string
	Name        string
	Balance     int64
	CreatedAt   time.Time
}
