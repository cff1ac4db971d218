package models

import "time"

// TransactionType classifies a ledger entry as money in or money out.
type TransactionType string

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

// Transaction is a single ledger entry. Amount is a non-negative magnitude
// in minor currency units; the sign is derived from Type. AccountID and
// AddedBy are immutable after creation.
type Transaction struct {
	ID          string
	AccountID   string
	AddedBy     string
	Description string
	Amount      int64
	Type        TransactionType
	Date        time.Time
	Category    string
}

// SignedAmount returns the transaction's contribution to the account
// balance: +Amount for income, -Amount for expense.
func (t *Transaction) SignedAmount() int64 {
	if t.Type == TypeIncome {
		return t.Amount
	}
	return -t.Amount
}

// TransactionUpdate carries a partial update. Nil fields are left
// unchanged. The owning account and the author are not updatable.
type TransactionUpdate struct {
	Description *string
	Amount      *int64
	Type        *TransactionType
	Date        *time.Time
	Category    *string
}

// Snapshot returns a TransactionUpdate that would restore the transaction
// to its current mutable state. Used by the ledger engine to write back a
// pre-update snapshot when a balance adjustment fails.
func (t *Transaction) Snapshot() *TransactionUpdate {
	desc := t.Description
	amount := t.Amount
	typ := t.Type
	date := t.Date
	category := t.Category
	return &TransactionUpdate{
		Description: &desc,
		Amount:      &amount,
		Type:        &typ,
		Date:        &date,
		Category:    &category,
	}
}
