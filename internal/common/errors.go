// Package common defines shared sentinel errors used across the finledger
// backend. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Input errors.
	ErrorValidation = errors.New("validation error")
	ErrorInvalidID  = errors.New("invalid id")

	// ErrorBalanceUpdate signals that a ledger row was written but the
	// paired account balance adjustment did not apply. A compensating
	// action has been attempted; the ledger state must be treated as
	// uncertain and re-read.
	ErrorBalanceUpdate = errors.New("balance update failed")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
)
