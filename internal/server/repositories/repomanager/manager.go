package repomanager

import (
	"context"
	"database/sql"

	"github.com/dpetrovs/finledger/internal/dbx"
	"github.com/dpetrovs/finledger/internal/server/repositories/accounts"
	"github.com/dpetrovs/finledger/internal/server/repositories/budgets"
	"github.com/dpetrovs/finledger/internal/server/repositories/receipts"
	"github.com/dpetrovs/finledger/internal/server/repositories/transactions"
	"github.com/dpetrovs/finledger/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Accounts(db dbx.DBTX) accounts.Repository
	Transactions(db dbx.DBTX) transactions.Repository
	Budgets(db dbx.DBTX) budgets.Repository
	Receipts(db dbx.DBTX) receipts.Repository
}
