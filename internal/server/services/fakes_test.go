package services

import (
	"context"
	"sort"

	"github.com/dpetrovs/finledger/internal/common"
	"github.com/dpetrovs/finledger/internal/dbx"
	"github.com/dpetrovs/finledger/internal/logging"
	"github.com/dpetrovs/finledger/internal/server/models"
	"github.com/dpetrovs/finledger/internal/server/repositories/accounts"
	"github.com/dpetrovs/finledger/internal/server/repositories/budgets"
	"github.com/dpetrovs/finledger/internal/server/repositories/receipts"
	"github.com/dpetrovs/finledger/internal/server/repositories/repomanager"
	"github.com/dpetrovs/finledger/internal/server/repositories/transactions"
	"github.com/dpetrovs/finledger/internal/server/repositories/users"
)

// -------- test fakes --------

type nopLogger struct{}

func (nopLogger) Debug(ctx context.Context, msg string, args ...any) {}
func (nopLogger) Info(ctx context.Context, msg string, args ...any)  {}
func (nopLogger) Warn(ctx context.Context, msg string, args ...any)  {}
func (nopLogger) Error(ctx context.Context, msg string, args ...any) {}
func (l nopLogger) With(args ...any) logging.Logger                  { return l }

type fakeUsersRepo struct {
	users.Repository
	byID map[string]*models.User
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, common.ErrorNotFound
}

type fakeAccountsRepo struct {
	accounts.Repository
	users *fakeUsersRepo

	byID    map[string]*models.Account
	members map[string][]string

	onCreate     func(account *models.Account) error
	balanceErr   error
	balanceCalls int
}

func (f *fakeAccountsRepo) GetByUserID(ctx context.Context, userID string) (*models.Account, error) {
	for _, a := range f.byID {
		if a.OwnerUserID == userID {
			cp := *a
			return &cp, nil
		}
		for _, m := range f.members[a.ID] {
			if m == userID {
				cp := *a
				return &cp, nil
			}
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeAccountsRepo) Create(ctx context.Context, account *models.Account) error {
	if f.onCreate != nil {
		if err := f.onCreate(account); err != nil {
			return err
		}
	}
	for _, a := range f.byID {
		if a.OwnerUserID == account.OwnerUserID {
			return common.ErrorAlreadyExists
		}
	}
	cp := *account
	f.byID[account.ID] = &cp
	return nil
}

func (f *fakeAccountsRepo) ApplyBalanceDelta(ctx context.Context, accountID string, delta int64) (int64, error) {
	f.balanceCalls++
	if f.balanceErr != nil {
		return 0, f.balanceErr
	}
	a, ok := f.byID[accountID]
	if !ok {
		return 0, common.ErrorNotFound
	}
	a.Balance += delta
	return a.Balance, nil
}

func (f *fakeAccountsRepo) AddMember(ctx context.Context, accountID, userID string) error {
	for _, m := range f.members[accountID] {
		if m == userID {
			return nil
		}
	}
	f.members[accountID] = append(f.members[accountID], userID)
	return nil
}

func (f *fakeAccountsRepo) ListMembers(ctx context.Context, accountID string) ([]*models.User, error) {
	var result []*models.User
	for _, id := range f.members[accountID] {
		if u, ok := f.users.byID[id]; ok {
			result = append(result, u)
		}
	}
	return result, nil
}

type fakeTransactionsRepo struct {
	transactions.Repository

	rows map[string]*models.Transaction

	insertErr error
	updateErr error
	deleteErr error
}

func (f *fakeTransactionsRepo) Insert(ctx context.Context, tx *models.Transaction) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	cp := *tx
	f.rows[tx.ID] = &cp
	return nil
}

func (f *fakeTransactionsRepo) GetByID(ctx context.Context, id, accountID string) (*models.Transaction, error) {
	tx, ok := f.rows[id]
	if !ok || tx.AccountID != accountID {
		return nil, common.ErrorNotFound
	}
	cp := *tx
	return &cp, nil
}

func (f *fakeTransactionsRepo) ListByAccount(ctx context.Context, accountID string) ([]*models.Transaction, error) {
	var result []*models.Transaction
	for _, tx := range f.rows {
		if tx.AccountID == accountID {
			cp := *tx
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.After(result[j].Date) })
	return result, nil
}

func (f *fakeTransactionsRepo) Update(ctx context.Context, id, accountID string, upd *models.TransactionUpdate) (*models.Transaction, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	tx, ok := f.rows[id]
	if !ok || tx.AccountID != accountID {
		return nil, common.ErrorNotFound
	}
	if upd.Description != nil {
		tx.Description = *upd.Description
	}
	if upd.Amount != nil {
		tx.Amount = *upd.Amount
	}
	if upd.Type != nil {
		tx.Type = *upd.Type
	}
	if upd.Date != nil {
		tx.Date = *upd.Date
	}
	if upd.Category != nil {
		tx.Category = *upd.Category
	}
	cp := *tx
	return &cp, nil
}

func (f *fakeTransactionsRepo) Delete(ctx context.Context, id, accountID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	tx, ok := f.rows[id]
	if !ok || tx.AccountID != accountID {
		return common.ErrorNotFound
	}
	delete(f.rows, id)
	return nil
}

type fakeBudgetsRepo struct {
	budgets.Repository

	rows map[string]*models.Budget

	insertErr error
}

func (f *fakeBudgetsRepo) Insert(ctx context.Context, budget *models.Budget) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	cp := *budget
	f.rows[budget.ID] = &cp
	return nil
}

func (f *fakeBudgetsRepo) GetByID(ctx context.Context, id, accountID string) (*models.Budget, error) {
	b, ok := f.rows[id]
	if !ok || b.AccountID != accountID {
		return nil, common.ErrorNotFound
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBudgetsRepo) ListByAccount(ctx context.Context, accountID string) ([]*models.Budget, error) {
	var result []*models.Budget
	for _, b := range f.rows {
		if b.AccountID == accountID {
			cp := *b
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (f *fakeBudgetsRepo) Update(ctx context.Context, id, accountID string, upd *models.BudgetUpdate) (*models.Budget, error) {
	b, ok := f.rows[id]
	if !ok || b.AccountID != accountID {
		return nil, common.ErrorNotFound
	}
	if upd.Name != nil {
		b.Name = *upd.Name
	}
	if upd.Period != nil {
		b.Period = *upd.Period
	}
	if upd.StartDate != nil {
		b.StartDate = upd.StartDate
	}
	if upd.EndDate != nil {
		b.EndDate = upd.EndDate
	}
	if upd.Categories != nil {
		b.Categories = upd.Categories
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBudgetsRepo) Delete(ctx context.Context, id, accountID string) error {
	b, ok := f.rows[id]
	if !ok || b.AccountID != accountID {
		return common.ErrorNotFound
	}
	delete(f.rows, id)
	return nil
}

type fakeReceiptsRepo struct {
	receipts.Repository

	byTransaction map[string]*models.Receipt
}

func (f *fakeReceiptsRepo) CreateOrReplace(ctx context.Context, receipt *models.Receipt) error {
	cp := *receipt
	f.byTransaction[receipt.TransactionID] = &cp
	return nil
}

func (f *fakeReceiptsRepo) GetByTransactionID(ctx context.Context, transactionID, accountID string) (*models.Receipt, error) {
	r, ok := f.byTransaction[transactionID]
	if !ok || r.AccountID != accountID {
		return nil, common.ErrorNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeReceiptsRepo) MarkUploaded(ctx context.Context, transactionID, accountID string) error {
	r, ok := f.byTransaction[transactionID]
	if !ok || r.AccountID != accountID {
		return common.ErrorNotFound
	}
	r.UploadStatus = models.ReceiptUploaded
	return nil
}

type fakeRepoManager struct {
	repomanager.RepositoryManager
	u  *fakeUsersRepo
	a  *fakeAccountsRepo
	tx *fakeTransactionsRepo
	b  *fakeBudgetsRepo
	r  *fakeReceiptsRepo
}

func (m *fakeRepoManager) Users(db dbx.DBTX) users.Repository               { return m.u }
func (m *fakeRepoManager) Accounts(db dbx.DBTX) accounts.Repository        { return m.a }
func (m *fakeRepoManager) Transactions(db dbx.DBTX) transactions.Repository { return m.tx }
func (m *fakeRepoManager) Budgets(db dbx.DBTX) budgets.Repository          { return m.b }
func (m *fakeRepoManager) Receipts(db dbx.DBTX) receipts.Repository        { return m.r }

// -------- helpers --------

func newFakeRepoManager() *fakeRepoManager {
	u := &fakeUsersRepo{byID: map[string]*models.User{}}
	a := &fakeAccountsRepo{users: u, byID: map[string]*models.Account{}, members: map[string][]string{}}
	return &fakeRepoManager{
		u:  u,
		a:  a,
		tx: &fakeTransactionsRepo{rows: map[string]*models.Transaction{}},
		b:  &fakeBudgetsRepo{rows: map[string]*models.Budget{}},
		r:  &fakeReceiptsRepo{byTransaction: map[string]*models.Receipt{}},
	}
}

func int64p(v int64) *int64 { return &v }
