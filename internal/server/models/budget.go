package models

import "time"

// BudgetPeriod is the kind of time window a budget covers.
type BudgetPeriod string

const (
	PeriodMonthly BudgetPeriod = "monthly"
	PeriodWeekly  BudgetPeriod = "weekly"
	PeriodCustom  BudgetPeriod = "custom"
)

func (p BudgetPeriod) Valid() bool {
	return p == PeriodMonthly || p == PeriodWeekly || p == PeriodCustom
}

// BudgetCategory is one category/limit pair inside a budget.
type BudgetCategory struct {
	Category string
	Limit    int64
}

// Budget is a spending-limit declaration scoped to an account. It has no
// coupling to the ledger engine.
type Budget struct {
	ID         string
	AccountID  string
	Name       string
	Period     BudgetPeriod
	StartDate  *time.Time
	EndDate    *time.Time
	Categories []BudgetCategory
	CreatedBy  string
	CreatedAt  time.Time
}

// BudgetUpdate carries a partial budget update. Nil fields are left
// unchanged; a non-nil Categories slice replaces the whole set.
type BudgetUpdate struct {
	Name       *string
	Period     *BudgetPeriod
	StartDate  *time.Time
	EndDate    *time.Time
	Categories []BudgetCategory
}
