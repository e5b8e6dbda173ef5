package core

import (
	"errors"
	"strings"
	"time"
)

const (
	KindIncome  CategoryKind = "income"
	KindExpense CategoryKind = "expense"
)

// ScopeAllTime is the sentinel bucket scope that covers every transaction
// regardless of date. Month scopes use the "2006-01" key format.
const ScopeAllTime = "all"

type (
	CategoryKind string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64 `json:"cents"`
	}

	// CategorySnapshot is the denormalized copy of a category carried on each
	// transaction. It can drift from the Category store until propagation runs.
	CategorySnapshot struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Color string `json:"color"`
	}

	Transaction struct {
		ID           string           `json:"id"`
		Memo         string           `json:"memo"`
		Amount       Money            `json:"amount"`
		Category     CategorySnapshot `json:"category"`
		Date         Date             `json:"date"`
		LastModified time.Time        `json:"lastModified"`
		Deleted      bool             `json:"deleted"`
	}

	Category struct {
		ID      string       `json:"id"`
		Name    string       `json:"name"`
		Color   string       `json:"color"`
		Kind    CategoryKind `json:"kind"`
		Deleted bool         `json:"deleted"`
	}

	SavingsAccount struct {
		ID           string    `json:"id"`
		Name         string    `json:"name"`
		Color        string    `json:"color"`
		Balance      Money     `json:"balance"`
		LastModified time.Time `json:"lastModified"`
	}
)

var (
	ErrEmptyID         = errors.New("empty transaction id")
	ErrEmptyCategoryID = errors.New("empty category id")
	ErrEmptyName       = errors.New("empty name")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidKind     = errors.New("invalid category kind")
	ErrMemoTooLong     = errors.New("memo too long (max 200 characters)")

	ErrTransactionNotFound = errors.New("transaction not found")
	ErrCategoryNotFound    = errors.New("category not found")
	ErrAccountNotFound     = errors.New("savings account not found")

	// State-machine precondition failures, rejected before any write.
	ErrAlreadyTrashed     = errors.New("transaction already trashed")
	ErrNotTrashed         = errors.New("transaction not trashed")
	ErrTransactionTrashed = errors.New("transaction is trashed and cannot be modified")
)

// NewDate creates a Date pinned to UTC midnight.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// MonthKey returns the calendar-month bucket scope for the date.
func (d Date) MonthKey() string {
	return d.Format("2006-01")
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// IsIncome reports whether the amount routes to the income column.
// Zero counts as income; only strictly negative amounts are expenses.
func (m Money) IsIncome() bool {
	return m.Cents >= 0
}

// Abs returns the magnitude in cents, used for amount-based sorting.
func (m Money) Abs() int64 {
	if m.Cents < 0 {
		return -m.Cents
	}
	return m.Cents
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return ErrEmptyID
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Category.ID) == "" {
		return ErrEmptyCategoryID
	}
	if len(t.Memo) > 200 {
		return ErrMemoTooLong
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return ErrEmptyCategoryID
	}
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	switch c.Kind {
	case KindIncome, KindExpense:
	default:
		return ErrInvalidKind
	}
	return nil
}

func (a SavingsAccount) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	return nil
}
