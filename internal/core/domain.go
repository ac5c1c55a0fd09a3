package core

import (
	"errors"
	"strings"
	"time"
)

type (
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// DraftExpense is an expense being composed in a form, before an id is assigned.
	DraftExpense struct {
		Name     string
		Category string // Category id, see Categories
		Amount   Money
		Date     Date
	}

	Expense struct {
		ID       string
		Name     string
		Category string
		Amount   Money
		Date     Date
	}
)

var (
	ErrInvalidDay       = errors.New("invalid day")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyName        = errors.New("empty expense name")
	ErrEmptyCategory    = errors.New("empty category")
	ErrNameTooLong      = errors.New("expense name too long (max 200 characters)")
	ErrMissingExpenseID = errors.New("missing expense id")
)

const maxNameLength = 200

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current day truncated to midnight UTC.
func Today() Date {
	now := time.Now()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

// ISO formats the date as YYYY-MM-DD, the format used by HTML date inputs.
func (d Date) ISO() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

// ParseDate parses a date in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Add returns the sum of two amounts.
func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }

// Sub returns m minus o.
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

func (e DraftExpense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Name) == "" {
		return ErrEmptyName
	}
	if len(e.Name) > maxNameLength {
		return ErrNameTooLong
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

// WithID turns the draft into a stored expense.
func (e DraftExpense) WithID(id string) Expense {
	return Expense{
		ID:       id,
		Name:     e.Name,
		Category: e.Category,
		Amount:   e.Amount,
		Date:     e.Date,
	}
}

// Draft strips the id, e.g. to prefill an edit form.
func (e Expense) Draft() DraftExpense {
	return DraftExpense{
		Name:     e.Name,
		Category: e.Category,
		Amount:   e.Amount,
		Date:     e.Date,
	}
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return ErrMissingExpenseID
	}
	return e.Draft().Validate()
}
