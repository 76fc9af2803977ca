package core

import (
	"errors"
	"strings"
	"time"
)

const (
	// Transaction statuses.
	StatusPaid     TransactionStatus = "paid"
	StatusPending  TransactionStatus = "pending"
	StatusReversed TransactionStatus = "reversed"

	// Statement statuses.
	StatementOpen   StatementStatus = "open"
	StatementClosed StatementStatus = "closed"
	StatementPaid   StatementStatus = "paid"

	// Recurrence markers.
	RecurrenceNone        Recurrence = "none"
	RecurrenceFixed       Recurrence = "fixed"
	RecurrenceInstallment Recurrence = "installment"

	// Account types.
	AccountChecking   AccountType = "checking"
	AccountSavings    AccountType = "savings"
	AccountInvestment AccountType = "investment"
	AccountCash       AccountType = "cash"

	// Category kinds.
	CategoryIncome     CategoryKind = "income"
	CategoryExpense    CategoryKind = "expense"
	CategoryTransfer   CategoryKind = "transfer"
	CategoryCreditCard CategoryKind = "credit_card"
)

type (
	TransactionStatus string
	StatementStatus   string
	Recurrence        string
	AccountType       string
	CategoryKind      string

	// Date is a calendar date with no time component. The ledger works at
	// day granularity; the wrapped time is always UTC midnight.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Account struct {
		ID             string
		FamilyID       string
		OwnerID        string
		Name           string
		Type           AccountType
		InitialBalance Money
	}

	// Transaction is a single ledger movement. Amount is signed: positive
	// for inflows, negative for outflows. A transaction belongs to either
	// an account or a card, never both.
	Transaction struct {
		ID           string
		FamilyID     string
		AccountID    string // empty when the movement is a card charge
		CardID       string // empty when the movement is an account movement
		StatementID  string // set once a card charge is filed into a statement
		CategoryID   string
		Description  string
		Amount       Money
		Date         Date
		Status       TransactionStatus
		Recurrence   Recurrence
		Installments int    // total installment count, set only for installment recurrence
		ParentID     string // originating transaction for recurrence-generated copies
	}

	CreditCard struct {
		ID          string
		FamilyID    string
		Name        string
		CreditLimit Money
		ClosingDay  int // 1-31
		DueDay      int // 1-31
	}

	CardStatement struct {
		ID     string
		CardID string
		Month  int // 1-12
		Year   int
		Status StatementStatus
	}

	Category struct {
		ID       string
		FamilyID string
		Name     string
		Kind     CategoryKind
	}
)

var (
	ErrInvalidDate         = errors.New("invalid date")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrEmptyDescription    = errors.New("empty description")
	ErrEmptyFamily         = errors.New("empty family id")
	ErrEmptyCategory       = errors.New("empty category id")
	ErrNoOwner             = errors.New("transaction needs an account or a card")
	ErrBothOwners          = errors.New("transaction cannot reference both an account and a card")
	ErrInvalidStatus       = errors.New("invalid transaction status")
	ErrInvalidRecurrence   = errors.New("invalid recurrence marker")
	ErrInvalidInstallments = errors.New("installments must be between 2 and 120")
	ErrInvalidClosingDay   = errors.New("closing day must be between 1 and 31")
	ErrInvalidDueDay       = errors.New("due day must be between 1 and 31")
	ErrNegativeLimit       = errors.New("credit limit cannot be negative")
	ErrInvalidAccountType  = errors.New("invalid account type")
)

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// Today returns the current calendar date in UTC.
func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

// Day returns the day of the month.
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month as 1-12.
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year.
func (d Date) Year() int {
	return d.Time.Year()
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format("2006-01-02")
}

// DaysInMonth returns the number of calendar days in the date's month.
func (d Date) DaysInMonth() int {
	return time.Date(d.Year(), d.Time.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// EndOfMonth returns the last calendar day of the date's month.
func (d Date) EndOfMonth() Date {
	return NewDate(d.Year(), d.Month(), d.DaysInMonth())
}

// SameMonth reports whether both dates fall in the same calendar month.
func (d Date) SameMonth(other Date) bool {
	return d.Year() == other.Year() && d.Month() == other.Month()
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (s TransactionStatus) Valid() bool {
	switch s {
	case StatusPaid, StatusPending, StatusReversed:
		return true
	}
	return false
}

func (s StatementStatus) Valid() bool {
	switch s {
	case StatementOpen, StatementClosed, StatementPaid:
		return true
	}
	return false
}

func (r Recurrence) Valid() bool {
	switch r {
	case RecurrenceNone, RecurrenceFixed, RecurrenceInstallment:
		return true
	}
	return false
}

func (t AccountType) Valid() bool {
	switch t {
	case AccountChecking, AccountSavings, AccountInvestment, AccountCash:
		return true
	}
	return false
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.FamilyID) == "" {
		return ErrEmptyFamily
	}
	if len(strings.TrimSpace(a.Name)) == 0 {
		return ErrEmptyDescription
	}
	if !a.Type.Valid() {
		return ErrInvalidAccountType
	}
	return nil
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.FamilyID) == "" {
		return ErrEmptyFamily
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if t.Amount.Cents == 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(t.CategoryID) == "" {
		return ErrEmptyCategory
	}
	hasAccount := strings.TrimSpace(t.AccountID) != ""
	hasCard := strings.TrimSpace(t.CardID) != ""
	if !hasAccount && !hasCard {
		return ErrNoOwner
	}
	if hasAccount && hasCard {
		return ErrBothOwners
	}
	if !t.Status.Valid() {
		return ErrInvalidStatus
	}
	if !t.Recurrence.Valid() {
		return ErrInvalidRecurrence
	}
	if t.Recurrence == RecurrenceInstallment {
		if t.Installments < 2 || t.Installments > 120 {
			return ErrInvalidInstallments
		}
	} else if t.Installments != 0 {
		return ErrInvalidInstallments
	}
	return nil
}

func (c CreditCard) Validate() error {
	if strings.TrimSpace(c.FamilyID) == "" {
		return ErrEmptyFamily
	}
	if len(strings.TrimSpace(c.Name)) == 0 {
		return ErrEmptyDescription
	}
	if c.CreditLimit.Cents < 0 {
		return ErrNegativeLimit
	}
	if c.ClosingDay < 1 || c.ClosingDay > 31 {
		return ErrInvalidClosingDay
	}
	if c.DueDay < 1 || c.DueDay > 31 {
		return ErrInvalidDueDay
	}
	return nil
}

func (s CardStatement) Validate() error {
	if strings.TrimSpace(s.CardID) == "" {
		return errors.New("statement needs a card reference")
	}
	if s.Month < 1 || s.Month > 12 {
		return ErrInvalidDate
	}
	if s.Year < 1900 {
		return ErrInvalidDate
	}
	if !s.Status.Valid() {
		return errors.New("invalid statement status")
	}
	return nil
}
