package core

import (
	"errors"
	"strings"
	"time"
)

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleLector Role = "lector"
)

const (
	Ingreso TxType = "Ingreso"
	Egreso  TxType = "Egreso"
)

type (
	Role string

	// TxType classifies a ledger entry as income (Ingreso) or expense (Egreso).
	TxType string

	// Date is a calendar date without a time component. The zero value is empty.
	Date struct {
		time.Time
	}

	// Profile is the identity record owned by the external identity layer.
	// Read-only to this core.
	Profile struct {
		ID       string
		UserID   string
		Email    string
		Username string
		Role     Role
	}

	// Account is a named bucket of one type, owned by exactly one profile.
	Account struct {
		ID          string
		OwnerUserID string
		Type        TxType
		Name        string
		CreatedAt   time.Time
	}

	// Transaction is the ledger entry. Cedula and Nombres are only meaningful
	// for Ingreso rows; empty string means absent.
	Transaction struct {
		ID          string
		UserID      string
		Type        TxType
		Date        Date
		Account     string
		Amount      Money
		Description string
		Cedula      string
		Nombres     string
		CreatedAt   time.Time
	}
)

var (
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrFutureDate          = errors.New("date cannot be in the future")
	ErrInvalidDate         = errors.New("invalid date")
	ErrMissingAccount      = errors.New("account is required")
	ErrUnknownAccount      = errors.New("account does not exist")
	ErrAccountTypeMismatch = errors.New("account type does not match transaction type")
	ErrMissingCedula       = errors.New("cedula is required for Ingreso")
	ErrMissingNombres      = errors.New("nombres is required for Ingreso")
	ErrUnknownType         = errors.New("unknown transaction type")
	ErrNotFound            = errors.New("not found")
)

// NewDate creates a Date from year, month, day in UTC.
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

// ISO renders the date as fixed-width YYYY-MM-DD. The format is zero-padded,
// so lexicographic comparison of ISO strings orders dates correctly.
func (d Date) ISO() string {
	return d.Format("2006-01-02")
}

// After reports whether d falls after other on the calendar.
func (d Date) After(other Date) bool {
	return d.ISO() > other.ISO()
}

func (t TxType) Valid() bool {
	return t == Ingreso || t == Egreso
}

// IsAdmin reports whether the role sees every owner's rows.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// Normalize forces fields that are meaningless for the transaction type to
// absent. An Egreso silently drops any supplied cedula/nombres rather than
// rejecting them.
func (t *Transaction) Normalize() {
	t.Account = strings.TrimSpace(t.Account)
	t.Description = strings.TrimSpace(t.Description)
	t.Cedula = strings.TrimSpace(t.Cedula)
	t.Nombres = strings.TrimSpace(t.Nombres)
	if t.Type == Egreso {
		t.Cedula = ""
		t.Nombres = ""
	}
}

// Validate checks the write invariants against the given clock date.
// Account existence and type match need the account set and are checked by
// the service layer.
func (t Transaction) Validate(today Date) error {
	if !t.Type.Valid() {
		return ErrUnknownType
	}
	if t.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	if t.Date.After(today) {
		return ErrFutureDate
	}
	if strings.TrimSpace(t.Account) == "" {
		return ErrMissingAccount
	}
	if t.Type == Ingreso {
		if strings.TrimSpace(t.Cedula) == "" {
			return ErrMissingCedula
		}
		if strings.TrimSpace(t.Nombres) == "" {
			return ErrMissingNombres
		}
	}
	return nil
}
