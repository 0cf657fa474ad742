package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Field length limits enforced before persistence.
const (
	MaxSourceLen   = 100
	MaxCategoryLen = 50
	MaxDoneByLen   = 50
	MaxNoteLen     = 1000
	MaxNameLen     = 100
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
)

// ValidationError reports a rejected form field. The request that produced
// it must be a no-op apart from redirecting back with a message.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Reason
}

// IsValidationError reports whether err is a business-rule rejection that
// should surface as a flash message rather than a server error.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidDate)
}

type (
	// Date is a calendar date with no time-of-day component.
	Date struct {
		time.Time
	}

	// User is the authentication collaborator's account record.
	User struct {
		ID             int64
		Name           string
		Email          string
		PasswordHash   string
		AvatarFilename string
	}

	// Income is a manually entered income line for the open period.
	Income struct {
		ID     int64
		UserID int64
		Source string
		Amount Money
	}

	// Expense is a spending record for the open period. Attachment holds
	// the stored filename of an optional receipt; DoneBy attributes the
	// expense to a household member.
	Expense struct {
		ID         int64
		UserID     int64
		Amount     Money
		Category   string
		Note       string
		Date       Date
		Attachment string
		DoneBy     string
	}

	// Setting is the per-user balance row. Absence means zero-valued
	// defaults everywhere it is read.
	Setting struct {
		UserID        int64
		MonthlyLimit  Money
		TotalSavings  Money
		DefaultDoneBy string
	}

	// Category is a user-defined spending label, unique per (user, name).
	Category struct {
		ID     int64
		UserID int64
		Name   string
	}

	// ArchivedIncome is an income line frozen by a close-out, tagged with
	// the wall-clock month of the call.
	ArchivedIncome struct {
		ID     int64
		UserID int64
		Source string
		Amount Money
		Month  string
	}

	// ArchivedExpense is an expense frozen by a close-out. The attachment
	// reference is not carried over; history views never show receipts.
	ArchivedExpense struct {
		ID       int64
		UserID   int64
		Amount   Money
		Category string
		Note     string
		Date     Date
		DoneBy   string
		Month    string
	}
)

// ParseDate parses an ISO calendar date (2006-01-02). Out-of-range
// components such as 2024-13-40 are rejected.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// NewDate builds a Date from year, month and day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ISO renders the date as YYYY-MM-DD, the storage and form format.
func (d Date) ISO() string {
	return d.Format("2006-01-02")
}

func requireString(field, value string, max int) error {
	v := strings.TrimSpace(value)
	if v == "" {
		return &ValidationError{Field: field, Reason: "required"}
	}
	if len(v) > max {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("max %d characters", max)}
	}
	return nil
}

func (i Income) Validate() error {
	if err := requireString("source", i.Source, MaxSourceLen); err != nil {
		return err
	}
	if i.Amount.Cents < 0 || i.Amount.Cents > MaxAmountCents {
		return ErrInvalidAmount
	}
	return nil
}

func (e Expense) Validate() error {
	if e.Amount.Cents < 0 || e.Amount.Cents > MaxAmountCents {
		return ErrInvalidAmount
	}
	if err := requireString("category", e.Category, MaxCategoryLen); err != nil {
		return err
	}
	if err := requireString("done_by", e.DoneBy, MaxDoneByLen); err != nil {
		return err
	}
	if len(e.Note) > MaxNoteLen {
		return &ValidationError{Field: "note", Reason: fmt.Sprintf("max %d characters", MaxNoteLen)}
	}
	if e.Date.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (s Setting) Validate() error {
	if s.MonthlyLimit.Cents < 0 || s.MonthlyLimit.Cents > MaxAmountCents {
		return ErrInvalidAmount
	}
	if s.TotalSavings.Cents < -MaxAmountCents || s.TotalSavings.Cents > MaxAmountCents {
		return ErrInvalidAmount
	}
	if s.DefaultDoneBy != "" && len(s.DefaultDoneBy) > MaxDoneByLen {
		return &ValidationError{Field: "default_done_by", Reason: fmt.Sprintf("max %d characters", MaxDoneByLen)}
	}
	return nil
}
