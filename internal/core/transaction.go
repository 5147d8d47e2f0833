package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"

	Office   Division = "office"
	Personal Division = "personal"
)

type (
	// Kind distinguishes money coming in from money going out.
	Kind string

	// Division labels a transaction as office or personal spending.
	Division string

	// Transaction is the sole persisted entity. ID and CreatedAt are
	// assigned by the store at insert time and never change afterwards.
	Transaction struct {
		ID          string
		Kind        Kind
		Amount      Money
		Description string
		Category    string
		Division    Division
		CreatedAt   time.Time
		Editable    bool
	}

	// Patch carries the fields an update may change. Nil fields are left
	// untouched. ID and CreatedAt are deliberately absent.
	Patch struct {
		Kind        *Kind
		Amount      *Money
		Description *string
		Category    *string
		Division    *Division
	}
)

var (
	ErrInvalidKind        = errors.New("invalid transaction kind")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrMissingAmount      = errors.New("missing amount")
	ErrEmptyDescription   = errors.New("empty description")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrEmptyCategory      = errors.New("empty category")
	ErrInvalidDivision    = errors.New("invalid division")

	ErrNotFound = errors.New("transaction not found")
	ErrLocked   = errors.New("transaction can no longer be modified")
)

func (k Kind) Validate() error {
	switch k {
	case Income, Expense:
		return nil
	}
	return ErrInvalidKind
}

func (d Division) Validate() error {
	switch d {
	case Office, Personal:
		return nil
	}
	return ErrInvalidDivision
}

func (t Transaction) Validate() error {
	if err := t.Kind.Validate(); err != nil {
		return err
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return ErrDescriptionTooLong
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	return t.Division.Validate()
}

// Validate checks every field that is actually present in the patch.
func (p Patch) Validate() error {
	if p.Kind != nil {
		if err := p.Kind.Validate(); err != nil {
			return err
		}
	}
	if p.Amount != nil {
		if err := p.Amount.Validate(); err != nil {
			return err
		}
	}
	if p.Description != nil {
		if len(strings.TrimSpace(*p.Description)) == 0 {
			return ErrEmptyDescription
		}
		if len(*p.Description) > 200 {
			return ErrDescriptionTooLong
		}
	}
	if p.Category != nil && strings.TrimSpace(*p.Category) == "" {
		return ErrEmptyCategory
	}
	if p.Division != nil {
		if err := p.Division.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// IsEmpty reports whether the patch would change nothing.
func (p Patch) IsEmpty() bool {
	return p.Kind == nil && p.Amount == nil && p.Description == nil &&
		p.Category == nil && p.Division == nil
}

// Apply merges the patch into a copy of t. ID, CreatedAt and Editable are
// never overwritten.
func (p Patch) Apply(t Transaction) Transaction {
	if p.Kind != nil {
		t.Kind = *p.Kind
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Division != nil {
		t.Division = *p.Division
	}
	return t
}
