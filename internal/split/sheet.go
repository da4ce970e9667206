package split

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tolerance is the slack allowed when comparing percentages and amounts.
var Tolerance = decimal.RequireFromString("0.01")

var hundred = decimal.NewFromInt(100)

// Allocation is one line of a split sheet: either a Fixed line the user
// edits or the single computed Remainder.
type Allocation interface {
	allocation()
}

// Fixed is a user-entered allocation.
type Fixed struct {
	ID          int
	Description string
	AccountID   *uuid.UUID
	Percent     decimal.Decimal
	Amount      decimal.Decimal
}

// Remainder takes whatever the fixed lines leave over. Its percent and
// amount are never stored; they are derived from the fixed lines on demand.
type Remainder struct {
	Description string
	AccountID   *uuid.UUID
	Percent     decimal.Decimal
	Amount      decimal.Decimal
}

func (Fixed) allocation()     {}
func (Remainder) allocation() {}

// Sheet is the editable state of a split for one transaction.
type Sheet struct {
	total     decimal.Decimal
	fixed     []Fixed
	remainder Remainder
	nextID    int
}

// NewSheet starts a split of total (its absolute value is used) with every
// unit in the remainder line.
func NewSheet(total decimal.Decimal, remainderAccount *uuid.UUID) *Sheet {
	return &Sheet{
		total:     total.Abs(),
		remainder: Remainder{Description: "Remainder", AccountID: remainderAccount},
		nextID:    1,
	}
}

func (s *Sheet) Total() decimal.Decimal {
	return s.total
}

// AddRow appends an empty fixed line and returns its ID.
func (s *Sheet) AddRow(description string, accountID *uuid.UUID) int {
	id := s.nextID
	s.nextID++

	s.fixed = append(s.fixed, Fixed{
		ID:          id,
		Description: description,
		AccountID:   accountID,
		Percent:     decimal.Zero,
		Amount:      decimal.Zero,
	})

	return id
}

func (s *Sheet) RemoveRow(id int) error {
	i, err := s.index(id)
	if err != nil {
		return err
	}

	s.fixed = append(s.fixed[:i], s.fixed[i+1:]...)

	return nil
}

// SetPercent sets a line's share and derives its amount from the total.
func (s *Sheet) SetPercent(id int, percent decimal.Decimal) error {
	i, err := s.index(id)
	if err != nil {
		return err
	}

	s.fixed[i].Percent = percent
	s.fixed[i].Amount = percent.Div(hundred).Mul(s.total).Round(2)

	return nil
}

// SetAmount sets a line's amount and derives its share from the total.
func (s *Sheet) SetAmount(id int, amount decimal.Decimal) error {
	i, err := s.index(id)
	if err != nil {
		return err
	}

	if s.total.IsZero() {
		return ErrZeroTotal
	}

	s.fixed[i].Amount = amount
	s.fixed[i].Percent = amount.Div(s.total).Mul(hundred).Round(4)

	return nil
}

func (s *Sheet) SetAccount(id int, accountID *uuid.UUID) error {
	i, err := s.index(id)
	if err != nil {
		return err
	}

	s.fixed[i].AccountID = accountID

	return nil
}

func (s *Sheet) SetDescription(id int, description string) error {
	i, err := s.index(id)
	if err != nil {
		return err
	}

	s.fixed[i].Description = description

	return nil
}

func (s *Sheet) SetRemainderAccount(accountID *uuid.UUID) {
	s.remainder.AccountID = accountID
}

// Rows returns a copy of the fixed lines in order.
func (s *Sheet) Rows() []Fixed {
	return append([]Fixed(nil), s.fixed...)
}

// Remainder returns the remainder line with its derived percent and amount.
// Both may be negative when the fixed lines over-allocate.
func (s *Sheet) Remainder() Remainder {
	r := s.remainder
	r.Percent = hundred
	r.Amount = s.total

	for _, f := range s.fixed {
		r.Percent = r.Percent.Sub(f.Percent)
		r.Amount = r.Amount.Sub(f.Amount)
	}

	return r
}

// Allocations returns every line: the fixed lines followed by the remainder.
func (s *Sheet) Allocations() []Allocation {
	out := make([]Allocation, 0, len(s.fixed)+1)
	for _, f := range s.fixed {
		out = append(out, f)
	}

	return append(out, s.Remainder())
}

// Share is a validated line ready to be persisted or stored as a rule.
type Share struct {
	Description string
	AccountID   uuid.UUID
	Percent     decimal.Decimal
}

// Shares validates the sheet and returns the lines to persist. A remainder
// of 0.01% or less is dropped rather than saved as an empty line.
func (s *Sheet) Shares() ([]Share, error) {
	shares := make([]Share, 0, len(s.fixed)+1)

	for _, f := range s.fixed {
		if f.AccountID == nil || *f.AccountID == uuid.Nil {
			return nil, fmt.Errorf("row %d: %w", f.ID, ErrMissingAccount)
		}

		if f.Percent.IsNegative() {
			return nil, fmt.Errorf("row %d: %w", f.ID, ErrNegativeShare)
		}

		shares = append(shares, Share{Description: f.Description, AccountID: *f.AccountID, Percent: f.Percent})
	}

	r := s.Remainder()
	if r.Percent.GreaterThan(Tolerance) {
		if r.AccountID == nil || *r.AccountID == uuid.Nil {
			return nil, ErrNoRemainderAccount
		}

		shares = append(shares, Share{Description: r.Description, AccountID: *r.AccountID, Percent: r.Percent})
	}

	if len(shares) == 0 {
		return nil, ErrEmpty
	}

	if err := CheckTotal(shares); err != nil {
		return nil, err
	}

	return shares, nil
}

// Validate reports whether the sheet can be saved.
func (s *Sheet) Validate() error {
	_, err := s.Shares()
	return err
}

// ValidateShares checks shares submitted without a sheet: at least one
// line, every line on an account, no negative percent, 100% in total.
func ValidateShares(shares []Share) error {
	if len(shares) == 0 {
		return ErrEmpty
	}

	for _, sh := range shares {
		if sh.AccountID == uuid.Nil {
			return ErrMissingAccount
		}

		if sh.Percent.IsNegative() {
			return ErrNegativeShare
		}
	}

	return CheckTotal(shares)
}

// CheckTotal verifies the shares add up to 100% within Tolerance.
func CheckTotal(shares []Share) error {
	sum := decimal.Zero
	for _, sh := range shares {
		sum = sum.Add(sh.Percent)
	}

	if sum.Sub(hundred).Abs().GreaterThan(Tolerance) {
		return fmt.Errorf("%w: got %s", ErrPercentTotal, sum.String())
	}

	return nil
}

func (s *Sheet) index(id int) (int, error) {
	for i, f := range s.fixed {
		if f.ID == id {
			return i, nil
		}
	}

	return -1, fmt.Errorf("%w: %d", ErrRowNotFound, id)
}
