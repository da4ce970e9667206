package splitrule

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tallyhq/tally/internal/split"
)

var (
	ErrNotFound     = errors.New("split rule not found")
	ErrRuleExists   = errors.New("a split rule already exists for this merchant")
	ErrInvalidRule  = errors.New("invalid split rule")
	ErrMerchantName = errors.New("split rule needs a merchant name")
)

type Line struct {
	AccountID   uuid.UUID       `json:"account_id"`
	Description string          `json:"description,omitempty"`
	Percent     decimal.Decimal `json:"percent"`
}

// Rule is the default split for every transaction of one merchant.
type Rule struct {
	ID           uuid.UUID
	MerchantName string
	Lines        []Line
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}

// FromShares seeds a rule from a completed manual split.
func FromShares(merchantName string, shares []split.Share) *Rule {
	lines := make([]Line, len(shares))
	for i, sh := range shares {
		lines[i] = Line{AccountID: sh.AccountID, Description: sh.Description, Percent: sh.Percent}
	}

	return &Rule{MerchantName: strings.TrimSpace(merchantName), Lines: lines}
}

// Shares converts the rule back into split shares for allocation.
func (r *Rule) Shares() []split.Share {
	shares := make([]split.Share, len(r.Lines))
	for i, l := range r.Lines {
		shares[i] = split.Share{AccountID: l.AccountID, Description: l.Description, Percent: l.Percent}
	}

	return shares
}

// Usable reports whether applying the rule would produce at least one line.
func (r *Rule) Usable() bool {
	return r != nil && len(r.Lines) > 0
}

func (r *Rule) validate() error {
	if strings.TrimSpace(r.MerchantName) == "" {
		return ErrMerchantName
	}

	if len(r.Lines) == 0 {
		return errors.Join(ErrInvalidRule, split.ErrEmpty)
	}

	for _, l := range r.Lines {
		if l.AccountID == uuid.Nil {
			return errors.Join(ErrInvalidRule, split.ErrMissingAccount)
		}

		if l.Percent.IsNegative() {
			return errors.Join(ErrInvalidRule, split.ErrNegativeShare)
		}
	}

	if err := split.CheckTotal(r.Shares()); err != nil {
		return errors.Join(ErrInvalidRule, err)
	}

	return nil
}
