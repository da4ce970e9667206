package review

import (
	"github.com/google/uuid"

	"github.com/tallyhq/tally/internal/account"
	"github.com/tallyhq/tally/internal/split"
	"github.com/tallyhq/tally/internal/splitrule"
	"github.com/tallyhq/tally/internal/suggestion"
	"github.com/tallyhq/tally/internal/transaction"
)

// Path is how an item was (or would be) applied.
type Path string

const (
	PathManualSplit      Path = "manual_split"
	PathManualAccount    Path = "manual_coa"
	PathDefaultRule      Path = "default_rule"
	PathSuggestedAccount Path = "suggested_coa"
)

// Item is one transaction under review together with the user's pending
// decisions for it.
type Item struct {
	Transaction *transaction.Transaction
	Suggestion  suggestion.Suggestion

	// ManualAccountID is the account the user picked for this transaction.
	ManualAccountID *uuid.UUID

	// Shares holds a completed manual split; SplitReady is set with it.
	Shares     []split.Share
	SplitReady bool

	// DefaultRule is the merchant's saved split, if any.
	DefaultRule *splitrule.Rule
}

func (i *Item) ID() uuid.UUID {
	return i.Transaction.ID
}

// MerchantName is the linked or suggested merchant, or "".
func (i *Item) MerchantName() string {
	return i.Suggestion.MerchantName()
}

// hasManualAccount reports whether the user picked a real account. Picking
// Suspense counts as no choice.
func (i *Item) hasManualAccount(chart *account.Chart) bool {
	return i.ManualAccountID != nil && !chart.IsSuspense(*i.ManualAccountID)
}

// Eligible reports whether bulk apply can act on the item: it has a manual
// split, a non-Suspense manual account, a default rule with no manual
// override, or an actionable account suggestion.
func (i *Item) Eligible(chart *account.Chart) bool {
	switch {
	case i.SplitReady:
		return true
	case i.hasManualAccount(chart):
		return true
	case i.DefaultRule.Usable():
		return true
	default:
		return i.Suggestion.Actionable(chart)
	}
}

// ShouldSplit reports whether applying the item writes split lines. A manual
// account always beats a default rule.
func (i *Item) ShouldSplit(chart *account.Chart) bool {
	return i.SplitReady || (!i.hasManualAccount(chart) && i.DefaultRule.Usable())
}

// Path reports which decision applying the item would use.
func (i *Item) Path(chart *account.Chart) Path {
	switch {
	case i.SplitReady:
		return PathManualSplit
	case i.ShouldSplit(chart):
		return PathDefaultRule
	case i.hasManualAccount(chart):
		return PathManualAccount
	default:
		return PathSuggestedAccount
	}
}

func (i *Item) shares() []split.Share {
	if i.SplitReady {
		return i.Shares
	}

	return i.DefaultRule.Shares()
}

func (i *Item) accountID(chart *account.Chart) *uuid.UUID {
	if i.hasManualAccount(chart) {
		return i.ManualAccountID
	}

	if !i.Suggestion.Actionable(chart) {
		return nil
	}

	return i.Suggestion.AccountID()
}
