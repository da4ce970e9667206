// Package suggestion proposes how an uncategorized transaction should be
// booked, based on the merchant it belongs to.
package suggestion

import (
	"github.com/google/uuid"

	"github.com/tallyhq/tally/internal/account"
	"github.com/tallyhq/tally/internal/category"
	"github.com/tallyhq/tally/internal/merchant"
	"github.com/tallyhq/tally/internal/transaction"
)

type Kind string

const (
	KindNone         Kind = "none"
	KindSplit        Kind = "split"
	KindAccount      Kind = "coa"
	KindMerchantOnly Kind = "merchant_only"
)

type Suggestion struct {
	Kind         Kind
	Merchant     *merchant.Merchant
	CategoryName string
	Account      *account.Account
	Reason       string
}

// MerchantName returns the suggested merchant's name, or "".
func (s Suggestion) MerchantName() string {
	if s.Merchant == nil {
		return ""
	}

	return s.Merchant.Name
}

// AccountID returns the suggested account, or nil for any kind other than
// KindAccount.
func (s Suggestion) AccountID() *uuid.UUID {
	if s.Kind != KindAccount || s.Account == nil {
		return nil
	}

	id := s.Account.ID

	return &id
}

// Actionable reports whether the suggestion can be applied on its own: it
// names an account and that account is not the Suspense placeholder.
func (s Suggestion) Actionable(chart *account.Chart) bool {
	if s.Kind != KindAccount || s.Account == nil {
		return false
	}

	return !chart.IsSuspense(s.Account.ID)
}

// Resolve picks the merchant linked to the transaction, or failing that the
// first directory merchant whose name or alias appears in the description,
// and follows its category to an account.
func Resolve(tx *transaction.Transaction, merchants []*merchant.Merchant, categories map[uuid.UUID]*category.Category, chart *account.Chart) Suggestion {
	m := linkedMerchant(tx, merchants)
	if m == nil {
		m = merchant.FindMatch(tx.Description, merchants)
	}

	if m == nil {
		return Suggestion{Kind: KindNone}
	}

	var cat *category.Category
	if m.CategoryID != nil {
		cat = categories[*m.CategoryID]
	}

	if cat == nil {
		return Suggestion{Kind: KindMerchantOnly, Merchant: m}
	}

	if cat.IsSplitEnabled {
		return Suggestion{Kind: KindSplit, Merchant: m, CategoryName: cat.Name}
	}

	if a := chart.MatchName(cat.Name); a != nil {
		return Suggestion{
			Kind:         KindAccount,
			Merchant:     m,
			CategoryName: cat.Name,
			Account:      a,
			Reason:       "Based on merchant: " + m.Name,
		}
	}

	return Suggestion{Kind: KindMerchantOnly, Merchant: m, CategoryName: cat.Name}
}

func linkedMerchant(tx *transaction.Transaction, merchants []*merchant.Merchant) *merchant.Merchant {
	if tx.MerchantID == nil {
		return nil
	}

	for _, m := range merchants {
		if m.ID == *tx.MerchantID {
			return m
		}
	}

	return nil
}
