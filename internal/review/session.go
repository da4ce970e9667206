package review

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/tallyhq/tally/internal/account"
	"github.com/tallyhq/tally/internal/split"
	"github.com/tallyhq/tally/internal/splitrule"
)

var (
	ErrItemNotFound   = errors.New("transaction is not in the review session")
	ErrUnknownAccount = errors.New("account is not in the chart of accounts")
	ErrNoSplit        = errors.New("transaction has no completed split")
	ErrNoMerchant     = errors.New("transaction has no known merchant")
)

// Session is the review state for one batch of transactions: the loaded
// items in display order, their pending decisions and the selection.
// A Session is not safe for concurrent use.
type Session struct {
	filter   Filter
	chart    *account.Chart
	items    []*Item
	byID     map[uuid.UUID]*Item
	selected map[uuid.UUID]struct{}
}

func newSession(filter Filter, chart *account.Chart, items []*Item) *Session {
	s := &Session{
		filter:   filter,
		chart:    chart,
		items:    items,
		byID:     make(map[uuid.UUID]*Item, len(items)),
		selected: make(map[uuid.UUID]struct{}),
	}

	for _, it := range items {
		s.byID[it.ID()] = it
	}

	return s
}

func (s *Session) Filter() Filter {
	return s.filter
}

func (s *Session) Chart() *account.Chart {
	return s.chart
}

func (s *Session) Items() []*Item {
	return s.items
}

func (s *Session) Item(id uuid.UUID) (*Item, bool) {
	it, ok := s.byID[id]
	return it, ok
}

func (s *Session) Len() int {
	return len(s.items)
}

func (s *Session) get(id uuid.UUID) (*Item, error) {
	it, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}

	return it, nil
}

// SetAccount records a manual account choice. It does not touch a completed
// split; a split-ready item is still applied as a split.
func (s *Session) SetAccount(id, accountID uuid.UUID) error {
	it, err := s.get(id)
	if err != nil {
		return err
	}

	if s.chart.ByID(accountID) == nil {
		return fmt.Errorf("%w: %s", ErrUnknownAccount, accountID)
	}

	it.ManualAccountID = &accountID

	return nil
}

func (s *Session) ClearAccount(id uuid.UUID) error {
	it, err := s.get(id)
	if err != nil {
		return err
	}

	it.ManualAccountID = nil

	return nil
}

// SetSplit validates sheet and stores it as the item's manual split.
func (s *Session) SetSplit(id uuid.UUID, sheet *split.Sheet) error {
	it, err := s.get(id)
	if err != nil {
		return err
	}

	shares, err := sheet.Shares()
	if err != nil {
		return err
	}

	it.Shares = shares
	it.SplitReady = true

	return nil
}

// SetShares stores already computed shares as the item's manual split.
func (s *Session) SetShares(id uuid.UUID, shares []split.Share) error {
	it, err := s.get(id)
	if err != nil {
		return err
	}

	if err := split.ValidateShares(shares); err != nil {
		return err
	}

	for _, sh := range shares {
		if s.chart.ByID(sh.AccountID) == nil {
			return fmt.Errorf("%w: %s", ErrUnknownAccount, sh.AccountID)
		}
	}

	it.Shares = shares
	it.SplitReady = true

	return nil
}

func (s *Session) ClearSplit(id uuid.UUID) error {
	it, err := s.get(id)
	if err != nil {
		return err
	}

	it.Shares = nil
	it.SplitReady = false

	return nil
}

// NewSheet starts a split for the item with the remainder on the Misc
// account. An existing manual split is loaded for re-editing.
func (s *Session) NewSheet(id uuid.UUID) (*split.Sheet, error) {
	it, err := s.get(id)
	if err != nil {
		return nil, err
	}

	var misc *uuid.UUID
	if m := s.chart.Misc(); m != nil {
		misc = &m.ID
	}

	if !it.SplitReady {
		return split.SheetFromLines(it.Transaction.Amount, nil, misc), nil
	}

	lines := split.Allocate(it.ID(), it.Transaction.Amount, it.Shares)

	return split.SheetFromLines(it.Transaction.Amount, lines, misc), nil
}

func (s *Session) Select(ids ...uuid.UUID) {
	for _, id := range ids {
		if _, ok := s.byID[id]; ok {
			s.selected[id] = struct{}{}
		}
	}
}

func (s *Session) Deselect(ids ...uuid.UUID) {
	for _, id := range ids {
		delete(s.selected, id)
	}
}

func (s *Session) IsSelected(id uuid.UUID) bool {
	_, ok := s.selected[id]
	return ok
}

// Selected returns the selected IDs in display order.
func (s *Session) Selected() []uuid.UUID {
	var ids []uuid.UUID

	for _, it := range s.items {
		if _, ok := s.selected[it.ID()]; ok {
			ids = append(ids, it.ID())
		}
	}

	return ids
}

// Eligible returns the items bulk apply can act on, in display order.
func (s *Session) Eligible() []*Item {
	var out []*Item

	for _, it := range s.items {
		if it.Eligible(s.chart) {
			out = append(out, it)
		}
	}

	return out
}

// SelectEligible selects every eligible item and returns how many there are.
func (s *Session) SelectEligible() int {
	eligible := s.Eligible()
	for _, it := range eligible {
		s.selected[it.ID()] = struct{}{}
	}

	return len(eligible)
}

// annotate attaches rule to every item of the same merchant that has no
// manual split and no rule yet.
func (s *Session) annotate(rule *splitrule.Rule) int {
	name := strings.ToLower(strings.TrimSpace(rule.MerchantName))
	n := 0

	for _, it := range s.items {
		if it.SplitReady || it.DefaultRule != nil {
			continue
		}

		if strings.ToLower(it.MerchantName()) != name {
			continue
		}

		it.DefaultRule = rule
		n++
	}

	return n
}

func (s *Session) remove(id uuid.UUID) {
	delete(s.byID, id)
	delete(s.selected, id)

	for i, it := range s.items {
		if it.ID() == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return
		}
	}
}
