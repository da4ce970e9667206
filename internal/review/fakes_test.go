package review_test

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/tallyhq/tally/internal/account"
	"github.com/tallyhq/tally/internal/category"
	"github.com/tallyhq/tally/internal/merchant"
	"github.com/tallyhq/tally/internal/review"
	"github.com/tallyhq/tally/internal/split"
	"github.com/tallyhq/tally/internal/splitrule"
	"github.com/tallyhq/tally/internal/transaction"
)

type fakeTransactions struct {
	txs         []*transaction.Transaction
	categorized map[uuid.UUID]uuid.UUID
	splitIDs    []uuid.UUID
	failOn      map[uuid.UUID]error
}

func (f *fakeTransactions) List(_ context.Context, _ transaction.ListFilter) ([]*transaction.Transaction, error) {
	return f.txs, nil
}

func (f *fakeTransactions) Categorize(_ context.Context, id, accountID uuid.UUID) error {
	if err := f.failOn[id]; err != nil {
		return err
	}

	f.categorized[id] = accountID

	return nil
}

func (f *fakeTransactions) MarkSplit(_ context.Context, id uuid.UUID) error {
	if err := f.failOn[id]; err != nil {
		return err
	}

	f.splitIDs = append(f.splitIDs, id)

	return nil
}

type fakeMerchants []*merchant.Merchant

func (f fakeMerchants) List(context.Context) ([]*merchant.Merchant, error) { return f, nil }

type fakeCategories []*category.Category

func (f fakeCategories) List(context.Context) ([]*category.Category, error) { return f, nil }

type fakeCharts struct{ chart *account.Chart }

func (f fakeCharts) Chart(context.Context) (*account.Chart, error) { return f.chart, nil }

type fakeSplits struct {
	lines     map[uuid.UUID][]*split.Line
	failOn    map[uuid.UUID]error
	deleted   []uuid.UUID
	deleteErr error
}

func (f *fakeSplits) Delete(_ context.Context, id uuid.UUID) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}

	delete(f.lines, id)
	f.deleted = append(f.deleted, id)

	return nil
}

func (f *fakeSplits) Replace(_ context.Context, id uuid.UUID, amount int64, shares []split.Share) ([]*split.Line, error) {
	if err := f.failOn[id]; err != nil {
		return nil, err
	}

	if err := split.CheckTotal(shares); err != nil {
		return nil, err
	}

	lines := split.Allocate(id, amount, shares)
	f.lines[id] = lines

	return lines, nil
}

type fakeRules struct {
	rules  []*splitrule.Rule
	added  []*splitrule.Rule
	addErr error
}

func (f *fakeRules) List(context.Context) ([]*splitrule.Rule, error) {
	return f.rules, nil
}

func (f *fakeRules) GetByMerchantName(_ context.Context, name string) (*splitrule.Rule, error) {
	for _, r := range f.rules {
		if strings.EqualFold(r.MerchantName, name) {
			return r, nil
		}
	}

	return nil, nil
}

func (f *fakeRules) Add(_ context.Context, r *splitrule.Rule) error {
	if f.addErr != nil {
		return f.addErr
	}

	if existing, _ := f.GetByMerchantName(context.Background(), r.MerchantName); existing != nil {
		return splitrule.ErrRuleExists
	}

	r.ID = uuid.New()
	f.rules = append(f.rules, r)
	f.added = append(f.added, r)

	return nil
}

var errBoom = errors.New("boom")

// world is a small ledger shared by the review tests.
type world struct {
	entertainment *account.Account
	groceries     *account.Account
	dining        *account.Account
	suspense      *account.Account
	misc          *account.Account

	netflix   *merchant.Merchant
	wholefood *merchant.Merchant
	bistro    *merchant.Merchant

	txs    *fakeTransactions
	splits *fakeSplits
	rules  *fakeRules
	deps   review.Deps
}

func newWorld(txs ...*transaction.Transaction) *world {
	w := &world{
		entertainment: &account.Account{ID: uuid.New(), Code: "6100", Name: "Entertainment"},
		groceries:     &account.Account{ID: uuid.New(), Code: "5100", Name: "Groceries"},
		dining:        &account.Account{ID: uuid.New(), Code: "5200", Name: "Dining"},
		suspense:      &account.Account{ID: uuid.New(), Code: "9990", Name: "Suspense"},
		misc:          &account.Account{ID: uuid.New(), Code: "9999", Name: "Misc"},
	}

	groceriesCat := &category.Category{ID: uuid.New(), Name: "Groceries"}
	streamingCat := &category.Category{ID: uuid.New(), Name: "Streaming", IsSplitEnabled: true}

	w.netflix = &merchant.Merchant{ID: uuid.New(), Name: "Netflix", CategoryID: &streamingCat.ID}
	w.wholefood = &merchant.Merchant{ID: uuid.New(), Name: "Whole Foods", Aliases: []string{"WFM"}, CategoryID: &groceriesCat.ID}
	w.bistro = &merchant.Merchant{ID: uuid.New(), Name: "Bistro"}

	chart := account.NewChart([]*account.Account{w.entertainment, w.groceries, w.dining, w.suspense, w.misc}, account.DefaultDesignation)

	w.txs = &fakeTransactions{txs: txs, categorized: map[uuid.UUID]uuid.UUID{}, failOn: map[uuid.UUID]error{}}
	w.splits = &fakeSplits{lines: map[uuid.UUID][]*split.Line{}, failOn: map[uuid.UUID]error{}}
	w.rules = &fakeRules{}

	w.deps = review.Deps{
		Transactions: w.txs,
		Merchants:    fakeMerchants{w.netflix, w.wholefood, w.bistro},
		Categories:   fakeCategories{groceriesCat, streamingCat},
		Charts:       fakeCharts{chart: chart},
		Splits:       w.splits,
		Rules:        w.rules,
	}

	return w
}

func newTx(description string, cents int64) *transaction.Transaction {
	return &transaction.Transaction{
		ID:          uuid.New(),
		Description: description,
		Amount:      cents,
		Status:      transaction.StatusUncategorized,
	}
}
