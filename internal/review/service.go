// Package review drives categorization of imported transactions: it loads a
// batch into a Session, lets the caller record decisions per transaction and
// applies them one transaction at a time.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tallyhq/tally/internal/account"
	"github.com/tallyhq/tally/internal/category"
	"github.com/tallyhq/tally/internal/merchant"
	"github.com/tallyhq/tally/internal/split"
	"github.com/tallyhq/tally/internal/splitrule"
	"github.com/tallyhq/tally/internal/suggestion"
	"github.com/tallyhq/tally/internal/transaction"
)

type Transactions interface {
	List(ctx context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error)
	Categorize(ctx context.Context, id, accountID uuid.UUID) error
	MarkSplit(ctx context.Context, id uuid.UUID) error
}

type Merchants interface {
	List(ctx context.Context) ([]*merchant.Merchant, error)
}

type Categories interface {
	List(ctx context.Context) ([]*category.Category, error)
}

type Charts interface {
	Chart(ctx context.Context) (*account.Chart, error)
}

type Splits interface {
	Replace(ctx context.Context, transactionID uuid.UUID, amountCents int64, shares []split.Share) ([]*split.Line, error)
	Delete(ctx context.Context, transactionID uuid.UUID) error
}

type Rules interface {
	List(ctx context.Context) ([]*splitrule.Rule, error)
	GetByMerchantName(ctx context.Context, name string) (*splitrule.Rule, error)
	Add(ctx context.Context, r *splitrule.Rule) error
}

type Deps struct {
	Transactions Transactions
	Merchants    Merchants
	Categories   Categories
	Charts       Charts
	Splits       Splits
	Rules        Rules
}

type Service struct {
	deps    Deps
	metrics *Metrics
}

// NewService builds the orchestrator. metrics may be nil.
func NewService(deps Deps, metrics *Metrics) *Service {
	return &Service{deps: deps, metrics: metrics}
}

type Filter struct {
	BankAccountID *uuid.UUID
	Status        *transaction.Status
	StartDate     *time.Time
	EndDate       *time.Time
}

// Open loads the transactions matching filter, uncategorized ones by
// default, and computes a suggestion and default rule for each.
func (s *Service) Open(ctx context.Context, filter Filter) (*Session, error) {
	if filter.Status == nil {
		filter.Status = new(transaction.StatusUncategorized)
	}

	txs, err := s.deps.Transactions.List(ctx, transaction.ListFilter{
		Status:        filter.Status,
		BankAccountID: filter.BankAccountID,
		StartDate:     filter.StartDate,
		EndDate:       filter.EndDate,
	})
	if err != nil {
		return nil, fmt.Errorf("loading transactions: %w", err)
	}

	merchants, err := s.deps.Merchants.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading merchants: %w", err)
	}

	categories, err := s.deps.Categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading categories: %w", err)
	}

	chart, err := s.deps.Charts.Chart(ctx)
	if err != nil {
		return nil, err
	}

	rules, err := s.deps.Rules.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading split rules: %w", err)
	}

	catIdx := category.Index(categories)
	ruleIdx := splitrule.ByMerchant(rules)

	items := make([]*Item, len(txs))
	for i, tx := range txs {
		it := &Item{
			Transaction: tx,
			Suggestion:  suggestion.Resolve(tx, merchants, catIdx, chart),
		}

		if name := it.MerchantName(); name != "" {
			it.DefaultRule = ruleIdx[lower(name)]
		}

		items[i] = it
	}

	return newSession(filter, chart, items), nil
}

// SaveDefaultRule stores the item's manual split as its merchant's default
// rule and attaches the rule to the other loaded items of that merchant.
func (s *Service) SaveDefaultRule(ctx context.Context, sess *Session, id uuid.UUID) (*splitrule.Rule, error) {
	it, err := sess.get(id)
	if err != nil {
		return nil, err
	}

	if !it.SplitReady {
		return nil, ErrNoSplit
	}

	name := it.MerchantName()
	if name == "" {
		return nil, ErrNoMerchant
	}

	rule := splitrule.FromShares(name, it.Shares)
	if err := s.deps.Rules.Add(ctx, rule); err != nil {
		return nil, err
	}

	n := sess.annotate(rule)
	slog.Info("default split rule attached", "merchant", name, "transactions", n)

	return rule, nil
}

type ApplyOptions struct {
	// Progress is called after each processed item.
	Progress func(done, total int)
	// SaveRules creates a merchant rule from a manual split when the
	// merchant has none yet.
	SaveRules bool
}

type Failure struct {
	TransactionID uuid.UUID
	Path          Path
	Err           error
}

type Report struct {
	Updated  int
	Failed   int
	Skipped  int
	ByPath   map[Path]int
	Failures []Failure
}

// Apply persists the decisions for ids (the session selection when ids is
// empty). Items are processed sequentially; a failing item is recorded and
// the batch carries on. Applied items leave the session. Cancelling ctx
// stops the batch before the next item.
func (s *Service) Apply(ctx context.Context, sess *Session, ids []uuid.UUID, opts ApplyOptions) (*Report, error) {
	start := time.Now()
	defer s.metrics.observe(start)

	if len(ids) == 0 {
		ids = sess.Selected()
	}

	report := &Report{ByPath: make(map[Path]int)}

	var queue []*Item

	for _, id := range ids {
		it, ok := sess.Item(id)
		if !ok || !it.Eligible(sess.chart) {
			report.Skipped++
			continue
		}

		queue = append(queue, it)
	}

	for done, it := range queue {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("bulk apply interrupted after %d of %d: %w", done, len(queue), err)
		}

		path := it.Path(sess.chart)

		if err := s.applyItem(ctx, sess.chart, it, opts); err != nil {
			report.Failed++
			report.Failures = append(report.Failures, Failure{TransactionID: it.ID(), Path: path, Err: err})
			s.metrics.item(path, outcomeFailed)

			slog.Error("failed to apply transaction", "transaction_id", it.ID(), "path", path, "error", err)
		} else {
			report.Updated++
			report.ByPath[path]++
			s.metrics.item(path, outcomeUpdated)

			sess.remove(it.ID())
		}

		if opts.Progress != nil {
			opts.Progress(done+1, len(queue))
		}
	}

	slog.Info("bulk apply finished", "updated", report.Updated, "failed", report.Failed, "skipped", report.Skipped)

	return report, nil
}

func (s *Service) applyItem(ctx context.Context, chart *account.Chart, it *Item, opts ApplyOptions) error {
	tx := it.Transaction

	if !it.ShouldSplit(chart) {
		accountID := it.accountID(chart)
		if accountID == nil {
			return errors.New("no account to apply")
		}

		// A single account replaces any earlier split.
		if tx.Status == transaction.StatusSplit {
			if err := s.deps.Splits.Delete(ctx, tx.ID); err != nil {
				return fmt.Errorf("removing split lines: %w", err)
			}
		}

		return s.deps.Transactions.Categorize(ctx, tx.ID, *accountID)
	}

	if _, err := s.deps.Splits.Replace(ctx, tx.ID, tx.Amount, it.shares()); err != nil {
		return err
	}

	if err := s.deps.Transactions.MarkSplit(ctx, tx.ID); err != nil {
		return err
	}

	if it.SplitReady && opts.SaveRules {
		s.ensureRule(ctx, it)
	}

	return nil
}

// ensureRule creates a rule from a manual split when the merchant has none.
// Failures are logged and never fail the item.
func (s *Service) ensureRule(ctx context.Context, it *Item) {
	name := it.MerchantName()
	if name == "" {
		return
	}

	existing, err := s.deps.Rules.GetByMerchantName(ctx, name)
	if err != nil {
		slog.Error("failed to look up split rule", "merchant", name, "error", err)
		return
	}

	if existing != nil {
		return
	}

	if err := s.deps.Rules.Add(ctx, splitrule.FromShares(name, it.Shares)); err != nil && !errors.Is(err, splitrule.ErrRuleExists) {
		slog.Error("failed to create split rule", "merchant", name, "transaction_id", it.ID(), "error", err)
	}
}
