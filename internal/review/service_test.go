package review_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallyhq/tally/internal/review"
	"github.com/tallyhq/tally/internal/split"
	"github.com/tallyhq/tally/internal/splitrule"
	"github.com/tallyhq/tally/internal/suggestion"
	"github.com/tallyhq/tally/internal/transaction"
)

func pct(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func manualSplit(t *testing.T, sess *review.Session, id, accountID uuid.UUID, percent int64) {
	t.Helper()

	sheet, err := sess.NewSheet(id)
	require.NoError(t, err)

	row := sheet.AddRow("", &accountID)
	require.NoError(t, sheet.SetPercent(row, pct(percent)))
	require.NoError(t, sess.SetSplit(id, sheet))
}

func TestService_Open(t *testing.T) {
	groceries := newTx("WFM #1022 TORONTO", -4520)
	netflix := newTx("NETFLIX.COM", -1599)
	unknown := newTx("E-TRANSFER 8841", -10000)

	w := newWorld(groceries, netflix, unknown)
	w.rules.rules = []*splitrule.Rule{{ID: uuid.New(), MerchantName: "netflix", Lines: []splitrule.Line{{AccountID: w.entertainment.ID, Percent: pct(100)}}}}

	sess, err := review.NewService(w.deps, nil).Open(context.Background(), review.Filter{})
	require.NoError(t, err)
	require.Equal(t, 3, sess.Len())

	it, ok := sess.Item(groceries.ID)
	require.True(t, ok)
	assert.Equal(t, suggestion.KindAccount, it.Suggestion.Kind)
	assert.Equal(t, w.groceries, it.Suggestion.Account)
	assert.Nil(t, it.DefaultRule)

	it, _ = sess.Item(netflix.ID)
	assert.Equal(t, suggestion.KindSplit, it.Suggestion.Kind)
	require.NotNil(t, it.DefaultRule)
	assert.Equal(t, review.PathDefaultRule, it.Path(sess.Chart()))

	it, _ = sess.Item(unknown.ID)
	assert.Equal(t, suggestion.KindNone, it.Suggestion.Kind)
	assert.False(t, it.Eligible(sess.Chart()))

	assert.Equal(t, 2, sess.SelectEligible())
	assert.Equal(t, []uuid.UUID{groceries.ID, netflix.ID}, sess.Selected())
}

func TestService_Apply_DefaultRuleSplitsNetflix(t *testing.T) {
	tx := newTx("NETFLIX.COM", -1599)
	w := newWorld(tx)
	w.rules.rules = []*splitrule.Rule{{ID: uuid.New(), MerchantName: "Netflix", Lines: []splitrule.Line{{AccountID: w.entertainment.ID, Percent: pct(100)}}}}

	svc := review.NewService(w.deps, nil)

	sess, err := svc.Open(context.Background(), review.Filter{})
	require.NoError(t, err)

	report, err := svc.Apply(context.Background(), sess, []uuid.UUID{tx.ID}, review.ApplyOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 1, report.ByPath[review.PathDefaultRule])

	lines := w.splits.lines[tx.ID]
	require.Len(t, lines, 1)
	assert.Equal(t, w.entertainment.ID, lines[0].AccountID)
	assert.True(t, lines[0].Percent.Equal(pct(100)))
	assert.Equal(t, int64(1599), lines[0].Amount)
	assert.Equal(t, []uuid.UUID{tx.ID}, w.txs.splitIDs)
	assert.Empty(t, w.rules.added)
	assert.Equal(t, 0, sess.Len())
}

func TestService_Apply_ManualAccountBeatsDefaultRule(t *testing.T) {
	tx := newTx("NETFLIX.COM", -1599)
	w := newWorld(tx)
	w.rules.rules = []*splitrule.Rule{{ID: uuid.New(), MerchantName: "Netflix", Lines: []splitrule.Line{{AccountID: w.entertainment.ID, Percent: pct(100)}}}}

	svc := review.NewService(w.deps, nil)

	sess, err := svc.Open(context.Background(), review.Filter{})
	require.NoError(t, err)
	require.NoError(t, sess.SetAccount(tx.ID, w.dining.ID))

	it, _ := sess.Item(tx.ID)
	assert.False(t, it.ShouldSplit(sess.Chart()))

	report, err := svc.Apply(context.Background(), sess, []uuid.UUID{tx.ID}, review.ApplyOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 1, report.ByPath[review.PathManualAccount])
	assert.Equal(t, w.dining.ID, w.txs.categorized[tx.ID])
	assert.Empty(t, w.splits.lines)
	assert.Equal(t, 0, sess.Len())
}

func TestSession_ManualDecisions(t *testing.T) {
	tx := newTx("BISTRO 22", -2000)
	w := newWorld(tx)

	sess, err := review.NewService(w.deps, nil).Open(context.Background(), review.Filter{})
	require.NoError(t, err)

	it, _ := sess.Item(tx.ID)
	assert.False(t, it.Eligible(sess.Chart()))

	require.NoError(t, sess.SetAccount(tx.ID, w.suspense.ID))
	assert.False(t, it.Eligible(sess.Chart()), "suspense is not a real choice")

	require.NoError(t, sess.SetAccount(tx.ID, w.dining.ID))
	assert.True(t, it.Eligible(sess.Chart()))

	require.NoError(t, sess.ClearAccount(tx.ID))
	manualSplit(t, sess, tx.ID, w.dining.ID, 30)
	assert.Equal(t, review.PathManualSplit, it.Path(sess.Chart()))

	sheet, err := sess.NewSheet(tx.ID)
	require.NoError(t, err)
	require.Len(t, sheet.Rows(), 1)
	assert.True(t, sheet.Remainder().Percent.Equal(pct(70)))

	require.NoError(t, sess.ClearSplit(tx.ID))
	assert.False(t, it.SplitReady)
}

func TestService_Apply_SuspensePickIsNoChoice(t *testing.T) {
	type testCase struct {
		description string
		withRule    bool
		wantPath    review.Path
		wantSkipped bool
		check       func(t *testing.T, w *world, tx *transaction.Transaction)
	}

	tests := map[string]testCase{
		"suggestion still applies": {
			description: "WFM #12",
			wantPath:    review.PathSuggestedAccount,
			check: func(t *testing.T, w *world, tx *transaction.Transaction) {
				assert.Equal(t, w.groceries.ID, w.txs.categorized[tx.ID])
			},
		},
		"default rule still applies": {
			description: "NETFLIX.COM",
			withRule:    true,
			wantPath:    review.PathDefaultRule,
			check: func(t *testing.T, w *world, tx *transaction.Transaction) {
				assert.Equal(t, []uuid.UUID{tx.ID}, w.txs.splitIDs)
				assert.Empty(t, w.txs.categorized)
			},
		},
		"nothing else to apply": {
			description: "BISTRO 22",
			wantSkipped: true,
			check: func(t *testing.T, w *world, _ *transaction.Transaction) {
				assert.Empty(t, w.txs.categorized)
			},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			tx := newTx(tc.description, -1599)
			w := newWorld(tx)

			if tc.withRule {
				w.rules.rules = []*splitrule.Rule{{ID: uuid.New(), MerchantName: "Netflix", Lines: []splitrule.Line{{AccountID: w.entertainment.ID, Percent: pct(100)}}}}
			}

			svc := review.NewService(w.deps, nil)

			sess, err := svc.Open(context.Background(), review.Filter{})
			require.NoError(t, err)
			require.NoError(t, sess.SetAccount(tx.ID, w.suspense.ID))

			report, err := svc.Apply(context.Background(), sess, []uuid.UUID{tx.ID}, review.ApplyOptions{})
			require.NoError(t, err)

			if tc.wantSkipped {
				assert.Equal(t, 1, report.Skipped)
				assert.Equal(t, 0, report.Updated)
			} else {
				assert.Equal(t, 1, report.Updated)
				assert.Equal(t, 1, report.ByPath[tc.wantPath])
			}

			assert.NotContains(t, w.txs.categorized, w.suspense.ID)
			tc.check(t, w, tx)
		})
	}
}

func TestService_Apply_RecategorizesSplitTransaction(t *testing.T) {
	t.Run("drops split lines first", func(t *testing.T) {
		tx := newTx("BISTRO 22", -2000)
		tx.Status = transaction.StatusSplit

		w := newWorld(tx)
		svc := review.NewService(w.deps, nil)

		sess, err := svc.Open(context.Background(), review.Filter{Status: new(transaction.StatusSplit)})
		require.NoError(t, err)
		require.NoError(t, sess.SetAccount(tx.ID, w.dining.ID))

		report, err := svc.Apply(context.Background(), sess, []uuid.UUID{tx.ID}, review.ApplyOptions{})
		require.NoError(t, err)
		assert.Equal(t, 1, report.Updated)
		assert.Equal(t, []uuid.UUID{tx.ID}, w.splits.deleted)
		assert.Equal(t, w.dining.ID, w.txs.categorized[tx.ID])
	})

	t.Run("uncategorized transactions keep no split state", func(t *testing.T) {
		tx := newTx("BISTRO 22", -2000)
		w := newWorld(tx)
		svc := review.NewService(w.deps, nil)

		sess, err := svc.Open(context.Background(), review.Filter{})
		require.NoError(t, err)
		require.NoError(t, sess.SetAccount(tx.ID, w.dining.ID))

		_, err = svc.Apply(context.Background(), sess, []uuid.UUID{tx.ID}, review.ApplyOptions{})
		require.NoError(t, err)
		assert.Empty(t, w.splits.deleted)
	})

	t.Run("delete failure fails the item", func(t *testing.T) {
		tx := newTx("BISTRO 22", -2000)
		tx.Status = transaction.StatusSplit

		w := newWorld(tx)
		w.splits.deleteErr = errBoom
		svc := review.NewService(w.deps, nil)

		sess, err := svc.Open(context.Background(), review.Filter{})
		require.NoError(t, err)
		require.NoError(t, sess.SetAccount(tx.ID, w.dining.ID))

		report, err := svc.Apply(context.Background(), sess, []uuid.UUID{tx.ID}, review.ApplyOptions{})
		require.NoError(t, err)
		assert.Equal(t, 1, report.Failed)
		require.Len(t, report.Failures, 1)
		assert.ErrorIs(t, report.Failures[0].Err, errBoom)
		assert.Empty(t, w.txs.categorized)
		assert.Equal(t, 1, sess.Len())
	})
}

func TestSession_SetShares(t *testing.T) {
	type testCase struct {
		shares  func(w *world) []split.Share
		wantErr error
	}

	tests := map[string]testCase{
		"complete split": {
			shares: func(w *world) []split.Share {
				return []split.Share{
					{AccountID: w.dining.ID, Percent: pct(60)},
					{AccountID: w.misc.ID, Percent: pct(40)},
				}
			},
		},
		"short of one hundred percent": {
			shares: func(w *world) []split.Share {
				return []split.Share{{AccountID: w.dining.ID, Percent: pct(60)}}
			},
			wantErr: split.ErrPercentTotal,
		},
		"account outside the chart": {
			shares: func(w *world) []split.Share {
				return []split.Share{{AccountID: uuid.New(), Percent: pct(100)}}
			},
			wantErr: review.ErrUnknownAccount,
		},
		"no lines": {
			shares:  func(*world) []split.Share { return nil },
			wantErr: split.ErrEmpty,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			tx := newTx("BISTRO", -2000)
			w := newWorld(tx)
			svc := review.NewService(w.deps, nil)

			sess, err := svc.Open(context.Background(), review.Filter{})
			require.NoError(t, err)

			err = sess.SetShares(tx.ID, tc.shares(w))
			it, _ := sess.Item(tx.ID)

			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				assert.False(t, it.SplitReady)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, review.PathManualSplit, it.Path(sess.Chart()))

			report, err := svc.Apply(context.Background(), sess, []uuid.UUID{tx.ID}, review.ApplyOptions{})
			require.NoError(t, err)
			assert.Equal(t, 1, report.Updated)

			lines := w.splits.lines[tx.ID]
			require.Len(t, lines, 2)
			assert.Equal(t, int64(1200), lines[0].Amount)
			assert.Equal(t, int64(800), lines[1].Amount)
			assert.Contains(t, w.txs.splitIDs, tx.ID)
		})
	}
}
