package splitrule_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/tallyhq/tally/internal/split"
	"github.com/tallyhq/tally/internal/splitrule"
)

func pct(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func TestService_GetByMerchantName(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := splitrule.NewMockRepository(ctrl)
	svc := splitrule.NewService(repo)

	rule := &splitrule.Rule{ID: uuid.New(), MerchantName: "Netflix"}

	repo.EXPECT().FindByMerchantName(gomock.Any(), "Netflix").Return(rule, nil)
	repo.EXPECT().FindByMerchantName(gomock.Any(), "Nobody").Return(nil, splitrule.ErrNotFound)
	repo.EXPECT().FindByMerchantName(gomock.Any(), "Broken").Return(nil, errors.New("db down"))

	got, err := svc.GetByMerchantName(context.Background(), "  Netflix ")
	require.NoError(t, err)
	assert.Equal(t, rule, got)

	got, err = svc.GetByMerchantName(context.Background(), "Nobody")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = svc.GetByMerchantName(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = svc.GetByMerchantName(context.Background(), "Broken")
	assert.EqualError(t, err, "finding split rule: db down")
}

func TestService_Add(t *testing.T) {
	entertainment := uuid.New()
	misc := uuid.New()

	type args struct {
		rule *splitrule.Rule
	}

	type testCase struct {
		name    string
		args    args
		mock    func(repo *splitrule.MockRepository)
		wantErr error
	}

	valid := func() *splitrule.Rule {
		return &splitrule.Rule{
			MerchantName: "Netflix",
			Lines: []splitrule.Line{
				{AccountID: entertainment, Percent: pct(60)},
				{AccountID: misc, Percent: pct(40)},
			},
		}
	}

	tests := []testCase{
		{
			name: "Success",
			args: args{rule: valid()},
			mock: func(repo *splitrule.MockRepository) {
				repo.EXPECT().FindByMerchantName(gomock.Any(), "Netflix").Return(nil, splitrule.ErrNotFound)
				repo.EXPECT().CreateRule(gomock.Any(), gomock.Any()).Return(nil)
			},
		},
		{
			name: "AlreadyExists",
			args: args{rule: valid()},
			mock: func(repo *splitrule.MockRepository) {
				repo.EXPECT().FindByMerchantName(gomock.Any(), "Netflix").Return(&splitrule.Rule{}, nil)
			},
			wantErr: splitrule.ErrRuleExists,
		},
		{
			name: "DoesNotAddUp",
			args: args{rule: &splitrule.Rule{
				MerchantName: "Netflix",
				Lines:        []splitrule.Line{{AccountID: entertainment, Percent: pct(60)}},
			}},
			mock:    func(*splitrule.MockRepository) {},
			wantErr: splitrule.ErrInvalidRule,
		},
		{
			name: "MissingAccount",
			args: args{rule: &splitrule.Rule{
				MerchantName: "Netflix",
				Lines:        []splitrule.Line{{Percent: pct(100)}},
			}},
			mock:    func(*splitrule.MockRepository) {},
			wantErr: split.ErrMissingAccount,
		},
		{
			name:    "NoMerchant",
			args:    args{rule: &splitrule.Rule{Lines: []splitrule.Line{{AccountID: misc, Percent: pct(100)}}}},
			mock:    func(*splitrule.MockRepository) {},
			wantErr: splitrule.ErrMerchantName,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			repo := splitrule.NewMockRepository(ctrl)
			tc.mock(repo)

			err := splitrule.NewService(repo).Add(context.Background(), tc.args.rule)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}

			assert.NoError(t, err)
		})
	}
}

func TestService_Replace(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := splitrule.NewMockRepository(ctrl)
	svc := splitrule.NewService(repo)

	id := uuid.New()
	account := uuid.New()

	repo.EXPECT().GetRule(gomock.Any(), id).Return(&splitrule.Rule{ID: id, MerchantName: "Netflix"}, nil)
	repo.EXPECT().UpdateRule(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, r *splitrule.Rule) error {
		assert.Len(t, r.Lines, 1)
		return nil
	})

	got, err := svc.Replace(context.Background(), id, []splitrule.Line{{AccountID: account, Percent: pct(100)}})
	require.NoError(t, err)
	assert.Equal(t, "Netflix", got.MerchantName)
}

func TestFromShares(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	shares := []split.Share{
		{AccountID: a, Description: "Streaming", Percent: pct(60)},
		{AccountID: b, Description: "Remainder", Percent: pct(40)},
	}

	r := splitrule.FromShares(" Netflix ", shares)
	assert.Equal(t, "Netflix", r.MerchantName)
	assert.True(t, r.Usable())
	assert.Equal(t, shares, r.Shares())
}

func TestByMerchant(t *testing.T) {
	r := &splitrule.Rule{MerchantName: "Netflix"}

	idx := splitrule.ByMerchant([]*splitrule.Rule{r})
	assert.Same(t, r, idx["netflix"])
}
