package account_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/tallyhq/tally/internal/account"
)

func TestService_Create(t *testing.T) {
	type args struct {
		params account.CreateParams
	}

	type testCase struct {
		name      string
		args      args
		setupMock func(m *account.MockRepository)
		wantErr   error
	}

	tests := []testCase{
		{
			name: "Success",
			args: args{params: account.CreateParams{Code: " 5100 ", Name: " Groceries ", Type: account.TypeExpense}},
			setupMock: func(m *account.MockRepository) {
				m.EXPECT().
					CreateAccount(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, a *account.Account) error {
						assert.Equal(t, "5100", a.Code)
						assert.Equal(t, "Groceries", a.Name)
						a.ID = uuid.New()

						return nil
					})
			},
		},
		{
			name:    "InvalidType",
			args:    args{params: account.CreateParams{Name: "Groceries", Type: "revenue"}},
			wantErr: account.ErrInvalidType,
		},
		{
			name:    "MissingName",
			args:    args{params: account.CreateParams{Type: account.TypeExpense}},
			wantErr: account.ErrNameEmpty,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)

			repo := account.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			svc := account.NewService(repo, account.DefaultDesignation)
			got, err := svc.Create(context.Background(), tt.args.params)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)

				return
			}

			require.NoError(t, err)
			assert.NotEqual(t, uuid.Nil, got.ID)
		})
	}
}

func TestService_Chart(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := account.NewMockRepository(ctrl)

	suspense := &account.Account{ID: uuid.New(), Code: "9990", Name: "Suspense", Type: account.TypeEquity}
	misc := &account.Account{ID: uuid.New(), Code: "9999", Name: "Misc", Type: account.TypeExpense}

	repo.EXPECT().ListAccounts(gomock.Any()).Return([]*account.Account{suspense, misc}, nil)

	chart, err := account.NewService(repo, account.DefaultDesignation).Chart(context.Background())
	require.NoError(t, err)
	assert.Equal(t, suspense, chart.Suspense())
	assert.Equal(t, misc, chart.Misc())
}

func TestService_Chart_RepoError(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := account.NewMockRepository(ctrl)

	repo.EXPECT().ListAccounts(gomock.Any()).Return(nil, errors.New("db down"))

	_, err := account.NewService(repo, account.DefaultDesignation).Chart(context.Background())
	assert.ErrorContains(t, err, "loading chart of accounts")
}
