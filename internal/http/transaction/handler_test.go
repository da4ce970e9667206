package transaction_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/tallyhq/tally/internal/account"
	txhttp "github.com/tallyhq/tally/internal/http/transaction"
	"github.com/tallyhq/tally/internal/merchant"
	"github.com/tallyhq/tally/internal/split"
	"github.com/tallyhq/tally/internal/transaction"
)

type mocks struct {
	tx       *transaction.MockRepository
	splits   *split.MockRepository
	accounts *account.MockRepository
}

var (
	suspenseID = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	foodID     = uuid.MustParse("00000000-0000-0000-0000-000000000002")
	miscID     = uuid.MustParse("00000000-0000-0000-0000-000000000003")

	chartAccounts = []*account.Account{
		{ID: suspenseID, Code: "9000", Name: "Suspense", Type: account.TypeAsset},
		{ID: foodID, Code: "6100", Name: "Food", Type: account.TypeExpense},
		{ID: miscID, Code: "misc", Name: "Misc", Type: account.TypeExpense},
	}
)

func newRouter(t *testing.T) (http.Handler, mocks) {
	t.Helper()

	ctrl := gomock.NewController(t)
	m := mocks{
		tx:       transaction.NewMockRepository(ctrl),
		splits:   split.NewMockRepository(ctrl),
		accounts: account.NewMockRepository(ctrl),
	}

	txSvc := transaction.NewService(m.tx)
	h := txhttp.NewHandler(
		txSvc,
		split.NewService(m.splits),
		merchant.NewService(merchant.NewMockRepository(ctrl), txSvc),
		account.NewService(m.accounts, account.DefaultDesignation),
	)

	r := chi.NewRouter()
	h.Routes(r)

	return r, m
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func TestHandler_SetAccount(t *testing.T) {
	txID := uuid.New()

	type testCase struct {
		body       string
		setup      func(m mocks)
		wantStatus int
	}

	tests := map[string]testCase{
		"categorizes to a regular account": {
			body: `{"account_id":"` + foodID.String() + `"}`,
			setup: func(m mocks) {
				m.tx.EXPECT().GetTransaction(gomock.Any(), txID).
					Return(&transaction.Transaction{ID: txID, Status: transaction.StatusUncategorized}, nil)
				m.tx.EXPECT().SetAccount(gomock.Any(), txID, &foodID, transaction.StatusCategorized).Return(nil)
			},
			wantStatus: http.StatusNoContent,
		},
		"suspense returns the transaction to review": {
			body: `{"account_id":"` + suspenseID.String() + `"}`,
			setup: func(m mocks) {
				m.tx.EXPECT().GetTransaction(gomock.Any(), txID).
					Return(&transaction.Transaction{ID: txID, Status: transaction.StatusCategorized}, nil)
				m.tx.EXPECT().SetAccount(gomock.Any(), txID, &suspenseID, transaction.StatusUncategorized).Return(nil)
			},
			wantStatus: http.StatusNoContent,
		},
		"drops split lines of a split transaction": {
			body: `{"account_id":"` + foodID.String() + `"}`,
			setup: func(m mocks) {
				m.tx.EXPECT().GetTransaction(gomock.Any(), txID).
					Return(&transaction.Transaction{ID: txID, Status: transaction.StatusSplit}, nil)

				gomock.InOrder(
					m.splits.EXPECT().DeleteByTransaction(gomock.Any(), txID).Return(nil),
					m.tx.EXPECT().SetAccount(gomock.Any(), txID, &foodID, transaction.StatusCategorized).Return(nil),
				)
			},
			wantStatus: http.StatusNoContent,
		},
		"unknown account": {
			body:       `{"account_id":"` + uuid.NewString() + `"}`,
			setup:      func(m mocks) {},
			wantStatus: http.StatusUnprocessableEntity,
		},
		"missing account": {
			body:       `{}`,
			setup:      func(m mocks) {},
			wantStatus: http.StatusUnprocessableEntity,
		},
		"transaction not found": {
			body: `{"account_id":"` + foodID.String() + `"}`,
			setup: func(m mocks) {
				m.tx.EXPECT().GetTransaction(gomock.Any(), txID).Return(nil, transaction.ErrNotFound)
			},
			wantStatus: http.StatusNotFound,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			h, m := newRouter(t)

			m.accounts.EXPECT().ListAccounts(gomock.Any()).Return(chartAccounts, nil).AnyTimes()
			tc.setup(m)

			rec := do(h, http.MethodPatch, "/"+txID.String()+"/account", tc.body)
			assert.Equal(t, tc.wantStatus, rec.Code, rec.Body.String())
		})
	}
}

func TestHandler_ReplaceSplits(t *testing.T) {
	txID := uuid.New()

	t.Run("allocates and marks the transaction split", func(t *testing.T) {
		h, m := newRouter(t)

		m.tx.EXPECT().GetTransaction(gomock.Any(), txID).
			Return(&transaction.Transaction{ID: txID, Amount: -12000, Status: transaction.StatusUncategorized}, nil)
		m.splits.EXPECT().ReplaceLines(gomock.Any(), txID, gomock.Len(2)).Return(nil)
		m.tx.EXPECT().SetAccount(gomock.Any(), txID, gomock.Nil(), transaction.StatusSplit).Return(nil)

		body := `{"lines":[` +
			`{"account_id":"` + foodID.String() + `","description":"Groceries","percent":"30"},` +
			`{"account_id":"` + miscID.String() + `","percent":"70"}]}`

		rec := do(h, http.MethodPut, "/"+txID.String()+"/splits", body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var lines []struct {
			AccountID uuid.UUID `json:"account_id"`
			Amount    int64     `json:"amount"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &lines))
		require.Len(t, lines, 2)
		assert.Equal(t, foodID, lines[0].AccountID)
		assert.Equal(t, int64(3600), lines[0].Amount)
		assert.Equal(t, int64(8400), lines[1].Amount)
	})

	t.Run("rejects shares that do not add up", func(t *testing.T) {
		h, m := newRouter(t)

		m.tx.EXPECT().GetTransaction(gomock.Any(), txID).
			Return(&transaction.Transaction{ID: txID, Amount: -12000}, nil)

		body := `{"lines":[{"account_id":"` + foodID.String() + `","percent":"30"}]}`

		rec := do(h, http.MethodPut, "/"+txID.String()+"/splits", body)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("store failure", func(t *testing.T) {
		h, m := newRouter(t)

		m.tx.EXPECT().GetTransaction(gomock.Any(), txID).
			Return(&transaction.Transaction{ID: txID, Amount: -12000}, nil)
		m.splits.EXPECT().ReplaceLines(gomock.Any(), txID, gomock.Any()).Return(errors.New("connection reset"))

		body := `{"lines":[{"account_id":"` + foodID.String() + `","percent":"100"}]}`

		rec := do(h, http.MethodPut, "/"+txID.String()+"/splits", body)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestHandler_DeleteSplits(t *testing.T) {
	h, m := newRouter(t)
	txID := uuid.New()

	m.accounts.EXPECT().ListAccounts(gomock.Any()).Return(chartAccounts, nil)
	gomock.InOrder(
		m.splits.EXPECT().DeleteByTransaction(gomock.Any(), txID).Return(nil),
		m.tx.EXPECT().SetAccount(gomock.Any(), txID, &suspenseID, transaction.StatusUncategorized).Return(nil),
	)

	rec := do(h, http.MethodDelete, "/"+txID.String()+"/splits", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHandler_Create(t *testing.T) {
	t.Run("defaults to suspense", func(t *testing.T) {
		h, m := newRouter(t)

		m.accounts.EXPECT().ListAccounts(gomock.Any()).Return(chartAccounts, nil)
		m.tx.EXPECT().CreateTransaction(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ any, tx *transaction.Transaction) error {
				assert.Equal(t, &suspenseID, tx.AccountID)
				assert.Equal(t, transaction.StatusUncategorized, tx.Status)

				return nil
			})

		rec := do(h, http.MethodPost, "/", `{"date":"2024-03-01T00:00:00Z","description":"COFFEE","amount":-450}`)
		assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	})

	t.Run("a regular account categorizes", func(t *testing.T) {
		h, m := newRouter(t)

		m.accounts.EXPECT().ListAccounts(gomock.Any()).Return(chartAccounts, nil)
		m.tx.EXPECT().CreateTransaction(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ any, tx *transaction.Transaction) error {
				assert.Equal(t, transaction.StatusCategorized, tx.Status)
				return nil
			})

		body := `{"date":"2024-03-01T00:00:00Z","description":"COFFEE","amount":-450,"account_id":"` + foodID.String() + `"}`

		rec := do(h, http.MethodPost, "/", body)
		assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	})

	t.Run("missing fields", func(t *testing.T) {
		h, _ := newRouter(t)

		rec := do(h, http.MethodPost, "/", `{"amount":-450}`)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}
