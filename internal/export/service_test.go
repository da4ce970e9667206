package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tallyhq/tally/internal/account"
	"github.com/tallyhq/tally/internal/split"
	"github.com/tallyhq/tally/internal/transaction"
)

// Mock Repository
type mockRepo struct {
	listTransactionsFunc func(ctx context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error)
}

func (m *mockRepo) CreateTransaction(ctx context.Context, tx *transaction.Transaction) error {
	return nil
}

func (m *mockRepo) GetTransaction(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	return nil, nil
}

func (m *mockRepo) UpdateTransaction(ctx context.Context, tx *transaction.Transaction) error {
	return nil
}

func (m *mockRepo) SetAccount(ctx context.Context, id uuid.UUID, accountID *uuid.UUID, status transaction.Status) error {
	return nil
}

func (m *mockRepo) SetMerchant(ctx context.Context, id uuid.UUID, merchantID uuid.UUID) error {
	return nil
}

func (m *mockRepo) ListTransactions(ctx context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error) {
	if m.listTransactionsFunc != nil {
		return m.listTransactionsFunc(ctx, filter)
	}

	return nil, nil
}
func (m *mockRepo) DeleteTransaction(ctx context.Context, id uuid.UUID) error { return nil }

func (m *mockRepo) BeginImport(ctx context.Context, minDate, maxDate time.Time) (transaction.ImportTx, error) {
	return nil, nil
}

type staticChart struct {
	chart *account.Chart
}

func (c staticChart) Chart(context.Context) (*account.Chart, error) {
	return c.chart, nil
}

type splitLines map[uuid.UUID][]*split.Line

func (s splitLines) Lines(_ context.Context, txID uuid.UUID) ([]*split.Line, error) {
	return s[txID], nil
}

func TestExportService_WriteCSV(t *testing.T) {
	groceries := &account.Account{ID: uuid.New(), Code: "5100", Name: "Groceries"}
	entertainment := &account.Account{ID: uuid.New(), Code: "5200", Name: "Entertainment"}
	misc := &account.Account{ID: uuid.New(), Code: "9999", Name: "Misc"}
	chart := account.NewChart([]*account.Account{groceries, entertainment, misc}, account.DefaultDesignation)

	date := time.Date(2023, 10, 27, 0, 0, 0, 0, time.UTC)

	tx1 := &transaction.Transaction{
		ID:          uuid.New(),
		Amount:      -4210,
		Description: "Whole Foods",
		Date:        date,
		Status:      transaction.StatusCategorized,
		AccountID:   &groceries.ID,
	}

	tx2 := &transaction.Transaction{
		ID:          uuid.New(),
		Amount:      -1599,
		Description: "Netflix",
		Date:        date,
		Status:      transaction.StatusSplit,
	}

	tx3 := &transaction.Transaction{
		ID:          uuid.New(),
		Amount:      250000,
		Description: "Payroll",
		Date:        date,
		Status:      transaction.StatusUncategorized,
	}

	repo := &mockRepo{
		listTransactionsFunc: func(ctx context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error) {
			return []*transaction.Transaction{tx1, tx2, tx3}, nil
		},
	}

	lines := splitLines{
		tx2.ID: {
			{TransactionID: tx2.ID, AccountID: entertainment.ID, Percent: decimal.NewFromInt(60), Amount: 959},
			{TransactionID: tx2.ID, AccountID: misc.ID, Description: "Remainder", Percent: decimal.NewFromInt(40), Amount: 640},
		},
	}

	service := NewService(transaction.NewService(repo), staticChart{chart: chart}, lines)

	var buf bytes.Buffer

	n, err := service.WriteCSV(context.Background(), transaction.ListFilter{}, &buf)
	if err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	if n != 4 {
		t.Fatalf("expected 4 rows, got %d", n)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading back csv: %v", err)
	}

	if len(records) != 5 {
		t.Fatalf("expected header plus 4 records, got %d", len(records))
	}

	if strings.Join(records[0], ",") != strings.Join(header, ",") {
		t.Errorf("unexpected header %v", records[0])
	}

	expected := [][]string{
		{"2023-10-27", "Whole Foods", "", "categorized", "5100", "Groceries", "100.00", "-42.10"},
		{"2023-10-27", "Netflix", "", "split", "5200", "Entertainment", "60.00", "-9.59"},
		{"2023-10-27", "Netflix", "Remainder", "split", "9999", "Misc", "40.00", "-6.40"},
		{"2023-10-27", "Payroll", "", "uncategorized", "", "", "100.00", "2500.00"},
	}

	for i, want := range expected {
		got := records[i+1][1:]
		if strings.Join(got, "|") != strings.Join(want, "|") {
			t.Errorf("row %d: expected %v, got %v", i+1, want, got)
		}
	}
}

func TestExportService_ListError(t *testing.T) {
	repo := &mockRepo{
		listTransactionsFunc: func(ctx context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error) {
			return nil, errors.New("db down")
		},
	}

	service := NewService(transaction.NewService(repo), staticChart{}, splitLines{})

	_, err := service.WriteCSV(context.Background(), transaction.ListFilter{}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "listing transactions") {
		t.Fatalf("expected listing error, got %v", err)
	}
}

func TestFilename(t *testing.T) {
	got := Filename(time.Date(2025, 2, 3, 15, 0, 0, 0, time.UTC))
	if got != "transactions_2025-02-03.csv" {
		t.Errorf("unexpected filename %s", got)
	}
}
