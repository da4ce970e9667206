package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tallyhq/tally/internal/account"
	"github.com/tallyhq/tally/internal/split"
	"github.com/tallyhq/tally/internal/transaction"
)

type Transactions interface {
	List(ctx context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error)
}

type Charts interface {
	Chart(ctx context.Context) (*account.Chart, error)
}

type Splits interface {
	Lines(ctx context.Context, transactionID uuid.UUID) ([]*split.Line, error)
}

// Row is one exported line. Split transactions produce one row per split
// line carrying the line's share of the amount.
type Row struct {
	TransactionID uuid.UUID
	Date          time.Time
	Description   string
	Memo          string
	Status        transaction.Status
	AccountCode   string
	AccountName   string
	Percent       decimal.Decimal
	Amount        int64
}

var header = []string{"transaction_id", "date", "description", "memo", "status", "account_code", "account_name", "percent", "amount"}

// Service exports transactions with their booked accounts.
type Service struct {
	transactions Transactions
	charts       Charts
	splits       Splits
}

func NewService(transactions Transactions, charts Charts, splits Splits) *Service {
	return &Service{
		transactions: transactions,
		charts:       charts,
		splits:       splits,
	}
}

func (s *Service) Rows(ctx context.Context, filter transaction.ListFilter) ([]Row, error) {
	transactions, err := s.transactions.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}

	chart, err := s.charts.Chart(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading chart of accounts: %w", err)
	}

	// Pre-allocate for the common case of one row per transaction.
	rows := make([]Row, 0, len(transactions))

	for _, t := range transactions {
		base := Row{
			TransactionID: t.ID,
			Date:          t.Date,
			Description:   t.Description,
			Memo:          t.Memo,
			Status:        t.Status,
			Percent:       decimal.NewFromInt(100),
			Amount:        t.Amount,
		}

		if t.Status != transaction.StatusSplit {
			if t.AccountID != nil {
				base.AccountCode, base.AccountName = accountLabel(chart, *t.AccountID)
			}

			rows = append(rows, base)

			continue
		}

		lines, err := s.splits.Lines(ctx, t.ID)
		if err != nil {
			return nil, fmt.Errorf("loading split lines for transaction %s: %w", t.ID, err)
		}

		if len(lines) == 0 {
			rows = append(rows, base)
			continue
		}

		for _, l := range lines {
			row := base
			row.AccountCode, row.AccountName = accountLabel(chart, l.AccountID)
			row.Percent = l.Percent

			row.Amount = l.Amount
			if t.IsDebit() {
				row.Amount = -l.Amount
			}

			if l.Description != "" {
				row.Memo = l.Description
			}

			rows = append(rows, row)
		}
	}

	return rows, nil
}

// WriteCSV writes the export with a header row and returns the number of
// data rows written.
func (s *Service) WriteCSV(ctx context.Context, filter transaction.ListFilter, w io.Writer) (int, error) {
	rows, err := s.Rows(ctx, filter)
	if err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)

	if err := cw.Write(header); err != nil {
		return 0, fmt.Errorf("writing header: %w", err)
	}

	for _, r := range rows {
		record := []string{
			r.TransactionID.String(),
			r.Date.Format(time.DateOnly),
			r.Description,
			r.Memo,
			string(r.Status),
			r.AccountCode,
			r.AccountName,
			r.Percent.StringFixed(2),
			decimal.New(r.Amount, -2).StringFixed(2),
		}

		if err := cw.Write(record); err != nil {
			return 0, fmt.Errorf("writing row: %w", err)
		}
	}

	cw.Flush()

	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("flushing csv: %w", err)
	}

	return len(rows), nil
}

// Filename is the download name for an export produced at now.
func Filename(now time.Time) string {
	return fmt.Sprintf("transactions_%s.csv", now.Format(time.DateOnly))
}

func accountLabel(chart *account.Chart, id uuid.UUID) (string, string) {
	a := chart.ByID(id)
	if a == nil {
		return "", ""
	}

	return a.Code, a.Name
}
