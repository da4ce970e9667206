// Package statement stores investment statements extracted from PDFs by
// external services. Extraction itself is delegated; this package
// normalizes, validates and persists the reviewed documents.
package statement

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrMissingInstitution = errors.New("statement institution is required")
	ErrInvalidDate        = errors.New("invalid statement date")
	ErrEmptyDocument      = errors.New("statement has no holdings, transactions or fees")
	ErrUnknownSource      = errors.New("unknown extraction source")
	ErrNotFound           = errors.New("statement not found")
)

type Source string

const (
	SourceLocal  Source = "local"
	SourceVision Source = "vision"
	SourceManual Source = "manual"
)

type Metadata struct {
	Institution     string `json:"institution"`
	AccountNumber   string `json:"accountNumber"`
	AccountType     string `json:"accountType"`
	StatementPeriod string `json:"statementPeriod"`
	PeriodStart     string `json:"periodStart,omitempty"`
	PeriodEnd       string `json:"periodEnd,omitempty"`
}

type Holding struct {
	Security string          `json:"security"`
	Units    decimal.Decimal `json:"units"`
	Price    decimal.Decimal `json:"price"`
	Value    decimal.Decimal `json:"value"`
	BookCost decimal.Decimal `json:"bookCost"`
}

// Activity is a trade, dividend or cash movement inside the statement.
type Activity struct {
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Type        string          `json:"type"`
	Shares      decimal.Decimal `json:"shares"`
	Price       decimal.Decimal `json:"price"`
	Amount      decimal.Decimal `json:"amount"`
}

type Fee struct {
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

type Summary struct {
	TotalValue  decimal.Decimal `json:"totalValue"`
	CashBalance decimal.Decimal `json:"cashBalance"`
}

type Document struct {
	Metadata     Metadata   `json:"metadata"`
	Holdings     []Holding  `json:"holdings"`
	Transactions []Activity `json:"transactions"`
	Fees         []Fee      `json:"fees"`
	Summary      Summary    `json:"summary"`
}

type Statement struct {
	ID            uuid.UUID
	Institution   string
	AccountNumber string
	PeriodStart   *time.Time
	PeriodEnd     *time.Time
	Source        Source
	Document      Document
	CreatedAt     time.Time
}

// Consolidate merges per-page extractions into one document. Metadata comes
// from the first page, the summary from the last page that has one.
// Transactions are ordered by date.
func Consolidate(pages []Document) Document {
	var out Document

	if len(pages) > 0 {
		out.Metadata = pages[0].Metadata
	}

	for _, p := range pages {
		out.Holdings = append(out.Holdings, p.Holdings...)
		out.Transactions = append(out.Transactions, p.Transactions...)
		out.Fees = append(out.Fees, p.Fees...)

		if !p.Summary.TotalValue.IsZero() || !p.Summary.CashBalance.IsZero() {
			out.Summary = p.Summary
		}
	}

	slices.SortStableFunc(out.Transactions, func(a, b Activity) int {
		return cmp.Compare(a.Date, b.Date)
	})

	return out
}

// Normalize trims text fields and drops rows the reviewer left blank.
func Normalize(doc Document) Document {
	doc.Metadata.Institution = strings.TrimSpace(doc.Metadata.Institution)
	doc.Metadata.AccountNumber = strings.TrimSpace(doc.Metadata.AccountNumber)
	doc.Metadata.AccountType = strings.TrimSpace(doc.Metadata.AccountType)
	doc.Metadata.StatementPeriod = strings.TrimSpace(doc.Metadata.StatementPeriod)

	holdings := doc.Holdings[:0:0]
	for _, h := range doc.Holdings {
		h.Security = strings.TrimSpace(h.Security)
		if h.Security == "" {
			continue
		}

		holdings = append(holdings, h)
	}

	activities := doc.Transactions[:0:0]
	for _, a := range doc.Transactions {
		a.Date = strings.TrimSpace(a.Date)
		a.Description = strings.TrimSpace(a.Description)
		a.Type = strings.TrimSpace(a.Type)

		if a.Description == "" && a.Amount.IsZero() {
			continue
		}

		activities = append(activities, a)
	}

	fees := doc.Fees[:0:0]
	for _, f := range doc.Fees {
		f.Date = strings.TrimSpace(f.Date)
		f.Description = strings.TrimSpace(f.Description)

		if f.Description == "" && f.Amount.IsZero() {
			continue
		}

		fees = append(fees, f)
	}

	doc.Holdings = holdings
	doc.Transactions = activities
	doc.Fees = fees

	return doc
}

func (d Document) Validate() error {
	if d.Metadata.Institution == "" {
		return ErrMissingInstitution
	}

	if len(d.Holdings) == 0 && len(d.Transactions) == 0 && len(d.Fees) == 0 {
		return ErrEmptyDocument
	}

	var errs []error

	if _, err := optionalDate(d.Metadata.PeriodStart); err != nil {
		errs = append(errs, fmt.Errorf("period start: %w", err))
	}

	if _, err := optionalDate(d.Metadata.PeriodEnd); err != nil {
		errs = append(errs, fmt.Errorf("period end: %w", err))
	}

	for i, a := range d.Transactions {
		if _, err := time.Parse(time.DateOnly, a.Date); err != nil {
			errs = append(errs, fmt.Errorf("transaction %d: %w %q", i+1, ErrInvalidDate, a.Date))
		}
	}

	for i, f := range d.Fees {
		if f.Date == "" {
			continue
		}

		if _, err := time.Parse(time.DateOnly, f.Date); err != nil {
			errs = append(errs, fmt.Errorf("fee %d: %w %q", i+1, ErrInvalidDate, f.Date))
		}
	}

	return errors.Join(errs...)
}

// Period returns the statement period bounds, falling back to the earliest
// and latest transaction dates.
func (d Document) Period() (*time.Time, *time.Time) {
	start, _ := optionalDate(d.Metadata.PeriodStart)
	end, _ := optionalDate(d.Metadata.PeriodEnd)

	var first, last *time.Time

	for _, a := range d.Transactions {
		t, err := optionalDate(a.Date)
		if err != nil || t == nil {
			continue
		}

		if first == nil || t.Before(*first) {
			first = t
		}

		if last == nil || t.After(*last) {
			last = t
		}
	}

	if start == nil {
		start = first
	}

	if end == nil {
		end = last
	}

	return start, end
}

func optionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}

	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, fmt.Errorf("%w %q", ErrInvalidDate, s)
	}

	return &t, nil
}
