// Package csvfile imports generic bank CSV exports with a header row.
package csvfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	enc "github.com/tallyhq/tally/internal/encoding"
	"github.com/tallyhq/tally/internal/transaction"
)

var (
	ErrNoHeader = errors.New("csv has no header row with date, description and amount columns")
	ErrBadDate  = errors.New("unrecognized date")
)

// Mapping names the header of each column. Empty fields are detected from
// the common header spellings.
type Mapping struct {
	Date        string `json:"date,omitempty"`
	Description string `json:"description,omitempty"`
	Amount      string `json:"amount,omitempty"`
	Debit       string `json:"debit,omitempty"`
	Credit      string `json:"credit,omitempty"`
	Memo        string `json:"memo,omitempty"`
}

var headerAliases = map[string][]string{
	"date":        {"date", "transaction date", "posted date", "posting date", "trans. date"},
	"description": {"description", "payee", "name", "merchant", "details"},
	"amount":      {"amount", "value", "transaction amount"},
	"debit":       {"debit", "withdrawal", "withdrawals", "money out"},
	"credit":      {"credit", "deposit", "deposits", "money in"},
	"memo":        {"memo", "notes", "reference"},
}

// dateLayouts are tried in order. Month-first comes before day-first, so an
// ambiguous 03/04/2025 reads as March 4.
var dateLayouts = []string{
	time.DateOnly,
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"02-01-2006",
	"02.01.2006",
	"Jan 2, 2006",
	"2 Jan 2006",
	"20060102",
}

type Parser struct {
	mapping Mapping
	comma   rune
}

type Option func(*Parser)

func WithMapping(m Mapping) Option {
	return func(p *Parser) { p.mapping = m }
}

func WithComma(c rune) Option {
	return func(p *Parser) { p.comma = c }
}

func NewParser(opts ...Option) *Parser {
	p := &Parser{comma: ','}
	for _, o := range opts {
		o(p)
	}

	return p
}

type columns struct {
	date, desc, amount, debit, credit, memo int
}

func (p *Parser) Parse(r io.Reader) ([]transaction.CreateParams, error) {
	utf8r, err := enc.NewUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	reader := csv.NewReader(utf8r)
	reader.Comma = p.comma
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	headerIdx, cols, ok := p.findHeader(rows)
	if !ok {
		return nil, ErrNoHeader
	}

	var txs []transaction.CreateParams

	for i, row := range rows[headerIdx+1:] {
		rowNum := headerIdx + i + 2

		rawDate := cell(row, cols.date)
		if rawDate == "" {
			continue
		}

		date, err := parseDate(rawDate)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum, err)
		}

		desc := cell(row, cols.desc)
		if desc == "" {
			return nil, fmt.Errorf("row %d: missing description", rowNum)
		}

		amount, err := rowAmount(row, cols)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum, err)
		}

		txs = append(txs, transaction.CreateParams{
			Date:        date,
			Description: desc,
			Memo:        cell(row, cols.memo),
			Amount:      amount,
			Status:      transaction.StatusUncategorized,
		})
	}

	return txs, nil
}

func (p *Parser) findHeader(rows [][]string) (int, columns, bool) {
	for i, row := range rows {
		idx := make(map[string]int, len(row))
		for j, c := range row {
			idx[strings.ToLower(strings.TrimSpace(c))] = j
		}

		cols := columns{
			date:   lookup(idx, p.mapping.Date, "date"),
			desc:   lookup(idx, p.mapping.Description, "description"),
			amount: lookup(idx, p.mapping.Amount, "amount"),
			debit:  lookup(idx, p.mapping.Debit, "debit"),
			credit: lookup(idx, p.mapping.Credit, "credit"),
			memo:   lookup(idx, p.mapping.Memo, "memo"),
		}

		hasAmount := cols.amount >= 0 || (cols.debit >= 0 && cols.credit >= 0)
		if cols.date >= 0 && cols.desc >= 0 && hasAmount {
			return i, cols, true
		}
	}

	return 0, columns{}, false
}

func lookup(idx map[string]int, explicit, field string) int {
	if explicit != "" {
		if i, ok := idx[strings.ToLower(strings.TrimSpace(explicit))]; ok {
			return i
		}

		return -1
	}

	for _, alias := range headerAliases[field] {
		if i, ok := idx[alias]; ok {
			return i
		}
	}

	return -1
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrBadDate, s)
}

func rowAmount(row []string, cols columns) (int64, error) {
	if cols.amount >= 0 {
		return ParseAmount(cell(row, cols.amount))
	}

	if s := cell(row, cols.debit); s != "" {
		cents, err := ParseAmount(s)
		if err != nil {
			return 0, err
		}

		if cents != 0 {
			return -abs(cents), nil
		}
	}

	cents, err := ParseAmount(cell(row, cols.credit))
	if err != nil {
		return 0, err
	}

	return abs(cents), nil
}

// ParseAmount converts a dollar-style amount to cents. It accepts currency
// symbols, thousands commas, a trailing or leading minus and accounting
// parentheses. An empty string is zero.
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	negative := false

	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	if strings.HasSuffix(s, "-") {
		negative = true
		s = strings.TrimSuffix(s, "-")
	}

	s = strings.NewReplacer("$", "", "€", "", "£", "", ",", "", " ", "").Replace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}

	if negative {
		d = d.Neg()
	}

	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart(), nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}

	return n
}
