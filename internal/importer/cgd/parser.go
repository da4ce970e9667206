package cgd

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	enc "github.com/tallyhq/tally/internal/encoding"
	"github.com/tallyhq/tally/internal/transaction"
)

// ErrNoProfile is returned when no header row matches a known CGD layout.
var ErrNoProfile = errors.New("no matching CGD format found: expected columns for conta, extrato, or cartão")

const dateLayout = "02-01-2006"

// Parser reads Caixa Geral de Depósitos CSV exports. The export kind is
// detected from the first row whose cells cover a known profile.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(r io.Reader) ([]transaction.CreateParams, error) {
	utf8r, err := enc.NewUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detecting encoding: %w", err)
	}

	reader := csv.NewReader(utf8r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}

	profile, colMap, headerIdx := detectProfile(rows)
	if profile == nil {
		return nil, ErrNoProfile
	}

	return parseRows(profile, colMap, rows[headerIdx+1:], headerIdx)
}

// colIndex maps trimmed header names to their column.
type colIndex map[string]int

func headerIndex(row []string) colIndex {
	cols := make(colIndex, len(row))

	for i, cell := range row {
		if name := strings.TrimSpace(cell); name != "" {
			cols[name] = i
		}
	}

	return cols
}

func (c colIndex) has(names ...string) bool {
	for _, name := range names {
		if _, ok := c[name]; !ok {
			return false
		}
	}

	return true
}

// detectProfile returns the first profile covered by some row, that row's
// column index and its position. Bank exports put account metadata above
// the header, so every row is a candidate.
func detectProfile(rows [][]string) (*Profile, colIndex, int) {
	for rowIdx, row := range rows {
		cols := headerIndex(row)

		for i := range profiles {
			if cols.has(profiles[i].requiredCols()...) {
				return &profiles[i], cols, rowIdx
			}
		}
	}

	return nil, nil, 0
}

// parseRows converts the data rows below the header. Rows without a date or
// amount are footers and page markers and are skipped. headerRow is the
// 0-based header index, used for error messages.
func parseRows(p *Profile, cols colIndex, rows [][]string, headerRow int) ([]transaction.CreateParams, error) {
	memoIdx, hasMemo := cols[p.Memo]

	var txs []transaction.CreateParams

	for i, row := range rows {
		date, ok := parseDate(cellValue(row, cols[p.Date]))
		if !ok {
			continue
		}

		desc := cellValue(row, cols[p.Description])
		if desc == "" {
			return nil, fmt.Errorf("row %d: missing description", headerRow+i+2)
		}

		amount, ok := p.Amount.read(row, cols)
		if !ok {
			continue
		}

		params := transaction.CreateParams{
			Date:        date,
			Description: desc,
			Amount:      amount,
			Status:      transaction.StatusUncategorized,
		}

		if hasMemo && p.Memo != "" {
			params.Memo = strings.Trim(cellValue(row, memoIdx), `="`)
		}

		txs = append(txs, params)
	}

	return txs, nil
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}

	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, false
	}

	return t, true
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}
