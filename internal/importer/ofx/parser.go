// Package ofx imports OFX, QFX and QBO statement downloads.
package ofx

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"

	"github.com/tallyhq/tally/internal/transaction"
)

var ErrNoStatements = errors.New("ofx response has no bank or credit card statements")

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(r io.Reader) ([]transaction.CreateParams, error) {
	resp, err := ofxgo.ParseResponse(r)
	if err != nil {
		return nil, fmt.Errorf("parse ofx: %w", err)
	}

	var found bool

	var txs []ofxgo.Transaction

	for _, msg := range resp.Bank {
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok {
			continue
		}

		found = true

		if stmt.BankTranList != nil {
			txs = append(txs, stmt.BankTranList.Transactions...)
		}
	}

	for _, msg := range resp.CreditCard {
		stmt, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok {
			continue
		}

		found = true

		if stmt.BankTranList != nil {
			txs = append(txs, stmt.BankTranList.Transactions...)
		}
	}

	if !found {
		return nil, ErrNoStatements
	}

	return FromTransactions(txs)
}

// FromTransactions maps OFX statement entries to create params. TRNAMT is
// already signed, negative for money leaving the account.
func FromTransactions(txs []ofxgo.Transaction) ([]transaction.CreateParams, error) {
	out := make([]transaction.CreateParams, 0, len(txs))

	for i, t := range txs {
		amount, err := decimal.NewFromString(t.TrnAmt.FloatString(2))
		if err != nil {
			return nil, fmt.Errorf("transaction %d: invalid amount: %w", i+1, err)
		}

		desc := strings.TrimSpace(string(t.Name))
		if desc == "" && t.Payee != nil {
			desc = strings.TrimSpace(string(t.Payee.Name))
		}

		if desc == "" {
			desc = strings.TrimSpace(string(t.Memo))
		}

		if desc == "" {
			return nil, fmt.Errorf("transaction %d: missing name", i+1)
		}

		posted := t.DtPosted.Time
		date := time.Date(posted.Year(), posted.Month(), posted.Day(), 0, 0, 0, 0, time.UTC)

		out = append(out, transaction.CreateParams{
			Date:        date,
			Description: desc,
			Memo:        strings.TrimSpace(string(t.Memo)),
			ExternalID:  strings.TrimSpace(string(t.FiTID)),
			Amount:      amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart(),
			Status:      transaction.StatusUncategorized,
		})
	}

	return out, nil
}
