package csvfile_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallyhq/tally/internal/importer/csvfile"
	"github.com/tallyhq/tally/internal/transaction"
)

func TestParser_SignedAmountColumn(t *testing.T) {
	in := `Date,Description,Amount,Memo
2025-03-01,NETFLIX.COM,-15.99,Streaming
03/02/2025,"PAYROLL, ACME",2500.00,
`

	txs, err := csvfile.NewParser().Parse(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, txs, 2)

	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), txs[0].Date)
	assert.Equal(t, "NETFLIX.COM", txs[0].Description)
	assert.Equal(t, int64(-1599), txs[0].Amount)
	assert.Equal(t, "Streaming", txs[0].Memo)
	assert.Equal(t, transaction.StatusUncategorized, txs[0].Status)

	assert.Equal(t, time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC), txs[1].Date)
	assert.Equal(t, "PAYROLL, ACME", txs[1].Description)
	assert.Equal(t, int64(250000), txs[1].Amount)
}

func TestParser_DebitCreditColumns(t *testing.T) {
	in := `Account summary
Posted Date,Payee,Withdrawals,Deposits
2025-03-05,GROCER,42.10,
2025-03-06,REFUND,,"1,005.00"
`

	txs, err := csvfile.NewParser().Parse(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, txs, 2)

	assert.Equal(t, int64(-4210), txs[0].Amount)
	assert.Equal(t, int64(100500), txs[1].Amount)
}

func TestParser_ExplicitMapping(t *testing.T) {
	in := `When;What;How much
2025-01-10;COFFEE SHOP #123;-4.50
`

	p := csvfile.NewParser(
		csvfile.WithComma(';'),
		csvfile.WithMapping(csvfile.Mapping{Date: "When", Description: "What", Amount: "How much"}),
	)

	txs, err := p.Parse(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, int64(-450), txs[0].Amount)
}

func TestParser_Errors(t *testing.T) {
	_, err := csvfile.NewParser().Parse(strings.NewReader("a,b,c\n1,2,3\n"))
	assert.ErrorIs(t, err, csvfile.ErrNoHeader)

	_, err = csvfile.NewParser().Parse(strings.NewReader("date,description,amount\nyesterday,X,1\n"))
	assert.ErrorIs(t, err, csvfile.ErrBadDate)

	_, err = csvfile.NewParser().Parse(strings.NewReader("date,description,amount\n2025-01-01,,1\n"))
	assert.ErrorContains(t, err, "missing description")
}

func TestParseAmount(t *testing.T) {
	type testCase struct {
		in   string
		want int64
	}

	tests := []testCase{
		{in: "12.34", want: 1234},
		{in: "-12.34", want: -1234},
		{in: "$1,234.56", want: 123456},
		{in: "(99.99)", want: -9999},
		{in: "5.00-", want: -500},
		{in: "", want: 0},
		{in: "0.005", want: 1},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := csvfile.ParseAmount(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
