package cgd_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/tallyhq/tally/internal/importer/cgd"
	"github.com/tallyhq/tally/internal/transaction"
)

func day(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

const contaExport = `Consultar saldos e movimentos à ordem - 31-03-2026;"=""0000"""
Nome cliente;MARIA SILVA
NIF;"=""123"""

Dados da conta
Conta;0000 - EUR - Conta Extracto
Saldo contabilístico;2.310,00 EUR

Dados da consulta
Intervalo de;01-03-2026 a 31-03-2026

Data mov.;Data-valor;Descrição;Montante;Saldo contabilístico após movimento
28-03-2026;28-03-2026;NETFLIX.COM 866-579;-15,99;2.310,00
02-03-2026;02-03-2026;TRF SALARIO MARCO;1.920,40;2.325,99
`

const extratoExport = `Consultar extrato - 15-03-2026 : 0829000000030
Nome empresa ;EXEMPLO UNIPESSOAL,LDA
Conta ;0829000000030 - EUR - Conta Extracto
Saldo contabilístico final ;9.120,35

Data mov. ;Data valor ;Origem ;Descrição ;Movimento ;Estorno ;Saldo contabilístico após movimento ;
12-03-2026;12-03-2026;"=""0007""";WHOLEFDS #1022 ;-84,17;  ;9.120,35;
05-03-2026;05-03-2026;SIBS ;TFI Wise ;2.004,50;  ;9.204,52;
`

const cartaoExport = `Consultar saldos e movimentos de cartões - 15-03-2026
Conta cartão ;4163 **** **** 8016 - EUR - Business Débito
Desde ;15/02/2026

Data ;Data valor ;Descrição ;Débito ;Crédito ;
20-02-2026 ;18-02-2026 ;BELL CANADA    MONTREAL ;72,30 ; ;
26-02-2026 ;25-02-2026 ;REFUND AMAZON ; ;19,99 ;
 ; ; ; ;Página 1/2 ;
`

func TestParser_Profiles(t *testing.T) {
	type testCase struct {
		input string
		want  []transaction.CreateParams
	}

	tests := map[string]testCase{
		"conta": {
			input: contaExport,
			want: []transaction.CreateParams{
				{Date: day(2026, 3, 28), Description: "NETFLIX.COM 866-579", Amount: -1599, Status: transaction.StatusUncategorized},
				{Date: day(2026, 3, 2), Description: "TRF SALARIO MARCO", Amount: 192040, Status: transaction.StatusUncategorized},
			},
		},
		"extrato keeps the origin as memo": {
			input: extratoExport,
			want: []transaction.CreateParams{
				{Date: day(2026, 3, 12), Description: "WHOLEFDS #1022", Memo: "0007", Amount: -8417, Status: transaction.StatusUncategorized},
				{Date: day(2026, 3, 5), Description: "TFI Wise", Memo: "SIBS", Amount: 200450, Status: transaction.StatusUncategorized},
			},
		},
		"cartão debit and credit columns": {
			input: cartaoExport,
			want: []transaction.CreateParams{
				{Date: day(2026, 2, 20), Description: "BELL CANADA    MONTREAL", Amount: -7230, Status: transaction.StatusUncategorized},
				{Date: day(2026, 2, 26), Description: "REFUND AMAZON", Amount: 1999, Status: transaction.StatusUncategorized},
			},
		},
		"columns in any order": {
			input: "Random;MetaData\nMontante;Descrição;Data mov.;Ignored\n-10,00;COFFEE SHOP;30-01-2026;XXX\n",
			want: []transaction.CreateParams{
				{Date: day(2026, 1, 30), Description: "COFFEE SHOP", Amount: -1000, Status: transaction.StatusUncategorized},
			},
		},
		"large amounts": {
			input: "Data mov.;Descrição;Montante\n30-01-2026;BIG TRANSFER;-1.234.567,89\n",
			want: []transaction.CreateParams{
				{Date: day(2026, 1, 30), Description: "BIG TRANSFER", Amount: -123456789, Status: transaction.StatusUncategorized},
			},
		},
		"footer rows are skipped": {
			input: "Data mov.;Descrição;Montante\n30-01-2026;TEST;-10,00\nTotais;;;;\n",
			want: []transaction.CreateParams{
				{Date: day(2026, 1, 30), Description: "TEST", Amount: -1000, Status: transaction.StatusUncategorized},
			},
		},
		"header only": {
			input: "Data mov.;Data-valor;Descrição;Montante",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := cgd.NewParser().Parse(strings.NewReader(tc.input))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParser_Errors(t *testing.T) {
	t.Run("no known header", func(t *testing.T) {
		_, err := cgd.NewParser().Parse(strings.NewReader("Date,Description,Amount\n2026-01-30,X,-1.00\n"))
		assert.ErrorIs(t, err, cgd.ErrNoProfile)
	})

	t.Run("empty file", func(t *testing.T) {
		_, err := cgd.NewParser().Parse(strings.NewReader(""))
		assert.ErrorIs(t, err, cgd.ErrNoProfile)
	})

	t.Run("missing description", func(t *testing.T) {
		_, err := cgd.NewParser().Parse(strings.NewReader("Data mov.;Descrição;Montante\n30-01-2026;;-10,00\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "row 2: missing description")
	})
}

func TestParser_Windows1252(t *testing.T) {
	latin1, err := charmap.Windows1252.NewEncoder().Bytes([]byte("Data mov.;Descrição;Montante\n30-01-2026;CAFÉ CENTRAL;-10,00\n"))
	require.NoError(t, err)

	txs, err := cgd.NewParser().Parse(bytes.NewReader(latin1))
	require.NoError(t, err)
	require.Len(t, txs, 1)

	assert.Equal(t, "CAFÉ CENTRAL", txs[0].Description)
}
