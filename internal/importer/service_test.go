package importer_test

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallyhq/tally/internal/importer"
	"github.com/tallyhq/tally/internal/transaction"
)

const cgdConta = `Data mov.;Data-valor;Descrição;Montante;Saldo contabilístico após movimento
30-01-2026;30-01-2026;INSTITUTO GESTAO FINA;-588,74;48.825,46
`

const genericCSV = `Date,Description,Amount
2025-03-01,NETFLIX.COM,-15.99
`

func TestDetectFormat(t *testing.T) {
	type testCase struct {
		name     string
		filename string
		want     importer.Format
	}

	tests := []testCase{
		{name: "qbo", filename: "march.QBO", want: importer.FormatOFX},
		{name: "qfx", filename: "card.qfx", want: importer.FormatOFX},
		{name: "ofx", filename: "bank.ofx", want: importer.FormatOFX},
		{name: "csv", filename: "export.csv", want: importer.FormatAuto},
		{name: "no extension", filename: "download", want: importer.FormatAuto},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, importer.DetectFormat(tc.filename))
		})
	}
}

func TestService_Import_StampsOptions(t *testing.T) {
	bank := uuid.New()
	suspense := uuid.New()

	svc := importer.NewService()

	txs, err := svc.Import(importer.FormatCSV, strings.NewReader(genericCSV), importer.Options{
		BankAccountID:     &bank,
		SuspenseAccountID: &suspense,
	})
	require.NoError(t, err)
	require.Len(t, txs, 1)

	assert.Equal(t, &bank, txs[0].BankAccountID)
	assert.Equal(t, &suspense, txs[0].AccountID)
	assert.Equal(t, transaction.StatusUncategorized, txs[0].Status)
	assert.Equal(t, int64(-1599), txs[0].Amount)
}

func TestService_Import_Auto(t *testing.T) {
	type testCase struct {
		name     string
		input    string
		wantDesc string
		wantErr  bool
	}

	tests := []testCase{
		{name: "cgd profile", input: cgdConta, wantDesc: "INSTITUTO GESTAO FINA"},
		{name: "falls back to generic csv", input: genericCSV, wantDesc: "NETFLIX.COM"},
		{name: "ofx header routes to ofx", input: "OFXHEADER:100\nDATA:OFXSGML\n<OFX>broken", wantErr: true},
		{name: "unrecognized", input: "a,b\n1,2\n", wantErr: true},
	}

	svc := importer.NewService()

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			txs, err := svc.Import(importer.FormatAuto, strings.NewReader(tc.input), importer.Options{})
			if tc.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.Len(t, txs, 1)
			assert.Equal(t, tc.wantDesc, txs[0].Description)
		})
	}
}

func TestService_Import_UnknownFormat(t *testing.T) {
	_, err := importer.NewService().Import("xlsx", strings.NewReader(""), importer.Options{})
	assert.ErrorIs(t, err, importer.ErrUnknownFormat)
}
