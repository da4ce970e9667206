package cgd

// amountColumns reads the signed amount in cents from a data row. Debits
// come back negative and credits positive.
type amountColumns interface {
	names() []string
	read(row []string, cols colIndex) (int64, bool)
}

// signedColumn is a single column holding "-10,00" style values.
type signedColumn string

func (c signedColumn) names() []string { return []string{string(c)} }

func (c signedColumn) read(row []string, cols colIndex) (int64, bool) {
	cents, err := parseEuropeanAmount(cellValue(row, cols[string(c)]))
	if err != nil || cents == 0 {
		return 0, false
	}

	return cents, true
}

// debitCredit is a pair of unsigned columns; the first non-zero one wins.
type debitCredit struct {
	debit, credit string
}

func (c debitCredit) names() []string { return []string{c.debit, c.credit} }

func (c debitCredit) read(row []string, cols colIndex) (int64, bool) {
	if cents, err := parseEuropeanAmount(cellValue(row, cols[c.debit])); err == nil && cents != 0 {
		return -abs(cents), true
	}

	if cents, err := parseEuropeanAmount(cellValue(row, cols[c.credit])); err == nil && cents != 0 {
		return abs(cents), true
	}

	return 0, false
}

// Profile is the column layout of one CGD export. Memo is optional and only
// read when the header has it.
type Profile struct {
	Name        string
	Date        string
	Description string
	Memo        string
	Amount      amountColumns
}

func (p Profile) requiredCols() []string {
	return append([]string{p.Date, p.Description}, p.Amount.names()...)
}

// profiles are tried in order; layouts with more required columns go first.
var profiles = []Profile{
	{
		Name:        "cartão",
		Date:        "Data",
		Description: "Descrição",
		Amount:      debitCredit{debit: "Débito", credit: "Crédito"},
	},
	{
		Name:        "extrato",
		Date:        "Data mov.",
		Description: "Descrição",
		Memo:        "Origem",
		Amount:      signedColumn("Movimento"),
	},
	{
		Name:        "conta",
		Date:        "Data mov.",
		Description: "Descrição",
		Amount:      signedColumn("Montante"),
	},
}
