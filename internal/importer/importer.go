package importer

import (
	"io"

	"github.com/google/uuid"

	"github.com/tallyhq/tally/internal/transaction"
)

type Format string

const (
	FormatCGD  Format = "cgd"
	FormatCSV  Format = "csv"
	FormatOFX  Format = "ofx"
	FormatAuto Format = "auto"
)

func (f Format) Valid() bool {
	switch f {
	case FormatCGD, FormatCSV, FormatOFX, FormatAuto:
		return true
	}

	return false
}

type Importer interface {
	Parse(r io.Reader) ([]transaction.CreateParams, error)
}

// Options are stamped onto every imported row.
type Options struct {
	BankAccountID     *uuid.UUID
	SuspenseAccountID *uuid.UUID
}
