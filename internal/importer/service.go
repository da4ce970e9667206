package importer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/tallyhq/tally/internal/importer/cgd"
	"github.com/tallyhq/tally/internal/importer/csvfile"
	"github.com/tallyhq/tally/internal/importer/ofx"
	"github.com/tallyhq/tally/internal/transaction"
)

var ErrUnknownFormat = errors.New("unknown import format")

type Service struct {
	importers map[Format]Importer
}

func NewService() *Service {
	return &Service{
		importers: map[Format]Importer{
			FormatCGD: cgd.NewParser(),
			FormatCSV: csvfile.NewParser(),
			FormatOFX: ofx.NewParser(),
		},
	}
}

// DetectFormat guesses the format from a file name. CSV-like names return
// FormatAuto so the content decides between the bank profiles and the
// generic layout.
func DetectFormat(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".ofx", ".qfx", ".qbo":
		return FormatOFX
	default:
		return FormatAuto
	}
}

func (s *Service) Import(format Format, r io.Reader, opts Options) ([]transaction.CreateParams, error) {
	var (
		txs []transaction.CreateParams
		err error
	)

	switch format {
	case FormatAuto:
		txs, err = s.parseAuto(r)
	case FormatCGD, FormatCSV, FormatOFX:
		txs, err = s.importers[format].Parse(r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}

	if err != nil {
		return nil, err
	}

	for i := range txs {
		txs[i].BankAccountID = opts.BankAccountID
		txs[i].AccountID = opts.SuspenseAccountID
		txs[i].Status = transaction.StatusUncategorized
	}

	return txs, nil
}

func (s *Service) parseAuto(r io.Reader) ([]transaction.CreateParams, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading import file: %w", err)
	}

	head := data[:min(len(data), 1024)]
	if bytes.Contains(bytes.ToUpper(head), []byte("<OFX")) || bytes.HasPrefix(bytes.TrimSpace(head), []byte("OFXHEADER")) {
		return s.importers[FormatOFX].Parse(bytes.NewReader(data))
	}

	txs, err := s.importers[FormatCGD].Parse(bytes.NewReader(data))
	if errors.Is(err, cgd.ErrNoProfile) {
		return s.importers[FormatCSV].Parse(bytes.NewReader(data))
	}

	return txs, err
}
