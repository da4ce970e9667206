package statement

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=statement

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

type Repository interface {
	CreateStatement(ctx context.Context, st *Statement) error
	GetStatement(ctx context.Context, id uuid.UUID) (*Statement, error)
	ListStatements(ctx context.Context, institution string) ([]*Statement, error)
}

type Service struct {
	repo       Repository
	extractors map[Source]Extractor
}

func NewService(repo Repository, extractors map[Source]Extractor) *Service {
	return &Service{repo: repo, extractors: extractors}
}

// Extract runs the chosen extractor and returns the normalized document for
// review. Nothing is stored.
func (s *Service) Extract(ctx context.Context, source Source, filename string, pdf []byte) (*Document, error) {
	ex, ok := s.extractors[source]
	if !ok || ex == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, source)
	}

	doc, err := ex.Extract(ctx, filename, pdf)
	if err != nil {
		return nil, fmt.Errorf("extracting %s: %w", filename, err)
	}

	normalized := Normalize(*doc)

	slog.Info("statement extracted",
		"source", source,
		"file", filename,
		"holdings", len(normalized.Holdings),
		"transactions", len(normalized.Transactions),
		"fees", len(normalized.Fees),
	)

	return &normalized, nil
}

// Save stores a reviewed document.
func (s *Service) Save(ctx context.Context, source Source, doc Document) (*Statement, error) {
	doc = Normalize(doc)

	if err := doc.Validate(); err != nil {
		return nil, err
	}

	start, end := doc.Period()

	st := &Statement{
		Institution:   doc.Metadata.Institution,
		AccountNumber: doc.Metadata.AccountNumber,
		PeriodStart:   start,
		PeriodEnd:     end,
		Source:        source,
		Document:      doc,
	}

	if err := s.repo.CreateStatement(ctx, st); err != nil {
		return nil, fmt.Errorf("saving statement: %w", err)
	}

	slog.Info("statement saved", "id", st.ID, "institution", st.Institution)

	return st, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Statement, error) {
	return s.repo.GetStatement(ctx, id)
}

func (s *Service) List(ctx context.Context, institution string) ([]*Statement, error) {
	return s.repo.ListStatements(ctx, institution)
}
