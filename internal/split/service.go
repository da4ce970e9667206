package split

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=split
type Repository interface {
	ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]*Line, error)
	// ReplaceLines deletes every existing line of the transaction and inserts
	// lines in a single database transaction.
	ReplaceLines(ctx context.Context, transactionID uuid.UUID, lines []*Line) error
	DeleteByTransaction(ctx context.Context, transactionID uuid.UUID) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Lines(ctx context.Context, transactionID uuid.UUID) ([]*Line, error) {
	return s.repo.ListByTransaction(ctx, transactionID)
}

// Replace validates shares, allocates them over the transaction amount and
// swaps them in for whatever lines the transaction had. Replacing twice with
// the same shares leaves the same lines behind.
func (s *Service) Replace(ctx context.Context, transactionID uuid.UUID, amountCents int64, shares []Share) ([]*Line, error) {
	if err := ValidateShares(shares); err != nil {
		return nil, err
	}

	lines := Allocate(transactionID, amountCents, shares)

	if err := s.repo.ReplaceLines(ctx, transactionID, lines); err != nil {
		return nil, fmt.Errorf("replacing split lines: %w", err)
	}

	return lines, nil
}

func (s *Service) Delete(ctx context.Context, transactionID uuid.UUID) error {
	return s.repo.DeleteByTransaction(ctx, transactionID)
}
