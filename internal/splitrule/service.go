package splitrule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=splitrule
type Repository interface {
	ListRules(ctx context.Context) ([]*Rule, error)
	GetRule(ctx context.Context, id uuid.UUID) (*Rule, error)
	// FindByMerchantName matches case-insensitively and returns ErrNotFound
	// when no rule exists.
	FindByMerchantName(ctx context.Context, name string) (*Rule, error)
	CreateRule(ctx context.Context, r *Rule) error
	UpdateRule(ctx context.Context, r *Rule) error
	DeleteRule(ctx context.Context, id uuid.UUID) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetByMerchantName returns nil and no error when the merchant has no rule.
func (s *Service) GetByMerchantName(ctx context.Context, name string) (*Rule, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	r, err := s.repo.FindByMerchantName(ctx, name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("finding split rule: %w", err)
	}

	return r, nil
}

// Add stores a new rule. Rules are never overwritten here; an existing rule
// for the same merchant yields ErrRuleExists.
func (s *Service) Add(ctx context.Context, r *Rule) error {
	r.MerchantName = strings.TrimSpace(r.MerchantName)
	if err := r.validate(); err != nil {
		return err
	}

	existing, err := s.GetByMerchantName(ctx, r.MerchantName)
	if err != nil {
		return err
	}

	if existing != nil {
		return ErrRuleExists
	}

	if err := s.repo.CreateRule(ctx, r); err != nil {
		return fmt.Errorf("creating split rule: %w", err)
	}

	slog.Info("split rule created", "rule_id", r.ID, "merchant", r.MerchantName, "lines", len(r.Lines))

	return nil
}

func (s *Service) List(ctx context.Context) ([]*Rule, error) {
	return s.repo.ListRules(ctx)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Rule, error) {
	return s.repo.GetRule(ctx, id)
}

// Replace swaps the lines of an existing rule.
func (s *Service) Replace(ctx context.Context, id uuid.UUID, lines []Line) (*Rule, error) {
	r, err := s.repo.GetRule(ctx, id)
	if err != nil {
		return nil, err
	}

	r.Lines = lines
	if err := r.validate(); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateRule(ctx, r); err != nil {
		return nil, fmt.Errorf("updating split rule: %w", err)
	}

	slog.Info("split rule replaced", "rule_id", r.ID, "merchant", r.MerchantName, "lines", len(r.Lines))

	return r, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteRule(ctx, id); err != nil {
		return err
	}

	slog.Info("split rule deleted", "rule_id", id)

	return nil
}

// ByMerchant indexes rules by lower-cased merchant name.
func ByMerchant(rules []*Rule) map[string]*Rule {
	out := make(map[string]*Rule, len(rules))
	for _, r := range rules {
		out[strings.ToLower(strings.TrimSpace(r.MerchantName))] = r
	}

	return out
}
