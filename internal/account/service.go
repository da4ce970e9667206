package account

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=account
type Repository interface {
	ListAccounts(ctx context.Context) ([]*Account, error)
	GetAccount(ctx context.Context, id uuid.UUID) (*Account, error)
	CreateAccount(ctx context.Context, a *Account) error
	UpdateAccount(ctx context.Context, a *Account) error
	DeleteAccount(ctx context.Context, id uuid.UUID) error
}

type Service struct {
	repo        Repository
	designation Designation
}

func NewService(repo Repository, d Designation) *Service {
	return &Service{repo: repo, designation: d}
}

type CreateParams struct {
	Code        string
	Name        string
	Type        Type
	Description string
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*Account, error) {
	a := &Account{
		Code:        strings.TrimSpace(params.Code),
		Name:        strings.TrimSpace(params.Name),
		Type:        params.Type,
		Description: params.Description,
	}
	if err := validate(a); err != nil {
		return nil, err
	}

	if err := s.repo.CreateAccount(ctx, a); err != nil {
		return nil, err
	}

	return a, nil
}

func (s *Service) List(ctx context.Context) ([]*Account, error) {
	return s.repo.ListAccounts(ctx)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Account, error) {
	return s.repo.GetAccount(ctx, id)
}

func (s *Service) Update(ctx context.Context, a *Account) error {
	if err := validate(a); err != nil {
		return err
	}

	return s.repo.UpdateAccount(ctx, a)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteAccount(ctx, id)
}

// Chart loads the full chart of accounts with its designated accounts resolved.
func (s *Service) Chart(ctx context.Context) (*Chart, error) {
	accounts, err := s.repo.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading chart of accounts: %w", err)
	}

	return NewChart(accounts, s.designation), nil
}

func validate(a *Account) error {
	if a.Name == "" {
		return ErrNameEmpty
	}

	if !a.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, a.Type)
	}

	return nil
}
