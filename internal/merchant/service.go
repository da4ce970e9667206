package merchant

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=merchant
type Repository interface {
	ListMerchants(ctx context.Context) ([]*Merchant, error)
	GetMerchant(ctx context.Context, id uuid.UUID) (*Merchant, error)
	FindByName(ctx context.Context, name string) (*Merchant, error)
	CreateMerchant(ctx context.Context, merchant *Merchant) error
	UpdateMerchant(ctx context.Context, merchant *Merchant) error
	DeleteMerchant(ctx context.Context, id uuid.UUID) error
}

// TransactionLinker records which merchant a transaction belongs to.
type TransactionLinker interface {
	SetMerchant(ctx context.Context, txID, merchantID uuid.UUID) error
}

type Service struct {
	repo   Repository
	linker TransactionLinker
	now    func() time.Time
}

func NewService(repo Repository, linker TransactionLinker) *Service {
	return &Service{repo: repo, linker: linker, now: time.Now}
}

type CreateParams struct {
	Name       string
	Aliases    []string
	CategoryID *uuid.UUID
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*Merchant, error) {
	m := &Merchant{
		Name:       strings.TrimSpace(params.Name),
		Aliases:    cleanAliases(params.Aliases),
		CategoryID: params.CategoryID,
	}
	if m.Name == "" {
		return nil, ErrNameEmpty
	}

	if err := s.repo.CreateMerchant(ctx, m); err != nil {
		return nil, err
	}

	return m, nil
}

func (s *Service) List(ctx context.Context) ([]*Merchant, error) {
	return s.repo.ListMerchants(ctx)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Merchant, error) {
	return s.repo.GetMerchant(ctx, id)
}

func (s *Service) Update(ctx context.Context, m *Merchant) error {
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		return ErrNameEmpty
	}

	m.Aliases = cleanAliases(m.Aliases)

	return s.repo.UpdateMerchant(ctx, m)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteMerchant(ctx, id)
}

// Match runs the matcher for a single description against the whole directory.
func (s *Service) Match(ctx context.Context, description string) (*Merchant, error) {
	merchants, err := s.repo.ListMerchants(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing merchants: %w", err)
	}

	return FindMatch(description, merchants), nil
}

// Search returns up to limit merchants for a picker. Merchants whose name or
// alias contains the query come first in directory order; the rest follow
// ordered by edit distance between the query and the merchant name.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]*Merchant, error) {
	merchants, err := s.repo.ListMerchants(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing merchants: %w", err)
	}

	return rank(query, merchants, limit), nil
}

func rank(query string, merchants []*Merchant, limit int) []*Merchant {
	q := strings.ToLower(strings.TrimSpace(query))

	if q == "" {
		out := slices.Clone(merchants)
		slices.SortStableFunc(out, func(a, b *Merchant) int {
			return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		})

		return truncate(out, limit)
	}

	type scored struct {
		m    *Merchant
		dist int
	}

	var (
		contains []*Merchant
		rest     []scored
	)

	for _, m := range merchants {
		if containsFold(m.Needles(), q) {
			contains = append(contains, m)
			continue
		}

		rest = append(rest, scored{m: m, dist: levenshtein.ComputeDistance(q, strings.ToLower(m.Name))})
	}

	slices.SortStableFunc(rest, func(a, b scored) int {
		return cmp.Compare(a.dist, b.dist)
	})

	out := contains
	for _, r := range rest {
		out = append(out, r.m)
	}

	return truncate(out, limit)
}

func containsFold(values []string, lowerQuery string) bool {
	return slices.ContainsFunc(values, func(v string) bool {
		return strings.Contains(strings.ToLower(v), lowerQuery)
	})
}

func truncate(ms []*Merchant, limit int) []*Merchant {
	if limit > 0 && len(ms) > limit {
		return ms[:limit]
	}

	return ms
}

// Link assigns a merchant to a transaction the user confirmed, and teaches
// the merchant the transaction's description as an alias when it is new.
// The returned event is nil when no alias was learned.
func (s *Service) Link(ctx context.Context, txID uuid.UUID, description string, merchantID uuid.UUID) (*AliasAdded, error) {
	m, err := s.repo.GetMerchant(ctx, merchantID)
	if err != nil {
		return nil, fmt.Errorf("getting merchant: %w", err)
	}

	if err := s.linker.SetMerchant(ctx, txID, m.ID); err != nil {
		return nil, fmt.Errorf("linking transaction: %w", err)
	}

	return s.learn(ctx, m, txID, description)
}

// LinkResult describes what LinkByName did.
type LinkResult struct {
	Merchant *Merchant
	Created  *Created
	Alias    *AliasAdded
}

// LinkByName links a transaction to the merchant with the given name,
// creating the merchant first when none exists.
func (s *Service) LinkByName(ctx context.Context, txID uuid.UUID, description, name string) (*LinkResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameEmpty
	}

	res := &LinkResult{}

	m, err := s.repo.FindByName(ctx, name)

	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		m = &Merchant{Name: CanonicalName(name)}
		if m.Name == "" {
			m.Name = name
		}

		if err := s.repo.CreateMerchant(ctx, m); err != nil {
			return nil, fmt.Errorf("creating merchant: %w", err)
		}

		res.Created = &Created{MerchantID: m.ID, Name: m.Name, TransactionID: txID, At: s.now()}
		res.Created.log()
	default:
		return nil, fmt.Errorf("finding merchant: %w", err)
	}

	res.Merchant = m

	if err := s.linker.SetMerchant(ctx, txID, m.ID); err != nil {
		return nil, fmt.Errorf("linking transaction: %w", err)
	}

	res.Alias, err = s.learn(ctx, m, txID, description)
	if err != nil {
		return nil, err
	}

	return res, nil
}

func (s *Service) learn(ctx context.Context, m *Merchant, txID uuid.UUID, description string) (*AliasAdded, error) {
	alias, added := m.LearnAlias(description)
	if !added {
		return nil, nil
	}

	if err := s.repo.UpdateMerchant(ctx, m); err != nil {
		return nil, fmt.Errorf("saving alias: %w", err)
	}

	ev := &AliasAdded{
		MerchantID:    m.ID,
		MerchantName:  m.Name,
		Alias:         alias,
		TransactionID: txID,
		At:            s.now(),
	}
	ev.log()

	return ev, nil
}

func cleanAliases(aliases []string) []string {
	out := make([]string, 0, len(aliases))

	for _, a := range aliases {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}

		if slices.ContainsFunc(out, func(o string) bool { return strings.EqualFold(o, a) }) {
			continue
		}

		out = append(out, a)
	}

	return out
}
