package transaction

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=transaction
type Repository interface {
	CreateTransaction(ctx context.Context, tx *Transaction) error
	GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error)
	UpdateTransaction(ctx context.Context, tx *Transaction) error
	// SetAccount books the transaction to accountID (nil clears it) and sets
	// its status in one statement.
	SetAccount(ctx context.Context, id uuid.UUID, accountID *uuid.UUID, status Status) error
	SetMerchant(ctx context.Context, id uuid.UUID, merchantID uuid.UUID) error

	ListTransactions(ctx context.Context, filter ListFilter) ([]*Transaction, error)
	// DeleteTransaction soft-deletes the transaction and drops its split lines.
	DeleteTransaction(ctx context.Context, id uuid.UUID) error

	BeginImport(ctx context.Context, minDate, maxDate time.Time) (ImportTx, error)
}

type ImportTx interface {
	FindDuplicates(ctx context.Context, params []CreateParams) ([]*Transaction, error)
	CreateTransactions(ctx context.Context, txs []*Transaction) error
	Commit() error
	Rollback() error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type CreateParams struct {
	BankAccountID *uuid.UUID
	AccountID     *uuid.UUID
	Date          time.Time
	Description   string
	Memo          string
	ExternalID    string
	Amount        int64
	Status        Status
}

func (p CreateParams) Key() Key {
	return Key{
		Date:        p.Date.Format(time.DateOnly),
		Amount:      p.Amount,
		Description: p.Description,
		ExternalID:  p.ExternalID,
	}
}

type ListFilter struct {
	Status        *Status
	BankAccountID *uuid.UUID
	StartDate     *time.Time
	EndDate       *time.Time
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*Transaction, error) {
	tx := fromParams(params)
	if !tx.Status.Valid() {
		return nil, ErrInvalidStatus
	}

	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		return nil, err
	}

	return tx, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Transaction, error) {
	return s.repo.ListTransactions(ctx, filter)
}

func (s *Service) Update(ctx context.Context, tx *Transaction) error {
	if !tx.Status.Valid() {
		return ErrInvalidStatus
	}

	return s.repo.UpdateTransaction(ctx, tx)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	return s.repo.GetTransaction(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteTransaction(ctx, id)
}

// Categorize books the transaction to a single chart-of-account.
func (s *Service) Categorize(ctx context.Context, id, accountID uuid.UUID) error {
	if err := s.repo.SetAccount(ctx, id, &accountID, StatusCategorized); err != nil {
		return fmt.Errorf("categorizing transaction: %w", err)
	}

	return nil
}

// MarkSplit flags the transaction as split. The account is cleared because
// the split lines carry the accounts.
func (s *Service) MarkSplit(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.SetAccount(ctx, id, nil, StatusSplit); err != nil {
		return fmt.Errorf("marking transaction split: %w", err)
	}

	return nil
}

// Uncategorize returns the transaction to the review queue booked to
// accountID, normally the Suspense account.
func (s *Service) Uncategorize(ctx context.Context, id uuid.UUID, accountID *uuid.UUID) error {
	if err := s.repo.SetAccount(ctx, id, accountID, StatusUncategorized); err != nil {
		return fmt.Errorf("uncategorizing transaction: %w", err)
	}

	return nil
}

func (s *Service) SetMerchant(ctx context.Context, id, merchantID uuid.UUID) error {
	return s.repo.SetMerchant(ctx, id, merchantID)
}

type ImportResult struct {
	Imported  []*Transaction
	New       []CreateParams
	Conflicts []Conflict
}

type Conflict struct {
	Incoming CreateParams
	Existing *Transaction
}

func (s *Service) ImportBatch(ctx context.Context, params []CreateParams) (*ImportResult, error) {
	if len(params) == 0 {
		return &ImportResult{}, nil
	}

	minDate, maxDate := dateRange(params)

	itx, err := s.repo.BeginImport(ctx, minDate, maxDate)
	if err != nil {
		return nil, fmt.Errorf("begin import: %w", err)
	}
	defer itx.Rollback()

	duplicates, err := itx.FindDuplicates(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("find duplicates: %w", err)
	}

	lookup := make(map[Key]*Transaction, len(duplicates))
	for _, d := range duplicates {
		lookup[d.Key()] = d
	}

	var newParams []CreateParams

	var conflicts []Conflict

	for _, p := range params {
		existing, found := lookup[p.Key()]
		if found {
			conflicts = append(conflicts, Conflict{Incoming: p, Existing: existing})
			continue
		}

		newParams = append(newParams, p)
	}

	if len(conflicts) > 0 {
		return &ImportResult{New: newParams, Conflicts: conflicts}, nil
	}

	txs := paramsToTransactions(newParams)
	if err := itx.CreateTransactions(ctx, txs); err != nil {
		return nil, fmt.Errorf("create transactions: %w", err)
	}

	if err := itx.Commit(); err != nil {
		return nil, fmt.Errorf("commit import: %w", err)
	}

	return &ImportResult{Imported: txs}, nil
}

// CreateBatch inserts params without duplicate checks. It is used once the
// user has resolved the conflicts reported by ImportBatch.
func (s *Service) CreateBatch(ctx context.Context, params []CreateParams) ([]*Transaction, error) {
	if len(params) == 0 {
		return nil, nil
	}

	minDate, maxDate := dateRange(params)

	itx, err := s.repo.BeginImport(ctx, minDate, maxDate)
	if err != nil {
		return nil, fmt.Errorf("begin import: %w", err)
	}
	defer itx.Rollback()

	txs := paramsToTransactions(params)
	if err := itx.CreateTransactions(ctx, txs); err != nil {
		return nil, fmt.Errorf("create transactions: %w", err)
	}

	if err := itx.Commit(); err != nil {
		return nil, fmt.Errorf("commit import: %w", err)
	}

	return txs, nil
}

func dateRange(params []CreateParams) (time.Time, time.Time) {
	minDate := params[0].Date
	maxDate := params[0].Date

	for _, p := range params[1:] {
		if p.Date.Before(minDate) {
			minDate = p.Date
		}

		if p.Date.After(maxDate) {
			maxDate = p.Date
		}
	}

	return minDate, maxDate
}

func fromParams(p CreateParams) *Transaction {
	status := p.Status
	if status == "" {
		status = StatusUncategorized
	}

	return &Transaction{
		BankAccountID: p.BankAccountID,
		AccountID:     p.AccountID,
		Date:          p.Date,
		Description:   p.Description,
		Memo:          p.Memo,
		ExternalID:    p.ExternalID,
		Amount:        p.Amount,
		Status:        status,
	}
}

func paramsToTransactions(params []CreateParams) []*Transaction {
	txs := make([]*Transaction, len(params))
	for i, p := range params {
		txs[i] = fromParams(p)
	}

	return txs
}
