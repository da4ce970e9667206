package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/tallyhq/tally/internal/merchant"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

// Aliases are stored as a JSONB array.
const selectMerchantColumns = `id, name, aliases, category_id, created_at, updated_at`

func scanMerchant(s scanner) (*merchant.Merchant, error) {
	var (
		m       merchant.Merchant
		aliases []byte
	)

	if err := s.Scan(&m.ID, &m.Name, &aliases, &m.CategoryID, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}

	if len(aliases) > 0 {
		if err := json.Unmarshal(aliases, &m.Aliases); err != nil {
			return nil, fmt.Errorf("decoding aliases: %w", err)
		}
	}

	return &m, nil
}

func encodeAliases(aliases []string) ([]byte, error) {
	if aliases == nil {
		aliases = []string{}
	}

	return json.Marshal(aliases)
}

func (s *Store) ListMerchants(ctx context.Context) ([]*merchant.Merchant, error) {
	// Directory order is creation order; the matcher relies on it being stable.
	query := `SELECT ` + selectMerchantColumns + ` FROM merchants ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing merchants: %w", err)
	}
	defer rows.Close()

	var merchants []*merchant.Merchant

	for rows.Next() {
		m, err := scanMerchant(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning merchant: %w", err)
		}

		merchants = append(merchants, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating merchants: %w", err)
	}

	return merchants, nil
}

func (s *Store) GetMerchant(ctx context.Context, id uuid.UUID) (*merchant.Merchant, error) {
	query := `SELECT ` + selectMerchantColumns + ` FROM merchants WHERE id = $1`

	m, err := scanMerchant(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, merchant.ErrNotFound
		}

		return nil, fmt.Errorf("getting merchant: %w", err)
	}

	return m, nil
}

func (s *Store) FindByName(ctx context.Context, name string) (*merchant.Merchant, error) {
	query := `SELECT ` + selectMerchantColumns + ` FROM merchants WHERE LOWER(name) = LOWER($1)`

	m, err := scanMerchant(s.db.QueryRowContext(ctx, query, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, merchant.ErrNotFound
		}

		return nil, fmt.Errorf("finding merchant by name: %w", err)
	}

	return m, nil
}

func (s *Store) CreateMerchant(ctx context.Context, m *merchant.Merchant) error {
	aliases, err := encodeAliases(m.Aliases)
	if err != nil {
		return fmt.Errorf("encoding aliases: %w", err)
	}

	query := `
		INSERT INTO merchants (name, aliases, category_id, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, created_at
	`

	if err := s.db.QueryRowContext(ctx, query, m.Name, aliases, m.CategoryID).Scan(&m.ID, &m.CreatedAt); err != nil {
		return fmt.Errorf("creating merchant: %w", err)
	}

	return nil
}

func (s *Store) UpdateMerchant(ctx context.Context, m *merchant.Merchant) error {
	aliases, err := encodeAliases(m.Aliases)
	if err != nil {
		return fmt.Errorf("encoding aliases: %w", err)
	}

	query := `
		UPDATE merchants
		SET name = $1, aliases = $2, category_id = $3, updated_at = NOW()
		WHERE id = $4
	`

	res, err := s.db.ExecContext(ctx, query, m.Name, aliases, m.CategoryID, m.ID)
	if err != nil {
		return fmt.Errorf("updating merchant: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return merchant.ErrNotFound
	}

	return nil
}

func (s *Store) DeleteMerchant(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM merchants WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting merchant: %w", err)
	}

	return nil
}
