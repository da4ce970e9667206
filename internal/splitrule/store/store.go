package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tallyhq/tally/internal/splitrule"
)

const uniqueViolation = "23505"

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

const selectRuleColumns = `id, merchant_name, splits, created_at, updated_at`

func scanRule(s scanner) (*splitrule.Rule, error) {
	var (
		r      splitrule.Rule
		splits []byte
	)

	if err := s.Scan(&r.ID, &r.MerchantName, &splits, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(splits, &r.Lines); err != nil {
		return nil, fmt.Errorf("decoding split lines: %w", err)
	}

	return &r, nil
}

func (s *Store) ListRules(ctx context.Context) ([]*splitrule.Rule, error) {
	query := `SELECT ` + selectRuleColumns + ` FROM merchant_split_rules ORDER BY LOWER(merchant_name) ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing split rules: %w", err)
	}
	defer rows.Close()

	var rules []*splitrule.Rule

	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning split rule: %w", err)
		}

		rules = append(rules, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating split rules: %w", err)
	}

	return rules, nil
}

func (s *Store) GetRule(ctx context.Context, id uuid.UUID) (*splitrule.Rule, error) {
	query := `SELECT ` + selectRuleColumns + ` FROM merchant_split_rules WHERE id = $1`

	return s.getOne(ctx, query, id)
}

func (s *Store) FindByMerchantName(ctx context.Context, name string) (*splitrule.Rule, error) {
	query := `SELECT ` + selectRuleColumns + ` FROM merchant_split_rules WHERE LOWER(merchant_name) = LOWER($1)`

	return s.getOne(ctx, query, name)
}

func (s *Store) getOne(ctx context.Context, query string, arg any) (*splitrule.Rule, error) {
	r, err := scanRule(s.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, splitrule.ErrNotFound
		}

		return nil, fmt.Errorf("getting split rule: %w", err)
	}

	return r, nil
}

func (s *Store) CreateRule(ctx context.Context, r *splitrule.Rule) error {
	splits, err := json.Marshal(r.Lines)
	if err != nil {
		return fmt.Errorf("encoding split lines: %w", err)
	}

	query := `
		INSERT INTO merchant_split_rules (merchant_name, splits, created_at)
		VALUES ($1, $2, NOW())
		RETURNING id, created_at
	`

	err = s.db.QueryRowContext(ctx, query, r.MerchantName, splits).Scan(&r.ID, &r.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return splitrule.ErrRuleExists
		}

		return fmt.Errorf("creating split rule: %w", err)
	}

	return nil
}

func (s *Store) UpdateRule(ctx context.Context, r *splitrule.Rule) error {
	splits, err := json.Marshal(r.Lines)
	if err != nil {
		return fmt.Errorf("encoding split lines: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE merchant_split_rules SET splits = $1, updated_at = NOW() WHERE id = $2`,
		splits, r.ID)
	if err != nil {
		return fmt.Errorf("updating split rule: %w", err)
	}

	return notFoundIfNone(res)
}

func (s *Store) DeleteRule(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM merchant_split_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting split rule: %w", err)
	}

	return notFoundIfNone(res)
}

func notFoundIfNone(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}

	if n == 0 {
		return splitrule.ErrNotFound
	}

	return nil
}
