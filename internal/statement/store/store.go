package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/tallyhq/tally/internal/statement"
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

const selectStatementColumns = `id, institution, account_number, period_start, period_end, source, document, created_at`

func scanStatement(s scanner) (*statement.Statement, error) {
	var (
		st     statement.Statement
		source string
		doc    []byte
	)

	if err := s.Scan(&st.ID, &st.Institution, &st.AccountNumber, &st.PeriodStart, &st.PeriodEnd, &source, &doc, &st.CreatedAt); err != nil {
		return nil, err
	}

	st.Source = statement.Source(source)

	if err := json.Unmarshal(doc, &st.Document); err != nil {
		return nil, fmt.Errorf("decoding statement document: %w", err)
	}

	return &st, nil
}

func (s *Store) CreateStatement(ctx context.Context, st *statement.Statement) error {
	doc, err := json.Marshal(st.Document)
	if err != nil {
		return fmt.Errorf("encoding statement document: %w", err)
	}

	query := `
		INSERT INTO investment_statements (institution, account_number, period_start, period_end, source, document, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id, created_at
	`

	err = s.db.QueryRowContext(ctx, query,
		st.Institution, st.AccountNumber, st.PeriodStart, st.PeriodEnd, string(st.Source), doc,
	).Scan(&st.ID, &st.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating statement: %w", err)
	}

	return nil
}

func (s *Store) GetStatement(ctx context.Context, id uuid.UUID) (*statement.Statement, error) {
	query := `SELECT ` + selectStatementColumns + ` FROM investment_statements WHERE id = $1`

	st, err := scanStatement(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, statement.ErrNotFound
		}

		return nil, fmt.Errorf("getting statement: %w", err)
	}

	return st, nil
}

// ListStatements returns statements newest period first. An empty
// institution lists all of them.
func (s *Store) ListStatements(ctx context.Context, institution string) ([]*statement.Statement, error) {
	query := `SELECT ` + selectStatementColumns + ` FROM investment_statements`

	var args []any
	if institution != "" {
		query += ` WHERE LOWER(institution) = LOWER($1)`
		args = append(args, institution)
	}

	query += ` ORDER BY period_end DESC NULLS LAST, created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing statements: %w", err)
	}
	defer rows.Close()

	var out []*statement.Statement

	for rows.Next() {
		st, err := scanStatement(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning statement: %w", err)
		}

		out = append(out, st)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating statements: %w", err)
	}

	return out, nil
}
