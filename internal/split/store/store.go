package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/tallyhq/tally/internal/split"
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

const selectLineColumns = `id, transaction_id, account_id, description, percent, amount, position, created_at`

func scanLine(s scanner) (*split.Line, error) {
	var l split.Line

	if err := s.Scan(&l.ID, &l.TransactionID, &l.AccountID, &l.Description, &l.Percent, &l.Amount, &l.Position, &l.CreatedAt); err != nil {
		return nil, err
	}

	return &l, nil
}

func (s *Store) ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]*split.Line, error) {
	query := `SELECT ` + selectLineColumns + ` FROM transaction_splits WHERE transaction_id = $1 ORDER BY position ASC`

	rows, err := s.db.QueryContext(ctx, query, transactionID)
	if err != nil {
		return nil, fmt.Errorf("listing split lines: %w", err)
	}
	defer rows.Close()

	var lines []*split.Line

	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning split line: %w", err)
		}

		lines = append(lines, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating split lines: %w", err)
	}

	return lines, nil
}

func (s *Store) ReplaceLines(ctx context.Context, transactionID uuid.UUID, lines []*split.Line) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM transaction_splits WHERE transaction_id = $1`, transactionID); err != nil {
		return fmt.Errorf("clearing split lines: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transaction_splits (transaction_id, account_id, description, percent, amount, position, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id, created_at
	`)
	if err != nil {
		return fmt.Errorf("preparing split insert: %w", err)
	}
	defer stmt.Close()

	for i, l := range lines {
		l.TransactionID = transactionID
		l.Position = i

		err := stmt.QueryRowContext(ctx, transactionID, l.AccountID, l.Description, l.Percent, l.Amount, l.Position).
			Scan(&l.ID, &l.CreatedAt)
		if err != nil {
			return fmt.Errorf("inserting split line %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing split lines: %w", err)
	}

	return nil
}

func (s *Store) DeleteByTransaction(ctx context.Context, transactionID uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM transaction_splits WHERE transaction_id = $1`, transactionID); err != nil {
		return fmt.Errorf("deleting split lines: %w", err)
	}

	return nil
}
