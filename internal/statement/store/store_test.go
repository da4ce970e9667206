package store_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallyhq/tally/internal/statement"
	"github.com/tallyhq/tally/internal/statement/store"
)

func newStore(t *testing.T) (*store.Store, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return store.New(db), mock
}

var columns = []string{"id", "institution", "account_number", "period_start", "period_end", "source", "document", "created_at"}

func TestStore_CreateStatement(t *testing.T) {
	s, mock := newStore(t)

	id := uuid.New()
	end := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO investment_statements").
		WithArgs("Vanguard", "123", nil, end, "vision", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(id.String(), time.Now()))

	st := &statement.Statement{
		Institution:   "Vanguard",
		AccountNumber: "123",
		PeriodEnd:     &end,
		Source:        statement.SourceVision,
		Document:      statement.Document{Metadata: statement.Metadata{Institution: "Vanguard"}},
	}

	require.NoError(t, s.CreateStatement(context.Background(), st))
	assert.Equal(t, id, st.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ListStatements(t *testing.T) {
	s, mock := newStore(t)

	id := uuid.New()
	doc := `{"metadata":{"institution":"Vanguard"},"holdings":[{"security":"VTI","units":"10","price":"250","value":"2500","bookCost":"2000"}]}`

	mock.ExpectQuery("SELECT .* FROM investment_statements WHERE LOWER\\(institution\\) = LOWER\\(\\$1\\) ORDER BY period_end DESC").
		WithArgs("vanguard").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(id.String(), "Vanguard", "", nil, nil, "local", []byte(doc), time.Now()))

	got, err := s.ListStatements(context.Background(), "vanguard")
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, id, got[0].ID)
	assert.Equal(t, statement.SourceLocal, got[0].Source)
	assert.Nil(t, got[0].PeriodStart)
	require.Len(t, got[0].Document.Holdings, 1)
	assert.Equal(t, "VTI", got[0].Document.Holdings[0].Security)
	assert.Equal(t, "2500", got[0].Document.Holdings[0].Value.String())
}

func TestStore_GetStatement_NotFound(t *testing.T) {
	s, mock := newStore(t)

	mock.ExpectQuery("SELECT .* FROM investment_statements WHERE id").WillReturnError(sql.ErrNoRows)

	_, err := s.GetStatement(context.Background(), uuid.New())
	assert.ErrorIs(t, err, statement.ErrNotFound)
}
