package statement_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/tallyhq/tally/internal/statement"
)

type stubExtractor struct {
	doc *statement.Document
	err error
}

func (s stubExtractor) Extract(context.Context, string, []byte) (*statement.Document, error) {
	return s.doc, s.err
}

func TestService_Extract(t *testing.T) {
	doc := &statement.Document{
		Metadata: statement.Metadata{Institution: " Vanguard "},
		Holdings: []statement.Holding{{Security: "VTI"}, {Security: ""}},
	}

	svc := statement.NewService(nil, map[statement.Source]statement.Extractor{
		statement.SourceLocal:  stubExtractor{doc: doc},
		statement.SourceVision: stubExtractor{err: errors.New("quota exceeded")},
	})

	got, err := svc.Extract(context.Background(), statement.SourceLocal, "q1.pdf", nil)
	require.NoError(t, err)
	assert.Equal(t, "Vanguard", got.Metadata.Institution)
	assert.Len(t, got.Holdings, 1)

	_, err = svc.Extract(context.Background(), statement.SourceVision, "q1.pdf", nil)
	assert.EqualError(t, err, "extracting q1.pdf: quota exceeded")

	_, err = svc.Extract(context.Background(), "ocr", "q1.pdf", nil)
	assert.ErrorIs(t, err, statement.ErrUnknownSource)
}

func TestService_Save(t *testing.T) {
	type args struct {
		doc statement.Document
	}

	type testCase struct {
		name    string
		args    args
		mock    func(repo *statement.MockRepository)
		wantErr error
	}

	valid := statement.Document{
		Metadata: statement.Metadata{Institution: "Vanguard", AccountNumber: "42"},
		Transactions: []statement.Activity{
			{Date: "2025-03-02", Description: "Dividend"},
			{Date: "2025-03-28", Description: "Buy"},
		},
	}

	tests := []testCase{
		{
			name: "stores with derived period",
			args: args{doc: valid},
			mock: func(repo *statement.MockRepository) {
				repo.EXPECT().CreateStatement(gomock.Any(), gomock.Any()).DoAndReturn(
					func(_ context.Context, st *statement.Statement) error {
						assert.Equal(t, "Vanguard", st.Institution)
						assert.Equal(t, "42", st.AccountNumber)
						assert.Equal(t, statement.SourceVision, st.Source)
						require.NotNil(t, st.PeriodStart)
						require.NotNil(t, st.PeriodEnd)
						assert.Equal(t, 2, st.PeriodStart.Day())
						assert.Equal(t, 28, st.PeriodEnd.Day())
						st.ID = uuid.New()

						return nil
					})
			},
		},
		{
			name:    "invalid document is not stored",
			args:    args{doc: statement.Document{Holdings: []statement.Holding{{Security: "VTI"}}}},
			mock:    func(*statement.MockRepository) {},
			wantErr: statement.ErrMissingInstitution,
		},
		{
			name: "repository error",
			args: args{doc: valid},
			mock: func(repo *statement.MockRepository) {
				repo.EXPECT().CreateStatement(gomock.Any(), gomock.Any()).Return(errors.New("db down"))
			},
			wantErr: errors.New("saving statement: db down"),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			repo := statement.NewMockRepository(ctrl)
			tc.mock(repo)

			svc := statement.NewService(repo, nil)

			st, err := svc.Save(context.Background(), statement.SourceVision, tc.args.doc)
			if tc.wantErr != nil {
				if errors.Is(err, tc.wantErr) {
					return
				}

				assert.EqualError(t, err, tc.wantErr.Error())

				return
			}

			require.NoError(t, err)
			assert.NotEqual(t, uuid.Nil, st.ID)
		})
	}
}
