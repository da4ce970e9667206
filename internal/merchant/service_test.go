package merchant_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/tallyhq/tally/internal/merchant"
)

func TestService_Link(t *testing.T) {
	type args struct {
		description string
	}

	type testCase struct {
		name      string
		args      args
		merchant  *merchant.Merchant
		setupMock func(repo *merchant.MockRepository, linker *merchant.MockTransactionLinker, m *merchant.Merchant, txID uuid.UUID)
		wantAlias string
		wantErr   bool
	}

	tests := []testCase{
		{
			name:     "LearnsAlias",
			args:     args{description: "NFLX DIGITAL 8443"},
			merchant: newMerchant("Netflix"),
			setupMock: func(repo *merchant.MockRepository, linker *merchant.MockTransactionLinker, m *merchant.Merchant, txID uuid.UUID) {
				repo.EXPECT().GetMerchant(gomock.Any(), m.ID).Return(m, nil)
				linker.EXPECT().SetMerchant(gomock.Any(), txID, m.ID).Return(nil)
				repo.EXPECT().
					UpdateMerchant(gomock.Any(), m).
					DoAndReturn(func(_ context.Context, got *merchant.Merchant) error {
						assert.Equal(t, []string{"NFLX DIGITAL"}, got.Aliases)
						return nil
					})
			},
			wantAlias: "NFLX DIGITAL",
		},
		{
			name:     "AlreadyKnownSkipsUpdate",
			args:     args{description: "NETFLIX.COM"},
			merchant: newMerchant("Netflix"),
			setupMock: func(repo *merchant.MockRepository, linker *merchant.MockTransactionLinker, m *merchant.Merchant, txID uuid.UUID) {
				repo.EXPECT().GetMerchant(gomock.Any(), m.ID).Return(m, nil)
				linker.EXPECT().SetMerchant(gomock.Any(), txID, m.ID).Return(nil)
			},
		},
		{
			name:     "LinkFails",
			args:     args{description: "NFLX"},
			merchant: newMerchant("Netflix"),
			setupMock: func(repo *merchant.MockRepository, linker *merchant.MockTransactionLinker, m *merchant.Merchant, txID uuid.UUID) {
				repo.EXPECT().GetMerchant(gomock.Any(), m.ID).Return(m, nil)
				linker.EXPECT().SetMerchant(gomock.Any(), txID, m.ID).Return(errors.New("db error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)

			repo := merchant.NewMockRepository(ctrl)
			linker := merchant.NewMockTransactionLinker(ctrl)
			txID := uuid.New()

			tt.setupMock(repo, linker, tt.merchant, txID)

			svc := merchant.NewService(repo, linker)
			ev, err := svc.Link(context.Background(), txID, tt.args.description, tt.merchant.ID)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)

			if tt.wantAlias == "" {
				assert.Nil(t, ev)
				return
			}

			require.NotNil(t, ev)
			assert.Equal(t, tt.wantAlias, ev.Alias)
			assert.Equal(t, txID, ev.TransactionID)
			assert.Equal(t, tt.merchant.ID, ev.MerchantID)
		})
	}
}

func TestService_LinkByName_CreatesMerchant(t *testing.T) {
	ctrl := gomock.NewController(t)

	repo := merchant.NewMockRepository(ctrl)
	linker := merchant.NewMockTransactionLinker(ctrl)
	txID := uuid.New()
	newID := uuid.New()

	repo.EXPECT().FindByName(gomock.Any(), "blue bottle").Return(nil, merchant.ErrNotFound)
	repo.EXPECT().
		CreateMerchant(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, m *merchant.Merchant) error {
			assert.Equal(t, "Blue Bottle", m.Name)
			m.ID = newID

			return nil
		})
	linker.EXPECT().SetMerchant(gomock.Any(), txID, newID).Return(nil)
	repo.EXPECT().UpdateMerchant(gomock.Any(), gomock.Any()).Return(nil)

	res, err := merchant.NewService(repo, linker).LinkByName(context.Background(), txID, "SQ *BLUEBOTTLE 0042", "blue bottle")
	require.NoError(t, err)

	require.NotNil(t, res.Created)
	assert.Equal(t, newID, res.Created.MerchantID)
	require.NotNil(t, res.Alias)
	assert.Equal(t, "SQ BLUEBOTTLE", res.Alias.Alias)
}

func TestService_LinkByName_ExistingMerchant(t *testing.T) {
	ctrl := gomock.NewController(t)

	repo := merchant.NewMockRepository(ctrl)
	linker := merchant.NewMockTransactionLinker(ctrl)
	txID := uuid.New()
	existing := newMerchant("Bell", "BELL CANADA")

	repo.EXPECT().FindByName(gomock.Any(), "Bell").Return(existing, nil)
	linker.EXPECT().SetMerchant(gomock.Any(), txID, existing.ID).Return(nil)

	res, err := merchant.NewService(repo, linker).LinkByName(context.Background(), txID, "BELL CANADA 555", "Bell")
	require.NoError(t, err)
	assert.Nil(t, res.Created)
	assert.Nil(t, res.Alias)
	assert.Equal(t, existing, res.Merchant)
}

func TestService_LinkByName_EmptyName(t *testing.T) {
	ctrl := gomock.NewController(t)

	svc := merchant.NewService(merchant.NewMockRepository(ctrl), merchant.NewMockTransactionLinker(ctrl))
	_, err := svc.LinkByName(context.Background(), uuid.New(), "X", "  ")
	assert.ErrorIs(t, err, merchant.ErrNameEmpty)
}

func TestService_Search(t *testing.T) {
	netflix := newMerchant("Netflix", "NFLX")
	netto := newMerchant("Netto")
	bell := newMerchant("Bell")
	zeta := newMerchant("Zeta Networks")

	ctrl := gomock.NewController(t)
	repo := merchant.NewMockRepository(ctrl)
	repo.EXPECT().ListMerchants(gomock.Any()).Return([]*merchant.Merchant{bell, netto, zeta, netflix}, nil).Times(3)

	svc := merchant.NewService(repo, merchant.NewMockTransactionLinker(ctrl))

	got, err := svc.Search(context.Background(), "nflx", 10)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, netflix, got[0])

	got, err = svc.Search(context.Background(), "net", 2)
	require.NoError(t, err)
	assert.Equal(t, []*merchant.Merchant{netto, zeta}, got)

	got, err = svc.Search(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Equal(t, []*merchant.Merchant{bell, netflix, netto, zeta}, got)
}

func TestService_Create_EmptyName(t *testing.T) {
	ctrl := gomock.NewController(t)

	svc := merchant.NewService(merchant.NewMockRepository(ctrl), merchant.NewMockTransactionLinker(ctrl))
	_, err := svc.Create(context.Background(), merchant.CreateParams{Name: ""})
	assert.ErrorIs(t, err, merchant.ErrNameEmpty)
}

func TestService_Create_DeduplicatesAliases(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := merchant.NewMockRepository(ctrl)

	repo.EXPECT().CreateMerchant(gomock.Any(), gomock.Any()).Return(nil)

	svc := merchant.NewService(repo, merchant.NewMockTransactionLinker(ctrl))
	got, err := svc.Create(context.Background(), merchant.CreateParams{Name: "Netflix", Aliases: []string{"NFLX", "nflx", " ", "NETFLIX.COM"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"NFLX", "NETFLIX.COM"}, got.Aliases)
}
