package merchant_test

import (
	"regexp"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallyhq/tally/internal/merchant"
)

func newMerchant(name string, aliases ...string) *merchant.Merchant {
	return &merchant.Merchant{ID: uuid.New(), Name: name, Aliases: aliases}
}

func TestFindMatch(t *testing.T) {
	coffee := newMerchant("Coffee Shop", "COFFEE SHOP #123")
	bell := newMerchant("Bell")
	amazon := newMerchant("Amazon", "AMZN MKTP")
	shell := newMerchant("Shell")

	directory := []*merchant.Merchant{coffee, bell, amazon, shell}

	type testCase struct {
		name        string
		description string
		want        *merchant.Merchant
	}

	tests := []testCase{
		{name: "AliasWithSuffix", description: "COFFEE SHOP #123 TORONTO", want: coffee},
		{name: "PrefixOfLongerWord", description: "BELLE INTERNET INC", want: nil},
		{name: "WholeWord", description: "BELL CANADA PAYMENT", want: bell},
		{name: "CaseInsensitive", description: "bell mobility", want: bell},
		{name: "PunctuationBoundary", description: "POS*AMZN MKTP/US", want: amazon},
		{name: "SuffixOfLongerWord", description: "SEASHELL GIFTS", want: nil},
		{name: "LaterOccurrenceBounded", description: "BELLEVUE BELL STORE", want: bell},
		{name: "DirectoryOrderWins", description: "SHELL AT BELL PLAZA", want: bell},
		{name: "EmptyDescription", description: "   ", want: nil},
		{name: "NoMerchant", description: "GROCERY OUTLET", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, merchant.FindMatch(tt.description, directory))
		})
	}
}

func TestFindMatch_IgnoresEmptyNeedles(t *testing.T) {
	m := newMerchant("", "", "  ")
	assert.Nil(t, merchant.FindMatch("ANYTHING", []*merchant.Merchant{m}))
}

func TestFindMatch_UnicodeBoundaries(t *testing.T) {
	cafe := newMerchant("Café")

	assert.Equal(t, cafe, merchant.FindMatch("PAGAMENTO CAFÉ CENTRAL", []*merchant.Merchant{cafe}))
	assert.Nil(t, merchant.FindMatch("CAFÉS DO BRASIL", []*merchant.Merchant{cafe}))
}

// A returned merchant always has a needle that occurs as a whole token.
func TestFindMatch_NoFalsePositives(t *testing.T) {
	faker := gofakeit.New(42)

	for range 500 {
		var directory []*merchant.Merchant
		for range faker.IntRange(1, 6) {
			directory = append(directory, newMerchant(faker.Company(), strings.ToUpper(faker.Word())))
		}

		words := make([]string, faker.IntRange(2, 8))
		for i := range words {
			switch faker.IntRange(0, 3) {
			case 0:
				pick := directory[faker.IntRange(0, len(directory)-1)]
				words[i] = strings.ToUpper(pick.Name) + faker.Word()
			case 1:
				words[i] = faker.Word()
			default:
				words[i] = strings.ToUpper(faker.Noun())
			}
		}

		desc := strings.Join(words, faker.RandomString([]string{" ", "*", "/", "-", ""}))

		got := merchant.FindMatch(desc, directory)
		if got == nil {
			continue
		}

		assert.True(t, occursAsToken(desc, got.Needles()), "merchant %q matched %q", got.Name, desc)
	}
}

func occursAsToken(desc string, needles []string) bool {
	for _, n := range needles {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}

		re := regexp.MustCompile(`(?i)(^|[^\p{L}\p{N}])` + regexp.QuoteMeta(n) + `($|[^\p{L}\p{N}])`)
		if re.MatchString(desc) {
			return true
		}
	}

	return false
}

func TestNormalizeAlias(t *testing.T) {
	type testCase struct {
		raw  string
		want string
	}

	tests := []testCase{
		{raw: "COFFEE SHOP #123", want: "COFFEE SHOP"},
		{raw: "WALMART W526", want: "WALMART"},
		{raw: "PETRO CANADA 4411", want: "PETRO CANADA"},
		{raw: "SQ *BLUE  BOTTLE", want: "SQ BLUE BOTTLE"},
		{raw: "  UBER   *TRIP  ", want: "UBER TRIP"},
		{raw: "STORE 12 #34", want: "STORE"},
		{raw: "7 ELEVEN", want: "7 ELEVEN"},
		{raw: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, merchant.NormalizeAlias(tt.raw))
		})
	}
}

func TestCanonicalName(t *testing.T) {
	assert.Equal(t, "Coffee Shop", merchant.CanonicalName("COFFEE SHOP #123"))
	assert.Equal(t, "Uber Trip", merchant.CanonicalName("UBER *TRIP"))
}

func TestMerchant_LearnAlias(t *testing.T) {
	type testCase struct {
		name      string
		merchant  *merchant.Merchant
		raw       string
		wantAlias string
		wantAdded bool
		wantLen   int
	}

	tests := []testCase{
		{
			name:      "NewAlias",
			merchant:  newMerchant("Netflix"),
			raw:       "NFLX DIGITAL 8443",
			wantAlias: "NFLX DIGITAL",
			wantAdded: true,
			wantLen:   1,
		},
		{
			name:      "AlreadyPresentDifferentCase",
			merchant:  newMerchant("Netflix", "nflx digital"),
			raw:       "NFLX DIGITAL #99",
			wantAlias: "NFLX DIGITAL",
			wantLen:   1,
		},
		{
			name:      "SubsumedByExistingAlias",
			merchant:  newMerchant("Coffee Shop", "COFFEE SHOP"),
			raw:       "COFFEE SHOP TORONTO #7",
			wantAlias: "COFFEE SHOP TORONTO",
			wantLen:   1,
		},
		{
			name:      "SubsumedByName",
			merchant:  newMerchant("Bell"),
			raw:       "BELL CANADA",
			wantAlias: "BELL CANADA",
			wantLen:   0,
		},
		{
			name:      "NotSubsumedByPrefix",
			merchant:  newMerchant("Bell"),
			raw:       "BELLE INTERNET",
			wantAlias: "BELLE INTERNET",
			wantAdded: true,
			wantLen:   1,
		},
		{
			name:     "EmptyAfterNormalizing",
			merchant: newMerchant("Bell"),
			raw:      "   ",
			wantLen:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alias, added := tt.merchant.LearnAlias(tt.raw)

			assert.Equal(t, tt.wantAlias, alias)
			assert.Equal(t, tt.wantAdded, added)
			require.Len(t, tt.merchant.Aliases, tt.wantLen)
		})
	}
}
