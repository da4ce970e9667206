package account

import (
	"time"

	"github.com/google/uuid"
)

// Type classifies a chart-of-account entry.
type Type string

const (
	TypeAsset     Type = "asset"
	TypeLiability Type = "liability"
	TypeEquity    Type = "equity"
	TypeIncome    Type = "income"
	TypeExpense   Type = "expense"
	TypeTransfer  Type = "transfer"
)

var types = []Type{TypeAsset, TypeLiability, TypeEquity, TypeIncome, TypeExpense, TypeTransfer}

// Types lists every supported account type.
func Types() []Type {
	return append([]Type(nil), types...)
}

func (t Type) Valid() bool {
	for _, v := range types {
		if t == v {
			return true
		}
	}

	return false
}

// Account is an entry in the chart of accounts. It is the target of both
// direct categorization and individual split lines.
type Account struct {
	ID          uuid.UUID
	Code        string
	Name        string
	Type        Type
	Description string
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}
