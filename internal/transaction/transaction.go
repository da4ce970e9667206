package transaction

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the categorization state of a transaction.
type Status string

const (
	StatusUncategorized Status = "uncategorized"
	StatusCategorized   Status = "categorized"
	StatusSplit         Status = "split"
)

func (s Status) Valid() bool {
	switch s {
	case StatusUncategorized, StatusCategorized, StatusSplit:
		return true
	}

	return false
}

// Transaction is a bank movement imported from a statement.
type Transaction struct {
	ID            uuid.UUID
	BankAccountID *uuid.UUID // Account the statement was imported into
	Date          time.Time
	Description   string // Raw bank description
	Memo          string
	ExternalID    string
	Amount        int64 // Signed cents, positive for credits
	Status        Status
	AccountID     *uuid.UUID // Chart-of-account; nil once split
	MerchantID    *uuid.UUID
	CreatedAt     time.Time
	UpdatedAt     *time.Time
	DeletedAt     *time.Time
}

func (t *Transaction) IsDebit() bool {
	return t.Amount < 0
}

// AbsAmount returns the amount in cents without its sign.
func (t *Transaction) AbsAmount() int64 {
	if t.Amount < 0 {
		return -t.Amount
	}

	return t.Amount
}

// Key identifies a transaction for duplicate detection on import.
type Key struct {
	Date        string
	Amount      int64
	Description string
	ExternalID  string
}

func (t *Transaction) Key() Key {
	return Key{
		Date:        t.Date.Format(time.DateOnly),
		Amount:      t.Amount,
		Description: t.Description,
		ExternalID:  t.ExternalID,
	}
}
