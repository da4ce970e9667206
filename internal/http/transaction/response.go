package transaction

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tallyhq/tally/internal/split"
	"github.com/tallyhq/tally/internal/transaction"
)

type transactionResponse struct {
	ID            uuid.UUID          `json:"id"`
	BankAccountID *uuid.UUID         `json:"bank_account_id,omitempty"`
	Date          time.Time          `json:"date"`
	Description   string             `json:"description"`
	Memo          string             `json:"memo,omitempty"`
	ExternalID    string             `json:"external_id,omitempty"`
	Amount        int64              `json:"amount"`
	Status        transaction.Status `json:"status"`
	AccountID     *uuid.UUID         `json:"account_id,omitempty"`
	MerchantID    *uuid.UUID         `json:"merchant_id,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     *time.Time         `json:"updated_at,omitempty"`
}

func toResponse(tx *transaction.Transaction) transactionResponse {
	return transactionResponse{
		ID:            tx.ID,
		BankAccountID: tx.BankAccountID,
		Date:          tx.Date,
		Description:   tx.Description,
		Memo:          tx.Memo,
		ExternalID:    tx.ExternalID,
		Amount:        tx.Amount,
		Status:        tx.Status,
		AccountID:     tx.AccountID,
		MerchantID:    tx.MerchantID,
		CreatedAt:     tx.CreatedAt,
		UpdatedAt:     tx.UpdatedAt,
	}
}

func toResponseList(txs []*transaction.Transaction) []transactionResponse {
	resp := make([]transactionResponse, len(txs))
	for i, tx := range txs {
		resp[i] = toResponse(tx)
	}

	return resp
}

type splitLineResponse struct {
	ID          uuid.UUID       `json:"id"`
	AccountID   uuid.UUID       `json:"account_id"`
	Description string          `json:"description,omitempty"`
	Percent     decimal.Decimal `json:"percent"`
	Amount      int64           `json:"amount"`
	Position    int             `json:"position"`
}

func toSplitResponse(lines []*split.Line) []splitLineResponse {
	resp := make([]splitLineResponse, len(lines))
	for i, l := range lines {
		resp[i] = splitLineResponse{
			ID:          l.ID,
			AccountID:   l.AccountID,
			Description: l.Description,
			Percent:     l.Percent,
			Amount:      l.Amount,
			Position:    l.Position,
		}
	}

	return resp
}
