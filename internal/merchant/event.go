package merchant

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// AliasAdded records that linking a transaction taught a merchant a new alias.
type AliasAdded struct {
	MerchantID    uuid.UUID
	MerchantName  string
	Alias         string
	TransactionID uuid.UUID
	At            time.Time
}

func (e AliasAdded) log() {
	slog.Info("merchant alias added",
		"merchant_id", e.MerchantID,
		"merchant", e.MerchantName,
		"alias", e.Alias,
		"transaction_id", e.TransactionID,
	)
}

// Created records a merchant created implicitly from a transaction.
type Created struct {
	MerchantID    uuid.UUID
	Name          string
	TransactionID uuid.UUID
	At            time.Time
}

func (e Created) log() {
	slog.Info("merchant created",
		"merchant_id", e.MerchantID,
		"merchant", e.Name,
		"transaction_id", e.TransactionID,
	)
}
