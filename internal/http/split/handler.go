// Package split serves the split calculator used by the split editor.
package split

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tallyhq/tally/internal/http/render"
	"github.com/tallyhq/tally/internal/split"
)

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/preview", h.preview)
}

// previewRow sets either a percent or an amount in currency units. When
// both are present the amount wins, as the last edit in the editor would.
type previewRow struct {
	Description string           `json:"description"`
	AccountID   *uuid.UUID       `json:"account_id"`
	Percent     *decimal.Decimal `json:"percent"`
	Amount      *decimal.Decimal `json:"amount"`
}

type previewRequest struct {
	Amount             int64        `json:"amount" validate:"required"`
	RemainderAccountID *uuid.UUID   `json:"remainder_account_id"`
	Rows               []previewRow `json:"rows" validate:"dive"`
}

type allocationDTO struct {
	ID          int             `json:"id,omitempty"`
	Description string          `json:"description"`
	AccountID   *uuid.UUID      `json:"account_id,omitempty"`
	Percent     decimal.Decimal `json:"percent"`
	Amount      decimal.Decimal `json:"amount"`
}

type lineDTO struct {
	AccountID   uuid.UUID       `json:"account_id"`
	Description string          `json:"description,omitempty"`
	Percent     decimal.Decimal `json:"percent"`
	Amount      int64           `json:"amount"`
}

type previewResponse struct {
	Total     decimal.Decimal `json:"total"`
	Rows      []allocationDTO `json:"rows"`
	Remainder allocationDTO   `json:"remainder"`
	Valid     bool            `json:"valid"`
	Error     string          `json:"error,omitempty"`
	Lines     []lineDTO       `json:"lines,omitempty"`
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := render.Decode(r, &req); err != nil {
		render.BadRequest(w, err)
		return
	}

	sheet := split.NewSheet(decimal.New(req.Amount, -2), req.RemainderAccountID)

	for i, row := range req.Rows {
		id := sheet.AddRow(row.Description, row.AccountID)

		var err error

		switch {
		case row.Amount != nil:
			err = sheet.SetAmount(id, *row.Amount)
		case row.Percent != nil:
			err = sheet.SetPercent(id, *row.Percent)
		}

		if err != nil {
			render.Unprocessable(w, fmt.Errorf("row %d: %w", i+1, err))
			return
		}
	}

	resp := previewResponse{Total: sheet.Total()}

	for _, f := range sheet.Rows() {
		resp.Rows = append(resp.Rows, allocationDTO{
			ID:          f.ID,
			Description: f.Description,
			AccountID:   f.AccountID,
			Percent:     f.Percent,
			Amount:      f.Amount,
		})
	}

	rem := sheet.Remainder()
	resp.Remainder = allocationDTO{
		Description: rem.Description,
		AccountID:   rem.AccountID,
		Percent:     rem.Percent,
		Amount:      rem.Amount,
	}

	shares, err := sheet.Shares()
	if err != nil {
		resp.Error = err.Error()
		render.JSON(w, http.StatusOK, resp)

		return
	}

	resp.Valid = true

	for _, l := range split.Allocate(uuid.Nil, req.Amount, shares) {
		resp.Lines = append(resp.Lines, lineDTO{
			AccountID:   l.AccountID,
			Description: l.Description,
			Percent:     l.Percent,
			Amount:      l.Amount,
		})
	}

	render.JSON(w, http.StatusOK, resp)
}
