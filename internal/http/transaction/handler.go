package transaction

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tallyhq/tally/internal/account"
	"github.com/tallyhq/tally/internal/http/render"
	"github.com/tallyhq/tally/internal/merchant"
	"github.com/tallyhq/tally/internal/split"
	"github.com/tallyhq/tally/internal/transaction"
)

type Handler struct {
	svc       *transaction.Service
	splits    *split.Service
	merchants *merchant.Service
	accounts  *account.Service
}

func NewHandler(svc *transaction.Service, splits *split.Service, merchants *merchant.Service, accounts *account.Service) *Handler {
	return &Handler{svc: svc, splits: splits, merchants: merchants, accounts: accounts}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Delete("/{id}", h.delete)
	r.Patch("/{id}/account", h.setAccount)
	r.Post("/{id}/merchant", h.linkMerchant)
	r.Get("/{id}/splits", h.getSplits)
	r.Put("/{id}/splits", h.replaceSplits)
	r.Delete("/{id}/splits", h.deleteSplits)
	r.Patch("/{id}", h.update)
}

type createTransactionRequest struct {
	BankAccountID *uuid.UUID `json:"bank_account_id"`
	AccountID     *uuid.UUID `json:"account_id"`
	Date          time.Time  `json:"date" validate:"required"`
	Description   string     `json:"description" validate:"required"`
	Memo          string     `json:"memo"`
	Amount        int64      `json:"amount" validate:"required"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := render.Decode(r, &req); err != nil {
		render.BadRequest(w, err)
		return
	}

	chart, err := h.accounts.Chart(r.Context())
	if err != nil {
		render.InternalError(w, r, err)
		return
	}

	params := transaction.CreateParams{
		BankAccountID: req.BankAccountID,
		AccountID:     req.AccountID,
		Date:          req.Date,
		Description:   req.Description,
		Memo:          req.Memo,
		Amount:        req.Amount,
		Status:        transaction.StatusUncategorized,
	}

	switch {
	case params.AccountID == nil:
		if s := chart.Suspense(); s != nil {
			params.AccountID = &s.ID
		}
	case chart.ByID(*params.AccountID) == nil:
		render.Unprocessable(w, account.ErrNotFound)
		return
	case !chart.IsSuspense(*params.AccountID):
		params.Status = transaction.StatusCategorized
	}

	tx, err := h.svc.Create(r.Context(), params)
	if err != nil {
		render.InternalError(w, r, err)
		return
	}

	render.JSON(w, http.StatusCreated, toResponse(tx))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := transaction.ListFilter{}
	q := r.URL.Query()

	if s := q.Get("status"); s != "" {
		status := transaction.Status(s)
		if !status.Valid() {
			http.Error(w, "invalid status", http.StatusBadRequest)
			return
		}

		filter.Status = &status
	}

	if s := q.Get("bank_account_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			http.Error(w, "invalid bank_account_id", http.StatusBadRequest)
			return
		}

		filter.BankAccountID = &id
	}

	if s := q.Get("start_date"); s != "" {
		if t, err := time.Parse(time.DateOnly, s); err == nil {
			filter.StartDate = new(t)
		}
	}

	if s := q.Get("end_date"); s != "" {
		if t, err := time.Parse(time.DateOnly, s); err == nil {
			filter.EndDate = new(t)
		}
	}

	txs, err := h.svc.List(r.Context(), filter)
	if err != nil {
		render.InternalError(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponseList(txs))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := render.IDParam(w, r, "id")
	if !ok {
		return
	}

	tx, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponse(tx))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := render.IDParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type updateTransactionRequest struct {
	Description *string    `json:"description,omitempty" validate:"omitempty,min=1"`
	Memo        *string    `json:"memo,omitempty"`
	Amount      *int64     `json:"amount,omitempty"`
	Date        *time.Time `json:"date,omitempty"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := render.IDParam(w, r, "id")
	if !ok {
		return
	}

	var req updateTransactionRequest
	if err := render.Decode(r, &req); err != nil {
		render.BadRequest(w, err)
		return
	}

	tx, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if req.Amount != nil && *req.Amount != tx.Amount && tx.Status == transaction.StatusSplit {
		render.Unprocessable(w, errors.New("remove the split before changing the amount"))
		return
	}

	if req.Description != nil {
		tx.Description = *req.Description
	}

	if req.Memo != nil {
		tx.Memo = *req.Memo
	}

	if req.Amount != nil {
		tx.Amount = *req.Amount
	}

	if req.Date != nil {
		tx.Date = *req.Date
	}

	if err := h.svc.Update(r.Context(), tx); err != nil {
		h.fail(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponse(tx))
}

type setAccountRequest struct {
	AccountID uuid.UUID `json:"account_id" validate:"required"`
}

// setAccount books the transaction to one account. Choosing Suspense sends
// it back to the review queue. Existing split lines are dropped.
func (h *Handler) setAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := render.IDParam(w, r, "id")
	if !ok {
		return
	}

	var req setAccountRequest
	if err := render.Decode(r, &req); err != nil {
		render.BadRequest(w, err)
		return
	}

	chart, err := h.accounts.Chart(r.Context())
	if err != nil {
		render.InternalError(w, r, err)
		return
	}

	if chart.ByID(req.AccountID) == nil {
		render.Unprocessable(w, account.ErrNotFound)
		return
	}

	tx, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if tx.Status == transaction.StatusSplit {
		if err := h.splits.Delete(r.Context(), id); err != nil {
			render.InternalError(w, r, err)
			return
		}
	}

	if chart.IsSuspense(req.AccountID) {
		err = h.svc.Uncategorize(r.Context(), id, &req.AccountID)
	} else {
		err = h.svc.Categorize(r.Context(), id, req.AccountID)
	}

	if err != nil {
		h.fail(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type linkMerchantRequest struct {
	MerchantID *uuid.UUID `json:"merchant_id" validate:"required_without=Name"`
	Name       string     `json:"name" validate:"required_without=MerchantID"`
}

type linkMerchantResponse struct {
	MerchantID   uuid.UUID `json:"merchant_id"`
	MerchantName string    `json:"merchant_name"`
	Created      bool      `json:"created"`
	AliasAdded   string    `json:"alias_added,omitempty"`
}

func (h *Handler) linkMerchant(w http.ResponseWriter, r *http.Request) {
	id, ok := render.IDParam(w, r, "id")
	if !ok {
		return
	}

	var req linkMerchantRequest
	if err := render.Decode(r, &req); err != nil {
		render.BadRequest(w, err)
		return
	}

	tx, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var resp linkMerchantResponse

	if req.MerchantID != nil {
		m, err := h.merchants.Get(r.Context(), *req.MerchantID)
		if err != nil {
			h.fail(w, r, err)
			return
		}

		alias, err := h.merchants.Link(r.Context(), id, tx.Description, m.ID)
		if err != nil {
			h.fail(w, r, err)
			return
		}

		resp.MerchantID = m.ID
		resp.MerchantName = m.Name

		if alias != nil {
			resp.AliasAdded = alias.Alias
		}
	} else {
		res, err := h.merchants.LinkByName(r.Context(), id, tx.Description, req.Name)
		if err != nil {
			h.fail(w, r, err)
			return
		}

		resp.MerchantID = res.Merchant.ID
		resp.MerchantName = res.Merchant.Name
		resp.Created = res.Created != nil

		if res.Alias != nil {
			resp.AliasAdded = res.Alias.Alias
		}
	}

	render.JSON(w, http.StatusOK, resp)
}

func (h *Handler) getSplits(w http.ResponseWriter, r *http.Request) {
	id, ok := render.IDParam(w, r, "id")
	if !ok {
		return
	}

	lines, err := h.splits.Lines(r.Context(), id)
	if err != nil {
		render.InternalError(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toSplitResponse(lines))
}

type splitLineRequest struct {
	AccountID   uuid.UUID       `json:"account_id" validate:"required"`
	Description string          `json:"description"`
	Percent     decimal.Decimal `json:"percent"`
}

type replaceSplitsRequest struct {
	Lines []splitLineRequest `json:"lines" validate:"required,min=1,dive"`
}

func (h *Handler) replaceSplits(w http.ResponseWriter, r *http.Request) {
	id, ok := render.IDParam(w, r, "id")
	if !ok {
		return
	}

	var req replaceSplitsRequest
	if err := render.Decode(r, &req); err != nil {
		render.BadRequest(w, err)
		return
	}

	tx, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	shares := make([]split.Share, len(req.Lines))
	for i, l := range req.Lines {
		shares[i] = split.Share{AccountID: l.AccountID, Description: l.Description, Percent: l.Percent}
	}

	lines, err := h.splits.Replace(r.Context(), id, tx.Amount, shares)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.svc.MarkSplit(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toSplitResponse(lines))
}

// deleteSplits removes the split and returns the transaction to Suspense.
func (h *Handler) deleteSplits(w http.ResponseWriter, r *http.Request) {
	id, ok := render.IDParam(w, r, "id")
	if !ok {
		return
	}

	chart, err := h.accounts.Chart(r.Context())
	if err != nil {
		render.InternalError(w, r, err)
		return
	}

	if err := h.splits.Delete(r.Context(), id); err != nil {
		render.InternalError(w, r, err)
		return
	}

	var suspense *uuid.UUID
	if s := chart.Suspense(); s != nil {
		suspense = &s.ID
	}

	if err := h.svc.Uncategorize(r.Context(), id, suspense); err != nil {
		h.fail(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, transaction.ErrNotFound):
		render.NotFound(w, "transaction")
	case errors.Is(err, merchant.ErrNotFound):
		render.NotFound(w, "merchant")
	case errors.Is(err, transaction.ErrInvalidStatus),
		errors.Is(err, merchant.ErrNameEmpty),
		errors.Is(err, split.ErrEmpty),
		errors.Is(err, split.ErrMissingAccount),
		errors.Is(err, split.ErrNegativeShare),
		errors.Is(err, split.ErrPercentTotal):
		render.Unprocessable(w, err)
	default:
		render.InternalError(w, r, err)
	}
}
