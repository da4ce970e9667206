package importfile

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tallyhq/tally/internal/account"
	"github.com/tallyhq/tally/internal/http/render"
	"github.com/tallyhq/tally/internal/importer"
	"github.com/tallyhq/tally/internal/transaction"
)

const maxUpload = 10 << 20

type Handler struct {
	importSvc  *importer.Service
	txSvc      *transaction.Service
	accountSvc *account.Service
}

func NewHandler(importSvc *importer.Service, txSvc *transaction.Service, accountSvc *account.Service) *Handler {
	return &Handler{
		importSvc:  importSvc,
		txSvc:      txSvc,
		accountSvc: accountSvc,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.importFile)
	r.Post("/confirm", h.confirmImport)
}

type transactionResponse struct {
	ID            uuid.UUID          `json:"id"`
	BankAccountID *uuid.UUID         `json:"bank_account_id,omitempty"`
	Amount        int64              `json:"amount"`
	Status        transaction.Status `json:"status"`
	Description   string             `json:"description"`
	Memo          string             `json:"memo,omitempty"`
	Date          time.Time          `json:"date"`
	CreatedAt     time.Time          `json:"created_at"`
}

type importSuccessResponse struct {
	Imported     int                   `json:"imported"`
	Transactions []transactionResponse `json:"transactions"`
}

type createParamsDTO struct {
	BankAccountID *uuid.UUID `json:"bank_account_id,omitempty"`
	AccountID     *uuid.UUID `json:"account_id,omitempty"`
	Amount        int64      `json:"amount" validate:"required"`
	Description   string     `json:"description" validate:"required"`
	Memo          string     `json:"memo,omitempty"`
	ExternalID    string     `json:"external_id,omitempty"`
	Date          time.Time  `json:"date" validate:"required"`
}

type conflictDTO struct {
	Incoming createParamsDTO     `json:"incoming"`
	Existing transactionResponse `json:"existing"`
}

type importConflictResponse struct {
	New       []createParamsDTO `json:"new"`
	Conflicts []conflictDTO     `json:"conflicts"`
}

type confirmRequest struct {
	Params []createParamsDTO `json:"params" validate:"required,min=1,dive"`
}

func (h *Handler) importFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		http.Error(w, "failed to parse form: "+err.Error(), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	format := importer.Format(r.FormValue("format"))
	if format == "" {
		format = importer.DetectFormat(header.Filename)
	}

	if !format.Valid() {
		http.Error(w, "unknown format: "+string(format), http.StatusBadRequest)
		return
	}

	var opts importer.Options

	if s := r.FormValue("bank_account_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			http.Error(w, "invalid bank_account_id", http.StatusBadRequest)
			return
		}

		opts.BankAccountID = &id
	}

	chart, err := h.accountSvc.Chart(r.Context())
	if err != nil {
		render.InternalError(w, r, err)
		return
	}

	if s := chart.Suspense(); s != nil {
		opts.SuspenseAccountID = &s.ID
	}

	params, err := h.importSvc.Import(format, file, opts)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if len(params) == 0 {
		render.Unprocessable(w, errors.New("file contains no transactions"))
		return
	}

	result, err := h.txSvc.ImportBatch(r.Context(), params)
	if err != nil {
		render.InternalError(w, r, err)
		return
	}

	if len(result.Conflicts) > 0 {
		resp := importConflictResponse{
			New:       make([]createParamsDTO, 0, len(result.New)),
			Conflicts: make([]conflictDTO, 0, len(result.Conflicts)),
		}
		for _, p := range result.New {
			resp.New = append(resp.New, toParamsDTO(p))
		}

		for _, c := range result.Conflicts {
			resp.Conflicts = append(resp.Conflicts, conflictDTO{
				Incoming: toParamsDTO(c.Incoming),
				Existing: toTxResponse(c.Existing),
			})
		}

		render.JSON(w, http.StatusConflict, resp)

		return
	}

	render.JSON(w, http.StatusCreated, toSuccessResponse(result.Imported))
}

// confirmImport creates the rows the user kept after reviewing conflicts.
func (h *Handler) confirmImport(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := render.Decode(r, &req); err != nil {
		render.BadRequest(w, err)
		return
	}

	params := make([]transaction.CreateParams, 0, len(req.Params))
	for _, p := range req.Params {
		params = append(params, transaction.CreateParams{
			BankAccountID: p.BankAccountID,
			AccountID:     p.AccountID,
			Amount:        p.Amount,
			Status:        transaction.StatusUncategorized,
			Description:   p.Description,
			Memo:          p.Memo,
			ExternalID:    p.ExternalID,
			Date:          p.Date,
		})
	}

	txs, err := h.txSvc.CreateBatch(r.Context(), params)
	if err != nil {
		render.InternalError(w, r, err)
		return
	}

	render.JSON(w, http.StatusCreated, toSuccessResponse(txs))
}

func toSuccessResponse(txs []*transaction.Transaction) importSuccessResponse {
	responses := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		responses = append(responses, toTxResponse(tx))
	}

	return importSuccessResponse{
		Imported:     len(txs),
		Transactions: responses,
	}
}

func toTxResponse(tx *transaction.Transaction) transactionResponse {
	return transactionResponse{
		ID:            tx.ID,
		BankAccountID: tx.BankAccountID,
		Amount:        tx.Amount,
		Status:        tx.Status,
		Description:   tx.Description,
		Memo:          tx.Memo,
		Date:          tx.Date,
		CreatedAt:     tx.CreatedAt,
	}
}

func toParamsDTO(p transaction.CreateParams) createParamsDTO {
	return createParamsDTO{
		BankAccountID: p.BankAccountID,
		AccountID:     p.AccountID,
		Amount:        p.Amount,
		Description:   p.Description,
		Memo:          p.Memo,
		ExternalID:    p.ExternalID,
		Date:          p.Date,
	}
}
