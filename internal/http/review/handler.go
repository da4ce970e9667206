// Package review exposes the bulk categorization workflow. Sessions are not
// kept between requests: each call reloads the batch from its filter.
package review

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tallyhq/tally/internal/http/render"
	"github.com/tallyhq/tally/internal/review"
	"github.com/tallyhq/tally/internal/split"
	"github.com/tallyhq/tally/internal/transaction"
)

type Handler struct {
	svc *review.Service
}

func NewHandler(svc *review.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/suggestions", h.suggestions)
	r.Post("/apply", h.apply)
}

type filterRequest struct {
	BankAccountID *uuid.UUID `json:"bank_account_id"`
	Status        string     `json:"status" validate:"omitempty,tx_status"`
	StartDate     string     `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate       string     `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
}

func (f filterRequest) toFilter() review.Filter {
	filter := review.Filter{BankAccountID: f.BankAccountID}

	if f.Status != "" {
		filter.Status = new(transaction.Status(f.Status))
	}

	if t, err := time.Parse(time.DateOnly, f.StartDate); err == nil {
		filter.StartDate = &t
	}

	if t, err := time.Parse(time.DateOnly, f.EndDate); err == nil {
		filter.EndDate = &t
	}

	return filter
}

type ruleLineResponse struct {
	AccountID   uuid.UUID       `json:"account_id"`
	Description string          `json:"description,omitempty"`
	Percent     decimal.Decimal `json:"percent"`
}

type itemResponse struct {
	TransactionID uuid.UUID          `json:"transaction_id"`
	Date          time.Time          `json:"date"`
	Description   string             `json:"description"`
	Amount        int64              `json:"amount"`
	Status        transaction.Status `json:"status"`
	Suggestion    string             `json:"suggestion"`
	MerchantName  string             `json:"merchant_name,omitempty"`
	CategoryName  string             `json:"category_name,omitempty"`
	AccountID     *uuid.UUID         `json:"account_id,omitempty"`
	Reason        string             `json:"reason,omitempty"`
	DefaultRule   []ruleLineResponse `json:"default_rule,omitempty"`
	Eligible      bool               `json:"eligible"`
	Path          review.Path        `json:"path"`
}

func (h *Handler) suggestions(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if err := render.Decode(r, &req); err != nil {
		render.BadRequest(w, err)
		return
	}

	sess, err := h.svc.Open(r.Context(), req.toFilter())
	if err != nil {
		render.InternalError(w, r, err)
		return
	}

	chart := sess.Chart()
	resp := make([]itemResponse, 0, sess.Len())

	for _, it := range sess.Items() {
		tx := it.Transaction
		ir := itemResponse{
			TransactionID: tx.ID,
			Date:          tx.Date,
			Description:   tx.Description,
			Amount:        tx.Amount,
			Status:        tx.Status,
			Suggestion:    string(it.Suggestion.Kind),
			MerchantName:  it.MerchantName(),
			CategoryName:  it.Suggestion.CategoryName,
			AccountID:     it.Suggestion.AccountID(),
			Reason:        it.Suggestion.Reason,
			Eligible:      it.Eligible(chart),
			Path:          it.Path(chart),
		}

		if it.DefaultRule.Usable() {
			for _, l := range it.DefaultRule.Lines {
				ir.DefaultRule = append(ir.DefaultRule, ruleLineResponse(l))
			}
		}

		resp = append(resp, ir)
	}

	render.JSON(w, http.StatusOK, resp)
}

type shareRequest struct {
	AccountID   uuid.UUID       `json:"account_id" validate:"required"`
	Description string          `json:"description"`
	Percent     decimal.Decimal `json:"percent"`
}

// decisionRequest carries either an account or split lines. An entry with
// neither applies the default rule or suggestion.
type decisionRequest struct {
	TransactionID uuid.UUID      `json:"transaction_id" validate:"required"`
	AccountID     *uuid.UUID     `json:"account_id"`
	Lines         []shareRequest `json:"lines" validate:"omitempty,dive"`
}

type applyRequest struct {
	filterRequest
	Decisions      []decisionRequest `json:"decisions" validate:"dive"`
	SelectEligible bool              `json:"select_eligible"`
	SaveRules      bool              `json:"save_rules"`
}

type failureResponse struct {
	TransactionID uuid.UUID   `json:"transaction_id"`
	Path          review.Path `json:"path"`
	Error         string      `json:"error"`
}

type reportResponse struct {
	Updated  int                 `json:"updated"`
	Failed   int                 `json:"failed"`
	Skipped  int                 `json:"skipped"`
	ByPath   map[review.Path]int `json:"by_path"`
	Failures []failureResponse   `json:"failures,omitempty"`
	Summary  string              `json:"summary"`

	// Interrupted is set when the request was cancelled mid-batch; items
	// after the last processed one were not touched.
	Interrupted bool `json:"interrupted"`
}

func (h *Handler) apply(w http.ResponseWriter, r *http.Request) {
	var req applyRequest
	if err := render.Decode(r, &req); err != nil {
		render.BadRequest(w, err)
		return
	}

	if len(req.Decisions) == 0 && !req.SelectEligible {
		render.Unprocessable(w, errors.New("no decisions and select_eligible not set"))
		return
	}

	sess, err := h.svc.Open(r.Context(), req.filterRequest.toFilter())
	if err != nil {
		render.InternalError(w, r, err)
		return
	}

	for _, d := range req.Decisions {
		if err := record(sess, d); err != nil {
			h.fail(w, r, d.TransactionID, err)
			return
		}

		sess.Select(d.TransactionID)
	}

	if req.SelectEligible {
		sess.SelectEligible()
	}

	report, err := h.svc.Apply(r.Context(), sess, nil, review.ApplyOptions{SaveRules: req.SaveRules})
	if err != nil && report == nil {
		render.InternalError(w, r, err)
		return
	}

	resp := reportResponse{
		Updated:     report.Updated,
		Failed:      report.Failed,
		Skipped:     report.Skipped,
		ByPath:      report.ByPath,
		Summary:     report.Summary(),
		Interrupted: err != nil,
	}

	if err != nil {
		slog.Warn("bulk apply stopped early", "updated", report.Updated, "error", err)
	}

	for _, f := range report.Failures {
		resp.Failures = append(resp.Failures, failureResponse{TransactionID: f.TransactionID, Path: f.Path, Error: f.Err.Error()})
	}

	render.JSON(w, http.StatusOK, resp)
}

func record(sess *review.Session, d decisionRequest) error {
	if len(d.Lines) > 0 {
		shares := make([]split.Share, len(d.Lines))
		for i, l := range d.Lines {
			shares[i] = split.Share{AccountID: l.AccountID, Description: l.Description, Percent: l.Percent}
		}

		return sess.SetShares(d.TransactionID, shares)
	}

	if d.AccountID != nil {
		return sess.SetAccount(d.TransactionID, *d.AccountID)
	}

	if _, ok := sess.Item(d.TransactionID); !ok {
		return review.ErrItemNotFound
	}

	return nil
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, id uuid.UUID, err error) {
	switch {
	case errors.Is(err, review.ErrItemNotFound):
		render.NotFound(w, "transaction "+id.String())
	case errors.Is(err, review.ErrUnknownAccount),
		errors.Is(err, split.ErrEmpty),
		errors.Is(err, split.ErrMissingAccount),
		errors.Is(err, split.ErrNegativeShare),
		errors.Is(err, split.ErrPercentTotal):
		render.Unprocessable(w, err)
	default:
		render.InternalError(w, r, err)
	}
}
