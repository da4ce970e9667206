package splitrule

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tallyhq/tally/internal/http/render"
	"github.com/tallyhq/tally/internal/split"
	"github.com/tallyhq/tally/internal/splitrule"
)

type Handler struct {
	svc *splitrule.Service
}

func NewHandler(svc *splitrule.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.replace)
	r.Delete("/{id}", h.delete)
}

type lineDTO struct {
	AccountID   uuid.UUID       `json:"account_id" validate:"required"`
	Description string          `json:"description,omitempty"`
	Percent     decimal.Decimal `json:"percent"`
}

type ruleResponse struct {
	ID           uuid.UUID  `json:"id"`
	MerchantName string     `json:"merchant_name"`
	Lines        []lineDTO  `json:"lines"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

func toResponse(r *splitrule.Rule) ruleResponse {
	lines := make([]lineDTO, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = lineDTO(l)
	}

	return ruleResponse{
		ID:           r.ID,
		MerchantName: r.MerchantName,
		Lines:        lines,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func fromDTO(lines []lineDTO) []splitrule.Line {
	out := make([]splitrule.Line, len(lines))
	for i, l := range lines {
		out[i] = splitrule.Line(l)
	}

	return out
}

// list returns every rule, or the single rule of ?merchant= (404 when the
// merchant has none).
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	if name := r.URL.Query().Get("merchant"); name != "" {
		rule, err := h.svc.GetByMerchantName(r.Context(), name)
		if err != nil {
			render.InternalError(w, r, err)
			return
		}

		if rule == nil {
			render.NotFound(w, "split rule")
			return
		}

		render.JSON(w, http.StatusOK, toResponse(rule))

		return
	}

	rules, err := h.svc.List(r.Context())
	if err != nil {
		render.InternalError(w, r, err)
		return
	}

	resp := make([]ruleResponse, len(rules))
	for i, rule := range rules {
		resp[i] = toResponse(rule)
	}

	render.JSON(w, http.StatusOK, resp)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := render.IDParam(w, r, "id")
	if !ok {
		return
	}

	rule, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponse(rule))
}

type createRuleRequest struct {
	MerchantName string    `json:"merchant_name" validate:"required"`
	Lines        []lineDTO `json:"lines" validate:"required,min=1,dive"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRuleRequest
	if err := render.Decode(r, &req); err != nil {
		render.BadRequest(w, err)
		return
	}

	rule := &splitrule.Rule{MerchantName: req.MerchantName, Lines: fromDTO(req.Lines)}

	if err := h.svc.Add(r.Context(), rule); err != nil {
		h.fail(w, r, err)
		return
	}

	render.JSON(w, http.StatusCreated, toResponse(rule))
}

type replaceRuleRequest struct {
	Lines []lineDTO `json:"lines" validate:"required,min=1,dive"`
}

func (h *Handler) replace(w http.ResponseWriter, r *http.Request) {
	id, ok := render.IDParam(w, r, "id")
	if !ok {
		return
	}

	var req replaceRuleRequest
	if err := render.Decode(r, &req); err != nil {
		render.BadRequest(w, err)
		return
	}

	rule, err := h.svc.Replace(r.Context(), id, fromDTO(req.Lines))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponse(rule))
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

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, splitrule.ErrNotFound):
		render.NotFound(w, "split rule")
	case errors.Is(err, splitrule.ErrRuleExists):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, splitrule.ErrInvalidRule),
		errors.Is(err, splitrule.ErrMerchantName),
		errors.Is(err, split.ErrPercentTotal):
		render.Unprocessable(w, err)
	default:
		render.InternalError(w, r, err)
	}
}
