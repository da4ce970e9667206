package account

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tallyhq/tally/internal/account"
	"github.com/tallyhq/tally/internal/http/render"
)

type Handler struct {
	svc *account.Service
}

func NewHandler(svc *account.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

type accountResponse struct {
	ID          uuid.UUID    `json:"id"`
	Code        string       `json:"code"`
	Name        string       `json:"name"`
	Type        account.Type `json:"type"`
	Description string       `json:"description,omitempty"`
	Suspense    bool         `json:"suspense,omitempty"`
	Misc        bool         `json:"misc,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   *time.Time   `json:"updated_at,omitempty"`
}

func toResponse(a *account.Account, chart *account.Chart) accountResponse {
	resp := accountResponse{
		ID:          a.ID,
		Code:        a.Code,
		Name:        a.Name,
		Type:        a.Type,
		Description: a.Description,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}

	if chart != nil {
		resp.Suspense = chart.IsSuspense(a.ID)
		resp.Misc = chart.Misc() != nil && chart.Misc().ID == a.ID
	}

	return resp
}

type accountRequest struct {
	Code        string `json:"code" validate:"max=20"`
	Name        string `json:"name" validate:"required"`
	Type        string `json:"type" validate:"required,coa_type"`
	Description string `json:"description"`
}

// list returns the chart in list order with the designated accounts flagged.
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	chart, err := h.svc.Chart(r.Context())
	if err != nil {
		render.InternalError(w, r, err)
		return
	}

	all := chart.All()

	resp := make([]accountResponse, len(all))
	for i, a := range all {
		resp[i] = toResponse(a, chart)
	}

	render.JSON(w, http.StatusOK, resp)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := render.IDParam(w, r, "id")
	if !ok {
		return
	}

	a, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponse(a, nil))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := render.Decode(r, &req); err != nil {
		render.BadRequest(w, err)
		return
	}

	a, err := h.svc.Create(r.Context(), account.CreateParams{
		Code:        req.Code,
		Name:        req.Name,
		Type:        account.Type(strings.ToLower(req.Type)),
		Description: req.Description,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	render.JSON(w, http.StatusCreated, toResponse(a, nil))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := render.IDParam(w, r, "id")
	if !ok {
		return
	}

	var req accountRequest
	if err := render.Decode(r, &req); err != nil {
		render.BadRequest(w, err)
		return
	}

	a, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	a.Code = strings.TrimSpace(req.Code)
	a.Name = strings.TrimSpace(req.Name)
	a.Type = account.Type(strings.ToLower(req.Type))
	a.Description = req.Description

	if err := h.svc.Update(r.Context(), a); err != nil {
		h.fail(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponse(a, nil))
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
	case errors.Is(err, account.ErrNotFound):
		render.NotFound(w, "account")
	case errors.Is(err, account.ErrNameEmpty), errors.Is(err, account.ErrInvalidType):
		render.Unprocessable(w, err)
	default:
		render.InternalError(w, r, err)
	}
}
