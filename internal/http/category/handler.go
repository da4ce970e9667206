package category

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tallyhq/tally/internal/category"
	"github.com/tallyhq/tally/internal/http/render"
)

type Handler struct {
	svc *category.Service
}

func NewHandler(svc *category.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

type categoryResponse struct {
	ID             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	IsSplitEnabled bool       `json:"is_split_enabled"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

func toResponse(c *category.Category) categoryResponse {
	return categoryResponse{
		ID:             c.ID,
		Name:           c.Name,
		IsSplitEnabled: c.IsSplitEnabled,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

type categoryRequest struct {
	Name           string `json:"name" validate:"required"`
	IsSplitEnabled bool   `json:"is_split_enabled"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	cs, err := h.svc.List(r.Context())
	if err != nil {
		render.InternalError(w, r, err)
		return
	}

	resp := make([]categoryResponse, len(cs))
	for i, c := range cs {
		resp[i] = toResponse(c)
	}

	render.JSON(w, http.StatusOK, resp)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := render.Decode(r, &req); err != nil {
		render.BadRequest(w, err)
		return
	}

	c, err := h.svc.Create(r.Context(), req.Name, req.IsSplitEnabled)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	render.JSON(w, http.StatusCreated, toResponse(c))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := render.IDParam(w, r, "id")
	if !ok {
		return
	}

	var req categoryRequest
	if err := render.Decode(r, &req); err != nil {
		render.BadRequest(w, err)
		return
	}

	c, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	c.Name = req.Name
	c.IsSplitEnabled = req.IsSplitEnabled

	if err := h.svc.Update(r.Context(), c); err != nil {
		h.fail(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponse(c))
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
	case errors.Is(err, category.ErrNotFound):
		render.NotFound(w, "category")
	case errors.Is(err, category.ErrNameEmpty):
		render.Unprocessable(w, err)
	default:
		render.InternalError(w, r, err)
	}
}
