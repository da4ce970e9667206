package merchant

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tallyhq/tally/internal/http/render"
	"github.com/tallyhq/tally/internal/merchant"
)

const defaultSearchLimit = 20

type Handler struct {
	svc *merchant.Service
}

func NewHandler(svc *merchant.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/match", h.match)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

type merchantResponse struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	Aliases    []string   `json:"aliases"`
	CategoryID *uuid.UUID `json:"category_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

func toResponse(m *merchant.Merchant) merchantResponse {
	aliases := m.Aliases
	if aliases == nil {
		aliases = []string{}
	}

	return merchantResponse{
		ID:         m.ID,
		Name:       m.Name,
		Aliases:    aliases,
		CategoryID: m.CategoryID,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

func toResponseList(ms []*merchant.Merchant) []merchantResponse {
	resp := make([]merchantResponse, len(ms))
	for i, m := range ms {
		resp[i] = toResponse(m)
	}

	return resp
}

// list returns the directory, or ranked search results when q is set.
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		ms  []*merchant.Merchant
		err error
	)

	if query := q.Get("q"); query != "" {
		limit := defaultSearchLimit
		if s := q.Get("limit"); s != "" {
			if n, err := strconv.Atoi(s); err == nil && n > 0 {
				limit = n
			}
		}

		ms, err = h.svc.Search(r.Context(), query, limit)
	} else {
		ms, err = h.svc.List(r.Context())
	}

	if err != nil {
		render.InternalError(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponseList(ms))
}

type matchResponse struct {
	Description string            `json:"description"`
	Merchant    *merchantResponse `json:"merchant"`
}

func (h *Handler) match(w http.ResponseWriter, r *http.Request) {
	desc := r.URL.Query().Get("description")
	if desc == "" {
		http.Error(w, "description query parameter is required", http.StatusBadRequest)
		return
	}

	m, err := h.svc.Match(r.Context(), desc)
	if err != nil {
		render.InternalError(w, r, err)
		return
	}

	resp := matchResponse{Description: desc}
	if m != nil {
		mr := toResponse(m)
		resp.Merchant = &mr
	}

	render.JSON(w, http.StatusOK, resp)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := render.IDParam(w, r, "id")
	if !ok {
		return
	}

	m, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponse(m))
}

type merchantRequest struct {
	Name       string     `json:"name" validate:"required"`
	Aliases    []string   `json:"aliases"`
	CategoryID *uuid.UUID `json:"category_id"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req merchantRequest
	if err := render.Decode(r, &req); err != nil {
		render.BadRequest(w, err)
		return
	}

	m, err := h.svc.Create(r.Context(), merchant.CreateParams{
		Name:       req.Name,
		Aliases:    req.Aliases,
		CategoryID: req.CategoryID,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	render.JSON(w, http.StatusCreated, toResponse(m))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := render.IDParam(w, r, "id")
	if !ok {
		return
	}

	var req merchantRequest
	if err := render.Decode(r, &req); err != nil {
		render.BadRequest(w, err)
		return
	}

	m, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	m.Name = req.Name
	m.Aliases = req.Aliases
	m.CategoryID = req.CategoryID

	if err := h.svc.Update(r.Context(), m); err != nil {
		h.fail(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponse(m))
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
	case errors.Is(err, merchant.ErrNotFound):
		render.NotFound(w, "merchant")
	case errors.Is(err, merchant.ErrNameEmpty):
		render.Unprocessable(w, err)
	default:
		render.InternalError(w, r, err)
	}
}
