package statement

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tallyhq/tally/internal/http/render"
	"github.com/tallyhq/tally/internal/statement"
)

const maxUploadSize = 20 << 20

type Handler struct {
	svc *statement.Service
}

func NewHandler(svc *statement.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/extract", h.extract)
	r.Post("/", h.save)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
}

type statementResponse struct {
	ID            uuid.UUID          `json:"id"`
	Institution   string             `json:"institution"`
	AccountNumber string             `json:"account_number,omitempty"`
	PeriodStart   *time.Time         `json:"period_start,omitempty"`
	PeriodEnd     *time.Time         `json:"period_end,omitempty"`
	Source        statement.Source   `json:"source"`
	Document      statement.Document `json:"document"`
	CreatedAt     time.Time          `json:"created_at"`
}

func toResponse(st *statement.Statement) statementResponse {
	return statementResponse{
		ID:            st.ID,
		Institution:   st.Institution,
		AccountNumber: st.AccountNumber,
		PeriodStart:   st.PeriodStart,
		PeriodEnd:     st.PeriodEnd,
		Source:        st.Source,
		Document:      st.Document,
		CreatedAt:     st.CreatedAt,
	}
}

// extract runs an extractor over an uploaded PDF and returns the document
// for review without storing it.
func (h *Handler) extract(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "file too large or invalid form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	pdf, err := io.ReadAll(file)
	if err != nil {
		render.InternalError(w, r, err)
		return
	}

	source := statement.Source(r.FormValue("source"))
	if source == "" {
		source = statement.SourceLocal
	}

	doc, err := h.svc.Extract(r.Context(), source, header.Filename, pdf)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, doc)
}

type saveRequest struct {
	Source   statement.Source   `json:"source" validate:"required,oneof=local vision manual"`
	Document statement.Document `json:"document"`
}

func (h *Handler) save(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := render.Decode(r, &req); err != nil {
		render.BadRequest(w, err)
		return
	}

	st, err := h.svc.Save(r.Context(), req.Source, req.Document)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	render.JSON(w, http.StatusCreated, toResponse(st))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	sts, err := h.svc.List(r.Context(), r.URL.Query().Get("institution"))
	if err != nil {
		render.InternalError(w, r, err)
		return
	}

	resp := make([]statementResponse, len(sts))
	for i, st := range sts {
		resp[i] = toResponse(st)
	}

	render.JSON(w, http.StatusOK, resp)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := render.IDParam(w, r, "id")
	if !ok {
		return
	}

	st, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponse(st))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, statement.ErrNotFound):
		render.NotFound(w, "statement")
	case errors.Is(err, statement.ErrUnknownSource),
		errors.Is(err, statement.ErrMissingInstitution),
		errors.Is(err, statement.ErrInvalidDate),
		errors.Is(err, statement.ErrEmptyDocument):
		render.Unprocessable(w, err)
	case errors.Is(err, statement.ErrExtraction):
		render.JSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
	default:
		render.InternalError(w, r, err)
	}
}
