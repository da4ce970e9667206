package export

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tallyhq/tally/internal/export"
	"github.com/tallyhq/tally/internal/transaction"
)

type Handler struct {
	svc *export.Service
	now func() time.Time
}

func NewHandler(svc *export.Service) *Handler {
	return &Handler{svc: svc, now: time.Now}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/transactions.csv", h.transactions)
}

func (h *Handler) transactions(w http.ResponseWriter, r *http.Request) {
	filter := transaction.ListFilter{}
	q := r.URL.Query()

	for _, p := range []struct {
		name string
		dst  **time.Time
	}{
		{"start_date", &filter.StartDate},
		{"end_date", &filter.EndDate},
	} {
		s := q.Get(p.name)
		if s == "" {
			continue
		}

		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			http.Error(w, "invalid "+p.name, http.StatusBadRequest)
			return
		}

		*p.dst = &t
	}

	if s := q.Get("bank_account_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			http.Error(w, "invalid bank_account_id", http.StatusBadRequest)
			return
		}

		filter.BankAccountID = &id
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", export.Filename(h.now())))

	n, err := h.svc.WriteCSV(r.Context(), filter, w)
	if err != nil {
		// Headers are gone once the first row is written.
		slog.Error("failed to export transactions", "rows", n, "error", err)

		if n == 0 {
			http.Error(w, "internal error", http.StatusInternalServerError)
		}

		return
	}

	slog.Info("transactions exported", "rows", n)
}
