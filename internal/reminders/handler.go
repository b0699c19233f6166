package reminders

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/makhandasmiles/clinic-api/internal/http/respond"
	"github.com/makhandasmiles/clinic-api/pkg/logging"
)

// Handler provides HTTP endpoints for the reminder admin dashboard.
type Handler struct {
	store  *Store
	logger *logging.Logger
}

// NewHandler creates a reminders HTTP handler.
func NewHandler(store *Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger}
}

// RegisterRoutes mounts reminder endpoints. Expected under /api/admin/reminders.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listReminders)
	r.Get("/stats", h.getStats)
}

func (h *Handler) listReminders(w http.ResponseWriter, r *http.Request) {
	var statusFilter *Status
	if s := r.URL.Query().Get("status"); s != "" {
		st := Status(s)
		if !st.Valid() {
			respond.Error(w, http.StatusBadRequest, "unknown status")
			return
		}
		statusFilter = &st
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	items, err := h.store.List(r.Context(), statusFilter, limit)
	if err != nil {
		h.logger.Error("reminders handler: list reminders", "error", err)
		respond.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	if items == nil {
		items = []Reminder{}
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"reminders": items,
		"count":     len(items),
	})
}

func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		h.logger.Error("reminders handler: stats", "error", err)
		respond.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	respond.JSON(w, http.StatusOK, stats)
}
