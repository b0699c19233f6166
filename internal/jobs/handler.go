package jobs

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/makhandasmiles/clinic-api/internal/http/respond"
	"github.com/makhandasmiles/clinic-api/pkg/logging"
)

// Handler exposes the runner as POST /api/cron/{job}. Authentication is the
// caller's middleware.
type Handler struct {
	runner *Runner
	logger *logging.Logger
}

// NewHandler creates the cron HTTP handler.
func NewHandler(runner *Runner, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{runner: runner, logger: logger}
}

// RegisterRoutes mounts one POST route per job.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/{job}", h.run)
}

func (h *Handler) run(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "job")
	job, ok := h.runner.Lookup(name)
	if !ok {
		respond.Error(w, http.StatusNotFound, "unknown job")
		return
	}

	result, err := h.runner.Run(r.Context(), name)
	switch {
	case errors.Is(err, ErrBusy):
		respond.JSON(w, http.StatusOK, map[string]any{
			"success": true,
			"skipped": true,
			"message": "Job already running",
		})
	case err != nil:
		respond.Failure(w, http.StatusInternalServerError, job.FailureMessage, err)
	default:
		respond.JSON(w, http.StatusOK, result)
	}
}
