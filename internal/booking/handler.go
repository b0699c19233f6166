package booking

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/makhandasmiles/clinic-api/internal/appointments"
	"github.com/makhandasmiles/clinic-api/internal/clinic"
	"github.com/makhandasmiles/clinic-api/internal/http/middleware"
	"github.com/makhandasmiles/clinic-api/internal/http/respond"
	"github.com/makhandasmiles/clinic-api/pkg/logging"
)

// Handler serves the public booking endpoint and the staff appointment actions.
type Handler struct {
	writer   *Writer
	calendar *clinic.Calendar
	logger   *logging.Logger
}

// NewHandler creates a booking HTTP handler.
func NewHandler(writer *Writer, calendar *clinic.Calendar, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if calendar == nil {
		calendar = clinic.NewCalendar(clinic.DefaultTimezone)
	}
	return &Handler{writer: writer, calendar: calendar, logger: logger}
}

// RegisterPublicRoutes mounts under /api/appointments.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/", h.create)
}

// RegisterAdminRoutes mounts under /api/admin/appointments.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/", h.listByDate)
	r.Get("/{id}", h.get)
	r.Patch("/{id}/status", h.updateStatus)
	r.Patch("/{id}/reschedule", h.reschedule)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	a, err := h.writer.Book(r.Context(), req)
	if err != nil {
		h.writeError(w, "book", err)
		return
	}
	respond.JSON(w, http.StatusCreated, a)
}

func (h *Handler) listByDate(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = h.calendar.Today()
	}
	items, err := h.writer.ListByDate(r.Context(), date)
	if err != nil {
		h.writeError(w, "list", err)
		return
	}
	if items == nil {
		items = []appointments.Appointment{}
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"date":         date,
		"appointments": items,
		"count":        len(items),
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	a, err := h.writer.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, "get", err)
		return
	}
	respond.JSON(w, http.StatusOK, a)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	a, err := h.writer.UpdateStatus(r.Context(), id, req)
	if err != nil {
		h.writeError(w, "update status", err)
		return
	}
	h.audit(r, "update_status", a)
	respond.JSON(w, http.StatusOK, a)
}

func (h *Handler) reschedule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req RescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	a, err := h.writer.Reschedule(r.Context(), id, req)
	if err != nil {
		h.writeError(w, "reschedule", err)
		return
	}
	h.audit(r, "reschedule", a)
	respond.JSON(w, http.StatusOK, a)
}

// audit records which staff member changed an appointment.
func (h *Handler) audit(r *http.Request, action string, a *appointments.Appointment) {
	claims, _ := middleware.AdminClaimsFromContext(r.Context())
	h.logger.Info("staff appointment action", "action", action, "appointment_id", a.ID,
		"status", a.Status, "date", a.Date, "time", a.Time, "actor", claims.Subject, "role", claims.Role)
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid appointment id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case IsValidation(err):
		respond.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, appointments.ErrSlotTaken):
		respond.Error(w, http.StatusConflict, "This time slot is no longer available")
	case errors.Is(err, appointments.ErrInvalidTransition):
		respond.Error(w, http.StatusConflict, "appointment cannot change from its current status")
	case errors.Is(err, appointments.ErrNotFound):
		respond.Error(w, http.StatusNotFound, "appointment not found")
	default:
		h.logger.Error("booking handler: "+op, "error", err)
		respond.Error(w, http.StatusInternalServerError, "internal error")
	}
}
