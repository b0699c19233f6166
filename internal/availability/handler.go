package availability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/makhandasmiles/clinic-api/internal/clinic"
	"github.com/makhandasmiles/clinic-api/internal/http/respond"
	"github.com/makhandasmiles/clinic-api/pkg/logging"
)

// DegradedHeader is set on fail-soft responses that hid a backend error.
const DegradedHeader = "X-Availability-Degraded"

// Handler serves the public availability endpoints.
type Handler struct {
	resolver *Resolver
	calendar *clinic.Calendar
	logger   *logging.Logger
}

// NewHandler creates an availability HTTP handler.
func NewHandler(resolver *Resolver, calendar *clinic.Calendar, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if calendar == nil {
		calendar = clinic.NewCalendar(clinic.DefaultTimezone)
	}
	return &Handler{resolver: resolver, calendar: calendar, logger: logger}
}

// RegisterRoutes mounts the endpoints under /api/availability.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/slots", h.Slots)
	r.Get("/month", h.Month)
}

// Slots handles GET /api/availability/slots?date=YYYY-MM-DD.
// The date defaults to today in the clinic zone.
func (h *Handler) Slots(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = h.calendar.Today()
	}
	if _, err := clinic.ParseDate(date); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	slots, degraded := h.resolver.slotsOrEmpty(r.Context(), date)
	if degraded {
		h.logger.Warn("availability handler: serving degraded slots", "date", date)
		w.Header().Set(DegradedHeader, "true")
	}
	respond.JSON(w, http.StatusOK, slots)
}

// Month handles GET /api/availability/month?year=2024&month=6 (month is 1-12).
// Missing values default to the current clinic month.
func (h *Handler) Month(w http.ResponseWriter, r *http.Request) {
	now := h.calendar.Now()
	year, month := now.Year(), int(now.Month())

	if v := r.URL.Query().Get("year"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respond.Error(w, http.StatusBadRequest, "invalid year")
			return
		}
		year = n
	}
	if v := r.URL.Query().Get("month"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, "invalid month")
			return
		}
		month = n
	}
	if month < 1 || month > 12 {
		respond.Error(w, http.StatusBadRequest, ErrInvalidMonth.Error())
		return
	}

	counts, degraded := h.resolver.monthOrEmpty(r.Context(), year, time.Month(month))
	if degraded {
		h.logger.Warn("availability handler: serving degraded month", "year", year, "month", month)
		w.Header().Set(DegradedHeader, "true")
	}
	respond.JSON(w, http.StatusOK, counts)
}
