package notifications

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/makhandasmiles/clinic-api/internal/http/middleware"
	"github.com/makhandasmiles/clinic-api/internal/http/respond"
	"github.com/makhandasmiles/clinic-api/pkg/logging"
)

// Handler provides the patient dashboard and admin notification endpoints.
type Handler struct {
	store    *Store
	validate *validator.Validate
	logger   *logging.Logger
}

// NewHandler creates a notifications HTTP handler.
func NewHandler(store *Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, validate: validator.New(), logger: logger}
}

// RegisterPatientRoutes mounts under /api/patients/{patientID}/notifications.
func (h *Handler) RegisterPatientRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/read-all", h.markAllRead)
	r.Post("/{id}/read", h.markRead)
}

// RegisterAdminRoutes mounts under /api/admin/notifications.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/broadcast", h.send)
	r.Delete("/{id}", h.delete)
}

// SendRequest is the admin compose form. An empty PatientID broadcasts.
type SendRequest struct {
	PatientID string `json:"patient_id" validate:"omitempty,uuid"`
	Type      Type   `json:"notification_type"`
	Title     string `json:"title" validate:"required,max=200"`
	Message   string `json:"message" validate:"required,max=2000"`
	ActionURL string `json:"action_url" validate:"omitempty,url"`
}

func pathUUID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	return id, err == nil
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	patientID, ok := pathUUID(r, "patientID")
	if !ok {
		respond.Error(w, http.StatusBadRequest, "invalid patient id")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	items, err := h.store.ListForPatient(r.Context(), patientID, limit)
	if err != nil {
		h.logger.Error("notifications handler: list", "patient_id", patientID, "error", err)
		respond.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	if items == nil {
		items = []Notification{}
	}
	unread := 0
	for _, n := range items {
		if !n.IsRead {
			unread++
		}
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"notifications": items,
		"unread":        unread,
	})
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	patientID, ok := pathUUID(r, "patientID")
	if !ok {
		respond.Error(w, http.StatusBadRequest, "invalid patient id")
		return
	}
	id, ok := pathUUID(r, "id")
	if !ok {
		respond.Error(w, http.StatusBadRequest, "invalid notification id")
		return
	}

	err := h.store.MarkRead(r.Context(), patientID, id)
	if errors.Is(err, ErrNotFound) {
		respond.Error(w, http.StatusNotFound, "notification not found")
		return
	}
	if err != nil {
		h.logger.Error("notifications handler: mark read", "id", id, "error", err)
		respond.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) markAllRead(w http.ResponseWriter, r *http.Request) {
	patientID, ok := pathUUID(r, "patientID")
	if !ok {
		respond.Error(w, http.StatusBadRequest, "invalid patient id")
		return
	}
	n, err := h.store.MarkAllRead(r.Context(), patientID)
	if err != nil {
		h.logger.Error("notifications handler: mark all read", "patient_id", patientID, "error", err)
		respond.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]int64{"updated": n})
}

func (h *Handler) send(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Type == "" {
		req.Type = TypeGeneral
	}
	if !req.Type.Valid() {
		respond.Error(w, http.StatusBadRequest, "unknown notification_type")
		return
	}

	n := &Notification{Type: req.Type, Title: req.Title, Message: req.Message, ActionURL: req.ActionURL}
	if req.PatientID != "" {
		id := uuid.MustParse(req.PatientID)
		n.PatientID = &id
	}
	if err := h.store.Create(r.Context(), n); err != nil {
		h.logger.Error("notifications handler: send", "error", err)
		respond.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	staff, _ := middleware.AdminClaimsFromContext(r.Context())
	h.logger.Info("notification sent", "id", n.ID, "broadcast", n.Broadcast(), "type", n.Type, "actor", staff.Subject)
	respond.JSON(w, http.StatusCreated, n)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		respond.Error(w, http.StatusBadRequest, "invalid notification id")
		return
	}
	err := h.store.Delete(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		respond.Error(w, http.StatusNotFound, "notification not found")
		return
	}
	if err != nil {
		h.logger.Error("notifications handler: delete", "id", id, "error", err)
		respond.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	staff, _ := middleware.AdminClaimsFromContext(r.Context())
	h.logger.Info("notification deleted", "id", id, "actor", staff.Subject)
	w.WriteHeader(http.StatusNoContent)
}
