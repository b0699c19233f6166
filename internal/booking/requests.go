// Package booking writes appointments: new bookings from the public form and
// the staff actions that move or close them.
package booking

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/makhandasmiles/clinic-api/internal/appointments"
)

// CreateAppointmentRequest is the public booking form.
type CreateAppointmentRequest struct {
	PatientID    string `json:"patient_id" validate:"omitempty,uuid"`
	PatientName  string `json:"patient_name" validate:"required,max=200"`
	PatientEmail string `json:"patient_email" validate:"required,email,max=254"`
	PatientPhone string `json:"patient_phone" validate:"required,min=7,max=20"`
	Date         string `json:"date" validate:"required,datetime=2006-01-02"`
	Time         string `json:"time" validate:"required,len=5"`
	ServiceType  string `json:"service_type" validate:"required,max=100"`
	Notes        string `json:"notes" validate:"max=1000"`
}

func (r *CreateAppointmentRequest) normalize() {
	r.PatientID = strings.TrimSpace(r.PatientID)
	r.PatientName = strings.TrimSpace(r.PatientName)
	r.PatientEmail = strings.ToLower(strings.TrimSpace(r.PatientEmail))
	r.PatientPhone = strings.TrimSpace(r.PatientPhone)
	r.Date = strings.TrimSpace(r.Date)
	r.Time = strings.TrimSpace(r.Time)
	r.ServiceType = strings.TrimSpace(r.ServiceType)
	r.Notes = strings.TrimSpace(r.Notes)
}

func (r *CreateAppointmentRequest) appointment() *appointments.Appointment {
	a := &appointments.Appointment{
		PatientName:  r.PatientName,
		PatientEmail: r.PatientEmail,
		PatientPhone: r.PatientPhone,
		Date:         r.Date,
		Time:         r.Time,
		ServiceType:  r.ServiceType,
		Status:       appointments.StatusPending,
		Notes:        r.Notes,
	}
	if r.PatientID != "" {
		id := uuid.MustParse(r.PatientID)
		a.PatientID = &id
	}
	return a
}

// RescheduleRequest moves an appointment to a new slot.
type RescheduleRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
	Time string `json:"time" validate:"required,len=5"`
}

// StatusRequest is a staff status change.
type StatusRequest struct {
	Status appointments.Status `json:"status" validate:"required,oneof=confirmed completed cancelled"`
}

// ValidationError describes a request the writer refused before touching storage.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// validationFailure converts validator output into a ValidationError naming
// the first failing field.
func validationFailure(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &ValidationError{Field: fe.Field(), Message: "failed " + fe.Tag() + " check"}
	}
	return &ValidationError{Message: err.Error()}
}

// newValidator returns a validator that reports JSON field names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}
