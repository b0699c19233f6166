package appointments

import "errors"

var (
	// ErrNotFound is returned when no appointment matches the id.
	ErrNotFound = errors.New("appointments: not found")

	// ErrSlotTaken is returned when an active appointment already holds the (date, time) slot.
	ErrSlotTaken = errors.New("appointments: slot already taken")

	// ErrInvalidTransition is returned when a status change is not allowed from the current status.
	ErrInvalidTransition = errors.New("appointments: invalid status transition")
)
