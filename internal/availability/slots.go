// Package availability enumerates bookable slots and resolves which of them
// are still free on a given day.
package availability

import "fmt"

// WorkingHours bounds the bookable day. The last slot starts at EndHour-1.
type WorkingHours struct {
	StartHour int
	EndHour   int
}

// DefaultWorkingHours is 08:00 to 17:00.
var DefaultWorkingHours = WorkingHours{StartHour: 8, EndHour: 17}

// Valid reports whether the hours describe a non-empty day within 00..24.
func (wh WorkingHours) Valid() bool {
	return wh.StartHour >= 0 && wh.EndHour <= 24 && wh.StartHour < wh.EndHour
}

// GenerateSlots returns one "HH:00" label per hour in [StartHour, EndHour),
// ascending. Invalid hours yield no slots.
func GenerateSlots(wh WorkingHours) []string {
	if !wh.Valid() {
		return nil
	}
	slots := make([]string, 0, wh.EndHour-wh.StartHour)
	for h := wh.StartHour; h < wh.EndHour; h++ {
		slots = append(slots, fmt.Sprintf("%02d:00", h))
	}
	return slots
}

// IsSlot reports whether clock is one of the generated labels.
func IsSlot(wh WorkingHours, clock string) bool {
	for _, s := range GenerateSlots(wh) {
		if s == clock {
			return true
		}
	}
	return false
}
