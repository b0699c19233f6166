// Package digest builds the staff-facing summary emails: the weekly
// performance report and the daily chat activity digest.
package digest

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/makhandasmiles/clinic-api/internal/appointments"
)

// UnspecifiedService labels appointments booked without a service type.
const UnspecifiedService = "Not specified"

// Stats summarises one reporting window.
type Stats struct {
	TotalAppointments  int            `json:"totalAppointments"`
	Confirmed          int            `json:"confirmed"`
	Cancelled          int            `json:"cancelled"`
	Completed          int            `json:"completed"`
	Pending            int            `json:"pending"`
	TotalConversations int            `json:"totalConversations"`
	UniquePatients     int            `json:"uniquePatients"`
	ServiceBreakdown   map[string]int `json:"serviceBreakdown"`
}

// Period is the reporting window as clinic-local dates.
type Period struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// WeeklyResult is the in-band report of a weekly digest run.
type WeeklyResult struct {
	Success  bool   `json:"success"`
	Stats    Stats  `json:"stats"`
	Period   Period `json:"period"`
	Archived bool   `json:"archived,omitempty"`
}

// ChatMessage is one stored assistant conversation line.
type ChatMessage struct {
	ID        uuid.UUID `json:"id"`
	UserEmail string    `json:"user_email"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatThread is every message from one user in the window, oldest first.
type ChatThread struct {
	UserEmail string
	Messages  []ChatMessage
}

// ChatDigestResult is the in-band report of a daily chat digest run.
type ChatDigestResult struct {
	Success      bool   `json:"success"`
	SummaryCount int    `json:"summaryCount"`
	Users        int    `json:"users"`
	Message      string `json:"message,omitempty"`
}

// ServiceCount is one row of the service breakdown table.
type ServiceCount struct {
	Service string
	Count   int
}

// ComputeStats aggregates the appointments created in a window.
func ComputeStats(appts []appointments.Appointment, conversations int) Stats {
	stats := Stats{
		TotalAppointments:  len(appts),
		TotalConversations: conversations,
		ServiceBreakdown:   make(map[string]int),
	}
	patients := make(map[string]struct{})
	for i := range appts {
		a := &appts[i]
		switch a.Status {
		case appointments.StatusConfirmed:
			stats.Confirmed++
		case appointments.StatusCancelled:
			stats.Cancelled++
		case appointments.StatusCompleted:
			stats.Completed++
		case appointments.StatusPending:
			stats.Pending++
		}
		patients[a.PatientEmail] = struct{}{}
		stats.ServiceBreakdown[a.ServiceLabel(UnspecifiedService)]++
	}
	stats.UniquePatients = len(patients)
	return stats
}

// SortedBreakdown returns the service breakdown by descending count, ties by name.
func (s Stats) SortedBreakdown() []ServiceCount {
	rows := make([]ServiceCount, 0, len(s.ServiceBreakdown))
	for service, n := range s.ServiceBreakdown {
		rows = append(rows, ServiceCount{Service: service, Count: n})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Service < rows[j].Service
	})
	return rows
}

// GroupByUser splits messages into per-user threads, in order of each user's
// first message.
func GroupByUser(messages []ChatMessage) []ChatThread {
	index := make(map[string]int)
	var threads []ChatThread
	for _, m := range messages {
		i, ok := index[m.UserEmail]
		if !ok {
			i = len(threads)
			index[m.UserEmail] = i
			threads = append(threads, ChatThread{UserEmail: m.UserEmail})
		}
		threads[i].Messages = append(threads[i].Messages, m)
	}
	return threads
}
