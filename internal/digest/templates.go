package digest

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/makhandasmiles/clinic-api/internal/appointments"
	"github.com/makhandasmiles/clinic-api/internal/notify"
)

// recentLimit caps the "Recent Appointments" table.
const recentLimit = 20

const reportStyle = `body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 800px; margin: 0 auto; }
.container { padding: 20px; }
.header { background: linear-gradient(135deg, #1f2937 0%, #374151 100%); color: white; padding: 30px; text-align: center; border-radius: 10px 10px 0 0; }
.content { background: #f9fafb; padding: 30px; border-radius: 0 0 10px 10px; }
.stat-grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(200px, 1fr)); gap: 15px; margin: 20px 0; }
.stat-card { background: white; padding: 20px; border-radius: 8px; border-left: 4px solid #667eea; }
.stat-number { font-size: 36px; font-weight: bold; color: #667eea; margin: 0; }
.stat-label { color: #6b7280; margin: 5px 0 0 0; font-size: 14px; }
table { width: 100%; background: white; margin: 20px 0; border-collapse: collapse; }
th { background: #f3f4f6; padding: 12px; text-align: left; color: #374151; }
td { padding: 12px; border-bottom: 1px solid #e5e7eb; }
.status-confirmed { color: #10b981; font-weight: 600; }
.status-cancelled { color: #ef4444; font-weight: 600; }
.status-completed { color: #3b82f6; font-weight: 600; }
.status-pending { color: #f59e0b; font-weight: 600; }
h2 { color: #1f2937; border-bottom: 2px solid #667eea; padding-bottom: 10px; }`

func esc(s string) string { return html.EscapeString(s) }

// WeeklyReportEmail renders the staff weekly performance report. The
// appointments are expected newest first.
func WeeklyReportEmail(to string, practice notify.Practice, stats Stats, appts []appointments.Appointment, start, end, generatedAt time.Time) notify.EmailMessage {
	var cards strings.Builder
	for _, c := range []struct {
		n     int
		label string
	}{
		{stats.TotalAppointments, "Total Appointments"},
		{stats.Confirmed, "Confirmed"},
		{stats.Completed, "Completed"},
		{stats.Cancelled, "Cancelled"},
		{stats.Pending, "Pending"},
		{stats.UniquePatients, "Unique Patients"},
		{stats.TotalConversations, "Assistant Conversations"},
	} {
		fmt.Fprintf(&cards, `<div class="stat-card"><p class="stat-number">%d</p><p class="stat-label">%s</p></div>`, c.n, c.label)
	}

	var breakdown strings.Builder
	for _, row := range stats.SortedBreakdown() {
		share := 0.0
		if stats.TotalAppointments > 0 {
			share = float64(row.Count) / float64(stats.TotalAppointments) * 100
		}
		fmt.Fprintf(&breakdown, `<tr><td>%s</td><td style="text-align:right;font-weight:600">%d</td><td style="text-align:right">%.1f%%</td></tr>`,
			esc(row.Service), row.Count, share)
	}

	var recent strings.Builder
	for i := range appts {
		if i == recentLimit {
			break
		}
		a := &appts[i]
		fmt.Fprintf(&recent, `<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td class="status-%s">%s</td></tr>`,
			esc(notify.ShortDate(a.Date)), esc(a.Time), esc(a.PatientName), esc(a.ServiceLabel(UnspecifiedService)),
			esc(string(a.Status)), esc(string(a.Status)))
	}
	if len(appts) == 0 {
		recent.WriteString(`<tr><td colspan="5" style="text-align:center;color:#6b7280">No appointments this week</td></tr>`)
	}

	shortStart, shortEnd := start.Format("2 Jan"), end.Format("2 Jan")
	body := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><style>%s</style></head>
<body>
<div class="container">
<div class="header">
<h1>Weekly Performance Report</h1>
<p style="margin:10px 0 0 0;font-size:16px;opacity:0.9">%s</p>
<p style="margin:5px 0 0 0;font-size:14px;opacity:0.8">Period: %s - %s</p>
</div>
<div class="content">
<h2>Summary Statistics</h2>
<div class="stat-grid">%s</div>
<h2>Service Breakdown</h2>
<table>
<thead><tr><th>Service Type</th><th style="text-align:right">Count</th><th style="text-align:right">Percentage</th></tr></thead>
<tbody>%s</tbody>
</table>
<h2>Recent Appointments</h2>
<table>
<thead><tr><th>Date</th><th>Time</th><th>Patient</th><th>Service</th><th>Status</th></tr></thead>
<tbody>%s</tbody>
</table>
<p style="margin-top:40px;padding-top:20px;border-top:1px solid #e5e7eb;font-size:12px;color:#6b7280;text-align:center">
This automated report was generated by %s<br>Generated on: %s
</p>
</div>
</div>
</body>
</html>`, reportStyle, esc(practice.Name), start.Format("2006/01/02"), end.Format("2006/01/02"),
		cards.String(), breakdown.String(), recent.String(), esc(practice.Name), generatedAt.Format("2006/01/02 15:04"))

	return notify.EmailMessage{
		To:      to,
		Subject: fmt.Sprintf("Weekly Report: %d Appointments (%s - %s)", stats.TotalAppointments, shortStart, shortEnd),
		Body: fmt.Sprintf("Weekly report %s - %s: %d appointments, %d confirmed, %d completed, %d cancelled, %d conversations.",
			shortStart, shortEnd, stats.TotalAppointments, stats.Confirmed, stats.Completed, stats.Cancelled, stats.TotalConversations),
		HTML:     body,
		Category: notify.CategoryReport,
	}
}

// ChatDigestEmail renders the daily conversation summary. Times are shown in loc.
func ChatDigestEmail(to string, threads []ChatThread, loc *time.Location) notify.EmailMessage {
	if loc == nil {
		loc = time.UTC
	}
	var b strings.Builder
	b.WriteString(`<h1>Daily Conversation Summary</h1><p>Here is the activity for the last 24 hours:</p>`)
	for _, t := range threads {
		fmt.Fprintf(&b, `<div style="margin-bottom: 20px; padding: 10px; border: 1px solid #ddd; border-radius: 5px;"><h3>User: %s</h3><ul>`, esc(t.UserEmail))
		for _, m := range t.Messages {
			color := "green"
			if m.Role == "user" {
				color = "blue"
			}
			fmt.Fprintf(&b, `<li style="margin-bottom: 5px;"><span style="color: gray; font-size: 0.8em;">[%s]</span> <strong style="color: %s;">%s:</strong> %s</li>`,
				m.CreatedAt.In(loc).Format("15:04:05"), color, esc(strings.ToUpper(m.Role)), esc(m.Content))
		}
		b.WriteString(`</ul></div>`)
	}

	return notify.EmailMessage{
		To:       to,
		Subject:  fmt.Sprintf("Daily Chat Summary (%d Users)", len(threads)),
		Body:     fmt.Sprintf("%d users chatted with the assistant in the last 24 hours.", len(threads)),
		HTML:     b.String(),
		Category: notify.CategoryChatDigest,
	}
}

// NoActivityEmail is sent when the chat window was empty.
func NoActivityEmail(to string) notify.EmailMessage {
	return notify.EmailMessage{
		To:       to,
		Subject:  "Daily Chat Summary: No Activity",
		Body:     "No conversations recorded in the last 24 hours.",
		HTML:     "<p>No conversations recorded in the last 24 hours.</p>",
		Category: notify.CategoryChatDigest,
	}
}
