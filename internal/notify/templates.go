package notify

import (
	"fmt"
	"html"
	"strings"

	"github.com/google/uuid"

	"github.com/makhandasmiles/clinic-api/internal/appointments"
	"github.com/makhandasmiles/clinic-api/internal/clinic"
)

// DefaultService labels appointments booked without a service type.
const DefaultService = "General Checkup"

// Practice carries the clinic details printed in every email.
type Practice struct {
	Name    string
	Phone   string
	Address string
	Email   string
}

func (p Practice) withDefaults() Practice {
	if p.Name == "" {
		p.Name = DefaultFromName
	}
	if p.Phone == "" {
		p.Phone = "(046) 622-xxxx"
	}
	if p.Address == "" {
		p.Address = "Grahamstown, Eastern Cape"
	}
	return p
}

// Templates renders the patient and staff emails.
type Templates struct {
	practice Practice
}

// NewTemplates creates a renderer for the given practice.
func NewTemplates(p Practice) *Templates {
	return &Templates{practice: p.withDefaults()}
}

// Practice returns the practice details after defaults.
func (t *Templates) Practice() Practice {
	return t.practice
}

// LongDate renders YYYY-MM-DD as "Monday, 10 June 2024". Unparseable input is returned unchanged.
func LongDate(date string) string {
	d, err := clinic.ParseDate(date)
	if err != nil {
		return date
	}
	return d.Format("Monday, 2 January 2006")
}

// ShortDate renders YYYY-MM-DD as "10 Jun".
func ShortDate(date string) string {
	d, err := clinic.ParseDate(date)
	if err != nil {
		return date
	}
	return d.Format("2 Jan")
}

const pageStyle = `body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; }
.container { padding: 20px; }
.content { background: #f9fafb; padding: 30px; border-radius: 0 0 10px 10px; }
.info-box { background: white; padding: 20px; border-radius: 8px; margin: 20px 0; }`

func page(accent, heading, body string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><style>%s
.header { background: %s; color: white; padding: 30px; text-align: center; border-radius: 10px 10px 0 0; }
.info-box { border-left: 4px solid %s; }</style></head>
<body>
<div class="container">
<div class="header"><h1>%s</h1></div>
<div class="content">
%s
</div>
</div>
</body>
</html>`, pageStyle, accent, accent, html.EscapeString(heading), body)
}

func esc(s string) string { return html.EscapeString(s) }

// PatientConfirmation is sent to the patient right after booking.
func (t *Templates) PatientConfirmation(a *appointments.Appointment) EmailMessage {
	p := t.practice
	service := a.ServiceLabel(DefaultService)
	body := fmt.Sprintf(`<p>Hi <strong>%s</strong>,</p>
<p>Thank you for booking with <strong>%s</strong>. Your request has been received and is awaiting confirmation.</p>
<div class="info-box">
<h3>Appointment Details</h3>
<p><strong>Date:</strong> %s</p>
<p><strong>Time:</strong> %s</p>
<p><strong>Service:</strong> %s</p>
<p><strong>Location:</strong> %s, %s</p>
</div>
<h3>Before Your Visit</h3>
<ul>
<li>Arrive 10 minutes early for paperwork</li>
<li>Bring your ID and medical aid card (if applicable)</li>
<li>List any medications you're currently taking</li>
</ul>
<p>Need to reschedule? Reply to this email or call us at least 24 hours in advance.</p>
<p><strong>The %s Team</strong><br>Phone: %s<br>Address: %s</p>`,
		esc(a.PatientName), esc(p.Name), esc(LongDate(a.Date)), esc(a.Time), esc(service),
		esc(p.Name), esc(p.Address), esc(p.Name), esc(p.Phone), esc(p.Address))

	text := fmt.Sprintf("Hi %s,\n\nYour %s appointment at %s is booked for %s at %s and is awaiting confirmation.\n\nNeed to reschedule? Call %s at least 24 hours in advance.\n\n- The %s Team",
		a.PatientName, service, p.Name, LongDate(a.Date), a.Time, p.Phone, p.Name)

	return EmailMessage{
		To:            a.PatientEmail,
		ToName:        a.PatientName,
		Subject:       fmt.Sprintf("Appointment Request Received - %s", p.Name),
		Body:          text,
		HTML:          page("#667eea", "Appointment Booked", body),
		ReplyTo:       p.Email,
		Category:      CategoryBooking,
		AppointmentID: appointmentID(a),
	}
}

// StaffBookingAlert tells the practice about a new booking.
func (t *Templates) StaffBookingAlert(to string, a *appointments.Appointment) EmailMessage {
	service := a.ServiceLabel(DefaultService)
	phone := a.PatientPhone
	if phone == "" {
		phone = "Not provided"
	}
	rows := staffRows([][2]string{
		{"Patient Name", a.PatientName},
		{"Email", a.PatientEmail},
		{"Phone", phone},
		{"Date", LongDate(a.Date)},
		{"Time", a.Time},
		{"Service", service},
		{"Status", string(a.Status)},
	})
	if a.Notes != "" {
		rows += staffRows([][2]string{{"Notes", a.Notes}})
	}
	body := fmt.Sprintf(`<table style="width:100%%;border-collapse:collapse;background:white;">%s</table>
<p style="font-size:12px;color:#6b7280">The patient has been sent a confirmation email.</p>`, rows)

	text := fmt.Sprintf("New appointment booked.\n\nPatient: %s (%s)\nPhone: %s\nService: %s\nDate: %s\nTime: %s",
		a.PatientName, a.PatientEmail, phone, service, a.Date, a.Time)

	return EmailMessage{
		To:            to,
		Subject:       fmt.Sprintf("New Appointment: %s - %s at %s", a.PatientName, a.Date, a.Time),
		Body:          text,
		HTML:          page("#1f2937", "New Appointment Booked", body),
		ReplyTo:       a.PatientEmail,
		Category:      CategoryStaffAlert,
		AppointmentID: appointmentID(a),
	}
}

// DayOfReminder is the same-day reminder sent by the daily scan.
func (t *Templates) DayOfReminder(a *appointments.Appointment) EmailMessage {
	p := t.practice
	service := a.ServiceLabel(DefaultService)
	body := fmt.Sprintf(`<p>Hi <strong>%s</strong>,</p>
<p>This is a friendly reminder about your dental appointment <strong>today</strong>!</p>
<div class="info-box">
<h3>Today's Appointment</h3>
<p><strong>Time:</strong> %s</p>
<p><strong>Service:</strong> %s</p>
<p><strong>Location:</strong> %s, %s</p>
</div>
<p><strong>Please arrive 10 minutes early for paperwork.</strong></p>
<p>Need to cancel? Please call us as soon as possible at <strong>%s</strong>.</p>
<p><strong>The %s Team</strong></p>`,
		esc(a.PatientName), esc(a.Time), esc(service), esc(p.Name), esc(p.Address), esc(p.Phone), esc(p.Name))

	text := fmt.Sprintf("Hi %s,\n\nReminder: your %s appointment is today at %s.\nPlease arrive 10 minutes early. To cancel call %s.\n\n- The %s Team",
		a.PatientName, service, a.Time, p.Phone, p.Name)

	return EmailMessage{
		To:            a.PatientEmail,
		ToName:        a.PatientName,
		Subject:       fmt.Sprintf("Reminder: Your Appointment Today at %s", a.Time),
		Body:          text,
		HTML:          page("#10b981", "Appointment Reminder", body),
		ReplyTo:       p.Email,
		Category:      CategoryReminder,
		AppointmentID: appointmentID(a),
	}
}

// StagedReminder renders the reminder for one stage: "24h", "2h" or "day_of".
func (t *Templates) StagedReminder(stage string, a *appointments.Appointment) (EmailMessage, error) {
	service := a.ServiceLabel(DefaultService)
	var subject, lead string
	switch stage {
	case "24h":
		subject = "Reminder: Appointment Tomorrow"
		lead = fmt.Sprintf("This is a reminder for your <strong>%s</strong> appointment tomorrow at <strong>%s</strong>.", esc(service), esc(a.Time))
	case "2h":
		subject = "Reminder: Appointment in 2 Hours"
		lead = fmt.Sprintf("See you in 2 hours! Your <strong>%s</strong> appointment starts at <strong>%s</strong>.", esc(service), esc(a.Time))
	case "day_of":
		return t.DayOfReminder(a), nil
	default:
		return EmailMessage{}, fmt.Errorf("notify: unknown reminder stage %q", stage)
	}

	body := fmt.Sprintf(`<p>Hi %s,</p>
<p>%s</p>
<p>Need to reschedule? Call us at %s.</p>
<p><strong>The %s Team</strong></p>`, esc(a.PatientName), lead, esc(t.practice.Phone), esc(t.practice.Name))

	return EmailMessage{
		To:            a.PatientEmail,
		ToName:        a.PatientName,
		Subject:       subject,
		Body:          fmt.Sprintf("Hi %s,\n\n%s on %s at %s (%s).\n\n- The %s Team", a.PatientName, subject, a.Date, a.Time, service, t.practice.Name),
		HTML:          page("#10b981", subject, body),
		ReplyTo:       t.practice.Email,
		Category:      CategoryReminder,
		AppointmentID: appointmentID(a),
	}, nil
}

// RescheduleNotice tells the patient their appointment moved.
func (t *Templates) RescheduleNotice(a *appointments.Appointment, oldDate, oldTime string) EmailMessage {
	p := t.practice
	service := a.ServiceLabel(DefaultService)
	previous := ""
	if oldDate != "" {
		previous = fmt.Sprintf(`<p style="color:#6b7280"><em>Previous appointment: %s at %s</em></p>`, esc(LongDate(oldDate)), esc(oldTime))
	}
	body := fmt.Sprintf(`<p>Hi <strong>%s</strong>,</p>
<p>Your appointment has been successfully rescheduled.</p>
<div class="info-box">
<h3>New Appointment Details</h3>
<p><strong>New Date:</strong> %s</p>
<p><strong>New Time:</strong> %s</p>
<p><strong>Service:</strong> %s</p>
</div>
%s
<p>See you on your new date!</p>
<p><strong>The %s Team</strong><br>Phone: %s</p>`,
		esc(a.PatientName), esc(LongDate(a.Date)), esc(a.Time), esc(service), previous, esc(p.Name), esc(p.Phone))

	return EmailMessage{
		To:            a.PatientEmail,
		ToName:        a.PatientName,
		Subject:       fmt.Sprintf("Appointment Rescheduled - %s", p.Name),
		Body:          fmt.Sprintf("Hi %s,\n\nYour %s appointment is now on %s at %s.\n\n- The %s Team", a.PatientName, service, LongDate(a.Date), a.Time, p.Name),
		HTML:          page("#f59e0b", "Appointment Rescheduled", body),
		ReplyTo:       p.Email,
		Category:      CategoryReschedule,
		AppointmentID: appointmentID(a),
	}
}

// StaffRescheduleAlert tells the practice an appointment moved.
func (t *Templates) StaffRescheduleAlert(to string, a *appointments.Appointment, oldDate, oldTime string) EmailMessage {
	rows := staffRows([][2]string{
		{"Patient Name", a.PatientName},
		{"Email", a.PatientEmail},
		{"New Date", LongDate(a.Date)},
		{"New Time", a.Time},
		{"Service", a.ServiceLabel(DefaultService)},
		{"Previous", strings.TrimSpace(oldDate + " " + oldTime)},
	})
	return EmailMessage{
		To:            to,
		Subject:       fmt.Sprintf("Rescheduled: %s - %s at %s", a.PatientName, a.Date, a.Time),
		Body:          fmt.Sprintf("%s moved from %s %s to %s %s.", a.PatientName, oldDate, oldTime, a.Date, a.Time),
		HTML:          page("#1f2937", "Appointment Rescheduled", fmt.Sprintf(`<table style="width:100%%;border-collapse:collapse;background:white;">%s</table>`, rows)),
		ReplyTo:       a.PatientEmail,
		Category:      CategoryStaffAlert,
		AppointmentID: appointmentID(a),
	}
}

func appointmentID(a *appointments.Appointment) string {
	if a.ID == uuid.Nil {
		return ""
	}
	return a.ID.String()
}

func staffRows(pairs [][2]string) string {
	var b strings.Builder
	for _, kv := range pairs {
		fmt.Fprintf(&b, `<tr><td style="padding:12px;font-weight:bold;background:#f3f4f6;width:140px;">%s</td><td style="padding:12px;border-bottom:1px solid #e5e7eb;">%s</td></tr>`,
			esc(kv[0]), esc(kv[1]))
	}
	return b.String()
}
