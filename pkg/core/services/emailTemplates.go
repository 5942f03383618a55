package services

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/jakechorley/volunteer-booking/pkg/db"
)

// defaultCopy is the Italian text used when a company has no template for an email type
var defaultCopy = map[db.EmailType]db.EmailTemplate{
	db.EmailBookingConfirmation: {
		EmailType: db.EmailBookingConfirmation,
		Subject:   "Prenotazione confermata: {experience}",
		Intro:     "la tua prenotazione è confermata. Ecco i dettagli della tua esperienza di volontariato.",
		Closing:   "Grazie per il tuo impegno, ci vediamo presto!",
	},
	db.EmailBookingReminder: {
		EmailType: db.EmailBookingReminder,
		Subject:   "Promemoria: {experience} si avvicina",
		Intro:     "ti ricordiamo che la tua esperienza di volontariato si avvicina.",
		Closing:   "Se non puoi più partecipare, annulla la prenotazione per liberare il posto. Grazie!",
	},
}

var bookingEmailTemplate = template.Must(template.New("booking_email").Parse(`<!DOCTYPE html>
<html lang="it">
<body style="font-family: Arial, sans-serif; color: #222;">
<p>Ciao {{.FirstName}},</p>
<p>{{.Intro}}</p>
<table cellpadding="4">
<tr><td><strong>Esperienza</strong></td><td>{{.Experience}}</td></tr>
{{if .Association}}<tr><td><strong>Associazione</strong></td><td>{{.Association}}</td></tr>{{end}}
<tr><td><strong>Quando</strong></td><td>{{.When}}</td></tr>
{{if .Location}}<tr><td><strong>Dove</strong></td><td>{{.Location}}</td></tr>{{end}}
{{if .VolunteerHours}}<tr><td><strong>Ore di volontariato</strong></td><td>{{.VolunteerHours}}</td></tr>{{end}}
</table>
<p>{{.Closing}}</p>
{{if .CompanyName}}<p style="color: #777; font-size: 12px;">Iniziativa di volontariato aziendale di {{.CompanyName}}</p>{{end}}
</body>
</html>`))

// emailContent is everything a booking email can mention
type emailContent struct {
	Profile    db.Profile
	Experience db.Experience
	Date       db.ExperienceDate
	Company    *db.Company
}

type renderedEmail struct {
	Subject string
	HTML    string
}

type bookingEmailView struct {
	FirstName      string
	Intro          string
	Closing        string
	Experience     string
	Association    string
	When           string
	Location       string
	VolunteerHours string
	CompanyName    string
}

// renderBookingEmail renders a booking email from the company's template, filling any
// blank field from the default copy
func renderBookingEmail(emailType db.EmailType, custom *db.EmailTemplate, content emailContent, loc *time.Location) (renderedEmail, error) {
	copyText, ok := defaultCopy[emailType]
	if !ok {
		return renderedEmail{}, fmt.Errorf("no default copy for email type %q", emailType)
	}
	if custom != nil {
		if strings.TrimSpace(custom.Subject) != "" {
			copyText.Subject = custom.Subject
		}
		if strings.TrimSpace(custom.Intro) != "" {
			copyText.Intro = custom.Intro
		}
		if strings.TrimSpace(custom.Closing) != "" {
			copyText.Closing = custom.Closing
		}
	}

	if loc == nil {
		loc = time.UTC
	}

	firstName := content.Profile.FirstName
	if firstName == "" {
		firstName = "volontario"
	}

	view := bookingEmailView{
		FirstName:   firstName,
		Intro:       fillPlaceholders(copyText.Intro, content),
		Closing:     fillPlaceholders(copyText.Closing, content),
		Experience:  content.Experience.Title,
		Association: content.Experience.AssociationName,
		When:        formatEventWindow(content.Date, loc),
		Location:    content.Experience.Location,
	}
	if content.Date.VolunteerHours > 0 {
		view.VolunteerHours = strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", content.Date.VolunteerHours), "0"), ".")
	}
	if content.Company != nil {
		view.CompanyName = content.Company.Name
	}

	var body bytes.Buffer
	if err := bookingEmailTemplate.Execute(&body, view); err != nil {
		return renderedEmail{}, fmt.Errorf("failed to render %s email: %w", emailType, err)
	}

	return renderedEmail{
		Subject: fillPlaceholders(copyText.Subject, content),
		HTML:    body.String(),
	}, nil
}

// fillPlaceholders replaces {experience} and {first_name} in template text
func fillPlaceholders(text string, content emailContent) string {
	return strings.NewReplacer(
		"{experience}", content.Experience.Title,
		"{first_name}", content.Profile.FirstName,
	).Replace(text)
}

var italianWeekdays = [...]string{"domenica", "lunedì", "martedì", "mercoledì", "giovedì", "venerdì", "sabato"}

var italianMonths = [...]string{"gennaio", "febbraio", "marzo", "aprile", "maggio", "giugno",
	"luglio", "agosto", "settembre", "ottobre", "novembre", "dicembre"}

// formatEventWindow formats a date as e.g. "sabato 15 marzo 2025, 09:00 - 13:00"
func formatEventWindow(date db.ExperienceDate, loc *time.Location) string {
	start := date.StartDatetime.In(loc)
	end := date.EndDatetime.In(loc)

	day := fmt.Sprintf("%s %d %s %d", italianWeekdays[start.Weekday()], start.Day(), italianMonths[start.Month()-1], start.Year())
	if date.EndDatetime.IsZero() {
		return fmt.Sprintf("%s, %s", day, start.Format("15:04"))
	}
	return fmt.Sprintf("%s, %s - %s", day, start.Format("15:04"), end.Format("15:04"))
}
