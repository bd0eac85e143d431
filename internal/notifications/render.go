package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/MimoJanra/UptimeGuard/internal/models"
)

// Message is an alert rendered for delivery. HTML is set for status alerts,
// Text for every alert.
type Message struct {
	Alert   models.Alert
	Subject string
	Text    string
	HTML    string
}

const (
	colorDown = "#ef4444"
	colorUp   = "#22c55e"
)

var statusTemplate = template.Must(template.New("status").Parse(`
<div style="font-family: Arial, sans-serif; padding: 20px; background-color: #f3f4f6;">
  <div style="max-width: 600px; margin: 0 auto; background: white; padding: 40px; border-radius: 8px; border-top: 6px solid {{.Color}};">
    <h1 style="text-align: center; color: #111827;">{{.Icon}} {{.Title}}</h1>
    <div style="background: #f9fafb; padding: 20px; border-radius: 6px; margin: 20px 0;">
      <p><strong>URL:</strong> {{.URL}}</p>
      <p><strong>Status:</strong> <span style="color: {{.Color}}; font-weight: bold;">{{.Status}}</span></p>
      <p><strong>Time:</strong> {{.Time}}</p>
    </div>
    {{- if .DashboardURL}}
    <div style="text-align: center;">
      <a href="{{.DashboardURL}}" style="background: #111827; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px;">Open Dashboard</a>
    </div>
    {{- end}}
  </div>
</div>
`))

type statusView struct {
	Color        template.CSS
	Icon         string
	Title        string
	URL          string
	Status       models.Status
	Time         string
	DashboardURL string
}

// Render turns an alert into the subject and bodies every channel draws from.
func Render(alert models.Alert, dashboardURL string) (Message, error) {
	msg := Message{Alert: alert}

	switch alert.Kind {
	case models.AlertStatusDown, models.AlertStatusUp:
		view := statusView{
			Color:        colorUp,
			Icon:         "✅",
			Title:        "Website Recovered",
			URL:          alert.URL,
			Status:       models.StatusUp,
			Time:         alert.At.UTC().Format(time.RFC1123),
			DashboardURL: dashboardURL,
		}
		if alert.Kind == models.AlertStatusDown {
			view.Color = colorDown
			view.Icon = "🚨"
			view.Title = "Website is Down"
			view.Status = models.StatusDown
		}

		var buf bytes.Buffer
		if err := statusTemplate.Execute(&buf, view); err != nil {
			return Message{}, fmt.Errorf("render status alert: %w", err)
		}
		msg.Subject = fmt.Sprintf("%s ALERT: %s is %s", view.Icon, alert.URL, view.Status)
		msg.HTML = buf.String()
		msg.Text = fmt.Sprintf("%s %s\nURL: %s\nStatus: %s\nTime: %s", view.Icon, view.Title, alert.URL, view.Status, view.Time)
		if dashboardURL != "" {
			msg.Text += "\nDashboard: " + dashboardURL
		}

	case models.AlertSSLTier30, models.AlertSSLTier10:
		msg.Subject = fmt.Sprintf("URGENT: SSL Expiring in %d days - %s", alert.DaysRemaining, alert.URL)
		msg.Text = fmt.Sprintf("Action Required: The SSL certificate for %s will expire in %d days.", alert.URL, alert.DaysRemaining)

	default:
		return Message{}, fmt.Errorf("render: unknown alert kind %q", alert.Kind)
	}
	return msg, nil
}
