package notifications

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/opsdesk/incident-desk/internal/domain"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// Payload is the data rendered into a notification message.
type Payload struct {
	Kind     MessageKind
	Incident domain.Incident
	Age      time.Duration // only set for SLA kinds
}

// Renderer renders notifications from templates.
type Renderer struct {
	templates map[string]*template.Template
}

// NewRenderer creates a new renderer and loads all templates.
func NewRenderer() (*Renderer, error) {
	funcMap := template.FuncMap{
		"title":          titleCase,
		"upper":          strings.ToUpper,
		"lower":          strings.ToLower,
		"formatTime":     formatTime,
		"formatDuration": formatDuration,
		"teamMovement":   teamMovement,
	}

	r := &Renderer{
		templates: make(map[string]*template.Template),
	}

	channelTypes := []ChannelType{ChannelTypeWebhook, ChannelTypeEmail}
	messageKinds := []MessageKind{MessageKindReported, MessageKindSLAWarning, MessageKindSLAEscalated}

	for _, channel := range channelTypes {
		for _, kind := range messageKinds {
			name := fmt.Sprintf("%s_%s", channel, kind)
			filename := fmt.Sprintf("templates/%s.tmpl", name)

			content, err := templatesFS.ReadFile(filename)
			if err != nil {
				return nil, fmt.Errorf("read template %s: %w", filename, err)
			}

			tmpl, err := template.New(name).Funcs(funcMap).Parse(string(content))
			if err != nil {
				return nil, fmt.Errorf("parse template %s: %w", filename, err)
			}

			r.templates[name] = tmpl
		}
	}

	return r, nil
}

// Render renders a payload for the specified channel type. Returns subject
// and body.
func (r *Renderer) Render(channelType ChannelType, payload Payload) (subject, body string, err error) {
	subject = r.renderSubject(payload)

	templateName := fmt.Sprintf("%s_%s", channelType, payload.Kind)
	tmpl, ok := r.templates[templateName]
	if !ok {
		return "", "", fmt.Errorf("template not found: %s", templateName)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, payload); err != nil {
		return "", "", fmt.Errorf("execute template %s: %w", templateName, err)
	}

	body = strings.TrimSpace(buf.String())
	return subject, body, nil
}

func (r *Renderer) renderSubject(payload Payload) string {
	var prefix string
	switch payload.Kind {
	case MessageKindReported:
		prefix = "New Incident"
	case MessageKindSLAWarning:
		prefix = "SLA Warning"
	case MessageKindSLAEscalated:
		prefix = "SLA Breach"
	default:
		prefix = "Notification"
	}

	return fmt.Sprintf("[%s] %s", prefix, payload.Incident.InternalTicketNumber)
}

// Template functions

var titleCaser = cases.Title(language.English)

func titleCase(s string) string {
	return titleCaser.String(s)
}

func formatTime(t time.Time) string {
	return t.UTC().Format("Jan 2, 2006 15:04 UTC")
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}

	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60

	if hours > 0 {
		if minutes > 0 {
			return fmt.Sprintf("%dh %dm", hours, minutes)
		}
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dm", minutes)
}

func teamMovement(inc domain.Incident) string {
	movement := inc.TeamMovement()
	if movement == "" {
		return "unassigned"
	}
	return movement
}
