package template

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/campushub/smartmail/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

var templateFiles = map[domain.MessageType]string{
	domain.MessageVerification:    "templates/verification.html",
	domain.MessagePasswordReset:   "templates/password_reset.html",
	domain.MessageReminderOneDay:  "templates/event_reminder_one_day.html",
	domain.MessageReminderTwoHour: "templates/event_reminder_two_hour.html",
}

// EventInfo is the event detail slice reminder templates render.
type EventInfo struct {
	Title    string
	Location string
	StartsAt time.Time
}

// Data is the bag handed to a template. Unused fields are simply ignored
// by templates that do not reference them.
type Data struct {
	Name      string
	Community string
	ActionURL string
	Token     string
	Event     *EventInfo
}

// Renderer turns (message type, data) into a subject line and HTML body.
// It is a pure function over its immutable parsed template set.
type Renderer struct {
	community string
	templates map[domain.MessageType]*template.Template
}

func NewRenderer(community string) (*Renderer, error) {
	community = strings.TrimSpace(community)
	if community == "" {
		community = "CampusHub"
	}

	templates := make(map[domain.MessageType]*template.Template, len(templateFiles))
	for messageType, file := range templateFiles {
		t, err := template.New(messageType.String()).
			Funcs(sprig.HtmlFuncMap()).
			ParseFS(templateFS, file)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template for %s: %w", messageType, err)
		}
		templates[messageType] = t
	}

	return &Renderer{community: community, templates: templates}, nil
}

func (r *Renderer) Render(messageType domain.MessageType, data Data) (string, string, error) {
	if r == nil {
		return "", "", fmt.Errorf("renderer is not initialized")
	}

	t, ok := r.templates[messageType]
	if !ok {
		return "", "", fmt.Errorf("%w: no template for message type %q", domain.ErrValidation, messageType)
	}

	if strings.TrimSpace(data.Community) == "" {
		data.Community = r.community
	}

	subject, err := r.subject(messageType, data)
	if err != nil {
		return "", "", err
	}

	var body bytes.Buffer
	name := templateFiles[messageType]
	name = name[strings.LastIndex(name, "/")+1:]
	if err := t.ExecuteTemplate(&body, name, data); err != nil {
		return "", "", fmt.Errorf("failed to render %s body: %w", messageType, err)
	}

	return subject, body.String(), nil
}

func (r *Renderer) subject(messageType domain.MessageType, data Data) (string, error) {
	switch messageType {
	case domain.MessageVerification:
		return fmt.Sprintf("Confirm your %s account", data.Community), nil
	case domain.MessagePasswordReset:
		return fmt.Sprintf("Reset your %s password", data.Community), nil
	case domain.MessageReminderOneDay:
		if data.Event == nil {
			return "", fmt.Errorf("%w: event data is required for reminder templates", domain.ErrValidation)
		}
		return fmt.Sprintf("Reminder: %s is tomorrow", data.Event.Title), nil
	case domain.MessageReminderTwoHour:
		if data.Event == nil {
			return "", fmt.Errorf("%w: event data is required for reminder templates", domain.ErrValidation)
		}
		return fmt.Sprintf("Starting soon: %s", data.Event.Title), nil
	}
	return "", fmt.Errorf("%w: invalid message type %q", domain.ErrValidation, messageType)
}
