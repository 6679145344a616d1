package notify

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"github.com/ticovision/reminders/internal/config"
)

//go:embed templates/*.html
var templateFS embed.FS

const fallbackTemplate = "generic"

var subjects = map[string]string{
	"payment_reminder":           "תזכורת לתשלום שכר טרחה",
	"payment_selection_reminder": "תזכורת לבחירת אמצעי תשלום",
	fallbackTemplate:             "הודעה ממשרד רואי החשבון",
}

// SMTPNotifier renders an embedded HTML template and sends it over SMTP.
type SMTPNotifier struct {
	dialer    *gomail.Dialer
	from      string
	templates *template.Template
	log       logrus.FieldLogger
}

func NewSMTPNotifier(cfg config.SMTPConfig, log logrus.FieldLogger) (*SMTPNotifier, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host is required")
	}
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}
	return &SMTPNotifier{
		dialer:    gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:      cfg.From,
		templates: tmpl,
		log:       log,
	}, nil
}

// Render returns the subject and HTML body for msg. Unknown template ids
// fall back to the generic template.
func (n *SMTPNotifier) Render(msg Message) (string, string, error) {
	name := msg.Template
	t := n.templates.Lookup(name + ".html")
	if t == nil {
		name = fallbackTemplate
		t = n.templates.Lookup(fallbackTemplate + ".html")
	}
	if t == nil {
		return "", "", fmt.Errorf("template %q not found", msg.Template)
	}

	var body bytes.Buffer
	if err := t.Execute(&body, msg); err != nil {
		return "", "", fmt.Errorf("render %s: %w", name, err)
	}
	return subjects[name], body.String(), nil
}

func (n *SMTPNotifier) Notify(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg.To == "" {
		return errors.New("recipient address is empty")
	}

	subject, body, err := n.Render(msg)
	if err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := n.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send reminder %s: %w", msg.ReminderID, err)
	}

	n.log.WithFields(logrus.Fields{
		"reminder_id": msg.ReminderID,
		"to":          msg.To,
		"template":    msg.Template,
	}).Debug("reminder email sent")
	return nil
}
