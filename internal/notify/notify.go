// Package notify delivers reminder emails. The reminder service hands it a
// template id and recipient once the reminder row is persisted.
package notify

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/ticovision/reminders/internal/domain"
)

// Message is one reminder email to deliver.
type Message struct {
	TenantID     string
	ReminderID   string
	FeeID        string
	ClientName   string
	To           string
	Template     string
	ReminderType domain.ReminderType
}

type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// LogNotifier only logs the message. It is used when SMTP is not configured.
type LogNotifier struct {
	log logrus.FieldLogger
}

func NewLogNotifier(log logrus.FieldLogger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.log.WithFields(logrus.Fields{
		"tenant_id":   msg.TenantID,
		"reminder_id": msg.ReminderID,
		"fee_id":      msg.FeeID,
		"to":          msg.To,
		"template":    msg.Template,
	}).Info("reminder email not sent: smtp disabled")
	return nil
}
