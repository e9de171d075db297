// Package notify implements the domain Notifier port over SMTP.
package notify

import (
	"context"
	"log/slog"
	"os"

	"github.com/wneessen/go-mail"

	"github.com/chrisskurda/csv-to-dg/internal/domain"
)

// Options holds SMTP transport settings.
type Options struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

// Mailer sends run reports over SMTP. Implements domain.Notifier.
type Mailer struct {
	opts   Options
	logger *slog.Logger
}

func NewMailer(opts Options, logger *slog.Logger) *Mailer {
	return &Mailer{opts: opts, logger: logger}
}

// Send dispatches one message. Attachment paths that do not exist on
// disk are skipped rather than failing the dispatch.
func (m *Mailer) Send(ctx context.Context, n domain.Notification) error {
	msg := mail.NewMsg()
	if err := msg.From(m.opts.From); err != nil {
		return domain.ErrNotification("invalid from address %q: %v", m.opts.From, err)
	}
	if err := msg.To(m.opts.To...); err != nil {
		return domain.ErrNotification("invalid recipient: %v", err)
	}
	msg.Subject(n.Subject)
	msg.SetBodyString(mail.TypeTextPlain, n.Body)

	for _, path := range n.Attachments {
		if _, err := os.Stat(path); err != nil {
			m.logger.Debug("attachment missing, skipped", "path", path)
			continue
		}
		msg.AttachFile(path)
	}

	clientOpts := []mail.Option{
		mail.WithPort(m.opts.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if m.opts.Username != "" {
		clientOpts = append(clientOpts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.opts.Username),
			mail.WithPassword(m.opts.Password),
		)
	}

	client, err := mail.NewClient(m.opts.Host, clientOpts...)
	if err != nil {
		return domain.ErrNotification("smtp client: %v", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return domain.ErrNotification("send via %s:%d: %v", m.opts.Host, m.opts.Port, err)
	}
	return nil
}
