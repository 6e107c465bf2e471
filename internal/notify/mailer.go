package notify

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"

	"github.com/erazemk/izposoja/internal/config"
)

// Sender delivers one plain-text message. A nil error means the message was
// accepted for delivery.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Mailer sends messages over SMTP.
type Mailer struct {
	host     string
	user     string
	password string
	from     string
	addr     string

	send func(e *email.Email, addr string, auth smtp.Auth) error
}

// NewMailer builds a Mailer from the SMTP settings in cfg.
func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		host:     cfg.SMTPHost,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		from:     cfg.SMTPFrom,
		addr:     cfg.SMTPAddr(),
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

// Send emails body to a single recipient.
func (m *Mailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e := email.NewEmail()
	e.From = m.from
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)

	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.password, m.host)
	}
	if err := m.send(e, m.addr, auth); err != nil {
		return fmt.Errorf("mailer: send to %s: %w", to, err)
	}
	return nil
}
