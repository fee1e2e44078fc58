// Package notify delivers confirmation codes out of band.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strconv"

	"mediareview/internal/config"
	"mediareview/internal/logging"
)

// Notifier sends a freshly issued confirmation code to its owner.
type Notifier interface {
	SendConfirmationCode(ctx context.Context, to, username, code string) error
}

// New returns an SMTP notifier when SMTP_HOST is configured and a log
// notifier otherwise.
func New(cfg *config.Config) Notifier {
	if cfg.SMTPHost == "" {
		return LogNotifier{}
	}
	return NewSMTPNotifier(cfg)
}

// sendMailFunc matches smtp.SendMail.
type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type SMTPNotifier struct {
	addr     string
	host     string
	username string
	password string
	from     string
	send     sendMailFunc
}

func NewSMTPNotifier(cfg *config.Config) *SMTPNotifier {
	return &SMTPNotifier{
		addr:     cfg.SMTPHost + ":" + strconv.Itoa(cfg.SMTPPort),
		host:     cfg.SMTPHost,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		from:     cfg.SMTPFrom,
		send:     smtp.SendMail,
	}
}

func (n *SMTPNotifier) SendConfirmationCode(ctx context.Context, to, username, code string) error {
	var auth smtp.Auth
	if n.username != "" {
		auth = smtp.PlainAuth("", n.username, n.password, n.host)
	}

	if err := n.send(n.addr, auth, n.from, []string{to}, confirmationMessage(n.from, to, username, code)); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("to", to).Msg("smtp send failed")
		return fmt.Errorf("send confirmation code: %w", err)
	}
	logging.Ctx(ctx).Info().Str("username", username).Msg("confirmation code sent")
	return nil
}

func confirmationMessage(from, to, username, code string) []byte {
	subject := "Your confirmation code"
	body := fmt.Sprintf("Hello %s,\n\nyour confirmation code is:\n\n%s\n\nExchange it at /api/v1/auth/token/ to get an access token.", username, code)

	return []byte("Subject: " + subject + "\r\n" +
		"From: " + from + "\r\n" +
		"To: " + to + "\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n" +
		"\r\n" +
		body + "\r\n")
}

// LogNotifier writes codes to the log. Development only.
type LogNotifier struct{}

func (LogNotifier) SendConfirmationCode(ctx context.Context, to, username, code string) error {
	logging.Ctx(ctx).Info().
		Str("to", to).
		Str("username", username).
		Str("confirmation_code", code).
		Msg("confirmation code issued")
	return nil
}
