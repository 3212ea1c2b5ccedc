package email

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/smtp"
	"strings"
	"time"

	"magasin/internal/domain/notification"
)

// SMTPSender delivers mail through an SMTP relay.
type SMTPSender struct {
	cfg  Config
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	now  func() time.Time
}

var _ notification.Sender = (*SMTPSender)(nil)

// NewSMTP creates an SMTP sender.
func NewSMTP(cfg Config) *SMTPSender {
	return &SMTPSender{cfg: cfg, send: smtp.SendMail, now: time.Now}
}

// Send delivers one HTML message. net/smtp has no context support, so the
// call returns on cancellation while the dial finishes in the background.
func (s *SMTPSender) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	if len(to) == 0 {
		return errors.New("email: no recipient")
	}

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	msg := s.buildMessage(to, subject, htmlBody)

	done := make(chan error, 1)
	go func() {
		done <- s.send(addr, auth, s.cfg.From, to, msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send to %s: %w", strings.Join(to, ","), err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("smtp send to %s: %w", strings.Join(to, ","), ctx.Err())
	}
}

func (s *SMTPSender) buildMessage(to []string, subject, htmlBody string) []byte {
	var b strings.Builder
	b.WriteString("From: " + s.cfg.From + "\r\n")
	b.WriteString("To: " + strings.Join(to, ", ") + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
	b.WriteString("Date: " + s.now().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String())
}
