package email

import (
	"context"
	"errors"
	"net/smtp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"magasin/internal/domain/notification"
)

type captured struct {
	addr string
	from string
	to   []string
	msg  string
}

func newTestSender(cfg Config, fn func(c *captured) error) (*SMTPSender, *captured) {
	c := &captured{}
	s := NewSMTP(cfg)
	s.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	s.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		c.addr, c.from, c.to, c.msg = addr, from, to, string(msg)
		return fn(c)
	}
	return s, c
}

func TestSMTPSender_Send(t *testing.T) {
	s, c := newTestSender(Config{Host: "smtp.local", Port: 2525, From: "achats@magasin.test"},
		func(*captured) error { return nil })

	err := s.Send(context.Background(), []string{"fournisseur@example.com"}, "Bon de commande BC-20260301-0042", "<p>ok</p>")
	require.NoError(t, err)

	assert.Equal(t, "smtp.local:2525", c.addr)
	assert.Equal(t, "achats@magasin.test", c.from)
	assert.Equal(t, []string{"fournisseur@example.com"}, c.to)
	assert.Contains(t, c.msg, "To: fournisseur@example.com\r\n")
	assert.Contains(t, c.msg, "Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n<p>ok</p>")
	assert.Contains(t, c.msg, "Date: Sun, 01 Mar 2026 09:00:00 +0000")
}

func TestSMTPSender_TransportError(t *testing.T) {
	s, _ := newTestSender(Config{Host: "smtp.local", Port: 25}, func(*captured) error {
		return errors.New("550 mailbox unavailable")
	})

	err := s.Send(context.Background(), []string{"x@example.com"}, "s", "b")
	assert.ErrorContains(t, err, "550 mailbox unavailable")
}

func TestSMTPSender_HonoursContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	s, _ := newTestSender(Config{Host: "smtp.local", Port: 25}, func(*captured) error {
		<-release
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := s.Send(ctx, []string{"x@example.com"}, "s", "b")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSMTPSender_RequiresRecipient(t *testing.T) {
	s, _ := newTestSender(Config{Host: "smtp.local"}, func(*captured) error { return nil })
	assert.Error(t, s.Send(context.Background(), nil, "s", "b"))
}

func TestNewFromConfig(t *testing.T) {
	assert.IsType(t, &NoOpSender{}, NewFromConfig(Config{}))
	assert.IsType(t, &SMTPSender{}, NewFromConfig(Config{Host: "smtp.local", Port: 25}))
	err := (&NoOpSender{}).Send(context.Background(), []string{"a@b.c"}, "s", "b")
	assert.ErrorIs(t, err, notification.ErrDeliveryDisabled)
}
