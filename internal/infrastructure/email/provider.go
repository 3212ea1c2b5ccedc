// Package email provides outbound mail transports for supplier notifications.
package email

import (
	"context"

	"magasin/internal/domain/notification"
	"magasin/pkg/logger"
)

// Config holds SMTP settings. An empty Host disables delivery.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// NewFromConfig returns an SMTP sender, or a no-op sender when no host is configured.
func NewFromConfig(cfg Config) notification.Sender {
	if cfg.Host == "" {
		return &NoOpSender{}
	}
	return NewSMTP(cfg)
}

// NoOpSender drops every message and reports notification.ErrDeliveryDisabled.
type NoOpSender struct{}

func (s *NoOpSender) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	logger.Debug(ctx, "email delivery disabled, message dropped", "to", to, "subject", subject)
	return notification.ErrDeliveryDisabled
}
