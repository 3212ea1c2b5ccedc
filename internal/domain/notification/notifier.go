// Package notification delivers supplier-facing purchase order emails.
// Delivery is best effort: failures are logged and counted by the caller's
// choice of SendOrder (reported) or DispatchOrder (detached).
package notification

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"magasin/internal/core/apperror"
	"magasin/pkg/logger"
	"magasin/pkg/metrics"
)

// ErrDeliveryDisabled is returned by a Sender that has no transport configured.
var ErrDeliveryDisabled = errors.New("email delivery is disabled")

// Sender is the outbound mail transport.
type Sender interface {
	Send(ctx context.Context, to []string, subject string, htmlBody string) error
}

// MailLine is one row of the line-item table.
type MailLine struct {
	ProductID   int64
	ProductName string
	Quantity    int64
	UnitPrice   *decimal.Decimal
	LineTotal   *decimal.Decimal
}

// OrderMail carries everything the order email shows.
type OrderMail struct {
	OrderID      int64
	OrderNumber  string
	StoreName    string
	SupplierName string
	To           string
	Lines        []MailLine
	Total        decimal.Decimal
	Notes        string
}

var orderTemplate = template.Must(template.New("order").Parse(`<html><body>
<p>Bonjour {{.SupplierName}},</p>
<p>Veuillez trouver ci-dessous le bon de commande <strong>{{.OrderNumber}}</strong> de {{.StoreName}}.</p>
<table border="1" cellpadding="4" cellspacing="0">
<tr><th>Produit</th><th>Quantité</th><th>Prix unitaire</th><th>Total</th></tr>
{{range .Lines}}<tr><td>{{.ProductName}}</td><td>{{.Quantity}}</td><td>{{if .UnitPrice}}{{.UnitPrice.StringFixed 2}}{{else}}-{{end}}</td><td>{{if .LineTotal}}{{.LineTotal.StringFixed 2}}{{else}}-{{end}}</td></tr>
{{end}}</table>
<p>Total: <strong>{{.Total.StringFixed 2}}</strong></p>
{{if .Notes}}<p>Notes: {{.Notes}}</p>{{end}}
</body></html>`))

// RenderOrder renders the HTML body of an order email.
func RenderOrder(m OrderMail) (string, error) {
	var buf bytes.Buffer
	if err := orderTemplate.Execute(&buf, m); err != nil {
		return "", fmt.Errorf("render order email: %w", err)
	}
	return buf.String(), nil
}

// Notifier sends order emails with a bounded timeout.
type Notifier struct {
	sender  Sender
	timeout time.Duration
	metrics *metrics.Business
	wg      sync.WaitGroup
}

// NewNotifier creates a Notifier. A non-positive timeout defaults to 10s.
func NewNotifier(sender Sender, timeout time.Duration, m *metrics.Business) *Notifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Notifier{sender: sender, timeout: timeout, metrics: m}
}

// SendOrder delivers the email and reports failure to the caller.
func (n *Notifier) SendOrder(ctx context.Context, m OrderMail) error {
	if err := n.deliver(ctx, m); err != nil {
		if !apperror.IsInvalidInput(err) && !errors.Is(err, ErrDeliveryDisabled) {
			n.metrics.RecordNotificationFailure(ctx, "order_send")
		}
		return err
	}
	return nil
}

func (n *Notifier) deliver(ctx context.Context, m OrderMail) error {
	if m.To == "" {
		return apperror.NewInvalidInput("supplier has no email address").
			WithDetail("order_id", m.OrderID)
	}

	body, err := RenderOrder(m)
	if err != nil {
		return apperror.NewInternal(err)
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	subject := fmt.Sprintf("Bon de commande %s", m.OrderNumber)
	if err := n.sender.Send(ctx, []string{m.To}, subject, body); err != nil {
		if errors.Is(err, ErrDeliveryDisabled) {
			return apperror.NewConflict("email delivery is not configured").
				WithCause(err).
				WithDetail("order_id", m.OrderID)
		}
		return apperror.NewInternal(fmt.Errorf("send order email: %w", err)).
			WithDetail("order_id", m.OrderID)
	}
	return nil
}

// DispatchOrder sends the email in the background. It never blocks the caller
// and a failure is only logged. The parent's cancellation is not inherited.
func (n *Notifier) DispatchOrder(ctx context.Context, m OrderMail) {
	if m.To == "" {
		logger.Info(ctx, "order notification skipped, supplier has no email",
			"order_id", m.OrderID)
		return
	}

	detached := context.WithoutCancel(ctx)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				n.metrics.RecordNotificationFailure(detached, "order_created")
				logger.Error(detached, "order notification panicked", "order_id", m.OrderID, "panic", r)
			}
		}()

		if err := n.deliver(detached, m); err != nil {
			if errors.Is(err, ErrDeliveryDisabled) {
				logger.Debug(detached, "order notification skipped, delivery disabled", "order_id", m.OrderID)
				return
			}
			n.metrics.RecordNotificationFailure(detached, "order_created")
			logger.Warn(detached, "order notification failed",
				"order_id", m.OrderID,
				"order_number", m.OrderNumber,
				"error", err,
			)
			return
		}
		logger.Info(detached, "order notification sent",
			"order_id", m.OrderID,
			"to", m.To,
		)
	}()
}

// Wait blocks until every dispatched email has finished. Used on shutdown and in tests.
func (n *Notifier) Wait() {
	n.wg.Wait()
}
