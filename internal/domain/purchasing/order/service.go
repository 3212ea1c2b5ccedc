package order

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"magasin/internal/core/apperror"
	"magasin/internal/core/numerator"
	"magasin/internal/core/tx"
	"magasin/internal/domain/audit"
	"magasin/internal/domain/directory"
	"magasin/internal/domain/notification"
	"magasin/internal/domain/purchasing/request"
	"magasin/internal/domain/registers/stock"
	"magasin/pkg/logger"
	"magasin/pkg/metrics"
)

// maxNumberAttempts bounds the order number collision retry.
const maxNumberAttempts = 5

// StockRecorder is the ledger entry point used by reception.
type StockRecorder interface {
	RecordMovement(ctx context.Context, m stock.Movement) (stock.Entry, error)
}

// Mailer delivers supplier emails.
type Mailer interface {
	SendOrder(ctx context.Context, m notification.OrderMail) error
	DispatchOrder(ctx context.Context, m notification.OrderMail)
}

// Deps groups the collaborators of Service.
type Deps struct {
	Orders   Repository
	Requests request.Repository
	TxM      tx.Manager
	Dir      directory.Reader
	Stock    StockRecorder
	Numbers  numerator.Generator
	Mailer   Mailer
	Audit    audit.Recorder
	Metrics  *metrics.Business
}

// Service implements order consolidation, status changes and reception.
type Service struct {
	Deps
	now func() time.Time
}

// NewService creates a new purchase order service.
func NewService(d Deps) *Service {
	return &Service{
		Deps: d,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// CreateInput holds the consolidation parameters.
type CreateInput struct {
	SourceRequestIDs []int64
	SupplierID       int64
	StoreID          int64
	Notes            string
	CreatedBy        int64
}

// Create consolidates approved requests into one pending order. Every source
// request is marked consumed in the same transaction. The supplier email is
// dispatched after commit and never fails the call.
func (s *Service) Create(ctx context.Context, in CreateInput) (PurchaseOrder, error) {
	if err := validateCreate(in); err != nil {
		return PurchaseOrder{}, err
	}

	var (
		o        PurchaseOrder
		supplier directory.Supplier
		store    directory.Store
	)
	err := s.TxM.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		store, err = s.Dir.GetStore(ctx, in.StoreID)
		if err != nil {
			return err
		}

		var (
			lines []request.Line
			total decimal.Decimal
		)
		for _, id := range in.SourceRequestIDs {
			r, err := s.Requests.GetForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if r.StoreID != in.StoreID || r.Status != request.StatusApproved {
				return apperror.NewNotFound("approved purchase request", id).
					WithDetail("store_id", in.StoreID)
			}
			if r.IsConsumed() {
				return apperror.NewConflict("purchase request already consumed by an order").
					WithDetail("purchase_request_id", id).
					WithDetail("order_id", *r.ConsumedByOrderID)
			}
			lines = append(lines, r.Lines...)
			if r.TotalAmount != nil {
				total = total.Add(*r.TotalAmount)
			}
		}

		supplier, err = directory.ResolveSupplier(ctx, s.Dir, in.StoreID, in.SupplierID)
		if err != nil {
			return err
		}

		now := s.now()
		number, err := s.nextOrderNumber(ctx, now)
		if err != nil {
			return err
		}

		o, err = s.Orders.Create(ctx, PurchaseOrder{
			SourceRequestIDs: append([]int64(nil), in.SourceRequestIDs...),
			SupplierID:       in.SupplierID,
			StoreID:          in.StoreID,
			OrderNumber:      number,
			Lines:            lines,
			TotalAmount:      total,
			Notes:            in.Notes,
			Status:           StatusPending,
			CreatedBy:        in.CreatedBy,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
		if err != nil {
			return fmt.Errorf("create purchase order: %w", err)
		}

		for _, id := range in.SourceRequestIDs {
			if err := s.Requests.MarkConsumed(ctx, id, o.ID); err != nil {
				return err
			}
		}

		return s.record(ctx, o.ID, audit.ActionCreate, in.CreatedBy, map[string]any{
			"order_number":       o.OrderNumber,
			"source_request_ids": o.SourceRequestIDs,
			"total_amount":       o.TotalAmount.String(),
		})
	})
	if err != nil {
		return PurchaseOrder{}, err
	}

	s.Metrics.RecordOrderCreated(ctx, o.StoreID)
	logger.Info(ctx, "purchase order created",
		"order_id", o.ID,
		"order_number", o.OrderNumber,
		"store_id", o.StoreID,
		"requests", len(o.SourceRequestIDs),
	)

	if s.Mailer != nil {
		s.Mailer.DispatchOrder(ctx, s.buildMail(ctx, o, store, supplier))
	}
	return o, nil
}

func validateCreate(in CreateInput) error {
	if len(in.SourceRequestIDs) == 0 {
		return apperror.NewInvalidInput("source_request_ids must not be empty")
	}
	seen := make(map[int64]struct{}, len(in.SourceRequestIDs))
	for _, id := range in.SourceRequestIDs {
		if id <= 0 {
			return apperror.NewInvalidInput("source_request_ids must be positive").WithDetail("id", id)
		}
		if _, dup := seen[id]; dup {
			return apperror.NewInvalidInput("source_request_ids contains a duplicate").WithDetail("id", id)
		}
		seen[id] = struct{}{}
	}
	if in.SupplierID <= 0 {
		return apperror.NewInvalidInput("supplier_id is required")
	}
	if in.StoreID <= 0 {
		return apperror.NewInvalidInput("store_id is required")
	}
	return nil
}

// nextOrderNumber draws random numbers until one is unused.
func (s *Service) nextOrderNumber(ctx context.Context, now time.Time) (string, error) {
	cfg := numerator.OrderConfig()
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		number, err := s.Numbers.GetNextNumber(ctx, cfg, now)
		if err != nil {
			return "", fmt.Errorf("generate order number: %w", err)
		}
		exists, err := s.Orders.ExistsByNumber(ctx, number)
		if err != nil {
			return "", fmt.Errorf("check order number: %w", err)
		}
		if !exists {
			return number, nil
		}
		logger.Warn(ctx, "order number collision, retrying", "order_number", number, "attempt", attempt+1)
	}
	return "", apperror.NewConflict("could not allocate a unique order number").
		WithDetail("attempts", maxNumberAttempts)
}

// StatusInput is a requested status change. ReceivedLines is only read for
// StatusReceived.
type StatusInput struct {
	Status        Status
	ReceivedLines []ReceivedLine
	PerformedBy   int64
}

// UpdateStatus changes the order status. Moving to received always goes
// through Receive, so the status cannot change without the stock effect.
func (s *Service) UpdateStatus(ctx context.Context, id int64, in StatusInput) (PurchaseOrder, error) {
	switch in.Status {
	case StatusSent, StatusConfirmed, StatusCancelled:
	case StatusReceived:
		return s.Receive(ctx, id, in.ReceivedLines, in.PerformedBy)
	default:
		return PurchaseOrder{}, apperror.NewInvalidInput("status must be sent, confirmed, received or cancelled").
			WithDetail("status", in.Status)
	}

	var o PurchaseOrder
	err := s.TxM.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		o, err = s.Orders.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !o.Status.CanTransitionTo(in.Status) {
			return apperror.NewConflict("purchase order status cannot change").
				WithDetail("from", o.Status).
				WithDetail("to", in.Status)
		}
		now := s.now()
		ok, err := s.Orders.CompareAndSetStatus(ctx, id, []Status{o.Status}, in.Status, now)
		if err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		if !ok {
			return apperror.NewConflict("purchase order was modified concurrently").WithDetail("order_id", id)
		}
		previous := o.Status
		o.Status = in.Status
		o.UpdatedAt = now
		return s.record(ctx, id, audit.ActionStatus, in.PerformedBy, map[string]any{
			"from": previous,
			"to":   in.Status,
		})
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	return o, nil
}

// Receive records the arrival of goods. Every line is appended to the stock
// ledger and the order flips to received in one transaction: either all of
// it persists or none. Only one concurrent caller can win the status swap.
func (s *Service) Receive(ctx context.Context, id int64, lines []ReceivedLine, performedBy int64) (PurchaseOrder, error) {
	if len(lines) == 0 {
		return PurchaseOrder{}, apperror.NewInvalidInput("received_lines must not be empty")
	}

	var o PurchaseOrder
	err := s.TxM.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		o, err = s.Orders.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.validateReceivedLines(ctx, o.StoreID, lines); err != nil {
			return err
		}

		now := s.now()
		ok, err := s.Orders.CompareAndSetStatus(ctx, id, receivableStatuses, StatusReceived, now)
		if err != nil {
			return fmt.Errorf("mark order received: %w", err)
		}
		if !ok {
			return apperror.NewConflict("purchase order cannot be received").
				WithDetail("order_id", id).
				WithDetail("status", o.Status)
		}

		orderID := o.ID
		for _, l := range lines {
			price := l.UnitPrice
			if price == nil {
				price = o.priceOf(l.ProductID)
			}
			_, err := s.Stock.RecordMovement(ctx, stock.Movement{
				ProductID:     l.ProductID,
				StoreID:       o.StoreID,
				MovementType:  stock.MovementIn,
				Quantity:      l.ReceivedQuantity,
				OrderID:       &orderID,
				UnitPrice:     price,
				ReferenceType: "purchase_order",
				ReferenceID:   &orderID,
				Notes:         "Réception " + o.OrderNumber,
				PerformedBy:   performedBy,
			})
			if err != nil {
				return fmt.Errorf("receive product %d: %w", l.ProductID, err)
			}
		}

		previous := o.Status
		o.Status = StatusReceived
		o.ReceivedAt = &now
		o.UpdatedAt = now
		return s.record(ctx, id, audit.ActionStatus, performedBy, map[string]any{
			"from":  previous,
			"to":    StatusReceived,
			"lines": len(lines),
		})
	})
	if err != nil {
		return PurchaseOrder{}, err
	}

	s.Metrics.RecordReception(ctx, o.StoreID)
	logger.Info(ctx, "purchase order received", "order_id", id, "lines", len(lines))
	return o, nil
}

// validateReceivedLines fails fast on the first bad line, before any write.
func (s *Service) validateReceivedLines(ctx context.Context, storeID int64, lines []ReceivedLine) error {
	for i, l := range lines {
		if l.ReceivedQuantity <= 0 {
			return apperror.NewInvalidInput(fmt.Sprintf("line %d: received_quantity must be positive", i)).
				WithDetail("product_id", l.ProductID)
		}
		if l.UnitPrice != nil && l.UnitPrice.IsNegative() {
			return apperror.NewInvalidInput(fmt.Sprintf("line %d: unit_price must not be negative", i))
		}
		if _, err := directory.ResolveProduct(ctx, s.Dir, storeID, l.ProductID); err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewInvalidInput(fmt.Sprintf("line %d: unknown product", i)).
					WithDetail("product_id", l.ProductID)
			}
			return err
		}
	}
	return nil
}

// SendEmail sends the order to its supplier synchronously. Only a successful
// send stamps email_sent and sent_at; a pending order moves to sent.
func (s *Service) SendEmail(ctx context.Context, id int64) (PurchaseOrder, error) {
	o, err := s.Orders.GetByID(ctx, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	supplier, err := s.Dir.GetSupplier(ctx, o.SupplierID)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if supplier.Email == "" {
		return PurchaseOrder{}, apperror.NewInvalidInput("supplier has no email address").
			WithDetail("supplier_id", supplier.ID)
	}
	store, err := s.Dir.GetStore(ctx, o.StoreID)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if s.Mailer == nil {
		return PurchaseOrder{}, apperror.NewInternal(fmt.Errorf("mailer not configured"))
	}
	if err := s.Mailer.SendOrder(ctx, s.buildMail(ctx, o, store, supplier)); err != nil {
		return PurchaseOrder{}, err
	}

	o, err = s.Orders.MarkEmailSent(ctx, id, s.now())
	if err != nil {
		return PurchaseOrder{}, fmt.Errorf("mark email sent: %w", err)
	}
	logger.Info(ctx, "purchase order emailed", "order_id", id, "to", supplier.Email)
	return o, nil
}

// Get returns an order by id.
func (s *Service) Get(ctx context.Context, id int64) (PurchaseOrder, error) {
	return s.Orders.GetByID(ctx, id)
}

// ListByStore returns the store's orders, newest first.
func (s *Service) ListByStore(ctx context.Context, filter ListFilter) ([]PurchaseOrder, error) {
	if filter.StoreID <= 0 {
		return nil, apperror.NewInvalidInput("store_id is required")
	}
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, apperror.NewInvalidInput("unknown status").WithDetail("status", *filter.Status)
	}
	return s.Orders.ListByStore(ctx, filter)
}

func (s *Service) buildMail(ctx context.Context, o PurchaseOrder, store directory.Store, supplier directory.Supplier) notification.OrderMail {
	lines := make([]notification.MailLine, 0, len(o.Lines))
	for _, l := range o.Lines {
		name := fmt.Sprintf("#%d", l.ProductID)
		if p, err := s.Dir.GetProduct(ctx, l.ProductID); err == nil {
			name = p.Name
		}
		lines = append(lines, notification.MailLine{
			ProductID:   l.ProductID,
			ProductName: name,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			LineTotal:   l.Total(),
		})
	}
	return notification.OrderMail{
		OrderID:      o.ID,
		OrderNumber:  o.OrderNumber,
		StoreName:    store.Name,
		SupplierName: supplier.Name,
		To:           supplier.Email,
		Lines:        lines,
		Total:        o.TotalAmount,
		Notes:        o.Notes,
	}
}

func (s *Service) record(ctx context.Context, id int64, action audit.Action, actor int64, changes map[string]any) error {
	if s.Audit == nil {
		return nil
	}
	return s.Audit.Record(ctx, audit.Entry{
		EntityType: audit.EntityPurchaseOrder,
		EntityID:   id,
		Action:     action,
		ActorID:    actor,
		Changes:    changes,
		CreatedAt:  s.now(),
	})
}
