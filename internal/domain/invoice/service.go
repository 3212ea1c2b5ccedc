package invoice

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"magasin/internal/core/apperror"
	"magasin/internal/core/numerator"
	"magasin/internal/core/tx"
	"magasin/internal/core/types"
	"magasin/internal/domain/audit"
	"magasin/internal/domain/directory"
	"magasin/internal/domain/purchasing/order"
	"magasin/pkg/logger"
	"magasin/pkg/metrics"
)

// OrderReader loads purchase orders.
type OrderReader interface {
	GetByID(ctx context.Context, id int64) (order.PurchaseOrder, error)
}

// Service issues invoices.
type Service struct {
	repo    Repository
	orders  OrderReader
	txm     tx.Manager
	dir     directory.Reader
	numbers numerator.Generator
	audit   audit.Recorder
	metrics *metrics.Business
	now     func() time.Time
}

// NewService creates a new invoice service.
func NewService(
	repo Repository,
	orders OrderReader,
	txm tx.Manager,
	dir directory.Reader,
	numbers numerator.Generator,
	rec audit.Recorder,
	m *metrics.Business,
) *Service {
	return &Service{
		repo:    repo,
		orders:  orders,
		txm:     txm,
		dir:     dir,
		numbers: numbers,
		audit:   rec,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CreateInput holds the invoice parameters. StoreID 0 means the order's own
// store; TaxRate nil means 0.
type CreateInput struct {
	OrderID   int64
	StoreID   int64
	TaxRate   *decimal.Decimal
	CreatedBy int64
}

// Create issues the single invoice of a received order.
func (s *Service) Create(ctx context.Context, in CreateInput) (Invoice, error) {
	if in.OrderID <= 0 {
		return Invoice{}, apperror.NewInvalidInput("order_id is required")
	}
	rate := decimal.Zero
	if in.TaxRate != nil {
		rate = *in.TaxRate
	}
	if rate.IsNegative() {
		return Invoice{}, apperror.NewInvalidInput("tax_rate must be >= 0").WithDetail("tax_rate", rate.String())
	}

	var inv Invoice
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetByID(ctx, in.OrderID)
		if err != nil {
			return err
		}
		if in.StoreID != 0 && o.StoreID != in.StoreID {
			return apperror.NewNotFound("purchase order", in.OrderID).WithDetail("store_id", in.StoreID)
		}
		if o.Status != order.StatusReceived {
			return apperror.NewConflict("only received orders can be invoiced").
				WithDetail("order_id", o.ID).
				WithDetail("status", o.Status)
		}
		if _, err := s.repo.GetByOrder(ctx, o.ID); err == nil {
			return apperror.NewDuplicate("invoice", "order_id", o.ID)
		} else if !apperror.IsNotFound(err) {
			return err
		}

		snapshot, err := s.snapshot(ctx, o)
		if err != nil {
			return err
		}

		now := s.now()
		number, err := s.numbers.GetNextNumber(ctx, numerator.InvoiceConfig(), now)
		if err != nil {
			return fmt.Errorf("generate invoice number: %w", err)
		}

		tax := types.Percent(o.TotalAmount, rate)
		inv, err = s.repo.Create(ctx, Invoice{
			OrderID:       o.ID,
			StoreID:       o.StoreID,
			InvoiceNumber: number,
			TotalAmount:   o.TotalAmount,
			TaxRate:       rate,
			TaxAmount:     tax,
			FinalAmount:   o.TotalAmount.Add(tax),
			Snapshot:      snapshot,
			Status:        StatusDraft,
			CreatedBy:     in.CreatedBy,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
		if err != nil {
			return fmt.Errorf("create invoice: %w", err)
		}
		return s.record(ctx, inv.ID, audit.ActionCreate, in.CreatedBy, map[string]any{
			"order_id":       inv.OrderID,
			"invoice_number": inv.InvoiceNumber,
			"final_amount":   inv.FinalAmount.String(),
		})
	})
	if err != nil {
		return Invoice{}, err
	}

	s.metrics.RecordInvoiceCreated(ctx, inv.StoreID)
	logger.Info(ctx, "invoice created",
		"invoice_id", inv.ID,
		"invoice_number", inv.InvoiceNumber,
		"order_id", inv.OrderID,
	)
	return inv, nil
}

func (s *Service) snapshot(ctx context.Context, o order.PurchaseOrder) (Snapshot, error) {
	supplier, err := s.dir.GetSupplier(ctx, o.SupplierID)
	if err != nil {
		return Snapshot{}, err
	}
	store, err := s.dir.GetStore(ctx, o.StoreID)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Order: OrderSnapshot{
			ID:          o.ID,
			OrderNumber: o.OrderNumber,
			OrderDate:   o.CreatedAt,
			Lines:       o.Lines,
			TotalAmount: o.TotalAmount,
			Notes:       o.Notes,
		},
		Supplier: SupplierSnapshot{
			ID:      supplier.ID,
			Name:    supplier.Name,
			Email:   supplier.Email,
			Phone:   supplier.Phone,
			Address: supplier.Address,
		},
		Store: StoreSnapshot{
			ID:      store.ID,
			Name:    store.Name,
			Address: store.Address,
		},
	}, nil
}

// UpdateStatus changes the invoice status. It has no effect on orders or stock.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status Status, performedBy int64) (Invoice, error) {
	if !status.IsValid() {
		return Invoice{}, apperror.NewInvalidInput("status must be draft, sent, paid or overdue").
			WithDetail("status", status)
	}

	var inv Invoice
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		inv, err = s.repo.UpdateStatus(ctx, id, status, s.now())
		if err != nil {
			return err
		}
		return s.record(ctx, id, audit.ActionStatus, performedBy, map[string]any{"status": status})
	})
	if err != nil {
		return Invoice{}, err
	}
	return inv, nil
}

// Get returns an invoice by id.
func (s *Service) Get(ctx context.Context, id int64) (Invoice, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByOrder returns the invoice of an order.
func (s *Service) GetByOrder(ctx context.Context, orderID int64) (Invoice, error) {
	return s.repo.GetByOrder(ctx, orderID)
}

// ListByStore returns the store's invoices, newest first.
func (s *Service) ListByStore(ctx context.Context, filter ListFilter) ([]Invoice, error) {
	if filter.StoreID <= 0 {
		return nil, apperror.NewInvalidInput("store_id is required")
	}
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, apperror.NewInvalidInput("unknown status").WithDetail("status", *filter.Status)
	}
	return s.repo.ListByStore(ctx, filter)
}

func (s *Service) record(ctx context.Context, id int64, action audit.Action, actor int64, changes map[string]any) error {
	if s.audit == nil {
		return nil
	}
	return s.audit.Record(ctx, audit.Entry{
		EntityType: audit.EntityInvoice,
		EntityID:   id,
		Action:     action,
		ActorID:    actor,
		Changes:    changes,
		CreatedAt:  s.now(),
	})
}
