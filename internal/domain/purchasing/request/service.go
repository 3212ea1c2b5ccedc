package request

import (
	"context"
	"fmt"
	"time"

	"magasin/internal/core/apperror"
	"magasin/internal/core/tx"
	"magasin/internal/domain/audit"
	"magasin/internal/domain/directory"
	"magasin/pkg/logger"
)

// Service implements the purchase request workflow.
type Service struct {
	repo  Repository
	txm   tx.Manager
	dir   directory.Reader
	audit audit.Recorder
	now   func() time.Time
}

// NewService creates a new purchase request service.
func NewService(repo Repository, txm tx.Manager, dir directory.Reader, rec audit.Recorder) *Service {
	return &Service{
		repo:  repo,
		txm:   txm,
		dir:   dir,
		audit: rec,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// CreateInput holds the fields of a new request.
type CreateInput struct {
	StoreID   int64
	Lines     []LineInput
	Notes     string
	CreatedBy int64
}

// Create validates the lines, snapshots catalog prices and stores a pending request.
func (s *Service) Create(ctx context.Context, in CreateInput) (PurchaseRequest, error) {
	if err := validateLines(in.Lines); err != nil {
		return PurchaseRequest{}, err
	}
	if _, err := s.dir.GetStore(ctx, in.StoreID); err != nil {
		return PurchaseRequest{}, err
	}
	lines, err := s.resolveLines(ctx, in.StoreID, in.Lines)
	if err != nil {
		return PurchaseRequest{}, err
	}

	now := s.now()
	r := PurchaseRequest{
		StoreID:     in.StoreID,
		Lines:       lines,
		TotalAmount: ComputeTotal(lines),
		Notes:       in.Notes,
		Status:      StatusPending,
		CreatedBy:   in.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		r, err = s.repo.Create(ctx, r)
		if err != nil {
			return fmt.Errorf("create purchase request: %w", err)
		}
		return s.record(ctx, r.ID, audit.ActionCreate, in.CreatedBy, map[string]any{
			"store_id": r.StoreID,
			"lines":    len(r.Lines),
		})
	})
	if err != nil {
		return PurchaseRequest{}, err
	}

	logger.Info(ctx, "purchase request created", "purchase_request_id", r.ID, "store_id", r.StoreID)
	return r, nil
}

// Approve records the decision of the store's responsible.
// approved_at is stamped for both approvals and rejections.
func (s *Service) Approve(ctx context.Context, id, approverID int64, decision Status) (PurchaseRequest, error) {
	if !decision.IsDecision() {
		return PurchaseRequest{}, apperror.NewInvalidInput("status must be approved or rejected").
			WithDetail("status", decision)
	}

	var r PurchaseRequest
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		r, err = s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		store, err := s.dir.GetStore(ctx, r.StoreID)
		if err != nil {
			return err
		}
		if !store.IsResponsible(approverID) {
			return apperror.NewForbidden("only the store's responsible can approve requests").
				WithDetail("store_id", r.StoreID)
		}
		if r.Status != StatusPending {
			return apperror.NewConflict("purchase request is not pending").
				WithDetail("status", r.Status)
		}

		now := s.now()
		r.Status = decision
		r.ApproverID = &approverID
		r.ApprovedAt = &now
		r.UpdatedAt = now
		if err := s.repo.Update(ctx, r); err != nil {
			return fmt.Errorf("update purchase request: %w", err)
		}
		return s.record(ctx, r.ID, audit.ActionStatus, approverID, map[string]any{"status": decision})
	})
	if err != nil {
		return PurchaseRequest{}, err
	}

	logger.Info(ctx, "purchase request decided", "purchase_request_id", id, "status", decision, "approver_id", approverID)
	return r, nil
}

// EditInput holds replacement lines and notes.
type EditInput struct {
	Lines    []LineInput
	Notes    string
	EditedBy int64
}

// Edit replaces the lines and notes, recomputes the total and re-opens approval.
func (s *Service) Edit(ctx context.Context, id int64, in EditInput) (PurchaseRequest, error) {
	if err := validateLines(in.Lines); err != nil {
		return PurchaseRequest{}, err
	}

	var r PurchaseRequest
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		r, err = s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		lines, err := s.resolveLines(ctx, r.StoreID, in.Lines)
		if err != nil {
			return err
		}

		previous := r.Status
		r.Lines = lines
		r.TotalAmount = ComputeTotal(lines)
		r.Notes = in.Notes
		r.Status = StatusPending
		r.ApproverID = nil
		r.ApprovedAt = nil
		r.UpdatedAt = s.now()
		if err := s.repo.Update(ctx, r); err != nil {
			return fmt.Errorf("update purchase request: %w", err)
		}
		return s.record(ctx, r.ID, audit.ActionUpdate, in.EditedBy, map[string]any{
			"previous_status": previous,
			"lines":           len(lines),
		})
	})
	if err != nil {
		return PurchaseRequest{}, err
	}
	return r, nil
}

// Delete removes a request that no order has consumed.
func (s *Service) Delete(ctx context.Context, id, deletedBy int64) error {
	return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		r, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if r.IsConsumed() {
			return apperror.NewConflict("purchase request already consumed by an order").
				WithDetail("order_id", *r.ConsumedByOrderID)
		}
		if err := s.repo.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete purchase request: %w", err)
		}
		return s.record(ctx, id, audit.ActionDelete, deletedBy, nil)
	})
}

// Get returns a request by id.
func (s *Service) Get(ctx context.Context, id int64) (PurchaseRequest, error) {
	return s.repo.GetByID(ctx, id)
}

// ListByStore returns the store's requests, newest first.
func (s *Service) ListByStore(ctx context.Context, filter ListFilter) ([]PurchaseRequest, error) {
	if filter.StoreID <= 0 {
		return nil, apperror.NewInvalidInput("store_id is required")
	}
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, apperror.NewInvalidInput("unknown status").WithDetail("status", *filter.Status)
	}
	return s.repo.ListByStore(ctx, filter)
}

func validateLines(lines []LineInput) error {
	if len(lines) == 0 {
		return apperror.NewInvalidInput("at least one line is required")
	}
	for i, l := range lines {
		if l.ProductID <= 0 {
			return apperror.NewInvalidInput(fmt.Sprintf("line %d: product_id is required", i))
		}
		if l.Quantity <= 0 {
			return apperror.NewInvalidInput(fmt.Sprintf("line %d: quantity must be positive", i)).
				WithDetail("quantity", l.Quantity)
		}
	}
	return nil
}

// resolveLines checks every product is catalog-approved in the store and
// captures its current price.
func (s *Service) resolveLines(ctx context.Context, storeID int64, in []LineInput) ([]Line, error) {
	lines := make([]Line, 0, len(in))
	for _, l := range in {
		p, err := directory.ResolveApprovedProduct(ctx, s.dir, storeID, l.ProductID)
		if err != nil {
			return nil, err
		}
		line := Line{ProductID: l.ProductID, Quantity: l.Quantity}
		if p.Price != nil {
			price := *p.Price
			line.UnitPrice = &price
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func (s *Service) record(ctx context.Context, id int64, action audit.Action, actor int64, changes map[string]any) error {
	if s.audit == nil {
		return nil
	}
	return s.audit.Record(ctx, audit.Entry{
		EntityType: audit.EntityPurchaseRequest,
		EntityID:   id,
		Action:     action,
		ActorID:    actor,
		Changes:    changes,
		CreatedAt:  s.now(),
	})
}
