package memory

import (
	"cmp"
	"context"
	"slices"

	"magasin/internal/core/apperror"
	"magasin/internal/domain/purchasing/request"
)

// RequestRepo implements request.Repository.
type RequestRepo struct {
	store *Store
}

var _ request.Repository = (*RequestRepo)(nil)

func cloneRequest(r request.PurchaseRequest) request.PurchaseRequest {
	r.Lines = cloneLines(r.Lines)
	r.TotalAmount = cloneDecimal(r.TotalAmount)
	r.ApproverID = cloneInt64(r.ApproverID)
	r.ConsumedByOrderID = cloneInt64(r.ConsumedByOrderID)
	if r.ApprovedAt != nil {
		t := *r.ApprovedAt
		r.ApprovedAt = &t
	}
	return r
}

func (r *RequestRepo) Create(ctx context.Context, pr request.PurchaseRequest) (request.PurchaseRequest, error) {
	err := r.store.write(ctx, func(st *state) error {
		pr.ID = st.newID()
		st.requests[pr.ID] = cloneRequest(pr)
		return nil
	})
	return pr, err
}

func (r *RequestRepo) GetByID(ctx context.Context, id int64) (request.PurchaseRequest, error) {
	var out request.PurchaseRequest
	err := r.store.read(ctx, func(st *state) error {
		v, ok := st.requests[id]
		if !ok {
			return apperror.NewNotFound("purchase request", id)
		}
		out = cloneRequest(v)
		return nil
	})
	return out, err
}

// GetForUpdate is GetByID; transactions are already exclusive.
func (r *RequestRepo) GetForUpdate(ctx context.Context, id int64) (request.PurchaseRequest, error) {
	return r.GetByID(ctx, id)
}

func (r *RequestRepo) Update(ctx context.Context, pr request.PurchaseRequest) error {
	return r.store.write(ctx, func(st *state) error {
		if _, ok := st.requests[pr.ID]; !ok {
			return apperror.NewNotFound("purchase request", pr.ID)
		}
		st.requests[pr.ID] = cloneRequest(pr)
		return nil
	})
}

func (r *RequestRepo) Delete(ctx context.Context, id int64) error {
	return r.store.write(ctx, func(st *state) error {
		if _, ok := st.requests[id]; !ok {
			return apperror.NewNotFound("purchase request", id)
		}
		delete(st.requests, id)
		return nil
	})
}

func (r *RequestRepo) ListByStore(ctx context.Context, filter request.ListFilter) ([]request.PurchaseRequest, error) {
	out := []request.PurchaseRequest{}
	err := r.store.read(ctx, func(st *state) error {
		for _, v := range st.requests {
			if v.StoreID != filter.StoreID {
				continue
			}
			if filter.Status != nil && v.Status != *filter.Status {
				continue
			}
			out = append(out, cloneRequest(v))
		}
		return nil
	})
	slices.SortFunc(out, func(a, b request.PurchaseRequest) int { return cmp.Compare(b.ID, a.ID) })
	return page(out, filter.Limit, filter.Offset), err
}

func (r *RequestRepo) MarkConsumed(ctx context.Context, id, orderID int64) error {
	return r.store.write(ctx, func(st *state) error {
		v, ok := st.requests[id]
		if !ok {
			return apperror.NewNotFound("purchase request", id)
		}
		if v.ConsumedByOrderID != nil {
			return apperror.NewConflict("purchase request already consumed by an order").
				WithDetail("purchase_request_id", id).
				WithDetail("order_id", *v.ConsumedByOrderID)
		}
		v.ConsumedByOrderID = &orderID
		st.requests[id] = v
		return nil
	})
}
