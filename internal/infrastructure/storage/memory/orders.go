package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"magasin/internal/core/apperror"
	"magasin/internal/domain/purchasing/order"
)

// OrderRepo implements order.Repository.
type OrderRepo struct {
	store *Store
}

var _ order.Repository = (*OrderRepo)(nil)

func cloneOrder(o order.PurchaseOrder) order.PurchaseOrder {
	o.SourceRequestIDs = slices.Clone(o.SourceRequestIDs)
	o.Lines = cloneLines(o.Lines)
	if o.SentAt != nil {
		t := *o.SentAt
		o.SentAt = &t
	}
	if o.ReceivedAt != nil {
		t := *o.ReceivedAt
		o.ReceivedAt = &t
	}
	return o
}

func (r *OrderRepo) Create(ctx context.Context, o order.PurchaseOrder) (order.PurchaseOrder, error) {
	err := r.store.write(ctx, func(st *state) error {
		for _, existing := range st.orders {
			if existing.OrderNumber == o.OrderNumber {
				return apperror.NewDuplicate("purchase order", "order_number", o.OrderNumber)
			}
		}
		o.ID = st.newID()
		st.orders[o.ID] = cloneOrder(o)
		return nil
	})
	return o, err
}

func (r *OrderRepo) GetByID(ctx context.Context, id int64) (order.PurchaseOrder, error) {
	var out order.PurchaseOrder
	err := r.store.read(ctx, func(st *state) error {
		v, ok := st.orders[id]
		if !ok {
			return apperror.NewNotFound("purchase order", id)
		}
		out = cloneOrder(v)
		return nil
	})
	return out, err
}

func (r *OrderRepo) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	var found bool
	err := r.store.read(ctx, func(st *state) error {
		for _, o := range st.orders {
			if o.OrderNumber == number {
				found = true
				return nil
			}
		}
		return nil
	})
	return found, err
}

func (r *OrderRepo) CompareAndSetStatus(ctx context.Context, id int64, from []order.Status, to order.Status, at time.Time) (bool, error) {
	var changed bool
	err := r.store.write(ctx, func(st *state) error {
		o, ok := st.orders[id]
		if !ok || !slices.Contains(from, o.Status) {
			return nil
		}
		o.Status = to
		o.UpdatedAt = at
		if to == order.StatusReceived {
			o.ReceivedAt = &at
		}
		st.orders[id] = o
		changed = true
		return nil
	})
	return changed, err
}

func (r *OrderRepo) MarkEmailSent(ctx context.Context, id int64, at time.Time) (order.PurchaseOrder, error) {
	var out order.PurchaseOrder
	err := r.store.write(ctx, func(st *state) error {
		o, ok := st.orders[id]
		if !ok {
			return apperror.NewNotFound("purchase order", id)
		}
		o.EmailSent = true
		o.SentAt = &at
		o.UpdatedAt = at
		if o.Status == order.StatusPending {
			o.Status = order.StatusSent
		}
		st.orders[id] = o
		out = cloneOrder(o)
		return nil
	})
	return out, err
}

func (r *OrderRepo) ListByStore(ctx context.Context, filter order.ListFilter) ([]order.PurchaseOrder, error) {
	out := []order.PurchaseOrder{}
	err := r.store.read(ctx, func(st *state) error {
		for _, o := range st.orders {
			if o.StoreID != filter.StoreID {
				continue
			}
			if filter.Status != nil && o.Status != *filter.Status {
				continue
			}
			out = append(out, cloneOrder(o))
		}
		return nil
	})
	slices.SortFunc(out, func(a, b order.PurchaseOrder) int { return cmp.Compare(b.ID, a.ID) })
	return page(out, filter.Limit, filter.Offset), err
}
