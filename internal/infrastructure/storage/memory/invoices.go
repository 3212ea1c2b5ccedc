package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"magasin/internal/core/apperror"
	"magasin/internal/domain/invoice"
)

// InvoiceRepo implements invoice.Repository.
type InvoiceRepo struct {
	store *Store
}

var _ invoice.Repository = (*InvoiceRepo)(nil)

func cloneInvoice(inv invoice.Invoice) invoice.Invoice {
	inv.Snapshot.Order.Lines = cloneLines(inv.Snapshot.Order.Lines)
	return inv
}

func (r *InvoiceRepo) Create(ctx context.Context, inv invoice.Invoice) (invoice.Invoice, error) {
	err := r.store.write(ctx, func(st *state) error {
		for _, existing := range st.invoices {
			if existing.OrderID == inv.OrderID {
				return apperror.NewDuplicate("invoice", "order_id", inv.OrderID)
			}
			if existing.InvoiceNumber == inv.InvoiceNumber {
				return apperror.NewDuplicate("invoice", "invoice_number", inv.InvoiceNumber)
			}
		}
		inv.ID = st.newID()
		st.invoices[inv.ID] = cloneInvoice(inv)
		return nil
	})
	return inv, err
}

func (r *InvoiceRepo) GetByID(ctx context.Context, id int64) (invoice.Invoice, error) {
	var out invoice.Invoice
	err := r.store.read(ctx, func(st *state) error {
		v, ok := st.invoices[id]
		if !ok {
			return apperror.NewNotFound("invoice", id)
		}
		out = cloneInvoice(v)
		return nil
	})
	return out, err
}

func (r *InvoiceRepo) GetByOrder(ctx context.Context, orderID int64) (invoice.Invoice, error) {
	var out invoice.Invoice
	err := r.store.read(ctx, func(st *state) error {
		for _, v := range st.invoices {
			if v.OrderID == orderID {
				out = cloneInvoice(v)
				return nil
			}
		}
		return apperror.NewNotFound("invoice", orderID).WithDetail("order_id", orderID)
	})
	return out, err
}

func (r *InvoiceRepo) UpdateStatus(ctx context.Context, id int64, status invoice.Status, at time.Time) (invoice.Invoice, error) {
	var out invoice.Invoice
	err := r.store.write(ctx, func(st *state) error {
		v, ok := st.invoices[id]
		if !ok {
			return apperror.NewNotFound("invoice", id)
		}
		v.Status = status
		v.UpdatedAt = at
		st.invoices[id] = v
		out = cloneInvoice(v)
		return nil
	})
	return out, err
}

func (r *InvoiceRepo) ListByStore(ctx context.Context, filter invoice.ListFilter) ([]invoice.Invoice, error) {
	out := []invoice.Invoice{}
	err := r.store.read(ctx, func(st *state) error {
		for _, v := range st.invoices {
			if v.StoreID != filter.StoreID {
				continue
			}
			if filter.Status != nil && v.Status != *filter.Status {
				continue
			}
			out = append(out, cloneInvoice(v))
		}
		return nil
	})
	slices.SortFunc(out, func(a, b invoice.Invoice) int { return cmp.Compare(b.ID, a.ID) })
	return page(out, filter.Limit, filter.Offset), err
}
