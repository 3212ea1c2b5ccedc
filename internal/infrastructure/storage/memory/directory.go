package memory

import (
	"context"

	"magasin/internal/core/apperror"
	"magasin/internal/domain/directory"
)

// DirectoryRepo implements directory.Reader and the seeding helpers.
type DirectoryRepo struct {
	store *Store
}

var _ directory.Reader = (*DirectoryRepo)(nil)

func (r *DirectoryRepo) GetStore(ctx context.Context, id int64) (directory.Store, error) {
	var out directory.Store
	err := r.store.read(ctx, func(st *state) error {
		v, ok := st.stores[id]
		if !ok {
			return apperror.NewNotFound("store", id)
		}
		out = v
		out.ResponsibleID = cloneInt64(v.ResponsibleID)
		return nil
	})
	return out, err
}

func (r *DirectoryRepo) GetSupplier(ctx context.Context, id int64) (directory.Supplier, error) {
	var out directory.Supplier
	err := r.store.read(ctx, func(st *state) error {
		v, ok := st.suppliers[id]
		if !ok {
			return apperror.NewNotFound("supplier", id)
		}
		out = v
		return nil
	})
	return out, err
}

func (r *DirectoryRepo) GetProduct(ctx context.Context, id int64) (directory.Product, error) {
	var out directory.Product
	err := r.store.read(ctx, func(st *state) error {
		v, ok := st.products[id]
		if !ok {
			return apperror.NewNotFound("product", id)
		}
		out = v
		out.Price = cloneDecimal(v.Price)
		return nil
	})
	return out, err
}

// PutStore inserts or replaces a store. A zero ID gets the next free id.
func (r *DirectoryRepo) PutStore(ctx context.Context, s directory.Store) directory.Store {
	_ = r.store.write(ctx, func(st *state) error {
		if s.ID == 0 {
			s.ID = st.newID()
		}
		s.ResponsibleID = cloneInt64(s.ResponsibleID)
		st.stores[s.ID] = s
		return nil
	})
	return s
}

// PutSupplier inserts or replaces a supplier. A zero ID gets the next free id.
func (r *DirectoryRepo) PutSupplier(ctx context.Context, s directory.Supplier) directory.Supplier {
	_ = r.store.write(ctx, func(st *state) error {
		if s.ID == 0 {
			s.ID = st.newID()
		}
		st.suppliers[s.ID] = s
		return nil
	})
	return s
}

// PutProduct inserts or replaces a product. A zero ID gets the next free id.
func (r *DirectoryRepo) PutProduct(ctx context.Context, p directory.Product) directory.Product {
	_ = r.store.write(ctx, func(st *state) error {
		if p.ID == 0 {
			p.ID = st.newID()
		}
		p.Price = cloneDecimal(p.Price)
		st.products[p.ID] = p
		return nil
	})
	return p
}
