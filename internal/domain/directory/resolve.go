package directory

import (
	"context"

	"magasin/internal/core/apperror"
)

// ResolveProduct loads a product and checks it belongs to storeID.
// A product from another store is reported as NotFound.
func ResolveProduct(ctx context.Context, r Reader, storeID, productID int64) (Product, error) {
	p, err := r.GetProduct(ctx, productID)
	if err != nil {
		return Product{}, err
	}
	if p.StoreID != storeID {
		return Product{}, apperror.NewNotFound("product", productID).WithDetail("store_id", storeID)
	}
	return p, nil
}

// ResolveApprovedProduct is ResolveProduct restricted to catalog-approved products.
func ResolveApprovedProduct(ctx context.Context, r Reader, storeID, productID int64) (Product, error) {
	p, err := ResolveProduct(ctx, r, storeID, productID)
	if err != nil {
		return Product{}, err
	}
	if !p.Approved {
		return Product{}, apperror.NewNotFound("product", productID).WithDetail("reason", "not approved")
	}
	return p, nil
}

// ResolveSupplier loads a supplier and checks it belongs to storeID.
func ResolveSupplier(ctx context.Context, r Reader, storeID, supplierID int64) (Supplier, error) {
	s, err := r.GetSupplier(ctx, supplierID)
	if err != nil {
		return Supplier{}, err
	}
	if s.StoreID != storeID {
		return Supplier{}, apperror.NewNotFound("supplier", supplierID).WithDetail("store_id", storeID)
	}
	return s, nil
}
