package memory

import (
	"context"

	"github.com/shopspring/decimal"

	"magasin/internal/domain/directory"
)

// DemoData lists the ids created by SeedDemo.
type DemoData struct {
	Store       directory.Store
	Supplier    directory.Supplier
	Products    []directory.Product
	Responsible int64
}

// SeedDemo fills an empty store with one store, its responsible (user 1),
// one supplier and three products. Used by the server when running on the
// memory driver.
func SeedDemo(ctx context.Context, s *Store) DemoData {
	dir := s.Directory()
	responsible := int64(1)

	store := dir.PutStore(ctx, directory.Store{
		Name:          "Magasin Central",
		Address:       "1 rue du Commerce",
		ResponsibleID: &responsible,
	})
	supplier := dir.PutSupplier(ctx, directory.Supplier{
		StoreID: store.ID,
		Name:    "Grossiste du Nord",
		Email:   "commandes@grossiste.example",
		Phone:   "+33 1 23 45 67 89",
		Address: "12 avenue des Halles",
	})

	price := func(s string) *decimal.Decimal {
		d := decimal.RequireFromString(s)
		return &d
	}
	products := []directory.Product{
		dir.PutProduct(ctx, directory.Product{StoreID: store.ID, Name: "Farine T55 1kg", Price: price("1.20"), Approved: true}),
		dir.PutProduct(ctx, directory.Product{StoreID: store.ID, Name: "Huile d'olive 1L", Price: price("7.50"), Approved: true}),
		dir.PutProduct(ctx, directory.Product{StoreID: store.ID, Name: "Sel de Guérande", Approved: true}),
	}

	return DemoData{Store: store, Supplier: supplier, Products: products, Responsible: responsible}
}
