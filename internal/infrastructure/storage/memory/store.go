// Package memory is an in-process storage backend. Transactions are
// serialised and roll back by restoring a snapshot of the whole state, which
// gives the domain the same all-or-nothing guarantees as Postgres.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/shopspring/decimal"

	"magasin/internal/domain/audit"
	"magasin/internal/domain/directory"
	"magasin/internal/domain/invoice"
	"magasin/internal/domain/purchasing/order"
	"magasin/internal/domain/purchasing/request"
	"magasin/internal/domain/registers/stock"
)

type levelKey struct {
	productID int64
	storeID   int64
}

type state struct {
	stores    map[int64]directory.Store
	suppliers map[int64]directory.Supplier
	products  map[int64]directory.Product
	requests  map[int64]request.PurchaseRequest
	orders    map[int64]order.PurchaseOrder
	entries   []stock.Entry
	levels    map[levelKey]stock.Level
	invoices  map[int64]invoice.Invoice
	audit     []audit.Entry
	sequences map[string]int64
	nextID    int64
}

func newState() *state {
	return &state{
		stores:    make(map[int64]directory.Store),
		suppliers: make(map[int64]directory.Supplier),
		products:  make(map[int64]directory.Product),
		requests:  make(map[int64]request.PurchaseRequest),
		orders:    make(map[int64]order.PurchaseOrder),
		levels:    make(map[levelKey]stock.Level),
		invoices:  make(map[int64]invoice.Invoice),
		sequences: make(map[string]int64),
	}
}

// clone copies the maps and slices. Stored values are already private
// copies, so a shallow copy of each container is enough.
func (st *state) clone() *state {
	return &state{
		stores:    maps.Clone(st.stores),
		suppliers: maps.Clone(st.suppliers),
		products:  maps.Clone(st.products),
		requests:  maps.Clone(st.requests),
		orders:    maps.Clone(st.orders),
		entries:   slices.Clone(st.entries),
		levels:    maps.Clone(st.levels),
		invoices:  maps.Clone(st.invoices),
		audit:     slices.Clone(st.audit),
		sequences: maps.Clone(st.sequences),
		nextID:    st.nextID,
	}
}

func (st *state) newID() int64 {
	st.nextID++
	return st.nextID
}

// Store holds the whole dataset.
type Store struct {
	// txMu serialises units of work: one transaction or one standalone call.
	txMu sync.Mutex
	// mu guards st.
	mu sync.RWMutex
	st *state
}

// New creates an empty store.
func New() *Store {
	return &Store{st: newState()}
}

type txKey struct{}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// read runs fn against the state. Outside a transaction it waits for any
// running transaction, so it never observes uncommitted writes.
func (s *Store) read(ctx context.Context, fn func(st *state) error) error {
	if !s.inTx(ctx) {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.st)
}

func (s *Store) write(ctx context.Context, fn func(st *state) error) error {
	if !s.inTx(ctx) {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// TxManager returns the transaction manager of the store.
func (s *Store) TxManager() *TxManager { return &TxManager{store: s} }

// Directory returns the directory reader.
func (s *Store) Directory() *DirectoryRepo { return &DirectoryRepo{store: s} }

// Requests returns the purchase request repository.
func (s *Store) Requests() *RequestRepo { return &RequestRepo{store: s} }

// Orders returns the purchase order repository.
func (s *Store) Orders() *OrderRepo { return &OrderRepo{store: s} }

// Stock returns the stock ledger repository.
func (s *Store) Stock() *StockRepo { return &StockRepo{store: s} }

// Invoices returns the invoice repository.
func (s *Store) Invoices() *InvoiceRepo { return &InvoiceRepo{store: s} }

// Audit returns the audit recorder.
func (s *Store) Audit() *AuditRepo { return &AuditRepo{store: s} }

// Numbers returns the document number generator.
func (s *Store) Numbers() *NumberGenerator { return &NumberGenerator{store: s} }

// TxManager implements tx.Manager for the memory store.
type TxManager struct {
	store *Store
}

// RunInTransaction runs fn with exclusive access to the store. If fn returns
// an error or panics every change it made is discarded.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	s := m.store
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.st.clone()
	s.mu.RUnlock()

	rollback := func() {
		s.mu.Lock()
		s.st = snapshot
		s.mu.Unlock()
	}
	defer func() {
		if p := recover(); p != nil {
			rollback()
			panic(p)
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		rollback()
		return err
	}
	return nil
}

func cloneDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}

func cloneInt64(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneLines(lines []request.Line) []request.Line {
	if lines == nil {
		return nil
	}
	out := make([]request.Line, len(lines))
	for i, l := range lines {
		out[i] = request.Line{ProductID: l.ProductID, Quantity: l.Quantity, UnitPrice: cloneDecimal(l.UnitPrice)}
	}
	return out
}

// page applies offset and limit. A non-positive limit returns everything.
func page[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return []T{}
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
