// Package invoice_repo provides PostgreSQL persistence for invoices.
package invoice_repo

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/shopspring/decimal"

	"magasin/internal/core/apperror"
	"magasin/internal/domain/invoice"
	"magasin/internal/infrastructure/storage/postgres"
)

const (
	invoicesTable = "invoices"

	orderUniqueConstraint  = "invoices_order_id_key"
	numberUniqueConstraint = "invoices_invoice_number_key"
)

var invoiceColumns = []string{
	"id", "order_id", "store_id", "invoice_number", "total_amount", "tax_rate",
	"tax_amount", "final_amount", "snapshot_data", "status",
	"created_by", "created_at", "updated_at",
}

type invoiceRow struct {
	ID            int64           `db:"id"`
	OrderID       int64           `db:"order_id"`
	StoreID       int64           `db:"store_id"`
	InvoiceNumber string          `db:"invoice_number"`
	TotalAmount   decimal.Decimal `db:"total_amount"`
	TaxRate       decimal.Decimal `db:"tax_rate"`
	TaxAmount     decimal.Decimal `db:"tax_amount"`
	FinalAmount   decimal.Decimal `db:"final_amount"`
	SnapshotData  []byte          `db:"snapshot_data"`
	Status        string          `db:"status"`
	CreatedBy     int64           `db:"created_by"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

func (row invoiceRow) toDomain() (invoice.Invoice, error) {
	inv := invoice.Invoice{
		ID:            row.ID,
		OrderID:       row.OrderID,
		StoreID:       row.StoreID,
		InvoiceNumber: row.InvoiceNumber,
		TotalAmount:   row.TotalAmount,
		TaxRate:       row.TaxRate,
		TaxAmount:     row.TaxAmount,
		FinalAmount:   row.FinalAmount,
		Status:        invoice.Status(row.Status),
		CreatedBy:     row.CreatedBy,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
	if len(row.SnapshotData) > 0 {
		if err := json.Unmarshal(row.SnapshotData, &inv.Snapshot); err != nil {
			return invoice.Invoice{}, fmt.Errorf("decode invoice %d snapshot: %w", row.ID, err)
		}
	}
	return inv, nil
}

// Repo implements invoice.Repository.
type Repo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

var _ invoice.Repository = (*Repo)(nil)

// NewRepo creates an invoice repository.
func NewRepo(txm *postgres.TxManager) *Repo {
	return &Repo{txm: txm, builder: postgres.Builder()}
}

func (r *Repo) insertQuery(inv invoice.Invoice, snapshot []byte) squirrel.InsertBuilder {
	return r.builder.Insert(invoicesTable).
		Columns("order_id", "store_id", "invoice_number", "total_amount", "tax_rate",
			"tax_amount", "final_amount", "snapshot_data", "status",
			"created_by", "created_at", "updated_at").
		Values(inv.OrderID, inv.StoreID, inv.InvoiceNumber, inv.TotalAmount, inv.TaxRate,
			inv.TaxAmount, inv.FinalAmount, snapshot, string(inv.Status),
			inv.CreatedBy, inv.CreatedAt, inv.UpdatedAt).
		Suffix("RETURNING id")
}

// Create relies on the unique constraint on order_id for the at-most-one
// invoice rule when two callers pass the existence check together.
func (r *Repo) Create(ctx context.Context, inv invoice.Invoice) (invoice.Invoice, error) {
	snapshot, err := json.Marshal(inv.Snapshot)
	if err != nil {
		return inv, fmt.Errorf("encode invoice snapshot: %w", err)
	}
	sql, args, err := r.insertQuery(inv, snapshot).ToSql()
	if err != nil {
		return inv, fmt.Errorf("build insert: %w", err)
	}
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&inv.ID); err != nil {
		switch {
		case postgres.IsUniqueViolation(err, orderUniqueConstraint):
			return inv, apperror.NewDuplicate("invoice", "order_id", inv.OrderID).WithCause(err)
		case postgres.IsUniqueViolation(err, numberUniqueConstraint):
			return inv, apperror.NewDuplicate("invoice", "invoice_number", inv.InvoiceNumber).WithCause(err)
		}
		return inv, fmt.Errorf("insert invoice: %w", postgres.MapWriteError(err, "invoice"))
	}
	return inv, nil
}

func (r *Repo) selectQuery() squirrel.SelectBuilder {
	return r.builder.Select(invoiceColumns...).From(invoicesTable)
}

func (r *Repo) GetByID(ctx context.Context, id int64) (invoice.Invoice, error) {
	return r.getOne(ctx, r.selectQuery().Where(squirrel.Eq{"id": id}), id)
}

func (r *Repo) GetByOrder(ctx context.Context, orderID int64) (invoice.Invoice, error) {
	inv, err := r.getOne(ctx, r.selectQuery().Where(squirrel.Eq{"order_id": orderID}), orderID)
	if apperror.IsNotFound(err) {
		return invoice.Invoice{}, apperror.NewNotFound("invoice", orderID).WithDetail("order_id", orderID)
	}
	return inv, err
}

func (r *Repo) getOne(ctx context.Context, q squirrel.Sqlizer, id int64) (invoice.Invoice, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return invoice.Invoice{}, fmt.Errorf("build query: %w", err)
	}
	var row invoiceRow
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return invoice.Invoice{}, apperror.NewNotFound("invoice", id)
		}
		return invoice.Invoice{}, fmt.Errorf("get invoice: %w", err)
	}
	return row.toDomain()
}

func (r *Repo) updateStatusQuery(id int64, status invoice.Status, at time.Time) squirrel.UpdateBuilder {
	return r.builder.Update(invoicesTable).
		Set("status", string(status)).
		Set("updated_at", at).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING " + strings.Join(invoiceColumns, ", "))
}

func (r *Repo) UpdateStatus(ctx context.Context, id int64, status invoice.Status, at time.Time) (invoice.Invoice, error) {
	return r.getOne(ctx, r.updateStatusQuery(id, status, at), id)
}

func (r *Repo) listQuery(filter invoice.ListFilter) squirrel.SelectBuilder {
	q := r.selectQuery().Where(squirrel.Eq{"store_id": filter.StoreID})
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": string(*filter.Status)})
	}
	return postgres.Page(q.OrderBy("id DESC"), filter.Limit, filter.Offset)
}

func (r *Repo) ListByStore(ctx context.Context, filter invoice.ListFilter) ([]invoice.Invoice, error) {
	sql, args, err := r.listQuery(filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var rows []invoiceRow
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	out := make([]invoice.Invoice, 0, len(rows))
	for _, row := range rows {
		inv, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, nil
}
