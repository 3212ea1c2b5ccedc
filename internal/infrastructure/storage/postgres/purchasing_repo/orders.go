package purchasing_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/shopspring/decimal"

	"magasin/internal/core/apperror"
	"magasin/internal/domain/purchasing/order"
	"magasin/internal/infrastructure/storage/postgres"
)

const (
	ordersTable = "purchase_orders"

	orderNumberConstraint = "purchase_orders_order_number_key"
)

var orderColumns = []string{
	"id", "source_request_ids", "supplier_id", "store_id", "order_number",
	"lines", "total_amount", "notes", "status", "email_sent", "sent_at",
	"received_at", "created_by", "created_at", "updated_at",
}

type orderRow struct {
	ID               int64           `db:"id"`
	SourceRequestIDs []int64         `db:"source_request_ids"`
	SupplierID       int64           `db:"supplier_id"`
	StoreID          int64           `db:"store_id"`
	OrderNumber      string          `db:"order_number"`
	Lines            []byte          `db:"lines"`
	TotalAmount      decimal.Decimal `db:"total_amount"`
	Notes            string          `db:"notes"`
	Status           string          `db:"status"`
	EmailSent        bool            `db:"email_sent"`
	SentAt           *time.Time      `db:"sent_at"`
	ReceivedAt       *time.Time      `db:"received_at"`
	CreatedBy        int64           `db:"created_by"`
	CreatedAt        time.Time       `db:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"`
}

func (row orderRow) toDomain() (order.PurchaseOrder, error) {
	o := order.PurchaseOrder{
		ID:               row.ID,
		SourceRequestIDs: row.SourceRequestIDs,
		SupplierID:       row.SupplierID,
		StoreID:          row.StoreID,
		OrderNumber:      row.OrderNumber,
		TotalAmount:      row.TotalAmount,
		Notes:            row.Notes,
		Status:           order.Status(row.Status),
		EmailSent:        row.EmailSent,
		SentAt:           row.SentAt,
		ReceivedAt:       row.ReceivedAt,
		CreatedBy:        row.CreatedBy,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
	if err := decodeLines(row.Lines, &o.Lines); err != nil {
		return order.PurchaseOrder{}, fmt.Errorf("purchase order %d: %w", row.ID, err)
	}
	return o, nil
}

// OrderRepo implements order.Repository.
type OrderRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

var _ order.Repository = (*OrderRepo)(nil)

// NewOrderRepo creates a purchase order repository.
func NewOrderRepo(txm *postgres.TxManager) *OrderRepo {
	return &OrderRepo{txm: txm, builder: postgres.Builder()}
}

func (r *OrderRepo) insertQuery(o order.PurchaseOrder, lines []byte) squirrel.InsertBuilder {
	return r.builder.Insert(ordersTable).
		Columns("source_request_ids", "supplier_id", "store_id", "order_number",
			"lines", "total_amount", "notes", "status", "email_sent",
			"created_by", "created_at", "updated_at").
		Values(o.SourceRequestIDs, o.SupplierID, o.StoreID, o.OrderNumber,
			lines, o.TotalAmount, o.Notes, string(o.Status), o.EmailSent,
			o.CreatedBy, o.CreatedAt, o.UpdatedAt).
		Suffix("RETURNING id")
}

func (r *OrderRepo) Create(ctx context.Context, o order.PurchaseOrder) (order.PurchaseOrder, error) {
	lines, err := encodeLines(o.Lines)
	if err != nil {
		return o, err
	}
	sql, args, err := r.insertQuery(o, lines).ToSql()
	if err != nil {
		return o, fmt.Errorf("build insert: %w", err)
	}
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&o.ID); err != nil {
		if postgres.IsUniqueViolation(err, orderNumberConstraint) {
			return o, apperror.NewDuplicate("purchase order", "order_number", o.OrderNumber).WithCause(err)
		}
		return o, fmt.Errorf("insert purchase order: %w", postgres.MapWriteError(err, "purchase order"))
	}
	return o, nil
}

func (r *OrderRepo) GetByID(ctx context.Context, id int64) (order.PurchaseOrder, error) {
	sql, args, err := r.builder.Select(orderColumns...).
		From(ordersTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return order.PurchaseOrder{}, fmt.Errorf("build query: %w", err)
	}
	var row orderRow
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return order.PurchaseOrder{}, apperror.NewNotFound("purchase order", id)
		}
		return order.PurchaseOrder{}, fmt.Errorf("get purchase order: %w", err)
	}
	return row.toDomain()
}

func (r *OrderRepo) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	sql, args, err := r.builder.Select("1").
		Prefix("SELECT EXISTS (").
		From(ordersTable).
		Where(squirrel.Eq{"order_number": number}).
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}
	var exists bool
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("check order number: %w", err)
	}
	return exists, nil
}

func (r *OrderRepo) casQuery(id int64, from []order.Status, to order.Status, at time.Time) squirrel.UpdateBuilder {
	allowed := make([]string, len(from))
	for i, s := range from {
		allowed[i] = string(s)
	}
	q := r.builder.Update(ordersTable).
		Set("status", string(to)).
		Set("updated_at", at)
	if to == order.StatusReceived {
		q = q.Set("received_at", at)
	}
	return q.Where(squirrel.Eq{"id": id, "status": allowed})
}

// CompareAndSetStatus relies on the row lock taken by UPDATE: of two
// concurrent callers only the first sees a matching status.
func (r *OrderRepo) CompareAndSetStatus(ctx context.Context, id int64, from []order.Status, to order.Status, at time.Time) (bool, error) {
	sql, args, err := r.casQuery(id, from, to, at).ToSql()
	if err != nil {
		return false, fmt.Errorf("build update: %w", err)
	}
	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("update order status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *OrderRepo) markEmailSentQuery(id int64, at time.Time) squirrel.UpdateBuilder {
	return r.builder.Update(ordersTable).
		Set("email_sent", true).
		Set("sent_at", at).
		Set("updated_at", at).
		Set("status", squirrel.Expr("CASE WHEN status = ? THEN ? ELSE status END",
			string(order.StatusPending), string(order.StatusSent))).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING " + joinColumns(orderColumns))
}

func (r *OrderRepo) MarkEmailSent(ctx context.Context, id int64, at time.Time) (order.PurchaseOrder, error) {
	sql, args, err := r.markEmailSentQuery(id, at).ToSql()
	if err != nil {
		return order.PurchaseOrder{}, fmt.Errorf("build update: %w", err)
	}
	var row orderRow
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return order.PurchaseOrder{}, apperror.NewNotFound("purchase order", id)
		}
		return order.PurchaseOrder{}, fmt.Errorf("mark order email sent: %w", err)
	}
	return row.toDomain()
}

func (r *OrderRepo) listQuery(filter order.ListFilter) squirrel.SelectBuilder {
	q := r.builder.Select(orderColumns...).
		From(ordersTable).
		Where(squirrel.Eq{"store_id": filter.StoreID})
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": string(*filter.Status)})
	}
	return postgres.Page(q.OrderBy("id DESC"), filter.Limit, filter.Offset)
}

func (r *OrderRepo) ListByStore(ctx context.Context, filter order.ListFilter) ([]order.PurchaseOrder, error) {
	sql, args, err := r.listQuery(filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var rows []orderRow
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("list purchase orders: %w", err)
	}
	out := make([]order.PurchaseOrder, 0, len(rows))
	for _, row := range rows {
		o, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}
