// Package purchasing_repo provides PostgreSQL persistence for purchase
// requests and purchase orders.
package purchasing_repo

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
	"magasin/internal/domain/purchasing/request"
	"magasin/internal/infrastructure/storage/postgres"
)

const requestsTable = "purchase_requests"

var requestColumns = []string{
	"id", "store_id", "lines", "total_amount", "notes", "status",
	"approver_id", "approved_at", "consumed_by_order_id",
	"created_by", "created_at", "updated_at",
}

// requestRow mirrors purchase_requests; lines is stored as jsonb.
type requestRow struct {
	ID                int64            `db:"id"`
	StoreID           int64            `db:"store_id"`
	Lines             []byte           `db:"lines"`
	TotalAmount       *decimal.Decimal `db:"total_amount"`
	Notes             string           `db:"notes"`
	Status            string           `db:"status"`
	ApproverID        *int64           `db:"approver_id"`
	ApprovedAt        *time.Time       `db:"approved_at"`
	ConsumedByOrderID *int64           `db:"consumed_by_order_id"`
	CreatedBy         int64            `db:"created_by"`
	CreatedAt         time.Time        `db:"created_at"`
	UpdatedAt         time.Time        `db:"updated_at"`
}

func (row requestRow) toDomain() (request.PurchaseRequest, error) {
	pr := request.PurchaseRequest{
		ID:                row.ID,
		StoreID:           row.StoreID,
		TotalAmount:       row.TotalAmount,
		Notes:             row.Notes,
		Status:            request.Status(row.Status),
		ApproverID:        row.ApproverID,
		ApprovedAt:        row.ApprovedAt,
		ConsumedByOrderID: row.ConsumedByOrderID,
		CreatedBy:         row.CreatedBy,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}
	if err := decodeLines(row.Lines, &pr.Lines); err != nil {
		return request.PurchaseRequest{}, fmt.Errorf("purchase request %d: %w", row.ID, err)
	}
	return pr, nil
}

func joinColumns(cols []string) string {
	return strings.Join(cols, ", ")
}

func encodeLines(lines []request.Line) ([]byte, error) {
	if lines == nil {
		lines = []request.Line{}
	}
	b, err := json.Marshal(lines)
	if err != nil {
		return nil, fmt.Errorf("encode lines: %w", err)
	}
	return b, nil
}

func decodeLines(raw []byte, dst *[]request.Line) error {
	*dst = []request.Line{}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode lines: %w", err)
	}
	return nil
}

// RequestRepo implements request.Repository.
type RequestRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

var _ request.Repository = (*RequestRepo)(nil)

// NewRequestRepo creates a purchase request repository.
func NewRequestRepo(txm *postgres.TxManager) *RequestRepo {
	return &RequestRepo{txm: txm, builder: postgres.Builder()}
}

func (r *RequestRepo) insertQuery(pr request.PurchaseRequest, lines []byte) squirrel.InsertBuilder {
	return r.builder.Insert(requestsTable).
		Columns("store_id", "lines", "total_amount", "notes", "status",
			"approver_id", "approved_at", "created_by", "created_at", "updated_at").
		Values(pr.StoreID, lines, pr.TotalAmount, pr.Notes, string(pr.Status),
			pr.ApproverID, pr.ApprovedAt, pr.CreatedBy, pr.CreatedAt, pr.UpdatedAt).
		Suffix("RETURNING id")
}

func (r *RequestRepo) Create(ctx context.Context, pr request.PurchaseRequest) (request.PurchaseRequest, error) {
	lines, err := encodeLines(pr.Lines)
	if err != nil {
		return pr, err
	}
	sql, args, err := r.insertQuery(pr, lines).ToSql()
	if err != nil {
		return pr, fmt.Errorf("build insert: %w", err)
	}
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&pr.ID); err != nil {
		return pr, fmt.Errorf("insert purchase request: %w", postgres.MapWriteError(err, "purchase request"))
	}
	return pr, nil
}

func (r *RequestRepo) selectQuery() squirrel.SelectBuilder {
	return r.builder.Select(requestColumns...).From(requestsTable)
}

func (r *RequestRepo) getQuery(id int64, lock bool) squirrel.SelectBuilder {
	q := r.selectQuery().Where(squirrel.Eq{"id": id})
	if lock {
		q = q.Suffix("FOR UPDATE")
	}
	return q
}

func (r *RequestRepo) GetByID(ctx context.Context, id int64) (request.PurchaseRequest, error) {
	return r.get(ctx, id, false)
}

func (r *RequestRepo) GetForUpdate(ctx context.Context, id int64) (request.PurchaseRequest, error) {
	return r.get(ctx, id, true)
}

func (r *RequestRepo) get(ctx context.Context, id int64, lock bool) (request.PurchaseRequest, error) {
	sql, args, err := r.getQuery(id, lock).ToSql()
	if err != nil {
		return request.PurchaseRequest{}, fmt.Errorf("build query: %w", err)
	}
	var row requestRow
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return request.PurchaseRequest{}, apperror.NewNotFound("purchase request", id)
		}
		return request.PurchaseRequest{}, fmt.Errorf("get purchase request: %w", err)
	}
	return row.toDomain()
}

func (r *RequestRepo) updateQuery(pr request.PurchaseRequest, lines []byte) squirrel.UpdateBuilder {
	return r.builder.Update(requestsTable).
		SetMap(map[string]any{
			"lines":        lines,
			"total_amount": pr.TotalAmount,
			"notes":        pr.Notes,
			"status":       string(pr.Status),
			"approver_id":  pr.ApproverID,
			"approved_at":  pr.ApprovedAt,
			"updated_at":   pr.UpdatedAt,
		}).
		Where(squirrel.Eq{"id": pr.ID})
}

func (r *RequestRepo) Update(ctx context.Context, pr request.PurchaseRequest) error {
	lines, err := encodeLines(pr.Lines)
	if err != nil {
		return err
	}
	sql, args, err := r.updateQuery(pr, lines).ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update purchase request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("purchase request", pr.ID)
	}
	return nil
}

func (r *RequestRepo) Delete(ctx context.Context, id int64) error {
	sql, args, err := r.builder.Delete(requestsTable).Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete purchase request: %w", postgres.MapWriteError(err, "purchase request"))
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("purchase request", id)
	}
	return nil
}

func (r *RequestRepo) listQuery(filter request.ListFilter) squirrel.SelectBuilder {
	q := r.selectQuery().Where(squirrel.Eq{"store_id": filter.StoreID})
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": string(*filter.Status)})
	}
	return postgres.Page(q.OrderBy("id DESC"), filter.Limit, filter.Offset)
}

func (r *RequestRepo) ListByStore(ctx context.Context, filter request.ListFilter) ([]request.PurchaseRequest, error) {
	sql, args, err := r.listQuery(filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var rows []requestRow
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("list purchase requests: %w", err)
	}
	out := make([]request.PurchaseRequest, 0, len(rows))
	for _, row := range rows {
		pr, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, pr)
	}
	return out, nil
}

func (r *RequestRepo) markConsumedQuery(id, orderID int64) squirrel.UpdateBuilder {
	return r.builder.Update(requestsTable).
		Set("consumed_by_order_id", orderID).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id, "consumed_by_order_id": nil})
}

// MarkConsumed only updates a row whose consumed_by_order_id is still null,
// so two orders racing for the same request cannot both win.
func (r *RequestRepo) MarkConsumed(ctx context.Context, id, orderID int64) error {
	sql, args, err := r.markConsumedQuery(id, orderID).ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("mark purchase request consumed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return apperror.NewConflict("purchase request already consumed by an order").
			WithDetail("purchase_request_id", id)
	}
	return nil
}
