package invoice_repo

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"magasin/internal/domain/invoice"
)

func TestUpdateStatusQuery(t *testing.T) {
	repo := NewRepo(nil)
	at := time.Date(2026, 5, 2, 9, 30, 0, 0, time.UTC)

	sql, args, err := repo.updateStatusQuery(12, invoice.StatusPaid, at).ToSql()
	require.NoError(t, err)
	assert.Equal(t,
		"UPDATE invoices SET status = $1, updated_at = $2 WHERE id = $3 RETURNING id, order_id, store_id, "+
			"invoice_number, total_amount, tax_rate, tax_amount, final_amount, snapshot_data, status, "+
			"created_by, created_at, updated_at",
		sql)
	assert.Equal(t, []any{"paid", at, int64(12)}, args)
}

func TestListQuery(t *testing.T) {
	repo := NewRepo(nil)

	sql, args, err := repo.listQuery(invoice.ListFilter{StoreID: 3, Limit: 25}).ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "FROM invoices WHERE store_id = $1 ORDER BY id DESC LIMIT 25")
	assert.Equal(t, []any{int64(3)}, args)
}

func TestInvoiceRow_DecodesSnapshot(t *testing.T) {
	row := invoiceRow{
		ID:           1,
		OrderID:      4,
		FinalAmount:  decimal.RequireFromString("12.00"),
		SnapshotData: []byte(`{"order":{"id":4,"order_number":"BC-20260301-0042"},"supplier":{"id":2,"name":"Grossiste"},"store":{"id":1,"name":"Centre"}}`),
		Status:       "draft",
	}

	inv, err := row.toDomain()
	require.NoError(t, err)
	assert.Equal(t, "BC-20260301-0042", inv.Snapshot.Order.OrderNumber)
	assert.Equal(t, "Grossiste", inv.Snapshot.Supplier.Name)
	assert.Equal(t, invoice.StatusDraft, inv.Status)

	row.SnapshotData = []byte(`{broken`)
	_, err = row.toDomain()
	assert.Error(t, err)
}
