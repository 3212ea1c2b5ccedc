package v1_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	appctx "magasin/internal/core/context"
	"magasin/internal/domain/auth"
	"magasin/internal/domain/invoice"
	"magasin/internal/domain/notification"
	"magasin/internal/domain/purchasing/order"
	"magasin/internal/domain/purchasing/request"
	"magasin/internal/domain/registers/stock"
	v1 "magasin/internal/infrastructure/http/v1"
	"magasin/internal/infrastructure/storage/memory"
	"magasin/pkg/logger"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	return m.Called(ctx, to, subject, htmlBody).Error(0)
}

type downDB struct{}

func (downDB) Ping(context.Context) error { return errors.New("connection refused") }

type server struct {
	router   *gin.Engine
	demo     memory.DemoData
	notifier *notification.Notifier
	sender   *mockSender
}

func newServer(t *testing.T, mutate func(*v1.RouterConfig)) *server {
	t.Helper()
	ctx := context.Background()
	mem := memory.New()
	demo := memory.SeedDemo(ctx, mem)

	dir := mem.Directory()
	stockSvc := stock.NewService(mem.Stock(), mem.TxManager(), dir, nil)
	sender := &mockSender{}
	sender.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	notifier := notification.NewNotifier(sender, time.Second, nil)
	cfg := v1.RouterConfig{
		Mode:     gin.TestMode,
		Logger:   logger.NewNop(),
		DB:       mem,
		Requests: request.NewService(mem.Requests(), mem.TxManager(), dir, mem.Audit()),
		Orders: order.NewService(order.Deps{
			Orders:   mem.Orders(),
			Requests: mem.Requests(),
			TxM:      mem.TxManager(),
			Dir:      dir,
			Stock:    stockSvc,
			Numbers:  mem.Numbers(),
			Mailer:   notifier,
			Audit:    mem.Audit(),
		}),
		Stock:    stockSvc,
		Invoices: invoice.NewService(mem.Invoices(), mem.Orders(), mem.TxManager(), dir, mem.Numbers(), mem.Audit(), nil),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	t.Cleanup(notifier.Wait)
	return &server{router: v1.NewRouter(cfg), demo: demo, notifier: notifier, sender: sender}
}

func (s *server) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type errorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}

func (s *server) approvedRequest(t *testing.T, productID, quantity int64) int64 {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/purchase-requests", map[string]any{
		"store_id":   s.demo.Store.ID,
		"lines":      []map[string]any{{"product_id": productID, "quantity": quantity}},
		"created_by": 7,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode[struct{ ID int64 }](t, w).ID

	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/purchase-requests/%d/approval", id), map[string]any{
		"status":      "approved",
		"approver_id": s.demo.Responsible,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return id
}

func TestProcurementFlow(t *testing.T) {
	s := newServer(t, nil)
	farine, huile := s.demo.Products[0].ID, s.demo.Products[1].ID
	storePath := fmt.Sprintf("store_id=%d", s.demo.Store.ID)

	a := s.approvedRequest(t, farine, 10) // 12.00
	b := s.approvedRequest(t, huile, 2)   // 15.00

	w := s.do(t, http.MethodPost, "/api/v1/purchase-orders", map[string]any{
		"source_request_ids": []int64{a, b},
		"supplier_id":        s.demo.Supplier.ID,
		"store_id":           s.demo.Store.ID,
		"created_by":         7,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[struct {
		ID          int64  `json:"id"`
		OrderNumber string `json:"order_number"`
	}](t, w)
	assert.Regexp(t, `^BC-\d{8}-\d{4}$`, created.OrderNumber)

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/purchase-orders/%d", created.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	o := decode[order.PurchaseOrder](t, w)
	assert.True(t, decimal.RequireFromString("27").Equal(o.TotalAmount))
	assert.Equal(t, order.StatusPending, o.Status)

	w = s.do(t, http.MethodPut, fmt.Sprintf("/api/v1/purchase-orders/%d/status", created.ID), map[string]any{
		"status": "received",
		"received_lines": []map[string]any{
			{"product_id": farine, "received_quantity": 10},
			{"product_id": huile, "received_quantity": 2},
		},
		"performed_by": 7,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, order.StatusReceived, decode[order.PurchaseOrder](t, w).Status)

	w = s.do(t, http.MethodGet, "/api/v1/stock/levels?"+storePath, nil)
	require.Equal(t, http.StatusOK, w.Code)
	levels := decode[[]map[string]int64](t, w)
	require.Len(t, levels, 2)
	assert.Equal(t, int64(10), levels[0]["quantity_available"])
	assert.Equal(t, int64(2), levels[1]["quantity_available"])

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/stock/movements?%s&product_id=%d", storePath, farine), nil)
	require.Equal(t, http.StatusOK, w.Code)
	entries := decode[[]stock.Entry](t, w)
	require.Len(t, entries, 1)
	assert.Equal(t, created.ID, *entries[0].OrderID)

	w = s.do(t, http.MethodPost, "/api/v1/invoices", map[string]any{
		"order_id":   created.ID,
		"tax_rate":   20,
		"created_by": 7,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	inv := decode[struct {
		ID            int64           `json:"id"`
		InvoiceNumber string          `json:"invoice_number"`
		FinalAmount   decimal.Decimal `json:"final_amount"`
	}](t, w)
	assert.Regexp(t, `^FAC-\d{4}-00001$`, inv.InvoiceNumber)
	assert.True(t, decimal.RequireFromString("32.4").Equal(inv.FinalAmount), inv.FinalAmount.String())

	w = s.do(t, http.MethodPost, "/api/v1/invoices", map[string]any{"order_id": created.ID})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/purchase-orders/%d/invoice", created.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, inv.ID, decode[invoice.Invoice](t, w).ID)

	w = s.do(t, http.MethodPut, fmt.Sprintf("/api/v1/invoices/%d/status", inv.ID), map[string]any{"status": "paid"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, invoice.StatusPaid, decode[invoice.Invoice](t, w).Status)

	w = s.do(t, http.MethodGet, "/api/v1/invoices?"+storePath+"&status=paid", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]invoice.Invoice](t, w), 1)
}

func TestReceptionTwiceIsConflict(t *testing.T) {
	s := newServer(t, nil)
	farine := s.demo.Products[0].ID
	a := s.approvedRequest(t, farine, 1)

	w := s.do(t, http.MethodPost, "/api/v1/purchase-orders", map[string]any{
		"source_request_ids": []int64{a},
		"supplier_id":        s.demo.Supplier.ID,
		"store_id":           s.demo.Store.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode[struct{ ID int64 }](t, w).ID

	receive := map[string]any{
		"status":         "received",
		"received_lines": []map[string]any{{"product_id": farine, "received_quantity": 1}},
	}
	path := fmt.Sprintf("/api/v1/purchase-orders/%d/status", id)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPut, path, receive).Code)

	w = s.do(t, http.MethodPut, path, receive)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CONFLICT", decode[errorBody](t, w).Code)
}

func TestPurchaseRequestErrors(t *testing.T) {
	s := newServer(t, nil)
	farine := s.demo.Products[0].ID

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{
			name:   "malformed body",
			method: http.MethodPost,
			path:   "/api/v1/purchase-requests",
			body:   map[string]any{"lines": "nope"},
			status: http.StatusBadRequest,
			code:   "INVALID_INPUT",
		},
		{
			name:   "no lines",
			method: http.MethodPost,
			path:   "/api/v1/purchase-requests",
			body:   map[string]any{"store_id": s.demo.Store.ID, "lines": []any{}},
			status: http.StatusBadRequest,
			code:   "INVALID_INPUT",
		},
		{
			name:   "unknown store",
			method: http.MethodPost,
			path:   "/api/v1/purchase-requests",
			body: map[string]any{
				"store_id": 999,
				"lines":    []map[string]any{{"product_id": farine, "quantity": 1}},
			},
			status: http.StatusNotFound,
			code:   "NOT_FOUND",
		},
		{
			name:   "bad id",
			method: http.MethodGet,
			path:   "/api/v1/purchase-requests/abc",
			status: http.StatusBadRequest,
			code:   "INVALID_INPUT",
		},
		{
			name:   "missing request",
			method: http.MethodGet,
			path:   "/api/v1/purchase-requests/12345",
			status: http.StatusNotFound,
			code:   "NOT_FOUND",
		},
		{
			name:   "list without store",
			method: http.MethodGet,
			path:   "/api/v1/purchase-requests",
			status: http.StatusBadRequest,
			code:   "INVALID_INPUT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, decode[errorBody](t, w).Code)
		})
	}
}

func TestApprovalByStranger_Forbidden(t *testing.T) {
	s := newServer(t, nil)
	w := s.do(t, http.MethodPost, "/api/v1/purchase-requests", map[string]any{
		"store_id": s.demo.Store.ID,
		"lines":    []map[string]any{{"product_id": s.demo.Products[0].ID, "quantity": 1}},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[struct{ ID int64 }](t, w).ID

	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/purchase-requests/%d/approval", id), map[string]any{
		"status":      "approved",
		"approver_id": 99,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestEditAndDeleteRequest(t *testing.T) {
	s := newServer(t, nil)
	id := s.approvedRequest(t, s.demo.Products[0].ID, 1)
	path := fmt.Sprintf("/api/v1/purchase-requests/%d", id)

	w := s.do(t, http.MethodPut, path, map[string]any{
		"lines": []map[string]any{{"product_id": s.demo.Products[1].ID, "quantity": 4}},
		"notes": "plus d'huile",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	edited := decode[request.PurchaseRequest](t, w)
	assert.Equal(t, request.StatusPending, edited.Status)
	require.NotNil(t, edited.TotalAmount)
	assert.True(t, decimal.RequireFromString("30").Equal(*edited.TotalAmount))

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/purchase-requests?store_id=%d&status=pending", s.demo.Store.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]request.PurchaseRequest](t, w), 1)

	require.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, path, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, path, nil).Code)
}

func TestStockEndpoints(t *testing.T) {
	s := newServer(t, nil)
	storeID, farine := s.demo.Store.ID, s.demo.Products[0].ID

	w := s.do(t, http.MethodPost, "/api/v1/stock/movements", map[string]any{
		"product_id":    farine,
		"store_id":      storeID,
		"movement_type": "in",
		"quantity":      5,
		"notes":         "inventaire",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotZero(t, decode[struct{ ID int64 }](t, w).ID)

	w = s.do(t, http.MethodPut, "/api/v1/stock/minimum", map[string]any{
		"product_id":    farine,
		"store_id":      storeID,
		"minimum_stock": 8,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/stock/low?store_id=%d", storeID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	low := decode[[]map[string]int64](t, w)
	require.Len(t, low, 1)
	assert.Equal(t, map[string]int64{
		"product_id":         farine,
		"store_id":           storeID,
		"quantity_available": 5,
		"minimum_stock":      8,
	}, low[0])

	w = s.do(t, http.MethodPost, "/api/v1/stock/movements", map[string]any{
		"product_id":    farine,
		"store_id":      storeID,
		"movement_type": "sideways",
		"quantity":      1,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, "/api/v1/stock/minimum", map[string]any{
		"product_id":    farine,
		"store_id":      storeID,
		"minimum_stock": -1,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/stock/rebuild?store_id=%d", storeID), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestSendEmail(t *testing.T) {
	s := newServer(t, nil)
	a := s.approvedRequest(t, s.demo.Products[0].ID, 1)
	w := s.do(t, http.MethodPost, "/api/v1/purchase-orders", map[string]any{
		"source_request_ids": []int64{a},
		"supplier_id":        s.demo.Supplier.ID,
		"store_id":           s.demo.Store.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[struct{ ID int64 }](t, w).ID

	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/purchase-orders/%d/send-email", id), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	o := decode[order.PurchaseOrder](t, w)
	assert.True(t, o.EmailSent)
	assert.NotNil(t, o.SentAt)
	assert.Equal(t, order.StatusSent, o.Status)

	s.notifier.Wait()
	s.sender.AssertCalled(t, "Send", mock.Anything, []string{s.demo.Supplier.Email},
		mock.MatchedBy(func(subject string) bool { return strings.HasPrefix(subject, "Bon de commande BC-") }),
		mock.Anything)
}

func TestHealth(t *testing.T) {
	s := newServer(t, nil)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health/live", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health/ready", nil).Code)

	down := newServer(t, func(cfg *v1.RouterConfig) { cfg.DB = downDB{} })
	assert.Equal(t, http.StatusServiceUnavailable, down.do(t, http.MethodGet, "/health/ready", nil).Code)
}

func TestAuth(t *testing.T) {
	jwtSvc := auth.NewJWTService(auth.DefaultJWTConfig("a-very-long-secret-for-the-tests-only"))
	s := newServer(t, func(cfg *v1.RouterConfig) {
		cfg.JWTValidator = jwtSvc
		cfg.RequireAuth = true
	})

	path := fmt.Sprintf("/api/v1/purchase-requests?store_id=%d", s.demo.Store.ID)
	w := s.do(t, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", decode[errorBody](t, w).Code)

	w = s.do(t, http.MethodGet, path, nil, "Authorization", "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, _, err := jwtSvc.GenerateAccessToken(appctx.UserContext{UserID: s.demo.Responsible})
	require.NoError(t, err)
	bearer := "Bearer " + token

	// Creator and approver default to the token's user.
	w = s.do(t, http.MethodPost, "/api/v1/purchase-requests", map[string]any{
		"store_id": s.demo.Store.ID,
		"lines":    []map[string]any{{"product_id": s.demo.Products[0].ID, "quantity": 1}},
	}, "Authorization", bearer)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode[struct{ ID int64 }](t, w).ID

	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/purchase-requests/%d/approval", id),
		map[string]any{"status": "approved"}, "Authorization", bearer)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	r := decode[request.PurchaseRequest](t, w)
	assert.Equal(t, s.demo.Responsible, r.CreatedBy)
	require.NotNil(t, r.ApproverID)
	assert.Equal(t, s.demo.Responsible, *r.ApproverID)
}

func TestApproval_TokenUserIsTheApprover(t *testing.T) {
	jwtSvc := auth.NewJWTService(auth.DefaultJWTConfig("a-very-long-secret-for-the-tests-only"))
	s := newServer(t, func(cfg *v1.RouterConfig) {
		cfg.JWTValidator = jwtSvc
		cfg.RequireAuth = true
	})
	token, _, err := jwtSvc.GenerateAccessToken(appctx.UserContext{UserID: 999})
	require.NoError(t, err)
	bearer := "Bearer " + token

	w := s.do(t, http.MethodPost, "/api/v1/purchase-requests", map[string]any{
		"store_id": s.demo.Store.ID,
		"lines":    []map[string]any{{"product_id": s.demo.Products[0].ID, "quantity": 1}},
	}, "Authorization", bearer)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	path := fmt.Sprintf("/api/v1/purchase-requests/%d", decode[struct{ ID int64 }](t, w).ID)

	// Claiming the responsible's id does not help a different user.
	w = s.do(t, http.MethodPost, path+"/approval", map[string]any{
		"status":      "approved",
		"approver_id": s.demo.Responsible,
	}, "Authorization", bearer)
	assert.Equal(t, http.StatusForbidden, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, path+"/approval", map[string]any{"status": "approved"}, "Authorization", bearer)
	assert.Equal(t, http.StatusForbidden, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, path, nil, "Authorization", bearer)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, request.StatusPending, decode[request.PurchaseRequest](t, w).Status)
}

func TestManualMovement_CannotClaimOrder(t *testing.T) {
	s := newServer(t, nil)
	storeID, farine := s.demo.Store.ID, s.demo.Products[0].ID

	w := s.do(t, http.MethodPost, "/api/v1/stock/movements", map[string]any{
		"product_id":    farine,
		"store_id":      storeID,
		"movement_type": "in",
		"quantity":      3,
		"order_id":      424242,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/stock/movements?store_id=%d&order_id=424242", storeID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Empty(t, decode[[]stock.Entry](t, w))

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/stock/movements?store_id=%d", storeID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	entries := decode[[]stock.Entry](t, w)
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].OrderID)
}

func TestSendEmail_DeliveryDisabled(t *testing.T) {
	s := newServer(t, nil)
	a := s.approvedRequest(t, s.demo.Products[0].ID, 1)
	w := s.do(t, http.MethodPost, "/api/v1/purchase-orders", map[string]any{
		"source_request_ids": []int64{a},
		"supplier_id":        s.demo.Supplier.ID,
		"store_id":           s.demo.Store.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	path := fmt.Sprintf("/api/v1/purchase-orders/%d", decode[struct{ ID int64 }](t, w).ID)

	s.notifier.Wait()
	s.sender.ExpectedCalls = nil
	s.sender.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(notification.ErrDeliveryDisabled)

	w = s.do(t, http.MethodPost, path+"/send-email", nil)
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	o := decode[order.PurchaseOrder](t, w)
	assert.False(t, o.EmailSent)
	assert.Nil(t, o.SentAt)
	assert.Equal(t, order.StatusPending, o.Status)
}
