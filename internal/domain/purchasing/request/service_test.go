package request_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"magasin/internal/core/apperror"
	appctx "magasin/internal/core/context"
	"magasin/internal/domain/audit"
	"magasin/internal/domain/directory"
	"magasin/internal/domain/purchasing/request"
	"magasin/internal/infrastructure/storage/memory"
	"magasin/pkg/logger"
)

type fixture struct {
	svc         *request.Service
	mem         *memory.Store
	storeID     int64
	responsible int64
	priced      int64 // 10.00
	unpriced    int64
	unapproved  int64
	foreign     int64 // approved product of another store
}

func price(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func setup(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	mem := memory.New()
	dir := mem.Directory()

	responsible := int64(42)
	store := dir.PutStore(ctx, directory.Store{Name: "Centre", ResponsibleID: &responsible})
	other := dir.PutStore(ctx, directory.Store{Name: "Annexe"})

	f := fixture{
		svc:         request.NewService(mem.Requests(), mem.TxManager(), dir, mem.Audit()),
		mem:         mem,
		storeID:     store.ID,
		responsible: responsible,
	}
	f.priced = dir.PutProduct(ctx, directory.Product{StoreID: store.ID, Name: "Riz", Price: price("10.00"), Approved: true}).ID
	f.unpriced = dir.PutProduct(ctx, directory.Product{StoreID: store.ID, Name: "Sucre", Approved: true}).ID
	f.unapproved = dir.PutProduct(ctx, directory.Product{StoreID: store.ID, Name: "Café", Price: price("3"), Approved: false}).ID
	f.foreign = dir.PutProduct(ctx, directory.Product{StoreID: other.ID, Name: "Thé", Price: price("2"), Approved: true}).ID
	return f
}

func (f fixture) create(t *testing.T, lines ...request.LineInput) request.PurchaseRequest {
	t.Helper()
	r, err := f.svc.Create(context.Background(), request.CreateInput{StoreID: f.storeID, Lines: lines, CreatedBy: 7})
	require.NoError(t, err)
	return r
}

func TestCreate_PricedRequest(t *testing.T) {
	f := setup(t)

	r := f.create(t, request.LineInput{ProductID: f.priced, Quantity: 2})

	assert.Equal(t, request.StatusPending, r.Status)
	require.NotNil(t, r.TotalAmount)
	assert.True(t, decimal.RequireFromString("20.00").Equal(*r.TotalAmount))
	require.Len(t, r.Lines, 1)
	assert.True(t, decimal.RequireFromString("10").Equal(*r.Lines[0].UnitPrice))
}

func TestCreate_TotalNullWhenNothingPriced(t *testing.T) {
	f := setup(t)

	r := f.create(t, request.LineInput{ProductID: f.unpriced, Quantity: 5})
	assert.Nil(t, r.TotalAmount)

	mixed := f.create(t,
		request.LineInput{ProductID: f.unpriced, Quantity: 5},
		request.LineInput{ProductID: f.priced, Quantity: 1},
	)
	require.NotNil(t, mixed.TotalAmount)
	assert.True(t, decimal.RequireFromString("10").Equal(*mixed.TotalAmount))
}

func TestCreate_Errors(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   request.CreateInput
		code string
	}{
		{"no lines", request.CreateInput{StoreID: f.storeID}, apperror.CodeInvalidInput},
		{"zero quantity", request.CreateInput{StoreID: f.storeID, Lines: []request.LineInput{{ProductID: f.priced}}}, apperror.CodeInvalidInput},
		{"unknown store", request.CreateInput{StoreID: 9999, Lines: []request.LineInput{{ProductID: f.priced, Quantity: 1}}}, apperror.CodeNotFound},
		{"unknown product", request.CreateInput{StoreID: f.storeID, Lines: []request.LineInput{{ProductID: 9999, Quantity: 1}}}, apperror.CodeNotFound},
		{"unapproved product", request.CreateInput{StoreID: f.storeID, Lines: []request.LineInput{{ProductID: f.unapproved, Quantity: 1}}}, apperror.CodeNotFound},
		{"product of another store", request.CreateInput{StoreID: f.storeID, Lines: []request.LineInput{{ProductID: f.foreign, Quantity: 1}}}, apperror.CodeNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tc.in)
			assert.Equal(t, tc.code, apperror.CodeOf(err))
		})
	}

	list, err := f.svc.ListByStore(ctx, request.ListFilter{StoreID: f.storeID})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestApprove(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	r := f.create(t, request.LineInput{ProductID: f.priced, Quantity: 2})

	_, err := f.svc.Approve(ctx, r.ID, 99, request.StatusApproved)
	assert.True(t, apperror.IsForbidden(err))

	_, err = f.svc.Approve(ctx, r.ID, f.responsible, "maybe")
	assert.True(t, apperror.IsInvalidInput(err))

	_, err = f.svc.Approve(ctx, 9999, f.responsible, request.StatusApproved)
	assert.True(t, apperror.IsNotFound(err))

	approved, err := f.svc.Approve(ctx, r.ID, f.responsible, request.StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, request.StatusApproved, approved.Status)
	require.NotNil(t, approved.ApproverID)
	assert.Equal(t, f.responsible, *approved.ApproverID)
	assert.NotNil(t, approved.ApprovedAt)

	_, err = f.svc.Approve(ctx, r.ID, f.responsible, request.StatusRejected)
	assert.True(t, apperror.IsConflict(err))

	trail, err := f.mem.Audit().List(ctx, audit.EntityPurchaseRequest, r.ID)
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, audit.ActionStatus, trail[1].Action)
}

func TestApprove_RejectStampsDecisionTime(t *testing.T) {
	f := setup(t)
	r := f.create(t, request.LineInput{ProductID: f.priced, Quantity: 1})

	rejected, err := f.svc.Approve(context.Background(), r.ID, f.responsible, request.StatusRejected)
	require.NoError(t, err)
	assert.Equal(t, request.StatusRejected, rejected.Status)
	assert.NotNil(t, rejected.ApprovedAt)
}

func TestEdit_ResetsApproval(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	r := f.create(t, request.LineInput{ProductID: f.priced, Quantity: 2})
	_, err := f.svc.Approve(ctx, r.ID, f.responsible, request.StatusApproved)
	require.NoError(t, err)

	edited, err := f.svc.Edit(ctx, r.ID, request.EditInput{
		Lines: []request.LineInput{{ProductID: f.priced, Quantity: 3}},
		Notes: "plus de riz",
	})
	require.NoError(t, err)
	assert.Equal(t, request.StatusPending, edited.Status)
	assert.Nil(t, edited.ApproverID)
	assert.Nil(t, edited.ApprovedAt)
	assert.Equal(t, "plus de riz", edited.Notes)
	assert.True(t, decimal.RequireFromString("30").Equal(*edited.TotalAmount))

	stored, err := f.svc.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, request.StatusPending, stored.Status)

	_, err = f.svc.Edit(ctx, r.ID, request.EditInput{})
	assert.True(t, apperror.IsInvalidInput(err))
}

func TestDelete(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	free := f.create(t, request.LineInput{ProductID: f.priced, Quantity: 1})
	require.NoError(t, f.svc.Delete(ctx, free.ID, 7))
	_, err := f.svc.Get(ctx, free.ID)
	assert.True(t, apperror.IsNotFound(err))

	consumed := f.create(t, request.LineInput{ProductID: f.priced, Quantity: 1})
	require.NoError(t, f.mem.Requests().MarkConsumed(ctx, consumed.ID, 500))
	err = f.svc.Delete(ctx, consumed.ID, 7)
	assert.True(t, apperror.IsConflict(err))

	_, err = f.svc.Get(ctx, consumed.ID)
	assert.NoError(t, err)
}

func TestListByStore_StatusFilter(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.create(t, request.LineInput{ProductID: f.priced, Quantity: 1})
	f.create(t, request.LineInput{ProductID: f.priced, Quantity: 2})
	_, err := f.svc.Approve(ctx, a.ID, f.responsible, request.StatusApproved)
	require.NoError(t, err)

	approved := request.StatusApproved
	list, err := f.svc.ListByStore(ctx, request.ListFilter{StoreID: f.storeID, Status: &approved})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, a.ID, list[0].ID)

	all, err := f.svc.ListByStore(ctx, request.ListFilter{StoreID: f.storeID})
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Greater(t, all[0].ID, all[1].ID)
}

func TestLogFields_KeepTraceRequestID(t *testing.T) {
	f := setup(t)
	core, logs := observer.New(zap.InfoLevel)
	ctx := logger.WithLogger(context.Background(), &logger.Logger{SugaredLogger: zap.New(core).Sugar()})
	ctx = appctx.WithTrace(ctx, appctx.NewTraceContext("req-31"))

	r, err := f.svc.Create(ctx, request.CreateInput{
		StoreID:   f.storeID,
		Lines:     []request.LineInput{{ProductID: f.priced, Quantity: 1}},
		CreatedBy: 7,
	})
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, r.ID, f.responsible, request.StatusApproved)
	require.NoError(t, err)

	entries := logs.All()
	require.Len(t, entries, 2)
	for _, e := range entries {
		fields := e.ContextMap()
		assert.Equal(t, "req-31", fields["request_id"], e.Message)
		assert.Equal(t, r.ID, fields["purchase_request_id"], e.Message)
	}
}
