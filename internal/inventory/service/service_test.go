package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/dbtest"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/inventory/domain"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/inventory/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupInventoryService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := dbtest.Open(t, &domain.Item{}, &domain.ItemTransaction{})
	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: dbtest.Node(t),
		Repo:  repository.Provide(),
	}).(*Service)
	return svc, db
}

func TestCreateItemPostsOpeningStock(t *testing.T) {
	svc, _ := setupInventoryService(t)
	ctx := context.Background()

	item, err := svc.CreateItem(ctx, domain.CreateItemRequest{Code: "PAP-A4", Name: "Paper A4", Unit: "ream", OpeningStock: 100, ActorID: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(100), item.Stock)

	trxs, err := svc.ListTransactions(ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, trxs, 1)
	assert.Equal(t, domain.TransactionIn, trxs[0].Type)
	assert.Equal(t, int64(100), trxs[0].Quantity)

	check, err := svc.Verify(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, check.Consistent())

	_, err = svc.CreateItem(ctx, domain.CreateItemRequest{Code: "PAP-A4", Name: "Dup", Unit: "ream"})
	assert.ErrorIs(t, err, domain.ErrDuplicateCode)
}

func TestRecordMovements(t *testing.T) {
	svc, _ := setupInventoryService(t)
	ctx := context.Background()

	item, err := svc.CreateItem(ctx, domain.CreateItemRequest{Code: "TNR", Name: "Toner", Unit: "pcs", OpeningStock: 5})
	require.NoError(t, err)

	_, err = svc.Record(ctx, domain.RecordRequest{ItemID: item.ID, Type: domain.TransactionIn, Quantity: 3, ActorID: 2})
	require.NoError(t, err)
	out, err := svc.Record(ctx, domain.RecordRequest{ItemID: item.ID, Type: domain.TransactionOut, Quantity: 6, ActorID: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(-6), out.Quantity)

	_, err = svc.Record(ctx, domain.RecordRequest{ItemID: item.ID, Type: domain.TransactionOut, Quantity: 3})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	_, err = svc.Record(ctx, domain.RecordRequest{ItemID: item.ID, Type: domain.TransactionStockOpname, Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidType)
	_, err = svc.Record(ctx, domain.RecordRequest{ItemID: item.ID, Type: domain.TransactionIn, Quantity: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	_, err = svc.Record(ctx, domain.RecordRequest{ItemID: 404, Type: domain.TransactionIn, Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := svc.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Stock)

	check, err := svc.Verify(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), check.LedgerSum)
}

func TestSetStockPostsSignedDelta(t *testing.T) {
	svc, db := setupInventoryService(t)
	ctx := context.Background()

	item, err := svc.CreateItem(ctx, domain.CreateItemRequest{Code: "PEN", Name: "Pen", Unit: "box", OpeningStock: 100})
	require.NoError(t, err)

	ref := int64(77)
	var delta int64
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		var err error
		delta, err = svc.SetStock(ctx, tx, domain.SetStockRequest{
			ItemID:        item.ID,
			Target:        80,
			ActorID:       3,
			Description:   "Stock opname adjustment",
			ReferenceType: "stock_opname",
			ReferenceID:   &ref,
		})
		return err
	}))
	assert.Equal(t, int64(-20), delta)

	trxs, err := svc.ListTransactions(ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, trxs, 2)
	last := trxs[1]
	assert.Equal(t, domain.TransactionStockOpname, last.Type)
	assert.Equal(t, int64(-20), last.Quantity)
	require.NotNil(t, last.ReferenceType)
	assert.Equal(t, "stock_opname", *last.ReferenceType)
	assert.Equal(t, &ref, last.ReferenceID)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		var err error
		delta, err = svc.SetStock(ctx, tx, domain.SetStockRequest{ItemID: item.ID, Target: 80})
		return err
	}))
	assert.Zero(t, delta)

	checks, err := svc.VerifyAll(ctx)
	require.NoError(t, err)
	require.Len(t, checks, 1)
	assert.Equal(t, int64(80), checks[0].Stock)
	assert.True(t, checks[0].Consistent())
}

func TestListInScope(t *testing.T) {
	svc, _ := setupInventoryService(t)
	ctx := context.Background()
	division := int64(9)

	_, err := svc.CreateItem(ctx, domain.CreateItemRequest{Code: "W1", Name: "Warehouse item", Unit: "pcs"})
	require.NoError(t, err)
	_, err = svc.CreateItem(ctx, domain.CreateItemRequest{Code: "D1", Name: "Division item", Unit: "pcs", DivisionID: &division})
	require.NoError(t, err)

	main, err := svc.ListInScope(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, main, 1)
	assert.Equal(t, "W1", main[0].Code)

	scoped, err := svc.ListInScope(ctx, nil, &division)
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, "D1", scoped[0].Code)
}
