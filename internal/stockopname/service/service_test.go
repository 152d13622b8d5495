package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/clock"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/config"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/dbtest"
	inventorydomain "github.com/syaokifaradisa9/e-office-app-sub001/internal/inventory/domain"
	inventoryrepo "github.com/syaokifaradisa9/e-office-app-sub001/internal/inventory/repository"
	inventoryservice "github.com/syaokifaradisa9/e-office-app-sub001/internal/inventory/service"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/scopelock"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/stockopname/domain"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/stockopname/repository"
	"go.uber.org/zap"
)

type fixture struct {
	svc       *Service
	inventory inventorydomain.Service
	clock     *clock.FakeClock
}

func setupStockOpnameService(t *testing.T) fixture {
	t.Helper()
	db := dbtest.Open(t,
		&inventorydomain.Item{},
		&inventorydomain.ItemTransaction{},
		&domain.StockOpname{},
		&domain.StockOpnameItem{},
	)
	node := dbtest.Node(t)
	inv := inventoryservice.New(inventoryservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  inventoryrepo.Provide(),
	})
	// 2026-10-17 10:00 in Jakarta.
	fake := clock.NewFakeClock(time.Date(2026, 10, 17, 3, 0, 0, 0, time.UTC))
	svc := New(Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Repo:      repository.Provide(),
		Inventory: inv,
		Clock:     fake,
		Policy:    config.NewStaticPolicyHolder(config.DefaultPolicy()),
	}).(*Service)
	return fixture{svc: svc, inventory: inv, clock: fake}
}

func opnameDay() time.Time {
	return time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)
}

func int64Ptr(v int64) *int64 { return &v }

func opnameMovements(trxs []inventorydomain.ItemTransaction) []inventorydomain.ItemTransaction {
	var out []inventorydomain.ItemTransaction
	for _, trx := range trxs {
		if trx.Type == inventorydomain.TransactionStockOpname {
			out = append(out, trx)
		}
	}
	return out
}

func TestCreateSnapshotsScopeItems(t *testing.T) {
	f := setupStockOpnameService(t)
	ctx := context.Background()

	division := int64(7)
	paper, err := f.inventory.CreateItem(ctx, inventorydomain.CreateItemRequest{Code: "PAP", Name: "Paper", Unit: "ream", OpeningStock: 100})
	require.NoError(t, err)
	_, err = f.inventory.CreateItem(ctx, inventorydomain.CreateItemRequest{Code: "PEN", Name: "Pen", Unit: "box", OpeningStock: 4, DivisionID: &division})
	require.NoError(t, err)

	main, err := f.svc.Create(ctx, domain.CreateRequest{OpnameDate: opnameDay(), ActorID: 1})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, main.Status)
	assert.Equal(t, domain.MainWarehouseScope, main.ScopeKey)
	require.Len(t, main.Items, 1)
	assert.Equal(t, paper.ID, main.Items[0].ItemID)
	assert.Equal(t, int64(100), main.Items[0].SystemStock)

	div, err := f.svc.Create(ctx, domain.CreateRequest{DivisionID: &division, OpnameDate: opnameDay(), ActorID: 1})
	require.NoError(t, err)
	assert.Equal(t, division, div.ScopeKey)
	require.Len(t, div.Items, 1)
	assert.Equal(t, int64(4), div.Items[0].SystemStock)
}

func TestCreateRejectsSecondOpenOpnamePerScope(t *testing.T) {
	f := setupStockOpnameService(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, domain.CreateRequest{OpnameDate: opnameDay(), ActorID: 1})
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, domain.CreateRequest{OpnameDate: opnameDay(), ActorID: 2})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = f.svc.Create(ctx, domain.CreateRequest{ActorID: 2})
	assert.ErrorIs(t, err, domain.ErrInvalidDate)
	_, err = f.svc.Create(ctx, domain.CreateRequest{DivisionID: int64Ptr(0), OpnameDate: opnameDay()})
	assert.ErrorIs(t, err, domain.ErrInvalidScope)
}

func TestConcurrentCreateAdmitsOne(t *testing.T) {
	f := setupStockOpnameService(t)
	ctx := context.Background()

	const workers = 5
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(actor int64) {
			defer wg.Done()
			_, err := f.svc.Create(ctx, domain.CreateRequest{OpnameDate: opnameDay(), ActorID: actor})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, domain.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(int64(i + 1))
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, workers-1, conflicts)
}

func TestCreateMapsBusyScopeToConflict(t *testing.T) {
	f := setupStockOpnameService(t)
	f.svc.locker = busyLocker{}

	_, err := f.svc.Create(context.Background(), domain.CreateRequest{OpnameDate: opnameDay(), ActorID: 1})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

type busyLocker struct{}

func (busyLocker) Acquire(context.Context, int64) (func(context.Context), error) {
	return nil, scopelock.ErrScopeBusy
}

func TestCreateFailsClosedWhenScopeLockUnavailable(t *testing.T) {
	f := setupStockOpnameService(t)
	ctx := context.Background()
	f.svc.locker = downLocker{}

	_, err := f.svc.Create(ctx, domain.CreateRequest{OpnameDate: opnameDay(), ActorID: 1})
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrConflict)

	f.svc.locker = scopelock.Noop{}
	_, err = f.svc.Create(ctx, domain.CreateRequest{OpnameDate: opnameDay(), ActorID: 1})
	assert.NoError(t, err, "a refused create must not leave an open opname behind")
}

type downLocker struct{}

func (downLocker) Acquire(context.Context, int64) (func(context.Context), error) {
	return nil, errors.New("obtain scope lock: dial tcp: connection refused")
}

func TestProcessDraftThenConfirmAdjustsStock(t *testing.T) {
	f := setupStockOpnameService(t)
	ctx := context.Background()

	paper, err := f.inventory.CreateItem(ctx, inventorydomain.CreateItemRequest{Code: "PAP", Name: "Paper", Unit: "ream", OpeningStock: 100})
	require.NoError(t, err)
	toner, err := f.inventory.CreateItem(ctx, inventorydomain.CreateItemRequest{Code: "TNR", Name: "Toner", Unit: "pcs", OpeningStock: 10})
	require.NoError(t, err)

	opname, err := f.svc.Create(ctx, domain.CreateRequest{OpnameDate: opnameDay(), ActorID: 1})
	require.NoError(t, err)

	draft, err := f.svc.Process(ctx, domain.ProcessRequest{
		OpnameID: opname.ID,
		ActorID:  1,
		Lines:    []domain.ProcessLine{{ItemID: paper.ID, PhysicalStock: int64Ptr(80), Notes: "damp ream"}},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, draft.Status)

	got, err := f.inventory.Get(ctx, paper.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.Stock, "draft must not move stock")

	_, err = f.svc.Process(ctx, domain.ProcessRequest{OpnameID: opname.ID, ActorID: 1, Confirm: true})
	assert.ErrorIs(t, err, domain.ErrMissingCount)

	confirmed, err := f.svc.Process(ctx, domain.ProcessRequest{
		OpnameID: opname.ID,
		ActorID:  1,
		Confirm:  true,
		Lines:    []domain.ProcessLine{{ItemID: toner.ID, PhysicalStock: int64Ptr(10)}},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.ConfirmedAt)

	got, err = f.inventory.Get(ctx, paper.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(80), got.Stock)

	trxs, err := f.inventory.ListTransactions(ctx, paper.ID)
	require.NoError(t, err)
	require.Len(t, trxs, 2)
	adjustments := opnameMovements(trxs)
	require.Len(t, adjustments, 1)
	adj := adjustments[0]
	assert.Equal(t, int64(-20), adj.Quantity)
	require.NotNil(t, adj.ReferenceID)
	assert.Equal(t, opname.ID, *adj.ReferenceID)

	// A matching count still leaves a zero movement behind.
	tonerTrxs, err := f.inventory.ListTransactions(ctx, toner.ID)
	require.NoError(t, err)
	require.Len(t, tonerTrxs, 2)
	tonerAdj := opnameMovements(tonerTrxs)
	require.Len(t, tonerAdj, 1)
	assert.Equal(t, int64(0), tonerAdj[0].Quantity)

	_, err = f.svc.Process(ctx, domain.ProcessRequest{OpnameID: opname.ID, ActorID: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestProcessValidatesLines(t *testing.T) {
	f := setupStockOpnameService(t)
	ctx := context.Background()

	paper, err := f.inventory.CreateItem(ctx, inventorydomain.CreateItemRequest{Code: "PAP", Name: "Paper", Unit: "ream", OpeningStock: 3})
	require.NoError(t, err)
	opname, err := f.svc.Create(ctx, domain.CreateRequest{OpnameDate: opnameDay(), ActorID: 1})
	require.NoError(t, err)

	_, err = f.svc.Process(ctx, domain.ProcessRequest{OpnameID: opname.ID, Lines: []domain.ProcessLine{{ItemID: 999, PhysicalStock: int64Ptr(1)}}})
	assert.ErrorIs(t, err, domain.ErrUnknownItem)
	_, err = f.svc.Process(ctx, domain.ProcessRequest{OpnameID: opname.ID, Lines: []domain.ProcessLine{{ItemID: paper.ID, PhysicalStock: int64Ptr(-1)}}})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	_, err = f.svc.Process(ctx, domain.ProcessRequest{OpnameID: 12345})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := f.svc.Get(ctx, opname.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.Nil(t, got.Items[0].PhysicalStock)
}

func TestFinalizeWaitsForNextDayInPolicyZone(t *testing.T) {
	f := setupStockOpnameService(t)
	ctx := context.Background()

	paper, err := f.inventory.CreateItem(ctx, inventorydomain.CreateItemRequest{Code: "PAP", Name: "Paper", Unit: "ream", OpeningStock: 100})
	require.NoError(t, err)
	opname, err := f.svc.Create(ctx, domain.CreateRequest{OpnameDate: opnameDay(), ActorID: 1})
	require.NoError(t, err)

	_, err = f.svc.Finalize(ctx, domain.FinalizeRequest{OpnameID: opname.ID, ActorID: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = f.svc.Process(ctx, domain.ProcessRequest{
		OpnameID: opname.ID,
		ActorID:  1,
		Confirm:  true,
		Lines:    []domain.ProcessLine{{ItemID: paper.ID, PhysicalStock: int64Ptr(80)}},
	})
	require.NoError(t, err)

	// 23:30 in Jakarta, still the opname day.
	f.clock.Set(time.Date(2026, 10, 17, 16, 30, 0, 0, time.UTC))
	_, err = f.svc.Finalize(ctx, domain.FinalizeRequest{OpnameID: opname.ID, ActorID: 1})
	assert.ErrorIs(t, err, domain.ErrTooEarly)

	// 00:30 the next day in Jakarta while UTC is still on the 17th.
	f.clock.Advance(time.Hour)
	finalized, err := f.svc.Finalize(ctx, domain.FinalizeRequest{
		OpnameID: opname.ID,
		ActorID:  1,
		Lines:    []domain.FinalizeLine{{ItemID: paper.ID, FinalStock: int64Ptr(78), FinalNotes: "two torn"}},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFinalized, finalized.Status)
	assert.Nil(t, finalized.OpenScopeKey)
	require.NotNil(t, finalized.FinalizedAt)
	require.Len(t, finalized.Items, 1)
	require.NotNil(t, finalized.Items[0].FinalStock)
	assert.Equal(t, int64(78), *finalized.Items[0].FinalStock)

	got, err := f.inventory.Get(ctx, paper.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(78), got.Stock)

	check, err := f.inventory.Verify(ctx, paper.ID)
	require.NoError(t, err)
	assert.True(t, check.Consistent())

	_, err = f.svc.Finalize(ctx, domain.FinalizeRequest{OpnameID: opname.ID, ActorID: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	_, err = f.svc.Process(ctx, domain.ProcessRequest{OpnameID: opname.ID, ActorID: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	// A finalized opname frees the scope.
	next, err := f.svc.Create(ctx, domain.CreateRequest{OpnameDate: opnameDay().AddDate(0, 0, 1), ActorID: 1})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, next.Status)
	require.NotNil(t, next.OpenScopeKey)
	assert.Equal(t, domain.MainWarehouseScope, *next.OpenScopeKey)
	assert.Equal(t, int64(78), next.Items[0].SystemStock)

	stored, err := f.svc.Get(ctx, opname.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.OpenScopeKey)
}

func TestFinalizeDefaultsToPhysicalCount(t *testing.T) {
	f := setupStockOpnameService(t)
	ctx := context.Background()

	paper, err := f.inventory.CreateItem(ctx, inventorydomain.CreateItemRequest{Code: "PAP", Name: "Paper", Unit: "ream", OpeningStock: 50})
	require.NoError(t, err)
	opname, err := f.svc.Create(ctx, domain.CreateRequest{OpnameDate: opnameDay(), ActorID: 1})
	require.NoError(t, err)
	_, err = f.svc.Process(ctx, domain.ProcessRequest{
		OpnameID: opname.ID,
		Confirm:  true,
		Lines:    []domain.ProcessLine{{ItemID: paper.ID, PhysicalStock: int64Ptr(45)}},
	})
	require.NoError(t, err)

	f.clock.Advance(48 * time.Hour)
	_, err = f.svc.Finalize(ctx, domain.FinalizeRequest{OpnameID: opname.ID, Lines: []domain.FinalizeLine{{ItemID: 31337}}})
	assert.ErrorIs(t, err, domain.ErrUnknownItem)

	finalized, err := f.svc.Finalize(ctx, domain.FinalizeRequest{OpnameID: opname.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(45), *finalized.Items[0].FinalStock)

	got, err := f.inventory.Get(ctx, paper.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(45), got.Stock)

	trxs, err := f.inventory.ListTransactions(ctx, paper.ID)
	require.NoError(t, err)
	// opening, confirmation, finalization
	assert.Len(t, trxs, 3)
}

func TestListFiltersByScopeAndStatus(t *testing.T) {
	f := setupStockOpnameService(t)
	ctx := context.Background()

	division := int64(3)
	_, err := f.svc.Create(ctx, domain.CreateRequest{OpnameDate: opnameDay(), ActorID: 1})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, domain.CreateRequest{DivisionID: &division, OpnameDate: opnameDay(), ActorID: 1})
	require.NoError(t, err)

	all, err := f.svc.List(ctx, domain.ListRequest{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	main, err := f.svc.List(ctx, domain.ListRequest{MainWarehouse: true})
	require.NoError(t, err)
	require.Len(t, main, 1)
	assert.Nil(t, main[0].DivisionID)

	byDivision, err := f.svc.List(ctx, domain.ListRequest{DivisionID: &division})
	require.NoError(t, err)
	require.Len(t, byDivision, 1)

	confirmed := domain.StatusConfirmed
	none, err := f.svc.List(ctx, domain.ListRequest{Status: &confirmed})
	require.NoError(t, err)
	assert.Empty(t, none)

	bogus := domain.Status("Proses")
	_, err = f.svc.List(ctx, domain.ListRequest{Status: &bogus})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}
