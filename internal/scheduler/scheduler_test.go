package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/clock"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/config"
	inventorydomain "github.com/syaokifaradisa9/e-office-app-sub001/internal/inventory/domain"
	quotadomain "github.com/syaokifaradisa9/e-office-app-sub001/internal/quota/domain"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
)

type quotaStub struct {
	quotadomain.Service
	calls   int
	results []quotadomain.ReconcileResult
	err     error
}

func (q *quotaStub) ReconcileAll(context.Context) ([]quotadomain.ReconcileResult, error) {
	q.calls++
	return q.results, q.err
}

type inventoryStub struct {
	inventorydomain.Service
	calls  int
	checks []inventorydomain.LedgerCheck
	block  bool
}

func (i *inventoryStub) VerifyAll(ctx context.Context) ([]inventorydomain.LedgerCheck, error) {
	i.calls++
	if i.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return i.checks, nil
}

func newScheduler(t *testing.T, quota *quotaStub, inventory *inventoryStub, cfg Config) *Scheduler {
	t.Helper()
	s, err := New(Params{
		Log:       zap.NewNop(),
		Quota:     quota,
		Inventory: inventory,
		Clock:     clock.NewFakeClock(time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)),
		Config:    cfg,
	})
	require.NoError(t, err)
	return s
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop()})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRunOnceRunsEveryJobByDefault(t *testing.T) {
	quota := &quotaStub{results: []quotadomain.ReconcileResult{
		{DivisionID: 1, Before: 10, After: 10},
		{DivisionID: 2, Before: 30, After: 20},
	}}
	inventory := &inventoryStub{checks: []inventorydomain.LedgerCheck{
		{ItemID: 1, Code: "PAP", Stock: 80, LedgerSum: 80},
		{ItemID: 2, Code: "TON", Stock: 5, LedgerSum: 4},
	}}
	s := newScheduler(t, quota, inventory, Config{})

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, 1, quota.calls)
	assert.Equal(t, 1, inventory.calls)
}

func TestRunOnceHonoursEnabledJobs(t *testing.T) {
	quota := &quotaStub{}
	inventory := &inventoryStub{}
	s := newScheduler(t, quota, inventory, Config{EnabledJobs: []string{"STOCK_VERIFY"}})

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Zero(t, quota.calls)
	assert.Equal(t, 1, inventory.calls)
}

func TestRunOnceJoinsFailures(t *testing.T) {
	boom := errors.New("db down")
	quota := &quotaStub{err: boom}
	inventory := &inventoryStub{}
	s := newScheduler(t, quota, inventory, Config{})

	err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), JobQuotaReconcile)
	assert.Equal(t, 1, inventory.calls, "a failed job does not stop the rest")
}

func TestRunJobTimeoutIsSoft(t *testing.T) {
	inventory := &inventoryStub{block: true}
	s := newScheduler(t, &quotaStub{}, inventory, Config{JobTimeout: 5 * time.Millisecond})

	assert.NoError(t, s.runJob(context.Background(), JobStockVerify, s.StockVerifyJob))
}

func TestRunForeverStopsOnCancel(t *testing.T) {
	quota := &quotaStub{}
	s := newScheduler(t, quota, &inventoryStub{}, Config{RunInterval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done := make(chan struct{})
	go func() {
		s.RunForever(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunForever did not return after cancel")
	}
}

func TestProvideConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, time.Hour, cfg.RunInterval)
	assert.Equal(t, 5*time.Minute, cfg.JobTimeout)

	provided := ProvideConfig(config.Config{Maintenance: config.MaintenanceConfig{
		Enabled:     true,
		IntervalSec: 60,
		Jobs:        []string{JobStockVerify},
	}})
	assert.True(t, provided.Enabled)
	assert.Equal(t, time.Minute, provided.RunInterval)
	assert.Equal(t, []string{JobStockVerify}, provided.EnabledJobs)
}

func TestRegisterRunsUntilStop(t *testing.T) {
	quota := &quotaStub{}
	inventory := &inventoryStub{}
	cfg := Config{Enabled: true, RunInterval: time.Hour}
	s := newScheduler(t, quota, inventory, cfg)

	lc := fxtest.NewLifecycle(t)
	register(lc, cfg, s, zap.NewNop())
	lc.RequireStart()
	lc.RequireStop()

	// The first run happens immediately; the hourly tick never fires.
	assert.Equal(t, 1, quota.calls)
	assert.Equal(t, 1, inventory.calls)
}

func TestRegisterSkipsDisabledLoop(t *testing.T) {
	quota := &quotaStub{}
	inventory := &inventoryStub{}
	s := newScheduler(t, quota, inventory, Config{})

	lc := fxtest.NewLifecycle(t)
	register(lc, Config{}, s, zap.NewNop())
	lc.RequireStart()
	lc.RequireStop()

	assert.Zero(t, quota.calls)
	assert.Zero(t, inventory.calls)
}
