package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/dbtest"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/observability/metrics"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/quota/domain"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/quota/repository"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

func setupQuotaService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := dbtest.Open(t, &domain.StorageQuota{})
	dbtest.Exec(t, db, `CREATE TABLE document_divisions (
		document_id BIGINT NOT NULL,
		division_id BIGINT NOT NULL,
		allocated_size BIGINT NOT NULL DEFAULT 0,
		PRIMARY KEY (document_id, division_id)
	)`)

	svc := New(Params{
		DB:   db,
		Log:  zap.NewNop(),
		Repo: repository.Provide(),
	}).(*Service)
	return svc, db
}

func usedOf(t *testing.T, svc *Service, divisionID int64) int64 {
	t.Helper()
	usage, err := svc.Usage(context.Background(), divisionID)
	require.NoError(t, err)
	return usage.UsedSize
}

func reserve(t *testing.T, svc *Service, db *gorm.DB, ids []int64, size int64) (domain.Allocation, error) {
	t.Helper()
	var allocation domain.Allocation
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		allocation, err = svc.Reserve(context.Background(), tx, ids, size)
		return err
	})
	return allocation, err
}

func TestReserveSplitsEvenlyAndDropsRemainder(t *testing.T) {
	svc, db := setupQuotaService(t)

	allocation, err := reserve(t, svc, db, []int64{10, 20}, 1025)
	require.NoError(t, err)

	assert.Equal(t, domain.Allocation{10: 512, 20: 512}, allocation)
	assert.Equal(t, int64(512), usedOf(t, svc, 10))
	assert.Equal(t, int64(512), usedOf(t, svc, 20))

	allocation, err = reserve(t, svc, db, []int64{1, 2, 3}, 100)
	require.NoError(t, err)
	assert.Equal(t, domain.Allocation{1: 33, 2: 33, 3: 33}, allocation)
}

func TestReserveDedupesDivisions(t *testing.T) {
	svc, db := setupQuotaService(t)

	allocation, err := reserve(t, svc, db, []int64{5, 5, 5}, 900)
	require.NoError(t, err)
	assert.Equal(t, domain.Allocation{5: 900}, allocation)
}

func TestReserveWithNoDivisionsIsEmpty(t *testing.T) {
	svc, db := setupQuotaService(t)

	allocation, err := reserve(t, svc, db, nil, 4096)
	require.NoError(t, err)
	assert.Empty(t, allocation)

	var count int64
	require.NoError(t, db.Model(&domain.StorageQuota{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestReserveRejectsWithoutPartialDebit(t *testing.T) {
	svc, db := setupQuotaService(t)
	ctx := context.Background()

	require.NoError(t, svc.SetMax(ctx, 1, 10_000))
	require.NoError(t, svc.SetMax(ctx, 2, 1_000))

	_, err := reserve(t, svc, db, []int64{1, 2}, 4_000)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrQuotaExceeded))

	var exceeded *domain.ExceededError
	require.True(t, errors.As(err, &exceeded))
	assert.Equal(t, int64(2), exceeded.DivisionID)
	assert.Equal(t, int64(2_000), exceeded.Requested)
	assert.Equal(t, int64(1_000), exceeded.Remaining)

	assert.Zero(t, usedOf(t, svc, 1))
	assert.Zero(t, usedOf(t, svc, 2))
}

func TestOverQuotaUploadLeavesUsageUnchanged(t *testing.T) {
	svc, db := setupQuotaService(t)
	ctx := context.Background()

	require.NoError(t, svc.SetMax(ctx, 7, 2000))
	_, err := reserve(t, svc, db, []int64{7}, 1500)
	require.NoError(t, err)

	_, err = reserve(t, svc, db, []int64{7}, 600)
	assert.ErrorIs(t, err, domain.ErrQuotaExceeded)
	assert.Equal(t, int64(1500), usedOf(t, svc, 7))

	_, err = reserve(t, svc, db, []int64{7}, 500)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), usedOf(t, svc, 7))
}

func TestUnlimitedDivisionIsTracked(t *testing.T) {
	svc, db := setupQuotaService(t)

	_, err := reserve(t, svc, db, []int64{3}, 1<<40)
	require.NoError(t, err)

	usage, err := svc.Usage(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(1<<40), usage.UsedSize)
	assert.True(t, usage.Percent.IsZero())
	assert.Equal(t, int64(-1), usage.Remaining)
	assert.Equal(t, "unlimited", usage.MaxHuman)
}

func TestReleaseRestoresUsage(t *testing.T) {
	svc, db := setupQuotaService(t)

	allocation, err := reserve(t, svc, db, []int64{1, 2}, 1400)
	require.NoError(t, err)
	assert.Equal(t, int64(700), usedOf(t, svc, 1))

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.Release(context.Background(), tx, allocation)
	}))
	assert.Zero(t, usedOf(t, svc, 1))
	assert.Zero(t, usedOf(t, svc, 2))
}

func TestReleaseReportsClampedDrift(t *testing.T) {
	_, db := setupQuotaService(t)
	core, logs := observer.New(zapcore.WarnLevel)
	registry := prometheus.NewRegistry()
	svc := New(Params{
		DB:            db,
		Log:           zap.New(core),
		Repo:          repository.Provide(),
		LedgerMetrics: metrics.NewLedgerMetrics(registry, metrics.Config{ServiceName: "eoffice", Environment: "test"}),
	}).(*Service)

	allocation, err := reserve(t, svc, db, []int64{1, 2}, 1000)
	require.NoError(t, err)
	require.NoError(t, svc.repo.SetUsed(context.Background(), db, 1, 200, time.Now().UTC()))

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.Release(context.Background(), tx, allocation)
	}))
	assert.Zero(t, usedOf(t, svc, 1))
	assert.Zero(t, usedOf(t, svc, 2))

	entries := logs.FilterMessage("storage quota release exceeds usage, clamping to zero").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, int64(1), fields["division_id"])
	assert.Equal(t, int64(200), fields["used"])
	assert.Equal(t, int64(500), fields["release"])
	assert.Equal(t, int64(300), fields["drift"])

	count, err := testutil.GatherAndCount(registry, "eoffice_ledger_drift_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestReplaceRecomputesAllocation(t *testing.T) {
	svc, db := setupQuotaService(t)

	previous, err := reserve(t, svc, db, []int64{1, 2}, 1024)
	require.NoError(t, err)
	assert.Equal(t, int64(512), usedOf(t, svc, 1))

	var next domain.Allocation
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		var err error
		next, err = svc.Replace(context.Background(), tx, previous, []int64{1}, 2048)
		return err
	}))

	assert.Equal(t, domain.Allocation{1: 2048}, next)
	assert.Equal(t, int64(2048), usedOf(t, svc, 1))
	assert.Zero(t, usedOf(t, svc, 2))
}

func TestReplaceChecksAgainstPostReleaseUsage(t *testing.T) {
	svc, db := setupQuotaService(t)
	ctx := context.Background()
	require.NoError(t, svc.SetMax(ctx, 1, 1000))

	previous, err := reserve(t, svc, db, []int64{1}, 900)
	require.NoError(t, err)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.Replace(ctx, tx, previous, []int64{1}, 1000)
		return err
	}))
	assert.Equal(t, int64(1000), usedOf(t, svc, 1))
}

func TestFailedReplaceRollsBackRelease(t *testing.T) {
	svc, db := setupQuotaService(t)
	ctx := context.Background()
	require.NoError(t, svc.SetMax(ctx, 1, 1000))

	previous, err := reserve(t, svc, db, []int64{1}, 800)
	require.NoError(t, err)

	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.Replace(ctx, tx, previous, []int64{1}, 1200)
		return err
	})
	assert.ErrorIs(t, err, domain.ErrQuotaExceeded)
	assert.Equal(t, int64(800), usedOf(t, svc, 1))
}

func TestUsageOfMissingRecordIsZero(t *testing.T) {
	svc, _ := setupQuotaService(t)

	usage, err := svc.Usage(context.Background(), 99)
	require.NoError(t, err)
	assert.Zero(t, usage.UsedSize)
	assert.Zero(t, usage.MaxSize)
	assert.True(t, usage.Percent.IsZero())
}

func TestUsagePercent(t *testing.T) {
	svc, db := setupQuotaService(t)
	require.NoError(t, svc.SetMax(context.Background(), 4, 2000))
	_, err := reserve(t, svc, db, []int64{4}, 1500)
	require.NoError(t, err)

	usage, err := svc.Usage(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, "75", usage.Percent.String())
	assert.Equal(t, int64(500), usage.Remaining)

	list, err := svc.ListUsage(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(4), list[0].DivisionID)
}

func TestSetMaxValidation(t *testing.T) {
	svc, _ := setupQuotaService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.SetMax(ctx, 0, 10), domain.ErrInvalidDivision)
	assert.ErrorIs(t, svc.SetMax(ctx, 1, -1), domain.ErrInvalidMaxSize)
}

func TestReconcileCorrectsDrift(t *testing.T) {
	svc, db := setupQuotaService(t)
	ctx := context.Background()

	_, err := reserve(t, svc, db, []int64{1}, 1000)
	require.NoError(t, err)
	dbtest.Exec(t, db,
		`INSERT INTO document_divisions (document_id, division_id, allocated_size) VALUES (1, 1, 600), (2, 1, 300)`,
	)

	result, err := svc.Reconcile(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), result.Before)
	assert.Equal(t, int64(900), result.After)
	assert.True(t, result.Drifted())
	assert.Equal(t, int64(900), usedOf(t, svc, 1))

	results, err := svc.ReconcileAll(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Drifted())
}

func TestConservationAcrossOperations(t *testing.T) {
	svc, db := setupQuotaService(t)
	ctx := context.Background()

	a, err := reserve(t, svc, db, []int64{1, 2}, 3001)
	require.NoError(t, err)
	b, err := reserve(t, svc, db, []int64{2, 3}, 800)
	require.NoError(t, err)
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.Replace(ctx, tx, a, []int64{3}, 10)
		return err
	}))

	assert.Zero(t, usedOf(t, svc, 1))
	assert.Equal(t, b[2], usedOf(t, svc, 2))
	assert.Equal(t, b[3]+10, usedOf(t, svc, 3))
}
