package migration

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/dbtest"
	stockopnamedomain "github.com/syaokifaradisa9/e-office-app-sub001/internal/stockopname/domain"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	ups, err := fs.Glob(embeddedMigrations, migrationsDir+"/*.up.sql")
	require.NoError(t, err)
	downs, err := fs.Glob(embeddedMigrations, migrationsDir+"/*.down.sql")
	require.NoError(t, err)

	require.NotEmpty(t, ups)
	assert.Len(t, downs, len(ups))
}

func TestUpMigratesModelsOutsidePostgres(t *testing.T) {
	db := dbtest.Open(t)

	require.NoError(t, Up(db))
	for _, table := range []string{
		"divisions",
		"division_storage_quotas",
		"documents",
		"document_divisions",
		"items",
		"item_transactions",
		"stock_opnames",
		"stock_opname_items",
	} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
	assert.True(t, db.Migrator().HasIndex(&stockopnamedomain.StockOpname{}, "ux_stock_opnames_open_scope"))

	// Idempotent.
	require.NoError(t, Up(db))
	assert.Error(t, Down(db, 1))
}
