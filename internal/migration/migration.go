package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	archivedomain "github.com/syaokifaradisa9/e-office-app-sub001/internal/archive/domain"
	divisiondomain "github.com/syaokifaradisa9/e-office-app-sub001/internal/division/domain"
	documentdomain "github.com/syaokifaradisa9/e-office-app-sub001/internal/document/domain"
	inventorydomain "github.com/syaokifaradisa9/e-office-app-sub001/internal/inventory/domain"
	quotadomain "github.com/syaokifaradisa9/e-office-app-sub001/internal/quota/domain"
	stockopnamedomain "github.com/syaokifaradisa9/e-office-app-sub001/internal/stockopname/domain"
	"gorm.io/gorm"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Up brings the schema to the latest version. Postgres runs the embedded SQL
// migrations; other dialects are migrated from the gorm models.
func Up(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	if conn.Dialector.Name() != "postgres" {
		if err := conn.AutoMigrate(Models()...); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	migrator, err := newMigrator(sqlDB)
	if err != nil {
		return err
	}
	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.
	return nil
}

// Down rolls back the given number of postgres migrations.
func Down(conn *gorm.DB, steps int) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	if conn.Dialector.Name() != "postgres" {
		return fmt.Errorf("rollback is not supported on %s", conn.Dialector.Name())
	}
	if steps <= 0 {
		return errors.New("steps must be positive")
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	migrator, err := newMigrator(sqlDB)
	if err != nil {
		return err
	}
	if err := migrator.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("rollback migrations: %w", err)
	}
	return nil
}

func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return nil, fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return migrator, nil
}

// Models lists every table owned by the service.
func Models() []any {
	models := []any{
		&divisiondomain.Division{},
		&quotadomain.StorageQuota{},
		&archivedomain.CategoryContext{},
		&archivedomain.Category{},
		&archivedomain.Classification{},
		&inventorydomain.Item{},
		&inventorydomain.ItemTransaction{},
		&stockopnamedomain.StockOpname{},
		&stockopnamedomain.StockOpnameItem{},
	}
	return append(models, documentdomain.Models()...)
}
