package migrate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorops-backend/pkg/config"
	"github.com/angelmondragon/vendorops-backend/pkg/db"
	"github.com/angelmondragon/vendorops-backend/pkg/logger"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no %s migration file found", suffix)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestMigrationsDirIsValid(t *testing.T) {
	if err := ValidateDir("migrations"); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestOrdersMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "create_orders")
	checks := []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"payment_requests jsonb NOT NULL DEFAULT '[]'::jsonb",
		"CHECK (fare >= 0)",
		"version",
		"DROP TABLE IF EXISTS orders",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMockCallsMigrationHasUniqueClientKey(t *testing.T) {
	content := readMigration(t, "create_mock_order_calls")
	if !strings.Contains(content, "ux_mock_order_calls_client_request_id") {
		t.Fatalf("missing unique index on client_request_id")
	}
}

func TestEnsureSQLiteSchemaIsRepeatable(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := EnsureSQLiteSchema(ctx, conn); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	for _, table := range []string{"orders", "mock_order_calls", "vendors", "notifications", "outbox_events", "outbox_dlq"} {
		if !conn.Migrator().HasTable(table) {
			t.Errorf("missing table %s", table)
		}
	}
}

func TestMaybeRunDevSkipsPostgresOutsideDev(t *testing.T) {
	cfg := &config.Config{
		App: config.AppConfig{Env: "prod"},
		DB:  config.DBConfig{Driver: config.DriverPostgres},
	}
	// a nil client would panic if goose were invoked
	if err := MaybeRunDev(context.Background(), cfg, logger.Nop(), (*db.Client)(nil)); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}

func TestParseTablesSkipsConstraintsAndNestedCommas(t *testing.T) {
	tables := parseTables(`CREATE TABLE IF NOT EXISTS orders (
    id uuid PRIMARY KEY,
    fare numeric(12,2) NOT NULL DEFAULT 0 CHECK (fare >= 0),
    items jsonb NOT NULL DEFAULT '[]'::jsonb,
    note text DEFAULT 'a, (b'),
    CONSTRAINT orders_vendor_required CHECK (vendor_id IS NOT NULL OR status IN ('pending', 'cancelled'))
);`)
	cols := tables["orders"]
	if len(cols) != 4 {
		t.Fatalf("expected 4 columns, got %v", cols)
	}
	for _, col := range []string{"id", "fare", "items", "note"} {
		if !cols[col] {
			t.Errorf("missing column %s", col)
		}
	}
}

func TestCompareSchemasReportsDrift(t *testing.T) {
	migrated := map[string]map[string]bool{
		"orders":  {"id": true, "version": true},
		"vendors": {"id": true},
	}
	sqlite := map[string]map[string]bool{
		"orders":   {"id": true, "legacy": true},
		"sessions": {"id": true},
	}
	err := compareSchemas(migrated, sqlite)
	if err == nil {
		t.Fatal("expected drift to be reported")
	}
	for _, want := range []string{
		"missing table vendors",
		"orders is missing column version",
		"column legacy with no migration",
		"sqlite table sessions has no migration",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %v", want, err)
		}
	}
	if err := compareSchemas(migrated, migrated); err != nil {
		t.Fatalf("identical schemas should match: %v", err)
	}
}

func TestCreateSQLMigrationSortsAfterNewestVersion(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "20300101000000_create_orders.sql")
	if err := os.WriteFile(existing, []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("seed migration: %v", err)
	}

	path, err := createSQLMigration(dir, "Add Vendor Rating!", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if filepath.Base(path) != "20300101000001_add_vendor_rating.sql" {
		t.Fatalf("unexpected file name %s", filepath.Base(path))
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}

	if _, err := createSQLMigration(dir, "!!!", time.Now()); err == nil {
		t.Fatal("expected empty name to be rejected")
	}
}

func TestValidateDirCollectsEveryProblem(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"bad-name.sql":                     "-- +goose Up\n-- +goose Down\n",
		"20300101000000_no_down.sql":       "-- +goose Up\nSELECT 1;\n",
		"20300101000001_missing_table.sql": "-- +goose Up\nCREATE TABLE IF NOT EXISTS widgets (\n id uuid\n);\n-- +goose Down\n",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	err := ValidateDir(dir)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"bad-name.sql", "missing \"-- +goose Down\"", "missing table widgets"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %v", want, err)
		}
	}
}

func TestMigrateToVersionRejectsUnknownVersion(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	if err := MigrateToVersion(context.Background(), sqlDB, "migrations", "2025"); err == nil {
		t.Fatal("expected malformed version to be rejected")
	}
	if err := MigrateToVersion(context.Background(), sqlDB, "migrations", "19990101000000"); err == nil ||
		!strings.Contains(err.Error(), "no migration with version") {
		t.Fatalf("expected unknown version error, got %v", err)
	}
	if err := Run(context.Background(), sqlDB, "migrations", "fix"); err == nil {
		t.Fatal("expected unsupported command to be rejected")
	}
}
