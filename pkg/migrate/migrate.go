package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"regexp"
	"strconv"

	"github.com/pressly/goose/v3"
)

// DefaultDir holds the Postgres migrations. SQLite databases get
// sqliteSchema instead.
const DefaultDir = "pkg/migrate/migrations"

const gooseDialect = "postgres"

var (
	versionRe = regexp.MustCompile(`^\d{14}$`)

	// goose commands the migrate binary forwards as-is
	forwardedCommands = map[string]bool{"up": true, "down": true, "status": true, "redo": true}
)

// Run forwards one of up, down, status or redo to goose.
func Run(ctx context.Context, db *sql.DB, dir, command string, args ...string) error {
	if !forwardedCommands[command] {
		return fmt.Errorf("unsupported goose command %q", command)
	}
	if err := prepare(db, dir); err != nil {
		return err
	}
	if err := goose.RunContext(ctx, command, db, dir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// MigrateToVersion moves the schema up or down to a version that exists in
// dir.
func MigrateToVersion(ctx context.Context, db *sql.DB, dir, targetVersion string) error {
	if !versionRe.MatchString(targetVersion) {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS)", targetVersion)
	}
	if err := prepare(db, dir); err != nil {
		return err
	}
	known, err := hasVersion(dir, targetVersion)
	if err != nil {
		return err
	}
	if !known {
		return fmt.Errorf("no migration with version %s in %s", targetVersion, dir)
	}
	target, err := strconv.ParseInt(targetVersion, 10, 64)
	if err != nil {
		return fmt.Errorf("parse version %q: %w", targetVersion, err)
	}

	current, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}
	switch {
	case current == target:
		return nil
	case current < target:
		if err := goose.UpToContext(ctx, db, dir, target); err != nil {
			return fmt.Errorf("goose up-to %d: %w", target, err)
		}
	default:
		if err := goose.DownToContext(ctx, db, dir, target); err != nil {
			return fmt.Errorf("goose down-to %d: %w", target, err)
		}
	}
	return nil
}

func prepare(db *sql.DB, dir string) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	if err := goose.SetDialect(gooseDialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return nil
}

func hasVersion(dir, version string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, fmt.Errorf("read dir %q: %w", dir, err)
	}
	for _, e := range entries {
		if m := sqlFileRe.FindStringSubmatch(e.Name()); m != nil && m[1] == version {
			return true, nil
		}
	}
	return false, nil
}
