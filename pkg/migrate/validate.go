package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/multierr"
)

var (
	sqlFileRe     = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)
	createTableRe = regexp.MustCompile(`(?i)CREATE TABLE IF NOT EXISTS\s+(\w+)\s*\(`)
)

// words that open a table constraint rather than a column definition
var constraintWords = map[string]bool{
	"constraint": true,
	"check":      true,
	"primary":    true,
	"unique":     true,
	"foreign":    true,
}

// ValidateDir checks migration filenames and goose headers, then that the
// SQLite schema used by local runs and tests declares the same tables and
// columns as the migrations' Up sections. Every problem is reported.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read dir %q: %w", dir, err)
	}

	var errs error
	seen := map[string]string{}
	migrated := map[string]map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			errs = multierr.Append(errs, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name))
			continue
		}
		if prev, ok := seen[m[1]]; ok {
			errs = multierr.Append(errs, fmt.Errorf("duplicate migration version %s in %q and %q", m[1], prev, name))
		}
		seen[m[1]] = name

		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("read %q: %w", name, err))
			continue
		}
		text := string(b)
		up, _, hasDown := strings.Cut(text, "-- +goose Down")
		if !strings.Contains(up, "-- +goose Up") {
			errs = multierr.Append(errs, fmt.Errorf("migration %q missing \"-- +goose Up\"", name))
		}
		if !hasDown {
			errs = multierr.Append(errs, fmt.Errorf("migration %q missing \"-- +goose Down\"", name))
		}
		for table, cols := range parseTables(up) {
			migrated[table] = cols
		}
	}

	if len(migrated) > 0 {
		errs = multierr.Append(errs, compareSchemas(migrated, parseTables(strings.Join(sqliteSchema, ";\n"))))
	}
	return errs
}

// compareSchemas reports tables and columns that exist on one side only.
func compareSchemas(migrated, sqlite map[string]map[string]bool) error {
	var errs error
	for _, table := range sortedKeys(migrated) {
		got, ok := sqlite[table]
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf("sqlite schema is missing table %s", table))
			continue
		}
		for _, col := range sortedKeys(migrated[table]) {
			if !got[col] {
				errs = multierr.Append(errs, fmt.Errorf("sqlite table %s is missing column %s", table, col))
			}
		}
		for _, col := range sortedKeys(got) {
			if !migrated[table][col] {
				errs = multierr.Append(errs, fmt.Errorf("sqlite table %s has column %s with no migration", table, col))
			}
		}
	}
	for _, table := range sortedKeys(sqlite) {
		if _, ok := migrated[table]; !ok {
			errs = multierr.Append(errs, fmt.Errorf("sqlite table %s has no migration", table))
		}
	}
	return errs
}

// parseTables returns the column names of every CREATE TABLE in text.
func parseTables(text string) map[string]map[string]bool {
	tables := map[string]map[string]bool{}
	for _, loc := range createTableRe.FindAllStringSubmatchIndex(text, -1) {
		body, ok := parenBody(text[loc[1]:])
		if !ok {
			continue
		}
		cols := map[string]bool{}
		for _, def := range splitTopLevel(body) {
			fields := strings.Fields(def)
			if len(fields) == 0 {
				continue
			}
			word := strings.ToLower(strings.Trim(fields[0], `"`))
			if constraintWords[word] {
				continue
			}
			cols[word] = true
		}
		tables[strings.ToLower(text[loc[2]:loc[3]])] = cols
	}
	return tables
}

// parenBody returns s up to the parenthesis closing an already opened one.
func parenBody(s string) (string, bool) {
	depth := 1
	quoted := false
	for i, r := range s {
		switch {
		case r == '\'':
			quoted = !quoted
		case quoted:
		case r == '(':
			depth++
		case r == ')':
			depth--
			if depth == 0 {
				return s[:i], true
			}
		}
	}
	return "", false
}

func splitTopLevel(body string) []string {
	var (
		parts  []string
		depth  int
		quoted bool
		start  int
	)
	for i, r := range body {
		switch {
		case r == '\'':
			quoted = !quoted
		case quoted:
		case r == '(':
			depth++
		case r == ')':
			depth--
		case r == ',' && depth == 0:
			parts = append(parts, body[start:i])
			start = i + 1
		}
	}
	return append(parts, body[start:])
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
