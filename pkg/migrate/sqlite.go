package migrate

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// sqliteSchema mirrors the goose migrations for local SQLite databases. Keep
// both in step when a migration changes a table.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		customer_id TEXT,
		vendor_id TEXT,
		pickup TEXT NOT NULL,
		drop_location TEXT NOT NULL,
		items TEXT NOT NULL DEFAULT '[]',
		fare NUMERIC NOT NULL DEFAULT 0,
		payment_method TEXT NOT NULL DEFAULT 'cod',
		payment_status TEXT NOT NULL DEFAULT 'pending',
		status TEXT NOT NULL DEFAULT 'pending',
		scheduled_at DATETIME,
		assigned_at DATETIME,
		accepted_at DATETIME,
		completed_at DATETIME,
		cancelled_at DATETIME,
		cancellation_reason TEXT,
		cancelled_by TEXT,
		customer_notes TEXT,
		vendor_notes TEXT,
		payment_requests TEXT NOT NULL DEFAULT '[]',
		otp TEXT,
		metadata TEXT NOT NULL DEFAULT '{}',
		version INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders (status)`,
	`CREATE TABLE IF NOT EXISTS mock_order_calls (
		id TEXT PRIMARY KEY,
		client_request_id TEXT,
		request_payload TEXT NOT NULL,
		order_id TEXT,
		vendor_id TEXT,
		ip_address TEXT,
		user_agent TEXT,
		auto_assigned BOOLEAN NOT NULL DEFAULT 0,
		response_status INTEGER NOT NULL,
		error_message TEXT,
		created_at DATETIME
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_mock_order_calls_client_request_id
		ON mock_order_calls (client_request_id) WHERE client_request_id IS NOT NULL`,
	`CREATE TABLE IF NOT EXISTS vendors (
		id TEXT PRIMARY KEY,
		mobile TEXT NOT NULL UNIQUE,
		vendor_name TEXT NOT NULL,
		mobile_verified BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL UNIQUE,
		recipient_id TEXT NOT NULL,
		recipient_role TEXT NOT NULL,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		body TEXT NOT NULL,
		data TEXT NOT NULL DEFAULT '{}',
		read_at DATETIME,
		created_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at DATETIME,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS outbox_dlq (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload_json TEXT NOT NULL,
		error_reason TEXT NOT NULL,
		error_message TEXT,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		failed_at DATETIME,
		created_at DATETIME
	)`,
}

// EnsureSQLiteSchema creates any missing tables on a SQLite connection.
func EnsureSQLiteSchema(ctx context.Context, conn *gorm.DB) error {
	for _, stmt := range sqliteSchema {
		if err := conn.WithContext(ctx).Exec(stmt).Error; err != nil {
			return fmt.Errorf("apply sqlite schema: %w", err)
		}
	}
	return nil
}
