// SPDX-License-Identifier: Apache-2.0

// Package store persists Helios business entities and tasks in SQLite.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const (
	productTable     = "products"
	customerTable    = "customers"
	staffTable       = "staff"
	transactionTable = "transactions"
	taskTable        = "tasks"
	metricsTable     = "business_metrics"
)

// Open opens (creating if needed) the SQLite database at path and
// ensures the schema exists.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent workers.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA busy_timeout = 5000;",
		"PRAGMA foreign_keys = ON;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %s: %w", pragma, err)
		}
	}

	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func ensureSchema(db *sql.DB) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			price REAL NOT NULL,
			quantity INTEGER NOT NULL,
			reorder_level INTEGER NOT NULL DEFAULT 10,
			supplier TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);`, productTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_name ON %s(name);`, productTable, productTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_category ON %s(category);`, productTable, productTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			address TEXT NOT NULL DEFAULT '',
			total_purchases REAL NOT NULL DEFAULT 0,
			purchase_count INTEGER NOT NULL DEFAULT 0,
			last_purchase_at INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);`, customerTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_name ON %s(name);`, customerTable, customerTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			role TEXT NOT NULL,
			email TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			hire_date INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'active',
			performance_rating REAL NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);`, staffTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_status ON %s(status);`, staffTable, staffTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			customer_id TEXT NOT NULL DEFAULT '',
			customer_name TEXT NOT NULL DEFAULT '',
			items_json BLOB NOT NULL,
			subtotal REAL NOT NULL,
			tax REAL NOT NULL,
			total REAL NOT NULL,
			payment_method TEXT NOT NULL,
			notes TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		);`, transactionTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_created ON %s(created_at);`, transactionTable, transactionTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_customer ON %s(customer_id);`, transactionTable, transactionTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			priority TEXT NOT NULL,
			updated_at INTEGER NOT NULL,
			task_json BLOB NOT NULL
		);`, taskTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_status ON %s(status);`, taskTable, taskTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_updated ON %s(updated_at);`, taskTable, taskTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			total_cash REAL NOT NULL,
			total_inventory_value REAL NOT NULL,
			daily_sales REAL NOT NULL,
			daily_transactions INTEGER NOT NULL,
			period TEXT NOT NULL,
			recorded_at INTEGER NOT NULL
		);`, metricsTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_recorded ON %s(recorded_at);`, metricsTable, metricsTable),
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
