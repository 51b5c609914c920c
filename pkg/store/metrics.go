// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/helios-ops/helios/pkg/core"
)

// MetricsStore keeps historical business metrics snapshots.
type MetricsStore struct {
	db *sql.DB
}

// NewMetricsStore creates a metrics store over an open database.
func NewMetricsStore(db *sql.DB) *MetricsStore {
	return &MetricsStore{db: db}
}

// Record persists a snapshot, assigning an ID and timestamp if unset.
func (s *MetricsStore) Record(ctx context.Context, snap *core.MetricsSnapshot) error {
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	if snap.RecordedAt.IsZero() {
		snap.RecordedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s
			(id, total_cash, total_inventory_value, daily_sales, daily_transactions, period, recorded_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`, metricsTable),
		snap.ID, snap.TotalCash, snap.TotalInventoryValue, snap.DailySales,
		snap.DailyTransactions, snap.Period, snap.RecordedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert metrics snapshot: %w", err)
	}
	return nil
}

// History returns the most recent snapshots, newest first.
func (s *MetricsStore) History(ctx context.Context, limit int) ([]*core.MetricsSnapshot, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT id, total_cash, total_inventory_value, daily_sales,
			daily_transactions, period, recorded_at FROM %s
			ORDER BY recorded_at DESC LIMIT ?`, metricsTable), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*core.MetricsSnapshot
	for rows.Next() {
		var snap core.MetricsSnapshot
		var recorded int64
		if err := rows.Scan(&snap.ID, &snap.TotalCash, &snap.TotalInventoryValue,
			&snap.DailySales, &snap.DailyTransactions, &snap.Period, &recorded); err != nil {
			return nil, err
		}
		snap.RecordedAt = time.UnixMilli(recorded).UTC()
		out = append(out, &snap)
	}
	return out, rows.Err()
}
