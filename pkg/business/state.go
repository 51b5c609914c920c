// SPDX-License-Identifier: Apache-2.0

package business

import (
	"context"
	"time"

	"github.com/helios-ops/helios/pkg/core"
	"github.com/helios-ops/helios/pkg/store"
)

// StateService computes the live business snapshot and keeps a history
// of metrics over time.
type StateService struct {
	inventory *InventoryService
	customers *CustomerService
	staff     *StaffService
	orders    *OrderService
	products  *store.ProductStore
	custStore *store.CustomerStore
	staffSt   *store.StaffStore
	metrics   *store.MetricsStore
}

// NewStateService creates a state service over the other services and stores.
func NewStateService(
	inventory *InventoryService,
	customers *CustomerService,
	staff *StaffService,
	orders *OrderService,
	products *store.ProductStore,
	custStore *store.CustomerStore,
	staffStore *store.StaffStore,
	metrics *store.MetricsStore,
) *StateService {
	return &StateService{
		inventory: inventory,
		customers: customers,
		staff:     staff,
		orders:    orders,
		products:  products,
		custStore: custStore,
		staffSt:   staffStore,
		metrics:   metrics,
	}
}

// Snapshot computes the current business state.
func (s *StateService) Snapshot(ctx context.Context) (*core.BusinessState, error) {
	now := time.Now().UTC()

	inventoryValue, err := s.inventory.InventoryValue(ctx)
	if err != nil {
		return nil, err
	}
	daily, err := s.orders.DailySales(ctx, now)
	if err != nil {
		return nil, err
	}
	low, err := s.inventory.LowStockProducts(ctx)
	if err != nil {
		return nil, err
	}
	totalProducts, err := s.products.Count(ctx)
	if err != nil {
		return nil, err
	}
	totalCustomers, err := s.custStore.Count(ctx)
	if err != nil {
		return nil, err
	}
	totalStaff, err := s.staffSt.Count(ctx)
	if err != nil {
		return nil, err
	}
	totalCash, err := s.totalCash(ctx)
	if err != nil {
		return nil, err
	}

	return &core.BusinessState{
		TotalCash:           totalCash,
		TotalInventoryValue: round2(inventoryValue),
		DailySales:          daily.TotalSales,
		DailyTransactions:   daily.TransactionCount,
		TotalProducts:       totalProducts,
		LowStockCount:       len(low),
		TotalCustomers:      totalCustomers,
		TotalStaff:          totalStaff,
		LastUpdated:         now,
		Period:              "current",
	}, nil
}

// RecordMetrics persists the current state as a metrics snapshot.
func (s *StateService) RecordMetrics(ctx context.Context, period string) (*core.MetricsSnapshot, error) {
	state, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if period == "" {
		period = "daily"
	}
	snap := &core.MetricsSnapshot{
		TotalCash:           state.TotalCash,
		TotalInventoryValue: state.TotalInventoryValue,
		DailySales:          state.DailySales,
		DailyTransactions:   state.DailyTransactions,
		Period:              period,
	}
	if err := s.metrics.Record(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// MetricsHistory returns the most recent metrics snapshots.
func (s *StateService) MetricsHistory(ctx context.Context, limit int) ([]*core.MetricsSnapshot, error) {
	return s.metrics.History(ctx, limit)
}

// totalCash sums all recorded sales. Sales are the only cash movement
// Helios tracks.
func (s *StateService) totalCash(ctx context.Context) (float64, error) {
	weekly, err := s.orders.salesBetween(ctx, "all",
		time.UnixMilli(0).UTC(), time.Now().UTC().Add(24*time.Hour))
	if err != nil {
		return 0, err
	}
	return weekly.TotalSales, nil
}
