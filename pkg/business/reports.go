// SPDX-License-Identifier: Apache-2.0

package business

import (
	"context"
	"time"

	"github.com/helios-ops/helios/pkg/core"
	"github.com/helios-ops/helios/pkg/errors"
)

// InventoryReport summarizes stock levels.
type InventoryReport struct {
	GeneratedAt   time.Time       `json:"generated_at"`
	TotalProducts int             `json:"total_products"`
	TotalValue    float64         `json:"total_value"`
	LowStock      []*core.Product `json:"low_stock"`
	OutOfStock    []*core.Product `json:"out_of_stock"`
}

// CustomerReport summarizes the customer base.
type CustomerReport struct {
	GeneratedAt      time.Time        `json:"generated_at"`
	TotalCustomers   int              `json:"total_customers"`
	TotalRevenue     float64          `json:"total_revenue"`
	AverageSpend     float64          `json:"average_spend"`
	TopCustomers     []*core.Customer `json:"top_customers"`
	ActiveLast30Days int              `json:"active_last_30_days"`
}

// StaffReport summarizes the workforce.
type StaffReport struct {
	GeneratedAt        time.Time      `json:"generated_at"`
	TotalStaff         int            `json:"total_staff"`
	ByStatus           map[string]int `json:"by_status"`
	ByRole             map[string]int `json:"by_role"`
	AveragePerformance float64        `json:"average_performance"`
	TopPerformers      []*core.Staff  `json:"top_performers"`
}

// ComprehensiveReport bundles every report section with the live state.
type ComprehensiveReport struct {
	GeneratedAt time.Time           `json:"generated_at"`
	State       *core.BusinessState `json:"state"`
	Sales       *SalesSummary       `json:"sales"`
	Inventory   *InventoryReport    `json:"inventory"`
	Customers   *CustomerReport     `json:"customers"`
	Staff       *StaffReport        `json:"staff"`
}

// ReportService builds read-only analytical reports over the other services.
type ReportService struct {
	inventory *InventoryService
	customers *CustomerService
	staff     *StaffService
	orders    *OrderService
	state     *StateService
}

// NewReportService creates a report service.
func NewReportService(
	inventory *InventoryService,
	customers *CustomerService,
	staff *StaffService,
	orders *OrderService,
	state *StateService,
) *ReportService {
	return &ReportService{
		inventory: inventory,
		customers: customers,
		staff:     staff,
		orders:    orders,
		state:     state,
	}
}

// DailySales reports sales for the given day (today when zero).
func (s *ReportService) DailySales(ctx context.Context, day time.Time) (*SalesSummary, error) {
	if day.IsZero() {
		day = time.Now().UTC()
	}
	return s.orders.DailySales(ctx, day)
}

// WeeklySales reports sales for the seven days ending with the given day.
func (s *ReportService) WeeklySales(ctx context.Context, day time.Time) (*SalesSummary, error) {
	if day.IsZero() {
		day = time.Now().UTC()
	}
	return s.orders.WeeklySales(ctx, day)
}

// Inventory reports stock levels and flags low and empty stock.
func (s *ReportService) Inventory(ctx context.Context) (*InventoryReport, error) {
	products, err := s.inventory.ListProducts(ctx, "")
	if err != nil {
		return nil, err
	}
	value, err := s.inventory.InventoryValue(ctx)
	if err != nil {
		return nil, err
	}

	report := &InventoryReport{
		GeneratedAt:   time.Now().UTC(),
		TotalProducts: len(products),
		TotalValue:    round2(value),
	}
	for _, p := range products {
		if p.Quantity == 0 {
			report.OutOfStock = append(report.OutOfStock, p)
		} else if p.LowStock() {
			report.LowStock = append(report.LowStock, p)
		}
	}
	return report, nil
}

// Customers reports on the customer base.
func (s *ReportService) Customers(ctx context.Context) (*CustomerReport, error) {
	customers, err := s.customers.ListCustomers(ctx)
	if err != nil {
		return nil, err
	}
	top, err := s.customers.TopCustomers(ctx, 5)
	if err != nil {
		return nil, err
	}

	report := &CustomerReport{
		GeneratedAt:    time.Now().UTC(),
		TotalCustomers: len(customers),
		TopCustomers:   top,
	}
	cutoff := time.Now().UTC().Add(-30 * 24 * time.Hour)
	for _, c := range customers {
		report.TotalRevenue += c.TotalPurchases
		if c.LastPurchaseDate.After(cutoff) {
			report.ActiveLast30Days++
		}
	}
	report.TotalRevenue = round2(report.TotalRevenue)
	if len(customers) > 0 {
		report.AverageSpend = round2(report.TotalRevenue / float64(len(customers)))
	}
	return report, nil
}

// Staff reports on the workforce.
func (s *ReportService) Staff(ctx context.Context) (*StaffReport, error) {
	staff, err := s.staff.ListStaff(ctx, "")
	if err != nil {
		return nil, err
	}

	report := &StaffReport{
		GeneratedAt: time.Now().UTC(),
		TotalStaff:  len(staff),
		ByStatus:    make(map[string]int),
		ByRole:      make(map[string]int),
	}
	var totalRating float64
	var rated int
	for _, m := range staff {
		report.ByStatus[string(m.Status)]++
		report.ByRole[m.Role]++
		if m.PerformanceRating > 0 {
			totalRating += m.PerformanceRating
			rated++
		}
		if m.PerformanceRating >= 4 {
			report.TopPerformers = append(report.TopPerformers, m)
		}
	}
	if rated > 0 {
		report.AveragePerformance = round2(totalRating / float64(rated))
	}
	return report, nil
}

// Comprehensive bundles every report section.
func (s *ReportService) Comprehensive(ctx context.Context) (*ComprehensiveReport, error) {
	state, err := s.state.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	sales, err := s.DailySales(ctx, time.Time{})
	if err != nil {
		return nil, err
	}
	inventory, err := s.Inventory(ctx)
	if err != nil {
		return nil, err
	}
	customers, err := s.Customers(ctx)
	if err != nil {
		return nil, err
	}
	staff, err := s.Staff(ctx)
	if err != nil {
		return nil, err
	}

	return &ComprehensiveReport{
		GeneratedAt: time.Now().UTC(),
		State:       state,
		Sales:       sales,
		Inventory:   inventory,
		Customers:   customers,
		Staff:       staff,
	}, nil
}

// ByName builds a named report. Agents resolve free-text requests to
// one of: daily_sales, weekly_sales, inventory, customers, staff,
// comprehensive.
func (s *ReportService) ByName(ctx context.Context, name string) (any, error) {
	switch name {
	case "daily_sales", "daily":
		return s.DailySales(ctx, time.Time{})
	case "weekly_sales", "weekly":
		return s.WeeklySales(ctx, time.Time{})
	case "inventory":
		return s.Inventory(ctx)
	case "customers", "customer":
		return s.Customers(ctx)
	case "staff":
		return s.Staff(ctx)
	case "comprehensive", "full":
		return s.Comprehensive(ctx)
	}
	return nil, errors.New(errors.CodeInvalidInput, "unknown report", nil).
		WithContext("report", name)
}
