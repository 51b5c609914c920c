// SPDX-License-Identifier: Apache-2.0

package business

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/helios-ops/helios/pkg/core"
	"github.com/helios-ops/helios/pkg/errors"
	"github.com/helios-ops/helios/pkg/store"
)

// DefaultTaxRate applies when no rate is configured.
const DefaultTaxRate = 0.08

// OrderLine is a requested sale line before pricing.
type OrderLine struct {
	ProductID   string `json:"product_id,omitempty"`
	ProductName string `json:"product_name,omitempty"`
	Quantity    int    `json:"quantity"`
}

// OrderInput describes a sale to record.
type OrderInput struct {
	CustomerID    string      `json:"customer_id,omitempty"`
	Items         []OrderLine `json:"items"`
	PaymentMethod string      `json:"payment_method,omitempty"`
	Notes         string      `json:"notes,omitempty"`
}

// SalesSummary aggregates transactions over a period.
type SalesSummary struct {
	Period           string             `json:"period"`
	Start            time.Time          `json:"start"`
	End              time.Time          `json:"end"`
	TotalSales       float64            `json:"total_sales"`
	TransactionCount int                `json:"transaction_count"`
	AverageSale      float64            `json:"average_sale"`
	PaymentBreakdown map[string]float64 `json:"payment_breakdown"`
}

// OrderService records sales, keeping inventory and customer totals in sync.
type OrderService struct {
	transactions *store.TransactionStore
	inventory    *InventoryService
	customers    *CustomerService
	taxRate      float64
	logger       *slog.Logger
}

// NewOrderService creates an order service. A taxRate of zero falls back
// to DefaultTaxRate; pass a negative rate for tax-free operation.
func NewOrderService(transactions *store.TransactionStore, inventory *InventoryService, customers *CustomerService, taxRate float64) *OrderService {
	if taxRate == 0 {
		taxRate = DefaultTaxRate
	}
	if taxRate < 0 {
		taxRate = 0
	}
	return &OrderService{
		transactions: transactions,
		inventory:    inventory,
		customers:    customers,
		taxRate:      taxRate,
		logger:       slog.Default().With("service", "orders"),
	}
}

// CreateTransaction prices and records a sale. Stock is decremented per
// line and the customer's purchase totals are updated when a customer is
// attached. Lines may reference products by ID or by name.
func (s *OrderService) CreateTransaction(ctx context.Context, input OrderInput) (*core.Transaction, error) {
	if len(input.Items) == 0 {
		return nil, errors.New(errors.CodeInvalidInput, "transaction needs at least one item", nil)
	}

	var customer *core.Customer
	if input.CustomerID != "" {
		var err error
		customer, err = s.customers.GetCustomer(ctx, input.CustomerID)
		if err != nil {
			return nil, err
		}
	}

	// Resolve and validate all lines before touching stock, so a bad
	// line does not leave a partially applied sale.
	type pricedLine struct {
		product *core.Product
		item    core.TransactionItem
	}
	lines := make([]pricedLine, 0, len(input.Items))
	var subtotal float64

	for _, line := range input.Items {
		if line.Quantity <= 0 {
			return nil, errors.New(errors.CodeInvalidInput, "item quantity must be positive", nil)
		}

		var product *core.Product
		var err error
		switch {
		case line.ProductID != "":
			product, err = s.inventory.GetProduct(ctx, line.ProductID)
		case line.ProductName != "":
			product, err = s.inventory.FindProduct(ctx, line.ProductName)
		default:
			return nil, errors.New(errors.CodeInvalidInput, "item needs a product id or name", nil)
		}
		if err != nil {
			return nil, err
		}

		if product.Quantity < line.Quantity {
			return nil, errors.New(errors.CodeInsufficientStock, "not enough stock", nil).
				WithContext("product_id", product.ID).
				WithContext("requested", line.Quantity).
				WithContext("available", product.Quantity)
		}

		total := round2(product.Price * float64(line.Quantity))
		subtotal += total
		lines = append(lines, pricedLine{
			product: product,
			item: core.TransactionItem{
				ProductID:   product.ID,
				ProductName: product.Name,
				Quantity:    line.Quantity,
				UnitPrice:   product.Price,
				Total:       total,
			},
		})
	}

	subtotal = round2(subtotal)
	tax := round2(subtotal * s.taxRate)

	tx := &core.Transaction{
		ID:            uuid.NewString(),
		Items:         make([]core.TransactionItem, 0, len(lines)),
		Subtotal:      subtotal,
		Tax:           tax,
		Total:         round2(subtotal + tax),
		PaymentMethod: input.PaymentMethod,
		Notes:         input.Notes,
		CreatedAt:     time.Now().UTC(),
	}
	if tx.PaymentMethod == "" {
		tx.PaymentMethod = "cash"
	}
	if customer != nil {
		tx.CustomerID = customer.ID
		tx.CustomerName = customer.Name
	}
	for _, l := range lines {
		tx.Items = append(tx.Items, l.item)
	}

	for _, l := range lines {
		if _, err := s.inventory.RemoveStock(ctx, l.product.ID, l.item.Quantity); err != nil {
			return nil, err
		}
	}

	if err := s.transactions.Create(ctx, tx); err != nil {
		return nil, err
	}

	if customer != nil {
		if _, err := s.customers.RecordPurchase(ctx, customer.ID, tx.Total); err != nil {
			s.logger.WarnContext(ctx, "transaction recorded but customer totals not updated",
				"transaction_id", tx.ID, "customer_id", customer.ID, "error", err)
		}
	}

	s.logger.InfoContext(ctx, "transaction recorded",
		"transaction_id", tx.ID, "total", tx.Total, "items", len(tx.Items))
	return tx, nil
}

// GetTransaction returns a transaction by ID.
func (s *OrderService) GetTransaction(ctx context.Context, id string) (*core.Transaction, error) {
	return s.transactions.Get(ctx, id)
}

// ListTransactions returns the most recent transactions.
func (s *OrderService) ListTransactions(ctx context.Context, limit int) ([]*core.Transaction, error) {
	return s.transactions.List(ctx, limit)
}

// TransactionsForCustomer returns a customer's transactions, newest first.
func (s *OrderService) TransactionsForCustomer(ctx context.Context, customerID string) ([]*core.Transaction, error) {
	if _, err := s.customers.GetCustomer(ctx, customerID); err != nil {
		return nil, err
	}
	return s.transactions.ForCustomer(ctx, customerID)
}

// DeleteTransaction removes a transaction record. Inventory and customer
// totals are left untouched.
func (s *OrderService) DeleteTransaction(ctx context.Context, id string) error {
	return s.transactions.Delete(ctx, id)
}

// DailySales summarizes the given day's transactions.
func (s *OrderService) DailySales(ctx context.Context, day time.Time) (*SalesSummary, error) {
	start := day.UTC().Truncate(24 * time.Hour)
	return s.salesBetween(ctx, "daily", start, start.Add(24*time.Hour))
}

// WeeklySales summarizes the seven days ending with the given day.
func (s *OrderService) WeeklySales(ctx context.Context, day time.Time) (*SalesSummary, error) {
	end := day.UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
	return s.salesBetween(ctx, "weekly", end.Add(-7*24*time.Hour), end)
}

func (s *OrderService) salesBetween(ctx context.Context, period string, start, end time.Time) (*SalesSummary, error) {
	txs, err := s.transactions.Between(ctx, start, end)
	if err != nil {
		return nil, err
	}

	summary := &SalesSummary{
		Period:           period,
		Start:            start,
		End:              end,
		TransactionCount: len(txs),
		PaymentBreakdown: make(map[string]float64),
	}
	for _, tx := range txs {
		summary.TotalSales += tx.Total
		summary.PaymentBreakdown[tx.PaymentMethod] += tx.Total
	}
	summary.TotalSales = round2(summary.TotalSales)
	if len(txs) > 0 {
		summary.AverageSale = round2(summary.TotalSales / float64(len(txs)))
	}
	for method, amount := range summary.PaymentBreakdown {
		summary.PaymentBreakdown[method] = round2(amount)
	}
	return summary, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
