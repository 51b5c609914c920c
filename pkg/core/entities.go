// Package core holds the business entities shared across Helios services,
// agents and the HTTP API.
package core

import "time"

// Product is a sellable inventory item.
type Product struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Price        float64   `json:"price"`
	Quantity     int       `json:"quantity"`
	ReorderLevel int       `json:"reorder_level"`
	Supplier     string    `json:"supplier,omitempty"`
	Category     string    `json:"category,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// LowStock reports whether the product is at or below its reorder level.
func (p *Product) LowStock() bool {
	return p.Quantity <= p.ReorderLevel
}

// Customer tracks a buyer and their purchase totals.
type Customer struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email,omitempty"`
	Phone            string    `json:"phone,omitempty"`
	Address          string    `json:"address,omitempty"`
	TotalPurchases   float64   `json:"total_purchases"`
	PurchaseCount    int       `json:"purchase_count"`
	LastPurchaseDate time.Time `json:"last_purchase_date,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// StaffStatus is the employment state of a staff member.
type StaffStatus string

const (
	StaffActive   StaffStatus = "active"
	StaffInactive StaffStatus = "inactive"
	StaffOnLeave  StaffStatus = "on_leave"
)

// Staff is an employee record.
type Staff struct {
	ID                string      `json:"id"`
	Name              string      `json:"name"`
	Role              string      `json:"role"`
	Email             string      `json:"email,omitempty"`
	Phone             string      `json:"phone,omitempty"`
	HireDate          time.Time   `json:"hire_date,omitempty"`
	Status            StaffStatus `json:"status"`
	PerformanceRating float64     `json:"performance_rating"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

// TransactionItem is a single line in a transaction.
type TransactionItem struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Total       float64 `json:"total"`
}

// Transaction records a sale with its line items.
type Transaction struct {
	ID            string            `json:"id"`
	CustomerID    string            `json:"customer_id,omitempty"`
	CustomerName  string            `json:"customer_name,omitempty"`
	Items         []TransactionItem `json:"items"`
	Subtotal      float64           `json:"subtotal"`
	Tax           float64           `json:"tax"`
	Total         float64           `json:"total"`
	PaymentMethod string            `json:"payment_method"`
	Notes         string            `json:"notes,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// BusinessState is a point-in-time snapshot of the whole operation.
type BusinessState struct {
	TotalCash           float64   `json:"total_cash"`
	TotalInventoryValue float64   `json:"total_inventory_value"`
	DailySales          float64   `json:"daily_sales"`
	DailyTransactions   int       `json:"daily_transactions"`
	TotalProducts       int       `json:"total_products"`
	LowStockCount       int       `json:"low_stock_count"`
	TotalCustomers      int       `json:"total_customers"`
	TotalStaff          int       `json:"total_staff"`
	LastUpdated         time.Time `json:"last_updated"`
	Period              string    `json:"period"`
}

// MetricsSnapshot is a persisted business metrics record.
type MetricsSnapshot struct {
	ID                  string    `json:"id"`
	TotalCash           float64   `json:"total_cash"`
	TotalInventoryValue float64   `json:"total_inventory_value"`
	DailySales          float64   `json:"daily_sales"`
	DailyTransactions   int       `json:"daily_transactions"`
	Period              string    `json:"period"`
	RecordedAt          time.Time `json:"recorded_at"`
}
