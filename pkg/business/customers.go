// SPDX-License-Identifier: Apache-2.0

package business

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/helios-ops/helios/pkg/core"
	"github.com/helios-ops/helios/pkg/errors"
	"github.com/helios-ops/helios/pkg/store"
)

// CustomerService manages customers and their purchase history.
type CustomerService struct {
	customers *store.CustomerStore
	logger    *slog.Logger
}

// NewCustomerService creates a customer service.
func NewCustomerService(customers *store.CustomerStore) *CustomerService {
	return &CustomerService{
		customers: customers,
		logger:    slog.Default().With("service", "customers"),
	}
}

// CreateCustomer validates and stores a new customer.
func (s *CustomerService) CreateCustomer(ctx context.Context, c *core.Customer) (*core.Customer, error) {
	if strings.TrimSpace(c.Name) == "" {
		return nil, errors.New(errors.CodeInvalidInput, "customer name is required", nil)
	}

	now := time.Now().UTC()
	c.ID = uuid.NewString()
	c.TotalPurchases = 0
	c.PurchaseCount = 0
	c.CreatedAt = now
	c.UpdatedAt = now

	if err := s.customers.Create(ctx, c); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "customer created", "customer_id", c.ID, "name", c.Name)
	return c, nil
}

// GetCustomer returns a customer by ID.
func (s *CustomerService) GetCustomer(ctx context.Context, id string) (*core.Customer, error) {
	return s.customers.Get(ctx, id)
}

// FindCustomer returns the first customer matching the name.
func (s *CustomerService) FindCustomer(ctx context.Context, name string) (*core.Customer, error) {
	return s.customers.FindByName(ctx, name)
}

// ListCustomers returns all customers.
func (s *CustomerService) ListCustomers(ctx context.Context) ([]*core.Customer, error) {
	return s.customers.List(ctx)
}

// UpdateCustomer applies field updates to an existing customer.
func (s *CustomerService) UpdateCustomer(ctx context.Context, c *core.Customer) (*core.Customer, error) {
	if strings.TrimSpace(c.Name) == "" {
		return nil, errors.New(errors.CodeInvalidInput, "customer name is required", nil)
	}
	if err := s.customers.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteCustomer removes a customer.
func (s *CustomerService) DeleteCustomer(ctx context.Context, id string) error {
	return s.customers.Delete(ctx, id)
}

// RecordPurchase adds a purchase amount to the customer's running totals.
func (s *CustomerService) RecordPurchase(ctx context.Context, id string, amount float64) (*core.Customer, error) {
	if amount <= 0 {
		return nil, errors.New(errors.CodeInvalidInput, "purchase amount must be positive", nil)
	}
	c, err := s.customers.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.TotalPurchases += amount
	c.PurchaseCount++
	c.LastPurchaseDate = time.Now().UTC()
	if err := s.customers.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// TopCustomers returns the highest-spending customers.
func (s *CustomerService) TopCustomers(ctx context.Context, limit int) ([]*core.Customer, error) {
	return s.customers.Top(ctx, limit)
}
