// SPDX-License-Identifier: Apache-2.0

// Package business implements the Helios retail services: inventory,
// customers, staff, orders, reports and the overall business state.
// Agents and the HTTP API both drive these services.
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

// InventoryService manages products and stock levels.
type InventoryService struct {
	products *store.ProductStore
	logger   *slog.Logger
}

// NewInventoryService creates an inventory service.
func NewInventoryService(products *store.ProductStore) *InventoryService {
	return &InventoryService{
		products: products,
		logger:   slog.Default().With("service", "inventory"),
	}
}

// CreateProduct validates and stores a new product.
func (s *InventoryService) CreateProduct(ctx context.Context, p *core.Product) (*core.Product, error) {
	if strings.TrimSpace(p.Name) == "" {
		return nil, errors.New(errors.CodeInvalidInput, "product name is required", nil)
	}
	if p.Price < 0 {
		return nil, errors.New(errors.CodeInvalidInput, "product price cannot be negative", nil)
	}
	if p.Quantity < 0 {
		return nil, errors.New(errors.CodeInvalidInput, "product quantity cannot be negative", nil)
	}

	now := time.Now().UTC()
	p.ID = uuid.NewString()
	if p.ReorderLevel <= 0 {
		p.ReorderLevel = 10
	}
	p.CreatedAt = now
	p.UpdatedAt = now

	if err := s.products.Create(ctx, p); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "product created", "product_id", p.ID, "name", p.Name)
	return p, nil
}

// GetProduct returns a product by ID.
func (s *InventoryService) GetProduct(ctx context.Context, id string) (*core.Product, error) {
	return s.products.Get(ctx, id)
}

// FindProduct returns the first product matching the name.
func (s *InventoryService) FindProduct(ctx context.Context, name string) (*core.Product, error) {
	return s.products.FindByName(ctx, name)
}

// ListProducts returns products, optionally filtered by category.
func (s *InventoryService) ListProducts(ctx context.Context, category string) ([]*core.Product, error) {
	return s.products.List(ctx, category)
}

// UpdateProduct applies field updates to an existing product.
func (s *InventoryService) UpdateProduct(ctx context.Context, p *core.Product) (*core.Product, error) {
	if p.Price < 0 {
		return nil, errors.New(errors.CodeInvalidInput, "product price cannot be negative", nil)
	}
	if p.Quantity < 0 {
		return nil, errors.New(errors.CodeInvalidInput, "product quantity cannot be negative", nil)
	}
	if err := s.products.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// DeleteProduct removes a product.
func (s *InventoryService) DeleteProduct(ctx context.Context, id string) error {
	return s.products.Delete(ctx, id)
}

// AddStock increases a product's quantity.
func (s *InventoryService) AddStock(ctx context.Context, id string, amount int) (*core.Product, error) {
	if amount <= 0 {
		return nil, errors.New(errors.CodeInvalidInput, "stock amount must be positive", nil)
	}
	p, err := s.products.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Quantity += amount
	if err := s.products.Update(ctx, p); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "stock added",
		"product_id", p.ID, "amount", amount, "quantity", p.Quantity)
	return p, nil
}

// RemoveStock decreases a product's quantity, refusing to go negative.
func (s *InventoryService) RemoveStock(ctx context.Context, id string, amount int) (*core.Product, error) {
	if amount <= 0 {
		return nil, errors.New(errors.CodeInvalidInput, "stock amount must be positive", nil)
	}
	p, err := s.products.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Quantity < amount {
		return nil, errors.New(errors.CodeInsufficientStock, "not enough stock", nil).
			WithContext("product_id", p.ID).
			WithContext("requested", amount).
			WithContext("available", p.Quantity)
	}
	p.Quantity -= amount
	if err := s.products.Update(ctx, p); err != nil {
		return nil, err
	}
	if p.LowStock() {
		s.logger.WarnContext(ctx, "product at or below reorder level",
			"product_id", p.ID, "quantity", p.Quantity, "reorder_level", p.ReorderLevel)
	}
	return p, nil
}

// LowStockProducts returns products at or below their reorder level.
func (s *InventoryService) LowStockProducts(ctx context.Context) ([]*core.Product, error) {
	return s.products.LowStock(ctx)
}

// InventoryValue returns the total value of stock on hand.
func (s *InventoryService) InventoryValue(ctx context.Context) (float64, error) {
	return s.products.InventoryValue(ctx)
}
