// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/helios-ops/helios/pkg/core"
	"github.com/helios-ops/helios/pkg/errors"
)

// ProductStore persists products in SQLite.
type ProductStore struct {
	db *sql.DB
}

// NewProductStore creates a product store over an open database.
func NewProductStore(db *sql.DB) *ProductStore {
	return &ProductStore{db: db}
}

// Create inserts a new product.
func (s *ProductStore) Create(ctx context.Context, p *core.Product) error {
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s
			(id, name, description, price, quantity, reorder_level, supplier, category, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, productTable),
		p.ID, p.Name, p.Description, p.Price, p.Quantity, p.ReorderLevel,
		p.Supplier, p.Category, p.CreatedAt.UnixMilli(), p.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// Get returns a product by ID.
func (s *ProductStore) Get(ctx context.Context, id string) (*core.Product, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT id, name, description, price, quantity, reorder_level,
			supplier, category, created_at, updated_at FROM %s WHERE id = ?`, productTable), id)
	return scanProduct(row)
}

// FindByName returns the first product whose name matches (case-insensitive substring).
func (s *ProductStore) FindByName(ctx context.Context, name string) (*core.Product, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT id, name, description, price, quantity, reorder_level,
			supplier, category, created_at, updated_at FROM %s
			WHERE name LIKE ? COLLATE NOCASE ORDER BY name LIMIT 1`, productTable),
		"%"+name+"%")
	return scanProduct(row)
}

// List returns all products, optionally filtered by category.
func (s *ProductStore) List(ctx context.Context, category string) ([]*core.Product, error) {
	query := fmt.Sprintf(`SELECT id, name, description, price, quantity, reorder_level,
		supplier, category, created_at, updated_at FROM %s`, productTable)
	var args []any
	if category != "" {
		query += " WHERE category = ?"
		args = append(args, category)
	}
	query += " ORDER BY name"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProducts(rows)
}

// LowStock returns products at or below their reorder level.
func (s *ProductStore) LowStock(ctx context.Context) ([]*core.Product, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT id, name, description, price, quantity, reorder_level,
			supplier, category, created_at, updated_at FROM %s
			WHERE quantity <= reorder_level ORDER BY quantity`, productTable))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProducts(rows)
}

// Update rewrites the mutable fields of a product.
func (s *ProductStore) Update(ctx context.Context, p *core.Product) error {
	p.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET name = ?, description = ?, price = ?, quantity = ?,
			reorder_level = ?, supplier = ?, category = ?, updated_at = ? WHERE id = ?`, productTable),
		p.Name, p.Description, p.Price, p.Quantity, p.ReorderLevel,
		p.Supplier, p.Category, p.UpdatedAt.UnixMilli(), p.ID)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return requireAffected(result, "product", p.ID)
}

// Delete removes a product.
func (s *ProductStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE id = ?", productTable), id)
	if err != nil {
		return err
	}
	return requireAffected(result, "product", id)
}

// Count returns the number of products.
func (s *ProductStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s", productTable)).Scan(&n)
	return n, err
}

// InventoryValue returns the total value of stock on hand.
func (s *ProductStore) InventoryValue(ctx context.Context) (float64, error) {
	var v sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT SUM(price * quantity) FROM %s", productTable)).Scan(&v)
	return v.Float64, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*core.Product, error) {
	var p core.Product
	var created, updated int64
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Quantity,
		&p.ReorderLevel, &p.Supplier, &p.Category, &created, &updated)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New(errors.CodeNotFound, "product not found", nil)
		}
		return nil, err
	}
	p.CreatedAt = time.UnixMilli(created).UTC()
	p.UpdatedAt = time.UnixMilli(updated).UTC()
	return &p, nil
}

func collectProducts(rows *sql.Rows) ([]*core.Product, error) {
	var out []*core.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func requireAffected(result sql.Result, kind, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errors.New(errors.CodeNotFound, kind+" not found", nil).
			WithContext("id", id)
	}
	return nil
}
