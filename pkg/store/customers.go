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

// CustomerStore persists customers in SQLite.
type CustomerStore struct {
	db *sql.DB
}

// NewCustomerStore creates a customer store over an open database.
func NewCustomerStore(db *sql.DB) *CustomerStore {
	return &CustomerStore{db: db}
}

const customerColumns = `id, name, email, phone, address, total_purchases,
	purchase_count, last_purchase_at, created_at, updated_at`

// Create inserts a new customer.
func (s *CustomerStore) Create(ctx context.Context, c *core.Customer) error {
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			customerTable, customerColumns),
		c.ID, c.Name, c.Email, c.Phone, c.Address, c.TotalPurchases,
		c.PurchaseCount, unixOrZero(c.LastPurchaseDate),
		c.CreatedAt.UnixMilli(), c.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}

// Get returns a customer by ID.
func (s *CustomerStore) Get(ctx context.Context, id string) (*core.Customer, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", customerColumns, customerTable), id)
	return scanCustomer(row)
}

// FindByName returns the first customer whose name matches (case-insensitive substring).
func (s *CustomerStore) FindByName(ctx context.Context, name string) (*core.Customer, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM %s WHERE name LIKE ? COLLATE NOCASE
			ORDER BY name LIMIT 1`, customerColumns, customerTable),
		"%"+name+"%")
	return scanCustomer(row)
}

// List returns all customers ordered by name.
func (s *CustomerStore) List(ctx context.Context) ([]*core.Customer, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM %s ORDER BY name", customerColumns, customerTable))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCustomers(rows)
}

// Top returns the top customers by total purchases.
func (s *CustomerStore) Top(ctx context.Context, limit int) ([]*core.Customer, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM %s ORDER BY total_purchases DESC LIMIT ?`,
			customerColumns, customerTable), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCustomers(rows)
}

// Update rewrites the mutable fields of a customer.
func (s *CustomerStore) Update(ctx context.Context, c *core.Customer) error {
	c.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET name = ?, email = ?, phone = ?, address = ?,
			total_purchases = ?, purchase_count = ?, last_purchase_at = ?, updated_at = ?
			WHERE id = ?`, customerTable),
		c.Name, c.Email, c.Phone, c.Address, c.TotalPurchases, c.PurchaseCount,
		unixOrZero(c.LastPurchaseDate), c.UpdatedAt.UnixMilli(), c.ID)
	if err != nil {
		return fmt.Errorf("update customer: %w", err)
	}
	return requireAffected(result, "customer", c.ID)
}

// Delete removes a customer.
func (s *CustomerStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE id = ?", customerTable), id)
	if err != nil {
		return err
	}
	return requireAffected(result, "customer", id)
}

// Count returns the number of customers.
func (s *CustomerStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s", customerTable)).Scan(&n)
	return n, err
}

func scanCustomer(row rowScanner) (*core.Customer, error) {
	var c core.Customer
	var lastPurchase, created, updated int64
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address,
		&c.TotalPurchases, &c.PurchaseCount, &lastPurchase, &created, &updated)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New(errors.CodeNotFound, "customer not found", nil)
		}
		return nil, err
	}
	if lastPurchase > 0 {
		c.LastPurchaseDate = time.UnixMilli(lastPurchase).UTC()
	}
	c.CreatedAt = time.UnixMilli(created).UTC()
	c.UpdatedAt = time.UnixMilli(updated).UTC()
	return &c, nil
}

func collectCustomers(rows *sql.Rows) ([]*core.Customer, error) {
	var out []*core.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
