// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/helios-ops/helios/pkg/core"
	"github.com/helios-ops/helios/pkg/errors"
)

// TransactionStore persists sale transactions in SQLite.
// Line items are stored as a JSON payload; queries only need the
// indexed totals and timestamps.
type TransactionStore struct {
	db *sql.DB
}

// NewTransactionStore creates a transaction store over an open database.
func NewTransactionStore(db *sql.DB) *TransactionStore {
	return &TransactionStore{db: db}
}

// Create inserts a new transaction.
func (s *TransactionStore) Create(ctx context.Context, tx *core.Transaction) error {
	items, err := json.Marshal(tx.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s
			(id, customer_id, customer_name, items_json, subtotal, tax, total, payment_method, notes, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, transactionTable),
		tx.ID, tx.CustomerID, tx.CustomerName, items, tx.Subtotal, tx.Tax,
		tx.Total, tx.PaymentMethod, tx.Notes, tx.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// Get returns a transaction by ID.
func (s *TransactionStore) Get(ctx context.Context, id string) (*core.Transaction, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT id, customer_id, customer_name, items_json, subtotal,
			tax, total, payment_method, notes, created_at FROM %s WHERE id = ?`,
			transactionTable), id)
	return scanTransaction(row)
}

// List returns the most recent transactions, newest first.
func (s *TransactionStore) List(ctx context.Context, limit int) ([]*core.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT id, customer_id, customer_name, items_json, subtotal,
			tax, total, payment_method, notes, created_at FROM %s
			ORDER BY created_at DESC LIMIT ?`, transactionTable), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// Between returns transactions created in [start, end), oldest first.
func (s *TransactionStore) Between(ctx context.Context, start, end time.Time) ([]*core.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT id, customer_id, customer_name, items_json, subtotal,
			tax, total, payment_method, notes, created_at FROM %s
			WHERE created_at >= ? AND created_at < ? ORDER BY created_at`, transactionTable),
		start.UnixMilli(), end.UnixMilli())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// ForCustomer returns all transactions for a customer, newest first.
func (s *TransactionStore) ForCustomer(ctx context.Context, customerID string) ([]*core.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT id, customer_id, customer_name, items_json, subtotal,
			tax, total, payment_method, notes, created_at FROM %s
			WHERE customer_id = ? ORDER BY created_at DESC`, transactionTable), customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// Delete removes a transaction. Stock and customer totals are not
// rolled back; callers decide whether to compensate.
func (s *TransactionStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE id = ?", transactionTable), id)
	if err != nil {
		return err
	}
	return requireAffected(result, "transaction", id)
}

func scanTransaction(row rowScanner) (*core.Transaction, error) {
	var tx core.Transaction
	var items []byte
	var created int64
	err := row.Scan(&tx.ID, &tx.CustomerID, &tx.CustomerName, &items,
		&tx.Subtotal, &tx.Tax, &tx.Total, &tx.PaymentMethod, &tx.Notes, &created)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New(errors.CodeNotFound, "transaction not found", nil)
		}
		return nil, err
	}
	if err := json.Unmarshal(items, &tx.Items); err != nil {
		return nil, fmt.Errorf("unmarshal items: %w", err)
	}
	tx.CreatedAt = time.UnixMilli(created).UTC()
	return &tx, nil
}

func collectTransactions(rows *sql.Rows) ([]*core.Transaction, error) {
	var out []*core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}
