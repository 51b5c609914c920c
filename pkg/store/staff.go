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

// StaffStore persists staff records in SQLite.
type StaffStore struct {
	db *sql.DB
}

// NewStaffStore creates a staff store over an open database.
func NewStaffStore(db *sql.DB) *StaffStore {
	return &StaffStore{db: db}
}

const staffColumns = `id, name, role, email, phone, hire_date, status,
	performance_rating, created_at, updated_at`

// Create inserts a new staff member.
func (s *StaffStore) Create(ctx context.Context, m *core.Staff) error {
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			staffTable, staffColumns),
		m.ID, m.Name, m.Role, m.Email, m.Phone, unixOrZero(m.HireDate),
		string(m.Status), m.PerformanceRating,
		m.CreatedAt.UnixMilli(), m.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert staff: %w", err)
	}
	return nil
}

// Get returns a staff member by ID.
func (s *StaffStore) Get(ctx context.Context, id string) (*core.Staff, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", staffColumns, staffTable), id)
	return scanStaff(row)
}

// FindByName returns the first staff member whose name matches (case-insensitive substring).
func (s *StaffStore) FindByName(ctx context.Context, name string) (*core.Staff, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM %s WHERE name LIKE ? COLLATE NOCASE
			ORDER BY name LIMIT 1`, staffColumns, staffTable),
		"%"+name+"%")
	return scanStaff(row)
}

// List returns staff, optionally filtered by status.
func (s *StaffStore) List(ctx context.Context, status core.StaffStatus) ([]*core.Staff, error) {
	query := fmt.Sprintf("SELECT %s FROM %s", staffColumns, staffTable)
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY name"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectStaff(rows)
}

// Update rewrites the mutable fields of a staff member.
func (s *StaffStore) Update(ctx context.Context, m *core.Staff) error {
	m.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET name = ?, role = ?, email = ?, phone = ?,
			hire_date = ?, status = ?, performance_rating = ?, updated_at = ?
			WHERE id = ?`, staffTable),
		m.Name, m.Role, m.Email, m.Phone, unixOrZero(m.HireDate),
		string(m.Status), m.PerformanceRating, m.UpdatedAt.UnixMilli(), m.ID)
	if err != nil {
		return fmt.Errorf("update staff: %w", err)
	}
	return requireAffected(result, "staff", m.ID)
}

// Delete removes a staff member.
func (s *StaffStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE id = ?", staffTable), id)
	if err != nil {
		return err
	}
	return requireAffected(result, "staff", id)
}

// Count returns the number of staff members.
func (s *StaffStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s", staffTable)).Scan(&n)
	return n, err
}

func scanStaff(row rowScanner) (*core.Staff, error) {
	var m core.Staff
	var status string
	var hired, created, updated int64
	err := row.Scan(&m.ID, &m.Name, &m.Role, &m.Email, &m.Phone, &hired,
		&status, &m.PerformanceRating, &created, &updated)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New(errors.CodeNotFound, "staff not found", nil)
		}
		return nil, err
	}
	m.Status = core.StaffStatus(status)
	if hired > 0 {
		m.HireDate = time.UnixMilli(hired).UTC()
	}
	m.CreatedAt = time.UnixMilli(created).UTC()
	m.UpdatedAt = time.UnixMilli(updated).UTC()
	return &m, nil
}

func collectStaff(rows *sql.Rows) ([]*core.Staff, error) {
	var out []*core.Staff
	for rows.Next() {
		m, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
