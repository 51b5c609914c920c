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

// StaffService manages employee records.
type StaffService struct {
	staff  *store.StaffStore
	logger *slog.Logger
}

// NewStaffService creates a staff service.
func NewStaffService(staff *store.StaffStore) *StaffService {
	return &StaffService{
		staff:  staff,
		logger: slog.Default().With("service", "staff"),
	}
}

// CreateStaff validates and stores a new staff member.
func (s *StaffService) CreateStaff(ctx context.Context, m *core.Staff) (*core.Staff, error) {
	if strings.TrimSpace(m.Name) == "" {
		return nil, errors.New(errors.CodeInvalidInput, "staff name is required", nil)
	}
	if strings.TrimSpace(m.Role) == "" {
		return nil, errors.New(errors.CodeInvalidInput, "staff role is required", nil)
	}
	if m.Status == "" {
		m.Status = core.StaffActive
	}
	if !validStaffStatus(m.Status) {
		return nil, errors.New(errors.CodeInvalidInput, "invalid staff status", nil).
			WithContext("status", string(m.Status))
	}

	now := time.Now().UTC()
	m.ID = uuid.NewString()
	if m.HireDate.IsZero() {
		m.HireDate = now
	}
	m.CreatedAt = now
	m.UpdatedAt = now

	if err := s.staff.Create(ctx, m); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "staff created", "staff_id", m.ID, "role", m.Role)
	return m, nil
}

// GetStaff returns a staff member by ID.
func (s *StaffService) GetStaff(ctx context.Context, id string) (*core.Staff, error) {
	return s.staff.Get(ctx, id)
}

// FindStaff returns the first staff member matching the name.
func (s *StaffService) FindStaff(ctx context.Context, name string) (*core.Staff, error) {
	return s.staff.FindByName(ctx, name)
}

// ListStaff returns staff, optionally filtered by status.
func (s *StaffService) ListStaff(ctx context.Context, status core.StaffStatus) ([]*core.Staff, error) {
	if status != "" && !validStaffStatus(status) {
		return nil, errors.New(errors.CodeInvalidInput, "invalid staff status", nil).
			WithContext("status", string(status))
	}
	return s.staff.List(ctx, status)
}

// UpdateStaff applies field updates to an existing staff member.
func (s *StaffService) UpdateStaff(ctx context.Context, m *core.Staff) (*core.Staff, error) {
	if !validStaffStatus(m.Status) {
		return nil, errors.New(errors.CodeInvalidInput, "invalid staff status", nil).
			WithContext("status", string(m.Status))
	}
	if err := s.staff.Update(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// DeleteStaff removes a staff member.
func (s *StaffService) DeleteStaff(ctx context.Context, id string) error {
	return s.staff.Delete(ctx, id)
}

// UpdatePerformance sets a staff member's performance rating on a 0-5 scale.
func (s *StaffService) UpdatePerformance(ctx context.Context, id string, rating float64) (*core.Staff, error) {
	if rating < 0 || rating > 5 {
		return nil, errors.New(errors.CodeInvalidInput, "performance rating must be between 0 and 5", nil).
			WithContext("rating", rating)
	}
	m, err := s.staff.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	m.PerformanceRating = rating
	if err := s.staff.Update(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func validStaffStatus(status core.StaffStatus) bool {
	switch status {
	case core.StaffActive, core.StaffInactive, core.StaffOnLeave:
		return true
	}
	return false
}
