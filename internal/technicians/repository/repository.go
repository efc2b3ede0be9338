package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fieldops_backend/internal/compensation"
	"fieldops_backend/platform/apperr"
)

const technicianNotFoundMessage = "technician not found"

const technicianColumns = `
	id, name, phone, specialty, employment_type, status, blocked_reason, blocked_date,
	commission_rate, salary_cents, bonus_rate,
	override_commission_rate, override_bonus_rate, override_salary_cents,
	latitude, longitude, created_at, updated_at`

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new technician repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// GetByID retrieves a technician by ID.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (Technician, error) {
	query := `SELECT` + technicianColumns + `
		FROM technicians
		WHERE id = $1`

	row := r.pool.QueryRow(ctx, query, id)
	tech, err := scanTechnician(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Technician{}, apperr.NotFound(technicianNotFoundMessage)
		}
		return Technician{}, fmt.Errorf("get technician by id: %w", err)
	}
	return tech, nil
}

// List retrieves technicians with optional filters and pagination.
func (r *Repo) List(ctx context.Context, params ListParams) ([]Technician, int, error) {
	var searchParam interface{}
	if params.Search != "" {
		searchParam = "%" + params.Search + "%"
	}
	var statusParam interface{}
	if params.Status != nil {
		statusParam = string(*params.Status)
	}
	var employmentParam interface{}
	if params.EmploymentType != nil {
		employmentParam = string(*params.EmploymentType)
	}

	limit := params.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT` + technicianColumns + `
		FROM technicians
		WHERE ($1::text IS NULL OR name ILIKE $1 OR specialty ILIKE $1)
		  AND ($2::text IS NULL OR status = $2)
		  AND ($3::text IS NULL OR employment_type = $3)
		ORDER BY name ASC, id ASC
		LIMIT $4 OFFSET $5`

	rows, err := r.pool.Query(ctx, query, searchParam, statusParam, employmentParam, limit, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list technicians: %w", err)
	}
	defer rows.Close()

	items, err := scanTechnicians(rows)
	if err != nil {
		return nil, 0, err
	}

	countQuery := `
		SELECT COUNT(*)
		FROM technicians
		WHERE ($1::text IS NULL OR name ILIKE $1 OR specialty ILIKE $1)
		  AND ($2::text IS NULL OR status = $2)
		  AND ($3::text IS NULL OR employment_type = $3)`

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, searchParam, statusParam, employmentParam).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count technicians: %w", err)
	}

	return items, total, nil
}

// OpenWorkOrderCounts returns the number of non-terminal work orders per
// technician from a single snapshot query.
func (r *Repo) OpenWorkOrderCounts(ctx context.Context) (map[uuid.UUID]int, error) {
	query := `
		SELECT assigned_technician_id, COUNT(*)
		FROM work_orders
		WHERE assigned_technician_id IS NOT NULL
		  AND status NOT IN ('Completed', 'Cancelled')
		GROUP BY assigned_technician_id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("open work order counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[uuid.UUID]int)
	for rows.Next() {
		var id uuid.UUID
		var count int
		if err := rows.Scan(&id, &count); err != nil {
			return nil, fmt.Errorf("scan open work order count: %w", err)
		}
		counts[id] = count
	}
	return counts, rows.Err()
}

// Create inserts a new technician in Active status.
func (r *Repo) Create(ctx context.Context, params CreateParams) (Technician, error) {
	query := `
		INSERT INTO technicians (
			id, name, phone, specialty, employment_type, status,
			commission_rate, salary_cents, bonus_rate, latitude, longitude
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING` + technicianColumns

	row := r.pool.QueryRow(ctx, query,
		uuid.New(), params.Name, params.Phone, params.Specialty,
		string(params.EmploymentType), string(StatusActive),
		params.CommissionRate, params.SalaryCents, params.BonusRate,
		params.Latitude, params.Longitude,
	)
	tech, err := scanTechnician(row)
	if err != nil {
		return Technician{}, fmt.Errorf("create technician: %w", err)
	}
	return tech, nil
}

// Update applies non-nil fields to an existing technician.
func (r *Repo) Update(ctx context.Context, params UpdateParams) (Technician, error) {
	query := `
		UPDATE technicians SET
			name = COALESCE($2, name),
			phone = COALESCE($3, phone),
			specialty = COALESCE($4, specialty),
			latitude = COALESCE($5, latitude),
			longitude = COALESCE($6, longitude),
			updated_at = NOW()
		WHERE id = $1
		RETURNING` + technicianColumns

	row := r.pool.QueryRow(ctx, query, params.ID,
		params.Name, params.Phone, params.Specialty, params.Latitude, params.Longitude)
	tech, err := scanTechnician(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Technician{}, apperr.NotFound(technicianNotFoundMessage)
		}
		return Technician{}, fmt.Errorf("update technician: %w", err)
	}
	return tech, nil
}

// SetBlocked marks a technician Blocked with reason and date.
func (r *Repo) SetBlocked(ctx context.Context, id uuid.UUID, reason string, blockedAt time.Time) (Technician, error) {
	query := `
		UPDATE technicians SET
			status = $2, blocked_reason = $3, blocked_date = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING` + technicianColumns

	row := r.pool.QueryRow(ctx, query, id, string(StatusBlocked), reason, blockedAt)
	tech, err := scanTechnician(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Technician{}, apperr.NotFound(technicianNotFoundMessage)
		}
		return Technician{}, fmt.Errorf("block technician: %w", err)
	}
	return tech, nil
}

// ClearBlocked returns a technician to Active and clears block metadata.
func (r *Repo) ClearBlocked(ctx context.Context, id uuid.UUID) (Technician, error) {
	query := `
		UPDATE technicians SET
			status = $2, blocked_reason = NULL, blocked_date = NULL, updated_at = NOW()
		WHERE id = $1
		RETURNING` + technicianColumns

	row := r.pool.QueryRow(ctx, query, id, string(StatusActive))
	tech, err := scanTechnician(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Technician{}, apperr.NotFound(technicianNotFoundMessage)
		}
		return Technician{}, fmt.Errorf("unblock technician: %w", err)
	}
	return tech, nil
}

// SetOverride replaces the compensation override columns. The schema CHECK
// constraints reject override columns that do not match the employment type.
func (r *Repo) SetOverride(ctx context.Context, params OverrideParams) (Technician, error) {
	query := `
		UPDATE technicians SET
			override_commission_rate = $2,
			override_bonus_rate = $3,
			override_salary_cents = $4,
			updated_at = NOW()
		WHERE id = $1
		RETURNING` + technicianColumns

	row := r.pool.QueryRow(ctx, query, params.ID,
		params.OverrideCommissionRate, params.OverrideBonusRate, params.OverrideSalaryCents)
	tech, err := scanTechnician(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Technician{}, apperr.NotFound(technicianNotFoundMessage)
		}
		return Technician{}, fmt.Errorf("set compensation override: %w", err)
	}
	return tech, nil
}

// ClearOverride removes any compensation override.
func (r *Repo) ClearOverride(ctx context.Context, id uuid.UUID) (Technician, error) {
	return r.SetOverride(ctx, OverrideParams{ID: id})
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTechnician(row rowScanner) (Technician, error) {
	var t Technician
	var employmentType, status string
	var createdAt, updatedAt time.Time

	err := row.Scan(
		&t.ID, &t.Name, &t.Phone, &t.Specialty, &employmentType, &status,
		&t.BlockedReason, &t.BlockedDate,
		&t.CommissionRate, &t.SalaryCents, &t.BonusRate,
		&t.OverrideCommissionRate, &t.OverrideBonusRate, &t.OverrideSalaryCents,
		&t.Latitude, &t.Longitude, &createdAt, &updatedAt,
	)
	if err != nil {
		return Technician{}, err
	}

	t.EmploymentType = compensation.EmploymentType(employmentType)
	t.Status = Status(status)
	t.CreatedAt = createdAt.Format(time.RFC3339)
	t.UpdatedAt = updatedAt.Format(time.RFC3339)
	return t, nil
}

func scanTechnicians(rows pgx.Rows) ([]Technician, error) {
	var items []Technician
	for rows.Next() {
		tech, err := scanTechnician(rows)
		if err != nil {
			return nil, fmt.Errorf("scan technician: %w", err)
		}
		items = append(items, tech)
	}
	return items, rows.Err()
}
