package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fieldops_backend/platform/apperr"
)

const workOrderNotFoundMessage = "work order not found"

const workOrderColumns = `
	id, service_request_id, customer_name, customer_phone, category, priority,
	description, address, latitude, longitude, status, assigned_technician_id,
	scheduled_date, scheduled_time, estimated_duration, schedule_notes,
	cancellation_reason, cancelled_at, started_at, completed_at,
	version, created_at, updated_at`

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new work order repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// GetByID retrieves a work order by ID.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (WorkOrder, error) {
	query := `SELECT` + workOrderColumns + `
		FROM work_orders
		WHERE id = $1`

	row := r.pool.QueryRow(ctx, query, id)
	order, err := scanWorkOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return WorkOrder{}, apperr.NotFound(workOrderNotFoundMessage)
		}
		return WorkOrder{}, fmt.Errorf("get work order by id: %w", err)
	}
	return order, nil
}

// List retrieves work orders with optional filters and pagination.
func (r *Repo) List(ctx context.Context, params ListParams) ([]WorkOrder, int, error) {
	var statusParam interface{}
	if params.Status != nil {
		statusParam = string(*params.Status)
	}
	var technicianParam interface{}
	if params.TechnicianID != nil {
		technicianParam = *params.TechnicianID
	}
	var priorityParam interface{}
	if params.Priority != nil {
		priorityParam = string(*params.Priority)
	}
	var searchParam interface{}
	if params.Search != "" {
		searchParam = "%" + params.Search + "%"
	}

	limit := params.Limit
	if limit <= 0 {
		limit = 50
	}

	filter := `
		WHERE ($1::text IS NULL OR status = $1)
		  AND ($2::uuid IS NULL OR assigned_technician_id = $2)
		  AND ($3::text IS NULL OR priority = $3)
		  AND ($4::text IS NULL OR customer_name ILIKE $4 OR address ILIKE $4)`

	query := `SELECT` + workOrderColumns + `
		FROM work_orders` + filter + `
		ORDER BY created_at DESC, id DESC
		LIMIT $5 OFFSET $6`

	rows, err := r.pool.Query(ctx, query, statusParam, technicianParam, priorityParam, searchParam, limit, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list work orders: %w", err)
	}
	defer rows.Close()

	items, err := scanWorkOrders(rows)
	if err != nil {
		return nil, 0, err
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM work_orders` + filter
	if err := r.pool.QueryRow(ctx, countQuery, statusParam, technicianParam, priorityParam, searchParam).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count work orders: %w", err)
	}

	return items, total, nil
}

// Create inserts a new work order in Pending status at version 1.
func (r *Repo) Create(ctx context.Context, params CreateParams) (WorkOrder, error) {
	query := `
		INSERT INTO work_orders (
			id, service_request_id, customer_name, customer_phone, category,
			priority, description, address, latitude, longitude, status,
			scheduled_date, scheduled_time, version
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 1)
		RETURNING` + workOrderColumns

	row := r.pool.QueryRow(ctx, query,
		uuid.New(), params.ServiceRequestID, params.CustomerName, params.CustomerPhone,
		params.Category, string(params.Priority), params.Description, params.Address,
		params.Latitude, params.Longitude, string(StatusPending),
		params.ScheduledDate, params.ScheduledTime,
	)
	order, err := scanWorkOrder(row)
	if err != nil {
		return WorkOrder{}, fmt.Errorf("create work order: %w", err)
	}
	return order, nil
}

// Assign moves a work order to Assigned with the given technician.
func (r *Repo) Assign(ctx context.Context, id uuid.UUID, version int64, technicianID uuid.UUID) (WorkOrder, error) {
	query := `
		UPDATE work_orders SET
			status = $3, assigned_technician_id = $4,
			version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING` + workOrderColumns

	return r.versioned(ctx, "assign work order", query, id, version, string(StatusAssigned), technicianID)
}

// Reassign swaps the technician without touching the status.
func (r *Repo) Reassign(ctx context.Context, id uuid.UUID, version int64, technicianID uuid.UUID) (WorkOrder, error) {
	query := `
		UPDATE work_orders SET
			assigned_technician_id = $3,
			version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING` + workOrderColumns

	return r.versioned(ctx, "reassign work order", query, id, version, technicianID)
}

// UpdateSchedule applies non-nil schedule fields.
func (r *Repo) UpdateSchedule(ctx context.Context, id uuid.UUID, version int64, params ScheduleParams) (WorkOrder, error) {
	query := `
		UPDATE work_orders SET
			scheduled_date = COALESCE($3, scheduled_date),
			scheduled_time = COALESCE($4, scheduled_time),
			estimated_duration = COALESCE($5, estimated_duration),
			schedule_notes = COALESCE($6, schedule_notes),
			version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING` + workOrderColumns

	return r.versioned(ctx, "reschedule work order", query, id, version,
		params.ScheduledDate, params.ScheduledTime, params.EstimatedDuration, params.Notes)
}

// Start moves a work order to In Progress.
func (r *Repo) Start(ctx context.Context, id uuid.UUID, version int64, startedAt time.Time) (WorkOrder, error) {
	query := `
		UPDATE work_orders SET
			status = $3, started_at = $4,
			version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING` + workOrderColumns

	return r.versioned(ctx, "start work order", query, id, version, string(StatusInProgress), startedAt)
}

// Cancel moves a work order to the terminal Cancelled status.
func (r *Repo) Cancel(ctx context.Context, id uuid.UUID, version int64, reason string, cancelledAt time.Time) (WorkOrder, error) {
	query := `
		UPDATE work_orders SET
			status = $3, cancellation_reason = $4, cancelled_at = $5,
			version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING` + workOrderColumns

	return r.versioned(ctx, "cancel work order", query, id, version,
		string(StatusCancelled), reason, cancelledAt)
}

// CompleteAndOpenPayment marks the order Completed and inserts its payment
// record in one transaction.
func (r *Repo) CompleteAndOpenPayment(ctx context.Context, id uuid.UUID, version int64, completedAt time.Time) (WorkOrder, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return WorkOrder{}, fmt.Errorf("complete work order: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	updateQuery := `
		UPDATE work_orders SET
			status = $3, completed_at = $4,
			version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING` + workOrderColumns

	row := tx.QueryRow(ctx, updateQuery, id, version, string(StatusCompleted), completedAt)
	order, err := scanWorkOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return WorkOrder{}, r.versionMiss(ctx, id)
		}
		return WorkOrder{}, fmt.Errorf("complete work order: %w", err)
	}

	insertQuery := `
		INSERT INTO payment_records (id, work_order_id, status, version)
		VALUES ($1, $2, $3, 1)`
	if _, err := tx.Exec(ctx, insertQuery, uuid.New(), id, "Pending"); err != nil {
		return WorkOrder{}, fmt.Errorf("open payment record: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return WorkOrder{}, fmt.Errorf("complete work order: commit: %w", err)
	}
	return order, nil
}

// versioned runs a version-matched UPDATE. Zero rows means either the row is
// gone (not found) or someone else won the race (conflict).
func (r *Repo) versioned(ctx context.Context, op, query string, id uuid.UUID, version int64, args ...interface{}) (WorkOrder, error) {
	queryArgs := append([]interface{}{id, version}, args...)
	row := r.pool.QueryRow(ctx, query, queryArgs...)
	order, err := scanWorkOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return WorkOrder{}, r.versionMiss(ctx, id)
		}
		return WorkOrder{}, fmt.Errorf("%s: %w", op, err)
	}
	return order, nil
}

func (r *Repo) versionMiss(ctx context.Context, id uuid.UUID) error {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM work_orders WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check work order existence: %w", err)
	}
	if !exists {
		return apperr.NotFound(workOrderNotFoundMessage)
	}
	return apperr.Conflict("work order was modified concurrently, re-fetch and retry")
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanWorkOrder(row rowScanner) (WorkOrder, error) {
	var o WorkOrder
	var priority, status string
	var createdAt, updatedAt time.Time

	err := row.Scan(
		&o.ID, &o.ServiceRequestID, &o.CustomerName, &o.CustomerPhone, &o.Category,
		&priority, &o.Description, &o.Address, &o.Latitude, &o.Longitude,
		&status, &o.AssignedTechnicianID,
		&o.ScheduledDate, &o.ScheduledTime, &o.EstimatedDuration, &o.ScheduleNotes,
		&o.CancellationReason, &o.CancelledAt, &o.StartedAt, &o.CompletedAt,
		&o.Version, &createdAt, &updatedAt,
	)
	if err != nil {
		return WorkOrder{}, err
	}

	o.Priority = Priority(priority)
	o.Status = Status(status)
	o.CreatedAt = createdAt.Format(time.RFC3339)
	o.UpdatedAt = updatedAt.Format(time.RFC3339)
	return o, nil
}

func scanWorkOrders(rows pgx.Rows) ([]WorkOrder, error) {
	var items []WorkOrder
	for rows.Next() {
		order, err := scanWorkOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan work order: %w", err)
		}
		items = append(items, order)
	}
	return items, rows.Err()
}
