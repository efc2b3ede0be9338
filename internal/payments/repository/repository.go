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

const paymentNotFoundMessage = "payment record not found"

const paymentColumns = `
	id, work_order_id, status, method, amount_cents, notes,
	proof_image_key, proof_capture_date, uploaded_by, upload_date,
	verified_by, verified_date, rejection_reason,
	commission_amount_cents, commission_booked, booked_date,
	commission_paid, paid_date, version, created_at, updated_at`

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new payment repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// GetByWorkOrderID retrieves the payment record for a work order.
func (r *Repo) GetByWorkOrderID(ctx context.Context, workOrderID uuid.UUID) (PaymentRecord, error) {
	query := `SELECT` + paymentColumns + `
		FROM payment_records
		WHERE work_order_id = $1`

	row := r.pool.QueryRow(ctx, query, workOrderID)
	record, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PaymentRecord{}, apperr.NotFound(paymentNotFoundMessage)
		}
		return PaymentRecord{}, fmt.Errorf("get payment by work order: %w", err)
	}
	return record, nil
}

// List retrieves payment records with an optional status filter.
func (r *Repo) List(ctx context.Context, params ListParams) ([]PaymentRecord, int, error) {
	var statusParam interface{}
	if params.Status != nil {
		statusParam = string(*params.Status)
	}

	limit := params.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT` + paymentColumns + `
		FROM payment_records
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY updated_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, statusParam, limit, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var items []PaymentRecord
	for rows.Next() {
		record, err := scanPayment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan payment: %w", err)
		}
		items = append(items, record)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM payment_records WHERE ($1::text IS NULL OR status = $1)`
	if err := r.pool.QueryRow(ctx, countQuery, statusParam).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}
	return items, total, nil
}

// Stats computes the aggregate view in a single query so the numbers are one
// consistent snapshot.
func (r *Repo) Stats(ctx context.Context) (Stats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'Pending'),
			COUNT(*) FILTER (WHERE status = 'Proof Uploaded'),
			COUNT(*) FILTER (WHERE status = 'Verified'),
			COUNT(*) FILTER (WHERE status = 'Rejected'),
			COALESCE(SUM(commission_amount_cents) FILTER (WHERE commission_booked), 0),
			COALESCE(SUM(commission_amount_cents) FILTER (WHERE commission_paid), 0)
		FROM payment_records`

	var stats Stats
	err := r.pool.QueryRow(ctx, query).Scan(
		&stats.PendingCount, &stats.ProofUploadedCount,
		&stats.VerifiedCount, &stats.RejectedCount,
		&stats.BookedCents, &stats.PaidCents,
	)
	if err != nil {
		return Stats{}, fmt.Errorf("payment stats: %w", err)
	}
	return stats, nil
}

// UploadProof records a proof submission and clears every field from any
// previous decision cycle.
func (r *Repo) UploadProof(ctx context.Context, params UploadProofParams) (PaymentRecord, error) {
	query := `
		UPDATE payment_records SET
			status = $3, method = $4, amount_cents = $5, notes = $6,
			proof_image_key = $7, proof_capture_date = $8,
			uploaded_by = $9, upload_date = $10,
			verified_by = NULL, verified_date = NULL, rejection_reason = NULL,
			commission_amount_cents = NULL, commission_booked = FALSE,
			booked_date = NULL,
			version = version + 1, updated_at = NOW()
		WHERE work_order_id = $1 AND version = $2
		RETURNING` + paymentColumns

	row := r.pool.QueryRow(ctx, query,
		params.WorkOrderID, params.Version, string(StatusProofUploaded),
		params.Method, params.AmountCents, params.Notes,
		params.ProofImageKey, params.ProofCaptureDate,
		params.UploadedByID, params.UploadDate,
	)
	return r.scanVersioned(ctx, "upload payment proof", params.WorkOrderID, row)
}

// Approve marks the record Verified and books the commission.
func (r *Repo) Approve(ctx context.Context, params ApproveParams) (PaymentRecord, error) {
	query := `
		UPDATE payment_records SET
			status = $3, verified_by = $4, verified_date = $5,
			commission_amount_cents = $6, commission_booked = TRUE,
			booked_date = $5, commission_paid = $7,
			paid_date = CASE WHEN $7 THEN $5 ELSE NULL END,
			version = version + 1, updated_at = NOW()
		WHERE work_order_id = $1 AND version = $2
		RETURNING` + paymentColumns

	row := r.pool.QueryRow(ctx, query,
		params.WorkOrderID, params.Version, string(StatusVerified),
		params.VerifiedByID, params.VerifiedDate,
		params.CommissionAmountCents, params.PaidImmediately,
	)
	return r.scanVersioned(ctx, "approve payment", params.WorkOrderID, row)
}

// Reject marks the record Rejected and clears the commission so nothing
// carries over into a re-upload cycle.
func (r *Repo) Reject(ctx context.Context, params RejectParams) (PaymentRecord, error) {
	query := `
		UPDATE payment_records SET
			status = $3, verified_by = $4, verified_date = $5,
			rejection_reason = $6,
			commission_amount_cents = NULL, commission_booked = FALSE,
			booked_date = NULL,
			version = version + 1, updated_at = NOW()
		WHERE work_order_id = $1 AND version = $2
		RETURNING` + paymentColumns

	row := r.pool.QueryRow(ctx, query,
		params.WorkOrderID, params.Version, string(StatusRejected),
		params.VerifiedByID, params.VerifiedDate, params.Reason,
	)
	return r.scanVersioned(ctx, "reject payment", params.WorkOrderID, row)
}

// MarkPaid flips the payout flag on a verified record.
func (r *Repo) MarkPaid(ctx context.Context, workOrderID uuid.UUID, version int64, paidAt time.Time) (PaymentRecord, error) {
	query := `
		UPDATE payment_records SET
			commission_paid = TRUE, paid_date = $3,
			version = version + 1, updated_at = NOW()
		WHERE work_order_id = $1 AND version = $2
		RETURNING` + paymentColumns

	row := r.pool.QueryRow(ctx, query, workOrderID, version, paidAt)
	return r.scanVersioned(ctx, "mark payout paid", workOrderID, row)
}

func (r *Repo) scanVersioned(ctx context.Context, op string, workOrderID uuid.UUID, row rowScanner) (PaymentRecord, error) {
	record, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PaymentRecord{}, r.versionMiss(ctx, workOrderID)
		}
		return PaymentRecord{}, fmt.Errorf("%s: %w", op, err)
	}
	return record, nil
}

func (r *Repo) versionMiss(ctx context.Context, workOrderID uuid.UUID) error {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM payment_records WHERE work_order_id = $1)`, workOrderID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check payment existence: %w", err)
	}
	if !exists {
		return apperr.NotFound(paymentNotFoundMessage)
	}
	return apperr.Conflict("payment record was modified concurrently, re-fetch and retry")
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPayment(row rowScanner) (PaymentRecord, error) {
	var p PaymentRecord
	var status string
	var createdAt, updatedAt time.Time

	err := row.Scan(
		&p.ID, &p.WorkOrderID, &status, &p.Method, &p.AmountCents, &p.Notes,
		&p.ProofImageKey, &p.ProofCaptureDate, &p.UploadedByID, &p.UploadDate,
		&p.VerifiedByID, &p.VerifiedDate, &p.RejectionReason,
		&p.CommissionAmountCents, &p.CommissionBooked, &p.BookedDate,
		&p.CommissionPaid, &p.PaidDate, &p.Version, &createdAt, &updatedAt,
	)
	if err != nil {
		return PaymentRecord{}, err
	}

	p.Status = Status(status)
	p.CreatedAt = createdAt.Format(time.RFC3339)
	p.UpdatedAt = updatedAt.Format(time.RFC3339)
	return p, nil
}
