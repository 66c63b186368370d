package repositories

import (
	"context"

	"github.com/fixmarket/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const escrowColumns = `id, job_id, total_cents, released_cents, status, payment_ref,
	       funded_at, refunded_at, created_at, updated_at`

const milestoneColumns = `id, escrow_id, title, ord, amount_cents, status,
	       requires_gps, min_photos, requires_signature,
	       gps_verified, photos_uploaded, signature_captured,
	       completed_at, approved_at, created_at, updated_at`

type EscrowRepo struct {
	pool *pgxpool.Pool
}

func NewEscrowRepo(pool *pgxpool.Pool) *EscrowRepo {
	return &EscrowRepo{pool: pool}
}

func scanEscrow(row interface{ Scan(...any) error }, e *models.Escrow) error {
	return row.Scan(&e.ID, &e.JobID, &e.TotalCents, &e.ReleasedCents, &e.Status,
		&e.PaymentRef, &e.FundedAt, &e.RefundedAt, &e.CreatedAt, &e.UpdatedAt)
}

func scanMilestone(row interface{ Scan(...any) error }, m *models.Milestone) error {
	return row.Scan(&m.ID, &m.EscrowID, &m.Title, &m.Ord, &m.AmountCents, &m.Status,
		&m.RequiresGPS, &m.MinPhotos, &m.RequiresSignature,
		&m.GPSVerified, &m.PhotosUploaded, &m.SignatureCaptured,
		&m.CompletedAt, &m.ApprovedAt, &m.CreatedAt, &m.UpdatedAt)
}

// CreateWithMilestones inserts the escrow and its milestone plan in one
// transaction.
func (r *EscrowRepo) CreateWithMilestones(ctx context.Context, e *models.Escrow, milestones []models.Milestone) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO escrows (job_id, total_cents, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`, e.JobID, e.TotalCents, e.Status).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return err
	}

	for i := range milestones {
		m := &milestones[i]
		m.EscrowID = e.ID
		err = tx.QueryRow(ctx, `
			INSERT INTO milestones (escrow_id, title, ord, amount_cents, status,
			                        requires_gps, min_photos, requires_signature)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id, created_at, updated_at
		`, m.EscrowID, m.Title, m.Ord, m.AmountCents, m.Status,
			m.RequiresGPS, m.MinPhotos, m.RequiresSignature,
		).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *EscrowRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Escrow, error) {
	var e models.Escrow
	err := scanEscrow(r.pool.QueryRow(ctx, `SELECT `+escrowColumns+` FROM escrows WHERE id = $1`, id), &e)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EscrowRepo) GetByJobID(ctx context.Context, jobID uuid.UUID) (*models.Escrow, error) {
	var e models.Escrow
	err := scanEscrow(r.pool.QueryRow(ctx, `SELECT `+escrowColumns+` FROM escrows WHERE job_id = $1`, jobID), &e)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ClaimFunding takes a pending escrow into the transient funding state while
// the payment rail call is in flight. Only one caller can hold the claim, so
// a racing fund never reaches the rail.
func (r *EscrowRepo) ClaimFunding(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE escrows SET status = 'funding', updated_at = now()
		WHERE id = $1 AND status = 'pending'
	`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// AbortFunding returns a claimed escrow to pending after a failed rail call.
func (r *EscrowRepo) AbortFunding(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE escrows SET status = 'pending', updated_at = now()
		WHERE id = $1 AND status = 'funding'
	`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// MarkFunded commits a claimed funding, recording the payment-rail reference.
func (r *EscrowRepo) MarkFunded(ctx context.Context, id uuid.UUID, paymentRef string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE escrows SET status = 'funded', funded_at = now(), payment_ref = $2, updated_at = now()
		WHERE id = $1 AND status = 'funding'
	`, id, paymentRef)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *EscrowRepo) MarkRefunded(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE escrows SET status = 'refunded', refunded_at = now(), updated_at = now()
		WHERE id = $1 AND status IN ('pending', 'funded')
	`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *EscrowRepo) GetMilestone(ctx context.Context, id uuid.UUID) (*models.Milestone, error) {
	var m models.Milestone
	err := scanMilestone(r.pool.QueryRow(ctx, `SELECT `+milestoneColumns+` FROM milestones WHERE id = $1`, id), &m)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *EscrowRepo) ListMilestones(ctx context.Context, escrowID uuid.UUID) ([]models.Milestone, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+milestoneColumns+` FROM milestones WHERE escrow_id = $1 ORDER BY ord ASC
	`, escrowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var milestones []models.Milestone
	for rows.Next() {
		var m models.Milestone
		if err := scanMilestone(rows, &m); err != nil {
			return nil, err
		}
		milestones = append(milestones, m)
	}
	return milestones, nil
}

func (r *EscrowRepo) UpdateMilestoneStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE milestones SET status = $3, updated_at = now(),
			completed_at = CASE WHEN $3 = 'pending_approval' THEN now() ELSE completed_at END
		WHERE id = $1 AND status = $2
	`, id, from, to)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// UpdateMilestoneEvidence records verification state reported by the evidence
// storage boundary. Counts and flags only; the core never sees file content.
func (r *EscrowRepo) UpdateMilestoneEvidence(ctx context.Context, id uuid.UUID, gpsVerified bool, photosUploaded int, signatureCaptured bool) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE milestones SET gps_verified = $2, photos_uploaded = $3, signature_captured = $4, updated_at = now()
		WHERE id = $1
	`, id, gpsVerified, photosUploaded, signatureCaptured)
	return err
}

// ApproveMilestone completes the milestone and recomputes the escrow's
// released total from completed milestones inside one transaction. The
// cumulative figure is always derived server-side, never taken from the
// caller. The linked job's dispute flag is checked inside the same guarded
// write, so a dispute opened after the caller's read still blocks the release.
func (r *EscrowRepo) ApproveMilestone(ctx context.Context, milestoneID uuid.UUID) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	var escrowID uuid.UUID
	err = tx.QueryRow(ctx, `
		UPDATE milestones SET status = 'completed', approved_at = now(), updated_at = now()
		WHERE id = $1 AND status = 'pending_approval'
		  AND NOT EXISTS (
		      SELECT 1 FROM escrows e JOIN jobs j ON j.id = e.job_id
		      WHERE e.id = milestones.escrow_id AND j.disputed
		  )
		RETURNING escrow_id
	`, milestoneID).Scan(&escrowID)
	if err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE escrows e SET
			released_cents = sub.released,
			status = CASE WHEN sub.released >= e.total_cents THEN 'released' ELSE 'partially_released' END,
			updated_at = now()
		FROM (
			SELECT escrow_id, COALESCE(SUM(amount_cents), 0) AS released
			FROM milestones WHERE escrow_id = $1 AND status = 'completed'
			GROUP BY escrow_id
		) sub
		WHERE e.id = $1 AND sub.escrow_id = e.id
	`, escrowID)
	if err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// ReleaseFull releases the entire remaining amount in one guarded write.
// Zero rows means the escrow was not in a releasable state, nothing remained,
// or the linked job is under dispute.
func (r *EscrowRepo) ReleaseFull(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE escrows SET released_cents = total_cents, status = 'released', updated_at = now()
		WHERE id = $1 AND status IN ('funded', 'partially_released') AND released_cents < total_cents
		  AND NOT EXISTS (SELECT 1 FROM jobs j WHERE j.id = escrows.job_id AND j.disputed)
	`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
