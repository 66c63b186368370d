package repositories

import (
	"context"
	"fmt"

	"github.com/fixmarket/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const bidColumns = `id, job_id, contractor_id, amount_cents, delivery_days, proposal, status,
	       valid_until, created_at, updated_at`

type BidRepo struct {
	pool *pgxpool.Pool
}

func NewBidRepo(pool *pgxpool.Pool) *BidRepo {
	return &BidRepo{pool: pool}
}

func scanBid(row interface{ Scan(...any) error }, b *models.Bid) error {
	return row.Scan(&b.ID, &b.JobID, &b.ContractorID, &b.AmountCents, &b.DeliveryDays,
		&b.Proposal, &b.Status, &b.ValidUntil, &b.CreatedAt, &b.UpdatedAt)
}

func (r *BidRepo) Create(ctx context.Context, b *models.Bid) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO bids (job_id, contractor_id, amount_cents, delivery_days, proposal, status, valid_until)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, b.JobID, b.ContractorID, b.AmountCents, b.DeliveryDays, b.Proposal, b.Status, b.ValidUntil,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
}

func (r *BidRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	var b models.Bid
	err := scanBid(r.pool.QueryRow(ctx, `SELECT `+bidColumns+` FROM bids WHERE id = $1`, id), &b)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BidRepo) ListByJob(ctx context.Context, jobID uuid.UUID) ([]models.Bid, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+bidColumns+` FROM bids WHERE job_id = $1 ORDER BY created_at ASC
	`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bids []models.Bid
	for rows.Next() {
		var b models.Bid
		if err := scanBid(rows, &b); err != nil {
			return nil, err
		}
		bids = append(bids, b)
	}
	return bids, nil
}

func (r *BidRepo) GetByJobAndContractor(ctx context.Context, jobID, contractorID uuid.UUID) (*models.Bid, error) {
	var b models.Bid
	err := scanBid(r.pool.QueryRow(ctx, `
		SELECT `+bidColumns+` FROM bids WHERE job_id = $1 AND contractor_id = $2
	`, jobID, contractorID), &b)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// UpdateStatus is a guarded write; false means the bid was no longer in the
// expected status.
func (r *BidRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE bids SET status = $3, updated_at = now() WHERE id = $1 AND status = $2
	`, id, from, to)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Accept performs bid acceptance as one transaction: assign the job off its
// open status, mark the chosen bid accepted and decline every sibling. The
// job-row guard makes concurrent acceptances on the same job mutually
// exclusive; exactly one transaction observes status = 'open'.
func (r *BidRepo) Accept(ctx context.Context, jobID, bidID uuid.UUID) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE jobs SET status = 'assigned', contractor_id = b.contractor_id,
			agreed_price_cents = b.amount_cents, assigned_at = now(), updated_at = now()
		FROM bids b
		WHERE jobs.id = $1 AND jobs.status = 'open'
		  AND b.id = $2 AND b.job_id = $1 AND b.status = 'active'
	`, jobID, bidID)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if _, err := tx.Exec(ctx, `
		UPDATE bids SET status = 'accepted', updated_at = now() WHERE id = $1
	`, bidID); err != nil {
		return false, err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE bids SET status = 'declined', updated_at = now()
		WHERE job_id = $1 AND id <> $2 AND status = 'active'
	`, jobID, bidID); err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// ExpireStale flips active bids past their validity window to expired.
// Housekeeping only; acceptance checks valid_until itself.
func (r *BidRepo) ExpireStale(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE bids SET status = 'expired', updated_at = now()
		WHERE status = 'active' AND valid_until IS NOT NULL AND valid_until < now()
	`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// CountByStatus reports how many bids a job holds per status, used by list
// views.
func (r *BidRepo) CountByStatus(ctx context.Context, jobID uuid.UUID) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT status, COUNT(*) FROM bids WHERE job_id = $1 GROUP BY status
	`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count bids: %w", err)
	}
	return counts, nil
}
