package repositories

import (
	"context"
	"fmt"

	"github.com/fixmarket/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const jobColumns = `id, customer_id, contractor_id, category, title, description, bidding_mode,
	       status, disputed, requires_escrow, estimated_price_cents, agreed_price_cents,
	       final_cost_cents, bid_deadline, assigned_at, started_at, completed_at, paid_at,
	       canceled_at, created_at, updated_at`

type JobRepo struct {
	pool *pgxpool.Pool
}

func NewJobRepo(pool *pgxpool.Pool) *JobRepo {
	return &JobRepo{pool: pool}
}

func scanJob(row interface{ Scan(...any) error }, j *models.Job) error {
	return row.Scan(&j.ID, &j.CustomerID, &j.ContractorID, &j.Category, &j.Title, &j.Description,
		&j.BiddingMode, &j.Status, &j.Disputed, &j.RequiresEscrow, &j.EstimatedPriceCents,
		&j.AgreedPriceCents, &j.FinalCostCents, &j.BidDeadline, &j.AssignedAt, &j.StartedAt,
		&j.CompletedAt, &j.PaidAt, &j.CanceledAt, &j.CreatedAt, &j.UpdatedAt)
}

func (r *JobRepo) Create(ctx context.Context, j *models.Job) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO jobs (customer_id, category, title, description, bidding_mode, status,
		                  requires_escrow, estimated_price_cents, bid_deadline)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`, j.CustomerID, j.Category, j.Title, j.Description, j.BiddingMode, j.Status,
		j.RequiresEscrow, j.EstimatedPriceCents, j.BidDeadline,
	).Scan(&j.ID, &j.CreatedAt, &j.UpdatedAt)
}

func (r *JobRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var j models.Job
	err := scanJob(r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id), &j)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *JobRepo) GetByIDWithParties(ctx context.Context, id uuid.UUID) (*models.JobWithParties, error) {
	var j models.JobWithParties
	err := r.pool.QueryRow(ctx, `
		SELECT j.id, j.customer_id, j.contractor_id, j.category, j.title, j.description, j.bidding_mode,
		       j.status, j.disputed, j.requires_escrow, j.estimated_price_cents, j.agreed_price_cents,
		       j.final_cost_cents, j.bid_deadline, j.assigned_at, j.started_at, j.completed_at, j.paid_at,
		       j.canceled_at, j.created_at, j.updated_at,
		       cu.name, co.name
		FROM jobs j
		JOIN users cu ON cu.id = j.customer_id
		LEFT JOIN users co ON co.id = j.contractor_id
		WHERE j.id = $1
	`, id).Scan(&j.ID, &j.CustomerID, &j.ContractorID, &j.Category, &j.Title, &j.Description,
		&j.BiddingMode, &j.Status, &j.Disputed, &j.RequiresEscrow, &j.EstimatedPriceCents,
		&j.AgreedPriceCents, &j.FinalCostCents, &j.BidDeadline, &j.AssignedAt, &j.StartedAt,
		&j.CompletedAt, &j.PaidAt, &j.CanceledAt, &j.CreatedAt, &j.UpdatedAt,
		&j.CustomerName, &j.ContractorName)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

type JobFilter struct {
	CustomerID   *uuid.UUID
	ContractorID *uuid.UUID
	Category     *string
	Status       *string
	Limit        int
	Offset       int
}

func (r *JobRepo) List(ctx context.Context, f JobFilter) ([]models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	args := []any{}
	argIdx := 1
	where := []string{}

	if f.CustomerID != nil {
		where = append(where, fmt.Sprintf("customer_id = $%d", argIdx))
		args = append(args, *f.CustomerID)
		argIdx++
	}
	if f.ContractorID != nil {
		where = append(where, fmt.Sprintf("contractor_id = $%d", argIdx))
		args = append(args, *f.ContractorID)
		argIdx++
	}
	if f.Category != nil {
		where = append(where, fmt.Sprintf("category = $%d", argIdx))
		args = append(args, *f.Category)
		argIdx++
	}
	if f.Status != nil {
		where = append(where, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *f.Status)
		argIdx++
	}

	if len(where) > 0 {
		query += " WHERE "
		for i, w := range where {
			if i > 0 {
				query += " AND "
			}
			query += w
		}
	}

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []models.Job
	for rows.Next() {
		var j models.Job
		if err := scanJob(rows, &j); err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

// UpdateStatus performs a guarded status write: the row changes only if its
// persisted status still equals from. Returns false when another writer got
// there first, so the caller can re-read and report the authoritative state.
func (r *JobRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE jobs SET status = $3, updated_at = now(),
			started_at  = CASE WHEN $3 = 'in_progress' THEN now() ELSE started_at END,
			paid_at     = CASE WHEN $3 = 'paid' THEN now() ELSE paid_at END,
			canceled_at = CASE WHEN $3 = 'canceled' THEN now() ELSE canceled_at END
		WHERE id = $1 AND status = $2
	`, id, from, to)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// MarkCompleted moves an in_progress job to completed, stamping completion
// time and final cost in the same guarded write.
func (r *JobRepo) MarkCompleted(ctx context.Context, id uuid.UUID, finalCostCents int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE jobs SET status = 'completed', completed_at = now(), final_cost_cents = $2, updated_at = now()
		WHERE id = $1 AND status = 'in_progress'
	`, id, finalCostCents)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *JobRepo) SetDisputed(ctx context.Context, id uuid.UUID, disputed bool) error {
	_, err := r.pool.Exec(ctx, `UPDATE jobs SET disputed = $1, updated_at = now() WHERE id = $2`, disputed, id)
	return err
}

// GetExpiredOpenBidJobs returns open-bid jobs whose bid deadline has passed
// with no accepted bid. The worker sweep cancels them.
func (r *JobRepo) GetExpiredOpenBidJobs(ctx context.Context) ([]models.Job, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+jobColumns+` FROM jobs
		WHERE status = 'open' AND bidding_mode = 'open_bid'
		  AND bid_deadline IS NOT NULL AND bid_deadline < now()
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []models.Job
	for rows.Next() {
		var j models.Job
		if err := scanJob(rows, &j); err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}
