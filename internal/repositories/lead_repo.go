package repositories

import (
	"context"

	"github.com/fixmarket/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const leadColumns = `id, job_id, contractor_id, status, pricing_model, lead_cost_cents,
	       charge_tx_id, responded_at, viewed_at, created_at, updated_at`

type LeadRepo struct {
	pool *pgxpool.Pool
}

func NewLeadRepo(pool *pgxpool.Pool) *LeadRepo {
	return &LeadRepo{pool: pool}
}

func scanLead(row interface{ Scan(...any) error }, m *models.LeadMatch) error {
	return row.Scan(&m.ID, &m.JobID, &m.ContractorID, &m.Status, &m.PricingModel,
		&m.LeadCostCents, &m.ChargeTxID, &m.RespondedAt, &m.ViewedAt, &m.CreatedAt, &m.UpdatedAt)
}

func (r *LeadRepo) Create(ctx context.Context, m *models.LeadMatch) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO lead_matches (job_id, contractor_id, status, pricing_model, lead_cost_cents)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (job_id, contractor_id) DO NOTHING
		RETURNING id, created_at, updated_at
	`, m.JobID, m.ContractorID, m.Status, m.PricingModel, m.LeadCostCents,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
}

func (r *LeadRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.LeadMatch, error) {
	var m models.LeadMatch
	err := scanLead(r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM lead_matches WHERE id = $1`, id), &m)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *LeadRepo) GetByJobAndContractor(ctx context.Context, jobID, contractorID uuid.UUID) (*models.LeadMatch, error) {
	var m models.LeadMatch
	err := scanLead(r.pool.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM lead_matches WHERE job_id = $1 AND contractor_id = $2`,
		jobID, contractorID), &m)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *LeadRepo) ListByContractor(ctx context.Context, contractorID uuid.UUID, status *string, limit, offset int) ([]models.LeadMatch, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := `SELECT ` + leadColumns + ` FROM lead_matches WHERE contractor_id = $1`
	args := []any{contractorID}
	if status != nil {
		query += ` AND status = $2 ORDER BY created_at DESC LIMIT $3 OFFSET $4`
		args = append(args, *status, limit, offset)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		args = append(args, limit, offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []models.LeadMatch
	for rows.Next() {
		var m models.LeadMatch
		if err := scanLead(rows, &m); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// MarkResponded moves a pending match to sent or lost. The status guard makes
// the operation idempotent-safe: a second call affects zero rows.
func (r *LeadRepo) MarkResponded(ctx context.Context, id uuid.UUID, to string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE lead_matches SET status = $2, responded_at = now(), updated_at = now()
		WHERE id = $1 AND status = 'pending'
	`, id, to)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// MarkViewed advances sent to viewed; forward-only, so any later status wins.
func (r *LeadRepo) MarkViewed(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE lead_matches SET status = 'viewed', viewed_at = now(), updated_at = now()
		WHERE id = $1 AND status = 'sent'
	`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// SetChargeTx links the lead charge to the match; the IS NULL guard caps the
// ledger at one charge per match.
func (r *LeadRepo) SetChargeTx(ctx context.Context, id, txID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE lead_matches SET charge_tx_id = $2, updated_at = now()
		WHERE id = $1 AND charge_tx_id IS NULL
	`, id, txID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ExpireStalePending flips pending matches older than the window to expired.
func (r *LeadRepo) ExpireStalePending(ctx context.Context, olderThanSeconds int) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE lead_matches SET status = 'expired', updated_at = now()
		WHERE status = 'pending' AND created_at < now() - ($1 || ' seconds')::interval
	`, olderThanSeconds)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
