package repositories

import (
	"context"
	"time"

	"github.com/fixmarket/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const quoteColumns = `id, job_id, contractor_id, customer_id, base_price_cents, total_price_cents,
	       original_total_cents, status, counter_offer_count, valid_until, scope_notes,
	       viewed_at, created_at, updated_at`

type QuoteRepo struct {
	pool *pgxpool.Pool
}

func NewQuoteRepo(pool *pgxpool.Pool) *QuoteRepo {
	return &QuoteRepo{pool: pool}
}

func scanQuote(row interface{ Scan(...any) error }, q *models.Quote) error {
	return row.Scan(&q.ID, &q.JobID, &q.ContractorID, &q.CustomerID, &q.BasePriceCents,
		&q.TotalPriceCents, &q.OriginalTotalCents, &q.Status, &q.CounterOfferCount,
		&q.ValidUntil, &q.ScopeNotes, &q.ViewedAt, &q.CreatedAt, &q.UpdatedAt)
}

func (r *QuoteRepo) Create(ctx context.Context, q *models.Quote) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO quotes (job_id, contractor_id, customer_id, base_price_cents, total_price_cents,
		                    original_total_cents, status, valid_until, scope_notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`, q.JobID, q.ContractorID, q.CustomerID, q.BasePriceCents, q.TotalPriceCents,
		q.OriginalTotalCents, q.Status, q.ValidUntil, q.ScopeNotes,
	).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
}

func (r *QuoteRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	var q models.Quote
	err := scanQuote(r.pool.QueryRow(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE id = $1`, id), &q)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *QuoteRepo) ListByJob(ctx context.Context, jobID uuid.UUID) ([]models.Quote, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+quoteColumns+` FROM quotes WHERE job_id = $1 ORDER BY created_at DESC
	`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quotes []models.Quote
	for rows.Next() {
		var q models.Quote
		if err := scanQuote(rows, &q); err != nil {
			return nil, err
		}
		quotes = append(quotes, q)
	}
	return quotes, nil
}

// MarkViewed records first view; only a pending quote moves to viewed.
func (r *QuoteRepo) MarkViewed(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE quotes SET status = 'viewed', viewed_at = now(), updated_at = now()
		WHERE id = $1 AND status = 'pending'
	`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *QuoteRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE quotes SET status = $3, updated_at = now() WHERE id = $1 AND status = $2
	`, id, from, to)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// AddCounterOffer appends a counter to the volley in one transaction: insert
// the counter row, move the quote to counter_offered with the counter's price
// as the running total, bump the round counter and push valid_until out to the
// new window. The status guard keeps concurrent counters from interleaving.
func (r *QuoteRepo) AddCounterOffer(ctx context.Context, c *models.CounterOffer, fromStatuses []string) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE quotes SET status = 'counter_offered', total_price_cents = $2,
			counter_offer_count = counter_offer_count + 1, valid_until = $3, updated_at = now()
		WHERE id = $1 AND status = ANY($4)
	`, c.QuoteID, c.PriceCents, c.ValidUntil, fromStatuses)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO counter_offers (quote_id, initiated_by, price_cents, proposed_date, valid_until, message)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, c.QuoteID, c.InitiatedBy, c.PriceCents, c.ProposedDate, c.ValidUntil, c.Message,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (r *QuoteRepo) ListCounterOffers(ctx context.Context, quoteID uuid.UUID) ([]models.CounterOffer, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, quote_id, initiated_by, price_cents, proposed_date, valid_until, message, created_at
		FROM counter_offers WHERE quote_id = $1 ORDER BY created_at ASC
	`, quoteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var offers []models.CounterOffer
	for rows.Next() {
		var c models.CounterOffer
		if err := rows.Scan(&c.ID, &c.QuoteID, &c.InitiatedBy, &c.PriceCents, &c.ProposedDate,
			&c.ValidUntil, &c.Message, &c.CreatedAt); err != nil {
			return nil, err
		}
		offers = append(offers, c)
	}
	return offers, nil
}

// Accept closes the volley and awards the job in one transaction. The job-row
// guard mirrors bid acceptance: only one quote per job can ever win.
func (r *QuoteRepo) Accept(ctx context.Context, quoteID uuid.UUID, agreedPriceCents int64, fromStatuses []string) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE jobs SET status = 'assigned', contractor_id = q.contractor_id,
			agreed_price_cents = $2, assigned_at = now(), updated_at = now()
		FROM quotes q
		WHERE q.id = $1 AND jobs.id = q.job_id AND jobs.status = 'open'
	`, quoteID, agreedPriceCents)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	tag, err = tx.Exec(ctx, `
		UPDATE quotes SET status = 'accepted', total_price_cents = $2, updated_at = now()
		WHERE id = $1 AND status = ANY($3)
	`, quoteID, agreedPriceCents, fromStatuses)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// ExpireStale terminates quote chains whose validity window has lapsed.
func (r *QuoteRepo) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE quotes SET status = 'expired', updated_at = now()
		WHERE status IN ('pending', 'viewed', 'counter_offered') AND valid_until < $1
	`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
