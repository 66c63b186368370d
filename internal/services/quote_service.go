package services

import (
	"context"
	"fmt"
	"time"

	"github.com/fixmarket/backend/internal/config"
	"github.com/fixmarket/backend/internal/events"
	"github.com/fixmarket/backend/internal/models"
	"github.com/fixmarket/backend/internal/repositories"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// QuoteStore is the quote persistence contract. AddCounterOffer and Accept
// carry fromStatuses guards so a stale negotiation state never advances.
type QuoteStore interface {
	Create(ctx context.Context, q *models.Quote) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Quote, error)
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]models.Quote, error)
	MarkViewed(ctx context.Context, id uuid.UUID) (bool, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error)
	AddCounterOffer(ctx context.Context, c *models.CounterOffer, fromStatuses []string) (bool, error)
	ListCounterOffers(ctx context.Context, quoteID uuid.UUID) ([]models.CounterOffer, error)
	Accept(ctx context.Context, quoteID uuid.UUID, agreedPriceCents int64, fromStatuses []string) (bool, error)
}

// leadChecker verifies the contractor actually holds a lead for the job
// before a quote can be issued.
type leadChecker interface {
	GetByJobAndContractor(ctx context.Context, jobID, contractorID uuid.UUID) (*models.LeadMatch, error)
}

type QuoteService struct {
	quotes    QuoteStore
	jobs      JobStore
	leads     leadChecker
	gate      FeatureGate
	audit     AuditLogger
	publisher events.Publisher
	cfg       *config.Config
	log       *zap.Logger
}

func NewQuoteService(quotes QuoteStore, jobs JobStore, leads leadChecker, gate FeatureGate, audit AuditLogger, publisher events.Publisher, cfg *config.Config, log *zap.Logger) *QuoteService {
	return &QuoteService{quotes: quotes, jobs: jobs, leads: leads, gate: gate, audit: audit, publisher: publisher, cfg: cfg, log: log}
}

// IssueQuote creates a contractor's priced proposal on a direct job. The
// contractor must hold a responded lead for the job; cold quoting is refused.
func (s *QuoteService) IssueQuote(ctx context.Context, contractorID uuid.UUID, q *models.Quote) (*models.Quote, error) {
	if q.TotalPriceCents <= 0 {
		return nil, fmt.Errorf("quote total must be positive, got %d", q.TotalPriceCents)
	}

	job, err := s.jobs.GetByID(ctx, q.JobID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	if job.BiddingMode != models.BiddingModeDirect {
		return nil, fmt.Errorf("job uses open bidding, not direct quotes")
	}
	if job.Status != models.JobStatusOpen {
		return nil, &AlreadyProcessedError{Current: job.Status}
	}

	lead, err := s.leads.GetByJobAndContractor(ctx, q.JobID, contractorID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, ErrForbidden
		}
		return nil, fmt.Errorf("check lead match: %w", err)
	}
	switch lead.Status {
	case models.LeadStatusSent, models.LeadStatusViewed:
	default:
		return nil, fmt.Errorf("lead must be accepted before quoting, currently %q", lead.Status)
	}

	q.ContractorID = contractorID
	q.CustomerID = job.CustomerID
	q.OriginalTotalCents = q.TotalPriceCents
	q.Status = models.QuoteStatusPending
	q.ValidUntil = time.Now().AddDate(0, 0, s.cfg.QuoteValidityDays)

	if err := s.quotes.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("create quote: %w", err)
	}

	_ = s.audit.Log(ctx, models.AuditLog{
		ActorUserID: &contractorID,
		ActorType:   "user",
		Action:      "quote_issued",
		EntityType:  "quote",
		EntityID:    &q.ID,
		Meta:        map[string]any{"job_id": q.JobID.String(), "total_cents": q.TotalPriceCents},
	})
	publishTo(ctx, s.publisher, "events:quote", events.EventQuoteIssued, &job.CustomerID, map[string]any{
		"quote_id": q.ID.String(),
		"job_id":   q.JobID.String(),
	})
	return q, nil
}

// MarkViewed records the customer opening a pending quote.
func (s *QuoteService) MarkViewed(ctx context.Context, quoteID, customerID uuid.UUID) error {
	quote, err := s.getQuote(ctx, quoteID)
	if err != nil {
		return err
	}
	if quote.CustomerID != customerID {
		return ErrForbidden
	}

	ok, err := s.quotes.MarkViewed(ctx, quoteID)
	if err != nil {
		return fmt.Errorf("mark quote viewed: %w", err)
	}
	if !ok && quote.Status != models.QuoteStatusViewed {
		return &AlreadyProcessedError{Current: quote.Status}
	}
	return nil
}

// Counter posts a counter-offer. Offers strictly alternate sides. A customer
// counter may go no lower than the configured fraction of the original total;
// a contractor counter must land strictly between the last two offers and is
// a pro-tier feature.
func (s *QuoteService) Counter(ctx context.Context, quoteID, actorID uuid.UUID, priceCents int64, proposedDate *time.Time, message *string) (*models.Quote, error) {
	quote, err := s.getQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}

	var side string
	switch actorID {
	case quote.CustomerID:
		side = models.CounterByCustomer
	case quote.ContractorID:
		side = models.CounterByContractor
	default:
		return nil, ErrForbidden
	}

	if quote.IsTerminal() {
		return nil, &AlreadyProcessedError{Current: quote.Status}
	}
	if quote.IsExpired(time.Now()) {
		return nil, ErrExpired
	}
	if quote.CounterOfferCount >= s.cfg.MaxCounterOffers {
		return nil, fmt.Errorf("counter-offer limit of %d reached", s.cfg.MaxCounterOffers)
	}

	offers, err := s.offerTrail(ctx, quote)
	if err != nil {
		return nil, err
	}
	last := offers[len(offers)-1]
	if last.by == side {
		return nil, fmt.Errorf("waiting on the other party, last offer was already yours")
	}

	switch side {
	case models.CounterByCustomer:
		floor := quote.OriginalTotalCents * int64(s.cfg.CounterOfferFloorBPS) / 10000
		if priceCents < floor {
			return nil, &PriceOutOfRangeError{ProposedCents: priceCents, MinCents: floor, MaxCents: last.price}
		}
		if priceCents >= last.price {
			return nil, &PriceOutOfRangeError{ProposedCents: priceCents, MinCents: floor, MaxCents: last.price}
		}
	case models.CounterByContractor:
		enabled, err := s.gate.IsFeatureEnabled(ctx, actorID, FeatureCounterOffers)
		if err != nil {
			return nil, err
		}
		if !enabled {
			return nil, &FeatureLockedError{Feature: FeatureCounterOffers}
		}
		// Strictly between the customer's last counter and the offer before it.
		prev := offers[len(offers)-2]
		lo, hi := last.price, prev.price
		if lo > hi {
			lo, hi = hi, lo
		}
		if priceCents <= lo || priceCents >= hi {
			return nil, &PriceOutOfRangeError{ProposedCents: priceCents, MinCents: lo, MaxCents: hi}
		}
	}

	counter := &models.CounterOffer{
		QuoteID:      quoteID,
		InitiatedBy:  side,
		PriceCents:   priceCents,
		ProposedDate: proposedDate,
		ValidUntil:   time.Now().Add(s.cfg.CounterOfferWindow),
		Message:      message,
	}
	fromStatuses := []string{models.QuoteStatusPending, models.QuoteStatusViewed, models.QuoteStatusCounterOffered}
	ok, err := s.quotes.AddCounterOffer(ctx, counter, fromStatuses)
	if err != nil {
		return nil, fmt.Errorf("add counter offer: %w", err)
	}
	if !ok {
		current, err := s.quotes.GetByID(ctx, quoteID)
		if err != nil {
			return nil, fmt.Errorf("reload quote after conflict: %w", err)
		}
		return nil, &AlreadyProcessedError{Current: current.Status}
	}

	quote, err = s.getQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}

	_ = s.audit.Log(ctx, models.AuditLog{
		ActorUserID: &actorID,
		ActorType:   "user",
		Action:      "quote_countered",
		EntityType:  "quote",
		EntityID:    &quoteID,
		Meta:        map[string]any{"side": side, "price_cents": priceCents, "round": quote.CounterOfferCount},
	})
	other := quote.ContractorID
	if side == models.CounterByContractor {
		other = quote.CustomerID
	}
	publishTo(ctx, s.publisher, "events:quote", events.EventQuoteCountered, &other, map[string]any{
		"quote_id":    quoteID.String(),
		"price_cents": priceCents,
	})
	return quote, nil
}

// Accept closes the negotiation at the current total and awards the job. Only
// the party that did not make the standing offer may accept it.
func (s *QuoteService) Accept(ctx context.Context, quoteID, actorID uuid.UUID) (*models.Quote, error) {
	quote, err := s.getQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}

	var side string
	switch actorID {
	case quote.CustomerID:
		side = models.CounterByCustomer
	case quote.ContractorID:
		side = models.CounterByContractor
	default:
		return nil, ErrForbidden
	}

	if quote.IsTerminal() {
		return nil, &AlreadyProcessedError{Current: quote.Status}
	}
	if quote.IsExpired(time.Now()) {
		return nil, ErrExpired
	}

	offers, err := s.offerTrail(ctx, quote)
	if err != nil {
		return nil, err
	}
	if offers[len(offers)-1].by == side {
		return nil, fmt.Errorf("cannot accept your own standing offer")
	}

	fromStatuses := []string{models.QuoteStatusPending, models.QuoteStatusViewed, models.QuoteStatusCounterOffered}
	ok, err := s.quotes.Accept(ctx, quoteID, quote.TotalPriceCents, fromStatuses)
	if err != nil {
		return nil, fmt.Errorf("accept quote: %w", err)
	}
	if !ok {
		current, err := s.quotes.GetByID(ctx, quoteID)
		if err != nil {
			return nil, fmt.Errorf("reload quote after conflict: %w", err)
		}
		if current.IsTerminal() {
			return nil, &AlreadyProcessedError{Current: current.Status}
		}
		// The quote is still live, so the job was awarded elsewhere.
		job, err := s.jobs.GetByID(ctx, quote.JobID)
		if err != nil {
			return nil, fmt.Errorf("reload job after conflict: %w", err)
		}
		return nil, &InvalidTransitionError{Current: job.Status, Attempted: models.JobStatusAssigned}
	}
	quote.Status = models.QuoteStatusAccepted

	_ = s.audit.Log(ctx, models.AuditLog{
		ActorUserID: &actorID,
		ActorType:   "user",
		Action:      "quote_accepted",
		EntityType:  "quote",
		EntityID:    &quoteID,
		Meta:        map[string]any{"agreed_price_cents": quote.TotalPriceCents, "job_id": quote.JobID.String()},
	})
	publishTo(ctx, s.publisher, "events:quote", events.EventQuoteAccepted, nil, map[string]any{
		"quote_id":           quoteID.String(),
		"job_id":             quote.JobID.String(),
		"agreed_price_cents": quote.TotalPriceCents,
	})
	return quote, nil
}

// Reject ends the negotiation. Either party may reject at any live stage.
func (s *QuoteService) Reject(ctx context.Context, quoteID, actorID uuid.UUID) error {
	quote, err := s.getQuote(ctx, quoteID)
	if err != nil {
		return err
	}
	if actorID != quote.CustomerID && actorID != quote.ContractorID {
		return ErrForbidden
	}
	if quote.IsTerminal() {
		return &AlreadyProcessedError{Current: quote.Status}
	}

	ok, err := s.quotes.UpdateStatus(ctx, quoteID, quote.Status, models.QuoteStatusRejected)
	if err != nil {
		return fmt.Errorf("reject quote: %w", err)
	}
	if !ok {
		current, err := s.quotes.GetByID(ctx, quoteID)
		if err != nil {
			return fmt.Errorf("reload quote after conflict: %w", err)
		}
		return &AlreadyProcessedError{Current: current.Status}
	}

	_ = s.audit.Log(ctx, models.AuditLog{
		ActorUserID: &actorID,
		ActorType:   "user",
		Action:      "quote_rejected",
		EntityType:  "quote",
		EntityID:    &quoteID,
	})
	return nil
}

func (s *QuoteService) ListByJob(ctx context.Context, jobID uuid.UUID) ([]models.Quote, error) {
	return s.quotes.ListByJob(ctx, jobID)
}

func (s *QuoteService) History(ctx context.Context, quoteID uuid.UUID) ([]models.CounterOffer, error) {
	return s.quotes.ListCounterOffers(ctx, quoteID)
}

type offer struct {
	by    string
	price int64
}

// offerTrail reconstructs the alternating offer sequence: the contractor's
// original quote followed by each counter in order.
func (s *QuoteService) offerTrail(ctx context.Context, quote *models.Quote) ([]offer, error) {
	trail := []offer{{by: models.CounterByContractor, price: quote.OriginalTotalCents}}
	if quote.CounterOfferCount == 0 {
		return trail, nil
	}
	counters, err := s.quotes.ListCounterOffers(ctx, quote.ID)
	if err != nil {
		return nil, fmt.Errorf("list counter offers: %w", err)
	}
	for _, c := range counters {
		trail = append(trail, offer{by: c.InitiatedBy, price: c.PriceCents})
	}
	return trail, nil
}

func (s *QuoteService) getQuote(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	q, err := s.quotes.GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get quote: %w", err)
	}
	return q, nil
}
