package models

import (
	"time"

	"github.com/google/uuid"
)

// Quote statuses
const (
	QuoteStatusPending        = "pending"
	QuoteStatusViewed         = "viewed"
	QuoteStatusCounterOffered = "counter_offered"
	QuoteStatusAccepted       = "accepted"
	QuoteStatusRejected       = "rejected"
	QuoteStatusExpired        = "expired"
)

// Counter-offer initiators
const (
	CounterByCustomer   = "customer"
	CounterByContractor = "contractor"
)

// Quote is a contractor-issued price proposal against a direct (non-bid) job.
// OriginalTotalCents is the first quoted total and never changes; the customer
// counter-offer floor is computed against it, not against the latest counter.
type Quote struct {
	ID                 uuid.UUID  `json:"id"`
	JobID              uuid.UUID  `json:"job_id"`
	ContractorID       uuid.UUID  `json:"contractor_id"`
	CustomerID         uuid.UUID  `json:"customer_id"`
	BasePriceCents     int64      `json:"base_price_cents"`
	TotalPriceCents    int64      `json:"total_price_cents"`
	OriginalTotalCents int64      `json:"original_total_cents"`
	Status             string     `json:"status"`
	CounterOfferCount  int        `json:"counter_offer_count"`
	ValidUntil         time.Time  `json:"valid_until"`
	ScopeNotes         *string    `json:"scope_notes,omitempty"`
	ViewedAt           *time.Time `json:"viewed_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (q *Quote) IsExpired(now time.Time) bool {
	return q.ValidUntil.Before(now)
}

// IsTerminal reports whether the quote chain has ended.
func (q *Quote) IsTerminal() bool {
	return q.Status == QuoteStatusAccepted || q.Status == QuoteStatusRejected || q.Status == QuoteStatusExpired
}

type CounterOffer struct {
	ID           uuid.UUID  `json:"id"`
	QuoteID      uuid.UUID  `json:"quote_id"`
	InitiatedBy  string     `json:"initiated_by"` // customer / contractor
	PriceCents   int64      `json:"price_cents"`
	ProposedDate *time.Time `json:"proposed_date,omitempty"`
	ValidUntil   time.Time  `json:"valid_until"`
	Message      *string    `json:"message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}
