package models

import (
	"time"

	"github.com/google/uuid"
)

// Bid statuses
const (
	BidStatusActive    = "active"
	BidStatusAccepted  = "accepted"
	BidStatusDeclined  = "declined"
	BidStatusWithdrawn = "withdrawn"
	BidStatusExpired   = "expired"
)

// Bid is a contractor's competing offer on an open-bid job. At most one bid
// per (job, contractor) pair, enforced by a unique index.
type Bid struct {
	ID           uuid.UUID  `json:"id"`
	JobID        uuid.UUID  `json:"job_id"`
	ContractorID uuid.UUID  `json:"contractor_id"`
	AmountCents  int64      `json:"amount_cents"`
	DeliveryDays int        `json:"delivery_days"`
	Proposal     *string    `json:"proposal,omitempty"`
	Status       string     `json:"status"`
	ValidUntil   *time.Time `json:"valid_until,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (b *Bid) IsExpired(now time.Time) bool {
	return b.ValidUntil != nil && b.ValidUntil.Before(now)
}
