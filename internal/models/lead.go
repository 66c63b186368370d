package models

import (
	"time"

	"github.com/google/uuid"
)

// LeadMatch statuses
const (
	LeadStatusPending = "pending"
	LeadStatusSent    = "sent"
	LeadStatusViewed  = "viewed"
	LeadStatusLost    = "lost"
	LeadStatusExpired = "expired"
)

// Lead pricing models
const (
	LeadPricingPerLead      = "per_lead"
	LeadPricingSubscription = "subscription"
)

// leadStatusRank orders lead statuses; transitions may only move forward.
var leadStatusRank = map[string]int{
	LeadStatusPending: 0,
	LeadStatusSent:    1,
	LeadStatusViewed:  2,
	LeadStatusLost:    3,
	LeadStatusExpired: 3,
}

// IsForwardLeadTransition reports whether moving from one lead status to
// another goes forward. Regressing (e.g. sent back to pending) is never valid.
func IsForwardLeadTransition(from, to string) bool {
	fr, ok := leadStatusRank[from]
	if !ok {
		return false
	}
	tr, ok := leadStatusRank[to]
	if !ok {
		return false
	}
	return tr > fr
}

// LeadMatch links one inbound job request to one candidate contractor.
// ChargeTxID is set when (and only when) a per-lead charge has been posted,
// which caps the ledger at one charge per match.
type LeadMatch struct {
	ID            uuid.UUID  `json:"id"`
	JobID         uuid.UUID  `json:"job_id"`
	ContractorID  uuid.UUID  `json:"contractor_id"`
	Status        string     `json:"status"`
	PricingModel  string     `json:"pricing_model"` // per_lead / subscription
	LeadCostCents int64      `json:"lead_cost_cents"`
	ChargeTxID    *uuid.UUID `json:"charge_tx_id,omitempty"`
	RespondedAt   *time.Time `json:"responded_at,omitempty"`
	ViewedAt      *time.Time `json:"viewed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
