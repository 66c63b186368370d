package models

import (
	"time"

	"github.com/google/uuid"
)

// Job statuses
const (
	JobStatusOpen       = "open"
	JobStatusAssigned   = "assigned"
	JobStatusInProgress = "in_progress"
	JobStatusCompleted  = "completed"
	JobStatusInvoiced   = "invoiced"
	JobStatusPaid       = "paid"
	JobStatusCanceled   = "canceled"
)

// Bidding modes
const (
	BiddingModeOpen   = "open_bid"
	BiddingModeDirect = "direct"
)

// Valid state transitions: from -> []to
var ValidJobTransitions = map[string][]string{
	JobStatusOpen:       {JobStatusAssigned, JobStatusCanceled},
	JobStatusAssigned:   {JobStatusInProgress, JobStatusCanceled},
	JobStatusInProgress: {JobStatusCompleted, JobStatusCanceled},
	JobStatusCompleted:  {JobStatusInvoiced, JobStatusPaid},
	JobStatusInvoiced:   {JobStatusPaid},
	JobStatusPaid:       {},
	JobStatusCanceled:   {},
}

func IsValidJobTransition(from, to string) bool {
	allowed, ok := ValidJobTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

func IsTerminalJobStatus(status string) bool {
	return status == JobStatusPaid || status == JobStatusCanceled
}

// StatusesWithContractor lists the statuses in which a job must have an
// assigned contractor.
var StatusesWithContractor = []string{
	JobStatusAssigned, JobStatusInProgress, JobStatusCompleted, JobStatusInvoiced, JobStatusPaid,
}

func IsValidBiddingMode(mode string) bool {
	return mode == BiddingModeOpen || mode == BiddingModeDirect
}

type Job struct {
	ID                  uuid.UUID  `json:"id"`
	CustomerID          uuid.UUID  `json:"customer_id"`
	ContractorID        *uuid.UUID `json:"contractor_id,omitempty"`
	Category            string     `json:"category"`
	Title               string     `json:"title"`
	Description         *string    `json:"description,omitempty"`
	BiddingMode         string     `json:"bidding_mode"` // open_bid / direct
	Status              string     `json:"status"`
	Disputed            bool       `json:"disputed"`
	RequiresEscrow      bool       `json:"requires_escrow"`
	EstimatedPriceCents *int64     `json:"estimated_price_cents,omitempty"`
	AgreedPriceCents    *int64     `json:"agreed_price_cents,omitempty"` // set once, at award
	FinalCostCents      *int64     `json:"final_cost_cents,omitempty"`
	BidDeadline         *time.Time `json:"bid_deadline,omitempty"`
	AssignedAt          *time.Time `json:"assigned_at,omitempty"`
	StartedAt           *time.Time `json:"started_at,omitempty"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`
	PaidAt              *time.Time `json:"paid_at,omitempty"`
	CanceledAt          *time.Time `json:"canceled_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// JobWithParties embeds Job and adds party names to avoid N+1 queries.
type JobWithParties struct {
	Job
	CustomerName   *string `json:"customer_name,omitempty"`
	ContractorName *string `json:"contractor_name,omitempty"`
}
