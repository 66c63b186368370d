package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Escrow statuses
const (
	EscrowStatusPending           = "pending"
	EscrowStatusFunding           = "funding"
	EscrowStatusFunded            = "funded"
	EscrowStatusPartiallyReleased = "partially_released"
	EscrowStatusReleased          = "released"
	EscrowStatusRefunded          = "refunded"
)

// Milestone statuses
const (
	MilestoneStatusPending         = "pending"
	MilestoneStatusInProgress      = "in_progress"
	MilestoneStatusPendingApproval = "pending_approval"
	MilestoneStatusCompleted       = "completed"
)

// Escrow holds funds against one job. ReleasedCents is recomputed server-side
// from completed milestones and never exceeds TotalCents.
type Escrow struct {
	ID            uuid.UUID  `json:"id"`
	JobID         uuid.UUID  `json:"job_id"`
	TotalCents    int64      `json:"total_cents"`
	ReleasedCents int64      `json:"released_cents"`
	Status        string     `json:"status"`
	PaymentRef    *string    `json:"payment_ref,omitempty"`
	FundedAt      *time.Time `json:"funded_at,omitempty"`
	RefundedAt    *time.Time `json:"refunded_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (e *Escrow) RemainingCents() int64 {
	return e.TotalCents - e.ReleasedCents
}

// Milestone is a verifiable checkpoint gating partial escrow release.
// The Requires* fields declare what evidence must be present before the
// milestone can move to pending_approval; the core checks counts and flags
// only, never file content.
type Milestone struct {
	ID                uuid.UUID  `json:"id"`
	EscrowID          uuid.UUID  `json:"escrow_id"`
	Title             string     `json:"title"`
	Ord               int        `json:"ord"`
	AmountCents       int64      `json:"amount_cents"`
	Status            string     `json:"status"`
	RequiresGPS       bool       `json:"requires_gps"`
	MinPhotos         int        `json:"min_photos"`
	RequiresSignature bool       `json:"requires_signature"`
	GPSVerified       bool       `json:"gps_verified"`
	PhotosUploaded    int        `json:"photos_uploaded"`
	SignatureCaptured bool       `json:"signature_captured"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	ApprovedAt        *time.Time `json:"approved_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// UnmetRequirements returns a human-readable entry for every declared
// verification requirement the milestone has not yet satisfied.
func (m *Milestone) UnmetRequirements() []string {
	var missing []string
	if m.RequiresGPS && !m.GPSVerified {
		missing = append(missing, "gps_proof")
	}
	if m.MinPhotos > 0 && m.PhotosUploaded < m.MinPhotos {
		missing = append(missing, fmt.Sprintf("photos: %d of %d uploaded", m.PhotosUploaded, m.MinPhotos))
	}
	if m.RequiresSignature && !m.SignatureCaptured {
		missing = append(missing, "signature")
	}
	return missing
}
