package dto

import (
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate runs struct tag validation on a request body.
func Validate(s any) error {
	return validate.Struct(s)
}

type RegisterRequest struct {
	Email      string   `json:"email" validate:"required,email"`
	Password   string   `json:"password" validate:"required,min=8"`
	Role       string   `json:"role" validate:"required,oneof=customer contractor"`
	Name       *string  `json:"name,omitempty"`
	Categories []string `json:"categories,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpgradeTierRequest struct {
	Tier string `json:"tier" validate:"required,oneof=free pro"`
}

type CreateJobRequest struct {
	Category            string     `json:"category" validate:"required"`
	Title               string     `json:"title" validate:"required,max=200"`
	Description         *string    `json:"description,omitempty"`
	BiddingMode         string     `json:"bidding_mode" validate:"required,oneof=open_bid direct"`
	RequiresEscrow      bool       `json:"requires_escrow"`
	EstimatedPriceCents *int64     `json:"estimated_price_cents,omitempty" validate:"omitempty,gt=0"`
	BidDeadline         *time.Time `json:"bid_deadline,omitempty"`
}

type CompleteJobRequest struct {
	FinalCostCents *int64 `json:"final_cost_cents,omitempty" validate:"omitempty,gt=0"`
}

type PlaceBidRequest struct {
	AmountCents  int64      `json:"amount_cents" validate:"required,gt=0"`
	DeliveryDays int        `json:"delivery_days" validate:"required,gt=0"`
	Proposal     *string    `json:"proposal,omitempty"`
	ValidUntil   *time.Time `json:"valid_until,omitempty"`
}

type IssueQuoteRequest struct {
	JobID           string  `json:"job_id" validate:"required,uuid"`
	BasePriceCents  int64   `json:"base_price_cents" validate:"required,gt=0"`
	TotalPriceCents int64   `json:"total_price_cents" validate:"required,gt=0"`
	ScopeNotes      *string `json:"scope_notes,omitempty"`
}

type CounterOfferRequest struct {
	PriceCents   int64      `json:"price_cents" validate:"required,gt=0"`
	ProposedDate *time.Time `json:"proposed_date,omitempty"`
	Message      *string    `json:"message,omitempty" validate:"omitempty,max=2000"`
}

type MilestoneInput struct {
	Title             string `json:"title" validate:"required,max=200"`
	AmountCents       int64  `json:"amount_cents" validate:"required,gt=0"`
	RequiresGPS       bool   `json:"requires_gps"`
	MinPhotos         int    `json:"min_photos" validate:"gte=0"`
	RequiresSignature bool   `json:"requires_signature"`
}

type CreateEscrowRequest struct {
	Milestones []MilestoneInput `json:"milestones" validate:"required,min=1,dive"`
}

type FundEscrowRequest struct {
	AmountCents int64 `json:"amount_cents" validate:"required,gt=0"`
}

type SubmitEvidenceRequest struct {
	GPSVerified       bool `json:"gps_verified"`
	PhotosUploaded    int  `json:"photos_uploaded" validate:"gte=0"`
	SignatureCaptured bool `json:"signature_captured"`
}

type TopUpRequest struct {
	AmountCents int64 `json:"amount_cents" validate:"required,gt=0"`
}
