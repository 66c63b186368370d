package events

import "context"

// Event types
const (
	EventJobStatusChanged  = "job_status_changed"
	EventJobDisputed       = "job_disputed"
	EventLeadMatched       = "lead_matched"
	EventLeadResponded     = "lead_responded"
	EventBidPlaced         = "bid_placed"
	EventBidAccepted       = "bid_accepted"
	EventQuoteIssued       = "quote_issued"
	EventQuoteCountered    = "quote_countered"
	EventQuoteAccepted     = "quote_accepted"
	EventEscrowFunded      = "escrow_funded"
	EventMilestoneApproved = "milestone_approved"
	EventEscrowReleased    = "escrow_released"
	EventEscrowRefunded    = "escrow_refunded"
)

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}
