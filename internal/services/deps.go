package services

import (
	"context"

	"github.com/fixmarket/backend/internal/events"
	"github.com/fixmarket/backend/internal/models"
	"github.com/google/uuid"
)

// AuditLogger records who did what to which entity. repositories.AuditRepo is
// the production implementation.
type AuditLogger interface {
	Log(ctx context.Context, entry models.AuditLog) error
}

// FeatureGate answers tier-gating questions. Resolved against the
// contractor's stored tier, never a client-supplied claim.
type FeatureGate interface {
	IsFeatureEnabled(ctx context.Context, contractorID uuid.UUID, feature string) (bool, error)
}

// Gated features.
const (
	FeaturePerLeadBilling = "per_lead_billing"
	FeatureCounterOffers  = "counter_offers"
)

// publishTo sends a best-effort event after state has been committed. Failure
// is logged by the publisher and never rolls anything back.
func publishTo(ctx context.Context, pub events.Publisher, stream, eventType string, userID *uuid.UUID, payload map[string]any) {
	if payload == nil {
		payload = map[string]any{}
	}
	if userID != nil {
		payload["user_id"] = userID.String()
	}
	_ = pub.Publish(ctx, stream, events.Event{Type: eventType, Payload: payload})
}
