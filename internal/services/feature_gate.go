package services

import (
	"context"
	"fmt"

	"github.com/fixmarket/backend/internal/models"
	"github.com/fixmarket/backend/internal/repositories"
	"github.com/google/uuid"
)

// tierFeatures maps subscription tiers to the features they unlock. The map
// is fixed at startup rather than probed per call.
var tierFeatures = map[string][]string{
	models.TierFree: {FeaturePerLeadBilling},
	models.TierPro:  {FeaturePerLeadBilling, FeatureCounterOffers},
}

type userGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// TierFeatureGate resolves feature availability from the contractor's stored
// subscription tier.
type TierFeatureGate struct {
	users userGetter
}

func NewTierFeatureGate(users userGetter) *TierFeatureGate {
	return &TierFeatureGate{users: users}
}

func (g *TierFeatureGate) IsFeatureEnabled(ctx context.Context, contractorID uuid.UUID, feature string) (bool, error) {
	u, err := g.users.GetByID(ctx, contractorID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("resolve contractor tier: %w", err)
	}
	for _, f := range tierFeatures[u.Tier] {
		if f == feature {
			return true, nil
		}
	}
	return false, nil
}
