package services

import (
	"context"
	"errors"
	"testing"

	"github.com/fixmarket/backend/internal/models"
	"github.com/google/uuid"
)

func TestTierFeatureGate(t *testing.T) {
	ctx := context.Background()
	store := newMemUserStore()
	gate := NewTierFeatureGate(store)

	free := &models.User{Email: "free@example.com", Role: models.RoleContractor, Tier: models.TierFree, Active: true}
	pro := &models.User{Email: "pro@example.com", Role: models.RoleContractor, Tier: models.TierPro, Active: true}
	if err := store.Create(ctx, free); err != nil {
		t.Fatalf("seed free: %v", err)
	}
	if err := store.Create(ctx, pro); err != nil {
		t.Fatalf("seed pro: %v", err)
	}

	cases := []struct {
		name    string
		userID  uuid.UUID
		feature string
		want    bool
	}{
		{"free tier bills per lead", free.ID, FeaturePerLeadBilling, true},
		{"free tier cannot counter", free.ID, FeatureCounterOffers, false},
		{"pro tier bills per lead", pro.ID, FeaturePerLeadBilling, true},
		{"pro tier can counter", pro.ID, FeatureCounterOffers, true},
		{"unknown feature", pro.ID, "teleportation", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := gate.IsFeatureEnabled(ctx, tc.userID, tc.feature)
			if err != nil {
				t.Fatalf("IsFeatureEnabled: %v", err)
			}
			if got != tc.want {
				t.Errorf("enabled = %v, want %v", got, tc.want)
			}
		})
	}

	if _, err := gate.IsFeatureEnabled(ctx, uuid.New(), FeatureCounterOffers); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown contractor err = %v, want ErrNotFound", err)
	}
}
