package models

import (
	"time"

	"github.com/google/uuid"
)

// User roles
const (
	RoleCustomer   = "customer"
	RoleContractor = "contractor"
	RoleAdmin      = "admin"
)

// Subscription tiers for contractors. Tier gating is resolved from this
// column, never from client-supplied claims.
const (
	TierFree = "free"
	TierPro  = "pro"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         *string   `json:"name,omitempty"`
	Role         string    `json:"role"`
	Tier         string    `json:"tier"`
	Categories   []string  `json:"categories,omitempty"` // contractor trade categories
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}
