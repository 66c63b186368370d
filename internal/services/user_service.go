package services

import (
	"context"
	"fmt"

	"github.com/fixmarket/backend/internal/auth"
	"github.com/fixmarket/backend/internal/config"
	"github.com/fixmarket/backend/internal/models"
	"github.com/fixmarket/backend/internal/repositories"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserStore is the account persistence contract.
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateTier(ctx context.Context, id uuid.UUID, tier string) error
	UpdateLastActive(ctx context.Context, id uuid.UUID) error
}

var ErrInvalidCredentials = fmt.Errorf("invalid email or password")

type UserService struct {
	users UserStore
	audit AuditLogger
	cfg   *config.Config
	log   *zap.Logger
}

func NewUserService(users UserStore, audit AuditLogger, cfg *config.Config, log *zap.Logger) *UserService {
	return &UserService{users: users, audit: audit, cfg: cfg, log: log}
}

func (s *UserService) Register(ctx context.Context, email, password, role string, name *string, categories []string) (*models.User, error) {
	switch role {
	case models.RoleCustomer, models.RoleContractor:
	default:
		return nil, fmt.Errorf("role must be customer or contractor, got %q", role)
	}
	if role == models.RoleContractor && len(categories) == 0 {
		return nil, fmt.Errorf("contractors must declare at least one category")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &models.User{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Role:         role,
		Tier:         models.TierFree,
		Categories:   categories,
		Active:       true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	_ = s.audit.Log(ctx, models.AuditLog{
		ActorUserID: &u.ID,
		ActorType:   "user",
		Action:      "user_registered",
		EntityType:  "user",
		EntityID:    &u.ID,
		Meta:        map[string]any{"role": role},
	})
	return u, nil
}

// Login verifies credentials and issues a JWT carrying the stored role.
func (s *UserService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if repositories.IsNotFound(err) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("get user: %w", err)
	}
	if !u.Active || !auth.CheckPassword(u.PasswordHash, password) {
		return "", nil, ErrInvalidCredentials
	}

	token, err := auth.GenerateJWT(s.cfg.JWTSecret, u.ID, u.Role, s.cfg.JWTExpiration)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	_ = s.users.UpdateLastActive(ctx, u.ID)
	return token, u, nil
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// UpgradeTier flips a contractor between free and pro. Billing for the
// subscription itself happens on the payment rail, not here.
func (s *UserService) UpgradeTier(ctx context.Context, contractorID uuid.UUID, tier string) error {
	if tier != models.TierFree && tier != models.TierPro {
		return fmt.Errorf("unknown tier %q", tier)
	}
	u, err := s.Get(ctx, contractorID)
	if err != nil {
		return err
	}
	if u.Role != models.RoleContractor {
		return ErrForbidden
	}
	if err := s.users.UpdateTier(ctx, contractorID, tier); err != nil {
		return fmt.Errorf("update tier: %w", err)
	}

	_ = s.audit.Log(ctx, models.AuditLog{
		ActorUserID: &contractorID,
		ActorType:   "user",
		Action:      "tier_changed",
		EntityType:  "user",
		EntityID:    &contractorID,
		Meta:        map[string]any{"tier": tier},
	})
	return nil
}
