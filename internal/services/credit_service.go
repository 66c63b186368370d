package services

import (
	"context"
	"fmt"

	"github.com/fixmarket/backend/internal/models"
	"github.com/fixmarket/backend/internal/repositories"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreditStore is the ledger persistence contract. repositories.CreditRepo is
// the production implementation; tests use an in-memory store.
type CreditStore interface {
	GetOrCreateAccount(ctx context.Context, contractorID uuid.UUID) (*models.CreditAccount, error)
	GetAccount(ctx context.Context, contractorID uuid.UUID) (*models.CreditAccount, error)
	Charge(ctx context.Context, contractorID uuid.UUID, amountCents int64, txType, reason string, leadMatchID *uuid.UUID) (*models.CreditTransaction, bool, error)
	Credit(ctx context.Context, contractorID uuid.UUID, amountCents int64, txType, reason string) (*models.CreditTransaction, error)
	ListTransactions(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]models.CreditTransaction, error)
}

type CreditService struct {
	store CreditStore
	audit AuditLogger
	log   *zap.Logger
}

func NewCreditService(store CreditStore, audit AuditLogger, log *zap.Logger) *CreditService {
	return &CreditService{store: store, audit: audit, log: log}
}

// Charge debits the contractor's prepaid balance. The check-then-write is a
// single atomic statement in the store; an overdrawing charge is refused with
// ErrInsufficientBalance and leaves no trace in the ledger.
func (s *CreditService) Charge(ctx context.Context, contractorID uuid.UUID, amountCents int64, reason string, leadMatchID *uuid.UUID) (*models.CreditTransaction, error) {
	if amountCents <= 0 {
		return nil, fmt.Errorf("charge amount must be positive, got %d", amountCents)
	}

	tx, ok, err := s.store.Charge(ctx, contractorID, amountCents, models.CreditTxLeadCharge, reason, leadMatchID)
	if err != nil {
		return nil, fmt.Errorf("charge account: %w", err)
	}
	if !ok {
		return nil, ErrInsufficientBalance
	}

	_ = s.audit.Log(ctx, models.AuditLog{
		ActorType:  "system",
		Action:     "credit_charge",
		EntityType: "credit_account",
		EntityID:   &tx.AccountID,
		Meta:       map[string]any{"amount_cents": -amountCents, "reason": reason, "balance_after": tx.BalanceAfterCents},
	})
	return tx, nil
}

// TopUp credits purchased lead credits to the contractor's account.
func (s *CreditService) TopUp(ctx context.Context, contractorID uuid.UUID, amountCents int64, reason string) (*models.CreditTransaction, error) {
	if amountCents <= 0 {
		return nil, fmt.Errorf("top-up amount must be positive, got %d", amountCents)
	}
	return s.credit(ctx, contractorID, amountCents, models.CreditTxTopUp, reason)
}

// Refund returns a previously charged amount, e.g. for a bogus lead.
func (s *CreditService) Refund(ctx context.Context, contractorID uuid.UUID, amountCents int64, reason string) (*models.CreditTransaction, error) {
	if amountCents <= 0 {
		return nil, fmt.Errorf("refund amount must be positive, got %d", amountCents)
	}
	return s.credit(ctx, contractorID, amountCents, models.CreditTxRefund, reason)
}

func (s *CreditService) credit(ctx context.Context, contractorID uuid.UUID, amountCents int64, txType, reason string) (*models.CreditTransaction, error) {
	tx, err := s.store.Credit(ctx, contractorID, amountCents, txType, reason)
	if err != nil {
		return nil, fmt.Errorf("credit account: %w", err)
	}

	_ = s.audit.Log(ctx, models.AuditLog{
		ActorType:  "system",
		Action:     "credit_" + txType,
		EntityType: "credit_account",
		EntityID:   &tx.AccountID,
		Meta:       map[string]any{"amount_cents": amountCents, "reason": reason, "balance_after": tx.BalanceAfterCents},
	})
	return tx, nil
}

func (s *CreditService) GetBalance(ctx context.Context, contractorID uuid.UUID) (*models.CreditAccount, error) {
	account, err := s.store.GetOrCreateAccount(ctx, contractorID)
	if err != nil {
		return nil, fmt.Errorf("get credit account: %w", err)
	}
	return account, nil
}

func (s *CreditService) Statement(ctx context.Context, contractorID uuid.UUID, limit, offset int) ([]models.CreditTransaction, error) {
	account, err := s.store.GetAccount(ctx, contractorID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get credit account: %w", err)
	}
	return s.store.ListTransactions(ctx, account.ID, limit, offset)
}
