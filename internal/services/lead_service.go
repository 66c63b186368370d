package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/fixmarket/backend/internal/config"
	"github.com/fixmarket/backend/internal/events"
	"github.com/fixmarket/backend/internal/models"
	"github.com/fixmarket/backend/internal/repositories"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LeadStore is the lead match persistence contract. Create is conflict-safe:
// inserting a duplicate (job, contractor) pair reports not-found instead of
// writing a second row.
type LeadStore interface {
	Create(ctx context.Context, m *models.LeadMatch) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.LeadMatch, error)
	GetByJobAndContractor(ctx context.Context, jobID, contractorID uuid.UUID) (*models.LeadMatch, error)
	ListByContractor(ctx context.Context, contractorID uuid.UUID, status *string, limit, offset int) ([]models.LeadMatch, error)
	MarkResponded(ctx context.Context, id uuid.UUID, to string) (bool, error)
	MarkViewed(ctx context.Context, id uuid.UUID) (bool, error)
	SetChargeTx(ctx context.Context, id, txID uuid.UUID) (bool, error)
}

// ContractorFinder matches contractors to a job category.
type ContractorFinder interface {
	FindContractorsByCategory(ctx context.Context, category string, limit int) ([]models.User, error)
}

// leadBiller is the slice of the credit ledger lead acceptance needs.
type leadBiller interface {
	Charge(ctx context.Context, contractorID uuid.UUID, amountCents int64, reason string, leadMatchID *uuid.UUID) (*models.CreditTransaction, error)
}

type LeadService struct {
	leads     LeadStore
	finder    ContractorFinder
	biller    leadBiller
	gate      FeatureGate
	audit     AuditLogger
	publisher events.Publisher
	cfg       *config.Config
	log       *zap.Logger
}

func NewLeadService(leads LeadStore, finder ContractorFinder, biller leadBiller, gate FeatureGate, audit AuditLogger, publisher events.Publisher, cfg *config.Config, log *zap.Logger) *LeadService {
	return &LeadService{leads: leads, finder: finder, biller: biller, gate: gate, audit: audit, publisher: publisher, cfg: cfg, log: log}
}

// MatchJob fans a newly posted job out to contractors in its category. Each
// match starts pending; duplicates are skipped silently so re-running the
// matcher for a job is safe.
func (s *LeadService) MatchJob(ctx context.Context, job *models.Job) ([]models.LeadMatch, error) {
	contractors, err := s.finder.FindContractorsByCategory(ctx, job.Category, 50)
	if err != nil {
		return nil, fmt.Errorf("find contractors: %w", err)
	}

	var matches []models.LeadMatch
	for _, c := range contractors {
		if c.ID == job.CustomerID {
			continue
		}

		pricing := models.LeadPricingPerLead
		if c.Tier == models.TierPro {
			pricing = models.LeadPricingSubscription
		}

		m := models.LeadMatch{
			JobID:         job.ID,
			ContractorID:  c.ID,
			Status:        models.LeadStatusPending,
			PricingModel:  pricing,
			LeadCostCents: s.cfg.LeadDefaultCostCents,
		}
		if err := s.leads.Create(ctx, &m); err != nil {
			if repositories.IsNotFound(err) {
				continue // already matched
			}
			return matches, fmt.Errorf("create lead match: %w", err)
		}
		matches = append(matches, m)

		publishTo(ctx, s.publisher, "events:lead", events.EventLeadMatched, &c.ID, map[string]any{
			"lead_id": m.ID.String(),
			"job_id":  job.ID.String(),
		})
	}

	_ = s.audit.Log(ctx, models.AuditLog{
		ActorType:  "system",
		Action:     "leads_matched",
		EntityType: "job",
		EntityID:   &job.ID,
		Meta:       map[string]any{"count": len(matches), "category": job.Category},
	})
	return matches, nil
}

// AcceptResult reports the outcome of a lead acceptance. OverExtended is set
// when the acceptance stood but the per-lead charge was refused for lack of
// balance; the debt is settled out of band.
type AcceptResult struct {
	Match        *models.LeadMatch
	ChargeTx     *models.CreditTransaction
	OverExtended bool
}

// Accept marks the lead responded and, for per-lead pricing, charges the
// contractor exactly once. The tier gate is consulted before anything moves,
// so a locked account leaves the lead untouched. A second accept reports the
// surviving status without a second charge.
func (s *LeadService) Accept(ctx context.Context, leadID, contractorID uuid.UUID) (*AcceptResult, error) {
	match, err := s.getOwned(ctx, leadID, contractorID)
	if err != nil {
		return nil, err
	}

	if match.PricingModel == models.LeadPricingPerLead {
		enabled, err := s.gate.IsFeatureEnabled(ctx, contractorID, FeaturePerLeadBilling)
		if err != nil {
			return nil, fmt.Errorf("check per-lead billing: %w", err)
		}
		if !enabled {
			return nil, &FeatureLockedError{Feature: FeaturePerLeadBilling}
		}
	}

	ok, err := s.leads.MarkResponded(ctx, leadID, models.LeadStatusSent)
	if err != nil {
		return nil, fmt.Errorf("mark lead responded: %w", err)
	}
	if !ok {
		current, err := s.leads.GetByID(ctx, leadID)
		if err != nil {
			return nil, fmt.Errorf("reload lead after conflict: %w", err)
		}
		return nil, &AlreadyProcessedError{Current: current.Status}
	}
	match.Status = models.LeadStatusSent

	result := &AcceptResult{Match: match}

	if match.PricingModel == models.LeadPricingPerLead {
		tx, err := s.biller.Charge(ctx, contractorID, match.LeadCostCents, "lead acceptance", &match.ID)
		switch {
		case errors.Is(err, ErrInsufficientBalance):
			// Acceptance stands; the account is flagged, not the lead.
			result.OverExtended = true
			s.log.Warn("lead accepted with insufficient balance",
				zap.String("lead_id", leadID.String()),
				zap.String("contractor_id", contractorID.String()))
		case err != nil:
			return nil, fmt.Errorf("charge lead fee: %w", err)
		default:
			result.ChargeTx = tx
			if _, err := s.leads.SetChargeTx(ctx, leadID, tx.ID); err != nil {
				return nil, fmt.Errorf("link charge to lead: %w", err)
			}
		}
	}

	_ = s.audit.Log(ctx, models.AuditLog{
		ActorUserID: &contractorID,
		ActorType:   "user",
		Action:      "lead_accepted",
		EntityType:  "lead_match",
		EntityID:    &leadID,
		Meta:        map[string]any{"over_extended": result.OverExtended},
	})
	publishTo(ctx, s.publisher, "events:lead", events.EventLeadResponded, &contractorID, map[string]any{
		"lead_id": leadID.String(),
		"status":  models.LeadStatusSent,
	})
	return result, nil
}

// Reject marks the lead lost. No charge is ever taken for a rejection.
func (s *LeadService) Reject(ctx context.Context, leadID, contractorID uuid.UUID) error {
	if _, err := s.getOwned(ctx, leadID, contractorID); err != nil {
		return err
	}

	ok, err := s.leads.MarkResponded(ctx, leadID, models.LeadStatusLost)
	if err != nil {
		return fmt.Errorf("mark lead lost: %w", err)
	}
	if !ok {
		current, err := s.leads.GetByID(ctx, leadID)
		if err != nil {
			return fmt.Errorf("reload lead after conflict: %w", err)
		}
		return &AlreadyProcessedError{Current: current.Status}
	}

	_ = s.audit.Log(ctx, models.AuditLog{
		ActorUserID: &contractorID,
		ActorType:   "user",
		Action:      "lead_rejected",
		EntityType:  "lead_match",
		EntityID:    &leadID,
	})
	return nil
}

// MarkViewed records that the customer opened the contractor's response.
// Forward-only: a lead already past sent stays where it is.
func (s *LeadService) MarkViewed(ctx context.Context, leadID uuid.UUID) error {
	ok, err := s.leads.MarkViewed(ctx, leadID)
	if err != nil {
		return fmt.Errorf("mark lead viewed: %w", err)
	}
	if !ok {
		current, err := s.leads.GetByID(ctx, leadID)
		if err != nil {
			if repositories.IsNotFound(err) {
				return ErrNotFound
			}
			return fmt.Errorf("reload lead after conflict: %w", err)
		}
		if models.IsForwardLeadTransition(current.Status, models.LeadStatusViewed) {
			// Still pending: there is no response to view yet.
			return &InvalidTransitionError{Current: current.Status, Attempted: models.LeadStatusViewed}
		}
		return &AlreadyProcessedError{Current: current.Status}
	}
	return nil
}

func (s *LeadService) ListLeads(ctx context.Context, contractorID uuid.UUID, status *string, limit, offset int) ([]models.LeadMatch, error) {
	return s.leads.ListByContractor(ctx, contractorID, status, limit, offset)
}

func (s *LeadService) getOwned(ctx context.Context, leadID, contractorID uuid.UUID) (*models.LeadMatch, error) {
	match, err := s.leads.GetByID(ctx, leadID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get lead: %w", err)
	}
	if match.ContractorID != contractorID {
		return nil, ErrForbidden
	}
	return match, nil
}
