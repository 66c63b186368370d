package services

import (
	"context"
	"fmt"

	"github.com/fixmarket/backend/internal/config"
	"github.com/fixmarket/backend/internal/events"
	"github.com/fixmarket/backend/internal/models"
	"github.com/fixmarket/backend/internal/repositories"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JobStore is the job persistence contract. Status writes are guarded: they
// succeed only if the persisted status still equals the expected one.
type JobStore interface {
	Create(ctx context.Context, j *models.Job) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
	GetByIDWithParties(ctx context.Context, id uuid.UUID) (*models.JobWithParties, error)
	List(ctx context.Context, f repositories.JobFilter) ([]models.Job, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error)
	MarkCompleted(ctx context.Context, id uuid.UUID, finalCostCents int64) (bool, error)
	SetDisputed(ctx context.Context, id uuid.UUID, disputed bool) error
}

// escrowReader is the slice of escrow persistence the job lifecycle needs for
// cancellation checks.
type escrowReader interface {
	GetByJobID(ctx context.Context, jobID uuid.UUID) (*models.Escrow, error)
}

type JobService struct {
	jobs      JobStore
	escrows   escrowReader
	audit     AuditLogger
	publisher events.Publisher
	cfg       *config.Config
	log       *zap.Logger
}

func NewJobService(jobs JobStore, escrows escrowReader, audit AuditLogger, publisher events.Publisher, cfg *config.Config, log *zap.Logger) *JobService {
	return &JobService{jobs: jobs, escrows: escrows, audit: audit, publisher: publisher, cfg: cfg, log: log}
}

// transition validates and performs a guarded status write with audit logging.
// On a lost race it re-reads the row and reports the authoritative status.
func (s *JobService) transition(ctx context.Context, job *models.Job, newStatus string, actorID *uuid.UUID, actorType string) error {
	if !models.IsValidJobTransition(job.Status, newStatus) {
		return &InvalidTransitionError{Current: job.Status, Attempted: newStatus}
	}

	ok, err := s.jobs.UpdateStatus(ctx, job.ID, job.Status, newStatus)
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	if !ok {
		current, err := s.jobs.GetByID(ctx, job.ID)
		if err != nil {
			return fmt.Errorf("reload job after conflict: %w", err)
		}
		return &InvalidTransitionError{Current: current.Status, Attempted: newStatus}
	}

	oldStatus := job.Status
	job.Status = newStatus

	_ = s.audit.Log(ctx, models.AuditLog{
		ActorUserID: actorID,
		ActorType:   actorType,
		Action:      fmt.Sprintf("job_status_%s_to_%s", oldStatus, newStatus),
		EntityType:  "job",
		EntityID:    &job.ID,
		Meta:        map[string]any{"old_status": oldStatus, "new_status": newStatus},
	})

	publishTo(ctx, s.publisher, "events:job", events.EventJobStatusChanged, nil, map[string]any{
		"job_id":     job.ID.String(),
		"old_status": oldStatus,
		"new_status": newStatus,
	})

	return nil
}

func (s *JobService) CreateJob(ctx context.Context, customerID uuid.UUID, job *models.Job) (*models.Job, error) {
	if !models.IsValidBiddingMode(job.BiddingMode) {
		return nil, fmt.Errorf("invalid bidding mode %q, must be one of: open_bid, direct", job.BiddingMode)
	}
	if job.BiddingMode == models.BiddingModeOpen && job.BidDeadline == nil {
		return nil, fmt.Errorf("open-bid jobs require a bid deadline")
	}

	job.CustomerID = customerID
	job.Status = models.JobStatusOpen

	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	_ = s.audit.Log(ctx, models.AuditLog{
		ActorUserID: &customerID,
		ActorType:   "user",
		Action:      "job_created",
		EntityType:  "job",
		EntityID:    &job.ID,
		Meta:        map[string]any{"category": job.Category, "bidding_mode": job.BiddingMode},
	})

	return job, nil
}

// StartWork moves an assigned job to in_progress for jobs that do not require
// escrow. Escrow-backed jobs advance through escrow funding instead.
func (s *JobService) StartWork(ctx context.Context, jobID, actorID uuid.UUID) error {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.ContractorID == nil || *job.ContractorID != actorID {
		return ErrForbidden
	}
	if job.RequiresEscrow {
		return fmt.Errorf("job requires escrow funding before work can start")
	}
	return s.transition(ctx, job, models.JobStatusInProgress, &actorID, "user")
}

// CompleteJob is contractor-only and legal strictly from in_progress. The
// final cost defaults to the agreed price when no override is supplied.
func (s *JobService) CompleteJob(ctx context.Context, jobID, actorID uuid.UUID, finalCostCents *int64) error {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.ContractorID == nil || *job.ContractorID != actorID {
		return ErrForbidden
	}
	if job.Status != models.JobStatusInProgress {
		return &InvalidTransitionError{Current: job.Status, Attempted: models.JobStatusCompleted}
	}

	finalCost := int64(0)
	if job.AgreedPriceCents != nil {
		finalCost = *job.AgreedPriceCents
	}
	if finalCostCents != nil {
		finalCost = *finalCostCents
	}

	ok, err := s.jobs.MarkCompleted(ctx, jobID, finalCost)
	if err != nil {
		return fmt.Errorf("mark job completed: %w", err)
	}
	if !ok {
		current, err := s.jobs.GetByID(ctx, jobID)
		if err != nil {
			return fmt.Errorf("reload job after conflict: %w", err)
		}
		return &InvalidTransitionError{Current: current.Status, Attempted: models.JobStatusCompleted}
	}

	_ = s.audit.Log(ctx, models.AuditLog{
		ActorUserID: &actorID,
		ActorType:   "user",
		Action:      "job_completed",
		EntityType:  "job",
		EntityID:    &jobID,
		Meta:        map[string]any{"final_cost_cents": finalCost},
	})

	publishTo(ctx, s.publisher, "events:job", events.EventJobStatusChanged, &job.CustomerID, map[string]any{
		"job_id":     jobID.String(),
		"old_status": models.JobStatusInProgress,
		"new_status": models.JobStatusCompleted,
	})

	return nil
}

// Invoice moves a completed job to invoiced.
func (s *JobService) Invoice(ctx context.Context, jobID, actorID uuid.UUID) error {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.ContractorID == nil || *job.ContractorID != actorID {
		return ErrForbidden
	}
	return s.transition(ctx, job, models.JobStatusInvoiced, &actorID, "user")
}

// MarkPaid records payment outside the escrow path (e.g. invoiced jobs
// settled directly).
func (s *JobService) MarkPaid(ctx context.Context, jobID, actorID uuid.UUID) error {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.CustomerID != actorID {
		return ErrForbidden
	}
	return s.transition(ctx, job, models.JobStatusPaid, &actorID, "user")
}

// Cancel is legal from any non-terminal status, but never while an escrow
// still holds unreleased, undisputed funds.
func (s *JobService) Cancel(ctx context.Context, jobID, actorID uuid.UUID) error {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.CustomerID != actorID && (job.ContractorID == nil || *job.ContractorID != actorID) {
		return ErrForbidden
	}

	escrow, err := s.escrows.GetByJobID(ctx, jobID)
	if err != nil && !repositories.IsNotFound(err) {
		return fmt.Errorf("check escrow before cancel: %w", err)
	}
	if escrow != nil {
		switch escrow.Status {
		case models.EscrowStatusFunding, models.EscrowStatusFunded, models.EscrowStatusPartiallyReleased:
			return fmt.Errorf("job has %d cents held in escrow; refund it before canceling", escrow.RemainingCents())
		}
	}

	return s.transition(ctx, job, models.JobStatusCanceled, &actorID, "user")
}

// OpenDispute sets the dispute flag without touching the job status, so
// resolution can resume the prior path. While set, escrow release refuses.
func (s *JobService) OpenDispute(ctx context.Context, jobID, actorID uuid.UUID) error {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.CustomerID != actorID && (job.ContractorID == nil || *job.ContractorID != actorID) {
		return ErrForbidden
	}
	switch job.Status {
	case models.JobStatusAssigned, models.JobStatusInProgress, models.JobStatusCompleted:
	default:
		return &InvalidTransitionError{Current: job.Status, Attempted: "disputed"}
	}
	if job.Disputed {
		return &AlreadyProcessedError{Current: "disputed"}
	}

	if err := s.jobs.SetDisputed(ctx, jobID, true); err != nil {
		return fmt.Errorf("set dispute flag: %w", err)
	}

	_ = s.audit.Log(ctx, models.AuditLog{
		ActorUserID: &actorID,
		ActorType:   "user",
		Action:      "job_dispute_opened",
		EntityType:  "job",
		EntityID:    &jobID,
	})
	publishTo(ctx, s.publisher, "events:job", events.EventJobDisputed, nil, map[string]any{
		"job_id":   jobID.String(),
		"disputed": true,
	})
	return nil
}

// ResolveDispute clears the flag. It does not advance the job; the next
// legitimate action resumes normal transitions.
func (s *JobService) ResolveDispute(ctx context.Context, jobID, adminID uuid.UUID) error {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}
	if !job.Disputed {
		return &AlreadyProcessedError{Current: job.Status}
	}

	if err := s.jobs.SetDisputed(ctx, jobID, false); err != nil {
		return fmt.Errorf("clear dispute flag: %w", err)
	}

	_ = s.audit.Log(ctx, models.AuditLog{
		ActorUserID: &adminID,
		ActorType:   "admin",
		Action:      "job_dispute_resolved",
		EntityType:  "job",
		EntityID:    &jobID,
	})
	publishTo(ctx, s.publisher, "events:job", events.EventJobDisputed, nil, map[string]any{
		"job_id":   jobID.String(),
		"disputed": false,
	})
	return nil
}

// CancelExpired auto-cancels an open-bid job whose deadline passed with no
// accepted bid. Called by the worker sweep.
func (s *JobService) CancelExpired(ctx context.Context, jobID uuid.UUID) error {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}
	// An accept that raced the sweep wins; only still-open jobs are canceled.
	if job.Status != models.JobStatusOpen {
		return &AlreadyProcessedError{Current: job.Status}
	}
	return s.transition(ctx, job, models.JobStatusCanceled, nil, "system")
}

func (s *JobService) GetJob(ctx context.Context, id uuid.UUID) (*models.JobWithParties, error) {
	j, err := s.jobs.GetByIDWithParties(ctx, id)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return j, nil
}

func (s *JobService) ListJobs(ctx context.Context, f repositories.JobFilter) ([]models.Job, error) {
	return s.jobs.List(ctx, f)
}

func (s *JobService) getJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}
