package services

import (
	"context"
	"fmt"

	"github.com/fixmarket/backend/internal/events"
	"github.com/fixmarket/backend/internal/models"
	"github.com/fixmarket/backend/internal/repositories"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EscrowStore is the escrow persistence contract. ApproveMilestone recomputes
// the released total from completed milestones inside the transaction, so the
// release amount is never client-supplied; both release paths refuse inside
// the guarded write while the linked job is disputed.
type EscrowStore interface {
	CreateWithMilestones(ctx context.Context, e *models.Escrow, milestones []models.Milestone) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Escrow, error)
	GetByJobID(ctx context.Context, jobID uuid.UUID) (*models.Escrow, error)
	ClaimFunding(ctx context.Context, id uuid.UUID) (bool, error)
	AbortFunding(ctx context.Context, id uuid.UUID) (bool, error)
	MarkFunded(ctx context.Context, id uuid.UUID, paymentRef string) (bool, error)
	MarkRefunded(ctx context.Context, id uuid.UUID) (bool, error)
	GetMilestone(ctx context.Context, id uuid.UUID) (*models.Milestone, error)
	ListMilestones(ctx context.Context, escrowID uuid.UUID) ([]models.Milestone, error)
	UpdateMilestoneStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error)
	UpdateMilestoneEvidence(ctx context.Context, id uuid.UUID, gpsVerified bool, photosUploaded int, signatureCaptured bool) error
	ApproveMilestone(ctx context.Context, milestoneID uuid.UUID) (bool, error)
	ReleaseFull(ctx context.Context, id uuid.UUID) (bool, error)
}

type EscrowService struct {
	escrows   EscrowStore
	jobs      JobStore
	rail      PaymentRail
	audit     AuditLogger
	publisher events.Publisher
	log       *zap.Logger
}

func NewEscrowService(escrows EscrowStore, jobs JobStore, rail PaymentRail, audit AuditLogger, publisher events.Publisher, log *zap.Logger) *EscrowService {
	return &EscrowService{escrows: escrows, jobs: jobs, rail: rail, audit: audit, publisher: publisher, log: log}
}

// CreateForJob sets up the escrow and its milestones for an assigned job.
// Milestone amounts must sum exactly to the escrow total.
func (s *EscrowService) CreateForJob(ctx context.Context, jobID, customerID uuid.UUID, milestones []models.Milestone) (*models.Escrow, error) {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.CustomerID != customerID {
		return nil, ErrForbidden
	}
	if job.Status != models.JobStatusAssigned {
		return nil, &InvalidTransitionError{Current: job.Status, Attempted: "escrow_created"}
	}
	if job.AgreedPriceCents == nil {
		return nil, fmt.Errorf("job has no agreed price to escrow")
	}
	if len(milestones) == 0 {
		return nil, fmt.Errorf("escrow requires at least one milestone")
	}

	var sum int64
	for i := range milestones {
		if milestones[i].AmountCents <= 0 {
			return nil, fmt.Errorf("milestone %d amount must be positive, got %d", i, milestones[i].AmountCents)
		}
		milestones[i].Ord = i
		milestones[i].Status = models.MilestoneStatusPending
		sum += milestones[i].AmountCents
	}
	if sum != *job.AgreedPriceCents {
		return nil, &AmountMismatchError{ExpectedCents: *job.AgreedPriceCents, GotCents: sum}
	}

	if existing, err := s.escrows.GetByJobID(ctx, jobID); err == nil {
		return nil, &AlreadyProcessedError{Current: existing.Status}
	} else if !repositories.IsNotFound(err) {
		return nil, fmt.Errorf("check existing escrow: %w", err)
	}

	escrow := &models.Escrow{
		JobID:      jobID,
		TotalCents: *job.AgreedPriceCents,
		Status:     models.EscrowStatusPending,
	}
	if err := s.escrows.CreateWithMilestones(ctx, escrow, milestones); err != nil {
		return nil, fmt.Errorf("create escrow: %w", err)
	}

	_ = s.audit.Log(ctx, models.AuditLog{
		ActorUserID: &customerID,
		ActorType:   "user",
		Action:      "escrow_created",
		EntityType:  "escrow",
		EntityID:    &escrow.ID,
		Meta:        map[string]any{"job_id": jobID.String(), "total_cents": escrow.TotalCents, "milestones": len(milestones)},
	})
	return escrow, nil
}

// Fund records the customer's deposit and starts the work. The amount must
// match the escrow total exactly. The funding claim is taken before the
// payment rail call, so the loser of a racing fund never creates a second
// charge intent.
func (s *EscrowService) Fund(ctx context.Context, escrowID, customerID uuid.UUID, amountCents int64) (*models.Escrow, error) {
	escrow, err := s.getEscrow(ctx, escrowID)
	if err != nil {
		return nil, err
	}
	job, err := s.getJob(ctx, escrow.JobID)
	if err != nil {
		return nil, err
	}
	if job.CustomerID != customerID {
		return nil, ErrForbidden
	}
	if escrow.Status != models.EscrowStatusPending {
		return nil, ErrAlreadyFunded
	}
	if amountCents != escrow.TotalCents {
		return nil, &AmountMismatchError{ExpectedCents: escrow.TotalCents, GotCents: amountCents}
	}

	ok, err := s.escrows.ClaimFunding(ctx, escrowID)
	if err != nil {
		return nil, fmt.Errorf("claim escrow funding: %w", err)
	}
	if !ok {
		return nil, ErrAlreadyFunded
	}

	ref, err := s.rail.CreateChargeIntent(ctx, amountCents, customerID.String())
	if err != nil {
		if _, abortErr := s.escrows.AbortFunding(ctx, escrowID); abortErr != nil {
			s.log.Error("abort escrow funding claim",
				zap.String("escrow_id", escrowID.String()), zap.Error(abortErr))
		}
		return nil, fmt.Errorf("create charge intent: %w", err)
	}

	ok, err = s.escrows.MarkFunded(ctx, escrowID, ref)
	if err != nil {
		return nil, fmt.Errorf("mark escrow funded: %w", err)
	}
	if !ok {
		return nil, ErrAlreadyFunded
	}
	escrow.Status = models.EscrowStatusFunded
	escrow.PaymentRef = &ref

	// Funding is what starts the work on escrow-backed jobs. A lost race here
	// is tolerable; the audit trail still records the funding.
	if _, err := s.jobs.UpdateStatus(ctx, job.ID, models.JobStatusAssigned, models.JobStatusInProgress); err != nil {
		return nil, fmt.Errorf("advance job after funding: %w", err)
	}

	_ = s.audit.Log(ctx, models.AuditLog{
		ActorUserID: &customerID,
		ActorType:   "user",
		Action:      "escrow_funded",
		EntityType:  "escrow",
		EntityID:    &escrowID,
		Meta:        map[string]any{"amount_cents": amountCents, "payment_ref": ref},
	})
	publishTo(ctx, s.publisher, "events:escrow", events.EventEscrowFunded, job.ContractorID, map[string]any{
		"escrow_id": escrowID.String(),
		"job_id":    job.ID.String(),
	})
	return escrow, nil
}

// StartMilestone moves the next pending milestone into progress.
func (s *EscrowService) StartMilestone(ctx context.Context, milestoneID, contractorID uuid.UUID) error {
	_, job, err := s.getMilestoneJob(ctx, milestoneID)
	if err != nil {
		return err
	}
	if job.ContractorID == nil || *job.ContractorID != contractorID {
		return ErrForbidden
	}

	ok, err := s.escrows.UpdateMilestoneStatus(ctx, milestoneID, models.MilestoneStatusPending, models.MilestoneStatusInProgress)
	if err != nil {
		return fmt.Errorf("start milestone: %w", err)
	}
	if !ok {
		current, err := s.escrows.GetMilestone(ctx, milestoneID)
		if err != nil {
			return fmt.Errorf("reload milestone after conflict: %w", err)
		}
		return &InvalidTransitionError{Current: current.Status, Attempted: models.MilestoneStatusInProgress}
	}
	return nil
}

// EvidenceInput carries the verification artifacts the contractor submits.
type EvidenceInput struct {
	GPSVerified       bool
	PhotosUploaded    int
	SignatureCaptured bool
}

// SubmitEvidence records verification artifacts on an in-progress milestone.
func (s *EscrowService) SubmitEvidence(ctx context.Context, milestoneID, contractorID uuid.UUID, in EvidenceInput) error {
	m, job, err := s.getMilestoneJob(ctx, milestoneID)
	if err != nil {
		return err
	}
	if job.ContractorID == nil || *job.ContractorID != contractorID {
		return ErrForbidden
	}
	if m.Status != models.MilestoneStatusInProgress {
		return ErrNotInProgress
	}

	if err := s.escrows.UpdateMilestoneEvidence(ctx, milestoneID,
		m.GPSVerified || in.GPSVerified,
		m.PhotosUploaded+in.PhotosUploaded,
		m.SignatureCaptured || in.SignatureCaptured,
	); err != nil {
		return fmt.Errorf("record milestone evidence: %w", err)
	}
	return nil
}

// CompleteMilestone moves an in-progress milestone to pending approval.
// Every declared verification requirement must be satisfied first.
func (s *EscrowService) CompleteMilestone(ctx context.Context, milestoneID, contractorID uuid.UUID) error {
	m, job, err := s.getMilestoneJob(ctx, milestoneID)
	if err != nil {
		return err
	}
	if job.ContractorID == nil || *job.ContractorID != contractorID {
		return ErrForbidden
	}
	if m.Status != models.MilestoneStatusInProgress {
		return ErrNotInProgress
	}
	if missing := m.UnmetRequirements(); len(missing) > 0 {
		return &VerificationFailedError{Missing: missing}
	}

	ok, err := s.escrows.UpdateMilestoneStatus(ctx, milestoneID, models.MilestoneStatusInProgress, models.MilestoneStatusPendingApproval)
	if err != nil {
		return fmt.Errorf("complete milestone: %w", err)
	}
	if !ok {
		current, err := s.escrows.GetMilestone(ctx, milestoneID)
		if err != nil {
			return fmt.Errorf("reload milestone after conflict: %w", err)
		}
		return &InvalidTransitionError{Current: current.Status, Attempted: models.MilestoneStatusPendingApproval}
	}

	_ = s.audit.Log(ctx, models.AuditLog{
		ActorUserID: &contractorID,
		ActorType:   "user",
		Action:      "milestone_completed",
		EntityType:  "milestone",
		EntityID:    &milestoneID,
	})
	return nil
}

// ApproveMilestone releases the milestone's amount. The new released total is
// recomputed from completed milestones in one transaction; a job under
// dispute freezes all approvals.
func (s *EscrowService) ApproveMilestone(ctx context.Context, milestoneID, customerID uuid.UUID) (*models.Escrow, error) {
	m, job, err := s.getMilestoneJob(ctx, milestoneID)
	if err != nil {
		return nil, err
	}
	if job.CustomerID != customerID {
		return nil, ErrForbidden
	}
	if job.Disputed {
		return nil, ErrDisputed
	}

	ok, err := s.escrows.ApproveMilestone(ctx, milestoneID)
	if err != nil {
		return nil, fmt.Errorf("approve milestone: %w", err)
	}
	if !ok {
		// A dispute opened after the read above still blocks the write.
		if fresh, err := s.getJob(ctx, job.ID); err == nil && fresh.Disputed {
			return nil, ErrDisputed
		}
		current, err := s.escrows.GetMilestone(ctx, milestoneID)
		if err != nil {
			return nil, fmt.Errorf("reload milestone after conflict: %w", err)
		}
		return nil, &InvalidTransitionError{Current: current.Status, Attempted: models.MilestoneStatusCompleted}
	}

	escrow, err := s.getEscrow(ctx, m.EscrowID)
	if err != nil {
		return nil, err
	}

	_ = s.audit.Log(ctx, models.AuditLog{
		ActorUserID: &customerID,
		ActorType:   "user",
		Action:      "milestone_approved",
		EntityType:  "milestone",
		EntityID:    &milestoneID,
		Meta:        map[string]any{"amount_cents": m.AmountCents, "released_cents": escrow.ReleasedCents},
	})
	publishTo(ctx, s.publisher, "events:escrow", events.EventMilestoneApproved, job.ContractorID, map[string]any{
		"milestone_id":   milestoneID.String(),
		"escrow_id":      escrow.ID.String(),
		"released_cents": escrow.ReleasedCents,
	})
	return escrow, nil
}

// ReleaseFull pays out everything still held. Legal only once the job is
// completed, never under dispute, and at most once.
func (s *EscrowService) ReleaseFull(ctx context.Context, escrowID, customerID uuid.UUID) (*models.Escrow, error) {
	escrow, err := s.getEscrow(ctx, escrowID)
	if err != nil {
		return nil, err
	}
	job, err := s.getJob(ctx, escrow.JobID)
	if err != nil {
		return nil, err
	}
	if job.CustomerID != customerID {
		return nil, ErrForbidden
	}
	if job.Disputed {
		return nil, ErrDisputed
	}
	// Already-released wins over the job gate: the first release advanced the
	// job to paid, and a retry must hear that, not "not completed".
	if escrow.RemainingCents() == 0 {
		return nil, ErrAlreadyReleased
	}
	if job.Status != models.JobStatusCompleted {
		return nil, ErrNotCompleted
	}

	ok, err := s.escrows.ReleaseFull(ctx, escrowID)
	if err != nil {
		return nil, fmt.Errorf("release escrow: %w", err)
	}
	if !ok {
		if fresh, err := s.getJob(ctx, job.ID); err == nil && fresh.Disputed {
			return nil, ErrDisputed
		}
		return nil, ErrAlreadyReleased
	}

	if _, err := s.jobs.UpdateStatus(ctx, job.ID, models.JobStatusCompleted, models.JobStatusPaid); err != nil {
		return nil, fmt.Errorf("advance job after release: %w", err)
	}

	escrow, err = s.getEscrow(ctx, escrowID)
	if err != nil {
		return nil, err
	}

	_ = s.audit.Log(ctx, models.AuditLog{
		ActorUserID: &customerID,
		ActorType:   "user",
		Action:      "escrow_released",
		EntityType:  "escrow",
		EntityID:    &escrowID,
		Meta:        map[string]any{"total_cents": escrow.TotalCents},
	})
	publishTo(ctx, s.publisher, "events:escrow", events.EventEscrowReleased, job.ContractorID, map[string]any{
		"escrow_id": escrowID.String(),
		"job_id":    job.ID.String(),
	})
	return escrow, nil
}

// Refund returns the held funds to the customer, e.g. on dispute resolution
// or cancellation. Admin-only; already released amounts cannot be clawed back.
func (s *EscrowService) Refund(ctx context.Context, escrowID, adminID uuid.UUID) (*models.Escrow, error) {
	escrow, err := s.getEscrow(ctx, escrowID)
	if err != nil {
		return nil, err
	}
	switch escrow.Status {
	case models.EscrowStatusFunded, models.EscrowStatusPartiallyReleased:
	default:
		return nil, &InvalidTransitionError{Current: escrow.Status, Attempted: models.EscrowStatusRefunded}
	}

	ok, err := s.escrows.MarkRefunded(ctx, escrowID)
	if err != nil {
		return nil, fmt.Errorf("refund escrow: %w", err)
	}
	if !ok {
		current, err := s.getEscrow(ctx, escrowID)
		if err != nil {
			return nil, err
		}
		return nil, &AlreadyProcessedError{Current: current.Status}
	}
	remaining := escrow.RemainingCents()
	escrow.Status = models.EscrowStatusRefunded

	_ = s.audit.Log(ctx, models.AuditLog{
		ActorUserID: &adminID,
		ActorType:   "admin",
		Action:      "escrow_refunded",
		EntityType:  "escrow",
		EntityID:    &escrowID,
		Meta:        map[string]any{"refunded_cents": remaining},
	})
	publishTo(ctx, s.publisher, "events:escrow", events.EventEscrowRefunded, nil, map[string]any{
		"escrow_id":      escrowID.String(),
		"refunded_cents": remaining,
	})
	return escrow, nil
}

func (s *EscrowService) GetByJob(ctx context.Context, jobID uuid.UUID) (*models.Escrow, []models.Milestone, error) {
	escrow, err := s.escrows.GetByJobID(ctx, jobID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("get escrow: %w", err)
	}
	milestones, err := s.escrows.ListMilestones(ctx, escrow.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("list milestones: %w", err)
	}
	return escrow, milestones, nil
}

func (s *EscrowService) getEscrow(ctx context.Context, id uuid.UUID) (*models.Escrow, error) {
	e, err := s.escrows.GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get escrow: %w", err)
	}
	return e, nil
}

func (s *EscrowService) getJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

func (s *EscrowService) getMilestoneJob(ctx context.Context, milestoneID uuid.UUID) (*models.Milestone, *models.Job, error) {
	m, err := s.escrows.GetMilestone(ctx, milestoneID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("get milestone: %w", err)
	}
	escrow, err := s.getEscrow(ctx, m.EscrowID)
	if err != nil {
		return nil, nil, err
	}
	job, err := s.getJob(ctx, escrow.JobID)
	if err != nil {
		return nil, nil, err
	}
	return m, job, nil
}
