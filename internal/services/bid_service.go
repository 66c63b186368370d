package services

import (
	"context"
	"fmt"
	"time"

	"github.com/fixmarket/backend/internal/events"
	"github.com/fixmarket/backend/internal/models"
	"github.com/fixmarket/backend/internal/repositories"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BidStore is the bid persistence contract. Accept performs the job award and
// the bid flip in one transaction so two customers can never both win.
type BidStore interface {
	Create(ctx context.Context, b *models.Bid) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Bid, error)
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]models.Bid, error)
	GetByJobAndContractor(ctx context.Context, jobID, contractorID uuid.UUID) (*models.Bid, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error)
	Accept(ctx context.Context, jobID, bidID uuid.UUID) (bool, error)
}

type BidService struct {
	bids      BidStore
	jobs      JobStore
	audit     AuditLogger
	publisher events.Publisher
	log       *zap.Logger
}

func NewBidService(bids BidStore, jobs JobStore, audit AuditLogger, publisher events.Publisher, log *zap.Logger) *BidService {
	return &BidService{bids: bids, jobs: jobs, audit: audit, publisher: publisher, log: log}
}

// PlaceBid submits a contractor's bid on an open-bid job. One active bid per
// contractor per job; the unique index backs that up.
func (s *BidService) PlaceBid(ctx context.Context, contractorID uuid.UUID, bid *models.Bid) (*models.Bid, error) {
	if bid.AmountCents <= 0 {
		return nil, fmt.Errorf("bid amount must be positive, got %d", bid.AmountCents)
	}

	job, err := s.jobs.GetByID(ctx, bid.JobID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	if job.BiddingMode != models.BiddingModeOpen {
		return nil, fmt.Errorf("job does not accept open bids")
	}
	if job.Status != models.JobStatusOpen {
		return nil, &AlreadyProcessedError{Current: job.Status}
	}
	if job.BidDeadline != nil && time.Now().After(*job.BidDeadline) {
		return nil, ErrExpired
	}
	if job.CustomerID == contractorID {
		return nil, ErrForbidden
	}

	if existing, err := s.bids.GetByJobAndContractor(ctx, bid.JobID, contractorID); err == nil &&
		existing.Status == models.BidStatusActive {
		return nil, fmt.Errorf("contractor already has an active bid on this job")
	}

	bid.ContractorID = contractorID
	bid.Status = models.BidStatusActive
	if err := s.bids.Create(ctx, bid); err != nil {
		return nil, fmt.Errorf("create bid: %w", err)
	}

	_ = s.audit.Log(ctx, models.AuditLog{
		ActorUserID: &contractorID,
		ActorType:   "user",
		Action:      "bid_placed",
		EntityType:  "bid",
		EntityID:    &bid.ID,
		Meta:        map[string]any{"job_id": bid.JobID.String(), "amount_cents": bid.AmountCents},
	})
	publishTo(ctx, s.publisher, "events:bid", events.EventBidPlaced, &job.CustomerID, map[string]any{
		"job_id": bid.JobID.String(),
		"bid_id": bid.ID.String(),
	})
	return bid, nil
}

// AcceptBid awards the job to the bidding contractor. The award, the winning
// bid flip and the sibling declines commit atomically; the loser of a
// concurrent accept gets InvalidTransitionError with the surviving state,
// since awarding a different bid is not a retry of the same mutation.
func (s *BidService) AcceptBid(ctx context.Context, jobID, bidID, customerID uuid.UUID) (*models.Job, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	if job.CustomerID != customerID {
		return nil, ErrForbidden
	}
	if job.Status != models.JobStatusOpen {
		return nil, &InvalidTransitionError{Current: job.Status, Attempted: models.JobStatusAssigned}
	}

	bid, err := s.bids.GetByID(ctx, bidID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get bid: %w", err)
	}
	if bid.JobID != jobID {
		return nil, ErrNotFound
	}
	if bid.Status != models.BidStatusActive {
		return nil, &AlreadyProcessedError{Current: bid.Status}
	}
	if bid.IsExpired(time.Now()) {
		return nil, ErrExpired
	}
	if job.BidDeadline != nil && time.Now().After(*job.BidDeadline) {
		return nil, ErrExpired
	}

	ok, err := s.bids.Accept(ctx, jobID, bidID)
	if err != nil {
		return nil, fmt.Errorf("accept bid: %w", err)
	}
	if !ok {
		current, err := s.jobs.GetByID(ctx, jobID)
		if err != nil {
			return nil, fmt.Errorf("reload job after conflict: %w", err)
		}
		if current.Status != models.JobStatusOpen {
			return nil, &InvalidTransitionError{Current: current.Status, Attempted: models.JobStatusAssigned}
		}
		// The job survived; the bid itself must have flipped underneath us.
		staleBid, err := s.bids.GetByID(ctx, bidID)
		if err != nil {
			return nil, fmt.Errorf("reload bid after conflict: %w", err)
		}
		return nil, &AlreadyProcessedError{Current: staleBid.Status}
	}

	job, err = s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("reload job: %w", err)
	}

	_ = s.audit.Log(ctx, models.AuditLog{
		ActorUserID: &customerID,
		ActorType:   "user",
		Action:      "bid_accepted",
		EntityType:  "bid",
		EntityID:    &bidID,
		Meta: map[string]any{
			"job_id":             jobID.String(),
			"contractor_id":      bid.ContractorID.String(),
			"agreed_price_cents": bid.AmountCents,
		},
	})
	publishTo(ctx, s.publisher, "events:bid", events.EventBidAccepted, &bid.ContractorID, map[string]any{
		"job_id": jobID.String(),
		"bid_id": bidID.String(),
	})
	return job, nil
}

// WithdrawBid retracts an active bid. Accepted bids cannot be withdrawn; the
// job is already awarded.
func (s *BidService) WithdrawBid(ctx context.Context, bidID, contractorID uuid.UUID) error {
	bid, err := s.bids.GetByID(ctx, bidID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("get bid: %w", err)
	}
	if bid.ContractorID != contractorID {
		return ErrForbidden
	}

	ok, err := s.bids.UpdateStatus(ctx, bidID, models.BidStatusActive, models.BidStatusWithdrawn)
	if err != nil {
		return fmt.Errorf("withdraw bid: %w", err)
	}
	if !ok {
		current, err := s.bids.GetByID(ctx, bidID)
		if err != nil {
			return fmt.Errorf("reload bid after conflict: %w", err)
		}
		return &AlreadyProcessedError{Current: current.Status}
	}

	_ = s.audit.Log(ctx, models.AuditLog{
		ActorUserID: &contractorID,
		ActorType:   "user",
		Action:      "bid_withdrawn",
		EntityType:  "bid",
		EntityID:    &bidID,
	})
	return nil
}

// ListBids returns a job's bids. The customer and admins see all of them;
// a contractor sees only their own.
func (s *BidService) ListBids(ctx context.Context, jobID, viewerID uuid.UUID, viewerRole string) ([]models.Bid, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get job: %w", err)
	}

	bids, err := s.bids.ListByJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("list bids: %w", err)
	}
	if viewerRole == models.RoleAdmin || job.CustomerID == viewerID {
		return bids, nil
	}

	var own []models.Bid
	for _, b := range bids {
		if b.ContractorID == viewerID {
			own = append(own, b)
		}
	}
	return own, nil
}
