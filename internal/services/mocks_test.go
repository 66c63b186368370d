package services

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/fixmarket/backend/internal/config"
	"github.com/fixmarket/backend/internal/events"
	"github.com/fixmarket/backend/internal/models"
	"github.com/fixmarket/backend/internal/repositories"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// Shared in-memory stores. Each mirrors the guarded-update semantics of the
// real repository: status writes succeed only from the expected state.
// ---------------------------------------------------------------------------

type memAudit struct {
	mu      sync.Mutex
	entries []models.AuditLog
}

func (a *memAudit) Log(_ context.Context, entry models.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
	return nil
}

type memPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *memPublisher) Publish(_ context.Context, _ string, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

type stubGate struct {
	enabled map[uuid.UUID]bool
}

func (g *stubGate) IsFeatureEnabled(_ context.Context, contractorID uuid.UUID, _ string) (bool, error) {
	return g.enabled[contractorID], nil
}

type stubRail struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (r *stubRail) CreateChargeIntent(_ context.Context, _ int64, _ string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return "", r.err
	}
	r.calls++
	return "pay_ref_001", nil
}

// ---------------------------------------------------------------------------
// Jobs
// ---------------------------------------------------------------------------

type memJobStore struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*models.Job
}

func newMemJobStore() *memJobStore {
	return &memJobStore{jobs: make(map[uuid.UUID]*models.Job)}
}

func (s *memJobStore) Create(_ context.Context, j *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j.ID = uuid.New()
	j.CreatedAt = time.Now()
	cp := *j
	s.jobs[j.ID] = &cp
	return nil
}

func (s *memJobStore) GetByID(_ context.Context, id uuid.UUID) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *j
	return &cp, nil
}

func (s *memJobStore) GetByIDWithParties(ctx context.Context, id uuid.UUID) (*models.JobWithParties, error) {
	j, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.JobWithParties{Job: *j}, nil
}

func (s *memJobStore) List(_ context.Context, _ repositories.JobFilter) ([]models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Job
	for _, j := range s.jobs {
		out = append(out, *j)
	}
	return out, nil
}

func (s *memJobStore) UpdateStatus(_ context.Context, id uuid.UUID, from, to string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok || j.Status != from {
		return false, nil
	}
	j.Status = to
	return true, nil
}

func (s *memJobStore) MarkCompleted(_ context.Context, id uuid.UUID, finalCostCents int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok || j.Status != models.JobStatusInProgress {
		return false, nil
	}
	j.Status = models.JobStatusCompleted
	j.FinalCostCents = &finalCostCents
	return true, nil
}

func (s *memJobStore) SetDisputed(_ context.Context, id uuid.UUID, disputed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return pgx.ErrNoRows
	}
	j.Disputed = disputed
	return nil
}

func (s *memJobStore) put(j *models.Job) *models.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	cp := *j
	s.jobs[j.ID] = &cp
	return j
}

// ---------------------------------------------------------------------------
// Bids
// ---------------------------------------------------------------------------

type memBidStore struct {
	mu   sync.Mutex
	bids map[uuid.UUID]*models.Bid
	jobs *memJobStore
}

func newMemBidStore(jobs *memJobStore) *memBidStore {
	return &memBidStore{bids: make(map[uuid.UUID]*models.Bid), jobs: jobs}
}

func (s *memBidStore) Create(_ context.Context, b *models.Bid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.ID = uuid.New()
	cp := *b
	s.bids[b.ID] = &cp
	return nil
}

func (s *memBidStore) GetByID(_ context.Context, id uuid.UUID) (*models.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bids[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *b
	return &cp, nil
}

func (s *memBidStore) ListByJob(_ context.Context, jobID uuid.UUID) ([]models.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Bid
	for _, b := range s.bids {
		if b.JobID == jobID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (s *memBidStore) GetByJobAndContractor(_ context.Context, jobID, contractorID uuid.UUID) (*models.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bids {
		if b.JobID == jobID && b.ContractorID == contractorID {
			cp := *b
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *memBidStore) UpdateStatus(_ context.Context, id uuid.UUID, from, to string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bids[id]
	if !ok || b.Status != from {
		return false, nil
	}
	b.Status = to
	return true, nil
}

// Accept mirrors the single-transaction award: the job row flips off 'open'
// and the winning/losing bids flip with it, all under one lock.
func (s *memBidStore) Accept(_ context.Context, jobID, bidID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs.mu.Lock()
	defer s.jobs.mu.Unlock()

	job, ok := s.jobs.jobs[jobID]
	if !ok || job.Status != models.JobStatusOpen {
		return false, nil
	}
	bid, ok := s.bids[bidID]
	if !ok || bid.JobID != jobID || bid.Status != models.BidStatusActive {
		return false, nil
	}

	job.Status = models.JobStatusAssigned
	job.ContractorID = &bid.ContractorID
	price := bid.AmountCents
	job.AgreedPriceCents = &price
	bid.Status = models.BidStatusAccepted
	for _, other := range s.bids {
		if other.JobID == jobID && other.ID != bidID && other.Status == models.BidStatusActive {
			other.Status = models.BidStatusDeclined
		}
	}
	return true, nil
}

// ---------------------------------------------------------------------------
// Quotes
// ---------------------------------------------------------------------------

type memQuoteStore struct {
	mu       sync.Mutex
	quotes   map[uuid.UUID]*models.Quote
	counters map[uuid.UUID][]models.CounterOffer
	jobs     *memJobStore
}

func newMemQuoteStore(jobs *memJobStore) *memQuoteStore {
	return &memQuoteStore{
		quotes:   make(map[uuid.UUID]*models.Quote),
		counters: make(map[uuid.UUID][]models.CounterOffer),
		jobs:     jobs,
	}
}

func (s *memQuoteStore) Create(_ context.Context, q *models.Quote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q.ID = uuid.New()
	cp := *q
	s.quotes[q.ID] = &cp
	return nil
}

func (s *memQuoteStore) GetByID(_ context.Context, id uuid.UUID) (*models.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quotes[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *q
	return &cp, nil
}

func (s *memQuoteStore) ListByJob(_ context.Context, jobID uuid.UUID) ([]models.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Quote
	for _, q := range s.quotes {
		if q.JobID == jobID {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (s *memQuoteStore) MarkViewed(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quotes[id]
	if !ok || q.Status != models.QuoteStatusPending {
		return false, nil
	}
	q.Status = models.QuoteStatusViewed
	return true, nil
}

func (s *memQuoteStore) UpdateStatus(_ context.Context, id uuid.UUID, from, to string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quotes[id]
	if !ok || q.Status != from {
		return false, nil
	}
	q.Status = to
	return true, nil
}

func (s *memQuoteStore) AddCounterOffer(_ context.Context, c *models.CounterOffer, fromStatuses []string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quotes[c.QuoteID]
	if !ok || !slices.Contains(fromStatuses, q.Status) {
		return false, nil
	}
	q.Status = models.QuoteStatusCounterOffered
	q.TotalPriceCents = c.PriceCents
	q.CounterOfferCount++
	q.ValidUntil = c.ValidUntil
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	s.counters[c.QuoteID] = append(s.counters[c.QuoteID], *c)
	return true, nil
}

func (s *memQuoteStore) ListCounterOffers(_ context.Context, quoteID uuid.UUID) ([]models.CounterOffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.counters[quoteID]), nil
}

func (s *memQuoteStore) Accept(_ context.Context, quoteID uuid.UUID, agreedPriceCents int64, fromStatuses []string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs.mu.Lock()
	defer s.jobs.mu.Unlock()

	q, ok := s.quotes[quoteID]
	if !ok || !slices.Contains(fromStatuses, q.Status) {
		return false, nil
	}
	job, ok := s.jobs.jobs[q.JobID]
	if !ok || job.Status != models.JobStatusOpen {
		return false, nil
	}

	job.Status = models.JobStatusAssigned
	job.ContractorID = &q.ContractorID
	price := agreedPriceCents
	job.AgreedPriceCents = &price
	q.Status = models.QuoteStatusAccepted
	return true, nil
}

// ---------------------------------------------------------------------------
// Leads
// ---------------------------------------------------------------------------

type memLeadStore struct {
	mu      sync.Mutex
	matches map[uuid.UUID]*models.LeadMatch
}

func newMemLeadStore() *memLeadStore {
	return &memLeadStore{matches: make(map[uuid.UUID]*models.LeadMatch)}
}

func (s *memLeadStore) Create(_ context.Context, m *models.LeadMatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.matches {
		if existing.JobID == m.JobID && existing.ContractorID == m.ContractorID {
			return pgx.ErrNoRows
		}
	}
	m.ID = uuid.New()
	m.CreatedAt = time.Now()
	cp := *m
	s.matches[m.ID] = &cp
	return nil
}

func (s *memLeadStore) GetByID(_ context.Context, id uuid.UUID) (*models.LeadMatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *m
	return &cp, nil
}

func (s *memLeadStore) GetByJobAndContractor(_ context.Context, jobID, contractorID uuid.UUID) (*models.LeadMatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.matches {
		if m.JobID == jobID && m.ContractorID == contractorID {
			cp := *m
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *memLeadStore) ListByContractor(_ context.Context, contractorID uuid.UUID, status *string, _, _ int) ([]models.LeadMatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.LeadMatch
	for _, m := range s.matches {
		if m.ContractorID != contractorID {
			continue
		}
		if status != nil && m.Status != *status {
			continue
		}
		out = append(out, *m)
	}
	return out, nil
}

func (s *memLeadStore) MarkResponded(_ context.Context, id uuid.UUID, to string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[id]
	if !ok || m.Status != models.LeadStatusPending {
		return false, nil
	}
	m.Status = to
	now := time.Now()
	m.RespondedAt = &now
	return true, nil
}

func (s *memLeadStore) MarkViewed(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[id]
	if !ok || m.Status != models.LeadStatusSent {
		return false, nil
	}
	m.Status = models.LeadStatusViewed
	return true, nil
}

func (s *memLeadStore) SetChargeTx(_ context.Context, id, txID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[id]
	if !ok || m.ChargeTxID != nil {
		return false, nil
	}
	m.ChargeTxID = &txID
	return true, nil
}

// ---------------------------------------------------------------------------
// Credits
// ---------------------------------------------------------------------------

type memCreditStore struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*models.CreditAccount // keyed by contractor
	txs      []models.CreditTransaction
}

func newMemCreditStore() *memCreditStore {
	return &memCreditStore{accounts: make(map[uuid.UUID]*models.CreditAccount)}
}

func (s *memCreditStore) account(contractorID uuid.UUID) *models.CreditAccount {
	a, ok := s.accounts[contractorID]
	if !ok {
		a = &models.CreditAccount{ID: uuid.New(), ContractorID: contractorID}
		s.accounts[contractorID] = a
	}
	return a
}

func (s *memCreditStore) GetOrCreateAccount(_ context.Context, contractorID uuid.UUID) (*models.CreditAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *s.account(contractorID)
	return &cp, nil
}

func (s *memCreditStore) GetAccount(_ context.Context, contractorID uuid.UUID) (*models.CreditAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[contractorID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

// Charge mirrors the conditional UPDATE: the balance check and the debit are
// one critical section, so concurrent overdraws cannot both pass.
func (s *memCreditStore) Charge(_ context.Context, contractorID uuid.UUID, amountCents int64, txType, reason string, leadMatchID *uuid.UUID) (*models.CreditTransaction, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[contractorID]
	if !ok || a.BalanceCents < amountCents {
		return nil, false, nil
	}
	a.BalanceCents -= amountCents
	a.TxCount++
	t := models.CreditTransaction{
		ID:                uuid.New(),
		AccountID:         a.ID,
		Seq:               a.TxCount,
		AmountCents:       -amountCents,
		BalanceAfterCents: a.BalanceCents,
		TxType:            txType,
		Reason:            reason,
		LeadMatchID:       leadMatchID,
		CreatedAt:         time.Now(),
	}
	s.txs = append(s.txs, t)
	cp := t
	return &cp, true, nil
}

func (s *memCreditStore) Credit(_ context.Context, contractorID uuid.UUID, amountCents int64, txType, reason string) (*models.CreditTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.account(contractorID)
	a.BalanceCents += amountCents
	a.TxCount++
	t := models.CreditTransaction{
		ID:                uuid.New(),
		AccountID:         a.ID,
		Seq:               a.TxCount,
		AmountCents:       amountCents,
		BalanceAfterCents: a.BalanceCents,
		TxType:            txType,
		Reason:            reason,
		CreatedAt:         time.Now(),
	}
	s.txs = append(s.txs, t)
	cp := t
	return &cp, nil
}

func (s *memCreditStore) ListTransactions(_ context.Context, accountID uuid.UUID, _, _ int) ([]models.CreditTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.CreditTransaction
	for _, t := range s.txs {
		if t.AccountID == accountID {
			out = append(out, t)
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Escrow
// ---------------------------------------------------------------------------

type memEscrowStore struct {
	mu         sync.Mutex
	escrows    map[uuid.UUID]*models.Escrow
	milestones map[uuid.UUID]*models.Milestone
	jobs       *memJobStore
}

func newMemEscrowStore(jobs *memJobStore) *memEscrowStore {
	return &memEscrowStore{
		escrows:    make(map[uuid.UUID]*models.Escrow),
		milestones: make(map[uuid.UUID]*models.Milestone),
		jobs:       jobs,
	}
}

// jobDisputed reads the linked job's dispute flag under the jobs lock, like
// the SQL guard joining jobs inside the release transaction.
func (s *memEscrowStore) jobDisputed(jobID uuid.UUID) bool {
	s.jobs.mu.Lock()
	defer s.jobs.mu.Unlock()
	j, ok := s.jobs.jobs[jobID]
	return ok && j.Disputed
}

func (s *memEscrowStore) CreateWithMilestones(_ context.Context, e *models.Escrow, milestones []models.Milestone) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = uuid.New()
	cp := *e
	s.escrows[e.ID] = &cp
	for i := range milestones {
		milestones[i].ID = uuid.New()
		milestones[i].EscrowID = e.ID
		m := milestones[i]
		s.milestones[m.ID] = &m
	}
	return nil
}

func (s *memEscrowStore) GetByID(_ context.Context, id uuid.UUID) (*models.Escrow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.escrows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *e
	return &cp, nil
}

func (s *memEscrowStore) GetByJobID(_ context.Context, jobID uuid.UUID) (*models.Escrow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.escrows {
		if e.JobID == jobID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *memEscrowStore) ClaimFunding(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.escrows[id]
	if !ok || e.Status != models.EscrowStatusPending {
		return false, nil
	}
	e.Status = models.EscrowStatusFunding
	return true, nil
}

func (s *memEscrowStore) AbortFunding(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.escrows[id]
	if !ok || e.Status != models.EscrowStatusFunding {
		return false, nil
	}
	e.Status = models.EscrowStatusPending
	return true, nil
}

func (s *memEscrowStore) MarkFunded(_ context.Context, id uuid.UUID, paymentRef string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.escrows[id]
	if !ok || e.Status != models.EscrowStatusFunding {
		return false, nil
	}
	e.Status = models.EscrowStatusFunded
	e.PaymentRef = &paymentRef
	now := time.Now()
	e.FundedAt = &now
	return true, nil
}

func (s *memEscrowStore) MarkRefunded(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.escrows[id]
	if !ok {
		return false, nil
	}
	switch e.Status {
	case models.EscrowStatusFunded, models.EscrowStatusPartiallyReleased:
	default:
		return false, nil
	}
	e.Status = models.EscrowStatusRefunded
	now := time.Now()
	e.RefundedAt = &now
	return true, nil
}

func (s *memEscrowStore) GetMilestone(_ context.Context, id uuid.UUID) (*models.Milestone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.milestones[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *m
	return &cp, nil
}

func (s *memEscrowStore) ListMilestones(_ context.Context, escrowID uuid.UUID) ([]models.Milestone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Milestone
	for _, m := range s.milestones {
		if m.EscrowID == escrowID {
			out = append(out, *m)
		}
	}
	slices.SortFunc(out, func(a, b models.Milestone) int { return a.Ord - b.Ord })
	return out, nil
}

func (s *memEscrowStore) UpdateMilestoneStatus(_ context.Context, id uuid.UUID, from, to string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.milestones[id]
	if !ok || m.Status != from {
		return false, nil
	}
	m.Status = to
	return true, nil
}

func (s *memEscrowStore) UpdateMilestoneEvidence(_ context.Context, id uuid.UUID, gpsVerified bool, photosUploaded int, signatureCaptured bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.milestones[id]
	if !ok {
		return pgx.ErrNoRows
	}
	m.GPSVerified = gpsVerified
	m.PhotosUploaded = photosUploaded
	m.SignatureCaptured = signatureCaptured
	return nil
}

// ApproveMilestone completes the milestone and recomputes the escrow's
// released total from completed milestones, like the SQL transaction does.
// The linked job's dispute flag is re-checked inside the write.
func (s *memEscrowStore) ApproveMilestone(_ context.Context, milestoneID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.milestones[milestoneID]
	if !ok || m.Status != models.MilestoneStatusPendingApproval {
		return false, nil
	}
	if s.jobDisputed(s.escrows[m.EscrowID].JobID) {
		return false, nil
	}
	m.Status = models.MilestoneStatusCompleted
	now := time.Now()
	m.ApprovedAt = &now

	e := s.escrows[m.EscrowID]
	var released int64
	for _, other := range s.milestones {
		if other.EscrowID == m.EscrowID && other.Status == models.MilestoneStatusCompleted {
			released += other.AmountCents
		}
	}
	e.ReleasedCents = released
	if released >= e.TotalCents {
		e.Status = models.EscrowStatusReleased
	} else {
		e.Status = models.EscrowStatusPartiallyReleased
	}
	return true, nil
}

func (s *memEscrowStore) ReleaseFull(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.escrows[id]
	if !ok {
		return false, nil
	}
	switch e.Status {
	case models.EscrowStatusFunded, models.EscrowStatusPartiallyReleased:
	default:
		return false, nil
	}
	if e.ReleasedCents >= e.TotalCents {
		return false, nil
	}
	if s.jobDisputed(e.JobID) {
		return false, nil
	}
	e.ReleasedCents = e.TotalCents
	e.Status = models.EscrowStatusReleased
	return true, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

type stubFinder struct {
	contractors []models.User
}

func (f *stubFinder) FindContractorsByCategory(_ context.Context, _ string, _ int) ([]models.User, error) {
	return f.contractors, nil
}

func testConfig() *config.Config {
	return &config.Config{
		LeadDefaultCostCents: 1500,
		QuoteValidityDays:    14,
		CounterOfferWindow:   7 * 24 * time.Hour,
		CounterOfferFloorBPS: 5000,
		MaxCounterOffers:     10,
	}
}

var testLogger = zap.NewNop()
