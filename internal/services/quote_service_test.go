package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fixmarket/backend/internal/models"
	"github.com/google/uuid"
)

type quoteFixture struct {
	svc          *QuoteService
	jobs         *memJobStore
	quotes       *memQuoteStore
	leads        *memLeadStore
	gate         *stubGate
	customerID   uuid.UUID
	contractorID uuid.UUID
	job          *models.Job
}

// newQuoteFixture seeds a direct job and a responded lead so the contractor
// is allowed to quote.
func newQuoteFixture() *quoteFixture {
	jobs := newMemJobStore()
	quotes := newMemQuoteStore(jobs)
	leads := newMemLeadStore()
	gate := &stubGate{enabled: map[uuid.UUID]bool{}}

	f := &quoteFixture{
		svc:          nil,
		jobs:         jobs,
		quotes:       quotes,
		leads:        leads,
		gate:         gate,
		customerID:   uuid.New(),
		contractorID: uuid.New(),
	}
	f.svc = NewQuoteService(quotes, jobs, leads, gate, &memAudit{}, &memPublisher{}, testConfig(), testLogger)
	f.job = jobs.put(&models.Job{
		CustomerID:  f.customerID,
		Category:    "electrical",
		Title:       "Rewire garage",
		BiddingMode: models.BiddingModeDirect,
		Status:      models.JobStatusOpen,
	})
	_ = leads.Create(context.Background(), &models.LeadMatch{
		JobID:         f.job.ID,
		ContractorID:  f.contractorID,
		Status:        models.LeadStatusSent,
		PricingModel:  models.LeadPricingPerLead,
		LeadCostCents: 1500,
	})
	return f
}

func (f *quoteFixture) issue(t *testing.T, totalCents int64) *models.Quote {
	t.Helper()
	q, err := f.svc.IssueQuote(context.Background(), f.contractorID, &models.Quote{
		JobID:           f.job.ID,
		BasePriceCents:  totalCents,
		TotalPriceCents: totalCents,
	})
	if err != nil {
		t.Fatalf("IssueQuote: %v", err)
	}
	return q
}

func TestIssueQuote(t *testing.T) {
	ctx := context.Background()
	f := newQuoteFixture()

	q := f.issue(t, 100000)
	if q.Status != models.QuoteStatusPending {
		t.Errorf("quote status = %q, want pending", q.Status)
	}
	if q.OriginalTotalCents != 100000 {
		t.Errorf("original total = %d, want 100000", q.OriginalTotalCents)
	}
	if q.CustomerID != f.customerID {
		t.Errorf("quote customer = %s, want %s", q.CustomerID, f.customerID)
	}
	if !q.ValidUntil.After(time.Now().AddDate(0, 0, 13)) {
		t.Errorf("validity window too short: %s", q.ValidUntil)
	}

	// No lead, no quote.
	_, err := f.svc.IssueQuote(ctx, uuid.New(), &models.Quote{JobID: f.job.ID, TotalPriceCents: 90000})
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("cold quote err = %v, want ErrForbidden", err)
	}
}

func TestIssueQuoteRefusedOnOpenBidJob(t *testing.T) {
	ctx := context.Background()
	f := newQuoteFixture()
	deadline := time.Now().Add(24 * time.Hour)
	bidJob := f.jobs.put(&models.Job{
		CustomerID:  f.customerID,
		BiddingMode: models.BiddingModeOpen,
		Status:      models.JobStatusOpen,
		BidDeadline: &deadline,
	})

	_, err := f.svc.IssueQuote(ctx, f.contractorID, &models.Quote{JobID: bidJob.ID, TotalPriceCents: 90000})
	if err == nil {
		t.Error("quote on an open-bid job was accepted")
	}
}

func TestCustomerCounterFloor(t *testing.T) {
	ctx := context.Background()
	f := newQuoteFixture()
	q := f.issue(t, 100000)

	// Exactly half the original total is the lowest legal customer counter.
	t.Run("at the floor", func(t *testing.T) {
		updated, err := f.svc.Counter(ctx, q.ID, f.customerID, 50000, nil, nil)
		if err != nil {
			t.Fatalf("Counter: %v", err)
		}
		if updated.TotalPriceCents != 50000 {
			t.Errorf("running total = %d, want 50000", updated.TotalPriceCents)
		}
		if updated.Status != models.QuoteStatusCounterOffered {
			t.Errorf("status = %q, want counter_offered", updated.Status)
		}
	})

	t.Run("one cent below the floor", func(t *testing.T) {
		q2 := f.issue(t, 100000)
		var rangeErr *PriceOutOfRangeError
		_, err := f.svc.Counter(ctx, q2.ID, f.customerID, 49999, nil, nil)
		if !errors.As(err, &rangeErr) {
			t.Fatalf("err = %v, want PriceOutOfRangeError", err)
		}
		if rangeErr.MinCents != 50000 {
			t.Errorf("reported floor = %d, want 50000", rangeErr.MinCents)
		}
	})

	t.Run("not below the standing offer", func(t *testing.T) {
		q3 := f.issue(t, 100000)
		var rangeErr *PriceOutOfRangeError
		if _, err := f.svc.Counter(ctx, q3.ID, f.customerID, 100000, nil, nil); !errors.As(err, &rangeErr) {
			t.Errorf("counter at asking price err = %v, want PriceOutOfRangeError", err)
		}
	})
}

func TestCounterAlternation(t *testing.T) {
	ctx := context.Background()
	f := newQuoteFixture()
	q := f.issue(t, 100000)

	// The contractor holds the standing offer; they cannot counter themselves.
	f.gate.enabled[f.contractorID] = true
	if _, err := f.svc.Counter(ctx, q.ID, f.contractorID, 90000, nil, nil); err == nil {
		t.Error("contractor countered their own standing offer")
	}

	if _, err := f.svc.Counter(ctx, q.ID, f.customerID, 60000, nil, nil); err != nil {
		t.Fatalf("customer counter: %v", err)
	}

	// Now the customer holds it.
	if _, err := f.svc.Counter(ctx, q.ID, f.customerID, 55000, nil, nil); err == nil {
		t.Error("customer countered twice in a row")
	}
}

func TestContractorCounter(t *testing.T) {
	ctx := context.Background()
	f := newQuoteFixture()
	q := f.issue(t, 100000)
	if _, err := f.svc.Counter(ctx, q.ID, f.customerID, 60000, nil, nil); err != nil {
		t.Fatalf("customer counter: %v", err)
	}

	t.Run("pro tier required", func(t *testing.T) {
		var lockErr *FeatureLockedError
		_, err := f.svc.Counter(ctx, q.ID, f.contractorID, 80000, nil, nil)
		if !errors.As(err, &lockErr) {
			t.Fatalf("free-tier counter err = %v, want FeatureLockedError", err)
		}
	})

	f.gate.enabled[f.contractorID] = true

	t.Run("must land strictly between", func(t *testing.T) {
		cases := []struct {
			name  string
			price int64
		}{
			{"at the customer's counter", 60000},
			{"below the customer's counter", 55000},
			{"at the previous offer", 100000},
			{"above the previous offer", 110000},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				var rangeErr *PriceOutOfRangeError
				if _, err := f.svc.Counter(ctx, q.ID, f.contractorID, tc.price, nil, nil); !errors.As(err, &rangeErr) {
					t.Errorf("price %d err = %v, want PriceOutOfRangeError", tc.price, err)
				}
			})
		}
	})

	t.Run("between is accepted", func(t *testing.T) {
		updated, err := f.svc.Counter(ctx, q.ID, f.contractorID, 80000, nil, nil)
		if err != nil {
			t.Fatalf("Counter: %v", err)
		}
		if updated.TotalPriceCents != 80000 {
			t.Errorf("running total = %d, want 80000", updated.TotalPriceCents)
		}
		if updated.CounterOfferCount != 2 {
			t.Errorf("counter count = %d, want 2", updated.CounterOfferCount)
		}
	})
}

func TestQuoteAccept(t *testing.T) {
	ctx := context.Background()
	f := newQuoteFixture()
	q := f.issue(t, 100000)
	if _, err := f.svc.Counter(ctx, q.ID, f.customerID, 60000, nil, nil); err != nil {
		t.Fatalf("customer counter: %v", err)
	}

	// The customer holds the standing offer and cannot accept it themselves.
	if _, err := f.svc.Accept(ctx, q.ID, f.customerID); err == nil {
		t.Error("customer accepted their own standing offer")
	}

	accepted, err := f.svc.Accept(ctx, q.ID, f.contractorID)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if accepted.Status != models.QuoteStatusAccepted {
		t.Errorf("quote status = %q, want accepted", accepted.Status)
	}

	job, err := f.jobs.GetByID(ctx, f.job.ID)
	if err != nil {
		t.Fatalf("reload job: %v", err)
	}
	if job.Status != models.JobStatusAssigned {
		t.Errorf("job status = %q, want assigned", job.Status)
	}
	if job.AgreedPriceCents == nil || *job.AgreedPriceCents != 60000 {
		t.Errorf("agreed price = %v, want 60000", job.AgreedPriceCents)
	}
	if job.ContractorID == nil || *job.ContractorID != f.contractorID {
		t.Errorf("job contractor = %v, want %s", job.ContractorID, f.contractorID)
	}

	// Terminal quotes admit no further moves.
	var apErr *AlreadyProcessedError
	if _, err := f.svc.Accept(ctx, q.ID, f.contractorID); !errors.As(err, &apErr) {
		t.Errorf("second accept err = %v, want AlreadyProcessedError", err)
	}
	if _, err := f.svc.Counter(ctx, q.ID, f.customerID, 55000, nil, nil); !errors.As(err, &apErr) {
		t.Errorf("counter after accept err = %v, want AlreadyProcessedError", err)
	}
}

func TestQuoteAcceptJobAwardedElsewhere(t *testing.T) {
	ctx := context.Background()
	f := newQuoteFixture()
	q := f.issue(t, 100000)
	if _, err := f.svc.Counter(ctx, q.ID, f.customerID, 60000, nil, nil); err != nil {
		t.Fatalf("customer counter: %v", err)
	}

	// Another negotiation won the job while this quote was still live.
	if ok, err := f.jobs.UpdateStatus(ctx, f.job.ID, models.JobStatusOpen, models.JobStatusAssigned); err != nil || !ok {
		t.Fatalf("award job elsewhere: ok=%v err=%v", ok, err)
	}

	var itErr *InvalidTransitionError
	_, err := f.svc.Accept(ctx, q.ID, f.contractorID)
	if !errors.As(err, &itErr) {
		t.Fatalf("accept on awarded job err = %v, want InvalidTransitionError", err)
	}
	if itErr.Current != models.JobStatusAssigned {
		t.Errorf("reported status = %q, want assigned", itErr.Current)
	}

	// The quote was not consumed by the failed accept.
	reloaded, err := f.quotes.GetByID(ctx, q.ID)
	if err != nil {
		t.Fatalf("reload quote: %v", err)
	}
	if reloaded.Status != models.QuoteStatusCounterOffered {
		t.Errorf("quote status = %q, want counter_offered", reloaded.Status)
	}
}

func TestQuoteReject(t *testing.T) {
	ctx := context.Background()
	f := newQuoteFixture()
	q := f.issue(t, 100000)

	if err := f.svc.Reject(ctx, q.ID, uuid.New()); !errors.Is(err, ErrForbidden) {
		t.Errorf("foreign reject err = %v, want ErrForbidden", err)
	}
	if err := f.svc.Reject(ctx, q.ID, f.customerID); err != nil {
		t.Fatalf("Reject: %v", err)
	}

	var apErr *AlreadyProcessedError
	if err := f.svc.Reject(ctx, q.ID, f.customerID); !errors.As(err, &apErr) {
		t.Errorf("second reject err = %v, want AlreadyProcessedError", err)
	}
}

func TestQuoteExpiry(t *testing.T) {
	ctx := context.Background()
	f := newQuoteFixture()
	q := f.issue(t, 100000)

	// Push the validity window into the past.
	f.quotes.mu.Lock()
	f.quotes.quotes[q.ID].ValidUntil = time.Now().Add(-time.Hour)
	f.quotes.mu.Unlock()

	if _, err := f.svc.Counter(ctx, q.ID, f.customerID, 60000, nil, nil); !errors.Is(err, ErrExpired) {
		t.Errorf("counter on expired quote err = %v, want ErrExpired", err)
	}
	if _, err := f.svc.Accept(ctx, q.ID, f.customerID); !errors.Is(err, ErrExpired) {
		t.Errorf("accept on expired quote err = %v, want ErrExpired", err)
	}
}

func TestCounterOfferLimit(t *testing.T) {
	ctx := context.Background()
	f := newQuoteFixture()
	f.gate.enabled[f.contractorID] = true
	q := f.issue(t, 100000)

	// Pin the count at the cap; the next counter must refuse.
	f.quotes.mu.Lock()
	f.quotes.quotes[q.ID].CounterOfferCount = testConfig().MaxCounterOffers
	f.quotes.quotes[q.ID].Status = models.QuoteStatusCounterOffered
	f.quotes.mu.Unlock()

	if _, err := f.svc.Counter(ctx, q.ID, f.customerID, 60000, nil, nil); err == nil {
		t.Error("counter beyond the round limit was accepted")
	}
}

func TestQuoteHistory(t *testing.T) {
	ctx := context.Background()
	f := newQuoteFixture()
	f.gate.enabled[f.contractorID] = true
	q := f.issue(t, 100000)

	if _, err := f.svc.Counter(ctx, q.ID, f.customerID, 60000, nil, nil); err != nil {
		t.Fatalf("customer counter: %v", err)
	}
	if _, err := f.svc.Counter(ctx, q.ID, f.contractorID, 80000, nil, nil); err != nil {
		t.Fatalf("contractor counter: %v", err)
	}

	history, err := f.svc.History(ctx, q.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history has %d entries, want 2", len(history))
	}
	if history[0].InitiatedBy != models.CounterByCustomer || history[0].PriceCents != 60000 {
		t.Errorf("first counter = %s/%d, want customer/60000", history[0].InitiatedBy, history[0].PriceCents)
	}
	if history[1].InitiatedBy != models.CounterByContractor || history[1].PriceCents != 80000 {
		t.Errorf("second counter = %s/%d, want contractor/80000", history[1].InitiatedBy, history[1].PriceCents)
	}
}
