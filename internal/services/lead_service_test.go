package services

import (
	"context"
	"errors"
	"testing"

	"github.com/fixmarket/backend/internal/models"
	"github.com/google/uuid"
)

type leadFixture struct {
	svc     *LeadService
	leads   *memLeadStore
	credits *memCreditStore
	biller  *CreditService
	gate    *stubGate
	audit   *memAudit
	pub     *memPublisher
}

// newLeadFixture seeds the gate with per-lead billing enabled for every
// contractor, mirroring the production tier table.
func newLeadFixture(contractors ...models.User) *leadFixture {
	leads := newMemLeadStore()
	credits := newMemCreditStore()
	audit := &memAudit{}
	pub := &memPublisher{}
	biller := NewCreditService(credits, audit, testLogger)
	gate := &stubGate{enabled: map[uuid.UUID]bool{}}
	for _, c := range contractors {
		gate.enabled[c.ID] = true
	}
	svc := NewLeadService(leads, &stubFinder{contractors: contractors}, biller, gate, audit, pub, testConfig(), testLogger)
	return &leadFixture{svc: svc, leads: leads, credits: credits, biller: biller, gate: gate, audit: audit, pub: pub}
}

func TestMatchJob(t *testing.T) {
	ctx := context.Background()
	customerID := uuid.New()
	free := models.User{ID: uuid.New(), Role: models.RoleContractor, Tier: models.TierFree}
	pro := models.User{ID: uuid.New(), Role: models.RoleContractor, Tier: models.TierPro}
	f := newLeadFixture(free, pro)

	job := &models.Job{ID: uuid.New(), CustomerID: customerID, Category: "roofing"}
	matches, err := f.svc.MatchJob(ctx, job)
	if err != nil {
		t.Fatalf("MatchJob: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("matched %d contractors, want 2", len(matches))
	}
	byContractor := map[uuid.UUID]models.LeadMatch{}
	for _, m := range matches {
		if m.Status != models.LeadStatusPending {
			t.Errorf("match status = %q, want pending", m.Status)
		}
		byContractor[m.ContractorID] = m
	}
	if byContractor[free.ID].PricingModel != models.LeadPricingPerLead {
		t.Errorf("free tier pricing = %q, want per_lead", byContractor[free.ID].PricingModel)
	}
	if byContractor[pro.ID].PricingModel != models.LeadPricingSubscription {
		t.Errorf("pro tier pricing = %q, want subscription", byContractor[pro.ID].PricingModel)
	}

	// Re-running the matcher skips existing pairs instead of duplicating them.
	again, err := f.svc.MatchJob(ctx, job)
	if err != nil {
		t.Fatalf("second MatchJob: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("re-match created %d new matches, want 0", len(again))
	}
}

func TestMatchJobSkipsCustomer(t *testing.T) {
	ctx := context.Background()
	self := models.User{ID: uuid.New(), Role: models.RoleContractor, Tier: models.TierFree}
	f := newLeadFixture(self)

	job := &models.Job{ID: uuid.New(), CustomerID: self.ID, Category: "roofing"}
	matches, err := f.svc.MatchJob(ctx, job)
	if err != nil {
		t.Fatalf("MatchJob: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("customer was matched to their own job")
	}
}

func TestLeadAcceptChargesOnce(t *testing.T) {
	ctx := context.Background()
	contractor := models.User{ID: uuid.New(), Role: models.RoleContractor, Tier: models.TierFree}
	f := newLeadFixture(contractor)

	if _, err := f.biller.TopUp(ctx, contractor.ID, 5000, "pack"); err != nil {
		t.Fatalf("TopUp: %v", err)
	}
	job := &models.Job{ID: uuid.New(), CustomerID: uuid.New(), Category: "roofing"}
	matches, err := f.svc.MatchJob(ctx, job)
	if err != nil || len(matches) != 1 {
		t.Fatalf("MatchJob: %v (%d matches)", err, len(matches))
	}
	leadID := matches[0].ID

	result, err := f.svc.Accept(ctx, leadID, contractor.ID)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if result.OverExtended {
		t.Error("acceptance flagged over-extended with sufficient balance")
	}
	if result.ChargeTx == nil {
		t.Fatal("no charge recorded for per-lead pricing")
	}
	if result.ChargeTx.AmountCents != -1500 {
		t.Errorf("charge amount = %d, want -1500", result.ChargeTx.AmountCents)
	}

	lead, err := f.leads.GetByID(ctx, leadID)
	if err != nil {
		t.Fatalf("reload lead: %v", err)
	}
	if lead.Status != models.LeadStatusSent {
		t.Errorf("lead status = %q, want sent", lead.Status)
	}
	if lead.ChargeTxID == nil || *lead.ChargeTxID != result.ChargeTx.ID {
		t.Errorf("lead charge_tx_id = %v, want %s", lead.ChargeTxID, result.ChargeTx.ID)
	}

	// A second accept reports the surviving status and takes no second charge.
	var apErr *AlreadyProcessedError
	if _, err := f.svc.Accept(ctx, leadID, contractor.ID); !errors.As(err, &apErr) {
		t.Fatalf("second Accept err = %v, want AlreadyProcessedError", err)
	}
	account, err := f.biller.GetBalance(ctx, contractor.ID)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if account.BalanceCents != 3500 {
		t.Errorf("balance = %d, want 3500 (exactly one charge)", account.BalanceCents)
	}
}

func TestLeadAcceptInsufficientBalance(t *testing.T) {
	ctx := context.Background()
	contractor := models.User{ID: uuid.New(), Role: models.RoleContractor, Tier: models.TierFree}
	f := newLeadFixture(contractor)

	job := &models.Job{ID: uuid.New(), CustomerID: uuid.New(), Category: "roofing"}
	matches, err := f.svc.MatchJob(ctx, job)
	if err != nil || len(matches) != 1 {
		t.Fatalf("MatchJob: %v (%d matches)", err, len(matches))
	}

	// No credit at all: the acceptance still stands, flagged for collection.
	result, err := f.svc.Accept(ctx, matches[0].ID, contractor.ID)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if !result.OverExtended {
		t.Error("acceptance without balance not flagged over-extended")
	}
	if result.ChargeTx != nil {
		t.Error("a charge was recorded despite insufficient balance")
	}

	lead, err := f.leads.GetByID(ctx, matches[0].ID)
	if err != nil {
		t.Fatalf("reload lead: %v", err)
	}
	if lead.Status != models.LeadStatusSent {
		t.Errorf("lead status = %q, want sent", lead.Status)
	}
	if lead.ChargeTxID != nil {
		t.Error("charge_tx_id set without a charge")
	}
}

func TestLeadAcceptBillingLocked(t *testing.T) {
	ctx := context.Background()
	contractor := models.User{ID: uuid.New(), Role: models.RoleContractor, Tier: models.TierFree}
	f := newLeadFixture(contractor)
	f.gate.enabled[contractor.ID] = false

	if _, err := f.biller.TopUp(ctx, contractor.ID, 5000, "pack"); err != nil {
		t.Fatalf("TopUp: %v", err)
	}
	job := &models.Job{ID: uuid.New(), CustomerID: uuid.New(), Category: "roofing"}
	matches, err := f.svc.MatchJob(ctx, job)
	if err != nil || len(matches) != 1 {
		t.Fatalf("MatchJob: %v (%d matches)", err, len(matches))
	}

	var flErr *FeatureLockedError
	if _, err := f.svc.Accept(ctx, matches[0].ID, contractor.ID); !errors.As(err, &flErr) {
		t.Fatalf("locked accept err = %v, want FeatureLockedError", err)
	}
	if flErr.Feature != FeaturePerLeadBilling {
		t.Errorf("locked feature = %q, want %q", flErr.Feature, FeaturePerLeadBilling)
	}

	// The refusal left the lead and the balance untouched.
	lead, err := f.leads.GetByID(ctx, matches[0].ID)
	if err != nil {
		t.Fatalf("reload lead: %v", err)
	}
	if lead.Status != models.LeadStatusPending {
		t.Errorf("lead status = %q, want pending", lead.Status)
	}
	account, err := f.biller.GetBalance(ctx, contractor.ID)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if account.BalanceCents != 5000 {
		t.Errorf("balance = %d, want 5000 untouched", account.BalanceCents)
	}

	// Unlocking the account lets the same lead through.
	f.gate.enabled[contractor.ID] = true
	result, err := f.svc.Accept(ctx, matches[0].ID, contractor.ID)
	if err != nil {
		t.Fatalf("Accept after unlock: %v", err)
	}
	if result.ChargeTx == nil {
		t.Error("no charge recorded after unlock")
	}
}

func TestLeadAcceptSubscriptionNotCharged(t *testing.T) {
	ctx := context.Background()
	contractor := models.User{ID: uuid.New(), Role: models.RoleContractor, Tier: models.TierPro}
	f := newLeadFixture(contractor)

	job := &models.Job{ID: uuid.New(), CustomerID: uuid.New(), Category: "roofing"}
	matches, err := f.svc.MatchJob(ctx, job)
	if err != nil || len(matches) != 1 {
		t.Fatalf("MatchJob: %v (%d matches)", err, len(matches))
	}

	result, err := f.svc.Accept(ctx, matches[0].ID, contractor.ID)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if result.ChargeTx != nil || result.OverExtended {
		t.Error("subscription lead was charged per-lead")
	}
}

func TestLeadReject(t *testing.T) {
	ctx := context.Background()
	contractor := models.User{ID: uuid.New(), Role: models.RoleContractor, Tier: models.TierFree}
	f := newLeadFixture(contractor)

	if _, err := f.biller.TopUp(ctx, contractor.ID, 5000, "pack"); err != nil {
		t.Fatalf("TopUp: %v", err)
	}
	job := &models.Job{ID: uuid.New(), CustomerID: uuid.New(), Category: "roofing"}
	matches, err := f.svc.MatchJob(ctx, job)
	if err != nil || len(matches) != 1 {
		t.Fatalf("MatchJob: %v (%d matches)", err, len(matches))
	}

	if err := f.svc.Reject(ctx, matches[0].ID, contractor.ID); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	lead, err := f.leads.GetByID(ctx, matches[0].ID)
	if err != nil {
		t.Fatalf("reload lead: %v", err)
	}
	if lead.Status != models.LeadStatusLost {
		t.Errorf("lead status = %q, want lost", lead.Status)
	}

	// Rejections never cost anything.
	account, err := f.biller.GetBalance(ctx, contractor.ID)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if account.BalanceCents != 5000 {
		t.Errorf("balance = %d, want 5000 untouched", account.BalanceCents)
	}

	// And a rejected lead cannot be accepted afterwards.
	var apErr *AlreadyProcessedError
	if _, err := f.svc.Accept(ctx, matches[0].ID, contractor.ID); !errors.As(err, &apErr) {
		t.Errorf("accept after reject err = %v, want AlreadyProcessedError", err)
	}
}

func TestLeadOwnership(t *testing.T) {
	ctx := context.Background()
	contractor := models.User{ID: uuid.New(), Role: models.RoleContractor, Tier: models.TierFree}
	f := newLeadFixture(contractor)

	job := &models.Job{ID: uuid.New(), CustomerID: uuid.New(), Category: "roofing"}
	matches, err := f.svc.MatchJob(ctx, job)
	if err != nil || len(matches) != 1 {
		t.Fatalf("MatchJob: %v (%d matches)", err, len(matches))
	}

	if _, err := f.svc.Accept(ctx, matches[0].ID, uuid.New()); !errors.Is(err, ErrForbidden) {
		t.Errorf("foreign accept err = %v, want ErrForbidden", err)
	}
	if err := f.svc.Reject(ctx, matches[0].ID, uuid.New()); !errors.Is(err, ErrForbidden) {
		t.Errorf("foreign reject err = %v, want ErrForbidden", err)
	}
	if _, err := f.svc.Accept(ctx, uuid.New(), contractor.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown lead err = %v, want ErrNotFound", err)
	}
}

func TestLeadMarkViewed(t *testing.T) {
	ctx := context.Background()
	contractor := models.User{ID: uuid.New(), Role: models.RoleContractor, Tier: models.TierPro}
	f := newLeadFixture(contractor)

	job := &models.Job{ID: uuid.New(), CustomerID: uuid.New(), Category: "roofing"}
	matches, err := f.svc.MatchJob(ctx, job)
	if err != nil || len(matches) != 1 {
		t.Fatalf("MatchJob: %v (%d matches)", err, len(matches))
	}
	leadID := matches[0].ID

	// Nothing to view while the contractor has not responded.
	var itErr *InvalidTransitionError
	if err := f.svc.MarkViewed(ctx, leadID); !errors.As(err, &itErr) {
		t.Fatalf("view before response err = %v, want InvalidTransitionError", err)
	}

	if _, err := f.svc.Accept(ctx, leadID, contractor.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if err := f.svc.MarkViewed(ctx, leadID); err != nil {
		t.Fatalf("MarkViewed: %v", err)
	}

	lead, err := f.leads.GetByID(ctx, leadID)
	if err != nil {
		t.Fatalf("reload lead: %v", err)
	}
	if lead.Status != models.LeadStatusViewed {
		t.Errorf("lead status = %q, want viewed", lead.Status)
	}

	// Viewing twice reports the status without regressing it.
	var apErr *AlreadyProcessedError
	if err := f.svc.MarkViewed(ctx, leadID); !errors.As(err, &apErr) {
		t.Errorf("second view err = %v, want AlreadyProcessedError", err)
	}
}
