package models

import (
	"time"

	"github.com/google/uuid"
)

// Credit transaction types
const (
	CreditTxTopUp      = "top_up"
	CreditTxLeadCharge = "lead_charge"
	CreditTxRefund     = "refund"
	CreditTxAdjustment = "adjustment"
)

// CreditAccount is a contractor's prepaid balance. BalanceCents always equals
// the balance_after_cents of the account's most recent transaction; TxCount is
// the optimistic-concurrency sequence incremented on every write.
type CreditAccount struct {
	ID           uuid.UUID `json:"id"`
	ContractorID uuid.UUID `json:"contractor_id"`
	BalanceCents int64     `json:"balance_cents"`
	TxCount      int64     `json:"tx_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreditTransaction is an append-only ledger row. AmountCents is signed:
// negative for charges, positive for top-ups and refunds.
type CreditTransaction struct {
	ID                uuid.UUID  `json:"id"`
	AccountID         uuid.UUID  `json:"account_id"`
	Seq               int64      `json:"seq"`
	AmountCents       int64      `json:"amount_cents"`
	BalanceAfterCents int64      `json:"balance_after_cents"`
	TxType            string     `json:"tx_type"`
	Reason            string     `json:"reason"`
	LeadMatchID       *uuid.UUID `json:"lead_match_id,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}
