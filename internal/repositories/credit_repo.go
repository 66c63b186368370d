package repositories

import (
	"context"

	"github.com/fixmarket/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CreditRepo struct {
	pool *pgxpool.Pool
}

func NewCreditRepo(pool *pgxpool.Pool) *CreditRepo {
	return &CreditRepo{pool: pool}
}

func (r *CreditRepo) GetOrCreateAccount(ctx context.Context, contractorID uuid.UUID) (*models.CreditAccount, error) {
	var a models.CreditAccount
	err := r.pool.QueryRow(ctx, `
		INSERT INTO credit_accounts (contractor_id)
		VALUES ($1)
		ON CONFLICT (contractor_id) DO UPDATE SET updated_at = credit_accounts.updated_at
		RETURNING id, contractor_id, balance_cents, tx_count, created_at, updated_at
	`, contractorID).Scan(&a.ID, &a.ContractorID, &a.BalanceCents, &a.TxCount, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *CreditRepo) GetAccount(ctx context.Context, contractorID uuid.UUID) (*models.CreditAccount, error) {
	var a models.CreditAccount
	err := r.pool.QueryRow(ctx, `
		SELECT id, contractor_id, balance_cents, tx_count, created_at, updated_at
		FROM credit_accounts WHERE contractor_id = $1
	`, contractorID).Scan(&a.ID, &a.ContractorID, &a.BalanceCents, &a.TxCount, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Charge posts a debit as one transaction: a conditional UPDATE that refuses
// to overdraw, then the append-only ledger row with the resulting balance
// snapshot. Under concurrent charges the row-level lock on credit_accounts
// serializes the check-then-write, so at most one of two overdrawing charges
// succeeds. ok=false means insufficient balance (or no account); nothing is
// written in that case.
func (r *CreditRepo) Charge(ctx context.Context, contractorID uuid.UUID, amountCents int64, txType, reason string, leadMatchID *uuid.UUID) (*models.CreditTransaction, bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx)

	var accountID uuid.UUID
	var balanceAfter, seq int64
	err = tx.QueryRow(ctx, `
		UPDATE credit_accounts
		SET balance_cents = balance_cents - $1, tx_count = tx_count + 1, updated_at = now()
		WHERE contractor_id = $2 AND balance_cents >= $1
		RETURNING id, balance_cents, tx_count
	`, amountCents, contractorID).Scan(&accountID, &balanceAfter, &seq)
	if err != nil {
		if isNoRows(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	t := &models.CreditTransaction{
		AccountID:         accountID,
		Seq:               seq,
		AmountCents:       -amountCents,
		BalanceAfterCents: balanceAfter,
		TxType:            txType,
		Reason:            reason,
		LeadMatchID:       leadMatchID,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO credit_transactions (account_id, seq, amount_cents, balance_after_cents, tx_type, reason, lead_match_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, t.AccountID, t.Seq, t.AmountCents, t.BalanceAfterCents, t.TxType, t.Reason, t.LeadMatchID,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return nil, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}
	return t, true, nil
}

// Credit posts a top-up, refund or adjustment. Positive amounts only; the
// account row is created on first use.
func (r *CreditRepo) Credit(ctx context.Context, contractorID uuid.UUID, amountCents int64, txType, reason string) (*models.CreditTransaction, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var accountID uuid.UUID
	var balanceAfter, seq int64
	err = tx.QueryRow(ctx, `
		INSERT INTO credit_accounts (contractor_id, balance_cents, tx_count)
		VALUES ($1, $2, 1)
		ON CONFLICT (contractor_id) DO UPDATE SET
			balance_cents = credit_accounts.balance_cents + $2,
			tx_count = credit_accounts.tx_count + 1,
			updated_at = now()
		RETURNING id, balance_cents, tx_count
	`, contractorID, amountCents).Scan(&accountID, &balanceAfter, &seq)
	if err != nil {
		return nil, err
	}

	t := &models.CreditTransaction{
		AccountID:         accountID,
		Seq:               seq,
		AmountCents:       amountCents,
		BalanceAfterCents: balanceAfter,
		TxType:            txType,
		Reason:            reason,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO credit_transactions (account_id, seq, amount_cents, balance_after_cents, tx_type, reason)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, t.AccountID, t.Seq, t.AmountCents, t.BalanceAfterCents, t.TxType, t.Reason,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *CreditRepo) ListTransactions(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]models.CreditTransaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, account_id, seq, amount_cents, balance_after_cents, tx_type, reason, lead_match_id, created_at
		FROM credit_transactions WHERE account_id = $1
		ORDER BY seq DESC LIMIT $2 OFFSET $3
	`, accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []models.CreditTransaction
	for rows.Next() {
		var t models.CreditTransaction
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Seq, &t.AmountCents, &t.BalanceAfterCents,
			&t.TxType, &t.Reason, &t.LeadMatchID, &t.CreatedAt); err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, nil
}
