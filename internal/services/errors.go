package services

import (
	"errors"
	"fmt"
	"strings"
)

// Domain outcomes the API surfaces to callers as typed results. Anything not
// covered here is treated as an infrastructure failure and wrapped with %w.
var (
	ErrNotFound            = errors.New("not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrDisputed            = errors.New("escrow release blocked by open dispute")
	ErrAlreadyFunded       = errors.New("escrow already funded")
	ErrAlreadyReleased     = errors.New("escrow already fully released")
	ErrNotCompleted        = errors.New("job is not completed")
	ErrNotInProgress       = errors.New("milestone is not in progress")
	ErrExpired             = errors.New("validity window has passed")
	ErrForbidden           = errors.New("actor is not allowed to perform this action")
)

// InvalidTransitionError reports the authoritative current state so clients
// can refresh instead of retrying a stale mutation.
type InvalidTransitionError struct {
	Current   string
	Attempted string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.Current, e.Attempted)
}

// AlreadyProcessedError is returned when an idempotent operation is attempted
// a second time. Current carries the state the first call left behind.
type AlreadyProcessedError struct {
	Current string
}

func (e *AlreadyProcessedError) Error() string {
	return fmt.Sprintf("already processed, current status %s", e.Current)
}

type AmountMismatchError struct {
	ExpectedCents int64
	GotCents      int64
}

func (e *AmountMismatchError) Error() string {
	return fmt.Sprintf("amount mismatch: expected %d, got %d", e.ExpectedCents, e.GotCents)
}

// VerificationFailedError lists every unmet milestone requirement.
type VerificationFailedError struct {
	Missing []string
}

func (e *VerificationFailedError) Error() string {
	return "verification failed: " + strings.Join(e.Missing, ", ")
}

type FeatureLockedError struct {
	Feature string
}

func (e *FeatureLockedError) Error() string {
	return fmt.Sprintf("feature %q is not available on the current tier", e.Feature)
}

// PriceOutOfRangeError rejects a counter-offer outside the allowed band.
type PriceOutOfRangeError struct {
	MinCents      int64
	MaxCents      int64 // exclusive
	ProposedCents int64
}

func (e *PriceOutOfRangeError) Error() string {
	return fmt.Sprintf("proposed price %d out of range [%d, %d)", e.ProposedCents, e.MinCents, e.MaxCents)
}
