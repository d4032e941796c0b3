package domain

import (
	"context"
	"errors"
	"fmt"

	capacitydomain "github.com/smallbiznis/bookline/internal/capacity/domain"
	"gorm.io/gorm"
)

const (
	// OpBookJob keys direct lead bookings.
	OpBookJob = "book_job"
	// OpConfirm keys proposal confirmations; the event id is the delivery
	// message id, so a repeated inbound reply converges on one job.
	OpConfirm = "confirm"
)

// IdempotencyKey derives the ledger key for an operation on an external
// event. Deterministic: any caller that knows the event id can discover the
// prior result.
func IdempotencyKey(eventID, op string) string {
	return eventID + ":" + op
}

// Service books jobs exactly once per idempotency key. It assumes the slot
// was already claimed by the allocator and never touches slot state itself.
type Service interface {
	// Book creates the job and its idempotency record in one transaction, or
	// returns the previously created job for a seen key.
	Book(ctx context.Context, lead Lead, window capacitydomain.Window, op string) (*Job, error)
	// BookTx is Book running on the caller's transaction, for flows that
	// must commit the job together with their own writes. The bool reports a
	// replay: the key was already recorded and the returned job is the prior
	// result, written under a window the caller must not assume it claimed.
	BookTx(ctx context.Context, tx *gorm.DB, lead Lead, window capacitydomain.Window, op string) (*Job, bool, error)
	// ByIdempotencyKey returns the job recorded for key, or nil when the key
	// has never been seen.
	ByIdempotencyKey(ctx context.Context, key string) (*Job, error)
	Recent(ctx context.Context, limit int) ([]Job, error)
}

var (
	ErrInvalidLead   = errors.New("invalid_lead")
	ErrInvalidWindow = errors.New("invalid_window")
)

// ConcurrentBookingError reports that another request committed the same
// idempotency key between this transaction's ledger read and its write. The
// caller's transaction is already poisoned; converge by rolling back and
// resolving Key with ByIdempotencyKey.
type ConcurrentBookingError struct {
	Key   string
	Cause error
}

func (e ConcurrentBookingError) Error() string {
	return fmt.Sprintf("concurrent booking for key %s: %v", e.Key, e.Cause)
}

func (e ConcurrentBookingError) Unwrap() error {
	return e.Cause
}
