package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, slot *Slot) error
	// FirstAvailable returns the earliest unbooked slot starting strictly
	// after the cutoff, or nil when none qualifies. Pure read.
	FirstAvailable(ctx context.Context, db *gorm.DB, tenantID, service string, after time.Time) (*Slot, error)
	// ClaimNext flips the earliest eligible slot to booked in a single
	// conditional update and returns it; nil when no slot qualifies.
	ClaimNext(ctx context.Context, db *gorm.DB, tenantID, service string, after time.Time) (*Slot, error)
	// ClaimWindow is a compare-and-swap on one known window: it succeeds only
	// if the slot is still unbooked, and performs no mutation otherwise.
	ClaimWindow(ctx context.Context, db *gorm.DB, tenantID, service string, start, end time.Time) (bool, error)
	CountAvailable(ctx context.Context, db *gorm.DB, tenantID, service string, after time.Time) (int64, error)
}
