package domain

import (
	"context"
	"errors"
	"time"
)

// Allocator selects and claims capacity slots. "No capacity" is a nil Window,
// never an error.
type Allocator interface {
	// Preview returns the earliest future unbooked window without claiming it.
	Preview(ctx context.Context, tenantID, service string) (*Window, error)
	// Next is Preview restricted to windows starting strictly after a point
	// in time, used by reschedule flows.
	Next(ctx context.Context, tenantID, service string, after time.Time) (*Window, error)
	// ClaimNext atomically books the earliest future unbooked window.
	ClaimNext(ctx context.Context, tenantID, service string) (*Window, error)
	// ClaimSpecific books a previously previewed window if still free.
	ClaimSpecific(ctx context.Context, tenantID, service string, start, end time.Time) (bool, error)
	// Provision seeds a new slot. Start must precede end.
	Provision(ctx context.Context, tenantID, service string, start, end time.Time) error
}

var (
	ErrInvalidTenant = errors.New("invalid_tenant")
	ErrInvalidWindow = errors.New("invalid_window")
)
