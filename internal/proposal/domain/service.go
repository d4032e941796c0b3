package domain

import (
	"context"
	"errors"

	bookingdomain "github.com/smallbiznis/bookline/internal/booking/domain"
	capacitydomain "github.com/smallbiznis/bookline/internal/capacity/domain"
)

type CreateProposalRequest struct {
	Lead        bookingdomain.Lead
	Window      capacitydomain.Window
	MessageText string
	MessageID   string
}

// Service owns the proposal lifecycle. Confirm is the only status-mutating
// operation.
type Service interface {
	Create(ctx context.Context, req CreateProposalRequest) (*Proposal, error)
	GetByMessageID(ctx context.Context, messageID string) (*Proposal, error)
	LatestByPhone(ctx context.Context, phone string) (*Proposal, error)
	// Confirm finalizes the offered slot, falling back to the next free slot
	// for the same tenant/service when the offer was taken in the interim.
	// A nil job with nil error means no capacity remained: the caller reports
	// "needs dispatch" and the proposal stays PROPOSED.
	Confirm(ctx context.Context, proposal *Proposal) (*bookingdomain.Job, error)
}

var (
	ErrInvalidProposal = errors.New("invalid_proposal")
	ErrNotFound        = errors.New("not_found")
)
