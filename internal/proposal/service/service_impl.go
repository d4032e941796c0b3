package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	bookingdomain "github.com/smallbiznis/bookline/internal/booking/domain"
	capacitydomain "github.com/smallbiznis/bookline/internal/capacity/domain"
	"github.com/smallbiznis/bookline/internal/clock"
	"github.com/smallbiznis/bookline/internal/observability/metrics"
	"github.com/smallbiznis/bookline/internal/proposal/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Clock        clock.Clock
	GenID        *snowflake.Node
	Repo         domain.Repository
	CapacityRepo capacitydomain.Repository
	Booking      bookingdomain.Service
	Metrics      *metrics.BookingMetrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	clock        clock.Clock
	genID        *snowflake.Node
	repo         domain.Repository
	capacityRepo capacitydomain.Repository
	booking      bookingdomain.Service
	metrics      *metrics.BookingMetrics
}

// errConfirmationReplayed aborts the confirmation transaction when the
// booking turned out to be a replay, so claims made inside it roll back.
var errConfirmationReplayed = errors.New("confirmation replayed")

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("proposal.service"),
		clock:        p.Clock,
		genID:        p.GenID,
		repo:         p.Repo,
		capacityRepo: p.CapacityRepo,
		booking:      p.Booking,
		metrics:      p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateProposalRequest) (*domain.Proposal, error) {
	if strings.TrimSpace(req.Lead.TenantID) == "" || req.Window.IsZero() {
		return nil, domain.ErrInvalidProposal
	}
	proposal := &domain.Proposal{
		ID:            s.genID.Generate(),
		TenantID:      req.Lead.TenantID,
		CustomerName:  req.Lead.Name,
		Phone:         req.Lead.Phone,
		Address:       req.Lead.Address,
		Service:       req.Lead.Service,
		SlotStart:     req.Window.Start,
		SlotEnd:       req.Window.End,
		Status:        domain.StatusProposed,
		MessageID:     req.MessageID,
		MessageText:   req.MessageText,
		SourceEventID: req.Lead.EventID,
		CreatedAt:     s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, s.db, proposal); err != nil {
		return nil, err
	}
	s.metrics.ProposalSent()
	s.log.Info("proposal created",
		zap.String("tenant_id", proposal.TenantID),
		zap.String("proposal_id", proposal.ID.String()),
		zap.String("message_id", proposal.MessageID),
	)
	return proposal, nil
}

func (s *Service) GetByMessageID(ctx context.Context, messageID string) (*domain.Proposal, error) {
	messageID = strings.TrimSpace(messageID)
	if messageID == "" {
		return nil, domain.ErrInvalidProposal
	}
	return s.repo.FindByMessageID(ctx, s.db, messageID)
}

func (s *Service) LatestByPhone(ctx context.Context, phone string) (*domain.Proposal, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, domain.ErrInvalidProposal
	}
	return s.repo.LatestByPhone(ctx, s.db, phone)
}

// Confirm runs the whole confirmation as one transaction: idempotency check,
// slot claim (offered window first, then next free), job creation, and the
// PROPOSED -> CONFIRMED transition commit together or not at all.
//
// The idempotency check comes before any claim so a repeated confirmation
// cannot consume a second slot. That read can still be stale when two
// confirmations of the same proposal race: whichever loses the claim sees a
// replay from BookTx (or a concurrent-booking conflict) only after it has
// claimed a window of its own. Both paths roll the loser's transaction back,
// releasing that claim, and converge on the winner's job. A window the
// proposal lost to a different booking is never released back; the competing
// booking owns it now.
func (s *Service) Confirm(ctx context.Context, proposal *domain.Proposal) (*bookingdomain.Job, error) {
	if proposal == nil {
		return nil, domain.ErrInvalidProposal
	}

	lead := bookingdomain.Lead{
		EventID:  s.confirmationEventID(proposal),
		TenantID: proposal.TenantID,
		Name:     proposal.CustomerName,
		Phone:    proposal.Phone,
		Address:  proposal.Address,
		Service:  proposal.Service,
	}

	var job *bookingdomain.Job
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		window, err := s.claimWindow(ctx, tx, proposal)
		if err != nil {
			return err
		}
		if window == nil {
			// No capacity left. Nothing was written; the proposal stays
			// PROPOSED and the caller reports needs-dispatch.
			return nil
		}

		var replayed bool
		job, replayed, err = s.booking.BookTx(ctx, tx, lead, *window, bookingdomain.OpConfirm)
		if err != nil {
			return err
		}
		if replayed {
			// A prior confirmation already produced this job under its own
			// window. Abort so any claim made above is released instead of
			// committing as a booked slot with no job attached.
			return errConfirmationReplayed
		}
		return s.repo.MarkConfirmed(ctx, tx, proposal.ID)
	})
	if errors.Is(err, errConfirmationReplayed) {
		s.log.Info("confirmation replayed",
			zap.String("tenant_id", proposal.TenantID),
			zap.String("proposal_id", proposal.ID.String()),
			zap.String("job_id", job.ID.String()),
		)
		return job, nil
	}
	var concurrent bookingdomain.ConcurrentBookingError
	if errors.As(err, &concurrent) {
		// Another confirmation committed the same key between our ledger
		// read and write. Our transaction rolled back whole; hand back the
		// winner's job.
		existing, rerr := s.booking.ByIdempotencyKey(ctx, concurrent.Key)
		if rerr != nil {
			return nil, rerr
		}
		if existing == nil {
			return nil, err
		}
		return existing, nil
	}
	if err != nil {
		return nil, err
	}
	if job == nil {
		s.metrics.DispatchNeeded()
		s.log.Warn("confirmation found no capacity",
			zap.String("tenant_id", proposal.TenantID),
			zap.String("proposal_id", proposal.ID.String()),
		)
		return nil, nil
	}

	s.metrics.ProposalConfirmed()
	s.log.Info("proposal confirmed",
		zap.String("tenant_id", proposal.TenantID),
		zap.String("proposal_id", proposal.ID.String()),
		zap.String("job_id", job.ID.String()),
	)
	return job, nil
}

// claimWindow resolves the window the confirmation will book. A prior
// confirmation for the same proposal short-circuits to the recorded job's
// window without claiming anything new.
func (s *Service) claimWindow(ctx context.Context, tx *gorm.DB, proposal *domain.Proposal) (*capacitydomain.Window, error) {
	if replay, window, err := s.priorConfirmation(ctx, tx, proposal); err != nil {
		return nil, err
	} else if replay {
		return window, nil
	}

	claimed, err := s.capacityRepo.ClaimWindow(ctx, tx, proposal.TenantID, proposal.Service, proposal.SlotStart, proposal.SlotEnd)
	if err != nil {
		return nil, err
	}
	if claimed {
		s.metrics.SlotClaimed("specific")
		return &capacitydomain.Window{Start: proposal.SlotStart, End: proposal.SlotEnd}, nil
	}

	s.metrics.ClaimConflict()
	slot, err := s.capacityRepo.ClaimNext(ctx, tx, proposal.TenantID, proposal.Service, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if slot == nil {
		return nil, nil
	}
	s.metrics.SlotClaimed("fallback")
	return &capacitydomain.Window{Start: slot.StartAt, End: slot.EndAt}, nil
}

func (s *Service) priorConfirmation(ctx context.Context, tx *gorm.DB, proposal *domain.Proposal) (bool, *capacitydomain.Window, error) {
	var rec bookingdomain.IdempotencyRecord
	key := bookingdomain.IdempotencyKey(s.confirmationEventID(proposal), bookingdomain.OpConfirm)
	res := tx.WithContext(ctx).Where("idem_key = ?", key).Limit(1).Find(&rec)
	if res.Error != nil {
		return false, nil, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil, nil
	}
	var job bookingdomain.Job
	if err := tx.WithContext(ctx).Where("id = ?", rec.JobID).First(&job).Error; err != nil {
		return false, nil, err
	}
	return true, &capacitydomain.Window{Start: job.SlotStart, End: job.SlotEnd}, nil
}

// confirmationEventID prefers the delivery correlation id so repeated inbound
// replies reuse the same key; proposals that never left the process fall back
// to their own identity.
func (s *Service) confirmationEventID(proposal *domain.Proposal) string {
	if strings.TrimSpace(proposal.MessageID) != "" {
		return proposal.MessageID
	}
	return proposal.ID.String()
}
