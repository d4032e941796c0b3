package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bookline/internal/booking/domain"
	capacitydomain "github.com/smallbiznis/bookline/internal/capacity/domain"
	"github.com/smallbiznis/bookline/internal/clock"
	"github.com/smallbiznis/bookline/internal/observability/metrics"
	"github.com/smallbiznis/bookline/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	GenID   *snowflake.Node
	Repo    domain.Repository
	Metrics *metrics.BookingMetrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	genID   *snowflake.Node
	repo    domain.Repository
	metrics *metrics.BookingMetrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("booking.service"),
		clock:   p.Clock,
		genID:   p.GenID,
		repo:    p.Repo,
		metrics: p.Metrics,
	}
}

func (s *Service) Book(ctx context.Context, lead domain.Lead, window capacitydomain.Window, op string) (*domain.Job, error) {
	var job *domain.Job
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		job, _, txErr = s.BookTx(ctx, tx, lead, window, op)
		return txErr
	})
	if err != nil {
		// A concurrent request committed the same key first; converge on its
		// job instead of failing the retry.
		var concurrent domain.ConcurrentBookingError
		if errors.As(err, &concurrent) {
			job, rerr := s.ByIdempotencyKey(ctx, concurrent.Key)
			if rerr != nil {
				return nil, rerr
			}
			if job == nil {
				return nil, fmt.Errorf("idempotency key %s vanished after conflict", concurrent.Key)
			}
			return job, nil
		}
		return nil, err
	}
	return job, nil
}

func (s *Service) ByIdempotencyKey(ctx context.Context, key string) (*domain.Job, error) {
	rec, err := s.repo.ResolveIdempotency(ctx, s.db, key)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	job, err := s.repo.FindJobByID(ctx, s.db, rec.JobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("idempotency record %s points at missing job %s", key, rec.JobID)
	}
	s.metrics.IdempotentReplay()
	return job, nil
}

// BookTx resolves the idempotency key first; a hit short-circuits to the
// recorded job with no new writes and a true replay flag. Otherwise job and
// ledger rows are inserted on the caller's transaction. A duplicate-key
// failure on the ledger means a concurrent request committed the same key
// between our read and write; we surface it so the outer transaction can
// roll back and retry the read path.
func (s *Service) BookTx(ctx context.Context, tx *gorm.DB, lead domain.Lead, window capacitydomain.Window, op string) (*domain.Job, bool, error) {
	if strings.TrimSpace(lead.EventID) == "" || strings.TrimSpace(lead.TenantID) == "" {
		return nil, false, domain.ErrInvalidLead
	}
	if window.IsZero() || !window.Start.Before(window.End) {
		return nil, false, domain.ErrInvalidWindow
	}
	if op == "" {
		op = domain.OpBookJob
	}

	key := domain.IdempotencyKey(lead.EventID, op)

	existing, err := s.repo.ResolveIdempotency(ctx, tx, key)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		job, err := s.repo.FindJobByID(ctx, tx, existing.JobID)
		if err != nil {
			return nil, false, err
		}
		if job == nil {
			return nil, false, fmt.Errorf("idempotency record %s points at missing job %s", key, existing.JobID)
		}
		s.metrics.IdempotentReplay()
		s.log.Info("idempotent replay",
			zap.String("tenant_id", lead.TenantID),
			zap.String("event_id", lead.EventID),
			zap.String("job_id", job.ID.String()),
		)
		return job, true, nil
	}

	now := s.clock.Now()
	job := &domain.Job{
		ID:            s.genID.Generate(),
		TenantID:      lead.TenantID,
		CustomerName:  lead.Name,
		Phone:         lead.Phone,
		Address:       lead.Address,
		Service:       lead.Service,
		SlotStart:     window.Start,
		SlotEnd:       window.End,
		Status:        domain.StatusBooked,
		SourceEventID: lead.EventID,
		CreatedAt:     now,
	}

	if err := s.repo.InsertJob(ctx, tx, job); err != nil {
		return nil, false, err
	}
	rec := &domain.IdempotencyRecord{Key: key, JobID: job.ID, CreatedAt: now}
	if err := s.repo.InsertIdempotency(ctx, tx, rec); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, false, domain.ConcurrentBookingError{Key: key, Cause: err}
		}
		return nil, false, err
	}

	s.metrics.JobBooked()
	s.log.Info("job booked",
		zap.String("tenant_id", job.TenantID),
		zap.String("event_id", job.SourceEventID),
		zap.String("job_id", job.ID.String()),
	)
	return job, false, nil
}

func (s *Service) Recent(ctx context.Context, limit int) ([]domain.Job, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListRecentJobs(ctx, s.db, limit)
}

