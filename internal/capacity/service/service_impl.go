package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bookline/internal/capacity/domain"
	"github.com/smallbiznis/bookline/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Allocator {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("capacity.allocator"),
		clock: p.Clock,
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Preview(ctx context.Context, tenantID, service string) (*domain.Window, error) {
	return s.Next(ctx, tenantID, service, s.clock.Now())
}

func (s *Service) Next(ctx context.Context, tenantID, service string, after time.Time) (*domain.Window, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, domain.ErrInvalidTenant
	}
	cutoff := s.clock.Now()
	if after.After(cutoff) {
		cutoff = after
	}
	slot, err := s.repo.FirstAvailable(ctx, s.db, tenantID, service, cutoff)
	if err != nil {
		return nil, err
	}
	if slot == nil {
		return nil, nil
	}
	return &domain.Window{Start: slot.StartAt, End: slot.EndAt}, nil
}

func (s *Service) ClaimNext(ctx context.Context, tenantID, service string) (*domain.Window, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, domain.ErrInvalidTenant
	}
	slot, err := s.repo.ClaimNext(ctx, s.db, tenantID, service, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if slot == nil {
		s.log.Info("no capacity",
			zap.String("tenant_id", tenantID),
			zap.String("service", service),
		)
		return nil, nil
	}
	return &domain.Window{Start: slot.StartAt, End: slot.EndAt}, nil
}

func (s *Service) ClaimSpecific(ctx context.Context, tenantID, service string, start, end time.Time) (bool, error) {
	if strings.TrimSpace(tenantID) == "" {
		return false, domain.ErrInvalidTenant
	}
	claimed, err := s.repo.ClaimWindow(ctx, s.db, tenantID, service, start, end)
	if err != nil {
		return false, err
	}
	if !claimed {
		s.log.Info("window already taken",
			zap.String("tenant_id", tenantID),
			zap.String("service", service),
			zap.Time("start", start),
		)
	}
	return claimed, nil
}

func (s *Service) Provision(ctx context.Context, tenantID, service string, start, end time.Time) error {
	if strings.TrimSpace(tenantID) == "" {
		return domain.ErrInvalidTenant
	}
	if !start.Before(end) {
		return domain.ErrInvalidWindow
	}
	slot := domain.Slot{
		ID:        s.genID.Generate(),
		TenantID:  tenantID,
		Service:   service,
		StartAt:   start.UTC(),
		EndAt:     end.UTC(),
		CreatedAt: s.clock.Now(),
	}
	return s.repo.Insert(ctx, s.db, &slot)
}
