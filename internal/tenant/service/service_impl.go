package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bookline/internal/clock"
	"github.com/smallbiznis/bookline/internal/tenant/domain"
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

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("tenant.service"),
		clock: p.Clock,
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) ResolveByPhone(ctx context.Context, phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", domain.ErrInvalidPhone
	}
	binding, err := s.repo.FindByPhone(ctx, s.db, phone)
	if err != nil {
		return "", err
	}
	if binding == nil {
		return "", nil
	}
	return binding.TenantID, nil
}

func (s *Service) Bind(ctx context.Context, phone, tenantID string) error {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return domain.ErrInvalidPhone
	}
	binding := domain.PhoneBinding{
		ID:        s.genID.Generate(),
		Phone:     phone,
		TenantID:  tenantID,
		CreatedAt: s.clock.Now(),
	}
	return s.repo.Insert(ctx, s.db, &binding)
}
