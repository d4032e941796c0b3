package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bookline/internal/proposal/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, proposal *domain.Proposal) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO proposals (id, tenant_id, customer_name, phone, address, service, slot_start, slot_end, status, message_id, message_text, source_event_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		proposal.ID,
		proposal.TenantID,
		proposal.CustomerName,
		proposal.Phone,
		proposal.Address,
		proposal.Service,
		proposal.SlotStart,
		proposal.SlotEnd,
		proposal.Status,
		proposal.MessageID,
		proposal.MessageText,
		proposal.SourceEventID,
		proposal.CreatedAt,
	).Error
}

func (r *repo) FindByMessageID(ctx context.Context, db *gorm.DB, messageID string) (*domain.Proposal, error) {
	var proposal domain.Proposal
	err := db.WithContext(ctx).Where("message_id = ?", messageID).First(&proposal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &proposal, nil
}

func (r *repo) LatestByPhone(ctx context.Context, db *gorm.DB, phone string) (*domain.Proposal, error) {
	var proposal domain.Proposal
	err := db.WithContext(ctx).
		Where("phone = ?", phone).
		Order("created_at desc, id desc").
		First(&proposal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &proposal, nil
}

func (r *repo) MarkConfirmed(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE proposals SET status = ? WHERE id = ? AND status = ?`,
		domain.StatusConfirmed, id, domain.StatusProposed,
	).Error
}
