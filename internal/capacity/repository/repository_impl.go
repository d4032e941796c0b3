package repository

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/bookline/internal/capacity/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, slot *domain.Slot) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO capacity_slots (id, tenant_id, service, start_at, end_at, booked, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		slot.ID,
		slot.TenantID,
		slot.Service,
		slot.StartAt,
		slot.EndAt,
		slot.Booked,
		slot.CreatedAt,
	).Error
}

func (r *repo) FirstAvailable(ctx context.Context, db *gorm.DB, tenantID, service string, after time.Time) (*domain.Slot, error) {
	var slot domain.Slot
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND service = ? AND booked = ? AND start_at > ?", tenantID, service, false, after).
		Order("start_at asc").
		First(&slot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &slot, nil
}

// ClaimNext runs select-then-conditional-update inside one transaction. The
// update re-checks booked = false, so a concurrent claimer that wins between
// the two statements makes our update affect zero rows; we then retry on the
// following slot instead of reporting exhaustion too early.
func (r *repo) ClaimNext(ctx context.Context, db *gorm.DB, tenantID, service string, after time.Time) (*domain.Slot, error) {
	var claimed *domain.Slot
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for {
			candidate, err := r.FirstAvailable(ctx, tx, tenantID, service, after)
			if err != nil {
				return err
			}
			if candidate == nil {
				return nil
			}

			res := tx.Exec(
				`UPDATE capacity_slots SET booked = ? WHERE id = ? AND booked = ?`,
				true, candidate.ID, false,
			)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected > 0 {
				candidate.Booked = true
				claimed = candidate
				return nil
			}
			after = candidate.StartAt
		}
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *repo) ClaimWindow(ctx context.Context, db *gorm.DB, tenantID, service string, start, end time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE capacity_slots SET booked = ?
		 WHERE tenant_id = ? AND service = ? AND start_at = ? AND end_at = ? AND booked = ?`,
		true, tenantID, service, start, end, false,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) CountAvailable(ctx context.Context, db *gorm.DB, tenantID, service string, after time.Time) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Slot{}).
		Where("tenant_id = ? AND service = ? AND booked = ? AND start_at > ?", tenantID, service, false, after).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
