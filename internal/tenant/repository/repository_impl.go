package repository

import (
	"context"
	"errors"

	"github.com/smallbiznis/bookline/internal/tenant/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, binding *domain.PhoneBinding) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO tenant_phone_bindings (id, phone, tenant_id, created_at) VALUES (?, ?, ?, ?)`,
		binding.ID,
		binding.Phone,
		binding.TenantID,
		binding.CreatedAt,
	).Error
}

func (r *repo) FindByPhone(ctx context.Context, db *gorm.DB, phone string) (*domain.PhoneBinding, error) {
	var binding domain.PhoneBinding
	err := db.WithContext(ctx).Where("phone = ?", phone).First(&binding).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &binding, nil
}
