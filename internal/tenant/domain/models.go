package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// PhoneBinding maps a customer phone number to the tenant that serves it,
// used to resolve which tenant an inbound free-text message belongs to.
type PhoneBinding struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Phone     string       `gorm:"not null;uniqueIndex" json:"phone"`
	TenantID  string       `gorm:"not null;index" json:"tenant_id"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

func (PhoneBinding) TableName() string {
	return "tenant_phone_bindings"
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, binding *PhoneBinding) error
	FindByPhone(ctx context.Context, db *gorm.DB, phone string) (*PhoneBinding, error)
}

type Service interface {
	// ResolveByPhone returns the bound tenant id, or "" when unbound.
	ResolveByPhone(ctx context.Context, phone string) (string, error)
	Bind(ctx context.Context, phone, tenantID string) error
}

var ErrInvalidPhone = errors.New("invalid_phone")
