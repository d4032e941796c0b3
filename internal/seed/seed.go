package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	capacitydomain "github.com/smallbiznis/bookline/internal/capacity/domain"
	tenantdomain "github.com/smallbiznis/bookline/internal/tenant/domain"
)

const (
	demoTenantID = "t_acme"
	demoService  = "AC Repair"
	demoPhone    = "+15551234567"
	demoSlots    = 5
)

// EnsureDemoTenant seeds a demo tenant with a handful of one-hour slots and
// its phone binding, for local development and smoke tests. Safe to run on
// every startup: existing open capacity and bindings are left alone.
func EnsureDemoTenant(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureDemoCapacityTx(ctx, tx, node); err != nil {
			return err
		}
		return ensureDemoPhoneBindingTx(ctx, tx, node)
	})
}

func ensureDemoCapacityTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) error {
	var open int64
	err := tx.WithContext(ctx).
		Model(&capacitydomain.Slot{}).
		Where("tenant_id = ? AND service = ? AND booked = ? AND start_at > ?",
			demoTenantID, demoService, false, time.Now().UTC()).
		Count(&open).Error
	if err != nil {
		return err
	}
	if open > 0 {
		return nil
	}

	base := time.Now().UTC().Truncate(time.Hour)
	now := time.Now().UTC()
	for i := 1; i <= demoSlots; i++ {
		start := base.Add(time.Duration(i) * time.Hour)
		slot := capacitydomain.Slot{
			ID:        node.Generate(),
			TenantID:  demoTenantID,
			Service:   demoService,
			StartAt:   start,
			EndAt:     start.Add(time.Hour),
			Booked:    false,
			CreatedAt: now,
		}
		if err := tx.WithContext(ctx).Create(&slot).Error; err != nil {
			return err
		}
	}
	return nil
}

func ensureDemoPhoneBindingTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) error {
	var binding tenantdomain.PhoneBinding
	err := tx.WithContext(ctx).Where("phone = ?", demoPhone).First(&binding).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	binding = tenantdomain.PhoneBinding{
		ID:        node.Generate(),
		Phone:     demoPhone,
		TenantID:  demoTenantID,
		CreatedAt: time.Now().UTC(),
	}
	return tx.WithContext(ctx).Create(&binding).Error
}
