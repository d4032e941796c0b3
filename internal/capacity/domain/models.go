package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Slot is one bookable time window owned by a tenant/service pair. Slots are
// provisioned out-of-band and never deleted; only the Booked flag mutates.
type Slot struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID  string       `gorm:"not null;index:idx_slots_tenant_service_start,priority:1" json:"tenant_id"`
	Service   string       `gorm:"not null;index:idx_slots_tenant_service_start,priority:2" json:"service"`
	StartAt   time.Time    `gorm:"not null;index:idx_slots_tenant_service_start,priority:3" json:"start_at"`
	EndAt     time.Time    `gorm:"not null" json:"end_at"`
	Booked    bool         `gorm:"not null;default:false" json:"booked"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Slot) TableName() string {
	return "capacity_slots"
}

// Window is the (start, end) pair handed to callers; allocation never exposes
// slot identity outside this package.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (w Window) IsZero() bool {
	return w.Start.IsZero() && w.End.IsZero()
}
