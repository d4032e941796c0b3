package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const StatusBooked = "BOOKED"

// Job is a confirmed booking. Immutable once written.
type Job struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"job_id"`
	TenantID      string       `gorm:"not null;index:idx_jobs_tenant_created,priority:1" json:"tenant_id"`
	CustomerName  string       `gorm:"not null" json:"customer_name"`
	Phone         string       `gorm:"not null" json:"phone"`
	Address       string       `json:"address,omitempty"`
	Service       string       `gorm:"not null" json:"service"`
	SlotStart     time.Time    `gorm:"not null" json:"slot_start"`
	SlotEnd       time.Time    `gorm:"not null" json:"slot_end"`
	Status        string       `gorm:"not null;default:BOOKED" json:"status"`
	SourceEventID string       `gorm:"not null;index" json:"source_event"`
	CreatedAt     time.Time    `gorm:"not null;index:idx_jobs_tenant_created,priority:2" json:"created_at"`
}

func (Job) TableName() string {
	return "jobs"
}

// IdempotencyRecord maps a derived operation key to the job it produced.
// It is written in the same transaction as the Job it guards. The column is
// idem_key because KEY is a reserved word on mysql.
type IdempotencyRecord struct {
	Key       string       `gorm:"column:idem_key;primaryKey" json:"key"`
	JobID     snowflake.ID `gorm:"not null" json:"job_id"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

func (IdempotencyRecord) TableName() string {
	return "idempotency_records"
}

// Lead is the single lead shape shared by every caller of the booking
// service: HTTP intake, proposal confirmation and chat rebooking all build
// this value instead of their own ad hoc records.
type Lead struct {
	EventID  string `json:"event_id"`
	TenantID string `json:"tenant_id"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Address  string `json:"address,omitempty"`
	Service  string `json:"service"`
	Notes    string `json:"notes,omitempty"`
}
