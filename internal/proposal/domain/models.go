package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	// StatusProposed marks an offer awaiting customer confirmation.
	StatusProposed = "PROPOSED"
	// StatusConfirmed marks an offer that produced a job. The only
	// transition is PROPOSED -> CONFIRMED; unconfirmed offers stay PROPOSED
	// forever (no expiry).
	StatusConfirmed = "CONFIRMED"
)

// Proposal is a tentatively offered slot awaiting a customer reply.
type Proposal struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"proposal_id"`
	TenantID      string       `gorm:"not null;index:idx_proposals_tenant_created,priority:1" json:"tenant_id"`
	CustomerName  string       `gorm:"not null" json:"customer_name"`
	Phone         string       `gorm:"not null;index" json:"phone"`
	Address       string       `json:"address,omitempty"`
	Service       string       `gorm:"not null" json:"service"`
	SlotStart     time.Time    `gorm:"not null" json:"slot_start"`
	SlotEnd       time.Time    `gorm:"not null" json:"slot_end"`
	Status        string       `gorm:"not null;default:PROPOSED" json:"status"`
	MessageID     string       `gorm:"index" json:"message_id,omitempty"`
	MessageText   string       `json:"message_text,omitempty"`
	SourceEventID string       `gorm:"not null;index" json:"source_event"`
	CreatedAt     time.Time    `gorm:"not null;index:idx_proposals_tenant_created,priority:2" json:"created_at"`
}

func (Proposal) TableName() string {
	return "proposals"
}
