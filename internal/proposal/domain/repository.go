package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, proposal *Proposal) error
	FindByMessageID(ctx context.Context, db *gorm.DB, messageID string) (*Proposal, error)
	LatestByPhone(ctx context.Context, db *gorm.DB, phone string) (*Proposal, error)
	// MarkConfirmed transitions PROPOSED -> CONFIRMED. Idempotent: confirming
	// an already-confirmed proposal affects zero rows and is not an error.
	MarkConfirmed(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
