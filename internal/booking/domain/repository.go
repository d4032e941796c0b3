package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertJob(ctx context.Context, db *gorm.DB, job *Job) error
	FindJobByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Job, error)
	ListRecentJobs(ctx context.Context, db *gorm.DB, limit int) ([]Job, error)
	InsertIdempotency(ctx context.Context, db *gorm.DB, rec *IdempotencyRecord) error
	ResolveIdempotency(ctx context.Context, db *gorm.DB, key string) (*IdempotencyRecord, error)
}
