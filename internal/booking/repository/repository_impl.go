package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bookline/internal/booking/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertJob(ctx context.Context, db *gorm.DB, job *domain.Job) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO jobs (id, tenant_id, customer_name, phone, address, service, slot_start, slot_end, status, source_event_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		job.TenantID,
		job.CustomerName,
		job.Phone,
		job.Address,
		job.Service,
		job.SlotStart,
		job.SlotEnd,
		job.Status,
		job.SourceEventID,
		job.CreatedAt,
	).Error
}

func (r *repo) FindJobByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Job, error) {
	var job domain.Job
	err := db.WithContext(ctx).Where("id = ?", id).First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

func (r *repo) ListRecentJobs(ctx context.Context, db *gorm.DB, limit int) ([]domain.Job, error) {
	var jobs []domain.Job
	err := db.WithContext(ctx).
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *repo) InsertIdempotency(ctx context.Context, db *gorm.DB, rec *domain.IdempotencyRecord) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO idempotency_records (idem_key, job_id, created_at) VALUES (?, ?, ?)`,
		rec.Key,
		rec.JobID,
		rec.CreatedAt,
	).Error
}

func (r *repo) ResolveIdempotency(ctx context.Context, db *gorm.DB, key string) (*domain.IdempotencyRecord, error) {
	var rec domain.IdempotencyRecord
	err := db.WithContext(ctx).Where("idem_key = ?", key).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}
