package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/bookline/internal/booking/domain"
	"github.com/smallbiznis/bookline/internal/booking/repository"
	capacitydomain "github.com/smallbiznis/bookline/internal/capacity/domain"
	"github.com/smallbiznis/bookline/internal/clock"
)

func setupBooking(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	_ = db.Exec("PRAGMA busy_timeout = 5000").Error

	if err := db.AutoMigrate(&domain.Job{}, &domain.IdempotencyRecord{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		Clock: clock.NewFakeClock(time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)),
		GenID: node,
		Repo:  repository.Provide(),
	})
	return svc, db
}

func testLead(eventID string) domain.Lead {
	return domain.Lead{
		EventID:  eventID,
		TenantID: "t_acme",
		Name:     "Jordan Lee",
		Phone:    "+15550001111",
		Service:  "AC Repair",
	}
}

func testWindow() capacitydomain.Window {
	start := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	return capacitydomain.Window{Start: start, End: start.Add(time.Hour)}
}

func countJobs(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&domain.Job{}).Count(&n).Error; err != nil {
		t.Fatalf("count jobs: %v", err)
	}
	return n
}

func TestBookCreatesJobWithLedgerEntry(t *testing.T) {
	svc, db := setupBooking(t)
	ctx := context.Background()

	job, err := svc.Book(ctx, testLead("evt_1"), testWindow(), domain.OpBookJob)
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if job.Status != domain.StatusBooked {
		t.Fatalf("want status %s, got %s", domain.StatusBooked, job.Status)
	}

	var rec domain.IdempotencyRecord
	key := domain.IdempotencyKey("evt_1", domain.OpBookJob)
	if err := db.Where("idem_key = ?", key).First(&rec).Error; err != nil {
		t.Fatalf("ledger row missing: %v", err)
	}
	if rec.JobID != job.ID {
		t.Fatalf("ledger points at %s, job is %s", rec.JobID, job.ID)
	}
}

func TestBookReplaySameEvent(t *testing.T) {
	svc, db := setupBooking(t)
	ctx := context.Background()

	first, err := svc.Book(ctx, testLead("evt_1"), testWindow(), domain.OpBookJob)
	if err != nil {
		t.Fatalf("first book: %v", err)
	}
	second, err := svc.Book(ctx, testLead("evt_1"), testWindow(), domain.OpBookJob)
	if err != nil {
		t.Fatalf("second book: %v", err)
	}

	if first.ID != second.ID {
		t.Fatalf("replay must return the original job, got %s vs %s", first.ID, second.ID)
	}
	if n := countJobs(t, db); n != 1 {
		t.Fatalf("expected 1 job, got %d", n)
	}
}

func TestBookSameEventDifferentOps(t *testing.T) {
	svc, db := setupBooking(t)
	ctx := context.Background()

	bookJob, err := svc.Book(ctx, testLead("evt_1"), testWindow(), domain.OpBookJob)
	if err != nil {
		t.Fatalf("book op: %v", err)
	}
	confirmJob, err := svc.Book(ctx, testLead("evt_1"), testWindow(), domain.OpConfirm)
	if err != nil {
		t.Fatalf("confirm op: %v", err)
	}

	if bookJob.ID == confirmJob.ID {
		t.Fatal("different operations on one event must book separately")
	}
	if n := countJobs(t, db); n != 2 {
		t.Fatalf("expected 2 jobs, got %d", n)
	}
}

func TestBookConcurrentSameKeyConverges(t *testing.T) {
	svc, db := setupBooking(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	jobs := make(chan *domain.Job, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			job, err := svc.Book(ctx, testLead("evt_race"), testWindow(), domain.OpBookJob)
			if err != nil {
				t.Errorf("concurrent book: %v", err)
				return
			}
			jobs <- job
		}()
	}
	wg.Wait()
	close(jobs)

	ids := map[snowflake.ID]bool{}
	for job := range jobs {
		ids[job.ID] = true
	}
	if len(ids) != 1 {
		t.Fatalf("expected all callers to converge on one job, got %d", len(ids))
	}
	if n := countJobs(t, db); n != 1 {
		t.Fatalf("expected 1 job, got %d", n)
	}
}

func TestBookTxReportsReplay(t *testing.T) {
	svc, db := setupBooking(t)
	ctx := context.Background()

	first, err := svc.Book(ctx, testLead("evt_1"), testWindow(), domain.OpBookJob)
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		job, replayed, err := svc.BookTx(ctx, tx, testLead("evt_1"), testWindow(), domain.OpBookJob)
		if err != nil {
			return err
		}
		if !replayed {
			t.Fatal("second booking of one key must report a replay")
		}
		if job.ID != first.ID {
			t.Fatalf("replay must return the original job, got %s vs %s", job.ID, first.ID)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}
}

func TestByIdempotencyKey(t *testing.T) {
	svc, _ := setupBooking(t)
	ctx := context.Background()

	key := domain.IdempotencyKey("evt_1", domain.OpBookJob)
	job, err := svc.ByIdempotencyKey(ctx, key)
	if err != nil {
		t.Fatalf("unseen key: %v", err)
	}
	if job != nil {
		t.Fatal("unseen key must resolve to nil")
	}

	booked, err := svc.Book(ctx, testLead("evt_1"), testWindow(), domain.OpBookJob)
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	job, err = svc.ByIdempotencyKey(ctx, key)
	if err != nil {
		t.Fatalf("seen key: %v", err)
	}
	if job == nil || job.ID != booked.ID {
		t.Fatalf("expected recorded job %s, got %+v", booked.ID, job)
	}
}

func TestBookRejectsInvalidInput(t *testing.T) {
	svc, _ := setupBooking(t)
	ctx := context.Background()

	lead := testLead("")
	if _, err := svc.Book(ctx, lead, testWindow(), domain.OpBookJob); err != domain.ErrInvalidLead {
		t.Fatalf("missing event id: want ErrInvalidLead, got %v", err)
	}

	lead = testLead("evt_1")
	lead.TenantID = ""
	if _, err := svc.Book(ctx, lead, testWindow(), domain.OpBookJob); err != domain.ErrInvalidLead {
		t.Fatalf("missing tenant: want ErrInvalidLead, got %v", err)
	}

	window := testWindow()
	window.End = window.Start
	if _, err := svc.Book(ctx, testLead("evt_1"), window, domain.OpBookJob); err != domain.ErrInvalidWindow {
		t.Fatalf("empty window: want ErrInvalidWindow, got %v", err)
	}
}

func TestRecentOrdersNewestFirst(t *testing.T) {
	svc, _ := setupBooking(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.Book(ctx, testLead(fmt.Sprintf("evt_%d", i)), testWindow(), domain.OpBookJob); err != nil {
			t.Fatalf("book %d: %v", i, err)
		}
	}

	jobs, err := svc.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0].CreatedAt.Before(jobs[1].CreatedAt) {
		t.Fatal("expected newest first")
	}
}
