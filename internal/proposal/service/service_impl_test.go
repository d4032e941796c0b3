package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	bookingdomain "github.com/smallbiznis/bookline/internal/booking/domain"
	bookingrepository "github.com/smallbiznis/bookline/internal/booking/repository"
	bookingservice "github.com/smallbiznis/bookline/internal/booking/service"
	capacitydomain "github.com/smallbiznis/bookline/internal/capacity/domain"
	capacityrepository "github.com/smallbiznis/bookline/internal/capacity/repository"
	"github.com/smallbiznis/bookline/internal/clock"
	"github.com/smallbiznis/bookline/internal/proposal/domain"
	"github.com/smallbiznis/bookline/internal/proposal/repository"
)

type proposalFixture struct {
	svc          domain.Service
	db           *gorm.DB
	clk          *clock.FakeClock
	node         *snowflake.Node
	capacityRepo capacitydomain.Repository
	booking      bookingdomain.Service
}

func setupProposal(t *testing.T) *proposalFixture {
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

	if err := db.AutoMigrate(
		&capacitydomain.Slot{},
		&bookingdomain.Job{},
		&bookingdomain.IdempotencyRecord{},
		&domain.Proposal{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	clk := clock.NewFakeClock(time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC))
	capacityRepo := capacityrepository.Provide()

	booking := bookingservice.New(bookingservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		Clock: clk,
		GenID: node,
		Repo:  bookingrepository.Provide(),
	})

	svc := New(Params{
		DB:           db,
		Log:          zap.NewNop(),
		Clock:        clk,
		GenID:        node,
		Repo:         repository.Provide(),
		CapacityRepo: capacityRepo,
		Booking:      booking,
	})

	return &proposalFixture{svc: svc, db: db, clk: clk, node: node, capacityRepo: capacityRepo, booking: booking}
}

// replaceBooking rewires the service under test onto a different booking
// implementation, for tests that script specific booking outcomes.
func (f *proposalFixture) replaceBooking(b bookingdomain.Service) {
	f.svc = New(Params{
		DB:           f.db,
		Log:          zap.NewNop(),
		Clock:        f.clk,
		GenID:        f.node,
		Repo:         repository.Provide(),
		CapacityRepo: f.capacityRepo,
		Booking:      b,
	})
}

func (f *proposalFixture) seedSlot(t *testing.T, start time.Time) {
	t.Helper()
	slot := capacitydomain.Slot{
		ID:        f.node.Generate(),
		TenantID:  "t_acme",
		Service:   "AC Repair",
		StartAt:   start,
		EndAt:     start.Add(time.Hour),
		CreatedAt: f.clk.Now(),
	}
	if err := f.db.Create(&slot).Error; err != nil {
		t.Fatalf("seed slot: %v", err)
	}
}

func (f *proposalFixture) createProposal(t *testing.T, messageID string, start time.Time) *domain.Proposal {
	t.Helper()
	prop, err := f.svc.Create(context.Background(), domain.CreateProposalRequest{
		Lead: bookingdomain.Lead{
			EventID:  "evt_lead_1",
			TenantID: "t_acme",
			Name:     "Jordan Lee",
			Phone:    "+15550001111",
			Service:  "AC Repair",
		},
		Window:      capacitydomain.Window{Start: start, End: start.Add(time.Hour)},
		MessageText: "offer",
		MessageID:   messageID,
	})
	if err != nil {
		t.Fatalf("create proposal: %v", err)
	}
	return prop
}

func (f *proposalFixture) proposalStatus(t *testing.T, id snowflake.ID) string {
	t.Helper()
	var prop domain.Proposal
	if err := f.db.Where("id = ?", id).First(&prop).Error; err != nil {
		t.Fatalf("load proposal: %v", err)
	}
	return prop.Status
}

func TestConfirmBooksOfferedWindow(t *testing.T) {
	f := setupProposal(t)
	start := f.clk.Now().Add(time.Hour)
	f.seedSlot(t, start)
	prop := f.createProposal(t, "msg_1", start)

	job, err := f.svc.Confirm(context.Background(), prop)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if job == nil {
		t.Fatal("expected a job")
	}
	if !job.SlotStart.Equal(start) {
		t.Fatalf("expected the offered window, got %v", job.SlotStart)
	}
	if got := f.proposalStatus(t, prop.ID); got != domain.StatusConfirmed {
		t.Fatalf("want %s, got %s", domain.StatusConfirmed, got)
	}
}

func TestConfirmFallsBackWhenOfferedWindowTaken(t *testing.T) {
	f := setupProposal(t)
	offered := f.clk.Now().Add(time.Hour)
	fallback := offered.Add(time.Hour)
	f.seedSlot(t, offered)
	f.seedSlot(t, fallback)
	prop := f.createProposal(t, "msg_1", offered)

	ctx := context.Background()
	taken, err := f.capacityRepo.ClaimWindow(ctx, f.db, "t_acme", "AC Repair", offered, offered.Add(time.Hour))
	if err != nil || !taken {
		t.Fatalf("steal offered window: taken=%v err=%v", taken, err)
	}

	job, err := f.svc.Confirm(ctx, prop)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if job == nil {
		t.Fatal("expected fallback booking")
	}
	if !job.SlotStart.Equal(fallback) {
		t.Fatalf("expected fallback window %v, got %v", fallback, job.SlotStart)
	}
	if got := f.proposalStatus(t, prop.ID); got != domain.StatusConfirmed {
		t.Fatalf("want %s, got %s", domain.StatusConfirmed, got)
	}
}

func TestConfirmNoCapacityLeavesProposalOpen(t *testing.T) {
	f := setupProposal(t)
	offered := f.clk.Now().Add(time.Hour)
	f.seedSlot(t, offered)
	prop := f.createProposal(t, "msg_1", offered)

	ctx := context.Background()
	taken, err := f.capacityRepo.ClaimWindow(ctx, f.db, "t_acme", "AC Repair", offered, offered.Add(time.Hour))
	if err != nil || !taken {
		t.Fatalf("steal offered window: taken=%v err=%v", taken, err)
	}

	job, err := f.svc.Confirm(ctx, prop)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if job != nil {
		t.Fatalf("expected needs-dispatch, got job %s", job.ID)
	}
	if got := f.proposalStatus(t, prop.ID); got != domain.StatusProposed {
		t.Fatalf("proposal must stay %s, got %s", domain.StatusProposed, got)
	}

	var jobs int64
	if err := f.db.Model(&bookingdomain.Job{}).Count(&jobs).Error; err != nil {
		t.Fatalf("count jobs: %v", err)
	}
	if jobs != 0 {
		t.Fatalf("no job rows expected, got %d", jobs)
	}
}

func TestConfirmReplayDoesNotClaimSecondSlot(t *testing.T) {
	f := setupProposal(t)
	offered := f.clk.Now().Add(time.Hour)
	spare := offered.Add(time.Hour)
	f.seedSlot(t, offered)
	f.seedSlot(t, spare)
	prop := f.createProposal(t, "msg_1", offered)

	ctx := context.Background()
	first, err := f.svc.Confirm(ctx, prop)
	if err != nil {
		t.Fatalf("first confirm: %v", err)
	}
	second, err := f.svc.Confirm(ctx, prop)
	if err != nil {
		t.Fatalf("second confirm: %v", err)
	}

	if first == nil || second == nil {
		t.Fatal("both confirms should report a job")
	}
	if first.ID != second.ID {
		t.Fatalf("replay must converge, got %s vs %s", first.ID, second.ID)
	}

	var open int64
	if err := f.db.Model(&capacitydomain.Slot{}).Where("booked = ?", false).Count(&open).Error; err != nil {
		t.Fatalf("count open slots: %v", err)
	}
	if open != 1 {
		t.Fatalf("replay must not consume the spare slot, %d open", open)
	}
}

// staleReplayBooking stands in for a doubled confirmation whose winner
// committed after this transaction's idempotency check: every BookTx call
// reports a replay of the winner's job.
type staleReplayBooking struct {
	bookingdomain.Service
	winner *bookingdomain.Job
}

func (b *staleReplayBooking) BookTx(ctx context.Context, tx *gorm.DB, lead bookingdomain.Lead, window capacitydomain.Window, op string) (*bookingdomain.Job, bool, error) {
	return b.winner, true, nil
}

func TestConfirmRacingDuplicateRollsBackFallbackClaim(t *testing.T) {
	f := setupProposal(t)
	offered := f.clk.Now().Add(time.Hour)
	fallback := offered.Add(time.Hour)
	f.seedSlot(t, offered)
	f.seedSlot(t, fallback)
	prop := f.createProposal(t, "msg_1", offered)

	ctx := context.Background()
	// The winning confirmation claimed the offered window and booked it
	// before this one's ledger check could see the record.
	taken, err := f.capacityRepo.ClaimWindow(ctx, f.db, "t_acme", "AC Repair", offered, offered.Add(time.Hour))
	if err != nil || !taken {
		t.Fatalf("claim offered window: taken=%v err=%v", taken, err)
	}
	winner := &bookingdomain.Job{
		ID:        f.node.Generate(),
		TenantID:  "t_acme",
		SlotStart: offered,
		SlotEnd:   offered.Add(time.Hour),
		Status:    bookingdomain.StatusBooked,
	}
	f.replaceBooking(&staleReplayBooking{Service: f.booking, winner: winner})

	job, err := f.svc.Confirm(ctx, prop)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if job == nil || job.ID != winner.ID {
		t.Fatalf("expected the winner's job %s, got %+v", winner.ID, job)
	}

	// The fallback slot claimed inside the losing transaction must be open
	// again, not left booked with no job attached.
	var open int64
	if err := f.db.Model(&capacitydomain.Slot{}).
		Where("booked = ? AND start_at = ?", false, fallback).
		Count(&open).Error; err != nil {
		t.Fatalf("count open slots: %v", err)
	}
	if open != 1 {
		t.Fatal("fallback claim must roll back when the booking was a replay")
	}
	var jobs int64
	if err := f.db.Model(&bookingdomain.Job{}).Count(&jobs).Error; err != nil {
		t.Fatalf("count jobs: %v", err)
	}
	if jobs != 0 {
		t.Fatalf("losing confirmation must write nothing, got %d jobs", jobs)
	}
}

// conflictingBooking stands in for the interleave where both confirmations
// reach the ledger insert before either commits: BookTx surfaces the
// duplicate-key conflict.
type conflictingBooking struct {
	bookingdomain.Service
	key string
}

func (b *conflictingBooking) BookTx(ctx context.Context, tx *gorm.DB, lead bookingdomain.Lead, window capacitydomain.Window, op string) (*bookingdomain.Job, bool, error) {
	return nil, false, bookingdomain.ConcurrentBookingError{Key: b.key, Cause: gorm.ErrDuplicatedKey}
}

func TestConfirmConcurrentLedgerWriteConvergesOnWinner(t *testing.T) {
	f := setupProposal(t)
	offered := f.clk.Now().Add(time.Hour)
	f.seedSlot(t, offered)
	prop := f.createProposal(t, "msg_1", offered)

	ctx := context.Background()
	key := bookingdomain.IdempotencyKey("msg_1", bookingdomain.OpConfirm)
	winner, err := f.booking.Book(ctx, bookingdomain.Lead{
		EventID:  "msg_1",
		TenantID: "t_acme",
		Name:     "Jordan Lee",
		Phone:    "+15550001111",
		Service:  "AC Repair",
	}, capacitydomain.Window{Start: offered, End: offered.Add(time.Hour)}, bookingdomain.OpConfirm)
	if err != nil {
		t.Fatalf("winner book: %v", err)
	}
	f.replaceBooking(&conflictingBooking{Service: f.booking, key: key})

	job, err := f.svc.Confirm(ctx, prop)
	if err != nil {
		t.Fatalf("confirm must converge, got %v", err)
	}
	if job == nil || job.ID != winner.ID {
		t.Fatalf("expected the winner's job %s, got %+v", winner.ID, job)
	}

	// The conflict aborts the whole transaction; nothing the losing
	// confirmation wrote survives.
	var open int64
	if err := f.db.Model(&capacitydomain.Slot{}).Where("booked = ?", false).Count(&open).Error; err != nil {
		t.Fatalf("count open slots: %v", err)
	}
	if open != 1 {
		t.Fatalf("losing confirmation must not consume capacity, %d open", open)
	}
}

func TestLatestByPhonePicksNewest(t *testing.T) {
	f := setupProposal(t)
	start := f.clk.Now().Add(time.Hour)
	f.createProposal(t, "msg_1", start)
	f.clk.Advance(time.Minute)
	newest := f.createProposal(t, "msg_2", start.Add(time.Hour))

	got, err := f.svc.LatestByPhone(context.Background(), "+15550001111")
	if err != nil {
		t.Fatalf("latest by phone: %v", err)
	}
	if got == nil || got.ID != newest.ID {
		t.Fatalf("expected proposal %s, got %+v", newest.ID, got)
	}
}

func TestGetByMessageIDUnknownIsNil(t *testing.T) {
	f := setupProposal(t)
	got, err := f.svc.GetByMessageID(context.Background(), "msg_missing")
	if err != nil {
		t.Fatalf("get by message id: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}
