package outbox

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/knowledge-server/internal/data/repos"
	"github.com/yungbote/knowledge-server/internal/data/repos/testutil"
	types "github.com/yungbote/knowledge-server/internal/domain"
	"github.com/yungbote/knowledge-server/internal/projection"
)

// fakeProjector records applied events and can be told to fail first.
type fakeProjector struct {
	target string

	mu        sync.Mutex
	applied   []uuid.UUID
	failTimes int
}

func (f *fakeProjector) Target() string { return f.target }

func (f *fakeProjector) Apply(_ context.Context, evt *types.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTimes > 0 {
		f.failTimes--
		return fmt.Errorf("store unavailable")
	}
	f.applied = append(f.applied, evt.ID)
	return nil
}

func (f *fakeProjector) appliedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.applied)
}

func seedEntry(t *testing.T, events repos.EventStore, outboxRepo repos.OutboxRepo, targets []string) []types.OutboxEntry {
	t.Helper()
	ctx := context.Background()

	aggregateID := uuid.New()
	concept := types.Concept{ID: aggregateID, Name: "graphs", Explanation: "nodes and edges"}
	_, evts, err := events.Append(ctx, nil, aggregateID, types.AggregateConcept, 0, []repos.EventDraft{
		{EventType: types.EventConceptCreated, Payload: types.ConceptEventPayload{Concept: concept}},
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	entries, err := outboxRepo.Enqueue(ctx, nil, evts[0].ID, targets)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	return entries
}

func testConfig() Config {
	return Config{
		Interval:    time.Hour, // ticks unused; tests call DrainOnce
		BatchSize:   10,
		Concurrency: 1,
		MaxAttempts: 3,
		BaseBackoff: time.Millisecond,
		MaxBackoff:  time.Second,
	}
}

func entryStatus(t *testing.T, id uuid.UUID) types.OutboxEntry {
	t.Helper()
	var entry types.OutboxEntry
	if err := testutil.DB(t).First(&entry, "id = ?", id).Error; err != nil {
		t.Fatalf("load entry: %v", err)
	}
	return entry
}

func TestDispatcherCompletesBothTargets(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	events := repos.NewEventStore(db, log)
	outboxRepo := repos.NewOutboxRepo(db, log)

	graphFake := &fakeProjector{target: types.TargetGraph}
	vectorFake := &fakeProjector{target: types.TargetVector}
	d := NewDispatcher(log, outboxRepo, events, []projection.Projector{graphFake, vectorFake}, testConfig())

	entries := seedEntry(t, events, outboxRepo, []string{types.TargetGraph, types.TargetVector})

	if err := d.DrainOnce(context.Background()); err != nil {
		t.Fatalf("DrainOnce: %v", err)
	}

	if graphFake.appliedCount() != 1 || vectorFake.appliedCount() != 1 {
		t.Fatalf("applied graph=%d vector=%d, want 1 each", graphFake.appliedCount(), vectorFake.appliedCount())
	}
	for _, e := range entries {
		if got := entryStatus(t, e.ID); got.Status != types.OutboxCompleted {
			t.Fatalf("entry %s status = %s, want completed", e.ID, got.Status)
		}
	}
}

func TestDispatcherRetriesTransientFailure(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	events := repos.NewEventStore(db, log)
	outboxRepo := repos.NewOutboxRepo(db, log)

	graphFake := &fakeProjector{target: types.TargetGraph, failTimes: 1}
	d := NewDispatcher(log, outboxRepo, events, []projection.Projector{graphFake}, testConfig())

	entries := seedEntry(t, events, outboxRepo, []string{types.TargetGraph})
	ctx := context.Background()

	if err := d.DrainOnce(ctx); err != nil {
		t.Fatalf("DrainOnce: %v", err)
	}
	after := entryStatus(t, entries[0].ID)
	if after.Status != types.OutboxPending || after.Attempts != 1 || after.LastError == "" {
		t.Fatalf("after first drain: %+v", after)
	}

	time.Sleep(10 * time.Millisecond) // let the backoff elapse
	if err := d.DrainOnce(ctx); err != nil {
		t.Fatalf("second DrainOnce: %v", err)
	}
	if got := entryStatus(t, entries[0].ID); got.Status != types.OutboxCompleted {
		t.Fatalf("after retry: %+v", got)
	}
	if graphFake.appliedCount() != 1 {
		t.Fatalf("applied = %d, want 1", graphFake.appliedCount())
	}
}

func TestDispatcherParksAfterMaxAttempts(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	events := repos.NewEventStore(db, log)
	outboxRepo := repos.NewOutboxRepo(db, log)

	graphFake := &fakeProjector{target: types.TargetGraph, failTimes: 100}
	cfg := testConfig()
	cfg.MaxAttempts = 2
	d := NewDispatcher(log, outboxRepo, events, []projection.Projector{graphFake}, cfg)

	entries := seedEntry(t, events, outboxRepo, []string{types.TargetGraph})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := d.DrainOnce(ctx); err != nil {
			t.Fatalf("DrainOnce %d: %v", i, err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	got := entryStatus(t, entries[0].ID)
	if got.Status != types.OutboxFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	if got.LastError == "" || got.Attempts != 2 {
		t.Fatalf("entry = %+v", got)
	}
}
