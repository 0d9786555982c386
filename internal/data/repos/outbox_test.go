package repos

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/knowledge-server/internal/data/repos/testutil"
	types "github.com/yungbote/knowledge-server/internal/domain"
)

func TestOutboxLifecycle(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewOutboxRepo(tx, testutil.Logger(t))

	eventID := uuid.New()
	entries, err := repo.Enqueue(ctx, nil, eventID, []string{types.TargetGraph, types.TargetVector})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("enqueued %d entries, want 2", len(entries))
	}

	due, err := repo.Due(ctx, 10)
	if err != nil {
		t.Fatalf("Due: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("due entries = %d, want 2", len(due))
	}

	if err := repo.MarkCompleted(ctx, entries[0].ID); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}

	// A retry pushed into the future is no longer due.
	if err := repo.MarkRetry(ctx, entries[1].ID, 1, "graph unavailable", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("MarkRetry: %v", err)
	}
	due, err = repo.Due(ctx, 10)
	if err != nil {
		t.Fatalf("Due after retry: %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("due after retry = %d, want 0", len(due))
	}

	if err := repo.MarkFailed(ctx, entries[1].ID, 5, "graph unavailable"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	counts, err := repo.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	if counts[types.OutboxCompleted] != 1 || counts[types.OutboxFailed] != 1 || counts[types.OutboxPending] != 0 {
		t.Fatalf("counts = %+v", counts)
	}
}

func TestOutboxEnqueueRejectsUnknownTarget(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewOutboxRepo(tx, testutil.Logger(t))
	if _, err := repo.Enqueue(context.Background(), nil, uuid.New(), []string{"search-index"}); err == nil {
		t.Fatal("Enqueue accepted unknown target")
	}
}

func TestOutboxMarkUnknownEntry(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewOutboxRepo(tx, testutil.Logger(t))
	if err := repo.MarkCompleted(context.Background(), uuid.New()); err == nil {
		t.Fatal("MarkCompleted on unknown entry succeeded")
	}
}
