package scoring

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/knowledge-server/internal/data/repos/testutil"
)

func TestScoreRange(t *testing.T) {
	cases := []ScoreInput{
		{},
		{ExplanationChars: 10},
		{ExplanationChars: 1000000, RelationshipCount: 1000, StrengthSum: 1000, SourceQualitySum: 1000},
		{ExplanationChars: -5, RelationshipCount: -1, StrengthSum: -2, SourceQualitySum: -3},
		{ExplanationChars: 800, RelationshipCount: 3, StrengthSum: 2.5, SourceQualitySum: 1.7},
	}
	for _, in := range cases {
		got := Score(in)
		if got < 0 || got > 100 {
			t.Fatalf("Score(%+v) = %v, out of [0,100]", in, got)
		}
	}
}

func TestScoreMonotonic(t *testing.T) {
	base := ScoreInput{ExplanationChars: 400, RelationshipCount: 2, StrengthSum: 1.5, SourceQualitySum: 0.8}
	baseScore := Score(base)

	richer := []ScoreInput{
		{ExplanationChars: 800, RelationshipCount: 2, StrengthSum: 1.5, SourceQualitySum: 0.8},
		{ExplanationChars: 400, RelationshipCount: 4, StrengthSum: 3.0, SourceQualitySum: 0.8},
		{ExplanationChars: 400, RelationshipCount: 2, StrengthSum: 2.5, SourceQualitySum: 0.8},
		{ExplanationChars: 400, RelationshipCount: 2, StrengthSum: 1.5, SourceQualitySum: 1.8},
	}
	for _, in := range richer {
		if got := Score(in); got < baseScore {
			t.Fatalf("Score(%+v) = %v dropped below base %v", in, got, baseScore)
		}
	}
}

func TestScoreIdempotent(t *testing.T) {
	in := ScoreInput{ExplanationChars: 640, RelationshipCount: 3, StrengthSum: 2.2, SourceQualitySum: 1.1}
	if a, b := Score(in), Score(in); a != b {
		t.Fatalf("Score not deterministic: %v vs %v", a, b)
	}
}

func TestScoreZeroInputIsFloor(t *testing.T) {
	if got := Score(ScoreInput{}); got != 0 {
		t.Fatalf("Score(zero) = %v, want 0", got)
	}
}

func TestSchedulerCoalescesAndRuns(t *testing.T) {
	var mu sync.Mutex
	runs := map[uuid.UUID]int{}
	started := make(chan struct{}, 16)

	s := NewScheduler(testutil.Logger(t), func(_ context.Context, id uuid.UUID) error {
		mu.Lock()
		runs[id]++
		mu.Unlock()
		started <- struct{}{}
		return nil
	}, 16, 1, time.Second)

	id := uuid.New()
	// All triggers land before the worker starts, so they must coalesce.
	s.Trigger(id)
	s.Trigger(id)
	s.Trigger(id)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("recompute never ran")
	}
	cancel()
	s.Wait()

	mu.Lock()
	defer mu.Unlock()
	if runs[id] != 1 {
		t.Fatalf("runs = %d, want 1 coalesced run", runs[id])
	}
}

func TestSchedulerSurvivesPanicAndError(t *testing.T) {
	calls := make(chan uuid.UUID, 8)
	s := NewScheduler(testutil.Logger(t), func(_ context.Context, id uuid.UUID) error {
		calls <- id
		panic("recompute blew up")
	}, 8, 1, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	first, second := uuid.New(), uuid.New()
	s.Trigger(first)

	select {
	case <-calls:
	case <-time.After(2 * time.Second):
		t.Fatal("first recompute never ran")
	}

	// The worker must still be alive after the panic.
	s.Trigger(second)
	select {
	case got := <-calls:
		if got != second {
			t.Fatalf("second run = %s, want %s", got, second)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive panic")
	}
}
