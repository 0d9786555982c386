package scoring

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/knowledge-server/internal/platform/logger"
)

// Recalculator recomputes and persists one concept's certainty. The service
// layer supplies it; the scheduler only decides when to run it.
type Recalculator func(ctx context.Context, conceptID uuid.UUID) error

// Scheduler decouples certainty recalculation from the request path: a
// buffered channel feeds a small worker pool, and triggers for a concept
// already waiting in the queue coalesce into one recompute. A trigger never
// fails the caller; overload and recompute errors are logged only.
type Scheduler struct {
	log     *logger.Logger
	recalc  Recalculator
	ch      chan uuid.UUID
	workers int
	budget  time.Duration

	mu      sync.Mutex
	pending map[uuid.UUID]bool

	wg sync.WaitGroup
}

func NewScheduler(baseLog *logger.Logger, recalc Recalculator, queueSize, workers int, budget time.Duration) *Scheduler {
	if queueSize <= 0 {
		queueSize = 256
	}
	if workers <= 0 {
		workers = 2
	}
	if budget <= 0 {
		budget = 10 * time.Second
	}
	return &Scheduler{
		log:     baseLog.With("component", "ScoringScheduler"),
		recalc:  recalc,
		ch:      make(chan uuid.UUID, queueSize),
		workers: workers,
		budget:  budget,
		pending: make(map[uuid.UUID]bool),
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case id := <-s.ch:
					s.mu.Lock()
					delete(s.pending, id)
					s.mu.Unlock()
					s.run(ctx, id)
				}
			}
		}()
	}
}

// Trigger schedules a recompute for the concept. Duplicate triggers while
// one is still queued collapse; a full queue drops the trigger.
func (s *Scheduler) Trigger(conceptID uuid.UUID) {
	s.mu.Lock()
	if s.pending[conceptID] {
		s.mu.Unlock()
		return
	}
	s.pending[conceptID] = true
	s.mu.Unlock()

	select {
	case s.ch <- conceptID:
	default:
		s.mu.Lock()
		delete(s.pending, conceptID)
		s.mu.Unlock()
		s.log.Warn("scoring queue full, dropping trigger", "concept_id", conceptID)
	}
}

// QueueDepth reports how many recomputes are waiting, for stats.
func (s *Scheduler) QueueDepth() int {
	return len(s.ch)
}

// Wait blocks until the workers exit; call after cancelling the Start ctx.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context, id uuid.UUID) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("certainty recompute panic", "concept_id", id, "panic", r)
		}
	}()

	runCtx, cancel := context.WithTimeout(ctx, s.budget)
	defer cancel()

	if err := s.recalc(runCtx, id); err != nil {
		s.log.Warn("certainty recompute failed", "concept_id", id, "error", err)
	}
}
