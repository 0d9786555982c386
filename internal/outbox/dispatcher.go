package outbox

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/knowledge-server/internal/data/repos"
	types "github.com/yungbote/knowledge-server/internal/domain"
	"github.com/yungbote/knowledge-server/internal/platform/logger"
	"github.com/yungbote/knowledge-server/internal/projection"
)

type Config struct {
	Interval    time.Duration
	BatchSize   int
	Concurrency int
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

func (c *Config) fill() {
	if c.Interval <= 0 {
		c.Interval = time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = 2 * time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 5 * time.Minute
	}
}

// Dispatcher drains pending outbox entries into the projectors. Entries are
// independent (projections are idempotent and per-target), so a batch is
// processed concurrently; a transient failure reschedules the entry with
// exponential backoff until MaxAttempts, then parks it as failed for stats
// to surface. On restart it simply picks up whatever is still due.
type Dispatcher struct {
	log        *logger.Logger
	outbox     repos.OutboxRepo
	events     repos.EventStore
	projectors map[string]projection.Projector
	cfg        Config
}

func NewDispatcher(baseLog *logger.Logger, outboxRepo repos.OutboxRepo, events repos.EventStore, projectors []projection.Projector, cfg Config) *Dispatcher {
	cfg.fill()
	byTarget := make(map[string]projection.Projector, len(projectors))
	for _, p := range projectors {
		byTarget[p.Target()] = p
	}
	return &Dispatcher{
		log:        baseLog.With("component", "OutboxDispatcher"),
		outbox:     outboxRepo,
		events:     events,
		projectors: byTarget,
		cfg:        cfg,
	}
}

func (d *Dispatcher) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(d.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := d.DrainOnce(ctx); err != nil {
					d.log.Warn("outbox drain failed", "error", err)
				}
			}
		}
	}()
}

// DrainOnce claims one batch of due entries and processes it to completion.
func (d *Dispatcher) DrainOnce(ctx context.Context) error {
	entries, err := d.outbox.Due(ctx, d.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("load due entries: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.Concurrency)
	for _, entry := range entries {
		entry := entry
		g.Go(func() error {
			d.process(gctx, entry)
			return nil
		})
	}
	return g.Wait()
}

func (d *Dispatcher) process(ctx context.Context, entry types.OutboxEntry) {
	err := d.apply(ctx, entry)
	if err == nil {
		if mErr := d.outbox.MarkCompleted(ctx, entry.ID); mErr != nil {
			d.log.Warn("mark completed failed", "entry_id", entry.ID, "error", mErr)
		}
		return
	}

	attempts := entry.Attempts + 1
	if attempts >= d.cfg.MaxAttempts {
		d.log.Error("projection exhausted retries",
			"entry_id", entry.ID,
			"event_id", entry.EventID,
			"target", entry.Target,
			"attempts", attempts,
			"error", err,
		)
		if mErr := d.outbox.MarkFailed(ctx, entry.ID, attempts, err.Error()); mErr != nil {
			d.log.Warn("mark failed failed", "entry_id", entry.ID, "error", mErr)
		}
		return
	}

	next := time.Now().UTC().Add(d.backoff(attempts))
	d.log.Warn("projection retrying",
		"entry_id", entry.ID,
		"event_id", entry.EventID,
		"target", entry.Target,
		"attempts", attempts,
		"next_attempt_at", next,
		"error", err,
	)
	if mErr := d.outbox.MarkRetry(ctx, entry.ID, attempts, err.Error(), next); mErr != nil {
		d.log.Warn("mark retry failed", "entry_id", entry.ID, "error", mErr)
	}
}

func (d *Dispatcher) apply(ctx context.Context, entry types.OutboxEntry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("projection panic: %v", r)
		}
	}()

	projector, ok := d.projectors[entry.Target]
	if !ok {
		return fmt.Errorf("no projector for target %q", entry.Target)
	}

	evt, err := d.events.GetByID(ctx, entry.EventID)
	if err != nil {
		return err
	}

	if err := projector.Apply(ctx, evt); err != nil {
		return &types.ProjectionError{Target: entry.Target, EventID: evt.ID, Err: err}
	}
	return nil
}

func (d *Dispatcher) backoff(attempts int) time.Duration {
	b := d.cfg.BaseBackoff
	for i := 1; i < attempts; i++ {
		b *= 2
		if b >= d.cfg.MaxBackoff {
			return d.cfg.MaxBackoff
		}
	}
	return b
}
