package repos

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/knowledge-server/internal/domain"
	"github.com/yungbote/knowledge-server/internal/platform/logger"
)

type OutboxRepo interface {
	// Enqueue creates one pending entry per target inside the caller's
	// transaction, so the event and its projection work commit together.
	Enqueue(ctx context.Context, tx *gorm.DB, eventID uuid.UUID, targets []string) ([]types.OutboxEntry, error)

	// Due returns pending entries whose next_attempt_at has passed, oldest
	// first. Entries that exhausted their retries are marked failed and are
	// never returned again.
	Due(ctx context.Context, limit int) ([]types.OutboxEntry, error)

	MarkCompleted(ctx context.Context, id uuid.UUID) error
	MarkRetry(ctx context.Context, id uuid.UUID, attempts int, lastErr string, nextAttempt time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, attempts int, lastErr string) error

	CountByStatus(ctx context.Context) (map[string]int64, error)
}

type outboxRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOutboxRepo(db *gorm.DB, baseLog *logger.Logger) OutboxRepo {
	return &outboxRepo{db: db, log: baseLog.With("repo", "OutboxRepo")}
}

func (r *outboxRepo) Enqueue(ctx context.Context, tx *gorm.DB, eventID uuid.UUID, targets []string) ([]types.OutboxEntry, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if eventID == uuid.Nil {
		return nil, fmt.Errorf("outbox enqueue: missing event id")
	}
	if len(targets) == 0 {
		return []types.OutboxEntry{}, nil
	}

	now := time.Now().UTC()
	rows := make([]types.OutboxEntry, 0, len(targets))
	for _, target := range targets {
		if target != types.TargetGraph && target != types.TargetVector {
			return nil, fmt.Errorf("outbox enqueue: unknown target %q", target)
		}
		rows = append(rows, types.OutboxEntry{
			ID:            uuid.New(),
			EventID:       eventID,
			Target:        target,
			Status:        types.OutboxPending,
			NextAttemptAt: now,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	}
	if err := t.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, fmt.Errorf("outbox enqueue: %w", err)
	}
	return rows, nil
}

func (r *outboxRepo) Due(ctx context.Context, limit int) ([]types.OutboxEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []types.OutboxEntry
	if err := r.db.WithContext(ctx).
		Where("status = ? AND next_attempt_at <= ?", types.OutboxPending, time.Now().UTC()).
		Order("created_at ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("outbox due: %w", err)
	}
	return out, nil
}

func (r *outboxRepo) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	return r.updateStatus(ctx, id, map[string]interface{}{
		"status":     types.OutboxCompleted,
		"updated_at": time.Now().UTC(),
	})
}

func (r *outboxRepo) MarkRetry(ctx context.Context, id uuid.UUID, attempts int, lastErr string, nextAttempt time.Time) error {
	return r.updateStatus(ctx, id, map[string]interface{}{
		"status":          types.OutboxPending,
		"attempts":        attempts,
		"last_error":      lastErr,
		"next_attempt_at": nextAttempt.UTC(),
		"updated_at":      time.Now().UTC(),
	})
}

func (r *outboxRepo) MarkFailed(ctx context.Context, id uuid.UUID, attempts int, lastErr string) error {
	return r.updateStatus(ctx, id, map[string]interface{}{
		"status":     types.OutboxFailed,
		"attempts":   attempts,
		"last_error": lastErr,
		"updated_at": time.Now().UTC(),
	})
}

func (r *outboxRepo) updateStatus(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return fmt.Errorf("outbox update: missing entry id")
	}
	res := r.db.WithContext(ctx).
		Model(&types.OutboxEntry{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("outbox update %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("outbox update %s: entry not found", id)
	}
	return nil
}

func (r *outboxRepo) CountByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		N      int64
	}
	if err := r.db.WithContext(ctx).Model(&types.OutboxEntry{}).
		Select("status, count(*) as n").
		Group("status").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := map[string]int64{
		types.OutboxPending:   0,
		types.OutboxCompleted: 0,
		types.OutboxFailed:    0,
	}
	for _, row := range rows {
		out[row.Status] = row.N
	}
	return out, nil
}
