package repos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/knowledge-server/internal/domain"
	"github.com/yungbote/knowledge-server/internal/platform/logger"
)

// EventDraft is an event awaiting append; the store assigns id, version and
// timestamp at commit time.
type EventDraft struct {
	EventType string
	Payload   any
}

type EventStore interface {
	// Append commits all drafts at sequential versions starting at
	// expectedVersion+1, or none of them. A unique-index violation on
	// (aggregate_id, version) means another writer won the race and is
	// returned as *domain.ConflictError.
	Append(ctx context.Context, tx *gorm.DB, aggregateID uuid.UUID, aggregateType string, expectedVersion int, drafts []EventDraft) (int, []types.Event, error)

	ReadStream(ctx context.Context, tx *gorm.DB, aggregateID uuid.UUID) ([]types.Event, error)
	GetByID(ctx context.Context, eventID uuid.UUID) (*types.Event, error)

	CountTotal(ctx context.Context) (int64, error)
	CountByEventType(ctx context.Context) (map[string]int64, error)
}

type eventStore struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEventStore(db *gorm.DB, baseLog *logger.Logger) EventStore {
	return &eventStore{db: db, log: baseLog.With("repo", "EventStore")}
}

func (s *eventStore) Append(ctx context.Context, tx *gorm.DB, aggregateID uuid.UUID, aggregateType string, expectedVersion int, drafts []EventDraft) (int, []types.Event, error) {
	t := tx
	if t == nil {
		t = s.db
	}
	if aggregateID == uuid.Nil {
		return 0, nil, fmt.Errorf("event store append: missing aggregate id")
	}
	if len(drafts) == 0 {
		return expectedVersion, nil, nil
	}

	now := time.Now().UTC()
	rows := make([]types.Event, 0, len(drafts))
	for i, d := range drafts {
		payload, err := json.Marshal(d.Payload)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal %s payload: %w", d.EventType, err)
		}
		rows = append(rows, types.Event{
			ID:            uuid.New(),
			AggregateID:   aggregateID,
			AggregateType: aggregateType,
			EventType:     d.EventType,
			Version:       expectedVersion + i + 1,
			Payload:       payload,
			CreatedAt:     now,
		})
	}

	if err := t.WithContext(ctx).Create(&rows).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return 0, nil, &types.ConflictError{AggregateID: aggregateID, ExpectedVersion: expectedVersion}
		}
		return 0, nil, fmt.Errorf("append events: %w", err)
	}
	return rows[len(rows)-1].Version, rows, nil
}

func (s *eventStore) ReadStream(ctx context.Context, tx *gorm.DB, aggregateID uuid.UUID) ([]types.Event, error) {
	t := tx
	if t == nil {
		t = s.db
	}
	var out []types.Event
	if aggregateID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(ctx).
		Where("aggregate_id = ?", aggregateID).
		Order("version ASC").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("read stream %s: %w", aggregateID, err)
	}
	return out, nil
}

func (s *eventStore) GetByID(ctx context.Context, eventID uuid.UUID) (*types.Event, error) {
	var evt types.Event
	err := s.db.WithContext(ctx).Where("id = ?", eventID).First(&evt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &types.NotFoundError{Kind: "event", ID: eventID.String()}
	}
	if err != nil {
		return nil, fmt.Errorf("get event %s: %w", eventID, err)
	}
	return &evt, nil
}

func (s *eventStore) CountTotal(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&types.Event{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (s *eventStore) CountByEventType(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		EventType string
		N         int64
	}
	if err := s.db.WithContext(ctx).Model(&types.Event{}).
		Select("event_type, count(*) as n").
		Group("event_type").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.EventType] = r.N
	}
	return out, nil
}
