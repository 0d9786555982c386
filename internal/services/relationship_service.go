package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/knowledge-server/internal/data/repos"
	types "github.com/yungbote/knowledge-server/internal/domain"
	"github.com/yungbote/knowledge-server/internal/platform/logger"
)

type CreateRelationshipInput struct {
	SourceID uuid.UUID
	TargetID uuid.UUID
	Type     string
	Strength *float64
	Notes    string
}

type RelationshipService interface {
	Create(ctx context.Context, in CreateRelationshipInput) (*types.Relationship, error)
	// Delete is idempotent: removing an absent or already-deleted edge
	// succeeds without a new event.
	Delete(ctx context.Context, sourceID, targetID uuid.UUID, relType string) error
}

type relationshipService struct {
	db      *gorm.DB
	log     *logger.Logger
	events  repos.EventStore
	outbox  repos.OutboxRepo
	trigger ScoringTrigger
}

func NewRelationshipService(db *gorm.DB, baseLog *logger.Logger, events repos.EventStore, outboxRepo repos.OutboxRepo, trigger ScoringTrigger) RelationshipService {
	if trigger == nil {
		trigger = func(uuid.UUID) {}
	}
	return &relationshipService{
		db:      db,
		log:     baseLog.With("service", "RelationshipService"),
		events:  events,
		outbox:  outboxRepo,
		trigger: trigger,
	}
}

func (s *relationshipService) Create(ctx context.Context, in CreateRelationshipInput) (*types.Relationship, error) {
	if err := validateRelationshipType(in.Type); err != nil {
		return nil, err
	}
	if in.SourceID == uuid.Nil {
		return nil, types.NewValidationError("source_id", "required")
	}
	if in.TargetID == uuid.Nil {
		return nil, types.NewValidationError("target_id", "required")
	}
	if in.SourceID == in.TargetID {
		return nil, types.NewValidationError("target_id", "a concept cannot relate to itself")
	}
	strength := 1.0
	if in.Strength != nil {
		strength = *in.Strength
		if strength < 0 || strength > 1 {
			return nil, types.NewValidationError("strength", "must be within [0, 1]")
		}
	}

	// Both endpoints must exist and be active; the event log is the
	// authority, not the eventually-consistent graph.
	if err := s.requireConcept(ctx, in.SourceID); err != nil {
		return nil, err
	}
	if err := s.requireConcept(ctx, in.TargetID); err != nil {
		return nil, err
	}

	aggregateID := types.RelationshipAggregateID(in.SourceID, in.TargetID, in.Type)
	current, version, err := s.loadRelationship(ctx, aggregateID)
	if err != nil {
		return nil, err
	}
	if current != nil && !current.Deleted {
		return nil, types.NewValidationError("relationship", "already exists for this source, target and type")
	}

	rel := &types.Relationship{
		ID:        aggregateID,
		SourceID:  in.SourceID,
		TargetID:  in.TargetID,
		Type:      in.Type,
		Strength:  strength,
		Notes:     in.Notes,
		CreatedAt: time.Now().UTC(),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, evts, err := s.events.Append(ctx, tx, aggregateID, types.AggregateRelationship, version, []repos.EventDraft{{
			EventType: types.EventRelationshipCreated,
			Payload:   types.RelationshipEventPayload{Relationship: *rel},
		}})
		if err != nil {
			return err
		}
		_, err = s.outbox.Enqueue(ctx, tx, evts[0].ID, []string{types.TargetGraph})
		return err
	})
	if err != nil {
		return nil, err
	}

	rel.Version = version + 1
	s.trigger(in.SourceID)
	s.trigger(in.TargetID)
	s.log.Info("relationship created",
		"source_id", in.SourceID,
		"target_id", in.TargetID,
		"relationship_type", in.Type,
	)
	return rel, nil
}

func (s *relationshipService) Delete(ctx context.Context, sourceID, targetID uuid.UUID, relType string) error {
	if err := validateRelationshipType(relType); err != nil {
		return err
	}

	aggregateID := types.RelationshipAggregateID(sourceID, targetID, relType)
	current, version, err := s.loadRelationship(ctx, aggregateID)
	if err != nil {
		return err
	}
	if current == nil || current.Deleted {
		return nil
	}

	next := *current
	next.Deleted = true

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, evts, err := s.events.Append(ctx, tx, aggregateID, types.AggregateRelationship, version, []repos.EventDraft{{
			EventType: types.EventRelationshipDeleted,
			Payload:   types.RelationshipEventPayload{Relationship: next},
		}})
		if err != nil {
			return err
		}
		_, err = s.outbox.Enqueue(ctx, tx, evts[0].ID, []string{types.TargetGraph})
		return err
	})
	if err != nil {
		return err
	}

	s.trigger(sourceID)
	s.trigger(targetID)
	return nil
}

func (s *relationshipService) requireConcept(ctx context.Context, id uuid.UUID) error {
	stream, err := s.events.ReadStream(ctx, nil, id)
	if err != nil {
		return err
	}
	c, err := types.ReplayConcept(stream)
	if err != nil {
		return err
	}
	if c == nil || c.Deleted {
		return types.NewNotFoundError("concept", id)
	}
	return nil
}

func (s *relationshipService) loadRelationship(ctx context.Context, aggregateID uuid.UUID) (*types.Relationship, int, error) {
	stream, err := s.events.ReadStream(ctx, nil, aggregateID)
	if err != nil {
		return nil, 0, err
	}
	rel, err := types.ReplayRelationship(stream)
	if err != nil {
		return nil, 0, err
	}
	if rel == nil {
		return nil, 0, nil
	}
	return rel, rel.Version, nil
}
