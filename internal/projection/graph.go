package projection

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/yungbote/knowledge-server/internal/data/graph"
	types "github.com/yungbote/knowledge-server/internal/domain"
	"github.com/yungbote/knowledge-server/internal/platform/logger"
)

// Projector applies one durable event to one projection store. Appliers are
// idempotent upserts/deletes keyed by aggregate id, so the at-least-once
// delivery of the outbox dispatcher is safe.
type Projector interface {
	Target() string
	Apply(ctx context.Context, evt *types.Event) error
}

type graphProjector struct {
	store graph.Store
	log   *logger.Logger
}

func NewGraphProjector(store graph.Store, baseLog *logger.Logger) Projector {
	return &graphProjector{
		store: store,
		log:   baseLog.With("component", "GraphProjector"),
	}
}

func (p *graphProjector) Target() string { return types.TargetGraph }

func (p *graphProjector) Apply(ctx context.Context, evt *types.Event) error {
	switch evt.EventType {
	case types.EventConceptCreated, types.EventConceptUpdated, types.EventConceptDeleted:
		var payload types.ConceptEventPayload
		if err := json.Unmarshal(evt.Payload, &payload); err != nil {
			return fmt.Errorf("decode %s payload: %w", evt.EventType, err)
		}
		return p.store.UpsertConcept(ctx, &payload.Concept)

	case types.EventCertaintyRecalculated:
		var payload types.CertaintyEventPayload
		if err := json.Unmarshal(evt.Payload, &payload); err != nil {
			return fmt.Errorf("decode %s payload: %w", evt.EventType, err)
		}
		return p.store.SetCertainty(ctx, payload.ConceptID, payload.Score)

	case types.EventRelationshipCreated:
		var payload types.RelationshipEventPayload
		if err := json.Unmarshal(evt.Payload, &payload); err != nil {
			return fmt.Errorf("decode %s payload: %w", evt.EventType, err)
		}
		return p.store.UpsertRelationship(ctx, &payload.Relationship)

	case types.EventRelationshipDeleted:
		var payload types.RelationshipEventPayload
		if err := json.Unmarshal(evt.Payload, &payload); err != nil {
			return fmt.Errorf("decode %s payload: %w", evt.EventType, err)
		}
		return p.store.DeleteRelationship(ctx, payload.Relationship.ID)

	default:
		p.log.Warn("unknown event type, skipping", "event_type", evt.EventType, "event_id", evt.ID)
		return nil
	}
}
