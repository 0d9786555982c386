package projection

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/yungbote/knowledge-server/internal/clients/openai"
	"github.com/yungbote/knowledge-server/internal/clients/pinecone"
	types "github.com/yungbote/knowledge-server/internal/domain"
	"github.com/yungbote/knowledge-server/internal/platform/logger"
)

type vectorProjector struct {
	embedder openai.Client
	vectors  pinecone.VectorStore
	log      *logger.Logger
}

func NewVectorProjector(embedder openai.Client, vectors pinecone.VectorStore, baseLog *logger.Logger) Projector {
	return &vectorProjector{
		embedder: embedder,
		vectors:  vectors,
		log:      baseLog.With("component", "VectorProjector"),
	}
}

func (p *vectorProjector) Target() string { return types.TargetVector }

func (p *vectorProjector) Apply(ctx context.Context, evt *types.Event) error {
	switch evt.EventType {
	case types.EventConceptCreated, types.EventConceptUpdated:
		var payload types.ConceptEventPayload
		if err := json.Unmarshal(evt.Payload, &payload); err != nil {
			return fmt.Errorf("decode %s payload: %w", evt.EventType, err)
		}
		return p.upsertConcept(ctx, &payload.Concept)

	case types.EventConceptDeleted:
		var payload types.ConceptEventPayload
		if err := json.Unmarshal(evt.Payload, &payload); err != nil {
			return fmt.Errorf("decode %s payload: %w", evt.EventType, err)
		}
		// The vector side has no tombstone: the document disappears.
		return p.vectors.Delete(ctx, []string{payload.Concept.ID.String()})

	case types.EventCertaintyRecalculated:
		var payload types.CertaintyEventPayload
		if err := json.Unmarshal(evt.Payload, &payload); err != nil {
			return fmt.Errorf("decode %s payload: %w", evt.EventType, err)
		}
		return p.vectors.UpdateMetadata(ctx, payload.ConceptID.String(), map[string]any{
			"certainty_score": payload.Score,
		})

	default:
		p.log.Warn("unknown event type, skipping", "event_type", evt.EventType, "event_id", evt.ID)
		return nil
	}
}

func (p *vectorProjector) upsertConcept(ctx context.Context, c *types.Concept) error {
	if c.Deleted {
		return p.vectors.Delete(ctx, []string{c.ID.String()})
	}

	embedded, err := p.embedder.Embed(ctx, []string{c.EmbeddingText()})
	if err != nil {
		return fmt.Errorf("embed concept %s: %w", c.ID, err)
	}
	if len(embedded) != 1 {
		return fmt.Errorf("embed concept %s: got %d vectors", c.ID, len(embedded))
	}

	return p.vectors.Upsert(ctx, []pinecone.Vector{{
		ID:     c.ID.String(),
		Values: embedded[0],
		Metadata: map[string]any{
			"name":            c.Name,
			"area":            c.Area,
			"topic":           c.Topic,
			"subtopic":        c.Subtopic,
			"certainty_score": c.CertaintyScore,
		},
	}})
}
