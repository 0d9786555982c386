package graph

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	types "github.com/yungbote/knowledge-server/internal/domain"
)

// UpsertConcept projects the full post-event snapshot onto the node. It is
// the applier for created, updated and deleted events alike; a deleted
// snapshot keeps the node with deleted=true.
func (s *store) UpsertConcept(ctx context.Context, c *types.Concept) error {
	params, err := conceptParams(c)
	if err != nil {
		return err
	}

	session := s.client.WriteSession(ctx)
	defer session.Close(ctx)

	_, err = session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MERGE (c:Concept {id: $id})
SET c.name = $name,
    c.explanation = $explanation,
    c.area = $area,
    c.topic = $topic,
    c.subtopic = $subtopic,
    c.certainty_score = $certainty_score,
    c.source_count = $source_count,
    c.source_urls_json = $source_urls_json,
    c.explanation_history_json = $explanation_history_json,
    c.created_at = $created_at,
    c.created_at_ms = $created_at_ms,
    c.last_modified = $last_modified,
    c.last_modified_ms = $last_modified_ms,
    c.deleted = $deleted,
    c.synced_at = $synced_at
`, params)
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	return err
}

// SetCertainty touches only the score so recalculation passes never move
// last_modified.
func (s *store) SetCertainty(ctx context.Context, conceptID uuid.UUID, score float64) error {
	session := s.client.WriteSession(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (c:Concept {id: $id})
SET c.certainty_score = $score,
    c.synced_at = $synced_at
`, map[string]any{
			"id":        conceptID.String(),
			"score":     score,
			"synced_at": time.Now().UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	return err
}

// UpsertRelationship MERGEs endpoint placeholders so edge projection is safe
// to run before the concept nodes have synced; the concept upsert fills the
// placeholder in later.
func (s *store) UpsertRelationship(ctx context.Context, r *types.Relationship) error {
	session := s.client.WriteSession(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MERGE (a:Concept {id: $source_id})
MERGE (b:Concept {id: $target_id})
MERGE (a)-[e:RELATES {id: $id}]->(b)
SET e.type = $type,
    e.strength = $strength,
    e.notes = $notes,
    e.created_at = $created_at,
    e.synced_at = $synced_at
`, map[string]any{
			"id":         r.ID.String(),
			"source_id":  r.SourceID.String(),
			"target_id":  r.TargetID.String(),
			"type":       r.Type,
			"strength":   r.Strength,
			"notes":      r.Notes,
			"created_at": r.CreatedAt.UTC().Format(time.RFC3339Nano),
			"synced_at":  time.Now().UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	return err
}

// DeleteRelationship removes the edge outright; history lives in the event
// log, not the graph. Deleting a missing edge is a no-op.
func (s *store) DeleteRelationship(ctx context.Context, relationshipID uuid.UUID) error {
	session := s.client.WriteSession(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH ()-[e:RELATES {id: $id}]->()
DELETE e
`, map[string]any{"id": relationshipID.String()})
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	return err
}
