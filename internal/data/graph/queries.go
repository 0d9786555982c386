package graph

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	types "github.com/yungbote/knowledge-server/internal/domain"
)

func (s *store) GetConcept(ctx context.Context, id uuid.UUID) (*types.Concept, error) {
	session := s.client.ReadSession(ctx)
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
MATCH (c:Concept {id: $id})
WHERE `+activeConcept+`
RETURN c {.*} AS concept
`, map[string]any{"id": id.String()})
	if err != nil {
		return nil, fmt.Errorf("graph: get concept: %w", err)
	}

	if result.Next(ctx) {
		props, ok := recordProps(result.Record(), "concept")
		if !ok {
			return nil, fmt.Errorf("graph: get concept: unexpected record shape")
		}
		return conceptFromProps(props)
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("graph: get concept: %w", err)
	}
	return nil, &types.NotFoundError{Kind: "concept", ID: id.String()}
}

func (s *store) GetConceptsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*types.Concept, error) {
	out := make(map[uuid.UUID]*types.Concept, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	session := s.client.ReadSession(ctx)
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
MATCH (c:Concept)
WHERE c.id IN $ids AND `+activeConcept+`
RETURN c {.*} AS concept
`, map[string]any{"ids": idStrings(ids)})
	if err != nil {
		return nil, fmt.Errorf("graph: get concepts by ids: %w", err)
	}

	for result.Next(ctx) {
		props, ok := recordProps(result.Record(), "concept")
		if !ok {
			continue
		}
		c, err := conceptFromProps(props)
		if err != nil {
			return nil, err
		}
		out[c.ID] = c
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("graph: get concepts by ids: %w", err)
	}
	return out, nil
}

func (s *store) ConceptExists(ctx context.Context, id uuid.UUID) (bool, error) {
	session := s.client.ReadSession(ctx)
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
MATCH (c:Concept {id: $id})
WHERE `+activeConcept+`
RETURN count(c) > 0 AS present
`, map[string]any{"id": id.String()})
	if err != nil {
		return false, fmt.Errorf("graph: concept exists: %w", err)
	}
	if result.Next(ctx) {
		if v, ok := result.Record().Get("present"); ok {
			present, _ := v.(bool)
			return present, nil
		}
	}
	return false, result.Err()
}

func (s *store) SearchExact(ctx context.Context, f ExactFilter) ([]*types.Concept, error) {
	session := s.client.ReadSession(ctx)
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
MATCH (c:Concept)
WHERE `+activeConcept+`
  AND ($name = '' OR toLower(c.name) CONTAINS toLower($name))
  AND ($area = '' OR c.area = $area)
  AND ($topic = '' OR c.topic = $topic)
  AND ($subtopic = '' OR c.subtopic = $subtopic)
  AND coalesce(c.certainty_score, 0) >= $min_certainty
RETURN c {.*} AS concept
ORDER BY coalesce(c.certainty_score, 0) DESC, c.created_at_ms DESC
LIMIT $limit
`, map[string]any{
		"name":          f.Name,
		"area":          f.Area,
		"topic":         f.Topic,
		"subtopic":      f.Subtopic,
		"min_certainty": f.MinCertainty,
		"limit":         int64(f.Limit),
	})
	if err != nil {
		return nil, fmt.Errorf("graph: exact search: %w", err)
	}
	return collectConcepts(ctx, result)
}

func (s *store) RecentConcepts(ctx context.Context, since time.Time, limit int) ([]*types.Concept, error) {
	session := s.client.ReadSession(ctx)
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
MATCH (c:Concept)
WHERE `+activeConcept+`
  AND c.last_modified_ms >= $since_ms
RETURN c {.*} AS concept
ORDER BY c.last_modified_ms DESC
LIMIT $limit
`, map[string]any{
		"since_ms": since.UTC().UnixMilli(),
		"limit":    int64(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("graph: recent concepts: %w", err)
	}
	return collectConcepts(ctx, result)
}

func (s *store) ConceptsByCertainty(ctx context.Context, min, max float64, sortOrder string, limit int) ([]*types.Concept, error) {
	order := "DESC"
	if sortOrder == "asc" {
		order = "ASC"
	}

	session := s.client.ReadSession(ctx)
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
MATCH (c:Concept)
WHERE `+activeConcept+`
  AND coalesce(c.certainty_score, 0) >= $min
  AND coalesce(c.certainty_score, 0) <= $max
RETURN c {.*} AS concept
ORDER BY coalesce(c.certainty_score, 0) `+order+`, c.created_at_ms DESC
LIMIT $limit
`, map[string]any{
		"min":   min,
		"max":   max,
		"limit": int64(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("graph: concepts by certainty: %w", err)
	}
	return collectConcepts(ctx, result)
}

// Hierarchy aggregates active concepts into area → topic → subtopic counts,
// alphabetically sorted at every level. Unlabelled levels group under "".
func (s *store) Hierarchy(ctx context.Context) ([]AreaNode, error) {
	session := s.client.ReadSession(ctx)
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
MATCH (c:Concept)
WHERE `+activeConcept+`
RETURN coalesce(c.area, '') AS area,
       coalesce(c.topic, '') AS topic,
       coalesce(c.subtopic, '') AS subtopic,
       count(c) AS n
`, nil)
	if err != nil {
		return nil, fmt.Errorf("graph: hierarchy: %w", err)
	}

	type key struct{ area, topic, subtopic string }
	counts := map[key]int64{}
	for result.Next(ctx) {
		record := result.Record()
		k := key{
			area:     recordString(record, "area"),
			topic:    recordString(record, "topic"),
			subtopic: recordString(record, "subtopic"),
		}
		counts[k] = recordInt64(record, "n")
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("graph: hierarchy: %w", err)
	}

	areas := map[string]*AreaNode{}
	topics := map[[2]string]*TopicNode{}
	for k, n := range counts {
		a, ok := areas[k.area]
		if !ok {
			a = &AreaNode{Area: k.area}
			areas[k.area] = a
		}
		a.Count += n

		tk := [2]string{k.area, k.topic}
		t, ok := topics[tk]
		if !ok {
			t = &TopicNode{Topic: k.topic}
			topics[tk] = t
		}
		t.Count += n
		t.Subtopics = append(t.Subtopics, SubtopicNode{Subtopic: k.subtopic, Count: n})
	}
	for tk, t := range topics {
		sort.Slice(t.Subtopics, func(i, j int) bool { return t.Subtopics[i].Subtopic < t.Subtopics[j].Subtopic })
		areas[tk[0]].Topics = append(areas[tk[0]].Topics, *t)
	}

	out := make([]AreaNode, 0, len(areas))
	for _, a := range areas {
		sort.Slice(a.Topics, func(i, j int) bool { return a.Topics[i].Topic < a.Topics[j].Topic })
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Area < out[j].Area })
	return out, nil
}

// FrontierEdges returns the stored edges touching any of the given concept
// ids in the requested direction, neighbors restricted to active concepts.
func (s *store) FrontierEdges(ctx context.Context, ids []uuid.UUID, direction string, relTypes []string) ([]Edge, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if relTypes == nil {
		relTypes = []string{}
	}

	var queries []string
	switch direction {
	case types.DirectionOutgoing:
		queries = []string{frontierOutgoingQuery}
	case types.DirectionIncoming:
		queries = []string{frontierIncomingQuery}
	case types.DirectionBoth:
		queries = []string{frontierOutgoingQuery, frontierIncomingQuery}
	default:
		return nil, types.NewEnumError("direction", direction, types.DirectionList())
	}

	session := s.client.ReadSession(ctx)
	defer session.Close(ctx)

	params := map[string]any{
		"ids":   idStrings(ids),
		"types": relTypes,
	}

	var out []Edge
	for _, q := range queries {
		result, err := session.Run(ctx, q, params)
		if err != nil {
			return nil, fmt.Errorf("graph: frontier edges: %w", err)
		}
		for result.Next(ctx) {
			record := result.Record()
			sourceID, err := uuid.Parse(recordString(record, "source_id"))
			if err != nil {
				continue
			}
			targetID, err := uuid.Parse(recordString(record, "target_id"))
			if err != nil {
				continue
			}
			out = append(out, Edge{
				SourceID: sourceID,
				TargetID: targetID,
				Type:     recordString(record, "type"),
				Strength: recordFloat(record, "strength"),
			})
		}
		if err := result.Err(); err != nil {
			return nil, fmt.Errorf("graph: frontier edges: %w", err)
		}
	}
	return out, nil
}

const frontierOutgoingQuery = `
MATCH (c:Concept)-[e:RELATES]->(n:Concept)
WHERE c.id IN $ids
  AND coalesce(n.deleted, false) = false AND n.name IS NOT NULL
  AND (size($types) = 0 OR e.type IN $types)
RETURN c.id AS source_id, n.id AS target_id, e.type AS type, e.strength AS strength
`

const frontierIncomingQuery = `
MATCH (n:Concept)-[e:RELATES]->(c:Concept)
WHERE c.id IN $ids
  AND coalesce(n.deleted, false) = false AND n.name IS NOT NULL
  AND (size($types) = 0 OR e.type IN $types)
RETURN n.id AS source_id, c.id AS target_id, e.type AS type, e.strength AS strength
`

func (s *store) CountConcepts(ctx context.Context) (int64, error) {
	session := s.client.ReadSession(ctx)
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
MATCH (c:Concept)
WHERE `+activeConcept+`
RETURN count(c) AS n
`, nil)
	if err != nil {
		return 0, fmt.Errorf("graph: count concepts: %w", err)
	}
	if result.Next(ctx) {
		return recordInt64(result.Record(), "n"), nil
	}
	return 0, result.Err()
}

func (s *store) CountRelationshipsByType(ctx context.Context) (map[string]int64, error) {
	session := s.client.ReadSession(ctx)
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
MATCH ()-[e:RELATES]->()
RETURN e.type AS type, count(e) AS n
`, nil)
	if err != nil {
		return nil, fmt.Errorf("graph: count relationships: %w", err)
	}

	out := map[string]int64{}
	for result.Next(ctx) {
		record := result.Record()
		out[recordString(record, "type")] = recordInt64(record, "n")
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("graph: count relationships: %w", err)
	}
	return out, nil
}

func collectConcepts(ctx context.Context, result neo4j.ResultWithContext) ([]*types.Concept, error) {
	var out []*types.Concept
	for result.Next(ctx) {
		props, ok := recordProps(result.Record(), "concept")
		if !ok {
			continue
		}
		c, err := conceptFromProps(props)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("graph: collect concepts: %w", err)
	}
	return out, nil
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func recordString(record *neo4j.Record, key string) string {
	if v, ok := record.Get(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func recordInt64(record *neo4j.Record, key string) int64 {
	if v, ok := record.Get(key); ok {
		switch n := v.(type) {
		case int64:
			return n
		case float64:
			return int64(n)
		}
	}
	return 0
}

func recordFloat(record *neo4j.Record, key string) float64 {
	if v, ok := record.Get(key); ok {
		switch n := v.(type) {
		case float64:
			return n
		case int64:
			return float64(n)
		}
	}
	return 0
}
