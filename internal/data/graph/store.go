package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	types "github.com/yungbote/knowledge-server/internal/domain"
	"github.com/yungbote/knowledge-server/internal/platform/logger"
	"github.com/yungbote/knowledge-server/internal/platform/neo4jdb"
)

// Edge is one directed relationship row as stored in the graph, returned by
// frontier queries for the in-memory traversal algorithms.
type Edge struct {
	SourceID uuid.UUID
	TargetID uuid.UUID
	Type     string
	Strength float64
}

// ExactFilter is the filter set for exact concept search. Name matches
// case-insensitive substrings; the hierarchy labels match exactly.
type ExactFilter struct {
	Name         string
	Area         string
	Topic        string
	Subtopic     string
	MinCertainty float64
	Limit        int
}

type SubtopicNode struct {
	Subtopic string `json:"subtopic"`
	Count    int64  `json:"count"`
}

type TopicNode struct {
	Topic     string         `json:"topic"`
	Count     int64          `json:"count"`
	Subtopics []SubtopicNode `json:"subtopics,omitempty"`
}

type AreaNode struct {
	Area   string      `json:"area"`
	Count  int64       `json:"count"`
	Topics []TopicNode `json:"topics,omitempty"`
}

// Store is the Neo4j projection of concepts and relationships. Writes come
// only from the graph projector; everything else is read-side.
type Store interface {
	EnsureSchema(ctx context.Context) error

	UpsertConcept(ctx context.Context, c *types.Concept) error
	SetCertainty(ctx context.Context, conceptID uuid.UUID, score float64) error
	UpsertRelationship(ctx context.Context, r *types.Relationship) error
	DeleteRelationship(ctx context.Context, relationshipID uuid.UUID) error

	GetConcept(ctx context.Context, id uuid.UUID) (*types.Concept, error)
	GetConceptsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*types.Concept, error)
	ConceptExists(ctx context.Context, id uuid.UUID) (bool, error)
	SearchExact(ctx context.Context, f ExactFilter) ([]*types.Concept, error)
	RecentConcepts(ctx context.Context, since time.Time, limit int) ([]*types.Concept, error)
	ConceptsByCertainty(ctx context.Context, min, max float64, sortOrder string, limit int) ([]*types.Concept, error)
	Hierarchy(ctx context.Context) ([]AreaNode, error)
	FrontierEdges(ctx context.Context, ids []uuid.UUID, direction string, relTypes []string) ([]Edge, error)
	CountConcepts(ctx context.Context) (int64, error)
	CountRelationshipsByType(ctx context.Context) (map[string]int64, error)
}

type store struct {
	client *neo4jdb.Client
	log    *logger.Logger
}

func NewStore(client *neo4jdb.Client, baseLog *logger.Logger) (Store, error) {
	if client == nil || client.Driver == nil {
		return nil, fmt.Errorf("graph: neo4j client required")
	}
	if baseLog == nil {
		return nil, fmt.Errorf("graph: logger required")
	}
	return &store{
		client: client,
		log:    baseLog.With("repo", "GraphStore"),
	}, nil
}

// EnsureSchema creates constraints and indexes best-effort; restricted users
// may not be allowed to, so failures are logged and not fatal.
func (s *store) EnsureSchema(ctx context.Context) error {
	session := s.client.WriteSession(ctx)
	defer session.Close(ctx)

	stmts := []string{
		`CREATE CONSTRAINT concept_id_unique IF NOT EXISTS FOR (c:Concept) REQUIRE c.id IS UNIQUE`,
		`CREATE INDEX concept_name_idx IF NOT EXISTS FOR (c:Concept) ON (c.name)`,
		`CREATE INDEX concept_hierarchy_idx IF NOT EXISTS FOR (c:Concept) ON (c.area, c.topic, c.subtopic)`,
		`CREATE INDEX concept_modified_idx IF NOT EXISTS FOR (c:Concept) ON (c.last_modified_ms)`,
	}
	for _, stmt := range stmts {
		res, err := session.Run(ctx, stmt, nil)
		if err != nil {
			s.log.Warn("neo4j schema init failed (continuing)", "error", err)
			continue
		}
		_, _ = res.Consume(ctx)
	}
	return nil
}

const activeConcept = `coalesce(c.deleted, false) = false AND c.name IS NOT NULL`

func conceptParams(c *types.Concept) (map[string]any, error) {
	sourceURLs, err := json.Marshal(c.SourceURLs)
	if err != nil {
		return nil, fmt.Errorf("graph: marshal source urls: %w", err)
	}
	history, err := json.Marshal(c.ExplanationHistory)
	if err != nil {
		return nil, fmt.Errorf("graph: marshal explanation history: %w", err)
	}
	return map[string]any{
		"id":                       c.ID.String(),
		"name":                     c.Name,
		"explanation":              c.Explanation,
		"area":                     c.Area,
		"topic":                    c.Topic,
		"subtopic":                 c.Subtopic,
		"certainty_score":          c.CertaintyScore,
		"source_count":             int64(len(c.SourceURLs)),
		"source_urls_json":         string(sourceURLs),
		"explanation_history_json": string(history),
		"created_at":               c.CreatedAt.UTC().Format(time.RFC3339Nano),
		"created_at_ms":            c.CreatedAt.UTC().UnixMilli(),
		"last_modified":            c.LastModified.UTC().Format(time.RFC3339Nano),
		"last_modified_ms":         c.LastModified.UTC().UnixMilli(),
		"deleted":                  c.Deleted,
		"synced_at":                time.Now().UTC().Format(time.RFC3339Nano),
	}, nil
}

func conceptFromProps(props map[string]any) (*types.Concept, error) {
	id, err := uuid.Parse(propString(props, "id"))
	if err != nil {
		return nil, fmt.Errorf("graph: bad concept id: %w", err)
	}
	c := &types.Concept{
		ID:             id,
		Name:           propString(props, "name"),
		Explanation:    propString(props, "explanation"),
		Area:           propString(props, "area"),
		Topic:          propString(props, "topic"),
		Subtopic:       propString(props, "subtopic"),
		CertaintyScore: propFloat(props, "certainty_score"),
		CreatedAt:      time.UnixMilli(propInt64(props, "created_at_ms")).UTC(),
		LastModified:   time.UnixMilli(propInt64(props, "last_modified_ms")).UTC(),
		Deleted:        propBool(props, "deleted"),
	}
	if raw := propString(props, "source_urls_json"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &c.SourceURLs); err != nil {
			return nil, fmt.Errorf("graph: decode source urls for %s: %w", id, err)
		}
	}
	if raw := propString(props, "explanation_history_json"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &c.ExplanationHistory); err != nil {
			return nil, fmt.Errorf("graph: decode explanation history for %s: %w", id, err)
		}
	}
	return c, nil
}

func propString(props map[string]any, key string) string {
	if v, ok := props[key].(string); ok {
		return v
	}
	return ""
}

func propFloat(props map[string]any, key string) float64 {
	switch v := props[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	}
	return 0
}

func propInt64(props map[string]any, key string) int64 {
	switch v := props[key].(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	}
	return 0
}

func propBool(props map[string]any, key string) bool {
	if v, ok := props[key].(bool); ok {
		return v
	}
	return false
}

func recordProps(record *neo4j.Record, key string) (map[string]any, bool) {
	v, ok := record.Get(key)
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]any)
	return m, ok
}
