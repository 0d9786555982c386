package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/yungbote/knowledge-server/internal/clients/openai"
	"github.com/yungbote/knowledge-server/internal/clients/pinecone"
	"github.com/yungbote/knowledge-server/internal/clients/redis"
	"github.com/yungbote/knowledge-server/internal/data/graph"
	"github.com/yungbote/knowledge-server/internal/data/repos"
	types "github.com/yungbote/knowledge-server/internal/domain"
	"github.com/yungbote/knowledge-server/internal/graphalg"
	"github.com/yungbote/knowledge-server/internal/platform/logger"
)

const hierarchyCacheKey = "hierarchy"

type RelatedConcept struct {
	Concept  *types.Concept `json:"concept"`
	Distance int            `json:"distance"`
	ViaType  string         `json:"via_relationship_type"`
}

type PrerequisiteEntry struct {
	Concept *types.Concept `json:"concept"`
	Depth   int            `json:"depth"`
}

type SemanticHit struct {
	Concept *types.Concept `json:"concept"`
	Score   float64        `json:"similarity"`
}

type SemanticSearchInput struct {
	Query        string
	Limit        int
	MinCertainty float64
	Area         string
	Topic        string
}

type ExactSearchInput struct {
	Name         string
	Area         string
	Topic        string
	Subtopic     string
	MinCertainty float64
	Limit        int
}

type CertaintyQueryInput struct {
	MinCertainty float64
	MaxCertainty float64
	Limit        int
	SortOrder    string
}

type ServerStats struct {
	EventsTotal         int64            `json:"events_total"`
	EventsByType        map[string]int64 `json:"events_by_type"`
	Outbox              map[string]int64 `json:"outbox"`
	ConceptCount        int64            `json:"concept_count"`
	RelationshipsByType map[string]int64 `json:"relationships_by_type"`
	ScoringQueueDepth   int              `json:"scoring_queue_depth"`
}

type QueryService interface {
	Related(ctx context.Context, conceptID uuid.UUID, direction, relType string, maxDepth int) ([]RelatedConcept, []string, error)
	Prerequisites(ctx context.Context, conceptID uuid.UUID, maxDepth int) ([]PrerequisiteEntry, []string, error)
	Chain(ctx context.Context, startID, endID uuid.UUID, relType string) ([]*types.Concept, []string, error)
	SearchSemantic(ctx context.Context, in SemanticSearchInput) ([]SemanticHit, []string, error)
	SearchExact(ctx context.Context, in ExactSearchInput) ([]*types.Concept, []string, error)
	Recent(ctx context.Context, days, limit int) ([]*types.Concept, []string, error)
	Hierarchy(ctx context.Context) ([]graph.AreaNode, error)
	ByCertainty(ctx context.Context, in CertaintyQueryInput) ([]*types.Concept, []string, error)
	Stats(ctx context.Context) (*ServerStats, error)
}

// QueueDepther reports pending scoring work for stats.
type QueueDepther interface {
	QueueDepth() int
}

type queryService struct {
	log       *logger.Logger
	graph     graph.Store
	vectors   pinecone.VectorStore
	embedder  openai.Client
	events    repos.EventStore
	outbox    repos.OutboxRepo
	cache     redis.Cache
	scoring   QueueDepther
	budget    time.Duration
	cacheTTL  time.Duration
	hierarchy singleflight.Group
}

func NewQueryService(
	baseLog *logger.Logger,
	graphStore graph.Store,
	vectors pinecone.VectorStore,
	embedder openai.Client,
	events repos.EventStore,
	outboxRepo repos.OutboxRepo,
	cache redis.Cache,
	scoringQueue QueueDepther,
	budget time.Duration,
) QueryService {
	if budget <= 0 {
		budget = 500 * time.Millisecond
	}
	return &queryService{
		log:      baseLog.With("service", "QueryService"),
		graph:    graphStore,
		vectors:  vectors,
		embedder: embedder,
		events:   events,
		outbox:   outboxRepo,
		cache:    cache,
		scoring:  scoringQueue,
		budget:   budget,
		cacheTTL: 5 * time.Minute,
	}
}

// withBudget bounds a read and maps a tripped deadline onto TimeoutError.
func (s *queryService) withBudget(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.budget)
	defer cancel()
	err := fn(ctx)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		return &types.TimeoutError{Op: op, Budget: s.budget.String()}
	}
	return err
}

func (s *queryService) Related(ctx context.Context, conceptID uuid.UUID, direction, relType string, maxDepth int) ([]RelatedConcept, []string, error) {
	var warnings []string
	direction, err := normalizeDirection(direction)
	if err != nil {
		return nil, nil, err
	}
	var relTypes []string
	if relType != "" {
		if err := validateRelationshipType(relType); err != nil {
			return nil, nil, err
		}
		relTypes = []string{relType}
	}
	maxDepth = clampInt("max_depth", maxDepth, RelatedDepthDefault, 1, RelatedDepthMax, &warnings)

	var out []RelatedConcept
	err = s.withBudget(ctx, "get_related_concepts", func(ctx context.Context) error {
		if err := s.requireInGraph(ctx, conceptID); err != nil {
			return err
		}
		related, err := graphalg.RelatedConcepts(ctx, s.frontier(), conceptID, direction, relTypes, maxDepth)
		if err != nil {
			return err
		}
		hydrated, err := s.hydrate(ctx, relatedIDs(related))
		if err != nil {
			return err
		}
		for _, r := range related {
			c, ok := hydrated[r.ID]
			if !ok {
				continue
			}
			out = append(out, RelatedConcept{Concept: c, Distance: r.Distance, ViaType: r.ViaType})
		}
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].Distance != out[j].Distance {
				return out[i].Distance < out[j].Distance
			}
			return out[i].Concept.Name < out[j].Concept.Name
		})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return out, warnings, nil
}

func (s *queryService) Prerequisites(ctx context.Context, conceptID uuid.UUID, maxDepth int) ([]PrerequisiteEntry, []string, error) {
	var warnings []string
	maxDepth = clampInt("max_depth", maxDepth, PrereqDepthDefault, 1, PrereqDepthMax, &warnings)

	var out []PrerequisiteEntry
	err := s.withBudget(ctx, "get_prerequisites", func(ctx context.Context) error {
		if err := s.requireInGraph(ctx, conceptID); err != nil {
			return err
		}
		chain, err := graphalg.PrerequisiteChain(ctx, s.frontier(), conceptID, maxDepth)
		if err != nil {
			return err
		}
		ids := make([]uuid.UUID, len(chain))
		for i, n := range chain {
			ids[i] = n.ID
		}
		hydrated, err := s.hydrate(ctx, ids)
		if err != nil {
			return err
		}
		for _, n := range chain {
			c, ok := hydrated[n.ID]
			if !ok {
				continue
			}
			out = append(out, PrerequisiteEntry{Concept: c, Depth: n.Depth})
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return out, warnings, nil
}

func (s *queryService) Chain(ctx context.Context, startID, endID uuid.UUID, relType string) ([]*types.Concept, []string, error) {
	var relTypes []string
	if relType != "" {
		if err := validateRelationshipType(relType); err != nil {
			return nil, nil, err
		}
		relTypes = []string{relType}
	}

	var out []*types.Concept
	err := s.withBudget(ctx, "get_concept_chain", func(ctx context.Context) error {
		if err := s.requireInGraph(ctx, startID); err != nil {
			return err
		}
		if err := s.requireInGraph(ctx, endID); err != nil {
			return err
		}
		path, err := graphalg.ShortestPath(ctx, s.frontier(), startID, endID, relTypes, ChainDepthMax)
		if err != nil {
			return err
		}
		if len(path) == 0 {
			return nil
		}
		hydrated, err := s.hydrate(ctx, path)
		if err != nil {
			return err
		}
		for _, id := range path {
			if c, ok := hydrated[id]; ok {
				out = append(out, c)
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return out, nil, nil
}

func (s *queryService) SearchSemantic(ctx context.Context, in SemanticSearchInput) ([]SemanticHit, []string, error) {
	if in.Query == "" {
		return nil, nil, types.NewValidationError("query", "must not be blank")
	}
	var warnings []string
	limit := clampInt("limit", in.Limit, SemanticLimitDefault, 1, SemanticLimitMax, &warnings)

	filter := map[string]any{}
	if in.Area != "" {
		filter["area"] = in.Area
	}
	if in.Topic != "" {
		filter["topic"] = in.Topic
	}
	if in.MinCertainty > 0 {
		filter["certainty_score"] = map[string]any{"$gte": in.MinCertainty}
	}
	if len(filter) == 0 {
		filter = nil
	}

	var out []SemanticHit
	// Embedding calls ride the outer context: the model round trip does not
	// fit a graph-read budget.
	embedded, err := s.embedder.Embed(ctx, []string{in.Query})
	if err != nil {
		return nil, nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := s.vectors.Query(ctx, embedded[0], limit, filter)
	if err != nil {
		return nil, nil, err
	}

	err = s.withBudget(ctx, "search_concepts_semantic", func(ctx context.Context) error {
		ids := make([]uuid.UUID, 0, len(matches))
		for _, m := range matches {
			id, err := uuid.Parse(m.ID)
			if err != nil {
				continue
			}
			ids = append(ids, id)
		}
		hydrated, err := s.hydrate(ctx, ids)
		if err != nil {
			return err
		}
		// Matches arrive ordered by similarity; hydration preserves it.
		for _, m := range matches {
			id, err := uuid.Parse(m.ID)
			if err != nil {
				continue
			}
			if c, ok := hydrated[id]; ok {
				out = append(out, SemanticHit{Concept: c, Score: m.Score})
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return out, warnings, nil
}

func (s *queryService) SearchExact(ctx context.Context, in ExactSearchInput) ([]*types.Concept, []string, error) {
	var warnings []string
	limit := clampInt("limit", in.Limit, ExactLimitDefault, 1, ExactLimitMax, &warnings)

	var out []*types.Concept
	err := s.withBudget(ctx, "search_concepts_exact", func(ctx context.Context) error {
		var err error
		out, err = s.graph.SearchExact(ctx, graph.ExactFilter{
			Name:         in.Name,
			Area:         in.Area,
			Topic:        in.Topic,
			Subtopic:     in.Subtopic,
			MinCertainty: in.MinCertainty,
			Limit:        limit,
		})
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return out, warnings, nil
}

func (s *queryService) Recent(ctx context.Context, days, limit int) ([]*types.Concept, []string, error) {
	var warnings []string
	days = clampInt("days", days, RecentDaysDefault, 1, RecentDaysMax, &warnings)
	limit = clampInt("limit", limit, RecentLimitDefault, 1, RecentLimitMax, &warnings)
	since := time.Now().UTC().AddDate(0, 0, -days)

	var out []*types.Concept
	err := s.withBudget(ctx, "get_recent_concepts", func(ctx context.Context) error {
		var err error
		out, err = s.graph.RecentConcepts(ctx, since, limit)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return out, warnings, nil
}

// Hierarchy serves the area→topic→subtopic rollup from a 5-minute cache;
// concurrent rebuilds collapse through singleflight. Staleness after a
// categorization change is bounded by the TTL.
func (s *queryService) Hierarchy(ctx context.Context) ([]graph.AreaNode, error) {
	var cached []graph.AreaNode
	if hit, err := s.cache.GetJSON(ctx, hierarchyCacheKey, &cached); err == nil && hit {
		return cached, nil
	} else if err != nil {
		s.log.Warn("hierarchy cache read failed", "error", err)
	}

	v, err, _ := s.hierarchy.Do(hierarchyCacheKey, func() (any, error) {
		var out []graph.AreaNode
		err := s.withBudget(ctx, "list_hierarchy", func(ctx context.Context) error {
			var err error
			out, err = s.graph.Hierarchy(ctx)
			return err
		})
		if err != nil {
			return nil, err
		}
		if err := s.cache.SetJSON(ctx, hierarchyCacheKey, out, s.cacheTTL); err != nil {
			s.log.Warn("hierarchy cache write failed", "error", err)
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]graph.AreaNode), nil
}

func (s *queryService) ByCertainty(ctx context.Context, in CertaintyQueryInput) ([]*types.Concept, []string, error) {
	sortOrder, err := normalizeSortOrder(in.SortOrder)
	if err != nil {
		return nil, nil, err
	}
	var warnings []string
	if in.MaxCertainty == 0 {
		// Zero means not supplied; an explicit 0..0 band has no useful reading.
		in.MaxCertainty = 100
	}
	min, max := normalizeCertaintyRange(in.MinCertainty, in.MaxCertainty, &warnings)
	limit := clampInt("limit", in.Limit, CertaintyLimitDefault, 1, CertaintyLimitMax, &warnings)

	var out []*types.Concept
	err = s.withBudget(ctx, "get_concepts_by_certainty", func(ctx context.Context) error {
		var err error
		out, err = s.graph.ConceptsByCertainty(ctx, min, max, sortOrder, limit)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return out, warnings, nil
}

func (s *queryService) Stats(ctx context.Context) (*ServerStats, error) {
	eventsTotal, err := s.events.CountTotal(ctx)
	if err != nil {
		return nil, err
	}
	byType, err := s.events.CountByEventType(ctx)
	if err != nil {
		return nil, err
	}
	outboxCounts, err := s.outbox.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	conceptCount, err := s.graph.CountConcepts(ctx)
	if err != nil {
		return nil, err
	}
	relCounts, err := s.graph.CountRelationshipsByType(ctx)
	if err != nil {
		return nil, err
	}

	stats := &ServerStats{
		EventsTotal:         eventsTotal,
		EventsByType:        byType,
		Outbox:              outboxCounts,
		ConceptCount:        conceptCount,
		RelationshipsByType: relCounts,
	}
	if s.scoring != nil {
		stats.ScoringQueueDepth = s.scoring.QueueDepth()
	}
	return stats, nil
}

func (s *queryService) requireInGraph(ctx context.Context, id uuid.UUID) error {
	ok, err := s.graph.ConceptExists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return types.NewNotFoundError("concept", id)
	}
	return nil
}

// frontier adapts the graph store's edge rows to the traversal package.
func (s *queryService) frontier() graphalg.Frontier {
	return func(ctx context.Context, ids []uuid.UUID, direction string, relTypes []string) ([]graphalg.Edge, error) {
		edges, err := s.graph.FrontierEdges(ctx, ids, direction, relTypes)
		if err != nil {
			return nil, err
		}
		out := make([]graphalg.Edge, len(edges))
		for i, e := range edges {
			out[i] = graphalg.Edge{
				SourceID: e.SourceID,
				TargetID: e.TargetID,
				Type:     e.Type,
				Strength: e.Strength,
			}
		}
		return out, nil
	}
}

func (s *queryService) hydrate(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*types.Concept, error) {
	return s.graph.GetConceptsByIDs(ctx, ids)
}

func relatedIDs(related []graphalg.Related) []uuid.UUID {
	out := make([]uuid.UUID, len(related))
	for i, r := range related {
		out[i] = r.ID
	}
	return out
}
