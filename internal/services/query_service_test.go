package services

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/knowledge-server/internal/clients/pinecone"
	"github.com/yungbote/knowledge-server/internal/clients/redis"
	"github.com/yungbote/knowledge-server/internal/data/graph"
	"github.com/yungbote/knowledge-server/internal/data/repos"
	"github.com/yungbote/knowledge-server/internal/data/repos/testutil"
	types "github.com/yungbote/knowledge-server/internal/domain"
)

type fakeEmbedder struct{ calls int32 }

func (f *fakeEmbedder) Embed(_ context.Context, inputs []string) ([][]float32, error) {
	atomic.AddInt32(&f.calls, 1)
	out := make([][]float32, len(inputs))
	for i := range inputs {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

type fakeVectors struct {
	matches    []pinecone.Match
	lastFilter map[string]any
	lastTopK   int
}

func (f *fakeVectors) Upsert(context.Context, []pinecone.Vector) error          { return nil }
func (f *fakeVectors) Delete(context.Context, []string) error                   { return nil }
func (f *fakeVectors) UpdateMetadata(context.Context, string, map[string]any) error { return nil }
func (f *fakeVectors) VectorCount(context.Context) (int64, error)               { return int64(len(f.matches)), nil }

func (f *fakeVectors) Query(_ context.Context, _ []float32, topK int, filter map[string]any) ([]pinecone.Match, error) {
	f.lastTopK = topK
	f.lastFilter = filter
	return f.matches, nil
}

type fakeQueue struct{ depth int }

func (f *fakeQueue) QueueDepth() int { return f.depth }

func newQueryFixture(t *testing.T) (*fakeGraph, *fakeEmbedder, *fakeVectors, QueryService) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	fg := newFakeGraph()
	fe := &fakeEmbedder{}
	fv := &fakeVectors{}
	svc := NewQueryService(
		log, fg, fv, fe,
		repos.NewEventStore(db, log),
		repos.NewOutboxRepo(db, log),
		redis.NewMemoryCache(),
		&fakeQueue{depth: 3},
		time.Second,
	)
	return fg, fe, fv, svc
}

func seedConcept(fg *fakeGraph, name string) uuid.UUID {
	id := uuid.New()
	fg.put(&types.Concept{
		ID:          id,
		Name:        name,
		Explanation: "seeded",
		Area:        "Mathematics",
	})
	return id
}

func TestRelatedClampsDepthWithWarning(t *testing.T) {
	fg, _, _, svc := newQueryFixture(t)
	ctx := context.Background()

	a := seedConcept(fg, "a")
	b := seedConcept(fg, "b")
	fg.edges = append(fg.edges, edgeFor(a, b, types.RelRelatesTo, 0.5))

	out, warnings, err := svc.Related(ctx, a, "", "", 50)
	if err != nil {
		t.Fatalf("Related: %v", err)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "max_depth") {
		t.Fatalf("expected a max_depth clamp warning, got %v", warnings)
	}
	if len(out) != 1 || out[0].Concept.ID != b || out[0].Distance != 1 {
		t.Fatalf("unexpected related set: %+v", out)
	}
	if out[0].ViaType != types.RelRelatesTo {
		t.Fatalf("expected via type %s, got %s", types.RelRelatesTo, out[0].ViaType)
	}
}

func TestRelatedUnknownDirection(t *testing.T) {
	fg, _, _, svc := newQueryFixture(t)
	a := seedConcept(fg, "a")

	_, _, err := svc.Related(context.Background(), a, "sideways", "", 0)
	var verr *types.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestRelatedMissingConcept(t *testing.T) {
	_, _, _, svc := newQueryFixture(t)
	_, _, err := svc.Related(context.Background(), uuid.New(), "", "", 0)
	var nf *types.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestPrerequisitesDeepestFirst(t *testing.T) {
	fg, _, _, svc := newQueryFixture(t)
	ctx := context.Background()

	// a -> b -> c -> d, all prerequisite edges.
	a := seedConcept(fg, "a")
	b := seedConcept(fg, "b")
	c := seedConcept(fg, "c")
	d := seedConcept(fg, "d")
	fg.edges = append(fg.edges,
		edgeFor(a, b, types.RelPrerequisite, 1),
		edgeFor(b, c, types.RelPrerequisite, 1),
		edgeFor(c, d, types.RelPrerequisite, 1),
	)

	out, _, err := svc.Prerequisites(ctx, d, 5)
	if err != nil {
		t.Fatalf("Prerequisites: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 prerequisites, got %d", len(out))
	}
	wantOrder := []uuid.UUID{a, b, c}
	wantDepth := []int{3, 2, 1}
	for i, entry := range out {
		if entry.Concept.ID != wantOrder[i] || entry.Depth != wantDepth[i] {
			t.Fatalf("entry %d: got (%s, depth %d)", i, entry.Concept.Name, entry.Depth)
		}
	}
}

func TestChainHydratesPathInOrder(t *testing.T) {
	fg, _, _, svc := newQueryFixture(t)
	ctx := context.Background()

	a := seedConcept(fg, "a")
	b := seedConcept(fg, "b")
	c := seedConcept(fg, "c")
	fg.edges = append(fg.edges,
		edgeFor(a, b, types.RelRelatesTo, 1),
		edgeFor(b, c, types.RelRelatesTo, 1),
	)

	path, _, err := svc.Chain(ctx, a, c, "")
	if err != nil {
		t.Fatalf("Chain: %v", err)
	}
	if len(path) != 3 || path[0].ID != a || path[1].ID != b || path[2].ID != c {
		t.Fatalf("unexpected path: %+v", path)
	}

	// Same start and end is a zero-length chain containing the node itself.
	path, _, err = svc.Chain(ctx, a, a, "")
	if err != nil {
		t.Fatalf("Chain same node: %v", err)
	}
	if len(path) != 1 || path[0].ID != a {
		t.Fatalf("expected single-node path, got %+v", path)
	}

	// Disconnected endpoints produce an empty path, not an error.
	lone := seedConcept(fg, "lone")
	path, _, err = svc.Chain(ctx, a, lone, "")
	if err != nil {
		t.Fatalf("Chain disconnected: %v", err)
	}
	if len(path) != 0 {
		t.Fatalf("expected no path, got %+v", path)
	}
}

func TestSearchSemanticPreservesScoreOrder(t *testing.T) {
	fg, fe, fv, svc := newQueryFixture(t)
	ctx := context.Background()

	first := seedConcept(fg, "first")
	second := seedConcept(fg, "second")
	ghost := uuid.New() // in the index but gone from the graph
	fv.matches = []pinecone.Match{
		{ID: first.String(), Score: 0.93},
		{ID: ghost.String(), Score: 0.88},
		{ID: second.String(), Score: 0.81},
	}

	hits, warnings, err := svc.SearchSemantic(ctx, SemanticSearchInput{
		Query:        "group axioms",
		Limit:        500,
		MinCertainty: 40,
		Area:         "Mathematics",
	})
	if err != nil {
		t.Fatalf("SearchSemantic: %v", err)
	}
	if atomic.LoadInt32(&fe.calls) != 1 {
		t.Fatalf("expected one embedding call, got %d", fe.calls)
	}
	if fv.lastTopK != SemanticLimitMax {
		t.Fatalf("expected limit clamped to %d, got %d", SemanticLimitMax, fv.lastTopK)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected clamp warning, got %v", warnings)
	}
	if fv.lastFilter["area"] != "Mathematics" {
		t.Fatalf("expected area filter, got %v", fv.lastFilter)
	}

	if len(hits) != 2 {
		t.Fatalf("expected ghost match dropped, got %d hits", len(hits))
	}
	if hits[0].Concept.ID != first || hits[1].Concept.ID != second {
		t.Fatalf("hits out of similarity order: %+v", hits)
	}
	if hits[0].Score < hits[1].Score {
		t.Fatal("scores must be non-increasing")
	}
}

func TestSearchSemanticBlankQuery(t *testing.T) {
	_, _, _, svc := newQueryFixture(t)
	_, _, err := svc.SearchSemantic(context.Background(), SemanticSearchInput{})
	var verr *types.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestByCertaintySwapsInvertedRange(t *testing.T) {
	_, _, _, svc := newQueryFixture(t)

	_, warnings, err := svc.ByCertainty(context.Background(), CertaintyQueryInput{
		MinCertainty: 90,
		MaxCertainty: 10,
	})
	if err != nil {
		t.Fatalf("ByCertainty: %v", err)
	}
	found := false
	for _, w := range warnings {
		if strings.Contains(w, "swapping") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a swap warning, got %v", warnings)
	}

	_, _, err = svc.ByCertainty(context.Background(), CertaintyQueryInput{SortOrder: "upward"})
	var verr *types.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for sort order, got %v", err)
	}
}

func TestRecentClampsDaysAndLimit(t *testing.T) {
	_, _, _, svc := newQueryFixture(t)

	_, warnings, err := svc.Recent(context.Background(), 9999, 9999)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(warnings) != 2 {
		t.Fatalf("expected days and limit warnings, got %v", warnings)
	}
}

func TestStatsAggregates(t *testing.T) {
	_, _, _, svc := newQueryFixture(t)

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.ScoringQueueDepth != 3 {
		t.Fatalf("expected queue depth 3, got %d", stats.ScoringQueueDepth)
	}
	if stats.EventsByType == nil || stats.Outbox == nil {
		t.Fatalf("expected populated maps: %+v", stats)
	}
}

func TestHierarchyUsesCache(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	fg := &countingGraph{fakeGraph: newFakeGraph()}
	svc := NewQueryService(
		log, fg, &fakeVectors{}, &fakeEmbedder{},
		repos.NewEventStore(db, log),
		repos.NewOutboxRepo(db, log),
		redis.NewMemoryCache(),
		nil,
		time.Second,
	)
	ctx := context.Background()

	if _, err := svc.Hierarchy(ctx); err != nil {
		t.Fatalf("Hierarchy: %v", err)
	}
	if _, err := svc.Hierarchy(ctx); err != nil {
		t.Fatalf("Hierarchy cached: %v", err)
	}
	if n := atomic.LoadInt32(&fg.hierarchyCalls); n != 1 {
		t.Fatalf("expected one graph read, got %d", n)
	}
}

type countingGraph struct {
	*fakeGraph
	hierarchyCalls int32
}

func (c *countingGraph) Hierarchy(ctx context.Context) ([]graph.AreaNode, error) {
	atomic.AddInt32(&c.hierarchyCalls, 1)
	return c.fakeGraph.Hierarchy(ctx)
}
