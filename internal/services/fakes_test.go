package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/knowledge-server/internal/data/graph"
	types "github.com/yungbote/knowledge-server/internal/domain"
)

// fakeGraph is an in-memory stand-in for the Neo4j store. Write-path tests
// only touch GetConcept and FrontierEdges; the rest return empty results.
type fakeGraph struct {
	mu       sync.Mutex
	concepts map[uuid.UUID]*types.Concept
	edges    []graph.Edge
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{concepts: make(map[uuid.UUID]*types.Concept)}
}

func (f *fakeGraph) put(c *types.Concept) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *c
	f.concepts[c.ID] = &cp
}

func (f *fakeGraph) EnsureSchema(context.Context) error { return nil }

func (f *fakeGraph) UpsertConcept(_ context.Context, c *types.Concept) error {
	f.put(c)
	return nil
}

func (f *fakeGraph) SetCertainty(_ context.Context, conceptID uuid.UUID, score float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.concepts[conceptID]; ok {
		c.CertaintyScore = score
	}
	return nil
}

func (f *fakeGraph) UpsertRelationship(_ context.Context, r *types.Relationship) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edges = append(f.edges, graph.Edge{
		SourceID: r.SourceID,
		TargetID: r.TargetID,
		Type:     r.Type,
		Strength: r.Strength,
	})
	return nil
}

func (f *fakeGraph) DeleteRelationship(context.Context, uuid.UUID) error { return nil }

func (f *fakeGraph) GetConcept(_ context.Context, id uuid.UUID) (*types.Concept, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.concepts[id]
	if !ok || c.Deleted {
		return nil, types.NewNotFoundError("concept", id)
	}
	cp := *c
	return &cp, nil
}

func (f *fakeGraph) GetConceptsByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*types.Concept, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[uuid.UUID]*types.Concept, len(ids))
	for _, id := range ids {
		if c, ok := f.concepts[id]; ok && !c.Deleted {
			cp := *c
			out[id] = &cp
		}
	}
	return out, nil
}

func (f *fakeGraph) ConceptExists(_ context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.concepts[id]
	return ok && !c.Deleted, nil
}

func (f *fakeGraph) SearchExact(context.Context, graph.ExactFilter) ([]*types.Concept, error) {
	return nil, nil
}

func (f *fakeGraph) RecentConcepts(context.Context, time.Time, int) ([]*types.Concept, error) {
	return nil, nil
}

func (f *fakeGraph) ConceptsByCertainty(context.Context, float64, float64, string, int) ([]*types.Concept, error) {
	return nil, nil
}

func (f *fakeGraph) Hierarchy(context.Context) ([]graph.AreaNode, error) { return nil, nil }

func (f *fakeGraph) FrontierEdges(_ context.Context, ids []uuid.UUID, direction string, relTypes []string) ([]graph.Edge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []graph.Edge
	for _, e := range f.edges {
		if len(relTypes) > 0 && !containsType(relTypes, e.Type) {
			continue
		}
		outgoing := want[e.SourceID]
		incoming := want[e.TargetID]
		switch direction {
		case types.DirectionOutgoing:
			if outgoing {
				out = append(out, e)
			}
		case types.DirectionIncoming:
			if incoming {
				out = append(out, e)
			}
		default:
			if outgoing || incoming {
				out = append(out, e)
			}
		}
	}
	return out, nil
}

func (f *fakeGraph) CountConcepts(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, c := range f.concepts {
		if !c.Deleted {
			n++
		}
	}
	return n, nil
}

func (f *fakeGraph) CountRelationshipsByType(context.Context) (map[string]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]int64)
	for _, e := range f.edges {
		out[e.Type]++
	}
	return out, nil
}

func containsType(relTypes []string, t string) bool {
	for _, rt := range relTypes {
		if rt == t {
			return true
		}
	}
	return false
}
