package graphalg

import (
	"context"
	"testing"

	"github.com/google/uuid"

	types "github.com/yungbote/knowledge-server/internal/domain"
)

// memoryFrontier serves edges from a slice, the way the graph store serves
// them level-by-level.
func memoryFrontier(edges []Edge) Frontier {
	return func(_ context.Context, ids []uuid.UUID, direction string, relTypes []string) ([]Edge, error) {
		idSet := map[uuid.UUID]bool{}
		for _, id := range ids {
			idSet[id] = true
		}
		typeSet := map[string]bool{}
		for _, t := range relTypes {
			typeSet[t] = true
		}

		var out []Edge
		for _, e := range edges {
			if len(typeSet) > 0 && !typeSet[e.Type] {
				continue
			}
			switch direction {
			case types.DirectionOutgoing:
				if idSet[e.SourceID] {
					out = append(out, e)
				}
			case types.DirectionIncoming:
				if idSet[e.TargetID] {
					out = append(out, e)
				}
			default:
				if idSet[e.SourceID] || idSet[e.TargetID] {
					out = append(out, e)
				}
			}
		}
		return out, nil
	}
}

func newIDs(n int) []uuid.UUID {
	out := make([]uuid.UUID, n)
	for i := range out {
		out[i] = uuid.New()
	}
	return out
}

func prereqEdge(from, to uuid.UUID) Edge {
	return Edge{SourceID: from, TargetID: to, Type: types.RelPrerequisite, Strength: 1}
}

func TestPrerequisiteChainDeepestFirst(t *testing.T) {
	// A -> B -> C -> D, prerequisite edges.
	ids := newIDs(4)
	a, b, c, d := ids[0], ids[1], ids[2], ids[3]
	frontier := memoryFrontier([]Edge{
		prereqEdge(a, b),
		prereqEdge(b, c),
		prereqEdge(c, d),
	})
	ctx := context.Background()

	chain, err := PrerequisiteChain(ctx, frontier, d, 5)
	if err != nil {
		t.Fatalf("PrerequisiteChain: %v", err)
	}
	want := []ChainNode{{ID: a, Depth: 3}, {ID: b, Depth: 2}, {ID: c, Depth: 1}}
	if len(chain) != len(want) {
		t.Fatalf("chain length = %d, want %d", len(chain), len(want))
	}
	for i := range want {
		if chain[i] != want[i] {
			t.Fatalf("chain[%d] = %+v, want %+v", i, chain[i], want[i])
		}
	}
}

func TestPrerequisiteChainDepthBound(t *testing.T) {
	ids := newIDs(4)
	a, b, c, d := ids[0], ids[1], ids[2], ids[3]
	frontier := memoryFrontier([]Edge{
		prereqEdge(a, b),
		prereqEdge(b, c),
		prereqEdge(c, d),
	})

	chain, err := PrerequisiteChain(context.Background(), frontier, d, 2)
	if err != nil {
		t.Fatalf("PrerequisiteChain: %v", err)
	}
	if len(chain) != 2 || chain[0].ID != b || chain[1].ID != c {
		t.Fatalf("chain = %+v, want [B(2) C(1)]", chain)
	}
}

func TestPrerequisiteChainEmpty(t *testing.T) {
	ids := newIDs(2)
	a, b := ids[0], ids[1]
	frontier := memoryFrontier([]Edge{prereqEdge(a, b)})

	chain, err := PrerequisiteChain(context.Background(), frontier, a, 5)
	if err != nil {
		t.Fatalf("PrerequisiteChain: %v", err)
	}
	if len(chain) != 0 {
		t.Fatalf("chain = %+v, want empty", chain)
	}
}

func TestPrerequisiteChainIgnoresOtherTypes(t *testing.T) {
	ids := newIDs(3)
	a, b, c := ids[0], ids[1], ids[2]
	frontier := memoryFrontier([]Edge{
		prereqEdge(a, c),
		{SourceID: b, TargetID: c, Type: types.RelRelatesTo, Strength: 1},
	})

	chain, err := PrerequisiteChain(context.Background(), frontier, c, 5)
	if err != nil {
		t.Fatalf("PrerequisiteChain: %v", err)
	}
	if len(chain) != 1 || chain[0].ID != a {
		t.Fatalf("chain = %+v, want only A", chain)
	}
}

func TestRelatedConceptsDistances(t *testing.T) {
	ids := newIDs(4)
	a, b, c, d := ids[0], ids[1], ids[2], ids[3]
	frontier := memoryFrontier([]Edge{
		{SourceID: a, TargetID: b, Type: types.RelRelatesTo},
		{SourceID: b, TargetID: c, Type: types.RelIncludes},
		{SourceID: c, TargetID: d, Type: types.RelContains},
	})
	ctx := context.Background()

	out, err := RelatedConcepts(ctx, frontier, a, types.DirectionOutgoing, nil, 1)
	if err != nil {
		t.Fatalf("RelatedConcepts: %v", err)
	}
	if len(out) != 1 || out[0].ID != b || out[0].Distance != 1 {
		t.Fatalf("depth-1 result = %+v", out)
	}

	out, err = RelatedConcepts(ctx, frontier, a, types.DirectionOutgoing, nil, 3)
	if err != nil {
		t.Fatalf("RelatedConcepts: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("depth-3 results = %+v", out)
	}
	for _, r := range out {
		if r.Distance < 1 || r.Distance > 3 {
			t.Fatalf("distance %d out of range in %+v", r.Distance, r)
		}
	}
}

func TestRelatedConceptsMinimalDistanceAndViaType(t *testing.T) {
	// Two routes to C: direct relates_to and a 2-hop route. Distance must be
	// the minimal one and via the direct edge's type.
	ids := newIDs(3)
	a, b, c := ids[0], ids[1], ids[2]
	frontier := memoryFrontier([]Edge{
		{SourceID: a, TargetID: c, Type: types.RelRelatesTo},
		{SourceID: a, TargetID: b, Type: types.RelIncludes},
		{SourceID: b, TargetID: c, Type: types.RelContains},
	})

	out, err := RelatedConcepts(context.Background(), frontier, a, types.DirectionOutgoing, nil, 3)
	if err != nil {
		t.Fatalf("RelatedConcepts: %v", err)
	}
	for _, r := range out {
		if r.ID == c {
			if r.Distance != 1 {
				t.Fatalf("C reached at distance %d, want 1", r.Distance)
			}
			if r.ViaType != types.RelRelatesTo {
				t.Fatalf("C via %q, want %q", r.ViaType, types.RelRelatesTo)
			}
		}
	}
}

func TestRelatedConceptsDirections(t *testing.T) {
	ids := newIDs(3)
	a, b, c := ids[0], ids[1], ids[2]
	frontier := memoryFrontier([]Edge{
		{SourceID: a, TargetID: b, Type: types.RelRelatesTo},
		{SourceID: c, TargetID: a, Type: types.RelRelatesTo},
	})
	ctx := context.Background()

	out, err := RelatedConcepts(ctx, frontier, a, types.DirectionOutgoing, nil, 1)
	if err != nil {
		t.Fatalf("outgoing: %v", err)
	}
	if len(out) != 1 || out[0].ID != b {
		t.Fatalf("outgoing = %+v, want only B", out)
	}

	out, err = RelatedConcepts(ctx, frontier, a, types.DirectionIncoming, nil, 1)
	if err != nil {
		t.Fatalf("incoming: %v", err)
	}
	if len(out) != 1 || out[0].ID != c {
		t.Fatalf("incoming = %+v, want only C", out)
	}

	out, err = RelatedConcepts(ctx, frontier, a, types.DirectionBoth, nil, 1)
	if err != nil {
		t.Fatalf("both: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("both = %+v, want B and C", out)
	}
}

func TestRelatedConceptsTypeFilter(t *testing.T) {
	ids := newIDs(3)
	a, b, c := ids[0], ids[1], ids[2]
	frontier := memoryFrontier([]Edge{
		{SourceID: a, TargetID: b, Type: types.RelIncludes},
		{SourceID: a, TargetID: c, Type: types.RelRelatesTo},
	})

	out, err := RelatedConcepts(context.Background(), frontier, a, types.DirectionOutgoing, []string{types.RelIncludes}, 2)
	if err != nil {
		t.Fatalf("RelatedConcepts: %v", err)
	}
	if len(out) != 1 || out[0].ID != b {
		t.Fatalf("filtered = %+v, want only B", out)
	}
}

func TestShortestPathBasic(t *testing.T) {
	ids := newIDs(4)
	a, b, c, d := ids[0], ids[1], ids[2], ids[3]
	frontier := memoryFrontier([]Edge{
		{SourceID: a, TargetID: b, Type: types.RelRelatesTo},
		{SourceID: b, TargetID: c, Type: types.RelRelatesTo},
		{SourceID: c, TargetID: d, Type: types.RelRelatesTo},
		{SourceID: a, TargetID: d, Type: types.RelIncludes},
	})
	ctx := context.Background()

	path, err := ShortestPath(ctx, frontier, a, d, nil, 10)
	if err != nil {
		t.Fatalf("ShortestPath: %v", err)
	}
	if len(path) != 2 || path[0] != a || path[1] != d {
		t.Fatalf("path = %v, want direct [A D]", path)
	}

	// Restricting to relates_to forces the long route.
	path, err = ShortestPath(ctx, frontier, a, d, []string{types.RelRelatesTo}, 10)
	if err != nil {
		t.Fatalf("ShortestPath filtered: %v", err)
	}
	if len(path) != 4 || path[0] != a || path[1] != b || path[2] != c || path[3] != d {
		t.Fatalf("filtered path = %v, want [A B C D]", path)
	}
}

func TestShortestPathSameNode(t *testing.T) {
	a := uuid.New()
	path, err := ShortestPath(context.Background(), memoryFrontier(nil), a, a, nil, 10)
	if err != nil {
		t.Fatalf("ShortestPath: %v", err)
	}
	if len(path) != 1 || path[0] != a {
		t.Fatalf("path = %v, want single node", path)
	}
}

func TestShortestPathNoRoute(t *testing.T) {
	ids := newIDs(3)
	a, b, c := ids[0], ids[1], ids[2]
	// Directed away from the target: no directed route from A to C.
	frontier := memoryFrontier([]Edge{
		{SourceID: a, TargetID: b, Type: types.RelRelatesTo},
		{SourceID: c, TargetID: b, Type: types.RelRelatesTo},
	})

	path, err := ShortestPath(context.Background(), frontier, a, c, nil, 10)
	if err != nil {
		t.Fatalf("ShortestPath: %v", err)
	}
	if path != nil {
		t.Fatalf("path = %v, want nil", path)
	}
}

func TestRelatedConceptsCycleTerminates(t *testing.T) {
	ids := newIDs(2)
	a, b := ids[0], ids[1]
	frontier := memoryFrontier([]Edge{
		{SourceID: a, TargetID: b, Type: types.RelRelatesTo},
		{SourceID: b, TargetID: a, Type: types.RelRelatesTo},
	})

	out, err := RelatedConcepts(context.Background(), frontier, a, types.DirectionBoth, nil, 5)
	if err != nil {
		t.Fatalf("RelatedConcepts: %v", err)
	}
	if len(out) != 1 || out[0].ID != b {
		t.Fatalf("cycle result = %+v, want only B once", out)
	}
}
