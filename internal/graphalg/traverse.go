package graphalg

import (
	"context"
	"sort"

	"github.com/google/uuid"

	types "github.com/yungbote/knowledge-server/internal/domain"
)

// Edge is one directed edge of the concept graph as seen by the traversal
// algorithms. The store adapter converts its own edge rows into this shape.
type Edge struct {
	SourceID uuid.UUID
	TargetID uuid.UUID
	Type     string
	Strength float64
}

// Frontier fetches all stored edges touching the given concept ids in one
// direction, optionally restricted to relationship types. The algorithms
// below call it once per BFS level, so a query of depth d costs d round
// trips regardless of fanout.
type Frontier func(ctx context.Context, ids []uuid.UUID, direction string, relTypes []string) ([]Edge, error)

// Related is one concept reached by multi-hop traversal: the minimal
// distance at which it was reached and the type of the edge that first
// reached it.
type Related struct {
	ID       uuid.UUID
	Distance int
	ViaType  string
}

// RelatedConcepts walks breadth-first from start up to maxDepth hops.
// relTypes empty means every type.
func RelatedConcepts(ctx context.Context, frontier Frontier, start uuid.UUID, direction string, relTypes []string, maxDepth int) ([]Related, error) {
	visited := map[uuid.UUID]bool{start: true}
	level := []uuid.UUID{start}

	var out []Related
	for depth := 1; depth <= maxDepth && len(level) > 0; depth++ {
		edges, err := frontier(ctx, level, direction, relTypes)
		if err != nil {
			return nil, err
		}

		levelSet := map[uuid.UUID]bool{}
		for _, id := range level {
			levelSet[id] = true
		}

		var next []uuid.UUID
		for _, e := range edges {
			for _, cand := range expand(e, levelSet, direction) {
				if visited[cand.id] {
					continue
				}
				visited[cand.id] = true
				out = append(out, Related{ID: cand.id, Distance: depth, ViaType: cand.viaType})
				next = append(next, cand.id)
			}
		}
		level = next
	}
	return out, nil
}

type candidate struct {
	id      uuid.UUID
	viaType string
}

// expand resolves which endpoint of an edge is the newly reached neighbor
// relative to the current BFS level.
func expand(e Edge, level map[uuid.UUID]bool, direction string) []candidate {
	var out []candidate
	switch direction {
	case types.DirectionOutgoing:
		if level[e.SourceID] {
			out = append(out, candidate{id: e.TargetID, viaType: e.Type})
		}
	case types.DirectionIncoming:
		if level[e.TargetID] {
			out = append(out, candidate{id: e.SourceID, viaType: e.Type})
		}
	default: // both
		if level[e.SourceID] {
			out = append(out, candidate{id: e.TargetID, viaType: e.Type})
		}
		if level[e.TargetID] {
			out = append(out, candidate{id: e.SourceID, viaType: e.Type})
		}
	}
	return out
}

// ChainNode is one prerequisite with its distance from the target concept.
type ChainNode struct {
	ID    uuid.UUID
	Depth int
}

// PrerequisiteChain collects reverse reachability over prerequisite edges
// from target, ordered deepest-first: the furthest prerequisite comes first,
// the immediate prerequisite last. That ordering is the learning sequence.
func PrerequisiteChain(ctx context.Context, frontier Frontier, target uuid.UUID, maxDepth int) ([]ChainNode, error) {
	visited := map[uuid.UUID]bool{target: true}
	level := []uuid.UUID{target}
	prereqTypes := []string{types.RelPrerequisite}

	var collected []ChainNode
	for depth := 1; depth <= maxDepth && len(level) > 0; depth++ {
		edges, err := frontier(ctx, level, types.DirectionIncoming, prereqTypes)
		if err != nil {
			return nil, err
		}

		levelSet := map[uuid.UUID]bool{}
		for _, id := range level {
			levelSet[id] = true
		}

		var next []uuid.UUID
		for _, e := range edges {
			if !levelSet[e.TargetID] || visited[e.SourceID] {
				continue
			}
			visited[e.SourceID] = true
			collected = append(collected, ChainNode{ID: e.SourceID, Depth: depth})
			next = append(next, e.SourceID)
		}
		level = next
	}

	// Deepest first; discovery order is stable within one depth.
	sort.SliceStable(collected, func(i, j int) bool { return collected[i].Depth > collected[j].Depth })
	return collected, nil
}

// ShortestPath runs an unweighted directed BFS from start to end and returns
// the node sequence including both endpoints. start == end yields the
// single-node path; an unreachable end yields nil, which is not an error.
func ShortestPath(ctx context.Context, frontier Frontier, start, end uuid.UUID, relTypes []string, maxDepth int) ([]uuid.UUID, error) {
	if start == end {
		return []uuid.UUID{start}, nil
	}

	parent := map[uuid.UUID]uuid.UUID{start: start}
	level := []uuid.UUID{start}

	for depth := 1; depth <= maxDepth && len(level) > 0; depth++ {
		edges, err := frontier(ctx, level, types.DirectionOutgoing, relTypes)
		if err != nil {
			return nil, err
		}

		levelSet := map[uuid.UUID]bool{}
		for _, id := range level {
			levelSet[id] = true
		}

		var next []uuid.UUID
		for _, e := range edges {
			if !levelSet[e.SourceID] {
				continue
			}
			if _, seen := parent[e.TargetID]; seen {
				continue
			}
			parent[e.TargetID] = e.SourceID
			if e.TargetID == end {
				return assemblePath(parent, start, end), nil
			}
			next = append(next, e.TargetID)
		}
		level = next
	}
	return nil, nil
}

func assemblePath(parent map[uuid.UUID]uuid.UUID, start, end uuid.UUID) []uuid.UUID {
	var rev []uuid.UUID
	for at := end; ; at = parent[at] {
		rev = append(rev, at)
		if at == start {
			break
		}
	}
	out := make([]uuid.UUID, 0, len(rev))
	for i := len(rev) - 1; i >= 0; i-- {
		out = append(out, rev[i])
	}
	return out
}
