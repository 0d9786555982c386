package mcp

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/yungbote/knowledge-server/internal/services"
)

type RelatedConceptsInput struct {
	ConceptID string `json:"concept_id" jsonschema:"UUID of the starting concept"`
	Direction string `json:"direction,omitempty" jsonschema:"outgoing, incoming or both (default both)"`
	Type      string `json:"relationship_type,omitempty" jsonschema:"Restrict traversal to one relationship type"`
	MaxDepth  int    `json:"max_depth,omitempty" jsonschema:"Traversal depth 1-5, default 2"`
}

type PrerequisitesInput struct {
	ConceptID string `json:"concept_id" jsonschema:"UUID of the concept to learn"`
	MaxDepth  int    `json:"max_depth,omitempty" jsonschema:"Chain depth 1-10, default 5"`
}

type ConceptChainInput struct {
	StartID string `json:"start_id" jsonschema:"UUID of the starting concept"`
	EndID   string `json:"end_id" jsonschema:"UUID of the destination concept"`
	Type    string `json:"relationship_type,omitempty" jsonschema:"Restrict the path to one relationship type"`
}

type SemanticSearchToolInput struct {
	Query        string  `json:"query" jsonschema:"Natural-language search query"`
	Limit        int     `json:"limit,omitempty" jsonschema:"Max results 1-50, default 10"`
	MinCertainty float64 `json:"min_certainty,omitempty" jsonschema:"Only concepts at or above this certainty"`
	Area         string  `json:"area,omitempty" jsonschema:"Restrict to one area"`
	Topic        string  `json:"topic,omitempty" jsonschema:"Restrict to one topic"`
}

type ExactSearchToolInput struct {
	Name         string  `json:"name,omitempty" jsonschema:"Case-insensitive partial name match"`
	Area         string  `json:"area,omitempty" jsonschema:"Exact area match"`
	Topic        string  `json:"topic,omitempty" jsonschema:"Exact topic match"`
	Subtopic     string  `json:"subtopic,omitempty" jsonschema:"Exact subtopic match"`
	MinCertainty float64 `json:"min_certainty,omitempty" jsonschema:"Only concepts at or above this certainty"`
	Limit        int     `json:"limit,omitempty" jsonschema:"Max results 1-100, default 20"`
}

type RecentConceptsInput struct {
	Days  int `json:"days,omitempty" jsonschema:"Look-back window in days 1-365, default 7"`
	Limit int `json:"limit,omitempty" jsonschema:"Max results 1-100, default 20"`
}

type ListHierarchyInput struct{}

type CertaintyRangeInput struct {
	MinCertainty float64 `json:"min_certainty,omitempty" jsonschema:"Lower certainty bound, default 0"`
	MaxCertainty float64 `json:"max_certainty,omitempty" jsonschema:"Upper certainty bound, default 100"`
	Limit        int     `json:"limit,omitempty" jsonschema:"Max results 1-50, default 20"`
	SortOrder    string  `json:"sort_order,omitempty" jsonschema:"asc or desc (default desc)"`
}

type ServerStatsInput struct{}

func (s *Server) registerQueryTools() error {
	relatedSchema, err := jsonschema.For[RelatedConceptsInput](nil)
	if err != nil {
		return fmt.Errorf("schema for get_related_concepts: %w", err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_related_concepts",
		Description: "Walk the relationship graph from a concept up to max_depth hops and return each reachable concept with its distance.",
		InputSchema: relatedSchema,
	}, s.GetRelatedConcepts)

	prereqSchema, err := jsonschema.For[PrerequisitesInput](nil)
	if err != nil {
		return fmt.Errorf("schema for get_prerequisites: %w", err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_prerequisites",
		Description: "Return the prerequisite chain for a concept, deepest prerequisites first, as a suggested learning order.",
		InputSchema: prereqSchema,
	}, s.GetPrerequisites)

	chainSchema, err := jsonschema.For[ConceptChainInput](nil)
	if err != nil {
		return fmt.Errorf("schema for get_concept_chain: %w", err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_concept_chain",
		Description: "Find the shortest directed path between two concepts. No path is an empty result, not an error.",
		InputSchema: chainSchema,
	}, s.GetConceptChain)

	semanticSchema, err := jsonschema.For[SemanticSearchToolInput](nil)
	if err != nil {
		return fmt.Errorf("schema for search_concepts_semantic: %w", err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "search_concepts_semantic",
		Description: "Search concepts by meaning using embedding similarity, optionally filtered by area, topic and minimum certainty.",
		InputSchema: semanticSchema,
	}, s.SearchConceptsSemantic)

	exactSchema, err := jsonschema.For[ExactSearchToolInput](nil)
	if err != nil {
		return fmt.Errorf("schema for search_concepts_exact: %w", err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "search_concepts_exact",
		Description: "Search concepts by partial name and exact categorization labels, ordered by certainty then recency.",
		InputSchema: exactSchema,
	}, s.SearchConceptsExact)

	recentSchema, err := jsonschema.For[RecentConceptsInput](nil)
	if err != nil {
		return fmt.Errorf("schema for get_recent_concepts: %w", err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_recent_concepts",
		Description: "List concepts modified within the last N days, most recent first.",
		InputSchema: recentSchema,
	}, s.GetRecentConcepts)

	hierarchySchema, err := jsonschema.For[ListHierarchyInput](nil)
	if err != nil {
		return fmt.Errorf("schema for list_hierarchy: %w", err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_hierarchy",
		Description: "Return the area → topic → subtopic catalog with concept counts at every level.",
		InputSchema: hierarchySchema,
	}, s.ListHierarchy)

	certaintySchema, err := jsonschema.For[CertaintyRangeInput](nil)
	if err != nil {
		return fmt.Errorf("schema for get_concepts_by_certainty: %w", err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_concepts_by_certainty",
		Description: "List concepts whose certainty falls within a range; an inverted range is swapped with a warning.",
		InputSchema: certaintySchema,
	}, s.GetConceptsByCertainty)

	statsSchema, err := jsonschema.For[ServerStatsInput](nil)
	if err != nil {
		return fmt.Errorf("schema for get_server_stats: %w", err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_server_stats",
		Description: "Report event, outbox, graph and scoring-queue counters.",
		InputSchema: statsSchema,
	}, s.GetServerStats)

	return nil
}

func (s *Server) GetRelatedConcepts(ctx context.Context, _ *mcp.CallToolRequest, in RelatedConceptsInput) (*mcp.CallToolResult, any, error) {
	id, err := parseID("concept_id", in.ConceptID)
	if err != nil {
		return toolError(err)
	}
	related, warnings, err := s.queries.Related(ctx, id, in.Direction, in.Type, in.MaxDepth)
	if err != nil {
		return toolError(err)
	}
	return nil, map[string]any{"related": related, "warnings": warnings}, nil
}

func (s *Server) GetPrerequisites(ctx context.Context, _ *mcp.CallToolRequest, in PrerequisitesInput) (*mcp.CallToolResult, any, error) {
	id, err := parseID("concept_id", in.ConceptID)
	if err != nil {
		return toolError(err)
	}
	prereqs, warnings, err := s.queries.Prerequisites(ctx, id, in.MaxDepth)
	if err != nil {
		return toolError(err)
	}
	return nil, map[string]any{"prerequisites": prereqs, "warnings": warnings}, nil
}

func (s *Server) GetConceptChain(ctx context.Context, _ *mcp.CallToolRequest, in ConceptChainInput) (*mcp.CallToolResult, any, error) {
	startID, err := parseID("start_id", in.StartID)
	if err != nil {
		return toolError(err)
	}
	endID, err := parseID("end_id", in.EndID)
	if err != nil {
		return toolError(err)
	}
	path, warnings, err := s.queries.Chain(ctx, startID, endID, in.Type)
	if err != nil {
		return toolError(err)
	}
	length := 0
	if len(path) > 1 {
		length = len(path) - 1
	}
	return nil, map[string]any{
		"chain":    path,
		"length":   length,
		"found":    len(path) > 0,
		"warnings": warnings,
	}, nil
}

func (s *Server) SearchConceptsSemantic(ctx context.Context, _ *mcp.CallToolRequest, in SemanticSearchToolInput) (*mcp.CallToolResult, any, error) {
	hits, warnings, err := s.queries.SearchSemantic(ctx, services.SemanticSearchInput{
		Query:        in.Query,
		Limit:        in.Limit,
		MinCertainty: in.MinCertainty,
		Area:         in.Area,
		Topic:        in.Topic,
	})
	if err != nil {
		return toolError(err)
	}
	return nil, map[string]any{"results": hits, "warnings": warnings}, nil
}

func (s *Server) SearchConceptsExact(ctx context.Context, _ *mcp.CallToolRequest, in ExactSearchToolInput) (*mcp.CallToolResult, any, error) {
	concepts, warnings, err := s.queries.SearchExact(ctx, services.ExactSearchInput{
		Name:         in.Name,
		Area:         in.Area,
		Topic:        in.Topic,
		Subtopic:     in.Subtopic,
		MinCertainty: in.MinCertainty,
		Limit:        in.Limit,
	})
	if err != nil {
		return toolError(err)
	}
	return nil, map[string]any{"concepts": concepts, "warnings": warnings}, nil
}

func (s *Server) GetRecentConcepts(ctx context.Context, _ *mcp.CallToolRequest, in RecentConceptsInput) (*mcp.CallToolResult, any, error) {
	concepts, warnings, err := s.queries.Recent(ctx, in.Days, in.Limit)
	if err != nil {
		return toolError(err)
	}
	return nil, map[string]any{"concepts": concepts, "warnings": warnings}, nil
}

func (s *Server) ListHierarchy(ctx context.Context, _ *mcp.CallToolRequest, _ ListHierarchyInput) (*mcp.CallToolResult, any, error) {
	areas, err := s.queries.Hierarchy(ctx)
	if err != nil {
		return toolError(err)
	}
	return nil, map[string]any{"areas": areas}, nil
}

func (s *Server) GetConceptsByCertainty(ctx context.Context, _ *mcp.CallToolRequest, in CertaintyRangeInput) (*mcp.CallToolResult, any, error) {
	concepts, warnings, err := s.queries.ByCertainty(ctx, services.CertaintyQueryInput{
		MinCertainty: in.MinCertainty,
		MaxCertainty: in.MaxCertainty,
		Limit:        in.Limit,
		SortOrder:    in.SortOrder,
	})
	if err != nil {
		return toolError(err)
	}
	return nil, map[string]any{"concepts": concepts, "warnings": warnings}, nil
}

func (s *Server) GetServerStats(ctx context.Context, _ *mcp.CallToolRequest, _ ServerStatsInput) (*mcp.CallToolResult, any, error) {
	stats, err := s.queries.Stats(ctx)
	if err != nil {
		return toolError(err)
	}
	return nil, map[string]any{"stats": stats}, nil
}
