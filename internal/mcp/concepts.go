package mcp

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	types "github.com/yungbote/knowledge-server/internal/domain"
	"github.com/yungbote/knowledge-server/internal/services"
)

type SourceURLInput struct {
	URL          string  `json:"url" jsonschema:"Source URL backing the explanation"`
	QualityScore float64 `json:"quality_score" jsonschema:"Source quality in [0, 1]"`
}

type CreateConceptInput struct {
	Name        string           `json:"name" jsonschema:"Concept name, at most 200 characters"`
	Explanation string           `json:"explanation" jsonschema:"Full explanation of the concept"`
	Area        string           `json:"area" jsonschema:"Top-level knowledge area"`
	Topic       string           `json:"topic" jsonschema:"Topic within the area"`
	Subtopic    string           `json:"subtopic" jsonschema:"Subtopic within the topic"`
	SourceURLs  []SourceURLInput `json:"source_urls,omitempty" jsonschema:"Sources backing the explanation"`
}

type UpdateConceptInput struct {
	ConceptID   string           `json:"concept_id" jsonschema:"UUID of the concept to update"`
	Name        *string          `json:"name,omitempty" jsonschema:"New name"`
	Explanation *string          `json:"explanation,omitempty" jsonschema:"New explanation; the previous one is archived"`
	Area        *string          `json:"area,omitempty" jsonschema:"New area"`
	Topic       *string          `json:"topic,omitempty" jsonschema:"New topic"`
	Subtopic    *string          `json:"subtopic,omitempty" jsonschema:"New subtopic"`
	SourceURLs  []SourceURLInput `json:"source_urls,omitempty" jsonschema:"Replacement source list"`
}

type ConceptIDInput struct {
	ConceptID string `json:"concept_id" jsonschema:"UUID of the concept"`
}

type GetConceptInput struct {
	ConceptID      string `json:"concept_id" jsonschema:"UUID of the concept"`
	IncludeHistory bool   `json:"include_history,omitempty" jsonschema:"Include archived explanations"`
}

func (s *Server) registerConceptTools() error {
	createSchema, err := jsonschema.For[CreateConceptInput](nil)
	if err != nil {
		return fmt.Errorf("schema for create_concept: %w", err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "create_concept",
		Description: "Create a knowledge concept with a name, explanation, area/topic/subtopic categorization and optional sources.",
		InputSchema: createSchema,
	}, s.CreateConcept)

	updateSchema, err := jsonschema.For[UpdateConceptInput](nil)
	if err != nil {
		return fmt.Errorf("schema for update_concept: %w", err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "update_concept",
		Description: "Update one or more fields of an existing concept. Replacing the explanation archives the previous one.",
		InputSchema: updateSchema,
	}, s.UpdateConcept)

	idSchema, err := jsonschema.For[ConceptIDInput](nil)
	if err != nil {
		return fmt.Errorf("schema for delete_concept: %w", err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "delete_concept",
		Description: "Soft-delete a concept. Deleting an already deleted concept succeeds.",
		InputSchema: idSchema,
	}, s.DeleteConcept)

	getSchema, err := jsonschema.For[GetConceptInput](nil)
	if err != nil {
		return fmt.Errorf("schema for get_concept: %w", err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_concept",
		Description: "Fetch a single concept by id, optionally with its archived explanation history.",
		InputSchema: getSchema,
	}, s.GetConcept)

	return nil
}

func (s *Server) CreateConcept(ctx context.Context, _ *mcp.CallToolRequest, in CreateConceptInput) (*mcp.CallToolResult, any, error) {
	concept, err := s.concepts.Create(ctx, services.CreateConceptInput{
		Name:        in.Name,
		Explanation: in.Explanation,
		Area:        in.Area,
		Topic:       in.Topic,
		Subtopic:    in.Subtopic,
		SourceURLs:  sourceURLs(in.SourceURLs),
	})
	if err != nil {
		return toolError(err)
	}
	return nil, map[string]any{"concept": concept}, nil
}

func (s *Server) UpdateConcept(ctx context.Context, _ *mcp.CallToolRequest, in UpdateConceptInput) (*mcp.CallToolResult, any, error) {
	id, err := parseID("concept_id", in.ConceptID)
	if err != nil {
		return toolError(err)
	}
	upd := types.ConceptUpdate{
		Name:        in.Name,
		Explanation: in.Explanation,
		Area:        in.Area,
		Topic:       in.Topic,
		Subtopic:    in.Subtopic,
	}
	if in.SourceURLs != nil {
		upd.SourceURLs = sourceURLs(in.SourceURLs)
	}
	concept, err := s.concepts.Update(ctx, id, upd)
	if err != nil {
		return toolError(err)
	}
	return nil, map[string]any{"concept": concept}, nil
}

func (s *Server) DeleteConcept(ctx context.Context, _ *mcp.CallToolRequest, in ConceptIDInput) (*mcp.CallToolResult, any, error) {
	id, err := parseID("concept_id", in.ConceptID)
	if err != nil {
		return toolError(err)
	}
	if err := s.concepts.Delete(ctx, id); err != nil {
		return toolError(err)
	}
	return nil, map[string]any{"deleted": true}, nil
}

func (s *Server) GetConcept(ctx context.Context, _ *mcp.CallToolRequest, in GetConceptInput) (*mcp.CallToolResult, any, error) {
	id, err := parseID("concept_id", in.ConceptID)
	if err != nil {
		return toolError(err)
	}
	concept, err := s.concepts.Get(ctx, id, in.IncludeHistory)
	if err != nil {
		return toolError(err)
	}
	return nil, map[string]any{"concept": concept}, nil
}

func sourceURLs(in []SourceURLInput) []types.SourceURL {
	if in == nil {
		return nil
	}
	out := make([]types.SourceURL, len(in))
	for i, s := range in {
		out[i] = types.SourceURL{URL: s.URL, QualityScore: s.QualityScore}
	}
	return out
}

func parseID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, types.NewValidationError(field, "must be a UUID")
	}
	return id, nil
}
