package mcp

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/yungbote/knowledge-server/internal/services"
)

type CreateRelationshipInput struct {
	SourceID string   `json:"source_id" jsonschema:"UUID of the source concept"`
	TargetID string   `json:"target_id" jsonschema:"UUID of the target concept"`
	Type     string   `json:"relationship_type" jsonschema:"One of prerequisite, relates_to, includes, contains"`
	Strength *float64 `json:"strength,omitempty" jsonschema:"Edge strength in [0, 1], default 1.0"`
	Notes    string   `json:"notes,omitempty" jsonschema:"Free-form notes on the relationship"`
}

type DeleteRelationshipInput struct {
	SourceID string `json:"source_id" jsonschema:"UUID of the source concept"`
	TargetID string `json:"target_id" jsonschema:"UUID of the target concept"`
	Type     string `json:"relationship_type" jsonschema:"Type of the edge to remove"`
}

func (s *Server) registerRelationshipTools() error {
	createSchema, err := jsonschema.For[CreateRelationshipInput](nil)
	if err != nil {
		return fmt.Errorf("schema for create_relationship: %w", err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "create_relationship",
		Description: "Create a typed directed relationship between two existing concepts. Duplicate (source, target, type) edges are rejected.",
		InputSchema: createSchema,
	}, s.CreateRelationship)

	deleteSchema, err := jsonschema.For[DeleteRelationshipInput](nil)
	if err != nil {
		return fmt.Errorf("schema for delete_relationship: %w", err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "delete_relationship",
		Description: "Remove a relationship by source, target and type. Removing an absent edge succeeds.",
		InputSchema: deleteSchema,
	}, s.DeleteRelationship)

	return nil
}

func (s *Server) CreateRelationship(ctx context.Context, _ *mcp.CallToolRequest, in CreateRelationshipInput) (*mcp.CallToolResult, any, error) {
	sourceID, err := parseID("source_id", in.SourceID)
	if err != nil {
		return toolError(err)
	}
	targetID, err := parseID("target_id", in.TargetID)
	if err != nil {
		return toolError(err)
	}
	rel, err := s.rels.Create(ctx, services.CreateRelationshipInput{
		SourceID: sourceID,
		TargetID: targetID,
		Type:     in.Type,
		Strength: in.Strength,
		Notes:    in.Notes,
	})
	if err != nil {
		return toolError(err)
	}
	return nil, map[string]any{"relationship": rel}, nil
}

func (s *Server) DeleteRelationship(ctx context.Context, _ *mcp.CallToolRequest, in DeleteRelationshipInput) (*mcp.CallToolResult, any, error) {
	sourceID, err := parseID("source_id", in.SourceID)
	if err != nil {
		return toolError(err)
	}
	targetID, err := parseID("target_id", in.TargetID)
	if err != nil {
		return toolError(err)
	}
	if err := s.rels.Delete(ctx, sourceID, targetID, in.Type); err != nil {
		return toolError(err)
	}
	return nil, map[string]any{"deleted": true}, nil
}
