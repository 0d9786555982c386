package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	types "github.com/yungbote/knowledge-server/internal/domain"
	"github.com/yungbote/knowledge-server/internal/platform/logger"
	"github.com/yungbote/knowledge-server/internal/services"
)

// Server exposes the knowledge operations as MCP tools over a transport,
// typically stdio. Tool semantics are identical to the HTTP routes; only the
// envelope differs.
type Server struct {
	mcpServer *mcp.Server
	log       *logger.Logger
	concepts  services.ConceptService
	rels      services.RelationshipService
	queries   services.QueryService
}

type Config struct {
	Name    string
	Version string
}

func NewServer(
	cfg Config,
	log *logger.Logger,
	concepts services.ConceptService,
	rels services.RelationshipService,
	queries services.QueryService,
) (*Server, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("server name is required")
	}
	if cfg.Version == "" {
		return nil, fmt.Errorf("server version is required")
	}

	s := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		}, nil),
		log:      log.With("component", "MCPServer"),
		concepts: concepts,
		rels:     rels,
		queries:  queries,
	}

	if err := s.registerConceptTools(); err != nil {
		return nil, err
	}
	if err := s.registerRelationshipTools(); err != nil {
		return nil, err
	}
	if err := s.registerQueryTools(); err != nil {
		return nil, err
	}
	return s, nil
}

// Run serves the MCP protocol until the transport closes or ctx ends.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	return s.mcpServer.Run(ctx, transport)
}

// toolError folds expected domain failures into an in-band tool error so the
// caller can read and correct them; anything else propagates as a protocol
// error.
func toolError(err error) (*mcp.CallToolResult, any, error) {
	var verr *types.ValidationError
	var nf *types.NotFoundError
	var conflict *types.ConflictError
	var timeout *types.TimeoutError
	if errors.As(err, &verr) || errors.As(err, &nf) || errors.As(err, &conflict) || errors.As(err, &timeout) {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
		}, nil, nil
	}
	return nil, nil, err
}
