package app

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/knowledge-server/internal/handlers"
	"github.com/yungbote/knowledge-server/internal/platform/logger"
	"github.com/yungbote/knowledge-server/internal/server"
)

type Handlers struct {
	Concept      *handlers.ConceptHandler
	Relationship *handlers.RelationshipHandler
	Query        *handlers.QueryHandler
}

func wireHandlers(log *logger.Logger, serviceset Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Concept:      handlers.NewConceptHandler(log, serviceset.Concepts),
		Relationship: handlers.NewRelationshipHandler(log, serviceset.Relationships),
		Query:        handlers.NewQueryHandler(log, serviceset.Queries),
	}
}

func wireRouter(handlerset Handlers) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		ConceptHandler:      handlerset.Concept,
		RelationshipHandler: handlerset.Relationship,
		QueryHandler:        handlerset.Query,
	})
}
