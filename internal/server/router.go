package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yungbote/knowledge-server/internal/handlers"
	"github.com/yungbote/knowledge-server/internal/utils"
)

type RouterConfig struct {
	ConceptHandler      *handlers.ConceptHandler
	RelationshipHandler *handlers.RelationshipHandler
	QueryHandler        *handlers.QueryHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(otelgin.Middleware("knowledge-server"))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		// Concepts
		api.POST("/concepts", cfg.ConceptHandler.Create)
		api.GET("/concepts/recent", cfg.QueryHandler.Recent)
		api.GET("/concepts/by-certainty", cfg.QueryHandler.ByCertainty)
		api.GET("/concepts/chain", cfg.QueryHandler.Chain)
		api.GET("/concepts/:id", cfg.ConceptHandler.Get)
		api.PATCH("/concepts/:id", cfg.ConceptHandler.Update)
		api.DELETE("/concepts/:id", cfg.ConceptHandler.Delete)
		api.GET("/concepts/:id/related", cfg.QueryHandler.Related)
		api.GET("/concepts/:id/prerequisites", cfg.QueryHandler.Prerequisites)

		// Relationships
		api.POST("/relationships", cfg.RelationshipHandler.Create)
		api.DELETE("/relationships", cfg.RelationshipHandler.Delete)

		// Search
		api.POST("/search/semantic", cfg.QueryHandler.SearchSemantic)
		api.GET("/search/exact", cfg.QueryHandler.SearchExact)

		// Catalog
		api.GET("/hierarchy", cfg.QueryHandler.Hierarchy)
		api.GET("/stats", cfg.QueryHandler.Stats)
	}

	return router
}

func allowedOrigins() []string {
	raw := utils.GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000,http://localhost:5174", nil)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
