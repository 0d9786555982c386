package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/knowledge-server/internal/platform/logger"
	"github.com/yungbote/knowledge-server/internal/services"
)

type QueryHandler struct {
	log     *logger.Logger
	queries services.QueryService
}

func NewQueryHandler(log *logger.Logger, queries services.QueryService) *QueryHandler {
	return &QueryHandler{
		log:     log.With("handler", "QueryHandler"),
		queries: queries,
	}
}

func (h *QueryHandler) Related(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	related, warnings, err := h.queries.Related(
		c.Request.Context(),
		id,
		c.Query("direction"),
		c.Query("relationship_type"),
		queryInt(c, "max_depth"),
	)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"related": related}, warnings)
}

func (h *QueryHandler) Prerequisites(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	prereqs, warnings, err := h.queries.Prerequisites(c.Request.Context(), id, queryInt(c, "max_depth"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"prerequisites": prereqs}, warnings)
}

func (h *QueryHandler) Chain(c *gin.Context) {
	startID, err := uuid.Parse(c.Query("start_id"))
	if err != nil {
		RespondBadRequest(c, "start_id must be a UUID")
		return
	}
	endID, err := uuid.Parse(c.Query("end_id"))
	if err != nil {
		RespondBadRequest(c, "end_id must be a UUID")
		return
	}

	path, warnings, err := h.queries.Chain(c.Request.Context(), startID, endID, c.Query("relationship_type"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	length := 0
	if len(path) > 1 {
		length = len(path) - 1
	}
	RespondOK(c, gin.H{"chain": path, "length": length, "found": len(path) > 0}, warnings)
}

type semanticSearchRequest struct {
	Query        string  `json:"query"`
	Limit        int     `json:"limit"`
	MinCertainty float64 `json:"min_certainty"`
	Area         string  `json:"area"`
	Topic        string  `json:"topic"`
}

func (h *QueryHandler) SearchSemantic(c *gin.Context) {
	var req semanticSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "invalid request body: "+err.Error())
		return
	}
	hits, warnings, err := h.queries.SearchSemantic(c.Request.Context(), services.SemanticSearchInput{
		Query:        req.Query,
		Limit:        req.Limit,
		MinCertainty: req.MinCertainty,
		Area:         req.Area,
		Topic:        req.Topic,
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"results": hits}, warnings)
}

func (h *QueryHandler) SearchExact(c *gin.Context) {
	concepts, warnings, err := h.queries.SearchExact(c.Request.Context(), services.ExactSearchInput{
		Name:         c.Query("name"),
		Area:         c.Query("area"),
		Topic:        c.Query("topic"),
		Subtopic:     c.Query("subtopic"),
		MinCertainty: queryFloat(c, "min_certainty"),
		Limit:        queryInt(c, "limit"),
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"concepts": concepts}, warnings)
}

func (h *QueryHandler) Recent(c *gin.Context) {
	concepts, warnings, err := h.queries.Recent(c.Request.Context(), queryInt(c, "days"), queryInt(c, "limit"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"concepts": concepts}, warnings)
}

func (h *QueryHandler) Hierarchy(c *gin.Context) {
	areas, err := h.queries.Hierarchy(c.Request.Context())
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"areas": areas}, nil)
}

func (h *QueryHandler) ByCertainty(c *gin.Context) {
	concepts, warnings, err := h.queries.ByCertainty(c.Request.Context(), services.CertaintyQueryInput{
		MinCertainty: queryFloat(c, "min_certainty"),
		MaxCertainty: queryFloat(c, "max_certainty"),
		Limit:        queryInt(c, "limit"),
		SortOrder:    c.Query("sort_order"),
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"concepts": concepts}, warnings)
}

func (h *QueryHandler) Stats(c *gin.Context) {
	stats, err := h.queries.Stats(c.Request.Context())
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"stats": stats}, nil)
}

// queryInt reads an optional integer; absent or malformed reads as zero so
// the service substitutes its default.
func queryInt(c *gin.Context, name string) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return v
}

func queryFloat(c *gin.Context, name string) float64 {
	v, err := strconv.ParseFloat(c.Query(name), 64)
	if err != nil {
		return 0
	}
	return v
}
