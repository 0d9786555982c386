package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/knowledge-server/internal/domain"
	"github.com/yungbote/knowledge-server/internal/platform/logger"
	"github.com/yungbote/knowledge-server/internal/services"
)

type ConceptHandler struct {
	log      *logger.Logger
	concepts services.ConceptService
}

func NewConceptHandler(log *logger.Logger, concepts services.ConceptService) *ConceptHandler {
	return &ConceptHandler{
		log:      log.With("handler", "ConceptHandler"),
		concepts: concepts,
	}
}

type createConceptRequest struct {
	Name        string            `json:"name"`
	Explanation string            `json:"explanation"`
	Area        string            `json:"area"`
	Topic       string            `json:"topic"`
	Subtopic    string            `json:"subtopic"`
	SourceURLs  []types.SourceURL `json:"source_urls"`
}

func (h *ConceptHandler) Create(c *gin.Context) {
	var req createConceptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	concept, err := h.concepts.Create(c.Request.Context(), services.CreateConceptInput{
		Name:        req.Name,
		Explanation: req.Explanation,
		Area:        req.Area,
		Topic:       req.Topic,
		Subtopic:    req.Subtopic,
		SourceURLs:  req.SourceURLs,
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondCreated(c, gin.H{"concept": concept})
}

type updateConceptRequest struct {
	Name        *string           `json:"name"`
	Explanation *string           `json:"explanation"`
	Area        *string           `json:"area"`
	Topic       *string           `json:"topic"`
	Subtopic    *string           `json:"subtopic"`
	SourceURLs  []types.SourceURL `json:"source_urls"`
}

func (h *ConceptHandler) Update(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req updateConceptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	concept, err := h.concepts.Update(c.Request.Context(), id, types.ConceptUpdate{
		Name:        req.Name,
		Explanation: req.Explanation,
		Area:        req.Area,
		Topic:       req.Topic,
		Subtopic:    req.Subtopic,
		SourceURLs:  req.SourceURLs,
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"concept": concept}, nil)
}

func (h *ConceptHandler) Delete(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.concepts.Delete(c.Request.Context(), id); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": true}, nil)
}

func (h *ConceptHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	includeHistory := c.Query("include_history") == "true"
	concept, err := h.concepts.Get(c.Request.Context(), id, includeHistory)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"concept": concept}, nil)
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, Envelope{Success: false, Message: name + " must be a UUID"})
		return uuid.Nil, false
	}
	return id, true
}
