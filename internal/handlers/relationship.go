package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/knowledge-server/internal/platform/logger"
	"github.com/yungbote/knowledge-server/internal/services"
)

type RelationshipHandler struct {
	log  *logger.Logger
	rels services.RelationshipService
}

func NewRelationshipHandler(log *logger.Logger, rels services.RelationshipService) *RelationshipHandler {
	return &RelationshipHandler{
		log:  log.With("handler", "RelationshipHandler"),
		rels: rels,
	}
}

type createRelationshipRequest struct {
	SourceID uuid.UUID `json:"source_id"`
	TargetID uuid.UUID `json:"target_id"`
	Type     string    `json:"relationship_type"`
	Strength *float64  `json:"strength"`
	Notes    string    `json:"notes"`
}

func (h *RelationshipHandler) Create(c *gin.Context) {
	var req createRelationshipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	rel, err := h.rels.Create(c.Request.Context(), services.CreateRelationshipInput{
		SourceID: req.SourceID,
		TargetID: req.TargetID,
		Type:     req.Type,
		Strength: req.Strength,
		Notes:    req.Notes,
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondCreated(c, gin.H{"relationship": rel})
}

func (h *RelationshipHandler) Delete(c *gin.Context) {
	sourceID, err := uuid.Parse(c.Query("source_id"))
	if err != nil {
		RespondBadRequest(c, "source_id must be a UUID")
		return
	}
	targetID, err := uuid.Parse(c.Query("target_id"))
	if err != nil {
		RespondBadRequest(c, "target_id must be a UUID")
		return
	}
	relType := c.Query("relationship_type")

	if err := h.rels.Delete(c.Request.Context(), sourceID, targetID, relType); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": true}, nil)
}
