package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/knowledge-server/internal/domain"
)

// Envelope is the uniform response shape. Warnings carry non-fatal input
// adjustments (clamped limits, swapped ranges) alongside a successful result.
type Envelope struct {
	Success  bool     `json:"success"`
	Message  string   `json:"message,omitempty"`
	Data     any      `json:"data,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

func RespondOK(c *gin.Context, data any, warnings []string) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data, Warnings: warnings})
}

func RespondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

// RespondServiceError maps domain error types onto HTTP statuses.
func RespondServiceError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	var verr *types.ValidationError
	var nf *types.NotFoundError
	var conflict *types.ConflictError
	var timeout *types.TimeoutError
	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
	case errors.As(err, &nf):
		status = http.StatusNotFound
	case errors.As(err, &conflict):
		status = http.StatusConflict
	case errors.As(err, &timeout):
		status = http.StatusGatewayTimeout
	}

	c.JSON(status, Envelope{Success: false, Message: err.Error()})
}

func RespondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Envelope{Success: false, Message: message})
}
