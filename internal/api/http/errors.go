package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/AgentOS/desktop/internal/clipboard"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/conflict"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/domain/session"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/engine"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/operation"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/remotefs"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/undo"
)

// statusFor maps an error to the response status
func statusFor(err error) int {
	var apiErr *remotefs.Error
	switch {
	case errors.Is(err, session.ErrNotFound), remotefs.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrImmutable):
		return http.StatusForbidden
	case errors.Is(err, operation.ErrCancelled),
		errors.Is(err, conflict.ErrBatchCancelled),
		errors.Is(err, undo.ErrUndoInProgress),
		errors.Is(err, engine.ErrConflict),
		remotefs.IsConflict(err):
		return http.StatusConflict
	case errors.Is(err, session.ErrMissingToken),
		errors.Is(err, engine.ErrNoItems),
		errors.Is(err, engine.ErrUnknownKind),
		errors.Is(err, engine.ErrInvalidDestination),
		errors.Is(err, engine.ErrInvalidArchive),
		errors.Is(err, paths.ErrInvalidName),
		errors.Is(err, clipboard.ErrEmpty):
		return http.StatusBadRequest
	case errors.As(err, &apiErr) && apiErr.Status >= 400:
		return apiErr.Status
	}
	return http.StatusInternalServerError
}

func fail(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{
		"success": false,
		"error":   err.Error(),
	})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   "Invalid request: " + err.Error(),
	})
}
