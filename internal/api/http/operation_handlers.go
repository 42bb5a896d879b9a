package http

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/desktop/internal/engine"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/operation"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/remotefs"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/shared/types"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/undo"
)

// maxUploadMemory bounds the multipart form kept in memory
const maxUploadMemory = 32 << 20

func (h *Handlers) respond(c *gin.Context, rec *undo.Record, err error) {
	if err != nil {
		c.JSON(statusFor(err), gin.H{
			"success":   false,
			"error":     err.Error(),
			"cancelled": errors.Is(err, operation.ErrCancelled),
			"record":    rec,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"record":  rec,
	})
}

// StartOperation runs a move, copy, delete, rename, shortcut, zip,
// unzip, new folder, new file, upload or empty trash request
func (h *Handlers) StartOperation(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req engine.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Kind == "" {
		badRequest(c, errors.New("kind is required"))
		return
	}

	rec, err := s.Engine.StartOperation(c.Request.Context(), req)
	if err != nil {
		h.logger.Info("operation failed",
			zap.String("session_id", s.ID.String()),
			zap.String("kind", string(req.Kind)),
			zap.Error(err))
	}
	h.respond(c, rec, err)
}

// ListOperations returns the running operations
func (h *Handlers) ListOperations(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"operations": s.Engine.Tracker().Active(),
	})
}

// CancelOperation cancels a running operation
func (h *Handlers) CancelOperation(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	opID, err := strconv.ParseUint(c.Param("op"), 10, 64)
	if err != nil {
		badRequest(c, err)
		return
	}
	if !s.Engine.Tracker().Cancel(operation.ID(opID)) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "operation not found",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Upload uploads multipart files into the destination form field. The
// optional "paths" fields carry the relative path of each file.
func (h *Handlers) Upload(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if err := c.Request.ParseMultipartForm(maxUploadMemory); err != nil {
		badRequest(c, err)
		return
	}
	form := c.Request.MultipartForm
	headers := form.File["files"]
	if len(headers) == 0 {
		badRequest(c, errors.New("no files"))
		return
	}
	rel := form.Value["paths"]

	files := make([]remotefs.UploadFile, 0, len(headers))
	for i, fh := range headers {
		name := fh.Filename
		if i < len(rel) && rel[i] != "" {
			name = rel[i]
		}
		files = append(files, remotefs.UploadFile{
			RelPath: name,
			Size:    fh.Size,
			Open:    opener(fh),
		})
	}

	rec, err := s.Engine.StartOperation(c.Request.Context(), engine.Request{
		Kind:        types.OpUpload,
		Destination: c.Request.FormValue("destination"),
		Files:       files,
	})
	h.respond(c, rec, err)
}

func opener(fh *multipart.FileHeader) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		return fh.Open()
	}
}

// Undo reverts the newest undoable action
func (h *Handlers) Undo(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	rec, err := s.Engine.Undo(c.Request.Context())
	h.respond(c, rec, err)
}

// Paste pastes the clipboard into destination
func (h *Handlers) Paste(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req struct {
		Destination string `json:"destination" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	rec, err := s.Engine.Paste(c.Request.Context(), req.Destination)
	h.respond(c, rec, err)
}
