package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/AgentOS/desktop/internal/clipboard"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/desktop"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/shared/paths"
)

// ListItems returns the rendered entries of an open container
func (h *Handlers) ListItems(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	path := paths.Normalize(c.Query("path"))
	entries, ok := s.Entries(path)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "no open container at " + path,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"path":    path,
		"entries": entries,
	})
}

// OpenContainer lists a directory into a new container
func (h *Handlers) OpenContainer(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req struct {
		Path      string `json:"path" binding:"required"`
		SortBy    string `json:"sort_by"`
		SortOrder string `json:"sort_order"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	by, order := desktop.ParseSort(req.SortBy, req.SortOrder)
	container, err := s.OpenContainer(c.Request.Context(), req.Path, by, order)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success":   true,
		"container": container,
		"entries":   s.Index.Entries(container.ID),
	})
}

// CloseContainer forgets an open container
func (h *Handlers) CloseContainer(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	s.Index.CloseContainer(c.Param("container"))
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetClipboard returns the clipboard without consuming it
func (h *Handlers) GetClipboard(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"clipboard": s.Engine.Clipboard().Peek(),
	})
}

// SetClipboard replaces the clipboard
func (h *Handlers) SetClipboard(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req struct {
		Operation string   `json:"operation" binding:"required"`
		Paths     []string `json:"paths" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	op, err := clipboard.ParseOperation(req.Operation)
	if err != nil {
		badRequest(c, err)
		return
	}
	if err := s.Engine.Clipboard().Set(op, req.Paths); err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"clipboard": s.Engine.Clipboard().Peek(),
	})
}

type watchRequest struct {
	UID        string        `json:"uid" binding:"required"`
	InstanceID id.InstanceID `json:"instance_id" binding:"required"`
}

// Watch subscribes an app instance to changes of an item
func (h *Handlers) Watch(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req watchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	s.Watchers.Watch(req.UID, req.InstanceID)
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"watchers": s.Watchers.Watchers(req.UID),
	})
}

// Unwatch removes a subscription
func (h *Handlers) Unwatch(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req watchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	s.Watchers.Unwatch(req.UID, req.InstanceID)
	c.JSON(http.StatusOK, gin.H{"success": true})
}
