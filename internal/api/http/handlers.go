package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/desktop/internal/domain/session"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/logging"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/shared/id"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	sessions *session.Manager
	metrics  http.Handler
	started  time.Time
	logger   *logging.Logger
}

// NewHandlers creates a new handler set. gatherer backs /metrics.
func NewHandlers(sessions *session.Manager, gatherer prometheus.Gatherer, logger *logging.Logger) *Handlers {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Handlers{
		sessions: sessions,
		metrics:  promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}),
		started:  time.Now(),
		logger:   logger.OrNop().Named("http"),
	}
}

// Routes registers every endpoint on r
func (h *Handlers) Routes(r gin.IRouter) {
	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(h.metrics))

	r.GET("/sessions", h.ListSessions)
	r.POST("/sessions", h.CreateSession)

	s := r.Group("/sessions/:id")
	s.GET("", h.GetSession)
	s.DELETE("", h.DeleteSession)
	s.GET("/ws", h.Stream)

	s.GET("/items", h.ListItems)
	s.POST("/containers", h.OpenContainer)
	s.DELETE("/containers/:container", h.CloseContainer)

	s.GET("/operations", h.ListOperations)
	s.POST("/operations", h.StartOperation)
	s.POST("/operations/:op/cancel", h.CancelOperation)
	s.POST("/uploads", h.Upload)
	s.POST("/undo", h.Undo)

	s.GET("/clipboard", h.GetClipboard)
	s.POST("/clipboard", h.SetClipboard)
	s.POST("/paste", h.Paste)

	s.POST("/watch", h.Watch)
	s.DELETE("/watch", h.Unwatch)
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"sessions": len(h.sessions.List()),
		"uptime":   time.Since(h.started).Round(time.Second).String(),
	})
}

// session resolves the :id parameter, answering 404 when it is unknown
func (h *Handlers) session(c *gin.Context) (*session.Session, bool) {
	s, ok := h.sessions.Get(id.SessionID(c.Param("id")))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "session not found",
		})
		return nil, false
	}
	return s, true
}

// CreateSession signs in and starts a session
func (h *Handlers) CreateSession(c *gin.Context) {
	var req struct {
		AuthToken string `json:"auth_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	s, err := h.sessions.Create(c.Request.Context(), req.AuthToken)
	if err != nil {
		h.logger.Warn("sign in failed", zap.Error(err))
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"session": s.Info(),
	})
}

// ListSessions lists the live sessions
func (h *Handlers) ListSessions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"sessions": h.sessions.List(),
	})
}

// GetSession returns one session
func (h *Handlers) GetSession(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": s.Info(),
	})
}

// DeleteSession signs a session out
func (h *Handlers) DeleteSession(c *gin.Context) {
	if err := h.sessions.Delete(id.SessionID(c.Param("id"))); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Stream upgrades to the session's UI websocket
func (h *Handlers) Stream(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	ui, ok := s.UI.(http.Handler)
	if !ok {
		c.JSON(http.StatusNotImplemented, gin.H{
			"success": false,
			"error":   "session has no browser surface",
		})
		return
	}
	ui.ServeHTTP(c.Writer, c.Request)
}
