package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/desktop/internal/clipboard"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/desktop"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/engine"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/logging"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/operation"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/realtime"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/remotefs"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/undo"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/watchers"
)

var (
	// ErrNotFound is returned for unknown session ids
	ErrNotFound = errors.New("session not found")
	// ErrMissingToken is returned when signing in without a token
	ErrMissingToken = errors.New("auth token is required")
)

// Options configures a Manager
type Options struct {
	Config *config.Config
	// NewFS builds the filesystem client for a token. Defaults to a
	// remotefs.Client for Config.Remote.
	NewFS func(token string) remotefs.FS
	// NewUI builds the browser surface of a new session
	NewUI   func(sid id.SessionID) UI
	Metrics *monitoring.Metrics
	Logger  *logging.Logger
}

// Manager owns the live sessions
type Manager struct {
	sessions sync.Map
	active   atomic.Int64

	cfg     *config.Config
	newFS   func(token string) remotefs.FS
	newUI   func(sid id.SessionID) UI
	metrics *monitoring.Metrics
	logger  *logging.Logger
}

// NewManager creates a session manager
func NewManager(opts Options) *Manager {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	m := &Manager{
		cfg:     cfg,
		newFS:   opts.NewFS,
		newUI:   opts.NewUI,
		metrics: opts.Metrics,
		logger:  opts.Logger.OrNop().Named("session"),
	}
	if m.newFS == nil {
		m.newFS = m.remoteFS
	}
	return m
}

func (m *Manager) remoteFS(token string) remotefs.FS {
	return remotefs.NewClient(remotefs.Options{
		Origin:          m.cfg.Remote.Origin,
		Token:           token,
		Timeout:         m.cfg.Remote.Timeout.Std(),
		RateLimit:       m.cfg.Remote.RateLimit,
		Burst:           m.cfg.Remote.Burst,
		BreakerFailures: m.cfg.Remote.BreakerFailures,
		BreakerTimeout:  m.cfg.Remote.BreakerTimeout.Std(),
		Metrics:         m.metrics,
		Logger:          m.logger,
	})
}

// Create signs in with token and starts a session
func (m *Manager) Create(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	if m.newUI == nil {
		return nil, errors.New("session manager has no UI factory")
	}

	fs := m.newFS(token)
	user, err := fs.Whoami(ctx)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}

	sid := id.NewSessionID()
	socket := id.NewSocketID()
	logger := m.logger.With(zap.String("session_id", sid.String()), zap.String("username", user.Username))

	home := paths.Home(user.Username)
	trash := paths.Trash(home, m.cfg.Desktop.TrashName)
	index := desktop.NewIndex(trash, nil)
	ui := m.newUI(sid)

	profile := realtime.NewProfileCache(m.cfg.Remote.Origin, token, logger)
	profile.Set(user)

	var (
		conn        *realtime.Conn
		broadcaster engine.Broadcaster
	)
	if m.cfg.Realtime.Origin != "" {
		conn = realtime.NewConn(realtime.ConnConfig{
			URL:          strings.TrimRight(m.cfg.Realtime.Origin, "/") + m.cfg.Realtime.Path,
			Token:        token,
			SocketID:     socket.String(),
			ReconnectMin: m.cfg.Realtime.ReconnectMin.Std(),
			ReconnectMax: m.cfg.Realtime.ReconnectMax.Std(),
			Metrics:      m.metrics,
			Logger:       logger,
		})
		broadcaster = conn
	}

	tracker := operation.NewTracker(ui, operation.Config{
		SingleThreshold: m.cfg.Progress.SingleThreshold.Std(),
		BatchThreshold:  m.cfg.Progress.BatchThreshold.Std(),
		MinDwell:        m.cfg.Progress.MinDwell.Std(),
	}, logger)
	if c, ok := ui.(interface {
		OnCancel(func(operation.ID) bool)
	}); ok {
		c.OnCancel(tracker.Cancel)
	}

	eng := engine.New(engine.Options{
		FS:            fs,
		Surface:       index,
		Tracker:       tracker,
		Prompter:      ui,
		History:       undo.NewHistory(0, m.metrics, logger),
		Clipboard:     clipboard.New(),
		Broadcaster:   broadcaster,
		Originator:    socket.String(),
		Home:          home,
		TrashName:     m.cfg.Desktop.TrashName,
		ZipExclude:    m.cfg.Archive.Exclude,
		MaxNameLength: m.cfg.Desktop.MaxNameLength,
		Metrics:       m.metrics,
		Logger:        logger,
	})

	registry := watchers.NewRegistry(logger)
	rec := realtime.NewReconciler(realtime.ReconcilerOptions{
		SocketID:  socket.String(),
		Surface:   index,
		TrashPath: eng.TrashPath(),
		Watchers:  registry,
		Messenger: ui,
		Profile:   profile,
		Metrics:   m.metrics,
		Logger:    logger,
	})

	runCtx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:         sid,
		SocketID:   socket,
		Created:    time.Now(),
		Index:      index,
		Engine:     eng,
		Watchers:   registry,
		Profile:    profile,
		Reconciler: rec,
		Conn:       conn,
		UI:         ui,
		fs:         fs,
		logger:     logger,
		cancel:     cancel,
		done:       make(chan struct{}),
	}

	if conn != nil {
		go func() {
			defer close(s.done)
			if err := conn.Run(runCtx, rec.Dispatch(runCtx)); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("realtime stream stopped", zap.Error(err))
			}
		}()
	} else {
		close(s.done)
	}

	m.sessions.Store(sid, s)
	m.metrics.SetSessionsActive(int(m.active.Add(1)))
	logger.Info("session created", zap.String("socket_id", socket.String()), zap.Bool("realtime", conn != nil))
	return s, nil
}

// Get returns a live session
func (m *Manager) Get(sid id.SessionID) (*Session, bool) {
	v, ok := m.sessions.Load(sid)
	if !ok {
		return nil, false
	}
	return v.(*Session), true
}

// Delete signs a session out and stops its realtime stream
func (m *Manager) Delete(sid id.SessionID) error {
	v, ok := m.sessions.LoadAndDelete(sid)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, sid)
	}
	s := v.(*Session)
	s.close()
	m.metrics.SetSessionsActive(int(m.active.Add(-1)))
	s.logger.Info("session closed")
	return nil
}

// List returns every live session, oldest first
func (m *Manager) List() []Info {
	var out []Info
	m.sessions.Range(func(_, v any) bool {
		out = append(out, v.(*Session).Info())
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CloseAll signs every session out
func (m *Manager) CloseAll() {
	m.sessions.Range(func(k, _ any) bool {
		_ = m.Delete(k.(id.SessionID))
		return true
	})
}
