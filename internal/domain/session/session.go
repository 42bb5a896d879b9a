package session

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/desktop/internal/desktop"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/engine"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/logging"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/operation"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/realtime"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/remotefs"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/watchers"
)

// UI is the browser-facing collaborator of a session
type UI interface {
	engine.Prompter
	operation.ProgressSurface
	watchers.Messenger
}

// Session is one signed-in desktop
type Session struct {
	ID       id.SessionID
	SocketID id.SocketID
	Created  time.Time

	Index      *desktop.Index
	Engine     *engine.Engine
	Watchers   *watchers.Registry
	Profile    *realtime.ProfileCache
	Reconciler *realtime.Reconciler
	// Conn is nil when the realtime channel is disabled
	Conn *realtime.Conn
	UI   UI

	fs     remotefs.FS
	logger *logging.Logger
	cancel context.CancelFunc
	done   chan struct{}
}

// Info summarises a session for listings
type Info struct {
	ID        id.SessionID `json:"id"`
	SocketID  id.SocketID  `json:"socket_id"`
	Username  string       `json:"username"`
	Home      string       `json:"home"`
	Created   time.Time    `json:"created"`
	Connected bool         `json:"realtime_connected"`
	Undoable  int          `json:"undoable"`
}

// Info returns the session summary
func (s *Session) Info() Info {
	u, _ := s.Profile.User()
	return Info{
		ID:        s.ID,
		SocketID:  s.SocketID,
		Username:  u.Username,
		Home:      s.Engine.Home(),
		Created:   s.Created,
		Connected: s.Conn != nil && s.Conn.Connected(),
		Undoable:  s.Engine.History().Len(),
	}
}

// Desktop returns the desktop directory of the session user
func (s *Session) Desktop() string {
	return paths.Join(s.Engine.Home(), "Desktop")
}

// OpenContainer lists path and renders it as a new container
func (s *Session) OpenContainer(ctx context.Context, path string, by desktop.SortBy, order desktop.SortOrder) (desktop.Container, error) {
	path = paths.Normalize(path)
	items, err := s.fs.Readdir(ctx, path)
	if err != nil {
		return desktop.Container{}, fmt.Errorf("open %s: %w", path, err)
	}
	c := s.Index.OpenContainer(path, by, order)
	if err := s.Index.Populate(c.ID, items); err != nil {
		s.Index.CloseContainer(c.ID)
		return desktop.Container{}, err
	}
	if paths.Equal(path, s.Engine.TrashPath()) {
		s.Index.SetTrashFull(len(items) > 0)
	}
	return c, nil
}

// Entries returns the rendered entries of every container open at path
func (s *Session) Entries(path string) ([]desktop.Entry, bool) {
	containers := s.Index.ContainersAt(path)
	if len(containers) == 0 {
		return nil, false
	}
	return s.Index.Entries(containers[0].ID), true
}

// close stops the realtime stream and cancels running operations
func (s *Session) close() {
	s.Engine.Tracker().CancelAll()
	s.cancel()
	if s.Conn != nil {
		if err := s.Conn.Close(); err != nil {
			s.logger.Debug("realtime close failed", zap.Error(err))
		}
	}
	<-s.done
}
