package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/desktop/internal/desktop"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/logging"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/shared/types"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/watchers"
)

// Event dispositions
const (
	Applied    = "applied"
	Suppressed = "suppressed"
	Ignored    = "ignored"
	Malformed  = "malformed"
)

// Handler observes an applied event
type Handler func(event string, data json.RawMessage)

// ReconcilerOptions configures a Reconciler
type ReconcilerOptions struct {
	// SocketID is this session's originator id
	SocketID  string
	Surface   desktop.Surface
	TrashPath string

	Watchers  *watchers.Registry
	Messenger watchers.Messenger
	Profile   *ProfileCache

	Metrics *monitoring.Metrics
	Logger  *logging.Logger
}

// Reconciler applies realtime events to the desktop surface
type Reconciler struct {
	socketID  string
	surface   desktop.Surface
	trash     string
	watchers  *watchers.Registry
	messenger watchers.Messenger
	profile   *ProfileCache
	metrics   *monitoring.Metrics
	logger    *logging.Logger

	mu       sync.RWMutex
	handlers map[string][]Handler
	serial   sync.Mutex
}

// NewReconciler creates a reconciler
func NewReconciler(opts ReconcilerOptions) *Reconciler {
	return &Reconciler{
		socketID:  opts.SocketID,
		surface:   opts.Surface,
		trash:     paths.Normalize(opts.TrashPath),
		watchers:  opts.Watchers,
		messenger: opts.Messenger,
		profile:   opts.Profile,
		metrics:   opts.Metrics,
		logger:    opts.Logger.OrNop().Named("reconciler"),
		handlers:  make(map[string][]Handler),
	}
}

// On registers a handler that runs after event has been applied. Echoes
// of this session's own changes are not delivered.
func (r *Reconciler) On(event string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[event] = append(r.handlers[event], h)
}

// Dispatch adapts Handle to the Conn callback
func (r *Reconciler) Dispatch(ctx context.Context) func(types.Envelope) {
	return func(env types.Envelope) {
		r.Handle(ctx, env)
	}
}

// Handle applies one envelope and returns its disposition. Calls are
// serialised.
func (r *Reconciler) Handle(ctx context.Context, env types.Envelope) string {
	r.serial.Lock()
	defer r.serial.Unlock()

	disposition := r.handle(ctx, env)
	r.metrics.RecordRealtimeEvent(env.Event, disposition)
	r.logger.Debug("realtime event", zap.String("event", env.Event), zap.String("disposition", disposition))
	if disposition == Applied {
		r.mu.RLock()
		handlers := append([]Handler(nil), r.handlers[env.Event]...)
		r.mu.RUnlock()
		for _, h := range handlers {
			h(env.Event, env.Data)
		}
	}
	return disposition
}

func (r *Reconciler) handle(ctx context.Context, env types.Envelope) string {
	switch env.Event {
	case types.EventItemAdded, types.EventItemUpdated, types.EventItemRenamed,
		types.EventItemMoved, types.EventItemRemoved:
		var ev types.ItemEvent
		if err := sonic.Unmarshal(env.Data, &ev); err != nil {
			r.logger.Warn("malformed item event", zap.String("event", env.Event), zap.Error(err))
			return Malformed
		}
		if ev.Path == "" && ev.Dirpath != "" && ev.Name != "" {
			ev.Path = paths.Join(ev.Dirpath, ev.Name)
		}
		r.notifyWatchers(env.Event, ev)
		if r.isEcho(ev.OriginalClientSocketID) {
			return Suppressed
		}
		r.applyItem(env.Event, ev)
		return Applied

	case types.EventTrashIsEmpty:
		var ev types.TrashEvent
		if err := sonic.Unmarshal(env.Data, &ev); err != nil {
			r.logger.Warn("malformed trash event", zap.Error(err))
			return Malformed
		}
		if r.isEcho(ev.OriginalClientSocketID) {
			return Suppressed
		}
		if ev.IsEmpty {
			desktop.ApplyRemoved(r.surface, r.trash, "", true)
		}
		r.surface.SetTrashFull(!ev.IsEmpty)
		return Applied

	case types.EventUserEmailConfirmed:
		if r.profile != nil {
			if _, err := r.profile.Refresh(ctx); err != nil {
				r.logger.Warn("failed to refresh profile", zap.Error(err))
			}
		}
		return Applied
	}
	return Ignored
}

func (r *Reconciler) isEcho(originator string) bool {
	return originator != "" && originator == r.socketID
}

func (r *Reconciler) applyItem(event string, ev types.ItemEvent) {
	switch event {
	case types.EventItemAdded:
		desktop.ApplyParentDirs(r.surface, ev.ParentDirsCreated)
		desktop.ApplyAdded(r.surface, ev.Item, ev.OverwrittenUID)
	case types.EventItemUpdated, types.EventItemRenamed:
		oldPath := ev.OldPath
		if oldPath == "" {
			oldPath = r.knownPath(ev.UID, ev.Path)
		}
		desktop.ApplyRenamed(r.surface, ev.Item, oldPath)
	case types.EventItemMoved:
		oldPath := ev.OldPath
		if oldPath == "" {
			oldPath = r.knownPath(ev.UID, ev.Path)
		}
		desktop.ApplyParentDirs(r.surface, ev.ParentDirsCreated)
		desktop.ApplyMoved(r.surface, ev.Item, oldPath, r.trash)
	case types.EventItemRemoved:
		desktop.ApplyRemoved(r.surface, ev.Path, ev.UID, ev.DescendantsOnly)
	}
}

// knownPath returns the path the surface currently shows for uid
func (r *Reconciler) knownPath(uid, fallback string) string {
	for _, h := range r.surface.FindItemsByUID(uid) {
		if item, ok := r.surface.Item(h); ok {
			return item.Path
		}
	}
	return fallback
}

// notifyWatchers tells watching apps about writes, renames and moves.
// Echoes are delivered too: apps must learn about every change.
func (r *Reconciler) notifyWatchers(event string, ev types.ItemEvent) {
	if r.watchers == nil || ev.UID == "" {
		return
	}
	var change watchers.Change
	switch event {
	case types.EventItemAdded:
		change = watchers.Change{Event: watchers.ChangeWrite, UID: ev.UID, NewSize: ev.Size, Modified: ev.Modified}
	case types.EventItemRenamed:
		change = watchers.Change{Event: watchers.ChangeRename, UID: ev.UID, NewName: ev.Name}
	case types.EventItemMoved:
		change = watchers.Change{Event: watchers.ChangeMoved, UID: ev.UID, Name: ev.Name}
	default:
		return
	}
	r.watchers.Notify(r.messenger, change)
}
