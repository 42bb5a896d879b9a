// Package watchers tracks which app instances watch which items and
// delivers item change notifications to them.
package watchers

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/desktop/internal/logging"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/shared/id"
)

// Change kinds delivered to watchers
const (
	ChangeWrite  = "write"
	ChangeRename = "rename"
	ChangeMoved  = "moved"
)

// MessageItemChanged is the message name apps receive
const MessageItemChanged = "itemChanged"

// Change describes an item change
type Change struct {
	Event    string `json:"event"`
	UID      string `json:"uid"`
	Name     string `json:"name,omitempty"`
	NewName  string `json:"new_name,omitempty"`
	NewSize  int64  `json:"new_size,omitempty"`
	Modified int64  `json:"modified,omitempty"`
}

// Message is posted to a watching app instance
type Message struct {
	Msg  string `json:"msg"`
	Data Change `json:"data"`
}

// Messenger posts messages to app instances. PostMessage returns false
// when the instance is no longer reachable.
type Messenger interface {
	PostMessage(instance id.InstanceID, msg Message) bool
}

// Registry maps item uids to the app instances watching them
type Registry struct {
	mu       sync.Mutex
	watchers map[string]map[id.InstanceID]struct{}
	logger   *logging.Logger
}

// NewRegistry creates an empty registry
func NewRegistry(logger *logging.Logger) *Registry {
	return &Registry{
		watchers: make(map[string]map[id.InstanceID]struct{}),
		logger:   logger.OrNop().Named("watchers"),
	}
}

// Watch subscribes an instance to changes of uid
func (r *Registry) Watch(uid string, instance id.InstanceID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.watchers[uid]
	if !ok {
		set = make(map[id.InstanceID]struct{})
		r.watchers[uid] = set
	}
	set[instance] = struct{}{}
}

// Unwatch removes a subscription
func (r *Registry) Unwatch(uid string, instance id.InstanceID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropLocked(uid, instance)
}

// Watchers returns the instances watching uid
func (r *Registry) Watchers(uid string) []id.InstanceID {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]id.InstanceID, 0, len(r.watchers[uid]))
	for inst := range r.watchers[uid] {
		out = append(out, inst)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Notify delivers a change to every watcher of its uid. Instances the
// messenger cannot reach are pruned. It returns the number delivered.
func (r *Registry) Notify(m Messenger, change Change) int {
	targets := r.Watchers(change.UID)
	if len(targets) == 0 || m == nil {
		return 0
	}

	msg := Message{Msg: MessageItemChanged, Data: change}
	delivered := 0
	for _, inst := range targets {
		if m.PostMessage(inst, msg) {
			delivered++
			continue
		}
		r.logger.Debug("Pruning unreachable watcher",
			zap.String("uid", change.UID),
			zap.String("instance", inst.String()))
		r.Unwatch(change.UID, inst)
	}
	return delivered
}

func (r *Registry) dropLocked(uid string, instance id.InstanceID) {
	set, ok := r.watchers[uid]
	if !ok {
		return
	}
	delete(set, instance)
	if len(set) == 0 {
		delete(r.watchers, uid)
	}
}
