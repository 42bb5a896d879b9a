package watchers

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/desktop/internal/shared/id"
)

type fakeMessenger struct {
	mu      sync.Mutex
	alive   map[id.InstanceID]bool
	receive map[id.InstanceID][]Message
}

func newFakeMessenger(alive ...id.InstanceID) *fakeMessenger {
	m := &fakeMessenger{
		alive:   make(map[id.InstanceID]bool),
		receive: make(map[id.InstanceID][]Message),
	}
	for _, inst := range alive {
		m.alive[inst] = true
	}
	return m
}

func (m *fakeMessenger) PostMessage(inst id.InstanceID, msg Message) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.alive[inst] {
		return false
	}
	m.receive[inst] = append(m.receive[inst], msg)
	return true
}

func TestNotifyDeliversToWatchers(t *testing.T) {
	r := NewRegistry(nil)
	r.Watch("u1", "inst_a")
	r.Watch("u1", "inst_b")
	r.Watch("u2", "inst_c")

	m := newFakeMessenger("inst_a", "inst_b", "inst_c")
	n := r.Notify(m, Change{Event: ChangeWrite, UID: "u1", NewSize: 12})

	assert.Equal(t, 2, n)
	require.Len(t, m.receive["inst_a"], 1)
	assert.Equal(t, MessageItemChanged, m.receive["inst_a"][0].Msg)
	assert.Equal(t, int64(12), m.receive["inst_a"][0].Data.NewSize)
	assert.Empty(t, m.receive["inst_c"])
}

func TestNotifyPrunesUnreachable(t *testing.T) {
	r := NewRegistry(nil)
	r.Watch("u1", "inst_a")
	r.Watch("u1", "inst_gone")

	m := newFakeMessenger("inst_a")
	assert.Equal(t, 1, r.Notify(m, Change{Event: ChangeRename, UID: "u1", NewName: "b.txt"}))
	assert.Equal(t, []id.InstanceID{"inst_a"}, r.Watchers("u1"))
}

func TestNotifyWithoutWatchers(t *testing.T) {
	r := NewRegistry(nil)
	assert.Zero(t, r.Notify(newFakeMessenger(), Change{Event: ChangeMoved, UID: "nobody"}))
	assert.Zero(t, r.Notify(nil, Change{Event: ChangeMoved, UID: "nobody"}))
}

func TestUnwatchDropsEmptySets(t *testing.T) {
	r := NewRegistry(nil)
	r.Watch("u1", "inst_a")
	r.Unwatch("u1", "inst_a")
	r.Unwatch("u1", "inst_a")

	assert.Empty(t, r.Watchers("u1"))
	assert.Empty(t, r.watchers)
}
