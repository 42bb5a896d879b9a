package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/desktop/internal/desktop"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/logging"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/shared/types"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/watchers"
)

const (
	self  = "sock_self"
	other = "sock_other"
	trash = "/alice/Trash"
)

type inbox struct {
	mu   sync.Mutex
	msgs map[id.InstanceID][]watchers.Message
	dead map[id.InstanceID]bool
}

func (b *inbox) PostMessage(instance id.InstanceID, msg watchers.Message) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.dead[instance] {
		return false
	}
	if b.msgs == nil {
		b.msgs = make(map[id.InstanceID][]watchers.Message)
	}
	b.msgs[instance] = append(b.msgs[instance], msg)
	return true
}

func (b *inbox) of(instance id.InstanceID) []watchers.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]watchers.Message(nil), b.msgs[instance]...)
}

type harness struct {
	rec      *Reconciler
	index    *desktop.Index
	desk     desktop.Container
	registry *watchers.Registry
	inbox    *inbox
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	index := desktop.NewIndex(trash, nil)
	desk := index.OpenContainer("/alice/Desktop", desktop.SortByName, desktop.SortAsc)
	require.NoError(t, index.Populate(desk.ID, []types.Item{
		{UID: "a", Name: "a.txt", Path: "/alice/Desktop/a.txt"},
		{UID: "p", Name: "Photos", Path: "/alice/Desktop/Photos", IsDir: true},
	}))
	registry := watchers.NewRegistry(logging.NewNop())
	box := &inbox{}
	rec := NewReconciler(ReconcilerOptions{
		SocketID:  self,
		Surface:   index,
		TrashPath: trash,
		Watchers:  registry,
		Messenger: box,
		Logger:    logging.NewNop(),
	})
	return &harness{rec: rec, index: index, desk: desk, registry: registry, inbox: box}
}

func envelope(t *testing.T, event string, payload any) types.Envelope {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return types.Envelope{Event: event, Data: data}
}

func deskNames(h *harness) []string {
	var out []string
	for _, item := range h.index.Items(h.desk.ID) {
		out = append(out, item.Name)
	}
	return out
}

func TestEchoesNeverMutateState(t *testing.T) {
	ctx := context.Background()
	events := []types.Envelope{
		envelope(t, types.EventItemAdded, types.ItemEvent{Item: types.Item{UID: "n", Name: "n.txt", Path: "/alice/Desktop/n.txt"}, OriginalClientSocketID: self}),
		envelope(t, types.EventItemRenamed, types.ItemEvent{Item: types.Item{UID: "a", Name: "b.txt", Path: "/alice/Desktop/b.txt"}, OldPath: "/alice/Desktop/a.txt", OriginalClientSocketID: self}),
		envelope(t, types.EventItemMoved, types.ItemEvent{Item: types.Item{UID: "p", Name: "Photos", Path: "/alice/Documents/Photos"}, OldPath: "/alice/Desktop/Photos", OriginalClientSocketID: self}),
		envelope(t, types.EventItemRemoved, types.ItemEvent{Item: types.Item{UID: "a", Path: "/alice/Desktop/a.txt"}, OriginalClientSocketID: self}),
		envelope(t, types.EventTrashIsEmpty, types.TrashEvent{IsEmpty: false, OriginalClientSocketID: self}),
	}

	h := newHarness(t)
	before := h.index.Entries(h.desk.ID)
	for _, env := range events {
		assert.Equal(t, Suppressed, h.rec.Handle(ctx, env), env.Event)
	}
	assert.Equal(t, before, h.index.Entries(h.desk.ID))
	assert.False(t, h.index.TrashFull())
}

func TestItemAddedRendersOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	env := envelope(t, types.EventItemAdded, types.ItemEvent{
		Item:                   types.Item{UID: "n", Name: "n.txt", Path: "/alice/Desktop/n.txt"},
		OriginalClientSocketID: other,
	})

	assert.Equal(t, Applied, h.rec.Handle(ctx, env))
	assert.Equal(t, Applied, h.rec.Handle(ctx, env))
	assert.Equal(t, []string{"a.txt", "n.txt", "Photos"}, deskNames(h))
}

func TestItemAddedFromDirpath(t *testing.T) {
	h := newHarness(t)
	env := envelope(t, types.EventItemAdded, map[string]any{
		"uid":     "n",
		"name":    "n.txt",
		"dirpath": "/alice/Desktop",
	})

	h.rec.Handle(context.Background(), env)

	assert.Contains(t, deskNames(h), "n.txt")
}

func TestItemRenamedPatchesDescendants(t *testing.T) {
	h := newHarness(t)
	photos := h.index.OpenContainer("/alice/Desktop/Photos", desktop.SortByName, desktop.SortAsc)
	require.NoError(t, h.index.Populate(photos.ID, []types.Item{{UID: "x", Name: "x.png", Path: "/alice/Desktop/Photos/x.png"}}))

	h.rec.Handle(context.Background(), envelope(t, types.EventItemRenamed, types.ItemEvent{
		Item: types.Item{UID: "p", Name: "Pictures", Path: "/alice/Desktop/Pictures", IsDir: true},
	}))

	assert.Equal(t, []string{"a.txt", "Pictures"}, deskNames(h))
	item, ok := h.index.Item(h.index.FindItemsByUID("x")[0])
	require.True(t, ok)
	assert.Equal(t, "/alice/Desktop/Pictures/x.png", item.Path)
}

func TestItemMovedToTrashClosesWindows(t *testing.T) {
	h := newHarness(t)
	h.index.OpenWindow("/alice/Desktop/Photos", "p", "")

	h.rec.Handle(context.Background(), envelope(t, types.EventItemMoved, types.ItemEvent{
		Item:    types.Item{UID: "p", Name: "p", Path: trash + "/p", IsDir: true},
		OldPath: "/alice/Desktop/Photos",
	}))

	assert.Equal(t, []string{"a.txt"}, deskNames(h))
	assert.Empty(t, h.index.Windows())
}

func TestItemRemovedDescendantsOnly(t *testing.T) {
	h := newHarness(t)
	photos := h.index.OpenContainer("/alice/Desktop/Photos", desktop.SortByName, desktop.SortAsc)
	require.NoError(t, h.index.Populate(photos.ID, []types.Item{
		{UID: "x", Name: "x.png", Path: "/alice/Desktop/Photos/x.png"},
		{UID: "y", Name: "y.png", Path: "/alice/Desktop/Photos/y.png"},
	}))

	h.rec.Handle(context.Background(), envelope(t, types.EventItemRemoved, types.ItemEvent{
		Item:            types.Item{UID: "p", Path: "/alice/Desktop/Photos"},
		DescendantsOnly: true,
	}))

	assert.Empty(t, h.index.Items(photos.ID))
	assert.Equal(t, []string{"a.txt", "Photos"}, deskNames(h))
}

func TestTrashStateChanged(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.rec.Handle(ctx, envelope(t, types.EventTrashIsEmpty, types.TrashEvent{IsEmpty: false, OriginalClientSocketID: other}))
	assert.True(t, h.index.TrashFull())

	h.rec.Handle(ctx, envelope(t, types.EventTrashIsEmpty, types.TrashEvent{IsEmpty: true}))
	assert.False(t, h.index.TrashFull())
}

func TestTrashEmptiedElsewhereClearsTrashContainers(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	bin := h.index.OpenContainer(trash, desktop.SortByName, desktop.SortAsc)
	require.NoError(t, h.index.Populate(bin.ID, []types.Item{
		{UID: "t1", Name: "t1", Path: trash + "/t1"},
		{UID: "t2", Name: "t2", Path: trash + "/t2", IsDir: true},
	}))
	h.index.SetTrashFull(true)

	disposition := h.rec.Handle(ctx, envelope(t, types.EventTrashIsEmpty, types.TrashEvent{IsEmpty: true, OriginalClientSocketID: other}))

	assert.Equal(t, Applied, disposition)
	assert.Empty(t, h.index.Items(bin.ID))
	assert.False(t, h.index.TrashFull())
	assert.Len(t, h.index.Items(h.desk.ID), 2)
}

func TestWatchersSeeEchoes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	editor := id.InstanceID("inst_editor")
	gone := id.InstanceID("inst_gone")
	h.registry.Watch("a", editor)
	h.registry.Watch("a", gone)
	h.inbox.dead = map[id.InstanceID]bool{gone: true}

	h.rec.Handle(ctx, envelope(t, types.EventItemAdded, types.ItemEvent{
		Item:                   types.Item{UID: "a", Name: "a.txt", Path: "/alice/Desktop/a.txt", Size: 12, Modified: 99},
		OriginalClientSocketID: self,
	}))
	h.rec.Handle(ctx, envelope(t, types.EventItemRenamed, types.ItemEvent{
		Item:                   types.Item{UID: "a", Name: "b.txt", Path: "/alice/Desktop/b.txt"},
		OriginalClientSocketID: self,
	}))
	h.rec.Handle(ctx, envelope(t, types.EventItemMoved, types.ItemEvent{
		Item:    types.Item{UID: "a", Name: "b.txt", Path: "/alice/Documents/b.txt"},
		OldPath: "/alice/Desktop/b.txt",
	}))

	msgs := h.inbox.of(editor)
	require.Len(t, msgs, 3)
	assert.Equal(t, watchers.MessageItemChanged, msgs[0].Msg)
	assert.Equal(t, watchers.Change{Event: watchers.ChangeWrite, UID: "a", NewSize: 12, Modified: 99}, msgs[0].Data)
	assert.Equal(t, watchers.Change{Event: watchers.ChangeRename, UID: "a", NewName: "b.txt"}, msgs[1].Data)
	assert.Equal(t, watchers.Change{Event: watchers.ChangeMoved, UID: "a", Name: "b.txt"}, msgs[2].Data)
	assert.Equal(t, []id.InstanceID{editor}, h.registry.Watchers("a"))
}

func TestHandlersRunForAppliedEventsOnly(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	var seen []string
	h.rec.On(types.EventItemRemoved, func(event string, data json.RawMessage) {
		seen = append(seen, event)
	})

	h.rec.Handle(ctx, envelope(t, types.EventItemRemoved, types.ItemEvent{Item: types.Item{UID: "a", Path: "/alice/Desktop/a.txt"}, OriginalClientSocketID: self}))
	h.rec.Handle(ctx, envelope(t, types.EventItemRemoved, types.ItemEvent{Item: types.Item{UID: "a", Path: "/alice/Desktop/a.txt"}}))

	assert.Equal(t, []string{types.EventItemRemoved}, seen)
}

func TestUnknownAndMalformedEvents(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	assert.Equal(t, Ignored, h.rec.Handle(ctx, types.Envelope{Event: "chat.message", Data: json.RawMessage(`{}`)}))
	assert.Equal(t, Malformed, h.rec.Handle(ctx, types.Envelope{Event: types.EventItemAdded, Data: json.RawMessage(`[1,2`)}))
}

func TestEmailConfirmedRefreshesProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"username":"alice","uuid":"u-1","email_confirmed":true}`))
	}))
	defer srv.Close()

	h := newHarness(t)
	profile := NewProfileCache(srv.URL, "tok", logging.NewNop())
	h.rec.profile = profile

	assert.Equal(t, Applied, h.rec.Handle(context.Background(), types.Envelope{Event: types.EventUserEmailConfirmed, Data: json.RawMessage(`{}`)}))

	u, ok := profile.User()
	require.True(t, ok)
	assert.True(t, u.EmailConfirmed)
}
