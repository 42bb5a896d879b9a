package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/desktop/internal/conflict"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/desktop"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/engine"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/logging"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/operation"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/remotefs"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/remotefs/remotefstest"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/shared/types"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/watchers"
)

type quietUI struct {
	mu       sync.Mutex
	alerts   []string
	cancelFn func(operation.ID) bool
}

func (u *quietUI) Prompt(context.Context, conflict.Prompt) (conflict.Choice, error) {
	return conflict.Skip, nil
}

func (u *quietUI) Alert(_ context.Context, message string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.alerts = append(u.alerts, message)
}

func (u *quietUI) Confirm(context.Context, string) (bool, error) { return true, nil }

func (u *quietUI) ShowProgress(operation.ID, types.OperationKind) operation.ProgressHandle {
	return nopHandle{}
}

func (u *quietUI) PostMessage(id.InstanceID, watchers.Message) bool { return true }

func (u *quietUI) OnCancel(fn func(operation.ID) bool) { u.cancelFn = fn }

type nopHandle struct{}

func (nopHandle) SetPercent(int)   {}
func (nopHandle) SetStatus(string) {}
func (nopHandle) Close()           {}

func offlineConfig() *config.Config {
	cfg := config.Default()
	cfg.Realtime.Origin = ""
	return cfg
}

func newManager(t *testing.T, cfg *config.Config, fs *remotefstest.FS) (*Manager, *quietUI) {
	t.Helper()
	ui := &quietUI{}
	m := NewManager(Options{
		Config: cfg,
		NewFS:  func(string) remotefs.FS { return fs },
		NewUI:  func(id.SessionID) UI { return ui },
		Logger: logging.NewNop(),
	})
	t.Cleanup(m.CloseAll)
	return m, ui
}

func TestCreateWiresSession(t *testing.T) {
	fs := remotefstest.New("alice")
	fs.AddFile("/alice/Desktop/a.txt", []byte("a"))
	m, ui := newManager(t, offlineConfig(), fs)

	s, err := m.Create(context.Background(), "tok")
	require.NoError(t, err)

	assert.Equal(t, "/alice", s.Engine.Home())
	assert.Equal(t, "/alice/Trash", s.Engine.TrashPath())
	assert.Equal(t, "/alice/Desktop", s.Desktop())
	assert.Nil(t, s.Conn)
	assert.NotNil(t, ui.cancelFn)

	got, ok := m.Get(s.ID)
	require.True(t, ok)
	assert.Same(t, s, got)

	info := m.List()
	require.Len(t, info, 1)
	assert.Equal(t, "alice", info[0].Username)
	assert.False(t, info[0].Connected)
}

func TestCreateRequiresToken(t *testing.T) {
	m, _ := newManager(t, offlineConfig(), remotefstest.New("alice"))

	_, err := m.Create(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestCreateFailsWhenSignInFails(t *testing.T) {
	fs := remotefstest.New("alice")
	fs.FailNext("whoami", &remotefs.Error{Code: "token_auth_failed", Status: http.StatusUnauthorized})
	m, _ := newManager(t, offlineConfig(), fs)

	_, err := m.Create(context.Background(), "tok")

	var apiErr *remotefs.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "token_auth_failed", apiErr.Code)
	assert.Empty(t, m.List())
}

func TestOpenContainerAndEntries(t *testing.T) {
	fs := remotefstest.New("alice")
	fs.AddFile("/alice/Desktop/b.txt", nil)
	fs.AddFile("/alice/Desktop/a.txt", nil)
	fs.AddFile("/alice/Trash/old.txt", nil)
	m, _ := newManager(t, offlineConfig(), fs)
	s, err := m.Create(context.Background(), "tok")
	require.NoError(t, err)

	_, ok := s.Entries("/alice/Desktop")
	assert.False(t, ok)

	_, err = s.OpenContainer(context.Background(), "/alice/Desktop/", desktop.SortByName, desktop.SortDesc)
	require.NoError(t, err)
	entries, ok := s.Entries("/alice/Desktop")
	require.True(t, ok)
	require.Len(t, entries, 2)
	assert.Equal(t, "b.txt", entries[0].Item.Name)

	_, err = s.OpenContainer(context.Background(), "/alice/Trash", desktop.SortByName, desktop.SortAsc)
	require.NoError(t, err)
	assert.True(t, s.Index.TrashFull())

	_, err = s.OpenContainer(context.Background(), "/alice/missing", desktop.SortByName, desktop.SortAsc)
	assert.True(t, remotefs.IsNotFound(err))
}

func TestTrashListingMatchesLiveView(t *testing.T) {
	fs := remotefstest.New("alice")
	a := fs.AddFile("/alice/Desktop/a.txt", []byte("a"))
	m, _ := newManager(t, offlineConfig(), fs)
	s, err := m.Create(context.Background(), "tok")
	require.NoError(t, err)
	ctx := context.Background()

	bin, err := s.OpenContainer(ctx, "/alice/Trash", desktop.SortByName, desktop.SortAsc)
	require.NoError(t, err)
	_, err = s.Engine.Trash(ctx, []types.Item{a})
	require.NoError(t, err)

	live, ok := s.Entries("/alice/Trash")
	require.True(t, ok)
	require.Len(t, live, 1)
	assert.Equal(t, "a.txt", live[0].Item.Name)

	s.Index.CloseContainer(bin.ID)
	_, err = s.OpenContainer(ctx, "/alice/Trash", desktop.SortByName, desktop.SortAsc)
	require.NoError(t, err)
	listed, ok := s.Entries("/alice/Trash")
	require.True(t, ok)
	require.Len(t, listed, 1)
	assert.Equal(t, "a.txt", listed[0].Item.Name)
	assert.Equal(t, "/alice/Trash/"+a.UID, listed[0].Item.Path)
}

func TestOperationsRunThroughSession(t *testing.T) {
	fs := remotefstest.New("alice")
	m, _ := newManager(t, offlineConfig(), fs)
	s, err := m.Create(context.Background(), "tok")
	require.NoError(t, err)
	_, err = s.OpenContainer(context.Background(), s.Desktop(), desktop.SortByName, desktop.SortAsc)
	require.NoError(t, err)

	rec, err := s.Engine.StartOperation(context.Background(), engine.Request{Kind: types.OpNewFolder, Destination: s.Desktop()})
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.True(t, fs.Exists("/alice/Desktop/New Folder"))

	entries, _ := s.Entries(s.Desktop())
	require.Len(t, entries, 1)
	assert.Equal(t, 1, s.Info().Undoable)
}

func TestDeleteSession(t *testing.T) {
	m, _ := newManager(t, offlineConfig(), remotefstest.New("alice"))
	s, err := m.Create(context.Background(), "tok")
	require.NoError(t, err)

	require.NoError(t, m.Delete(s.ID))
	_, ok := m.Get(s.ID)
	assert.False(t, ok)
	assert.ErrorIs(t, m.Delete(s.ID), ErrNotFound)
}

func TestRealtimeEventsReachIndex(t *testing.T) {
	var upgrader websocket.Upgrader
	sockets := make(chan string, 1)
	ready := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		sockets <- r.URL.Query().Get("socket_id")
		<-ready

		added := func(name, originator string) []byte {
			data, _ := json.Marshal(types.ItemEvent{
				Item:                   types.Item{UID: "uid-" + name, Name: name, Path: "/alice/Desktop/" + name},
				OriginalClientSocketID: originator,
			})
			env, _ := json.Marshal(types.Envelope{Event: types.EventItemAdded, Data: data})
			return env
		}
		_ = ws.WriteMessage(websocket.TextMessage, added("mine.txt", r.URL.Query().Get("socket_id")))
		_ = ws.WriteMessage(websocket.TextMessage, added("theirs.txt", "sock_elsewhere"))
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Realtime.Origin = "ws" + strings.TrimPrefix(srv.URL, "http")
	cfg.Realtime.Path = "/socket"
	fs := remotefstest.New("alice")
	m, _ := newManager(t, cfg, fs)

	s, err := m.Create(context.Background(), "tok")
	require.NoError(t, err)
	_, err = s.OpenContainer(context.Background(), s.Desktop(), desktop.SortByName, desktop.SortAsc)
	require.NoError(t, err)

	select {
	case socket := <-sockets:
		assert.Equal(t, s.SocketID.String(), socket)
	case <-time.After(5 * time.Second):
		t.Fatal("realtime channel never connected")
	}
	close(ready)

	require.Eventually(t, func() bool {
		return len(s.Index.FindItemsByUID("uid-theirs.txt")) == 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.Empty(t, s.Index.FindItemsByUID("uid-mine.txt"))

	require.NoError(t, m.Delete(s.ID))
	assert.False(t, s.Conn.Connected())
}

func TestCloseAllIsIdempotent(t *testing.T) {
	m, _ := newManager(t, offlineConfig(), remotefstest.New("alice"))
	for i := 0; i < 3; i++ {
		_, err := m.Create(context.Background(), "tok")
		require.NoError(t, err)
	}

	m.CloseAll()
	m.CloseAll()

	assert.Empty(t, m.List())
}
