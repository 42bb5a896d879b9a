package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/desktop/internal/conflict"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/logging"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/operation"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/shared/types"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/watchers"
)

// browser connects a fake browser to a new surface
func browser(t *testing.T) (*Surface, *websocket.Conn) {
	t.Helper()
	s := NewSurface("sess_1", nil, logging.NewNop())
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	welcome := read(t, conn)
	require.Equal(t, "system", welcome.Type)
	require.True(t, s.Attached())
	return s, conn
}

func read(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestPromptRoundTrip(t *testing.T) {
	s, conn := browser(t)

	type result struct {
		choice conflict.Choice
		err    error
	}
	done := make(chan result, 1)
	go func() {
		choice, err := s.Prompt(context.Background(), conflict.Prompt{
			EntryName: "a.txt",
			Message:   `<strong>a.txt</strong> already exists.<script>alert(1)</script>`,
			Choices:   []conflict.Choice{conflict.Replace, conflict.ReplaceAll, conflict.Skip},
		})
		done <- result{choice, err}
	}()

	prompt := read(t, conn)
	assert.Equal(t, "prompt", prompt.Type)
	assert.NotEmpty(t, prompt.ID)
	assert.Equal(t, "a.txt", prompt.EntryName)
	assert.Equal(t, "<strong>a.txt</strong> already exists.", prompt.Message)
	assert.Equal(t, []conflict.Choice{conflict.Replace, conflict.ReplaceAll, conflict.Skip}, prompt.Choices)

	require.NoError(t, conn.WriteJSON(Message{Type: "prompt_response", ID: prompt.ID, Choice: conflict.ReplaceAll}))

	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.Equal(t, conflict.ReplaceAll, r.choice)
	case <-time.After(5 * time.Second):
		t.Fatal("prompt never answered")
	}
}

func TestConfirm(t *testing.T) {
	s, conn := browser(t)

	done := make(chan bool, 1)
	go func() {
		ok, _ := s.Confirm(context.Background(), "Empty the Trash?")
		done <- ok
	}()

	msg := read(t, conn)
	assert.Equal(t, "confirm", msg.Type)
	require.NoError(t, conn.WriteJSON(Message{Type: "prompt_response", ID: msg.ID, Confirmed: true}))
	assert.True(t, <-done)
}

func TestPromptWithoutBrowser(t *testing.T) {
	s := NewSurface("sess_1", nil, logging.NewNop())

	_, err := s.Prompt(context.Background(), conflict.Prompt{EntryName: "a"})
	assert.ErrorIs(t, err, ErrNoBrowser)
	assert.False(t, s.PostMessage("inst_1", watchers.Message{}))
	s.Alert(context.Background(), "dropped")
}

func TestPromptFailsWhenBrowserLeaves(t *testing.T) {
	s, conn := browser(t)

	done := make(chan error, 1)
	go func() {
		_, err := s.Prompt(context.Background(), conflict.Prompt{EntryName: "a"})
		done <- err
	}()
	read(t, conn)
	require.NoError(t, conn.Close())

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrDetached)
	case <-time.After(5 * time.Second):
		t.Fatal("prompt still waiting")
	}
	require.Eventually(t, func() bool { return !s.Attached() }, 5*time.Second, 10*time.Millisecond)
}

func TestPromptHonoursContext(t *testing.T) {
	s, conn := browser(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := s.Prompt(ctx, conflict.Prompt{EntryName: "a"})
		done <- err
	}()
	read(t, conn)
	cancel()

	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestCancelOperation(t *testing.T) {
	s, conn := browser(t)
	cancelled := make(chan operation.ID, 1)
	s.OnCancel(func(op operation.ID) bool {
		cancelled <- op
		return true
	})

	require.NoError(t, conn.WriteJSON(Message{Type: "cancel_operation", OperationID: 7}))

	select {
	case op := <-cancelled:
		assert.Equal(t, operation.ID(7), op)
	case <-time.After(5 * time.Second):
		t.Fatal("cancel not delivered")
	}
}

func TestAppMessagesStopAfterInstanceCloses(t *testing.T) {
	s, conn := browser(t)
	change := watchers.Message{Msg: watchers.MessageItemChanged, Data: watchers.Change{Event: watchers.ChangeWrite, UID: "u1"}}
	instance := id.InstanceID("inst_1")

	require.True(t, s.PostMessage(instance, change))
	msg := read(t, conn)
	assert.Equal(t, "app_message", msg.Type)
	assert.Equal(t, instance, msg.InstanceID)
	require.NotNil(t, msg.AppMessage)
	assert.Equal(t, change, *msg.AppMessage)

	require.NoError(t, conn.WriteJSON(Message{Type: "instance_closed", InstanceID: instance}))
	require.NoError(t, conn.WriteJSON(Message{Type: "ping"}))
	assert.Equal(t, "pong", read(t, conn).Type)
	assert.False(t, s.PostMessage(instance, change))
}

func TestProgressMessages(t *testing.T) {
	s, conn := browser(t)

	h := s.ShowProgress(3, types.OpCopy)
	h.SetStatus("Copying a.txt")
	h.SetPercent(50)
	h.Close()

	shown := read(t, conn)
	assert.Equal(t, Message{Type: "progress", OperationID: 3, Kind: types.OpCopy}, shown)
	status := read(t, conn)
	assert.Equal(t, "Copying a.txt", status.Status)
	percent := read(t, conn)
	assert.Equal(t, 50, percent.Percent)
	assert.Equal(t, "Copying a.txt", percent.Status)
	assert.Equal(t, "progress_closed", read(t, conn).Type)
}

func TestUnknownMessage(t *testing.T) {
	_, conn := browser(t)

	require.NoError(t, conn.WriteJSON(Message{Type: "launch_missiles"}))

	msg := read(t, conn)
	assert.Equal(t, "error", msg.Type)
}
