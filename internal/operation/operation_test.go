package operation

import (
	"sync"
	"testing"
	"time"

	"github.com/GriffinCanCode/AgentOS/desktop/internal/logging"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/shared/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandle struct {
	mu       sync.Mutex
	percents []int
	statuses []string
	closedAt time.Time
}

func (h *fakeHandle) SetPercent(p int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.percents = append(h.percents, p)
}

func (h *fakeHandle) SetStatus(s string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.statuses = append(h.statuses, s)
}

func (h *fakeHandle) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closedAt = time.Now()
}

type fakeSurface struct {
	mu      sync.Mutex
	shown   map[ID]*fakeHandle
	shownAt map[ID]time.Time
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{shown: make(map[ID]*fakeHandle), shownAt: make(map[ID]time.Time)}
}

func (s *fakeSurface) ShowProgress(id ID, _ types.OperationKind) ProgressHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := &fakeHandle{}
	s.shown[id] = h
	s.shownAt[id] = time.Now()
	return h
}

func (s *fakeSurface) handle(id ID) (*fakeHandle, time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.shown[id]
	return h, s.shownAt[id], ok
}

func testConfig() Config {
	return Config{
		SingleThreshold: 20 * time.Millisecond,
		BatchThreshold:  40 * time.Millisecond,
		MinDwell:        60 * time.Millisecond,
	}
}

func TestIDsAreMonotonic(t *testing.T) {
	tracker := NewTracker(nil, testConfig(), logging.NewNop())

	a := tracker.Begin(types.OpMove, Options{})
	b := tracker.Begin(types.OpCopy, Options{})
	assert.Less(t, a.ID, b.ID)

	snaps := tracker.Active()
	require.Len(t, snaps, 2)
	assert.Equal(t, a.ID, snaps[0].ID)

	a.Finish()
	b.Finish()
	assert.Empty(t, tracker.Active())
}

func TestFastOperationNeverShowsProgress(t *testing.T) {
	surface := newFakeSurface()
	tracker := NewTracker(surface, testConfig(), logging.NewNop())

	op := tracker.Begin(types.OpNewFolder, Options{})
	op.Finish()
	<-op.Done()

	time.Sleep(40 * time.Millisecond)
	_, _, shown := surface.handle(op.ID)
	assert.False(t, shown)
}

func TestSlowOperationShowsAndDwells(t *testing.T) {
	surface := newFakeSurface()
	tracker := NewTracker(surface, testConfig(), logging.NewNop())

	op := tracker.Begin(types.OpMove, Options{Status: "Moving a.txt"})
	op.SetPercent(10)

	require.Eventually(t, op.Visible, time.Second, 5*time.Millisecond)
	op.SetProgress("a", 50)
	op.SetProgress("b", 100)
	assert.Equal(t, 75, op.Snapshot().Percent)

	op.Finish()
	select {
	case <-op.Done():
	case <-time.After(time.Second):
		t.Fatal("surface was never closed")
	}

	handle, shownAt, ok := surface.handle(op.ID)
	require.True(t, ok)
	handle.mu.Lock()
	defer handle.mu.Unlock()
	assert.GreaterOrEqual(t, handle.closedAt.Sub(shownAt), testConfig().MinDwell)
	assert.Equal(t, []int{10, 50, 75}, handle.percents)
	assert.Equal(t, []string{"Moving a.txt"}, handle.statuses)
}

func TestCancelAbortsOnlyTransfers(t *testing.T) {
	tracker := NewTracker(nil, testConfig(), logging.NewNop())

	var uploadAborted, moveAborted bool
	upload := tracker.Begin(types.OpUpload, Options{Abort: func() { uploadAborted = true }})
	move := tracker.Begin(types.OpMove, Options{Abort: func() { moveAborted = true }})

	assert.True(t, tracker.Cancel(upload.ID))
	tracker.CancelAll()

	assert.True(t, upload.Cancelled())
	assert.ErrorIs(t, move.Err(), ErrCancelled)
	assert.True(t, uploadAborted)
	assert.False(t, moveAborted)
	assert.False(t, tracker.Cancel(ID(999)))
}

func TestSetAbortAfterCancel(t *testing.T) {
	tracker := NewTracker(nil, testConfig(), logging.NewNop())
	op := tracker.Begin(types.OpZip, Options{})
	op.Cancel()

	aborted := false
	op.SetAbort(func() { aborted = true })
	assert.True(t, aborted)
}
