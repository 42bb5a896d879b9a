package undo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/desktop/internal/shared/types"
)

type mockExecutor struct {
	mock.Mock
}

func (m *mockExecutor) Remove(ctx context.Context, uid, path string) error {
	return m.Called(uid, path).Error(0)
}

func (m *mockExecutor) Rename(ctx context.Context, uid, newName string) error {
	return m.Called(uid, newName).Error(0)
}

func (m *mockExecutor) MoveTo(ctx context.Context, uid, destDir string) error {
	return m.Called(uid, destDir).Error(0)
}

func TestUndoEmptyIsNoop(t *testing.T) {
	h := NewHistory(0, nil, nil)
	exec := &mockExecutor{}

	r, err := h.Undo(context.Background(), exec)
	assert.NoError(t, err)
	assert.Nil(t, r)
	exec.AssertExpectations(t)
}

func TestUndoDispatch(t *testing.T) {
	tests := []struct {
		name   string
		record Record
		setup  func(m *mockExecutor)
	}{
		{
			name:   "create folder",
			record: Record{Kind: KindCreateFolder, Created: &types.Item{UID: "u1", Path: "/alice/Desktop/New Folder"}},
			setup: func(m *mockExecutor) {
				m.On("Remove", "u1", "/alice/Desktop/New Folder").Return(nil).Once()
			},
		},
		{
			name:   "rename",
			record: Record{Kind: KindRename, Rename: &Rename{UID: "u1", OldName: "a.txt", NewName: "a.pdf", OldPath: "/alice/a.txt"}},
			setup: func(m *mockExecutor) {
				m.On("Rename", "u1", "a.txt").Return(nil).Once()
			},
		},
		{
			name:   "copy",
			record: Record{Kind: KindCopy, Paths: []string{"/alice/x", "/alice/y"}},
			setup: func(m *mockExecutor) {
				m.On("Remove", "", "/alice/x").Return(nil).Once()
				m.On("Remove", "", "/alice/y").Return(nil).Once()
			},
		},
		{
			name: "move",
			record: Record{Kind: KindMove, Items: []Entry{
				{UID: "u1", Path: "/alice/Documents/a.txt", OriginalPath: "/alice/Desktop/a.txt"},
			}},
			setup: func(m *mockExecutor) {
				m.On("MoveTo", "u1", "/alice/Desktop").Return(nil).Once()
			},
		},
		{
			name: "delete",
			record: Record{Kind: KindDelete, Items: []Entry{
				{UID: "u1", Path: "/alice/Trash/u1", OriginalPath: "/alice/Desktop/a.txt"},
				{UID: "u2", Path: "/alice/Trash/u2"},
			}},
			setup: func(m *mockExecutor) {
				m.On("MoveTo", "u1", "/alice/Desktop").Return(nil).Once()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHistory(0, nil, nil)
			exec := &mockExecutor{}
			tt.setup(exec)
			h.Push(tt.record)

			r, err := h.Undo(context.Background(), exec)
			require.NoError(t, err)
			require.NotNil(t, r)
			assert.Equal(t, tt.record.Kind, r.Kind)
			assert.Zero(t, h.Len())
			exec.AssertExpectations(t)
		})
	}
}

func TestUndoContinuesAfterStepFailure(t *testing.T) {
	h := NewHistory(0, nil, nil)
	exec := &mockExecutor{}
	boom := errors.New("boom")
	exec.On("Remove", "", "/a").Return(boom).Once()
	exec.On("Remove", "", "/b").Return(nil).Once()
	h.Push(Record{Kind: KindUpload, Paths: []string{"/a", "/b"}})

	_, err := h.Undo(context.Background(), exec)
	assert.ErrorIs(t, err, boom)
	exec.AssertExpectations(t)
}

func TestUndoIsLIFO(t *testing.T) {
	h := NewHistory(0, nil, nil)
	exec := &mockExecutor{}
	exec.On("Remove", "", "/second").Return(nil).Once()
	h.Push(Record{Kind: KindCopy, Paths: []string{"/first"}})
	h.Push(Record{Kind: KindCopy, Paths: []string{"/second"}})

	_, err := h.Undo(context.Background(), exec)
	require.NoError(t, err)
	assert.Equal(t, 1, h.Len())

	top, ok := h.Peek()
	require.True(t, ok)
	assert.Equal(t, []string{"/first"}, top.Paths)
	exec.AssertExpectations(t)
}

func TestPushIgnoresEmptyRecordsAndEvicts(t *testing.T) {
	h := NewHistory(2, nil, nil)
	h.Push(Record{Kind: KindCopy})
	h.Push(Record{Kind: KindRename})
	assert.Zero(t, h.Len())

	h.Push(Record{Kind: KindCopy, Paths: []string{"/1"}})
	h.Push(Record{Kind: KindCopy, Paths: []string{"/2"}})
	h.Push(Record{Kind: KindCopy, Paths: []string{"/3"}})
	assert.Equal(t, 2, h.Len())

	top, _ := h.Peek()
	assert.Equal(t, []string{"/3"}, top.Paths)
}

type blockingExecutor struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingExecutor) Remove(ctx context.Context, uid, path string) error {
	b.once.Do(func() { close(b.started) })
	<-b.release
	return nil
}

func (b *blockingExecutor) Rename(ctx context.Context, uid, newName string) error { return nil }

func (b *blockingExecutor) MoveTo(ctx context.Context, uid, destDir string) error { return nil }

func TestConcurrentUndoIsRejected(t *testing.T) {
	h := NewHistory(0, nil, nil)
	h.Push(Record{Kind: KindCopy, Paths: []string{"/a"}})
	h.Push(Record{Kind: KindCopy, Paths: []string{"/b"}})

	exec := &blockingExecutor{started: make(chan struct{}), release: make(chan struct{})}
	done := make(chan error, 1)
	go func() {
		_, err := h.Undo(context.Background(), exec)
		done <- err
	}()

	select {
	case <-exec.started:
	case <-time.After(2 * time.Second):
		t.Fatal("first undo did not start")
	}

	_, err := h.Undo(context.Background(), exec)
	assert.ErrorIs(t, err, ErrUndoInProgress)

	close(exec.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, h.Len())
}
