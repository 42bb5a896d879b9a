package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/desktop/internal/shared/types"
)

func TestDeleteDescendantsOnlyKeepsDirectory(t *testing.T) {
	f := newFixture(t)
	f.fs.AddDir(deskDir + "/Photos")
	f.fs.AddFile(deskDir+"/Photos/x.png", []byte("x"))
	f.fs.AddFile(deskDir+"/Photos/y.png", []byte("y"))
	desk := f.show(t, deskDir)
	photos := f.show(t, deskDir+"/Photos")
	require.Len(t, f.index.Items(photos.ID), 2)

	err := f.engine.Delete(context.Background(), []types.Item{f.item(t, deskDir+"/Photos")}, true)
	require.NoError(t, err)

	assert.True(t, f.fs.Exists(deskDir+"/Photos"))
	assert.Empty(t, f.fs.Tree(deskDir+"/Photos"))
	assert.Empty(t, f.index.Items(photos.ID))
	assert.Equal(t, []string{"Photos"}, names(f.index.Items(desk.ID)))
}

func TestDeleteFailureShowsItemAgain(t *testing.T) {
	f := newFixture(t)
	desk := f.show(t, deskDir)
	a := f.fs.AddFile(deskDir+"/a.txt", []byte("a"))
	f.index.RenderItem(a)
	f.fs.FailNext("delete", errors.New("boom"))

	err := f.engine.Delete(context.Background(), []types.Item{a}, false)

	assert.ErrorContains(t, err, "boom")
	assert.Equal(t, []string{"boom"}, f.ui.alerts)
	entries := f.index.Entries(desk.ID)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Hidden)
	assert.True(t, f.fs.Exists(deskDir+"/a.txt"))
}

func TestPermanentDeleteFromTrashRefreshesState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.fs.AddFile(deskDir+"/a.txt", []byte("a"))
	_, err := f.engine.Trash(ctx, []types.Item{a})
	require.NoError(t, err)
	trashed, _ := f.fs.GetUID(a.UID)

	require.NoError(t, f.engine.Delete(ctx, []types.Item{trashed}, false))

	assert.Empty(t, f.fs.Tree(trashDir))
	assert.False(t, f.index.TrashFull())
	assert.Equal(t, []bool{false, true}, f.events.trashStates())
}

func TestEmptyTrash(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.fs.AddFile(deskDir+"/a.txt", []byte("a"))
	b := f.fs.AddFile(deskDir+"/b.txt", []byte("b"))
	_, err := f.engine.Trash(ctx, []types.Item{a, b})
	require.NoError(t, err)

	require.NoError(t, f.engine.EmptyTrash(ctx))
	assert.Len(t, f.fs.Tree(trashDir), 2, "declined confirmation keeps the Trash")
	assert.Zero(t, f.fs.CallCount("delete"))

	f.ui.confirm = true
	require.NoError(t, f.engine.EmptyTrash(ctx))

	assert.Equal(t, []string{
		"Are you sure you want to permanently delete the items in Trash?",
		"Are you sure you want to permanently delete the items in Trash?",
	}, f.ui.confirms)
	assert.Empty(t, f.fs.Tree(trashDir))
	assert.True(t, f.fs.Exists(trashDir))
	assert.False(t, f.index.TrashFull())
	assert.Equal(t, []bool{false, true}, f.events.trashStates())
}
