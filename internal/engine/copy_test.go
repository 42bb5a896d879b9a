package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/desktop/internal/clipboard"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/conflict"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/shared/types"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/undo"
)

func TestCopySkipRecordsOnlyCompleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.fs.AddFile(deskDir+"/A.txt", []byte("new a"))
	b := f.fs.AddFile(deskDir+"/B.txt", []byte("b"))
	f.fs.AddFile(docsDir+"/A.txt", []byte("old a"))
	f.ui.choices = []conflict.Choice{conflict.Skip}

	rec, err := f.engine.Copy(ctx, []types.Item{a, b}, docsDir)
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, undo.KindCopy, rec.Kind)
	assert.Equal(t, []string{docsDir + "/B.txt"}, rec.Paths)
	require.Len(t, f.ui.prompts, 1)
	assert.Equal(t, "A.txt", f.ui.prompts[0].EntryName)
	content, _ := f.fs.Content(docsDir + "/A.txt")
	assert.Equal(t, "old a", string(content))

	_, err = f.engine.Undo(ctx)
	require.NoError(t, err)
	assert.False(t, f.fs.Exists(docsDir+"/B.txt"))
	assert.True(t, f.fs.Exists(docsDir+"/A.txt"))
	assert.True(t, f.fs.Exists(deskDir+"/B.txt"))
}

func TestCopyIntoSameDirectoryDedupes(t *testing.T) {
	f := newFixture(t)
	desk := f.show(t, deskDir)
	a := f.fs.AddFile(deskDir+"/a.txt", []byte("a"))

	rec, err := f.engine.Copy(context.Background(), []types.Item{a}, deskDir)
	require.NoError(t, err)

	assert.Equal(t, []string{deskDir + "/a (1).txt"}, rec.Paths)
	assert.Empty(t, f.ui.prompts)
	assert.Contains(t, names(f.index.Items(desk.ID)), "a (1).txt")
}

func TestCopySingleItemReplace(t *testing.T) {
	f := newFixture(t)
	a := f.fs.AddFile(deskDir+"/a.txt", []byte("new"))
	f.fs.AddFile(docsDir+"/a.txt", []byte("old"))
	f.ui.choices = []conflict.Choice{conflict.Replace}

	_, err := f.engine.Copy(context.Background(), []types.Item{a}, docsDir)
	require.NoError(t, err)

	require.Len(t, f.ui.prompts, 1)
	assert.Equal(t, []conflict.Choice{conflict.Replace, conflict.Cancel}, f.ui.prompts[0].Choices)
	content, _ := f.fs.Content(docsDir + "/a.txt")
	assert.Equal(t, "new", string(content))
}

func TestCopyIntoTrashRejected(t *testing.T) {
	f := newFixture(t)
	a := f.fs.AddFile(deskDir+"/a.txt", []byte("a"))

	_, err := f.engine.Copy(context.Background(), []types.Item{a}, trashDir)

	assert.ErrorIs(t, err, ErrInvalidDestination)
	assert.Equal(t, []string{"Cannot copy items into the Trash."}, f.ui.alerts)
	assert.Zero(t, f.fs.CallCount("copy"))
}

func TestPasteConsumesClipboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fs.AddFile(deskDir+"/cut.txt", []byte("c"))
	f.fs.AddFile(deskDir+"/copied.txt", []byte("d"))

	require.NoError(t, f.engine.Clipboard().Set(clipboard.OpMove, []string{deskDir + "/cut.txt"}))
	_, err := f.engine.Paste(ctx, docsDir)
	require.NoError(t, err)
	assert.True(t, f.fs.Exists(docsDir+"/cut.txt"))
	assert.False(t, f.fs.Exists(deskDir+"/cut.txt"))
	assert.True(t, f.engine.Clipboard().Peek().Empty())

	_, err = f.engine.Paste(ctx, docsDir)
	assert.ErrorIs(t, err, clipboard.ErrEmpty)

	require.NoError(t, f.engine.Clipboard().Set(clipboard.OpCopy, []string{deskDir + "/copied.txt"}))
	_, err = f.engine.Paste(ctx, docsDir)
	require.NoError(t, err)
	assert.True(t, f.fs.Exists(docsDir+"/copied.txt"))
	assert.True(t, f.fs.Exists(deskDir+"/copied.txt"))
}
