package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrashMetadata(t *testing.T) {
	item := Item{UID: "u1", Name: "a.txt", Path: "/alice/Desktop/a.txt"}
	_, ok := item.TrashInfo()
	assert.False(t, ok)

	now := time.Unix(1700000000, 0)
	item.Metadata = item.WithTrashMetadata(now)

	info, ok := item.TrashInfo()
	require.True(t, ok)
	assert.Equal(t, "a.txt", info.OriginalName)
	assert.Equal(t, "/alice/Desktop/a.txt", info.OriginalPath)
	assert.Equal(t, int64(1700000000), info.TrashedAt)
	assert.JSONEq(t, `{"original_name":"a.txt","original_path":"/alice/Desktop/a.txt","trashed_ts":1700000000}`, string(item.Metadata))
}

func TestParseTrashMetadataIgnoresOtherMetadata(t *testing.T) {
	_, ok := ParseTrashMetadata(json.RawMessage(`{"color":"red"}`))
	assert.False(t, ok)
	_, ok = ParseTrashMetadata(json.RawMessage(`null`))
	assert.False(t, ok)
	_, ok = ParseTrashMetadata(json.RawMessage(`{not json`))
	assert.False(t, ok)
}

func TestItemEventWireFields(t *testing.T) {
	ev := ItemEvent{
		Item:                   Item{UID: "u1", Name: "b", Path: "/alice/b", IsDir: true, Size: 0, Modified: 42},
		OldPath:                "/alice/a",
		OriginalClientSocketID: "sock_1",
		DescendantsOnly:        true,
		OverwrittenUID:         "u0",
		ParentDirsCreated:      []Item{{UID: "p1", Name: "x", Path: "/alice/x", IsDir: true}},
	}

	raw, err := json.Marshal(ev)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	for _, key := range []string{"uid", "path", "old_path", "name", "is_dir", "size", "modified",
		"original_client_socket_id", "descendants_only", "overwritten_uid", "parent_dirs_created"} {
		assert.Contains(t, fields, key)
	}

	var back ItemEvent
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, ev, back)
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "pdf", Item{Name: "Report.PDF"}.Extension())
	assert.Equal(t, "", Item{Name: ".bashrc"}.Extension())
	assert.Equal(t, "", Item{Name: "dir.d", IsDir: true}.Extension())
}

func TestOperationKind(t *testing.T) {
	assert.True(t, OpMove.Batch())
	assert.False(t, OpRename.Batch())
	assert.True(t, OpUpload.Abortable())
	assert.False(t, OpCopy.Abortable())
	assert.False(t, OperationKind("explode").Valid())
}
