package types

import (
	"encoding/json"
	"strings"
	"time"
)

// Item is the local representation of a filesystem entry. UID is the
// identity key; Path is display state and may change without UID changing.
type Item struct {
	UID                string          `json:"uid"`
	Name               string          `json:"name"`
	Path               string          `json:"path"`
	IsDir              bool            `json:"is_dir"`
	Size               int64           `json:"size"`
	Modified           int64           `json:"modified"`
	IsShared           bool            `json:"is_shared,omitempty"`
	IsShortcut         bool            `json:"is_shortcut,omitempty"`
	ShortcutTargetUID  string          `json:"shortcut_to,omitempty"`
	ShortcutTargetPath string          `json:"shortcut_to_path,omitempty"`
	Immutable          bool            `json:"immutable,omitempty"`
	Metadata           json.RawMessage `json:"metadata,omitempty"`
	Type               string          `json:"type,omitempty"`
	AssociatedApp      string          `json:"associated_app,omitempty"`
	SuggestedApps      []string        `json:"suggested_apps,omitempty"`
	HasWebsite         bool            `json:"has_website,omitempty"`
	Icon               string          `json:"icon,omitempty"`
}

// TrashMetadata is stamped on entries that live in the Trash container
type TrashMetadata struct {
	OriginalName string `json:"original_name"`
	OriginalPath string `json:"original_path"`
	TrashedAt    int64  `json:"trashed_ts"`
}

// ModifiedAt returns the modification time
func (i Item) ModifiedAt() time.Time {
	if i.Modified == 0 {
		return time.Time{}
	}
	return time.Unix(i.Modified, 0)
}

// TrashInfo returns the trash metadata when the item carries a trashed
// timestamp.
func (i Item) TrashInfo() (TrashMetadata, bool) {
	return ParseTrashMetadata(i.Metadata)
}

// IsTrashed reports whether the item carries trash metadata
func (i Item) IsTrashed() bool {
	_, ok := i.TrashInfo()
	return ok
}

// WithTrashMetadata returns the metadata the item gets when it is moved to
// the Trash at t.
func (i Item) WithTrashMetadata(t time.Time) json.RawMessage {
	raw, _ := json.Marshal(TrashMetadata{
		OriginalName: i.Name,
		OriginalPath: i.Path,
		TrashedAt:    t.Unix(),
	})
	return raw
}

// ParseTrashMetadata decodes raw item metadata. Metadata without a trashed
// timestamp is not trash metadata.
func ParseTrashMetadata(raw json.RawMessage) (TrashMetadata, bool) {
	var md TrashMetadata
	if len(raw) == 0 || string(raw) == "null" {
		return md, false
	}
	if err := json.Unmarshal(raw, &md); err != nil {
		return md, false
	}
	return md, md.TrashedAt != 0
}

// Extension returns the lowercase extension of the item name without dot
func (i Item) Extension() string {
	idx := strings.LastIndexByte(i.Name, '.')
	if idx <= 0 || i.IsDir {
		return ""
	}
	return strings.ToLower(i.Name[idx+1:])
}

// Clone returns a deep copy of the item
func (i Item) Clone() Item {
	c := i
	if i.Metadata != nil {
		c.Metadata = append(json.RawMessage(nil), i.Metadata...)
	}
	if i.SuggestedApps != nil {
		c.SuggestedApps = append([]string(nil), i.SuggestedApps...)
	}
	return c
}
