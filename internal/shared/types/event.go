package types

import "encoding/json"

// Realtime event names
const (
	EventItemAdded          = "item.added"
	EventItemUpdated        = "item.updated"
	EventItemRenamed        = "item.renamed"
	EventItemMoved          = "item.moved"
	EventItemRemoved        = "item.removed"
	EventTrashIsEmpty       = "trash.is_empty"
	EventUserEmailConfirmed = "user.email_confirmed"
)

// ItemEvent is the payload of item.* realtime events
type ItemEvent struct {
	Item
	OldPath                string `json:"old_path,omitempty"`
	Dirpath                string `json:"dirpath,omitempty"`
	OriginalClientSocketID string `json:"original_client_socket_id,omitempty"`
	DescendantsOnly        bool   `json:"descendants_only,omitempty"`
	OverwrittenUID         string `json:"overwritten_uid,omitempty"`
	ParentDirsCreated      []Item `json:"parent_dirs_created,omitempty"`
}

// TrashEvent is the payload of trash.is_empty
type TrashEvent struct {
	IsEmpty                bool   `json:"is_empty"`
	OriginalClientSocketID string `json:"original_client_socket_id,omitempty"`
}

// Envelope frames every message on the realtime channel
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}
