package desktop

import "github.com/GriffinCanCode/AgentOS/desktop/internal/shared/types"

// Handle identifies one rendered occurrence of an item
type Handle uint64

// Surface is the rendering collaborator used by the engine and the
// reconciler.
type Surface interface {
	// RenderItem shows item in every open container of its parent
	// directory. A container already showing the uid is updated in place.
	RenderItem(item types.Item) []Handle
	FindItemsByUID(uid string) []Handle
	// FindItemsByPathPrefix returns handles at prefix and below it
	FindItemsByPathPrefix(prefix string) []Handle
	Item(h Handle) (types.Item, bool)
	UpdateItem(h Handle, item types.Item)
	RemoveItem(h Handle)
	SetHidden(h Handle, hidden bool)
	// Relocate rewrites every path at or below oldRoot, including open
	// containers and windows.
	Relocate(oldRoot, newRoot string)
	// RetargetShortcuts rewrites shortcut targets at or below oldRoot
	RetargetShortcuts(oldRoot, newRoot string)
	CloseWindowsUnderPath(path string) []Window
	UpdateWindowPath(id, newPath string)
	SetTrashFull(full bool)
}

// Window is an open window rooted at a path
type Window struct {
	ID          string `json:"id"`
	Path        string `json:"path"`
	UID         string `json:"uid,omitempty"`
	Title       string `json:"title"`
	ContainerID string `json:"container_id,omitempty"`
}

// Container is an open directory listing
type Container struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	SortBy    SortBy    `json:"sort_by"`
	SortOrder SortOrder `json:"sort_order"`
}

// Entry is one rendered item
type Entry struct {
	Handle    Handle     `json:"handle"`
	Container string     `json:"container_id"`
	Item      types.Item `json:"item"`
	Hidden    bool       `json:"hidden,omitempty"`
}

// IconFunc resolves the icon of an item
type IconFunc func(item types.Item, trashFull bool) string
