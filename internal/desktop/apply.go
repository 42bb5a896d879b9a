package desktop

import (
	"github.com/GriffinCanCode/AgentOS/desktop/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/shared/types"
)

// ApplyAdded shows a new or overwriting item. Handles of an overwritten
// entry adopt the new item in place.
func ApplyAdded(s Surface, item types.Item, overwrittenUID string) {
	if overwrittenUID != "" && overwrittenUID != item.UID {
		if hs := s.FindItemsByUID(overwrittenUID); len(hs) > 0 {
			for _, h := range hs {
				s.UpdateItem(h, item)
			}
			return
		}
	}
	if hs := s.FindItemsByUID(item.UID); len(hs) > 0 {
		for _, h := range hs {
			s.UpdateItem(h, item)
		}
		return
	}
	s.RenderItem(item)
}

// ApplyMoved removes the item from its old location and shows it at the
// new one. A move into the Trash closes windows rooted in the moved
// subtree; any other move rewrites descendant paths. Trashed entries are
// displayed under their original name.
func ApplyMoved(s Surface, moved types.Item, oldPath, trashPath string) {
	moved = trashView(moved, trashPath)
	for _, h := range s.FindItemsByUID(moved.UID) {
		s.RemoveItem(h)
	}
	if oldPath != "" {
		if paths.IsWithin(moved.Path, trashPath) {
			s.CloseWindowsUnderPath(oldPath)
			for _, h := range s.FindItemsByPathPrefix(oldPath) {
				s.RemoveItem(h)
			}
		} else {
			s.Relocate(oldPath, moved.Path)
		}
	}
	s.RenderItem(moved)
	if oldPath != "" {
		s.RetargetShortcuts(oldPath, moved.Path)
	}
}

// trashView shows an entry living in the Trash under its original name
func trashView(item types.Item, trashPath string) types.Item {
	if trashPath == "" || trashPath == paths.Root || !paths.IsWithin(item.Path, trashPath) {
		return item
	}
	if md, ok := item.TrashInfo(); ok && md.OriginalName != "" {
		item.Name = md.OriginalName
		item.IsShared = false
	}
	return item
}

// ApplyRenamed updates every occurrence of item and rewrites paths below
// its previous location.
func ApplyRenamed(s Surface, item types.Item, oldPath string) {
	for _, h := range s.FindItemsByUID(item.UID) {
		s.UpdateItem(h, item)
	}
	if oldPath != "" && paths.Normalize(oldPath) != paths.Normalize(item.Path) {
		s.Relocate(oldPath, item.Path)
		s.RetargetShortcuts(oldPath, item.Path)
	}
}

// ApplyUpdated refreshes every occurrence of item
func ApplyUpdated(s Surface, item types.Item, oldPath string) {
	ApplyRenamed(s, item, oldPath)
}

// ApplyRemoved removes the entry at path, or only its descendants
func ApplyRemoved(s Surface, path, uid string, descendantsOnly bool) {
	if descendantsOnly {
		for _, h := range s.FindItemsByPathPrefix(path) {
			if it, ok := s.Item(h); ok && !paths.Equal(it.Path, path) {
				s.RemoveItem(h)
			}
		}
		return
	}
	s.CloseWindowsUnderPath(path)
	for _, h := range s.FindItemsByPathPrefix(path) {
		s.RemoveItem(h)
	}
	if uid != "" {
		for _, h := range s.FindItemsByUID(uid) {
			s.RemoveItem(h)
		}
	}
}

// ApplyParentDirs renders directories created on the way to a destination
// into any open container of their parent that does not show them yet.
func ApplyParentDirs(s Surface, dirs []types.Item) {
	for _, d := range dirs {
		d.IsDir = true
		if len(s.FindItemsByUID(d.UID)) > 0 {
			continue
		}
		exists := false
		for _, h := range s.FindItemsByPathPrefix(d.Path) {
			if it, ok := s.Item(h); ok && paths.Equal(it.Path, d.Path) {
				exists = true
				break
			}
		}
		if !exists {
			s.RenderItem(d)
		}
	}
}

// ApplyOverwritten removes entries replaced by an overwrite
func ApplyOverwritten(s Surface, uid string) {
	if uid == "" {
		return
	}
	for _, h := range s.FindItemsByUID(uid) {
		s.RemoveItem(h)
	}
}
