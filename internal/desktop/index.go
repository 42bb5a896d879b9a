package desktop

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/GriffinCanCode/AgentOS/desktop/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/shared/types"
)

type entry struct {
	handle    Handle
	container string
	item      types.Item
	hidden    bool
}

type pathRef struct {
	key    string
	handle Handle
}

type container struct {
	Container
	order []Handle
}

// Index is the in-memory Surface maintained on behalf of the renderer
type Index struct {
	mu         sync.RWMutex
	next       Handle
	seq        int
	entries    map[Handle]*entry
	byUID      map[string][]Handle
	byPath     []pathRef
	containers map[string]*container
	windows    map[string]*Window
	trashPath  string
	trashFull  bool
	icon       IconFunc
}

var _ Surface = (*Index)(nil)

// NewIndex creates an empty index. trashPath identifies the Trash entry,
// whose icon follows SetTrashFull. icon may be nil.
func NewIndex(trashPath string, icon IconFunc) *Index {
	if icon == nil {
		icon = DefaultIcon
	}
	return &Index{
		entries:    make(map[Handle]*entry),
		byUID:      make(map[string][]Handle),
		containers: make(map[string]*container),
		windows:    make(map[string]*Window),
		trashPath:  paths.Normalize(trashPath),
		icon:       icon,
	}
}

// DefaultIcon picks an icon name from the item kind and extension
func DefaultIcon(item types.Item, trashFull bool) string {
	switch {
	case item.IsShortcut:
		return "shortcut.svg"
	case item.IsDir && strings.EqualFold(item.Name, paths.DefaultTrashName) && item.Immutable:
		if trashFull {
			return "trash-full.svg"
		}
		return "trash.svg"
	case item.IsDir:
		return "folder.svg"
	case item.Extension() != "":
		return "file-" + item.Extension() + ".svg"
	}
	return "file.svg"
}

// OpenContainer registers a directory listing and returns its id
func (x *Index) OpenContainer(path string, by SortBy, order SortOrder) Container {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.seq++
	c := &container{Container: Container{
		ID:        fmt.Sprintf("c%d", x.seq),
		Path:      paths.Normalize(path),
		SortBy:    by,
		SortOrder: order,
	}}
	x.containers[c.ID] = c
	return c.Container
}

// CloseContainer removes a listing and its items
func (x *Index) CloseContainer(id string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.closeContainerLocked(id)
}

// Populate replaces the items of a container
func (x *Index) Populate(id string, items []types.Item) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	c, ok := x.containers[id]
	if !ok {
		return fmt.Errorf("container %s is not open", id)
	}
	for _, h := range append([]Handle(nil), c.order...) {
		x.removeLocked(h)
	}
	for _, item := range items {
		x.addLocked(c, item)
	}
	x.resortLocked(c)
	return nil
}

// SetSort changes the sort of a container and re-sorts it
func (x *Index) SetSort(id string, by SortBy, order SortOrder) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	c, ok := x.containers[id]
	if !ok {
		return fmt.Errorf("container %s is not open", id)
	}
	c.SortBy, c.SortOrder = by, order
	x.resortLocked(c)
	return nil
}

// Containers returns the open containers
func (x *Index) Containers() []Container {
	x.mu.RLock()
	defer x.mu.RUnlock()

	out := make([]Container, 0, len(x.containers))
	for _, c := range x.containers {
		out = append(out, c.Container)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ContainersAt returns the containers listing dir
func (x *Index) ContainersAt(dir string) []Container {
	x.mu.RLock()
	defer x.mu.RUnlock()

	var out []Container
	for _, c := range x.containers {
		if paths.Equal(c.Path, dir) {
			out = append(out, c.Container)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Entries returns a container's entries in display order
func (x *Index) Entries(id string) []Entry {
	x.mu.RLock()
	defer x.mu.RUnlock()

	c, ok := x.containers[id]
	if !ok {
		return nil
	}
	out := make([]Entry, 0, len(c.order))
	for _, h := range c.order {
		e := x.entries[h]
		out = append(out, Entry{Handle: h, Container: id, Item: e.item.Clone(), Hidden: e.hidden})
	}
	return out
}

// Items returns the visible items of a container in display order
func (x *Index) Items(id string) []types.Item {
	var out []types.Item
	for _, e := range x.Entries(id) {
		if !e.Hidden {
			out = append(out, e.Item)
		}
	}
	return out
}

// RenderItem implements Surface
func (x *Index) RenderItem(item types.Item) []Handle {
	x.mu.Lock()
	defer x.mu.Unlock()

	item.Path = paths.Normalize(item.Path)
	dir := paths.Dir(item.Path)
	var out []Handle
	for _, c := range x.containers {
		if !paths.Equal(c.Path, dir) {
			continue
		}
		if h, ok := x.inContainerLocked(c.ID, item.UID); ok {
			x.updateLocked(h, item)
			out = append(out, h)
			continue
		}
		out = append(out, x.addLocked(c, item))
		x.resortLocked(c)
	}
	return out
}

// FindItemsByUID implements Surface
func (x *Index) FindItemsByUID(uid string) []Handle {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return append([]Handle(nil), x.byUID[uid]...)
}

// FindItemsByPathPrefix implements Surface
func (x *Index) FindItemsByPathPrefix(prefix string) []Handle {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.prefixLocked(prefix)
}

// Item implements Surface
func (x *Index) Item(h Handle) (types.Item, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	e, ok := x.entries[h]
	if !ok {
		return types.Item{}, false
	}
	return e.item.Clone(), true
}

// UpdateItem implements Surface
func (x *Index) UpdateItem(h Handle, item types.Item) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.updateLocked(h, item)
}

// RemoveItem implements Surface
func (x *Index) RemoveItem(h Handle) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.removeLocked(h)
}

// SetHidden implements Surface
func (x *Index) SetHidden(h Handle, hidden bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if e, ok := x.entries[h]; ok {
		e.hidden = hidden
	}
}

// Relocate implements Surface
func (x *Index) Relocate(oldRoot, newRoot string) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if paths.Normalize(oldRoot) == paths.Normalize(newRoot) {
		return
	}
	touched := make(map[string]*container)
	for _, h := range x.prefixLocked(oldRoot) {
		e := x.entries[h]
		item := e.item
		item.Path = paths.Rebase(item.Path, oldRoot, newRoot)
		if paths.Equal(e.item.Path, oldRoot) {
			item.Name = paths.Base(newRoot)
		}
		x.setItemLocked(e, item)
		touched[e.container] = x.containers[e.container]
	}
	for _, c := range x.containers {
		if paths.IsWithin(c.Path, oldRoot) {
			c.Path = paths.Rebase(c.Path, oldRoot, newRoot)
		}
	}
	for _, w := range x.windows {
		if paths.IsWithin(w.Path, oldRoot) {
			x.retitleLocked(w, paths.Rebase(w.Path, oldRoot, newRoot))
		}
	}
	for _, c := range touched {
		if c != nil {
			x.resortLocked(c)
		}
	}
}

// RetargetShortcuts implements Surface
func (x *Index) RetargetShortcuts(oldRoot, newRoot string) {
	x.mu.Lock()
	defer x.mu.Unlock()

	for _, e := range x.entries {
		if e.item.IsShortcut && e.item.ShortcutTargetPath != "" && paths.IsWithin(e.item.ShortcutTargetPath, oldRoot) {
			e.item.ShortcutTargetPath = paths.Rebase(e.item.ShortcutTargetPath, oldRoot, newRoot)
		}
	}
}

// OpenWindow registers a window rooted at path. A non-empty containerID
// links the window to the listing it displays.
func (x *Index) OpenWindow(path, uid, containerID string) Window {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.seq++
	w := &Window{
		ID:          fmt.Sprintf("w%d", x.seq),
		Path:        paths.Normalize(path),
		UID:         uid,
		Title:       paths.Base(path),
		ContainerID: containerID,
	}
	x.windows[w.ID] = w
	return *w
}

// Windows returns the open windows
func (x *Index) Windows() []Window {
	x.mu.RLock()
	defer x.mu.RUnlock()

	out := make([]Window, 0, len(x.windows))
	for _, w := range x.windows {
		out = append(out, *w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CloseWindowsUnderPath implements Surface
func (x *Index) CloseWindowsUnderPath(path string) []Window {
	x.mu.Lock()
	defer x.mu.Unlock()

	var closed []Window
	for id, w := range x.windows {
		if !paths.IsWithin(w.Path, path) {
			continue
		}
		closed = append(closed, *w)
		delete(x.windows, id)
		if w.ContainerID != "" {
			x.closeContainerLocked(w.ContainerID)
		}
	}
	sort.Slice(closed, func(i, j int) bool { return closed[i].ID < closed[j].ID })
	return closed
}

// UpdateWindowPath implements Surface
func (x *Index) UpdateWindowPath(id, newPath string) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if w, ok := x.windows[id]; ok {
		x.retitleLocked(w, newPath)
		if c, ok := x.containers[w.ContainerID]; ok {
			c.Path = paths.Normalize(newPath)
		}
	}
}

// SetTrashFull implements Surface
func (x *Index) SetTrashFull(full bool) {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.trashFull = full
	for _, h := range x.prefixExactLocked(x.trashPath) {
		e := x.entries[h]
		e.item.Icon = x.icon(e.item, full)
	}
}

// TrashFull reports the trash affordance state
func (x *Index) TrashFull() bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.trashFull
}

func (x *Index) retitleLocked(w *Window, newPath string) {
	w.Path = paths.Normalize(newPath)
	w.Title = paths.Base(newPath)
}

func (x *Index) addLocked(c *container, item types.Item) Handle {
	x.next++
	h := x.next
	item = item.Clone()
	item.Path = paths.Normalize(item.Path)
	item = trashView(item, x.trashPath)
	item.Icon = x.icon(item, x.trashFull && paths.Equal(item.Path, x.trashPath))
	e := &entry{handle: h, container: c.ID, item: item}
	x.entries[h] = e
	x.byUID[item.UID] = append(x.byUID[item.UID], h)
	x.insertPathLocked(item.Path, h)
	c.order = append(c.order, h)
	return h
}

func (x *Index) updateLocked(h Handle, item types.Item) {
	e, ok := x.entries[h]
	if !ok {
		return
	}
	x.setItemLocked(e, item.Clone())
	if c, ok := x.containers[e.container]; ok {
		x.resortLocked(c)
	}
}

// setItemLocked replaces an entry's item, keeping both indexes in sync
func (x *Index) setItemLocked(e *entry, item types.Item) {
	item.Path = paths.Normalize(item.Path)
	item = trashView(item, x.trashPath)
	if item.UID != e.item.UID {
		x.byUID[e.item.UID] = without(x.byUID[e.item.UID], e.handle)
		if len(x.byUID[e.item.UID]) == 0 {
			delete(x.byUID, e.item.UID)
		}
		x.byUID[item.UID] = append(x.byUID[item.UID], e.handle)
	}
	if item.Path != e.item.Path {
		x.removePathLocked(e.item.Path, e.handle)
		x.insertPathLocked(item.Path, e.handle)
	}
	item.Icon = x.icon(item, x.trashFull && paths.Equal(item.Path, x.trashPath))
	e.item = item
}

func (x *Index) removeLocked(h Handle) {
	e, ok := x.entries[h]
	if !ok {
		return
	}
	delete(x.entries, h)
	x.byUID[e.item.UID] = without(x.byUID[e.item.UID], h)
	if len(x.byUID[e.item.UID]) == 0 {
		delete(x.byUID, e.item.UID)
	}
	x.removePathLocked(e.item.Path, h)
	if c, ok := x.containers[e.container]; ok {
		c.order = without(c.order, h)
	}
}

func (x *Index) closeContainerLocked(id string) {
	c, ok := x.containers[id]
	if !ok {
		return
	}
	for _, h := range append([]Handle(nil), c.order...) {
		x.removeLocked(h)
	}
	delete(x.containers, id)
}

func (x *Index) inContainerLocked(containerID, uid string) (Handle, bool) {
	for _, h := range x.byUID[uid] {
		if x.entries[h].container == containerID {
			return h, true
		}
	}
	return 0, false
}

func (x *Index) resortLocked(c *container) {
	sort.SliceStable(c.order, func(i, j int) bool {
		return Less(x.entries[c.order[i]].item, x.entries[c.order[j]].item, c.SortBy, c.SortOrder)
	})
}

func pathKey(p string) string {
	return strings.ToLower(paths.Normalize(p))
}

func (x *Index) insertPathLocked(p string, h Handle) {
	ref := pathRef{key: pathKey(p), handle: h}
	i := sort.Search(len(x.byPath), func(i int) bool {
		r := x.byPath[i]
		return r.key > ref.key || (r.key == ref.key && r.handle >= ref.handle)
	})
	x.byPath = append(x.byPath, pathRef{})
	copy(x.byPath[i+1:], x.byPath[i:])
	x.byPath[i] = ref
}

func (x *Index) removePathLocked(p string, h Handle) {
	key := pathKey(p)
	i := sort.Search(len(x.byPath), func(i int) bool { return x.byPath[i].key >= key })
	for ; i < len(x.byPath) && x.byPath[i].key == key; i++ {
		if x.byPath[i].handle == h {
			x.byPath = append(x.byPath[:i], x.byPath[i+1:]...)
			return
		}
	}
}

// prefixLocked returns handles at or below prefix
func (x *Index) prefixLocked(prefix string) []Handle {
	key := pathKey(prefix)
	var out []Handle
	i := sort.Search(len(x.byPath), func(i int) bool { return x.byPath[i].key >= key })
	for ; i < len(x.byPath) && strings.HasPrefix(x.byPath[i].key, key); i++ {
		k := x.byPath[i].key
		if len(k) == len(key) || key == paths.Root || k[len(key)] == '/' {
			out = append(out, x.byPath[i].handle)
		}
	}
	return out
}

func (x *Index) prefixExactLocked(p string) []Handle {
	key := pathKey(p)
	var out []Handle
	i := sort.Search(len(x.byPath), func(i int) bool { return x.byPath[i].key >= key })
	for ; i < len(x.byPath) && x.byPath[i].key == key; i++ {
		out = append(out, x.byPath[i].handle)
	}
	return out
}

func without(hs []Handle, h Handle) []Handle {
	for i, v := range hs {
		if v == h {
			return append(hs[:i:i], hs[i+1:]...)
		}
	}
	return hs
}
