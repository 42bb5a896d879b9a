// Package remotefstest provides an in-memory implementation of the cloud
// filesystem contract for tests.
package remotefstest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/GriffinCanCode/AgentOS/desktop/internal/remotefs"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/shared/types"
	"github.com/gabriel-vasile/mimetype"
)

// Call is one recorded invocation
type Call struct {
	Verb   string
	Target string
}

type node struct {
	item types.Item
	data []byte
}

// FS is an in-memory cloud filesystem. It follows the server contract:
// same-name conflicts, overwrite, name dedupe, new_name on move, metadata
// replacement, missing parents and descendants-only deletes.
type FS struct {
	mu      sync.Mutex
	nodes   map[string]*node
	byPath  map[string]string
	seq     int
	now     func() time.Time
	calls   []Call
	fail    map[string][]error
	hook    func(verb string)
	user    remotefs.User
	suggest map[string][]string
}

var _ remotefs.FS = (*FS)(nil)

// New returns a filesystem with a home directory for username containing
// Desktop, Documents and Trash.
func New(username string) *FS {
	f := &FS{
		nodes:  make(map[string]*node),
		byPath: make(map[string]string),
		now:    time.Now,
		fail:   make(map[string][]error),
		user:   remotefs.User{Username: username, UUID: "user-" + username},
		suggest: map[string][]string{
			"txt":  {"editor"},
			"md":   {"editor"},
			"pdf":  {"pdf-viewer"},
			"png":  {"viewer"},
			"jpg":  {"viewer"},
			"zip":  {"archiver"},
			"html": {"editor", "browser"},
		},
	}
	f.insert(types.Item{Path: paths.Root, Name: "", IsDir: true, Immutable: true}, nil)
	home := paths.Home(username)
	f.insert(types.Item{Path: home, Name: username, IsDir: true, Immutable: true}, nil)
	for _, dir := range []string{"Desktop", "Documents", paths.DefaultTrashName} {
		f.insert(types.Item{Path: paths.Join(home, dir), Name: dir, IsDir: true, Immutable: true}, nil)
	}
	return f
}

// SetNow replaces the clock
func (f *FS) SetNow(now func() time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = now
}

// SetUser replaces the user returned by Whoami
func (f *FS) SetUser(u remotefs.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.user = u
}

// SetSuggestions sets the apps suggested for an extension
func (f *FS) SetSuggestions(ext string, apps []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.suggest[strings.ToLower(ext)] = apps
}

// OnCall registers a hook invoked before every verb. The hook runs without
// the filesystem lock held and may call back into the filesystem.
func (f *FS) OnCall(hook func(verb string)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hook = hook
}

// FailNext makes the next call of verb fail with err
func (f *FS) FailNext(verb string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[verb] = append(f.fail[verb], err)
}

// Calls returns the recorded calls
func (f *FS) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallCount returns how many times verb was called
func (f *FS) CallCount(verb string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Verb == verb {
			n++
		}
	}
	return n
}

// ResetCalls clears the call log
func (f *FS) ResetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

// AddDir creates a directory and its missing parents
func (f *FS) AddDir(p string) types.Item {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mkdirAll(paths.Normalize(p))
	return f.lookup(p).item.Clone()
}

// AddFile creates a file with content, creating missing parents
func (f *FS) AddFile(p string, data []byte) types.Item {
	f.mu.Lock()
	defer f.mu.Unlock()
	p = paths.Normalize(p)
	f.mkdirAll(paths.Dir(p))
	if existing := f.lookup(p); existing != nil {
		f.removeSubtree(existing.item.Path)
	}
	return f.insertFile(p, data).item.Clone()
}

// SetImmutable marks the entry at p immutable
func (f *FS) SetImmutable(p string, immutable bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n := f.lookup(p); n != nil {
		n.item.Immutable = immutable
	}
}

// SetMetadata replaces the metadata of the entry at p
func (f *FS) SetMetadata(p string, md json.RawMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n := f.lookup(p); n != nil {
		n.item.Metadata = normalizeMetadata(md)
	}
}

// Get returns the entry at p
func (f *FS) Get(p string) (types.Item, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.lookup(p)
	if n == nil {
		return types.Item{}, false
	}
	return n.item.Clone(), true
}

// GetUID returns the entry with uid
func (f *FS) GetUID(uid string) (types.Item, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.nodes[uid]
	if !ok {
		return types.Item{}, false
	}
	return n.item.Clone(), true
}

// Content returns the content of the file at p
func (f *FS) Content(p string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.lookup(p)
	if n == nil || n.item.IsDir {
		return nil, false
	}
	return append([]byte(nil), n.data...), true
}

// Exists reports whether an entry exists at p
func (f *FS) Exists(p string) bool {
	_, ok := f.Get(p)
	return ok
}

// Tree returns every path below root with file contents; directories map
// to nil. Paths are relative to root.
func (f *FS) Tree(root string) map[string][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string][]byte)
	for _, n := range f.nodes {
		rel, err := paths.Rel(n.item.Path, root)
		if err != nil {
			continue
		}
		if n.item.IsDir {
			out[rel] = nil
		} else {
			out[rel] = append([]byte{}, n.data...)
		}
	}
	return out
}

// enter records a call, runs the hook and pops an injected failure
func (f *FS) enter(ctx context.Context, verb, target string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	f.calls = append(f.calls, Call{Verb: verb, Target: target})
	hook := f.hook
	f.mu.Unlock()

	if hook != nil {
		hook(verb)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if queued := f.fail[verb]; len(queued) > 0 {
		f.fail[verb] = queued[1:]
		return queued[0]
	}
	return nil
}

// Stat returns the entry at path
func (f *FS) Stat(ctx context.Context, p string) (types.Item, error) {
	if err := f.enter(ctx, "stat", p); err != nil {
		return types.Item{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.resolve(p)
	if n == nil {
		return types.Item{}, notFound(p)
	}
	return n.item.Clone(), nil
}

// Readdir lists a directory sorted by name
func (f *FS) Readdir(ctx context.Context, p string) ([]types.Item, error) {
	if err := f.enter(ctx, "readdir", p); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.resolve(p)
	if n == nil {
		return nil, notFound(p)
	}
	if !n.item.IsDir {
		return nil, &remotefs.Error{Code: "not_a_directory", Message: p + " is not a directory", Status: 400}
	}
	return f.children(n.item.Path), nil
}

// Move moves an entry
func (f *FS) Move(ctx context.Context, req remotefs.MoveRequest) (remotefs.MoveResult, error) {
	if err := f.enter(ctx, "move", req.Source); err != nil {
		return remotefs.MoveResult{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	src := f.resolve(req.Source)
	if src == nil {
		return remotefs.MoveResult{}, notFound(req.Source)
	}
	if src.item.Immutable {
		return remotefs.MoveResult{}, immutable(src.item.Path)
	}

	destDir := paths.Normalize(req.Destination)
	var created []types.Item
	dest := f.lookup(destDir)
	if dest == nil {
		if !req.CreateMissingParents {
			return remotefs.MoveResult{}, notFound(destDir)
		}
		created = f.mkdirAll(destDir)
		dest = f.lookup(destDir)
	}
	if !dest.item.IsDir {
		return remotefs.MoveResult{}, &remotefs.Error{Code: "dest_is_not_a_directory", Message: destDir + " is not a directory", Status: 400}
	}
	if src.item.IsDir && paths.IsWithin(destDir, src.item.Path) {
		return remotefs.MoveResult{}, &remotefs.Error{Code: "cannot_move_item_into_itself", Message: "cannot move an item into itself", Status: 400}
	}

	name := req.NewName
	if name == "" {
		name = src.item.Name
	}
	target := paths.Join(destDir, name)

	var overwritten string
	if existing := f.lookup(target); existing != nil && existing.item.UID != src.item.UID {
		if !req.Overwrite {
			return remotefs.MoveResult{}, remotefs.NewConflict(name)
		}
		if existing.item.Immutable {
			return remotefs.MoveResult{}, immutable(existing.item.Path)
		}
		overwritten = existing.item.UID
		f.removeSubtree(existing.item.Path)
	}

	oldPath := src.item.Path
	f.relocate(src, target)
	if req.NewMetadata != nil {
		src.item.Metadata = normalizeMetadata(req.NewMetadata)
	}
	src.item.Modified = f.now().Unix()

	return remotefs.MoveResult{
		Moved:             src.item.Clone(),
		OldPath:           oldPath,
		Overwritten:       overwritten,
		ParentDirsCreated: created,
	}, nil
}

// Copy copies an entry
func (f *FS) Copy(ctx context.Context, req remotefs.CopyRequest) (remotefs.CopyResult, error) {
	if err := f.enter(ctx, "copy", req.Source); err != nil {
		return remotefs.CopyResult{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	src := f.resolve(req.Source)
	if src == nil {
		return remotefs.CopyResult{}, notFound(req.Source)
	}
	destDir := paths.Normalize(req.Destination)
	dest := f.lookup(destDir)
	if dest == nil || !dest.item.IsDir {
		return remotefs.CopyResult{}, notFound(destDir)
	}
	if src.item.IsDir && paths.IsDescendant(destDir, src.item.Path) {
		return remotefs.CopyResult{}, &remotefs.Error{Code: "cannot_copy_item_into_itself", Message: "cannot copy an item into itself", Status: 400}
	}

	name := req.NewName
	if name == "" {
		name = src.item.Name
	}

	var overwritten string
	if existing := f.lookup(paths.Join(destDir, name)); existing != nil {
		switch {
		case req.DedupeName:
			name = f.dedupe(destDir, name)
		case req.Overwrite:
			if existing.item.Immutable {
				return remotefs.CopyResult{}, immutable(existing.item.Path)
			}
			overwritten = existing.item.UID
			f.removeSubtree(existing.item.Path)
		default:
			return remotefs.CopyResult{}, remotefs.NewConflict(name)
		}
	}

	copied := f.copySubtree(src, paths.Join(destDir, name))
	return remotefs.CopyResult{Copied: copied.item.Clone(), Overwritten: overwritten}, nil
}

// Delete removes entries
func (f *FS) Delete(ctx context.Context, req remotefs.DeleteRequest) error {
	if err := f.enter(ctx, "delete", strings.Join(req.Paths, ",")); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, p := range req.Paths {
		n := f.resolve(p)
		if n == nil {
			return notFound(p)
		}
		if req.DescendantsOnly {
			for _, child := range f.children(n.item.Path) {
				f.removeSubtree(child.Path)
			}
			continue
		}
		if n.item.Immutable {
			return immutable(n.item.Path)
		}
		f.removeSubtree(n.item.Path)
	}
	return nil
}

// Rename renames an entry in place
func (f *FS) Rename(ctx context.Context, req remotefs.RenameRequest) (types.Item, error) {
	if err := f.enter(ctx, "rename", req.UID); err != nil {
		return types.Item{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	n, ok := f.nodes[req.UID]
	if !ok {
		return types.Item{}, notFound(req.UID)
	}
	if n.item.Immutable {
		return types.Item{}, immutable(n.item.Path)
	}
	if err := paths.ValidateName(req.NewName, 0); err != nil {
		return types.Item{}, &remotefs.Error{Code: "invalid_file_name", Message: err.Error(), Status: 400}
	}

	target := paths.Join(paths.Dir(n.item.Path), req.NewName)
	if existing := f.lookup(target); existing != nil && existing.item.UID != n.item.UID {
		return types.Item{}, remotefs.NewConflict(req.NewName)
	}
	f.relocate(n, target)
	n.item.Modified = f.now().Unix()
	return n.item.Clone(), nil
}

// Mkdir creates a directory
func (f *FS) Mkdir(ctx context.Context, req remotefs.MkdirRequest) (remotefs.MkdirResult, error) {
	target := paths.Join(req.Parent, req.Name)
	if err := f.enter(ctx, "mkdir", target); err != nil {
		return remotefs.MkdirResult{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	parent := paths.Dir(target)
	var created []types.Item
	if f.lookup(parent) == nil {
		if !req.CreateMissingParents {
			return remotefs.MkdirResult{}, notFound(parent)
		}
		created = f.mkdirAll(parent)
	}

	name := paths.Base(target)
	if existing := f.lookup(target); existing != nil {
		switch {
		case req.DedupeName:
			name = f.dedupe(parent, name)
		case req.Overwrite:
			if existing.item.Immutable {
				return remotefs.MkdirResult{}, immutable(target)
			}
			f.removeSubtree(existing.item.Path)
		default:
			return remotefs.MkdirResult{}, remotefs.NewConflict(name)
		}
	}

	item := types.Item{Path: paths.Join(parent, name), Name: name, IsDir: true}
	if req.ShortcutTo != "" {
		if err := f.shortcut(&item, req.ShortcutTo); err != nil {
			return remotefs.MkdirResult{}, err
		}
	}
	n := f.insert(item, nil)
	return remotefs.MkdirResult{Item: n.item.Clone(), ParentDirsCreated: created}, nil
}

// Upload writes files, creating directories named in their relative paths
func (f *FS) Upload(ctx context.Context, req remotefs.UploadRequest, progress remotefs.ProgressFunc) ([]remotefs.UploadedItem, error) {
	if err := f.enter(ctx, "upload", req.Destination); err != nil {
		return nil, err
	}

	contents := make([][]byte, len(req.Files))
	for i, file := range req.Files {
		rc, err := file.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return nil, err
		}
		contents[i] = data
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	dest := paths.Normalize(req.Destination)
	var destCreated []types.Item
	if f.lookup(dest) == nil {
		if !req.CreateMissingParents {
			return nil, notFound(dest)
		}
		destCreated = f.mkdirAll(dest)
	}

	items := make([]remotefs.UploadedItem, 0, len(req.Files))
	for i, file := range req.Files {
		target := paths.Join(dest, file.RelPath)
		created := append(destCreated, f.mkdirAll(paths.Dir(target))...)
		destCreated = nil
		n, err := f.writeLocked(target, contents[i], req.Overwrite, req.DedupeName, "")
		if err != nil {
			return items, err
		}
		items = append(items, remotefs.UploadedItem{Item: n.item.Clone(), ParentDirsCreated: created})
		if progress != nil {
			progress((i + 1) * 100 / len(req.Files))
		}
	}
	return items, nil
}

// Read returns file content
func (f *FS) Read(ctx context.Context, p string) ([]byte, error) {
	if err := f.enter(ctx, "read", p); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.resolve(p)
	if n == nil {
		return nil, notFound(p)
	}
	if n.item.IsDir {
		return nil, &remotefs.Error{Code: "is_a_directory", Message: p + " is a directory", Status: 400}
	}
	return append([]byte(nil), n.data...), nil
}

// Write writes a single file
func (f *FS) Write(ctx context.Context, req remotefs.WriteRequest) (types.Item, error) {
	target := paths.Join(req.Destination, req.Name)
	if err := f.enter(ctx, "write", target); err != nil {
		return types.Item{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.lookup(paths.Dir(target)) == nil {
		if !req.CreateMissingParents {
			return types.Item{}, notFound(paths.Dir(target))
		}
		f.mkdirAll(paths.Dir(target))
	}
	n, err := f.writeLocked(target, req.Data, req.Overwrite, req.DedupeName, req.ShortcutTo)
	if err != nil {
		return types.Item{}, err
	}
	return n.item.Clone(), nil
}

// Sign returns fake signed URLs
func (f *FS) Sign(ctx context.Context, items []remotefs.SignItem) ([]remotefs.Signature, error) {
	if err := f.enter(ctx, "sign", ""); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	expires := f.now().Add(time.Hour).Unix()
	out := make([]remotefs.Signature, 0, len(items))
	for _, it := range items {
		n, ok := f.nodes[it.UID]
		if !ok {
			return nil, notFound(it.UID)
		}
		sig := remotefs.Signature{UID: it.UID, Path: n.item.Path, Expires: expires}
		sig.ReadURL = "memfs://read/" + it.UID
		if it.Action == "write" {
			sig.WriteURL = "memfs://write/" + it.UID
		}
		out = append(out, sig)
	}
	return out, nil
}

// SuggestApps returns apps registered for the entry's extension
func (f *FS) SuggestApps(ctx context.Context, uid string) ([]string, error) {
	if err := f.enter(ctx, "suggest_apps", uid); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.nodes[uid]
	if !ok {
		return nil, notFound(uid)
	}
	return append([]string(nil), f.suggest[n.item.Extension()]...), nil
}

// Whoami returns the configured user
func (f *FS) Whoami(ctx context.Context) (remotefs.User, error) {
	if err := f.enter(ctx, "whoami", ""); err != nil {
		return remotefs.User{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.user, nil
}

// lookup finds a node by path. Callers hold the lock.
func (f *FS) lookup(p string) *node {
	uid, ok := f.byPath[strings.ToLower(paths.Normalize(p))]
	if !ok {
		return nil
	}
	return f.nodes[uid]
}

// resolve accepts an absolute path or a uid
func (f *FS) resolve(ref string) *node {
	if strings.HasPrefix(ref, paths.Separator) {
		return f.lookup(ref)
	}
	return f.nodes[ref]
}

func (f *FS) insert(item types.Item, data []byte) *node {
	f.seq++
	if item.UID == "" {
		item.UID = fmt.Sprintf("uid-%d", f.seq)
	}
	item.Path = paths.Normalize(item.Path)
	if item.Modified == 0 {
		item.Modified = f.now().Unix()
	}
	n := &node{item: item, data: data}
	f.nodes[item.UID] = n
	f.byPath[strings.ToLower(item.Path)] = item.UID
	return n
}

func (f *FS) insertFile(p string, data []byte) *node {
	return f.insert(types.Item{
		Path: p,
		Name: paths.Base(p),
		Size: int64(len(data)),
		Type: mimetype.Detect(data).String(),
	}, append([]byte(nil), data...))
}

// writeLocked creates a file at target applying conflict rules
func (f *FS) writeLocked(target string, data []byte, overwrite, dedupe bool, shortcutTo string) (*node, error) {
	parent := paths.Dir(target)
	f.mkdirAll(parent)

	name := paths.Base(target)
	if existing := f.lookup(target); existing != nil {
		switch {
		case dedupe:
			name = f.dedupe(parent, name)
		case overwrite:
			if existing.item.Immutable || existing.item.IsDir {
				return nil, immutable(existing.item.Path)
			}
			f.removeSubtree(existing.item.Path)
		default:
			return nil, remotefs.NewConflict(name)
		}
	}

	n := f.insertFile(paths.Join(parent, name), data)
	if shortcutTo != "" {
		if err := f.shortcut(&n.item, shortcutTo); err != nil {
			f.removeSubtree(n.item.Path)
			return nil, err
		}
	}
	return n, nil
}

func (f *FS) shortcut(item *types.Item, targetUID string) error {
	target, ok := f.nodes[targetUID]
	if !ok {
		return notFound(targetUID)
	}
	item.IsShortcut = true
	item.ShortcutTargetUID = targetUID
	item.ShortcutTargetPath = target.item.Path
	return nil
}

// mkdirAll creates p and its missing parents, returning created entries
func (f *FS) mkdirAll(p string) []types.Item {
	p = paths.Normalize(p)
	if f.lookup(p) != nil {
		return nil
	}
	created := f.mkdirAll(paths.Dir(p))
	n := f.insert(types.Item{Path: p, Name: paths.Base(p), IsDir: true}, nil)
	return append(created, n.item.Clone())
}

// relocate moves n and its descendants to target
func (f *FS) relocate(n *node, target string) {
	oldPath := n.item.Path
	target = paths.Normalize(target)
	for _, other := range f.nodes {
		if other != n && !paths.IsDescendant(other.item.Path, oldPath) {
			continue
		}
		delete(f.byPath, strings.ToLower(other.item.Path))
		other.item.Path = paths.Rebase(other.item.Path, oldPath, target)
		f.byPath[strings.ToLower(other.item.Path)] = other.item.UID
	}
	n.item.Name = paths.Base(target)
	f.refreshShortcuts()
}

func (f *FS) refreshShortcuts() {
	for _, n := range f.nodes {
		if !n.item.IsShortcut {
			continue
		}
		if target, ok := f.nodes[n.item.ShortcutTargetUID]; ok {
			n.item.ShortcutTargetPath = target.item.Path
		}
	}
}

func (f *FS) removeSubtree(root string) {
	for uid, n := range f.nodes {
		if paths.IsWithin(n.item.Path, root) {
			delete(f.nodes, uid)
			delete(f.byPath, strings.ToLower(n.item.Path))
		}
	}
}

func (f *FS) copySubtree(src *node, target string) *node {
	root := src.item.Path
	var subtree []*node
	for _, n := range f.nodes {
		if paths.IsDescendant(n.item.Path, root) {
			subtree = append(subtree, n)
		}
	}
	sort.Slice(subtree, func(i, j int) bool { return len(subtree[i].item.Path) < len(subtree[j].item.Path) })

	cp := func(n *node, p string) *node {
		item := n.item.Clone()
		item.UID = ""
		item.Path = p
		item.Name = paths.Base(p)
		item.Immutable = false
		item.Modified = 0
		return f.insert(item, append([]byte(nil), n.data...))
	}

	top := cp(src, target)
	for _, n := range subtree {
		cp(n, paths.Rebase(n.item.Path, root, target))
	}
	return top
}

func (f *FS) children(dir string) []types.Item {
	var out []types.Item
	for _, n := range f.nodes {
		if n.item.Path != paths.Root && paths.Equal(paths.Dir(n.item.Path), dir) && !paths.Equal(n.item.Path, dir) {
			out = append(out, n.item.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name) })
	return out
}

// dedupe returns "name (n).ext" for the first free n
func (f *FS) dedupe(dir, name string) string {
	ext := paths.Ext(name)
	base := paths.TrimExt(name)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, i, ext)
		if f.lookup(paths.Join(dir, candidate)) == nil {
			return candidate
		}
	}
}

func normalizeMetadata(md json.RawMessage) json.RawMessage {
	trimmed := strings.TrimSpace(string(md))
	if trimmed == "" || trimmed == "null" || trimmed == "{}" {
		return nil
	}
	return append(json.RawMessage(nil), md...)
}

func notFound(ref string) error {
	return &remotefs.Error{Code: remotefs.CodeNotFound, Message: ref + " does not exist", Status: 404}
}

func immutable(p string) error {
	return &remotefs.Error{Code: remotefs.CodeImmutable, Message: p + " is immutable", Status: 403}
}
