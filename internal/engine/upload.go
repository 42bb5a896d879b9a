package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/charlievieth/fastwalk"

	"github.com/GriffinCanCode/AgentOS/desktop/internal/desktop"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/operation"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/remotefs"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/shared/types"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/undo"
)

// Upload sends files into dest. Directories named in relative paths are
// created on the way. The upload can be aborted through the tracker.
func (e *Engine) Upload(ctx context.Context, dest string, files []remotefs.UploadFile) (*undo.Record, error) {
	if len(files) == 0 {
		return nil, ErrNoItems
	}
	dest = paths.Normalize(dest)
	if paths.IsWithin(dest, e.trash) {
		e.alert(ctx, "Uploading to trash is not allowed!")
		return nil, fmt.Errorf("%w: %s is inside the Trash", ErrInvalidDestination, dest)
	}

	ctx, abort := context.WithCancel(ctx)
	defer abort()
	b := e.begin(types.OpUpload, len(files), operation.Options{Abort: abort, Status: "Preparing upload"})

	req := remotefs.UploadRequest{
		Destination:          dest,
		Files:                files,
		CreateMissingParents: true,
		Originator:           e.originator,
	}
	var uploaded []remotefs.UploadedItem
	b.op.SetStatus("Uploading")
	ok := b.resolve(ctx, dest, func(ctx context.Context, overwrite bool) error {
		req.Overwrite = overwrite
		var err error
		uploaded, err = e.fs.Upload(ctx, req, b.op.SetPercent)
		return err
	})
	b.stop()
	if !ok {
		return nil, b.finish()
	}

	created := make([]string, 0, len(uploaded))
	var dirs []string
	for _, item := range uploaded {
		desktop.ApplyParentDirs(e.surface, item.ParentDirsCreated)
		desktop.ApplyAdded(e.surface, item.Item, "")
		created = append(created, item.Path)
		dirs = appendRoots(dirs, item.ParentDirsCreated)
	}
	// files first; removing a created directory takes anything left in it
	created = append(created, dirs...)
	err := b.finish()
	if len(created) == 0 {
		return nil, err
	}
	return e.push(&undo.Record{Kind: undo.KindUpload, Paths: created}), err
}

// appendRoots adds the created directories not already covered by roots
func appendRoots(roots []string, created []types.Item) []string {
	for _, d := range created {
		covered := false
		for _, r := range roots {
			if paths.IsWithin(d.Path, r) {
				covered = true
				break
			}
		}
		if !covered {
			roots = append(roots, d.Path)
		}
	}
	return roots
}

// CollectLocalFiles walks a local directory and returns its regular files
// as upload entries rooted at the directory name. A file path yields a
// single entry.
func CollectLocalFiles(root string) ([]remotefs.UploadFile, error) {
	root = filepath.Clean(root)
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("collect %s: %w", root, err)
	}
	if !info.IsDir() {
		return []remotefs.UploadFile{localFile(root, filepath.Base(root), info.Size())}, nil
	}

	var (
		mu    sync.Mutex
		files []remotefs.UploadFile
	)
	base := filepath.Base(root)
	conf := fastwalk.Config{Follow: false}
	err = fastwalk.Walk(&conf, root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		mu.Lock()
		files = append(files, localFile(p, filepath.ToSlash(filepath.Join(base, rel)), fi.Size()))
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("collect %s: %w", root, err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, nil
}

func localFile(path, rel string, size int64) remotefs.UploadFile {
	return remotefs.UploadFile{
		RelPath: rel,
		Size:    size,
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}
}
