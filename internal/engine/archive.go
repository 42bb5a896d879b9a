package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zip"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/desktop/internal/desktop"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/operation"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/remotefs"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/shared/types"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/undo"
)

// ArchiveName is the name of archives holding more than one item
const ArchiveName = "Archive"

// Zip archives items into a deduplicated .zip in dest. A single item is
// archived under its own name with its contents at the archive root;
// several items are each placed under their name.
func (e *Engine) Zip(ctx context.Context, items []types.Item, dest string) (*undo.Record, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	dest = paths.Normalize(dest)
	if err := e.writable(ctx, dest); err != nil {
		return nil, err
	}

	ctx, abort := context.WithCancel(ctx)
	defer abort()
	b := e.begin(types.OpZip, len(items), operation.Options{Abort: abort})

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, item := range items {
		if b.stop() {
			break
		}
		b.op.SetStatus("Zipping " + item.Path)

		var err error
		if item.IsDir {
			prefix := ""
			if len(items) > 1 {
				prefix = item.Name
				err = addDir(zw, prefix, item)
			}
			if err == nil {
				err = e.zipDir(ctx, zw, item.Path, prefix)
			}
		} else {
			err = e.zipFile(ctx, zw, item.Name, item)
		}
		if err != nil {
			if b.stop() {
				break
			}
			e.alert(ctx, err.Error())
			b.fail(fmt.Errorf("%s: %w", item.Path, err))
			continue
		}
		b.complete(item.UID)
	}
	if err := zw.Close(); err != nil {
		b.fail(err)
	}
	if b.cancelled || b.completed == 0 {
		return nil, b.finish()
	}

	name := ArchiveName
	if len(items) == 1 {
		name = items[0].Name
	}
	b.op.SetStatus("Saving " + name + ".zip")
	saved, err := e.fs.Write(ctx, remotefs.WriteRequest{
		Destination: dest,
		Name:        name + ".zip",
		Data:        buf.Bytes(),
		DedupeName:  true,
		Originator:  e.originator,
	})
	if err != nil {
		e.alert(ctx, err.Error())
		b.fail(err)
		return nil, b.finish()
	}
	desktop.ApplyAdded(e.surface, saved, "")
	return e.push(&undo.Record{Kind: undo.KindCreateFile, Created: &saved}), b.finish()
}

// zipDir adds the contents of dir below prefix
func (e *Engine) zipDir(ctx context.Context, zw *zip.Writer, dir, prefix string) error {
	entries, err := e.fs.Readdir(ctx, dir)
	if err != nil {
		return fmt.Errorf("read %s: %w", dir, err)
	}
	for _, entry := range entries {
		rel := entry.Name
		if prefix != "" {
			rel = prefix + "/" + entry.Name
		}
		if paths.MatchAny(e.exclude, rel) || paths.MatchAny(e.exclude, entry.Name) {
			continue
		}
		if entry.IsDir {
			if err := addDir(zw, rel, entry); err != nil {
				return err
			}
			if err := e.zipDir(ctx, zw, entry.Path, rel); err != nil {
				return err
			}
			continue
		}
		if err := e.zipFile(ctx, zw, rel, entry); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) zipFile(ctx context.Context, zw *zip.Writer, name string, item types.Item) error {
	data, err := e.fs.Read(ctx, item.Path)
	if err != nil {
		return fmt.Errorf("read %s: %w", item.Path, err)
	}
	hdr := &zip.FileHeader{Name: name, Method: zip.Deflate, Modified: item.ModifiedAt()}
	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func addDir(zw *zip.Writer, name string, item types.Item) error {
	_, err := zw.CreateHeader(&zip.FileHeader{Name: name + "/", Method: zip.Store, Modified: item.ModifiedAt()})
	return err
}

// Unzip expands an archive into a deduplicated sibling directory named
// after it. Entries escaping that directory are skipped.
func (e *Engine) Unzip(ctx context.Context, archive types.Item) (*undo.Record, error) {
	parent := paths.Dir(archive.Path)
	if err := e.writable(ctx, parent); err != nil {
		return nil, err
	}

	b := e.begin(types.OpUnzip, 1, operation.Options{Status: "Reading " + archive.Path})
	data, err := e.fs.Read(ctx, archive.Path)
	if err != nil {
		e.alert(ctx, err.Error())
		b.fail(err)
		return nil, b.finish()
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if zr != nil && err != nil {
		// insecure entry names; they are filtered below
		e.logger.Warn("archive has unsafe entries", zap.String("path", archive.Path), zap.Error(err))
	} else if err != nil {
		err = fmt.Errorf("%w: %s: %w", ErrInvalidArchive, archive.Name, err)
		e.alert(ctx, err.Error())
		b.fail(err)
		return nil, b.finish()
	}

	name := archive.Name
	if strings.EqualFold(paths.Ext(name), ".zip") {
		name = paths.TrimExt(name)
	}
	res, err := e.fs.Mkdir(ctx, remotefs.MkdirRequest{
		Parent:     parent,
		Name:       name,
		DedupeName: true,
		Originator: e.originator,
	})
	if err != nil {
		e.alert(ctx, err.Error())
		b.fail(err)
		return nil, b.finish()
	}
	root := res.Item
	desktop.ApplyAdded(e.surface, root, "")

	total := len(zr.File)
	for i, f := range zr.File {
		if b.stop() {
			break
		}
		target := paths.Join(root.Path, f.Name)
		if !paths.IsDescendant(target, root.Path) {
			e.logger.Warn("skipping archive entry outside destination", zap.String("entry", f.Name))
			continue
		}
		b.op.SetStatus("Extracting " + f.Name)
		if err := e.extract(ctx, f, target); err != nil {
			b.fail(fmt.Errorf("%s: %w", f.Name, err))
		}
		b.op.SetPercent((i + 1) * 100 / total)
	}
	if b.failed == 0 && !b.cancelled {
		b.complete(root.UID)
	}
	return e.push(&undo.Record{Kind: undo.KindCreateFolder, Created: &root}), b.finish()
}

func (e *Engine) extract(ctx context.Context, f *zip.File, target string) error {
	if f.FileInfo().IsDir() {
		_, err := e.fs.Mkdir(ctx, remotefs.MkdirRequest{
			Parent:               paths.Dir(target),
			Name:                 paths.Base(target),
			CreateMissingParents: true,
			Originator:           e.originator,
		})
		if remotefs.IsConflict(err) {
			return nil
		}
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return err
	}
	_, err = e.fs.Write(ctx, remotefs.WriteRequest{
		Destination:          paths.Dir(target),
		Name:                 paths.Base(target),
		Data:                 data,
		CreateMissingParents: true,
		Originator:           e.originator,
	})
	return err
}
