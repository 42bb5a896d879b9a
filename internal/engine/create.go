package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/desktop/internal/desktop"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/operation"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/remotefs"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/shared/types"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/undo"
)

// Default names of new entries
const (
	NewFolderName = "New Folder"
	NewFileName   = "New File.txt"
)

// Rename renames a single item. Conflicts are reported directly without
// a prompt. A changed extension refreshes the suggested apps.
func (e *Engine) Rename(ctx context.Context, item types.Item, newName string) (*undo.Record, error) {
	rec, err := e.rename(ctx, item, newName)
	return e.push(rec), err
}

func (e *Engine) rename(ctx context.Context, item types.Item, newName string) (*undo.Record, error) {
	if item.Immutable {
		return nil, ErrImmutable
	}
	if err := paths.ValidateName(newName, e.maxName); err != nil {
		e.alert(ctx, err.Error())
		return nil, err
	}
	if newName == item.Name {
		return nil, nil
	}

	op := e.tracker.Begin(types.OpRename, operation.Options{})
	defer op.Finish()

	renamed, err := e.fs.Rename(ctx, remotefs.RenameRequest{
		UID:        item.UID,
		NewName:    newName,
		Originator: e.originator,
	})
	if err != nil {
		e.alert(ctx, err.Error())
		e.metrics.RecordOperation(string(types.OpRename), "failed", time.Since(op.Started))
		if remotefs.IsConflict(err) {
			return nil, fmt.Errorf("%w: %w", ErrConflict, err)
		}
		return nil, fmt.Errorf("rename %s: %w", item.Path, err)
	}
	if renamed.Path == "" {
		renamed.Path = paths.Join(paths.Dir(item.Path), newName)
	}

	if !strings.EqualFold(paths.Ext(item.Name), paths.Ext(newName)) {
		if apps, err := e.fs.SuggestApps(ctx, item.UID); err != nil {
			e.logger.Warn("failed to refresh suggested apps", zap.String("uid", item.UID), zap.Error(err))
		} else {
			renamed.SuggestedApps = apps
		}
	}
	desktop.ApplyRenamed(e.surface, renamed, item.Path)
	e.metrics.RecordOperation(string(types.OpRename), "completed", time.Since(op.Started))

	return &undo.Record{Kind: undo.KindRename, Rename: &undo.Rename{
		UID:     item.UID,
		OldName: item.Name,
		NewName: renamed.Name,
		OldPath: item.Path,
	}}, nil
}

// NewFolder creates a deduplicated "New Folder" in parent
func (e *Engine) NewFolder(ctx context.Context, parent string) (*undo.Record, error) {
	if err := e.writable(ctx, parent); err != nil {
		return nil, err
	}
	b := e.begin(types.OpNewFolder, 1, operation.Options{})
	res, err := e.fs.Mkdir(ctx, remotefs.MkdirRequest{
		Parent:     paths.Normalize(parent),
		Name:       NewFolderName,
		DedupeName: true,
		Originator: e.originator,
	})
	if err != nil {
		e.alert(ctx, err.Error())
		b.fail(err)
		return nil, b.finish()
	}
	desktop.ApplyParentDirs(e.surface, res.ParentDirsCreated)
	desktop.ApplyAdded(e.surface, res.Item, "")
	b.complete(res.Item.UID)

	created := res.Item
	return e.push(&undo.Record{Kind: undo.KindCreateFolder, Created: &created}), b.finish()
}

// NewFile creates a deduplicated file in parent
func (e *Engine) NewFile(ctx context.Context, parent, name string, content []byte) (*undo.Record, error) {
	if name == "" {
		name = NewFileName
	}
	if err := paths.ValidateName(name, e.maxName); err != nil {
		e.alert(ctx, err.Error())
		return nil, err
	}
	if err := e.writable(ctx, parent); err != nil {
		return nil, err
	}

	b := e.begin(types.OpNewFile, 1, operation.Options{})
	item, err := e.fs.Write(ctx, remotefs.WriteRequest{
		Destination: paths.Normalize(parent),
		Name:        name,
		Data:        content,
		DedupeName:  true,
		Originator:  e.originator,
	})
	if err != nil {
		e.alert(ctx, err.Error())
		b.fail(err)
		return nil, b.finish()
	}
	desktop.ApplyAdded(e.surface, item, "")
	b.complete(item.UID)
	return e.push(&undo.Record{Kind: undo.KindCreateFile, Created: &item}), b.finish()
}

// CreateShortcut creates "<name> - Shortcut<ext>" pointing at target in
// dest
func (e *Engine) CreateShortcut(ctx context.Context, target types.Item, dest string) (*undo.Record, error) {
	if err := e.writable(ctx, dest); err != nil {
		return nil, err
	}
	name := paths.ShortcutName(target.Name)
	b := e.begin(types.OpShortcut, 1, operation.Options{})

	var (
		item types.Item
		kind = undo.KindCreateFile
		err  error
	)
	if target.IsDir {
		var res remotefs.MkdirResult
		res, err = e.fs.Mkdir(ctx, remotefs.MkdirRequest{
			Parent:     paths.Normalize(dest),
			Name:       name,
			DedupeName: true,
			ShortcutTo: target.UID,
			Originator: e.originator,
		})
		item, kind = res.Item, undo.KindCreateFolder
	} else {
		item, err = e.fs.Write(ctx, remotefs.WriteRequest{
			Destination: paths.Normalize(dest),
			Name:        name,
			DedupeName:  true,
			ShortcutTo:  target.UID,
			Originator:  e.originator,
		})
	}
	if err != nil {
		e.alert(ctx, err.Error())
		b.fail(err)
		return nil, b.finish()
	}
	desktop.ApplyAdded(e.surface, item, "")
	b.complete(item.UID)
	return e.push(&undo.Record{Kind: kind, Created: &item}), b.finish()
}

// writable rejects creating entries inside the Trash
func (e *Engine) writable(ctx context.Context, dir string) error {
	if paths.IsWithin(dir, e.trash) {
		e.alert(ctx, "Cannot create items in the Trash.")
		return fmt.Errorf("%w: %s is inside the Trash", ErrInvalidDestination, dir)
	}
	return nil
}
