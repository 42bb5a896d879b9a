package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"html"

	"github.com/GriffinCanCode/AgentOS/desktop/internal/desktop"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/operation"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/remotefs"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/shared/types"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/undo"
)

// Move moves items into dest. Moving into the Trash container trashes
// them and moving trashed items elsewhere restores them.
func (e *Engine) Move(ctx context.Context, items []types.Item, dest string) (*undo.Record, error) {
	rec, err := e.move(ctx, items, dest)
	return e.push(rec), err
}

// Trash moves items into the Trash container
func (e *Engine) Trash(ctx context.Context, items []types.Item) (*undo.Record, error) {
	return e.Move(ctx, items, e.trash)
}

func (e *Engine) move(ctx context.Context, items []types.Item, dest string) (*undo.Record, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	if allImmutable(items) {
		return nil, ErrImmutable
	}
	dest = paths.Normalize(dest)
	if paths.IsDescendant(dest, e.trash) {
		e.alert(ctx, "Cannot move items into a deleted folder.")
		return nil, fmt.Errorf("%w: %s is inside the Trash", ErrInvalidDestination, dest)
	}
	toTrash := paths.Equal(dest, e.trash)

	b := e.begin(types.OpMove, len(items), operation.Options{})
	var (
		entries   []undo.Entry
		announced bool
		restored  bool
	)
	for _, item := range items {
		if b.stop() {
			break
		}
		if item.Immutable {
			b.skip()
			continue
		}
		if paths.Equal(paths.Dir(item.Path), dest) {
			e.alert(ctx, fmt.Sprintf("<p>Moving <strong>%s</strong></p>Cannot move item to its current location.", html.EscapeString(item.Name)))
			b.skip()
			continue
		}

		req := remotefs.MoveRequest{
			Source:      item.UID,
			Destination: dest,
			Originator:  e.originator,
		}
		md, trashed := item.TrashInfo()
		switch {
		case toTrash:
			req.NewName = item.UID
			req.NewMetadata = item.WithTrashMetadata(e.now())
			if !announced {
				e.announceTrash(false)
				announced = true
			}
		case trashed:
			req.NewName = md.OriginalName
			req.NewMetadata = json.RawMessage(`{}`)
			req.CreateMissingParents = true
		}
		b.op.SetStatus("Moving " + item.Path)

		var res remotefs.MoveResult
		ok := b.resolve(ctx, item.UID, func(ctx context.Context, overwrite bool) error {
			req.Overwrite = overwrite
			var err error
			res, err = e.fs.Move(ctx, req)
			return err
		})
		if !ok {
			continue
		}
		if trashed && !toTrash {
			restored = true
		}

		moved := res.Moved
		if moved.Path == "" {
			moved.Path = paths.Join(dest, moved.Name)
		}
		desktop.ApplyOverwritten(e.surface, res.Overwritten)
		desktop.ApplyMoved(e.surface, moved, item.Path, e.trash)
		desktop.ApplyParentDirs(e.surface, res.ParentDirsCreated)
		entries = append(entries, undo.Entry{UID: moved.UID, Path: moved.Path, OriginalPath: item.Path})
	}
	if restored {
		e.refreshTrash(ctx)
	}

	err := b.finish()
	if len(entries) == 0 {
		return nil, err
	}
	kind := undo.KindMove
	if toTrash {
		kind = undo.KindDelete
	}
	return &undo.Record{Kind: kind, Items: entries}, err
}

func allImmutable(items []types.Item) bool {
	for _, item := range items {
		if !item.Immutable {
			return false
		}
	}
	return true
}
