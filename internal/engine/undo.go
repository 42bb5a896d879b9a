package engine

import (
	"context"
	"fmt"

	"github.com/GriffinCanCode/AgentOS/desktop/internal/remotefs"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/shared/types"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/undo"
)

// undoer replays history records against the engine without pushing new
// records of its own
type undoer struct {
	e *Engine
}

var _ undo.Executor = undoer{}

// Remove permanently deletes an entry created by the undone operation.
// Entries that are already gone count as removed.
func (u undoer) Remove(ctx context.Context, uid, path string) error {
	ref := uid
	if ref == "" {
		ref = path
	}
	item, err := u.e.fs.Stat(ctx, ref)
	if remotefs.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("undo remove %s: %w", ref, err)
	}
	return u.e.remove(ctx, item, false)
}

func (u undoer) Rename(ctx context.Context, uid, newName string) error {
	item, err := u.e.fs.Stat(ctx, uid)
	if err != nil {
		return fmt.Errorf("undo rename %s: %w", uid, err)
	}
	_, err = u.e.rename(ctx, item, newName)
	return err
}

// MoveTo moves an entry back into destDir. Trashed entries get their
// original name back on the way out.
func (u undoer) MoveTo(ctx context.Context, uid, destDir string) error {
	item, err := u.e.fs.Stat(ctx, uid)
	if err != nil {
		return fmt.Errorf("undo move %s: %w", uid, err)
	}
	_, err = u.e.move(ctx, []types.Item{item}, destDir)
	return err
}
