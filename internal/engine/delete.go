package engine

import (
	"context"
	"fmt"

	"github.com/GriffinCanCode/AgentOS/desktop/internal/desktop"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/operation"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/remotefs"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/shared/types"
)

// Delete permanently removes items. Each item is hidden first, then
// deleted, then either dropped from the surface or shown again when the
// call fails. With descendantsOnly only the contents of directories are
// removed. Permanent deletes are not undoable.
func (e *Engine) Delete(ctx context.Context, items []types.Item, descendantsOnly bool) error {
	if len(items) == 0 {
		return ErrNoItems
	}
	if allImmutable(items) && !descendantsOnly {
		return ErrImmutable
	}

	b := e.begin(types.OpDelete, len(items), operation.Options{})
	touchedTrash := false
	for _, item := range items {
		if b.stop() {
			break
		}
		if item.Immutable && !descendantsOnly {
			b.skip()
			continue
		}
		if err := e.remove(ctx, item, descendantsOnly); err != nil {
			e.alert(ctx, err.Error())
			b.fail(fmt.Errorf("%s: %w", item.Path, err))
			continue
		}
		b.complete(item.UID)
		if paths.IsWithin(item.Path, e.trash) {
			touchedTrash = true
		}
	}
	if touchedTrash {
		e.refreshTrash(ctx)
	}
	return b.finish()
}

// remove runs the two-phase delete of one item
func (e *Engine) remove(ctx context.Context, item types.Item, descendantsOnly bool) error {
	var hidden []desktop.Handle
	if descendantsOnly {
		for _, h := range e.surface.FindItemsByPathPrefix(item.Path) {
			if it, ok := e.surface.Item(h); ok && !paths.Equal(it.Path, item.Path) {
				hidden = append(hidden, h)
			}
		}
	} else {
		hidden = append(hidden, e.surface.FindItemsByUID(item.UID)...)
	}
	for _, h := range hidden {
		e.surface.SetHidden(h, true)
	}

	err := e.fs.Delete(ctx, remotefs.DeleteRequest{
		Paths:           []string{item.Path},
		DescendantsOnly: descendantsOnly,
		Recursive:       true,
		Originator:      e.originator,
	})
	if err != nil {
		for _, h := range hidden {
			e.surface.SetHidden(h, false)
		}
		return err
	}
	desktop.ApplyRemoved(e.surface, item.Path, item.UID, descendantsOnly)
	return nil
}

// EmptyTrash permanently deletes everything in the Trash after the user
// confirms
func (e *Engine) EmptyTrash(ctx context.Context) error {
	ok, err := e.prompter.Confirm(ctx, "Are you sure you want to permanently delete the items in Trash?")
	if err != nil {
		return fmt.Errorf("empty trash confirmation: %w", err)
	}
	if !ok {
		return nil
	}

	b := e.begin(types.OpEmptyTrash, 1, operation.Options{})
	err = e.fs.Delete(ctx, remotefs.DeleteRequest{
		Paths:           []string{e.trash},
		DescendantsOnly: true,
		Recursive:       true,
		Originator:      e.originator,
	})
	if err != nil {
		e.alert(ctx, err.Error())
		b.fail(err)
		return b.finish()
	}
	desktop.ApplyRemoved(e.surface, e.trash, "", true)
	e.announceTrash(true)
	b.complete(e.trash)
	return b.finish()
}
