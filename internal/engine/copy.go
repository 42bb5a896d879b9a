package engine

import (
	"context"
	"fmt"

	"github.com/GriffinCanCode/AgentOS/desktop/internal/clipboard"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/desktop"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/operation"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/remotefs"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/shared/types"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/undo"
)

// Copy copies items into dest. Copying an item into its own parent
// creates a deduplicated copy instead of conflicting.
func (e *Engine) Copy(ctx context.Context, items []types.Item, dest string) (*undo.Record, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	dest = paths.Normalize(dest)
	if paths.IsWithin(dest, e.trash) {
		e.alert(ctx, "Cannot copy items into the Trash.")
		return nil, fmt.Errorf("%w: %s is inside the Trash", ErrInvalidDestination, dest)
	}

	b := e.begin(types.OpCopy, len(items), operation.Options{})
	var created []string
	for _, item := range items {
		if b.stop() {
			break
		}
		if item.Immutable {
			b.skip()
			continue
		}

		req := remotefs.CopyRequest{
			Source:      item.Path,
			Destination: dest,
			DedupeName:  paths.Equal(paths.Dir(item.Path), dest),
			Originator:  e.originator,
		}
		b.op.SetStatus("Copying " + item.Path)

		var res remotefs.CopyResult
		ok := b.resolve(ctx, item.UID, func(ctx context.Context, overwrite bool) error {
			req.Overwrite = overwrite
			var err error
			res, err = e.fs.Copy(ctx, req)
			return err
		})
		if !ok {
			continue
		}
		desktop.ApplyOverwritten(e.surface, res.Overwritten)
		desktop.ApplyAdded(e.surface, res.Copied, "")
		created = append(created, res.Copied.Path)
	}

	err := b.finish()
	if len(created) == 0 {
		return nil, err
	}
	return e.push(&undo.Record{Kind: undo.KindCopy, Paths: created}), err
}

// Paste consumes the clipboard into dest: copied entries are copied and
// cut entries are moved.
func (e *Engine) Paste(ctx context.Context, dest string) (*undo.Record, error) {
	state, err := e.clipboard.Take()
	if err != nil {
		return nil, err
	}
	items, err := e.Resolve(ctx, state.Items)
	if err != nil {
		return nil, err
	}
	if state.Operation == clipboard.OpMove {
		return e.Move(ctx, items, dest)
	}
	return e.Copy(ctx, items, dest)
}
