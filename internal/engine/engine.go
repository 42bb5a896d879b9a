package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/desktop/internal/clipboard"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/conflict"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/desktop"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/logging"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/operation"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/remotefs"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/shared/types"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/undo"
)

// Prompter is the modal dialog collaborator
type Prompter interface {
	conflict.Prompter
	// Confirm asks a yes/no question
	Confirm(ctx context.Context, message string) (bool, error)
}

// Broadcaster publishes events to the user's other sessions
type Broadcaster interface {
	Emit(event string, payload any) error
}

// Options configures an Engine
type Options struct {
	FS          remotefs.FS
	Surface     desktop.Surface
	Tracker     *operation.Tracker
	Prompter    Prompter
	History     *undo.History
	Clipboard   *clipboard.Clipboard
	Broadcaster Broadcaster

	// Originator is the realtime socket id sent with every mutating call
	Originator string
	// Home is the user's home directory
	Home          string
	TrashName     string
	ZipExclude    []string
	MaxNameLength int

	Metrics *monitoring.Metrics
	Logger  *logging.Logger
	Now     func() time.Time
}

// Engine runs filesystem operations for one session
type Engine struct {
	fs          remotefs.FS
	surface     desktop.Surface
	tracker     *operation.Tracker
	prompter    Prompter
	history     *undo.History
	clipboard   *clipboard.Clipboard
	broadcaster Broadcaster

	originator string
	home       string
	trash      string
	exclude    []string
	maxName    int

	metrics *monitoring.Metrics
	logger  *logging.Logger
	now     func() time.Time
}

// New creates an engine. Missing collaborators get in-memory defaults.
func New(opts Options) *Engine {
	logger := opts.Logger.OrNop().Named("engine")
	home := paths.Normalize(opts.Home)
	trash := paths.Trash(home, opts.TrashName)

	e := &Engine{
		fs:          opts.FS,
		surface:     opts.Surface,
		tracker:     opts.Tracker,
		prompter:    opts.Prompter,
		history:     opts.History,
		clipboard:   opts.Clipboard,
		broadcaster: opts.Broadcaster,
		originator:  opts.Originator,
		home:        home,
		trash:       trash,
		exclude:     opts.ZipExclude,
		maxName:     opts.MaxNameLength,
		metrics:     opts.Metrics,
		logger:      logger,
		now:         opts.Now,
	}
	if e.surface == nil {
		e.surface = desktop.NewIndex(trash, nil)
	}
	if e.tracker == nil {
		e.tracker = operation.NewTracker(nil, operation.DefaultConfig(), opts.Logger)
	}
	if e.prompter == nil {
		e.prompter = silentPrompter{}
	}
	if e.history == nil {
		e.history = undo.NewHistory(0, opts.Metrics, opts.Logger)
	}
	if e.clipboard == nil {
		e.clipboard = clipboard.New()
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// TrashPath returns the Trash container of the session
func (e *Engine) TrashPath() string { return e.trash }

// Home returns the session home directory
func (e *Engine) Home() string { return e.home }

// History returns the undo history
func (e *Engine) History() *undo.History { return e.history }

// Clipboard returns the session clipboard
func (e *Engine) Clipboard() *clipboard.Clipboard { return e.clipboard }

// Tracker returns the operation tracker
func (e *Engine) Tracker() *operation.Tracker { return e.tracker }

// Surface returns the desktop surface the engine patches
func (e *Engine) Surface() desktop.Surface { return e.surface }

// Request describes an operation started through StartOperation. Items
// are named by uid or by absolute path, or passed in Items when the caller
// already holds them.
type Request struct {
	Kind            types.OperationKind `json:"kind"`
	Items           []types.Item        `json:"-"`
	UIDs            []string            `json:"uids,omitempty"`
	Paths           []string            `json:"paths,omitempty"`
	Destination     string              `json:"destination,omitempty"`
	NewName         string              `json:"new_name,omitempty"`
	Permanent       bool                `json:"permanent,omitempty"`
	DescendantsOnly bool                `json:"descendants_only,omitempty"`
	Content         []byte              `json:"content,omitempty"`
	// LocalDir uploads every file below a local directory
	LocalDir string `json:"local_dir,omitempty"`
	// Files are uploaded as is
	Files []remotefs.UploadFile `json:"-"`
}

func (r Request) refs() []string {
	out := make([]string, 0, len(r.UIDs)+len(r.Paths))
	out = append(out, r.UIDs...)
	return append(out, r.Paths...)
}

// StartOperation runs a request and returns the undo record it pushed,
// if any.
func (e *Engine) StartOperation(ctx context.Context, req Request) (*undo.Record, error) {
	switch req.Kind {
	case types.OpNewFolder:
		return e.NewFolder(ctx, req.Destination)
	case types.OpNewFile:
		return e.NewFile(ctx, req.Destination, req.NewName, req.Content)
	case types.OpEmptyTrash:
		return nil, e.EmptyTrash(ctx)
	case types.OpUpload:
		files := req.Files
		if req.LocalDir != "" {
			collected, err := CollectLocalFiles(req.LocalDir)
			if err != nil {
				return nil, err
			}
			files = append(files, collected...)
		}
		return e.Upload(ctx, req.Destination, files)
	}

	if !req.Kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, req.Kind)
	}
	resolved, err := e.Resolve(ctx, req.refs())
	if err != nil {
		return nil, err
	}
	items := append(append([]types.Item(nil), req.Items...), resolved...)
	if len(items) == 0 {
		return nil, ErrNoItems
	}

	switch req.Kind {
	case types.OpMove:
		return e.Move(ctx, items, req.Destination)
	case types.OpCopy:
		return e.Copy(ctx, items, req.Destination)
	case types.OpDelete:
		if req.Permanent || req.DescendantsOnly {
			return nil, e.Delete(ctx, items, req.DescendantsOnly)
		}
		return e.Trash(ctx, items)
	case types.OpRename:
		return e.Rename(ctx, items[0], req.NewName)
	case types.OpShortcut:
		dest := req.Destination
		if dest == "" {
			dest = paths.Dir(items[0].Path)
		}
		return e.CreateShortcut(ctx, items[0], dest)
	case types.OpZip:
		dest := req.Destination
		if dest == "" {
			dest = paths.Dir(items[0].Path)
		}
		return e.Zip(ctx, items, dest)
	case types.OpUnzip:
		return e.Unzip(ctx, items[0])
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, req.Kind)
}

// Resolve looks up items by uid or absolute path, preferring the local
// surface. A ref that is not rendered costs one Stat call, which happens
// before any per-item check such as immutability; callers holding the
// item should pass it in Request.Items instead.
func (e *Engine) Resolve(ctx context.Context, refs []string) ([]types.Item, error) {
	items := make([]types.Item, 0, len(refs))
	for _, ref := range refs {
		if item, ok := e.local(ref); ok {
			items = append(items, item)
			continue
		}
		item, err := e.fs.Stat(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", ref, err)
		}
		items = append(items, item)
	}
	return items, nil
}

func (e *Engine) local(ref string) (types.Item, bool) {
	if !strings.HasPrefix(ref, paths.Separator) {
		for _, h := range e.surface.FindItemsByUID(ref) {
			if item, ok := e.surface.Item(h); ok {
				return item, true
			}
		}
		return types.Item{}, false
	}
	for _, h := range e.surface.FindItemsByPathPrefix(ref) {
		if item, ok := e.surface.Item(h); ok && paths.Equal(item.Path, ref) {
			return item, true
		}
	}
	return types.Item{}, false
}

// Undo reverts the newest history record
func (e *Engine) Undo(ctx context.Context) (*undo.Record, error) {
	return e.history.Undo(ctx, undoer{e})
}

func (e *Engine) alert(ctx context.Context, message string) {
	if ctx.Err() != nil {
		return
	}
	e.prompter.Alert(ctx, message)
}

func (e *Engine) push(rec *undo.Record) *undo.Record {
	if rec == nil {
		return nil
	}
	e.history.Push(*rec)
	return rec
}

// announceTrash updates the trash affordance and tells the other sessions
func (e *Engine) announceTrash(empty bool) {
	e.surface.SetTrashFull(!empty)
	if e.broadcaster == nil {
		return
	}
	err := e.broadcaster.Emit(types.EventTrashIsEmpty, types.TrashEvent{
		IsEmpty:                empty,
		OriginalClientSocketID: e.originator,
	})
	if err != nil {
		e.logger.Warn("failed to broadcast trash state", zap.Error(err))
	}
}

// refreshTrash announces the real emptiness of the Trash container
func (e *Engine) refreshTrash(ctx context.Context) {
	entries, err := e.fs.Readdir(ctx, e.trash)
	if err != nil {
		e.logger.Warn("failed to read trash", zap.Error(err))
		return
	}
	e.announceTrash(len(entries) == 0)
}

// batch carries the bookkeeping shared by every operation
type batch struct {
	e        *Engine
	op       *operation.Operation
	resolver *conflict.Resolver
	size     int

	completed int
	skipped   int
	failed    int
	cancelled bool
	errs      []error
}

func (e *Engine) begin(kind types.OperationKind, size int, opts operation.Options) *batch {
	return &batch{
		e:        e,
		op:       e.tracker.Begin(kind, opts),
		resolver: conflict.NewResolver(e.prompter, size, e.metrics, e.logger),
		size:     size,
	}
}

// stop reports whether the batch must not issue further calls
func (b *batch) stop() bool {
	if b.op.Cancelled() {
		b.cancelled = true
	}
	return b.cancelled
}

func (b *batch) skip() {
	b.skipped++
	b.e.metrics.RecordItem(string(b.op.Kind), "skipped")
}

func (b *batch) fail(err error) {
	b.failed++
	b.errs = append(b.errs, err)
	b.e.metrics.RecordItem(string(b.op.Kind), "failed")
}

func (b *batch) complete(sub string) {
	b.completed++
	b.op.SetProgress(sub, 100)
	b.e.metrics.RecordItem(string(b.op.Kind), "completed")
}

// resolve runs attempt through the conflict resolver and reports whether
// the item completed
func (b *batch) resolve(ctx context.Context, sub string, attempt conflict.Attempt) bool {
	outcome, err := b.resolver.Resolve(ctx, attempt)
	switch outcome {
	case conflict.Completed:
		b.complete(sub)
		return true
	case conflict.Skipped:
		b.skip()
	case conflict.Cancelled:
		b.cancelled = true
		b.e.metrics.RecordItem(string(b.op.Kind), "cancelled")
	default:
		b.fail(fmt.Errorf("%s: %w", sub, err))
	}
	return false
}

// finish closes the operation, records metrics and returns the batch
// error: ErrCancelled when the user cancelled, otherwise the joined item
// failures.
func (b *batch) finish() error {
	b.op.Finish()

	outcome := "completed"
	var err error
	switch {
	case b.cancelled:
		outcome = "cancelled"
		err = operation.ErrCancelled
	case b.failed > 0 && b.completed == 0:
		outcome = "failed"
		err = errors.Join(b.errs...)
	case b.failed > 0:
		outcome = "partial"
		err = errors.Join(b.errs...)
	}
	elapsed := time.Since(b.op.Started)
	b.e.metrics.RecordOperation(string(b.op.Kind), outcome, elapsed)
	b.e.logger.Info("operation finished",
		zap.Uint64("operation_id", uint64(b.op.ID)),
		zap.String("kind", string(b.op.Kind)),
		zap.Int("items", b.size),
		zap.Int("completed", b.completed),
		zap.Int("skipped", b.skipped),
		zap.Int("failed", b.failed),
		zap.String("outcome", outcome),
		zap.Duration("duration", elapsed))
	return err
}

// silentPrompter answers every conflict with the passive choice
type silentPrompter struct{}

func (silentPrompter) Prompt(context.Context, conflict.Prompt) (conflict.Choice, error) {
	return conflict.Skip, nil
}

func (silentPrompter) Alert(context.Context, string) {}

func (silentPrompter) Confirm(context.Context, string) (bool, error) { return false, nil }
