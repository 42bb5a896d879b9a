package undo

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/desktop/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/logging"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/shared/types"
)

// Kind names the action a record inverts
type Kind string

const (
	KindCreateFile   Kind = "create_file"
	KindCreateFolder Kind = "create_folder"
	KindRename       Kind = "rename"
	KindUpload       Kind = "upload"
	KindCopy         Kind = "copy"
	KindMove         Kind = "move"
	KindDelete       Kind = "delete"
)

// DefaultLimit bounds the number of records kept
const DefaultLimit = 100

// ErrUndoInProgress is returned when another undo is still running
var ErrUndoInProgress = errors.New("undo already in progress")

// Entry is an item relocated by a move or trash action
type Entry struct {
	UID          string `json:"uid"`
	Path         string `json:"path"`
	OriginalPath string `json:"original_path"`
}

// Rename describes a completed rename
type Rename struct {
	UID     string `json:"uid"`
	OldName string `json:"old_name"`
	NewName string `json:"new_name"`
	OldPath string `json:"old_path"`
}

// Record is one undoable action
type Record struct {
	Kind    Kind        `json:"kind"`
	Items   []Entry     `json:"items,omitempty"`
	Paths   []string    `json:"paths,omitempty"`
	Created *types.Item `json:"created,omitempty"`
	Rename  *Rename     `json:"rename,omitempty"`
}

// Size returns the number of steps undoing the record takes
func (r Record) Size() int {
	switch r.Kind {
	case KindMove, KindDelete:
		return len(r.Items)
	case KindUpload, KindCopy:
		return len(r.Paths)
	}
	return 1
}

func (r Record) valid() bool {
	switch r.Kind {
	case KindCreateFile, KindCreateFolder:
		return r.Created != nil
	case KindRename:
		return r.Rename != nil
	}
	return r.Size() > 0
}

// Executor performs inverse actions without recording them
type Executor interface {
	// Remove permanently deletes the entry at path
	Remove(ctx context.Context, uid, path string) error
	// Rename renames uid to newName
	Rename(ctx context.Context, uid, newName string) error
	// MoveTo moves uid into destDir. Trashed entries are restored under
	// their original name.
	MoveTo(ctx context.Context, uid, destDir string) error
}

// History is a bounded LIFO of records
type History struct {
	mu      sync.Mutex
	records []Record
	limit   int

	running sync.Mutex
	metrics *monitoring.Metrics
	logger  *logging.Logger
}

// NewHistory creates an empty history. limit <= 0 uses DefaultLimit.
func NewHistory(limit int, metrics *monitoring.Metrics, logger *logging.Logger) *History {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &History{
		limit:   limit,
		metrics: metrics,
		logger:  logger.OrNop().Named("undo"),
	}
}

// Push records an action. Records without steps are ignored; the oldest
// record is evicted when the history is full.
func (h *History) Push(r Record) {
	if !r.valid() {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	h.records = append(h.records, r)
	if len(h.records) > h.limit {
		h.records = h.records[len(h.records)-h.limit:]
	}
}

// Len returns the number of records
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records)
}

// Peek returns the newest record
func (h *History) Peek() (Record, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.records) == 0 {
		return Record{}, false
	}
	return h.records[len(h.records)-1], true
}

// Clear drops every record
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = nil
}

func (h *History) pop() (Record, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.records) == 0 {
		return Record{}, false
	}
	r := h.records[len(h.records)-1]
	h.records = h.records[:len(h.records)-1]
	return r, true
}

// Undo inverts the newest record. It returns nil with no error when the
// history is empty, and ErrUndoInProgress while another undo runs. Step
// failures do not stop the remaining steps; their errors are joined.
func (h *History) Undo(ctx context.Context, exec Executor) (*Record, error) {
	if !h.running.TryLock() {
		return nil, ErrUndoInProgress
	}
	defer h.running.Unlock()

	r, ok := h.pop()
	if !ok {
		return nil, nil
	}

	var errs []error
	step := func(what string, err error) {
		if err == nil {
			return
		}
		h.logger.Warn("undo step failed",
			zap.String("kind", string(r.Kind)),
			zap.String("target", what),
			zap.Error(err))
		errs = append(errs, fmt.Errorf("undo %s %s: %w", r.Kind, what, err))
	}

	switch r.Kind {
	case KindCreateFile, KindCreateFolder:
		step(r.Created.Path, exec.Remove(ctx, r.Created.UID, r.Created.Path))
	case KindRename:
		step(r.Rename.UID, exec.Rename(ctx, r.Rename.UID, r.Rename.OldName))
	case KindUpload, KindCopy:
		for _, p := range r.Paths {
			step(p, exec.Remove(ctx, "", p))
		}
	case KindMove:
		for _, e := range r.Items {
			step(e.UID, exec.MoveTo(ctx, e.UID, paths.Dir(e.OriginalPath)))
		}
	case KindDelete:
		for _, e := range r.Items {
			if e.OriginalPath == "" {
				h.logger.Warn("skipping restore without original path", zap.String("uid", e.UID))
				continue
			}
			step(e.UID, exec.MoveTo(ctx, e.UID, paths.Dir(e.OriginalPath)))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown undo kind %q", r.Kind))
	}

	err := errors.Join(errs...)
	outcome := "success"
	if err != nil {
		outcome = "partial"
	}
	h.metrics.RecordUndo(string(r.Kind), outcome)
	h.logger.Info("undo completed", zap.String("kind", string(r.Kind)), zap.Int("steps", r.Size()), zap.Bool("errors", err != nil))
	return &r, err
}
