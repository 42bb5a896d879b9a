package operation

import (
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GriffinCanCode/AgentOS/desktop/internal/logging"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/shared/types"
	"go.uber.org/zap"
)

// ErrCancelled is returned when the user cancelled an operation
var ErrCancelled = errors.New("operation cancelled by user")

// ID identifies an operation. IDs increase monotonically per tracker.
type ID uint64

// ProgressSurface shows progress to the user
type ProgressSurface interface {
	ShowProgress(id ID, kind types.OperationKind) ProgressHandle
}

// ProgressHandle controls one visible progress surface
type ProgressHandle interface {
	SetPercent(percent int)
	SetStatus(text string)
	Close()
}

// Config holds progress surface timing
type Config struct {
	SingleThreshold time.Duration
	BatchThreshold  time.Duration
	MinDwell        time.Duration
}

// DefaultConfig returns the standard thresholds
func DefaultConfig() Config {
	return Config{
		SingleThreshold: 500 * time.Millisecond,
		BatchThreshold:  2 * time.Second,
		MinDwell:        time.Second,
	}
}

// Options configures a new operation
type Options struct {
	// Threshold overrides the kind's default show threshold
	Threshold time.Duration
	// Abort interrupts in-flight transfers. Only upload and zip honour it.
	Abort func()
	// Status is the initial status text
	Status string
}

// Tracker allocates operations and owns their progress surfaces
type Tracker struct {
	next    atomic.Uint64
	surface ProgressSurface
	cfg     Config
	logger  *logging.Logger

	mu  sync.Mutex
	ops map[ID]*Operation
}

// NewTracker creates a tracker. surface may be nil, in which case no
// progress is ever shown.
func NewTracker(surface ProgressSurface, cfg Config, logger *logging.Logger) *Tracker {
	return &Tracker{
		surface: surface,
		cfg:     cfg,
		logger:  logger.OrNop().Named("operation"),
		ops:     make(map[ID]*Operation),
	}
}

// Begin starts tracking a new operation
func (t *Tracker) Begin(kind types.OperationKind, opts Options) *Operation {
	op := &Operation{
		ID:      ID(t.next.Add(1)),
		Kind:    kind,
		Started: time.Now(),
		tracker: t,
		status:  opts.Status,
		subs:    make(map[string]int),
		done:    make(chan struct{}),
	}
	if kind.Abortable() {
		op.abort = opts.Abort
	}

	t.mu.Lock()
	t.ops[op.ID] = op
	t.mu.Unlock()

	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = t.cfg.SingleThreshold
		if kind.Batch() {
			threshold = t.cfg.BatchThreshold
		}
	}
	if t.surface != nil {
		op.mu.Lock()
		op.showTimer = time.AfterFunc(threshold, op.show)
		op.mu.Unlock()
	}

	t.logger.Debug("operation started", zap.Uint64("operation_id", uint64(op.ID)), zap.String("kind", string(kind)))
	return op
}

// Get returns an active operation
func (t *Tracker) Get(id ID) (*Operation, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	op, ok := t.ops[id]
	return op, ok
}

// Cancel cancels an active operation
func (t *Tracker) Cancel(id ID) bool {
	op, ok := t.Get(id)
	if !ok {
		return false
	}
	op.Cancel()
	return true
}

// CancelAll cancels every active operation
func (t *Tracker) CancelAll() {
	t.mu.Lock()
	ops := make([]*Operation, 0, len(t.ops))
	for _, op := range t.ops {
		ops = append(ops, op)
	}
	t.mu.Unlock()

	for _, op := range ops {
		op.Cancel()
	}
}

// Active returns snapshots of the active operations ordered by id
func (t *Tracker) Active() []Snapshot {
	t.mu.Lock()
	ops := make([]*Operation, 0, len(t.ops))
	for _, op := range t.ops {
		ops = append(ops, op)
	}
	t.mu.Unlock()

	out := make([]Snapshot, 0, len(ops))
	for _, op := range ops {
		out = append(out, op.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (t *Tracker) remove(id ID) {
	t.mu.Lock()
	delete(t.ops, id)
	t.mu.Unlock()
}
