package operation

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/GriffinCanCode/AgentOS/desktop/internal/shared/types"
	"go.uber.org/zap"
)

// Operation is one unit of batched work
type Operation struct {
	ID      ID
	Kind    types.OperationKind
	Started time.Time

	tracker   *Tracker
	cancelled atomic.Bool

	mu        sync.Mutex
	abort     func()
	subs      map[string]int
	percent   int
	status    string
	handle    ProgressHandle
	shownAt   time.Time
	showTimer *time.Timer
	finished  bool
	done      chan struct{}
	doneOnce  sync.Once
}

// Snapshot is a point-in-time view of an operation
type Snapshot struct {
	ID        ID                  `json:"operation_id"`
	Kind      types.OperationKind `json:"kind"`
	Percent   int                 `json:"percent"`
	Status    string              `json:"status,omitempty"`
	Cancelled bool                `json:"cancelled"`
	Visible   bool                `json:"visible"`
}

// Cancelled reports whether the user cancelled the operation. Batches
// poll it before every item.
func (o *Operation) Cancelled() bool {
	return o.cancelled.Load()
}

// Err returns ErrCancelled once the operation is cancelled
func (o *Operation) Err() error {
	if o.Cancelled() {
		return ErrCancelled
	}
	return nil
}

// Cancel sets the cancellation flag and aborts in-flight transfers of
// abortable kinds.
func (o *Operation) Cancel() {
	if o.cancelled.Swap(true) {
		return
	}
	o.mu.Lock()
	abort := o.abort
	o.mu.Unlock()

	o.tracker.logger.Info("operation cancelled",
		zap.Uint64("operation_id", uint64(o.ID)),
		zap.String("kind", string(o.Kind)))
	if abort != nil {
		abort()
	}
}

// SetAbort installs the abort function of an abortable operation
func (o *Operation) SetAbort(abort func()) {
	if !o.Kind.Abortable() {
		return
	}
	o.mu.Lock()
	o.abort = abort
	o.mu.Unlock()
	if o.Cancelled() && abort != nil {
		abort()
	}
}

// SetProgress records the progress of one sub-item. The operation
// percentage is the mean of all sub-items.
func (o *Operation) SetProgress(sub string, percent int) {
	o.mu.Lock()
	o.subs[sub] = clamp(percent)
	total := 0
	for _, p := range o.subs {
		total += p
	}
	o.percent = total / len(o.subs)
	handle, pct := o.handle, o.percent
	o.mu.Unlock()

	if handle != nil {
		handle.SetPercent(pct)
	}
}

// SetPercent sets the operation percentage directly
func (o *Operation) SetPercent(percent int) {
	o.mu.Lock()
	o.percent = clamp(percent)
	handle, pct := o.handle, o.percent
	o.mu.Unlock()

	if handle != nil {
		handle.SetPercent(pct)
	}
}

// SetStatus sets the status text, e.g. the name of the current item
func (o *Operation) SetStatus(text string) {
	o.mu.Lock()
	o.status = text
	handle := o.handle
	o.mu.Unlock()

	if handle != nil {
		handle.SetStatus(text)
	}
}

// Finish ends the operation. A visible progress surface is closed once
// the minimum dwell has elapsed; Done is closed after that.
func (o *Operation) Finish() {
	o.mu.Lock()
	if o.finished {
		o.mu.Unlock()
		return
	}
	o.finished = true
	if o.showTimer != nil {
		o.showTimer.Stop()
	}
	handle := o.handle
	remaining := o.tracker.cfg.MinDwell - time.Since(o.shownAt)
	o.mu.Unlock()

	o.tracker.remove(o.ID)
	o.tracker.logger.Debug("operation finished",
		zap.Uint64("operation_id", uint64(o.ID)),
		zap.Duration("duration", time.Since(o.Started)))

	if handle == nil {
		o.closeDone()
		return
	}
	if remaining <= 0 {
		handle.Close()
		o.closeDone()
		return
	}
	time.AfterFunc(remaining, func() {
		handle.Close()
		o.closeDone()
	})
}

// Done is closed when the operation finished and its surface is gone
func (o *Operation) Done() <-chan struct{} {
	return o.done
}

// Visible reports whether the progress surface is shown
func (o *Operation) Visible() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.handle != nil
}

// Snapshot returns a point-in-time view
func (o *Operation) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Snapshot{
		ID:        o.ID,
		Kind:      o.Kind,
		Percent:   o.percent,
		Status:    o.status,
		Cancelled: o.cancelled.Load(),
		Visible:   o.handle != nil,
	}
}

func (o *Operation) show() {
	o.mu.Lock()
	if o.finished || o.handle != nil {
		o.mu.Unlock()
		return
	}
	o.mu.Unlock()

	handle := o.tracker.surface.ShowProgress(o.ID, o.Kind)
	if handle == nil {
		return
	}

	o.mu.Lock()
	if o.finished {
		// Finished while the surface was being created.
		o.mu.Unlock()
		handle.Close()
		return
	}
	o.handle = handle
	o.shownAt = time.Now()
	handle.SetPercent(o.percent)
	if o.status != "" {
		handle.SetStatus(o.status)
	}
	o.mu.Unlock()
}

func (o *Operation) closeDone() {
	o.doneOnce.Do(func() { close(o.done) })
}

func clamp(percent int) int {
	switch {
	case percent < 0:
		return 0
	case percent > 100:
		return 100
	}
	return percent
}
