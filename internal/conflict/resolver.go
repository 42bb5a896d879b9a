// Package conflict resolves same-name conflicts across a batch.
//
// One Resolver lives for the duration of one batch. Its state starts at
// Prompting; choosing Replace All or Cancel changes how every later item
// of the batch is handled.
package conflict

import (
	"context"
	"errors"
	"fmt"
	"html"

	"github.com/GriffinCanCode/AgentOS/desktop/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/logging"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/remotefs"
	"go.uber.org/zap"
)

// Choice is the user's answer to a conflict prompt
type Choice string

const (
	Replace    Choice = "replace"
	ReplaceAll Choice = "replace_all"
	Skip       Choice = "skip"
	Cancel     Choice = "cancel"
)

// State is the batch-wide conflict state
type State int

const (
	StatePrompting State = iota
	StateReplaceAll
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StatePrompting:
		return "prompting"
	case StateReplaceAll:
		return "replace_all"
	case StateCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Outcome is the result of one item
type Outcome int

const (
	Completed Outcome = iota
	Skipped
	Failed
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case Completed:
		return "completed"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	}
	return "unknown"
}

// ErrBatchCancelled is returned for items reached after the user chose
// Cancel.
var ErrBatchCancelled = errors.New("batch cancelled at conflict prompt")

// Prompt asks the user how to handle a conflict
type Prompt struct {
	EntryName string   `json:"entry_name"`
	Message   string   `json:"message"`
	Choices   []Choice `json:"choices"`
}

// Prompter is the modal dialog collaborator
type Prompter interface {
	// Prompt blocks until the user picks one of p.Choices
	Prompt(ctx context.Context, p Prompt) (Choice, error)
	// Alert shows an error message
	Alert(ctx context.Context, message string)
}

// Attempt performs one try of an item
type Attempt func(ctx context.Context, overwrite bool) error

// Resolver is the per-batch conflict state machine
type Resolver struct {
	prompter Prompter
	multi    bool
	state    State
	metrics  *monitoring.Metrics
	logger   *logging.Logger
}

// NewResolver creates a resolver for a batch of batchSize items
func NewResolver(prompter Prompter, batchSize int, metrics *monitoring.Metrics, logger *logging.Logger) *Resolver {
	return &Resolver{
		prompter: prompter,
		multi:    batchSize > 1,
		metrics:  metrics,
		logger:   logger.OrNop().Named("conflict"),
	}
}

// State returns the batch-wide state
func (r *Resolver) State() State {
	return r.state
}

// Choices returns the choices offered for a conflict
func (r *Resolver) Choices() []Choice {
	if r.multi {
		return []Choice{Replace, ReplaceAll, Skip}
	}
	return []Choice{Replace, Cancel}
}

// Resolve runs attempt for one item and applies the conflict state
// machine. Non-conflict errors are alerted and end the item without
// changing the state.
func (r *Resolver) Resolve(ctx context.Context, attempt Attempt) (Outcome, error) {
	if r.state == StateCancelled {
		return Cancelled, ErrBatchCancelled
	}

	overwrite := r.state == StateReplaceAll
	err := attempt(ctx, overwrite)
	if err == nil {
		return Completed, nil
	}
	if !remotefs.IsConflict(err) || overwrite {
		return r.fail(ctx, err)
	}

	name := remotefs.ConflictName(err)
	choice, perr := r.prompter.Prompt(ctx, Prompt{
		EntryName: name,
		Message:   fmt.Sprintf("<strong>%s</strong> already exists.", html.EscapeString(name)),
		Choices:   r.Choices(),
	})
	if perr != nil {
		r.state = StateCancelled
		return Cancelled, fmt.Errorf("conflict prompt: %w", perr)
	}
	choice = r.normalize(choice)
	r.metrics.RecordConflictDecision(string(choice))
	r.logger.Debug("conflict decision", zap.String("entry_name", name), zap.String("choice", string(choice)))

	switch choice {
	case ReplaceAll:
		r.state = StateReplaceAll
		fallthrough
	case Replace:
		if err := attempt(ctx, true); err != nil {
			return r.fail(ctx, err)
		}
		return Completed, nil
	case Cancel:
		r.state = StateCancelled
		return Cancelled, ErrBatchCancelled
	default:
		return Skipped, nil
	}
}

func (r *Resolver) fail(ctx context.Context, err error) (Outcome, error) {
	if ctx.Err() == nil {
		r.prompter.Alert(ctx, err.Error())
	}
	return Failed, err
}

// normalize maps a choice that was not offered to the passive default
func (r *Resolver) normalize(c Choice) Choice {
	for _, offered := range r.Choices() {
		if c == offered {
			return c
		}
	}
	if r.multi {
		return Skip
	}
	return Cancel
}
