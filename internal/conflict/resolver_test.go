package conflict

import (
	"context"
	"errors"
	"testing"

	"github.com/GriffinCanCode/AgentOS/desktop/internal/logging"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/remotefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPrompter struct {
	mock.Mock
}

func (m *mockPrompter) Prompt(ctx context.Context, p Prompt) (Choice, error) {
	args := m.Called(p)
	return args.Get(0).(Choice), args.Error(1)
}

func (m *mockPrompter) Alert(ctx context.Context, message string) {
	m.Called(message)
}

// conflictingAttempt conflicts unless overwrite is set and counts calls
func conflictingAttempt(name string, calls *[]bool) Attempt {
	return func(_ context.Context, overwrite bool) error {
		*calls = append(*calls, overwrite)
		if overwrite {
			return nil
		}
		return remotefs.NewConflict(name)
	}
}

func TestResolveTable(t *testing.T) {
	tests := []struct {
		name      string
		batch     int
		choice    Choice
		outcome   Outcome
		state     State
		attempts  []bool
		offered   []Choice
		expectErr error
	}{
		{"replace retries once", 3, Replace, Completed, StatePrompting, []bool{false, true}, []Choice{Replace, ReplaceAll, Skip}, nil},
		{"replace all switches state", 3, ReplaceAll, Completed, StateReplaceAll, []bool{false, true}, []Choice{Replace, ReplaceAll, Skip}, nil},
		{"skip does not retry", 3, Skip, Skipped, StatePrompting, []bool{false}, []Choice{Replace, ReplaceAll, Skip}, nil},
		{"single item offers cancel", 1, Cancel, Cancelled, StateCancelled, []bool{false}, []Choice{Replace, Cancel}, ErrBatchCancelled},
		{"choice not offered falls back", 1, Skip, Cancelled, StateCancelled, []bool{false}, []Choice{Replace, Cancel}, ErrBatchCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prompter := &mockPrompter{}
			prompter.On("Prompt", mock.MatchedBy(func(p Prompt) bool {
				return p.EntryName == "a.txt" && assert.ObjectsAreEqual(tt.offered, p.Choices)
			})).Return(tt.choice, nil).Once()

			r := NewResolver(prompter, tt.batch, nil, logging.NewNop())
			var calls []bool
			outcome, err := r.Resolve(context.Background(), conflictingAttempt("a.txt", &calls))

			assert.Equal(t, tt.outcome, outcome)
			assert.Equal(t, tt.state, r.State())
			assert.Equal(t, tt.attempts, calls)
			if tt.expectErr != nil {
				assert.ErrorIs(t, err, tt.expectErr)
			} else {
				assert.NoError(t, err)
			}
			prompter.AssertExpectations(t)
		})
	}
}

func TestReplaceAllAtItemK(t *testing.T) {
	prompter := &mockPrompter{}
	prompter.On("Prompt", mock.Anything).Return(ReplaceAll, nil).Once()

	const n = 5
	r := NewResolver(prompter, n, nil, logging.NewNop())
	var calls []bool
	outcomes := make([]Outcome, 0, n)
	for i := 0; i < n; i++ {
		attempt := func(_ context.Context, overwrite bool) error {
			calls = append(calls, overwrite)
			return nil
		}
		if i >= 2 {
			attempt = conflictingAttempt("x", &calls)
		}
		outcome, err := r.Resolve(context.Background(), attempt)
		require.NoError(t, err)
		outcomes = append(outcomes, outcome)
	}

	assert.Equal(t, []Outcome{Completed, Completed, Completed, Completed, Completed}, outcomes)
	// items 1-2 plain, item 3 prompts then retries, items 4-5 overwrite directly
	assert.Equal(t, []bool{false, false, false, true, true, true}, calls)
	prompter.AssertNumberOfCalls(t, "Prompt", 1)
}

func TestCancelledBatchShortCircuits(t *testing.T) {
	prompter := &mockPrompter{}
	prompter.On("Prompt", mock.Anything).Return(Cancel, nil).Once()

	r := NewResolver(prompter, 1, nil, logging.NewNop())
	var calls []bool
	_, _ = r.Resolve(context.Background(), conflictingAttempt("a", &calls))

	outcome, err := r.Resolve(context.Background(), conflictingAttempt("b", &calls))
	assert.Equal(t, Cancelled, outcome)
	assert.ErrorIs(t, err, ErrBatchCancelled)
	assert.Len(t, calls, 1, "no call after cancel")
}

func TestNonConflictErrorIsAlerted(t *testing.T) {
	prompter := &mockPrompter{}
	prompter.On("Alert", "disk full").Once()

	r := NewResolver(prompter, 2, nil, logging.NewNop())
	outcome, err := r.Resolve(context.Background(), func(context.Context, bool) error {
		return errors.New("disk full")
	})

	assert.Equal(t, Failed, outcome)
	assert.EqualError(t, err, "disk full")
	assert.Equal(t, StatePrompting, r.State())
	prompter.AssertExpectations(t)
}

func TestRepeatedConflictUnderOverwriteFails(t *testing.T) {
	prompter := &mockPrompter{}
	prompter.On("Prompt", mock.Anything).Return(Replace, nil).Once()
	prompter.On("Alert", mock.Anything).Once()

	r := NewResolver(prompter, 2, nil, logging.NewNop())
	outcome, err := r.Resolve(context.Background(), func(context.Context, bool) error {
		return remotefs.NewConflict("stuck")
	})

	assert.Equal(t, Failed, outcome)
	assert.True(t, remotefs.IsConflict(err))
	prompter.AssertExpectations(t)
}

func TestPromptMessageEscapesName(t *testing.T) {
	prompter := &mockPrompter{}
	prompter.On("Prompt", mock.MatchedBy(func(p Prompt) bool {
		return p.Message == "<strong>&lt;b&gt;.txt</strong> already exists."
	})).Return(Skip, nil).Once()

	r := NewResolver(prompter, 2, nil, logging.NewNop())
	var calls []bool
	outcome, err := r.Resolve(context.Background(), conflictingAttempt("<b>.txt", &calls))
	require.NoError(t, err)
	assert.Equal(t, Skipped, outcome)
	prompter.AssertExpectations(t)
}
