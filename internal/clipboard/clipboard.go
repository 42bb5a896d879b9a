// Package clipboard holds the session clipboard: a set of paths and
// whether they were copied or cut.
package clipboard

import (
	"errors"
	"fmt"
	"sync"

	"github.com/GriffinCanCode/AgentOS/desktop/internal/shared/paths"
)

// Operation is the pending clipboard action
type Operation string

const (
	OpCopy Operation = "copy"
	OpMove Operation = "move"
)

// ErrEmpty is returned when pasting an empty clipboard
var ErrEmpty = errors.New("clipboard is empty")

// State is a clipboard snapshot
type State struct {
	Items     []string  `json:"items"`
	Operation Operation `json:"operation"`
}

// Empty reports whether there is nothing to paste
func (s State) Empty() bool {
	return len(s.Items) == 0
}

// Clipboard is safe for concurrent use
type Clipboard struct {
	mu    sync.Mutex
	state State
}

// New creates an empty clipboard
func New() *Clipboard {
	return &Clipboard{}
}

// ParseOperation accepts "copy", "move" and "cut"
func ParseOperation(s string) (Operation, error) {
	switch s {
	case "copy":
		return OpCopy, nil
	case "move", "cut":
		return OpMove, nil
	}
	return "", fmt.Errorf("unknown clipboard operation %q", s)
}

// Set replaces the clipboard contents
func (c *Clipboard) Set(op Operation, items []string) error {
	if op != OpCopy && op != OpMove {
		return fmt.Errorf("unknown clipboard operation %q", op)
	}
	normalized := make([]string, 0, len(items))
	for _, p := range items {
		normalized = append(normalized, paths.Normalize(p))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = State{Items: normalized, Operation: op}
	return nil
}

// Peek returns the contents without consuming them
func (c *Clipboard) Peek() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{Items: append([]string(nil), c.state.Items...), Operation: c.state.Operation}
}

// Take returns the contents and clears the clipboard
func (c *Clipboard) Take() (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Empty() {
		return State{}, ErrEmpty
	}
	s := c.state
	c.state = State{}
	return s, nil
}

// Clear empties the clipboard
func (c *Clipboard) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = State{}
}
