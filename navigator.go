package lineform

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// NavState is the navigation state machine:
// Idle → Active → Completed | Cancelled.
type NavState uint8

const (
	NavIdle NavState = iota
	NavActive
	NavCompleted
	NavCancelled
)

func (s NavState) String() string {
	switch s {
	case NavIdle:
		return "idle"
	case NavActive:
		return "active"
	case NavCompleted:
		return "completed"
	case NavCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("NavState(%d)", uint8(s))
	}
}

// FormState is the outcome of a navigation run: the collected answers and
// the terminal status. A user abort yields a Cancelled state with the
// answers gathered so far; it is a normal result, not an error.
type FormState struct {
	Answers map[string]string
	Status  NavState
}

// Answered returns the number of collected answers.
func (fs FormState) Answered() int {
	return len(fs.Answers)
}

// Locator resolves an element name to its absolute buffer row. Page
// implements it.
type Locator interface {
	BufferPosition(name string) int
}

// ComponentStatus is one line of the live form summary.
type ComponentStatus struct {
	Name     string
	Value    string
	Answered bool
	Active   bool
}

func (cs ComponentStatus) String() string {
	marker := "·"
	switch {
	case cs.Active:
		marker = "▸"
	case cs.Answered:
		marker = "✓"
	}
	if cs.Answered {
		return fmt.Sprintf("%s %s: %s", marker, cs.Name, cs.Value)
	}
	return fmt.Sprintf("%s %s", marker, cs.Name)
}

// Navigator walks interactive components in tab order, activating one at
// a time and collecting answers from the prompt backend. Components are
// visited in registration order.
type Navigator struct {
	components []Interactive
	names      map[string]struct{}
	active     int // index of the active component, -1 when none
	state      NavState
	answers    map[string]string
	locator    Locator
	log        *zap.Logger
}

// NewNavigator creates an idle navigator.
func NewNavigator() *Navigator {
	return &Navigator{
		names:   make(map[string]struct{}),
		active:  -1,
		state:   NavIdle,
		answers: make(map[string]string),
		log:     zap.NewNop(),
	}
}

// Locate sets the buffer-position resolver used at activation time.
func (n *Navigator) Locate(l Locator) *Navigator {
	n.locator = l
	return n
}

// Logger sets the navigator's logger.
func (n *Navigator) Logger(log *zap.Logger) *Navigator {
	if log != nil {
		n.log = log
	}
	return n
}

// Register adds an interactive component to the tab order. Registration
// order is visit order. Non-interactive or duplicate components are
// rejected and false is returned.
func (n *Navigator) Register(c Interactive) bool {
	if c == nil || !c.IsInteractive() {
		return false
	}
	if _, dup := n.names[c.Name()]; dup {
		return false
	}
	n.components = append(n.components, c)
	n.names[c.Name()] = struct{}{}
	return true
}

// Components returns the registered components in tab order.
func (n *Navigator) Components() []Interactive {
	out := make([]Interactive, len(n.components))
	copy(out, n.components)
	return out
}

// State returns the current navigation state.
func (n *Navigator) State() NavState {
	return n.state
}

// ActiveIndex returns the index of the active component, -1 when none.
func (n *Navigator) ActiveIndex() int {
	return n.active
}

// NavigateTo moves activation to the component at index, deactivating the
// currently active one first so at most one component is ever active.
func (n *Navigator) NavigateTo(index int) error {
	if index < 0 || index >= len(n.components) {
		return fmt.Errorf("navigate: index %d out of range [0,%d)", index, len(n.components))
	}
	if n.active == index {
		return nil
	}
	n.deactivate()

	c := n.components[index]
	row := 0
	if n.locator != nil {
		if pos := n.locator.BufferPosition(c.Name()); pos >= 0 {
			row = pos
		}
	}
	c.ActivateForInput(row)
	n.active = index
	return nil
}

func (n *Navigator) deactivate() {
	if n.active < 0 {
		return
	}
	n.components[n.active].Deactivate()
	n.active = -1
}

// Run walks every registered component in order, blocking on the prompt
// backend for each answer. A user abort stops immediately and returns the
// partial form state as a normal result. A backend failure deactivates
// the current component and is returned as an error.
func (n *Navigator) Run(backend Backend) (FormState, error) {
	if backend == nil {
		return n.formState(), errors.New("navigator: nil prompt backend")
	}

	n.state = NavActive
	for i, c := range n.components {
		if err := n.NavigateTo(i); err != nil {
			n.state = NavIdle
			return n.formState(), err
		}

		value, err := backend.Ask(c.Prompt())
		if errors.Is(err, ErrAborted) {
			n.deactivate()
			n.state = NavCancelled
			n.log.Info("form cancelled",
				zap.String("component", c.Name()),
				zap.Int("answered", len(n.answers)))
			return n.formState(), nil
		}
		if err != nil {
			n.deactivate()
			n.state = NavIdle
			return n.formState(), fmt.Errorf("prompt for %q: %w", c.Name(), err)
		}

		c.SetValue(value)
		n.answers[c.Name()] = c.Value()
	}

	n.deactivate()
	n.state = NavCompleted
	return n.formState(), nil
}

func (n *Navigator) formState() FormState {
	answers := make(map[string]string, len(n.answers))
	for k, v := range n.answers {
		answers[k] = v
	}
	return FormState{Answers: answers, Status: n.state}
}

// Summary recomputes a per-component status line from live component
// state on every call. It never caches, so it cannot go stale.
func (n *Navigator) Summary() []ComponentStatus {
	out := make([]ComponentStatus, 0, len(n.components))
	for _, c := range n.components {
		_, answered := n.answers[c.Name()]
		out = append(out, ComponentStatus{
			Name:     c.Name(),
			Value:    c.Value(),
			Answered: answered,
			Active:   c.Active(),
		})
	}
	return out
}
