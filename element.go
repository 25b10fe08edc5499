package lineform

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Element is the spatial contract every renderable unit implements: leaf
// fields, containers and the page itself. Containment is strictly
// tree-shaped: an element belongs to at most one parent and any parent
// back-reference is non-owning.
type Element interface {
	// Name is unique within the parent's scope.
	Name() string

	// Visible reports whether the element contributes lines to the page.
	Visible() bool
	// Show makes the element visible and fires a visibility event whose
	// SpaceDelta is the number of lines regained.
	Show()
	// Hide removes the element's lines and fires a visibility event whose
	// SpaceDelta is the negative of the lines given up.
	Hide()

	// RenderLines returns the element's current display lines.
	// Hidden elements return nil.
	RenderLines() []string

	// SpaceRequirements reflects the element's current line needs.
	SpaceRequirements() SpaceRequirement

	// BufferChanges compares current occupied lines against the last
	// rendered snapshot, at the given parent-relative start offset.
	BufferChanges(relStart int) BufferDelta

	// CanCompressTo reports whether CompressTo(n) would succeed and leave
	// the element occupying exactly n lines.
	CanCompressTo(n int) bool
	// CompressTo applies degraded rendering to fit n lines.
	CompressTo(n int) error
	// Decompress restores full rendering.
	Decompress()

	// RegisterChangeListener adds a non-owning listener reference and
	// returns a handle for UnregisterChangeListener.
	RegisterChangeListener(Listener) int
	UnregisterChangeListener(int)

	// Dirty reports whether the element mutated since MarkRendered.
	Dirty() bool
	// MarkRendered snapshots the current line count and clears the dirty
	// flag. Called by the render path after the writer has drawn it.
	MarkRendered()
}

// Interactive is implemented by elements that accept user input through
// the prompt backend.
type Interactive interface {
	Element

	IsInteractive() bool

	// ActivateForInput switches to focused rendering at the given absolute
	// buffer row. Any line-count change is fired as a state event with the
	// true SpaceDelta.
	ActivateForInput(bufferRow int)
	// Deactivate leaves focused rendering, firing the reverse delta.
	Deactivate()
	Active() bool

	SetValue(string)
	Value() string

	// Prompt describes the field to the prompt backend.
	Prompt() PromptRequest
}

// PromptRequest is handed to the prompt backend when a component is
// activated for input.
type PromptRequest struct {
	Name        string
	Label       string
	Placeholder string
	Initial     string
	Options     []string // non-empty for choice prompts
	Secret      bool
}

// Backend is the external interactive-prompt collaborator. Ask blocks
// until the user answers or aborts; an abort is reported as ErrAborted.
type Backend interface {
	Ask(PromptRequest) (string, error)
}

// ErrAborted is returned by a Backend when the user cancels the prompt.
// Navigation treats it as a normal outcome, not a failure.
var ErrAborted = errors.New("prompt aborted")

// StructuralError reports a containment-contract violation at Add time.
type StructuralError struct {
	Element string
	Reason  string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("structural: element %q: %s", e.Element, e.Reason)
}

func structuralf(element, format string, args ...any) error {
	return &StructuralError{Element: element, Reason: fmt.Sprintf(format, args...)}
}

// node carries the state shared by every element: identity, the
// visibility flag, the dirty flag, the rendered-line snapshot and the
// listener registry. Concrete elements embed it and provide lineCount.
type node struct {
	name    string
	visible bool
	dirty   bool

	// rendered is the line count at the last MarkRendered call.
	rendered int

	// parent is a non-owning back-reference, used only to enforce
	// single-parent containment and detect cycles.
	parent *Container

	emitter
}

func newNode(name string, log *zap.Logger) node {
	return node{
		name:    name,
		visible: true,
		dirty:   true,
		emitter: emitter{owner: name, log: log},
	}
}

func (n *node) Name() string { return n.name }

func (n *node) Visible() bool { return n.visible }

func (n *node) Dirty() bool { return n.dirty }

func (n *node) RegisterChangeListener(l Listener) int { return n.register(l) }

func (n *node) UnregisterChangeListener(id int) { n.unregister(id) }

// fireChange marks the node dirty and delivers a change event.
func (n *node) fireChange(kind ChangeKind, delta int, meta map[string]string) {
	n.dirty = true
	n.fire(&ChangeEvent{Element: n.name, Kind: kind, SpaceDelta: delta, Meta: meta})
}

// markRendered records the given visible line count as the snapshot.
func (n *node) markRendered(lines int) {
	n.rendered = lines
	n.dirty = false
}

// bufferChanges builds the delta between the snapshot and the given
// current line count.
func (n *node) bufferChanges(relStart, current int) BufferDelta {
	return BufferDelta{Start: relStart, OldLines: n.rendered, NewLines: current}
}

var (
	_ Element     = (*Static)(nil)
	_ Element     = (*Custom)(nil)
	_ Element     = (*Container)(nil)
	_ Element     = (*Page)(nil)
	_ Interactive = (*Field)(nil)
	_ Interactive = (*Select)(nil)
	_ Locator     = (*Page)(nil)
)
