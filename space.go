// Package lineform is a line-oriented layout and incremental-rendering
// engine for terminal forms. Elements report their vertical space needs,
// fire change events when they grow or shrink, and bubble those events up
// a containment tree so the page can redraw only the affected rows instead
// of clearing the screen.
package lineform

import (
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// SpaceRequirement describes the vertical line needs of an element.
// Invariant: Min <= Current <= Max and Min <= Preferred <= Max.
type SpaceRequirement struct {
	Min       int
	Current   int
	Max       int
	Preferred int
}

// NewSpaceRequirement builds a requirement, clamping the values so the
// invariant holds regardless of input.
func NewSpaceRequirement(min, current, max, preferred int) SpaceRequirement {
	if min < 0 {
		min = 0
	}
	if max < min {
		max = min
	}
	if current < min {
		current = min
	}
	if current > max {
		current = max
	}
	if preferred < min {
		preferred = min
	}
	if preferred > max {
		preferred = max
	}
	return SpaceRequirement{Min: min, Current: current, Max: max, Preferred: preferred}
}

// Valid reports whether the requirement satisfies the ordering invariant.
func (s SpaceRequirement) Valid() bool {
	return s.Min >= 0 &&
		s.Min <= s.Current && s.Current <= s.Max &&
		s.Min <= s.Preferred && s.Preferred <= s.Max
}

// Add sums two requirements component-wise.
func (s SpaceRequirement) Add(o SpaceRequirement) SpaceRequirement {
	return SpaceRequirement{
		Min:       s.Min + o.Min,
		Current:   s.Current + o.Current,
		Max:       s.Max + o.Max,
		Preferred: s.Preferred + o.Preferred,
	}
}

// AddOverhead adds a fixed number of decoration lines to every component.
func (s SpaceRequirement) AddOverhead(n int) SpaceRequirement {
	return SpaceRequirement{
		Min:       s.Min + n,
		Current:   s.Current + n,
		Max:       s.Max + n,
		Preferred: s.Preferred + n,
	}
}

// BufferDelta describes how an element's occupied lines changed since the
// last rendered snapshot, at a start offset relative to its parent.
type BufferDelta struct {
	Start    int // first affected line, relative to the element's parent
	OldLines int
	NewLines int
}

// SpaceChange returns the net line growth (positive) or shrink (negative).
func (d BufferDelta) SpaceChange() int {
	return d.NewLines - d.OldLines
}

// ChangeKind classifies what aspect of an element changed.
type ChangeKind uint8

const (
	ChangeContent    ChangeKind = iota // value or rendered text changed
	ChangeState                        // activation / focus changed
	ChangeVisibility                   // shown or hidden
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeContent:
		return "content"
	case ChangeState:
		return "state"
	case ChangeVisibility:
		return "visibility"
	default:
		return fmt.Sprintf("ChangeKind(%d)", uint8(k))
	}
}

// ChangeEvent is fired by an element when its content, state or visibility
// changes. SpaceDelta carries the net line-count change so ancestors can
// update their aggregates without re-walking the subtree.
type ChangeEvent struct {
	Element    string
	Kind       ChangeKind
	SpaceDelta int
	Meta       map[string]string
}

// Listener receives change events. A listener may return an error; errors
// are logged and never interrupt delivery to the remaining listeners.
type Listener func(*ChangeEvent) error

type listenerRef struct {
	id int
	fn Listener
}

// emitter is the per-element listener registry. Listeners are stored as
// non-owning references and notified synchronously in registration order.
// Delivery is re-entrancy safe: an event instance already being delivered
// by this emitter is dropped instead of recursing.
type emitter struct {
	owner     string
	log       *zap.Logger
	listeners []listenerRef
	nextID    int
	inFlight  map[*ChangeEvent]struct{}
}

func (e *emitter) logger() *zap.Logger {
	if e.log == nil {
		e.log = zap.NewNop()
	}
	return e.log
}

// register adds a listener and returns its handle for unregister.
func (e *emitter) register(l Listener) int {
	e.nextID++
	e.listeners = append(e.listeners, listenerRef{id: e.nextID, fn: l})
	return e.nextID
}

// unregister removes the listener with the given handle.
func (e *emitter) unregister(id int) {
	for i, ref := range e.listeners {
		if ref.id == id {
			e.listeners = append(e.listeners[:i], e.listeners[i+1:]...)
			return
		}
	}
}

// fire delivers ev to every listener in registration order. A panicking or
// erroring listener is logged and skipped; the rest still run.
func (e *emitter) fire(ev *ChangeEvent) {
	if e.inFlight == nil {
		e.inFlight = make(map[*ChangeEvent]struct{})
	}
	if _, busy := e.inFlight[ev]; busy {
		return
	}
	e.inFlight[ev] = struct{}{}
	defer delete(e.inFlight, ev)

	// snapshot so listeners can unregister during delivery
	refs := make([]listenerRef, len(e.listeners))
	copy(refs, e.listeners)

	var errs error
	for _, ref := range refs {
		if ref.fn == nil {
			continue
		}
		if err := notify(ref.fn, ev); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("listener %d: %w", ref.id, err))
		}
	}
	if errs != nil {
		e.logger().Warn("change listener failed",
			zap.String("element", e.owner),
			zap.String("kind", ev.Kind.String()),
			zap.Error(errs))
	}
}

// notify invokes a single listener, converting a panic into an error.
func notify(fn Listener, ev *ChangeEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panic: %v", r)
		}
	}()
	return fn(ev)
}
