package lineform

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"go.uber.org/zap"
)

// attachable is the containment side of the element contract. Every
// element in this package implements it through node; a child that does
// not is rejected at Add time.
type attachable interface {
	setParent(*Container)
	getParent() *Container
}

func (n *node) setParent(p *Container) { n.parent = p }
func (n *node) getParent() *Container  { return n.parent }

// Container groups elements and aggregates their space needs. Render
// order is insertion order. Child change events are bubbled upward as
// aggregated events carrying the same space delta.
type Container struct {
	node

	children  []Element
	index     map[string]Element
	childSubs map[string]int // child name → listener handle on that child

	border bool
	title  string
	width  int // fixed inner width for the border, 0 = fit content

	borderStyle *lipgloss.Style
	titleStyle  *lipgloss.Style

	// renderedWidth is the inner width at the last MarkRendered. A border
	// pads every row to the inner width, so a width change dirties rows
	// above the element that caused it.
	renderedWidth int

	// guard, when set, vets a child and its subtree against rules the tree
	// owner imposes, page-wide name uniqueness in particular.
	guard func(Element) error

	// cachedAgg holds the last known aggregate while hidden, so re-showing
	// is O(1) instead of a subtree recompute.
	cachedAgg SpaceRequirement
}

// NewContainer creates an empty container.
func NewContainer(name string) *Container {
	c := &Container{
		index:     make(map[string]Element),
		childSubs: make(map[string]int),
	}
	c.node = newNode(name, nil)
	return c
}

// Border draws a box around the children. Adds two lines of overhead.
func (c *Container) Border() *Container {
	c.border = true
	return c
}

// Title sets a heading. Rendered inside the top border when there is one,
// otherwise as a single heading line (one line of overhead).
func (c *Container) Title(t string) *Container {
	c.title = t
	return c
}

// Width fixes the inner width used when drawing the border. Wider body
// lines and titles are truncated with an ellipsis. A fixed width also keeps
// redraws minimal, since content changes can no longer resize the box.
func (c *Container) Width(w int) *Container {
	c.width = w
	return c
}

// BorderStyle sets the style for border lines.
func (c *Container) BorderStyle(st lipgloss.Style) *Container {
	c.borderStyle = &st
	return c
}

// TitleStyle sets the style for the heading.
func (c *Container) TitleStyle(st lipgloss.Style) *Container {
	c.titleStyle = &st
	return c
}

// Logger sets the logger used for listener failures.
func (c *Container) Logger(log *zap.Logger) *Container {
	c.log = log
	return c
}

// overhead returns the fixed decoration line count: a border contributes
// its top and bottom lines (the title rides inside the top border), a
// bare title contributes one heading line.
func (c *Container) overhead() int {
	switch {
	case c.border:
		return 2
	case c.title != "":
		return 1
	default:
		return 0
	}
}

// Add appends a child, validating the containment contract: non-nil,
// name unique within this container, not already contained elsewhere, and
// no ancestry cycle. Violations fail fast with a StructuralError.
func (c *Container) Add(child Element) error {
	if child == nil {
		return structuralf(c.name, "cannot add nil child")
	}
	name := child.Name()
	if name == "" {
		return structuralf(c.name, "child has empty name")
	}
	if _, exists := c.index[name]; exists {
		return structuralf(c.name, "duplicate child name %q", name)
	}
	att, ok := child.(attachable)
	if !ok {
		return structuralf(c.name, "child %q does not implement the containment contract", name)
	}
	if att.getParent() != nil {
		return structuralf(c.name, "child %q already belongs to %q", name, att.getParent().Name())
	}
	// reject ancestry cycles: the child must not already contain us
	for p := c; p != nil; p = p.parent {
		if Element(p) == child {
			return structuralf(c.name, "adding %q would create a cycle", name)
		}
	}
	if c.guard != nil {
		if err := c.guard(child); err != nil {
			return err
		}
	}

	c.children = append(c.children, child)
	c.index[name] = child
	att.setParent(c)
	if sub, ok := child.(*Container); ok {
		sub.adoptGuard(c.guard)
	}
	c.childSubs[name] = child.RegisterChangeListener(c.onChildEvent)

	delta := 0
	if child.Visible() {
		delta = child.SpaceRequirements().Current
	}
	if c.visible {
		c.fireChange(ChangeContent, delta, nil)
	} else {
		c.cachedAgg = c.computeAggregate()
	}
	return nil
}

// Remove detaches and destroys the named child, unregistering the bubble
// listener so no dangling references remain.
func (c *Container) Remove(name string) error {
	child, ok := c.index[name]
	if !ok {
		return structuralf(c.name, "no child named %q", name)
	}

	child.UnregisterChangeListener(c.childSubs[name])
	delete(c.childSubs, name)
	delete(c.index, name)
	for i, el := range c.children {
		if el == child {
			c.children = append(c.children[:i], c.children[i+1:]...)
			break
		}
	}
	if att, ok := child.(attachable); ok {
		att.setParent(nil)
	}
	if sub, ok := child.(*Container); ok {
		sub.adoptGuard(nil)
	}

	delta := 0
	if child.Visible() {
		delta = -child.SpaceRequirements().Current
	}
	if c.visible {
		c.fireChange(ChangeContent, delta, nil)
	} else {
		c.cachedAgg = c.computeAggregate()
	}
	return nil
}

// Child returns the named child, or nil.
func (c *Container) Child(name string) Element {
	return c.index[name]
}

// Children returns the children in render order.
func (c *Container) Children() []Element {
	out := make([]Element, len(c.children))
	copy(out, c.children)
	return out
}

// adoptGuard installs the tree owner's child-vetting rule on this
// container and every nested one, so the rule follows the subtree.
func (c *Container) adoptGuard(g func(Element) error) {
	c.guard = g
	for _, child := range c.children {
		if sub, ok := child.(*Container); ok {
			sub.adoptGuard(g)
		}
	}
}

// subtreeNames collects every element name in this subtree, hidden
// elements included.
func (c *Container) subtreeNames(into map[string]struct{}) {
	into[c.name] = struct{}{}
	for _, child := range c.children {
		if sub, ok := child.(*Container); ok {
			sub.subtreeNames(into)
		} else {
			into[child.Name()] = struct{}{}
		}
	}
}

// onChildEvent bubbles a child's change upward. The container recomputes
// its own aggregate from the delta and re-fires an aggregated event with
// the same space delta; while hidden it only refreshes the cache, since
// the container's contribution is zero either way.
func (c *Container) onChildEvent(ev *ChangeEvent) error {
	if !c.visible {
		c.cachedAgg = c.computeAggregate()
		c.dirty = true
		return nil
	}
	meta := ev.Meta
	if _, ok := meta["source"]; !ok {
		// first bubble hop records the originating element so the page can
		// locate the affected rows without re-walking the subtree
		meta = make(map[string]string, len(ev.Meta)+1)
		for k, v := range ev.Meta {
			meta[k] = v
		}
		meta["source"] = ev.Element
	}
	c.fireChange(ev.Kind, ev.SpaceDelta, meta)
	return nil
}

// topOverhead returns the decoration lines rendered above the first child.
func (c *Container) topOverhead() int {
	if c.border || c.title != "" {
		return 1
	}
	return 0
}

// OffsetOf returns the named descendant's line offset relative to this
// container's first rendered line, using current line counts.
func (c *Container) OffsetOf(name string) (int, bool) {
	if !c.visible {
		return 0, false
	}
	off := c.topOverhead()
	for _, child := range c.children {
		if child.Name() == name {
			return off, true
		}
		if sub, ok := child.(*Container); ok {
			if rel, found := sub.OffsetOf(name); found {
				return off + rel, true
			}
		}
		off += len(child.RenderLines())
	}
	return 0, false
}

// computeAggregate sums the visible children's requirements plus the
// decoration overhead.
func (c *Container) computeAggregate() SpaceRequirement {
	var agg SpaceRequirement
	for _, child := range c.children {
		if !child.Visible() {
			continue
		}
		agg = agg.Add(child.SpaceRequirements())
	}
	return agg.AddOverhead(c.overhead())
}

// SpaceRequirements returns the aggregate requirement, zero while hidden.
func (c *Container) SpaceRequirements() SpaceRequirement {
	if !c.visible {
		return SpaceRequirement{}
	}
	return c.computeAggregate()
}

// Show restores the container's contribution from the cached aggregate
// and fires the regained lines as one visibility event.
func (c *Container) Show() {
	if c.visible {
		return
	}
	c.visible = true
	c.fireChange(ChangeVisibility, c.cachedAgg.Current, nil)
}

// Hide zeroes the container's contribution without touching child
// visibility. The current aggregate is cached for an O(1) re-show.
func (c *Container) Hide() {
	if !c.visible {
		return
	}
	c.cachedAgg = c.computeAggregate()
	c.visible = false
	c.fireChange(ChangeVisibility, -c.cachedAgg.Current, nil)
}

// RenderLines concatenates the visible children's lines inside the
// decoration, empty while hidden.
func (c *Container) RenderLines() []string {
	if !c.visible {
		return nil
	}
	body := c.bodyLines()
	if c.border {
		return c.renderBordered(body)
	}
	if c.title != "" {
		return append([]string{styled(c.titleStyle, c.title)}, body...)
	}
	return body
}

func (c *Container) bodyLines() []string {
	var body []string
	for _, child := range c.children {
		body = append(body, child.RenderLines()...)
	}
	return body
}

// innerWidth is the padded content width used when drawing the border.
// A configured Width is authoritative; otherwise the box fits its widest
// body line and the title.
func (c *Container) innerWidth(body []string) int {
	if c.width > 0 {
		return c.width
	}
	inner := maxLineWidth(body)
	if w := runewidth.StringWidth(c.title) + 3; c.title != "" && w > inner {
		inner = w
	}
	return inner
}

func (c *Container) renderBordered(body []string) []string {
	inner := c.innerWidth(body)

	title := c.title
	if c.width > 0 && title != "" {
		title = truncateLine(title, inner-3)
	}

	top := "┌" + hrule(inner)
	if title != "" {
		top = "┌─ " + title + " " + hrule(inner-runewidth.StringWidth(title)-3)
	}
	top += "┐"

	out := make([]string, 0, len(body)+2)
	out = append(out, styled(c.borderStyle, top))
	for _, line := range body {
		if c.width > 0 {
			line = truncateLine(line, inner)
		}
		out = append(out, styled(c.borderStyle, "│")+runewidth.FillRight(line, inner)+styled(c.borderStyle, "│"))
	}
	out = append(out, styled(c.borderStyle, "└"+hrule(inner)+"┘"))
	return out
}

func hrule(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("─", n)
}

// BufferChanges compares current lines to the last rendered snapshot. When
// a border somewhere in the subtree changed width, the delta is widened to
// start at that box's top border: every row of a bordered box is padded to
// the inner width, so rows above the mutated element go stale too.
func (c *Container) BufferChanges(relStart int) BufferDelta {
	if off, dirty := c.widthDirtyOffset(); dirty && off < relStart {
		relStart = off
	}
	return c.bufferChanges(relStart, len(c.RenderLines()))
}

// widthDirtyOffset returns the offset of the first row whose rendering
// depends on an inner width that changed since the last MarkRendered.
func (c *Container) widthDirtyOffset() (int, bool) {
	if !c.visible {
		return 0, false
	}
	if c.border && c.innerWidth(c.bodyLines()) != c.renderedWidth {
		return 0, true
	}
	off := c.topOverhead()
	for _, child := range c.children {
		if sub, ok := child.(*Container); ok {
			if rel, dirty := sub.widthDirtyOffset(); dirty {
				return off + rel, true
			}
		}
		off += len(child.RenderLines())
	}
	return 0, false
}

// CanCompressTo reports whether the visible children can jointly shrink
// so the container occupies exactly n lines.
func (c *Container) CanCompressTo(n int) bool {
	if !c.visible {
		return false
	}
	agg := c.computeAggregate()
	return n >= agg.Min && n <= agg.Current
}

// CompressTo shrinks children toward their minimums, largest first, until
// the container occupies exactly n lines.
func (c *Container) CompressTo(n int) error {
	if !c.CanCompressTo(n) {
		return fmt.Errorf("container %q cannot compress to %d lines", c.name, n)
	}

	needed := c.computeAggregate().Current - n
	for needed > 0 {
		// shrink the child with the most reducible space first
		var target Element
		reducible := 0
		for _, child := range c.children {
			if !child.Visible() {
				continue
			}
			req := child.SpaceRequirements()
			if r := req.Current - req.Min; r > reducible {
				reducible = r
				target = child
			}
		}
		if target == nil {
			return fmt.Errorf("container %q: no compressible children left", c.name)
		}

		take := reducible
		if take > needed {
			take = needed
		}
		goal := target.SpaceRequirements().Current - take
		if err := target.CompressTo(goal); err != nil {
			return fmt.Errorf("compressing child %q: %w", target.Name(), err)
		}
		needed -= take
	}
	return nil
}

// Decompress restores full rendering on every child.
func (c *Container) Decompress() {
	for _, child := range c.children {
		child.Decompress()
	}
}

// Dirty reports whether the container or any child mutated since the last
// MarkRendered.
func (c *Container) Dirty() bool {
	if c.dirty {
		return true
	}
	for _, child := range c.children {
		if child.Dirty() {
			return true
		}
	}
	return false
}

// MarkRendered snapshots this container and every child, including the
// border's inner width.
func (c *Container) MarkRendered() {
	c.markRendered(len(c.RenderLines()))
	if c.border {
		c.renderedWidth = c.innerWidth(c.bodyLines())
	}
	for _, child := range c.children {
		child.MarkRendered()
	}
}
