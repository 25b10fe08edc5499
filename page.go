package lineform

import (
	"fmt"

	"go.uber.org/zap"
)

// DefaultRegionOrder is the fixed top-to-bottom region layout of a page.
var DefaultRegionOrder = []RegionID{RegionBanner, RegionNav, RegionMain, RegionStatus}

// Page is the root of the containment tree. It owns a fixed, ordered set
// of regions, each a Container; bubbled change events are converted into
// minimal redraw operations through the BufferManager instead of a
// full-screen clear.
type Page struct {
	node

	root  *Container // regions live here so bubbling and offsets reuse Container logic
	order []RegionID
	byID  map[RegionID]*Container

	bm   *BufferManager
	sink func([]Op) // external terminal writer, executes ops verbatim
}

// NewPage creates a page with the default banner/nav/main/status regions.
func NewPage(name string, log *zap.Logger) *Page {
	p := &Page{
		root:  NewContainer(name + ".root").Logger(log),
		order: DefaultRegionOrder,
		byID:  make(map[RegionID]*Container),
		bm:    NewBufferManager(DefaultRegionOrder, log),
	}
	p.node = newNode(name, log)

	for _, id := range p.order {
		region := NewContainer(string(id)).Logger(log)
		p.byID[id] = region
		// regions are fixed at construction; Add cannot fail here
		if err := p.root.Add(region); err != nil {
			p.logger().Error("region setup failed", zap.Error(err))
		}
	}
	p.root.RegisterChangeListener(p.onBubbledEvent)
	p.root.adoptGuard(p.uniqueName)
	return p
}

// uniqueName enforces page-wide name uniqueness at Add time, so lookups by
// bare element name are unambiguous. The candidate's whole subtree is
// checked, since a container may arrive pre-populated.
func (p *Page) uniqueName(el Element) error {
	existing := make(map[string]struct{})
	p.root.subtreeNames(existing)

	added := map[string]struct{}{el.Name(): {}}
	if sub, ok := el.(*Container); ok {
		sub.subtreeNames(added)
	}
	for name := range added {
		if _, dup := existing[name]; dup {
			return structuralf(el.Name(), "name %q already in use on page %q", name, p.name)
		}
	}
	return nil
}

// OnOps sets the sink that receives redraw operations for the external
// terminal writer.
func (p *Page) OnOps(sink func([]Op)) *Page {
	p.sink = sink
	return p
}

// Region returns the container for a top-level region.
func (p *Page) Region(id RegionID) *Container {
	return p.byID[id]
}

// BufferManager exposes the page's buffer bookkeeping.
func (p *Page) BufferManager() *BufferManager {
	return p.bm
}

// onBubbledEvent converts a bubbled region change into redraw operations.
// The absolute affected row range is the region's cached start offset plus
// the changed element's offset within the region.
func (p *Page) onBubbledEvent(ev *ChangeEvent) error {
	p.dirty = true
	if !p.visible {
		return nil
	}

	source := ev.Element
	if s, ok := ev.Meta["source"]; ok {
		source = s
	}

	id, region := p.regionOf(source)
	if region == nil {
		return nil
	}

	rel := 0
	if region.Name() != source {
		if off, ok := region.OffsetOf(source); ok {
			rel = off
		}
	}

	delta := region.BufferChanges(rel)
	ops, err := p.bm.ApplyDelta(id, delta, region.RenderLines())
	if err != nil {
		return err
	}
	region.MarkRendered()
	if p.sink != nil && len(ops) > 0 {
		p.sink(ops)
	}
	return nil
}

// regionOf finds the region that contains the named element.
func (p *Page) regionOf(name string) (RegionID, *Container) {
	for _, id := range p.order {
		region := p.byID[id]
		if region.Name() == name {
			return id, region
		}
		if _, ok := region.OffsetOf(name); ok {
			return id, region
		}
	}
	return "", nil
}

// FullRender concatenates all visible regions' lines, resynchronizes the
// buffer offsets and marks the tree rendered. Used for the initial draw
// and after scroll fallbacks; incremental updates flow through OnOps.
func (p *Page) FullRender() []string {
	lines := p.RenderLines()

	counts := make(map[RegionID]int, len(p.order))
	for _, id := range p.order {
		counts[id] = len(p.byID[id].RenderLines())
	}
	p.bm.SyncFull(counts)
	p.MarkRendered()
	return lines
}

// BufferPosition returns the absolute row of the named element, or -1
// when the element is not on the page. Names are unique page-wide
// (enforced at Add), so the lookup is unambiguous. FormNavigator uses
// this to activate a component at its true buffer position.
func (p *Page) BufferPosition(name string) int {
	for _, id := range p.order {
		region := p.byID[id]
		start, _ := p.bm.RegionStart(id)
		if region.Name() == name {
			return start
		}
		if off, ok := region.OffsetOf(name); ok {
			return start + off
		}
	}
	return -1
}

// FitToHeight compresses regions proportionally until the page fits the
// given height. Returns false when compression cannot make it fit and the
// caller must fall back to scrolling.
func (p *Page) FitToHeight(height int) bool {
	return p.bm.Fit(height, func(id RegionID) Element { return p.byID[id] })
}

// A page is itself an element, sharing the same visibility state machine
// as containers and leaves.

func (p *Page) RenderLines() []string {
	if !p.visible {
		return nil
	}
	return p.root.RenderLines()
}

func (p *Page) SpaceRequirements() SpaceRequirement {
	if !p.visible {
		return SpaceRequirement{}
	}
	return p.root.SpaceRequirements()
}

func (p *Page) BufferChanges(relStart int) BufferDelta {
	return p.bufferChanges(relStart, len(p.RenderLines()))
}

func (p *Page) CanCompressTo(n int) bool {
	return p.visible && p.root.CanCompressTo(n)
}

func (p *Page) CompressTo(n int) error {
	if !p.CanCompressTo(n) {
		return fmt.Errorf("page %q cannot compress to %d lines", p.name, n)
	}
	return p.root.CompressTo(n)
}

func (p *Page) Decompress() {
	p.root.Decompress()
}

func (p *Page) Show() {
	if p.visible {
		return
	}
	p.visible = true
	p.fireChange(ChangeVisibility, p.root.SpaceRequirements().Current, nil)
}

func (p *Page) Hide() {
	if !p.visible {
		return
	}
	old := p.root.SpaceRequirements().Current
	p.visible = false
	p.fireChange(ChangeVisibility, -old, nil)
}

func (p *Page) Dirty() bool {
	return p.dirty || p.root.Dirty()
}

func (p *Page) MarkRendered() {
	p.markRendered(len(p.RenderLines()))
	p.root.MarkRendered()
}
