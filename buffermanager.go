package lineform

import (
	"fmt"

	"go.uber.org/zap"
)

// Op is one redraw operation for the external terminal writer, executed
// verbatim in order. Rows are absolute and zero-based.
type Op struct {
	Row   int
	Text  string // content to write at Row; ignored when Clear is set
	Clear bool   // clear the row instead of writing
}

// RegionID identifies a fixed top-level page region.
type RegionID string

const (
	RegionBanner RegionID = "banner"
	RegionNav    RegionID = "nav"
	RegionMain   RegionID = "main"
	RegionStatus RegionID = "status"
)

type regionState struct {
	id    RegionID
	start int // absolute row of the region's first line
	lines int // line count at last render
}

// BufferManager converts region buffer deltas into minimal redraw
// operations. It tracks, per region, the last-rendered line count and the
// absolute start offset; when a region grows or shrinks, every subsequent
// region's cached offset is shifted by the space change so later deltas
// stay correct.
type BufferManager struct {
	regions []*regionState
	byID    map[RegionID]*regionState
	log     *zap.Logger
}

// NewBufferManager creates a manager for the given region order.
func NewBufferManager(order []RegionID, log *zap.Logger) *BufferManager {
	if log == nil {
		log = zap.NewNop()
	}
	bm := &BufferManager{byID: make(map[RegionID]*regionState), log: log}
	for _, id := range order {
		rs := &regionState{id: id}
		bm.regions = append(bm.regions, rs)
		bm.byID[id] = rs
	}
	return bm
}

// RegionStart returns the cached absolute start row of a region.
func (bm *BufferManager) RegionStart(id RegionID) (int, bool) {
	rs, ok := bm.byID[id]
	if !ok {
		return 0, false
	}
	return rs.start, true
}

// RegionLines returns the cached line count of a region.
func (bm *BufferManager) RegionLines(id RegionID) (int, bool) {
	rs, ok := bm.byID[id]
	if !ok {
		return 0, false
	}
	return rs.lines, true
}

// TotalLines returns the cached page height in lines.
func (bm *BufferManager) TotalLines() int {
	total := 0
	for _, rs := range bm.regions {
		total += rs.lines
	}
	return total
}

// SyncFull records a full render: region line counts are taken as given
// and start offsets are rebuilt cumulatively.
func (bm *BufferManager) SyncFull(counts map[RegionID]int) {
	row := 0
	for _, rs := range bm.regions {
		rs.start = row
		rs.lines = counts[rs.id]
		row += rs.lines
	}
}

// ApplyDelta converts one region's buffer delta into redraw operations:
// rewrite from the first changed row through the region's new end, clear
// rows orphaned by a shrink, then shift the cached offsets of every
// subsequent region by the space change.
func (bm *BufferManager) ApplyDelta(id RegionID, delta BufferDelta, lines []string) ([]Op, error) {
	rs, ok := bm.byID[id]
	if !ok {
		return nil, fmt.Errorf("unknown region %q", id)
	}
	if delta.OldLines != rs.lines {
		bm.log.Debug("delta snapshot disagrees with cached region size",
			zap.String("region", string(id)),
			zap.Int("cached", rs.lines),
			zap.Int("delta", delta.OldLines))
	}

	var ops []Op
	for row := delta.Start; row < delta.NewLines; row++ {
		text := ""
		if row < len(lines) {
			text = lines[row]
		}
		ops = append(ops, Op{Row: rs.start + row, Text: text})
	}
	for row := delta.NewLines; row < delta.OldLines; row++ {
		ops = append(ops, Op{Row: rs.start + row, Clear: true})
	}

	if change := delta.SpaceChange(); change != 0 {
		seen := false
		for _, other := range bm.regions {
			if other == rs {
				seen = true
				continue
			}
			if seen {
				other.start += change
			}
		}
	}
	rs.lines = delta.NewLines

	return ops, nil
}

// Fit asks regions to shrink proportionally until the page fits within
// height lines. Returns false when even fully compressed regions exceed
// the viewport, in which case the caller falls back to scrolling.
func (bm *BufferManager) Fit(height int, region func(RegionID) Element) bool {
	total := 0
	reducible := 0
	for _, rs := range bm.regions {
		el := region(rs.id)
		if el == nil || !el.Visible() {
			continue
		}
		req := el.SpaceRequirements()
		total += req.Current
		reducible += req.Current - req.Min
	}
	if total <= height {
		return true
	}

	deficit := total - height
	exhausted := deficit > reducible

	// distribute the deficit proportionally to each region's slack
	remaining := deficit
	for _, rs := range bm.regions {
		if remaining <= 0 || reducible <= 0 {
			break
		}
		el := region(rs.id)
		if el == nil || !el.Visible() {
			continue
		}
		req := el.SpaceRequirements()
		slack := req.Current - req.Min
		if slack <= 0 {
			continue
		}

		cut := (deficit*slack + reducible - 1) / reducible // ceil
		if cut > slack {
			cut = slack
		}
		if cut > remaining {
			cut = remaining
		}
		target := req.Current - cut
		if !el.CanCompressTo(target) {
			continue
		}
		if err := el.CompressTo(target); err != nil {
			bm.log.Warn("region compression failed",
				zap.String("region", string(rs.id)),
				zap.Error(err))
			continue
		}
		remaining -= cut
	}

	return !exhausted && remaining <= 0
}
