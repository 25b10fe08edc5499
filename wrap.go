package lineform

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// wrapText wraps s into lines of at most width display cells, breaking on
// spaces where possible. Width <= 0 disables wrapping.
func wrapText(s string, width int) []string {
	if s == "" {
		return []string{""}
	}
	if width <= 0 {
		return strings.Split(s, "\n")
	}

	var out []string
	for _, para := range strings.Split(s, "\n") {
		out = append(out, wrapLine(para, width)...)
	}
	return out
}

func wrapLine(s string, width int) []string {
	if runewidth.StringWidth(s) <= width {
		return []string{s}
	}

	var lines []string
	var cur strings.Builder
	curWidth := 0
	lastSpace := -1 // byte offset of last breakable space in cur

	flush := func(upTo int) {
		line := cur.String()
		if upTo >= 0 && upTo < len(line) {
			lines = append(lines, line[:upTo])
			rest := strings.TrimLeft(line[upTo:], " ")
			cur.Reset()
			cur.WriteString(rest)
			curWidth = runewidth.StringWidth(rest)
		} else {
			lines = append(lines, line)
			cur.Reset()
			curWidth = 0
		}
		lastSpace = -1
	}

	for _, r := range s {
		rw := runewidth.RuneWidth(r)
		if curWidth+rw > width {
			if r == ' ' {
				// the line breaks exactly here; the space is consumed
				flush(-1)
				continue
			}
			if lastSpace >= 0 {
				flush(lastSpace)
			} else {
				flush(-1)
			}
		}
		if r == ' ' {
			lastSpace = cur.Len()
		}
		cur.WriteRune(r)
		curWidth += rw
	}
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	if len(lines) == 0 {
		lines = []string{""}
	}
	return lines
}

// truncateLine shortens s to at most width display cells, appending an
// ellipsis when anything was cut.
func truncateLine(s string, width int) string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return runewidth.Truncate(s, width-1, "") + "…"
}

// maxLineWidth returns the widest display width among the given lines.
func maxLineWidth(lines []string) int {
	max := 0
	for _, l := range lines {
		if w := runewidth.StringWidth(l); w > max {
			max = w
		}
	}
	return max
}
