package lineform

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
)

// leaf carries the spatial bookkeeping shared by every leaf element.
// Concrete leaves provide lines, the uncompressed display lines for the
// current state; leaf handles visibility, compression and deltas.
type leaf struct {
	node

	// slack is the extra Max headroom reserved beyond the uncompressed
	// line count. Interactive leaves reserve room for validation text.
	slack int

	// compressed is the degraded-rendering target, 0 when uncompressed.
	compressed int

	// lines returns the uncompressed display lines, visibility ignored.
	lines func() []string

	// compressTail, when set, replaces the final kept line during
	// compression (e.g. a "(+N more)" marker for truncated lists).
	compressTail func(cut int) string
}

func (l *leaf) uncompressed() []string {
	return l.lines()
}

// RenderLines returns the display lines, empty when hidden, truncated to
// the compression target when one is set.
func (l *leaf) RenderLines() []string {
	if !l.visible {
		return nil
	}
	out := l.uncompressed()
	if l.compressed > 0 && len(out) > l.compressed {
		cut := len(out) - l.compressed
		out = append([]string(nil), out[:l.compressed]...)
		if l.compressTail != nil {
			out[len(out)-1] = l.compressTail(cut)
		} else {
			out[len(out)-1] += " …"
		}
	}
	return out
}

func (l *leaf) currentLines() int {
	return len(l.RenderLines())
}

func (l *leaf) SpaceRequirements() SpaceRequirement {
	if !l.visible {
		return SpaceRequirement{}
	}
	full := len(l.uncompressed())
	return NewSpaceRequirement(1, l.currentLines(), full+l.slack, full)
}

func (l *leaf) BufferChanges(relStart int) BufferDelta {
	return l.bufferChanges(relStart, l.currentLines())
}

func (l *leaf) CanCompressTo(n int) bool {
	return l.visible && n >= 1 && n <= len(l.uncompressed())
}

func (l *leaf) CompressTo(n int) error {
	if !l.CanCompressTo(n) {
		return fmt.Errorf("element %q cannot compress to %d lines", l.name, n)
	}
	old := l.currentLines()
	l.compressed = n
	l.fireChange(ChangeContent, l.currentLines()-old, nil)
	return nil
}

func (l *leaf) Decompress() {
	if l.compressed == 0 {
		return
	}
	old := l.currentLines()
	l.compressed = 0
	l.fireChange(ChangeContent, l.currentLines()-old, nil)
}

func (l *leaf) Show() {
	if l.visible {
		return
	}
	l.visible = true
	l.fireChange(ChangeVisibility, l.currentLines(), nil)
}

func (l *leaf) Hide() {
	if !l.visible {
		return
	}
	old := l.currentLines()
	l.visible = false
	l.fireChange(ChangeVisibility, -old, nil)
}

func (l *leaf) MarkRendered() {
	l.markRendered(l.currentLines())
}

// styled renders s through st when one is set, otherwise returns s as-is.
// Styles default to nil so rendered lines stay plain text unless the
// caller opts in.
func styled(st *lipgloss.Style, s string) string {
	if st == nil {
		return s
	}
	return st.Render(s)
}

// ============================================================================
// Static
// ============================================================================

// Static is a display-only text block. It wraps to the configured width
// and compresses by truncating trailing lines.
type Static struct {
	leaf
	text  string
	width int
	style *lipgloss.Style
}

// NewStatic creates a static text block.
func NewStatic(name, text string) *Static {
	s := &Static{text: text}
	s.node = newNode(name, nil)
	s.lines = s.build
	return s
}

// Width sets the wrap width in display cells. Zero disables wrapping.
func (s *Static) Width(w int) *Static {
	s.width = w
	return s
}

// Style sets a lipgloss style applied to every line.
func (s *Static) Style(st lipgloss.Style) *Static {
	s.style = &st
	return s
}

// Logger sets the logger used for listener failures.
func (s *Static) Logger(log *zap.Logger) *Static {
	s.log = log
	return s
}

func (s *Static) build() []string {
	out := wrapText(s.text, s.width)
	for i := range out {
		out[i] = styled(s.style, out[i])
	}
	return out
}

// SetText replaces the text, firing a content event with the line delta.
func (s *Static) SetText(text string) {
	old := s.currentLines()
	s.text = text
	s.fireChange(ChangeContent, s.currentLines()-old, nil)
}

// Text returns the current text.
func (s *Static) Text() string { return s.text }

// ============================================================================
// Field
// ============================================================================

// Field is an interactive single-value input. The rendered block is the
// prompt line (wrapped to the configured width), an input hint line while
// active, and a validation line when the value fails validation.
type Field struct {
	leaf

	label       string
	value       string
	placeholder string
	secret      bool
	width       int
	validate    func(string) error
	validation  string // current validation message, empty when valid

	active    bool
	bufferRow int

	labelStyle  *lipgloss.Style
	activeStyle *lipgloss.Style
	errorStyle  *lipgloss.Style
}

// NewField creates an interactive input field.
//
// usage:
//
//	email := NewField("email", "Email").
//	    Placeholder("you@example.com").
//	    Validate(func(s string) error { ... })
func NewField(name, label string) *Field {
	f := &Field{label: label}
	f.node = newNode(name, nil)
	f.slack = 2 // hint + validation headroom
	f.lines = f.build
	return f
}

// Placeholder sets the text shown while the value is empty.
func (f *Field) Placeholder(p string) *Field {
	f.placeholder = p
	return f
}

// Width sets the wrap width for the prompt line. Zero disables wrapping.
func (f *Field) Width(w int) *Field {
	f.width = w
	return f
}

// Secret masks the value when rendering.
func (f *Field) Secret() *Field {
	f.secret = true
	return f
}

// Validate sets the validation hook run on every SetValue.
func (f *Field) Validate(fn func(string) error) *Field {
	f.validate = fn
	return f
}

// LabelStyle sets the style for the prompt line.
func (f *Field) LabelStyle(st lipgloss.Style) *Field {
	f.labelStyle = &st
	return f
}

// ActiveStyle sets the style for the prompt line while active.
func (f *Field) ActiveStyle(st lipgloss.Style) *Field {
	f.activeStyle = &st
	return f
}

// ErrorStyle sets the style for the validation line.
func (f *Field) ErrorStyle(st lipgloss.Style) *Field {
	f.errorStyle = &st
	return f
}

// Logger sets the logger used for listener failures.
func (f *Field) Logger(log *zap.Logger) *Field {
	f.log = log
	return f
}

func (f *Field) build() []string {
	display := f.value
	if f.secret && display != "" {
		display = strings.Repeat("*", len([]rune(display)))
	}
	if display == "" {
		display = f.placeholder
	}

	marker := "  "
	if f.active {
		marker = "▸ "
	}
	head := marker + f.label + ": " + display

	out := wrapText(head, f.width)
	st := f.labelStyle
	if f.active && f.activeStyle != nil {
		st = f.activeStyle
	}
	for i := range out {
		out[i] = styled(st, out[i])
	}

	if f.active {
		out = append(out, "  enter accepts · esc cancels")
	}
	if f.validation != "" {
		out = append(out, styled(f.errorStyle, "  ✗ "+f.validation))
	}
	return out
}

// IsInteractive reports that the field accepts input.
func (f *Field) IsInteractive() bool { return true }

// Active reports whether the field currently holds input focus.
func (f *Field) Active() bool { return f.active }

// ActivateForInput switches to focused rendering at the given buffer row.
func (f *Field) ActivateForInput(bufferRow int) {
	if f.active {
		return
	}
	old := f.currentLines()
	f.active = true
	f.bufferRow = bufferRow
	f.fireChange(ChangeState, f.currentLines()-old, nil)
}

// Deactivate leaves focused rendering.
func (f *Field) Deactivate() {
	if !f.active {
		return
	}
	old := f.currentLines()
	f.active = false
	f.fireChange(ChangeState, f.currentLines()-old, nil)
}

// BufferRow returns the absolute row passed to the last activation.
func (f *Field) BufferRow() int { return f.bufferRow }

// SetValue replaces the value, runs validation, and fires a content event
// reflecting any wrapping or validation-line growth.
func (f *Field) SetValue(v string) {
	old := f.currentLines()
	f.value = v
	f.validation = ""
	if f.validate != nil {
		if err := f.validate(v); err != nil {
			f.validation = err.Error()
		}
	}
	f.fireChange(ChangeContent, f.currentLines()-old, nil)
}

// Value returns the current value.
func (f *Field) Value() string { return f.value }

// ValidationError returns the current validation message, empty when valid.
func (f *Field) ValidationError() string { return f.validation }

// Prompt describes the field to the prompt backend.
func (f *Field) Prompt() PromptRequest {
	return PromptRequest{
		Name:        f.name,
		Label:       f.label,
		Placeholder: f.placeholder,
		Initial:     f.value,
		Secret:      f.secret,
	}
}

// ============================================================================
// Select
// ============================================================================

// Select is an interactive choice field. While inactive it renders a
// single summary line; while active the option list is shown below it.
// Compression truncates the option list with a "(+N more)" marker.
type Select struct {
	leaf

	label    string
	options  []string
	selected int

	active    bool
	bufferRow int

	labelStyle  *lipgloss.Style
	activeStyle *lipgloss.Style
}

// NewSelect creates a choice field over the given options.
func NewSelect(name, label string, options ...string) *Select {
	s := &Select{label: label, options: options}
	s.node = newNode(name, nil)
	s.slack = 1 // validation headroom
	s.lines = s.build
	s.compressTail = func(cut int) string {
		return fmt.Sprintf("  … (+%d more)", cut+1)
	}
	return s
}

// LabelStyle sets the style for the summary line.
func (s *Select) LabelStyle(st lipgloss.Style) *Select {
	s.labelStyle = &st
	return s
}

// ActiveStyle sets the style for the summary line while active.
func (s *Select) ActiveStyle(st lipgloss.Style) *Select {
	s.activeStyle = &st
	return s
}

// Logger sets the logger used for listener failures.
func (s *Select) Logger(log *zap.Logger) *Select {
	s.log = log
	return s
}

func (s *Select) build() []string {
	marker := "  "
	if s.active {
		marker = "▸ "
	}
	st := s.labelStyle
	if s.active && s.activeStyle != nil {
		st = s.activeStyle
	}

	out := []string{styled(st, marker+s.label+": "+s.Value())}
	if s.active {
		for i, opt := range s.options {
			led := "○"
			if i == s.selected {
				led = "●"
			}
			out = append(out, "  "+led+" "+opt)
		}
	}
	return out
}

// IsInteractive reports that the select accepts input.
func (s *Select) IsInteractive() bool { return true }

// Active reports whether the select currently holds input focus.
func (s *Select) Active() bool { return s.active }

// ActivateForInput expands the option list at the given buffer row.
func (s *Select) ActivateForInput(bufferRow int) {
	if s.active {
		return
	}
	old := s.currentLines()
	s.active = true
	s.bufferRow = bufferRow
	s.fireChange(ChangeState, s.currentLines()-old, nil)
}

// Deactivate collapses the option list.
func (s *Select) Deactivate() {
	if !s.active {
		return
	}
	old := s.currentLines()
	s.active = false
	s.fireChange(ChangeState, s.currentLines()-old, nil)
}

// BufferRow returns the absolute row passed to the last activation.
func (s *Select) BufferRow() int { return s.bufferRow }

// SetValue selects the option matching v. Unknown values are ignored.
func (s *Select) SetValue(v string) {
	for i, opt := range s.options {
		if opt == v {
			old := s.currentLines()
			s.selected = i
			s.fireChange(ChangeContent, s.currentLines()-old, nil)
			return
		}
	}
}

// Value returns the selected option, empty when there are none.
func (s *Select) Value() string {
	if s.selected < 0 || s.selected >= len(s.options) {
		return ""
	}
	return s.options[s.selected]
}

// Prompt describes the choice to the prompt backend.
func (s *Select) Prompt() PromptRequest {
	return PromptRequest{
		Name:    s.name,
		Label:   s.label,
		Initial: s.Value(),
		Options: append([]string(nil), s.options...),
	}
}

// ============================================================================
// Custom
// ============================================================================

// Custom wraps a user-supplied render function. A panic or error inside
// the function is recovered into a one-line placeholder; the element stays
// dirty so the next render retries, and siblings are unaffected.
type Custom struct {
	leaf
	render func() ([]string, error)
	failed bool
}

// NewCustom creates a leaf rendered by the given function.
func NewCustom(name string, render func() ([]string, error)) *Custom {
	c := &Custom{render: render}
	c.node = newNode(name, nil)
	c.lines = c.build
	return c
}

// Logger sets the logger used for render and listener failures.
func (c *Custom) Logger(log *zap.Logger) *Custom {
	c.log = log
	return c
}

func (c *Custom) build() []string {
	lines, err := c.safeRender()
	if err != nil {
		c.failed = true
		c.logger().Warn("render failed, substituting placeholder",
			zap.String("element", c.name),
			zap.Error(err))
		return []string{"⚠ " + c.name + ": render failed"}
	}
	c.failed = false
	if len(lines) == 0 {
		lines = []string{""}
	}
	return lines
}

func (c *Custom) safeRender() (lines []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render panic: %v", r)
		}
	}()
	return c.render()
}

// MarkRendered keeps the element dirty while its render function fails so
// the next pass retries instead of caching the placeholder.
func (c *Custom) MarkRendered() {
	c.leaf.MarkRendered()
	if c.failed {
		c.dirty = true
	}
}
