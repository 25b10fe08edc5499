package lineform

import (
	"errors"
	"strings"
	"testing"
)

func TestContainerAggregate(t *testing.T) {
	t.Run("SumsVisibleChildren", func(t *testing.T) {
		c := NewContainer("section")
		mustAdd(t, c, NewStatic("a", "one line"))
		mustAdd(t, c, NewStatic("b", "two\nlines"))

		req := c.SpaceRequirements()
		if req.Current != 3 {
			t.Errorf("Current = %d, want 3", req.Current)
		}
		if req.Min != 2 {
			t.Errorf("Min = %d, want sum of child minimums", req.Min)
		}
		if !req.Valid() {
			t.Errorf("aggregate %+v invalid", req)
		}
	})

	t.Run("BorderAddsTwoLinesOfOverhead", func(t *testing.T) {
		c := NewContainer("section").Border()
		mustAdd(t, c, NewStatic("a", "one line"))
		mustAdd(t, c, NewStatic("b", "two\nlines"))

		if got := c.SpaceRequirements().Current; got != 5 {
			t.Errorf("Current = %d, want 5", got)
		}
		if got := len(c.RenderLines()); got != 5 {
			t.Errorf("RenderLines = %d, want 5", got)
		}
	})

	t.Run("TitleAddsOneLine", func(t *testing.T) {
		c := NewContainer("section").Title("Account")
		mustAdd(t, c, NewStatic("a", "one line"))
		if got := c.SpaceRequirements().Current; got != 2 {
			t.Errorf("Current = %d, want 2", got)
		}
		if lines := c.RenderLines(); lines[0] != "Account" {
			t.Errorf("heading = %q", lines[0])
		}
	})

	t.Run("TitleRidesInsideBorder", func(t *testing.T) {
		c := NewContainer("section").Border().Title("Account")
		mustAdd(t, c, NewStatic("a", "one line"))
		lines := c.RenderLines()
		if len(lines) != 3 {
			t.Fatalf("lines = %d, want 3", len(lines))
		}
		if !strings.Contains(lines[0], "Account") {
			t.Errorf("top border %q lacks the title", lines[0])
		}
	})

	t.Run("HiddenChildDoesNotCount", func(t *testing.T) {
		c := NewContainer("section")
		a := NewStatic("a", "one")
		mustAdd(t, c, a)
		mustAdd(t, c, NewStatic("b", "two\nlines"))
		a.Hide()

		if got := c.SpaceRequirements().Current; got != 2 {
			t.Errorf("Current = %d, want 2 with child hidden", got)
		}
	})
}

func TestContainerBubbling(t *testing.T) {
	t.Run("ChildHideFiresAggregatedDelta", func(t *testing.T) {
		c := NewContainer("section")
		child := NewStatic("block", "1\n2\n3\n4")
		mustAdd(t, c, child)
		deltas := collectDeltas(c)

		child.Hide()
		child.Show()

		if len(*deltas) != 2 || (*deltas)[0] != -4 || (*deltas)[1] != 4 {
			t.Errorf("bubbled deltas = %v, want [-4 4]", *deltas)
		}
	})

	t.Run("BubbledEventCarriesSource", func(t *testing.T) {
		outer := NewContainer("outer")
		inner := NewContainer("inner")
		field := NewField("name", "Name")
		mustAdd(t, inner, field)
		mustAdd(t, outer, inner)

		var got *ChangeEvent
		outer.RegisterChangeListener(func(ev *ChangeEvent) error {
			got = ev
			return nil
		})

		field.SetValue("ada")
		if got == nil {
			t.Fatal("no event bubbled to outer container")
		}
		if got.Element != "outer" {
			t.Errorf("event element = %q, want the re-firing container", got.Element)
		}
		if got.Meta["source"] != "name" {
			t.Errorf("source = %q, want the originating leaf", got.Meta["source"])
		}
	})

	t.Run("SummedDeltasMatchNetChange", func(t *testing.T) {
		c := NewContainer("region")
		f := NewField("email", "Email").Validate(func(s string) error {
			if s == "" {
				return errors.New("required")
			}
			return nil
		})
		block := NewStatic("help", "line1\nline2\nline3")
		mustAdd(t, c, f)
		mustAdd(t, c, block)

		initial := c.SpaceRequirements().Current

		sum := 0
		c.RegisterChangeListener(func(ev *ChangeEvent) error {
			sum += ev.SpaceDelta
			return nil
		})

		f.ActivateForInput(0)
		f.SetValue("") // validation line appears
		f.SetValue("a@b.com")
		f.Deactivate()
		block.Hide()
		block.Show()
		if err := block.CompressTo(2); err != nil {
			t.Fatal(err)
		}

		final := c.SpaceRequirements().Current
		if sum != final-initial {
			t.Errorf("summed deltas = %d, want %d (final %d - initial %d)",
				sum, final-initial, final, initial)
		}
	})
}

func TestContainerVisibility(t *testing.T) {
	t.Run("HideZeroesWithoutTouchingChildren", func(t *testing.T) {
		c := NewContainer("section")
		a := NewStatic("a", "one\ntwo")
		mustAdd(t, c, a)

		c.Hide()
		if req := c.SpaceRequirements(); req != (SpaceRequirement{}) {
			t.Errorf("hidden aggregate = %+v, want zero", req)
		}
		if !a.Visible() {
			t.Error("hiding the container must not hide the child")
		}
	})

	t.Run("HideShowIsIdempotent", func(t *testing.T) {
		c := NewContainer("section").Border()
		mustAdd(t, c, NewStatic("a", "one\ntwo"))
		before := c.SpaceRequirements()

		deltas := collectDeltas(c)
		c.Hide()
		c.Show()

		after := c.SpaceRequirements()
		if before != after {
			t.Errorf("aggregate changed across hide/show: %+v → %+v", before, after)
		}
		if (*deltas)[0] != -before.Current || (*deltas)[1] != before.Current {
			t.Errorf("deltas = %v, want [%d %d]", *deltas, -before.Current, before.Current)
		}
	})

	t.Run("CacheRefreshedWhileHidden", func(t *testing.T) {
		c := NewContainer("section")
		a := NewStatic("a", "one\ntwo")
		mustAdd(t, c, a)

		c.Hide()
		a.SetText("one\ntwo\nthree\nfour") // mutate while the container is hidden

		deltas := collectDeltas(c)
		c.Show()
		if (*deltas)[0] != 4 {
			t.Errorf("re-show delta = %d, want 4 (cache must track hidden mutations)", (*deltas)[0])
		}
	})
}

func TestContainmentValidation(t *testing.T) {
	t.Run("RejectsNil", func(t *testing.T) {
		c := NewContainer("section")
		requireStructural(t, c.Add(nil))
	})

	t.Run("RejectsDuplicateName", func(t *testing.T) {
		c := NewContainer("section")
		mustAdd(t, c, NewStatic("a", "x"))
		requireStructural(t, c.Add(NewStatic("a", "y")))
	})

	t.Run("RejectsSecondParent", func(t *testing.T) {
		c1 := NewContainer("one")
		c2 := NewContainer("two")
		child := NewStatic("a", "x")
		mustAdd(t, c1, child)
		requireStructural(t, c2.Add(child))
	})

	t.Run("RejectsCycle", func(t *testing.T) {
		outer := NewContainer("outer")
		inner := NewContainer("inner")
		mustAdd(t, outer, inner)
		requireStructural(t, inner.Add(outer))
	})

	t.Run("RemoveDetaches", func(t *testing.T) {
		c := NewContainer("section")
		child := NewStatic("a", "x\ny")
		mustAdd(t, c, child)

		deltas := collectDeltas(c)
		if err := c.Remove("a"); err != nil {
			t.Fatal(err)
		}
		if (*deltas)[0] != -2 {
			t.Errorf("remove delta = %d, want -2", (*deltas)[0])
		}
		if c.Child("a") != nil {
			t.Error("child still indexed after Remove")
		}

		// removed child no longer bubbles
		*deltas = (*deltas)[:0]
		child.Hide()
		if len(*deltas) != 0 {
			t.Error("removed child still notifies the old parent")
		}

		// and can be re-homed
		other := NewContainer("other")
		mustAdd(t, other, child)
	})

	t.Run("RemoveUnknown", func(t *testing.T) {
		c := NewContainer("section")
		requireStructural(t, c.Remove("ghost"))
	})
}

func TestContainerCompression(t *testing.T) {
	t.Run("ShrinksLargestChildrenFirst", func(t *testing.T) {
		c := NewContainer("section")
		big := NewStatic("big", strings.Repeat("x\n", 9)+"x") // 10 lines
		small := NewStatic("small", "1\n2")                   // 2 lines
		mustAdd(t, c, big)
		mustAdd(t, c, small)

		if !c.CanCompressTo(6) {
			t.Fatal("CanCompressTo(6) = false")
		}
		if err := c.CompressTo(6); err != nil {
			t.Fatal(err)
		}
		if got := c.SpaceRequirements().Current; got != 6 {
			t.Errorf("Current = %d, want 6", got)
		}
		if got := len(small.RenderLines()); got != 2 {
			t.Errorf("small child compressed to %d lines before big was exhausted", got)
		}
	})

	t.Run("CannotGoBelowMinimums", func(t *testing.T) {
		c := NewContainer("section").Border()
		mustAdd(t, c, NewStatic("a", "1\n2\n3"))
		// min = child min (1) + border (2)
		if c.CanCompressTo(2) {
			t.Error("compressible below aggregate minimum")
		}
		if !c.CanCompressTo(3) {
			t.Error("not compressible to aggregate minimum")
		}
	})

	t.Run("DecompressRestoresChildren", func(t *testing.T) {
		c := NewContainer("section")
		a := NewStatic("a", "1\n2\n3\n4")
		mustAdd(t, c, a)
		if err := c.CompressTo(2); err != nil {
			t.Fatal(err)
		}
		c.Decompress()
		if got := c.SpaceRequirements().Current; got != 4 {
			t.Errorf("Current = %d after decompress, want 4", got)
		}
	})
}

func TestContainerFixedWidth(t *testing.T) {
	t.Run("BodyTruncatedToWidth", func(t *testing.T) {
		c := NewContainer("box").Border().Width(6)
		mustAdd(t, c, NewStatic("wide", "toolongcontent"))

		lines := c.RenderLines()
		if lines[1] != "│toolo…│" {
			t.Errorf("body line = %q, want truncated to the fixed width", lines[1])
		}
		if lines[0] != "┌"+strings.Repeat("─", 6)+"┐" {
			t.Errorf("top border = %q", lines[0])
		}
	})

	t.Run("TitleTruncatedToWidth", func(t *testing.T) {
		c := NewContainer("box").Border().Title("Extremely Long Title").Width(10)
		mustAdd(t, c, NewStatic("a", "x"))

		lines := c.RenderLines()
		if !strings.Contains(lines[0], "Extrem…") {
			t.Errorf("top border %q lacks the truncated title", lines[0])
		}
		for i, line := range lines {
			if got := maxLineWidth([]string{line}); got != 12 {
				t.Errorf("line %d is %d cells wide, want 12: %q", i, got, line)
			}
		}
	})
}

func TestContainerWidthChangeWidensDelta(t *testing.T) {
	c := NewContainer("box").Border()
	a := NewStatic("a", "short")
	mustAdd(t, c, a)
	c.MarkRendered()

	a.SetText("a considerably longer line")

	// the wider body re-pads every row, top border included
	d := c.BufferChanges(1)
	if d.Start != 0 {
		t.Errorf("delta start = %d, want 0 after a width change", d.Start)
	}

	c.MarkRendered()
	a.SetText("b considerably longer line") // same width, content only
	d = c.BufferChanges(1)
	if d.Start != 1 {
		t.Errorf("delta start = %d, want 1 when the width is unchanged", d.Start)
	}
}

func TestContainerOffsetOf(t *testing.T) {
	outer := NewContainer("outer").Border()
	inner := NewContainer("inner").Title("Inner")
	mustAdd(t, outer, NewStatic("first", "1\n2"))
	mustAdd(t, inner, NewStatic("deep", "x"))
	mustAdd(t, outer, inner)

	tests := []struct {
		name string
		want int
	}{
		{"first", 1},  // after the top border
		{"inner", 3},  // border + two lines of "first"
		{"deep", 4},   // + inner's title line
	}
	for _, tt := range tests {
		got, ok := outer.OffsetOf(tt.name)
		if !ok {
			t.Errorf("OffsetOf(%q) not found", tt.name)
			continue
		}
		if got != tt.want {
			t.Errorf("OffsetOf(%q) = %d, want %d", tt.name, got, tt.want)
		}
	}

	if _, ok := outer.OffsetOf("ghost"); ok {
		t.Error("found offset for unknown element")
	}
}

func mustAdd(t *testing.T, c *Container, el Element) {
	t.Helper()
	if err := c.Add(el); err != nil {
		t.Fatal(err)
	}
}

func requireStructural(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected a structural error")
	}
	var se *StructuralError
	if !errors.As(err, &se) {
		t.Fatalf("error %v is not a StructuralError", err)
	}
}
