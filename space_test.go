package lineform

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSpaceRequirement(t *testing.T) {
	t.Run("NewClampsToInvariant", func(t *testing.T) {
		tests := []struct {
			name                         string
			min, current, max, preferred int
			want                         SpaceRequirement
		}{
			{"ordered input unchanged", 1, 2, 5, 3, SpaceRequirement{1, 2, 5, 3}},
			{"current below min", 2, 1, 5, 3, SpaceRequirement{2, 2, 5, 3}},
			{"current above max", 1, 9, 5, 3, SpaceRequirement{1, 5, 5, 3}},
			{"preferred below min", 2, 3, 5, 0, SpaceRequirement{2, 3, 5, 2}},
			{"preferred above max", 1, 3, 5, 9, SpaceRequirement{1, 3, 5, 5}},
			{"max below min", 3, 3, 1, 3, SpaceRequirement{3, 3, 3, 3}},
			{"negative min", -2, 0, 4, 1, SpaceRequirement{0, 0, 4, 1}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got := NewSpaceRequirement(tt.min, tt.current, tt.max, tt.preferred)
				if got != tt.want {
					t.Errorf("got %+v, want %+v", got, tt.want)
				}
				if !got.Valid() {
					t.Errorf("clamped requirement %+v is not valid", got)
				}
			})
		}
	})

	t.Run("Valid", func(t *testing.T) {
		if !(SpaceRequirement{1, 2, 4, 3}).Valid() {
			t.Error("ordered requirement reported invalid")
		}
		if (SpaceRequirement{2, 1, 4, 3}).Valid() {
			t.Error("current < min reported valid")
		}
		if (SpaceRequirement{1, 2, 4, 5}).Valid() {
			t.Error("preferred > max reported valid")
		}
	})

	t.Run("Add", func(t *testing.T) {
		a := SpaceRequirement{1, 2, 4, 3}
		b := SpaceRequirement{2, 3, 6, 4}
		got := a.Add(b)
		want := SpaceRequirement{3, 5, 10, 7}
		if got != want {
			t.Errorf("got %+v, want %+v", got, want)
		}
	})

	t.Run("AddOverhead", func(t *testing.T) {
		got := SpaceRequirement{1, 2, 4, 3}.AddOverhead(2)
		want := SpaceRequirement{3, 4, 6, 5}
		if got != want {
			t.Errorf("got %+v, want %+v", got, want)
		}
	})
}

func TestBufferDelta(t *testing.T) {
	tests := []struct {
		name string
		d    BufferDelta
		want int
	}{
		{"growth", BufferDelta{Start: 0, OldLines: 2, NewLines: 5}, 3},
		{"shrink", BufferDelta{Start: 1, OldLines: 5, NewLines: 2}, -3},
		{"no change", BufferDelta{Start: 0, OldLines: 3, NewLines: 3}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.d.SpaceChange(); got != tt.want {
				t.Errorf("SpaceChange() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestChangeKindString(t *testing.T) {
	if ChangeContent.String() != "content" ||
		ChangeState.String() != "state" ||
		ChangeVisibility.String() != "visibility" {
		t.Error("unexpected ChangeKind strings")
	}
}

func TestEmitter(t *testing.T) {
	t.Run("NotifiesInRegistrationOrder", func(t *testing.T) {
		e := emitter{owner: "x"}
		var order []int
		for i := 1; i <= 3; i++ {
			i := i
			e.register(func(*ChangeEvent) error {
				order = append(order, i)
				return nil
			})
		}
		e.fire(&ChangeEvent{Element: "x", Kind: ChangeContent})
		if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
			t.Errorf("delivery order = %v, want [1 2 3]", order)
		}
	})

	t.Run("Unregister", func(t *testing.T) {
		e := emitter{owner: "x"}
		calls := 0
		id := e.register(func(*ChangeEvent) error { calls++; return nil })
		e.fire(&ChangeEvent{})
		e.unregister(id)
		e.fire(&ChangeEvent{})
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})

	t.Run("PanicIsolatedAndLogged", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		e := emitter{owner: "x", log: zap.New(core)}

		e.register(func(*ChangeEvent) error { panic("boom") })
		reached := false
		e.register(func(*ChangeEvent) error { reached = true; return nil })

		e.fire(&ChangeEvent{Element: "x", Kind: ChangeContent})

		if !reached {
			t.Error("listener after the panicking one was not notified")
		}
		if logs.FilterMessage("change listener failed").Len() != 1 {
			t.Error("panic was not logged")
		}
	})

	t.Run("ErrorDoesNotAbortDelivery", func(t *testing.T) {
		e := emitter{owner: "x", log: zap.NewNop()}
		e.register(func(*ChangeEvent) error { return errors.New("nope") })
		reached := false
		e.register(func(*ChangeEvent) error { reached = true; return nil })
		e.fire(&ChangeEvent{})
		if !reached {
			t.Error("listener after the failing one was not notified")
		}
	})

	t.Run("SameEventInstanceNotRedelivered", func(t *testing.T) {
		e := emitter{owner: "x", log: zap.NewNop()}
		calls := 0
		e.register(func(ev *ChangeEvent) error {
			calls++
			e.fire(ev) // re-entrant delivery of the in-flight instance
			return nil
		})
		e.fire(&ChangeEvent{Element: "x"})
		if calls != 1 {
			t.Errorf("calls = %d, want 1 (re-entrant fire must be dropped)", calls)
		}
	})

	t.Run("ListenerCanUnregisterDuringDelivery", func(t *testing.T) {
		e := emitter{owner: "x"}
		var id int
		calls := 0
		id = e.register(func(*ChangeEvent) error {
			calls++
			e.unregister(id)
			return nil
		})
		e.fire(&ChangeEvent{})
		e.fire(&ChangeEvent{})
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})
}
