package statengine

import "testing"

func TestArenaReleaseRunsDestructorsInReverseOrder(t *testing.T) {
	a := NewArena()

	var order []int
	a.Track(func() { order = append(order, 1) })
	a.Track(func() { order = append(order, 2) })
	a.Track(func() { order = append(order, 3) })

	a.Release()

	want := []int{3, 2, 1}
	if len(order) != len(want) {
		t.Fatalf("expected %d destructor calls, got %d", len(want), len(order))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("destructor order = %v, want %v", order, want)
		}
	}
}

func TestArenaReleaseIsIdempotent(t *testing.T) {
	a := NewArena()

	calls := 0
	a.Track(func() { calls++ })

	a.Release()
	a.Release()

	if calls != 1 {
		t.Fatalf("expected destructor to run exactly once, ran %d times", calls)
	}
	if !a.Released() {
		t.Fatal("expected arena to report released")
	}
}

func TestArenaTrackAfterReleaseRunsImmediately(t *testing.T) {
	a := NewArena()
	a.Release()

	ran := false
	a.Track(func() { ran = true })

	if !ran {
		t.Fatal("expected destructor registered after Release to run immediately")
	}
}
