package statengine

import "sync"

// Arena is a scoped allocation domain: a single Release reclaims every
// object parented to it, running destructors in reverse registration order.
// It is the independent ownership root an Entry carries so the State Table
// may outlive whatever created the arena.
//
// Arena deliberately holds no reference back to whatever owns it: ownership
// flows one way, from arena to the objects parented to it, never the
// reverse. Callers move an Arena between owners; they never share one by
// reference-counting it.
type Arena struct {
	mu          sync.Mutex
	destructors []func()
	released    bool
}

// NewArena returns a fresh, unreleased Arena.
func NewArena() *Arena {
	return &Arena{}
}

// Track parents destructor to the arena. It runs exactly once, when Release
// is called, in reverse registration order. Calling Track after Release runs
// destructor immediately, since there is no later Release left to call it.
func (a *Arena) Track(destructor func()) {
	a.mu.Lock()
	if a.released {
		a.mu.Unlock()
		destructor()
		return
	}
	a.destructors = append(a.destructors, destructor)
	a.mu.Unlock()
}

// Release runs every tracked destructor in reverse order and marks the
// arena released. Safe to call outside any lock; Release itself never
// blocks on anything but its own mutex, which is held only long enough to
// snapshot and clear the destructor list. Idempotent: a second call is a
// no-op.
func (a *Arena) Release() {
	a.mu.Lock()
	if a.released {
		a.mu.Unlock()
		return
	}
	a.released = true
	ds := a.destructors
	a.destructors = nil
	a.mu.Unlock()

	for i := len(ds) - 1; i >= 0; i-- {
		ds[i]()
	}
}

// Released reports whether Release has already run.
func (a *Arena) Released() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.released
}
