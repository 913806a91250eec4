package statengine

import "time"

// Entry is one row of the State Table: a record binding a Token to its
// Arena, attribute bundle, side data, attempt counter and expiry.
//
// Once an Entry's payload is attached it is not mutated in place while it's
// table-resident: SaveToState fills a freshly created entry's
// Arena/Attributes/SideData once, under the table mutex, right after Create
// links it; after that the payload may only be moved *out* by the Hand-off
// API (detaching the entry's payload, not the entry itself).
type Entry struct {
	// ID is a monotonically increasing identifier assigned at creation,
	// for diagnostics only.
	ID int64

	// Token is the 16-octet conversation identifier.
	Token Token

	// Expiry is set to now+timeout at creation.
	Expiry time.Time

	// Attempt is incremented on each carry-forward.
	Attempt int

	// Arena owns every Attribute and SideDatum parented to it; nil once
	// RestoreFromState has moved it out.
	Arena *Arena

	// Attributes is the ordered attribute-value bundle; every element is
	// owned by Arena.
	Attributes []Attribute

	// SideData is the out-of-band, module-private scratch store; every
	// datum is owned by Arena.
	SideData map[string]SideDatum
}

// HasSideData reports whether the entry still carries any side data. Create
// uses this to decide whether a prior entry with nothing left to carry
// forward may be unlinked immediately.
func (e *Entry) HasSideData() bool {
	return len(e.SideData) > 0
}

// release frees everything the entry still owns. Must be called outside any
// table lock: destructors can be expensive, and the lock only ever guards
// pointer bookkeeping.
func (e *Entry) release() {
	if e.Arena != nil {
		e.Arena.Release()
	}
}
