package statengine

import (
	"container/list"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
)

// StateTable is the concurrent, bounded, time-expiring container keyed by
// Token: a lookup map plus a doubly-linked expiry queue, a single mutex
// guarding both plus the id counter, and a configurable upper bound.
type StateTable struct {
	mu     sync.Mutex
	index  map[Token]*list.Element // -> *Entry
	order  *list.List              // FIFO by expiry
	nextID int64

	maxSessions int
	timeout     time.Duration
	seed        *uint8

	clock  clock.Clock
	logger zerolog.Logger
}

// NewStateTable constructs a State Table. If parent is non-nil, the table
// registers Close as a destructor on it, so releasing parent reclaims every
// entry still in the table.
func NewStateTable(parent *Arena, cfg Config, opts ...Option) (*StateTable, error) {
	if cfg.MaxSessions <= 0 {
		return nil, fmt.Errorf("statengine: max sessions must be positive: %w", ErrAlloc)
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("statengine: timeout must be positive: %w", ErrAlloc)
	}

	t := &StateTable{
		index:       make(map[Token]*list.Element),
		order:       list.New(),
		maxSessions: cfg.MaxSessions,
		timeout:     time.Duration(cfg.Timeout) * time.Second,
		seed:        cfg.Seed,
		clock:       clock.New(),
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}

	if parent != nil {
		parent.Track(t.Close)
	}

	return t, nil
}

// Size returns the number of live entries. Intended for diagnostics and
// tests; callers driving the protocol never need it directly.
func (t *StateTable) Size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.size()
}

// size returns len(t.index). Caller must hold t.mu.
func (t *StateTable) size() int {
	return len(t.index)
}

// find looks up tok. Caller must hold t.mu. The returned Entry is only
// valid to read while the mutex is held.
func (t *StateTable) find(tok Token) (*Entry, *list.Element) {
	elem, ok := t.index[tok]
	if !ok {
		return nil, nil
	}
	return elem.Value.(*Entry), elem
}

// unlink removes elem from both the expiry queue and the lookup index and
// returns its Entry. Caller must hold t.mu. A given *list.Element must be
// unlinked at most once; unlinking it twice is a caller bug, not something
// unlink guards against.
//
// The index lookup is purely a consistency check: every caller already holds
// an elem it got from the index or the expiry queue, so a miss here means the
// two structures have drifted apart. unlink still completes the removal
// either way (there's nothing sane left to do with a *list.Element once
// you've decided to discard it) but reports the drift so the caller can log
// it instead of it passing unnoticed.
func (t *StateTable) unlink(elem *list.Element) (*Entry, error) {
	entry := elem.Value.(*Entry)
	_, present := t.index[entry.Token]
	err := checkInvariant(present, "unlink: token not present in index")
	t.order.Remove(elem)
	delete(t.index, entry.Token)
	return entry, err
}

// logUnlinkErr reports an unlink consistency error. In debug builds
// checkInvariant already panicked before returning one; this only fires in
// release builds, where the violation is downgraded to a logged ErrAlloc.
func (t *StateTable) logUnlinkErr(err error) {
	if err != nil {
		t.logger.Error().Err(err).Msg("state table consistency check failed during unlink")
	}
}

// reap moves every entry at the head of the expiry queue whose expiry has
// passed into toFree, stopping at the first live entry (the queue is kept in
// expiry order). Caller must hold t.mu.
func (t *StateTable) reap(now time.Time, toFree *[]*Entry) {
	for {
		front := t.order.Front()
		if front == nil {
			return
		}
		entry := front.Value.(*Entry)
		if entry.Expiry.After(now) {
			return
		}
		_, err := t.unlink(front)
		t.logUnlinkErr(err)
		*toFree = append(*toFree, entry)
	}
}

func freeAll(entries []*Entry) {
	for _, e := range entries {
		e.release()
	}
}

// DiscardByToken removes and releases the entry named by tok, if any. No
// error on miss; a second call for the same token is a no-op.
func (t *StateTable) DiscardByToken(tok Token) {
	t.mu.Lock()
	entry, elem := t.find(tok)
	if entry == nil {
		t.mu.Unlock()
		return
	}
	_, err := t.unlink(elem)
	t.mu.Unlock()
	t.logUnlinkErr(err)

	entry.release()
}

// Close walks every remaining entry, unlinking and releasing each,
// reclaiming the whole table. Idempotent.
func (t *StateTable) Close() {
	t.mu.Lock()
	var toFree []*Entry
	for elem := t.order.Front(); elem != nil; elem = elem.Next() {
		toFree = append(toFree, elem.Value.(*Entry))
	}
	t.index = make(map[Token]*list.Element)
	t.order = list.New()
	t.mu.Unlock()

	freeAll(toFree)
}

// CreateParams bundles Create's inputs.
type CreateParams struct {
	// PresetToken, if non-nil, is a State attribute value of exactly
	// TokenLength already present on the packet passed to Create; it is
	// copied verbatim instead of generated.
	PresetToken *Token

	// PresetTruncatedFrom is >0 if PresetToken was truncated down from a
	// longer wire value.
	PresetTruncatedFrom int

	// Prior is the entry this round is carrying forward from, if any.
	Prior *Entry
}

// Create mints a new Entry: reap expired entries, admission-check, snapshot
// the prior entry's identity, release the mutex, allocate the new entry and
// free the reaped entries unlocked, re-acquire the mutex, re-check the
// bound, insert and link at the tail. The expensive parts — destructor runs
// and the new allocation — happen outside the lock on purpose.
func (t *StateTable) Create(params CreateParams) (*Entry, error) {
	t.mu.Lock()
	now := t.clock.Now()

	var toFree []*Entry
	t.reap(now, &toFree)

	if t.size() >= t.maxSessions {
		t.mu.Unlock()
		freeAll(toFree)
		return nil, ErrTableFull
	}

	var priorAttempt int
	havePrior := params.Prior != nil
	if havePrior {
		priorAttempt = params.Prior.Attempt
		if !params.Prior.HasSideData() {
			if elem, ok := t.index[params.Prior.Token]; ok && elem.Value.(*Entry) == params.Prior {
				_, err := t.unlink(elem)
				t.logUnlinkErr(err)
				toFree = append(toFree, params.Prior)
			}
		}
	}

	t.mu.Unlock()

	freeAll(toFree)

	entry := &Entry{}

	var tok Token
	switch {
	case params.PresetToken != nil:
		if params.PresetTruncatedFrom > TokenLength {
			t.logger.Warn().
				Int("length", params.PresetTruncatedFrom).
				Msg("state attribute longer than 16 octets, truncating")
		}
		tok = *params.PresetToken
		if havePrior {
			entry.Attempt = priorAttempt + 1
		}

	case havePrior:
		entry.Attempt = priorAttempt + 1
		gen, err := GenerateToken(entry.Attempt, t.seed)
		if err != nil {
			return nil, err
		}
		tok = gen

	default:
		gen, err := GenerateToken(0, t.seed)
		if err != nil {
			return nil, err
		}
		tok = gen
	}

	entry.Token = tok

	t.mu.Lock()
	if t.size() >= t.maxSessions {
		t.mu.Unlock()
		return nil, ErrTableFull
	}
	if _, exists := t.index[tok]; exists {
		t.mu.Unlock()
		return nil, ErrDuplicateToken
	}

	t.nextID++
	entry.ID = t.nextID
	entry.Expiry = t.clock.Now().Add(t.timeout)

	elem := t.order.PushBack(entry)
	t.index[tok] = elem
	t.mu.Unlock()

	return entry, nil
}
