package statengine

import "errors"

// Error kinds surfaced by the core. Callers should use errors.Is against
// these sentinels rather than comparing error strings.
var (
	// ErrTableFull is returned by Create when the table is at max_sessions
	// capacity.
	ErrTableFull = errors.New("statengine: table full")

	// ErrDuplicateToken is returned when a caller-supplied token collides
	// with an existing entry; surfaced to callers as TABLE_FULL-equivalent.
	ErrDuplicateToken = errors.New("statengine: duplicate token")

	// ErrDecodeFail signals the external decoder failed on a packet that
	// was not a client abort; the machine still sends a reply.
	ErrDecodeFail = errors.New("statengine: decode failed")

	// ErrDecodeClientAbort signals the peer closed mid-packet; the machine
	// sends no reply.
	ErrDecodeClientAbort = errors.New("statengine: client aborted")

	// ErrSectionMissing signals a required policy section was not
	// configured.
	ErrSectionMissing = errors.New("statengine: policy section missing")

	// ErrSequenceWrap signals a continuation's inbound sequence number
	// would wrap past the wire limit.
	ErrSequenceWrap = errors.New("statengine: sequence number would wrap")

	// ErrAlloc signals an allocation failure, or (in release builds) an
	// internal invariant violation that would otherwise be a fatal
	// assertion in a debug build.
	ErrAlloc = errors.New("statengine: allocation failed")
)

// checkInvariant panics in debug builds when cond is false, naming the
// violated invariant; in release builds it instead returns ErrAlloc, so a
// corrupted internal structure fails loudly in development but degrades to
// a reported error in production rather than crashing the process.
func checkInvariant(cond bool, msg string) error {
	if cond {
		return nil
	}
	if debugAssertions {
		panic("statengine: invariant violated: " + msg)
	}
	return ErrAlloc
}
