// Package machine implements the per-request state machine: the phased
// driver that takes a single incoming authentication packet through RECV,
// PROCESS and SEND, attaching and detaching state-table entries via package
// statengine's Hand-off API.
package machine

// Verdict is the policy interpreter's closed-set return code. The machine's
// transition tables are exhaustive over this set.
type Verdict int

const (
	VerdictOK Verdict = iota
	VerdictUpdated
	VerdictNoop
	VerdictNotFound
	VerdictReject
	VerdictFail
	VerdictInvalid
	VerdictUserLock
	VerdictHandled
	VerdictYield
)

func (v Verdict) String() string {
	switch v {
	case VerdictOK:
		return "ok"
	case VerdictUpdated:
		return "updated"
	case VerdictNoop:
		return "noop"
	case VerdictNotFound:
		return "notfound"
	case VerdictReject:
		return "reject"
	case VerdictFail:
		return "fail"
	case VerdictInvalid:
		return "invalid"
	case VerdictUserLock:
		return "userlock"
	case VerdictHandled:
		return "handled"
	case VerdictYield:
		return "yield"
	default:
		return "unknown"
	}
}

// isFailClass reports whether v aborts RECV/PROCESS straight to SEND with a
// failure status.
func (v Verdict) isFailClass() bool {
	switch v {
	case VerdictReject, VerdictFail, VerdictInvalid, VerdictUserLock:
		return true
	default:
		return false
	}
}

// isSoft reports whether v lets RECV proceed to Auth-Type selection.
func (v Verdict) isSoft() bool {
	switch v {
	case VerdictNoop, VerdictNotFound, VerdictOK, VerdictUpdated:
		return true
	default:
		return false
	}
}
