package machine

import (
	"encoding/binary"

	"github.com/coreradius/statengine"
)

// Authentication reply statuses. The empty string models "absent".
const (
	StatusPass    = "Pass"
	StatusFail    = "Fail"
	StatusRestart = "Restart"
	StatusError   = "Error"
	StatusFollow  = "Follow"
	StatusGetUser = "Get-User"
	StatusGetPass = "Get-Pass"
	StatusGetData = "Get-Data"

	// StatusAccept and StatusReject are the Auth-Type sentinels that
	// short-circuit Auth-Type selection straight to a verdict; Reject is
	// also used as a reply status.
	StatusAccept = "Accept"
	StatusReject = "Reject"
)

// MaxContinuationSequence is the wire sequence-number wrap limit: an
// inbound continuation at this sequence number has no room for one more
// round.
const MaxContinuationSequence = 253

// terminalStatuses are the statuses that end a conversation outright,
// besides an absent status.
var terminalStatuses = map[string]bool{
	StatusPass:    true,
	StatusFail:    true,
	StatusRestart: true,
	StatusError:   true,
	StatusFollow:  true,
}

// ContinuationToken composes the protocol-specific continuation token: a
// 12-byte listener-identity prefix and a 4-byte big-endian session-id
// suffix, distinct from the random GenerateToken formula used everywhere
// else — this is the one place a Token's bytes are fully caller-determined
// rather than randomly derived.
func ContinuationToken(listenerID [12]byte, sessionID uint32) statengine.Token {
	var tok statengine.Token
	copy(tok[:12], listenerID[:])
	binary.BigEndian.PutUint32(tok[12:], sessionID)
	return tok
}

// terminationDisposition examines req.Status after the SEND section
// completes and decides discard vs. carry-forward. It is only called for
// the authentication sub-protocol.
func (m *Machine) terminationDisposition(req *Request) {
	if req.Status == "" || terminalStatuses[req.Status] {
		m.Table.Discard(&req.Request, req.Inbound)
		return
	}

	// Continuation (e.g. Get-User, Get-Pass, Get-Data).
	if !req.HaveSequence {
		// No sequence number to key the next round on: leave state
		// untouched and let send() carry the request to DONE as-is.
		return
	}

	if req.SequenceNumber == MaxContinuationSequence {
		m.Logger.Warn().
			Err(statengine.ErrSequenceWrap).
			Str("correlation_id", req.CorrelationID).
			Msg("continuation sequence number would wrap, restarting conversation")
		m.Table.Discard(&req.Request, req.Inbound)
		req.Outbound.Attributes = nil
		req.Status = StatusRestart
		return
	}

	tok := ContinuationToken(req.ListenerID, req.SessionID)
	req.Outbound.SetToken(tok)

	if err := m.Table.SaveToState(&req.Request, req.Inbound, req.Outbound); err != nil {
		m.Logger.Error().
			Err(err).
			Str("correlation_id", req.CorrelationID).
			Msg("save_to_state failed on continuation")
	}
}
