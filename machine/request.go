package machine

import (
	"github.com/coreradius/statengine"
	"github.com/google/uuid"
)

// State names the machine's phase: INIT -> RECV -> PROCESS -> SEND -> DONE,
// plus the external CANCEL signal modelled on Request.Cancel.
type State int

const (
	StateInit State = iota
	StateRecv
	StateProcess
	StateSend
	StateDone
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateRecv:
		return "recv"
	case StateProcess:
		return "process"
	case StateSend:
		return "send"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Request is a single in-flight packet driven through INIT -> RECV ->
// PROCESS -> SEND -> DONE by a Machine. It embeds statengine.Request, the
// Hand-off API's movable arena/attributes/side-data fields.
type Request struct {
	statengine.Request

	// Kind selects whether this round ever touches the state table:
	// authentication only.
	Kind Kind

	// Code names the packet kind used to resolve `recv <code>` /
	// `send <code>` sections.
	Code string

	Inbound  *statengine.Packet
	Outbound *statengine.Packet
	Raw      []byte
	Secret   []byte

	// ControlAttributes carries policy-set control attributes, including
	// any number of Auth-Type values.
	ControlAttributes []statengine.Attribute

	AuthType string

	// Status is the authentication-status attribute on the reply; empty
	// means absent.
	Status string

	SequenceNumber int
	HaveSequence   bool

	// ListenerID and SessionID feed ContinuationToken.
	ListenerID [12]byte
	SessionID  uint32

	// CorrelationID is a logging aid only, never part of the wire Token:
	// it lets log lines from the same conversation round be grouped
	// without perturbing the token's fixed byte layout.
	CorrelationID string

	phase State

	sendSectionResolved bool
	sendHasSection      bool

	canceled bool
}

// NewRequest constructs a Request in phase INIT.
func NewRequest(kind Kind, code string, inbound, outbound *statengine.Packet, raw []byte) *Request {
	return &Request{
		Kind:          kind,
		Code:          code,
		Inbound:       inbound,
		Outbound:      outbound,
		Raw:           raw,
		CorrelationID: uuid.NewString(),
		phase:         StateInit,
	}
}

// Phase reports the request's current machine state.
func (r *Request) Phase() State { return r.phase }

// Done reports whether the request has reached its terminal DONE phase.
func (r *Request) Done() bool { return r.phase == StateDone }

// Cancel requests that the machine discard any auth state and terminate at
// the next resumption, whether or not the request is currently yielded.
func (r *Request) Cancel() { r.canceled = true }
