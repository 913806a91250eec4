package machine

import (
	"context"

	"github.com/coreradius/statengine"
)

// Kind names a decoded packet's protocol sub-protocol. Only Authentication
// ever touches the state table; authorization and accounting packets never
// carry or consult a conversation token.
type Kind int

const (
	Authentication Kind = iota
	Authorization
	Accounting
)

// DecodeResult is the external codec's verdict on a raw inbound packet.
type DecodeResult struct {
	OK          bool
	ClientAbort bool
	Err         error
}

// Decoder decodes a raw inbound packet. Wire parsing itself lives outside
// this package; this is the seam the machine calls into it through.
type Decoder interface {
	Decode(ctx context.Context, raw []byte) DecodeResult
}

// Sender encodes and transmits a reply.
type Sender interface {
	Send(ctx context.Context, reply *Reply, req *Request, secret []byte) error
}

// Section is an opaque compiled policy block (`recv X`, `process X`,
// `send X`); the machine never inspects its contents.
type Section any

// SectionResolver resolves a named policy section for a given virtual-server
// scope and (name1, name2) pair, returning false if none is configured.
type SectionResolver interface {
	Resolve(scope, name1, name2 string) (Section, bool)
}

// Interpreter pushes and resumes policy sections against a Request,
// possibly yielding.
type Interpreter interface {
	// Push frames section for execution. defaultVerdict is returned by
	// Resume if the section runs to completion without an explicit
	// return code; frameMode is interpreter-specific and opaque here.
	Push(section Section, defaultVerdict Verdict, frameMode int)

	// Resume continues interpretation and returns the next Verdict, which
	// may be VerdictYield — a cooperative suspension point the caller must
	// resume later by calling Resume again.
	Resume(req *Request) Verdict
}

// Reply is the outbound packet together with the metadata the termination
// disposition and Sender care about.
type Reply struct {
	Packet *statengine.Packet
	SentAt int64 // unix seconds; stamped by Machine using its Clock collaborator
}
