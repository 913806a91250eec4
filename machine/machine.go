package machine

import (
	"context"
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/coreradius/statengine"
	"github.com/rs/zerolog"
)

// signal reports whether a phase function suspended at a yield or ran to
// completion and transitioned phase.
type signal int

const (
	continueSignal signal = iota
	yieldSignal
)

// Machine drives Requests through the phased RECV/PROCESS/SEND pipeline,
// attaching and detaching state-table entries through the Hand-off API for
// the authentication sub-protocol only.
type Machine struct {
	Table    *statengine.StateTable
	Decoder  Decoder
	Sender   Sender
	Resolver SectionResolver
	Interp   Interpreter
	Scope    string
	Logger   zerolog.Logger
	Clock    clock.Clock
}

// Option configures a Machine.
type Option func(*Machine)

// WithLogger attaches a logger for the machine's warning/error conditions.
// The default is a no-op logger.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Machine) { m.Logger = l }
}

// WithClock overrides the clock used to stamp reply timestamps, letting
// tests control time deterministically.
func WithClock(c clock.Clock) Option {
	return func(m *Machine) { m.Clock = c }
}

// New constructs a Machine against its required collaborators.
func New(table *statengine.StateTable, decoder Decoder, sender Sender, resolver SectionResolver, interp Interpreter, scope string, opts ...Option) *Machine {
	m := &Machine{
		Table:    table,
		Decoder:  decoder,
		Sender:   sender,
		Resolver: resolver,
		Interp:   interp,
		Scope:    scope,
		Logger:   zerolog.Nop(),
		Clock:    clock.New(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Run drives req from its current phase toward DONE, returning nil as soon
// as either DONE is reached or the interpreter yields. Callers resume a
// yielded request by calling Run again with the same *Request; the
// interpreter's own stack (opaque to Machine) carries forward the
// suspended policy evaluation.
//
// A canceled Request (Request.Cancel) is routed to discard+DONE at the
// next call, whether or not it was mid-yield.
func (m *Machine) Run(ctx context.Context, req *Request) error {
	for {
		if req.canceled && req.phase != StateDone {
			if req.Kind == Authentication {
				m.Table.Discard(&req.Request, req.Inbound)
			}
			req.phase = StateDone
		}

		switch req.phase {
		case StateInit:
			m.init(ctx, req)

		case StateRecv:
			if m.recv(req) == yieldSignal {
				return nil
			}

		case StateProcess:
			if m.process(req) == yieldSignal {
				return nil
			}

		case StateSend:
			if m.send(ctx, req) == yieldSignal {
				return nil
			}

		case StateDone:
			return nil

		default:
			return fmt.Errorf("machine: unknown phase %d", req.phase)
		}
	}
}

// init decodes the raw packet, resolves the recv section, restores any
// prior conversation state, and hands off to RECV.
func (m *Machine) init(ctx context.Context, req *Request) {
	result := m.Decoder.Decode(ctx, req.Raw)

	if result.ClientAbort {
		m.Logger.Debug().
			Err(fmt.Errorf("%w: %v", statengine.ErrDecodeClientAbort, result.Err)).
			Str("correlation_id", req.CorrelationID).
			Msg("client aborted mid-packet")
		req.phase = StateDone
		return
	}
	if !result.OK {
		m.Logger.Warn().
			Err(fmt.Errorf("%w: %v", statengine.ErrDecodeFail, result.Err)).
			Str("correlation_id", req.CorrelationID).
			Msg("decode failed")
		req.phase = StateSend
		return
	}

	section, found := m.Resolver.Resolve(m.Scope, "recv", req.Code)
	if !found {
		section, found = m.Resolver.Resolve(m.Scope, "recv", "*")
	}
	if !found {
		req.phase = StateSend
		return
	}

	if req.Kind == Authentication {
		m.Table.RestoreFromState(&req.Request, req.Inbound)
	}

	m.Interp.Push(section, VerdictNoop, 0)
	req.phase = StateRecv
}

// recv resumes the recv section and, on a soft verdict, moves on to
// Auth-Type selection; fail-class and unrecognized verdicts go straight to
// SEND with a failure status.
func (m *Machine) recv(req *Request) signal {
	v := m.Interp.Resume(req)
	if v == VerdictYield {
		return yieldSignal
	}

	switch {
	case v.isFailClass():
		req.Status = StatusFail
		req.phase = StateSend
		return continueSignal

	case v == VerdictHandled:
		req.phase = StateSend
		return continueSignal

	case v.isSoft():
		// fall through to Auth-Type selection below

	default:
		req.Status = StatusFail
		req.phase = StateSend
		return continueSignal
	}

	if req.Kind != Authentication {
		req.phase = StateSend
		return continueSignal
	}

	return m.selectAuthType(req)
}

// selectAuthType picks the request's Auth-Type, handles the Accept/Reject
// sentinels, and pushes the matching process section.
func (m *Machine) selectAuthType(req *Request) signal {
	authType, ok := m.firstAuthType(req)
	if !ok {
		req.Status = StatusReject
		req.phase = StateSend
		return continueSignal
	}

	switch authType {
	case StatusAccept:
		req.Status = StatusPass
		req.phase = StateSend
		return continueSignal
	case StatusReject:
		req.Status = StatusReject
		req.phase = StateSend
		return continueSignal
	}

	section, found := m.Resolver.Resolve(m.Scope, "process", authType)
	if !found {
		m.Logger.Warn().
			Err(fmt.Errorf("%w: process %s", statengine.ErrSectionMissing, authType)).
			Str("auth_type", authType).
			Str("correlation_id", req.CorrelationID).
			Msg("process section missing")
		req.Status = StatusFail
		req.phase = StateSend
		return continueSignal
	}

	req.AuthType = authType
	m.Interp.Push(section, VerdictNoop, 0)
	req.phase = StateProcess
	return continueSignal
}

// firstAuthType scans req.ControlAttributes for Auth-Type values, returning
// the first and warning on any subsequent ones.
func (m *Machine) firstAuthType(req *Request) (string, bool) {
	var first string
	found := false

	for _, a := range req.ControlAttributes {
		if a.Name != "Auth-Type" {
			continue
		}
		val, _ := a.Value.(string)
		if !found {
			first = val
			found = true
			continue
		}
		m.Logger.Warn().
			Str("selected", first).
			Str("discarded", val).
			Str("correlation_id", req.CorrelationID).
			Msg("multiple Auth-Type attributes")
	}

	return first, found
}

// process resumes the process section. Only VerdictOK passes the
// authentication outright; VerdictHandled leaves the status whatever the
// section already set, and every other verdict — including UPDATED and
// NOOP — counts as a failed authentication attempt.
func (m *Machine) process(req *Request) signal {
	v := m.Interp.Resume(req)
	if v == VerdictYield {
		return yieldSignal
	}

	switch v {
	case VerdictOK:
		req.Status = StatusPass
	case VerdictHandled:
		// status unchanged
	default:
		req.Status = StatusFail
	}

	req.phase = StateSend
	return continueSignal
}

// send resolves and resumes the send section, then applies the
// authentication termination disposition before handing the reply to the
// Sender.
func (m *Machine) send(ctx context.Context, req *Request) signal {
	if !req.sendSectionResolved {
		req.sendSectionResolved = true

		section, found := m.Resolver.Resolve(m.Scope, "send", req.Code)
		if !found {
			section, found = m.Resolver.Resolve(m.Scope, "send", "*")
		}
		if found {
			req.sendHasSection = true
			m.Interp.Push(section, VerdictNoop, 0)
		}
	}

	if req.sendHasSection {
		v := m.Interp.Resume(req)
		if v == VerdictYield {
			return yieldSignal
		}
	}

	reply := &Reply{Packet: req.Outbound, SentAt: m.Clock.Now().Unix()}

	if req.Kind == Authentication {
		m.terminationDisposition(req)
	}

	if err := m.Sender.Send(ctx, reply, req, req.Secret); err != nil {
		m.Logger.Error().
			Err(err).
			Str("correlation_id", req.CorrelationID).
			Msg("send failed")
	}

	req.phase = StateDone
	return continueSignal
}
