// Package statengine implements the multi-round authentication state
// engine's core data plane: the Entry Arena, Token, Entry, State Table and
// Hand-off API that carry per-conversation context between independent
// request/response exchanges (EAP, OTP, CHAP, TACACS+ continuation) coupled
// to an opaque token exchanged on the wire.
//
// The phased per-request driver that uses this package lives in ./machine.
package statengine
