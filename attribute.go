package statengine

// Attribute is a typed name/value pair belonging to a packet, request,
// reply, or session state. Every Attribute reachable from an Entry's
// Attributes must be owned by that Entry's Arena. Parsing and the
// attribute/dictionary catalogue itself live elsewhere; Attribute only
// models enough shape for the state engine to carry values opaquely.
type Attribute struct {
	Name  string
	Value any
}

// StateAttributeName is the wire name of the fixed-length opaque Token
// attribute.
const StateAttributeName = "State"

// SideDatum is one out-of-band, per-request scratch value a policy module
// attaches to a Request. Persistable side data travels with the arena
// across rounds; non-persistable side data never leaves the request that
// created it.
type SideDatum struct {
	Value       any
	Persistable bool
}

// Packet is the wire-level attribute list the Hand-off API reads and writes
// the State attribute on.
type Packet struct {
	Attributes []Attribute
}

// Token extracts and validates the wire Token attribute. ok is false if no
// State attribute is present or its value is shorter than TokenLength — a
// short value is a lookup miss, not a truncation. If the value is longer
// than TokenLength, it is truncated and truncatedFrom reports the original
// length so the caller can log the truncation.
func (p *Packet) Token() (tok Token, truncatedFrom int, ok bool) {
	if p == nil {
		return Token{}, 0, false
	}
	for _, a := range p.Attributes {
		if a.Name != StateAttributeName {
			continue
		}
		b, isBytes := a.Value.([]byte)
		if !isBytes || len(b) < TokenLength {
			return Token{}, 0, false
		}
		copy(tok[:], b[:TokenLength])
		if len(b) > TokenLength {
			return tok, len(b), true
		}
		return tok, 0, true
	}
	return Token{}, 0, false
}

// SetToken synthesises a State attribute carrying tok, replacing any
// existing one, so the client echoes it on the next round.
func (p *Packet) SetToken(tok Token) {
	value := make([]byte, TokenLength)
	copy(value, tok[:])
	for i := range p.Attributes {
		if p.Attributes[i].Name == StateAttributeName {
			p.Attributes[i].Value = value
			return
		}
	}
	p.Attributes = append(p.Attributes, Attribute{Name: StateAttributeName, Value: value})
}

// Request models the live, in-flight packet's movable state fields: the
// arena, attributes and side data that the Hand-off API moves into and out
// of the table. It is embedded by machine.Request, which adds the
// phase-driving fields the request state machine needs.
type Request struct {
	StateArena      *Arena
	StateAttributes []Attribute
	StateSideData   map[string]SideDatum
}
