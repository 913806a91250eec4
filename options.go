package statengine

import (
	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
)

// Config holds the State Table's operator-configured scalars: the session
// bound, the per-entry timeout, and the optional seed byte used to
// partition tokens across load-balanced peers.
type Config struct {
	// MaxSessions bounds the table's size.
	MaxSessions int

	// Timeout is added to "now" at Create time to compute an entry's
	// expiry, in seconds.
	Timeout int64

	// Seed, if non-nil, is in [0,255] and overwrites generated tokens'
	// byte 3.
	Seed *uint8
}

// Option configures a StateTable beyond its required Config.
type Option func(*StateTable)

// WithClock overrides the table's clock, letting tests advance time
// deterministically instead of sleeping.
func WithClock(c clock.Clock) Option {
	return func(t *StateTable) { t.clock = c }
}

// WithLogger attaches a logger the table uses for its warning conditions
// (state attribute truncation, consistency checks). The default is a no-op
// logger.
func WithLogger(l zerolog.Logger) Option {
	return func(t *StateTable) { t.logger = l }
}
