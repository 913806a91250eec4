//go:build production

package statengine

// debugAssertions is false in production builds: checkInvariant returns
// ErrAlloc instead of panicking.
const debugAssertions = false
