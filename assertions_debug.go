//go:build !production

package statengine

// debugAssertions gates the fatal-assertion behaviour. Ordinary builds panic
// on an invariant violation; see assertions_release.go for the -tags
// production behaviour.
const debugAssertions = true
