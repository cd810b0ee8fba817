//go:build objectcore_release

package errors

// AssertionsEnabled reports whether Assert evaluates its condition.
// Release builds skip invariant checks.
const AssertionsEnabled = false
