//go:build !objectcore_release

package errors

// AssertionsEnabled reports whether Assert evaluates its condition.
const AssertionsEnabled = true
