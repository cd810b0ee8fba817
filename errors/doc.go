// Package errors provides structured error types and fail-fast assertions.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the class and object involved, a field path and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseRegister, errors.KindWithin).
//		Class("Widget").
//		Object("Level.Door").
//		Detail("objects of this class must be within %s", "Level").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Abstract("Shape")
//	err := errors.OutOfBounds(errors.PhaseMemory, path, 10, 5)
//
// # Assertions
//
// Invariant violations (double hashing, malformed token streams, reentrant
// collection) are not returned: they go to the installed Reporter through
// Assert or Fatal. The default reporter panics. Building with the
// objectcore_release tag turns Assert into a no-op, trading the checks for speed.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
