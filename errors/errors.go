package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseIntern   Phase = "intern"   // name interning
	PhaseReflect  Phase = "reflect"  // class registration and token streams
	PhaseRegister Phase = "register" // object allocation and construction
	PhaseLookup   Phase = "lookup"   // name and path lookup
	PhaseCollect  Phase = "collect"  // mark and traversal
	PhasePurge    Phase = "purge"    // two-phase destruction
	PhaseArchive  Phase = "archive"  // field serialization
	PhaseConfig   Phase = "config"   // configuration loading
	PhaseMemory   Phase = "memory"   // instance memory and allocation
	PhaseRefcount Phase = "refcount" // shared/weak ownership
)

// Kind categorizes the error
type Kind string

const (
	KindInvariant      Kind = "invariant"
	KindOutOfBounds    Kind = "out_of_bounds"
	KindInvalidData    Kind = "invalid_data"
	KindInvalidInput   Kind = "invalid_input"
	KindAllocation     Kind = "allocation"
	KindDuplicate      Kind = "duplicate"
	KindNotFound       Kind = "not_found"
	KindNotInitialized Kind = "not_initialized"
	KindAbstract       Kind = "abstract"
	KindWithin         Kind = "within"
	KindMalformedToken Kind = "malformed_token"
	KindReentrant      Kind = "reentrant"
	KindOverflow       Kind = "overflow"
	KindUnsupported    Kind = "unsupported"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Class  string
	Object string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Class != "" || e.Object != "" {
		b.WriteString(": ")
		if e.Class != "" && e.Object != "" {
			b.WriteString("class ")
			b.WriteString(e.Class)
			b.WriteString(", object ")
			b.WriteString(e.Object)
		} else if e.Class != "" {
			b.WriteString("class ")
			b.WriteString(e.Class)
		} else {
			b.WriteString("object ")
			b.WriteString(e.Object)
		}
	}

	if e.Detail != "" {
		if e.Class != "" || e.Object != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Class sets the class name
func (b *Builder) Class(name string) *Builder {
	b.err.Class = name
	return b
}

// Object sets the object path name
func (b *Builder) Object(name string) *Builder {
	b.err.Object = name
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// Invariant creates an invariant violation error
func Invariant(phase Phase, detail string, args ...any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvariant,
		Detail: fmt.Sprintf(detail, args...),
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size, align uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes (align %d)", size, align),
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, path []string, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   path,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// MalformedToken creates a malformed token stream error
func MalformedToken(class string, index int, token uint32) *Error {
	return &Error{
		Phase:  PhaseCollect,
		Kind:   KindMalformedToken,
		Class:  class,
		Detail: fmt.Sprintf("token %d (0x%08x) is malformed", index, token),
		Value:  token,
	}
}

// Duplicate creates a duplicate registration error
func Duplicate(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindDuplicate,
		Detail: fmt.Sprintf("%s %q already registered", what, name),
	}
}

// Abstract creates an error for instantiating an abstract class
func Abstract(class string) *Error {
	return &Error{
		Phase:  PhaseRegister,
		Kind:   KindAbstract,
		Class:  class,
		Detail: "cannot instantiate abstract class",
	}
}

// Within creates an error for an outer that violates a class's within constraint
func Within(class, within, outer string) *Error {
	return &Error{
		Phase:  PhaseRegister,
		Kind:   KindWithin,
		Class:  class,
		Object: outer,
		Detail: fmt.Sprintf("objects of this class must be within %s", within),
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, path []string, value any, limit string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Path:   path,
		Detail: fmt.Sprintf("value %v overflows %s", value, limit),
		Value:  value,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// NotInitialized creates a not-initialized error
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Reentrant creates an error for an operation entered while already running
func Reentrant(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindReentrant,
		Detail: fmt.Sprintf("%s is already in progress", what),
	}
}

// ParseFailed creates a configuration parsing error
func ParseFailed(what string, cause error) *Error {
	return &Error{
		Phase:  PhaseConfig,
		Kind:   KindInvalidData,
		Detail: fmt.Sprintf("parse %s", what),
		Cause:  cause,
	}
}
