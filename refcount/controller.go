package refcount

import (
	"sync/atomic"

	"github.com/wippyai/objectcore/errors"
)

// Destroyer is implemented by values that clean up when their last shared
// handle is released. A deleter passed with WithDeleter takes precedence.
type Destroyer interface {
	Destroy()
}

// controller owns the pointee until the shared count reaches zero and is
// itself kept alive by the weak count. While any shared handle exists the
// controller holds one implicit weak reference.
type controller[T any] struct {
	object   atomic.Pointer[T]
	deleter  func(*T)
	onFree   func()
	shared   atomic.Int32
	weak     atomic.Int32
	released atomic.Bool
}

// Option configures a controller created by MakeShared.
type Option[T any] func(*controller[T])

// WithDeleter sets the function run on the pointee when the last shared
// handle is released.
func WithDeleter[T any](fn func(*T)) Option[T] {
	return func(c *controller[T]) {
		c.deleter = fn
	}
}

// WithReleaseHook sets a function run once when both counts reach zero and the
// controller is released.
func WithReleaseHook[T any](fn func()) Option[T] {
	return func(c *controller[T]) {
		c.onFree = fn
	}
}

func newController[T any](obj *T, opts []Option[T]) *controller[T] {
	c := &controller[T]{}
	for _, opt := range opts {
		opt(c)
	}
	c.object.Store(obj)
	c.shared.Store(1)
	c.weak.Store(1) // implicit weak held on behalf of the shared handles
	return c
}

func (c *controller[T]) addShared() {
	c.shared.Add(1)
}

// conditionallyAddShared adds a shared reference only while the count is
// non-zero, so a pointee whose destruction has begun is never resurrected.
func (c *controller[T]) conditionallyAddShared() bool {
	for {
		n := c.shared.Load()
		if n == 0 {
			return false
		}
		if c.shared.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

func (c *controller[T]) releaseShared() {
	n := c.shared.Add(-1)
	if n > 0 {
		return
	}
	if n < 0 {
		errors.Fatal(errors.Invariant(errors.PhaseRefcount, "shared reference released more times than acquired"))
		return
	}
	c.destroy()
	c.releaseWeak()
}

func (c *controller[T]) destroy() {
	obj := c.object.Swap(nil)
	if obj == nil {
		return
	}
	if c.deleter != nil {
		c.deleter(obj)
		return
	}
	if d, ok := any(obj).(Destroyer); ok {
		d.Destroy()
	}
}

func (c *controller[T]) addWeak() {
	c.weak.Add(1)
}

func (c *controller[T]) releaseWeak() {
	n := c.weak.Add(-1)
	if n > 0 {
		return
	}
	if n < 0 {
		errors.Fatal(errors.Invariant(errors.PhaseRefcount, "weak reference released more times than acquired"))
		return
	}
	if c.released.CompareAndSwap(false, true) && c.onFree != nil {
		c.onFree()
	}
}
