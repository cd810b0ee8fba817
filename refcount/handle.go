package refcount

// Shared is a strong reference. The zero value is an empty handle.
type Shared[T any] struct {
	c *controller[T]
}

// MakeShared takes ownership of obj. A nil obj yields an empty handle.
func MakeShared[T any](obj *T, opts ...Option[T]) Shared[T] {
	if obj == nil {
		return Shared[T]{}
	}
	return Shared[T]{c: newController(obj, opts)}
}

// Get returns the pointee, or nil for an empty handle.
func (s Shared[T]) Get() *T {
	if s.c == nil {
		return nil
	}
	return s.c.object.Load()
}

// Valid reports whether the handle holds a reference.
func (s Shared[T]) Valid() bool {
	return s.c != nil
}

// Clone returns a new handle sharing ownership.
func (s Shared[T]) Clone() Shared[T] {
	if s.c == nil {
		return Shared[T]{}
	}
	s.c.addShared()
	return Shared[T]{c: s.c}
}

// Move transfers the reference to the returned handle and empties s.
func (s *Shared[T]) Move() Shared[T] {
	out := Shared[T]{c: s.c}
	s.c = nil
	return out
}

// Release drops the reference and empties s. Releasing the last shared handle
// destroys the pointee on the calling goroutine.
func (s *Shared[T]) Release() {
	c := s.c
	s.c = nil
	if c != nil {
		c.releaseShared()
	}
}

// Downgrade returns a weak handle observing the same pointee.
func (s Shared[T]) Downgrade() Weak[T] {
	if s.c == nil {
		return Weak[T]{}
	}
	s.c.addWeak()
	return Weak[T]{c: s.c}
}

// SharedCount returns the current number of shared references.
func (s Shared[T]) SharedCount() int {
	if s.c == nil {
		return 0
	}
	return int(s.c.shared.Load())
}

// WeakCount returns the current number of weak references, including the
// implicit one held while shared references exist.
func (s Shared[T]) WeakCount() int {
	if s.c == nil {
		return 0
	}
	return int(s.c.weak.Load())
}

// Weak observes a pointee without keeping it alive. The zero value is empty.
type Weak[T any] struct {
	c *controller[T]
}

// Upgrade returns a shared handle if the pointee is still alive.
func (w Weak[T]) Upgrade() (Shared[T], bool) {
	if w.c == nil || !w.c.conditionallyAddShared() {
		return Shared[T]{}, false
	}
	return Shared[T]{c: w.c}, true
}

// Expired reports whether the pointee has been destroyed, or the handle is empty.
func (w Weak[T]) Expired() bool {
	return w.c == nil || w.c.shared.Load() == 0
}

// Valid reports whether the handle holds a weak reference.
func (w Weak[T]) Valid() bool {
	return w.c != nil
}

// Clone returns another weak handle to the same controller.
func (w Weak[T]) Clone() Weak[T] {
	if w.c == nil {
		return Weak[T]{}
	}
	w.c.addWeak()
	return Weak[T]{c: w.c}
}

// Move transfers the weak reference to the returned handle and empties w.
func (w *Weak[T]) Move() Weak[T] {
	out := Weak[T]{c: w.c}
	w.c = nil
	return out
}

// Release drops the weak reference and empties w.
func (w *Weak[T]) Release() {
	c := w.c
	w.c = nil
	if c != nil {
		c.releaseWeak()
	}
}
