// Package refcount provides thread-safe shared and weak ownership handles.
//
// It is the ownership model for data outside the reflected object universe and
// never interacts with the garbage collector:
//
//	s := refcount.MakeShared(&Texture{}, refcount.WithDeleter(func(t *Texture) {
//	    t.Unload()
//	}))
//	w := s.Downgrade()
//
//	if s2, ok := w.Upgrade(); ok { // succeeds while a shared handle is live
//	    use(s2.Get())
//	    s2.Release()
//	}
//	s.Release() // last shared handle: Unload runs here, on this goroutine
//	w.Expired() // true
//	w.Release()
//
// # Copies and moves
//
// Handles are small structs. Plain assignment copies the pointer without adding
// a reference; Clone adds one and Move transfers ownership and empties the
// source. Every reference obtained from MakeShared, Clone, Downgrade or a
// successful Upgrade must be released exactly once.
//
// All count mutations are atomic and lock-free; handles may be cloned,
// released and upgraded from any goroutine.
package refcount
