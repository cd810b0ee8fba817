package object

import (
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/objectcore/class"
	"github.com/wippyai/objectcore/errors"
	"github.com/wippyai/objectcore/name"
)

// HashObject adds h to the name indices. Each object is hashed exactly once.
func (r *Registry) HashObject(h Handle) {
	o := r.mustGet(h, errors.PhaseLookup)
	if o == nil {
		return
	}
	errors.Assert(!o.hashed, func() *errors.Error {
		return errors.New(errors.PhaseLookup, errors.KindDuplicate).
			Object(r.PathName(h)).
			Detail("object hashed twice").
			Build()
	})
	if o.hashed {
		return
	}
	hash := r.names.Hash(o.name)
	r.byName[hash] = append(r.byName[hash], h)
	key := outerKey{hash: hash, outer: o.outer}
	r.byOuter[key] = append(r.byOuter[key], h)
	o.hashed = true
	r.notify(Event{Type: EventHashed, Handle: h, Object: o})
}

// UnhashObject removes h from the name indices. The object must be hashed.
func (r *Registry) UnhashObject(h Handle) {
	o := r.mustGet(h, errors.PhaseLookup)
	if o == nil {
		return
	}
	errors.Assert(o.hashed, func() *errors.Error {
		return errors.New(errors.PhaseLookup, errors.KindNotFound).
			Object(r.PathName(h)).
			Detail("unhash of an object that is not hashed").
			Build()
	})
	if !o.hashed {
		return
	}
	hash := r.names.Hash(o.name)
	removeFromBucket(r.byName, hash, h)
	removeFromBucket(r.byOuter, outerKey{hash: hash, outer: o.outer}, h)
	o.hashed = false
	r.notify(Event{Type: EventUnhashed, Handle: h, Object: o})
}

// removeFromBucket deletes h keeping the remaining entries in insertion order.
func removeFromBucket[K comparable](m map[K][]Handle, key K, h Handle) {
	bucket := m[key]
	for i, x := range bucket {
		if x == h {
			bucket = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	if len(bucket) == 0 {
		delete(m, key)
		return
	}
	m[key] = bucket
}

// Query selects objects for Lookup.
type Query struct {
	// Class restricts matches to this class, or to subclasses of it unless
	// ExactClass is set. Nil matches any class.
	Class      *class.Class
	ExactClass bool

	// Outer anchors the lookup. With NoHandle, Name may be a full path such as
	// "Package.Object:Sub".
	Outer Handle
	Name  string

	// AnyPackage accepts objects whose outer chain continues past the path
	// given in Name.
	AnyPackage bool

	// ExcludeFlags rejects objects carrying any of these flags.
	ExcludeFlags Flags

	// IncludePendingKill also returns objects marked pending kill.
	IncludePendingKill bool
}

// Lookup finds a hashed object matching q. When several objects match, a
// warning is logged and the first one in index insertion order is returned.
// A miss yields NoHandle.
func (r *Registry) Lookup(q Query) Handle {
	segs := SplitPath(q.Name)
	if len(segs) == 0 {
		return NoHandle
	}
	required := make([]name.Name, len(segs))
	for i, s := range segs {
		if required[i] = r.names.Find(s); required[i].IsNone() {
			return NoHandle
		}
	}
	inner := required[len(required)-1]
	required = required[:len(required)-1]
	hash := r.names.Hash(inner)

	var bucket []Handle
	if q.Outer != NoHandle && len(required) == 0 {
		bucket = r.byOuter[outerKey{hash: hash, outer: q.Outer}]
	} else {
		bucket = r.byName[hash]
	}

	found := NoHandle
	for _, h := range bucket {
		o := r.slots[h]
		if !r.matches(o, inner, &q) || !r.matchesChain(o, required, &q) {
			continue
		}
		if found == NoHandle {
			found = h
			continue
		}
		Logger().Warn("ambiguous object lookup",
			zap.String("query", q.Name),
			zap.String("chosen", r.PathName(found)),
			zap.String("other", r.PathName(h)),
			zap.Int32("chosen_handle", int32(found)),
			zap.Int32("other_handle", int32(h)),
		)
		break
	}
	return found
}

func (r *Registry) matches(o *Object, n name.Name, q *Query) bool {
	if o.name != n || o.flags&q.ExcludeFlags != 0 {
		return false
	}
	if o.state >= BeginDestroyed || (!q.IncludePendingKill && o.state == PendingKill) {
		return false
	}
	if q.Class != nil {
		if q.ExactClass {
			return o.class == q.Class
		}
		return o.class.IsChildOf(q.Class)
	}
	return true
}

// matchesChain walks o's outers backwards against required, innermost last.
func (r *Registry) matchesChain(o *Object, required []name.Name, q *Query) bool {
	outer := o.outer
	for i := len(required) - 1; i >= 0; i-- {
		if outer == NoHandle {
			return false
		}
		oo := r.Get(outer)
		if oo == nil || oo.name != required[i] {
			return false
		}
		outer = oo.outer
	}
	switch {
	case q.Outer != NoHandle:
		return outer == q.Outer
	case q.AnyPackage:
		return true
	}
	return outer == NoHandle
}

// SplitPath splits an object path on '.' and ':' delimiters. Empty segments
// make the path invalid and yield nil.
func SplitPath(path string) []string {
	if path == "" {
		return nil
	}
	segs := strings.FieldsFunc(path, func(r rune) bool { return r == '.' || r == ':' })
	if len(segs) == 0 || strings.Count(path, ".")+strings.Count(path, ":") != len(segs)-1 {
		return nil
	}
	return segs
}

// PathName returns the full path of h: outers joined by '.', with ':' before
// a subobject of a top-level object's child.
func (r *Registry) PathName(h Handle) string {
	if !r.IsValid(h) {
		return "None"
	}
	var chain []*Object
	for x := h; x != NoHandle && r.IsValid(x); x = r.slots[x].outer {
		chain = append(chain, r.slots[x])
	}
	var b strings.Builder
	for i := len(chain) - 1; i >= 0; i-- {
		depth := len(chain) - 1 - i
		switch {
		case depth == 2:
			b.WriteByte(':')
		case depth > 0:
			b.WriteByte('.')
		}
		b.WriteString(r.names.Resolve(chain[i].name))
	}
	return b.String()
}
