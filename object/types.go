package object

import "strings"

// Handle is a stable index into the registry's slot array.
type Handle int32

// NoHandle is the null handle.
const NoHandle Handle = -1

// Flags are attribute flags set by the owner of an object.
type Flags uint32

const (
	RootSet    Flags = 1 << iota // survives collection regardless of reachability
	Native                       // always kept by the collector
	Standalone                   // kept when collecting with Standalone in keepFlags
	Transient                    // never serialized
	Public                       // visible outside its outer
)

// NoFlags is the empty flag set.
const NoFlags Flags = 0

func (f Flags) String() string {
	if f == 0 {
		return "none"
	}
	var parts []string
	for _, fl := range []struct {
		bit  Flags
		text string
	}{{RootSet, "root"}, {Native, "native"}, {Standalone, "standalone"}, {Transient, "transient"}, {Public, "public"}} {
		if f&fl.bit != 0 {
			parts = append(parts, fl.text)
		}
	}
	return strings.Join(parts, "|")
}

// State is the lifecycle position of an object. States only move forward.
type State uint8

const (
	Alive State = iota
	PendingKill
	BeginDestroyed
	FinishDestroyed
)

func (s State) String() string {
	switch s {
	case Alive:
		return "alive"
	case PendingKill:
		return "pending_kill"
	case BeginDestroyed:
		return "begin_destroyed"
	case FinishDestroyed:
		return "finish_destroyed"
	}
	return "unknown"
}

// WeakObjectHandle refers to a slot without keeping its object alive. It
// resolves only while the slot still holds the object it was taken from.
// The zero value never resolves.
type WeakObjectHandle struct {
	Index  Handle
	Serial uint32
}

// Lifecycle hooks, implemented optionally by the payload a class constructor
// returns.

// BeginDestroyer is called once when an unreachable object starts teardown.
// Its memory is still valid.
type BeginDestroyer interface {
	BeginDestroy()
}

// FinishDestroyGate delays finish-destroy until asynchronous cleanup started
// in BeginDestroy has completed.
type FinishDestroyGate interface {
	IsReadyForFinishDestroy() bool
}

// FinishDestroyer is called once, right before the object's memory is freed.
type FinishDestroyer interface {
	FinishDestroy()
}

// ReferenceAdder reports references the class's token stream does not
// describe. It is called once per reachable object during a collection.
type ReferenceAdder interface {
	AddReferencedObjects(add func(Handle))
}

// EventType identifies a registry lifecycle notification.
type EventType uint8

const (
	EventAllocated EventType = iota
	EventHashed
	EventUnhashed
	EventReleased
)

// Event describes a registry lifecycle notification.
type Event struct {
	Object *Object
	Handle Handle
	Type   EventType
}

// Observer receives registry lifecycle events.
type Observer interface {
	OnObjectEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// OnObjectEvent calls f(ev).
func (f ObserverFunc) OnObjectEvent(ev Event) {
	f(ev)
}
