package gc

import (
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/wippyai/objectcore/class"
	"github.com/wippyai/objectcore/errors"
	"github.com/wippyai/objectcore/memory"
	"github.com/wippyai/objectcore/name"
	"github.com/wippyai/objectcore/object"
)

type fixture struct {
	names   *name.Table
	classes *class.Table
	mem     *memory.Linear
	alloc   *memory.FreeListAllocator
	reg     *object.Registry
	gc      *Collector

	object  *class.Class
	node    *class.Class
	tracked *class.Class
	item    *class.Struct

	events []string
	probes map[object.Handle]*probe
}

// probe is the payload of Tracked objects and records its lifecycle hooks.
type probe struct {
	f       *fixture
	h       object.Handle
	ready   bool
	extra   []object.Handle
	onBegin func()
}

func (p *probe) BeginDestroy() {
	p.f.events = append(p.f.events, fmt.Sprintf("begin:%d", p.h))
	if p.onBegin != nil {
		p.onBegin()
	}
}

func (p *probe) IsReadyForFinishDestroy() bool { return p.ready }

func (p *probe) FinishDestroy() {
	p.f.events = append(p.f.events, fmt.Sprintf("finish:%d", p.h))
}

func (p *probe) AddReferencedObjects(add func(object.Handle)) {
	for _, h := range p.extra {
		add(h)
	}
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{names: name.NewTable(), probes: make(map[object.Handle]*probe)}
	f.classes = class.NewTable(f.names)
	f.mem = memory.NewLinear(1, 64)
	f.alloc = memory.NewFreeListAllocator(f.mem)
	f.reg = object.NewRegistry(f.names, f.mem, f.alloc)

	var err error
	f.item, err = class.NewStruct("Item", []class.PropertySpec{
		{Name: "Ref", Kind: class.KindObject},
		{Name: "Subs", Kind: class.KindArray, Elem: class.KindObject},
	})
	if err != nil {
		t.Fatal(err)
	}
	if f.object, err = f.classes.Register(class.Definition{Name: "Object", Flags: class.Intrinsic}); err != nil {
		t.Fatal(err)
	}
	if f.node, err = f.classes.Register(class.Definition{
		Name:  "Node",
		Super: f.object,
		Properties: []class.PropertySpec{
			{Name: "Value", Kind: class.KindInt64},
			{Name: "Next", Kind: class.KindObject},
			{Name: "Children", Kind: class.KindArray, Elem: class.KindObject},
			{Name: "Items", Kind: class.KindArray, Elem: class.KindStruct, Struct: f.item},
			{Name: "Slots", Kind: class.KindObject, ArrayDim: 3},
		},
	}); err != nil {
		t.Fatal(err)
	}
	if f.tracked, err = f.classes.Register(class.Definition{
		Name:  "Tracked",
		Super: f.node,
		Constructor: func(init class.Initializer) (any, error) {
			p := &probe{f: f, h: object.Handle(init.Handle()), ready: true}
			f.probes[p.h] = p
			return p, nil
		},
	}); err != nil {
		t.Fatal(err)
	}
	f.classes.AssembleAll()
	f.gc = New(f.reg, opts...)
	return f
}

func (f *fixture) newObj(t *testing.T, cls *class.Class, text string, flags object.Flags) object.Handle {
	t.Helper()
	h, err := f.reg.NewObject(cls, object.NoHandle, text, flags)
	if err != nil {
		t.Fatalf("NewObject(%q): %v", text, err)
	}
	return h
}

func (f *fixture) prop(name string) uint32 {
	return f.node.Property(name).Offset
}

func (f *fixture) setNext(from, to object.Handle) {
	f.reg.SetRef(from, f.prop("Next"), to)
}

func (f *fixture) setChildren(t *testing.T, from object.Handle, to ...object.Handle) {
	t.Helper()
	if err := f.reg.NewRefArray(from, f.prop("Children"), uint32(len(to))); err != nil {
		t.Fatal(err)
	}
	for i, h := range to {
		f.reg.SetRefArrayElem(from, f.prop("Children"), uint32(i), h)
	}
}

func (f *fixture) setSlot(from object.Handle, i uint32, to object.Handle) {
	f.reg.SetRef(from, f.prop("Slots")+i*4, to)
}

// setItems gives from n Items and returns the element pointer.
func (f *fixture) setItems(t *testing.T, from object.Handle, n uint32) uint32 {
	t.Helper()
	ptr, err := f.reg.NewArrayFor(from, f.node.Property("Items"), n)
	if err != nil {
		t.Fatal(err)
	}
	return ptr
}

func (f *fixture) setItemRef(ptr, i uint32, to object.Handle) {
	f.reg.WriteRef(ptr+i*f.item.Size()+f.item.Property("Ref").Offset, to)
}

func (f *fixture) setItemSubs(t *testing.T, ptr, i uint32, to ...object.Handle) {
	t.Helper()
	sub, err := f.reg.NewArrayAt(ptr+i*f.item.Size()+f.item.Property("Subs").Offset, 4, 4, uint32(len(to)))
	if err != nil {
		t.Fatal(err)
	}
	for j, h := range to {
		f.reg.WriteRef(sub+uint32(j)*4, h)
	}
}

func (f *fixture) collect(t *testing.T, keep object.Flags, full bool) {
	t.Helper()
	if err := f.gc.CollectGarbage(keep, full); err != nil {
		t.Fatalf("CollectGarbage: %v", err)
	}
}

func captureFatal(t *testing.T) *[]*errors.Error {
	t.Helper()
	if !errors.AssertionsEnabled {
		t.Skip("assertions compiled out")
	}
	var got []*errors.Error
	prev := errors.SetReporter(errors.ReporterFunc(func(err *errors.Error) {
		got = append(got, err)
	}))
	t.Cleanup(func() { errors.SetReporter(prev) })
	return &got
}

// stepClock advances by step on every read.
type stepClock struct {
	now  time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	c.now = c.now.Add(c.step)
	return c.now
}

func TestCollect_RootKeepsReferent(t *testing.T) {
	f := newFixture(t)
	a := f.newObj(t, f.node, "A", object.RootSet)
	b := f.newObj(t, f.node, "B", object.NoFlags)
	c := f.newObj(t, f.node, "C", object.NoFlags)
	f.setNext(a, b)

	f.collect(t, object.NoFlags, true)
	if !f.reg.IsValid(a) || !f.reg.IsValid(b) {
		t.Fatal("A and B must survive")
	}
	if f.reg.IsValid(c) {
		t.Fatal("C must be collected")
	}
	if f.reg.Lookup(object.Query{Name: "C", Outer: object.NoHandle}) != object.NoHandle {
		t.Fatal("collected object still found by name")
	}
	if f.reg.Get(b).IsUnreachable() {
		t.Fatal("survivor keeps the unreachable mark")
	}

	f.setNext(a, object.NoHandle)
	f.collect(t, object.NoFlags, true)
	if f.reg.IsValid(b) || !f.reg.IsValid(a) {
		t.Fatal("B must be collected once unreferenced")
	}
	if f.gc.CollectCount() != 2 || f.gc.State() != Idle {
		t.Fatalf("count=%d state=%v", f.gc.CollectCount(), f.gc.State())
	}
}

func TestCollect_ReachabilityClosure(t *testing.T) {
	f := newFixture(t)
	rng := rand.New(rand.NewPCG(7, 11))

	const n = 200
	handles := make([]object.Handle, n)
	for i := range handles {
		handles[i] = f.newObj(t, f.node, "", object.NoFlags)
	}
	pick := func() object.Handle { return handles[rng.IntN(n)] }

	edges := make(map[object.Handle][]object.Handle)
	for _, h := range handles {
		link := func(to object.Handle) object.Handle {
			edges[h] = append(edges[h], to)
			return to
		}
		if rng.IntN(2) == 0 {
			f.setNext(h, link(pick()))
		}
		if k := rng.IntN(4); k > 0 && rng.IntN(3) == 0 {
			kids := make([]object.Handle, k)
			for i := range kids {
				kids[i] = link(pick())
			}
			f.setChildren(t, h, kids...)
		}
		if k := uint32(rng.IntN(3)); k > 0 && rng.IntN(4) == 0 {
			ptr := f.setItems(t, h, k)
			for i := uint32(0); i < k; i++ {
				if rng.IntN(2) == 0 {
					f.setItemRef(ptr, i, link(pick()))
				}
				if rng.IntN(2) == 0 {
					f.setItemSubs(t, ptr, i, link(pick()), link(pick()))
				}
			}
		}
		if rng.IntN(5) == 0 {
			f.setSlot(h, uint32(rng.IntN(3)), link(pick()))
		}
	}

	want := make(map[object.Handle]bool)
	var queue []object.Handle
	for i := 0; i < 4; i++ {
		r := pick()
		f.reg.AddToRoot(r)
		if !want[r] {
			want[r] = true
			queue = append(queue, r)
		}
	}
	roots := len(queue)
	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		for _, to := range edges[h] {
			if !want[to] {
				want[to] = true
				queue = append(queue, to)
			}
		}
	}

	f.collect(t, object.NoFlags, true)
	for _, h := range handles {
		if f.reg.IsValid(h) != want[h] {
			t.Fatalf("handle %d: valid=%v, reachable=%v", h, f.reg.IsValid(h), want[h])
		}
	}
	st := f.gc.LastStats()
	if st.Reachable != len(want) || st.BeginDestroyed != n-len(want) || st.FinishDestroyed != n-len(want) {
		t.Fatalf("stats = %+v, reachable %d", st, len(want))
	}
	if st.Marked != n-roots {
		t.Fatalf("marked = %d", st.Marked)
	}
	if f.reg.Len() != len(want) {
		t.Fatalf("registry holds %d objects, want %d", f.reg.Len(), len(want))
	}
}

func TestCollect_TwoPhaseOrdering(t *testing.T) {
	f := newFixture(t)
	g := f.newObj(t, f.tracked, "Garbage", object.NoFlags)
	_ = f.mem.WriteU64(f.reg.Addr(g)+f.prop("Value"), 42)

	var phases []State
	f.gc.onPhase = func(s State) { phases = append(phases, s) }

	f.collect(t, object.NoFlags, false)
	if len(f.events) != 1 || f.events[0] != fmt.Sprintf("begin:%d", g) {
		t.Fatalf("events after collect = %v", f.events)
	}
	o := f.reg.Get(g)
	if o == nil || o.State() != object.BeginDestroyed || o.IsHashed() {
		t.Fatalf("garbage must be begin-destroyed, unhashed and still registered: %+v", o)
	}
	if f.reg.Lookup(object.Query{Name: "Garbage", Outer: object.NoHandle}) != object.NoHandle {
		t.Fatal("begin-destroyed object must not be found")
	}
	if v, _ := f.mem.ReadU64(o.Addr() + f.prop("Value")); v != 42 {
		t.Fatal("memory must stay valid until finish-destroy")
	}
	if !f.gc.IsIncrementalPurgePending() || f.gc.PendingPurge() != 1 {
		t.Fatal("purge must be pending")
	}

	done, err := f.gc.IncrementalPurgeGarbage(false, 0)
	if err != nil || !done {
		t.Fatalf("purge: done=%v err=%v", done, err)
	}
	if len(f.events) != 2 || f.events[1] != fmt.Sprintf("finish:%d", g) {
		t.Fatalf("events = %v", f.events)
	}
	if f.reg.IsValid(g) {
		t.Fatal("slot must be released after finish-destroy")
	}
	if done, _ := f.gc.IncrementalPurgeGarbage(true, 0); !done {
		t.Fatal("an idle purge is done")
	}

	want := []State{MarkingUnreachable, TraversingReferences, RoutingBeginDestroy, IncrementalPurging, Idle}
	if fmt.Sprint(phases) != fmt.Sprint(want) {
		t.Fatalf("phases = %v, want %v", phases, want)
	}
}

func TestPurge_TimeBudget(t *testing.T) {
	clock := &stepClock{now: time.Unix(0, 0), step: time.Millisecond}
	f := newFixture(t, WithClock(clock), WithObjectsPerClockCheck(2))
	for i := 0; i < 10; i++ {
		f.newObj(t, f.node, "", object.NoFlags)
	}
	f.collect(t, object.NoFlags, false)
	if f.gc.PendingPurge() != 10 {
		t.Fatalf("pending = %d", f.gc.PendingPurge())
	}

	for call := 1; call <= 4; call++ {
		done, err := f.gc.IncrementalPurgeGarbage(true, time.Millisecond)
		if err != nil || done {
			t.Fatalf("call %d: done=%v err=%v", call, done, err)
		}
		if got := f.gc.PendingPurge(); got != 10-2*call {
			t.Fatalf("call %d: pending = %d", call, got)
		}
	}
	done, err := f.gc.IncrementalPurgeGarbage(true, time.Millisecond)
	if err != nil || !done {
		t.Fatalf("last call: done=%v err=%v", done, err)
	}
	st := f.gc.LastStats()
	if st.PurgeCalls != 5 || st.FinishDestroyed != 10 || st.PurgeDuration <= 0 {
		t.Fatalf("stats = %+v", st)
	}
	if f.reg.Len() != 0 {
		t.Fatalf("registry holds %d objects", f.reg.Len())
	}
}

func TestPurge_CompletedByNextCollect(t *testing.T) {
	f := newFixture(t)
	a := f.newObj(t, f.node, "A", object.NoFlags)
	f.collect(t, object.NoFlags, false)
	if !f.reg.IsValid(a) {
		t.Fatal("incremental collect must not release yet")
	}
	f.collect(t, object.NoFlags, false)
	if f.reg.IsValid(a) {
		t.Fatal("next collect must complete the pending purge")
	}
}

func TestPurge_GateDefersFinish(t *testing.T) {
	f := newFixture(t)
	g := f.newObj(t, f.tracked, "Slow", object.NoFlags)
	f.probes[g].ready = false

	f.collect(t, object.NoFlags, true)
	if !f.reg.IsValid(g) || !f.gc.IsIncrementalPurgePending() {
		t.Fatal("gated object must stay pending")
	}
	if len(f.events) != 1 {
		t.Fatalf("finish-destroy ran early: %v", f.events)
	}
	if done, _ := f.gc.IncrementalPurgeGarbage(true, time.Second); done {
		t.Fatal("purge must not finish while gate is closed")
	}

	f.probes[g].ready = true
	if done, _ := f.gc.IncrementalPurgeGarbage(true, time.Second); !done {
		t.Fatal("purge must finish once gate opens")
	}
	if f.reg.IsValid(g) || len(f.events) != 2 {
		t.Fatalf("events = %v", f.events)
	}
}

func TestCollect_HandleReuse(t *testing.T) {
	f := newFixture(t)
	g := f.newObj(t, f.node, "G", object.NoFlags)
	weak := f.reg.Weak(g)

	f.collect(t, object.NoFlags, false)
	if f.reg.Resolve(weak) != object.NoHandle {
		t.Fatal("weak handle must not resolve to a begin-destroyed object")
	}
	f.collect(t, object.NoFlags, true)

	n := f.newObj(t, f.node, "New", object.RootSet)
	if n != g {
		t.Fatalf("slot %d not reused, got %d", g, n)
	}
	if f.reg.Resolve(weak) != object.NoHandle {
		t.Fatal("weak handle must not resolve to the reused slot")
	}
	if f.reg.Resolve(f.reg.Weak(n)) != n {
		t.Fatal("fresh weak handle must resolve")
	}
}

func TestCollect_NestedArrays(t *testing.T) {
	f := newFixture(t)
	root := f.newObj(t, f.node, "Root", object.RootSet)
	x := f.newObj(t, f.node, "X", object.NoFlags)
	y := f.newObj(t, f.node, "Y", object.NoFlags)
	z := f.newObj(t, f.node, "Z", object.NoFlags)
	w := f.newObj(t, f.node, "W", object.NoFlags)
	c := f.newObj(t, f.node, "C", object.NoFlags)
	garbage := f.newObj(t, f.node, "Garbage", object.NoFlags)

	ptr := f.setItems(t, root, 3)
	f.setItemRef(ptr, 0, y)
	f.setItemSubs(t, ptr, 1, object.NoHandle, x)
	f.setItemSubs(t, ptr, 2, z)
	f.setSlot(root, 2, w)
	f.setChildren(t, w, c)
	// garbage referencing a survivor does not keep itself alive
	f.setNext(garbage, root)

	f.collect(t, object.NoFlags, true)
	for _, h := range []object.Handle{root, x, y, z, w, c} {
		if !f.reg.IsValid(h) {
			t.Fatalf("%s must survive", f.reg.PathName(h))
		}
	}
	if f.reg.IsValid(garbage) {
		t.Fatal("garbage must be collected")
	}
	if f.alloc.Stats().LiveBlocks == 0 {
		t.Fatal("survivor arrays must stay allocated")
	}
}

func TestCollect_ExtraReferences(t *testing.T) {
	f := newFixture(t)
	r := f.newObj(t, f.tracked, "R", object.RootSet)
	e := f.newObj(t, f.node, "E", object.NoFlags)
	other := f.newObj(t, f.node, "Other", object.NoFlags)
	f.probes[r].extra = []object.Handle{e, object.NoHandle}

	f.collect(t, object.NoFlags, true)
	if !f.reg.IsValid(e) {
		t.Fatal("extra reference must keep E alive")
	}
	if f.reg.IsValid(other) {
		t.Fatal("Other must be collected")
	}
}

func TestCollect_PendingKill(t *testing.T) {
	f := newFixture(t)
	a := f.newObj(t, f.node, "A", object.RootSet)
	b := f.newObj(t, f.node, "B", object.NoFlags)
	k := f.newObj(t, f.node, "K", object.RootSet)
	f.setNext(a, b)
	f.setSlot(a, 0, b)

	f.reg.MarkPendingKill(b)
	f.reg.MarkPendingKill(k)
	f.collect(t, object.NoFlags, true)

	if f.reg.IsValid(b) {
		t.Fatal("pending-kill referent must be collected")
	}
	if f.reg.IsValid(k) {
		t.Fatal("pending-kill root must not be seeded")
	}
	if f.reg.Ref(a, f.prop("Next")) != object.NoHandle || f.reg.Ref(a, f.prop("Slots")) != object.NoHandle {
		t.Fatal("references to pending-kill objects must be cleared")
	}
}

func TestCollect_KeepFlags(t *testing.T) {
	f := newFixture(t)
	pub := f.newObj(t, f.node, "Pub", object.Public)
	native := f.newObj(t, f.node, "Native", object.Native)
	plain := f.newObj(t, f.node, "Plain", object.NoFlags)
	f.setNext(native, plain)

	f.collect(t, object.Public, true)
	if !f.reg.IsValid(pub) || !f.reg.IsValid(native) || !f.reg.IsValid(plain) {
		t.Fatal("keep-flagged and native objects and their referents must survive")
	}

	f.collect(t, object.NoFlags, true)
	if f.reg.IsValid(pub) {
		t.Fatal("Public is only kept when requested")
	}
	if !f.reg.IsValid(native) {
		t.Fatal("Native is always kept")
	}
}

func TestCollect_Disregarded(t *testing.T) {
	f := newFixture(t)
	boot := f.newObj(t, f.node, "Boot", object.NoFlags)
	f.reg.CloseDisregardForGC()
	x := f.newObj(t, f.node, "X", object.NoFlags)
	y := f.newObj(t, f.node, "Y", object.NoFlags)
	f.setNext(boot, x)

	f.collect(t, object.NoFlags, true)
	if !f.reg.IsValid(boot) || f.reg.Get(boot).IsUnreachable() {
		t.Fatal("disregarded object must never be collected or marked")
	}
	if !f.reg.IsValid(x) {
		t.Fatal("referent of a disregarded object must survive")
	}
	if f.reg.IsValid(y) {
		t.Fatal("Y must be collected")
	}
	if st := f.gc.LastStats(); st.Marked != 2 {
		t.Fatalf("marked = %d, want 2", st.Marked)
	}
}

func TestCollect_Reentrant(t *testing.T) {
	got := captureFatal(t)
	f := newFixture(t)
	g := f.newObj(t, f.tracked, "G", object.NoFlags)
	var inner error
	f.probes[g].onBegin = func() {
		inner = f.gc.CollectGarbage(object.NoFlags, true)
	}

	f.collect(t, object.NoFlags, true)
	if inner == nil {
		t.Fatal("collection from a destroy hook must fail")
	}
	if len(*got) != 1 || (*got)[0].Kind != errors.KindReentrant {
		t.Fatalf("violations = %v", *got)
	}
	if f.reg.IsValid(g) {
		t.Fatal("outer collection must still complete")
	}
}

func TestCollect_UnassembledClass(t *testing.T) {
	got := captureFatal(t)
	f := newFixture(t)
	loose, err := f.classes.Register(class.Definition{
		Name:       "Loose",
		Super:      f.object,
		Properties: []class.PropertySpec{{Name: "Ref", Kind: class.KindObject}},
	})
	if err != nil {
		t.Fatal(err)
	}
	f.newObj(t, loose, "L", object.RootSet)

	f.collect(t, object.NoFlags, true)
	if len(*got) != 1 || (*got)[0].Kind != errors.KindNotInitialized {
		t.Fatalf("violations = %v", *got)
	}
}

func BenchmarkCollectGarbage(b *testing.B) {
	names := name.NewTable()
	classes := class.NewTable(names)
	obj, _ := classes.Register(class.Definition{Name: "Object", Flags: class.Intrinsic})
	node, _ := classes.Register(class.Definition{
		Name:  "Node",
		Super: obj,
		Properties: []class.PropertySpec{
			{Name: "Next", Kind: class.KindObject},
			{Name: "Children", Kind: class.KindArray, Elem: class.KindObject},
		},
	})
	classes.AssembleAll()
	mem := memory.NewLinear(1, 1024)
	reg := object.NewRegistry(names, mem, memory.NewFreeListAllocator(mem))

	const n = 10000
	prev := object.NoHandle
	for i := 0; i < n; i++ {
		h, err := reg.NewObject(node, object.NoHandle, "", object.NoFlags)
		if err != nil {
			b.Fatal(err)
		}
		if prev != object.NoHandle {
			reg.SetRef(h, node.Property("Next").Offset, prev)
		}
		prev = h
	}
	reg.AddToRoot(prev)
	c := New(reg)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := c.CollectGarbage(object.NoFlags, true); err != nil {
			b.Fatal(err)
		}
	}
}

func TestCollect_OuterKeptAlive(t *testing.T) {
	f := newFixture(t)
	pkg := f.newObj(t, f.node, "Pkg", object.NoFlags)
	inner, err := f.reg.NewObject(f.node, pkg, "Inner", object.RootSet)
	if err != nil {
		t.Fatal(err)
	}
	orphan := f.newObj(t, f.node, "Orphan", object.NoFlags)
	child, err := f.reg.NewObject(f.node, orphan, "Child", object.NoFlags)
	if err != nil {
		t.Fatal(err)
	}

	f.collect(t, object.NoFlags, true)
	if !f.reg.IsValid(pkg) || f.reg.PathName(inner) != "Pkg.Inner" {
		t.Fatal("outer of a reachable object must survive")
	}
	if f.reg.IsValid(orphan) || f.reg.IsValid(child) {
		t.Fatal("an outer does not keep its inner objects alive")
	}
}

func TestCollect_PendingKillOuterOfReachableInner(t *testing.T) {
	f := newFixture(t)
	a := f.newObj(t, f.node, "A", object.RootSet)
	pkg := f.newObj(t, f.node, "Pkg", object.NoFlags)
	inner, err := f.reg.NewObject(f.node, pkg, "Inner", object.NoFlags)
	if err != nil {
		t.Fatal(err)
	}
	f.setNext(a, inner)
	f.setSlot(a, 0, pkg)
	f.reg.MarkPendingKill(pkg)

	f.collect(t, object.NoFlags, true)
	if !f.reg.IsValid(inner) || !f.reg.IsValid(pkg) {
		t.Fatalf("inner valid=%v outer valid=%v, both must survive", f.reg.IsValid(inner), f.reg.IsValid(pkg))
	}
	if f.reg.Get(inner).Outer() != pkg {
		t.Fatal("inner lost its outer")
	}
	if got := f.reg.Ref(a, f.prop("Slots")); got != object.NoHandle {
		t.Fatalf("stored reference to a pending-kill object = %d, want cleared", got)
	}
	if got := f.reg.Lookup(object.Query{Name: "Pkg.Inner", Outer: object.NoHandle}); got != inner {
		t.Fatalf("Lookup(Pkg.Inner) = %d, want %d", got, inner)
	}

	// once nothing reaches the inner, both go
	f.setNext(a, object.NoHandle)
	f.collect(t, object.NoFlags, true)
	if f.reg.IsValid(inner) || f.reg.IsValid(pkg) {
		t.Fatal("unreachable inner and pending-kill outer must be released")
	}

	reused := f.newObj(t, f.node, "Unrelated", object.NoFlags)
	if reused != pkg && reused != inner {
		t.Fatalf("expected a freed slot to be reused, got %d", reused)
	}
	if got := f.reg.Lookup(object.Query{Name: "Pkg.Inner", Outer: object.NoHandle}); got != object.NoHandle {
		t.Fatalf("Lookup(Pkg.Inner) after release = %d", got)
	}
	if got := f.reg.PathName(reused); got != "Unrelated" {
		t.Fatalf("PathName(reused) = %q", got)
	}
}
