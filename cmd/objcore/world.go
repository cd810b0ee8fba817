package main

import (
	"fmt"
	"math/rand/v2"

	"github.com/wippyai/objectcore/class"
	"github.com/wippyai/objectcore/object"
	"github.com/wippyai/objectcore/runtime"
)

// world is a random object graph living in one package.
type world struct {
	rt     *runtime.Runtime
	rng    *rand.Rand
	link   *class.Struct
	node   *class.Class
	holder *class.Class
	pkg    object.Handle
	batch  int
}

func newWorld(rt *runtime.Runtime, seed uint64) (*world, error) {
	w := &world{rt: rt, rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}

	var err error
	w.link, err = class.NewStruct("Link", []class.PropertySpec{
		{Name: "Target", Kind: class.KindObject},
		{Name: "Strength", Kind: class.KindFloat32},
	})
	if err != nil {
		return nil, err
	}
	w.node, err = rt.RegisterClass(class.Definition{
		Name:  "Node",
		Super: rt.ObjectClass(),
		Properties: []class.PropertySpec{
			{Name: "Weight", Kind: class.KindInt32},
			{Name: "Label", Kind: class.KindName},
			{Name: "Next", Kind: class.KindObject},
			{Name: "Children", Kind: class.KindArray, Elem: class.KindObject},
			{Name: "Links", Kind: class.KindArray, Elem: class.KindStruct, Struct: w.link},
		},
	})
	if err != nil {
		return nil, err
	}
	w.holder, err = rt.RegisterClass(class.Definition{
		Name:  "Holder",
		Super: w.node,
		Properties: []class.PropertySpec{
			{Name: "Slots", Kind: class.KindObject, ArrayDim: 4},
		},
	})
	if err != nil {
		return nil, err
	}
	w.pkg, err = rt.NewPackage("World")
	if err != nil {
		return nil, err
	}
	rt.Registry().AddToRoot(w.pkg)
	return w, nil
}

// populate creates n objects wired with up to fanout references each and
// roots the first roots of them.
func (w *world) populate(n, fanout, roots int) ([]object.Handle, error) {
	reg := w.rt.Registry()
	w.batch++
	hs := make([]object.Handle, 0, n)
	for i := 0; i < n; i++ {
		cls := w.node
		if w.rng.IntN(4) == 0 {
			cls = w.holder
		}
		h, err := w.rt.NewObject(cls, w.pkg, fmt.Sprintf("B%d_%d", w.batch, i), object.NoFlags)
		if err != nil {
			return hs, err
		}
		hs = append(hs, h)
	}
	if len(hs) == 0 {
		return hs, nil
	}
	pick := func() object.Handle { return hs[w.rng.IntN(len(hs))] }

	for _, h := range hs {
		k := w.rng.IntN(fanout + 1)
		if k == 0 {
			continue
		}
		reg.SetRef(h, w.node.Property("Next").Offset, pick())
		if k > 1 {
			children := w.node.Property("Children").Offset
			if err := reg.NewRefArray(h, children, uint32(k-1)); err != nil {
				return hs, err
			}
			for j := 0; j < k-1; j++ {
				reg.SetRefArrayElem(h, children, uint32(j), pick())
			}
		}
		if w.rng.IntN(3) == 0 {
			ptr, err := reg.NewArrayFor(h, w.node.Property("Links"), 2)
			if err != nil {
				return hs, err
			}
			for j := uint32(0); j < 2; j++ {
				reg.WriteRef(ptr+j*w.link.Size(), pick())
			}
		}
		if reg.Get(h).Class() == w.holder {
			reg.SetRef(h, w.holder.Property("Slots").Offset+4*uint32(w.rng.IntN(4)), pick())
		}
	}
	for i := 0; i < roots && i < len(hs); i++ {
		reg.AddToRoot(hs[i])
	}
	return hs, nil
}
