// Package runtime wires the objectcore packages into one owning context.
//
// # Quick Start
//
//	ctx := context.Background()
//	rt, err := runtime.New(ctx, config.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	node, err := rt.RegisterClass(class.Definition{
//	    Name:  "Node",
//	    Super: rt.ObjectClass(),
//	    Properties: []class.PropertySpec{
//	        {Name: "Next", Kind: class.KindObject},
//	    },
//	})
//
//	a, _ := rt.NewObject(node, object.NoHandle, "A", object.RootSet)
//
// # Bootstrap
//
// New registers the intrinsic Object and Package classes, creates the
// Transient package and then closes the disregard set, so everything
// created during bootstrap is exempt from collection.
//
// # Collection
//
// CollectGarbage runs a pass on demand. Tick is meant to be called once per
// frame: it collects when gc.auto_interval has elapsed and otherwise spends
// up to gc.purge_time_limit on a pending purge.
//
// A Runtime is not safe for concurrent use. The object and gc package
// loggers are process-wide: New installs its logger there, so the most
// recently created Runtime's logger wins. Close restores the no-op logger
// only while its own logger is still installed.
package runtime
