// Package core implements the descriptor tree, reconciler, and scheduler
// behind a loom root.
//
// The package follows a declarative model: components describe what the UI
// should contain as immutable Descriptor values, and a Tree updates the host
// tree to match, touching only what changed.
//
// # Descriptors
//
// A Descriptor is a cheap value describing one node: an element with a tag
// and props, a text run, a fragment grouping siblings, or a component
// application. Builders keep construction terse:
//
//	core.Elem("row", core.Props{"gap": 8},
//	    core.Text("Hello"),
//	    core.Of(&Counter, nil),
//	).WithKey("header")
//
// Descriptors are never mutated after construction; every render produces
// fresh ones.
//
// # Components
//
// A Component pairs a name with a Setup function. Setup runs once per
// instance, captures state in its closure, and returns the render function:
//
//	var Counter = core.Component{
//	    Name: "Counter",
//	    Setup: func(sc *core.Scope) core.Render {
//	        count := core.NewState(sc, 0)
//	        return func() core.Descriptor {
//	            return core.Elem("button", core.Props{
//	                "label": fmt.Sprintf("Clicked %d", count.Get()),
//	            }).Use(mixin.On("press", func(host.Event) {
//	                count.Set(count.Get() + 1)
//	            }))
//	        }
//	    },
//	}
//
// Component identity is the *Component pointer. Reconciliation keeps an
// instance alive exactly as long as the same pointer occupies the same tree
// position.
//
// # Reconciliation
//
// Tree.Render commits a descriptor against the previous commit. Children
// match by key when present, by position among the unkeyed otherwise, and a
// longest stable run of matched children keeps its host nodes in place so
// reorders touch the minimum set. Prop updates write only changed names.
//
// # Scheduling
//
// State changes mark instances dirty; the Scheduler batches them and rebuilds
// in depth order, parents before children, so a parent render that re-renders
// a child consumes the child's pending update. A batch that keeps re-dirtying
// the same instance trips the render-cycle limit and is abandoned with a
// reported LoopError instead of hanging the flush.
//
// # Failure containment
//
// Panics in setup, render, handlers, and cleanups are captured per component
// boundary as errors.Record values and forwarded to the tree's reporter. A
// failed render keeps the instance's previous committed output; ancestors
// and siblings are unaffected.
package core
