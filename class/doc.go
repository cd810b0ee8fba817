// Package class holds reflected type metadata: class descriptors, property
// layout and the reference token streams the collector interprets.
//
// # Registration
//
// Classes are registered into a Table from a Definition. A class's super must
// already be registered, so the order of Register calls is a topological
// initialization order. Properties are laid out after the super's fields with
// natural alignment:
//
//	objClass, _ := classes.Register(class.Definition{Name: "Object"})
//	node, _ := classes.Register(class.Definition{
//	    Name:  "Node",
//	    Super: objClass,
//	    Properties: []class.PropertySpec{
//	        {Name: "Next", Kind: class.KindObject},
//	        {Name: "Children", Kind: class.KindArray, Elem: class.KindObject},
//	    },
//	})
//
// # Reference token streams
//
// Each class owns a flat stream of 32-bit words describing, in depth-first
// order, where object references live inside an instance:
//
//	word   = returnCount(8) | kind(5) | offset(19)
//	Object         one u32 reference at offset
//	ArrayObject    [ptr, len] header at offset, len u32 references at ptr
//	ArrayStruct    header, stride word, skip word; block of per-element tokens
//	FixedArray     header, stride word, count word; block repeated count times
//	EndOfStream    terminator
//
// The last token of a block carries a return count covering every block that
// ends with it. The skip word of an ArrayStruct holds the distance to the
// token after the block plus the number of enclosing blocks that end there,
// so a walker can step over an empty array.
//
// Bind emits a class's own tokens once. AssembleReferenceTokenStream prefixes
// them with the parent's assembled stream and terminates the result; it is
// idempotent, and parent fields are always walked before derived fields.
package class
