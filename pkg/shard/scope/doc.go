// Package scope implements the named variable tables units read and write
// through bound parameters.
//
// A wire owns a Scope; nested wires get a Child. Resolution walks the chain
// from the innermost scope outwards, then external bindings, then the mesh
// globals, and finally creates the variable in the innermost scope. Variables
// are reference counted: the last Release destroys the stored value.
//
// The tables themselves are guarded by a mutex. Values are not: within a tick
// units run strictly one after another, which is the only writer discipline
// the slots rely on.
package scope
