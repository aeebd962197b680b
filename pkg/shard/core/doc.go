// Package core contains plumbing shared by the blocking bridge and the mesh:
// worker and detach configuration carried by context, channel helpers, and
// the locomotive that drives a worker line. It defines no unit semantics.
package core
