// Package param holds bound parameters and the per-unit descriptor table.
//
// A ParamVar is either a constant or a reference to a named variable. It is
// acquired against the wire scope during warmup and released during cleanup.
// A Set orders the bindings of one unit, checks assigned values against the
// declared types, and acquires them in order and releases them in reverse.
package param
