// Package wire chains unit instances into a pipeline.
//
// Compose type-checks the chain once, Warmup binds every unit to the wire
// scope, Tick runs the units in order and Cleanup releases them in reverse.
package wire
