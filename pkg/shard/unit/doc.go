// Package unit defines the processing unit contract and its runtime
// wrapper.
//
// A Unit declares its name, accepted input and output types and an
// Activate routine. Optional behavior is discovered through the small
// interfaces Helper, Parameterized, Composer, Warmer, Cleaner, Requirer and
// Exposer. An Instance enforces the lifecycle around those calls, and the
// Registry validates and caches unit descriptors at load time.
//
// Blocking work goes through RunBlocking, which suspends the calling wire
// instead of the scheduler. Units accepting several input shapes use a
// Dispatch to pick their routine once per composition.
package unit
