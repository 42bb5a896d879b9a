// Package operation tracks batch operations: identity, cooperative
// cancellation, progress and the lifecycle of the progress surface.
//
// The progress surface is deferred. It is shown only when an operation
// outlives its threshold (500ms for single-item kinds, 2s for batches by
// default) and, once shown, stays visible for a minimum dwell so a quick
// finish does not flash.
package operation
