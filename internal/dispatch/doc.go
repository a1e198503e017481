// Package dispatch provides the execution contexts of the highlighting
// pipeline.
//
// Pool is a bounded worker pool for background work such as capture
// fetching. Serial is a single goroutine that runs callbacks one at a time in
// submission order; it is the delivery context that owns sink mutation.
//
// Both recover panics raised by submitted functions and report them through
// a configurable PanicHandler so one faulty task cannot take down a worker.
package dispatch
