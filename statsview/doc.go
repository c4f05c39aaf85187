// Package statsview serves runtime statistics over HTTP when the binary is
// built with the statsview build tag. Without the tag Launch does nothing.
//
// After launch, graphs are viewable at:
//
//	localhost:12600/debug/statsview
//
// And standard Go pprof statistics at:
//
//	localhost:12600/debug/pprof/
package statsview
