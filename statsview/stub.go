//go:build !statsview

package statsview

// Launch is a no-op without the statsview build tag.
func Launch() {}

// Available reports whether the stats server was compiled in.
func Available() bool {
	return false
}
