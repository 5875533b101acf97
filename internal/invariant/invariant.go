// Package invariant consolidates the panic strings that guard bugs rather
// than input errors: an empty stack where the emitter promises one is never
// empty, a builder missing a field it was required to set, and so on. These
// are never part of the compile-time or runtime error taxonomies.
package invariant

import "fmt"

// Assert panics with msg if cond is false. Only call this for conditions the
// rest of the package already guarantees; never for user input.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf("invariant violated: "+format, args...))
	}
}
