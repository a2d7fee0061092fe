//go:build oscidebug

package handoff

import "fmt"

// onUnpreparedWrite fails fast in debug builds: writing before Prepare is a
// wiring bug in the caller.
func onUnpreparedWrite(worker string) {
	panic(fmt.Sprintf("handoff: write to worker %q before Prepare", worker))
}
