//go:build !oscidebug

package handoff

// onUnpreparedWrite is a no-op in release builds; the write is only counted
func onUnpreparedWrite(string) {}
