//go:build linux || darwin

package platform

import "golang.org/x/sys/unix"

// LockMemory pins b in RAM so the key material it holds is never written to
// swap. UnlockMemory releases that pin; call it before the backing slice is
// discarded.
func LockMemory(b []byte) error   { return unix.Mlock(b) }
func UnlockMemory(b []byte) error { return unix.Munlock(b) }
