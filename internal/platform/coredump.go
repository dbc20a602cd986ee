// Package platform isolates the OS-specific hardening keybox applies to the
// process holding the master key: suppressing core dumps and pinning key
// buffers out of swap.
package platform

import "golang.org/x/sys/unix"

// DisableCoreDumps sets RLIMIT_CORE to zero so a crash never writes process
// memory, and the key material in it, to disk.
func DisableCoreDumps() error {
	var rlim unix.Rlimit
	rlim.Cur = 0
	rlim.Max = 0
	return unix.Setrlimit(unix.RLIMIT_CORE, &rlim)
}
