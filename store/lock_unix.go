//go:build linux || darwin

package store

import (
	"os"

	"golang.org/x/sys/unix"
)

// flockExclusive takes an advisory exclusive lock on f, blocking until
// it is available. It is best-effort cross-process serialization for
// the file backend; nothing in this package relies on it for
// correctness within a single process, where the backend's own mutex
// already serializes access.
func flockExclusive(f *os.File) (unlock func(), err error) {
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		return nil, err
	}
	return func() { _ = unix.Flock(int(f.Fd()), unix.LOCK_UN) }, nil
}
