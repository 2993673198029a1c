//go:build linux || darwin

package host

import "golang.org/x/sys/unix"

// reserve maps n bytes of inaccessible, unbacked address space and releases
// it again. Failure means the process cannot hold a working set of n bytes.
func reserve(n int) error {
	b, err := unix.Mmap(-1, 0, n, unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANON|unix.MAP_NORESERVE)
	if err != nil {
		return err
	}
	return unix.Munmap(b)
}
