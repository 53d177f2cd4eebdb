//go:build linux
// +build linux

// Go's setuid/setgid don't work on Linux: each OS thread has its own uid/gid, and the Go runtime
// can migrate a goroutine between threads mid-syscall, so a setuid() on one thread doesn't bind the
// process as a whole. See https://github.com/golang/go/issues/1435. Constrain's chroot step still
// works, it's only the uid/gid drop that's disabled here.

package osutil

const (
	setuidAllowed = false
	setgidAllowed = false
)
