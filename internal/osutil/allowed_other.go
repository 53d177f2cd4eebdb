//go:build !linux
// +build !linux

// On every platform other than Linux the Go runtime applies setuid/setgid process-wide, so
// Constrain performs the real privilege drop. See allowed_linux.go for why Linux is the odd one
// out.

package osutil

const (
	setuidAllowed = true
	setgidAllowed = true
)
