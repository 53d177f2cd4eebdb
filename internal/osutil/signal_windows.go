// +build windows !unix

package osutil

import (
	"os"
)

// SignalNotify is a no-op on Windows: there's no SIGHUP/SIGUSR1 equivalent worth wiring up here.
func SignalNotify(c chan os.Signal) {
}

// IsSignalUSR1 always reports false on Windows.
func IsSignalUSR1(s os.Signal) bool {
	return false
}
