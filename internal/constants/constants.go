/*
Package constants provides common values used across all overlaydns packages. Usage is to call the
global Get() function which returns the Constants by value ensuring that any modifications made
(accidental or otherwise) will not affect other modules when they call Get().

Typically usage:

    consts := constants.Get()
    fmt.Println("I am", consts.ProgramName, "based on", consts.PackageURL)

The primary reason for making this a constructed struct rather than the more typical const () block
is so that it can be fed directly into templating packages for printing usage messages.
*/
package constants

import "time"

// Constants contains the system-wide constants
type Constants struct {
	ProgramName string
	Version     string
	PackageName string
	PackageURL  string

	DNSDefaultPort          string // DNS related constants
	MinimumViableDNSMessage uint   // MsgHdr + one Question with zero length name
	MaximumViableDNSMessage uint   // Largest possible DNS message; the read buffer is MaxDatagramSize

	DNSUDPTransport string // Suitable for the "net" package, but just to make sure we're consistent

	DefaultUpstreamAddress string        // Where client queries are forwarded when nothing else resolves them
	DefaultListenAddress   string        // Where this server accepts inbound client queries
	DefaultWorkerCount     int           // Number of goroutines sharing the listen socket
	SocketReadTimeout      time.Duration // Bounds how long a worker blocks before polling its stop flag
	MaxDatagramSize        int           // Size of the per-read receive buffer

	IDSpaceSize uint32 // Size of the 16-bit DNS transaction ID space, i.e. 1<<16
}

var readOnlyConstants *Constants

// createReadOnlyConstants creates a read-only copy of the Constants which is copied whenever a
// caller asks for the constants set. The main reason for returning a struct is so that callers can
// inspect and/or use packages that introspect - particularly */template packages.
func createReadOnlyConstants() {
	readOnlyConstants = &Constants{
		ProgramName: "overlaydns",
		Version:     "v0.1.0",
		PackageName: "Overlay DNS Forwarder",
		PackageURL:  "https://github.com/markdingo/overlaydns",

		DNSDefaultPort:          "53",
		MinimumViableDNSMessage: 16, // A legit binary DNS Message *cannot* be shorter than this
		MaximumViableDNSMessage: 65535,

		DNSUDPTransport: "udp",

		DefaultUpstreamAddress: "192.168.1.1:53",
		DefaultListenAddress:   "0.0.0.0:53",
		DefaultWorkerCount:     1,
		SocketReadTimeout:      500 * time.Millisecond,
		MaxDatagramSize:        1024,

		IDSpaceSize: 1 << 16,
	}
}

func init() {
	createReadOnlyConstants()
}

// Get returns a copy of the Constant struct. Return by value so internal values cannot be
// inadvertently changed by callers.
func Get() Constants {
	return *readOnlyConstants
}
