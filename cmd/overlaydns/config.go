package main

import (
	"time"

	"github.com/markdingo/overlaydns/internal/flagutil"
)

type config struct {
	gops    bool
	help    bool
	verbose bool
	version bool

	listenAddress   string
	upstreamAddress string
	workers         int
	statusInterval  time.Duration

	pendingQueryTTL      time.Duration
	pendingQueryTableCap int

	overlaySuffixes  flagutil.StringValue // Overlay domain suffixes this process resolves itself
	overlayServers   flagutil.StringValue // Overlay nameservers queried for in-bailiwick names
	overlayAlgorithm string               // "latency" or "traditional"

	cpuprofile, memprofile string

	setuidName, setgidName, chrootDir string // Process constraint settings
}
