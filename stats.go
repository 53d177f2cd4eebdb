package overlaydns

import (
	"fmt"
	"sync"
)

const ( // ser = Server ERror index into failureCounters
	serUpstreamSendFailed = iota
	serClientSendFailed
	serListSize
)

const ( // ev = EVent index into events array
	evHandlerHit  = iota // Handler produced a reply - no upstream forward needed
	evForwarded          // Client query was forwarded upstream
	evRelayed            // Upstream reply was relayed back to a client
	evOrphanReply        // Upstream reply arrived with no matching pending entry
	evListSize
)

type events [evListSize]bool

type serverStats struct {
	eventCounters   [evListSize]int
	failureCounters [serListSize]int
}

// stats accumulates the per-datagram events every Worker reports. Server's Name and Report below
// implement reporter.Reporter on top of it, so a Server can be folded into a periodic status-report
// loop exactly as cmd/trustydns-proxy's server type is.
type stats struct {
	mu sync.RWMutex
	serverStats
}

func (s *stats) record(evs events, failure int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ix, hit := range evs {
		if hit {
			s.eventCounters[ix]++
		}
	}
	if failure >= 0 {
		s.failureCounters[failure]++
	}
}

// Name returns the name used as a prefix for reportable output.
func (s *Server) Name() string {
	return "Server: (on " + s.listenAddress + "/udp, upstream " + s.upstreamAddress + ")"
}

// Report returns a single status line. If resetCounters is true, the accumulated counters are
// zeroed after this report is produced, matching reporter.Reporter's documented contract.
func (s *Server) Report(resetCounters bool) string {
	s.stats.mu.Lock()
	defer s.stats.mu.Unlock()

	errs := 0
	for _, v := range s.stats.failureCounters {
		errs += v
	}

	line := fmt.Sprintf("handled=%d/%d/%d/%d errs=%d (%s) pending=%d peakPending=%d",
		s.stats.eventCounters[evHandlerHit], s.stats.eventCounters[evForwarded],
		s.stats.eventCounters[evRelayed], s.stats.eventCounters[evOrphanReply],
		errs, formatCounters("%d", "/", s.stats.failureCounters[:]),
		s.table.Len(), s.table.Peak(resetCounters))

	if resetCounters {
		s.stats.serverStats = serverStats{}
	}

	return line
}

// formatCounters returns a nice %d/%d/%d format for an array of ints.
func formatCounters(vfmt, delim string, vals []int) string {
	res := ""
	for ix, v := range vals {
		if ix > 0 {
			res += delim
		}
		res += fmt.Sprintf(vfmt, v)
	}

	return res
}
