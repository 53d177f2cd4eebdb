package overlaydns

import (
	"sync/atomic"
	"time"
)

// defaultReapInterval bounds how far past its TTL an entry can linger before a sweep sees it. It is
// deliberately independent of the socket read deadline used by Worker.run - the reaper polls the
// Table, not the socket.
const defaultReapInterval = time.Second

// stopPollInterval is how often the reaper checks the stop flag while waiting out a sweep
// interval, bounding its shutdown latency the same way Worker.run is bounded by its read deadline.
const stopPollInterval = 250 * time.Millisecond

// reaper is an optional background sweep of the Pending-Query Table, started by Builder.Build only
// when Config.PendingQueryTTL or Config.PendingQueryTableCap is non-zero. With both fields at
// their zero default, nothing in this file ever runs and the table grows without bound.
type reaper struct {
	table    *Table
	ttl      time.Duration
	cap      int
	interval time.Duration
	stopFlag *atomic.Bool
}

func newReaper(srv *Server) *reaper {
	interval := srv.reapInterval
	if interval <= 0 {
		interval = defaultReapInterval
	}

	return &reaper{
		table:    srv.table.Clone(),
		ttl:      srv.pendingQueryTTL,
		cap:      srv.pendingQueryTableCap,
		interval: interval,
		stopFlag: &srv.stopFlag,
	}
}

// run sweeps the Table until the stop flag is set, reaping expired or excess entries on each sweep.
// Time is counted in stopPollInterval steps, so a sweep runs once at least r.interval has elapsed
// and never more often than every stopPollInterval. Like Worker.run, it polls the stop flag on a short bounded cadence so
// Server.Join's shutdown latency isn't dictated by the (potentially much longer) sweep interval.
func (r *reaper) run() {
	elapsed := time.Duration(0)
	for {
		if r.stopFlag.Load() {
			return
		}
		time.Sleep(stopPollInterval)
		elapsed += stopPollInterval
		if elapsed >= r.interval {
			elapsed = 0
			r.table.reapExpired(r.ttl, r.cap, time.Now())
		}
	}
}
