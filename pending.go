package overlaydns

import (
	"net"
	"sync"
	"time"

	"github.com/markdingo/overlaydns/internal/concurrencytracker"
)

// PendingQuery records a client query this server has forwarded upstream and is waiting on a reply
// for. It is keyed in the Table by UpstreamID, the rewritten transaction ID actually sent upstream.
type PendingQuery struct {
	UpstreamID uint16
	Query      []byte       // The verbatim client datagram, original transaction ID intact at [0:2]
	ClientAddr *net.UDPAddr // Where to send the eventual reply
	ReceivedAt time.Time    // For diagnostics only
}

// Table is the Pending-Query Table: a concurrency-safe mapping from upstream_id to PendingQuery
// shared by every Worker in a Server. Table is small by design - a mutex-guarded map - because the
// hot path is a single insert or a single remove, never an iteration or a range scan.
//
// A Table value must not be copied; use Clone to obtain an additional handle that shares the same
// underlying map, so every Worker sees every other Worker's insertions and removals.
type Table struct {
	shared *tableData
}

type tableData struct {
	mu      sync.Mutex
	entries map[uint16]PendingQuery
	cct     concurrencytracker.Counter
}

// NewTable creates a fresh, empty Pending-Query Table.
func NewTable() *Table {
	return &Table{shared: &tableData{entries: make(map[uint16]PendingQuery)}}
}

// Clone returns a new Table handle backed by the same underlying map as t. Both handles observe
// each other's Insert/Remove calls; no data is copied.
func (t *Table) Clone() *Table {
	return &Table{shared: t.shared}
}

// Insert stores q keyed by q.UpstreamID, replacing any previous entry under that key. A replace
// leaves occupancy unchanged so the tracker is only bumped for genuinely new keys.
func (t *Table) Insert(q PendingQuery) {
	d := t.shared
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.entries[q.UpstreamID]; !exists {
		d.cct.Add()
	}
	d.entries[q.UpstreamID] = q
}

// Remove detaches and returns the entry for id, if present.
func (t *Table) Remove(id uint16) (PendingQuery, bool) {
	d := t.shared
	d.mu.Lock()
	defer d.mu.Unlock()
	q, ok := d.entries[id]
	if ok {
		delete(d.entries, id)
		d.cct.Done()
	}

	return q, ok
}

// Len returns the current number of outstanding pending queries. Intended for diagnostics/tests.
func (t *Table) Len() int {
	d := t.shared
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.entries)
}

// Peak returns the peak number of entries the Table has ever held, optionally resetting the peak
// to the current occupancy - see concurrencytracker.Counter.Peak.
func (t *Table) Peak(resetCounters bool) int {
	return t.shared.cct.Peak(resetCounters)
}

// reapExpired removes entries older than ttl (if ttl > 0) and, if cap > 0 and the table still
// exceeds cap afterwards, removes the oldest remaining entries until occupancy is at or below cap.
// It exists solely for the optional reaper goroutine started by Builder.Build when
// Config.PendingQueryTTL or Config.PendingQueryTableCap is non-zero; the Table otherwise offers
// no iteration at all.
func (t *Table) reapExpired(ttl time.Duration, cap int, now time.Time) int {
	d := t.shared
	d.mu.Lock()
	defer d.mu.Unlock()

	removed := 0
	if ttl > 0 {
		for id, q := range d.entries {
			if now.Sub(q.ReceivedAt) >= ttl {
				delete(d.entries, id)
				d.cct.Done()
				removed++
			}
		}
	}

	if cap > 0 && len(d.entries) > cap {
		excess := len(d.entries) - cap
		oldestIDs := make([]uint16, 0, excess)
		for len(oldestIDs) < excess {
			var oldestID uint16
			var oldestAt time.Time
			found := false
			for id, q := range d.entries {
				alreadyPicked := false
				for _, picked := range oldestIDs {
					if picked == id {
						alreadyPicked = true

						break
					}
				}
				if alreadyPicked {
					continue
				}
				if !found || q.ReceivedAt.Before(oldestAt) {
					oldestID, oldestAt, found = id, q.ReceivedAt, true
				}
			}
			if !found {
				break
			}
			oldestIDs = append(oldestIDs, oldestID)
		}
		for _, id := range oldestIDs {
			delete(d.entries, id)
			d.cct.Done()
			removed++
		}
	}

	return removed
}
