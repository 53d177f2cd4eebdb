/*
Package concurrencytracker counts how many of something are active right now and remembers the
highest that count has ever been. overlaydns uses it to track the occupancy of the Pending-Query
Table - how many forwarded queries are awaiting an upstream reply - so status reports can show the
peak outstanding depth over a reporting period, which is the number an operator watches when an
upstream goes quiet and the table starts to grow.

Typical usage:

 var cct concurrencytracker.Counter

 func track() {
   cct.Add()
   defer cct.Done()
   ... work is outstanding ...
 }

and in a reporting function:

 fmt.Println("Peak outstanding", cct.Peak(true))
*/
package concurrencytracker

import (
	"sync"
)

// Counter tracks a current count and its high-water mark. The zero value is ready to use. All
// methods are safe for concurrent callers.
type Counter struct {
	sync.Mutex
	current int // Outstanding Add() calls not yet matched by Done()
	peak    int // High-water mark of current
}

// Add increments the current count, raising the high-water mark if the new count exceeds it.
// Returns true if this call set a new peak.
func (c *Counter) Add() (increased bool) {
	c.Lock()
	defer c.Unlock()
	c.current++
	if c.current > c.peak {
		c.peak = c.current
		increased = true
	}

	return
}

// Done decrements the current count. Each Done must be matched by an earlier Add; an unmatched
// Done panics since it means the caller's own bookkeeping is broken.
func (c *Counter) Done() {
	c.Lock()
	defer c.Unlock()
	if c.current == 0 {
		panic("concurrencytracker.Done() lacks matching .Add()")
	}
	c.current--
}

// Peak returns the high-water mark. When resetCounters is true the mark is lowered to the current
// count *after* the return value is captured, so the reset only shows up in a subsequent call. The
// current count itself is never reset - only matching Done calls lower it.
func (c *Counter) Peak(resetCounters bool) (peak int) {
	c.Lock()
	defer c.Unlock()
	peak = c.peak
	if resetCounters {
		c.peak = c.current
	}

	return
}
