package overlaydns

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"time"
)

// worker is one goroutine reading from the Server's shared UDP socket. It owns an exclusive
// sub-range of the 16-bit transaction ID space and a clone of the Server's Pending-Query Table.
type worker struct {
	id int

	conn         *net.UDPConn
	upstreamAddr *net.UDPAddr

	table   *Table
	handler Handler

	idRange IdRange
	cursor  uint16

	stopFlag *atomic.Bool
	stats    *stats

	verbose bool
	stdout  io.Writer

	readTimeout time.Duration
	bufSize     int
}

func newWorker(id int, srv *Server, idRange IdRange) *worker {
	return &worker{
		id:           id,
		conn:         srv.conn,
		upstreamAddr: srv.upstreamAddr,
		table:        srv.table.Clone(),
		handler:      srv.handler,
		idRange:      idRange,
		cursor:       idRange.Start,
		stopFlag:     &srv.stopFlag,
		stats:        &srv.stats,
		verbose:      srv.verbose,
		stdout:       srv.stdout,
		readTimeout:  srv.readTimeout,
		bufSize:      srv.maxDatagramSize,
	}
}

// nextID advances this worker's cursor by one within its exclusive IdRange, wrapping to Start once
// it reaches End (End itself is never returned), and returns the newly advanced value. No synchronization is required - the
// cursor is only ever touched by this worker's own goroutine.
func (w *worker) nextID() uint16 {
	w.cursor++
	if w.cursor >= w.idRange.End {
		w.cursor = w.idRange.Start
	}

	return w.cursor
}

// run is the worker's main loop: block on a read with a bounded deadline, and on each successful
// read, process the datagram. Setting the stop flag causes run to return at the next deadline.
func (w *worker) run() {
	buf := make([]byte, w.bufSize)
	for {
		if w.stopFlag.Load() {
			return
		}

		w.conn.SetReadDeadline(time.Now().Add(w.readTimeout))
		n, from, err := w.conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue // Just a poll interval expiring, loop back to check the stop flag
			}
			if w.verbose {
				fmt.Fprintln(w.stdout, "W"+fmt.Sprint(w.id)+": read error:", err)
			}
			continue
		}

		datagram := make([]byte, n) // Own copy: buf is reused across iterations
		copy(datagram, buf[:n])
		w.process(datagram, from)
	}
}

// process classifies one datagram and either relays an upstream reply back to its client, or
// offers a client query to the Handler before forwarding it upstream.
func (w *worker) process(datagram []byte, from *net.UDPAddr) {
	if len(datagram) < 2 {
		return // Too short to even contain a transaction ID
	}

	if from.String() == w.upstreamAddr.String() {
		w.processUpstreamReply(datagram)

		return
	}

	w.processClientQuery(datagram, from)
}

// processClientQuery offers the query to the Handler and, failing that, forwards it upstream
// after recording a PendingQuery. Insertion into the Table always precedes the upstream send -
// otherwise an especially fast upstream reply could race its own pending entry.
func (w *worker) processClientQuery(query []byte, from *net.UDPAddr) {
	reply, err := w.safeLookup(query)
	if err == nil && len(reply) >= 2 { // A reply too short to carry a transaction ID is a decline
		restampID(reply, query[0:2])
		w.send(reply, from, evHandlerHit, serClientSendFailed)

		return
	}

	upstreamID := w.nextID()
	w.table.Insert(PendingQuery{
		UpstreamID: upstreamID,
		Query:      query,
		ClientAddr: from,
		ReceivedAt: time.Now(),
	})

	forwarded := make([]byte, len(query))
	copy(forwarded, query)
	binary.BigEndian.PutUint16(forwarded[0:2], upstreamID)

	w.send(forwarded, w.upstreamAddr, evForwarded, serUpstreamSendFailed)
}

// processUpstreamReply looks up the rewritten ID, restores the client's original transaction ID,
// and relays the reply. Replies with no matching pending entry are counted and dropped, with a log
// line only when verbose - they may be late, duplicated, or spoofed.
func (w *worker) processUpstreamReply(reply []byte) {
	id := binary.BigEndian.Uint16(reply[0:2])
	pending, ok := w.table.Remove(id)
	if !ok {
		w.stats.record(events{evOrphanReply: true}, -1)
		if w.verbose {
			fmt.Fprintln(w.stdout, "W"+fmt.Sprint(w.id)+": orphan upstream reply, id", id)
		}

		return
	}

	restampID(reply, pending.Query[0:2])
	w.send(reply, pending.ClientAddr, evRelayed, serClientSendFailed)

	if w.verbose {
		fmt.Fprintln(w.stdout, "W"+fmt.Sprint(w.id)+": relayed to", pending.ClientAddr,
			"after", time.Since(pending.ReceivedAt))
	}
}

// safeLookup invokes the Handler, recovering from any panic and treating it as a decline rather
// than letting it escape and terminate the worker goroutine.
func (w *worker) safeLookup(query []byte) (reply []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("overlaydns: handler panic: %v", r)
			reply = nil
		}
	}()

	return w.handler.Lookup(query)
}

// restampID overwrites the first two bytes of msg with id, the client's original transaction ID.
func restampID(msg []byte, id []byte) {
	msg[0] = id[0]
	msg[1] = id[1]
}

// send writes datagram to addr and records the outcome against the shared stats.
func (w *worker) send(datagram []byte, addr *net.UDPAddr, ev int, failureIx int) {
	var evs events
	evs[ev] = true

	_, err := w.conn.WriteToUDP(datagram, addr)
	if err != nil {
		w.stats.record(events{}, failureIx)
		if w.verbose {
			fmt.Fprintln(w.stdout, "W"+fmt.Sprint(w.id)+": send to", addr, "failed:", err)
		}

		return
	}

	w.stats.record(evs, -1)
}
