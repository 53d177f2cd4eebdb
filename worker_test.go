package overlaydns

import (
	"encoding/binary"
	"io"
	"net"
	"testing"
)

// panicHandler always panics instead of returning - it stands in for a misbehaving third-party
// Handler so safeLookup's recover()-based decline path can be exercised directly: a Handler panic
// must present as a decline, never crash the Worker.
type panicHandler struct{}

func (panicHandler) Lookup(query []byte) ([]byte, error) {
	panic("panicHandler: deliberate panic")
}

func TestSafeLookupRecoversHandlerPanic(t *testing.T) {
	w := &worker{handler: panicHandler{}}

	reply, err := w.safeLookup([]byte{0, 1, 2, 3})
	if err == nil {
		t.Fatal("safeLookup should return a non-nil error when the Handler panics")
	}
	if reply != nil {
		t.Error("safeLookup should return a nil reply when the Handler panics")
	}
}

func TestProcessClientQueryForwardsOnHandlerPanic(t *testing.T) {
	up := startFakeUpstream(t)
	defer up.close()

	upstreamAddr, err := net.ResolveUDPAddr("udp", up.addr())
	if err != nil {
		t.Fatalf("resolve upstream addr: %v", err)
	}

	listenConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listenConn.Close()

	w := &worker{
		conn:         listenConn,
		upstreamAddr: upstreamAddr,
		table:        NewTable(),
		handler:      panicHandler{},
		idRange:      IdRange{Start: 0, End: 10},
		cursor:       0,
		stats:        &stats{},
		stdout:       io.Discard,
	}

	from := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 40000}
	query := make([]byte, 12)
	binary.BigEndian.PutUint16(query[0:2], 0x1234)

	w.processClientQuery(query, from)

	if w.table.Len() != 1 {
		t.Fatalf("a panicking Handler should still cause the query to be forwarded upstream "+
			"(pending table len = %d, want 1)", w.table.Len())
	}
}

// shortReplyHandler claims success but returns a reply too short to carry a transaction ID.
type shortReplyHandler struct{}

func (shortReplyHandler) Lookup(query []byte) ([]byte, error) {
	return []byte{0x00}, nil
}

func TestProcessClientQueryForwardsOnShortHandlerReply(t *testing.T) {
	up := startFakeUpstream(t)
	defer up.close()

	upstreamAddr, err := net.ResolveUDPAddr("udp", up.addr())
	if err != nil {
		t.Fatalf("resolve upstream addr: %v", err)
	}

	listenConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listenConn.Close()

	w := &worker{
		conn:         listenConn,
		upstreamAddr: upstreamAddr,
		table:        NewTable(),
		handler:      shortReplyHandler{},
		idRange:      IdRange{Start: 0, End: 10},
		stats:        &stats{},
		stdout:       io.Discard,
	}

	query := make([]byte, 12)
	binary.BigEndian.PutUint16(query[0:2], 0x1234)
	w.processClientQuery(query, &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 40000})

	if w.table.Len() != 1 {
		t.Fatalf("a reply too short to re-stamp should be treated as a decline and forwarded "+
			"(pending table len = %d, want 1)", w.table.Len())
	}
}

func TestProcessUpstreamReplyDropsOrphan(t *testing.T) {
	w := &worker{
		table:  NewTable(),
		id:     0,
		stats:  &stats{},
		stdout: io.Discard,
	}

	reply := make([]byte, 12)
	binary.BigEndian.PutUint16(reply[0:2], 0xBEEF) // No pending entry was ever inserted for this ID

	w.processUpstreamReply(reply)

	if w.table.Len() != 0 {
		t.Error("an orphan upstream reply must not mutate the pending-query table")
	}
	if got := w.stats.eventCounters[evOrphanReply]; got != 1 {
		t.Errorf("evOrphanReply counter = %d, want 1", got)
	}
}
