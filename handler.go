package overlaydns

import "errors"

// ErrDecline is returned by a Handler to signal that it has no answer for this query and the Worker
// should forward it upstream instead. A Handler may return any non-nil error to the same effect;
// ErrDecline exists purely as a convenient, named value for handlers to return or compare against.
var ErrDecline = errors.New("overlaydns: handler declines query")

// Handler is the single hook through which an application overlays its own name resolution on top
// of this forwarder. Lookup receives the verbatim bytes of a client's DNS query and either returns a
// complete reply datagram, or a non-nil error to decline - in which case the Worker forwards the
// query to the configured upstream resolver.
//
// Lookup must be safe to call concurrently from multiple goroutines; the engine shares a single
// Handler value across every Worker. A Handler is free to ignore the query's transaction ID when
// building its reply - the Worker re-stamps the first two bytes of any Handler-produced reply with
// the client's original transaction ID before sending it, so every client always sees its own ID
// reflected back regardless of what the Handler does internally.
type Handler interface {
	Lookup(query []byte) (reply []byte, err error)
}

// DeclineHandler is a Handler that always declines, handing every query straight upstream. It is
// the Builder's default Handler so a Server is fully functional as a plain forwarder with no
// overlay logic configured at all.
type DeclineHandler struct{}

func (DeclineHandler) Lookup(query []byte) ([]byte, error) {
	return nil, ErrDecline
}
