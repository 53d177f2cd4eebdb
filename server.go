package overlaydns

import (
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/markdingo/overlaydns/internal/constants"
)

// Config holds the values a Builder uses to construct a Server. The zero value of Config is valid
// and yields the package defaults (see internal/constants): a single worker forwarding to
// 192.168.1.1:53, listening on 0.0.0.0:53, with a DeclineHandler.
type Config struct {
	Upstream string // Upstream resolver address, host:port
	Listen   string // Local listen address, host:port
	Workers  int    // Number of worker goroutines sharing the listen socket
	Handler  Handler
	Verbose  bool
	Stdout   io.Writer // Destination for verbose/diagnostic output; defaults to os.Stdout

	// PendingQueryTTL and PendingQueryTableCap together configure an optional best-effort
	// background reaper for the Pending-Query Table. Both default to zero, which disables the
	// reaper entirely - the table then grows without bound if the upstream stays silent, and no
	// extra goroutine is started. Setting PendingQueryTTL causes entries older than it to be
	// swept away periodically; setting PendingQueryTableCap additionally bounds the table to that
	// many entries by evicting the oldest first. Either may be set independently of the other.
	PendingQueryTTL      time.Duration
	PendingQueryTableCap int
}

// Builder assembles a Config and constructs a Server from it. Builder exposes chainable setter
// methods so callers can configure it fluently, e.g.:
//
//	srv, err := overlaydns.NewBuilder(overlaydns.Config{}).
//		Upstream("9.9.9.9:53").
//		Workers(4).
//		Handler(myHandler).
//		Build()
type Builder struct {
	cfg Config
}

// NewBuilder returns a Builder seeded with cfg. Any zero-valued fields in cfg are replaced with
// package defaults at Build time.
func NewBuilder(cfg Config) *Builder {
	return &Builder{cfg: cfg}
}

func (b *Builder) Upstream(addr string) *Builder { b.cfg.Upstream = addr; return b }
func (b *Builder) Listen(addr string) *Builder   { b.cfg.Listen = addr; return b }
func (b *Builder) Workers(n int) *Builder        { b.cfg.Workers = n; return b }
func (b *Builder) Handler(h Handler) *Builder    { b.cfg.Handler = h; return b }
func (b *Builder) Verbose(v bool) *Builder       { b.cfg.Verbose = v; return b }

// PendingQueryTTL sets the optional reaper's maximum entry age; see Config.PendingQueryTTL.
func (b *Builder) PendingQueryTTL(ttl time.Duration) *Builder {
	b.cfg.PendingQueryTTL = ttl

	return b
}

// PendingQueryTableCap sets the optional reaper's maximum table size; see Config.PendingQueryTableCap.
func (b *Builder) PendingQueryTableCap(cap int) *Builder {
	b.cfg.PendingQueryTableCap = cap

	return b
}

// Build opens the shared listen socket, partitions the 16-bit ID space across the configured
// number of workers, and starts them all. The returned Server is already running; call Join to
// stop it.
func (b *Builder) Build() (*Server, error) {
	consts := constants.Get()
	cfg := b.cfg

	if len(cfg.Upstream) == 0 {
		cfg.Upstream = consts.DefaultUpstreamAddress
	}
	if len(cfg.Listen) == 0 {
		cfg.Listen = consts.DefaultListenAddress
	}
	if cfg.Workers == 0 {
		cfg.Workers = consts.DefaultWorkerCount
	}
	if cfg.Handler == nil {
		cfg.Handler = DeclineHandler{}
	}
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}

	upstreamAddr, err := net.ResolveUDPAddr(consts.DNSUDPTransport, cfg.Upstream)
	if err != nil {
		return nil, fmt.Errorf("overlaydns: resolve upstream address %q: %w", cfg.Upstream, err)
	}

	listenAddr, err := net.ResolveUDPAddr(consts.DNSUDPTransport, cfg.Listen)
	if err != nil {
		return nil, fmt.Errorf("overlaydns: resolve listen address %q: %w", cfg.Listen, err)
	}

	conn, err := net.ListenUDP(consts.DNSUDPTransport, listenAddr)
	if err != nil {
		return nil, fmt.Errorf("overlaydns: listen on %q: %w", cfg.Listen, err)
	}

	ranges, err := computeIDRanges(cfg.Workers)
	if err != nil {
		conn.Close()

		return nil, err
	}

	srv := &Server{
		conn:            conn,
		upstreamAddr:    upstreamAddr,
		upstreamAddress: cfg.Upstream,
		listenAddress:   cfg.Listen,
		table:           NewTable(),
		handler:         cfg.Handler,
		verbose:         cfg.Verbose,
		stdout:          cfg.Stdout,
		readTimeout:     consts.SocketReadTimeout,
		maxDatagramSize: consts.MaxDatagramSize,
	}

	srv.workers = make([]*worker, cfg.Workers)
	for i, r := range ranges {
		srv.workers[i] = newWorker(i, srv, r)
	}

	srv.wg.Add(len(srv.workers))
	for _, w := range srv.workers {
		w := w
		go func() {
			defer srv.wg.Done()
			w.run()
		}()
	}

	if cfg.PendingQueryTTL > 0 || cfg.PendingQueryTableCap > 0 {
		srv.pendingQueryTTL = cfg.PendingQueryTTL
		srv.pendingQueryTableCap = cfg.PendingQueryTableCap
		r := newReaper(srv)
		srv.wg.Add(1)
		go func() {
			defer srv.wg.Done()
			r.run()
		}()
	}

	return srv, nil
}

// Server is a running intercepting DNS forwarder: one shared UDP socket and a pool of Worker
// goroutines reading from it. Construct one via NewBuilder(...).Build().
type Server struct {
	conn            *net.UDPConn
	upstreamAddr    *net.UDPAddr
	upstreamAddress string
	listenAddress   string

	table   *Table
	handler Handler
	workers []*worker

	stopFlag atomic.Bool
	wg       sync.WaitGroup

	verbose bool
	stdout  io.Writer

	readTimeout     time.Duration
	maxDatagramSize int

	pendingQueryTTL      time.Duration
	pendingQueryTableCap int
	reapInterval         time.Duration // Zero selects defaultReapInterval; not exposed via Config/CLI, only the test seam needs it

	joinOnce sync.Once
	stats    stats
}

// Join stops every worker, waits for them to exit, and closes the shared socket. Join is
// idempotent: calling it more than once has no additional effect.
func (s *Server) Join() {
	s.joinOnce.Do(func() {
		s.stopFlag.Store(true)
		s.wg.Wait()
		s.conn.Close()
	})
}

// PendingCount returns the number of queries currently awaiting an upstream reply. Intended for
// diagnostics and tests.
func (s *Server) PendingCount() int {
	return s.table.Len()
}
