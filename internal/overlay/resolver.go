/*
Package overlay is an example overlaydns.Handler: it resolves a configurable set of overlay
suffixes (names that do not exist anywhere in the public ICANN hierarchy) against a configurable
set of private overlay nameservers, selected via the bestserver package. Any query outside the
configured suffixes is declined, letting the owning overlaydns.Server fall through to its normal
upstream forward.
*/
package overlay

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/markdingo/overlaydns/internal/bestserver"
	"github.com/markdingo/overlaydns/internal/dnsutil"

	"github.com/miekg/dns"
)

// ErrNotInBailiwick is returned by Lookup when the query name does not match any configured
// overlay suffix; the caller should treat this exactly like any other overlaydns.Handler decline.
var ErrNotInBailiwick = errors.New("overlay: qName not in overlay bailiwick")

// exchanger is the subset of *dns.Client this package depends on, split out purely so tests can
// substitute a fake without standing up real sockets.
type exchanger interface {
	Exchange(m *dns.Msg, address string) (*dns.Msg, time.Duration, error)
}

// Config configures a Resolver.
type Config struct {
	Suffixes  []string                  // Overlay domain suffixes this Resolver is authoritative for, e.g. "key."
	Servers   []string                  // Overlay nameserver addresses, host:port
	Algorithm string                    // "latency" (default) or "traditional" - see bestserver
	Latency   *bestserver.LatencyConfig // nil selects bestserver.DefaultLatencyConfig
	Timeout   time.Duration             // Per-query exchange timeout; zero selects 2s
	Verbose   bool                      // Log a compact line per lookup to Stdout
	Stdout    io.Writer                 // Destination for verbose logging; ignored if Verbose is false
}

// Resolver implements overlaydns.Handler by forwarding in-bailiwick queries to whichever overlay
// nameserver bestserver currently considers best, and declining everything else.
type Resolver struct {
	suffixes []string
	manager  bestserver.Manager
	client   exchanger
	timeout  time.Duration

	verbose bool
	stdout  io.Writer

	mu      sync.RWMutex
	queries int
	misses  int
	errors  int
}

// New constructs a Resolver from cfg. At least one suffix and one server must be supplied.
func New(cfg Config) (*Resolver, error) {
	if len(cfg.Suffixes) == 0 {
		return nil, errors.New("overlay: at least one Suffix is required")
	}
	if len(cfg.Servers) == 0 {
		return nil, errors.New("overlay: at least one Server is required")
	}

	var manager bestserver.Manager
	var err error
	switch cfg.Algorithm {
	case "traditional":
		manager, err = bestserver.NewTraditional(bestserver.TraditionalConfig{}, bestserver.ServersFromNames(cfg.Servers))
	case "", "latency":
		latencyCfg := bestserver.DefaultLatencyConfig
		if cfg.Latency != nil {
			latencyCfg = *cfg.Latency
		}
		manager, err = bestserver.NewLatency(latencyCfg, bestserver.ServersFromNames(cfg.Servers))
	default:
		return nil, fmt.Errorf("overlay: unknown Algorithm %q", cfg.Algorithm)
	}
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 2 * time.Second
	}

	suffixes := make([]string, len(cfg.Suffixes))
	for i, s := range cfg.Suffixes {
		suffixes[i] = dns.Fqdn(strings.ToLower(s))
	}

	stdout := cfg.Stdout
	if stdout == nil {
		stdout = io.Discard
	}

	return &Resolver{
		suffixes: suffixes,
		manager:  manager,
		client:   &dns.Client{Timeout: timeout},
		timeout:  timeout,
		verbose:  cfg.Verbose,
		stdout:   stdout,
	}, nil
}

// InBailiwick reports whether qName falls under one of this Resolver's configured suffixes.
func (r *Resolver) InBailiwick(qName string) bool {
	qName = strings.ToLower(dns.Fqdn(qName))
	for _, suf := range r.suffixes {
		if strings.HasSuffix(qName, suf) {
			return true
		}
	}

	return false
}

// Lookup implements overlaydns.Handler. It declines any query outside the configured suffixes, or
// one that fails to parse as a DNS message - an overlaydns.Worker always forwards a decline
// upstream, so a malformed query still gets a chance at ordinary resolution.
func (r *Resolver) Lookup(query []byte) ([]byte, error) {
	msg := &dns.Msg{}
	if err := msg.Unpack(query); err != nil {
		r.mu.Lock()
		r.misses++
		r.mu.Unlock()

		return nil, err
	}
	if len(msg.Question) == 0 || !r.InBailiwick(msg.Question[0].Name) {
		r.mu.Lock()
		r.misses++
		r.mu.Unlock()

		return nil, ErrNotInBailiwick
	}

	r.mu.Lock()
	r.queries++
	r.mu.Unlock()

	server, _ := r.manager.Best()
	start := time.Now()
	resp, _, err := r.client.Exchange(msg, server.Name())
	success := err == nil
	r.manager.Result(server, success, time.Now(), time.Since(start))

	if err != nil {
		r.mu.Lock()
		r.errors++
		r.mu.Unlock()
		if r.verbose {
			fmt.Fprintln(r.stdout, "Overlay: exchange with", server.Name(), "failed:", err, "for", dnsutil.CompactMsgString(msg))
		}

		return nil, err
	}

	if r.verbose {
		fmt.Fprintln(r.stdout, "Overlay:", dnsutil.CompactMsgString(msg), "->", dnsutil.CompactMsgString(resp))
	}

	return resp.Pack()
}

// Name implements reporter.Reporter.
func (r *Resolver) Name() string {
	return "Overlay: (" + r.manager.Algorithm() + ", " + strings.Join(r.suffixes, ",") + ")"
}

// Report implements reporter.Reporter.
func (r *Resolver) Report(resetCounters bool) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := formatReport(r.queries, r.misses, r.errors)
	if resetCounters {
		r.queries, r.misses, r.errors = 0, 0, 0
	}

	return s
}
