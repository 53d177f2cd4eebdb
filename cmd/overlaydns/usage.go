package main

import (
	"fmt"
	"io"
	"text/template"
)

// The "flag" package is not tty aware so we've arbitrarily picked 100 columns as a conservative tty
// width for the usage output.

const usageMessageTemplate = `
NAME
          {{.ProgramName}} -- an intercepting DNS forwarder

SYNOPSIS
          {{.ProgramName}} [options]

DESCRIPTION
          {{.ProgramName}} listens for inbound DNS queries on a single UDP socket shared by a pool
          of workers. Every query is first offered to an optional overlay resolver; if the overlay
          resolver declines (or none is configured), the query is forwarded transparently to an
          upstream ICANN resolver and the eventual reply is relayed back to the original client with
          its original transaction ID intact.

          {{.ProgramName}} is intended to let an application layer private, non-ICANN namespaces
          underneath ordinary DNS resolution without requiring any special client support - any
          plain DNS client pointed at {{.ProgramName}} transparently gets both worlds.

OVERLAY RESOLUTION
          If both -overlay-suffix and -overlay-server are supplied at least once, {{.ProgramName}}
          resolves any query whose name falls under one of the configured suffixes itself, by
          querying the configured overlay nameservers directly rather than forwarding upstream.
          Overlay nameservers are chosen using bestserver selection logic, defaulting to the
          latency-tracking algorithm; ordinary forwarding always uses the single -upstream address.

          Queries outside the configured overlay suffixes - and all queries if no overlay suffix is
          configured at all - are forwarded to -upstream exactly as a plain forwarder would.

OPTIONS
          [-hv] [-version]
          [-upstream address] [-listen address] [-workers count]
          [-status-interval interval]
          [-pending-query-ttl duration] [-pending-query-cap entries]

          [-overlay-suffix suffix ...] [-overlay-server address ...]
          [-overlay-algorithm latency|traditional]

          [-gops] [-cpu-profile file] [-mem-profile file]

          [-user userName] [-group groupName] [-chroot directory]

`

//////////////////////////////////////////////////////////////////////

func usage(out io.Writer) {
	tmpl, err := template.New("usage").Parse(usageMessageTemplate)
	if err != nil {
		panic(err) // We've messed up our template
	}
	err = tmpl.Execute(out, consts)
	if err != nil {
		panic(err) // We've messed up our template
	}
	flagSet.SetOutput(out)
	flagSet.PrintDefaults()
	fmt.Fprintln(out, "\nVersion:", consts.Version)
}

// parseCommandLine sets up the flags-to-config mapping and parses the supplied command line
// arguments. It starts from scratch each time to make it easier for test wrappers to use.
func parseCommandLine(args []string) error {
	flagSet.BoolVar(&cfg.help, "h", false, "Print usage message to Stdout then exit(0)")
	flagSet.BoolVar(&cfg.verbose, "v", false, "Verbose status and stats - otherwise only errors are output")
	flagSet.BoolVar(&cfg.version, "version", false, "Print version and exit")

	flagSet.StringVar(&cfg.upstreamAddress, "upstream", consts.DefaultUpstreamAddress,
		"Upstream resolver `address` used for all non-overlay queries")
	flagSet.StringVar(&cfg.listenAddress, "listen", consts.DefaultListenAddress,
		"Listen `address` for inbound DNS queries")
	flagSet.IntVar(&cfg.workers, "workers", consts.DefaultWorkerCount,
		"`count` of worker goroutines sharing the listen socket")
	flagSet.DurationVar(&cfg.statusInterval, "status-interval", defaultStatusInterval,
		"Periodic status report `interval`")

	flagSet.DurationVar(&cfg.pendingQueryTTL, "pending-query-ttl", 0,
		"Reap pending upstream queries older than this `duration`; 0 disables reaping by age")
	flagSet.IntVar(&cfg.pendingQueryTableCap, "pending-query-cap", 0,
		"Reap oldest pending upstream queries once the table exceeds this many `entries`; 0 disables the cap")

	flagSet.Var(&cfg.overlaySuffixes, "overlay-suffix",
		"A `suffix` this process resolves itself instead of forwarding upstream")
	flagSet.Var(&cfg.overlayServers, "overlay-server",
		"An overlay nameserver `address` queried for in-bailiwick overlay names")
	flagSet.StringVar(&cfg.overlayAlgorithm, "overlay-algorithm", "latency",
		"bestserver selection `algorithm`: latency or traditional")

	flagSet.BoolVar(&cfg.gops, "gops", false, "Start github.com/google/gops agent")
	flagSet.StringVar(&cfg.cpuprofile, "cpu-profile", "", "write cpu profile to `file`")
	flagSet.StringVar(&cfg.memprofile, "mem-profile", "", "write mem profile to `file`")

	flagSet.StringVar(&cfg.setuidName, "user", "", "setuid `username` to constrain process after start-up (disabled for Linux)")
	flagSet.StringVar(&cfg.setgidName, "group", "", "setgid `groupname` to constrain process after start-up (disabled for Linux)")
	flagSet.StringVar(&cfg.chrootDir, "chroot", "", "chroot `directory` to constrain process after start-up")

	return flagSet.Parse(args[1:])
}
