// overlaydns listens for inbound DNS queries and forwards them to an upstream resolver, optionally
// resolving a private overlay namespace itself first.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/markdingo/overlaydns/internal/constants"
	"github.com/markdingo/overlaydns/internal/osutil"
	"github.com/markdingo/overlaydns/internal/overlay"
	"github.com/markdingo/overlaydns/internal/reporter"

	"github.com/markdingo/overlaydns"

	"github.com/google/gops/agent"
)

const defaultStatusInterval = 15 * time.Minute

// Program-wide variables
var (
	consts = constants.Get()
	cfg    *config

	stdout io.Writer // All I/O goes via these writers
	stderr io.Writer

	startTime                = time.Now()
	mainStarted, mainStopped bool // Record state transitions thru main (used by tests)
	stopChannel              chan os.Signal
	flagSet                  *flag.FlagSet
)

//////////////////////////////////////////////////////////////////////

func fatal(args ...interface{}) int {
	fmt.Fprint(stderr, "Fatal: ", consts.ProgramName, ": ")
	fmt.Fprintln(stderr, args...)

	return 1
}

// stopMain lets test programs request a clean shutdown of a running mainExecute().
func stopMain() {
	stopChannel <- os.Interrupt
}

//////////////////////////////////////////////////////////////////////
// main wrappers make it easy for test programs
//////////////////////////////////////////////////////////////////////

// mainInit resets everything such that mainExecute() can be called multiple times in one program
// execution. stopChannel is buffered as the reader may disappear if there is a fatal error and
// multiple writers may try to write to the channel and we don't want those writers to stall forever.
func mainInit(out io.Writer, err io.Writer) {
	cfg = &config{}
	stdout = out
	stderr = err
	mainStarted = false
	mainStopped = false
	stopChannel = make(chan os.Signal, 4) // All reasonable signals cause us to quit or stats report
	osutil.SignalNotify(stopChannel)
}

func main() {
	mainInit(os.Stdout, os.Stderr)
	os.Exit(mainExecute(os.Args))
}

func mainExecute(args []string) int {
	flagSet = flag.NewFlagSet(args[0], flag.ContinueOnError)
	flagSet.SetOutput(stderr)
	err := parseCommandLine(args)
	if err != nil {
		return 1 // Error already printed by the flag package
	}
	if cfg.help {
		usage(stdout)
		return 0
	}
	if cfg.version {
		fmt.Fprintln(stdout, consts.ProgramName, "Version:", consts.Version)
		return 0
	}

	if cfg.workers < 1 {
		return fatal("-workers must be GE 1, not", cfg.workers)
	}

	if cfg.overlaySuffixes.NArg() > 0 && cfg.overlayServers.NArg() == 0 {
		return fatal("-overlay-suffix requires at least one -overlay-server")
	}
	if cfg.overlayServers.NArg() > 0 && cfg.overlaySuffixes.NArg() == 0 {
		return fatal("-overlay-server requires at least one -overlay-suffix")
	}

	var reporters []reporter.Reporter // Keep track of all reportable routines

	var handler overlaydns.Handler = overlaydns.DeclineHandler{}
	if cfg.overlaySuffixes.NArg() > 0 {
		if cfg.overlayAlgorithm != "latency" && cfg.overlayAlgorithm != "traditional" {
			return fatal("-overlay-algorithm must be 'latency' or 'traditional', not", cfg.overlayAlgorithm)
		}
		resolver, err := overlay.New(overlay.Config{
			Suffixes:  cfg.overlaySuffixes.Args(),
			Servers:   cfg.overlayServers.Args(),
			Algorithm: cfg.overlayAlgorithm,
			Verbose:   cfg.verbose,
			Stdout:    stdout,
		})
		if err != nil {
			return fatal(err)
		}
		handler = resolver
		reporters = append(reporters, resolver)
		if cfg.verbose {
			fmt.Fprintln(stdout, "Overlay suffixes:", cfg.overlaySuffixes.Args())
			fmt.Fprintln(stdout, "Overlay servers:", cfg.overlayServers.Args())
		}
	}

	// Start gops diagnostic agent if requested, prior to binding the privileged socket so an
	// operator can attach even if something later in start-up goes wrong.

	if cfg.gops {
		if err := agent.Listen(agent.Options{}); err != nil {
			return fatal("gops agent:", err)
		}
		defer agent.Close()
	}

	// Start CPU profiling now that most error checking is complete

	if len(cfg.cpuprofile) > 0 {
		f, err := os.Create(cfg.cpuprofile)
		if err != nil {
			return fatal(err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fatal(err)
		}
		defer pprof.StopCPUProfile()
	}

	var memProfileFile *os.File
	if len(cfg.memprofile) > 0 {
		memProfileFile, err = os.Create(cfg.memprofile)
		if err != nil {
			return fatal(err)
		}
		defer memProfileFile.Close()
	}

	if cfg.verbose {
		fmt.Fprintln(stdout, consts.ProgramName, consts.Version, "Starting: upstream", cfg.upstreamAddress,
			"listen", cfg.listenAddress, "workers", cfg.workers)
	}

	srv, err := overlaydns.NewBuilder(overlaydns.Config{
		Upstream:             cfg.upstreamAddress,
		Listen:               cfg.listenAddress,
		Workers:              cfg.workers,
		Handler:              handler,
		Verbose:              cfg.verbose,
		Stdout:               stdout,
		PendingQueryTTL:      cfg.pendingQueryTTL,
		PendingQueryTableCap: cfg.pendingQueryTableCap,
	}).Build()
	if err != nil {
		return fatal(err)
	}
	reporters = append(reporters, srv)

	// Constrain the process via setuid/setgid/chroot. This is a no-op call if all parameters
	// are empty strings. We've already opened the privileged listen socket above so the order
	// here is safe.

	err = osutil.Constrain(cfg.setuidName, cfg.setgidName, cfg.chrootDir)
	if err != nil {
		return fatal(err)
	}
	if cfg.verbose {
		fmt.Fprintf(stdout, "Constraints: %s\n", osutil.ConstraintReport())
	}

	// Loop forever giving periodic status reports and checking for a termination event.

	mainStarted = true // Tell testers that we're up and running
	nextStatusIn := nextInterval(time.Now(), cfg.statusInterval)

Running:
	for {
		select {
		case s := <-stopChannel:
			if osutil.IsSignalUSR1(s) {
				statusReport("User1", false, reporters)
				break
			}
			if cfg.verbose {
				fmt.Fprintln(stdout, "\nSignal", s)
			}
			break Running // All signals bar USR1 cause loop exit

		case <-time.After(nextStatusIn):
			if cfg.verbose {
				statusReport("Status", true, reporters)
			}
			nextStatusIn = nextInterval(time.Now(), cfg.statusInterval)
		}
	}

	srv.Join()
	mainStopped = true

	if cfg.verbose {
		statusReport("Status", true, reporters) // One last report prior to exiting
		fmt.Fprintln(stdout, consts.ProgramName, consts.Version, "Exiting after", uptime())
	}

	// Memory profile is written at the end of the program

	if memProfileFile != nil {
		runtime.GC() // get up-to-date statistics
		err := pprof.WriteHeapProfile(memProfileFile)
		if err != nil {
			return fatal(err)
		}
	}

	return 0
}

// nextInterval calculates the duration to the modulo interval next time. If now is 00:01:17 and
// interval is 30s then return is 13s which is the duration to the next modulo of 00:01:30.
func nextInterval(now time.Time, interval time.Duration) time.Duration {
	return now.Truncate(interval).Add(interval).Sub(now)
}

// uptime calculates how long this server has been running and returns print-friendly and
// granularity-appropriate representation of that duration.
func uptime() string {
	return time.Now().Sub(startTime).Truncate(time.Second).String()
}

// statusReport prints stats about the server and all known reporters
func statusReport(what string, resetCounters bool, reporters []reporter.Reporter) {
	fmt.Fprintln(stdout, "Status Up:", consts.ProgramName, consts.Version, uptime())
	for _, r := range reporters {
		fmt.Fprintf(stdout, "%s %s: %s\n", what, r.Name(), r.Report(resetCounters))
	}
}
