/*

Package bestserver tracks per-server outcomes (success/failure and latency) so that a caller
repeatedly choosing among a fixed set of named servers can keep picking the most reliable, lowest
latency one. overlaydns uses it, via internal/overlay, to choose which overlay nameserver an
in-bailiwick query goes to; the ordinary upstream forward uses a single address. Nothing in
this package knows what a "server" actually is - it's just a Name(), which here happens to be a
resolver address, but could equally be a URL or a hostname.

Typical usage:

 mgr, _ := bestserver.NewLatency(cfg, servers) // Or bestserver.NewTraditional
 for {
      server, _ := mgr.Best()                            // Current pick
      ok, latency := useServer(server)                   // Try it
      mgr.Result(server, ok, time.Now(), latency)         // Feed back the outcome
 }

A Result() call about the current best server may trigger a reassessment. Result() calls about any
other server never trigger one; apart from the latency algorithm's periodic sampling described
below, Best() keeps returning the same value until the current best is reported on. Callers must not cache a Best() return across a Result() call, since that
return value is itself the input to the next reassessment.

Two algorithms are available, NewLatency and NewTraditional, both implementing Manager:

The latency algorithm gravitates toward the lowest-latency server while opportunistically sampling
the others so their data doesn't go stale:

 - the first server starts out as best

 - a reassessment happens when the best server fails, its reassessment timer expires, or its
   Result() count threshold is reached

 - reassessment picks whichever server has the lowest weighted-average latency; a server that
   failed is excluded from consideration until ResetFailedAfter has elapsed since its failure

 - independently of reassessment, roughly SampleOthersEvery calls apart, Best() returns a
   non-best server once so its latency gets refreshed

This is a linear scan over all configured servers, so it's meant for small pools - tens of
resolvers, not thousands.

The traditional algorithm mimics res_send(3)'s resolver selection: stay on the current server until
it reports a failure, then move to the next one in list order, wrapping back to the start once the
list is exhausted.

Every Manager method is safe for concurrent use by multiple goroutines.
*/
package bestserver
