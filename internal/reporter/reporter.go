/*
Package reporter gives any component with internal counters a uniform way to describe itself in a
periodic status log: implement Name and Report, and a caller can fold you into a loop over a list of
arbitrary reportable things without knowing what any of them are.

Report's return value is one or more lines, newline-separated, with no trailing newline - callers
typically print it with their own prefix (timestamp, source) per line, so single-line reporters
don't need to think about trailing newlines at all.
*/
package reporter

// Reporter is implemented by anything that can describe its own state as a short text report.
type Reporter interface {
	// Name identifies this reporter, typically used as a log-line prefix.
	Name() string

	// Report renders the current state as one or more newline-separated lines. When
	// resetCounters is true, whatever counters fed the report are zeroed afterward.
	// Implementations must be safe for concurrent calls.
	Report(resetCounters bool) string
}
