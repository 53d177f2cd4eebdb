// Package flagutil implements flag.Value types the standard flag package doesn't provide out of
// the box. StringValue lets a command accept a flag multiple times and collect every occurrence,
// e.g.:
//
//	$command -upstream 1.1.1.1:53 -upstream 9.9.9.9:53
//
// Usage matches any other flag.Value:
//
//	var upstreams flagutil.StringValue
//	flagSet.Var(&upstreams, "upstream", "upstream resolver address, repeatable")
//	addrs := upstreams.Args() // []string of everything collected
package flagutil

import (
	"strings"
)

// StringValue accumulates every value passed to a repeatable flag. Its zero value is ready to use.
type StringValue struct {
	values []string
}

// Set appends s to the accumulated values; the flag package calls this once per occurrence of the
// flag on the command line. Part of the flag.Value interface.
func (v *StringValue) Set(s string) error {
	v.values = append(v.values, s)

	return nil
}

// String joins the accumulated values with spaces. Part of the flag.Value interface.
func (v *StringValue) String() string {
	return strings.Join(v.values, " ")
}

// Args returns a copy of the accumulated values; callers may freely mutate the returned slice.
func (v *StringValue) Args() []string {
	return append([]string{}, v.values...)
}

// NArg returns how many values have been accumulated.
func (v *StringValue) NArg() int {
	return len(v.values)
}
