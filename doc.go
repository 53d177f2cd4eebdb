/*
Package overlaydns implements an intercepting DNS forwarder.

A Server listens on a single shared UDP socket and hands every inbound datagram to one of a pool of
Worker goroutines. Each Worker first offers the datagram to a Handler - an application-supplied hook
that may synthesize a reply itself, for example to resolve a private overlay namespace that sits
outside the ICANN hierarchy. If the Handler declines, the Worker rewrites the query's 16-bit
transaction ID to one it owns exclusively, records the original query and client address in a
Pending-Query Table shared by all Workers, and forwards the (rewritten) query to a configured
upstream resolver on the same socket. When the upstream reply arrives, whichever Worker receives it
looks the ID up in the Table, restores the client's original transaction ID, and relays the reply
back to the client.

Typical usage:

 b := overlaydns.NewBuilder(overlaydns.Config{})
 b.Upstream("9.9.9.9:53").Workers(4).Handler(myHandler)
 srv, err := b.Build()
 if err != nil { ... }
 defer srv.Join()

The package is deliberately silent on DNS wire semantics beyond the 16-bit transaction ID at the
start of every message; parsing and constructing DNS messages is left to the Handler and to whatever
uses this package, typically with github.com/miekg/dns.
*/
package overlaydns
