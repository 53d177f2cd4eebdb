package dnsutil

import (
	"strings"
	"testing"

	"github.com/miekg/dns"
)

const allOpts = "NSID,ECS[24/16],COOKIE,UL,LLQ,DAU,DHU,7,LOCAL,PAD"

// mustRR parses s into a dns.RR, failing the test immediately if it's malformed.
func mustRR(t *testing.T, s string) dns.RR {
	t.Helper()
	rr, err := dns.NewRR(s)
	if err != nil {
		t.Fatalf("parsing test RR %q: %v", s, err)
	}

	return rr
}

// newOPT builds a minimally valid OPT RR - the zero value isn't usable as one.
func newOPT() *dns.OPT {
	opt := &dns.OPT{}
	opt.SetVersion(0)
	opt.SetUDPSize(dns.DefaultMsgSize)
	opt.Hdr.Name = "."
	opt.Hdr.Rrtype = dns.TypeOPT

	return opt
}

func TestCompactMsgStringIncludesEachSection(t *testing.T) {
	msg := &dns.Msg{
		Answer: []dns.RR{
			mustRR(t, "a.name.example.net. 300 IN A 1.2.3.4"),
			mustRR(t, "a.name.example.net. 300 IN AAAA fe80::f0a2:46ff:feb5:3c98"),
			mustRR(t, "compress.name.example.net. 300 IN TXT 'Some text'"),
			mustRR(t, "service.example.net. 300 IN SRV 10 20 30 host1.example.net."),
		},
		Ns: []dns.RR{
			mustRR(t, "nocompress.example.com. 300 IN NS a.ns.example.net."),
			mustRR(t, "example.net. 600 IN NS b.ns.example.net."),
		},
		Extra: []dns.RR{
			mustRR(t, "example.com. 600 IN SOA internal.e hostmaster. 1554301415 16384 2048 1048576 480"),
			mustRR(t, "example.net. 600 IN MX 10 smtp.example.net."),
		},
	}
	msg.SetQuestion("a.name.example.net.", dns.TypeMX)

	if s := CompactMsgString(msg); !strings.Contains(s, "AAAA*") {
		t.Error("expected the AAAA answer to appear in the output:", s)
	}
}

func TestCompactMsgStringRendersHeaderFlags(t *testing.T) {
	msg := &dns.Msg{}
	msg.SetQuestion("a.name.example.net.", dns.TypeMX)
	msg.MsgHdr.Response = true
	msg.MsgHdr.Authoritative = true
	msg.MsgHdr.Truncated = true
	msg.MsgHdr.RecursionDesired = true
	msg.MsgHdr.RecursionAvailable = true
	msg.MsgHdr.Zero = true
	msg.MsgHdr.AuthenticatedData = true
	msg.MsgHdr.CheckingDisabled = true

	if s := CompactMsgString(msg); !strings.Contains(s, "RATdaZsx") {
		t.Error("expected every header flag to be represented as 'RATdaZsx':", s)
	}
}

func TestCompactMsgStringRendersEveryOPTOption(t *testing.T) {
	msg := &dns.Msg{}
	msg.SetQuestion("a.name.example.net.", dns.TypeMX)

	opt := newOPT()
	opt.Option = append(opt.Option,
		&dns.EDNS0_NSID{},
		&dns.EDNS0_SUBNET{SourceNetmask: 24, SourceScope: 16},
		&dns.EDNS0_COOKIE{},
		&dns.EDNS0_UL{},
		&dns.EDNS0_LLQ{},
		&dns.EDNS0_DAU{},
		&dns.EDNS0_DHU{},
		&dns.EDNS0_N3U{}, // Deliberately unhandled, to exercise the default case
		&dns.EDNS0_LOCAL{},
		&dns.EDNS0_PADDING{})
	msg.Extra = append(msg.Extra, opt)

	s := CompactMsgString(msg)
	if !strings.Contains(s, allOpts) {
		t.Error("expected the option list", allOpts, "in:", s)
	}
	if !strings.Contains(s, "OPT(0,0,4096") {
		t.Error("expected the OPT version/rcode/udpsize prefix in:", s)
	}
}
