package dnsutil

import (
	"fmt"
	"strings"

	"github.com/miekg/dns"
)

// CompactMsgString renders a dns.Msg as one printable line suitable for a trace log, in the format:
//
//	id/op/rcode (flags) class/type/qname answers/auths/extras A:<rrs> N:<rrs> E:<rrs>
func CompactMsgString(m *dns.Msg) string {
	var flags strings.Builder
	for _, f := range []struct {
		set  bool
		char byte
	}{
		{m.MsgHdr.Response, 'R'},
		{m.MsgHdr.Authoritative, 'A'},
		{m.MsgHdr.Truncated, 'T'},
		{m.MsgHdr.RecursionDesired, 'd'},
		{m.MsgHdr.RecursionAvailable, 'a'},
		{m.MsgHdr.Zero, 'Z'},
		{m.MsgHdr.AuthenticatedData, 's'},
		{m.MsgHdr.CheckingDisabled, 'x'},
	} {
		if f.set {
			flags.WriteByte(f.char)
		}
	}

	qClass, qType, qName := "?", "?", "?"
	if len(m.Question) > 0 {
		q := m.Question[0]
		qClass = dns.ClassToString[q.Qclass]
		qType = dns.TypeToString[q.Qtype]
		qName = q.Name
	}

	opCode := "?"
	if op, ok := dns.OpcodeToString[m.MsgHdr.Opcode]; ok && len(op) >= 2 {
		opCode = op[0:2]
	}

	var out strings.Builder
	fmt.Fprintf(&out, "%d/%s/%d (%s) %s/%s/%s %d/%d/%d",
		m.MsgHdr.Id, opCode, m.MsgHdr.Rcode, flags.String(),
		qClass, qType, qName, len(m.Answer), len(m.Ns), len(m.Extra))
	fmt.Fprintf(&out, " A:%s N:%s E:%s",
		CompactRRsString(m.Answer), CompactRRsString(m.Ns), CompactRRsString(m.Extra))

	return out.String()
}

// CompactRRsString renders rrs as a single '/'-separated string, one compact token per record.
func CompactRRsString(rrs []dns.RR) string {
	tokens := make([]string, len(rrs))
	for ix, rr := range rrs {
		tokens[ix] = compactRRString(rr)
	}

	return strings.Join(tokens, "/")
}

// compactRRString renders one resource record as a short token; unrecognized types fall back to
// just their type name.
func compactRRString(rr dns.RR) string {
	switch rr := rr.(type) {
	case *dns.A:
		return "A*" + rr.A.String()
	case *dns.AAAA:
		return "AAAA*" + rr.AAAA.String()
	case *dns.MX:
		return fmt.Sprintf("MX*%d-%s", rr.Preference, rr.Mx)
	case *dns.NS:
		return "NS*" + rr.Ns
	case *dns.SRV:
		return fmt.Sprintf("SRV*%d-%d-%s:%d", rr.Priority, rr.Weight, rr.Target, rr.Port)
	case *dns.OPT:
		return compactOPTString(rr)
	default:
		return dns.TypeToString[rr.Header().Rrtype]
	}
}

// compactOPTString renders an OPT pseudo-record's version/extended-rcode/UDP-size plus a
// comma-separated list of its options.
func compactOPTString(rr *dns.OPT) string {
	opts := make([]string, len(rr.Option))
	for ix, option := range rr.Option {
		switch opt := option.(type) {
		case *dns.EDNS0_NSID:
			opts[ix] = "NSID"
		case *dns.EDNS0_SUBNET:
			opts[ix] = fmt.Sprintf("ECS[%d/%d]", opt.SourceNetmask, opt.SourceScope)
		case *dns.EDNS0_COOKIE:
			opts[ix] = "COOKIE"
		case *dns.EDNS0_UL:
			opts[ix] = "UL"
		case *dns.EDNS0_LLQ:
			opts[ix] = "LLQ"
		case *dns.EDNS0_DAU:
			opts[ix] = "DAU"
		case *dns.EDNS0_DHU:
			opts[ix] = "DHU"
		case *dns.EDNS0_LOCAL:
			opts[ix] = "LOCAL"
		case *dns.EDNS0_PADDING:
			opts[ix] = "PAD"
		default:
			opts[ix] = fmt.Sprintf("%d", option.Option())
		}
	}

	return fmt.Sprintf("OPT(%d,%d,%d:%s)", rr.Version(), rr.ExtendedRcode(), rr.UDPSize(),
		strings.Join(opts, ","))
}
