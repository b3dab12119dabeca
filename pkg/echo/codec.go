package echo

import (
	"encoding/binary"
	"net/netip"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

const (
	icmpv4EchoReply       = 0
	icmpv4DestUnreachable = 3
	icmpv4EchoRequest     = 8
	icmpv4TimeExceeded    = 11
	icmpv4ParamProblem    = 12

	icmpv6DestUnreachable = 1
	icmpv6PacketTooBig    = 2
	icmpv6TimeExceeded    = 3
	icmpv6ParamProblem    = 4
	icmpv6EchoRequest     = 128
	icmpv6EchoReply       = 129
)

const (
	icmpHeaderLen = 8
	ipv6HeaderLen = 40
)

// Encode serializes the request into an ICMP Echo Request packet.
// The IPv4 checksum is computed here. The IPv6 checksum is left zero
// since the kernel fills it from the pseudo header on send.
func Encode(r *Request) ([]byte, error) {
	msg := icmp.Message{
		Body: &icmp.Echo{
			ID:   int(r.ID),
			Seq:  int(r.Sequence),
			Data: r.Payload(),
		},
	}

	if r.Family() == FamilyIPv4 {
		msg.Type = ipv4.ICMPTypeEcho
	} else {
		msg.Type = ipv6.ICMPTypeEchoRequest
	}

	b, err := msg.Marshal(nil)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Parse decodes an inbound ICMP packet received from src at the given
// time. Raw IPv4 sockets deliver the IP header in front of the ICMP
// message, so a leading IPv4 header is stripped when present.
//
// Echo Replies carry their identifier and sequence directly. Error
// messages quote the original request, so the identifier and sequence
// are recovered from the embedded packet. Messages quoting too little
// of the original come back with both set to zero, which no pending
// request will ever match.
func Parse(family Family, data []byte, src netip.Addr, at time.Time) (*Reply, error) {
	received := len(data)

	if family == FamilyIPv4 {
		data = stripIPv4Header(data)
	}
	if len(data) < icmpHeaderLen {
		return nil, ErrInvalidPacket
	}

	reply := &Reply{
		Source:        src,
		Family:        family,
		Type:          int(data[0]),
		Code:          int(data[1]),
		BytesReceived: received,
		ReceivedAt:    at,
	}

	if reply.IsEchoReply() {
		reply.ID = binary.BigEndian.Uint16(data[4:6])
		reply.Sequence = binary.BigEndian.Uint16(data[6:8])
		return reply, nil
	}

	reply.ID, reply.Sequence = embeddedEcho(family, data[icmpHeaderLen:])
	return reply, nil
}

// stripIPv4Header removes a leading IPv4 header when the buffer starts
// with one. Datagram ICMP sockets on Linux deliver the bare message,
// raw sockets include the header.
func stripIPv4Header(data []byte) []byte {
	if len(data) == 0 || data[0]>>4 != 4 {
		return data
	}
	hdrLen := int(data[0]&0x0f) * 4
	if hdrLen < 20 || len(data) < hdrLen {
		return data
	}
	return data[hdrLen:]
}

// embeddedEcho extracts the identifier and sequence of the original
// Echo Request quoted inside an ICMP error payload.
func embeddedEcho(family Family, data []byte) (id, seq uint16) {
	var skip int
	if family == FamilyIPv4 {
		if len(data) == 0 {
			return 0, 0
		}
		skip = int(data[0]&0x0f) * 4
		if skip < 20 {
			return 0, 0
		}
	} else {
		skip = ipv6HeaderLen
	}

	if len(data) < skip+icmpHeaderLen {
		return 0, 0
	}
	inner := data[skip:]
	return binary.BigEndian.Uint16(inner[4:6]), binary.BigEndian.Uint16(inner[6:8])
}
