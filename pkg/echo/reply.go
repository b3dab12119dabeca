package echo

import (
	"net/netip"
	"time"
)

// Reply is a decoded inbound ICMP message correlated to an Echo Request.
// For ICMP error messages (Destination Unreachable, Time Exceeded and
// friends) ID and Sequence are recovered from the embedded original
// request when enough of it was quoted.
type Reply struct {
	Source        netip.Addr
	Family        Family
	ID            uint16
	Sequence      uint16
	Type          int
	Code          int
	BytesReceived int
	ReceivedAt    time.Time
}

// IsEchoReply reports whether the message is an Echo Reply.
func (r *Reply) IsEchoReply() bool {
	switch r.Family {
	case FamilyIPv4:
		return r.Type == icmpv4EchoReply
	case FamilyIPv6:
		return r.Type == icmpv6EchoReply
	}
	return false
}

// RTT returns the round trip time relative to the request send time.
func (r *Reply) RTT(sentAt time.Time) time.Duration {
	return r.ReceivedAt.Sub(sentAt)
}

// Status returns nil for an Echo Reply and a typed error describing
// the failure for ICMP error messages.
func (r *Reply) Status() error {
	if r.IsEchoReply() {
		return nil
	}

	switch {
	case r.Family == FamilyIPv4 && r.Type == icmpv4DestUnreachable,
		r.Family == FamilyIPv6 && r.Type == icmpv6DestUnreachable:
		return &DestinationUnreachableError{Reply: r}

	case r.Family == FamilyIPv4 && r.Type == icmpv4TimeExceeded,
		r.Family == FamilyIPv6 && r.Type == icmpv6TimeExceeded:
		return &TimeExceededError{Reply: r}
	}

	return &MessageError{Reply: r}
}
