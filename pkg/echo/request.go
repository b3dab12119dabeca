package echo

import (
	"crypto/rand"
	"net/netip"
	"time"
)

const (
	// DefaultPayloadSize is used when a request carries no explicit payload.
	DefaultPayloadSize = 56
	// DefaultTTL is the IP time to live (hop limit on IPv6) for outgoing probes.
	DefaultTTL = 64
)

// Request is a single ICMP Echo Request probe.
// ID and Sequence identify the probe on the wire. On unprivileged
// datagram sockets the kernel rewrites ID with its own value.
type Request struct {
	Destination  netip.Addr
	ID           uint16
	Sequence     uint16
	TTL          int
	TrafficClass int

	payload     []byte
	payloadSize int

	sentAt time.Time
}

// NewRequest returns a request with default payload size and TTL.
func NewRequest(dst netip.Addr, id, seq uint16) *Request {
	return &Request{
		Destination: dst,
		ID:          id,
		Sequence:    seq,
		TTL:         DefaultTTL,
		payloadSize: DefaultPayloadSize,
	}
}

// Family returns the address family of the destination.
func (r *Request) Family() Family {
	return AddrFamily(r.Destination)
}

// SetPayload sets an explicit payload, overriding the generated one.
func (r *Request) SetPayload(b []byte) {
	r.payload = b
	r.payloadSize = len(b)
}

// SetPayloadSize configures the size of the generated payload.
// No effect once an explicit payload is set.
func (r *Request) SetPayloadSize(n int) {
	if r.payload == nil && n >= 0 {
		r.payloadSize = n
	}
}

// Payload returns the request payload. When none was set it is
// generated once from random bytes and cached, so retransmissions
// and reply validation see the same bytes.
func (r *Request) Payload() []byte {
	if r.payload == nil {
		r.payload = make([]byte, r.payloadSize)
		rand.Read(r.payload)
	}
	return r.payload
}

// PayloadSize returns the payload length in bytes.
func (r *Request) PayloadSize() int {
	if r.payload != nil {
		return len(r.payload)
	}
	return r.payloadSize
}

// Stamp records the send time. The socket calls it once,
// right before the packet leaves.
func (r *Request) Stamp() {
	r.sentAt = time.Now()
}

// SentAt returns the time the request was handed to the kernel,
// or the zero time if it was never sent.
func (r *Request) SentAt() time.Time {
	return r.sentAt
}
