// Package echo implements the ICMP Echo message model and wire codec
// for both IPv4 (ICMP) and IPv6 (ICMPv6) families.
package echo

import (
	"net/netip"
)

// Family is the IP address family of an ICMP message.
type Family int

const (
	FamilyIPv4 Family = 4
	FamilyIPv6 Family = 6
)

func (f Family) String() string {
	switch f {
	case FamilyIPv4:
		return "IPv4"
	case FamilyIPv6:
		return "IPv6"
	default:
		return "unknown"
	}
}

// AddrFamily returns the family of addr. Mapped IPv4-in-IPv6
// addresses count as IPv4.
func AddrFamily(addr netip.Addr) Family {
	if addr.Is4() || addr.Is4In6() {
		return FamilyIPv4
	}
	return FamilyIPv6
}
