package pingdata

import "net/netip"

// Set is a collection of hosts keyed by address. Iteration returns
// hosts in the order they were added, so batch results come back in
// the caller's input order.
type Set struct {
	order []netip.Addr
	hosts map[netip.Addr]*Host
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{hosts: make(map[netip.Addr]*Host)}
}

// Add inserts a host for addr and returns it. Adding an address that
// is already present returns the existing host.
func (s *Set) Add(addr netip.Addr) *Host {
	if h, ok := s.hosts[addr]; ok {
		return h
	}
	h := NewHost(addr)
	s.hosts[addr] = h
	s.order = append(s.order, addr)
	return h
}

// Get returns the host for addr, or nil when absent.
func (s *Set) Get(addr netip.Addr) *Host {
	return s.hosts[addr]
}

// Len returns the number of hosts.
func (s *Set) Len() int { return len(s.order) }

// Hosts returns all hosts in insertion order.
func (s *Set) Hosts() []*Host {
	out := make([]*Host, 0, len(s.order))
	for _, addr := range s.order {
		out = append(out, s.hosts[addr])
	}
	return out
}
