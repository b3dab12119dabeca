// Package resolve classifies address literals and resolves hostnames
// to IP addresses.
package resolve

import (
	"context"
	"fmt"
	"net"
	"net/netip"

	"github.com/probeware/icmpx/pkg/echo"
)

// FamilyAuto resolves IPv4 first and falls back to IPv6.
const FamilyAuto echo.Family = 0

// LookupError reports a name that could not be resolved.
type LookupError struct {
	Name string
	Err  error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("cannot resolve %q: %v", e.Name, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// IsIPv4 reports whether s is an IPv4 address literal.
func IsIPv4(s string) bool {
	addr, err := netip.ParseAddr(s)
	return err == nil && addr.Is4()
}

// IsIPv6 reports whether s is an IPv6 address literal.
// Zone suffixes are accepted.
func IsIPv6(s string) bool {
	addr, err := netip.ParseAddr(s)
	return err == nil && addr.Is6() && !addr.Is4In6()
}

// IsHostname reports whether s is not an IP address literal of any
// form, so it needs a DNS lookup. IPv4-mapped IPv6 literals are not
// hostnames even though IsIPv4 and IsIPv6 both reject them.
func IsHostname(s string) bool {
	_, err := netip.ParseAddr(s)
	return err != nil
}

// Resolve turns a hostname or address literal into the addresses it
// maps to within the requested family. With FamilyAuto, IPv4 results
// are preferred and IPv6 is only consulted when there are none.
func Resolve(ctx context.Context, name string, family echo.Family) ([]netip.Addr, error) {
	if addr, err := netip.ParseAddr(name); err == nil {
		addr = addr.Unmap()
		if family != FamilyAuto && echo.AddrFamily(addr) != family {
			return nil, &LookupError{Name: name,
				Err: fmt.Errorf("address is not %s", family)}
		}
		return []netip.Addr{addr}, nil
	}

	var networks []string
	switch family {
	case echo.FamilyIPv4:
		networks = []string{"ip4"}
	case echo.FamilyIPv6:
		networks = []string{"ip6"}
	default:
		networks = []string{"ip4", "ip6"}
	}

	var lastErr error
	for _, network := range networks {
		addrs, err := net.DefaultResolver.LookupNetIP(ctx, network, name)
		if err != nil {
			lastErr = err
			continue
		}
		if len(addrs) > 0 {
			for i, a := range addrs {
				addrs[i] = a.Unmap()
			}
			return addrs, nil
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no addresses found")
	}
	return nil, &LookupError{Name: name, Err: lastErr}
}

// ResolveOne is Resolve narrowed to the first address.
func ResolveOne(ctx context.Context, name string, family echo.Family) (netip.Addr, error) {
	addrs, err := Resolve(ctx, name, family)
	if err != nil {
		return netip.Addr{}, err
	}
	return addrs[0], nil
}
