//go:build linux

// netiface resolves interface names to usable source addresses so a
// device name on the command line can become a socket bind.
package netiface

import (
	"fmt"
	"net/netip"

	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netlink/nl"

	"github.com/probeware/icmpx/pkg/echo"
)

// SourceAddr returns the primary address of the interface for the
// requested family. Link local addresses are skipped unless nothing
// else is configured.
func SourceAddr(ifname string, family echo.Family) (netip.Addr, error) {
	iface, err := netlink.LinkByName(ifname)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("failed to lookup interface %v", ifname)
	}

	nlFamily := nl.FAMILY_V4
	if family == echo.FamilyIPv6 {
		nlFamily = nl.FAMILY_V6
	}

	addrs, err := netlink.AddrList(iface, nlFamily)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("failed to list %v addresses: %w", ifname, err)
	}

	var linkLocal netip.Addr
	for _, a := range addrs {
		addr, ok := netip.AddrFromSlice(a.IP)
		if !ok {
			continue
		}
		addr = addr.Unmap()
		if addr.IsLinkLocalUnicast() {
			if !linkLocal.IsValid() {
				linkLocal = addr.WithZone(ifname)
			}
			continue
		}
		return addr, nil
	}

	if linkLocal.IsValid() {
		return linkLocal, nil
	}
	return netip.Addr{}, fmt.Errorf("no %s address on %v", family, ifname)
}
