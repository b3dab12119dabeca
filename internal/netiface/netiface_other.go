//go:build !linux

package netiface

import (
	"errors"
	"net/netip"

	"github.com/probeware/icmpx/pkg/echo"
)

func SourceAddr(ifname string, family echo.Family) (netip.Addr, error) {
	return netip.Addr{}, errors.New("interface lookup is not supported on this platform")
}
