package pubip

import (
	"fmt"
	"net/netip"

	"github.com/pion/stun"
)

var stunServers = []string{
	"stun.l.google.com:19302",
	"stun1.l.google.com:19302",
	"stun2.l.google.com:19302",
	"stun3.l.google.com:19302",
	"stun4.l.google.com:19302",
	"stun.ekiga.net:3478",
	"stun.ideasip.com:3478",
	"stun.schlund.de:3478",
	"stun.stunprotocol.org:3478",
	"stun.voiparound.com:3478",
	"stun.voipbuster.com:3478",
	"stun.voipstunt.com:3478",
}

var lastGoodIdx int

// stunAddr rotates through the server list. A server that answered
// stays first in line for the next refresh, a failing one is skipped
// on the following attempts.
func stunAddr() (netip.Addr, error) {
	for i := 0; i < len(stunServers); i++ {
		addr, err := queryServer(stunServers[lastGoodIdx])
		if err == nil {
			return addr, nil
		}
		lastGoodIdx++
		if lastGoodIdx >= len(stunServers) {
			lastGoodIdx = 0
		}
	}
	return netip.Addr{}, fmt.Errorf("all STUN servers failed")
}

func queryServer(srv string) (netip.Addr, error) {
	c, err := stun.Dial("udp", srv)
	if err != nil {
		return netip.Addr{}, err
	}
	defer c.Close()

	var addr netip.Addr
	message := stun.MustBuild(stun.TransactionID, stun.BindingRequest)
	cbErr := c.Do(message, func(res stun.Event) {
		if res.Error != nil {
			err = res.Error
			return
		}

		// The address comes back in the XOR-MAPPED-ADDRESS attribute.
		var xorAddr stun.XORMappedAddress
		if err = xorAddr.GetFrom(res.Message); err != nil {
			return
		}
		a, ok := netip.AddrFromSlice(xorAddr.IP)
		if !ok {
			err = fmt.Errorf("bad address from %s", srv)
			return
		}
		addr = a.Unmap()
	})
	if cbErr != nil {
		return netip.Addr{}, cbErr
	}
	if err != nil {
		return netip.Addr{}, err
	}
	if !addr.IsValid() {
		return netip.Addr{}, fmt.Errorf("no address from %s", srv)
	}
	return addr, nil
}
