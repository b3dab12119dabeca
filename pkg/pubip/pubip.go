// Package pubip discovers the host's public IP address over STUN.
// The result is cached for a while so frequent callers do not hammer
// the servers.
package pubip

import (
	"net/netip"
	"sync"
	"time"
)

var publicIP struct {
	sync.Mutex
	updatePeriod time.Duration
	cache        struct {
		addr    netip.Addr
		updated time.Time
	}
}

func init() {
	publicIP.updatePeriod = time.Minute
}

func UpdatePeriod() time.Duration {
	return publicIP.updatePeriod
}

func SetUpdatePeriod(d time.Duration) {
	publicIP.updatePeriod = d
}

// Reset drops the cache so the next Get queries the servers again.
func Reset() {
	publicIP.Lock()
	defer publicIP.Unlock()
	publicIP.cache.updated = time.Time{}
}

// Get returns the public address, refreshing the cache when it is
// older than the update period. The unspecified IPv4 address is
// returned while all servers are failing, and the cache timestamp is
// not advanced so the next call retries at once.
func Get() netip.Addr {
	publicIP.Lock()
	defer publicIP.Unlock()

	if time.Since(publicIP.cache.updated) > publicIP.updatePeriod {
		addr, err := stunAddr()
		if err == nil {
			publicIP.cache.addr = addr
			publicIP.cache.updated = time.Now()
		} else {
			publicIP.cache.addr = netip.IPv4Unspecified()
		}
	}

	return publicIP.cache.addr
}
