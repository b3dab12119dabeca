//go:build !linux

package icmpsock

import (
	"errors"
	"net"

	"github.com/probeware/icmpx/pkg/echo"
)

func listen(family echo.Family, cfg Config) (net.PacketConn, uint16, error) {
	return nil, 0, &SocketError{Op: "open", Err: errors.New("unsupported platform")}
}
