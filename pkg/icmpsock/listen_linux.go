//go:build linux

package icmpsock

import (
	"errors"
	"net"
	"net/netip"
	"os"

	"golang.org/x/sys/unix"

	"github.com/probeware/icmpx/pkg/echo"
)

const pingGroupHint = "grant your group ICMP sockets with the net.ipv4.ping_group_range sysctl, or run privileged"

// listen creates the underlying ICMP socket and returns it wrapped in
// a net.PacketConn. For unprivileged sockets the identifier chosen by
// the kernel at bind time is read back and returned.
func listen(family echo.Family, cfg Config) (net.PacketConn, uint16, error) {
	domain := unix.AF_INET
	proto := unix.IPPROTO_ICMP
	if family == echo.FamilyIPv6 {
		domain = unix.AF_INET6
		proto = unix.IPPROTO_ICMPV6
	}
	typ := unix.SOCK_DGRAM
	if cfg.Privileged {
		typ = unix.SOCK_RAW
	}

	fd, err := unix.Socket(domain, typ|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, proto)
	if err != nil {
		if errors.Is(err, unix.EPERM) || errors.Is(err, unix.EACCES) {
			perr := &PermissionError{Op: "open socket", Err: err}
			if !cfg.Privileged {
				perr.Hint = pingGroupHint
			}
			return nil, 0, perr
		}
		return nil, 0, &SocketError{Op: "open", Err: err}
	}

	if cfg.Interface != "" {
		if err := unix.BindToDevice(fd, cfg.Interface); err != nil {
			unix.Close(fd)
			return nil, 0, &SocketError{Op: "bind to device", Err: err}
		}
	}

	// Unprivileged sockets are always bound so the kernel picks the
	// Echo identifier. Raw sockets bind only when a source is given.
	if !cfg.Privileged || cfg.Source.IsValid() {
		sa, err := sockaddr(family, cfg.Source)
		if err != nil {
			unix.Close(fd)
			return nil, 0, err
		}
		if err := unix.Bind(fd, sa); err != nil {
			unix.Close(fd)
			if errors.Is(err, unix.EADDRNOTAVAIL) {
				return nil, 0, &AddressError{Addr: cfg.Source, Err: err}
			}
			return nil, 0, &SocketError{Op: "bind", Err: err}
		}
	}

	var id uint16
	if !cfg.Privileged {
		local, err := unix.Getsockname(fd)
		if err != nil {
			unix.Close(fd)
			return nil, 0, &SocketError{Op: "getsockname", Err: err}
		}
		switch local := local.(type) {
		case *unix.SockaddrInet4:
			id = uint16(local.Port)
		case *unix.SockaddrInet6:
			id = uint16(local.Port)
		}
	}

	f := os.NewFile(uintptr(fd), "icmp")
	conn, err := net.FilePacketConn(f)
	f.Close()
	if err != nil {
		return nil, 0, &SocketError{Op: "open", Err: err}
	}
	return conn, id, nil
}

func sockaddr(family echo.Family, src netip.Addr) (unix.Sockaddr, error) {
	if family == echo.FamilyIPv4 {
		sa := &unix.SockaddrInet4{}
		if src.IsValid() {
			sa.Addr = src.Unmap().As4()
		}
		return sa, nil
	}

	sa := &unix.SockaddrInet6{}
	if src.IsValid() {
		sa.Addr = src.As16()
		if zone := src.Zone(); zone != "" {
			ifi, err := net.InterfaceByName(zone)
			if err != nil {
				return nil, &AddressError{Addr: src, Err: err}
			}
			sa.ZoneId = uint32(ifi.Index)
		}
	}
	return sa, nil
}
