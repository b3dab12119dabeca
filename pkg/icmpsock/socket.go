// Package icmpsock provides raw and unprivileged datagram ICMP
// sockets with per-packet TTL and traffic class control.
package icmpsock

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"sync"
	"syscall"
	"time"

	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
	"golang.org/x/sys/unix"

	"github.com/probeware/icmpx/pkg/echo"
)

const (
	recvBufferSize = 1500

	// Linux may return ENOBUFS on a loaded qdisc. A short bounded
	// retry keeps bursty senders from failing spuriously.
	sendRetryCount = 3
	sendRetryDelay = 10 * time.Millisecond
)

// Config controls socket construction.
type Config struct {
	// Source is an optional local address to bind. The zero Addr
	// leaves the bind to the kernel.
	Source netip.Addr

	// Interface optionally binds the socket to a device.
	Interface string

	// Privileged selects a raw ICMP socket. Without it an
	// unprivileged datagram ICMP socket is used and the kernel
	// assigns the Echo identifier.
	Privileged bool
}

// Socket is an ICMP socket bound to one address family.
type Socket struct {
	family     echo.Family
	privileged bool
	id         uint16

	conn net.PacketConn
	p4   *ipv4.PacketConn
	p6   *ipv6.PacketConn

	mu        sync.Mutex
	closed    bool
	broadcast bool
}

// New opens an ICMP socket for the given family.
func New(family echo.Family, cfg Config) (*Socket, error) {
	if cfg.Source.IsValid() && echo.AddrFamily(cfg.Source) != family {
		return nil, &AddressError{Addr: cfg.Source, Err: errors.New("family mismatch")}
	}

	conn, id, err := listen(family, cfg)
	if err != nil {
		return nil, err
	}

	s := &Socket{
		family:     family,
		privileged: cfg.Privileged,
		id:         id,
		conn:       conn,
	}
	if family == echo.FamilyIPv4 {
		s.p4 = ipv4.NewPacketConn(conn)
	} else {
		s.p6 = ipv6.NewPacketConn(conn)
	}
	return s, nil
}

// Family returns the socket's address family.
func (s *Socket) Family() echo.Family { return s.family }

// Privileged reports whether this is a raw socket.
func (s *Socket) Privileged() bool { return s.privileged }

// ID returns the kernel-assigned Echo identifier of an unprivileged
// socket. Raw sockets return zero, the caller owns the identifier.
func (s *Socket) ID() uint16 { return s.id }

// Broadcast reports whether broadcast sends are enabled.
func (s *Socket) Broadcast() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.broadcast
}

// SetBroadcast toggles SO_BROADCAST. IPv4 only.
func (s *Socket) SetBroadcast(enable bool) error {
	if s.family != echo.FamilyIPv4 {
		return &SocketError{Op: "set broadcast", Err: errors.New("IPv4 only")}
	}

	sc, ok := s.conn.(interface {
		SyscallConn() (syscall.RawConn, error)
	})
	if !ok {
		return &SocketError{Op: "set broadcast", Err: errors.New("no syscall access")}
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return &SocketError{Op: "set broadcast", Err: err}
	}

	var operr error
	flag := 0
	if enable {
		flag = 1
	}
	err = raw.Control(func(fd uintptr) {
		operr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, flag)
	})
	if err == nil {
		err = operr
	}
	if err != nil {
		return &SocketError{Op: "set broadcast", Err: err}
	}

	s.mu.Lock()
	s.broadcast = enable
	s.mu.Unlock()
	return nil
}

// Send encodes and transmits an Echo Request. The request's TTL and
// traffic class are applied to the socket before the write and its
// send time is stamped right before the packet is handed to the
// kernel.
func (s *Socket) Send(req *echo.Request) error {
	if s.isClosed() {
		return ErrSocketClosed
	}
	if req.Family() != s.family {
		return &SocketError{Op: "send",
			Err: fmt.Errorf("%s destination on %s socket", req.Family(), s.family)}
	}

	if err := s.applyControl(req); err != nil {
		return err
	}

	payload, err := echo.Encode(req)
	if err != nil {
		return &SocketError{Op: "send", Err: err}
	}

	dst := s.destAddr(req.Destination)
	req.Stamp()

	for i := 0; ; i++ {
		_, err = s.conn.WriteTo(payload, dst)
		if err == nil {
			return nil
		}
		if errors.Is(err, unix.ENOBUFS) && i < sendRetryCount {
			time.Sleep(sendRetryDelay)
			continue
		}
		break
	}

	switch {
	case errors.Is(err, net.ErrClosed):
		return ErrSocketClosed
	case isBroadcastDenied(err, req.Destination, s.Broadcast()):
		return ErrBroadcast
	case errors.Is(err, unix.EPERM), errors.Is(err, unix.EACCES):
		return &PermissionError{Op: "send", Err: err}
	}
	return &SocketError{Op: "send", Err: err}
}

// Receive waits for the next decodable ICMP message until the timeout
// or the context deadline, whichever is earlier. Undecodable packets
// are dropped and the wait continues. A concurrent Close unblocks the
// call with ErrSocketClosed.
func (s *Socket) Receive(ctx context.Context, timeout time.Duration) (*echo.Reply, error) {
	if s.isClosed() {
		return nil, ErrSocketClosed
	}

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	buf := make([]byte, recvBufferSize)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.conn.SetReadDeadline(deadline); err != nil {
			if s.isClosed() {
				return nil, ErrSocketClosed
			}
			return nil, &SocketError{Op: "receive", Err: err}
		}

		n, from, err := s.conn.ReadFrom(buf)
		at := time.Now()
		if err != nil {
			switch {
			case errors.Is(err, net.ErrClosed):
				return nil, ErrSocketClosed
			case errors.Is(err, os.ErrDeadlineExceeded):
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				return nil, ErrTimeout
			}
			return nil, &SocketError{Op: "receive", Err: err}
		}

		src := sourceAddr(from)
		reply, err := echo.Parse(s.family, buf[:n], src, at)
		if err != nil {
			continue
		}
		return reply, nil
	}
}

// Close releases the socket. Safe to call more than once and safe to
// call while another goroutine is blocked in Receive.
func (s *Socket) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	return s.conn.Close()
}

func (s *Socket) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Socket) applyControl(req *echo.Request) error {
	var err error
	if s.p4 != nil {
		if err = s.p4.SetTTL(req.TTL); err == nil && req.TrafficClass != 0 {
			err = s.p4.SetTOS(req.TrafficClass)
		}
	} else {
		if err = s.p6.SetHopLimit(req.TTL); err == nil && req.TrafficClass != 0 {
			err = s.p6.SetTrafficClass(req.TrafficClass)
		}
	}
	if err != nil {
		if s.isClosed() || errors.Is(err, net.ErrClosed) {
			return ErrSocketClosed
		}
		return &SocketError{Op: "send", Err: err}
	}
	return nil
}

// destAddr builds the write address. Datagram ICMP sockets speak UDP
// style addresses, raw sockets take bare IP addresses.
func (s *Socket) destAddr(dst netip.Addr) net.Addr {
	ip := dst.Unmap()
	if s.privileged {
		return &net.IPAddr{IP: ip.AsSlice(), Zone: ip.Zone()}
	}
	return &net.UDPAddr{IP: ip.AsSlice(), Zone: ip.Zone()}
}

func sourceAddr(a net.Addr) netip.Addr {
	var ip net.IP
	var zone string
	switch a := a.(type) {
	case *net.IPAddr:
		ip, zone = a.IP, a.Zone
	case *net.UDPAddr:
		ip, zone = a.IP, a.Zone
	default:
		return netip.Addr{}
	}
	addr, ok := netip.AddrFromSlice(ip)
	if !ok {
		return netip.Addr{}
	}
	addr = addr.Unmap()
	if zone != "" {
		addr = addr.WithZone(zone)
	}
	return addr
}

// isBroadcastDenied detects the kernel refusing a broadcast
// destination on a socket without SO_BROADCAST.
func isBroadcastDenied(err error, dst netip.Addr, broadcast bool) bool {
	if broadcast || !dst.Is4() {
		return false
	}
	if !errors.Is(err, unix.EPERM) && !errors.Is(err, unix.EACCES) {
		return false
	}
	b := dst.As4()
	return b[3] == 0xff || dst == netip.AddrFrom4([4]byte{255, 255, 255, 255})
}
