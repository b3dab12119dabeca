package resolve

import (
	"context"
	"errors"
	"net/netip"
	"testing"

	"github.com/probeware/icmpx/pkg/echo"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		input    string
		ipv4     bool
		ipv6     bool
		hostname bool
	}{
		{"127.0.0.1", true, false, false},
		{"192.0.2.255", true, false, false},
		{"::1", false, true, false},
		{"2001:db8::1", false, true, false},
		{"fe80::1%eth0", false, true, false},
		{"::ffff:192.0.2.1", false, false, false},
		{"localhost", false, false, true},
		{"example.com", false, false, true},
		{"256.0.0.1", false, false, true},
		{"", false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := IsIPv4(tt.input); got != tt.ipv4 {
				t.Errorf("IsIPv4(%q) = %t, want %t", tt.input, got, tt.ipv4)
			}
			if got := IsIPv6(tt.input); got != tt.ipv6 {
				t.Errorf("IsIPv6(%q) = %t, want %t", tt.input, got, tt.ipv6)
			}
			if got := IsHostname(tt.input); got != tt.hostname {
				t.Errorf("IsHostname(%q) = %t, want %t", tt.input, got, tt.hostname)
			}
		})
	}
}

func TestResolveLiteral(t *testing.T) {
	ctx := context.Background()

	addrs, err := Resolve(ctx, "192.0.2.1", FamilyAuto)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(addrs) != 1 || addrs[0] != netip.MustParseAddr("192.0.2.1") {
		t.Errorf("addrs = %v, want [192.0.2.1]", addrs)
	}

	// mapped literals come back as plain IPv4
	addrs, err = Resolve(ctx, "::ffff:192.0.2.1", FamilyAuto)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(addrs) != 1 || addrs[0] != netip.MustParseAddr("192.0.2.1") {
		t.Errorf("addrs = %v, want unmapped [192.0.2.1]", addrs)
	}
}

func TestResolveLiteralFamilyMismatch(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		family echo.Family
	}{
		{"IPv4AsIPv6", "192.0.2.1", echo.FamilyIPv6},
		{"IPv6AsIPv4", "2001:db8::1", echo.FamilyIPv4},
		{"MappedAsIPv6", "::ffff:192.0.2.1", echo.FamilyIPv6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(context.Background(), tt.input, tt.family)
			var lookupErr *LookupError
			if !errors.As(err, &lookupErr) {
				t.Fatalf("error = %v, want *LookupError", err)
			}
			if lookupErr.Name != tt.input {
				t.Errorf("error name = %q, want %q", lookupErr.Name, tt.input)
			}
		})
	}
}

func TestResolveOneLiteral(t *testing.T) {
	addr, err := ResolveOne(context.Background(), "::1", echo.FamilyIPv6)
	if err != nil {
		t.Fatalf("ResolveOne failed: %v", err)
	}
	if addr != netip.MustParseAddr("::1") {
		t.Errorf("addr = %v, want ::1", addr)
	}
}

func TestResolveLocalhost(t *testing.T) {
	addrs, err := Resolve(context.Background(), "localhost", FamilyAuto)
	if err != nil {
		t.Skipf("localhost did not resolve: %v", err)
	}
	if len(addrs) == 0 {
		t.Fatalf("no addresses for localhost")
	}
	for _, a := range addrs {
		if !a.IsLoopback() {
			t.Errorf("localhost resolved to %v", a)
		}
	}
}

func TestResolveUnknownHost(t *testing.T) {
	_, err := Resolve(context.Background(), "host.invalid", FamilyAuto)
	var lookupErr *LookupError
	if !errors.As(err, &lookupErr) {
		t.Fatalf("error = %v, want *LookupError", err)
	}
}
