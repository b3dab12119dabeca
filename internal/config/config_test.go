package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/probeware/icmpx/internal/logger"
)

func TestInitDefaults(t *testing.T) {
	for _, name := range []string{
		"ICMPX_TARGETS", "ICMPX_PERIOD", "ICMPX_COUNT", "ICMPX_TIMEOUT",
		"ICMPX_PRIVILEGED", "ICMPX_INTERFACE", "ICMPX_METRICS_PORT",
		"ICMPX_COLLECTOR_URL", "ICMPX_COLLECTOR_TOKEN", "ICMPX_DEBUG",
		"ICMPX_DEVICE_NAME",
	} {
		t.Setenv(name, "")
	}

	Init()

	if GetPeriod() != 60*time.Second {
		t.Errorf("period = %v, want 60s", GetPeriod())
	}
	if GetCount() != 2 {
		t.Errorf("count = %d, want 2", GetCount())
	}
	if GetTimeout() != 2*time.Second {
		t.Errorf("timeout = %v, want 2s", GetTimeout())
	}
	if GetDebugLevel() != logger.InfoLevel {
		t.Errorf("debug level = %d, want %d", GetDebugLevel(), logger.InfoLevel)
	}
	if GetPrivileged() {
		t.Errorf("privileged defaults to true")
	}
	if GetMetricsPort() != 0 {
		t.Errorf("metrics port = %d, want 0", GetMetricsPort())
	}
	if GetCollectorURL() != "" {
		t.Errorf("collector url = %q, want empty", GetCollectorURL())
	}
	if GetDeviceName() == "" {
		t.Errorf("device name is empty")
	}
}

func TestInitFromEnvironment(t *testing.T) {
	t.Setenv("ICMPX_TARGETS", "one.example.com, two.example.com,,three.example.com ")
	t.Setenv("ICMPX_PERIOD", "30")
	t.Setenv("ICMPX_COUNT", "5")
	t.Setenv("ICMPX_TIMEOUT", "4")
	t.Setenv("ICMPX_PRIVILEGED", "true")
	t.Setenv("ICMPX_INTERFACE", "eth0")
	t.Setenv("ICMPX_METRICS_PORT", "9123")
	t.Setenv("ICMPX_COLLECTOR_URL", "wss://collector.example.com/ws")
	t.Setenv("ICMPX_COLLECTOR_TOKEN", "secret")
	t.Setenv("ICMPX_DEBUG", "0")
	t.Setenv("ICMPX_DEVICE_NAME", "probe-01")

	Init()

	want := []string{"one.example.com", "two.example.com", "three.example.com"}
	if diff := cmp.Diff(want, GetTargets()); diff != "" {
		t.Errorf("targets mismatch (-want +got):\n%s", diff)
	}
	if GetPeriod() != 30*time.Second {
		t.Errorf("period = %v, want 30s", GetPeriod())
	}
	if GetCount() != 5 {
		t.Errorf("count = %d, want 5", GetCount())
	}
	if GetTimeout() != 4*time.Second {
		t.Errorf("timeout = %v, want 4s", GetTimeout())
	}
	if !GetPrivileged() {
		t.Errorf("privileged = false, want true")
	}
	if GetInterface() != "eth0" {
		t.Errorf("interface = %q, want eth0", GetInterface())
	}
	if GetMetricsPort() != 9123 {
		t.Errorf("metrics port = %d, want 9123", GetMetricsPort())
	}
	if GetCollectorURL() != "wss://collector.example.com/ws" {
		t.Errorf("collector url = %q", GetCollectorURL())
	}
	if GetCollectorToken() != "secret" {
		t.Errorf("collector token = %q", GetCollectorToken())
	}
	if GetDebugLevel() != logger.DebugLevel {
		t.Errorf("debug level = %d, want %d", GetDebugLevel(), logger.DebugLevel)
	}
	if GetDeviceName() != "probe-01" {
		t.Errorf("device name = %q, want probe-01", GetDeviceName())
	}
}

func TestInitRejectsBadValues(t *testing.T) {
	t.Setenv("ICMPX_PERIOD", "soon")
	t.Setenv("ICMPX_COUNT", "-3")
	t.Setenv("ICMPX_METRICS_PORT", "99999")
	t.Setenv("ICMPX_PRIVILEGED", "maybe")
	t.Setenv("ICMPX_DEBUG", "9")

	Init()

	if GetPeriod() != 60*time.Second {
		t.Errorf("period = %v, want default 60s", GetPeriod())
	}
	if GetCount() != 2 {
		t.Errorf("count = %d, want default 2", GetCount())
	}
	if GetMetricsPort() != 0 {
		t.Errorf("metrics port = %d, want 0", GetMetricsPort())
	}
	if GetPrivileged() {
		t.Errorf("unparsable bool enabled privileged mode")
	}
	if GetDebugLevel() != logger.InfoLevel {
		t.Errorf("debug level = %d, want default %d", GetDebugLevel(), logger.InfoLevel)
	}
}

func TestSettersValidate(t *testing.T) {
	Init()

	SetPeriod(-time.Second)
	if GetPeriod() != 60*time.Second {
		t.Errorf("negative period accepted")
	}
	SetCount(0)
	if GetCount() != 2 {
		t.Errorf("zero count accepted")
	}

	SetTargets([]string{"a", "b"})
	if diff := cmp.Diff([]string{"a", "b"}, GetTargets()); diff != "" {
		t.Errorf("targets mismatch (-want +got):\n%s", diff)
	}
	SetPrivileged(true)
	if !GetPrivileged() {
		t.Errorf("privileged setter ignored")
	}
}
