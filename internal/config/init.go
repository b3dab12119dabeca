package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/probeware/icmpx/internal/logger"
)

const pkgName = "Config. "

// Init populates the cache from environment variables. Command line
// flags are applied on top by the caller through the setters.
func Init() {
	cache.period = 60 * time.Second
	cache.count = 2
	cache.timeout = 2 * time.Second
	cache.debugLevel = logger.InfoLevel
	cache.privileged = false
	cache.metricsPort = 0

	if targets := os.Getenv("ICMPX_TARGETS"); targets != "" {
		cache.targets = splitList(targets)
	}
	if period, ok := envSeconds("ICMPX_PERIOD"); ok {
		cache.period = period
	}
	if count, ok := envInt("ICMPX_COUNT"); ok && count > 0 {
		cache.count = count
	}
	if timeout, ok := envSeconds("ICMPX_TIMEOUT"); ok {
		cache.timeout = timeout
	}
	if privileged, ok := envBool("ICMPX_PRIVILEGED"); ok {
		cache.privileged = privileged
	}
	cache.iface = os.Getenv("ICMPX_INTERFACE")

	if port, ok := envInt("ICMPX_METRICS_PORT"); ok && port > 0 && port < 0x10000 {
		cache.metricsPort = uint16(port)
	}
	cache.collectorURL = os.Getenv("ICMPX_COLLECTOR_URL")
	cache.collectorToken = os.Getenv("ICMPX_COLLECTOR_TOKEN")

	if level, ok := envInt("ICMPX_DEBUG"); ok &&
		level >= logger.DebugLevel && level <= logger.ErrorLevel {
		cache.debugLevel = level
	}

	cache.deviceName = os.Getenv("ICMPX_DEVICE_NAME")
	if cache.deviceName == "" {
		if hostname, err := os.Hostname(); err == nil {
			cache.deviceName = hostname
		} else {
			logger.Warning().Println(pkgName, "hostname lookup:", err)
			cache.deviceName = "icmpx"
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func envInt(name string) (int, bool) {
	val := os.Getenv(name)
	if val == "" {
		return 0, false
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		logger.Warning().Println(pkgName, name, "is not a number:", val)
		return 0, false
	}
	return n, true
}

func envSeconds(name string) (time.Duration, bool) {
	n, ok := envInt(name)
	if !ok || n <= 0 {
		return 0, false
	}
	return time.Duration(n) * time.Second, true
}

func envBool(name string) (bool, bool) {
	val := os.Getenv(name)
	if val == "" {
		return false, false
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		logger.Warning().Println(pkgName, name, "is not a boolean:", val)
		return false, false
	}
	return b, true
}
