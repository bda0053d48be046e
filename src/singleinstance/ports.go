package singleinstance

import (
	"os"
	"strconv"
)

const (
	defaultPortStart = 49560
	defaultPortEnd   = 49570

	PortStartEnvVar = "MAGNIFIER_PORT_START"
	PortEndEnvVar   = "MAGNIFIER_PORT_END"
)

// getPortRange returns the inclusive TCP port range from MAGNIFIER_PORT_START
// and MAGNIFIER_PORT_END, clamped to [1024, 65535].
func getPortRange() (int, int) {
	start := envPort(PortStartEnvVar, defaultPortStart)
	end := envPort(PortEndEnvVar, defaultPortEnd)
	start = max(start, 1024)
	end = min(end, 65535)
	if end < start {
		start, end = end, start
	}
	return start, end
}

func envPort(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// PortRange exposes the effective port range for logging.
func PortRange() (int, int) { return getPortRange() }
