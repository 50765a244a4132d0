package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Instance is a mikettle status server found on the local network
type Instance struct {
	// Name is the mDNS instance name (e.g., "mikettle-kitchen")
	Name string

	// Hostname is the advertising host (e.g., "raspberrypi.local.")
	Hostname string

	// IP is the preferred address, IPv4 when available
	IP string

	// Port is the HTTP port of the status server
	Port int

	// Kettle is the MAC address of the kettle the server reads from
	Kettle string

	// Metadata contains all TXT record data
	// Common fields: "mac", "version", "path"
	Metadata map[string]string

	// DiscoveredAt is when the instance was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable representation of the instance
func (i *Instance) String() string {
	return fmt.Sprintf("%s (kettle %s) at %s", i.Name, i.Kettle, i.HostPort())
}

// HostPort returns the address as host:port
func (i *Instance) HostPort() string {
	return net.JoinHostPort(i.IP, strconv.Itoa(i.Port))
}

// BaseURL returns the HTTP base URL of the status server
func (i *Instance) BaseURL() string {
	return "http://" + i.HostPort()
}

// StatusURL returns the URL of the JSON status endpoint
func (i *Instance) StatusURL() string {
	path := i.GetMetadata("path")
	if path == "" {
		path = "/status"
	}
	return i.BaseURL() + path
}

// WebSocketURL returns the URL of the websocket endpoint
func (i *Instance) WebSocketURL() string {
	return "ws://" + i.HostPort() + "/ws"
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (i *Instance) GetMetadata(key string) string {
	if i.Metadata == nil {
		return ""
	}
	return i.Metadata[key]
}
