package discovery

import (
	"fmt"
	"time"
)

// Broker represents a discovered MQTT broker on the local network
type Broker struct {
	// Instance is the advertised service instance name (e.g., "mosquitto")
	Instance string

	// Hostname is the mDNS hostname (e.g., "broker-host.local.")
	Hostname string

	// IP is the resolved address (IPv4 preferred)
	IP string

	// Port is the MQTT port (typically 1883, or 8883 for TLS)
	Port int

	// TLS reports whether the broker advertised the secured service type
	TLS bool

	// Metadata contains additional mDNS TXT record data
	Metadata map[string]string

	// DiscoveredAt is when the broker was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the broker
func (b *Broker) String() string {
	scheme := "mqtt"
	if b.TLS {
		scheme = "mqtts"
	}
	return fmt.Sprintf("%s broker %s (%s) at %s:%d", scheme, b.Instance, b.Hostname, b.IP, b.Port)
}

// URL returns the broker endpoint in the form the transport dials
// (ssl:// for secured brokers, tcp:// otherwise)
func (b *Broker) URL() string {
	scheme := "tcp"
	if b.TLS {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, b.IP, b.Port)
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (b *Broker) GetMetadata(key string) string {
	if b.Metadata == nil {
		return ""
	}
	return b.Metadata[key]
}
