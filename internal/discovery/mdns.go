package discovery

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	// ServiceTypeSecure is the mDNS service type for TLS brokers
	ServiceTypeSecure = "_secure-mqtt._tcp"

	// ServiceTypePlain is the mDNS service type for plaintext brokers
	ServiceTypePlain = "_mqtt._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for broker discovery
	DefaultScanTimeout = 10 * time.Second

	// DefaultPlainPort and DefaultSecurePort are used when an entry
	// advertises no port
	DefaultPlainPort  = 1883
	DefaultSecurePort = 8883
)

// Scanner handles mDNS broker discovery
type Scanner struct {
	// Timeout is the maximum time to wait for broker discovery
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// ScanForBrokers discovers MQTT brokers on the local network, secured
// and plaintext. Returns a list of discovered brokers or an error.
func (s *Scanner) ScanForBrokers() ([]*Broker, error) {
	return s.ScanForBrokersWithContext(context.Background())
}

// ScanForBrokersWithContext discovers brokers with a custom context
func (s *Scanner) ScanForBrokersWithContext(ctx context.Context) ([]*Broker, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	secure, err := s.browse(ctx, ServiceTypeSecure, true)
	if err != nil {
		return nil, err
	}
	plain, err := s.browse(ctx, ServiceTypePlain, false)
	if err != nil {
		return nil, err
	}

	brokers := append(secure, plain...)
	sort.Slice(brokers, func(i, j int) bool {
		// Secured brokers first, then by instance name
		if brokers[i].TLS != brokers[j].TLS {
			return brokers[i].TLS
		}
		return brokers[i].Instance < brokers[j].Instance
	})
	return brokers, nil
}

// browse collects every advertisement of one service type until the
// context expires
func (s *Scanner) browse(ctx context.Context, serviceType string, secure bool) ([]*Broker, error) {
	entries := make(chan *zeroconf.ServiceEntry)
	brokers := make([]*Broker, 0)
	collected := make(chan struct{})

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	go func() {
		defer close(collected)
		for entry := range entries {
			broker := parseServiceEntry(entry, secure)
			if broker != nil {
				brokers = append(brokers, broker)
			}
		}
	}()

	if err := resolver.Browse(ctx, serviceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for %s services: %w", serviceType, err)
	}

	<-ctx.Done()
	<-collected

	return brokers, nil
}

// parseServiceEntry converts a zeroconf service entry to a Broker.
// Returns nil for entries without a usable address.
func parseServiceEntry(entry *zeroconf.ServiceEntry, secure bool) *Broker {
	if entry == nil {
		return nil
	}

	// Prefer IPv4, fall back to IPv6
	var ip string
	for _, addr := range entry.AddrIPv4 {
		ip = addr.String()
		break
	}
	if ip == "" && len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		if secure {
			port = DefaultSecurePort
		} else {
			port = DefaultPlainPort
		}
	}

	// TXT records are in "key=value" format
	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		parts := strings.SplitN(txt, "=", 2)
		if len(parts) == 2 {
			metadata[parts[0]] = parts[1]
		} else {
			metadata[parts[0]] = ""
		}
	}

	return &Broker{
		Instance:     entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		TLS:          secure,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}
