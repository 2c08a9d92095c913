// Package discovery finds MQTT brokers on the local network via mDNS.
//
// Brokers conventionally advertise as "_mqtt._tcp" services, or
// "_secure-mqtt._tcp" when they expect TLS. The scanner browses both
// service types for a bounded window and reports everything it heard,
// secured endpoints first.
//
// Discovery is a convenience for the CLI's discover command; the
// session itself always connects to a configured endpoint.
package discovery
