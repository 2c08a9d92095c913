package mqtt

import (
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
)

// ErrorKind categorizes transport errors.
type ErrorKind int

const (
	// KindInvalidParameter indicates a malformed argument or
	// configuration (empty broker URL, cert without key, ...).
	KindInvalidParameter ErrorKind = iota
	// KindCredentials indicates the TLS credentials could not be
	// loaded or were rejected.
	KindCredentials
	// KindDNS indicates the broker hostname did not resolve.
	KindDNS
	// KindHandshake indicates the TLS handshake failed.
	KindHandshake
	// KindConnect indicates the TCP/MQTT connection could not be
	// established.
	KindConnect
	// KindTimeout indicates a blocking operation exceeded its
	// configured timeout.
	KindTimeout
	// KindTransport indicates a send, subscribe, or publish failure on
	// an established session.
	KindTransport
)

// String returns a human-readable name for the error kind.
func (k ErrorKind) String() string {
	switch k {
	case KindInvalidParameter:
		return "Invalid Parameter"
	case KindCredentials:
		return "Credential Error"
	case KindDNS:
		return "DNS Error"
	case KindHandshake:
		return "Handshake Error"
	case KindConnect:
		return "Connect Error"
	case KindTimeout:
		return "Timeout"
	case KindTransport:
		return "Transport Error"
	default:
		return fmt.Sprintf("ErrorKind(%d)", k)
	}
}

// Error is a classified transport error.
type Error struct {
	Kind    ErrorKind // Category of error
	Op      string    // Operation that failed ("connect", "subscribe", ...)
	Message string    // Human-readable error message
	Err     error     // Underlying error (if any)
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s %s (caused by: %v)", e.Kind, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s %s", e.Kind, e.Op, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// newError builds a classified error for op.
func newError(kind ErrorKind, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// classifyConnectError maps a connect failure onto the taxonomy the
// session reports. Unrecognized errors fall back to KindConnect.
func classifyConnectError(op string, err error) *Error {
	if err == nil {
		return nil
	}

	if os.IsTimeout(err) {
		return newError(KindTimeout, op, "operation timed out", err)
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return newError(KindDNS, op, fmt.Sprintf("cannot resolve %s", dnsErr.Name), err)
	}

	var unknownAuthority x509.UnknownAuthorityError
	if errors.As(err, &unknownAuthority) {
		return newError(KindHandshake, op, "broker certificate not signed by configured root CA", err)
	}
	var hostnameErr x509.HostnameError
	if errors.As(err, &hostnameErr) {
		return newError(KindHandshake, op, "broker certificate does not match hostname", err)
	}
	var certInvalid x509.CertificateInvalidError
	if errors.As(err, &certInvalid) {
		return newError(KindHandshake, op, "broker certificate invalid", err)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if errors.Is(opErr.Err, syscall.ECONNREFUSED) {
			return newError(KindConnect, op, "broker refused connection", err)
		}
	}

	return newError(KindConnect, op, "connection failed", err)
}

// IsTimeout reports whether err is a classified timeout.
func IsTimeout(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindTimeout
}

// IsCredentialError reports whether err stems from credential loading
// or the TLS handshake.
func IsCredentialError(err error) bool {
	var e *Error
	return errors.As(err, &e) && (e.Kind == KindCredentials || e.Kind == KindHandshake)
}
