// Package mqtt wraps the Eclipse Paho client in the synchronous,
// single-session model the shadow exchange needs.
//
// # Session Model
//
// Connect establishes one broker session with a clean session flag and
// no automatic reconnection; a failed session is torn down and the
// whole exchange retried from the top. All subscribes and publishes
// use QoS 1.
//
// # Inbound Delivery
//
// Paho invokes subscription callbacks on its own network goroutine.
// This package never runs application code there: callbacks only
// enqueue the message onto a bounded queue. Queued messages are
// delivered to the Handler on the caller's goroutine when an operation
// drains the queue, which happens after every Subscribe, Unsubscribe,
// and Publish, and continuously during ProcessIncoming. The Handler
// receives only the topic and payload and has no reference to the
// Client, so it cannot publish or subscribe from inside a delivery.
//
// # Errors
//
// Failures are reported as *Error values carrying an ErrorKind.
// Connect failures are classified (DNS, handshake, refused, timeout)
// so the caller can decide whether retrying is worthwhile; credential
// and handshake problems are permanent and detectable with
// IsCredentialError.
package mqtt
