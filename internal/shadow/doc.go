// Package shadow implements the device-side half of the AWS IoT Device
// Shadow protocol: topic derivation, the fixed-shape update documents,
// and the reconciliation state machine that keeps a local power state
// converged with the cloud-held shadow.
//
// # Protocol Overview
//
// A shadow is a versioned JSON document held by the cloud. The device
// interacts with it over five MQTT topics derived from its thing name:
//
//	$aws/things/<thing>/shadow/delete
//	$aws/things/<thing>/shadow/update
//	$aws/things/<thing>/shadow/update/delta
//	$aws/things/<thing>/shadow/update/accepted
//	$aws/things/<thing>/shadow/update/rejected
//
// When the desired state diverges from the reported state, the cloud
// publishes a delta document tagged with a version number. The device
// applies a delta only when its version is strictly greater than the
// last version it applied, reports the new state with a client token,
// and correlates the cloud's accepted message against that token.
//
// # Document Shapes
//
// Outbound documents have a fixed shape, so their rendered length is
// known in closed form before encoding:
//
//	{"state":{"desired":{"powerOn":1}},"clientToken":"000042"}
//	{"state":{"reported":{"powerOn":1}},"clientToken":"000042"}
//
// WriteDesired and WriteReported encode into caller-provided buffers
// and never allocate; DesiredDocumentLength and ReportedDocumentLength
// give the exact sizes.
//
// # Reconciliation
//
// Reconciler holds all per-session mutable state: the last applied
// shadow version, the local power state, the dirty flag, the sticky
// failure flag, and the client token awaited for correlation. Its
// HandleMessage method is the inbound entry point; it classifies the
// topic, applies version-gated delta updates, and matches accepted
// messages to outstanding reports. The handler deliberately has no
// access to the transport, so it can never re-enter a publish or
// subscribe call.
//
// # Error Handling
//
// The package distinguishes between:
//   - Topic errors: ErrNotShadowTopic (not ours, forward it) and
//     ErrTopicMismatch (shadow-scoped but unparseable).
//   - Decode errors: ErrMalformedDocument, ErrFieldNotFound, and
//     ErrBadFieldValue for fields present but not decimal integers.
//   - Capacity errors: ErrBufferTooSmall and ErrInvalidIdentity from
//     the bounded-buffer encoding paths.
//
// Decode and topic-match errors set the reconciler's sticky failure
// flag; a correlation mismatch on an accepted message does not, since
// the message may belong to a concurrent external updater.
//
// # Thread Safety
//
// Topic and document functions are stateless and safe for concurrent
// use. A Reconciler is confined to a single session goroutine by
// design and is not safe for concurrent use. TokenSource is safe for
// concurrent use.
package shadow
