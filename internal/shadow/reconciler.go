package shadow

import (
	"errors"

	"go.uber.org/zap"
)

// State is the reconciler's report-correlation state.
type State int

const (
	// StateIdle means no report is awaiting acknowledgment.
	StateIdle State = iota

	// StateReportPending means a reported document was published and
	// the session is waiting for the matching accepted message.
	StateReportPending
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReportPending:
		return "report-pending"
	default:
		return "unknown"
	}
}

// FallbackHandler receives inbound messages that are not shadow
// traffic. It must not publish or subscribe: it runs inside the
// session's message-processing pass.
type FallbackHandler func(topic string, payload []byte)

// Reconciler tracks one device's view of its shadow and applies
// inbound shadow messages to it.
//
// All mutable session state lives here: the last applied shadow
// version, the local power state, the dirty flag, the sticky failure
// flag, and the awaited client token. A Reconciler belongs to exactly
// one session and must only be used from the session's goroutine.
//
// HandleMessage has no access to the transport, so a handler can never
// publish from inside a publish. State changes that require network
// activity (reporting a dirty state) are picked up by the orchestrator
// after the triggering network call has returned.
type Reconciler struct {
	log      *zap.Logger
	fallback FallbackHandler

	version      uint32
	power        PowerState
	dirty        bool
	failed       bool
	state        State
	awaitedToken uint32
}

// NewReconciler creates a reconciler with version 0, power off, and no
// pending report. fallback may be nil, in which case non-shadow
// messages are logged and dropped.
func NewReconciler(log *zap.Logger, fallback FallbackHandler) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{
		log:      log,
		fallback: fallback,
		state:    StateIdle,
	}
}

// HandleMessage is the inbound entry point for every message the
// transport delivers. It classifies the topic and dispatches to the
// matching handler. Decode and topic-match failures set the sticky
// failure flag but never abort processing; the session keeps running
// and reads the flag at the end.
func (r *Reconciler) HandleMessage(topic string, payload []byte) {
	match, err := MatchTopic(topic)
	if errors.Is(err, ErrNotShadowTopic) {
		if r.fallback != nil {
			r.fallback(topic, payload)
			return
		}
		r.log.Debug("Ignoring non-shadow message", zap.String("topic", topic))
		return
	}
	if err != nil {
		r.fail("Failed to classify shadow topic", topic, err)
		return
	}

	switch match.Type {
	case MessageUpdateDelta:
		r.handleDelta(topic, payload)
	case MessageUpdateAccepted:
		r.handleAccepted(topic, payload)
	case MessageUpdateRejected:
		r.log.Warn("Shadow update rejected",
			zap.String("topic", topic),
			zap.ByteString("payload", payload),
		)
	case MessageUpdateDocuments:
		r.log.Debug("Shadow documents message",
			zap.String("topic", topic),
			zap.ByteString("payload", payload),
		)
	default:
		r.log.Debug("Unhandled shadow message",
			zap.String("topic", topic),
			zap.String("type", match.Type.String()),
		)
	}
}

// handleDelta applies a server-pushed desired-state change.
//
// Convergence rule: apply only strictly-newer versions, and mark the
// state dirty only when the value actually changed. Stale and
// duplicate deltas are discarded without side effects, which is what
// prevents redundant report storms.
func (r *Reconciler) handleDelta(topic string, payload []byte) {
	doc, err := ParseDocument(payload)
	if err != nil {
		r.fail("Delta payload is not a valid document", topic, err)
		return
	}

	version, err := doc.Version()
	if err != nil {
		r.fail("Delta document has no usable version", topic, err)
		return
	}

	if version <= r.version {
		r.log.Info("Discarding stale delta",
			zap.Uint32("version", version),
			zap.Uint32("current_version", r.version),
		)
		return
	}
	r.version = version

	power, err := doc.PowerState()
	if err != nil {
		r.fail("Delta document has no usable power state", topic, err)
		return
	}

	if power == r.power {
		r.log.Debug("Delta power state already matches",
			zap.Uint32("version", version),
			zap.String("power", power.String()),
		)
		return
	}

	r.power = power
	r.dirty = true
	r.log.Info("Applied delta",
		zap.Uint32("version", version),
		zap.String("power", power.String()),
	)
}

// handleAccepted correlates an update acknowledgment with the report
// the session last published.
func (r *Reconciler) handleAccepted(topic string, payload []byte) {
	doc, err := ParseDocument(payload)
	if err != nil {
		r.fail("Accepted payload is not a valid document", topic, err)
		return
	}

	token, err := doc.ClientToken()
	if err != nil {
		r.fail("Accepted document has no usable client token", topic, err)
		return
	}

	if r.state == StateReportPending && token == r.awaitedToken {
		r.log.Info("Report accepted by device shadow",
			zap.Uint32("client_token", token),
		)
		r.state = StateIdle
		return
	}

	// An accepted message for a token we did not send may belong to a
	// concurrent external updater. Not our error, not fatal.
	r.log.Warn("Accepted message does not match outstanding report",
		zap.Uint32("received_token", token),
		zap.Uint32("awaited_token", r.awaitedToken),
		zap.String("state", r.state.String()),
	)
}

// fail records a sticky session failure.
func (r *Reconciler) fail(msg, topic string, err error) {
	r.failed = true
	r.log.Error(msg,
		zap.String("topic", topic),
		zap.Error(err),
	)
}

// RecordReport remembers the token of a just-published report and
// moves to StateReportPending. Called by the orchestrator after the
// publish has returned.
func (r *Reconciler) RecordReport(token uint32) {
	r.awaitedToken = token
	r.state = StateReportPending
	r.log.Debug("Awaiting report acknowledgment",
		zap.Uint32("client_token", token),
	)
}

// ObserveLocal feeds a locally sensed power state into the reconciler,
// marking the state dirty if it differs from the current value.
func (r *Reconciler) ObserveLocal(power PowerState) {
	if power == r.power {
		return
	}
	r.power = power
	r.dirty = true
	r.log.Info("Local power state changed",
		zap.String("power", power.String()),
	)
}

// Version returns the last applied shadow version.
func (r *Reconciler) Version() uint32 { return r.version }

// Power returns the current local power state.
func (r *Reconciler) Power() PowerState { return r.power }

// State returns the report-correlation state.
func (r *Reconciler) State() State { return r.state }

// Dirty reports whether the local state changed since the last report.
func (r *Reconciler) Dirty() bool { return r.dirty }

// ClearDirty resets the dirty flag. Called by the orchestrator after a
// successful report publish.
func (r *Reconciler) ClearDirty() { r.dirty = false }

// Failed reports whether any handler encountered a malformed document
// or an unparseable shadow topic. The flag is sticky for the life of
// the session.
func (r *Reconciler) Failed() bool { return r.failed }
