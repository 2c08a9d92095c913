package session

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/shadowsync/internal/identity"
	"github.com/muurk/shadowsync/internal/shadow"
)

// ErrReportUnacknowledged means the drain window closed before the
// accepted message for the published report arrived.
var ErrReportUnacknowledged = errors.New("report not acknowledged within drain window")

// DefaultDrainWindow is how long the session waits for inbound shadow
// traffic when no window is configured.
const DefaultDrainWindow = 2 * time.Second

// Handler receives inbound messages from the transport.
type Handler func(topic string, payload []byte)

// Conn is an established broker session. The session issues all calls
// from a single goroutine; ProcessIncoming must deliver inbound
// messages on that goroutine, never concurrently.
type Conn interface {
	Subscribe(topic string) error
	Unsubscribe(topic string) error
	Publish(topic string, payload []byte) error
	ProcessIncoming(window time.Duration, done func() bool)
	Disconnect() error
}

// Transport dials the broker. Inbound messages are delivered to
// handler as described on Conn.
type Transport interface {
	Connect(clientID string, handler Handler) (Conn, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(clientID string, handler Handler) (Conn, error)

// Connect implements Transport.
func (f TransportFunc) Connect(clientID string, handler Handler) (Conn, error) {
	return f(clientID, handler)
}

// Options configures one reconciliation session.
type Options struct {
	// Identity resolves the thing name. Required.
	Identity identity.Provider

	// Transport dials the broker. Required.
	Transport Transport

	// Log receives session progress. Nil means silent.
	Log *zap.Logger

	// InitialPower is the desired power state published at session
	// start.
	InitialPower shadow.PowerState

	// DrainWindow bounds each wait for inbound shadow traffic. Zero
	// means DefaultDrainWindow.
	DrainWindow time.Duration

	// Fallback receives inbound messages that are not shadow traffic.
	// Optional.
	Fallback shadow.FallbackHandler

	// Now supplies the clock for the token epoch. Nil means time.Now.
	Now func() time.Time
}

// Session runs one complete shadow reconciliation exchange. Each
// Session carries its own reconciler and token source; create a fresh
// one per attempt.
type Session struct {
	opts Options
	log  *zap.Logger
}

// New validates opts and builds a session.
func New(opts Options) (*Session, error) {
	if opts.Identity == nil {
		return nil, errors.New("session: identity provider is required")
	}
	if opts.Transport == nil {
		return nil, errors.New("session: transport is required")
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.DrainWindow <= 0 {
		opts.DrainWindow = DefaultDrainWindow
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Session{opts: opts, log: opts.Log}, nil
}

// StepResult records the outcome of one session step.
type StepResult struct {
	Name string
	Err  error
}

// Result is the full outcome of a session run.
type Result struct {
	// ThingName is the resolved device identity, when resolution
	// succeeded.
	ThingName string

	// Steps lists every step attempted, in order, with its error.
	Steps []StepResult

	// Teardown lists the cleanup operations and their errors. Teardown
	// always runs once a connection exists; its errors do not fail the
	// session.
	Teardown []StepResult

	// HandlerFailure reports whether any inbound shadow message was
	// malformed. Sticky for the whole session.
	HandlerFailure bool

	// FinalPower and FinalVersion are the reconciler's state when the
	// session ended.
	FinalPower   shadow.PowerState
	FinalVersion uint32
}

// Ok reports whether the session completed cleanly: every step
// succeeded and no handler failure occurred. Teardown errors are
// excluded.
func (r *Result) Ok() bool {
	for _, s := range r.Steps {
		if s.Err != nil {
			return false
		}
	}
	return !r.HandlerFailure
}

// Err returns the first step error, or nil when the run was clean. A
// handler failure with no step error is reported as
// shadow.ErrMalformedDocument.
func (r *Result) Err() error {
	for _, s := range r.Steps {
		if s.Err != nil {
			return s.Err
		}
	}
	if r.HandlerFailure {
		return shadow.ErrMalformedDocument
	}
	return nil
}

// Run executes the exchange:
//
//  1. resolve the device identity and derive the topic set
//  2. connect to the broker
//  3. delete any existing shadow
//  4. subscribe to update/delta, update/accepted, update/rejected
//  5. publish the desired document
//  6. wait for the resulting delta
//  7. if the local state changed, publish the reported document and
//     wait for its acknowledgment
//  8. unsubscribe and disconnect, always
//
// Run is fail-fast: the first step error skips the remaining steps,
// but teardown still runs when a connection was established. The
// context is checked between steps; cancellation surfaces as a step
// error.
func (s *Session) Run(ctx context.Context) *Result {
	result := &Result{}

	step := func(name string, fn func() error) bool {
		if err := ctx.Err(); err != nil {
			result.Steps = append(result.Steps, StepResult{Name: name, Err: err})
			return false
		}
		err := fn()
		result.Steps = append(result.Steps, StepResult{Name: name, Err: err})
		if err != nil {
			s.log.Error("Session step failed", zap.String("step", name), zap.Error(err))
			return false
		}
		return true
	}

	var topics shadow.TopicSet
	if !step("resolve-identity", func() error {
		thing, err := s.opts.Identity.DeviceID()
		if err != nil {
			return err
		}
		topics, err = shadow.NewTopicSet(thing)
		if err != nil {
			return err
		}
		result.ThingName = thing
		return nil
	}) {
		return result
	}

	s.log.Info("Starting shadow reconciliation",
		zap.String("thing_name", topics.ThingName),
	)

	reconciler := shadow.NewReconciler(s.log.Named("shadow"), s.opts.Fallback)
	tokens := shadow.NewTokenSource(s.opts.Now())

	finish := func() *Result {
		result.HandlerFailure = reconciler.Failed()
		result.FinalPower = reconciler.Power()
		result.FinalVersion = reconciler.Version()
		return result
	}

	var conn Conn
	if !step("connect", func() error {
		var err error
		conn, err = s.opts.Transport.Connect(topics.ThingName, reconciler.HandleMessage)
		return err
	}) {
		return finish()
	}

	defer s.teardown(conn, topics, result)

	// Deleting the shadow first makes the run reproducible: the
	// desired publish below always creates the document from scratch.
	if !step("delete-shadow", func() error {
		return conn.Publish(topics.Delete, nil)
	}) {
		return finish()
	}

	for _, sub := range []struct {
		name  string
		topic string
	}{
		{"subscribe-delta", topics.UpdateDelta},
		{"subscribe-accepted", topics.UpdateAccepted},
		{"subscribe-rejected", topics.UpdateRejected},
	} {
		if !step(sub.name, func() error {
			return conn.Subscribe(sub.topic)
		}) {
			return finish()
		}
	}

	if !step("publish-desired", func() error {
		var buf [shadow.DesiredDocumentLength]byte
		n, err := shadow.WriteDesired(buf[:], s.opts.InitialPower, tokens.Next())
		if err != nil {
			return err
		}
		return conn.Publish(topics.Update, buf[:n])
	}) {
		return finish()
	}

	// The desired publish leaves desired and reported out of sync, so
	// the cloud answers with a delta. Wait for it; a quiet window just
	// means nothing changed.
	step("await-delta", func() error {
		conn.ProcessIncoming(s.opts.DrainWindow, func() bool {
			return reconciler.Dirty() || reconciler.Failed()
		})
		return nil
	})

	if reconciler.Dirty() {
		token := tokens.Next()

		// Record the awaited token before publishing: the transport
		// may deliver the accepted message during the publish itself.
		reconciler.RecordReport(token)

		if !step("publish-reported", func() error {
			var buf [shadow.ReportedDocumentLength]byte
			n, err := shadow.WriteReported(buf[:], reconciler.Power(), token)
			if err != nil {
				return err
			}
			return conn.Publish(topics.Update, buf[:n])
		}) {
			return finish()
		}
		reconciler.ClearDirty()

		step("await-accepted", func() error {
			conn.ProcessIncoming(s.opts.DrainWindow, func() bool {
				return reconciler.State() == shadow.StateIdle || reconciler.Failed()
			})
			if reconciler.State() != shadow.StateIdle {
				return ErrReportUnacknowledged
			}
			return nil
		})
	} else {
		s.log.Info("No state change to report")
	}

	return finish()
}

// teardown unsubscribes from the three shadow topics and disconnects.
// Every operation is attempted; errors are recorded, never fatal.
func (s *Session) teardown(conn Conn, topics shadow.TopicSet, result *Result) {
	for _, t := range []struct {
		name  string
		topic string
	}{
		{"unsubscribe-delta", topics.UpdateDelta},
		{"unsubscribe-accepted", topics.UpdateAccepted},
		{"unsubscribe-rejected", topics.UpdateRejected},
	} {
		err := conn.Unsubscribe(t.topic)
		result.Teardown = append(result.Teardown, StepResult{Name: t.name, Err: err})
		if err != nil {
			s.log.Warn("Teardown step failed", zap.String("step", t.name), zap.Error(err))
		}
	}

	err := conn.Disconnect()
	result.Teardown = append(result.Teardown, StepResult{Name: "disconnect", Err: err})
	if err != nil {
		s.log.Warn("Disconnect failed", zap.Error(err))
	}

	s.log.Info("Session torn down")
}
