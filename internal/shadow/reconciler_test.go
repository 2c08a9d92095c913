package shadow

import (
	"fmt"
	"testing"

	"go.uber.org/zap"
)

const testThing = "test-device"

func deltaTopic() string    { return "$aws/things/" + testThing + "/shadow/update/delta" }
func acceptedTopic() string { return "$aws/things/" + testThing + "/shadow/update/accepted" }

func deltaPayload(version uint32, power int) []byte {
	return []byte(fmt.Sprintf(`{"version":%d,"state":{"powerOn":%d},"clientToken":"000001"}`, version, power))
}

func acceptedPayload(token uint32) []byte {
	return []byte(fmt.Sprintf(`{"state":{"reported":{"powerOn":1}},"version":14698,"clientToken":"%06d"}`, token))
}

func TestReconcilerAppliesNewerDelta(t *testing.T) {
	r := NewReconciler(zap.NewNop(), nil)

	r.HandleMessage(deltaTopic(), deltaPayload(1, 1))

	if r.Version() != 1 {
		t.Errorf("Version() = %d, want 1", r.Version())
	}
	if r.Power() != PowerOn {
		t.Errorf("Power() = %v, want %v", r.Power(), PowerOn)
	}
	if !r.Dirty() {
		t.Error("Dirty() = false, want true after a state change")
	}
	if r.Failed() {
		t.Error("Failed() = true, want false")
	}
}

func TestReconcilerDiscardsStaleDelta(t *testing.T) {
	tests := []struct {
		name         string
		staleVersion uint32
	}{
		{name: "equal version", staleVersion: 5},
		{name: "older version", staleVersion: 4},
		{name: "version zero", staleVersion: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReconciler(zap.NewNop(), nil)
			r.HandleMessage(deltaTopic(), deltaPayload(5, 1))
			r.ClearDirty()

			// A stale delta carrying a different power value must leave
			// everything untouched.
			r.HandleMessage(deltaTopic(), deltaPayload(tt.staleVersion, 0))

			if r.Version() != 5 {
				t.Errorf("Version() = %d, want 5", r.Version())
			}
			if r.Power() != PowerOn {
				t.Errorf("Power() = %v, want %v", r.Power(), PowerOn)
			}
			if r.Dirty() {
				t.Error("Dirty() = true, want false after stale delta")
			}
			if r.Failed() {
				t.Error("Failed() = true, want false: stale deltas are not errors")
			}
		})
	}
}

func TestReconcilerNewerVersionSameState(t *testing.T) {
	r := NewReconciler(zap.NewNop(), nil)
	r.HandleMessage(deltaTopic(), deltaPayload(1, 1))
	r.ClearDirty()

	// Version advances, value does not: adopt the version but stay clean.
	r.HandleMessage(deltaTopic(), deltaPayload(2, 1))

	if r.Version() != 2 {
		t.Errorf("Version() = %d, want 2", r.Version())
	}
	if r.Dirty() {
		t.Error("Dirty() = true, want false when the value did not change")
	}
}

func TestReconcilerMalformedDelta(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "invalid json", payload: `{"version":`},
		{name: "missing version", payload: `{"state":{"powerOn":1}}`},
		{name: "unparseable version", payload: `{"version":"latest","state":{"powerOn":1}}`},
		{name: "missing power state", payload: `{"version":9,"state":{}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReconciler(zap.NewNop(), nil)
			r.HandleMessage(deltaTopic(), deltaPayload(1, 1))
			r.ClearDirty()

			r.HandleMessage(deltaTopic(), []byte(tt.payload))

			if !r.Failed() {
				t.Error("Failed() = false, want true after malformed delta")
			}
			if r.Power() != PowerOn {
				t.Errorf("Power() = %v, want %v: malformed input must not mutate state", r.Power(), PowerOn)
			}
			if r.Dirty() {
				t.Error("Dirty() = true, want false after malformed delta")
			}
		})
	}
}

func TestReconcilerAcceptedCorrelation(t *testing.T) {
	r := NewReconciler(zap.NewNop(), nil)
	r.RecordReport(21909)

	if r.State() != StateReportPending {
		t.Fatalf("State() = %v, want %v", r.State(), StateReportPending)
	}

	r.HandleMessage(acceptedTopic(), acceptedPayload(21909))

	if r.State() != StateIdle {
		t.Errorf("State() = %v, want %v after matching token", r.State(), StateIdle)
	}
	if r.Failed() {
		t.Error("Failed() = true, want false")
	}
}

func TestReconcilerAcceptedMismatch(t *testing.T) {
	r := NewReconciler(zap.NewNop(), nil)
	r.RecordReport(21909)

	r.HandleMessage(acceptedTopic(), acceptedPayload(400000))

	if r.State() != StateReportPending {
		t.Errorf("State() = %v, want %v: mismatched token must not correlate", r.State(), StateReportPending)
	}
	if r.Failed() {
		t.Error("Failed() = true, want false: a mismatch may belong to another updater")
	}
}

func TestReconcilerAcceptedWhileIdle(t *testing.T) {
	r := NewReconciler(zap.NewNop(), nil)

	// Token 0 matches the zero-valued awaited token, but with no report
	// outstanding there is nothing to correlate.
	r.HandleMessage(acceptedTopic(), acceptedPayload(0))

	if r.State() != StateIdle {
		t.Errorf("State() = %v, want %v", r.State(), StateIdle)
	}
	if r.Failed() {
		t.Error("Failed() = true, want false")
	}
}

func TestReconcilerMalformedAccepted(t *testing.T) {
	r := NewReconciler(zap.NewNop(), nil)
	r.RecordReport(1)

	r.HandleMessage(acceptedTopic(), []byte(`{"clientToken":"not-a-number"}`))

	if !r.Failed() {
		t.Error("Failed() = false, want true after unparseable client token")
	}
	if r.State() != StateReportPending {
		t.Errorf("State() = %v, want %v", r.State(), StateReportPending)
	}
}

func TestReconcilerTopicMismatch(t *testing.T) {
	r := NewReconciler(zap.NewNop(), nil)

	r.HandleMessage("$aws/things/test-device/shadow/update/bogus", []byte(`{}`))

	if !r.Failed() {
		t.Error("Failed() = false, want true for an unparseable shadow topic")
	}
}

func TestReconcilerFallback(t *testing.T) {
	var gotTopic string
	var gotPayload []byte
	r := NewReconciler(zap.NewNop(), func(topic string, payload []byte) {
		gotTopic = topic
		gotPayload = payload
	})

	r.HandleMessage("sensors/test-device/temperature", []byte("22.5"))

	if gotTopic != "sensors/test-device/temperature" {
		t.Errorf("fallback topic = %q, want the original topic", gotTopic)
	}
	if string(gotPayload) != "22.5" {
		t.Errorf("fallback payload = %q, want %q", gotPayload, "22.5")
	}
	if r.Failed() {
		t.Error("Failed() = true, want false: non-shadow traffic is not an error")
	}
}

func TestReconcilerRejectedIsNonFatal(t *testing.T) {
	r := NewReconciler(zap.NewNop(), nil)

	r.HandleMessage("$aws/things/test-device/shadow/update/rejected", []byte(`{"code":400,"message":"bad"}`))

	if r.Failed() {
		t.Error("Failed() = true, want false: rejected messages are logged only")
	}
}

func TestReconcilerObserveLocal(t *testing.T) {
	r := NewReconciler(zap.NewNop(), nil)

	r.ObserveLocal(PowerOn)
	if !r.Dirty() {
		t.Error("Dirty() = false, want true after local change")
	}

	r.ClearDirty()
	r.ObserveLocal(PowerOn)
	if r.Dirty() {
		t.Error("Dirty() = true, want false when value unchanged")
	}
}
