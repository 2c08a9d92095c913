package shadow

import (
	"errors"
	"testing"
)

func TestWriteDesired(t *testing.T) {
	buf := make([]byte, DesiredDocumentLength)
	n, err := WriteDesired(buf, PowerOn, 1)
	if err != nil {
		t.Fatalf("WriteDesired() unexpected error: %v", err)
	}

	want := `{"state":{"desired":{"powerOn":1}},"clientToken":"000001"}`
	if got := string(buf[:n]); got != want {
		t.Errorf("WriteDesired() = %s, want %s", got, want)
	}
	if n != DesiredDocumentLength {
		t.Errorf("WriteDesired() n = %d, want %d", n, DesiredDocumentLength)
	}
}

func TestWriteReported(t *testing.T) {
	buf := make([]byte, ReportedDocumentLength)
	n, err := WriteReported(buf, PowerOff, 21909)
	if err != nil {
		t.Fatalf("WriteReported() unexpected error: %v", err)
	}

	want := `{"state":{"reported":{"powerOn":0}},"clientToken":"021909"}`
	if got := string(buf[:n]); got != want {
		t.Errorf("WriteReported() = %s, want %s", got, want)
	}
	if n != ReportedDocumentLength {
		t.Errorf("WriteReported() n = %d, want %d", n, ReportedDocumentLength)
	}
}

func TestWriteDocumentErrors(t *testing.T) {
	tests := []struct {
		name    string
		bufSize int
		power   PowerState
		wantErr error
	}{
		{
			name:    "buffer too small",
			bufSize: DesiredDocumentLength - 1,
			power:   PowerOn,
			wantErr: ErrBufferTooSmall,
		},
		{
			name:    "empty buffer",
			bufSize: 0,
			power:   PowerOn,
			wantErr: ErrBufferTooSmall,
		},
		{
			name:    "power state needs two digits",
			bufSize: DesiredDocumentLength,
			power:   PowerState(10),
			wantErr: ErrValueOutOfRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := make([]byte, tt.bufSize)
			if _, err := WriteDesired(buf, tt.power, 0); !errors.Is(err, tt.wantErr) {
				t.Errorf("WriteDesired() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTokenWrapsAtModulus(t *testing.T) {
	buf := make([]byte, ReportedDocumentLength)
	n, err := WriteReported(buf, PowerOn, TokenModulus+7)
	if err != nil {
		t.Fatalf("WriteReported() unexpected error: %v", err)
	}

	want := `{"state":{"reported":{"powerOn":1}},"clientToken":"000007"}`
	if got := string(buf[:n]); got != want {
		t.Errorf("WriteReported() = %s, want %s", got, want)
	}
}

// TestTokenRoundTrip checks that a token passed to the encoder comes
// back unchanged when the document's clientToken field is decoded.
func TestTokenRoundTrip(t *testing.T) {
	tokens := []uint32{0, 1, 21909, 999999}

	for _, token := range tokens {
		buf := make([]byte, ReportedDocumentLength)
		n, err := WriteReported(buf, PowerOn, token)
		if err != nil {
			t.Fatalf("WriteReported(token=%d) unexpected error: %v", token, err)
		}

		doc, err := ParseDocument(buf[:n])
		if err != nil {
			t.Fatalf("ParseDocument(token=%d) unexpected error: %v", token, err)
		}
		got, err := doc.ClientToken()
		if err != nil {
			t.Fatalf("ClientToken(token=%d) unexpected error: %v", token, err)
		}
		if got != token {
			t.Errorf("round trip = %d, want %d", got, token)
		}
	}
}

func TestParseDocument(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr error
	}{
		{
			name:    "valid delta",
			payload: `{"version":12,"state":{"powerOn":1},"clientToken":"388062"}`,
		},
		{
			name:    "truncated document",
			payload: `{"version":12,"state":`,
			wantErr: ErrMalformedDocument,
		},
		{
			name:    "not json at all",
			payload: "\x7e\x03powerOn",
			wantErr: ErrMalformedDocument,
		},
		{
			name:    "empty payload",
			payload: "",
			wantErr: ErrMalformedDocument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDocument([]byte(tt.payload))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseDocument() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDocumentFields(t *testing.T) {
	payload := `{
		"version": 12,
		"timestamp": 1595437367,
		"state": {"powerOn": 1},
		"metadata": {"powerOn": {"timestamp": 1595437367}},
		"clientToken": "388062"
	}`

	doc, err := ParseDocument([]byte(payload))
	if err != nil {
		t.Fatalf("ParseDocument() unexpected error: %v", err)
	}

	version, err := doc.Version()
	if err != nil {
		t.Fatalf("Version() unexpected error: %v", err)
	}
	if version != 12 {
		t.Errorf("Version() = %d, want 12", version)
	}

	power, err := doc.PowerState()
	if err != nil {
		t.Fatalf("PowerState() unexpected error: %v", err)
	}
	if power != PowerOn {
		t.Errorf("PowerState() = %v, want %v", power, PowerOn)
	}

	token, err := doc.ClientToken()
	if err != nil {
		t.Fatalf("ClientToken() unexpected error: %v", err)
	}
	if token != 388062 {
		t.Errorf("ClientToken() = %d, want 388062", token)
	}
}

func TestDocumentFieldErrors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		get     func(Document) error
		wantErr error
	}{
		{
			name:    "version missing",
			payload: `{"state":{"powerOn":1}}`,
			get:     func(d Document) error { _, err := d.Version(); return err },
			wantErr: ErrFieldNotFound,
		},
		{
			name:    "power state missing",
			payload: `{"version":3,"state":{}}`,
			get:     func(d Document) error { _, err := d.PowerState(); return err },
			wantErr: ErrFieldNotFound,
		},
		{
			name:    "client token missing",
			payload: `{"version":3}`,
			get:     func(d Document) error { _, err := d.ClientToken(); return err },
			wantErr: ErrFieldNotFound,
		},
		{
			name:    "version not a number",
			payload: `{"version":"latest"}`,
			get:     func(d Document) error { _, err := d.Version(); return err },
			wantErr: ErrBadFieldValue,
		},
		{
			name:    "negative version",
			payload: `{"version":-1}`,
			get:     func(d Document) error { _, err := d.Version(); return err },
			wantErr: ErrBadFieldValue,
		},
		{
			name:    "power state not a digit",
			payload: `{"state":{"powerOn":true}}`,
			get:     func(d Document) error { _, err := d.PowerState(); return err },
			wantErr: ErrBadFieldValue,
		},
		{
			name:    "power state too large",
			payload: `{"state":{"powerOn":12}}`,
			get:     func(d Document) error { _, err := d.PowerState(); return err },
			wantErr: ErrValueOutOfRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseDocument([]byte(tt.payload))
			if err != nil {
				t.Fatalf("ParseDocument() unexpected error: %v", err)
			}
			if err := tt.get(doc); !errors.Is(err, tt.wantErr) {
				t.Errorf("field error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
