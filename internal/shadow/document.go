package shadow

import (
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"
)

// Fixed fragments of the two outbound document shapes. Splitting the
// documents this way keeps their rendered length computable in closed
// form, so callers can size buffers before encoding.
const (
	desiredPrefix  = `{"state":{"desired":{"powerOn":`
	reportedPrefix = `{"state":{"reported":{"powerOn":`
	documentMiddle = `}},"clientToken":"`
	documentSuffix = `"}`

	powerDigits = 1
	tokenDigits = 6

	// TokenModulus folds client tokens into the six decimal digits the
	// document shape reserves for them.
	TokenModulus = 1_000_000

	// DesiredDocumentLength is the exact rendered length of a desired
	// document.
	DesiredDocumentLength = len(desiredPrefix) + powerDigits + len(documentMiddle) + tokenDigits + len(documentSuffix)

	// ReportedDocumentLength is the exact rendered length of a reported
	// document.
	ReportedDocumentLength = len(reportedPrefix) + powerDigits + len(documentMiddle) + tokenDigits + len(documentSuffix)
)

// Field paths extracted from inbound documents.
const (
	fieldVersion     = "version"
	fieldPowerState  = "state.powerOn"
	fieldClientToken = "clientToken"
)

// PowerState is the single device value under reconciliation. The
// document shape reserves one digit for it, so valid values are 0-9;
// in practice only PowerOff and PowerOn are used.
type PowerState uint8

const (
	PowerOff PowerState = 0
	PowerOn  PowerState = 1
)

// String returns "on", "off", or the numeric value for non-binary
// states.
func (p PowerState) String() string {
	switch p {
	case PowerOff:
		return "off"
	case PowerOn:
		return "on"
	default:
		return strconv.Itoa(int(p))
	}
}

// WriteDesired renders a desired-state document into buf and returns
// the number of bytes written, which is always DesiredDocumentLength
// on success. The token is reduced modulo TokenModulus and zero-padded
// to six digits. Fails with ErrBufferTooSmall or ErrValueOutOfRange;
// never allocates.
func WriteDesired(buf []byte, power PowerState, token uint32) (int, error) {
	return writeDocument(buf, desiredPrefix, power, token)
}

// WriteReported renders a reported-state document into buf. Same
// contract as WriteDesired, with ReportedDocumentLength bytes written
// on success.
func WriteReported(buf []byte, power PowerState, token uint32) (int, error) {
	return writeDocument(buf, reportedPrefix, power, token)
}

func writeDocument(buf []byte, prefix string, power PowerState, token uint32) (int, error) {
	if power > 9 {
		return 0, ErrValueOutOfRange
	}

	need := len(prefix) + powerDigits + len(documentMiddle) + tokenDigits + len(documentSuffix)
	if len(buf) < need {
		return 0, ErrBufferTooSmall
	}

	n := copy(buf, prefix)
	buf[n] = '0' + byte(power)
	n++
	n += copy(buf[n:], documentMiddle)

	t := token % TokenModulus
	for i := tokenDigits - 1; i >= 0; i-- {
		buf[n+i] = '0' + byte(t%10)
		t /= 10
	}
	n += tokenDigits

	n += copy(buf[n:], documentSuffix)
	return n, nil
}

// Document is a validated inbound shadow document. Construct one with
// ParseDocument; the accessors never run against unvalidated bytes.
type Document struct {
	raw []byte
}

// ParseDocument validates payload as structured JSON. It fails with
// ErrMalformedDocument and never mutates or retains more than the
// input slice.
func ParseDocument(payload []byte) (Document, error) {
	if !gjson.ValidBytes(payload) {
		return Document{}, ErrMalformedDocument
	}
	return Document{raw: payload}, nil
}

// Field extracts the value at a dotted path. Fails with
// ErrFieldNotFound when the path is absent.
func (d Document) Field(path string) (string, error) {
	res := gjson.GetBytes(d.raw, path)
	if !res.Exists() {
		return "", fmt.Errorf("%q: %w", path, ErrFieldNotFound)
	}
	return res.String(), nil
}

// uintField extracts a field and parses it as an unsigned decimal.
// Accepts both bare numbers ("version":12) and quoted zero-padded
// strings ("clientToken":"000042").
func (d Document) uintField(path string) (uint32, error) {
	value, err := d.Field(path)
	if err != nil {
		return 0, err
	}

	v, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%q = %q: %w", path, value, ErrBadFieldValue)
	}
	return uint32(v), nil
}

// Version extracts the shadow version number.
func (d Document) Version() (uint32, error) {
	return d.uintField(fieldVersion)
}

// PowerState extracts the power state from the delta's state object.
func (d Document) PowerState() (PowerState, error) {
	v, err := d.uintField(fieldPowerState)
	if err != nil {
		return 0, err
	}
	if v > 9 {
		return 0, fmt.Errorf("%q = %d: %w", fieldPowerState, v, ErrValueOutOfRange)
	}
	return PowerState(v), nil
}

// ClientToken extracts the correlation token echoed back by the cloud.
func (d Document) ClientToken() (uint32, error) {
	return d.uintField(fieldClientToken)
}

// Raw returns the underlying payload bytes.
func (d Document) Raw() []byte {
	return d.raw
}
