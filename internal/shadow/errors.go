package shadow

import "errors"

// Errors returned by topic derivation, topic matching, and the
// document codec.
var (
	// ErrBufferTooSmall indicates a caller-provided buffer cannot hold
	// the rendered topic or document.
	ErrBufferTooSmall = errors.New("buffer too small")

	// ErrInvalidIdentity indicates an empty thing name or one longer
	// than MaxThingNameLength.
	ErrInvalidIdentity = errors.New("invalid thing name")

	// ErrNotShadowTopic indicates a topic outside the shadow namespace.
	// This is not a failure: the message belongs to some other part of
	// the application and should be forwarded, not dropped.
	ErrNotShadowTopic = errors.New("not a shadow topic")

	// ErrTopicMismatch indicates a topic inside the shadow namespace
	// whose structure could not be parsed. Unlike ErrNotShadowTopic
	// this is an error: the message was addressed to us but cannot be
	// classified.
	ErrTopicMismatch = errors.New("unrecognized shadow topic")

	// ErrMalformedDocument indicates a payload that failed structural
	// JSON validation.
	ErrMalformedDocument = errors.New("malformed shadow document")

	// ErrFieldNotFound indicates an absent field path in an otherwise
	// valid document.
	ErrFieldNotFound = errors.New("field not found in shadow document")

	// ErrBadFieldValue indicates a field that is present but does not
	// parse as an unsigned decimal integer. The original SDK silently
	// decoded such fields as zero; surfacing them as a distinct error
	// keeps version 0 unambiguous.
	ErrBadFieldValue = errors.New("field value is not an unsigned decimal")

	// ErrValueOutOfRange indicates a power state that cannot be
	// rendered in the single digit the document shape reserves for it.
	ErrValueOutOfRange = errors.New("power state out of range")
)
