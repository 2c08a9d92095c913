package shadow

import "strings"

const (
	// topicPrefix roots every shadow topic under the AWS IoT reserved
	// namespace.
	topicPrefix = "$aws/things/"

	// shadowSegment separates the thing name from the shadow operation.
	shadowSegment = "/shadow"

	// MaxThingNameLength is the longest thing name the cloud registry
	// accepts.
	MaxThingNameLength = 128

	// MaxTopicLength bounds every topic this package can render. Used
	// to size topic buffers without allocation.
	MaxTopicLength = len(topicPrefix) + MaxThingNameLength + len(shadowSegment) + len("/update/accepted")
)

// TopicType selects one of the five shadow topics a device publishes
// or subscribes to.
type TopicType int

const (
	TopicDelete TopicType = iota
	TopicUpdate
	TopicUpdateDelta
	TopicUpdateAccepted
	TopicUpdateRejected
)

// suffix returns the operation path appended after the /shadow segment.
func (t TopicType) suffix() string {
	switch t {
	case TopicDelete:
		return "/delete"
	case TopicUpdate:
		return "/update"
	case TopicUpdateDelta:
		return "/update/delta"
	case TopicUpdateAccepted:
		return "/update/accepted"
	case TopicUpdateRejected:
		return "/update/rejected"
	default:
		return ""
	}
}

// String returns a human-readable topic type name.
func (t TopicType) String() string {
	switch t {
	case TopicDelete:
		return "delete"
	case TopicUpdate:
		return "update"
	case TopicUpdateDelta:
		return "update/delta"
	case TopicUpdateAccepted:
		return "update/accepted"
	case TopicUpdateRejected:
		return "update/rejected"
	default:
		return "unknown"
	}
}

// WriteTopic renders the topic of the given type for thingName into
// buf and returns the number of bytes written. It fails with
// ErrInvalidIdentity if the thing name is empty or too long, and with
// ErrBufferTooSmall if buf cannot hold the rendered topic. It has no
// side effects beyond the write and needs no network connection.
func WriteTopic(buf []byte, typ TopicType, thingName string) (int, error) {
	if thingName == "" || len(thingName) > MaxThingNameLength {
		return 0, ErrInvalidIdentity
	}

	suffix := typ.suffix()
	if suffix == "" {
		return 0, ErrTopicMismatch
	}

	need := len(topicPrefix) + len(thingName) + len(shadowSegment) + len(suffix)
	if len(buf) < need {
		return 0, ErrBufferTooSmall
	}

	n := copy(buf, topicPrefix)
	n += copy(buf[n:], thingName)
	n += copy(buf[n:], shadowSegment)
	n += copy(buf[n:], suffix)
	return n, nil
}

// Topic renders a topic as a string. Convenience wrapper around
// WriteTopic for callers that do not manage their own buffers.
func Topic(typ TopicType, thingName string) (string, error) {
	var buf [MaxTopicLength]byte
	n, err := WriteTopic(buf[:], typ, thingName)
	if err != nil {
		return "", err
	}
	return string(buf[:n]), nil
}

// TopicSet holds the five shadow topics for one device. Derived once
// at session setup and read-only afterwards.
type TopicSet struct {
	ThingName string

	Delete         string
	Update         string
	UpdateDelta    string
	UpdateAccepted string
	UpdateRejected string
}

// NewTopicSet derives all five topics for thingName.
func NewTopicSet(thingName string) (TopicSet, error) {
	set := TopicSet{ThingName: thingName}

	for _, t := range []struct {
		typ TopicType
		dst *string
	}{
		{TopicDelete, &set.Delete},
		{TopicUpdate, &set.Update},
		{TopicUpdateDelta, &set.UpdateDelta},
		{TopicUpdateAccepted, &set.UpdateAccepted},
		{TopicUpdateRejected, &set.UpdateRejected},
	} {
		topic, err := Topic(t.typ, thingName)
		if err != nil {
			return TopicSet{}, err
		}
		*t.dst = topic
	}

	return set, nil
}

// MessageType classifies an inbound shadow message by its topic.
type MessageType int

const (
	MessageDelete MessageType = iota
	MessageDeleteAccepted
	MessageDeleteRejected
	MessageGet
	MessageGetAccepted
	MessageGetRejected
	MessageUpdate
	MessageUpdateDelta
	MessageUpdateAccepted
	MessageUpdateRejected
	MessageUpdateDocuments
)

// String returns a human-readable message type name.
func (m MessageType) String() string {
	names := map[MessageType]string{
		MessageDelete:          "delete",
		MessageDeleteAccepted:  "delete/accepted",
		MessageDeleteRejected:  "delete/rejected",
		MessageGet:             "get",
		MessageGetAccepted:     "get/accepted",
		MessageGetRejected:     "get/rejected",
		MessageUpdate:          "update",
		MessageUpdateDelta:     "update/delta",
		MessageUpdateAccepted:  "update/accepted",
		MessageUpdateRejected:  "update/rejected",
		MessageUpdateDocuments: "update/documents",
	}
	if name, ok := names[m]; ok {
		return name
	}
	return "unknown"
}

// operations maps the path after the /shadow segment to a message type.
var operations = map[string]MessageType{
	"/delete":           MessageDelete,
	"/delete/accepted":  MessageDeleteAccepted,
	"/delete/rejected":  MessageDeleteRejected,
	"/get":              MessageGet,
	"/get/accepted":     MessageGetAccepted,
	"/get/rejected":     MessageGetRejected,
	"/update":           MessageUpdate,
	"/update/delta":     MessageUpdateDelta,
	"/update/accepted":  MessageUpdateAccepted,
	"/update/rejected":  MessageUpdateRejected,
	"/update/documents": MessageUpdateDocuments,
}

// Match is the result of classifying an inbound topic.
type Match struct {
	Type      MessageType
	ThingName string
}

// MatchTopic determines whether topic is a shadow topic and, if so,
// which operation it carries and for which thing.
//
// Topics outside the $aws/things/<thing>/shadow namespace return
// ErrNotShadowTopic; the caller should forward such messages to
// whatever handles its non-shadow traffic. Topics inside the namespace
// that cannot be parsed return ErrTopicMismatch.
func MatchTopic(topic string) (Match, error) {
	rest, ok := strings.CutPrefix(topic, topicPrefix)
	if !ok {
		return Match{}, ErrNotShadowTopic
	}

	idx := strings.Index(rest, shadowSegment)
	if idx < 0 {
		// $aws/things/... but no shadow segment: jobs, tunnels, and
		// other reserved-namespace traffic.
		return Match{}, ErrNotShadowTopic
	}

	thing := rest[:idx]
	if thing == "" || len(thing) > MaxThingNameLength || strings.Contains(thing, "/") {
		return Match{}, ErrTopicMismatch
	}

	op := rest[idx+len(shadowSegment):]
	typ, ok := operations[op]
	if !ok {
		return Match{}, ErrTopicMismatch
	}

	return Match{Type: typ, ThingName: thing}, nil
}
