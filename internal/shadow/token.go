package shadow

import (
	"sync/atomic"
	"time"
)

// TokenSource issues client tokens for outbound shadow reports.
//
// The original SDK derived tokens from the wall clock modulo one
// million, which collides when two reports fall inside the same
// millisecond. This source combines a session epoch with a monotonic
// counter instead: tokens are unique within a session regardless of
// clock resolution, and still fit the six-digit document field.
type TokenSource struct {
	epoch   uint32
	counter atomic.Uint32
}

// NewTokenSource creates a source whose epoch is derived from now.
func NewTokenSource(now time.Time) *TokenSource {
	return &TokenSource{
		epoch: uint32(now.UnixMilli() % TokenModulus),
	}
}

// Next returns the next token. Safe for concurrent use.
func (s *TokenSource) Next() uint32 {
	n := s.counter.Add(1)
	return (s.epoch + n) % TokenModulus
}
