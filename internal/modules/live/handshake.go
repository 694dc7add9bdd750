package live

import (
	"github.com/edgeroom/core/internal/pkg/wire"
)

// Error texts sent to the offending connection. Fixed, client-visible.
const (
	errTextBadFormat     = "Bad message format (expected JSON)"
	errTextExpectedHello = "Expected {kind:'hello', user:{userId, displayName}} as first message"
	errTextAlreadyJoined = "Already joined"
)

// ParseHello validates the first inbound frame of a connection as a
// handshake envelope and returns the presence it carries. Stateless; the
// actor decides what a failure means for the slot.
func ParseHello(raw []byte) (wire.Presence, error) {
	return wire.DecodeHello(raw)
}
