// Package updatechannel carries version-update messages between the caching
// agent and client processes.
//
// Delivery is at-most-once with no acknowledgement: a client that is slow to
// drain its queue loses messages rather than stalling the agent. Both
// message types are safe to receive more than once.
package updatechannel

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Message types.
const (
	// TypeUpdated is sent agent -> client after an activation.
	TypeUpdated = "SW_UPDATED"
	// TypeSkipWaiting is sent client -> agent to activate a waiting version.
	TypeSkipWaiting = "SKIP_WAITING"
)

// Message is the wire schema in both directions.
type Message struct {
	Type    string `json:"type" validate:"required,oneof=SW_UPDATED SKIP_WAITING"`
	Version string `json:"version,omitempty" validate:"required_if=Type SW_UPDATED"`
}

// Updated builds the agent's activation notice.
func Updated(version string) Message {
	return Message{Type: TypeUpdated, Version: version}
}

// SkipWaiting builds the client's activation request.
func SkipWaiting() Message {
	return Message{Type: TypeSkipWaiting}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate rejects unknown types and update notices without a version.
func (m Message) Validate() error {
	if err := validate.Struct(m); err != nil {
		return fmt.Errorf("invalid message %q: %w", m.Type, err)
	}
	return nil
}
