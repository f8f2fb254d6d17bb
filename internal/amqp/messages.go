package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RefreshMessage asks every dashboard instance to drop its cached exports.
// Origin is the instance that published it.
type RefreshMessage struct {
	ID          string    `json:"id"`
	Origin      string    `json:"origin"`
	Reason      string    `json:"reason,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewRefreshMessage creates a message with a fresh ID
func NewRefreshMessage(origin, reason string) *RefreshMessage {
	return &RefreshMessage{
		ID:          uuid.NewString(),
		Origin:      origin,
		Reason:      reason,
		RequestedAt: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RefreshMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RefreshMessageFromJSON decodes a message and checks that it is addressed
// from a known instance.
func RefreshMessageFromJSON(data []byte) (*RefreshMessage, error) {
	var msg RefreshMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Origin == "" {
		return nil, fmt.Errorf("refresh message %q has no origin", msg.ID)
	}
	return &msg, nil
}
