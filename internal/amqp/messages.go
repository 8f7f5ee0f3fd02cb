package amqp

import (
	"encoding/json"
	"time"
)

// ToolStatusMessage announces one moderation decision. The audit worker
// persists these so the trail survives even when the dashboard process
// restarts between decision and write.
type ToolStatusMessage struct {
	ToolID    string    `json:"tool_id"`
	OldStatus string    `json:"old_status"`
	NewStatus string    `json:"new_status"`
	Actor     string    `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
}

// NewToolStatusMessage creates a message for a status change made by actor.
func NewToolStatusMessage(toolID, oldStatus, newStatus, actor string) *ToolStatusMessage {
	return &ToolStatusMessage{
		ToolID:    toolID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
		Actor:     actor,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *ToolStatusMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ToolStatusMessageFromJSON creates a message from JSON bytes.
func ToolStatusMessageFromJSON(data []byte) (*ToolStatusMessage, error) {
	var msg ToolStatusMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
