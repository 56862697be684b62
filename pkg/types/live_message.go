package types

import (
	"encoding/json"
	"time"
)

// LiveMessage mirrors one publish for the live feed.
type LiveMessage struct {
	Timestamp string `json:"timestamp"`
	Topic     string `json:"topic"`
	Payload   string `json:"payload"`
	Retained  bool   `json:"retained"`
}

func NewLiveMessage(topic string, payload []byte, retained bool) *LiveMessage {
	return &LiveMessage{
		Timestamp: time.Now().Format(time.RFC3339),
		Topic:     topic,
		Payload:   string(payload),
		Retained:  retained,
	}
}

func (m *LiveMessage) ToJsonBytes() []byte {
	data, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	return data
}

// Returns nil when the bytes are not a live message.
func LiveMessageFromJsonBytes(data []byte) *LiveMessage {
	var msg LiveMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil
	}
	if msg.Topic == "" {
		return nil
	}
	return &msg
}
