package events

import (
	"encoding/json"
	"time"
)

// Event represents a debate event published to the Redis Stream for a
// session.
type Event struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
}

// TurnPayload is published after every appended turn.
type TurnPayload struct {
	SessionID    string  `json:"sessionId"`
	TurnNumber   int     `json:"turnNumber"`
	AgentID      string  `json:"agentId"`
	AgentName    string  `json:"agentName"`
	Message      string  `json:"message"`
	ResponseTime float64 `json:"responseTime"`
	Timestamp    int64   `json:"timestamp"`
}

// QualityPayload carries per-turn scores alongside any session alerts.
type QualityPayload struct {
	SessionID    string   `json:"sessionId"`
	TurnNumber   int      `json:"turnNumber"`
	Coherence    float64  `json:"coherence"`
	Relevance    float64  `json:"relevance"`
	Diversity    float64  `json:"diversity"`
	Authenticity float64  `json:"authenticity"`
	Alerts       []string `json:"alerts,omitempty"`
	Timestamp    int64    `json:"timestamp"`
}

// CheckpointPayload announces a persisted checkpoint.
type CheckpointPayload struct {
	SessionID      string `json:"sessionId"`
	CheckpointID   string `json:"checkpointId"`
	CheckpointType string `json:"checkpointType"`
	TurnNumber     int    `json:"turnNumber"`
	Timestamp      int64  `json:"timestamp"`
}

// StatusPayload announces a session status transition.
type StatusPayload struct {
	SessionID string `json:"sessionId"`
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// NewEvent wraps a payload for publication.
func NewEvent(eventType string, payload any) (*Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		Type:      eventType,
		Payload:   raw,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}
