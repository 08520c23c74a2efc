package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// SessionStatus is the lifecycle state of a debate session.
type SessionStatus string

const (
	StatusPending   SessionStatus = "pending"
	StatusActive    SessionStatus = "active"
	StatusCompleted SessionStatus = "completed"
	StatusPaused    SessionStatus = "paused"
	StatusError     SessionStatus = "error"
)

// ParseSessionStatus decodes the on-disk string form, rejecting unknown values.
func ParseSessionStatus(s string) (SessionStatus, error) {
	switch SessionStatus(s) {
	case StatusPending, StatusActive, StatusCompleted, StatusPaused, StatusError:
		return SessionStatus(s), nil
	}
	return "", fmt.Errorf("unknown session status %q", s)
}

func (s *SessionStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseSessionStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Participant identifies one side of a debate.
type Participant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// DiscussionTurn is one utterance in a debate. Immutable once appended.
type DiscussionTurn struct {
	TurnNumber   int            `json:"turn_number"`
	AgentID      string         `json:"agent_id"`
	AgentName    string         `json:"agent_name"`
	Message      string         `json:"message"`
	Timestamp    time.Time      `json:"timestamp"`
	ResponseTime float64        `json:"response_time"` // seconds; 0 means unmeasured
	Metadata     map[string]any `json:"metadata"`
}

// DebateSession is the aggregate root for one debate.
// CurrentTurn always equals len(TurnHistory).
type DebateSession struct {
	SessionID    string           `json:"session_id"`
	Topic        string           `json:"topic"`
	Participants []Participant    `json:"participants"`
	Status       SessionStatus    `json:"status"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	TurnHistory  []DiscussionTurn `json:"turn_history"`
	CurrentTurn  int              `json:"current_turn"`
	MaxTurns     int              `json:"max_turns"`
	Metadata     map[string]any   `json:"metadata"`
}

// LastTurn returns the most recent turn, or nil for a fresh session.
func (s *DebateSession) LastTurn() *DiscussionTurn {
	if len(s.TurnHistory) == 0 {
		return nil
	}
	return &s.TurnHistory[len(s.TurnHistory)-1]
}

// SessionSummary is a lightweight projection for display, without the full
// turn history.
type SessionSummary struct {
	SessionID    string        `json:"session_id"`
	Topic        string        `json:"topic"`
	Status       SessionStatus `json:"status"`
	Participants []Participant `json:"participants"`
	TurnCount    int           `json:"turn_count"`
	MaxTurns     int           `json:"max_turns"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}
