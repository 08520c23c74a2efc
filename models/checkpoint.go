package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// CheckpointType says why a checkpoint was taken. The type also picks the
// on-disk partition, so retention policy can differ per type.
type CheckpointType string

const (
	CheckpointAutomatic CheckpointType = "automatic" // after each turn
	CheckpointManual    CheckpointType = "manual"    // user-triggered
	CheckpointScheduled CheckpointType = "scheduled" // time-based
	CheckpointEmergency CheckpointType = "emergency" // error recovery
)

// CheckpointTypes lists every partition, in scan order.
var CheckpointTypes = []CheckpointType{
	CheckpointAutomatic, CheckpointManual, CheckpointScheduled, CheckpointEmergency,
}

// ParseCheckpointType decodes the on-disk string form, rejecting unknown values.
func ParseCheckpointType(s string) (CheckpointType, error) {
	switch CheckpointType(s) {
	case CheckpointAutomatic, CheckpointManual, CheckpointScheduled, CheckpointEmergency:
		return CheckpointType(s), nil
	}
	return "", fmt.Errorf("unknown checkpoint type %q", s)
}

func (t *CheckpointType) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseCheckpointType(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// AgentState is a snapshot of one participant at checkpoint time.
// Recomputed fresh at every checkpoint, never mutated after creation.
type AgentState struct {
	AgentID             string         `json:"agent_id"`
	LastResponse        string         `json:"last_response"`
	ResponseTime        float64        `json:"response_time"`
	TurnCount           int            `json:"turn_count"`
	PersonalityParams   map[string]any `json:"personality_params"`
	ConversationSummary string         `json:"conversation_summary"`
}

// SessionCheckpoint is an immutable, validated point-in-time copy of a
// session. A newer checkpoint supersedes it; it is never updated in place.
type SessionCheckpoint struct {
	CheckpointID      string                `json:"checkpoint_id"`
	SessionID         string                `json:"session_id"`
	Timestamp         time.Time             `json:"timestamp"`
	TurnNumber        int                   `json:"turn_number"`
	CheckpointType    CheckpointType        `json:"checkpoint_type"`
	Status            SessionStatus         `json:"status"`
	ParticipantsState map[string]AgentState `json:"participants_state"`
	QualitySnapshot   map[string]float64    `json:"quality_snapshot,omitempty"`
	Metadata          map[string]any        `json:"metadata"`
}

// Validate verifies checkpoint integrity before it may be persisted.
func (c *SessionCheckpoint) Validate() error {
	if c.CheckpointID == "" {
		return fmt.Errorf("missing checkpoint id")
	}
	if c.SessionID == "" {
		return fmt.Errorf("missing session id")
	}
	if c.Timestamp.IsZero() {
		return fmt.Errorf("missing timestamp")
	}
	if len(c.ParticipantsState) == 0 {
		return fmt.Errorf("empty participants state")
	}
	if c.TurnNumber < 0 {
		return fmt.Errorf("negative turn number %d", c.TurnNumber)
	}
	return nil
}
