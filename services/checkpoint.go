package services

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"debateloop/models"

	"github.com/google/uuid"
)

// ValidationError reports a checkpoint that failed its integrity checks
// before persistence. Nothing is written when it is returned.
type ValidationError struct {
	Reason error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid checkpoint: %v", e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Reason }

// CheckpointManager snapshots sessions into immutable, validated checkpoint
// files partitioned by type, and restores them for recovery and audit.
type CheckpointManager struct {
	checkpointDir string
}

// NewCheckpointManager creates the manager and one directory per
// checkpoint type.
func NewCheckpointManager(checkpointDir string) (*CheckpointManager, error) {
	for _, t := range models.CheckpointTypes {
		if err := os.MkdirAll(filepath.Join(checkpointDir, string(t)), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
		}
	}
	return &CheckpointManager{checkpointDir: checkpointDir}, nil
}

// CreateCheckpoint snapshots the current session state, validates it, and
// persists it. Quality snapshot and metadata are optional.
func (c *CheckpointManager) CreateCheckpoint(
	session *models.DebateSession,
	checkpointType models.CheckpointType,
	qualitySnapshot map[string]float64,
	metadata map[string]any,
) (*models.SessionCheckpoint, error) {
	agentTurns := make(map[string][]models.DiscussionTurn)
	for _, turn := range session.TurnHistory {
		agentTurns[turn.AgentID] = append(agentTurns[turn.AgentID], turn)
	}

	participantsState := make(map[string]models.AgentState, len(session.Participants))
	for _, participant := range session.Participants {
		turns := agentTurns[participant.ID]

		var lastResponse string
		var lastResponseTime float64
		if len(turns) > 0 {
			last := turns[len(turns)-1]
			lastResponse = last.Message
			lastResponseTime = last.ResponseTime
		}

		participantsState[participant.ID] = models.AgentState{
			AgentID:      participant.ID,
			LastResponse: lastResponse,
			ResponseTime: lastResponseTime,
			TurnCount:    len(turns),
			PersonalityParams: map[string]any{
				"name": participant.Name,
				"role": participant.Role,
			},
			ConversationSummary: summarizeTurns(turns),
		}
	}

	if metadata == nil {
		metadata = map[string]any{}
	}
	checkpoint := &models.SessionCheckpoint{
		CheckpointID:      uuid.NewString(),
		SessionID:         session.SessionID,
		Timestamp:         time.Now(),
		TurnNumber:        session.CurrentTurn,
		CheckpointType:    checkpointType,
		Status:            session.Status,
		ParticipantsState: participantsState,
		QualitySnapshot:   qualitySnapshot,
		Metadata:          metadata,
	}

	if err := checkpoint.Validate(); err != nil {
		return nil, &ValidationError{Reason: err}
	}
	if err := c.saveCheckpoint(checkpoint); err != nil {
		return nil, err
	}
	return checkpoint, nil
}

// saveCheckpoint writes the checkpoint into its type partition. The filename
// carries both the session id and the checkpoint id so either can be found
// by substring.
func (c *CheckpointManager) saveCheckpoint(checkpoint *models.SessionCheckpoint) error {
	filename := fmt.Sprintf("%s_%s.json", checkpoint.SessionID, checkpoint.CheckpointID)
	path := filepath.Join(c.checkpointDir, string(checkpoint.CheckpointType), filename)

	data, err := json.MarshalIndent(checkpoint, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write checkpoint file: %w", err)
	}
	return nil
}

// LoadCheckpoint finds a checkpoint by id across all type partitions.
// Returns nil when no file matches.
func (c *CheckpointManager) LoadCheckpoint(checkpointID string) (*models.SessionCheckpoint, error) {
	for _, t := range models.CheckpointTypes {
		dir := filepath.Join(c.checkpointDir, string(t))
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to read checkpoint directory: %w", err)
		}
		for _, entry := range entries {
			if !strings.Contains(entry.Name(), checkpointID) {
				continue
			}
			return c.readCheckpointFile(filepath.Join(dir, entry.Name()))
		}
	}
	return nil, nil
}

// GetSessionCheckpoints lists a session's checkpoints sorted ascending by
// timestamp. A zero checkpointType searches every partition.
func (c *CheckpointManager) GetSessionCheckpoints(sessionID string, checkpointType models.CheckpointType) ([]*models.SessionCheckpoint, error) {
	types := models.CheckpointTypes
	if checkpointType != "" {
		types = []models.CheckpointType{checkpointType}
	}

	var checkpoints []*models.SessionCheckpoint
	for _, t := range types {
		dir := filepath.Join(c.checkpointDir, string(t))
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to read checkpoint directory: %w", err)
		}
		for _, entry := range entries {
			if !strings.Contains(entry.Name(), sessionID) {
				continue
			}
			checkpoint, err := c.readCheckpointFile(filepath.Join(dir, entry.Name()))
			if err != nil {
				return nil, err
			}
			checkpoints = append(checkpoints, checkpoint)
		}
	}

	sort.Slice(checkpoints, func(i, j int) bool {
		return checkpoints[i].Timestamp.Before(checkpoints[j].Timestamp)
	})
	return checkpoints, nil
}

// GetLatestCheckpoint returns the most recent checkpoint for a session, or
// nil when none exists.
func (c *CheckpointManager) GetLatestCheckpoint(sessionID string) (*models.SessionCheckpoint, error) {
	checkpoints, err := c.GetSessionCheckpoints(sessionID, "")
	if err != nil {
		return nil, err
	}
	if len(checkpoints) == 0 {
		return nil, nil
	}
	return checkpoints[len(checkpoints)-1], nil
}

// SaveEmergencyCheckpoint captures session state during an unrecovered
// failure. Without a live session object it falls back to the latest prior
// checkpoint; it does not reconstruct a session from checkpoint data.
func (c *CheckpointManager) SaveEmergencyCheckpoint(sessionID string, cause error, session *models.DebateSession) (*models.SessionCheckpoint, error) {
	if session == nil {
		return c.GetLatestCheckpoint(sessionID)
	}

	metadata := map[string]any{
		"error_type":     fmt.Sprintf("%T", cause),
		"error_message":  cause.Error(),
		"emergency_save": true,
	}
	return c.CreateCheckpoint(session, models.CheckpointEmergency, nil, metadata)
}

// CleanupOldCheckpoints removes checkpoint files older than the cutoff
// across every partition and reports how many were deleted.
func (c *CheckpointManager) CleanupOldCheckpoints(daysToKeep int) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -daysToKeep)

	removed := 0
	for _, t := range models.CheckpointTypes {
		dir := filepath.Join(c.checkpointDir, string(t))
		entries, err := os.ReadDir(dir)
		if err != nil {
			return removed, fmt.Errorf("failed to read checkpoint directory: %w", err)
		}
		for _, entry := range entries {
			info, err := entry.Info()
			if err != nil {
				return removed, fmt.Errorf("failed to stat checkpoint file: %w", err)
			}
			if info.ModTime().Before(cutoff) {
				if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
					return removed, fmt.Errorf("failed to remove checkpoint file: %w", err)
				}
				removed++
			}
		}
	}
	return removed, nil
}

func (c *CheckpointManager) readCheckpointFile(path string) (*models.SessionCheckpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint file: %w", err)
	}
	var checkpoint models.SessionCheckpoint
	if err := json.Unmarshal(data, &checkpoint); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint file %s: %w", filepath.Base(path), err)
	}
	return &checkpoint, nil
}

// summarizeTurns builds a brief extractive summary of one agent's side of
// the conversation.
func summarizeTurns(turns []models.DiscussionTurn) string {
	if len(turns) == 0 {
		return "No conversation yet"
	}
	if len(turns) == 1 {
		return truncateRunes(turns[0].Message, 100) + "..."
	}
	first := truncateRunes(turns[0].Message, 50)
	last := truncateRunes(turns[len(turns)-1].Message, 50)
	return fmt.Sprintf("Started: %s... Latest: %s...", first, last)
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
