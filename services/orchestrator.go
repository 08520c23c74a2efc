package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"debateloop/db"
	"debateloop/internal/events"
	"debateloop/models"
	"debateloop/retry"
)

// Broadcaster pushes an event to live spectators of a session. May be nil.
type Broadcaster func(sessionID string, event any)

// Orchestrator drives one debate session at a time through its full turn
// cycle: retry-wrapped generation, turn append, quality scoring, and
// checkpointing. Sessions are independent; run concurrent debates on
// separate goroutines.
type Orchestrator struct {
	sessions    *SessionManager
	checkpoints *CheckpointManager
	quality     *QualityCalculator
	retryConfig retry.Config
	broadcast   Broadcaster
}

func NewOrchestrator(
	sessions *SessionManager,
	checkpoints *CheckpointManager,
	quality *QualityCalculator,
	retryConfig retry.Config,
	broadcast Broadcaster,
) *Orchestrator {
	return &Orchestrator{
		sessions:    sessions,
		checkpoints: checkpoints,
		quality:     quality,
		retryConfig: retryConfig,
		broadcast:   broadcast,
	}
}

// StartDebate creates a session for the given debaters. The debate itself
// runs via RunDebate.
func (o *Orchestrator) StartDebate(topic string, debaters []Debater, maxTurns int) (*models.DebateSession, error) {
	participants := make([]models.Participant, len(debaters))
	for i, d := range debaters {
		participants[i] = d.Participant()
	}
	return o.sessions.CreateSession(topic, participants, maxTurns)
}

// RunDebate alternates turns between the debaters until the session's turn
// budget completes it. Each turn is generated under the retry policy,
// appended, scored, checkpointed with its quality snapshot, and announced
// to spectators and the event stream. If a step fails beyond recovery the
// orchestrator captures an emergency checkpoint, marks the session errored,
// and returns the fault.
func (o *Orchestrator) RunDebate(ctx context.Context, session *models.DebateSession, debaters []Debater) error {
	if len(debaters) == 0 {
		return fmt.Errorf("no debaters for session %s", session.SessionID)
	}

	for turnNumber := session.CurrentTurn + 1; ; turnNumber++ {
		debater := debaters[(turnNumber-1)%len(debaters)]
		participant := debater.Participant()

		opponentMessage := ""
		if last := session.LastTurn(); last != nil {
			opponentMessage = last.Message
		}

		start := time.Now()
		message, err := retry.Do(o.retryConfig, func() (string, error) {
			return debater.GenerateArgument(ctx, session.Topic, opponentMessage, turnNumber)
		},
			retry.RetryIf(IsExternalCallError),
			retry.OnRetry(func(err error, attempt int) {
				log.Printf("Session %s turn %d: attempt %d failed for %s: %v",
					session.SessionID, turnNumber, attempt, participant.Name, err)
			}),
		)
		if err != nil {
			return o.failDebate(session, fmt.Errorf("generation for %s failed: %w", participant.Name, err))
		}
		responseTime := time.Since(start).Seconds()

		added, err := o.sessions.AddTurn(session.SessionID, participant.ID, participant.Name, message, responseTime)
		if err != nil {
			return o.failDebate(session, fmt.Errorf("failed to persist turn %d: %w", turnNumber, err))
		}
		if !added {
			// The session stopped accepting turns underneath us (paused or
			// errored externally); leave its status alone.
			log.Printf("Session %s no longer accepts turns, stopping at turn %d", session.SessionID, turnNumber)
			return nil
		}

		// Everything below reads a locked copy: the pause endpoint mutates
		// the live session from the handler goroutine.
		current := o.sessions.SnapshotOf(session)

		turn := *current.LastTurn()
		metrics := o.quality.CalculateTurnMetrics(turn, &current, current.Topic)
		scores := map[string]float64{
			"coherence":    metrics.CoherenceScore,
			"relevance":    metrics.RelevanceScore,
			"diversity":    metrics.DiversityScore,
			"authenticity": metrics.AuthenticityScore,
		}

		checkpoint, err := o.checkpoints.CreateCheckpoint(&current, models.CheckpointAutomatic, scores, nil)
		if err != nil {
			return o.failDebate(session, fmt.Errorf("failed to checkpoint turn %d: %w", turnNumber, err))
		}

		o.announceTurn(&current, turn, metrics, checkpoint)

		if current.Status == models.StatusCompleted {
			o.finishDebate(&current)
			return nil
		}
		if current.Status != models.StatusActive {
			return nil
		}
	}
}

// PauseDebate suspends an active session from outside the turn loop.
func (o *Orchestrator) PauseDebate(sessionID string) (bool, error) {
	paused, err := o.sessions.SetStatus(sessionID, models.StatusPaused)
	if err != nil || !paused {
		return paused, err
	}
	o.publishStatus(sessionID, models.StatusPaused, "paused by request")
	return true, nil
}

// failDebate runs the emergency path: capture what we can, mark the session
// errored, and hand the original fault back to the caller.
func (o *Orchestrator) failDebate(session *models.DebateSession, cause error) error {
	log.Printf("Session %s failed: %v", session.SessionID, cause)

	current := o.sessions.SnapshotOf(session)
	if _, err := o.checkpoints.SaveEmergencyCheckpoint(current.SessionID, cause, &current); err != nil {
		log.Printf("Emergency checkpoint for session %s failed: %v", session.SessionID, err)
	}
	if _, err := o.sessions.SetStatus(session.SessionID, models.StatusError); err != nil {
		log.Printf("Failed to mark session %s errored: %v", session.SessionID, err)
	}
	o.publishStatus(session.SessionID, models.StatusError, cause.Error())
	return cause
}

// finishDebate writes a closing checkpoint carrying the final quality report
// and archives the completed transcript. Archive failures are logged only;
// the file store already holds the session.
func (o *Orchestrator) finishDebate(session *models.DebateSession) {
	report := o.quality.CalculateSessionQuality(session)

	metadata := map[string]any{"final_report": true}
	if _, err := o.checkpoints.CreateCheckpoint(session, models.CheckpointAutomatic, report.Snapshot(), metadata); err != nil {
		log.Printf("Final checkpoint for session %s failed: %v", session.SessionID, err)
	}

	if err := db.ArchiveTranscript(session); err != nil {
		log.Printf("Transcript archive for session %s failed: %v", session.SessionID, err)
	}
	if err := db.ArchiveReport(session.SessionID, report); err != nil {
		log.Printf("Report archive for session %s failed: %v", session.SessionID, err)
	}

	o.publishStatus(session.SessionID, models.StatusCompleted, "turn budget reached")
	log.Printf("Session %s completed: overall quality %.2f", session.SessionID, report.OverallScore)
}

func (o *Orchestrator) announceTurn(session *models.DebateSession, turn models.DiscussionTurn, metrics models.TurnMetrics, checkpoint *models.SessionCheckpoint) {
	report := o.quality.CalculateSessionQuality(session)

	turnPayload := events.TurnPayload{
		SessionID:    session.SessionID,
		TurnNumber:   turn.TurnNumber,
		AgentID:      turn.AgentID,
		AgentName:    turn.AgentName,
		Message:      turn.Message,
		ResponseTime: turn.ResponseTime,
		Timestamp:    turn.Timestamp.UnixMilli(),
	}
	qualityPayload := events.QualityPayload{
		SessionID:    session.SessionID,
		TurnNumber:   turn.TurnNumber,
		Coherence:    metrics.CoherenceScore,
		Relevance:    metrics.RelevanceScore,
		Diversity:    metrics.DiversityScore,
		Authenticity: metrics.AuthenticityScore,
		Alerts:       report.Alerts,
		Timestamp:    time.Now().UnixMilli(),
	}
	checkpointPayload := events.CheckpointPayload{
		SessionID:      session.SessionID,
		CheckpointID:   checkpoint.CheckpointID,
		CheckpointType: string(checkpoint.CheckpointType),
		TurnNumber:     checkpoint.TurnNumber,
		Timestamp:      checkpoint.Timestamp.UnixMilli(),
	}

	events.Publish(session.SessionID, "turn", turnPayload)
	events.Publish(session.SessionID, "quality", qualityPayload)
	events.Publish(session.SessionID, "checkpoint", checkpointPayload)

	if o.broadcast != nil {
		o.broadcast(session.SessionID, map[string]any{"type": "turn", "payload": turnPayload})
		o.broadcast(session.SessionID, map[string]any{"type": "quality", "payload": qualityPayload})
	}
}

func (o *Orchestrator) publishStatus(sessionID string, status models.SessionStatus, reason string) {
	payload := events.StatusPayload{
		SessionID: sessionID,
		Status:    string(status),
		Reason:    reason,
		Timestamp: time.Now().UnixMilli(),
	}
	events.Publish(sessionID, "status", payload)
	if o.broadcast != nil {
		o.broadcast(sessionID, map[string]any{"type": "status", "payload": payload})
	}
}
