package services

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"debateloop/models"

	"github.com/google/uuid"
)

// SessionManager owns debate sessions: creation, turn appending, status
// transitions, and persistence. Live sessions are stored under
// <root>/sessions and move to <root>/completed when the turn budget is
// reached, so a completed session is never re-mutated.
//
// mu guards the registry and every live session's fields: the debate loop
// appends turns on its own goroutine while HTTP handlers pause and read the
// same session. Cross-goroutine readers go through SnapshotOf.
type SessionManager struct {
	discussionsPath string

	mu     sync.Mutex
	active map[string]*models.DebateSession
}

// NewSessionManager creates the manager and its storage directories.
func NewSessionManager(discussionsPath string) (*SessionManager, error) {
	for _, subdir := range []string{"sessions", "completed", "scenarios", "logs"} {
		if err := os.MkdirAll(filepath.Join(discussionsPath, subdir), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create discussion directory: %w", err)
		}
	}
	return &SessionManager{
		discussionsPath: discussionsPath,
		active:          make(map[string]*models.DebateSession),
	}, nil
}

// CreateSession starts a new pending session with an empty history and
// persists it immediately.
func (m *SessionManager) CreateSession(topic string, participants []models.Participant, maxTurns int) (*models.DebateSession, error) {
	now := time.Now()
	session := &models.DebateSession{
		SessionID:    uuid.NewString(),
		Topic:        topic,
		Participants: participants,
		Status:       models.StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
		TurnHistory:  []models.DiscussionTurn{},
		CurrentTurn:  0,
		MaxTurns:     maxTurns,
		Metadata:     map[string]any{},
	}

	if err := m.saveSession(session); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.active[session.SessionID] = session
	m.mu.Unlock()
	return session, nil
}

// AddTurn appends a turn to a session. The bool reports ordinary rejection:
// unknown session id, or a status that accepts no more turns. The error
// carries only storage I/O failures. The first accepted turn moves the
// session from pending to active; reaching the turn budget completes it and
// archives the record.
func (m *SessionManager) AddTurn(sessionID, agentID, agentName, message string, responseTime float64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.active[sessionID]
	if !ok {
		return false, nil
	}

	if session.Status != models.StatusActive {
		if session.Status != models.StatusPending {
			return false, nil
		}
		session.Status = models.StatusActive
	}

	session.TurnHistory = append(session.TurnHistory, models.DiscussionTurn{
		TurnNumber:   session.CurrentTurn + 1,
		AgentID:      agentID,
		AgentName:    agentName,
		Message:      message,
		Timestamp:    time.Now(),
		ResponseTime: responseTime,
		Metadata:     map[string]any{},
	})
	session.CurrentTurn++
	session.UpdatedAt = time.Now()

	if session.CurrentTurn >= session.MaxTurns {
		session.Status = models.StatusCompleted
		if err := m.completeSession(session); err != nil {
			return false, err
		}
		return true, nil
	}

	if err := m.saveSession(session); err != nil {
		return false, err
	}
	return true, nil
}

// GetSession looks a session up in memory only; no disk read.
func (m *SessionManager) GetSession(sessionID string) *models.DebateSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active[sessionID]
}

// SetStatus transitions a session to paused or error. Pausing requires an
// active session; a failure can also hit before the first turn, so the error
// state is reachable from pending too. These states are set externally (by
// the orchestrator) and the session machine does not advance them further.
func (m *SessionManager) SetStatus(sessionID string, status models.SessionStatus) (bool, error) {
	if status != models.StatusPaused && status != models.StatusError {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.active[sessionID]
	if !ok {
		return false, nil
	}
	if session.Status != models.StatusActive &&
		!(status == models.StatusError && session.Status == models.StatusPending) {
		return false, nil
	}
	session.Status = status
	session.UpdatedAt = time.Now()
	if err := m.saveSession(session); err != nil {
		return false, err
	}
	return true, nil
}

// completeSession moves the persisted record from the live store to the
// archive and drops the session from the active registry. Caller holds mu.
func (m *SessionManager) completeSession(session *models.DebateSession) error {
	livePath := filepath.Join(m.discussionsPath, "sessions", session.SessionID+".json")
	if err := m.saveSession(session); err != nil {
		return err
	}
	if err := os.Remove(livePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove live session file: %w", err)
	}
	delete(m.active, session.SessionID)
	return nil
}

// SnapshotOf returns a point-in-time copy of a session that is safe to read
// and marshal while the debate loop keeps appending turns. Turns are
// immutable once appended, so the copy may share their backing array.
func (m *SessionManager) SnapshotOf(session *models.DebateSession) models.DebateSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *session
}

// saveSession writes the full session record wholesale. Completed sessions
// land in the archive, everything else in the live store.
func (m *SessionManager) saveSession(session *models.DebateSession) error {
	subdir := "sessions"
	if session.Status == models.StatusCompleted {
		subdir = "completed"
	}
	path := filepath.Join(m.discussionsPath, subdir, session.SessionID+".json")

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// LoadSession reads a session from the live or archive store. Missing or
// malformed data yields nil rather than an error. Sessions still pending or
// active are re-registered as live.
func (m *SessionManager) LoadSession(sessionID string) *models.DebateSession {
	path := filepath.Join(m.discussionsPath, "sessions", sessionID+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		path = filepath.Join(m.discussionsPath, "completed", sessionID+".json")
		if data, err = os.ReadFile(path); err != nil {
			return nil
		}
	}

	var session models.DebateSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil
	}

	if session.Status == models.StatusPending || session.Status == models.StatusActive {
		m.mu.Lock()
		m.active[sessionID] = &session
		m.mu.Unlock()
	}
	return &session
}

// SessionSummary projects a session for display without its turn history.
func (m *SessionManager) SessionSummary(sessionID string) *models.SessionSummary {
	session := m.GetSession(sessionID)
	if session == nil {
		session = m.LoadSession(sessionID)
	}
	if session == nil {
		return nil
	}
	current := m.SnapshotOf(session)
	return &models.SessionSummary{
		SessionID:    current.SessionID,
		Topic:        current.Topic,
		Status:       current.Status,
		Participants: current.Participants,
		TurnCount:    len(current.TurnHistory),
		MaxTurns:     current.MaxTurns,
		CreatedAt:    current.CreatedAt,
		UpdatedAt:    current.UpdatedAt,
	}
}
