package services

import (
	"os"
	"path/filepath"
	"testing"

	"debateloop/models"
)

func newTestSessionManager(t *testing.T) (*SessionManager, string) {
	t.Helper()
	dir := t.TempDir()
	m, err := NewSessionManager(dir)
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	return m, dir
}

func testParticipants() []models.Participant {
	return []models.Participant{
		{ID: "agent_a", Name: "Alice", Role: "pro"},
		{ID: "agent_b", Name: "Bob", Role: "con"},
	}
}

func TestCreateSessionStartsPending(t *testing.T) {
	m, dir := newTestSessionManager(t)

	session, err := m.CreateSession("test topic", testParticipants(), 4)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if session.Status != models.StatusPending {
		t.Errorf("status: got %s, want %s", session.Status, models.StatusPending)
	}
	if session.CurrentTurn != 0 || len(session.TurnHistory) != 0 {
		t.Errorf("new session must have no turns, got current=%d history=%d", session.CurrentTurn, len(session.TurnHistory))
	}

	path := filepath.Join(dir, "sessions", session.SessionID+".json")
	if _, err := os.Stat(path); err != nil {
		t.Errorf("session file not persisted: %v", err)
	}
}

func TestAddTurnLifecycle(t *testing.T) {
	m, dir := newTestSessionManager(t)
	session, _ := m.CreateSession("test topic", testParticipants(), 3)

	messages := []string{"first point", "counter point", "closing point"}
	for i, msg := range messages {
		added, err := m.AddTurn(session.SessionID, "agent_a", "Alice", msg, 1.5)
		if err != nil {
			t.Fatalf("AddTurn %d: %v", i+1, err)
		}
		if !added {
			t.Fatalf("AddTurn %d rejected", i+1)
		}
	}

	if session.CurrentTurn != 3 {
		t.Errorf("current turn: got %d, want 3", session.CurrentTurn)
	}
	if len(session.TurnHistory) != session.CurrentTurn {
		t.Errorf("history length %d does not match current turn %d", len(session.TurnHistory), session.CurrentTurn)
	}
	for i, turn := range session.TurnHistory {
		if turn.TurnNumber != i+1 {
			t.Errorf("turn %d numbered %d", i+1, turn.TurnNumber)
		}
	}
	if session.Status != models.StatusCompleted {
		t.Errorf("status after turn budget: got %s, want %s", session.Status, models.StatusCompleted)
	}

	// The record moves from the live store to the archive on completion.
	livePath := filepath.Join(dir, "sessions", session.SessionID+".json")
	if _, err := os.Stat(livePath); !os.IsNotExist(err) {
		t.Errorf("live file still present after completion")
	}
	archivePath := filepath.Join(dir, "completed", session.SessionID+".json")
	if _, err := os.Stat(archivePath); err != nil {
		t.Errorf("archive file missing: %v", err)
	}

	// Completed sessions accept no more turns.
	added, err := m.AddTurn(session.SessionID, "agent_a", "Alice", "late", 1.0)
	if err != nil {
		t.Fatalf("AddTurn after completion: %v", err)
	}
	if added {
		t.Errorf("completed session accepted a turn")
	}
}

func TestAddTurnUnknownSession(t *testing.T) {
	m, _ := newTestSessionManager(t)

	added, err := m.AddTurn("no-such-session", "agent_a", "Alice", "hello", 1.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if added {
		t.Errorf("unknown session accepted a turn")
	}
}

func TestSetStatusTransitions(t *testing.T) {
	m, _ := newTestSessionManager(t)
	session, _ := m.CreateSession("test topic", testParticipants(), 5)

	// Pending sessions cannot be paused; only active ones.
	paused, err := m.SetStatus(session.SessionID, models.StatusPaused)
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if paused {
		t.Errorf("pending session was paused")
	}

	if _, err := m.AddTurn(session.SessionID, "agent_a", "Alice", "opening", 1.0); err != nil {
		t.Fatalf("AddTurn: %v", err)
	}
	if session.Status != models.StatusActive {
		t.Fatalf("first turn should activate the session, got %s", session.Status)
	}

	paused, err = m.SetStatus(session.SessionID, models.StatusPaused)
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if !paused {
		t.Fatalf("active session refused to pause")
	}

	added, err := m.AddTurn(session.SessionID, "agent_b", "Bob", "reply", 1.0)
	if err != nil {
		t.Fatalf("AddTurn on paused session: %v", err)
	}
	if added {
		t.Errorf("paused session accepted a turn")
	}

	// Completed is not an externally settable status.
	if done, _ := m.SetStatus(session.SessionID, models.StatusCompleted); done {
		t.Errorf("completed must only be reached through the turn budget")
	}
}

func TestLoadSessionRoundTrip(t *testing.T) {
	m, dir := newTestSessionManager(t)
	session, _ := m.CreateSession("持続可能なエネルギー", testParticipants(), 5)
	m.AddTurn(session.SessionID, "agent_a", "Alice", "再生可能エネルギーは重要です", 2.5)

	// A fresh manager over the same directory sees only the disk state.
	m2, err := NewSessionManager(dir)
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	loaded := m2.LoadSession(session.SessionID)
	if loaded == nil {
		t.Fatal("LoadSession returned nil for a persisted session")
	}
	if loaded.Topic != session.Topic {
		t.Errorf("topic: got %q, want %q", loaded.Topic, session.Topic)
	}
	if loaded.Status != models.StatusActive {
		t.Errorf("status: got %s, want %s", loaded.Status, models.StatusActive)
	}
	if len(loaded.TurnHistory) != 1 || loaded.TurnHistory[0].Message != "再生可能エネルギーは重要です" {
		t.Errorf("turn history not restored: %+v", loaded.TurnHistory)
	}

	// Live sessions re-register so the debate can resume.
	if m2.GetSession(session.SessionID) == nil {
		t.Errorf("loaded live session not re-registered")
	}
}

func TestLoadSessionMissingOrMalformed(t *testing.T) {
	m, dir := newTestSessionManager(t)

	if got := m.LoadSession("missing"); got != nil {
		t.Errorf("missing session: got %+v, want nil", got)
	}

	path := filepath.Join(dir, "sessions", "broken.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if got := m.LoadSession("broken"); got != nil {
		t.Errorf("malformed session: got %+v, want nil", got)
	}

	// Unknown status values are rejected by the decoder, not half-loaded.
	path = filepath.Join(dir, "sessions", "badstatus.json")
	if err := os.WriteFile(path, []byte(`{"session_id":"badstatus","status":"bogus"}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if got := m.LoadSession("badstatus"); got != nil {
		t.Errorf("unknown status: got %+v, want nil", got)
	}
}

func TestSessionSummary(t *testing.T) {
	m, _ := newTestSessionManager(t)
	session, _ := m.CreateSession("test topic", testParticipants(), 5)
	m.AddTurn(session.SessionID, "agent_a", "Alice", "opening", 1.0)

	summary := m.SessionSummary(session.SessionID)
	if summary == nil {
		t.Fatal("SessionSummary returned nil")
	}
	if summary.TurnCount != 1 || summary.MaxTurns != 5 {
		t.Errorf("summary counts: got %d/%d, want 1/5", summary.TurnCount, summary.MaxTurns)
	}
	if summary.Status != models.StatusActive {
		t.Errorf("summary status: got %s, want %s", summary.Status, models.StatusActive)
	}

	if got := m.SessionSummary("missing"); got != nil {
		t.Errorf("missing session summary: got %+v, want nil", got)
	}
}
