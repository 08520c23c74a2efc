package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"debateloop/models"
	"debateloop/retry"
)

type fakeDebater struct {
	participant models.Participant
	generate    func(turnNumber int) (string, error)
}

func (f *fakeDebater) Participant() models.Participant { return f.participant }

func (f *fakeDebater) GenerateArgument(ctx context.Context, topic, opponentMessage string, turnNumber int) (string, error) {
	return f.generate(turnNumber)
}

func fastRetryConfig() retry.Config {
	return retry.Config{
		MaxAttempts:     2,
		InitialDelay:    time.Millisecond,
		MaxDelay:        5 * time.Millisecond,
		ExponentialBase: 2.0,
	}
}

func newTestOrchestrator(t *testing.T, broadcast Broadcaster) (*Orchestrator, *SessionManager, *CheckpointManager) {
	t.Helper()
	sessions, err := NewSessionManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	checkpoints, err := NewCheckpointManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewCheckpointManager: %v", err)
	}
	quality := NewQualityCalculator(DefaultQualityThresholds())
	return NewOrchestrator(sessions, checkpoints, quality, fastRetryConfig(), broadcast), sessions, checkpoints
}

func TestRunDebateCompletes(t *testing.T) {
	var broadcasts []map[string]any
	orch, _, checkpoints := newTestOrchestrator(t, func(sessionID string, event any) {
		if m, ok := event.(map[string]any); ok {
			broadcasts = append(broadcasts, m)
		}
	})

	debaters := []Debater{
		&fakeDebater{
			participant: models.Participant{ID: "agent_a", Name: "Alice", Role: "pro"},
			generate: func(n int) (string, error) {
				return fmt.Sprintf("argument alpha beta number %d", n), nil
			},
		},
		&fakeDebater{
			participant: models.Participant{ID: "agent_b", Name: "Bob", Role: "con"},
			generate: func(n int) (string, error) {
				return fmt.Sprintf("rebuttal beta gamma number %d", n), nil
			},
		},
	}

	session, err := orch.StartDebate("alpha beta gamma", debaters, 4)
	if err != nil {
		t.Fatalf("StartDebate: %v", err)
	}
	if err := orch.RunDebate(context.Background(), session, debaters); err != nil {
		t.Fatalf("RunDebate: %v", err)
	}

	if session.Status != models.StatusCompleted {
		t.Errorf("status: got %s, want %s", session.Status, models.StatusCompleted)
	}
	if len(session.TurnHistory) != 4 {
		t.Fatalf("turns: got %d, want 4", len(session.TurnHistory))
	}

	// Debaters alternate strictly.
	for i, turn := range session.TurnHistory {
		wantAgent := []string{"agent_a", "agent_b"}[i%2]
		if turn.AgentID != wantAgent {
			t.Errorf("turn %d by %s, want %s", turn.TurnNumber, turn.AgentID, wantAgent)
		}
	}

	// One checkpoint per turn plus the closing one with the final report.
	auto, err := checkpoints.GetSessionCheckpoints(session.SessionID, models.CheckpointAutomatic)
	if err != nil {
		t.Fatalf("GetSessionCheckpoints: %v", err)
	}
	if len(auto) != 5 {
		t.Fatalf("automatic checkpoints: got %d, want 5", len(auto))
	}
	final := auto[len(auto)-1]
	if final.TurnNumber != 4 {
		t.Errorf("final checkpoint at turn %d, want 4", final.TurnNumber)
	}
	if final.Metadata["final_report"] != true {
		t.Errorf("final checkpoint metadata: %+v", final.Metadata)
	}
	if _, ok := final.QualitySnapshot["overall"]; !ok {
		t.Errorf("final checkpoint lacks the report snapshot: %+v", final.QualitySnapshot)
	}

	if len(broadcasts) == 0 {
		t.Error("no events broadcast to spectators")
	}
}

func TestRunDebateRecoversFromTransientFailures(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t, nil)

	calls := 0
	debaters := []Debater{
		&fakeDebater{
			participant: models.Participant{ID: "agent_a", Name: "Alice", Role: "pro"},
			generate: func(n int) (string, error) {
				calls++
				if calls == 1 {
					return "", &ExternalCallError{Backend: "test", Err: errors.New("timeout")}
				}
				return "recovered argument", nil
			},
		},
		&fakeDebater{
			participant: models.Participant{ID: "agent_b", Name: "Bob", Role: "con"},
			generate: func(n int) (string, error) {
				return "steady rebuttal", nil
			},
		},
	}

	session, _ := orch.StartDebate("alpha beta", debaters, 2)
	if err := orch.RunDebate(context.Background(), session, debaters); err != nil {
		t.Fatalf("RunDebate: %v", err)
	}
	if session.Status != models.StatusCompleted {
		t.Errorf("status: got %s, want %s", session.Status, models.StatusCompleted)
	}
	if session.TurnHistory[0].Message != "recovered argument" {
		t.Errorf("first turn: got %q", session.TurnHistory[0].Message)
	}
}

func TestRunDebateExhaustionTriggersEmergency(t *testing.T) {
	orch, sessions, checkpoints := newTestOrchestrator(t, nil)

	debaters := []Debater{
		&fakeDebater{
			participant: models.Participant{ID: "agent_a", Name: "Alice", Role: "pro"},
			generate: func(n int) (string, error) {
				return "opening alpha beta", nil
			},
		},
		&fakeDebater{
			participant: models.Participant{ID: "agent_b", Name: "Bob", Role: "con"},
			generate: func(n int) (string, error) {
				return "", &ExternalCallError{Backend: "test", Err: errors.New("unreachable")}
			},
		},
	}

	session, _ := orch.StartDebate("alpha beta", debaters, 4)
	err := orch.RunDebate(context.Background(), session, debaters)
	if err == nil {
		t.Fatal("expected RunDebate to fail")
	}
	var exhausted *retry.ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Errorf("expected exhausted retries in cause, got %v", err)
	}

	if session.Status != models.StatusError {
		t.Errorf("status: got %s, want %s", session.Status, models.StatusError)
	}
	if got := sessions.GetSession(session.SessionID); got == nil {
		t.Error("errored session dropped from the registry")
	}

	emergencies, cerr := checkpoints.GetSessionCheckpoints(session.SessionID, models.CheckpointEmergency)
	if cerr != nil {
		t.Fatalf("GetSessionCheckpoints: %v", cerr)
	}
	if len(emergencies) != 1 {
		t.Fatalf("emergency checkpoints: got %d, want 1", len(emergencies))
	}
	if emergencies[0].Metadata["emergency_save"] != true {
		t.Errorf("emergency metadata: %+v", emergencies[0].Metadata)
	}
	// The successful first turn is preserved in the snapshot.
	if emergencies[0].TurnNumber != 1 {
		t.Errorf("emergency at turn %d, want 1", emergencies[0].TurnNumber)
	}
}

func TestRunDebateNonTransientFailsWithoutRetry(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t, nil)

	calls := 0
	debaters := []Debater{
		&fakeDebater{
			participant: models.Participant{ID: "agent_a", Name: "Alice", Role: "pro"},
			generate: func(n int) (string, error) {
				calls++
				return "", errors.New("prompt template broken")
			},
		},
	}

	session, _ := orch.StartDebate("alpha beta", debaters, 2)
	if err := orch.RunDebate(context.Background(), session, debaters); err == nil {
		t.Fatal("expected RunDebate to fail")
	}
	if calls != 1 {
		t.Errorf("generate calls: got %d, want 1 (no retry on non-transient errors)", calls)
	}
	if session.Status != models.StatusError {
		t.Errorf("status: got %s, want %s", session.Status, models.StatusError)
	}
}

func TestPauseDuringRunningDebate(t *testing.T) {
	orch, sessions, _ := newTestOrchestrator(t, nil)

	debaters := []Debater{
		&fakeDebater{
			participant: models.Participant{ID: "agent_a", Name: "Alice", Role: "pro"},
			generate: func(n int) (string, error) {
				time.Sleep(500 * time.Microsecond)
				return "argument alpha beta", nil
			},
		},
		&fakeDebater{
			participant: models.Participant{ID: "agent_b", Name: "Bob", Role: "con"},
			generate: func(n int) (string, error) {
				time.Sleep(500 * time.Microsecond)
				return "rebuttal beta gamma", nil
			},
		},
	}

	session, err := orch.StartDebate("alpha beta", debaters, 200)
	if err != nil {
		t.Fatalf("StartDebate: %v", err)
	}

	// Run the loop and the pause request on separate goroutines, as the
	// server does.
	done := make(chan error, 1)
	go func() {
		done <- orch.RunDebate(context.Background(), session, debaters)
	}()

	paused := false
	for i := 0; i < 500 && !paused; i++ {
		paused, err = orch.PauseDebate(session.SessionID)
		if err != nil {
			t.Fatalf("PauseDebate: %v", err)
		}
		if !paused {
			time.Sleep(time.Millisecond)
		}
	}
	if err := <-done; err != nil {
		t.Fatalf("RunDebate: %v", err)
	}
	if !paused {
		t.Fatal("debate finished its whole budget before the pause landed")
	}

	current := sessions.SnapshotOf(session)
	if current.Status != models.StatusPaused {
		t.Errorf("status: got %s, want %s", current.Status, models.StatusPaused)
	}
	if current.CurrentTurn != len(current.TurnHistory) {
		t.Errorf("current turn %d diverged from history length %d", current.CurrentTurn, len(current.TurnHistory))
	}
	for i, turn := range current.TurnHistory {
		if turn.TurnNumber != i+1 {
			t.Errorf("turn %d numbered %d", i+1, turn.TurnNumber)
		}
	}
}

func TestPauseDebateStopsTheLoop(t *testing.T) {
	orch, sessions, _ := newTestOrchestrator(t, nil)

	var session *models.DebateSession
	debaters := []Debater{
		&fakeDebater{
			participant: models.Participant{ID: "agent_a", Name: "Alice", Role: "pro"},
			generate: func(n int) (string, error) {
				if n == 2 {
					// Pause lands between generation and the next turn.
					if _, err := orch.PauseDebate(session.SessionID); err != nil {
						return "", err
					}
				}
				return "argument alpha", nil
			},
		},
	}

	var err error
	session, err = orch.StartDebate("alpha beta", debaters, 10)
	if err != nil {
		t.Fatalf("StartDebate: %v", err)
	}
	if err := orch.RunDebate(context.Background(), session, debaters); err != nil {
		t.Fatalf("RunDebate: %v", err)
	}

	if session.Status != models.StatusPaused {
		t.Errorf("status: got %s, want %s", session.Status, models.StatusPaused)
	}
	if len(session.TurnHistory) != 1 {
		t.Errorf("turns after pause: got %d, want 1", len(session.TurnHistory))
	}
	if got := sessions.GetSession(session.SessionID); got == nil {
		t.Error("paused session dropped from the registry")
	}
}
