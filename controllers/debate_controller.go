package controllers

import (
	"context"
	"log"
	"time"

	"debateloop/config"
	"debateloop/models"
	"debateloop/retry"
	"debateloop/services"

	"github.com/gin-gonic/gin"
)

var (
	sessionManager    *services.SessionManager
	checkpointManager *services.CheckpointManager
	qualityCalculator *services.QualityCalculator
	orchestrator      *services.Orchestrator

	agentCommand []string
	agentTimeout time.Duration
	retryConfig  retry.Config
)

// InitDebateControllers wires the handlers to their collaborators.
func InitDebateControllers(
	cfg *config.Config,
	sessions *services.SessionManager,
	checkpoints *services.CheckpointManager,
	quality *services.QualityCalculator,
	orch *services.Orchestrator,
	retryCfg retry.Config,
) {
	sessionManager = sessions
	checkpointManager = checkpoints
	qualityCalculator = quality
	orchestrator = orch
	agentCommand = cfg.Agent.Command
	agentTimeout = time.Duration(cfg.Agent.TimeoutSeconds) * time.Second
	retryConfig = retryCfg
}

type ParticipantSpec struct {
	ID          string `json:"id"`
	Name        string `json:"name" binding:"required"`
	Personality string `json:"personality"` // logical, emotional, philosophical
	Stance      string `json:"stance"`      // pro, con, neutral
}

type CreateDebateRequest struct {
	Topic        string            `json:"topic" binding:"required"`
	MaxTurns     int               `json:"maxTurns"`
	Backend      string            `json:"backend"` // "cli" or "gemini"
	Participants []ParticipantSpec `json:"participants"`
}

type CreateDebateResponse struct {
	SessionID    string               `json:"sessionId"`
	Topic        string               `json:"topic"`
	Status       string               `json:"status"`
	MaxTurns     int                  `json:"maxTurns"`
	Participants []models.Participant `json:"participants"`
}

// CreateDebate creates a session and starts the debate loop on its own
// goroutine. Two debaters are required; absent specs default to a logical
// pro side versus an emotional con side.
func CreateDebate(c *gin.Context) {
	var req CreateDebateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}

	if req.MaxTurns <= 0 {
		req.MaxTurns = 10
	}
	if len(req.Participants) == 0 {
		req.Participants = []ParticipantSpec{
			{ID: "agent_a", Name: "Logic Pro", Personality: "logical", Stance: "pro"},
			{ID: "agent_b", Name: "Heart Con", Personality: "emotional", Stance: "con"},
		}
	}
	if len(req.Participants) != 2 {
		c.JSON(400, gin.H{"error": "Debates take exactly two participants"})
		return
	}

	debaters := make([]services.Debater, 0, len(req.Participants))
	for i, spec := range req.Participants {
		if spec.ID == "" {
			spec.ID = []string{"agent_a", "agent_b"}[i]
		}
		participant := models.Participant{ID: spec.ID, Name: spec.Name, Role: spec.Stance}
		personality := services.GetPersonality(spec.Personality, spec.Stance)

		if req.Backend == "gemini" {
			debaters = append(debaters, services.NewGeminiDebater(participant, personality, "", agentTimeout))
			continue
		}
		debater, err := services.NewCLIDebater(participant, personality, agentCommand, agentTimeout)
		if err != nil {
			c.JSON(500, gin.H{"error": "Generation backend not configured: " + err.Error()})
			return
		}
		debaters = append(debaters, debater)
	}

	session, err := orchestrator.StartDebate(req.Topic, debaters, req.MaxTurns)
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to create debate: " + err.Error()})
		return
	}

	// Capture the response before the debate loop starts mutating the
	// session on its own goroutine.
	resp := CreateDebateResponse{
		SessionID:    session.SessionID,
		Topic:        session.Topic,
		Status:       string(session.Status),
		MaxTurns:     session.MaxTurns,
		Participants: session.Participants,
	}

	go func() {
		if err := orchestrator.RunDebate(context.Background(), session, debaters); err != nil {
			log.Printf("Debate %s ended with error: %v", session.SessionID, err)
		}
	}()

	c.JSON(200, resp)
}

// GetDebate returns a session summary without its full turn history.
func GetDebate(c *gin.Context) {
	summary := sessionManager.SessionSummary(c.Param("sessionId"))
	if summary == nil {
		c.JSON(404, gin.H{"error": "Session not found"})
		return
	}
	c.JSON(200, summary)
}

// GetDebateTranscript returns the full session record.
func GetDebateTranscript(c *gin.Context) {
	sessionID := c.Param("sessionId")
	session := sessionManager.GetSession(sessionID)
	if session == nil {
		session = sessionManager.LoadSession(sessionID)
	}
	if session == nil {
		c.JSON(404, gin.H{"error": "Session not found"})
		return
	}
	c.JSON(200, sessionManager.SnapshotOf(session))
}

// GetDebateQuality computes the session's quality report on demand.
func GetDebateQuality(c *gin.Context) {
	sessionID := c.Param("sessionId")
	session := sessionManager.GetSession(sessionID)
	if session == nil {
		session = sessionManager.LoadSession(sessionID)
	}
	if session == nil {
		c.JSON(404, gin.H{"error": "Session not found"})
		return
	}
	current := sessionManager.SnapshotOf(session)
	c.JSON(200, qualityCalculator.CalculateSessionQuality(&current))
}

// PauseDebate suspends an active debate.
func PauseDebate(c *gin.Context) {
	paused, err := orchestrator.PauseDebate(c.Param("sessionId"))
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to pause debate: " + err.Error()})
		return
	}
	if !paused {
		c.JSON(409, gin.H{"error": "Session is not active"})
		return
	}
	c.JSON(200, gin.H{"status": string(models.StatusPaused)})
}
