package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"debateloop/config"
	"debateloop/models"
	"debateloop/retry"
	"debateloop/services"
)

// debatedemo runs a two-agent debate end to end from the command line and
// prints each turn with its quality metrics. Useful for trying prompts and
// thresholds without standing up the server.
func main() {
	topic := flag.String("topic", "AIは人間の創造性を高めるか", "debate topic")
	turns := flag.Int("turns", 6, "total number of turns")
	backend := flag.String("backend", "gemini", "generation backend: gemini or cli")
	agentCmd := flag.String("agent-cmd", "", "subprocess command for the cli backend")
	dataDir := flag.String("data", "demo_discussions", "directory for session and checkpoint files")
	flag.Parse()

	sessions, err := services.NewSessionManager(*dataDir)
	if err != nil {
		log.Fatalf("Failed to initialize session storage: %v", err)
	}
	checkpoints, err := services.NewCheckpointManager(*dataDir + "/checkpoints")
	if err != nil {
		log.Fatalf("Failed to initialize checkpoint storage: %v", err)
	}
	quality := services.NewQualityCalculator(services.DefaultQualityThresholds())
	orchestrator := services.NewOrchestrator(sessions, checkpoints, quality, retry.DefaultConfig(), nil)

	debaters, err := buildDebaters(*backend, *agentCmd)
	if err != nil {
		log.Fatalf("Failed to set up debaters: %v", err)
	}

	session, err := orchestrator.StartDebate(*topic, debaters, *turns)
	if err != nil {
		log.Fatalf("Failed to create session: %v", err)
	}

	fmt.Printf("Topic: %s\nSession: %s\n\n", session.Topic, session.SessionID)

	if err := orchestrator.RunDebate(context.Background(), session, debaters); err != nil {
		log.Fatalf("Debate failed: %v", err)
	}

	for _, turn := range session.TurnHistory {
		metrics := quality.CalculateTurnMetrics(turn, session, session.Topic)
		fmt.Printf("--- Turn %d: %s (%.1fs) ---\n%s\n", turn.TurnNumber, turn.AgentName, turn.ResponseTime, turn.Message)
		fmt.Printf("    coherence=%.2f relevance=%.2f diversity=%.2f\n\n",
			metrics.CoherenceScore, metrics.RelevanceScore, metrics.DiversityScore)
	}

	report := quality.CalculateSessionQuality(session)
	fmt.Printf("=== Final report ===\noverall=%.2f coherence=%.2f relevance=%.2f engagement=%.2f authenticity=%.2f\n",
		report.OverallScore, report.Coherence, report.Relevance, report.Engagement, report.Authenticity)
	for _, alert := range report.Alerts {
		fmt.Printf("alert: %s\n", alert)
	}
	for _, rec := range report.Recommendations {
		fmt.Printf("recommendation: %s\n", rec)
	}
}

func buildDebaters(backend, agentCmd string) ([]services.Debater, error) {
	pro := models.Participant{ID: "agent_a", Name: "賛成派", Role: "pro"}
	con := models.Participant{ID: "agent_b", Name: "反対派", Role: "con"}
	proPersonality := services.GetPersonality("logical", "pro")
	conPersonality := services.GetPersonality("emotional", "con")

	if backend == "cli" {
		command := strings.Fields(agentCmd)
		a, err := services.NewCLIDebater(pro, proPersonality, command, 60*time.Second)
		if err != nil {
			return nil, err
		}
		b, err := services.NewCLIDebater(con, conPersonality, command, 60*time.Second)
		if err != nil {
			return nil, err
		}
		return []services.Debater{a, b}, nil
	}

	cfg := &config.Config{}
	cfg.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	if err := services.InitGeminiService(cfg); err != nil {
		return nil, err
	}
	return []services.Debater{
		services.NewGeminiDebater(pro, proPersonality, "", 60*time.Second),
		services.NewGeminiDebater(con, conPersonality, "", 60*time.Second),
	}, nil
}
