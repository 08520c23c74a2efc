package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"debateloop/config"
	"debateloop/models"
	"debateloop/retry"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// Global Gemini client instance
var geminiClient *genai.Client

// InitGeminiService initializes the Gemini client using the API key from the
// config. Gemini-backed debaters are unavailable until this runs.
func InitGeminiService(cfg *config.Config) error {
	var err error
	geminiClient, err = initGemini(cfg.Gemini.APIKey)
	return err
}

func initGemini(apiKey string) (*genai.Client, error) {
	clientConfig := &genai.ClientConfig{}
	if apiKey != "" {
		clientConfig.APIKey = apiKey
	}
	return genai.NewClient(context.Background(), clientConfig)
}

func generateModelText(ctx context.Context, modelName, prompt string) (string, error) {
	if geminiClient == nil {
		return "", errors.New("gemini client not initialized")
	}
	resp, err := geminiClient.Models.GenerateContent(ctx, modelName, genai.Text(prompt), nil)
	if err != nil {
		return "", err
	}
	return cleanModelOutput(resp.Text()), nil
}

func cleanModelOutput(text string) string {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```JSON")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}

// GenerateTaskResponse answers a one-shot task message with the default
// model, under the given retry policy.
func GenerateTaskResponse(ctx context.Context, message string, retryConfig retry.Config) (string, error) {
	return retry.Do(retryConfig, func() (string, error) {
		response, err := generateModelText(ctx, defaultGeminiModel, message)
		if err != nil {
			return "", &ExternalCallError{Backend: "gemini", Err: err}
		}
		return response, nil
	}, retry.RetryIf(IsExternalCallError))
}

// GeminiDebater generates arguments through the Gemini API instead of a
// local subprocess. Failures surface as ExternalCallError like any other
// backend.
type GeminiDebater struct {
	participant models.Participant
	personality Personality
	model       string
	timeout     time.Duration
}

func NewGeminiDebater(participant models.Participant, personality Personality, model string, timeout time.Duration) *GeminiDebater {
	if model == "" {
		model = defaultGeminiModel
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &GeminiDebater{
		participant: participant,
		personality: personality,
		model:       model,
		timeout:     timeout,
	}
}

func (d *GeminiDebater) Participant() models.Participant { return d.participant }

func (d *GeminiDebater) GenerateArgument(ctx context.Context, topic, opponentMessage string, turnNumber int) (string, error) {
	prompt := BuildDebatePrompt(d.personality, d.participant.Name, topic, opponentMessage, turnNumber)

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	response, err := generateModelText(callCtx, d.model, prompt)
	if err != nil {
		return "", &ExternalCallError{Backend: "gemini", Err: err}
	}
	if response == "" {
		return "", &ExternalCallError{Backend: "gemini", Err: errors.New("empty response")}
	}
	return response, nil
}
