package services

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"debateloop/models"
)

// ExternalCallError marks a transient failure of a generation backend:
// non-zero exit, timeout, or I/O failure. The retry wrapper treats exactly
// this kind as retryable.
type ExternalCallError struct {
	Backend string
	Err     error
}

func (e *ExternalCallError) Error() string {
	return fmt.Sprintf("%s call failed: %v", e.Backend, e.Err)
}

func (e *ExternalCallError) Unwrap() error { return e.Err }

// IsExternalCallError reports whether err is (or wraps) a transient backend
// failure.
func IsExternalCallError(err error) bool {
	var e *ExternalCallError
	return errors.As(err, &e)
}

// Debater produces one side's argument for a turn. Implementations wrap an
// opaque text-generation backend.
type Debater interface {
	Participant() models.Participant
	GenerateArgument(ctx context.Context, topic, opponentMessage string, turnNumber int) (string, error)
}

// CLIDebater shells out to a local generation command, passing the full
// prompt as the final argument and reading the reply from stdout. The
// backend is opaque: any non-zero exit or timeout surfaces as an
// ExternalCallError.
type CLIDebater struct {
	participant models.Participant
	personality Personality
	command     []string
	timeout     time.Duration
}

// NewCLIDebater builds a subprocess-backed debater. command holds the
// executable and its fixed arguments, e.g. ["node", "gemini-cli.js"].
func NewCLIDebater(participant models.Participant, personality Personality, command []string, timeout time.Duration) (*CLIDebater, error) {
	if len(command) == 0 {
		return nil, fmt.Errorf("empty generation command")
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &CLIDebater{
		participant: participant,
		personality: personality,
		command:     command,
		timeout:     timeout,
	}, nil
}

func (d *CLIDebater) Participant() models.Participant { return d.participant }

func (d *CLIDebater) GenerateArgument(ctx context.Context, topic, opponentMessage string, turnNumber int) (string, error) {
	prompt := BuildDebatePrompt(d.personality, d.participant.Name, topic, opponentMessage, turnNumber)

	runCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	args := append(append([]string{}, d.command[1:]...), prompt)
	cmd := exec.CommandContext(runCtx, d.command[0], args...)

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return "", &ExternalCallError{Backend: d.command[0], Err: fmt.Errorf("timed out after %s", d.timeout)}
		}
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return "", &ExternalCallError{Backend: d.command[0], Err: errors.New(detail)}
	}

	response := strings.TrimSpace(stdout.String())
	if response == "" {
		return "", &ExternalCallError{Backend: d.command[0], Err: errors.New("empty response")}
	}
	return response, nil
}
