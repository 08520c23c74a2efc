package events

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

const maxStreamLength = 1000

// streamKey names the per-session Redis Stream.
func streamKey(sessionID string) string {
	return fmt.Sprintf("debate:events:%s", sessionID)
}

// Publish appends an event to the session's stream. A nil client makes this
// a no-op so callers don't have to care whether the stream is configured.
// Publish failures are logged, not propagated: the file store remains the
// source of truth.
func Publish(sessionID string, eventType string, payload any) {
	if !Enabled() {
		return
	}

	event, err := NewEvent(eventType, payload)
	if err != nil {
		log.Printf("Failed to encode %s event for session %s: %v", eventType, sessionID, err)
		return
	}

	raw, err := json.Marshal(event)
	if err != nil {
		log.Printf("Failed to encode %s event for session %s: %v", eventType, sessionID, err)
		return
	}

	err = rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: streamKey(sessionID),
		MaxLen: maxStreamLength,
		Approx: true,
		Values: map[string]any{"event": raw},
	}).Err()
	if err != nil {
		log.Printf("Failed to publish %s event for session %s: %v", eventType, sessionID, err)
	}
}
