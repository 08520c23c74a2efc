package controllers

import (
	"debateloop/models"

	"github.com/gin-gonic/gin"
)

// GetDebateCheckpoints lists a session's checkpoints, oldest first. An
// optional ?type= filter restricts the listing to one partition.
func GetDebateCheckpoints(c *gin.Context) {
	sessionID := c.Param("sessionId")

	var checkpointType models.CheckpointType
	if raw := c.Query("type"); raw != "" {
		parsed, err := models.ParseCheckpointType(raw)
		if err != nil {
			c.JSON(400, gin.H{"error": "Unknown checkpoint type: " + raw})
			return
		}
		checkpointType = parsed
	}

	checkpoints, err := checkpointManager.GetSessionCheckpoints(sessionID, checkpointType)
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to list checkpoints: " + err.Error()})
		return
	}
	c.JSON(200, gin.H{"sessionId": sessionID, "checkpoints": checkpoints})
}

// GetLatestDebateCheckpoint returns the most recent checkpoint for recovery.
func GetLatestDebateCheckpoint(c *gin.Context) {
	sessionID := c.Param("sessionId")

	checkpoint, err := checkpointManager.GetLatestCheckpoint(sessionID)
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to load checkpoint: " + err.Error()})
		return
	}
	if checkpoint == nil {
		c.JSON(404, gin.H{"error": "No checkpoints for session"})
		return
	}
	c.JSON(200, checkpoint)
}

type PruneCheckpointsRequest struct {
	DaysToKeep int `json:"daysToKeep"`
}

// PruneCheckpoints removes checkpoints older than the retention window.
// The window defaults to seven days.
func PruneCheckpoints(c *gin.Context) {
	req := PruneCheckpointsRequest{DaysToKeep: 7}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(400, gin.H{"error": "Invalid request payload: " + err.Error()})
			return
		}
	}
	if req.DaysToKeep <= 0 {
		req.DaysToKeep = 7
	}

	removed, err := checkpointManager.CleanupOldCheckpoints(req.DaysToKeep)
	if err != nil {
		c.JSON(500, gin.H{"error": "Cleanup failed: " + err.Error()})
		return
	}
	c.JSON(200, gin.H{"removed": removed, "daysToKeep": req.DaysToKeep})
}
