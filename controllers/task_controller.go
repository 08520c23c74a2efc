package controllers

import (
	"time"

	"debateloop/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type TaskMessagePart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type TaskMessage struct {
	Role  string            `json:"role"`
	Parts []TaskMessagePart `json:"parts"`
}

type SendTaskRequest struct {
	TaskID  string      `json:"taskId"`
	Message TaskMessage `json:"message" binding:"required"`
}

type SendTaskResponse struct {
	TaskID  string      `json:"taskId"`
	Status  string      `json:"status"`
	Message TaskMessage `json:"message"`
}

// SendTask answers a one-shot task message with the configured model. It is
// the single-request counterpart of a full debate: same retry policy, no
// session state.
func SendTask(c *gin.Context) {
	var req SendTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}

	text := ""
	for _, part := range req.Message.Parts {
		if part.Text != "" {
			text = part.Text
			break
		}
	}
	if text == "" {
		c.JSON(400, gin.H{"error": "Message has no text part"})
		return
	}
	if req.TaskID == "" {
		req.TaskID = uuid.NewString()
	}

	response, err := services.GenerateTaskResponse(c.Request.Context(), text, retryConfig)
	if err != nil {
		c.JSON(502, gin.H{"error": "Task failed: " + err.Error()})
		return
	}

	c.JSON(200, SendTaskResponse{
		TaskID: req.TaskID,
		Status: "completed",
		Message: TaskMessage{
			Role:  "agent",
			Parts: []TaskMessagePart{{Type: "text", Text: response}},
		},
	})
}

// HealthCheck reports service liveness.
func HealthCheck(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
