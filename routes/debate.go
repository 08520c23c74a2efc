package routes

import (
	"debateloop/controllers"
	"debateloop/websocket"

	"github.com/gin-gonic/gin"
)

// SetupDebateRoutes registers the debate API and the spectator socket.
func SetupDebateRoutes(router *gin.Engine) {
	debates := router.Group("/debates")
	{
		debates.POST("", controllers.CreateDebate)
		debates.GET("/:sessionId", controllers.GetDebate)
		debates.GET("/:sessionId/transcript", controllers.GetDebateTranscript)
		debates.GET("/:sessionId/quality", controllers.GetDebateQuality)
		debates.GET("/:sessionId/checkpoints", controllers.GetDebateCheckpoints)
		debates.GET("/:sessionId/checkpoints/latest", controllers.GetLatestDebateCheckpoint)
		debates.POST("/:sessionId/pause", controllers.PauseDebate)
	}

	router.POST("/checkpoints/prune", controllers.PruneCheckpoints)
	router.POST("/tasks/send", controllers.SendTask)
	router.GET("/health", controllers.HealthCheck)

	router.GET("/ws/:sessionId", websocket.SpectatorHandler)
}
