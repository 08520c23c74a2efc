package main

import (
	"flag"
	"log"
	"strconv"
	"time"

	"debateloop/config"
	"debateloop/controllers"
	"debateloop/db"
	"debateloop/internal/events"
	"debateloop/retry"
	"debateloop/routes"
	"debateloop/services"
	"debateloop/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	configPath := flag.String("config", "./config/config.yml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := services.InitGeminiService(cfg); err != nil {
		log.Printf("Gemini backend unavailable: %v", err)
	}

	// The transcript archive and the event stream are both optional; the
	// file store alone is enough to run debates.
	if cfg.Database.URI != "" {
		if err := db.ConnectMongoDB(cfg.Database.URI); err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		log.Println("Connected to MongoDB")
	}
	if cfg.Redis.Addr != "" {
		if err := events.InitRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		log.Println("Connected to Redis")
	}

	sessions, err := services.NewSessionManager(cfg.Storage.DiscussionsPath)
	if err != nil {
		log.Fatalf("Failed to initialize session storage: %v", err)
	}
	checkpoints, err := services.NewCheckpointManager(cfg.Storage.CheckpointsPath)
	if err != nil {
		log.Fatalf("Failed to initialize checkpoint storage: %v", err)
	}
	quality := services.NewQualityCalculator(qualityThresholds(cfg))

	retryCfg := retryConfigFromSettings(cfg)
	orchestrator := services.NewOrchestrator(sessions, checkpoints, quality, retryCfg, websocket.Broadcast)
	controllers.InitDebateControllers(cfg, sessions, checkpoints, quality, orchestrator, retryCfg)

	router := setupRouter()
	port := strconv.Itoa(cfg.Server.Port)
	log.Printf("Server starting on port %s", port)

	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func setupRouter() *gin.Engine {
	router := gin.Default()

	router.SetTrustedProxies([]string{"127.0.0.1", "localhost"})

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))
	router.OPTIONS("/*path", func(c *gin.Context) { c.Status(204) })

	routes.SetupDebateRoutes(router)
	return router
}

func retryConfigFromSettings(cfg *config.Config) retry.Config {
	retryCfg := retry.Config{
		MaxAttempts:     cfg.Retry.MaxAttempts,
		InitialDelay:    time.Duration(cfg.Retry.InitialDelaySeconds * float64(time.Second)),
		MaxDelay:        time.Duration(cfg.Retry.MaxDelaySeconds * float64(time.Second)),
		ExponentialBase: cfg.Retry.ExponentialBase,
		Jitter:          true,
	}
	if cfg.Retry.Jitter != nil {
		retryCfg.Jitter = *cfg.Retry.Jitter
	}
	return retryCfg
}

func qualityThresholds(cfg *config.Config) services.QualityThresholds {
	return services.QualityThresholds{
		CoherenceDrop:       cfg.Quality.CoherenceDrop,
		TopicDrift:          cfg.Quality.TopicDrift,
		Repetition:          cfg.Quality.Repetition,
		FakeDetection:       cfg.Quality.FakeDetection,
		VarianceMin:         cfg.Quality.VarianceMin,
		VarianceMax:         cfg.Quality.VarianceMax,
		RecommendationFloor: cfg.Quality.RecommendationFloor,
	}
}
