package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Gemini struct {
		APIKey string `yaml:"apiKey"`
		Model  string `yaml:"model"`
	} `yaml:"gemini"`

	// Agent configures the subprocess generation backend.
	Agent struct {
		Command        []string `yaml:"command"` // executable plus fixed args
		TimeoutSeconds int      `yaml:"timeoutSeconds"`
	} `yaml:"agent"`

	Storage struct {
		DiscussionsPath string `yaml:"discussionsPath"`
		CheckpointsPath string `yaml:"checkpointsPath"`
	} `yaml:"storage"`

	Database struct {
		URI string `yaml:"uri"` // optional transcript archive
	} `yaml:"database"`

	Redis struct {
		Addr     string `yaml:"addr"` // optional event stream
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Retry struct {
		MaxAttempts         int     `yaml:"maxAttempts"`
		InitialDelaySeconds float64 `yaml:"initialDelaySeconds"`
		MaxDelaySeconds     float64 `yaml:"maxDelaySeconds"`
		ExponentialBase     float64 `yaml:"exponentialBase"`
		Jitter              *bool   `yaml:"jitter"`
	} `yaml:"retry"`

	// Quality holds the scoring heuristics' constants. Defaults match the
	// reference analysis; override with care, the alerting behavior is
	// calibrated against them.
	Quality struct {
		CoherenceDrop       float64 `yaml:"coherenceDrop"`
		TopicDrift          float64 `yaml:"topicDrift"`
		Repetition          float64 `yaml:"repetition"`
		FakeDetection       float64 `yaml:"fakeDetection"`
		VarianceMin         float64 `yaml:"varianceMin"`
		VarianceMax         float64 `yaml:"varianceMax"`
		RecommendationFloor float64 `yaml:"recommendationFloor"`
	} `yaml:"quality"`
}

// LoadConfig reads the configuration file and fills in defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Storage.DiscussionsPath == "" {
		c.Storage.DiscussionsPath = "discussions"
	}
	if c.Storage.CheckpointsPath == "" {
		c.Storage.CheckpointsPath = "discussions/checkpoints"
	}
	if c.Agent.TimeoutSeconds == 0 {
		c.Agent.TimeoutSeconds = 60
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = 3
	}
	if c.Retry.InitialDelaySeconds == 0 {
		c.Retry.InitialDelaySeconds = 1.0
	}
	if c.Retry.MaxDelaySeconds == 0 {
		c.Retry.MaxDelaySeconds = 60.0
	}
	if c.Retry.ExponentialBase == 0 {
		c.Retry.ExponentialBase = 2.0
	}
	if c.Quality.CoherenceDrop == 0 {
		c.Quality.CoherenceDrop = 0.6
	}
	if c.Quality.TopicDrift == 0 {
		c.Quality.TopicDrift = 0.7
	}
	if c.Quality.Repetition == 0 {
		c.Quality.Repetition = 0.5
	}
	if c.Quality.FakeDetection == 0 {
		c.Quality.FakeDetection = 0.4
	}
	if c.Quality.VarianceMin == 0 {
		c.Quality.VarianceMin = 0.3
	}
	if c.Quality.VarianceMax == 0 {
		c.Quality.VarianceMax = 5.0
	}
	if c.Quality.RecommendationFloor == 0 {
		c.Quality.RecommendationFloor = 0.7
	}
}
