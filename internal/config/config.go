package config

import (
	"os"
	"strconv"
	"time"

	"goannotate/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Store     StoreConfig
	AI        AIConfig
	Server    ServerConfig
	Processor ProcessorConfig
}

// StoreConfig selects and parameterizes the persistence backend. The file
// backend is the default; postgres is opt-in via STORE_BACKEND=postgres.
type StoreConfig struct {
	Backend        string
	DataDir        string
	TestCaseDir    string
	InteractionDir string
	DatabaseURL    string
}

// AIConfig holds LLM related settings
type AIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port string
}

// ProcessorConfig holds pipeline settings
type ProcessorConfig struct {
	MaxConcurrent int
	PollInterval  time.Duration
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Store:     loadStoreConfig(),
		AI:        loadAIConfig(),
		Server:    ServerConfig{Port: getEnvOrDefault("PORT", "8080")},
		Processor: loadProcessorConfig(),
	}

	if config.Store.Backend != "file" && config.Store.Backend != "postgres" {
		return nil, errors.ConfigInvalid("STORE_BACKEND must be file or postgres")
	}
	if config.Store.Backend == "postgres" && config.Store.DatabaseURL == "" {
		return nil, errors.ConfigInvalid("DATABASE_URL is required for the postgres backend")
	}
	if config.AI.APIKey == "" {
		return nil, errors.ConfigInvalid("OPENAI_API_KEY is required")
	}
	return config, nil
}

func loadStoreConfig() StoreConfig {
	dataDir := getEnvOrDefault("ANNOTATE_DATA_DIR", ".annotations")
	return StoreConfig{
		Backend:        getEnvOrDefault("STORE_BACKEND", "file"),
		DataDir:        dataDir,
		TestCaseDir:    getEnvOrDefault("ANNOTATE_TEST_CASE_DIR", dataDir+"/test_cases"),
		InteractionDir: getEnvOrDefault("ANNOTATE_INTERACTION_DIR", dataDir+"/interactions"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
	}
}

func loadAIConfig() AIConfig {
	return AIConfig{
		APIKey:      os.Getenv("OPENAI_API_KEY"),
		BaseURL:     getEnvOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		Model:       getEnvOrDefault("ANNOTATE_MODEL_NAME", "gpt-4.1"),
		MaxTokens:   getEnvIntOrDefault("AI_MAX_TOKENS", 4096),
		Temperature: getEnvFloatOrDefault("AI_TEMPERATURE", 0.0),
		Timeout:     getEnvDurationOrDefault("AI_TIMEOUT", 180*time.Second),
	}
}

func loadProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		MaxConcurrent: getEnvIntOrDefault("PROCESSOR_MAX_CONCURRENT", 20),
		PollInterval:  getEnvDurationOrDefault("PROCESSOR_POLL_INTERVAL", 5*time.Second),
	}
}

func getEnvOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvIntOrDefault(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloatOrDefault(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDurationOrDefault(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
