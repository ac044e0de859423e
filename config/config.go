package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Store    StoreConfig
	App      AppConfig
	LLM      LLMConfig
	Workflow WorkflowConfig
	Auth     AuthConfig
	Export   ExportConfig
}

type ServerConfig struct {
	Port            string
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	DSN      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	MaxConns int
	MinConns int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// StoreConfig selects the project store: "postgres", "redis" or "sqlite".
type StoreConfig struct {
	Driver     string
	SQLitePath string
}

type AppConfig struct {
	Environment string
	LogLevel    string
	Version     string
	ServiceName string
}

type LLMConfig struct {
	Provider       string
	Model          string
	OpenAIKey      string
	XAIKey         string
	HuggingFaceKey string
	AnthropicKey   string
	GoogleKey      string
	OllamaURL      string
	MaxTokens      int
	Temperature    float64
	RequestsPerSec float64
	Burst          int

	// Optional endpoint overrides, e.g. for a corporate proxy.
	AnthropicBaseURL string
	GeminiBaseURL    string
}

type WorkflowConfig struct {
	MaxAttempts     int
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	StepTimeout     time.Duration
	MaxPromptTokens int
	SweepSchedule   string
	StaleAfter      time.Duration
}

type AuthConfig struct {
	APIKey                  string
	FirebaseCredentialsPath string
}

// ExportConfig selects where approved code is exported. S3 is used when a
// bucket is set; S3Endpoint points the client at an S3-compatible server.
type ExportConfig struct {
	S3Bucket   string
	S3Prefix   string
	S3Region   string
	S3Endpoint string
	LocalDir   string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			AllowedOrigins:  getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:4200"}),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			DSN:      getEnv("DB_DSN", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "codegen"),
			MaxConns: getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns: getEnvAsInt("DB_MIN_CONNS", 2),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Store: StoreConfig{
			Driver:     getEnv("STORE_DRIVER", "postgres"),
			SQLitePath: getEnv("SQLITE_PATH", "codegen.db"),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			ServiceName: getEnv("SERVICE_NAME", "codegen-backend"),
		},
		LLM: LLMConfig{
			Provider:       getEnv("LLM_PROVIDER", "openai"),
			Model:          getEnv("LLM_MODEL", ""),
			OpenAIKey:      getEnv("OPENAI_API_KEY", ""),
			XAIKey:         getEnv("XAI_API_KEY", ""),
			HuggingFaceKey: getEnv("HUGGINGFACEHUB_API_KEY", ""),
			AnthropicKey:   getEnv("ANTHROPIC_API_KEY", ""),
			GoogleKey:      getEnv("GOOGLE_API_KEY", ""),
			OllamaURL:      getEnv("OLLAMA_URL", "http://localhost:11434"),
			MaxTokens:      getEnvAsInt("LLM_MAX_TOKENS", 4096),
			Temperature:    getEnvAsFloat("LLM_TEMPERATURE", 0.7),
			RequestsPerSec: getEnvAsFloat("LLM_REQUESTS_PER_SEC", 2),
			Burst:          getEnvAsInt("LLM_BURST", 4),

			AnthropicBaseURL: getEnv("ANTHROPIC_BASE_URL", ""),
			GeminiBaseURL:    getEnv("GEMINI_BASE_URL", ""),
		},
		Workflow: WorkflowConfig{
			MaxAttempts:     getEnvAsInt("WORKFLOW_MAX_ATTEMPTS", 1),
			InitialBackoff:  getEnvAsDuration("WORKFLOW_INITIAL_BACKOFF", time.Second),
			MaxBackoff:      getEnvAsDuration("WORKFLOW_MAX_BACKOFF", 30*time.Second),
			StepTimeout:     getEnvAsDuration("WORKFLOW_STEP_TIMEOUT", 3*time.Minute),
			MaxPromptTokens: getEnvAsInt("WORKFLOW_MAX_PROMPT_TOKENS", 6000),
			SweepSchedule:   getEnv("WORKFLOW_SWEEP_SCHEDULE", "0 */5 * * * *"),
			StaleAfter:      getEnvAsDuration("WORKFLOW_STALE_AFTER", 10*time.Minute),
		},
		Auth: AuthConfig{
			APIKey:                  getEnv("API_KEY", ""),
			FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		},
		Export: ExportConfig{
			S3Bucket:   getEnv("EXPORT_S3_BUCKET", ""),
			S3Prefix:   getEnv("EXPORT_S3_PREFIX", "projects"),
			S3Region:   getEnv("AWS_REGION", "us-east-1"),
			S3Endpoint: getEnv("EXPORT_S3_ENDPOINT", ""),
			LocalDir:   getEnv("EXPORT_LOCAL_DIR", "exports"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	switch c.Store.Driver {
	case "postgres":
		if c.Database.DSN == "" && c.Database.Host == "" {
			return fmt.Errorf("DB_DSN or DB_HOST is required for the postgres store")
		}
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis store")
		}
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}

	if c.Workflow.MaxAttempts < 1 {
		return fmt.Errorf("WORKFLOW_MAX_ATTEMPTS must be at least 1")
	}
	// the step timeout covers every attempt, so it bounds a live step
	if c.Workflow.StepTimeout <= 0 {
		return fmt.Errorf("WORKFLOW_STEP_TIMEOUT must be positive")
	}
	if c.Workflow.StaleAfter <= c.Workflow.StepTimeout {
		return fmt.Errorf("WORKFLOW_STALE_AFTER (%s) must exceed WORKFLOW_STEP_TIMEOUT (%s)", c.Workflow.StaleAfter, c.Workflow.StepTimeout)
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid number for %s, using default: %v", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid duration for %s, using default: %s", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
