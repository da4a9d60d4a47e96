package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const namespace = "GPTODO"

// BaseEnv holds settings shared by the server and the client.
type BaseEnv struct {
	Env      string `envconfig:"ENV" default:"local"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// ServerEnv configures the mutation service.
type ServerEnv struct {
	BaseEnv
	HTTPHost           string   `envconfig:"HTTP_HOST" default:""`
	HTTPPort           string   `envconfig:"HTTP_PORT" default:"8080"`
	DBPath             string   `envconfig:"DB_PATH" default:"./data/gptodo.db"`
	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	MaxBodyBytes       int64    `envconfig:"MAX_BODY_BYTES" default:"1048576"`
	CompletionEnv
}

// CompletionEnv selects and authenticates the completion backend.
type CompletionEnv struct {
	Backend string `envconfig:"COMPLETION_BACKEND" default:"openai"`
	APIKey  string `envconfig:"COMPLETION_API_KEY" required:"true"`
	Model   string `envconfig:"COMPLETION_MODEL"`
	// OpenAI-compatible settings (used when Backend == "openai")
	OpenAIBaseURL string        `envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com/v1"`
	Timeout       time.Duration `envconfig:"COMPLETION_TIMEOUT" default:"2m"`
}

// ClientEnv configures the command line client.
type ClientEnv struct {
	BaseEnv
	ServerURL    string        `envconfig:"SERVER_URL" default:"http://localhost:8080"`
	StateDBPath  string        `envconfig:"STATE_DB_PATH" default:"./data/gptodo-client.db"`
	ErrorDisplay time.Duration `envconfig:"ERROR_DISPLAY" default:"1s"`
}

// LoadServerEnv reads ServerEnv from the environment.
func LoadServerEnv() (*ServerEnv, error) {
	var env ServerEnv
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load server env: %w", err)
	}
	if err := env.Validate(); err != nil {
		return nil, err
	}
	return &env, nil
}

// LoadClientEnv reads ClientEnv from the environment.
func LoadClientEnv() (*ClientEnv, error) {
	var env ClientEnv
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load client env: %w", err)
	}
	return &env, nil
}

// Validate checks values envconfig cannot express as tags.
func (e *ServerEnv) Validate() error {
	if e.APIKey == "" {
		return fmt.Errorf("completion api key is required")
	}
	switch e.Backend {
	case "openai", "gemini":
	default:
		return fmt.Errorf("unsupported completion backend %q: must be 'openai' or 'gemini'", e.Backend)
	}
	if e.MaxBodyBytes <= 0 {
		return fmt.Errorf("max body bytes must be positive, got %d", e.MaxBodyBytes)
	}
	return nil
}

// IsLocal reports whether the process runs in a developer environment.
func (e *BaseEnv) IsLocal() bool {
	return e == nil || e.Env == "local"
}
