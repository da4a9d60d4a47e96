package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServerEnv_Defaults(t *testing.T) {
	t.Setenv("GPTODO_COMPLETION_API_KEY", "sk-test")

	env, err := LoadServerEnv()
	require.NoError(t, err)

	assert.Equal(t, "local", env.Env)
	assert.True(t, env.IsLocal())
	assert.Equal(t, "8080", env.HTTPPort)
	assert.Equal(t, "openai", env.Backend)
	assert.Equal(t, "sk-test", env.APIKey)
	assert.Equal(t, "https://api.openai.com/v1", env.OpenAIBaseURL)
	assert.Equal(t, []string{"*"}, env.CORSAllowedOrigins)
	assert.Equal(t, int64(1<<20), env.MaxBodyBytes)
	assert.Equal(t, 2*time.Minute, env.Timeout)
}

func TestLoadServerEnv_UnprefixedNames(t *testing.T) {
	t.Setenv("COMPLETION_API_KEY", "sk-plain")
	t.Setenv("HTTP_PORT", "9090")

	env, err := LoadServerEnv()
	require.NoError(t, err)
	assert.Equal(t, "sk-plain", env.APIKey)
	assert.Equal(t, "9090", env.HTTPPort)
}

func TestLoadServerEnv_RequiresAPIKey(t *testing.T) {
	t.Setenv("GPTODO_COMPLETION_API_KEY", "")
	t.Setenv("COMPLETION_API_KEY", "")

	_, err := LoadServerEnv()
	require.Error(t, err)
}

func TestServerEnv_Validate(t *testing.T) {
	tests := []struct {
		name    string
		env     ServerEnv
		wantErr bool
	}{
		{
			name:    "openai backend is valid",
			env:     ServerEnv{MaxBodyBytes: 1, CompletionEnv: CompletionEnv{Backend: "openai", APIKey: "k"}},
			wantErr: false,
		},
		{
			name:    "gemini backend is valid",
			env:     ServerEnv{MaxBodyBytes: 1, CompletionEnv: CompletionEnv{Backend: "gemini", APIKey: "k"}},
			wantErr: false,
		},
		{
			name:    "unknown backend should fail",
			env:     ServerEnv{MaxBodyBytes: 1, CompletionEnv: CompletionEnv{Backend: "davinci", APIKey: "k"}},
			wantErr: true,
		},
		{
			name:    "missing api key should fail",
			env:     ServerEnv{MaxBodyBytes: 1, CompletionEnv: CompletionEnv{Backend: "openai"}},
			wantErr: true,
		},
		{
			name:    "zero body limit should fail",
			env:     ServerEnv{CompletionEnv: CompletionEnv{Backend: "openai", APIKey: "k"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.env.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadClientEnv_Defaults(t *testing.T) {
	env, err := LoadClientEnv()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", env.ServerURL)
	assert.Equal(t, "./data/gptodo-client.db", env.StateDBPath)
	assert.Equal(t, time.Second, env.ErrorDisplay)
}
