package completion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateConfig_MapsParams(t *testing.T) {
	cfg := generateConfig(DefaultParams)

	assert.Equal(t, "application/json", cfg.ResponseMIMEType)

	assert.Equal(t, int32(1024), cfg.MaxOutputTokens)
	require.NotNil(t, cfg.Temperature)
	assert.InDelta(t, 0.7, *cfg.Temperature, 1e-6)
	require.NotNil(t, cfg.TopP)
	assert.InDelta(t, 1.0, *cfg.TopP, 1e-6)
	require.NotNil(t, cfg.FrequencyPenalty)
	assert.Zero(t, *cfg.FrequencyPenalty)
	require.NotNil(t, cfg.PresencePenalty)
	assert.Zero(t, *cfg.PresencePenalty)
}
