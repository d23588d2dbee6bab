package profile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"JOURNEY_SECRET", "JOURNEY_SERVICE_API_KEY", "JOURNEY_ACCESS_TOKEN_TTL",
	"JOURNEY_OPENAI_API_KEY", "OPENAI_API_KEY", "JOURNEY_OPENAI_BASE_URL",
	"JOURNEY_OPENAI_MERGE_MODEL", "JOURNEY_OPENAI_LIGHT_MODEL", "JOURNEY_OPENAI_EMBEDDING_MODEL",
	"JOURNEY_EMBEDDING_DIMENSIONS", "JOURNEY_ELEVENLABS_API_KEY", "ELEVENLABS_API_KEY",
	"JOURNEY_ELEVENLABS_BASE_URL", "JOURNEY_ELEVENLABS_AGENT_MODEL", "JOURNEY_WEBHOOK_SECRET",
	"ELEVENLABS_WEBHOOK_SECRET", "JOURNEY_WEBHOOK_DEV_MODE", "JOURNEY_REDIS_ADDR",
	"JOURNEY_REDIS_PASSWORD", "JOURNEY_REDIS_DB", "JOURNEY_REDIS_PREFIX",
	"JOURNEY_VECTOR_BACKEND", "JOURNEY_VECTOR_PATH",
}

func clearEnv(t *testing.T) {
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func TestProfileDefaults(t *testing.T) {
	clearEnv(t)

	p := &Profile{}
	p.FromEnv()

	assert.Equal(t, 30*time.Minute, p.AccessTokenTTL)
	assert.Equal(t, "https://api.openai.com/v1", p.OpenAIBaseURL)
	assert.Equal(t, "gpt-4o-2024-08-06", p.OpenAIMergeModel)
	assert.Equal(t, "gpt-4o-mini", p.OpenAILightModel)
	assert.Equal(t, "text-embedding-3-small", p.OpenAIEmbeddingModel)
	assert.Equal(t, 1536, p.EmbeddingDimensions)
	assert.Equal(t, "https://api.elevenlabs.io", p.ElevenLabsBaseURL)
	assert.Equal(t, "journey:", p.RedisPrefix)
	assert.Equal(t, "chromem", p.VectorBackend)
	assert.False(t, p.WebhookDevMode)
	assert.False(t, p.IsAIEnabled())
}

func TestProfileFromEnv(t *testing.T) {
	clearEnv(t)

	t.Run("legacy keys are used as fallback", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "sk-legacy")
		t.Setenv("ELEVENLABS_WEBHOOK_SECRET", "whsec")

		p := &Profile{}
		p.FromEnv()
		assert.Equal(t, "sk-legacy", p.OpenAIAPIKey)
		assert.Equal(t, "whsec", p.WebhookSecret)
		assert.True(t, p.IsAIEnabled())
	})

	t.Run("prefixed keys win", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "sk-legacy")
		t.Setenv("JOURNEY_OPENAI_API_KEY", "sk-new")

		p := &Profile{}
		p.FromEnv()
		assert.Equal(t, "sk-new", p.OpenAIAPIKey)
	})

	t.Run("explicit values are kept", func(t *testing.T) {
		t.Setenv("JOURNEY_SECRET", "from-env")

		p := &Profile{Secret: "from-flag"}
		p.FromEnv()
		assert.Equal(t, "from-flag", p.Secret)
	})

	t.Run("durations and numbers", func(t *testing.T) {
		t.Setenv("JOURNEY_ACCESS_TOKEN_TTL", "2h")
		t.Setenv("JOURNEY_EMBEDDING_DIMENSIONS", "768")
		t.Setenv("JOURNEY_REDIS_DB", "3")
		t.Setenv("JOURNEY_WEBHOOK_DEV_MODE", "true")

		p := &Profile{}
		p.FromEnv()
		assert.Equal(t, 2*time.Hour, p.AccessTokenTTL)
		assert.Equal(t, 768, p.EmbeddingDimensions)
		assert.Equal(t, 3, p.RedisDB)
		assert.True(t, p.WebhookDevMode)
	})
}

func TestProfileValidate(t *testing.T) {
	dir := t.TempDir()

	t.Run("sqlite dsn defaults to data dir", func(t *testing.T) {
		p := &Profile{Mode: "dev", Data: dir, Driver: "sqlite"}
		require.NoError(t, p.Validate())
		assert.Equal(t, filepath.Join(dir, "journey_dev.db"), p.DSN)
	})

	t.Run("unknown mode falls back to demo", func(t *testing.T) {
		p := &Profile{Mode: "staging", Data: dir, Driver: "sqlite"}
		require.NoError(t, p.Validate())
		assert.Equal(t, "demo", p.Mode)
	})

	t.Run("pgvector needs postgres", func(t *testing.T) {
		p := &Profile{Mode: "dev", Data: dir, Driver: "sqlite", VectorBackend: "pgvector"}
		assert.Error(t, p.Validate())
	})

	t.Run("prod requires a secret", func(t *testing.T) {
		p := &Profile{Mode: "prod", Data: dir, Driver: "sqlite"}
		assert.Error(t, p.Validate())
	})

	t.Run("missing data dir", func(t *testing.T) {
		p := &Profile{Mode: "dev", Data: filepath.Join(dir, "nope"), Driver: "sqlite"}
		assert.Error(t, p.Validate())
		_, err := os.Stat(filepath.Join(dir, "nope"))
		assert.True(t, os.IsNotExist(err))
	})
}
