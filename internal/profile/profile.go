package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Profile is the configuration to start main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where journey stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string
	// InstanceURL is the public url of the journey instance.
	InstanceURL string

	// Auth
	Secret         string        // JOURNEY_SECRET, signs access tokens
	AccessTokenTTL time.Duration // JOURNEY_ACCESS_TOKEN_TTL (default: 30m)
	ServiceAPIKey  string        // JOURNEY_SERVICE_API_KEY, guards /rag

	// LLM
	OpenAIAPIKey         string // JOURNEY_OPENAI_API_KEY (fallback: OPENAI_API_KEY)
	OpenAIBaseURL        string // JOURNEY_OPENAI_BASE_URL (default: https://api.openai.com/v1)
	OpenAIMergeModel     string // JOURNEY_OPENAI_MERGE_MODEL (default: gpt-4o-2024-08-06)
	OpenAILightModel     string // JOURNEY_OPENAI_LIGHT_MODEL (default: gpt-4o-mini)
	OpenAIEmbeddingModel string // JOURNEY_OPENAI_EMBEDDING_MODEL (default: text-embedding-3-small)
	EmbeddingDimensions  int    // JOURNEY_EMBEDDING_DIMENSIONS (default: 1536)

	// ElevenLabs
	ElevenLabsAPIKey     string // JOURNEY_ELEVENLABS_API_KEY (fallback: ELEVENLABS_API_KEY)
	ElevenLabsBaseURL    string // JOURNEY_ELEVENLABS_BASE_URL (default: https://api.elevenlabs.io)
	ElevenLabsAgentModel string // JOURNEY_ELEVENLABS_AGENT_MODEL (default: gpt-4o-mini)
	WebhookSecret        string // JOURNEY_WEBHOOK_SECRET (fallback: ELEVENLABS_WEBHOOK_SECRET)
	WebhookDevMode       bool   // JOURNEY_WEBHOOK_DEV_MODE

	// Memory document / vector store
	RedisAddr     string // JOURNEY_REDIS_ADDR, empty keeps documents in process
	RedisPassword string // JOURNEY_REDIS_PASSWORD
	RedisDB       int    // JOURNEY_REDIS_DB
	RedisPrefix   string // JOURNEY_REDIS_PREFIX (default: "journey:")
	VectorBackend string // JOURNEY_VECTOR_BACKEND: none, chromem or pgvector (default: chromem)
	VectorPath    string // JOURNEY_VECTOR_PATH, chromem persistence directory
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if an LLM key is configured.
func (p *Profile) IsAIEnabled() bool {
	return p.OpenAIAPIKey != ""
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv loads secrets and integration settings from environment variables.
// Values already set (e.g. from flags) are kept.
func (p *Profile) FromEnv() {
	getEnvWithFallback := func(key, legacyKey string) string {
		if val := os.Getenv(key); val != "" {
			return val
		}
		return os.Getenv(legacyKey)
	}
	setString := func(field *string, value string) {
		if *field == "" {
			*field = value
		}
	}

	setString(&p.Secret, os.Getenv("JOURNEY_SECRET"))
	setString(&p.ServiceAPIKey, os.Getenv("JOURNEY_SERVICE_API_KEY"))
	if p.AccessTokenTTL == 0 {
		p.AccessTokenTTL = 30 * time.Minute
		if raw := os.Getenv("JOURNEY_ACCESS_TOKEN_TTL"); raw != "" {
			if ttl, err := time.ParseDuration(raw); err == nil {
				p.AccessTokenTTL = ttl
			} else {
				slog.Warn("invalid access token ttl, using default", slog.String("value", raw))
			}
		}
	}

	setString(&p.OpenAIAPIKey, getEnvWithFallback("JOURNEY_OPENAI_API_KEY", "OPENAI_API_KEY"))
	setString(&p.OpenAIBaseURL, getEnvOrDefault("JOURNEY_OPENAI_BASE_URL", "https://api.openai.com/v1"))
	setString(&p.OpenAIMergeModel, getEnvOrDefault("JOURNEY_OPENAI_MERGE_MODEL", "gpt-4o-2024-08-06"))
	setString(&p.OpenAILightModel, getEnvOrDefault("JOURNEY_OPENAI_LIGHT_MODEL", "gpt-4o-mini"))
	setString(&p.OpenAIEmbeddingModel, getEnvOrDefault("JOURNEY_OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"))
	if p.EmbeddingDimensions == 0 {
		p.EmbeddingDimensions = 1536
		if dim, err := strconv.Atoi(os.Getenv("JOURNEY_EMBEDDING_DIMENSIONS")); err == nil && dim > 0 {
			p.EmbeddingDimensions = dim
		}
	}

	setString(&p.ElevenLabsAPIKey, getEnvWithFallback("JOURNEY_ELEVENLABS_API_KEY", "ELEVENLABS_API_KEY"))
	setString(&p.ElevenLabsBaseURL, getEnvOrDefault("JOURNEY_ELEVENLABS_BASE_URL", "https://api.elevenlabs.io"))
	setString(&p.ElevenLabsAgentModel, getEnvOrDefault("JOURNEY_ELEVENLABS_AGENT_MODEL", "gpt-4o-mini"))
	setString(&p.WebhookSecret, getEnvWithFallback("JOURNEY_WEBHOOK_SECRET", "ELEVENLABS_WEBHOOK_SECRET"))
	if os.Getenv("JOURNEY_WEBHOOK_DEV_MODE") == "true" {
		p.WebhookDevMode = true
	}

	setString(&p.RedisAddr, os.Getenv("JOURNEY_REDIS_ADDR"))
	setString(&p.RedisPassword, os.Getenv("JOURNEY_REDIS_PASSWORD"))
	if db, err := strconv.Atoi(os.Getenv("JOURNEY_REDIS_DB")); err == nil && p.RedisDB == 0 {
		p.RedisDB = db
	}
	setString(&p.RedisPrefix, getEnvOrDefault("JOURNEY_REDIS_PREFIX", "journey:"))
	setString(&p.VectorBackend, getEnvOrDefault("JOURNEY_VECTOR_BACKEND", "chromem"))
	setString(&p.VectorPath, os.Getenv("JOURNEY_VECTOR_PATH"))
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "journey")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/journey"
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check dsn", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("journey_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	switch p.VectorBackend {
	case "", "none", "chromem":
	case "pgvector":
		if p.Driver != "postgres" {
			return errors.New("vector backend pgvector requires the postgres driver")
		}
	default:
		return errors.Errorf("unknown vector backend %q", p.VectorBackend)
	}

	if p.Mode == "prod" && p.Secret == "" {
		return errors.New("secret is required in prod mode")
	}

	return nil
}
