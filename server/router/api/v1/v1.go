package v1

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/yuin/goldmark"

	"github.com/AlessandroMondin/Journey/internal/profile"
	"github.com/AlessandroMondin/Journey/plugin/elevenlabs"
	"github.com/AlessandroMondin/Journey/plugin/rag"
	apierrors "github.com/AlessandroMondin/Journey/server/internal/errors"
	"github.com/AlessandroMondin/Journey/server/internal/observability"
	ratelimit "github.com/AlessandroMondin/Journey/server/middleware"
	"github.com/AlessandroMondin/Journey/server/service/account"
	"github.com/AlessandroMondin/Journey/server/service/memory"
)

const (
	serviceName    = "Journey"
	headerAPIKey   = "X-API-Key"
	principalKey   = "principal"
	maxVoiceSample = 10 << 20

	// Auth routes allow short bursts per client IP.
	authRateLimit = 1.0
	authBurst     = 10
)

type APIV1Service struct {
	Profile  *profile.Profile
	Accounts *account.Service
	Memory   *memory.Orchestrator
	// RAG is optional; the /rag routes are not registered without it.
	RAG      *rag.Service
	Verifier *elevenlabs.Verifier

	markdown    goldmark.Markdown
	authLimiter *ratelimit.RateLimiter
}

func NewAPIV1Service(profile *profile.Profile, accounts *account.Service, orchestrator *memory.Orchestrator, ragService *rag.Service, verifier *elevenlabs.Verifier) *APIV1Service {
	if verifier == nil {
		verifier = &elevenlabs.Verifier{DevMode: true}
	}
	return &APIV1Service{
		Profile:     profile,
		Accounts:    accounts,
		Memory:      orchestrator,
		RAG:         ragService,
		Verifier:    verifier,
		markdown:    goldmark.New(),
		authLimiter: ratelimit.NewRateLimiter(authRateLimit, authBurst),
	}
}

// RegisterRoutes registers every public route on echoServer.
func (s *APIV1Service) RegisterRoutes(echoServer *echo.Echo) {
	echoServer.HTTPErrorHandler = HTTPErrorHandler

	api := echoServer.Group("")
	api.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"*"},
		AllowHeaders: []string{"*"},
	}))

	api.GET("/", s.Root)
	api.GET("/healthz", s.Healthz)

	authGroup := api.Group("/auth", s.authLimiter.Middleware())
	authGroup.POST("/register", s.Register)
	authGroup.POST("/token", s.Login)

	agentGroup := api.Group("/agent", s.RequireUser)
	agentGroup.PATCH("/voice", s.SetAgentVoice)
	agentGroup.GET("/signed_url", s.GetSignedURL)
	agentGroup.POST("/documents", s.CreateDocument)
	agentGroup.GET("/documents", s.ListDocuments)

	api.POST("/memory/update", s.UpdateMemory)
	api.POST("/memory/get", s.GetMemory)
	api.GET("/memory/get_all", s.GetAllMemories, s.RequireUser)

	api.POST("/webhook/elevenlabs", s.ElevenLabsWebhook)

	if s.RAG != nil {
		ragGroup := echoServer.Group("/rag", s.RequireServiceKey)
		s.registerRAGRoutes(ragGroup)
	}

	echoServer.GET("/internal/metrics", s.GetMetrics, s.RequireServiceKey)
}

func (s *APIV1Service) Root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"name":    serviceName,
		"version": s.Profile.Version,
		"endpoints": map[string]string{
			"/":                      "This information",
			"/healthz":               "Liveness check",
			"/auth/register":         "Register a new user",
			"/auth/token":            "Login and get access token",
			"/agent/voice":           "Clone a voice for the agent",
			"/agent/signed_url":      "Get a conversation URL for the agent",
			"/agent/documents":       "Create and list agent documents",
			"/memory/update":         "Correct a memory entry",
			"/memory/get":            "Ask a question about the memories",
			"/memory/get_all":        "List the memories of the last 30 days",
			"/webhook/elevenlabs":    "Conversation end webhook",
			"/rag/memory/{owner_id}": "Memory documents (service API key)",
			"/rag/delete/{owner_id}": "Delete indexed conversations (service API key)",
		},
	})
}

func (*APIV1Service) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// GetMetrics reports per-stage counters of the memory pipeline.
func (s *APIV1Service) GetMetrics(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Memory.Metrics().Snapshot())
}

// HTTPErrorHandler renders every error as {"detail": message}.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	detail := "Internal server error"
	var httpErr *echo.HTTPError
	if apiErr, ok := apierrors.As(err); ok {
		status = apiErr.HTTPStatus()
		detail = apiErr.Message
		if status >= http.StatusInternalServerError {
			attrs := []any{slog.String("code", string(apiErr.Code)), slog.String("error", err.Error())}
			for k, v := range apiErr.Context {
				attrs = append(attrs, slog.Any(k, v))
			}
			observability.LoggerFromContext(c.Request().Context()).Error(apiErr.Message, attrs...)
		}
	} else if errors.As(err, &httpErr) {
		status = httpErr.Code
		if msg, ok := httpErr.Message.(string); ok {
			detail = msg
		} else {
			detail = http.StatusText(status)
		}
	} else {
		observability.LoggerFromContext(c.Request().Context()).Error("unhandled error", slog.String("error", err.Error()))
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, map[string]string{"detail": detail})
	}
	if err != nil {
		slog.Error("failed to write error response", slog.String("error", err.Error()))
	}
}
