package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/AlessandroMondin/Journey/internal/profile"
	"github.com/AlessandroMondin/Journey/plugin/ai"
	aicache "github.com/AlessandroMondin/Journey/plugin/ai/cache"
	"github.com/AlessandroMondin/Journey/plugin/ai/vector"
	"github.com/AlessandroMondin/Journey/plugin/elevenlabs"
	"github.com/AlessandroMondin/Journey/plugin/rag"
	"github.com/AlessandroMondin/Journey/server/internal/observability"
	apiv1 "github.com/AlessandroMondin/Journey/server/router/api/v1"
	"github.com/AlessandroMondin/Journey/server/runner/embedding"
	"github.com/AlessandroMondin/Journey/server/service/account"
	"github.com/AlessandroMondin/Journey/server/service/memory"
	"github.com/AlessandroMondin/Journey/store"
)

const (
	hashEmbeddingDimensions = 256
	embeddingCacheSize      = 10000
)

type Server struct {
	Secret  string
	Profile *profile.Profile
	Store   *store.Store

	echoServer   *echo.Echo
	documents    rag.DocumentStore
	ledgerRunner *embedding.Runner
	runnerCancel context.CancelFunc
	// runnerDone is closed when the ledger runner has returned.
	runnerDone chan struct{}
}

func NewServer(ctx context.Context, profile *profile.Profile, store *store.Store) (*Server, error) {
	s := &Server{
		Store:   store,
		Profile: profile,
		Secret:  profile.Secret,
	}
	if s.Secret == "" {
		// Dev and demo instances sign tokens with a fixed key.
		s.Secret = "journey-" + profile.Mode
	}

	echoServer := echo.New()
	echoServer.Debug = profile.IsDev()
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.Use(middleware.Recover())
	echoServer.Use(observability.RequestContextMiddleware(slog.Default()))
	s.echoServer = echoServer

	aiConfig := ai.NewConfigFromProfile(profile)
	if err := aiConfig.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid AI configuration")
	}
	if !aiConfig.Enabled {
		slog.Warn("no OpenAI API key configured, memory updates will fail")
	}
	mergeLLM, err := ai.NewLLMService(&aiConfig.MergeLLM)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create merge LLM")
	}
	lightLLM, err := ai.NewLLMService(&aiConfig.LightLLM)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create light LLM")
	}

	elevenLabsClient := elevenlabs.NewClient(elevenlabs.NewConfigFromProfile(profile))
	if profile.ElevenLabsAPIKey == "" {
		slog.Warn("no ElevenLabs API key configured, agent calls will fail")
	}

	orchestrator := memory.NewOrchestrator(store, mergeLLM, lightLLM, elevenLabsClient)

	ragService, err := s.newRAGService(ctx, aiConfig)
	if err != nil {
		return nil, err
	}
	var indexer account.Indexer
	if ragService != nil {
		indexer = ragService
	}
	accounts := account.NewService(store, elevenLabsClient, s.Secret, profile.AccessTokenTTL, indexer)

	verifier := &elevenlabs.Verifier{
		Secret:  profile.WebhookSecret,
		DevMode: profile.WebhookDevMode,
	}
	if !verifier.Enabled() {
		slog.Warn("webhook signature verification is disabled")
	}

	apiV1Service := apiv1.NewAPIV1Service(profile, accounts, orchestrator, ragService, verifier)
	apiV1Service.RegisterRoutes(echoServer)

	return s, nil
}

// newRAGService returns nil when the vector backend is "none".
func (s *Server) newRAGService(ctx context.Context, aiConfig *ai.Config) (*rag.Service, error) {
	vectors, err := s.newVectorService()
	if err != nil {
		return nil, err
	}
	if vectors == nil {
		slog.Info("vector backend disabled, retrieval routes are off")
		return nil, nil
	}

	var embedder ai.EmbeddingService
	var documentLLM ai.LLMService
	if aiConfig.Enabled {
		remote, err := ai.NewEmbeddingService(&aiConfig.Embedding)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create embedding service")
		}
		embedder = aicache.NewEmbeddingService(remote, embeddingCacheSize)
		if documentLLM, err = ai.NewLLMService(&aiConfig.DocumentLLM); err != nil {
			return nil, errors.Wrap(err, "failed to create document LLM")
		}
	} else {
		embedder = ai.NewHashEmbeddingService(hashEmbeddingDimensions)
	}

	if s.Profile.RedisAddr != "" {
		config := rag.DefaultRedisConfig()
		config.Addr = s.Profile.RedisAddr
		config.Password = s.Profile.RedisPassword
		config.DB = s.Profile.RedisDB
		config.KeyPrefix = s.Profile.RedisPrefix
		documents, err := rag.NewRedisDocumentStore(config)
		if err != nil {
			return nil, errors.Wrap(err, "failed to connect to redis")
		}
		s.documents = documents
	} else {
		slog.Info("no redis configured, memory documents are kept in process")
		s.documents = rag.NewInMemoryDocumentStore()
	}

	s.ledgerRunner = embedding.NewRunner(s.Store, embedder, vectors)
	return rag.NewService(s.documents, vectors, embedder, documentLLM), nil
}

func (s *Server) newVectorService() (vector.VectorService, error) {
	switch s.Profile.VectorBackend {
	case "none":
		return nil, nil
	case "pgvector":
		return vector.NewStoreService(s.Store), nil
	default:
		path := s.Profile.VectorPath
		if path == "" && s.Profile.Mode == "prod" {
			path = filepath.Join(s.Profile.Data, "vectors")
		}
		vectors, err := vector.NewChromemService(path)
		if err != nil {
			return nil, errors.Wrap(err, "failed to open vector store")
		}
		return vectors, nil
	}
}

func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrap(err, "failed to listen")
	}
	s.echoServer.Listener = listener

	if s.ledgerRunner != nil {
		runnerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		s.runnerCancel = cancel
		s.runnerDone = make(chan struct{})
		go func() {
			defer close(s.runnerDone)
			s.ledgerRunner.Run(runnerCtx)
		}()
	}

	go func() {
		if err := s.echoServer.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to start echo server", slog.String("error", err.Error()))
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	slog.Info("server shutting down")

	if s.runnerCancel != nil {
		s.runnerCancel()
		// The store is closed below; an in-flight batch must finish first.
		select {
		case <-s.runnerDone:
		case <-ctx.Done():
			slog.Warn("ledger runner did not stop before shutdown deadline")
		}
	}
	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", slog.String("error", err.Error()))
	}
	if s.documents != nil {
		if err := s.documents.Close(); err != nil {
			slog.Error("failed to close document store", slog.String("error", err.Error()))
		}
	}
	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close database", slog.String("error", err.Error()))
	}

	slog.Info("server stopped properly")
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echoServer
}
