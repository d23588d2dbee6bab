// Package account registers users, signs them in and manages their agent.
package account

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/AlessandroMondin/Journey/plugin/elevenlabs"
	"github.com/AlessandroMondin/Journey/plugin/rag"
	"github.com/AlessandroMondin/Journey/server/auth"
	apierrors "github.com/AlessandroMondin/Journey/server/internal/errors"
	"github.com/AlessandroMondin/Journey/server/internal/observability"
	"github.com/AlessandroMondin/Journey/store"
)

const agentDescription = "Personal assistant"

// AgentProvider is the external voice agent platform.
type AgentProvider interface {
	CreateAgent(ctx context.Context, name, memory string) (string, error)
	DeleteAgent(ctx context.Context, agentID string) error
	GetSignedURL(ctx context.Context, agentID string) (string, error)
	LoadMemory(ctx context.Context, agentID, memory string) error
	AddVoice(ctx context.Context, name string, sample []byte) (string, error)
}

// Indexer adds text to the retrieval index of an owner.
type Indexer interface {
	CreateBaseMemory(ctx context.Context, ownerID string) (*rag.MemoryDocument, error)
	Index(ctx context.Context, ownerID, text string, metadata map[string]string) error
}

// Service implements the account operations.
type Service struct {
	store    *store.Store
	provider AgentProvider
	secret   []byte
	tokenTTL time.Duration
	// indexer is optional.
	indexer Indexer
	now     func() time.Time
}

func NewService(s *store.Store, provider AgentProvider, secret string, tokenTTL time.Duration, indexer Indexer) *Service {
	if tokenTTL <= 0 {
		tokenTTL = auth.DefaultAccessTokenDuration
	}
	return &Service{
		store:    s,
		provider: provider,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		indexer:  indexer,
		now:      time.Now,
	}
}

// RegisterRequest is the validated registration input.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}

// Validate trims and checks the request.
func (r *RegisterRequest) Validate() error {
	r.Username = strings.TrimSpace(r.Username)
	if r.Username == "" || r.Password == "" {
		return apierrors.InvalidRequest("username and password are required")
	}
	return nil
}

// Session is returned by Register and Login.
type Session struct {
	AccessToken string
	TokenType   string
	SignedURL   string
	HasVoiceSet bool
	AgentID     string
	UserID      string
}

// Principal is an authenticated caller.
type Principal struct {
	Username string
	User     *store.User
	Agent    *store.Agent
}

// Register provisions the external agent, then stores the credential, API key,
// user and agent in one transaction.
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*Session, error) {
	logger := observability.LoggerFromContext(ctx)
	if err := req.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.store.GetCredential(ctx, &store.FindCredential{Username: &req.Username})
	if err != nil {
		return nil, apierrors.Internal("failed to check username", err)
	}
	if existing != nil {
		logger.Warn("username already registered", slog.String("username", req.Username))
		return nil, apierrors.Conflict("Username already registered")
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, apierrors.Internal("failed to hash password", err)
	}

	agentName := fmt.Sprintf("%s's Agent", req.Username)
	externalAgentID, err := s.provider.CreateAgent(ctx, agentName, elevenlabs.DefaultMemory)
	if err != nil {
		return nil, apierrors.UpstreamFailure("Error creating voice agent", err)
	}

	var user *store.User
	err = s.store.RunInTx(ctx, func(tx *store.Store) error {
		credential, err := tx.CreateCredential(ctx, &store.Credential{
			Username:     req.Username,
			PasswordHash: passwordHash,
		})
		if err != nil {
			return err
		}
		apiKey, err := tx.CreateAPIKey(ctx, &store.APIKey{
			Key:      uuid.NewString(),
			AuthID:   credential.ID,
			IsActive: true,
		})
		if err != nil {
			return err
		}
		user, err = tx.CreateUser(ctx, &store.User{
			UserID:   "user_" + uuid.NewString(),
			APIKeyID: apiKey.ID,
			Name:     req.Name,
			Email:    req.Email,
		})
		if err != nil {
			return err
		}
		_, err = tx.CreateAgent(ctx, &store.Agent{
			AgentID:         "agent_" + uuid.NewString(),
			UserID:          user.UserID,
			Name:            agentName,
			Description:     agentDescription,
			ExternalAgentID: externalAgentID,
			Memory:          elevenlabs.DefaultMemory,
		})
		return err
	})
	if err != nil {
		// The agent was created outside the transaction.
		if delErr := s.provider.DeleteAgent(ctx, externalAgentID); delErr != nil {
			logger.Warn("failed to delete orphaned voice agent",
				slog.String("agent_id", externalAgentID),
				slog.String("error", delErr.Error()),
			)
		}
		if errors.Is(err, store.ErrUsernameTaken) {
			return nil, apierrors.Conflict("Username already registered")
		}
		return nil, apierrors.Internal("failed to register user", err)
	}
	logger.Info("user registered", slog.String("username", req.Username), slog.String("user_id", user.UserID))

	if s.indexer != nil {
		if _, err := s.indexer.CreateBaseMemory(ctx, user.UserID); err != nil {
			logger.Warn("failed to create retrieval memory", slog.String("error", err.Error()))
		}
	}

	signedURL, err := s.provider.GetSignedURL(ctx, externalAgentID)
	if err != nil {
		return nil, apierrors.UpstreamFailure("Error getting signed URL", err)
	}
	token, err := s.issueToken(req.Username)
	if err != nil {
		return nil, err
	}
	return &Session{
		AccessToken: token,
		TokenType:   auth.TokenType,
		SignedURL:   signedURL,
		AgentID:     externalAgentID,
		UserID:      user.UserID,
	}, nil
}

// Login verifies the password, pushes the stored memory into the agent and
// returns a fresh signed URL.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	credential, err := s.store.GetCredential(ctx, &store.FindCredential{Username: &username})
	if err != nil {
		return nil, apierrors.Internal("failed to load credential", err)
	}
	if credential == nil {
		return nil, apierrors.InvalidRequest("User does not exist")
	}
	if !auth.ComparePassword(credential.PasswordHash, password) {
		return nil, apierrors.AuthFailure("Incorrect username or password")
	}

	principal, err := s.principal(ctx, username)
	if err != nil {
		return nil, err
	}
	if principal == nil || principal.Agent == nil {
		return nil, apierrors.NotFound("Could not load user data")
	}

	agent := principal.Agent
	session := &Session{
		TokenType:   auth.TokenType,
		HasVoiceSet: agent.VoiceID != "",
		AgentID:     agent.ExternalAgentID,
		UserID:      principal.User.UserID,
	}
	if agent.ExternalAgentID != "" {
		if err := s.provider.LoadMemory(ctx, agent.ExternalAgentID, agent.Memory); err != nil {
			return nil, apierrors.UpstreamFailure("Error loading memory into agent", err)
		}
		if session.SignedURL, err = s.provider.GetSignedURL(ctx, agent.ExternalAgentID); err != nil {
			return nil, apierrors.UpstreamFailure("Error loading memory into agent", err)
		}
	}

	if session.AccessToken, err = s.issueToken(username); err != nil {
		return nil, err
	}
	return session, nil
}

// Authenticate resolves a bearer token to its user and agent.
func (s *Service) Authenticate(ctx context.Context, token string) (*Principal, error) {
	username, err := auth.ParseAccessToken(token, s.secret)
	if err != nil {
		return nil, apierrors.AuthFailure("Could not validate credentials")
	}
	principal, err := s.principal(ctx, username)
	if err != nil {
		return nil, err
	}
	if principal == nil {
		return nil, apierrors.AuthFailure("Could not validate credentials")
	}
	if principal.Agent == nil {
		return nil, apierrors.NotFound("No agent found for this user")
	}
	return principal, nil
}

func (s *Service) principal(ctx context.Context, username string) (*Principal, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, apierrors.Internal("failed to load user", err)
	}
	if user == nil {
		return nil, nil
	}
	agent, err := s.store.GetAgent(ctx, &store.FindAgent{UserID: &user.UserID})
	if err != nil {
		return nil, apierrors.Internal("failed to load agent", err)
	}
	return &Principal{Username: username, User: user, Agent: agent}, nil
}

func (s *Service) issueToken(username string) (string, error) {
	token, err := auth.GenerateAccessToken(username, s.now().Add(s.tokenTTL), s.secret)
	if err != nil {
		return "", apierrors.Internal("failed to issue token", err)
	}
	return token, nil
}

// SetVoice clones a voice from sample and stores its id on the agent.
func (s *Service) SetVoice(ctx context.Context, p *Principal, sample []byte) (string, error) {
	if len(sample) == 0 {
		return "", apierrors.InvalidRequest("audio_file is empty")
	}
	voiceID, err := s.provider.AddVoice(ctx, fmt.Sprintf("%s's Voice", p.Agent.Name), sample)
	if err != nil {
		return "", apierrors.UpstreamFailure("Error setting agent voice", err)
	}
	agent, err := s.store.UpdateAgent(ctx, &store.UpdateAgent{AgentID: p.Agent.AgentID, VoiceID: &voiceID})
	if err != nil {
		return "", apierrors.Internal("failed to store voice", err)
	}
	if agent == nil {
		return "", apierrors.NotFound("No agent found for this user")
	}
	p.Agent = agent
	return voiceID, nil
}

// SignedURL returns a conversation URL; provider errors leave it empty.
func (s *Service) SignedURL(ctx context.Context, p *Principal) (signedURL string, hasVoiceSet bool) {
	hasVoiceSet = p.Agent.VoiceID != ""
	if p.Agent.ExternalAgentID == "" {
		return "", hasVoiceSet
	}
	signedURL, err := s.provider.GetSignedURL(ctx, p.Agent.ExternalAgentID)
	if err != nil {
		observability.LoggerFromContext(ctx).Error("failed to get signed url", slog.String("error", err.Error()))
		return "", hasVoiceSet
	}
	return signedURL, hasVoiceSet
}

// CreateDocument attaches a knowledge document to the caller's agent.
func (s *Service) CreateDocument(ctx context.Context, p *Principal, content string, metadata map[string]string) (*store.Document, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apierrors.InvalidRequest("content is required")
	}
	if metadata == nil {
		metadata = map[string]string{}
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return nil, apierrors.InvalidRequest("invalid metadata")
	}
	doc, err := s.store.CreateDocument(ctx, &store.Document{
		DocumentID: "doc_" + uuid.NewString(),
		AgentID:    p.Agent.AgentID,
		Content:    content,
		Metadata:   string(raw),
	})
	if err != nil {
		return nil, apierrors.Internal("failed to create document", err)
	}

	if s.indexer != nil {
		indexMeta := map[string]string{"type": "document", "document_id": doc.DocumentID}
		if err := s.indexer.Index(ctx, p.User.UserID, content, indexMeta); err != nil {
			observability.LoggerFromContext(ctx).Warn("failed to index document",
				slog.String("document_id", doc.DocumentID),
				slog.String("error", err.Error()),
			)
		}
	}
	return doc, nil
}

// ListDocuments returns the documents of the caller's agent.
func (s *Service) ListDocuments(ctx context.Context, p *Principal) ([]*store.Document, error) {
	docs, err := s.store.ListDocuments(ctx, &store.FindDocument{AgentID: &p.Agent.AgentID})
	if err != nil {
		return nil, apierrors.Internal("failed to list documents", err)
	}
	return docs, nil
}
