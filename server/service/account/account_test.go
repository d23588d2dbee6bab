package account

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlessandroMondin/Journey/plugin/ai"
	"github.com/AlessandroMondin/Journey/plugin/ai/vector"
	"github.com/AlessandroMondin/Journey/plugin/elevenlabs"
	"github.com/AlessandroMondin/Journey/plugin/rag"
	"github.com/AlessandroMondin/Journey/server/auth"
	apierrors "github.com/AlessandroMondin/Journey/server/internal/errors"
	"github.com/AlessandroMondin/Journey/store"
	storetest "github.com/AlessandroMondin/Journey/store/test"
)

type fakeProvider struct {
	mu        sync.Mutex
	created   []string
	loaded    map[string]string
	voices    int
	deleted   []string
	createErr error
	loadErr   error
	urlErr    error
	// beforeCreate runs before the agent is created.
	beforeCreate func()
}

func (p *fakeProvider) CreateAgent(_ context.Context, name, _ string) (string, error) {
	if p.beforeCreate != nil {
		p.beforeCreate()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.createErr != nil {
		return "", p.createErr
	}
	p.created = append(p.created, name)
	return "el_" + name, nil
}

func (p *fakeProvider) DeleteAgent(_ context.Context, agentID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, agentID)
	return nil
}

func (p *fakeProvider) GetSignedURL(_ context.Context, agentID string) (string, error) {
	if p.urlErr != nil {
		return "", p.urlErr
	}
	return "wss://signed/" + agentID, nil
}

func (p *fakeProvider) LoadMemory(_ context.Context, agentID, memory string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loadErr != nil {
		return p.loadErr
	}
	if p.loaded == nil {
		p.loaded = map[string]string{}
	}
	p.loaded[agentID] = memory
	return nil
}

func (p *fakeProvider) AddVoice(_ context.Context, _ string, _ []byte) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.voices++
	return "voice_1", nil
}

func newTestService(t *testing.T) (*Service, *fakeProvider, *store.Store, *rag.Service) {
	t.Helper()
	ts := storetest.NewTestingStore(context.Background(), t)
	provider := &fakeProvider{}
	vectors, err := vector.NewChromemService("")
	require.NoError(t, err)
	indexer := rag.NewService(rag.NewInMemoryDocumentStore(), vectors, ai.NewHashEmbeddingService(32), nil)
	return NewService(ts, provider, "test-secret", 0, indexer), provider, ts, indexer
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	svc, provider, ts, indexer := newTestService(t)

	session, err := svc.Register(ctx, &RegisterRequest{Username: " alice ", Password: "pw", Name: "Alice", Email: "a@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "el_alice's Agent", session.AgentID)
	assert.Equal(t, "wss://signed/el_alice's Agent", session.SignedURL)
	assert.False(t, session.HasVoiceSet)

	username, err := auth.ParseAccessToken(session.AccessToken, []byte("test-secret"))
	require.NoError(t, err)
	assert.Equal(t, "alice", username)

	user, err := ts.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "Alice", user.Name)
	agent, err := ts.GetAgent(ctx, &store.FindAgent{UserID: &user.UserID})
	require.NoError(t, err)
	assert.Equal(t, elevenlabs.DefaultMemory, agent.Memory)
	assert.Equal(t, "Personal assistant", agent.Description)

	doc, err := indexer.GetMemory(ctx, user.UserID)
	require.NoError(t, err)
	assert.Equal(t, rag.BaseMemoryTemplate, doc.Text)

	_, err = svc.Register(ctx, &RegisterRequest{Username: "alice", Password: "pw"})
	assert.True(t, apierrors.IsCode(err, apierrors.ErrCodeConflict))
	assert.Len(t, provider.created, 1)

	_, err = svc.Register(ctx, &RegisterRequest{Username: "", Password: "pw"})
	assert.True(t, apierrors.IsCode(err, apierrors.ErrCodeInvalidRequest))
}

func TestRegisterProviderFailureWritesNothing(t *testing.T) {
	ctx := context.Background()
	svc, provider, ts, _ := newTestService(t)
	provider.createErr = errors.New("quota exceeded")

	_, err := svc.Register(ctx, &RegisterRequest{Username: "bob", Password: "pw"})
	assert.True(t, apierrors.IsCode(err, apierrors.ErrCodeUpstreamFailure))

	credential, err := ts.GetCredential(ctx, &store.FindCredential{Username: stringPtr("bob")})
	require.NoError(t, err)
	assert.Nil(t, credential)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc, provider, _, _ := newTestService(t)
	_, err := svc.Register(ctx, &RegisterRequest{Username: "carol", Password: "pw"})
	require.NoError(t, err)

	session, err := svc.Login(ctx, "carol", "pw")
	require.NoError(t, err)
	assert.Equal(t, auth.TokenType, session.TokenType)
	assert.NotEmpty(t, session.AccessToken)
	assert.Equal(t, "wss://signed/"+session.AgentID, session.SignedURL)
	assert.Equal(t, elevenlabs.DefaultMemory, provider.loaded[session.AgentID])

	_, err = svc.Login(ctx, "carol", "wrong")
	assert.True(t, apierrors.IsCode(err, apierrors.ErrCodeAuthFailure))

	_, err = svc.Login(ctx, "nobody", "pw")
	apiErr, ok := apierrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apierrors.ErrCodeInvalidRequest, apiErr.Code)
	assert.Equal(t, "User does not exist", apiErr.Message)

	provider.loadErr = errors.New("agent locked")
	_, err = svc.Login(ctx, "carol", "pw")
	apiErr, ok = apierrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apierrors.ErrCodeUpstreamFailure, apiErr.Code)
	assert.Equal(t, 500, apiErr.HTTPStatus())
}

func TestAuthenticateAndAgentOperations(t *testing.T) {
	ctx := context.Background()
	svc, provider, _, _ := newTestService(t)
	session, err := svc.Register(ctx, &RegisterRequest{Username: "dave", Password: "pw"})
	require.NoError(t, err)

	principal, err := svc.Authenticate(ctx, session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "dave", principal.Username)
	assert.Equal(t, session.AgentID, principal.Agent.ExternalAgentID)

	_, err = svc.Authenticate(ctx, "garbage")
	assert.True(t, apierrors.IsCode(err, apierrors.ErrCodeAuthFailure))

	expired, err := auth.GenerateAccessToken("dave", time.Now().Add(-time.Minute), []byte("test-secret"))
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, expired)
	assert.True(t, apierrors.IsCode(err, apierrors.ErrCodeAuthFailure))

	_, err = svc.SetVoice(ctx, principal, nil)
	assert.True(t, apierrors.IsCode(err, apierrors.ErrCodeInvalidRequest))
	voiceID, err := svc.SetVoice(ctx, principal, []byte("webm"))
	require.NoError(t, err)
	assert.Equal(t, "voice_1", voiceID)
	assert.Equal(t, 1, provider.voices)

	signedURL, hasVoice := svc.SignedURL(ctx, principal)
	assert.True(t, hasVoice)
	assert.NotEmpty(t, signedURL)

	provider.urlErr = errors.New("down")
	signedURL, hasVoice = svc.SignedURL(ctx, principal)
	assert.True(t, hasVoice)
	assert.Empty(t, signedURL)

	doc, err := svc.CreateDocument(ctx, principal, "# Notes\nLikes tea.", map[string]string{"source": "upload"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"source":"upload"}`, doc.Metadata)
	_, err = svc.CreateDocument(ctx, principal, "  ", nil)
	assert.True(t, apierrors.IsCode(err, apierrors.ErrCodeInvalidRequest))

	docs, err := svc.ListDocuments(ctx, principal)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, doc.DocumentID, docs[0].DocumentID)
}

func stringPtr(s string) *string {
	return &s
}

func TestRegisterUsernameTakenDuringProvisioning(t *testing.T) {
	ctx := context.Background()
	svc, provider, ts, _ := newTestService(t)

	// Another registration for the same name commits while the agent is being created.
	provider.beforeCreate = func() {
		_, err := ts.CreateCredential(ctx, &store.Credential{Username: "alice", PasswordHash: "x"})
		require.NoError(t, err)
	}

	_, err := svc.Register(ctx, &RegisterRequest{Username: "alice", Password: "pw"})
	require.Error(t, err)
	assert.True(t, apierrors.IsCode(err, apierrors.ErrCodeConflict))
	assert.Equal(t, "Username already registered", err.(*apierrors.APIError).Message)
	assert.Equal(t, []string{"el_alice's Agent"}, provider.deleted)

	users, err := ts.ListUsers(ctx, &store.FindUser{})
	require.NoError(t, err)
	assert.Empty(t, users)
}

