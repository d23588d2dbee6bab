// Package elevenlabs is a client for the ElevenLabs conversational agent API.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/AlessandroMondin/Journey/internal/profile"
)

const (
	headerAPIKey = "xi-api-key"

	voiceSampleFilename = "voice_sample.webm"
	voiceSampleMimeType = "audio/webm"
)

// Config holds the ElevenLabs client configuration.
type Config struct {
	APIKey       string
	BaseURL      string
	AgentModel   string
	SystemPrompt string
	Timeout      time.Duration
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:      "https://api.elevenlabs.io",
		AgentModel:   "gpt-4o-mini",
		SystemPrompt: DefaultSystemPrompt,
		Timeout:      30 * time.Second,
	}
}

// NewConfigFromProfile creates client config from the instance profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	config := DefaultConfig()
	config.APIKey = p.ElevenLabsAPIKey
	if p.ElevenLabsBaseURL != "" {
		config.BaseURL = p.ElevenLabsBaseURL
	}
	if p.ElevenLabsAgentModel != "" {
		config.AgentModel = p.ElevenLabsAgentModel
	}
	return config
}

// Client talks to the ElevenLabs REST API.
type Client struct {
	config     *Config
	httpClient *http.Client
}

// NewClient creates a new ElevenLabs client.
func NewClient(config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.SystemPrompt == "" {
		config.SystemPrompt = DefaultSystemPrompt
	}
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// SystemPrompt returns the prompt prepended to every pushed memory.
func (c *Client) SystemPrompt() string {
	return c.config.SystemPrompt
}

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("elevenlabs: status %d: %s", e.StatusCode, e.Body)
}

type promptConfig struct {
	Model  string `json:"model,omitempty"`
	Prompt string `json:"prompt"`
}

type agentConfig struct {
	Prompt           promptConfig      `json:"prompt"`
	DynamicVariables map[string]string `json:"dynamic_variables,omitempty"`
}

type conversationConfig struct {
	Agent agentConfig `json:"agent"`
}

type createAgentRequest struct {
	Name               string             `json:"name,omitempty"`
	ConversationConfig conversationConfig `json:"conversation_config"`
	PlatformSettings   struct {
		Auth struct {
			EnableAuth bool `json:"enable_auth"`
		} `json:"auth"`
	} `json:"platform_settings"`
}

type createAgentResponse struct {
	AgentID string `json:"agent_id"`
}

// CreateAgent creates a conversational agent seeded with memory and returns its id.
func (c *Client) CreateAgent(ctx context.Context, name, memory string) (string, error) {
	payload := createAgentRequest{
		Name: name,
		ConversationConfig: conversationConfig{
			Agent: agentConfig{
				Prompt: promptConfig{
					Model:  c.config.AgentModel,
					Prompt: Instruction(c.config.SystemPrompt, memory),
				},
				DynamicVariables: map[string]string{
					"agent_id":  "str",
					"memory_id": "str",
				},
			},
		},
	}

	var resp createAgentResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/convai/agents/create", payload, &resp); err != nil {
		return "", errors.Wrap(err, "failed to create agent")
	}
	if resp.AgentID == "" {
		return "", errors.New("create agent response has no agent_id")
	}
	slog.Info("elevenlabs agent created", slog.String("agent_id", resp.AgentID))
	return resp.AgentID, nil
}

// GetSignedURL returns a signed websocket URL for a conversation with the agent.
func (c *Client) GetSignedURL(ctx context.Context, agentID string) (string, error) {
	path := "/v1/convai/conversation/get_signed_url?agent_id=" + url.QueryEscape(agentID)
	var resp struct {
		SignedURL string `json:"signed_url"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return "", errors.Wrapf(err, "failed to get signed url for agent %s", agentID)
	}
	return resp.SignedURL, nil
}

// LoadMemory replaces the agent prompt with the system prompt followed by memory.
func (c *Client) LoadMemory(ctx context.Context, agentID, memory string) error {
	payload := map[string]any{
		"conversation_config": map[string]any{
			"agent": map[string]any{
				"prompt": map[string]any{
					"prompt": Instruction(c.config.SystemPrompt, memory),
				},
			},
		},
	}
	if err := c.doJSON(ctx, http.MethodPatch, "/v1/convai/agents/"+url.PathEscape(agentID), payload, nil); err != nil {
		return errors.Wrapf(err, "failed to load memory into agent %s", agentID)
	}
	return nil
}

// DeleteAgent removes a conversational agent.
func (c *Client) DeleteAgent(ctx context.Context, agentID string) error {
	if err := c.doJSON(ctx, http.MethodDelete, "/v1/convai/agents/"+url.PathEscape(agentID), nil, nil); err != nil {
		return errors.Wrapf(err, "failed to delete agent %s", agentID)
	}
	return nil
}

// AddVoice clones a voice from an audio sample and returns the voice id.
func (c *Client) AddVoice(ctx context.Context, name string, sample []byte) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="%s"`, voiceSampleFilename))
	header.Set("Content-Type", voiceSampleMimeType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return "", errors.Wrap(err, "failed to create multipart part")
	}
	if _, err := part.Write(sample); err != nil {
		return "", errors.Wrap(err, "failed to write voice sample")
	}
	if err := writer.WriteField("name", name); err != nil {
		return "", errors.Wrap(err, "failed to write name field")
	}
	if err := writer.Close(); err != nil {
		return "", errors.Wrap(err, "failed to close multipart writer")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/v1/voices/add"), body)
	if err != nil {
		return "", errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var resp struct {
		VoiceID string `json:"voice_id"`
	}
	if err := c.do(req, &resp); err != nil {
		return "", errors.Wrap(err, "failed to add voice")
	}
	if resp.VoiceID == "" {
		return "", errors.New("add voice response has no voice_id")
	}
	return resp.VoiceID, nil
}

func (c *Client) endpoint(path string) string {
	return strings.TrimSuffix(c.config.BaseURL, "/") + path
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return errors.Wrap(err, "failed to marshal request")
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	req.Header.Set(headerAPIKey, c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Error("elevenlabs request failed",
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(data)),
		)
		return &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrap(err, "failed to decode response")
	}
	return nil
}
