package elevenlabs

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// EventPostCallTranscription is the webhook event sent when a conversation ends.
const EventPostCallTranscription = "post_call_transcription"

// Turn is one message of a conversation transcript.
type Turn struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

// WebhookEvent is the body of an ElevenLabs post-call webhook.
type WebhookEvent struct {
	Type string `json:"type"`
	Data struct {
		AgentID        string `json:"agent_id"`
		ConversationID string `json:"conversation_id"`
		Transcript     []Turn `json:"transcript"`
	} `json:"data"`
}

// ParseWebhookEvent decodes a webhook body.
func ParseWebhookEvent(body []byte) (*WebhookEvent, error) {
	event := &WebhookEvent{}
	if err := json.Unmarshal(body, event); err != nil {
		return nil, errors.Wrap(err, "invalid webhook payload")
	}
	return event, nil
}

// FormatTranscript renders turns as "role: message" lines.
func FormatTranscript(turns []Turn) string {
	var sb strings.Builder
	for _, turn := range turns {
		sb.WriteString(turn.Role)
		sb.WriteString(": ")
		sb.WriteString(turn.Message)
		sb.WriteString("\n")
	}
	return sb.String()
}
