package v1

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/AlessandroMondin/Journey/plugin/elevenlabs"
	apierrors "github.com/AlessandroMondin/Journey/server/internal/errors"
	"github.com/AlessandroMondin/Journey/server/internal/observability"
	"github.com/AlessandroMondin/Journey/server/service/memory"
)

const maxWebhookBody = 5 << 20

// ElevenLabsWebhook runs the memory pipeline for a finished conversation.
// Processing is synchronous; only the push to the voice agent outlives the request.
func (s *APIV1Service) ElevenLabsWebhook(c echo.Context) error {
	ctx := c.Request().Context()
	logger := observability.LoggerFromContext(ctx)

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return apierrors.InvalidRequest("failed to read request body")
	}
	if err := s.Verifier.Verify(body, c.Request().Header.Get(elevenlabs.SignatureHeader)); err != nil {
		logger.Warn("rejected webhook", slog.String("error", err.Error()))
		return apierrors.AuthFailure("Invalid webhook signature")
	}

	event, err := elevenlabs.ParseWebhookEvent(body)
	if err != nil {
		return apierrors.InvalidRequest("invalid webhook payload")
	}
	if event.Type != elevenlabs.EventPostCallTranscription {
		logger.Info("ignored webhook event", slog.String("type", event.Type))
		return c.String(http.StatusOK, "Webhook event ignored.")
	}
	if event.Data.AgentID == "" {
		return apierrors.InvalidRequest("agent_id is required")
	}

	logger.Info("received conversation end",
		slog.String("agent_id", event.Data.AgentID),
		slog.String("conversation_id", event.Data.ConversationID),
		slog.Int("turns", len(event.Data.Transcript)),
	)
	outcome, err := s.Memory.ProcessConversationEnd(ctx, &memory.ConversationEnd{
		ExternalAgentID: event.Data.AgentID,
		Transcript:      event.Data.Transcript,
	})
	if err != nil {
		return err
	}
	logger.Info("memory updated",
		slog.String("memory_id", outcome.Entry.MemoryID),
		slog.String("mood", outcome.Mood.Name()),
	)
	return c.String(http.StatusOK, "Webhook event received and processed.")
}
