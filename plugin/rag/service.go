package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"

	"github.com/AlessandroMondin/Journey/plugin/ai"
	"github.com/AlessandroMondin/Journey/plugin/ai/vector"
)

// DefaultQueryLimit is the number of matches returned by QuerySimilar.
const DefaultQueryLimit = 5

// BaseMemoryTemplate seeds new memory documents.
const BaseMemoryTemplate = `You are the alter ego of **

Who is the person (long term memory)

Who is the person (short term memory)

What was the topic of your latest conversation
`

const documentSystemPrompt = `You are an assistant that updates a user's memory document based on the latest conversation.
The memory document has this structure:

You are the alter ego of **

Who is the person (long term memory)

Who is the person (short term memory)

What was the topic of your latest conversation

Review the current memory and the latest conversation, and update the memory document accordingly.
Keep important personal information and preferences in long-term memory.
Update short-term memory and latest conversation topic sections based on the new conversation.
Return ONLY the updated memory document with the same structure.`

// ErrDocumentNotFound is returned when an owner has no memory document.
var ErrDocumentNotFound = errors.New("memory document not found")

// Match is one similarity search hit.
type Match struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Score     float32   `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// Service maintains memory documents and their conversation index.
type Service struct {
	documents DocumentStore
	vectors   vector.VectorService
	embedder  ai.EmbeddingService
	// llm may be nil, in which case documents are updated without a model.
	llm ai.LLMService
	now func() time.Time
}

func NewService(documents DocumentStore, vectors vector.VectorService, embedder ai.EmbeddingService, llm ai.LLMService) *Service {
	return &Service{
		documents: documents,
		vectors:   vectors,
		embedder:  embedder,
		llm:       llm,
		now:       time.Now,
	}
}

// CreateBaseMemory creates the initial document of owner.
func (s *Service) CreateBaseMemory(ctx context.Context, ownerID string) (*MemoryDocument, error) {
	doc, err := s.documents.Create(ctx, ownerID, BaseMemoryTemplate, s.now())
	if err != nil {
		return nil, err
	}
	slog.Info("created memory document", slog.String("owner", ownerID))
	return doc, nil
}

// UpdateMemory indexes conversation and folds it into the owner's document.
func (s *Service) UpdateMemory(ctx context.Context, ownerID, conversation string) error {
	now := s.now()
	if err := s.Index(ctx, ownerID, conversation, map[string]string{
		"created_at": now.UTC().Format(time.RFC3339),
		"type":       "conversation",
	}); err != nil {
		return err
	}

	doc, err := s.documents.Get(ctx, ownerID)
	if err != nil {
		return err
	}
	if doc == nil {
		return ErrDocumentNotFound
	}

	updated := s.rewriteDocument(ctx, doc.Text, conversation)
	if err := s.documents.Update(ctx, ownerID, updated, now); err != nil {
		return err
	}
	slog.Info("updated memory document", slog.String("owner", ownerID))
	return nil
}

// Index embeds text and stores it under owner.
func (s *Service) Index(ctx context.Context, ownerID, text string, metadata map[string]string) error {
	embedding, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return errors.Wrap(err, "failed to embed text")
	}
	point := &vector.Point{
		ID:       shortuuid.New(),
		OwnerID:  ownerID,
		Content:  text,
		Vector:   embedding,
		Metadata: map[string]string{"owner_id": ownerID},
	}
	for k, v := range metadata {
		point.Metadata[k] = v
	}
	if err := s.vectors.StoreEmbedding(ctx, point); err != nil {
		return errors.Wrap(err, "failed to store embedding")
	}
	return nil
}

// rewriteDocument keeps the current text when the model fails.
func (s *Service) rewriteDocument(ctx context.Context, current, conversation string) string {
	if s.llm == nil {
		return offlineRewrite(current, conversation)
	}
	userPrompt := fmt.Sprintf("CURRENT MEMORY DOCUMENT:\n%s\n\nLATEST CONVERSATION:\n%s\n\nPlease update the memory document based on this conversation.", current, conversation)
	reply, err := s.llm.Chat(ctx, ai.FormatMessages(documentSystemPrompt, userPrompt, nil))
	if err != nil {
		slog.Warn("memory document rewrite failed, keeping current text", slog.String("error", err.Error()))
		return current
	}
	if strings.TrimSpace(reply) == "" {
		return current
	}
	return reply
}

// offlineRewrite records the start of the latest conversation as its topic.
func offlineRewrite(current, conversation string) string {
	topic := strings.TrimSpace(conversation)
	if runes := []rune(topic); len(runes) > 50 {
		topic = string(runes[:50]) + "..."
	}
	const header = "What was the topic of your latest conversation"
	if idx := strings.Index(current, header); idx >= 0 {
		return current[:idx+len(header)] + "\n" + topic + "\n"
	}
	return strings.TrimRight(current, "\n") + "\n\n" + header + "\n" + topic + "\n"
}

// GetMemory returns the owner's document.
func (s *Service) GetMemory(ctx context.Context, ownerID string) (*MemoryDocument, error) {
	doc, err := s.documents.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

// QuerySimilar returns the indexed texts of owner closest to query.
func (s *Service) QuerySimilar(ctx context.Context, ownerID, query string, limit int) ([]Match, error) {
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to embed query")
	}
	results, err := s.vectors.SearchSimilar(ctx, ownerID, embedding, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search vectors")
	}

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		m := Match{ID: r.DocID, Text: r.Content, Score: r.Score}
		if ts, ok := r.Metadata["created_at"]; ok {
			m.CreatedAt, _ = time.Parse(time.RFC3339, ts)
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// DeleteOwner removes every indexed text of owner.
func (s *Service) DeleteOwner(ctx context.Context, ownerID string) (int, error) {
	deleted, err := s.vectors.DeleteOwner(ctx, ownerID)
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete vectors")
	}
	slog.Info("deleted owner vectors", slog.String("owner", ownerID), slog.Int("count", deleted))
	return deleted, nil
}
