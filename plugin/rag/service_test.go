package rag

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlessandroMondin/Journey/plugin/ai"
	"github.com/AlessandroMondin/Journey/plugin/ai/vector"
)

func newTestService(t *testing.T, llm ai.LLMService) *Service {
	t.Helper()
	vectors, err := vector.NewChromemService("")
	require.NoError(t, err)
	svc := NewService(NewInMemoryDocumentStore(), vectors, ai.NewHashEmbeddingService(64), llm)
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC) }
	return svc
}

func TestServiceLifecycle(t *testing.T) {
	ctx := context.Background()
	llm := ai.NewMockLLMService("rewritten memory")
	svc := newTestService(t, llm)

	err := svc.UpdateMemory(ctx, "alice", "user: hello")
	assert.ErrorIs(t, err, ErrDocumentNotFound)

	doc, err := svc.CreateBaseMemory(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, BaseMemoryTemplate, doc.Text)

	_, err = svc.CreateBaseMemory(ctx, "alice")
	assert.ErrorIs(t, err, ErrDocumentExists)

	require.NoError(t, svc.UpdateMemory(ctx, "alice", "user: I adopted a cat named Miso"))
	doc, err = svc.GetMemory(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "rewritten memory", doc.Text)

	calls := llm.Calls()
	require.NotEmpty(t, calls)
	last := calls[len(calls)-1]
	assert.Contains(t, last[1].Content, "LATEST CONVERSATION:\nuser: I adopted a cat named Miso")

	matches, err := svc.QuerySimilar(ctx, "alice", "user: I adopted a cat named Miso", 0)
	require.NoError(t, err)
	// The failed update above indexed its conversation too.
	require.Len(t, matches, 2)
	assert.Equal(t, "user: I adopted a cat named Miso", matches[0].Text)
	assert.Equal(t, 2025, matches[0].CreatedAt.Year())

	other, err := svc.QuerySimilar(ctx, "bob", "cat", 5)
	require.NoError(t, err)
	assert.Empty(t, other)

	deleted, err := svc.DeleteOwner(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	_, err = svc.GetMemory(ctx, "bob")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestRewriteFallbacks(t *testing.T) {
	ctx := context.Background()

	t.Run("model failure keeps text", func(t *testing.T) {
		llm := &ai.MockLLMService{Respond: func([]ai.Message) (string, error) {
			return "", errors.New("rate limited")
		}}
		svc := newTestService(t, llm)
		_, err := svc.CreateBaseMemory(ctx, "alice")
		require.NoError(t, err)
		require.NoError(t, svc.UpdateMemory(ctx, "alice", "user: hi"))
		doc, err := svc.GetMemory(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, BaseMemoryTemplate, doc.Text)
	})

	t.Run("no model records topic", func(t *testing.T) {
		svc := newTestService(t, nil)
		_, err := svc.CreateBaseMemory(ctx, "alice")
		require.NoError(t, err)
		conversation := "user: " + strings.Repeat("x", 80)
		require.NoError(t, svc.UpdateMemory(ctx, "alice", conversation))
		doc, err := svc.GetMemory(ctx, "alice")
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(doc.Text, "What was the topic of your latest conversation\n"+conversation[:50]+"...\n"))
		assert.True(t, strings.HasPrefix(doc.Text, "You are the alter ego of **"))
	})
}
