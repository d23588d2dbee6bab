package memory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlessandroMondin/Journey/plugin/ai"
	apierrors "github.com/AlessandroMondin/Journey/server/internal/errors"
	"github.com/AlessandroMondin/Journey/store"
	storetest "github.com/AlessandroMondin/Journey/store/test"
)

const mergedMemory = `<long_term_memory>
Name is Alice. Works as a nurse.
</long_term_memory>
<short_term_memory>
Tired after night shifts.
</short_term_memory>
<last_conversation>
Talked about a long week.
</last_conversation>`

type fakeGateway struct {
	mu    sync.Mutex
	err   error
	calls map[string]string
}

func (g *fakeGateway) LoadMemory(_ context.Context, externalAgentID, memory string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.calls == nil {
		g.calls = map[string]string{}
	}
	g.calls[externalAgentID] = memory
	return g.err
}

// scriptedLLM routes each call by its system prompt.
func scriptedLLM(mood, merged, summary string) *ai.MockLLMService {
	return &ai.MockLLMService{Respond: func(messages []ai.Message) (string, error) {
		system := messages[0].Content
		switch {
		case strings.Contains(system, "mood of the user"):
			return mood, nil
		case strings.Contains(system, "updates a user's memory document"):
			return merged, nil
		case strings.Contains(system, "Summarize"):
			return summary, nil
		case strings.Contains(system, "retrieves relevant information"):
			return "ANSWER:" + messages[1].Content, nil
		}
		return "", errors.New("unexpected prompt")
	}}
}

type fixture struct {
	store   *store.Store
	llm     *ai.MockLLMService
	gateway *fakeGateway
	orch    *Orchestrator
	user    *store.User
	agent   *store.Agent
}

func newFixture(t *testing.T, llm *ai.MockLLMService) *fixture {
	t.Helper()
	ctx := context.Background()
	ts := storetest.NewTestingStore(ctx, t)
	user, agent, err := storetest.CreateTestingUser(ctx, ts, "alice")
	require.NoError(t, err)
	gateway := &fakeGateway{}
	return &fixture{
		store:   ts,
		llm:     llm,
		gateway: gateway,
		orch:    NewOrchestrator(ts, llm, llm, gateway, WithPushTimeout(time.Second)),
		user:    user,
		agent:   agent,
	}
}

func transcript() []Turn {
	return []Turn{
		{Role: "agent", Message: "How was your week?"},
		{Role: "user", Message: "Long. Three night shifts in a row."},
	}
}

func (f *fixture) ledger(t *testing.T) []*store.MemoryEntry {
	t.Helper()
	entries, err := f.store.ListMemoryEntries(context.Background(), &store.FindMemoryEntry{UserID: &f.user.UserID})
	require.NoError(t, err)
	return entries
}

func (f *fixture) agentMemory(t *testing.T) string {
	t.Helper()
	agent, err := f.store.GetAgent(context.Background(), &store.FindAgent{AgentID: &f.agent.AgentID})
	require.NoError(t, err)
	return agent.Memory
}

func TestProcessConversationEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, scriptedLLM(" U+1F62B\n", mergedMemory, "A long week of night shifts."))

	outcome, err := f.orch.ProcessConversationEnd(ctx, &ConversationEnd{
		ExternalAgentID: f.agent.ExternalAgentID,
		Transcript:      transcript(),
	})
	require.NoError(t, err)
	assert.Equal(t, mergedMemory, outcome.Memory)
	assert.Equal(t, MoodTired, outcome.Mood)
	assert.Equal(t, "A long week of night shifts.", outcome.Summary)

	require.NoError(t, <-outcome.Synced)
	assert.Equal(t, mergedMemory, f.gateway.calls[f.agent.ExternalAgentID])

	assert.Equal(t, mergedMemory, f.agentMemory(t))
	entries := f.ledger(t)
	require.Len(t, entries, 1)
	assert.Equal(t, outcome.Entry.MemoryID, entries[0].MemoryID)
	assert.True(t, strings.HasPrefix(entries[0].MemoryID, "memory_"))
	assert.Equal(t, "A long week of night shifts.", entries[0].Text)
	assert.Equal(t, string(MoodTired), entries[0].Mood)
	assert.Equal(t, f.agent.AgentID, entries[0].AgentID)

	// mood, merge and summary
	calls := f.llm.Calls()
	require.Len(t, calls, 3)
	for _, call := range calls {
		assert.Contains(t, call[1].Content, "user: Long. Three night shifts in a row.\n")
	}

	snapshot := f.orch.Metrics().Snapshot()
	for _, stage := range []string{StageMood, StageMerge, StageSummary, StagePersist, StagePush} {
		require.NotNil(t, snapshot.Get(stage), stage)
		assert.Equal(t, int64(1), snapshot.Get(stage).ExecutionCount, stage)
	}
}

func TestProcessConversationEndValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, scriptedLLM(string(MoodJoy), mergedMemory, "summary"))

	_, err := f.orch.ProcessConversationEnd(ctx, &ConversationEnd{ExternalAgentID: f.agent.ExternalAgentID})
	assert.True(t, apierrors.IsCode(err, apierrors.ErrCodeInvalidRequest))

	_, err = f.orch.ProcessConversationEnd(ctx, &ConversationEnd{Transcript: transcript()})
	assert.True(t, apierrors.IsCode(err, apierrors.ErrCodeInvalidRequest))

	_, err = f.orch.ProcessConversationEnd(ctx, &ConversationEnd{ExternalAgentID: "el_unknown", Transcript: transcript()})
	assert.True(t, apierrors.IsCode(err, apierrors.ErrCodeNotFound))

	_, err = f.orch.ProcessConversationEnd(ctx, &ConversationEnd{AgentID: "agent_missing", UserID: f.user.UserID, Transcript: transcript()})
	assert.True(t, apierrors.IsCode(err, apierrors.ErrCodeNotFound))

	blank := []Turn{{}, {Role: "user", Message: "  \n"}}
	_, err = f.orch.ProcessConversationEnd(ctx, &ConversationEnd{ExternalAgentID: f.agent.ExternalAgentID, Transcript: blank})
	assert.True(t, apierrors.IsCode(err, apierrors.ErrCodeInvalidRequest))

	assert.Empty(t, f.llm.Calls())
	assert.Empty(t, f.ledger(t))
}

func TestProcessConversationEndUpstreamFailure(t *testing.T) {
	ctx := context.Background()
	llm := scriptedLLM(string(MoodJoy), mergedMemory, "summary")
	respond := llm.Respond
	llm.Respond = func(messages []ai.Message) (string, error) {
		if strings.Contains(messages[0].Content, "updates a user's memory document") {
			return "", errors.New("503 from provider")
		}
		return respond(messages)
	}
	f := newFixture(t, llm)

	_, err := f.orch.ProcessConversationEnd(ctx, &ConversationEnd{ExternalAgentID: f.agent.ExternalAgentID, Transcript: transcript()})
	require.Error(t, err)
	assert.True(t, apierrors.IsCode(err, apierrors.ErrCodeUpstreamFailure))
	assert.Equal(t, "initial memory", f.agentMemory(t))
	assert.Empty(t, f.ledger(t))
	assert.Empty(t, f.gateway.calls)
}

func TestLedgerFailureRollsBackMemory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, scriptedLLM(string(MoodJoy), mergedMemory, "summary"))

	_, err := f.store.CreateMemoryEntry(ctx, &store.MemoryEntry{
		MemoryID: "memory_taken",
		UserID:   f.user.UserID,
		AgentID:  f.agent.AgentID,
		Text:     "earlier",
		Mood:     string(MoodOk),
	})
	require.NoError(t, err)
	f.orch.newEntryID = func() string { return "memory_taken" }

	_, err = f.orch.ProcessConversationEnd(ctx, &ConversationEnd{ExternalAgentID: f.agent.ExternalAgentID, Transcript: transcript()})
	require.Error(t, err)

	assert.Equal(t, "initial memory", f.agentMemory(t))
	entries := f.ledger(t)
	require.Len(t, entries, 1)
	assert.Equal(t, "earlier", entries[0].Text)
	assert.Empty(t, f.gateway.calls)
}

func TestPushFailureKeepsCommit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, scriptedLLM(string(MoodExcited), mergedMemory, "summary"))
	f.gateway.err = errors.New("elevenlabs down")

	outcome, err := f.orch.ProcessConversationEnd(ctx, &ConversationEnd{ExternalAgentID: f.agent.ExternalAgentID, Transcript: transcript()})
	require.NoError(t, err)
	assert.EqualError(t, <-outcome.Synced, "elevenlabs down")
	_, open := <-outcome.Synced
	assert.False(t, open)

	assert.Equal(t, mergedMemory, f.agentMemory(t))
	assert.Len(t, f.ledger(t), 1)
	assert.Equal(t, int64(1), f.orch.Metrics().Snapshot().Get(StagePush).ErrorCount)
}

func TestPushOutlivesRequestContext(t *testing.T) {
	f := newFixture(t, scriptedLLM(string(MoodJoy), mergedMemory, "summary"))
	ctx, cancel := context.WithCancel(context.Background())

	outcome, err := f.orch.ProcessConversationEnd(ctx, &ConversationEnd{ExternalAgentID: f.agent.ExternalAgentID, Transcript: transcript()})
	require.NoError(t, err)
	cancel()
	assert.NoError(t, <-outcome.Synced)
}

func TestUnknownMoodIsStoredVerbatim(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, scriptedLLM("  feeling great  ", mergedMemory, "summary"))

	outcome, err := f.orch.ProcessConversationEnd(ctx, &ConversationEnd{ExternalAgentID: f.agent.ExternalAgentID, Transcript: transcript()})
	require.NoError(t, err)
	assert.Equal(t, Mood("feeling great"), outcome.Mood)
	assert.Equal(t, "feeling great", f.ledger(t)[0].Mood)
}

func TestMergeKeepsSections(t *testing.T) {
	ctx := context.Background()
	partial := "<long_term_memory>\nLoves hiking.\n</long_term_memory>"
	f := newFixture(t, scriptedLLM(string(MoodJoy), partial, "summary"))

	current := RenderSections(map[string]string{
		SectionLongTerm:         "Old facts.",
		SectionShortTerm:        "Busy month.",
		SectionLastConversation: "Talked about work.",
	})
	outcome, err := f.orch.ProcessConversationEnd(ctx, &ConversationEnd{
		AgentID:       f.agent.AgentID,
		UserID:        f.user.UserID,
		CurrentMemory: current,
		Transcript:    transcript(),
	})
	require.NoError(t, err)

	sections := ParseSections(outcome.Memory)
	assert.Equal(t, "Loves hiking.", sections[SectionLongTerm])
	assert.Equal(t, "Busy month.", sections[SectionShortTerm])
	assert.Equal(t, "Talked about work.", sections[SectionLastConversation])
	// The external id is taken from the agent row when not supplied.
	require.NoError(t, <-outcome.Synced)
	assert.Equal(t, outcome.Memory, f.gateway.calls[f.agent.ExternalAgentID])
}

func TestMergeIntoEmptyMemoryWritesSections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, scriptedLLM(string(MoodJoy), "User likes tea.", "summary"))

	outcome, err := f.orch.ProcessConversationEnd(ctx, &ConversationEnd{
		AgentID:       f.agent.AgentID,
		UserID:        f.user.UserID,
		CurrentMemory: "",
		Transcript:    transcript(),
	})
	require.NoError(t, err)
	require.NoError(t, <-outcome.Synced)

	stored := f.agentMemory(t)
	assert.Equal(t, outcome.Memory, stored)
	for _, name := range []string{SectionLongTerm, SectionShortTerm, SectionLastConversation} {
		assert.Contains(t, stored, "<"+name+">")
		assert.Contains(t, stored, "</"+name+">")
	}
	assert.Equal(t, "User likes tea.", ParseSections(stored)[SectionLastConversation])
}
