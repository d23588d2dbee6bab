package test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlessandroMondin/Journey/store"
)

func TestMigrateRecordsSchemaVersion(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	current, err := ts.GetCurrentSchemaVersion()
	require.NoError(t, err)
	recorded, err := ts.GetSchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, current, recorded)

	// A second run is a no-op.
	require.NoError(t, ts.Migrate(ctx))
}

func TestUserByUsername(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	username := "alice_" + uuid.NewString()[:8]

	user, agent, err := CreateTestingUser(ctx, ts, username)
	require.NoError(t, err)

	found, err := ts.GetUserByUsername(ctx, username)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, user.UserID, found.UserID)

	missing, err := ts.GetUserByUsername(ctx, "nobody_"+uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, missing)

	byUser, err := ts.GetAgent(ctx, &store.FindAgent{UserID: &user.UserID})
	require.NoError(t, err)
	require.NotNil(t, byUser)
	assert.Equal(t, agent.AgentID, byUser.AgentID)
	assert.Equal(t, "Personal assistant", byUser.Description)
}

func TestDuplicateUsernameRejected(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	username := "bob_" + uuid.NewString()[:8]

	_, err := ts.CreateCredential(ctx, &store.Credential{Username: username, PasswordHash: "x"})
	require.NoError(t, err)
	_, err = ts.CreateCredential(ctx, &store.Credential{Username: username, PasswordHash: "y"})
	assert.ErrorIs(t, err, store.ErrUsernameTaken)
}

func TestDeactivateAPIKey(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	username := "carol_" + uuid.NewString()[:8]

	user, _, err := CreateTestingUser(ctx, ts, username)
	require.NoError(t, err)
	apiKey, err := ts.GetAPIKey(ctx, &store.FindAPIKey{ID: &user.APIKeyID})
	require.NoError(t, err)

	updated, err := ts.DeactivateAPIKey(ctx, apiKey.Key)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.False(t, updated.IsActive)

	found, err := ts.GetUserByUsername(ctx, username)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestAgentUpdate(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	_, agent, err := CreateTestingUser(ctx, ts, "dave_"+uuid.NewString()[:8])
	require.NoError(t, err)

	memory := "<long_term_memory>\nlikes tea\n</long_term_memory>"
	voiceID := "voice_123"
	updated, err := ts.UpdateAgent(ctx, &store.UpdateAgent{AgentID: agent.AgentID, Memory: &memory, VoiceID: &voiceID})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, memory, updated.Memory)
	assert.Equal(t, voiceID, updated.VoiceID)

	byExternal, err := ts.GetAgentByExternalID(ctx, agent.ExternalAgentID)
	require.NoError(t, err)
	require.NotNil(t, byExternal)
	assert.Equal(t, memory, byExternal.Memory)

	// The external id cache holds only the agent id; the row is re-read.
	direct := "<long_term_memory>\nlikes coffee\n</long_term_memory>"
	_, err = ts.GetDriver().UpdateAgent(ctx, &store.UpdateAgent{AgentID: agent.AgentID, Memory: &direct})
	require.NoError(t, err)
	byExternal, err = ts.GetAgentByExternalID(ctx, agent.ExternalAgentID)
	require.NoError(t, err)
	require.NotNil(t, byExternal)
	assert.Equal(t, direct, byExternal.Memory)

	missing, err := ts.UpdateAgent(ctx, &store.UpdateAgent{AgentID: "agent_missing", Memory: &memory})
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemoryEntryLedger(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	user, agent, err := CreateTestingUser(ctx, ts, "erin_"+uuid.NewString()[:8])
	require.NoError(t, err)

	now := time.Now().Unix()
	old := now - int64(40*24*time.Hour/time.Second)
	for i, ts0 := range []int64{old, now - 60, now} {
		_, err := ts.CreateMemoryEntry(ctx, &store.MemoryEntry{
			MemoryID:  "memory_" + uuid.NewString(),
			UserID:    user.UserID,
			AgentID:   agent.AgentID,
			Text:      []string{"old", "first", "second"}[i],
			Mood:      "U+1F610",
			CreatedTs: ts0,
		})
		require.NoError(t, err)
	}

	all, err := ts.ListMemoryEntries(ctx, &store.FindMemoryEntry{UserID: &user.UserID})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "old", all[0].Text)
	assert.Equal(t, "second", all[2].Text)

	cutoff := now - int64(30*24*time.Hour/time.Second)
	recent, err := ts.ListMemoryEntries(ctx, &store.FindMemoryEntry{UserID: &user.UserID, CreatedTsAfter: &cutoff})
	require.NoError(t, err)
	require.Len(t, recent, 2)

	text := "corrected"
	updated, err := ts.UpdateMemoryEntry(ctx, &store.UpdateMemoryEntry{MemoryID: all[1].MemoryID, AgentID: &agent.AgentID, Text: &text})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, "corrected", updated.Text)

	otherAgent := "agent_other"
	notMine, err := ts.UpdateMemoryEntry(ctx, &store.UpdateMemoryEntry{MemoryID: all[1].MemoryID, AgentID: &otherAgent, Text: &text})
	require.NoError(t, err)
	assert.Nil(t, notMine)
}

func TestRunInTxRollsBack(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	user, agent, err := CreateTestingUser(ctx, ts, "frank_"+uuid.NewString()[:8])
	require.NoError(t, err)

	boom := errors.New("boom")
	err = ts.RunInTx(ctx, func(tx *store.Store) error {
		memory := "should not persist"
		if _, err := tx.UpdateAgent(ctx, &store.UpdateAgent{AgentID: agent.AgentID, Memory: &memory}); err != nil {
			return err
		}
		if _, err := tx.CreateMemoryEntry(ctx, &store.MemoryEntry{MemoryID: "memory_" + uuid.NewString(), UserID: user.UserID, Text: "x"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	reloaded, err := ts.GetAgent(ctx, &store.FindAgent{AgentID: &agent.AgentID})
	require.NoError(t, err)
	assert.Equal(t, "initial memory", reloaded.Memory)

	entries, err := ts.ListMemoryEntries(ctx, &store.FindMemoryEntry{UserID: &user.UserID})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDocuments(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	_, agent, err := CreateTestingUser(ctx, ts, "grace_"+uuid.NewString()[:8])
	require.NoError(t, err)

	created, err := ts.CreateDocument(ctx, &store.Document{DocumentID: "doc_" + uuid.NewString(), AgentID: agent.AgentID, Content: "# Notes"})
	require.NoError(t, err)
	assert.Equal(t, "{}", created.Metadata)

	list, err := ts.ListDocuments(ctx, &store.FindDocument{AgentID: &agent.AgentID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "# Notes", list[0].Content)
}

func TestMemoryVectors(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	if getDriverFromEnv() != "postgres" {
		_, err := ts.UpsertMemoryVector(ctx, &store.MemoryVector{ID: "v1"})
		assert.ErrorIs(t, err, store.ErrVectorNotSupported)
		return
	}

	owner := "owner_" + uuid.NewString()
	for id, vec := range map[string][]float32{"a": {1, 0, 0}, "b": {0, 1, 0}} {
		_, err := ts.UpsertMemoryVector(ctx, &store.MemoryVector{ID: owner + id, OwnerID: owner, Content: id, Embedding: vec, Metadata: map[string]string{"type": "conversation"}})
		require.NoError(t, err)
	}

	results, err := ts.SearchMemoryVectors(ctx, &store.SearchMemoryVector{OwnerID: owner, Vector: []float32{1, 0.1, 0}})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Vector.Content)
	assert.Equal(t, "conversation", results[0].Vector.Metadata["type"])

	deleted, err := ts.DeleteMemoryVectors(ctx, &store.DeleteMemoryVector{OwnerID: &owner})
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
}
