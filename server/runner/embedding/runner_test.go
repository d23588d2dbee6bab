package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlessandroMondin/Journey/plugin/ai/vector"
	"github.com/AlessandroMondin/Journey/store"
	storetest "github.com/AlessandroMondin/Journey/store/test"
)

// mockEmbeddingService is a mock implementation of ai.EmbeddingService for testing.
type mockEmbeddingService struct {
	dimensions     int
	batchCallCount atomic.Int32
	embedded       atomic.Int32
	shouldFail     atomic.Bool
}

func newMockEmbeddingService(dimensions int) *mockEmbeddingService {
	return &mockEmbeddingService{dimensions: dimensions}
}

func (m *mockEmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (m *mockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.batchCallCount.Add(1)
	if m.shouldFail.Load() {
		return nil, errors.New("batch embedding error")
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		v := make([]float32, m.dimensions)
		for j := range v {
			v[j] = 0.1 * float32(j+1)
		}
		vectors[i] = v
	}
	m.embedded.Add(int32(len(texts)))
	return vectors, nil
}

func (m *mockEmbeddingService) Dimensions() int {
	return m.dimensions
}

type runnerFixture struct {
	store    *store.Store
	embedder *mockEmbeddingService
	vectors  *vector.ChromemService
	runner   *Runner
	user     *store.User
	agent    *store.Agent
	created  int
}

func newRunnerFixture(t *testing.T) *runnerFixture {
	t.Helper()
	ctx := context.Background()
	ts := storetest.NewTestingStore(ctx, t)
	user, agent, err := storetest.CreateTestingUser(ctx, ts, "alice")
	require.NoError(t, err)
	vectors, err := vector.NewChromemService("")
	require.NoError(t, err)
	embedder := newMockEmbeddingService(8)
	return &runnerFixture{
		store:    ts,
		embedder: embedder,
		vectors:  vectors,
		runner:   NewRunner(ts, embedder, vectors),
		user:     user,
		agent:    agent,
	}
}

func (f *runnerFixture) addEntries(t *testing.T, texts ...string) {
	t.Helper()
	for _, text := range texts {
		f.created++
		_, err := f.store.CreateMemoryEntry(context.Background(), &store.MemoryEntry{
			MemoryID:  fmt.Sprintf("memory_%d", f.created),
			UserID:    f.user.UserID,
			AgentID:   f.agent.AgentID,
			Text:      text,
			Mood:      "U+1F610",
			CreatedTs: time.Now().Add(-time.Hour).Unix(),
		})
		require.NoError(t, err)
	}
}

func (f *runnerFixture) indexed(t *testing.T) []vector.VectorResult {
	t.Helper()
	query, err := f.embedder.Embed(context.Background(), "search")
	require.NoError(t, err)
	results, err := f.vectors.SearchSimilar(context.Background(), f.user.UserID, query, 100)
	require.NoError(t, err)
	return results
}

func (f *runnerFixture) cursor(t *testing.T) int32 {
	t.Helper()
	cursor, err := f.runner.loadCursor(context.Background())
	require.NoError(t, err)
	return cursor
}

func TestNewRunner(t *testing.T) {
	embedder := newMockEmbeddingService(8)
	s := &store.Store{}

	runner := NewRunner(s, embedder, nil)

	assert.Equal(t, s, runner.store)
	assert.Equal(t, 2*time.Minute, runner.interval)
	assert.Equal(t, 8, runner.batchSize)
}

func TestRunOnceIndexesNewEntries(t *testing.T) {
	ctx := context.Background()
	f := newRunnerFixture(t)
	f.runner.batchSize = 2
	f.addEntries(t, "Went hiking.", "", "Cooked ramen.", "Called mom.")

	f.runner.RunOnce(ctx)

	results := f.indexed(t)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.Equal(t, EntryType, r.Metadata["type"])
		assert.Equal(t, r.DocID, r.Metadata["memory_id"])
	}
	assert.Equal(t, int32(4), f.cursor(t))
	assert.Equal(t, int32(3), f.embedder.embedded.Load())

	// Nothing new: no embedding calls.
	calls := f.embedder.batchCallCount.Load()
	f.runner.RunOnce(ctx)
	assert.Equal(t, calls, f.embedder.batchCallCount.Load())

	f.addEntries(t, "Read a book.")
	f.runner.RunOnce(ctx)
	assert.Len(t, f.indexed(t), 4)
	assert.Equal(t, int32(5), f.cursor(t))
}

func TestRunOnceKeepsCursorOnFailure(t *testing.T) {
	ctx := context.Background()
	f := newRunnerFixture(t)
	f.addEntries(t, "Went hiking.")

	f.embedder.shouldFail.Store(true)
	f.runner.RunOnce(ctx)
	assert.Equal(t, int32(0), f.cursor(t))
	assert.Empty(t, f.indexed(t))

	f.embedder.shouldFail.Store(false)
	f.runner.RunOnce(ctx)
	assert.Equal(t, int32(1), f.cursor(t))
	assert.Len(t, f.indexed(t), 1)
}

func TestProcessBatchSkipsEmptyText(t *testing.T) {
	f := newRunnerFixture(t)

	err := f.runner.processBatch(context.Background(), []*store.MemoryEntry{{MemoryID: "memory_x", UserID: f.user.UserID}})
	require.NoError(t, err)
	assert.Equal(t, int32(0), f.embedder.batchCallCount.Load())
}

func TestRunStopsOnCancel(t *testing.T) {
	f := newRunnerFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.runner.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}
}

func TestRunOnceReindexesCorrectedEntries(t *testing.T) {
	ctx := context.Background()
	f := newRunnerFixture(t)
	f.runner.now = func() time.Time { return time.Now().Add(time.Minute) }
	f.addEntries(t, "Went hiking.", "Cooked ramen.")
	f.runner.RunOnce(ctx)
	require.Len(t, f.indexed(t), 2)

	corrected := "Went hiking with Sam."
	entry, err := f.store.UpdateMemoryEntry(ctx, &store.UpdateMemoryEntry{MemoryID: "memory_1", Text: &corrected})
	require.NoError(t, err)
	require.NotNil(t, entry)

	f.runner.RunOnce(ctx)

	results := f.indexed(t)
	require.Len(t, results, 2)
	contents := map[string]string{}
	for _, r := range results {
		contents[r.DocID] = r.Content
	}
	assert.Equal(t, corrected, contents["memory_1"])
	assert.Equal(t, "Cooked ramen.", contents["memory_2"])

	cursor, err := f.runner.loadTimestamp(ctx, CorrectionCursorSettingName)
	require.NoError(t, err)
	assert.Equal(t, entry.UpdatedTs, cursor)

	// Already re-indexed: no further embedding calls.
	calls := f.embedder.batchCallCount.Load()
	f.runner.RunOnce(ctx)
	assert.Equal(t, calls, f.embedder.batchCallCount.Load())
}

