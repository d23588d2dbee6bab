// Package embedding indexes memory ledger entries into the retrieval vector store.
package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/AlessandroMondin/Journey/plugin/ai"
	"github.com/AlessandroMondin/Journey/plugin/ai/vector"
	"github.com/AlessandroMondin/Journey/store"
)

// CursorSettingName stores the row id of the last indexed ledger entry.
const CursorSettingName = "LEDGER_INDEX_CURSOR"

// CorrectionCursorSettingName stores the updated_ts up to which corrected
// entries have been re-indexed.
const CorrectionCursorSettingName = "LEDGER_CORRECTION_CURSOR"

// EntryType tags ledger vectors in the retrieval store.
const EntryType = "ledger"

type Runner struct {
	store            *store.Store
	embeddingService ai.EmbeddingService
	vectors          vector.VectorService
	interval         time.Duration
	batchSize        int
	now              func() time.Time
}

// NewRunner creates a ledger indexing runner.
func NewRunner(store *store.Store, embeddingService ai.EmbeddingService, vectors vector.VectorService) *Runner {
	return &Runner{
		store:            store,
		embeddingService: embeddingService,
		vectors:          vectors,
		interval:         2 * time.Minute,
		batchSize:        8,
		now:              time.Now,
	}
}

// Run starts the background task.
func (r *Runner) Run(ctx context.Context) {
	r.process(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.process(ctx)
		case <-ctx.Done():
			slog.Info("ledger indexing runner stopped")
			return
		}
	}
}

// RunOnce indexes pending entries once.
func (r *Runner) RunOnce(ctx context.Context) {
	r.process(ctx)
}

func (r *Runner) process(ctx context.Context) {
	r.processNewEntries(ctx)
	r.processCorrectedEntries(ctx)
}

func (r *Runner) processNewEntries(ctx context.Context) {
	cursor, err := r.loadCursor(ctx)
	if err != nil {
		slog.Error("failed to load ledger index cursor", slog.String("error", err.Error()))
		return
	}
	entries, err := r.store.ListMemoryEntries(ctx, &store.FindMemoryEntry{
		IDAfter: &cursor,
		Limit:   r.batchSize * 20,
	})
	if err != nil {
		slog.Error("failed to list ledger entries", slog.String("error", err.Error()))
		return
	}
	if len(entries) == 0 {
		return
	}

	slog.Info("indexing ledger entries", slog.Int("count", len(entries)))

	for i := 0; i < len(entries); i += r.batchSize {
		select {
		case <-ctx.Done():
			slog.Info("ledger indexing cancelled", slog.Int("processed", i), slog.Int("total", len(entries)))
			return
		default:
		}

		end := min(i+r.batchSize, len(entries))
		batch := entries[i:end]
		if err := r.processBatch(ctx, batch); err != nil {
			// The cursor stays put so the batch is retried on the next tick.
			slog.Error("failed to index batch", slog.String("error", err.Error()))
			return
		}
		if err := r.saveCursor(ctx, batch[len(batch)-1].ID); err != nil {
			slog.Error("failed to save ledger index cursor", slog.String("error", err.Error()))
			return
		}
		slog.Info("batch indexed", slog.Int("count", len(batch)), slog.String("progress", fmt.Sprintf("%d/%d", end, len(entries))))
	}
}

// processCorrectedEntries re-embeds entries whose text changed after creation,
// replacing their previous vectors.
func (r *Runner) processCorrectedEntries(ctx context.Context) {
	cursor, err := r.loadTimestamp(ctx, CorrectionCursorSettingName)
	if err != nil {
		slog.Error("failed to load ledger correction cursor", slog.String("error", err.Error()))
		return
	}
	entries, err := r.store.ListMemoryEntries(ctx, &store.FindMemoryEntry{
		CorrectedAfter: &cursor,
		Limit:          r.batchSize * 20,
	})
	if err != nil {
		slog.Error("failed to list corrected ledger entries", slog.String("error", err.Error()))
		return
	}
	if len(entries) == 0 {
		return
	}

	slog.Info("re-indexing corrected ledger entries", slog.Int("count", len(entries)))

	// Corrections later in the current second may still arrive, so the cursor
	// never passes the previous second.
	ceiling := r.now().Unix() - 1
	for i := 0; i < len(entries); i += r.batchSize {
		if ctx.Err() != nil {
			return
		}
		end := min(i+r.batchSize, len(entries))
		batch := entries[i:end]
		if err := r.processBatch(ctx, batch); err != nil {
			slog.Error("failed to re-index batch", slog.String("error", err.Error()))
			return
		}
		next := min(batch[len(batch)-1].UpdatedTs, ceiling)
		if next <= cursor {
			continue
		}
		if err := r.saveTimestamp(ctx, CorrectionCursorSettingName, next); err != nil {
			slog.Error("failed to save ledger correction cursor", slog.String("error", err.Error()))
			return
		}
		cursor = next
	}
}

func (r *Runner) processBatch(ctx context.Context, entries []*store.MemoryEntry) error {
	pending := make([]*store.MemoryEntry, 0, len(entries))
	texts := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Text == "" {
			continue
		}
		pending = append(pending, entry)
		texts = append(texts, entry.Text)
	}
	if len(texts) == 0 {
		return nil
	}

	vectors, err := r.embeddingService.EmbedBatch(ctx, texts)
	if err != nil {
		return errors.Wrap(err, "failed to embed ledger entries")
	}
	if len(vectors) != len(texts) {
		return errors.Errorf("expected %d embeddings, got %d", len(texts), len(vectors))
	}

	for i, entry := range pending {
		err := r.vectors.StoreEmbedding(ctx, &vector.Point{
			ID:      entry.MemoryID,
			OwnerID: entry.UserID,
			Content: entry.Text,
			Vector:  vectors[i],
			Metadata: map[string]string{
				"type":       EntryType,
				"memory_id":  entry.MemoryID,
				"mood":       entry.Mood,
				"created_at": time.Unix(entry.CreatedTs, 0).UTC().Format(time.RFC3339),
			},
		})
		if err != nil {
			return errors.Wrapf(err, "failed to store embedding of %s", entry.MemoryID)
		}
	}
	return nil
}

func (r *Runner) loadCursor(ctx context.Context) (int32, error) {
	setting, err := r.store.GetSystemSetting(ctx, &store.FindSystemSetting{Name: CursorSettingName})
	if err != nil {
		return 0, err
	}
	if setting == nil || setting.Value == "" {
		return 0, nil
	}
	cursor, err := strconv.ParseInt(setting.Value, 10, 32)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid cursor %q", setting.Value)
	}
	return int32(cursor), nil
}

func (r *Runner) saveCursor(ctx context.Context, id int32) error {
	_, err := r.store.UpsertSystemSetting(ctx, &store.SystemSetting{
		Name:        CursorSettingName,
		Value:       strconv.FormatInt(int64(id), 10),
		Description: "Row id of the last ledger entry indexed for retrieval",
	})
	return err
}

func (r *Runner) loadTimestamp(ctx context.Context, name string) (int64, error) {
	setting, err := r.store.GetSystemSetting(ctx, &store.FindSystemSetting{Name: name})
	if err != nil {
		return 0, err
	}
	if setting == nil || setting.Value == "" {
		return 0, nil
	}
	ts, err := strconv.ParseInt(setting.Value, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid cursor %q", setting.Value)
	}
	return ts, nil
}

func (r *Runner) saveTimestamp(ctx context.Context, name string, ts int64) error {
	_, err := r.store.UpsertSystemSetting(ctx, &store.SystemSetting{
		Name:        name,
		Value:       strconv.FormatInt(ts, 10),
		Description: "Last updated_ts of corrected ledger entries indexed for retrieval",
	})
	return err
}
