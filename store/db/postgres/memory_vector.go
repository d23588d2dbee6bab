package postgres

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/AlessandroMondin/Journey/store"
)

func (d *DB) UpsertMemoryVector(ctx context.Context, upsert *store.MemoryVector) (*store.MemoryVector, error) {
	if upsert.CreatedTs == 0 {
		upsert.CreatedTs = time.Now().Unix()
	}
	metadata, err := json.Marshal(upsert.Metadata)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal metadata")
	}

	stmt := `
		INSERT INTO memory_vector (id, owner_id, content, metadata, embedding, created_ts)
		VALUES (` + placeholders(6) + `)
		ON CONFLICT (id)
		DO UPDATE SET
			owner_id = EXCLUDED.owner_id,
			content = EXCLUDED.content,
			metadata = EXCLUDED.metadata,
			embedding = EXCLUDED.embedding`
	if _, err := d.q.ExecContext(ctx, stmt,
		upsert.ID,
		upsert.OwnerID,
		upsert.Content,
		string(metadata),
		pgvector.NewVector(upsert.Embedding),
		upsert.CreatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to upsert memory vector")
	}
	return upsert, nil
}

// SearchMemoryVectors ranks the owner's vectors by cosine similarity.
// The <=> operator is cosine distance, so score = 1 - distance.
func (d *DB) SearchMemoryVectors(ctx context.Context, search *store.SearchMemoryVector) ([]*store.MemoryVectorWithScore, error) {
	query := `
		SELECT id, owner_id, content, metadata, created_ts,
			1 - (embedding <=> ` + placeholder(1) + `) AS score
		FROM memory_vector
		WHERE owner_id = ` + placeholder(2) + `
		ORDER BY embedding <=> ` + placeholder(1) + `
		LIMIT ` + placeholder(3)

	rows, err := d.q.QueryContext(ctx, query, pgvector.NewVector(search.Vector), search.OwnerID, search.Limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search memory vectors")
	}
	defer rows.Close()

	results := []*store.MemoryVectorWithScore{}
	for rows.Next() {
		vector := &store.MemoryVector{}
		var metadata []byte
		var score float64
		if err := rows.Scan(&vector.ID, &vector.OwnerID, &vector.Content, &metadata, &vector.CreatedTs, &score); err != nil {
			return nil, errors.Wrap(err, "failed to scan memory vector")
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &vector.Metadata); err != nil {
				return nil, errors.Wrap(err, "failed to unmarshal metadata")
			}
		}
		results = append(results, &store.MemoryVectorWithScore{Vector: vector, Score: float32(score)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (d *DB) DeleteMemoryVectors(ctx context.Context, delete *store.DeleteMemoryVector) (int64, error) {
	where, args := []string{}, []any{}
	if v := delete.ID; v != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := delete.OwnerID; v != nil {
		where, args = append(where, "owner_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if len(where) == 0 {
		return 0, errors.New("no condition to delete memory vectors")
	}

	result, err := d.q.ExecContext(ctx, `DELETE FROM memory_vector WHERE `+strings.Join(where, " AND "), args...)
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete memory vectors")
	}
	return result.RowsAffected()
}
