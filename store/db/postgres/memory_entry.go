package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/AlessandroMondin/Journey/store"
)

const memoryEntryColumns = "id, memory_id, user_id, agent_id, text, mood, created_ts, updated_ts"

func scanMemoryEntry(scanner interface{ Scan(...any) error }) (*store.MemoryEntry, error) {
	entry := &store.MemoryEntry{}
	if err := scanner.Scan(
		&entry.ID,
		&entry.MemoryID,
		&entry.UserID,
		&entry.AgentID,
		&entry.Text,
		&entry.Mood,
		&entry.CreatedTs,
		&entry.UpdatedTs,
	); err != nil {
		return nil, err
	}
	return entry, nil
}

func (d *DB) CreateMemoryEntry(ctx context.Context, create *store.MemoryEntry) (*store.MemoryEntry, error) {
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}
	if create.UpdatedTs == 0 {
		create.UpdatedTs = create.CreatedTs
	}
	fields := []string{"memory_id", "user_id", "agent_id", "text", "mood", "created_ts", "updated_ts"}
	args := []any{create.MemoryID, create.UserID, create.AgentID, create.Text, create.Mood, create.CreatedTs, create.UpdatedTs}

	stmt := `INSERT INTO memory (` + strings.Join(fields, ", ") + `) VALUES (` + placeholders(len(args)) + `) RETURNING id`
	if err := d.q.QueryRowContext(ctx, stmt, args...).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create memory entry")
	}
	return create, nil
}

func (d *DB) ListMemoryEntries(ctx context.Context, find *store.FindMemoryEntry) ([]*store.MemoryEntry, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.MemoryID; v != nil {
		where, args = append(where, "memory_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UserID; v != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.AgentID; v != nil {
		where, args = append(where, "agent_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.CreatedTsAfter; v != nil {
		where, args = append(where, "created_ts >= "+placeholder(len(args)+1)), append(args, *v)
	}

	orderBy := "created_ts ASC, id ASC"
	if v := find.IDAfter; v != nil {
		where, args = append(where, "id > "+placeholder(len(args)+1)), append(args, *v)
		orderBy = "id ASC"
	}
	if v := find.CorrectedAfter; v != nil {
		where, args = append(where, "updated_ts > created_ts", "updated_ts > "+placeholder(len(args)+1)), append(args, *v)
		orderBy = "updated_ts ASC, id ASC"
	}

	query := `SELECT ` + memoryEntryColumns + ` FROM memory WHERE ` + strings.Join(where, " AND ") + ` ORDER BY ` + orderBy
	if find.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", find.Limit)
	}
	rows, err := d.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list memory entries")
	}
	defer rows.Close()

	list := []*store.MemoryEntry{}
	for rows.Next() {
		entry, err := scanMemoryEntry(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan memory entry")
		}
		list = append(list, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) UpdateMemoryEntry(ctx context.Context, update *store.UpdateMemoryEntry) (*store.MemoryEntry, error) {
	set, args := []string{"updated_ts = " + placeholder(1)}, []any{time.Now().Unix()}
	if v := update.Text; v != nil {
		set, args = append(set, "text = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Mood; v != nil {
		set, args = append(set, "mood = "+placeholder(len(args)+1)), append(args, *v)
	}

	where := []string{}
	where, args = append(where, "memory_id = "+placeholder(len(args)+1)), append(args, update.MemoryID)
	if v := update.AgentID; v != nil {
		where, args = append(where, "agent_id = "+placeholder(len(args)+1)), append(args, *v)
	}

	stmt := `UPDATE memory SET ` + strings.Join(set, ", ") + ` WHERE ` + strings.Join(where, " AND ") + ` RETURNING ` + memoryEntryColumns
	entry, err := scanMemoryEntry(d.q.QueryRowContext(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to update memory entry")
	}
	return entry, nil
}
