package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/AlessandroMondin/Journey/store"
)

func (d *DB) CreateDocument(ctx context.Context, create *store.Document) (*store.Document, error) {
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}
	if create.Metadata == "" {
		create.Metadata = "{}"
	}
	stmt := `INSERT INTO document (document_id, agent_id, content, metadata, created_ts) VALUES (` + placeholders(5) + `) RETURNING id`
	if err := d.q.QueryRowContext(ctx, stmt, create.DocumentID, create.AgentID, create.Content, create.Metadata, create.CreatedTs).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create document")
	}
	return create, nil
}

func (d *DB) ListDocuments(ctx context.Context, find *store.FindDocument) ([]*store.Document, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.DocumentID; v != nil {
		where, args = append(where, "document_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.AgentID; v != nil {
		where, args = append(where, "agent_id = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `SELECT id, document_id, agent_id, content, metadata, created_ts FROM document WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_ts DESC, id DESC`
	rows, err := d.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list documents")
	}
	defer rows.Close()

	list := []*store.Document{}
	for rows.Next() {
		document := &store.Document{}
		if err := rows.Scan(&document.ID, &document.DocumentID, &document.AgentID, &document.Content, &document.Metadata, &document.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan document")
		}
		list = append(list, document)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}
