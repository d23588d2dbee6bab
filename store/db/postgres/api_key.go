package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/AlessandroMondin/Journey/store"
)

func (d *DB) CreateAPIKey(ctx context.Context, create *store.APIKey) (*store.APIKey, error) {
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}
	stmt := `INSERT INTO api_key (key, auth_id, is_active, created_ts) VALUES (` + placeholders(4) + `) RETURNING id`
	if err := d.q.QueryRowContext(ctx, stmt, create.Key, create.AuthID, create.IsActive, create.CreatedTs).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create api key")
	}
	return create, nil
}

func (d *DB) ListAPIKeys(ctx context.Context, find *store.FindAPIKey) ([]*store.APIKey, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.ID; v != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Key; v != nil {
		where, args = append(where, "key = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.AuthID; v != nil {
		where, args = append(where, "auth_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.IsActive; v != nil {
		where, args = append(where, "is_active = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `SELECT id, key, auth_id, is_active, created_ts FROM api_key WHERE ` + strings.Join(where, " AND ") + ` ORDER BY id ASC`
	rows, err := d.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list api keys")
	}
	defer rows.Close()

	list := []*store.APIKey{}
	for rows.Next() {
		apiKey := &store.APIKey{}
		if err := rows.Scan(&apiKey.ID, &apiKey.Key, &apiKey.AuthID, &apiKey.IsActive, &apiKey.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan api key")
		}
		list = append(list, apiKey)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) UpdateAPIKey(ctx context.Context, update *store.UpdateAPIKey) (*store.APIKey, error) {
	set, args := []string{}, []any{}
	if v := update.IsActive; v != nil {
		set, args = append(set, "is_active = "+placeholder(len(args)+1)), append(args, *v)
	}
	if len(set) == 0 {
		return nil, errors.New("no fields to update")
	}
	args = append(args, update.ID)

	stmt := `UPDATE api_key SET ` + strings.Join(set, ", ") + ` WHERE id = ` + placeholder(len(args)) + ` RETURNING id, key, auth_id, is_active, created_ts`
	apiKey := &store.APIKey{}
	if err := d.q.QueryRowContext(ctx, stmt, args...).Scan(&apiKey.ID, &apiKey.Key, &apiKey.AuthID, &apiKey.IsActive, &apiKey.CreatedTs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to update api key")
	}
	return apiKey, nil
}
