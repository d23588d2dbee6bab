package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/AlessandroMondin/Journey/store"
)

func (d *DB) CreateCredential(ctx context.Context, create *store.Credential) (*store.Credential, error) {
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}
	stmt := `INSERT INTO auth (username, password_hash, created_ts) VALUES (` + placeholders(3) + `) RETURNING id`
	if err := d.q.QueryRowContext(ctx, stmt, create.Username, create.PasswordHash, create.CreatedTs).Scan(&create.ID); err != nil {
		if isUniqueViolation(err) {
			return nil, errors.Wrapf(store.ErrUsernameTaken, "username %q", create.Username)
		}
		return nil, errors.Wrap(err, "failed to create credential")
	}
	return create, nil
}

func (d *DB) ListCredentials(ctx context.Context, find *store.FindCredential) ([]*store.Credential, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.ID; v != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Username; v != nil {
		where, args = append(where, "username = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `SELECT id, username, password_hash, created_ts FROM auth WHERE ` + strings.Join(where, " AND ") + ` ORDER BY id ASC`
	rows, err := d.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list credentials")
	}
	defer rows.Close()

	list := []*store.Credential{}
	for rows.Next() {
		credential := &store.Credential{}
		if err := rows.Scan(&credential.ID, &credential.Username, &credential.PasswordHash, &credential.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan credential")
		}
		list = append(list, credential)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}
