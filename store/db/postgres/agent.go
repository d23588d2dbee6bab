package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/AlessandroMondin/Journey/store"
)

const agentColumns = "id, agent_id, user_id, name, description, elevenlabs_agent_id, voice_id, memory, created_ts, updated_ts"

func scanAgent(scanner interface{ Scan(...any) error }) (*store.Agent, error) {
	agent := &store.Agent{}
	if err := scanner.Scan(
		&agent.ID,
		&agent.AgentID,
		&agent.UserID,
		&agent.Name,
		&agent.Description,
		&agent.ExternalAgentID,
		&agent.VoiceID,
		&agent.Memory,
		&agent.CreatedTs,
		&agent.UpdatedTs,
	); err != nil {
		return nil, err
	}
	return agent, nil
}

func (d *DB) CreateAgent(ctx context.Context, create *store.Agent) (*store.Agent, error) {
	now := time.Now().Unix()
	if create.CreatedTs == 0 {
		create.CreatedTs = now
	}
	if create.UpdatedTs == 0 {
		create.UpdatedTs = create.CreatedTs
	}
	fields := []string{"agent_id", "user_id", "name", "description", "elevenlabs_agent_id", "voice_id", "memory", "created_ts", "updated_ts"}
	args := []any{create.AgentID, create.UserID, create.Name, create.Description, create.ExternalAgentID, create.VoiceID, create.Memory, create.CreatedTs, create.UpdatedTs}

	stmt := `INSERT INTO agent (` + strings.Join(fields, ", ") + `) VALUES (` + placeholders(len(args)) + `) RETURNING id`
	if err := d.q.QueryRowContext(ctx, stmt, args...).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create agent")
	}
	return create, nil
}

func (d *DB) ListAgents(ctx context.Context, find *store.FindAgent) ([]*store.Agent, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.ID; v != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.AgentID; v != nil {
		where, args = append(where, "agent_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UserID; v != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.ExternalAgentID; v != nil {
		where, args = append(where, "elevenlabs_agent_id = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `SELECT ` + agentColumns + ` FROM agent WHERE ` + strings.Join(where, " AND ") + ` ORDER BY id ASC`
	rows, err := d.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list agents")
	}
	defer rows.Close()

	list := []*store.Agent{}
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan agent")
		}
		list = append(list, agent)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) UpdateAgent(ctx context.Context, update *store.UpdateAgent) (*store.Agent, error) {
	set, args := []string{"updated_ts = " + placeholder(1)}, []any{time.Now().Unix()}
	if v := update.Memory; v != nil {
		set, args = append(set, "memory = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.VoiceID; v != nil {
		set, args = append(set, "voice_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.ExternalAgentID; v != nil {
		set, args = append(set, "elevenlabs_agent_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	args = append(args, update.AgentID)

	stmt := `UPDATE agent SET ` + strings.Join(set, ", ") + ` WHERE agent_id = ` + placeholder(len(args)) + ` RETURNING ` + agentColumns
	agent, err := scanAgent(d.q.QueryRowContext(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to update agent")
	}
	return agent, nil
}
