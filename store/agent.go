package store

import "context"

// Agent is the single voice agent owned by a user.
// Memory holds the live memory document pushed to the external agent.
type Agent struct {
	ID              int32
	AgentID         string
	UserID          string
	Name            string
	Description     string
	ExternalAgentID string
	VoiceID         string
	Memory          string
	CreatedTs       int64
	UpdatedTs       int64
}

type FindAgent struct {
	ID              *int32
	AgentID         *string
	UserID          *string
	ExternalAgentID *string
}

type UpdateAgent struct {
	AgentID string

	Memory          *string
	VoiceID         *string
	ExternalAgentID *string
}

func (s *Store) CreateAgent(ctx context.Context, create *Agent) (*Agent, error) {
	return s.driver.CreateAgent(ctx, create)
}

func (s *Store) ListAgents(ctx context.Context, find *FindAgent) ([]*Agent, error) {
	return s.driver.ListAgents(ctx, find)
}

func (s *Store) GetAgent(ctx context.Context, find *FindAgent) (*Agent, error) {
	list, err := s.ListAgents(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// GetAgentByExternalID resolves the agent addressed by a webhook.
// Only the internal identifiers are cached; the memory blob is always re-read.
func (s *Store) GetAgentByExternalID(ctx context.Context, externalAgentID string) (*Agent, error) {
	if !s.inTx {
		if cached, ok := s.agentCache.Get(externalAgentID); ok {
			agentID := cached.(string)
			return s.GetAgent(ctx, &FindAgent{AgentID: &agentID})
		}
	}
	agent, err := s.GetAgent(ctx, &FindAgent{ExternalAgentID: &externalAgentID})
	if err != nil || agent == nil {
		return agent, err
	}
	if !s.inTx {
		s.agentCache.Set(externalAgentID, agent.AgentID)
	}
	return agent, nil
}

func (s *Store) UpdateAgent(ctx context.Context, update *UpdateAgent) (*Agent, error) {
	agent, err := s.driver.UpdateAgent(ctx, update)
	if err != nil {
		return nil, err
	}
	if update.ExternalAgentID != nil {
		s.agentCache.Clear()
	}
	return agent, nil
}
