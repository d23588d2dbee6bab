package memory

import (
	"context"
	"strings"
	"time"

	apierrors "github.com/AlessandroMondin/Journey/server/internal/errors"
	"github.com/AlessandroMondin/Journey/store"
)

const (
	// NoMemoriesMessage answers a query for a user with an empty ledger.
	NoMemoriesMessage = "No memories found for this user."
	// NoMemoryContentMessage answers a query when every ledger entry is blank.
	NoMemoryContentMessage = "No memory content found for this user."

	dailyWindow = 30 * 24 * time.Hour
	dayLayout   = "2006-01-02"
)

// DailyMemory groups the ledger entries of one UTC day.
type DailyMemory struct {
	DayTimestamp string `json:"day_timestamp"`
	MemoryText   string `json:"memory_text"`
	Mood         string `json:"mood"`
}

// QueryMemories asks the model about the whole ledger of userID.
func (o *Orchestrator) QueryMemories(ctx context.Context, userID, query string) (string, error) {
	entries, err := o.store.ListMemoryEntries(ctx, &store.FindMemoryEntry{UserID: &userID})
	if err != nil {
		return "", apierrors.Internal("failed to list memories", err)
	}
	if len(entries) == 0 {
		return NoMemoriesMessage, nil
	}

	texts := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Text != "" {
			texts = append(texts, entry.Text)
		}
	}
	if len(texts) == 0 {
		return NoMemoryContentMessage, nil
	}

	reply, err := o.lightLLM.Chat(ctx, o.prompts.Query.Messages(map[string]string{
		"memory": strings.Join(texts, "\n\n"),
		"query":  query,
	}))
	if err != nil {
		return "", apierrors.UpstreamFailure("memory query failed", err)
	}
	return reply, nil
}

// QueryAgentMemories resolves the external agent and queries its user's ledger.
// An unknown agent is reported before a missing query.
func (o *Orchestrator) QueryAgentMemories(ctx context.Context, externalAgentID, query string) (string, error) {
	if externalAgentID == "" {
		return "", apierrors.NotFound("Agent not found")
	}
	agent, err := o.agentByExternalID(ctx, externalAgentID)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(query) == "" {
		return "", apierrors.InvalidRequest("Missing required fields")
	}
	return o.QueryMemories(ctx, agent.UserID, query)
}

// DailyMemories groups the last 30 days of entries by UTC day, oldest first.
// The mood of a day is the mood of its last entry; days without text are omitted.
func (o *Orchestrator) DailyMemories(ctx context.Context, userID string, now time.Time) ([]DailyMemory, error) {
	since := now.Add(-dailyWindow).Unix()
	entries, err := o.store.ListMemoryEntries(ctx, &store.FindMemoryEntry{
		UserID:         &userID,
		CreatedTsAfter: &since,
	})
	if err != nil {
		return nil, apierrors.Internal("failed to list memories", err)
	}
	return groupByDay(entries), nil
}

func groupByDay(entries []*store.MemoryEntry) []DailyMemory {
	days := []string{}
	texts := map[string][]string{}
	moods := map[string]string{}
	for _, entry := range entries {
		day := time.Unix(entry.CreatedTs, 0).UTC().Format(dayLayout)
		if _, ok := moods[day]; !ok {
			days = append(days, day)
		}
		if entry.Text != "" {
			texts[day] = append(texts[day], entry.Text)
		}
		moods[day] = entry.Mood
	}

	result := make([]DailyMemory, 0, len(days))
	for _, day := range days {
		if len(texts[day]) == 0 {
			continue
		}
		result = append(result, DailyMemory{
			DayTimestamp: day,
			MemoryText:   strings.Join(texts[day], "\n"),
			Mood:         moods[day],
		})
	}
	return result
}

// CorrectEntry replaces the text of a ledger entry owned by the external agent.
func (o *Orchestrator) CorrectEntry(ctx context.Context, externalAgentID, memoryID, text string) (*store.MemoryEntry, error) {
	if memoryID == "" || text == "" {
		return nil, apierrors.InvalidRequest("Missing required fields")
	}
	agent, err := o.agentByExternalID(ctx, externalAgentID)
	if err != nil {
		return nil, err
	}
	entry, err := o.store.UpdateMemoryEntry(ctx, &store.UpdateMemoryEntry{
		MemoryID: memoryID,
		AgentID:  &agent.AgentID,
		Text:     &text,
	})
	if err != nil {
		return nil, apierrors.Internal("failed to update memory", err)
	}
	if entry == nil {
		return nil, apierrors.NotFound("Memory not found")
	}
	return entry, nil
}

func (o *Orchestrator) agentByExternalID(ctx context.Context, externalAgentID string) (*store.Agent, error) {
	if externalAgentID == "" {
		return nil, apierrors.InvalidRequest("Missing required fields")
	}
	agent, err := o.store.GetAgentByExternalID(ctx, externalAgentID)
	if err != nil {
		return nil, apierrors.Internal("failed to load agent", err)
	}
	if agent == nil {
		return nil, apierrors.NotFound("Agent not found")
	}
	return agent, nil
}
