// Package memory folds finished conversations into a user's memory and answers
// questions about the memory ledger.
package memory

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/AlessandroMondin/Journey/plugin/ai"
	"github.com/AlessandroMondin/Journey/plugin/elevenlabs"
	apierrors "github.com/AlessandroMondin/Journey/server/internal/errors"
	"github.com/AlessandroMondin/Journey/server/internal/observability"
	"github.com/AlessandroMondin/Journey/store"
)

// Pipeline stage names, as reported by observability.Metrics.
const (
	StageMood    = "mood"
	StageMerge   = "merge"
	StageSummary = "summary"
	StagePersist = "persist"
	StagePush    = "push"
)

// DefaultPushTimeout bounds the post-commit push to the voice agent.
const DefaultPushTimeout = 30 * time.Second

// Turn is one transcript message.
type Turn = elevenlabs.Turn

// AgentGateway pushes memory into the external voice agent.
type AgentGateway interface {
	LoadMemory(ctx context.Context, externalAgentID, memory string) error
}

// ConversationEnd describes a finished conversation. When AgentID is empty the
// agent is resolved from ExternalAgentID and UserID/CurrentMemory are filled in.
type ConversationEnd struct {
	AgentID         string
	UserID          string
	CurrentMemory   string
	Transcript      []Turn
	ExternalAgentID string
}

// Outcome is the result of a committed pipeline run.
type Outcome struct {
	Memory  string
	Mood    Mood
	Summary string
	Entry   *store.MemoryEntry
	// Synced receives the push result once, then is closed.
	Synced <-chan error
}

// Orchestrator runs the memory update pipeline.
type Orchestrator struct {
	store    *store.Store
	mergeLLM ai.LLMService
	lightLLM ai.LLMService
	gateway  AgentGateway
	prompts  *Prompts
	metrics  *observability.Metrics

	pushTimeout time.Duration
	newEntryID  func() string
	now         func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithPrompts(p *Prompts) Option {
	return func(o *Orchestrator) { o.prompts = p }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

func WithPushTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.pushTimeout = d }
}

// NewOrchestrator creates an Orchestrator. mergeLLM folds the conversation into
// the memory; lightLLM classifies mood, summarizes and answers queries.
func NewOrchestrator(s *store.Store, mergeLLM, lightLLM ai.LLMService, gateway AgentGateway, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:       s,
		mergeLLM:    mergeLLM,
		lightLLM:    lightLLM,
		gateway:     gateway,
		metrics:     observability.NewMetrics(),
		pushTimeout: DefaultPushTimeout,
		newEntryID:  func() string { return "memory_" + uuid.NewString() },
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.prompts == nil {
		prompts, err := LoadPrompts(nil)
		if err != nil {
			// The embedded prompts are validated by tests.
			panic(err)
		}
		o.prompts = prompts
	}
	return o
}

// Metrics returns the per-stage pipeline metrics.
func (o *Orchestrator) Metrics() *observability.Metrics {
	return o.metrics
}

// ProcessConversationEnd folds a finished conversation into the agent memory
// and appends one ledger entry, atomically. The push to the voice agent runs
// after commit and never undoes it.
func (o *Orchestrator) ProcessConversationEnd(ctx context.Context, end *ConversationEnd) (*Outcome, error) {
	logger := observability.LoggerFromContext(ctx)
	if end == nil || len(end.Transcript) == 0 {
		return nil, apierrors.InvalidRequest("transcript is empty")
	}
	if end.AgentID == "" {
		if err := o.resolveAgent(ctx, end); err != nil {
			return nil, err
		}
	}
	if end.UserID == "" {
		return nil, apierrors.InvalidRequest("user id is required")
	}

	if !hasMessage(end.Transcript) {
		return nil, apierrors.InvalidRequest("transcript is empty")
	}
	conversation := elevenlabs.FormatTranscript(end.Transcript)

	var mood Mood
	var merged string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		done := o.track(StageMood)
		defer func() { done(err) }()
		mood, err = o.classifyMood(gctx, conversation)
		return err
	})
	g.Go(func() (err error) {
		done := o.track(StageMerge)
		defer func() { done(err) }()
		merged, err = o.mergeMemory(gctx, end.CurrentMemory, conversation)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if !mood.IsKnown() {
		logger.Warn("mood classifier returned a value outside the known set", slog.String("mood", string(mood)))
	}

	summary, err := o.summarize(ctx, conversation, mood)
	if err != nil {
		return nil, err
	}

	entry := &store.MemoryEntry{
		MemoryID:  o.newEntryID(),
		UserID:    end.UserID,
		AgentID:   end.AgentID,
		Text:      summary,
		Mood:      string(mood),
		CreatedTs: o.now().Unix(),
	}
	persistDone := o.track(StagePersist)
	err = o.store.RunInTx(ctx, func(tx *store.Store) error {
		agent, err := tx.UpdateAgent(ctx, &store.UpdateAgent{AgentID: end.AgentID, Memory: &merged})
		if err != nil {
			return err
		}
		if agent == nil {
			return apierrors.NotFound("Agent not found")
		}
		if end.ExternalAgentID == "" {
			end.ExternalAgentID = agent.ExternalAgentID
		}
		entry, err = tx.CreateMemoryEntry(ctx, entry)
		return err
	})
	persistDone(err)
	if err != nil {
		if _, ok := apierrors.As(err); ok {
			return nil, err
		}
		return nil, apierrors.Internal("failed to persist memory", err)
	}

	logger.Info("memory updated",
		slog.String("agent_id", end.AgentID),
		slog.String("memory_id", entry.MemoryID),
		slog.String("mood", string(mood)),
	)

	return &Outcome{
		Memory:  merged,
		Mood:    mood,
		Summary: summary,
		Entry:   entry,
		Synced:  o.push(ctx, end.ExternalAgentID, merged),
	}, nil
}

func (o *Orchestrator) resolveAgent(ctx context.Context, end *ConversationEnd) error {
	if end.ExternalAgentID == "" {
		return apierrors.InvalidRequest("agent id is required")
	}
	agent, err := o.store.GetAgentByExternalID(ctx, end.ExternalAgentID)
	if err != nil {
		return apierrors.Internal("failed to load agent", err)
	}
	if agent == nil {
		return apierrors.NotFound("Agent not found")
	}
	end.AgentID = agent.AgentID
	end.UserID = agent.UserID
	end.CurrentMemory = agent.Memory
	return nil
}

// push runs detached from ctx so a finished request does not cancel it.
func (o *Orchestrator) push(ctx context.Context, externalAgentID, memory string) <-chan error {
	synced := make(chan error, 1)
	if o.gateway == nil || externalAgentID == "" {
		close(synced)
		return synced
	}
	logger := observability.LoggerFromContext(ctx)
	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.pushTimeout)
	go func() {
		defer close(synced)
		defer cancel()
		done := o.track(StagePush)
		err := o.gateway.LoadMemory(pushCtx, externalAgentID, memory)
		done(err)
		if err != nil {
			logger.Warn("failed to push memory to agent",
				slog.String("external_agent_id", externalAgentID),
				slog.String("error", err.Error()),
			)
		}
		synced <- err
	}()
	return synced
}

func (o *Orchestrator) classifyMood(ctx context.Context, conversation string) (Mood, error) {
	reply, err := o.lightLLM.Chat(ctx, o.prompts.Mood.Messages(map[string]string{"conversation": conversation}))
	if err != nil {
		return "", apierrors.UpstreamFailure("mood classification failed", err)
	}
	mood, _ := ParseMood(reply)
	return mood, nil
}

func (o *Orchestrator) mergeMemory(ctx context.Context, current, conversation string) (string, error) {
	reply, err := o.mergeLLM.Chat(ctx, o.prompts.Merge.Messages(map[string]string{
		"memory":       current,
		"conversation": conversation,
	}))
	if err != nil {
		return "", apierrors.UpstreamFailure("memory merge failed", err)
	}
	if strings.TrimSpace(reply) == "" {
		return "", apierrors.UpstreamFailure("memory merge returned no content", nil)
	}
	return NormalizeMemory(reply, current), nil
}

func (o *Orchestrator) summarize(ctx context.Context, conversation string, mood Mood) (summary string, err error) {
	done := o.track(StageSummary)
	defer func() { done(err) }()
	reply, err := o.lightLLM.Chat(ctx, o.prompts.Summary.Messages(map[string]string{
		"conversation": conversation,
		"mood":         mood.Name(),
	}))
	if err != nil {
		return "", apierrors.UpstreamFailure("summary failed", err)
	}
	return strings.TrimSpace(reply), nil
}

func (o *Orchestrator) track(stage string) func(error) {
	return o.metrics.Track(stage)
}

// hasMessage reports whether any turn carries non-blank text.
func hasMessage(turns []Turn) bool {
	for _, turn := range turns {
		if strings.TrimSpace(turn.Message) != "" {
			return true
		}
	}
	return false
}
