// Tool-calling loop implementation.
//
// Information Hiding:
// - Round state machine hidden
// - LLM communication hidden
// - Tool dispatch coordination hidden
// - Usage accounting hidden

package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/richinex/tether/internal/observe"
	"github.com/richinex/tether/llm"
	"github.com/richinex/tether/storage"
	"github.com/richinex/tether/tools"
)

// Agent drives the model through rounds of tool calls until it answers.
type Agent struct {
	config         Config
	llmClient      *llm.Client
	dispatcher     *tools.Dispatcher
	logger         *slog.Logger
	sink           storage.UsageSink
	metrics        *observe.Metrics
	modelTimeout   time.Duration
	conversationID string
	out            io.Writer
}

// Option configures an Agent.
type Option func(*Agent)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) { a.logger = logger }
}

// WithUsageSink records the usage of every round in sink.
func WithUsageSink(sink storage.UsageSink) Option {
	return func(a *Agent) { a.sink = sink }
}

// WithMetrics sets the metric instruments. Defaults to the global provider.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *Agent) { a.metrics = m }
}

// WithModelTimeout bounds each model call. Zero means no bound.
func WithModelTimeout(d time.Duration) Option {
	return func(a *Agent) { a.modelTimeout = d }
}

// WithConversationID sets the id recorded with usage rows. Defaults to a
// random UUID per run.
func WithConversationID(id string) Option {
	return func(a *Agent) { a.conversationID = id }
}

// WithOutput prints per-round token counts to w.
func WithOutput(w io.Writer) Option {
	return func(a *Agent) { a.out = w }
}

// New creates an agent. The dispatcher's registry supplies the tool schemas
// sent to the model.
func New(config Config, provider llm.Provider, dispatcher *tools.Dispatcher, opts ...Option) (*Agent, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("agent: invalid config: %w", err)
	}
	if provider == nil {
		return nil, errors.New("agent: provider is required")
	}
	if dispatcher == nil {
		return nil, errors.New("agent: dispatcher is required")
	}

	a := &Agent{
		config:     config,
		dispatcher: dispatcher,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	a.logger = a.logger.With("agent", config.Name)
	a.llmClient = llm.NewClient(provider).WithTimeout(a.modelTimeout)
	return a, nil
}

// Name returns the agent's name.
func (a *Agent) Name() string {
	return a.config.Name
}

// Run executes the loop for one prompt. It returns an error only when the
// model call fails or ctx is done before a round starts; tool failures are
// fed back to the model. Reaching the round limit is reported through
// Response.Outcome, not as an error.
func (a *Agent) Run(ctx context.Context, prompt string) (Response, error) {
	conversationID := a.conversationID
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	conv := NewConversation(prompt)
	definitions := a.dispatcher.Registry().Definitions()
	resp := Response{ConversationID: conversationID}
	logger := a.logger.With("conversation_id", conversationID)

	finish := func(outcome Outcome) Response {
		resp.Outcome = outcome
		resp.Conversation = conv.Messages()
		a.metrics.RecordRun(ctx, outcome.String())
		return resp
	}
	fail := func(err error) (Response, error) {
		resp.Conversation = conv.Messages()
		a.metrics.RecordRun(ctx, observe.StatusError)
		return resp, err
	}

	for round := 1; round <= a.config.MaxRounds; round++ {
		if err := ctx.Err(); err != nil {
			return fail(fmt.Errorf("agent: cancelled before round %d: %w", round, err))
		}
		logger.Debug("round start", "round", round, "messages", conv.Len())

		start := time.Now()
		reply, err := a.llmClient.Generate(ctx, conv.Messages(), definitions, a.config.SystemPrompt)
		elapsed := time.Since(start)
		a.metrics.RecordModelRequest(ctx, a.llmClient.Provider().Name(), observe.Status(err), elapsed)
		if err != nil {
			return fail(fmt.Errorf("agent: round %d: %w", round, err))
		}
		resp.Rounds = round
		logger.Debug("model replied", "round", round, "candidates", len(reply.Candidates), "duration", elapsed)

		if reply.Usage != nil {
			resp.Usage.Add(*reply.Usage)
			a.recordUsage(ctx, logger, conversationID, *reply.Usage)
		}

		if len(reply.Candidates) == 0 {
			logger.Warn("model returned no candidates", "round", round)
			a.metrics.RecordRound(ctx)
			continue
		}

		// Each candidate's results follow it directly in the conversation.
		var texts []string
		called := false
		for _, candidate := range reply.Candidates {
			conv.Append(candidate)
			if text := candidate.Text(); text != "" {
				texts = append(texts, text)
			}
			for _, call := range candidate.Calls() {
				called = true
				conv.Append(llm.ToolMessage(a.dispatcher.Dispatch(ctx, call)))
			}
		}
		a.metrics.RecordRound(ctx)

		if !called {
			resp.Answer = strings.Join(texts, "\n")
			logger.Debug("final answer", "round", round)
			return finish(Terminated), nil
		}
	}

	logger.Warn("round limit reached", "max_rounds", a.config.MaxRounds)
	return finish(LimitExceeded), nil
}

// recordUsage reports one round's usage. Sink failures are logged only.
func (a *Agent) recordUsage(ctx context.Context, logger *slog.Logger, conversationID string, usage llm.TokenUsage) {
	a.metrics.RecordTokens(ctx, usage.PromptTokens, usage.ResponseTokens)

	if a.out != nil {
		fmt.Fprintf(a.out, "Prompt tokens: %d\nResponse tokens: %d\n", usage.PromptTokens, usage.ResponseTokens)
	}

	if a.sink == nil {
		return
	}
	rec := storage.UsageRecord{
		ConversationID: conversationID,
		PromptTokens:   int64(usage.PromptTokens),
		ResponseTokens: int64(usage.ResponseTokens),
		TotalTokens:    int64(usage.TotalTokens),
	}
	if err := a.sink.Record(ctx, rec); err != nil {
		logger.Warn("failed to record usage", "error", err)
	}
}
