// Command execution for CLI commands.
//
// Information Hiding:
// - Settings, provider and sandbox wiring hidden
// - Usage sink lifecycle hidden
// - Output formatting hidden

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/richinex/tether/agent"
	"github.com/richinex/tether/config"
	"github.com/richinex/tether/internal/observe"
	"github.com/richinex/tether/llm"
	"github.com/richinex/tether/storage"
	"github.com/richinex/tether/tools"
)

// ErrMissingPrompt is returned when Run is called without a prompt.
var ErrMissingPrompt = errors.New("a prompt is required")

// ProviderFactory creates the model collaborator from resolved settings.
type ProviderFactory func(settings config.Settings) (llm.Provider, error)

// Options holds CLI execution options. Zero values defer to the settings.
type Options struct {
	Provider   string
	ConfigPath string
	MaxRounds  int
	Root       string
	Verbose    bool

	Stdout io.Writer
	Stderr io.Writer

	// NewProvider overrides provider construction. Nil builds the provider
	// named in the settings with its API key from the environment.
	NewProvider ProviderFactory
}

func (o Options) stdout() io.Writer {
	if o.Stdout == nil {
		return os.Stdout
	}
	return o.Stdout
}

func (o Options) stderr() io.Writer {
	if o.Stderr == nil {
		return os.Stderr
	}
	return o.Stderr
}

// loadSettings resolves settings and applies the flag overrides.
func loadSettings(opts Options) (config.Settings, error) {
	settings, err := config.Load(opts.ConfigPath, opts.Provider)
	if err != nil {
		return config.Settings{}, err
	}
	if opts.MaxRounds != 0 {
		settings.Agent.MaxRounds = opts.MaxRounds
	}
	if opts.Root != "" {
		settings.Sandbox.Root = opts.Root
	}
	if err := config.Validate(&settings); err != nil {
		return config.Settings{}, err
	}
	return settings, nil
}

// Run answers one prompt with the coding agent. Reaching the round limit
// is printed to stderr and is not an error.
func Run(ctx context.Context, prompt string, opts Options) error {
	if prompt == "" {
		return ErrMissingPrompt
	}

	settings, err := loadSettings(opts)
	if err != nil {
		return err
	}

	stdout, stderr := opts.stdout(), opts.stderr()
	logger, closeLog, err := newLogger(stderr, settings.Log, opts.Verbose)
	if err != nil {
		return err
	}
	defer closeLog()

	newProvider := opts.NewProvider
	if newProvider == nil {
		newProvider = createProvider
	}
	provider, err := newProvider(settings)
	if err != nil {
		return err
	}

	registry, sandbox, err := newRegistry(settings.Sandbox)
	if err != nil {
		return err
	}

	metrics := observe.DefaultMetrics()
	var collector *observe.Collector
	if opts.Verbose {
		collector, err = observe.NewCollector()
		if err != nil {
			return fmt.Errorf("create metrics collector: %w", err)
		}
		defer collector.Shutdown(context.Background())
		metrics = collector.Metrics
	}

	dispatcher := tools.NewDispatcher(registry,
		tools.WithOutput(stdout),
		tools.WithVerbose(opts.Verbose),
		tools.WithDispatchLogger(logger),
		tools.WithDispatchMetrics(metrics),
	)

	agentOpts := []agent.Option{
		agent.WithLogger(logger),
		agent.WithMetrics(metrics),
		agent.WithModelTimeout(settings.Agent.ModelTimeout),
	}
	var sink storage.UsageSink
	if !settings.Stats.Disabled {
		db, err := storage.OpenSqlite(settings.Stats.DB)
		if err != nil {
			// Usage accounting is optional; the run proceeds without it.
			logger.Warn("usage stats disabled", "db", settings.Stats.DB, "error", err)
		} else {
			defer db.Close()
			sink = db
			agentOpts = append(agentOpts, agent.WithUsageSink(sink))
		}
	}
	if opts.Verbose {
		agentOpts = append(agentOpts, agent.WithOutput(stdout))
	}

	cfg := agent.NewBuilder("tether").MaxRounds(settings.Agent.MaxRounds).Build()
	a, err := agent.New(cfg, provider, dispatcher, agentOpts...)
	if err != nil {
		return err
	}

	if opts.Verbose {
		fmt.Fprintf(stdout, "User prompt: %s\n", prompt)
		fmt.Fprintf(stdout, "Agent: %s, provider: %s (%s), sandbox: %s\n", a.Name(), provider.Name(), provider.Model(), sandbox.Root())
	}

	resp, err := a.Run(ctx, prompt)
	if err != nil {
		return err
	}

	if resp.IsSuccess() {
		fmt.Fprintf(stdout, "Final response:\n%s\n", resp.Answer)
	} else {
		fmt.Fprintf(stderr, "Error: %v\n", resp.Err())
	}

	if opts.Verbose {
		printRunStats(ctx, stdout, logger, resp, sink, settings.Stats.Limits, collector)
	}
	return nil
}

// Usage prints the windowed usage report from the stats database.
func Usage(ctx context.Context, opts Options) error {
	settings, err := loadSettings(opts)
	if err != nil {
		return err
	}
	if settings.Stats.Disabled {
		return errors.New("usage stats are disabled")
	}

	db, err := storage.OpenSqlite(settings.Stats.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	report, err := storage.Report(ctx, db, settings.Stats.Limits)
	if err != nil {
		return err
	}
	fmt.Fprint(opts.stdout(), report.String())
	return nil
}

// ListTools lists the tools offered to the model.
func ListTools(opts Options, verbose bool) error {
	settings, err := loadSettings(opts)
	if err != nil {
		return err
	}
	registry, _, err := newRegistry(settings.Sandbox)
	if err != nil {
		return err
	}

	w := opts.stdout()
	fmt.Fprintln(w, "Available tools:")
	fmt.Fprintln(w)

	for _, meta := range registry.List() {
		fmt.Fprintf(w, "  %s\n", meta.Name)
		fmt.Fprintf(w, "    %s\n", meta.Description)

		if verbose && len(meta.Parameters) > 0 {
			fmt.Fprintln(w, "    Parameters:")
			for _, param := range meta.Parameters {
				req := ""
				if param.Required {
					req = "*"
				}
				fmt.Fprintf(w, "      %s%s: %s - %s\n", param.Name, req, param.ParamType, param.Description)
			}
		}
		fmt.Fprintln(w)
	}
	return nil
}

// Helper functions

func newSandbox(cfg config.SandboxConfig) (*tools.Sandbox, error) {
	return tools.NewSandbox(cfg.Root,
		tools.WithReadLimit(cfg.MaxFileChars),
		tools.WithExcludedNames(cfg.Exclude...),
		tools.WithInterpreter(cfg.Interpreter, cfg.Extension),
		tools.WithScriptTimeout(cfg.ScriptTimeout),
	)
}

func newRegistry(cfg config.SandboxConfig) (*tools.Registry, *tools.Sandbox, error) {
	sandbox, err := newSandbox(cfg)
	if err != nil {
		return nil, nil, err
	}
	registry, err := tools.WithDefaults(sandbox)
	if err != nil {
		return nil, nil, err
	}
	return registry, sandbox, nil
}

func createProvider(settings config.Settings) (llm.Provider, error) {
	providerType, err := llm.ParseProviderType(settings.LLM.Provider)
	if err != nil {
		return nil, err
	}

	apiKey, err := config.APIKeyFor(settings.LLM.Provider)
	if err != nil {
		return nil, err
	}

	return providerType.
		Model(settings.LLM.Model).
		MaxTokens(settings.LLM.MaxTokens).
		Temperature(float32(settings.LLM.Temperature)).
		APIKey(apiKey)
}

// printRunStats prints token totals, the usage report and the metric summary.
func printRunStats(ctx context.Context, w io.Writer, logger *slog.Logger, resp agent.Response, sink storage.UsageSink, limits storage.Limits, collector *observe.Collector) {
	fmt.Fprintf(w, "\nRounds: %d (%s)\n", resp.Rounds, resp.Outcome)
	fmt.Fprintf(w, "Total prompt tokens: %d\n", resp.Usage.PromptTokens)
	fmt.Fprintf(w, "Total response tokens: %d\n", resp.Usage.ResponseTokens)

	if sink != nil {
		report, err := storage.Report(ctx, sink, limits)
		if err != nil {
			logger.Warn("usage report failed", "error", err)
		} else {
			fmt.Fprint(w, report.String())
		}
	}

	if collector != nil {
		summary, err := collector.Summary(ctx)
		if err != nil {
			logger.Warn("metric summary failed", "error", err)
			return
		}
		summary.Print(w)
	}
}
