package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/richinex/tether/config"
	"github.com/richinex/tether/llm"
	"github.com/richinex/tether/tools"
)

type replayProvider struct {
	reply llm.Response
}

func (p *replayProvider) Name() string  { return "replay" }
func (p *replayProvider) Model() string { return "replay-1" }
func (p *replayProvider) Generate(context.Context, []llm.Message, []llm.ToolDefinition, string) (llm.Response, error) {
	return p.reply, nil
}

func providerOf(p llm.Provider) ProviderFactory {
	return func(config.Settings) (llm.Provider, error) { return p, nil }
}

// testOptions isolates a run from the host environment and working dir.
func testOptions(t *testing.T) (Options, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	for _, k := range []string{
		"TETHER_PROVIDER", "TETHER_MAX_ROUNDS", "TETHER_MODEL_TIMEOUT", "TETHER_SANDBOX_ROOT",
		"TETHER_SCRIPT_TIMEOUT", "TETHER_MAX_FILE_CHARS", "TETHER_LOG_FILE", "TETHER_LOG_LEVEL",
		"LLM_MAX_TOKENS", "LLM_TEMPERATURE", "GEMINI_MODEL",
	} {
		t.Setenv(k, "")
	}
	t.Setenv("TETHER_STATS_DB", filepath.Join(t.TempDir(), "stats.db"))

	var stdout, stderr bytes.Buffer
	return Options{
		Root:   t.TempDir(),
		Stdout: &stdout,
		Stderr: &stderr,
	}, &stdout, &stderr
}

func finalAnswer(text string) llm.Response {
	return llm.Response{
		Candidates: []llm.Message{llm.ModelMessage(text)},
		Usage:      &llm.TokenUsage{PromptTokens: 10, ResponseTokens: 3, TotalTokens: 13},
	}
}

func TestRunMissingPrompt(t *testing.T) {
	opts, _, _ := testOptions(t)
	if err := Run(context.Background(), "", opts); !errors.Is(err, ErrMissingPrompt) {
		t.Errorf("err = %v, want ErrMissingPrompt", err)
	}
}

func TestRunMissingAPIKey(t *testing.T) {
	opts, _, _ := testOptions(t)
	t.Setenv("GEMINI_API_KEY", "")

	err := Run(context.Background(), "hello", opts)
	if err == nil || !strings.Contains(err.Error(), "GEMINI_API_KEY") {
		t.Errorf("err = %v, want missing key error", err)
	}
}

func TestRunPrintsFinalAnswer(t *testing.T) {
	opts, stdout, _ := testOptions(t)
	opts.NewProvider = providerOf(&replayProvider{reply: finalAnswer("All done.")})

	if err := Run(context.Background(), "hello", opts); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := stdout.String(); got != "Final response:\nAll done.\n" {
		t.Errorf("stdout = %q", got)
	}

	// The run was recorded in the stats database.
	var report bytes.Buffer
	opts.Stdout = &report
	if err := Usage(context.Background(), opts); err != nil {
		t.Fatalf("Usage: %v", err)
	}
	if !strings.Contains(report.String(), "13 / 1000000") {
		t.Errorf("usage report = %q", report.String())
	}
}

func TestRunLimitExceededIsNotAnError(t *testing.T) {
	opts, stdout, stderr := testOptions(t)
	opts.MaxRounds = 2
	opts.NewProvider = providerOf(&replayProvider{reply: llm.Response{
		Candidates: []llm.Message{llm.ModelMessage("", llm.ToolCall{ID: "1", Name: tools.ListFilesToolName})},
	}})

	if err := Run(context.Background(), "loop", opts); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(stderr.String(), "Error: maximum rounds reached without a final answer (2 rounds)") {
		t.Errorf("stderr = %q", stderr.String())
	}
	if n := strings.Count(stdout.String(), " - Calling function: get_files_info\n"); n != 2 {
		t.Errorf("diagnostic line printed %d times, want 2:\n%s", n, stdout.String())
	}
	if strings.Contains(stdout.String(), "Final response") {
		t.Error("limit exceeded must not print a final response")
	}
}

func TestRunVerbose(t *testing.T) {
	opts, stdout, _ := testOptions(t)
	opts.Verbose = true
	opts.NewProvider = providerOf(&replayProvider{reply: finalAnswer("ok")})

	if err := Run(context.Background(), "hello", opts); err != nil {
		t.Fatalf("Run: %v", err)
	}
	out := stdout.String()
	for _, want := range []string{
		"User prompt: hello\n",
		"Agent: tether, provider: replay (replay-1), sandbox: ",
		"Prompt tokens: 10\nResponse tokens: 3\n",
		"Final response:\nok\n",
		"Usage stats:\n",
		"Rounds: 1, model requests: 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("verbose output missing %q:\n%s", want, out)
		}
	}
}

func TestRunRejectsBadRoot(t *testing.T) {
	opts, _, _ := testOptions(t)
	opts.Root = filepath.Join(t.TempDir(), "missing")
	opts.NewProvider = providerOf(&replayProvider{reply: finalAnswer("ok")})

	if err := Run(context.Background(), "hello", opts); err == nil {
		t.Error("expected error for missing sandbox root")
	}
}

func TestListTools(t *testing.T) {
	opts, stdout, _ := testOptions(t)

	if err := ListTools(opts, true); err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	out := stdout.String()
	for _, name := range []string{
		tools.ListFilesToolName, tools.ReadFileToolName, tools.RunScriptToolName, tools.WriteFileToolName,
	} {
		if !strings.Contains(out, "  "+name+"\n") {
			t.Errorf("tool %s not listed", name)
		}
	}
	if !strings.Contains(out, "file_path*: string") {
		t.Errorf("verbose listing should mark required params:\n%s", out)
	}
}

func TestNewLoggerWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "tether.log")
	var stderr bytes.Buffer

	logger, closeLog, err := newLogger(&stderr, config.LogConfig{Level: "info", File: path}, false)
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("visible", "round", 1)
	if err := closeLog(); err != nil {
		t.Fatal(err)
	}

	if strings.Contains(stderr.String(), "hidden") || !strings.Contains(stderr.String(), "visible") {
		t.Errorf("stderr = %q", stderr.String())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &entry); err != nil {
		t.Fatalf("log file is not one JSON line: %v\n%s", err, data)
	}
	if entry["msg"] != "visible" || entry["round"] != float64(1) {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestNewLoggerVerboseEnablesDebug(t *testing.T) {
	var stderr bytes.Buffer
	logger, _, err := newLogger(&stderr, config.LogConfig{Level: "warn"}, true)
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug("round start")
	if !strings.Contains(stderr.String(), "round start") {
		t.Error("verbose should log at debug level")
	}
}
