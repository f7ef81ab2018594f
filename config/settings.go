// Package config provides application settings.
//
// Settings are resolved in three layers, later layers winning:
// - built-in defaults
// - an optional YAML file
// - environment variables
//
// The provider chosen on the command line, when given, overrides all three.

package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/richinex/tether/storage"
	"github.com/richinex/tether/tools"
	"gopkg.in/yaml.v3"
)

// Settings holds all application configuration.
type Settings struct {
	LLM     LLMConfig     `yaml:"llm"`
	Agent   AgentConfig   `yaml:"agent"`
	Sandbox SandboxConfig `yaml:"sandbox"`
	Stats   StatsConfig   `yaml:"stats"`
	Log     LogConfig     `yaml:"log"`
}

// LLMConfig holds LLM provider configuration.
type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	MaxTokens   uint32  `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// AgentConfig holds agent loop configuration.
type AgentConfig struct {
	MaxRounds int `yaml:"max_rounds"`
	// ModelTimeout bounds each model call. Zero leaves it to the provider.
	ModelTimeout time.Duration `yaml:"model_timeout"`
}

// SandboxConfig holds the tool sandbox configuration.
type SandboxConfig struct {
	Root          string        `yaml:"root"`
	ScriptTimeout time.Duration `yaml:"script_timeout"`
	Interpreter   string        `yaml:"interpreter"`
	Extension     string        `yaml:"extension"`
	MaxFileChars  int           `yaml:"max_file_chars"`
	Exclude       []string      `yaml:"exclude"`
}

// StatsConfig holds the usage sink configuration.
type StatsConfig struct {
	DB       string         `yaml:"db"`
	Disabled bool           `yaml:"disabled"`
	Limits   storage.Limits `yaml:"limits"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// SlogLevel parses Level.
func (c LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return 0, fmt.Errorf("log.level %q is invalid; valid values: debug, info, warn, error", c.Level)
	}
	return level, nil
}

// providerInfo holds configuration for a specific LLM provider.
type providerInfo struct {
	modelEnv     string
	defaultModel string
	apiKeyEnv    string
}

// Supported providers and their configuration.
var providers = map[string]providerInfo{
	"openai":    {"OPENAI_MODEL", "gpt-4o", "OPENAI_API_KEY"},
	"anthropic": {"ANTHROPIC_MODEL", "claude-sonnet-4-20250514", "ANTHROPIC_API_KEY"},
	"deepseek":  {"DEEPSEEK_MODEL", "deepseek-chat", "DEEPSEEK_API_KEY"},
	"gemini":    {"GEMINI_MODEL", "gemini-2.0-flash-001", "GEMINI_API_KEY"},
}

// Provider aliases map to canonical names.
var providerAliases = map[string]string{
	"claude": "anthropic",
	"google": "gemini",
	"gpt":    "openai",
}

// DefaultProvider is used when neither file, environment nor flag names one.
const DefaultProvider = "gemini"

// Defaults returns the built-in settings. The model is left empty and
// resolved from the provider.
func Defaults() Settings {
	return Settings{
		LLM: LLMConfig{
			Provider:    DefaultProvider,
			MaxTokens:   4096,
			Temperature: 0.7,
		},
		Agent: AgentConfig{
			MaxRounds: 15,
		},
		Sandbox: SandboxConfig{
			Root:          ".",
			ScriptTimeout: tools.DefaultScriptTimeout,
			Interpreter:   tools.DefaultInterpreter,
			Extension:     tools.DefaultScriptExtension,
			MaxFileChars:  tools.DefaultReadLimit,
			Exclude:       append([]string(nil), tools.DefaultExcludedNames...),
		},
		Stats: StatsConfig{
			DB:     ".tether/stats.db",
			Limits: storage.DefaultLimits(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// New creates settings for the specified provider from defaults and
// environment variables. An empty provider keeps the configured one.
func New(provider string) (Settings, error) {
	return Load("", provider)
}

// Load resolves settings from defaults, the YAML file at path (skipped when
// path is empty) and the environment. A non-empty provider overrides the
// resolved provider.
func Load(path, provider string) (Settings, error) {
	s := Defaults()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return Settings{}, fmt.Errorf("config: open %q: %w", path, err)
		}
		defer f.Close()
		if err := decodeYAML(f, &s); err != nil {
			return Settings{}, fmt.Errorf("config: parse %q: %w", path, err)
		}
	}

	return resolve(s, provider)
}

// LoadFromReader is Load with the YAML read from r.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader, provider string) (Settings, error) {
	s := Defaults()
	if err := decodeYAML(r, &s); err != nil {
		return Settings{}, err
	}
	return resolve(s, provider)
}

func decodeYAML(r io.Reader, s *Settings) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(s); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: decode yaml: %w", err)
	}
	return nil
}

func resolve(s Settings, provider string) (Settings, error) {
	configured := normalizeProvider(s.LLM.Provider)
	if err := applyEnv(&s); err != nil {
		return Settings{}, err
	}
	if provider != "" {
		s.LLM.Provider = provider
	}
	s.LLM.Provider = normalizeProvider(s.LLM.Provider)
	if s.LLM.Provider != configured {
		// A configured model belongs to the configured provider.
		s.LLM.Model = ""
	}

	info, err := getProviderInfo(s.LLM.Provider)
	if err != nil {
		return Settings{}, err
	}
	if model := os.Getenv(info.modelEnv); model != "" {
		s.LLM.Model = model
	}
	if s.LLM.Model == "" {
		s.LLM.Model = info.defaultModel
	}

	if err := Validate(&s); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// applyEnv overlays environment variables onto s.
func applyEnv(s *Settings) error {
	var err error
	if v := os.Getenv("TETHER_PROVIDER"); v != "" {
		s.LLM.Provider = v
	}
	if s.LLM.MaxTokens, err = getEnvUint32("LLM_MAX_TOKENS", s.LLM.MaxTokens); err != nil {
		return err
	}
	if s.LLM.Temperature, err = getEnvFloat64("LLM_TEMPERATURE", s.LLM.Temperature); err != nil {
		return err
	}
	if s.Agent.MaxRounds, err = getEnvInt("TETHER_MAX_ROUNDS", s.Agent.MaxRounds); err != nil {
		return err
	}
	if s.Agent.ModelTimeout, err = getEnvDuration("TETHER_MODEL_TIMEOUT", s.Agent.ModelTimeout); err != nil {
		return err
	}
	if v := os.Getenv("TETHER_SANDBOX_ROOT"); v != "" {
		s.Sandbox.Root = v
	}
	if s.Sandbox.ScriptTimeout, err = getEnvDuration("TETHER_SCRIPT_TIMEOUT", s.Sandbox.ScriptTimeout); err != nil {
		return err
	}
	if s.Sandbox.MaxFileChars, err = getEnvInt("TETHER_MAX_FILE_CHARS", s.Sandbox.MaxFileChars); err != nil {
		return err
	}
	if v := os.Getenv("TETHER_STATS_DB"); v != "" {
		s.Stats.DB = v
	}
	if v := os.Getenv("TETHER_LOG_FILE"); v != "" {
		s.Log.File = v
	}
	if v := os.Getenv("TETHER_LOG_LEVEL"); v != "" {
		s.Log.Level = v
	}
	return nil
}

// Validate checks that s contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(s *Settings) error {
	var errs []error

	if _, err := getProviderInfo(normalizeProvider(s.LLM.Provider)); err != nil {
		errs = append(errs, err)
	}
	if s.LLM.Temperature < 0 || s.LLM.Temperature > 2 {
		errs = append(errs, fmt.Errorf("llm.temperature %v must be between 0 and 2", s.LLM.Temperature))
	}
	if s.Agent.MaxRounds < 1 {
		errs = append(errs, fmt.Errorf("agent.max_rounds must be at least 1, got %d", s.Agent.MaxRounds))
	}
	if s.Agent.ModelTimeout < 0 {
		errs = append(errs, fmt.Errorf("agent.model_timeout cannot be negative, got %s", s.Agent.ModelTimeout))
	}
	if s.Sandbox.Root == "" {
		errs = append(errs, errors.New("sandbox.root cannot be empty"))
	}
	if s.Sandbox.ScriptTimeout <= 0 {
		errs = append(errs, fmt.Errorf("sandbox.script_timeout must be positive, got %s", s.Sandbox.ScriptTimeout))
	}
	if s.Sandbox.Interpreter == "" {
		errs = append(errs, errors.New("sandbox.interpreter cannot be empty"))
	}
	if s.Sandbox.MaxFileChars < 1 {
		errs = append(errs, fmt.Errorf("sandbox.max_file_chars must be at least 1, got %d", s.Sandbox.MaxFileChars))
	}
	if !s.Stats.Disabled && s.Stats.DB == "" {
		errs = append(errs, errors.New("stats.db cannot be empty unless stats.disabled is set"))
	}
	if _, err := s.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// normalizeProvider converts provider aliases to canonical names.
func normalizeProvider(provider string) string {
	provider = strings.ToLower(provider)
	if canonical, ok := providerAliases[provider]; ok {
		return canonical
	}
	return provider
}

// getProviderInfo returns configuration for a provider.
func getProviderInfo(provider string) (providerInfo, error) {
	info, ok := providers[provider]
	if !ok {
		return providerInfo{}, fmt.Errorf("unknown provider: %q", provider)
	}
	return info, nil
}

// APIKeyFor returns the API key for a provider from environment variables.
func APIKeyFor(provider string) (string, error) {
	provider = normalizeProvider(provider)

	info, err := getProviderInfo(provider)
	if err != nil {
		return "", err
	}

	key := os.Getenv(info.apiKeyEnv)
	if key == "" {
		return "", fmt.Errorf("%s environment variable not set", info.apiKeyEnv)
	}
	return key, nil
}

// ModelFor returns the model for a provider, checking environment first.
func ModelFor(provider string) (string, error) {
	provider = normalizeProvider(provider)

	info, err := getProviderInfo(provider)
	if err != nil {
		return "", err
	}

	if val := os.Getenv(info.modelEnv); val != "" {
		return val, nil
	}
	return info.defaultModel, nil
}

// SupportedProviders returns the supported provider names, sorted.
func SupportedProviders() []string {
	result := make([]string, 0, len(providers))
	for name := range providers {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// Environment variable helpers with proper error handling

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return i, nil
}

func getEnvUint32(key string, defaultVal uint32) (uint32, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return uint32(i), nil
}

func getEnvFloat64(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return f, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return d, nil
}
