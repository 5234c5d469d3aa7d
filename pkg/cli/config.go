package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/haivivi/audiobook/pkg/speech"
)

const (
	// DefaultBaseDir is the directory below $HOME holding per-app
	// configuration.
	DefaultBaseDir = ".audiobook"
	// DefaultConfigFile is the configuration file name.
	DefaultConfigFile = "config.yaml"
	// EnvHome overrides $HOME/DefaultBaseDir.
	EnvHome = "AUDIOBOOK_HOME"
)

// DefaultConfigPath returns <base>/<app>/config.yaml, where base is
// $AUDIOBOOK_HOME or ~/.audiobook.
func DefaultConfigPath(appName string) (string, error) {
	base := os.Getenv(EnvHome)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		base = filepath.Join(home, DefaultBaseDir)
	}
	return filepath.Join(base, appName, DefaultConfigFile), nil
}

// Environment variables read by Context.Apply.
const (
	EnvPollyAccessKey = "AMAZON_POLLY_ACCESS_KEY"
	EnvPollySecretKey = "AMAZON_POLLY_SECRET_ACCESS_KEY"
	EnvAWSRegion      = "AWS_REGION"
	EnvMiniMaxAPIKey  = "MINIMAX_API_KEY"
	EnvOpenAIAPIKey   = "OPENAI_API_KEY"
	EnvGeminiAPIKey   = "GEMINI_API_KEY"
)

// Defaults used when neither the context nor the command line sets a value.
const (
	DefaultProvider = "polly"
	DefaultVoice    = "polly/Joanna"
	DefaultFormat   = speech.FormatMP3
)

// Config represents the main configuration structure for a CLI app
type Config struct {
	// AppName is the application name
	AppName string `yaml:"-"`

	// CurrentContext is the name of the currently active context
	CurrentContext string `yaml:"current_context,omitempty"`

	// Contexts is a map of context name to context configuration
	Contexts map[string]*Context `yaml:"contexts,omitempty"`

	// configPath is the path to the config file
	configPath string
}

// Context is one named provider setup.
type Context struct {
	// Name is the context name
	Name string `yaml:"name"`

	// Provider is the speech provider: polly, minimax, openai or gemini.
	Provider string `yaml:"provider,omitempty"`

	// Voice is the default voice as provider/voice.
	Voice string `yaml:"voice,omitempty"`

	// Format is the default audio format, mp3 or wav.
	Format string `yaml:"format,omitempty"`

	// AccessKey and SecretKey are AWS credentials (polly).
	AccessKey string `yaml:"access_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty"`

	// Region is the AWS region (polly, publish).
	Region string `yaml:"region,omitempty"`

	// Engine is the Polly engine: standard, neural, long-form or generative.
	Engine string `yaml:"engine,omitempty"`

	// APIKey authenticates minimax, openai and gemini.
	APIKey string `yaml:"api_key,omitempty"`

	// BaseURL overrides the provider endpoint (optional).
	BaseURL string `yaml:"base_url,omitempty"`

	// Model is the provider model (optional).
	Model string `yaml:"model,omitempty"`

	// Timeout is the per-segment request timeout in seconds (optional)
	Timeout int `yaml:"timeout,omitempty"`

	// MaxRetries is the number of retries of a failed segment (optional)
	MaxRetries int `yaml:"max_retries,omitempty"`

	// RateLimit is the largest number of speech requests per minute
	// (optional, 0 is unlimited).
	RateLimit int `yaml:"rate_limit,omitempty"`

	// Bucket is the default S3 publish target, s3://bucket/prefix (optional).
	Bucket string `yaml:"bucket,omitempty"`
}

// LoadConfig loads or creates configuration for the specified app
func LoadConfig(appName string) (*Config, error) {
	return LoadConfigWithPath(appName, "")
}

// LoadConfigWithPath loads configuration from a custom path
func LoadConfigWithPath(appName, customPath string) (*Config, error) {
	configPath := customPath
	if configPath == "" {
		var err error
		if configPath, err = DefaultConfigPath(appName); err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	cfg := &Config{
		AppName:    appName,
		Contexts:   make(map[string]*Context),
		configPath: configPath,
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, cfg.Save()
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Contexts == nil {
		cfg.Contexts = make(map[string]*Context)
	}
	cfg.AppName = appName
	cfg.configPath = configPath
	return cfg, nil
}

// Save saves the configuration to disk
func (c *Config) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	// Contexts hold credentials.
	if err := os.WriteFile(c.configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Path returns the config file path
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the config directory path
func (c *Config) Dir() string {
	return filepath.Dir(c.configPath)
}

// LogDir returns the directory of the daily error logs, next to the
// config file.
func (c *Config) LogDir() string {
	return filepath.Join(c.Dir(), "logs")
}

// JournalDir returns the directory of the conversion history database,
// next to the config file.
func (c *Config) JournalDir() string {
	return filepath.Join(c.Dir(), "journal")
}

// AddContext adds or replaces a context. The first context added becomes
// the current one.
func (c *Config) AddContext(name string, ctx *Context) error {
	if err := ctx.Validate(); err != nil {
		return err
	}
	ctx.Name = name
	c.Contexts[name] = ctx
	if c.CurrentContext == "" {
		c.CurrentContext = name
	}
	return c.Save()
}

// DeleteContext removes a context
func (c *Config) DeleteContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("context %q not found", name)
	}
	delete(c.Contexts, name)
	if c.CurrentContext == name {
		c.CurrentContext = ""
	}
	return c.Save()
}

// UseContext sets the current context
func (c *Config) UseContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("context %q not found", name)
	}
	c.CurrentContext = name
	return c.Save()
}

// GetContext returns a specific context
func (c *Config) GetContext(name string) (*Context, error) {
	ctx, ok := c.Contexts[name]
	if !ok {
		return nil, fmt.Errorf("context %q not found", name)
	}
	return ctx, nil
}

// ResolveContext returns the context by name, or the current context if
// name is empty. Without either, it returns an empty context so that
// defaults and the environment apply.
func (c *Config) ResolveContext(name string) (*Context, error) {
	if name == "" {
		name = c.CurrentContext
	}
	if name == "" {
		return &Context{}, nil
	}
	return c.GetContext(name)
}

// ListContexts returns all context names in sorted order
func (c *Config) ListContexts() []string {
	names := make([]string, 0, len(c.Contexts))
	for name := range c.Contexts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks the fields that have a fixed set of values.
func (ctx *Context) Validate() error {
	if ctx.Provider != "" && !slices.Contains(speech.ProviderNames, strings.ToLower(ctx.Provider)) {
		return fmt.Errorf("%w: %q", speech.ErrUnknownProvider, ctx.Provider)
	}
	if ctx.Voice != "" {
		if _, err := speech.ParseVoice(ctx.Voice); err != nil {
			return err
		}
	}
	if ctx.Format != "" {
		if _, err := speech.ParseFormat(ctx.Format); err != nil {
			return err
		}
	}
	if ctx.Timeout < 0 || ctx.MaxRetries < 0 || ctx.RateLimit < 0 {
		return fmt.Errorf("timeout, max_retries and rate_limit must not be negative")
	}
	return nil
}

// Apply fills credentials the context leaves empty from getenv, usually
// os.Getenv.
func (ctx *Context) Apply(getenv func(string) string) {
	fill := func(dst *string, key string) {
		if *dst == "" {
			*dst = getenv(key)
		}
	}
	fill(&ctx.AccessKey, EnvPollyAccessKey)
	fill(&ctx.SecretKey, EnvPollySecretKey)
	fill(&ctx.Region, EnvAWSRegion)
	switch ctx.ProviderName() {
	case "minimax":
		fill(&ctx.APIKey, EnvMiniMaxAPIKey)
	case "openai":
		fill(&ctx.APIKey, EnvOpenAIAPIKey)
	case "gemini":
		fill(&ctx.APIKey, EnvGeminiAPIKey)
	}
}

// ProviderName returns the configured provider, the provider of the
// configured voice, or DefaultProvider.
func (ctx *Context) ProviderName() string {
	if ctx.Provider != "" {
		return strings.ToLower(ctx.Provider)
	}
	if v, err := speech.ParseVoice(ctx.Voice); err == nil {
		return v.Provider
	}
	return DefaultProvider
}

// VoiceOrDefault returns the configured voice or DefaultVoice.
func (ctx *Context) VoiceOrDefault() string {
	if ctx.Voice != "" {
		return ctx.Voice
	}
	return DefaultVoice
}

// FormatOrDefault returns the configured format or DefaultFormat.
func (ctx *Context) FormatOrDefault() speech.Format {
	if f, err := speech.ParseFormat(ctx.Format); err == nil {
		return f
	}
	return DefaultFormat
}

// TimeoutDuration returns the request timeout, zero if unset.
func (ctx *Context) TimeoutDuration() time.Duration {
	return time.Duration(ctx.Timeout) * time.Second
}

// Credentials returns the provider credentials of the context.
func (ctx *Context) Credentials() speech.Credentials {
	return speech.Credentials{
		AccessKey: ctx.AccessKey,
		SecretKey: ctx.SecretKey,
		Region:    ctx.Region,
		Engine:    ctx.Engine,
		APIKey:    ctx.APIKey,
		BaseURL:   ctx.BaseURL,
		Model:     ctx.Model,
		Timeout:   ctx.TimeoutDuration(),
	}
}

// MaskAPIKey masks the API key for display
func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}

// Masked returns a copy of ctx with secrets masked for display.
func (ctx *Context) Masked() *Context {
	m := *ctx
	m.SecretKey = MaskAPIKey(m.SecretKey)
	m.APIKey = MaskAPIKey(m.APIKey)
	return &m
}
