package cli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/haivivi/audiobook/pkg/speech"
)

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"", ""},
		{"1234", "****"},
		{"12345678", "********"},
		{"123456789", "1234*6789"},
		{"sk-1234567890abcdef", "sk-1***********cdef"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := MaskAPIKey(tt.key); got != tt.want {
				t.Errorf("MaskAPIKey(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func newConfig(t *testing.T) *Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audiobook", "config.yaml")
	cfg, err := LoadConfigWithPath("audiobook", path)
	if err != nil {
		t.Fatalf("LoadConfigWithPath: %v", err)
	}
	return cfg
}

func TestLoadConfigWithPath_NewConfig(t *testing.T) {
	cfg := newConfig(t)
	if _, err := os.Stat(cfg.Path()); err != nil {
		t.Fatalf("config file not created: %v", err)
	}
	if len(cfg.Contexts) != 0 || cfg.CurrentContext != "" {
		t.Fatalf("new config = %+v", cfg)
	}
	if cfg.Dir() != filepath.Dir(cfg.Path()) {
		t.Fatalf("Dir = %q", cfg.Dir())
	}
}

func TestConfig_ContextRoundTrip(t *testing.T) {
	cfg := newConfig(t)

	if err := cfg.AddContext("aws", &Context{
		Provider:  "polly",
		Voice:     "polly/Matthew",
		AccessKey: "AKIA0000",
		SecretKey: "secret",
		Engine:    "neural",
		RateLimit: 60,
	}); err != nil {
		t.Fatalf("AddContext: %v", err)
	}
	if cfg.CurrentContext != "aws" {
		t.Fatalf("first context not current: %q", cfg.CurrentContext)
	}
	if err := cfg.AddContext("mm", &Context{Provider: "minimax", APIKey: "k", Format: "wav"}); err != nil {
		t.Fatalf("AddContext: %v", err)
	}
	if err := cfg.UseContext("mm"); err != nil {
		t.Fatalf("UseContext: %v", err)
	}

	loaded, err := LoadConfigWithPath("audiobook", cfg.Path())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.CurrentContext != "mm" {
		t.Fatalf("CurrentContext = %q", loaded.CurrentContext)
	}
	if got := loaded.ListContexts(); len(got) != 2 || got[0] != "aws" || got[1] != "mm" {
		t.Fatalf("ListContexts = %v", got)
	}
	aws, err := loaded.ResolveContext("aws")
	if err != nil {
		t.Fatal(err)
	}
	if aws.Name != "aws" || aws.Voice != "polly/Matthew" || aws.Engine != "neural" || aws.RateLimit != 60 {
		t.Fatalf("aws = %+v", aws)
	}
	cur, err := loaded.ResolveContext("")
	if err != nil || cur.Name != "mm" || cur.FormatOrDefault() != speech.FormatWAV {
		t.Fatalf("current = %+v, %v", cur, err)
	}

	if err := loaded.DeleteContext("mm"); err != nil {
		t.Fatalf("DeleteContext: %v", err)
	}
	if loaded.CurrentContext != "" {
		t.Fatal("deleting the current context did not clear it")
	}
	if err := loaded.DeleteContext("mm"); err == nil {
		t.Fatal("DeleteContext of a missing context succeeded")
	}
	if err := loaded.UseContext("nope"); err == nil {
		t.Fatal("UseContext of a missing context succeeded")
	}
	if _, err := loaded.ResolveContext("nope"); err == nil {
		t.Fatal("ResolveContext of a missing context succeeded")
	}
}

func TestConfig_ResolveContextEmpty(t *testing.T) {
	ctx, err := newConfig(t).ResolveContext("")
	if err != nil {
		t.Fatalf("ResolveContext: %v", err)
	}
	if ctx.ProviderName() != DefaultProvider || ctx.VoiceOrDefault() != DefaultVoice || ctx.FormatOrDefault() != DefaultFormat {
		t.Fatalf("defaults = %s %s %s", ctx.ProviderName(), ctx.VoiceOrDefault(), ctx.FormatOrDefault())
	}
}

func TestContext_Validate(t *testing.T) {
	tests := []struct {
		name string
		ctx  Context
		want error
	}{
		{"empty", Context{}, nil},
		{"ok", Context{Provider: "OpenAI", Voice: "openai/alloy", Format: "mp3"}, nil},
		{"provider", Context{Provider: "festival"}, speech.ErrUnknownProvider},
		{"voice", Context{Voice: "Joanna"}, speech.ErrInvalidVoice},
		{"format", Context{Format: "ogg"}, speech.ErrUnsupportedFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ctx.Validate()
			if tt.want == nil && err != nil {
				t.Fatalf("Validate: %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("Validate = %v, want %v", err, tt.want)
			}
		})
	}
	if err := (&Context{Timeout: -1}).Validate(); err == nil {
		t.Fatal("negative timeout accepted")
	}
}

func TestContext_Apply(t *testing.T) {
	env := map[string]string{
		EnvPollyAccessKey: "env-ak",
		EnvPollySecretKey: "env-sk",
		EnvAWSRegion:      "eu-west-1",
		EnvMiniMaxAPIKey:  "mm-key",
		EnvOpenAIAPIKey:   "oa-key",
	}
	getenv := func(k string) string { return env[k] }

	ctx := &Context{AccessKey: "ctx-ak"}
	ctx.Apply(getenv)
	if ctx.AccessKey != "ctx-ak" || ctx.SecretKey != "env-sk" || ctx.Region != "eu-west-1" {
		t.Fatalf("polly = %+v", ctx)
	}
	if ctx.APIKey != "" {
		t.Fatalf("polly context picked up API key %q", ctx.APIKey)
	}

	ctx = &Context{Voice: "openai/nova"}
	ctx.Apply(getenv)
	if ctx.ProviderName() != "openai" || ctx.APIKey != "oa-key" {
		t.Fatalf("openai = %+v", ctx)
	}
}

func TestContext_Credentials(t *testing.T) {
	ctx := &Context{APIKey: "k", BaseURL: "http://x", Model: "m", Timeout: 30, Region: "r"}
	c := ctx.Credentials()
	if c.APIKey != "k" || c.BaseURL != "http://x" || c.Model != "m" || c.Region != "r" || c.Timeout != 30*time.Second {
		t.Fatalf("Credentials = %+v", c)
	}
	m := (&Context{APIKey: "sk-1234567890abcdef", SecretKey: "abc"}).Masked()
	if m.APIKey != "sk-1***********cdef" || m.SecretKey != "***" {
		t.Fatalf("Masked = %+v", m)
	}
}

func TestPaths(t *testing.T) {
	t.Setenv(EnvHome, "")
	t.Setenv("HOME", "/home/reader")
	if got, err := DefaultConfigPath("audiobook"); err != nil || got != "/home/reader/.audiobook/audiobook/config.yaml" {
		t.Errorf("DefaultConfigPath = %q, %v", got, err)
	}
	t.Setenv(EnvHome, "/srv/books")
	if got, _ := DefaultConfigPath("audiobook"); got != "/srv/books/audiobook/config.yaml" {
		t.Errorf("DefaultConfigPath with %s = %q", EnvHome, got)
	}

	cfg := newConfig(t)
	if cfg.LogDir() != filepath.Join(cfg.Dir(), "logs") || cfg.JournalDir() != filepath.Join(cfg.Dir(), "journal") {
		t.Errorf("LogDir = %q, JournalDir = %q", cfg.LogDir(), cfg.JournalDir())
	}
}
