package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/haivivi/audiobook/pkg/cli"
	"github.com/haivivi/audiobook/pkg/speech"
)

const appName = "audiobook"

var (
	// Global flags
	cfgFile     string
	contextName string
	outputJSON  bool
	verbose     bool

	// Global configuration
	globalConfig *cli.Config

	// openProvider builds speech providers. Tests replace it.
	openProvider = speech.Open
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "audiobook",
	Short: "Convert documents into audiobooks",
	Long: `audiobook - turn PDF and text documents into a single audio file.

The text is split into segments of at most 3000 characters, each segment
is synthesized by a text-to-speech provider (Amazon Polly, MiniMax, OpenAI
or Gemini) and the pieces are joined into one mp3 or wav file next to the
source document.

Configuration is stored in ~/.audiobook/audiobook/ and supports multiple
contexts, similar to kubectl's context management. Credentials left out of
a context are read from the environment or a .env file:

  AMAZON_POLLY_ACCESS_KEY, AMAZON_POLLY_SECRET_ACCESS_KEY, AWS_REGION,
  MINIMAX_API_KEY, OPENAI_API_KEY, GEMINI_API_KEY

Examples:
  # Convert a PDF with the default voice (polly/Joanna)
  audiobook convert moby-dick.pdf

  # Use a MiniMax context and publish the result
  audiobook -c minimax convert notes.txt --publish s3://my-books/audio

  # Convert every document listed in a job file
  audiobook convert -f jobs.yaml
`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.audiobook/audiobook/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&contextName, "context", "c", "", "context name to use")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output as JSON (for piping)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(voicesCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	// Variables already set in the environment win over .env.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("load .env", "error", err)
	}

	var err error
	globalConfig, err = cli.LoadConfigWithPath(appName, cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing config: %v\n", err)
		os.Exit(1)
	}
}

// getConfig returns the global configuration
func getConfig() *cli.Config {
	return globalConfig
}

// getContext returns the context to use with environment credentials
// applied. Without any configured context the defaults apply.
func getContext() (*cli.Context, error) {
	cfg := getConfig()
	if cfg == nil {
		return nil, fmt.Errorf("configuration not initialized")
	}
	ctx, err := cfg.ResolveContext(contextName)
	if err != nil {
		return nil, err
	}
	c := *ctx
	c.Apply(os.Getenv)
	return &c, nil
}

// contextFor returns a copy of ctx set up for provider. API keys stored
// in ctx belong to its own provider and are not reused for another one.
func contextFor(ctx *cli.Context, provider string) *cli.Context {
	if ctx.ProviderName() == provider {
		return ctx
	}
	c := *ctx
	c.Provider = provider
	c.APIKey = ""
	c.BaseURL = ""
	c.Model = ""
	c.Apply(os.Getenv)
	return &c
}

// providers opens each provider once per command.
type providers struct {
	ctx  *cli.Context
	open map[string]speech.Provider
	mux  *speech.Mux
}

func newProviders(ctx *cli.Context) *providers {
	return &providers{ctx: ctx, open: make(map[string]speech.Provider), mux: speech.NewMux()}
}

func (ps *providers) get(ctx context.Context, name string) (speech.Provider, error) {
	name = strings.ToLower(name)
	if p, ok := ps.open[name]; ok {
		return p, nil
	}
	c := contextFor(ps.ctx, name)
	p, err := openProvider(ctx, name, c.Credentials())
	if err != nil {
		return nil, err
	}
	ps.open[name] = p
	ps.mux.Handle(p)
	printVerbose("Opened provider %s", name)
	return p, nil
}

// isJSONOutput returns whether output should be JSON
func isJSONOutput() bool {
	return outputJSON
}

// outputResult outputs the result using cli package
func outputResult(result any) error {
	format := cli.FormatYAML
	if isJSONOutput() {
		format = cli.FormatJSON
	}
	return cli.Output(nil, result, format)
}

// printVerbose prints verbose output to stderr if enabled
func printVerbose(format string, args ...any) {
	if verbose {
		fmt.Fprintf(os.Stderr, "[verbose] "+format+"\n", args...)
	}
}
