package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/haivivi/audiobook/pkg/cli"
)

// addContextFlags holds the flags of config add-context.
var addContextFlags cli.Context

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long: `Manage CLI configuration and contexts.

Contexts allow you to keep several provider setups (credentials, voice,
format, limits), similar to kubectl's context management.

Configuration is stored in ~/.audiobook/audiobook/config.yaml`,
}

var configAddContextCmd = &cobra.Command{
	Use:   "add-context <name>",
	Short: "Add or replace a context",
	Long: `Add or replace a context with the specified name.

Credentials left empty are read from the environment when the context is
used (AMAZON_POLLY_ACCESS_KEY, AMAZON_POLLY_SECRET_ACCESS_KEY, AWS_REGION,
MINIMAX_API_KEY, OPENAI_API_KEY, GEMINI_API_KEY).

Example:
  audiobook config add-context aws --provider polly --voice polly/Joanna --engine neural
  audiobook config add-context mm --provider minimax --voice minimax/female-shaonv --api-key KEY
  audiobook config add-context books --bucket s3://my-books/audio --rate-limit 80`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		ctx := addContextFlags

		cfg := getConfig()
		if err := cfg.AddContext(name, &ctx); err != nil {
			return err
		}
		cli.PrintSuccess("Context %q added successfully", name)
		return nil
	},
}

var configDeleteContextCmd = &cobra.Command{
	Use:   "delete-context <name>",
	Short: "Delete a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if err := getConfig().DeleteContext(name); err != nil {
			return err
		}
		cli.PrintSuccess("Context %q deleted", name)
		return nil
	},
}

var configUseContextCmd = &cobra.Command{
	Use:   "use-context <name>",
	Short: "Set the current context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if err := getConfig().UseContext(name); err != nil {
			return err
		}
		cli.PrintSuccess("Switched to context %q", name)
		return nil
	},
}

var configGetContextCmd = &cobra.Command{
	Use:   "get-context",
	Short: "Display the current context",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()
		if cfg.CurrentContext == "" {
			fmt.Println("No current context set")
			return nil
		}
		fmt.Println(cfg.CurrentContext)
		return nil
	},
}

var configListContextsCmd = &cobra.Command{
	Use:     "list-contexts",
	Aliases: []string{"get-contexts"},
	Short:   "List all contexts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()
		if len(cfg.Contexts) == 0 {
			fmt.Println("No contexts configured")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CURRENT\tNAME\tPROVIDER\tVOICE\tFORMAT")
		for _, name := range cfg.ListContexts() {
			ctx := cfg.Contexts[name]
			current := ""
			if name == cfg.CurrentContext {
				current = "*"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", current, name, ctx.ProviderName(), ctx.VoiceOrDefault(), ctx.FormatOrDefault())
		}
		return w.Flush()
	},
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "View the configuration with secrets masked",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()

		type view struct {
			Path           string                  `yaml:"path" json:"path"`
			CurrentContext string                  `yaml:"current_context,omitempty" json:"current_context,omitempty"`
			Contexts       map[string]*cli.Context `yaml:"contexts,omitempty" json:"contexts,omitempty"`
		}
		v := view{Path: cfg.Path(), CurrentContext: cfg.CurrentContext, Contexts: make(map[string]*cli.Context)}
		for name, ctx := range cfg.Contexts {
			v.Contexts[name] = ctx.Masked()
		}
		return outputResult(v)
	},
}

func init() {
	f := configAddContextCmd.Flags()
	f.StringVar(&addContextFlags.Provider, "provider", "", "speech provider: polly, minimax, openai or gemini")
	f.StringVar(&addContextFlags.Voice, "voice", "", "default voice as provider/voice")
	f.StringVar(&addContextFlags.Format, "format", "", "default audio format: mp3 or wav")
	f.StringVar(&addContextFlags.AccessKey, "access-key", "", "AWS access key (polly)")
	f.StringVar(&addContextFlags.SecretKey, "secret-key", "", "AWS secret key (polly)")
	f.StringVar(&addContextFlags.Region, "region", "", "AWS region (polly, publish)")
	f.StringVar(&addContextFlags.Engine, "engine", "", "Polly engine: standard, neural, long-form or generative")
	f.StringVar(&addContextFlags.APIKey, "api-key", "", "API key (minimax, openai, gemini)")
	f.StringVar(&addContextFlags.BaseURL, "base-url", "", "API base URL")
	f.StringVar(&addContextFlags.Model, "model", "", "speech model")
	f.IntVar(&addContextFlags.Timeout, "timeout", 0, "request timeout in seconds")
	f.IntVar(&addContextFlags.MaxRetries, "max-retries", 0, "retries of a failed segment")
	f.IntVar(&addContextFlags.RateLimit, "rate-limit", 0, "speech requests per minute (0 for unlimited)")
	f.StringVar(&addContextFlags.Bucket, "bucket", "", "publish target s3://bucket/prefix")

	configCmd.AddCommand(configAddContextCmd)
	configCmd.AddCommand(configDeleteContextCmd)
	configCmd.AddCommand(configUseContextCmd)
	configCmd.AddCommand(configGetContextCmd)
	configCmd.AddCommand(configListContextsCmd)
	configCmd.AddCommand(configViewCmd)
}
