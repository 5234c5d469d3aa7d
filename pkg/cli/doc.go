// Package cli provides the configuration, file layout and terminal output
// of the audiobook command.
//
// Configuration is stored in ~/.audiobook/<app>/config.yaml as named
// contexts, similar to kubectl. A context selects a speech provider and
// holds its credentials and defaults:
//
//	current_context: polly
//	contexts:
//	  polly:
//	    name: polly
//	    provider: polly
//	    voice: polly/Joanna
//	    format: mp3
//	    region: us-east-1
//
// Credentials a context leaves empty are read from the environment
// (AMAZON_POLLY_ACCESS_KEY, MINIMAX_API_KEY, ...), see Context.Apply.
//
// Example usage:
//
//	cfg, err := cli.LoadConfig("audiobook")
//	ctx, err := cfg.ResolveContext(name)
//	ctx.Apply(os.Getenv)
//	cli.Output(os.Stdout, result, cli.FormatJSON)
package cli
