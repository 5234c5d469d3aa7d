package speech

import (
	"context"
	"fmt"
	"time"

	"github.com/haivivi/audiobook/pkg/minimax"
)

// Credentials configures a provider when it is opened. Only the fields a
// provider needs are read.
type Credentials struct {
	// AccessKey and SecretKey are AWS static credentials (polly).
	AccessKey string
	SecretKey string
	// Region is the AWS region (polly). Defaults to us-east-1.
	Region string
	// Engine is the Polly engine.
	Engine string

	// APIKey authenticates minimax, openai and gemini.
	APIKey string
	// BaseURL overrides the API endpoint (minimax, openai).
	BaseURL string
	// Model selects the provider's speech model.
	Model string
	// Timeout bounds each HTTP request (minimax).
	Timeout time.Duration
}

// Open builds the named provider from creds. Credentials are bound to the
// provider here and never passed per call.
func Open(ctx context.Context, provider string, creds Credentials) (Provider, error) {
	switch provider {
	case "polly":
		if creds.AccessKey == "" || creds.SecretKey == "" {
			return nil, fmt.Errorf("%w: polly needs an access key and a secret key", ErrMissingCredentials)
		}
		var opts []PollyOption
		if creds.Engine != "" {
			opts = append(opts, WithPollyEngine(creds.Engine))
		}
		return NewPolly(NewPollyClient(creds.Region, creds.AccessKey, creds.SecretKey), opts...), nil

	case "minimax":
		if creds.APIKey == "" {
			return nil, fmt.Errorf("%w: minimax needs an API key", ErrMissingCredentials)
		}
		var opts []minimax.Option
		if creds.BaseURL != "" {
			opts = append(opts, minimax.WithBaseURL(creds.BaseURL))
		}
		if creds.Timeout > 0 {
			opts = append(opts, minimax.WithTimeout(creds.Timeout))
		}
		return NewMiniMax(minimax.NewClient(creds.APIKey, opts...), creds.Model), nil

	case "openai":
		if creds.APIKey == "" {
			return nil, fmt.Errorf("%w: openai needs an API key", ErrMissingCredentials)
		}
		return NewOpenAI(creds.APIKey, creds.BaseURL, creds.Model), nil

	case "gemini":
		if creds.APIKey == "" {
			return nil, fmt.Errorf("%w: gemini needs an API key", ErrMissingCredentials)
		}
		return NewGemini(ctx, creds.APIKey, creds.Model)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
}

// ProviderNames lists the providers Open knows how to build.
var ProviderNames = []string{"polly", "minimax", "openai", "gemini"}
