package llm

import (
	"fmt"
	"net/http"

	"github.com/RichardoC/csvchat/internal/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// NewModel builds the completion client described by cfg. Both providers
// speak the OpenAI chat protocol; azure routes by deployment name.
func NewModel(cfg config.LLMConfig, httpClient *http.Client) (llms.Model, error) {
	opts := []openai.Option{openai.WithModel(cfg.Model)}
	if httpClient != nil {
		opts = append(opts, openai.WithHTTPClient(httpClient))
	}

	switch cfg.Provider {
	case "azure":
		if cfg.APIKey == "" || cfg.BaseURL == "" || cfg.Model == "" {
			return nil, ErrNotConfigured
		}
		version := cfg.APIVersion
		if version == "" {
			version = "2024-02-15-preview"
		}
		opts = append(opts,
			openai.WithAPIType(openai.APITypeAzure),
			openai.WithToken(cfg.APIKey),
			openai.WithBaseURL(cfg.BaseURL),
			openai.WithAPIVersion(version),
		)
	case "openai", "":
		token := cfg.APIKey
		if token == "" {
			if cfg.BaseURL == "" {
				return nil, ErrNotConfigured
			}
			// Local OpenAI-compatible servers such as Ollama ignore the key
			// but the client refuses to start without one.
			token = "fake"
		}
		opts = append(opts, openai.WithToken(token))
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", cfg.Provider)
	}

	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", cfg.Provider, err)
	}
	return model, nil
}

// CallOptions translates the sampling settings in cfg.
func CallOptions(cfg config.LLMConfig) []llms.CallOption {
	opts := []llms.CallOption{llms.WithTemperature(cfg.Temperature)}
	if cfg.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(cfg.MaxTokens))
	}
	return opts
}
