package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Jawbreaker1/macassess/internal/config"
)

type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderGoogle    Provider = "google"
	ProviderVertex    Provider = "vertex"
	ProviderLocal     Provider = "local"
)

const (
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
	EnvGoogleAPIKey    = "GOOGLE_API_KEY"
	EnvCloudProject    = "GOOGLE_CLOUD_PROJECT"
	EnvCloudLocation   = "GOOGLE_CLOUD_LOCATION"
	EnvLocalBaseURL    = "MACASSESS_LLM_BASE_URL"
	EnvLocalAPIKey     = "MACASSESS_LLM_API_KEY"

	DefaultVertexLocation = "us-central1"
)

var (
	ErrUnsupportedProvider = errors.New("unsupported provider")
	ErrMissingCredential   = errors.New("missing credential")
)

type ProviderInfo struct {
	Name         Provider
	Description  string
	EnvVar       string
	DefaultModel string
	Models       []string
}

var providers = []ProviderInfo{
	{
		Name:         ProviderAnthropic,
		Description:  "Anthropic Claude (Messages API)",
		EnvVar:       EnvAnthropicAPIKey,
		DefaultModel: "claude-sonnet-4-20250514",
		Models:       []string{"claude-sonnet-4-20250514", "claude-opus-4-20250514", "claude-3-5-haiku-20241022"},
	},
	{
		Name:         ProviderOpenAI,
		Description:  "OpenAI chat completions",
		EnvVar:       EnvOpenAIAPIKey,
		DefaultModel: "gpt-4o",
		Models:       []string{"gpt-4o", "gpt-4o-mini", "gpt-4.1"},
	},
	{
		Name:         ProviderGoogle,
		Description:  "Google Gemini API",
		EnvVar:       EnvGoogleAPIKey,
		DefaultModel: "gemini-2.0-flash",
		Models:       []string{"gemini-2.0-flash", "gemini-2.5-flash", "gemini-2.5-pro"},
	},
	{
		Name:         ProviderVertex,
		Description:  "Gemini on Google Cloud Vertex AI (application default credentials)",
		EnvVar:       EnvCloudProject,
		DefaultModel: "gemini-2.0-flash",
		Models:       []string{"gemini-2.0-flash", "gemini-2.5-flash", "gemini-2.5-pro"},
	},
	{
		Name:         ProviderLocal,
		Description:  "OpenAI-compatible local server (LM Studio, Ollama)",
		EnvVar:       EnvLocalBaseURL,
		DefaultModel: "local-model",
	},
}

// Providers lists the supported providers in display order.
func Providers() []ProviderInfo {
	out := make([]ProviderInfo, len(providers))
	copy(out, providers)
	return out
}

func LookupProvider(name string) (ProviderInfo, bool) {
	key := Provider(strings.ToLower(strings.TrimSpace(name)))
	for _, info := range providers {
		if info.Name == key {
			return info, true
		}
	}
	return ProviderInfo{}, false
}

// Settings is the fully resolved connection configuration for one provider.
type Settings struct {
	Provider Provider
	Model    string
	APIKey   string
	BaseURL  string
	Project  string
	Location string
	Timeout  time.Duration
}

// Resolve turns the configured provider into Settings. Explicit values win
// over environment variables, which win over provider defaults.
func Resolve(cfg config.Config, getenv func(string) string) (Settings, error) {
	if getenv == nil {
		getenv = func(string) string { return "" }
	}
	info, ok := LookupProvider(cfg.LLM.Provider)
	if !ok {
		return Settings{}, fmt.Errorf("%w: %q", ErrUnsupportedProvider, cfg.LLM.Provider)
	}
	settings := Settings{
		Provider: info.Name,
		Model:    firstNonEmpty(cfg.LLM.Model, info.DefaultModel),
		BaseURL:  strings.TrimSpace(cfg.LLM.BaseURL),
		Timeout:  time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
	}

	switch info.Name {
	case ProviderVertex:
		settings.Project = firstNonEmpty(cfg.LLM.Project, getenv(EnvCloudProject))
		settings.Location = firstNonEmpty(cfg.LLM.Location, getenv(EnvCloudLocation), DefaultVertexLocation)
		if settings.Project == "" {
			return Settings{}, fmt.Errorf("%w: vertex requires a project (--project or %s)", ErrMissingCredential, EnvCloudProject)
		}
	case ProviderLocal:
		settings.BaseURL = firstNonEmpty(settings.BaseURL, getenv(EnvLocalBaseURL))
		settings.APIKey = firstNonEmpty(cfg.LLM.APIKey, getenv(EnvLocalAPIKey))
	default:
		settings.APIKey = firstNonEmpty(cfg.LLM.APIKey, getenv(info.EnvVar))
		if settings.APIKey == "" {
			return Settings{}, fmt.Errorf("%w: %s requires an API key (--api-key or %s)", ErrMissingCredential, info.Name, info.EnvVar)
		}
	}
	return settings, nil
}

// NewClient builds the client for settings produced by Resolve.
func NewClient(ctx context.Context, settings Settings) (Client, error) {
	switch settings.Provider {
	case ProviderAnthropic:
		return NewAnthropicClient(settings), nil
	case ProviderOpenAI, ProviderLocal:
		return NewOpenAIClient(settings), nil
	case ProviderGoogle, ProviderVertex:
		return NewGeminiClient(ctx, settings)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, settings.Provider)
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
