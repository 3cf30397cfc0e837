package llm

import (
	"context"
	"strings"

	"github.com/ppiankov/qaforge/internal/util"
)

// Provider defines the interface for generation service backends
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete sends one chat request and returns the raw response text.
	// The text is not guaranteed to be valid JSON even when JSONMode is set.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// Message roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat message
type Message struct {
	Role    string
	Content string
}

// CompletionRequest contains the input for one generation call
type CompletionRequest struct {
	// Model is the specific model to use (provider-specific); empty uses the configured model
	Model string

	Messages []Message

	Temperature float32

	// MaxTokens limits the response length; 0 uses the provider default
	MaxTokens int

	// JSONMode asks the service for a JSON object response where supported
	JSONMode bool
}

// CompletionResponse contains the service output
type CompletionResponse struct {
	// Text is the raw generated text
	Text string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI-compatible and Anthropic endpoints
	APIKey string

	// BaseURL for custom endpoints (SiliconFlow, vLLM, Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens default for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

func (c Config) proxy() util.Proxy {
	return util.Proxy{HTTP: c.HTTPProxy, HTTPS: c.HTTPSProxy, NoProxy: c.NoProxy}
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider: "openai",
		Timeout:  60,
	}
}

// splitSystem separates system messages from the conversation for APIs
// that take the system prompt as a separate field
func splitSystem(messages []Message) (string, []Message) {
	var system []string
	rest := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(system, "\n\n"), rest
}
