package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"google.golang.org/genai"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single message in a conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest carries everything a Generator needs for one call.
type CompletionRequest struct {
	System      string
	History     []Turn
	UserMessage string
	Temperature float32
	MaxTokens   int
}

// Generator produces model text for a completion request. Implementations
// must surface provider quota exhaustion through the error so IsQuotaError
// can classify it.
type Generator interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// quotaPatterns are case-insensitive substrings that identify provider
// quota or rate exhaustion. Provider SDKs expose no typed error for this,
// so classification is by message content.
var quotaPatterns = []string{"429", "quota", "rate limit", "resource exhausted"}

// IsQuotaError reports whether err signals provider quota exhaustion.
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range quotaPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// GenkitGenerator implements Generator on top of a Genkit instance with the
// Google AI plugin.
type GenkitGenerator struct {
	g      *genkit.Genkit
	model  string
	logger *slog.Logger
}

// NewGenkitGenerator creates a generator for the given model name
// (e.g. "gemini-2.5-flash"). logger may be nil.
func NewGenkitGenerator(g *genkit.Genkit, model string, logger *slog.Logger) *GenkitGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &GenkitGenerator{g: g, model: model, logger: logger}
}

// Complete sends one generation request and returns the model text.
func (gg *GenkitGenerator) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	messages := make([]*ai.Message, 0, len(req.History)+1)
	for _, turn := range req.History {
		switch turn.Role {
		case RoleAssistant:
			messages = append(messages, ai.NewModelMessage(ai.NewTextPart(turn.Content)))
		default:
			messages = append(messages, ai.NewUserMessage(ai.NewTextPart(turn.Content)))
		}
	}
	messages = append(messages, ai.NewUserMessage(ai.NewTextPart(req.UserMessage)))

	response, err := genkit.Generate(ctx, gg.g,
		ai.WithModelName("googleai/"+gg.model),
		ai.WithSystem(req.System),
		ai.WithMessages(messages...),
		ai.WithConfig(&genai.GenerateContentConfig{
			Temperature:     genai.Ptr(req.Temperature),
			MaxOutputTokens: int32(req.MaxTokens),
		}),
	)
	if err != nil {
		return "", fmt.Errorf("generating response: %w", err)
	}

	gg.logger.Debug("generation completed",
		"model", gg.model,
		"history_turns", len(req.History),
		"response_len", len(response.Text()))
	return response.Text(), nil
}
