package testutil

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
)

// GoogleAISetup bundles an initialized Genkit instance with its embedder and
// a quiet logger, for integration tests that talk to the real Gemini API.
type GoogleAISetup struct {
	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	Logger   *slog.Logger
}

// SetupGoogleAI initializes Genkit with the Google AI plugin. Skips the test
// when GEMINI_API_KEY is not set.
func SetupGoogleAI(t *testing.T) *GoogleAISetup {
	t.Helper()

	if os.Getenv("GEMINI_API_KEY") == "" {
		t.Skip("GEMINI_API_KEY not set - skipping test requiring embedder")
	}

	ctx := context.Background()
	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	embedder := googlegenai.GoogleAIEmbedder(g, "text-embedding-004")

	return &GoogleAISetup{
		Genkit:   g,
		Embedder: embedder,
		Logger:   slog.New(slog.DiscardHandler),
	}
}
