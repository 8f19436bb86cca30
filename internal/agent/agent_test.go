package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koopa0/helpdesk/internal/guardrail"
	"github.com/koopa0/helpdesk/internal/log"
	"github.com/koopa0/helpdesk/internal/retrieval"
)

type searchCall struct {
	query  string
	k      int
	filter map[string]string
}

// fakeRetriever records searches and serves canned hits.
type fakeRetriever struct {
	hits          []retrieval.Hit
	err           error
	emptyFiltered bool // filtered searches return nothing
	calls         []searchCall
}

func (r *fakeRetriever) Search(ctx context.Context, query string, k int, filter map[string]string) ([]retrieval.Hit, error) {
	r.calls = append(r.calls, searchCall{query: query, k: k, filter: filter})
	if r.err != nil {
		return nil, r.err
	}
	if r.emptyFiltered && len(filter) > 0 {
		return nil, nil
	}
	return r.hits, nil
}

// fakeGenerator records requests and returns fixed text or an error.
type fakeGenerator struct {
	text      string
	err       error
	panicWith string
	calls     []CompletionRequest
}

func (g *fakeGenerator) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	g.calls = append(g.calls, req)
	if g.panicWith != "" {
		panic(g.panicWith)
	}
	return g.text, g.err
}

func supportHits(scores ...float64) []retrieval.Hit {
	hits := make([]retrieval.Hit, len(scores))
	for i, s := range scores {
		hits[i] = retrieval.Hit{
			Content: fmt.Sprintf("article %d content", i+1),
			Metadata: map[string]string{
				retrieval.MetaTitle: fmt.Sprintf("Article %d", i+1),
				retrieval.MetaURL:   fmt.Sprintf("https://support.example.com/%d", i+1),
			},
			Score: s,
		}
	}
	return hits
}

func newTestAgent(t *testing.T, retriever retrieval.Retriever, generator Generator) *Agent {
	t.Helper()

	guard := guardrail.New(guardrail.Config{}, guardrail.NewMemoryRateStore(), log.NewNop())
	return New(guard, retriever, generator, nil, Config{}, log.NewNop())
}

func TestAgent_Generate_Success(t *testing.T) {
	t.Parallel()

	retriever := &fakeRetriever{hits: supportHits(0.4, 0.3, 0.2)}
	generator := &fakeGenerator{text: "Hold the power button for ten seconds."}
	agent := newTestAgent(t, retriever, generator)

	result := agent.Generate(context.Background(), Request{Message: "How do I reset my phone?"})

	assert.Equal(t, "Hold the power button for ten seconds.", result.Message)
	assert.InDelta(t, 0.6, result.Confidence, 1e-9)
	assert.Len(t, result.Sources, 3)
	assert.False(t, result.GuardrailTriggered)
	assert.Empty(t, result.Error)

	require.Len(t, retriever.calls, 1)
	assert.Equal(t, DefaultRetrieveK, retriever.calls[0].k)
	assert.Nil(t, retriever.calls[0].filter)
}

func TestAgent_Generate_FlaggedNeverCallsGenerator(t *testing.T) {
	t.Parallel()

	retriever := &fakeRetriever{hits: supportHits(0.4)}
	generator := &fakeGenerator{text: "should never appear"}
	agent := newTestAgent(t, retriever, generator)

	result := agent.Generate(context.Background(), Request{
		Message: "My email is john@example.com, can you check my account?",
	})

	assert.True(t, result.GuardrailTriggered)
	assert.Equal(t, guardrail.CategoryPersonalData, result.GuardrailType)
	assert.Zero(t, result.Confidence)
	assert.Empty(t, result.Sources)
	assert.Empty(t, generator.calls, "flagged content must never reach the model")
	assert.Empty(t, retriever.calls, "flagged content skips retrieval")
}

func TestAgent_Generate_RetrievalFailureDegrades(t *testing.T) {
	t.Parallel()

	retriever := &fakeRetriever{err: errors.New("vector index offline")}
	generator := &fakeGenerator{text: "General troubleshooting advice."}
	agent := newTestAgent(t, retriever, generator)

	result := agent.Generate(context.Background(), Request{Message: "screen is flickering"})

	assert.Equal(t, "General troubleshooting advice.", result.Message)
	assert.Zero(t, result.Confidence, "no hits means zero confidence")
	assert.Empty(t, result.Sources)
	assert.Empty(t, result.Error, "retrieval failure is not surfaced as an error")

	require.Len(t, generator.calls, 1)
	assert.NotContains(t, generator.calls[0].System, "Here is relevant information",
		"sentinel context must not produce a citation instruction")
}

func TestAgent_Generate_QuotaExhaustion(t *testing.T) {
	t.Parallel()

	retriever := &fakeRetriever{hits: supportHits(0.4, 0.3)}
	generator := &fakeGenerator{err: errors.New("googleapi: Error 429: quota exceeded")}
	agent := newTestAgent(t, retriever, generator)

	result := agent.Generate(context.Background(), Request{Message: "schedule a call about my battery"})

	assert.InDelta(t, 0.3, result.Confidence, 1e-9)
	assert.Equal(t, ErrorQuotaExceeded, result.Error)
	assert.Equal(t, msgHighDemand, result.Message)
	assert.Len(t, result.Sources, 2, "sources from successful retrieval are kept")
	assert.Empty(t, result.ToolUsed, "quota exit skips the tool check")
}

func TestAgent_Generate_GenerationError(t *testing.T) {
	t.Parallel()

	retriever := &fakeRetriever{hits: supportHits(0.4)}
	generator := &fakeGenerator{err: errors.New("connection reset by peer")}
	agent := newTestAgent(t, retriever, generator)

	result := agent.Generate(context.Background(), Request{Message: "battery drains fast"})

	assert.InDelta(t, 0.2, result.Confidence, 1e-9)
	assert.Equal(t, ErrorGeneration, result.Error)
	assert.Equal(t, msgGenerationTrouble, result.Message)
	assert.Len(t, result.Sources, 1)
}

func TestAgent_Generate_SchedulingOverride(t *testing.T) {
	t.Parallel()

	retriever := &fakeRetriever{hits: supportHits(0.4)}
	generator := &fakeGenerator{text: "Sure, I can help you schedule an appointment."}
	agent := newTestAgent(t, retriever, generator)

	result := agent.Generate(context.Background(), Request{Message: "I want to schedule a call"})

	assert.Equal(t, ToolScheduleMeeting, result.ToolUsed)
	assert.InDelta(t, 0.8, result.Confidence, 1e-9)
	assert.NotEmpty(t, result.MeetingID)
	assert.Contains(t, result.Message, result.MeetingID)
	assert.NotContains(t, result.Message, generator.text, "override replaces the model text")
}

func TestAgent_Generate_IntentWithoutSchedulingOutput(t *testing.T) {
	t.Parallel()

	retriever := &fakeRetriever{hits: supportHits(0.4)}
	generator := &fakeGenerator{text: "Here is how to reset your device."}
	agent := newTestAgent(t, retriever, generator)

	result := agent.Generate(context.Background(), Request{Message: "can we talk about my device"})

	assert.Empty(t, result.ToolUsed, "model output without scheduling vocabulary is kept as-is")
	assert.Equal(t, generator.text, result.Message)
}

func TestAgent_Generate_PanicBecomesWellFormedResult(t *testing.T) {
	t.Parallel()

	retriever := &fakeRetriever{hits: supportHits(0.4)}
	generator := &fakeGenerator{panicWith: "nil pointer dereference"}
	agent := newTestAgent(t, retriever, generator)

	result := agent.Generate(context.Background(), Request{Message: "anything"})

	require.NotNil(t, result)
	assert.Equal(t, msgTechnicalDifficulties, result.Message)
	assert.Zero(t, result.Confidence)
	assert.Contains(t, result.Error, "nil pointer dereference")
}

func TestAgent_Generate_HistoryBounded(t *testing.T) {
	t.Parallel()

	generator := &fakeGenerator{text: "ok"}
	agent := newTestAgent(t, &fakeRetriever{}, generator)

	history := make([]Turn, 25)
	for i := range history {
		history[i] = Turn{Role: RoleUser, Content: fmt.Sprintf("turn %d", i)}
	}

	agent.Generate(context.Background(), Request{Message: "latest question", History: history})

	require.Len(t, generator.calls, 1)
	got := generator.calls[0].History
	require.Len(t, got, maxHistoryTurns)
	assert.Equal(t, "turn 15", got[0].Content, "oldest surviving turn is 10 back")
	assert.Equal(t, "turn 24", got[len(got)-1].Content)
}

func TestAgent_Generate_ContextInstructionWithHits(t *testing.T) {
	t.Parallel()

	retriever := &fakeRetriever{hits: supportHits(0.4)}
	generator := &fakeGenerator{text: "ok"}
	agent := newTestAgent(t, retriever, generator)

	agent.Generate(context.Background(), Request{Message: "how do I reset"})

	require.Len(t, generator.calls, 1)
	system := generator.calls[0].System
	assert.Contains(t, system, "Here is relevant information")
	assert.Contains(t, system, "Source 1: Article 1")
}

func TestAgent_GenerateVoice(t *testing.T) {
	t.Parallel()

	retriever := &fakeRetriever{hits: supportHits(0.4)}
	generator := &fakeGenerator{text: "Let me schedule a meeting for you."}
	agent := newTestAgent(t, retriever, generator)

	result := agent.GenerateVoice(context.Background(), Request{Message: "schedule a call please"})

	require.Len(t, retriever.calls, 1)
	assert.Equal(t, VoiceRetrieveK, retriever.calls[0].k)

	require.Len(t, generator.calls, 1)
	assert.Equal(t, 500, generator.calls[0].MaxTokens)
	assert.Contains(t, generator.calls[0].System, "For voice interactions")

	assert.Empty(t, result.ToolUsed, "voice responses skip the tool check")
	assert.Equal(t, generator.text, result.Message)
}

func TestAgent_GenerateForProduct(t *testing.T) {
	t.Parallel()

	t.Run("filters by product", func(t *testing.T) {
		t.Parallel()

		retriever := &fakeRetriever{hits: supportHits(0.4)}
		generator := &fakeGenerator{text: "ok"}
		agent := newTestAgent(t, retriever, generator)

		agent.GenerateForProduct(context.Background(), Request{Message: "battery tips"}, "laptop")

		require.Len(t, retriever.calls, 1)
		assert.Equal(t, "laptop battery tips", retriever.calls[0].query)
		assert.Equal(t, map[string]string{retrieval.MetaProduct: "laptop"}, retriever.calls[0].filter)

		require.Len(t, generator.calls, 1)
		assert.Contains(t, generator.calls[0].System, "Focus on laptop specifically")
	})

	t.Run("falls back to unfiltered when filter matches nothing", func(t *testing.T) {
		t.Parallel()

		retriever := &fakeRetriever{hits: supportHits(0.4, 0.3), emptyFiltered: true}
		generator := &fakeGenerator{text: "ok"}
		agent := newTestAgent(t, retriever, generator)

		result := agent.GenerateForProduct(context.Background(), Request{Message: "battery tips"}, "laptop")

		require.Len(t, retriever.calls, 2)
		assert.NotNil(t, retriever.calls[0].filter)
		assert.Nil(t, retriever.calls[1].filter)
		assert.Len(t, result.Sources, 2, "unfiltered hits still produce sources")
	})
}

func TestIsQuotaError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"status 429", errors.New("googleapi: Error 429"), true},
		{"quota keyword", errors.New("Quota exceeded for model"), true},
		{"rate limit keyword", errors.New("RATE LIMIT reached"), true},
		{"resource exhausted", errors.New("rpc error: code = ResourceExhausted desc = resource exhausted"), true},
		{"unrelated", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsQuotaError(tt.err))
		})
	}
}

func TestKeywordIntentDetector(t *testing.T) {
	t.Parallel()

	detector := NewKeywordIntentDetector()

	assert.True(t, detector.Detect("I want to SCHEDULE a call"))
	assert.True(t, detector.Detect("please set up an appointment"))
	assert.False(t, detector.Detect("my screen is cracked"))

	custom := NewKeywordIntentDetector("escalate")
	assert.True(t, custom.Detect("please escalate this"))
	assert.False(t, custom.Detect("schedule a call"), "custom vocabulary replaces the default")
}

func TestRecentTurns(t *testing.T) {
	t.Parallel()

	short := []Turn{{Role: RoleUser, Content: "a"}}
	assert.Equal(t, short, recentTurns(short, 10))
	assert.Len(t, recentTurns(make([]Turn, 30), 10), 10)
}

func TestBuildSystemPrompt_VoiceAndProductSuffixes(t *testing.T) {
	t.Parallel()

	base := buildSystemPrompt(retrieval.NoContextSentinel, "", false)
	assert.False(t, strings.Contains(base, "For voice interactions"))
	assert.False(t, strings.Contains(base, "Focus on"))
	assert.False(t, strings.Contains(base, "Here is relevant information"))

	voice := buildSystemPrompt("", "", true)
	assert.Contains(t, voice, "For voice interactions")

	product := buildSystemPrompt("Source 1: X (u)\ncontent\n", "phone", false)
	assert.Contains(t, product, "Focus on phone specifically")
	assert.Contains(t, product, "Here is relevant information")
}
