package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/koopa0/helpdesk/internal/guardrail"
	"github.com/koopa0/helpdesk/internal/retrieval"
)

// Error codes surfaced on Result.Error. Callers distinguish quota exhaustion
// and generic generation failure by these values; every other internal
// failure is absorbed and normalized.
const (
	ErrorQuotaExceeded = "quota_exceeded"
	ErrorGeneration    = "generation_error"
)

// Fixed fallback messages. These are part of the output contract: the
// confidence attached to each tells callers how to treat the text.
const (
	msgHighDemand = "I'm currently experiencing high demand. Please try again in a few minutes, or contact our support team directly for immediate assistance."

	msgGenerationTrouble = "I'm having trouble processing your request right now. Here's what I found in our knowledge base that might help:"

	msgTechnicalDifficulties = "I apologize, but I'm experiencing technical difficulties. Please try again or contact our support team directly for assistance."
)

const (
	// DefaultRetrieveK is the retrieval depth for text chat.
	DefaultRetrieveK = 5

	// VoiceRetrieveK is the shallower retrieval depth for voice, where
	// responses stay short.
	VoiceRetrieveK = 3

	// DefaultRetrievalTimeout bounds the vector search call.
	DefaultRetrievalTimeout = 10 * time.Second

	// DefaultGenerationTimeout bounds the model call.
	DefaultGenerationTimeout = 60 * time.Second
)

// Result is the sole externally observed artifact of the pipeline.
//
// Invariants: Confidence is 0 whenever Sources is empty, and the generation
// collaborator is never invoked when GuardrailTriggered is true.
type Result struct {
	Message            string             `json:"message"`
	Sources            []retrieval.Source `json:"sources"`
	Confidence         float64            `json:"confidence"`
	GuardrailTriggered bool               `json:"guardrail_triggered"`
	GuardrailType      guardrail.Category `json:"guardrail_type,omitempty"`
	ToolUsed           string             `json:"tool_used,omitempty"`
	MeetingID          string             `json:"meeting_id,omitempty"`
	Error              string             `json:"error,omitempty"`
}

// Request is one user message with its conversation context.
type Request struct {
	Message string
	UserID  string
	History []Turn
}

// Config tunes the pipeline. Zero values fall back to defaults.
type Config struct {
	Temperature       float32
	MaxTokens         int
	VoiceMaxTokens    int
	RetrievalTimeout  time.Duration
	GenerationTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.MaxTokens <= 0 {
		c.MaxTokens = 1000
	}
	if c.VoiceMaxTokens <= 0 {
		c.VoiceMaxTokens = 500
	}
	if c.RetrievalTimeout <= 0 {
		c.RetrievalTimeout = DefaultRetrievalTimeout
	}
	if c.GenerationTimeout <= 0 {
		c.GenerationTimeout = DefaultGenerationTimeout
	}
}

// Agent orchestrates guardrails, retrieval, and generation into a single
// response pipeline. Safe for concurrent use.
type Agent struct {
	guard     *guardrail.Engine
	retriever retrieval.Retriever
	generator Generator
	intents   IntentDetector
	cfg       Config
	logger    *slog.Logger
}

// New creates an Agent. intents and logger may be nil; a keyword detector
// and the default logger are used.
func New(guard *guardrail.Engine, retriever retrieval.Retriever, generator Generator, intents IntentDetector, cfg Config, logger *slog.Logger) *Agent {
	cfg.applyDefaults()
	if intents == nil {
		intents = NewKeywordIntentDetector()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{
		guard:     guard,
		retriever: retriever,
		generator: generator,
		intents:   intents,
		cfg:       cfg,
		logger:    logger,
	}
}

// pipeline holds the per-variant knobs of one respond call.
type pipeline struct {
	k         int
	maxTokens int
	product   string
	voice     bool
	toolCheck bool
}

// Generate answers a text-chat message.
func (a *Agent) Generate(ctx context.Context, req Request) *Result {
	return a.respond(ctx, req, pipeline{
		k:         DefaultRetrieveK,
		maxTokens: a.cfg.MaxTokens,
		toolCheck: true,
	})
}

// GenerateVoice answers with a shorter output budget and shallower
// retrieval, tuned for spoken delivery.
func (a *Agent) GenerateVoice(ctx context.Context, req Request) *Result {
	return a.respond(ctx, req, pipeline{
		k:         VoiceRetrieveK,
		maxTokens: a.cfg.VoiceMaxTokens,
		voice:     true,
	})
}

// GenerateForProduct biases retrieval toward one product. When the filtered
// search matches nothing, it falls back to unfiltered results, which can
// surface off-topic sources; the fallback is logged.
func (a *Agent) GenerateForProduct(ctx context.Context, req Request, product string) *Result {
	return a.respond(ctx, req, pipeline{
		k:         DefaultRetrieveK,
		maxTokens: a.cfg.MaxTokens,
		product:   product,
	})
}

// respond runs the pipeline: guardrail check, retrieval, context assembly,
// generation, tool check. Any panic is converted into a zero-confidence
// apology so no failure crosses the public boundary.
func (a *Agent) respond(ctx context.Context, req Request, p pipeline) (result *Result) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("response pipeline panicked", "panic", r)
			result = &Result{
				Message:    msgTechnicalDifficulties,
				Sources:    []retrieval.Source{},
				Confidence: 0.0,
				Error:      fmt.Sprint(r),
			}
		}
	}()

	// Flagged content never reaches the model.
	verdict := a.guard.Check(req.Message, req.UserID)
	if verdict.Flagged {
		a.guard.LogViolation(req.UserID, verdict, req.Message)
		return &Result{
			Message:            verdict.Response,
			Sources:            []retrieval.Source{},
			Confidence:         0.0,
			GuardrailTriggered: true,
			GuardrailType:      verdict.Category,
		}
	}

	hits := a.retrieve(ctx, req.Message, p)
	contextText, sources := retrieval.Assemble(hits)

	gctx, cancel := context.WithTimeout(ctx, a.cfg.GenerationTimeout)
	defer cancel()

	text, err := a.generator.Complete(gctx, CompletionRequest{
		System:      buildSystemPrompt(contextText, p.product, p.voice),
		History:     recentTurns(req.History, maxHistoryTurns),
		UserMessage: req.Message,
		Temperature: a.cfg.Temperature,
		MaxTokens:   p.maxTokens,
	})
	if err != nil {
		if IsQuotaError(err) {
			a.logger.Warn("generation quota exhausted", "error", err)
			return &Result{
				Message:    msgHighDemand,
				Sources:    sources,
				Confidence: 0.3,
				Error:      ErrorQuotaExceeded,
			}
		}
		a.logger.Error("generation failed", "error", err)
		return &Result{
			Message:    msgGenerationTrouble,
			Sources:    sources,
			Confidence: 0.2,
			Error:      ErrorGeneration,
		}
	}

	if p.toolCheck && a.intents.Detect(req.Message) {
		if override := scheduleOverride(text); override != nil {
			a.logger.Info("scheduling intent detected", "tool", override.ToolUsed, "meeting_id", override.MeetingID)
			return override
		}
	}

	return &Result{
		Message:    text,
		Sources:    sources,
		Confidence: retrieval.Confidence(hits),
	}
}

// retrieve searches the knowledge base, degrading to an empty hit list on
// any failure so generation still runs without context.
func (a *Agent) retrieve(ctx context.Context, message string, p pipeline) []retrieval.Hit {
	rctx, cancel := context.WithTimeout(ctx, a.cfg.RetrievalTimeout)
	defer cancel()

	query := message
	var filter map[string]string
	if p.product != "" {
		query = p.product + " " + message
		filter = map[string]string{retrieval.MetaProduct: p.product}
	}

	hits, err := a.retriever.Search(rctx, query, p.k, filter)
	if err != nil {
		a.logger.Warn("retrieval failed, continuing without context", "error", err)
		return nil
	}

	if len(hits) == 0 && p.product != "" {
		hits, err = a.retriever.Search(rctx, query, p.k, nil)
		if err != nil {
			a.logger.Warn("unfiltered retrieval failed, continuing without context", "error", err)
			return nil
		}
		if len(hits) > 0 {
			a.logger.Info("product filter matched nothing, using unfiltered results", "product", p.product)
		}
	}

	return hits
}
