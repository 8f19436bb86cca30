package guardrail

import (
	"log/slog"
	"strings"
	"time"
)

// Category identifies which guardrail flagged a message.
type Category string

// Guardrail categories, in priority order. The first matching category wins.
const (
	CategoryNone           Category = ""
	CategoryPersonalData   Category = "personal_data"
	CategoryLegalFinancial Category = "legal_financial"
	CategoryToxicity       Category = "toxicity"
	CategorySensitiveTopic Category = "sensitive_topic"
	CategoryRateLimit      Category = "rate_limit"
)

// User-facing messages, one fixed message per category.
const (
	msgPersonalData = "I notice you've shared some personal information. For your security, I cannot process messages containing personal data like email addresses, phone numbers, or account details. Please remove this information and try again, or contact our support team directly for assistance with account-specific issues."

	msgLegalFinancial = "I cannot provide legal or financial advice. For legal matters related to our products or services, please consult with a qualified attorney. For financial issues, please contact our support team directly or consult with a financial advisor."

	msgToxicity = "I'm here to help with product and service questions. I cannot assist with harmful or inappropriate requests. If you have a legitimate support issue, I'd be happy to help. Otherwise, please contact our support team directly."

	msgSensitiveTopic = "I can only provide information about publicly available products and services. For internal or confidential matters, please contact our support team directly."

	msgRateLimit = "You're sending messages too quickly. Please wait a moment before sending another message."
)

// Verdict is the immutable result of a guardrail check, produced fresh per call.
type Verdict struct {
	Flagged  bool
	Category Category
	// Response is the fixed user-facing message for the flagged category.
	Response string
	// Details carries match diagnostics (pattern names, matched keywords,
	// rate counts) for logging. Never shown to users.
	Details map[string]any
}

// Config holds engine tuning. The zero value selects all defaults.
type Config struct {
	// RateLimitWindow is the trailing window for per-user counting.
	// Default: 60s.
	RateLimitWindow time.Duration

	// RateLimitMaxRequests is the count allowed inside the window before a
	// user is flagged. Default: 10.
	RateLimitMaxRequests int

	// Vocabulary overrides the built-in keyword tables. Empty category
	// slices fall back to the defaults.
	Vocabulary Vocabulary
}

// Engine screens messages against the guardrail categories.
// Engine is safe for concurrent use; all mutable state lives in the RateStore.
type Engine struct {
	vocab       Vocabulary
	rates       RateStore
	window      time.Duration
	maxInWindow int
	logger      *slog.Logger
}

// New creates an Engine.
// rates may be nil, in which case an in-memory store is used.
func New(cfg Config, rates RateStore, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if rates == nil {
		rates = NewMemoryRateStore()
	}

	window := cfg.RateLimitWindow
	if window <= 0 {
		window = 60 * time.Second
	}
	maxReq := cfg.RateLimitMaxRequests
	if maxReq <= 0 {
		maxReq = 10
	}

	vocab := cfg.Vocabulary
	defaults := DefaultVocabulary()
	if len(vocab.LegalFinancial) == 0 {
		vocab.LegalFinancial = defaults.LegalFinancial
	}
	if len(vocab.Toxicity) == 0 {
		vocab.Toxicity = defaults.Toxicity
	}
	if len(vocab.SensitiveTopics) == 0 {
		vocab.SensitiveTopics = defaults.SensitiveTopics
	}

	return &Engine{
		vocab:       vocab,
		rates:       rates,
		window:      window,
		maxInWindow: maxReq,
		logger:      logger,
	}
}

// Check evaluates message against all guardrail categories and returns the
// verdict for the first category that matches, in priority order.
//
// The rate counter is incremented for userID on every call, even when an
// earlier category flags the message: counting is a side effect, not a veto.
// Pass an empty userID to skip rate limiting entirely.
func (e *Engine) Check(message, userID string) Verdict {
	// Side effect first so flagged messages still count against the budget.
	inWindow := 0
	if userID != "" {
		inWindow = e.rates.IncrementAndCount(userID, e.window)
	}

	if found := e.scanPersonalData(message); len(found) > 0 {
		return Verdict{
			Flagged:  true,
			Category: CategoryPersonalData,
			Response: msgPersonalData,
			Details:  map[string]any{"patterns": found},
		}
	}

	lower := strings.ToLower(message)

	if hits := matchKeywords(lower, e.vocab.LegalFinancial); len(hits) > 0 {
		return Verdict{
			Flagged:  true,
			Category: CategoryLegalFinancial,
			Response: msgLegalFinancial,
			Details:  map[string]any{"keywords": hits},
		}
	}

	if hits := matchKeywords(lower, e.vocab.Toxicity); len(hits) > 0 {
		return Verdict{
			Flagged:  true,
			Category: CategoryToxicity,
			Response: msgToxicity,
			Details:  map[string]any{"keywords": hits},
		}
	}

	if hits := matchKeywords(lower, e.vocab.SensitiveTopics); len(hits) > 0 {
		return Verdict{
			Flagged:  true,
			Category: CategorySensitiveTopic,
			Response: msgSensitiveTopic,
			Details:  map[string]any{"topics": hits},
		}
	}

	if userID != "" && inWindow > e.maxInWindow {
		return Verdict{
			Flagged:  true,
			Category: CategoryRateLimit,
			Response: msgRateLimit,
			Details: map[string]any{
				"current_requests": inWindow,
				"max_requests":     e.maxInWindow,
				"window_seconds":   int(e.window.Seconds()),
			},
		}
	}

	return Verdict{}
}

// Sanitize substitutes each detected personal-data category with its
// placeholder token. Intended for redacting text before logging; it does not
// feed back into Check.
func (e *Engine) Sanitize(message string) string {
	for _, p := range personalDataPatterns {
		message = p.re.ReplaceAllString(message, p.placeholder)
	}
	return message
}

// LogViolation records a flagged verdict with the message redacted.
func (e *Engine) LogViolation(userID string, v Verdict, message string) {
	e.logger.Warn("guardrail violation",
		"user_id", userID,
		"category", string(v.Category),
		"message", e.Sanitize(message),
	)
}

// scanPersonalData returns match diagnostics per detected pattern.
// Examples are capped at three per pattern to bound log size.
func (e *Engine) scanPersonalData(message string) map[string]any {
	found := make(map[string]any)
	for _, p := range personalDataPatterns {
		matches := p.re.FindAllString(message, -1)
		if len(matches) == 0 {
			continue
		}
		examples := matches
		if len(examples) > 3 {
			examples = examples[:3]
		}
		found[p.name] = map[string]any{
			"count":    len(matches),
			"examples": examples,
		}
	}
	if len(found) == 0 {
		return nil
	}
	return found
}

// matchKeywords returns every vocabulary entry contained in lower.
// lower must already be lowercased.
func matchKeywords(lower string, vocab []string) []string {
	var hits []string
	for _, kw := range vocab {
		if strings.Contains(lower, kw) {
			hits = append(hits, kw)
		}
	}
	return hits
}
