package config

// Guardrail rate-limit defaults.
const (
	// DefaultRateLimitWindowSeconds is the trailing window for per-user
	// request counting.
	DefaultRateLimitWindowSeconds = 60

	// DefaultRateLimitMaxRequests is the number of requests allowed inside
	// the window before a user is flagged.
	DefaultRateLimitMaxRequests = 10
)

// GuardrailConfig holds guardrail tuning.
//
// The keyword vocabularies are configuration, not code: leaving a list empty
// selects the built-in defaults (see guardrail.DefaultVocabulary), while a
// non-empty list replaces that category wholesale. This keeps the tables
// tunable per deployment without touching detection logic.
type GuardrailConfig struct {
	RateLimitWindowSeconds int `mapstructure:"rate_limit_window_seconds" json:"rate_limit_window_seconds"`
	RateLimitMaxRequests   int `mapstructure:"rate_limit_max_requests" json:"rate_limit_max_requests"`

	// Vocabulary overrides. Empty slices mean "use defaults".
	LegalFinancialKeywords []string `mapstructure:"legal_financial_keywords" json:"legal_financial_keywords"`
	ToxicityKeywords       []string `mapstructure:"toxicity_keywords" json:"toxicity_keywords"`
	SensitiveTopics        []string `mapstructure:"sensitive_topics" json:"sensitive_topics"`
}
