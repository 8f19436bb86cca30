package guardrail

import "regexp"

// personalDataPattern pairs a compiled pattern with its redaction placeholder.
// Order matters for Sanitize: earlier patterns are substituted first, so more
// specific digit formats must precede looser ones.
type personalDataPattern struct {
	name        string
	re          *regexp.Regexp
	placeholder string
}

// personalDataPatterns are the personal-data detectors, compiled once at
// package init. Compilation of these literals cannot fail; MustCompile makes
// a typo a startup panic rather than a silently skipped check.
var personalDataPatterns = []personalDataPattern{
	{
		name:        "email",
		re:          regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
		placeholder: "[EMAIL_ADDRESS]",
	},
	{
		name:        "ssn",
		re:          regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
		placeholder: "[SSN]",
	},
	{
		name:        "credit_card",
		re:          regexp.MustCompile(`\b\d{4}[- ]?\d{4}[- ]?\d{4}[- ]?\d{4}\b`),
		placeholder: "[CREDIT_CARD]",
	},
	{
		name:        "phone",
		re:          regexp.MustCompile(`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`),
		placeholder: "[PHONE_NUMBER]",
	},
	{
		name:        "address",
		re:          regexp.MustCompile(`(?i)\b\d+\s+[A-Za-z\s]+(?:Street|St|Avenue|Ave|Road|Rd|Boulevard|Blvd|Lane|Ln|Drive|Dr)\b`),
		placeholder: "[ADDRESS]",
	},
	{
		name:        "device_id",
		re:          regexp.MustCompile(`(?i)\b[A-F0-9]{8}-[A-F0-9]{4}-[A-F0-9]{4}-[A-F0-9]{4}-[A-F0-9]{12}\b`),
		placeholder: "[DEVICE_ID]",
	},
}

// Vocabulary holds the keyword tables for the substring-match categories.
// Tables are immutable once the engine is constructed.
type Vocabulary struct {
	LegalFinancial  []string
	Toxicity        []string
	SensitiveTopics []string
}

// DefaultVocabulary returns the built-in keyword tables.
// Matching is case-insensitive substring containment.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		LegalFinancial: []string{
			"legal", "lawyer", "attorney", "sue", "lawsuit", "court", "judge",
			"financial", "investment", "stock", "money", "bank", "account",
			"tax", "irs", "insurance", "claim", "compensation", "damages",
			"contract", "agreement", "terms", "liability", "warranty",
		},
		Toxicity: []string{
			"hate", "kill", "death", "suicide", "harm", "hurt", "attack",
			"bomb", "weapon", "drug", "illegal", "criminal", "fraud",
			"scam", "phishing", "hack", "steal", "rob", "threat",
		},
		SensitiveTopics: []string{
			"employee", "internal", "confidential", "secret", "beta",
			"unreleased", "future product", "roadmap", "strategy",
		},
	}
}
