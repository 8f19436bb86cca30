package guardrail

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koopa0/helpdesk/internal/log"
)

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	return New(cfg, nil, log.NewNop())
}

func TestCheck_PersonalData(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		message string
		pattern string
	}{
		{"email address", "reach me at jane.doe@example.com please", "email"},
		{"NANP phone", "call me at 555-123-4567", "phone"},
		{"phone without separators", "my number is 5551234567", "phone"},
		{"ssn", "My SSN is 123-45-6789, help me reset my phone", "ssn"},
		{"credit card", "charge 4111-1111-1111-1111 for it", "credit_card"},
		{"street address", "ship to 1 Infinite Loop Street", "address"},
		{"device identifier", "serial A1B2C3D4-E5F6-0789-ABCD-0123456789AB", "device_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := newTestEngine(t, Config{})
			v := e.Check(tt.message, "")

			require.True(t, v.Flagged)
			assert.Equal(t, CategoryPersonalData, v.Category)
			assert.Equal(t, msgPersonalData, v.Response)

			patterns, ok := v.Details["patterns"].(map[string]any)
			require.True(t, ok)
			assert.Contains(t, patterns, tt.pattern)
		})
	}
}

func TestCheck_KeywordCategories(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		message  string
		category Category
	}{
		{"legal keyword", "can I sue over this?", CategoryLegalFinancial},
		{"financial keyword", "is this a good investment?", CategoryLegalFinancial},
		{"toxicity keyword", "how do I hack this device", CategoryToxicity},
		{"sensitive topic", "tell me about unreleased products", CategorySensitiveTopic},
		{"case insensitive", "TELL ME THE ROADMAP", CategorySensitiveTopic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := newTestEngine(t, Config{})
			v := e.Check(tt.message, "")

			require.True(t, v.Flagged)
			assert.Equal(t, tt.category, v.Category)
			assert.NotEmpty(t, v.Response)
		})
	}
}

func TestCheck_PriorityOrder(t *testing.T) {
	t.Parallel()

	// Contains both personal data and a legal keyword; personal data is
	// evaluated first and must win.
	e := newTestEngine(t, Config{})
	v := e.Check("my lawyer's email is law@example.com", "")

	require.True(t, v.Flagged)
	assert.Equal(t, CategoryPersonalData, v.Category)
}

func TestCheck_CleanMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		message string
	}{
		{"ordinary question", "How do I reset my tablet?"},
		{"empty message", ""},
		{"whitespace only", "   \t\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := newTestEngine(t, Config{})
			v := e.Check(tt.message, "")

			assert.False(t, v.Flagged)
			assert.Equal(t, CategoryNone, v.Category)
			assert.Empty(t, v.Response)
		})
	}
}

func TestCheck_RateLimit(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, Config{
		RateLimitWindow:      time.Minute,
		RateLimitMaxRequests: 10,
	})

	for i := range 10 {
		v := e.Check("How do I reset my tablet?", "user-1")
		require.False(t, v.Flagged, "request %d should pass", i+1)
	}

	v := e.Check("How do I reset my tablet?", "user-1")
	require.True(t, v.Flagged)
	assert.Equal(t, CategoryRateLimit, v.Category)
	assert.Equal(t, msgRateLimit, v.Response)
	assert.Equal(t, 11, v.Details["current_requests"])
}

func TestCheck_RateLimitCountsFlaggedMessages(t *testing.T) {
	t.Parallel()

	// Flagged messages still consume rate budget: the counter is a side
	// effect of every check call, not only clean ones.
	e := newTestEngine(t, Config{
		RateLimitWindow:      time.Minute,
		RateLimitMaxRequests: 3,
	})

	for range 3 {
		v := e.Check("my lawyer said to sue", "user-2")
		require.Equal(t, CategoryLegalFinancial, v.Category)
	}

	// Fourth request is clean but the window already holds four entries.
	v := e.Check("How do I reset my tablet?", "user-2")
	require.True(t, v.Flagged)
	assert.Equal(t, CategoryRateLimit, v.Category)
}

func TestCheck_RateLimitSkippedWithoutUserID(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, Config{
		RateLimitWindow:      time.Minute,
		RateLimitMaxRequests: 1,
	})

	for range 5 {
		v := e.Check("How do I reset my tablet?", "")
		assert.False(t, v.Flagged)
	}
}

func TestCheck_RateLimitIsPerUser(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, Config{
		RateLimitWindow:      time.Minute,
		RateLimitMaxRequests: 2,
	})

	for i := range 5 {
		v := e.Check("hello there", fmt.Sprintf("user-%d", i))
		assert.False(t, v.Flagged)
	}
}

func TestSanitize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "email",
			in:   "contact jane@example.com now",
			want: "contact [EMAIL_ADDRESS] now",
		},
		{
			name: "phone and ssn",
			in:   "phone 555-123-4567 ssn 123-45-6789",
			want: "phone [PHONE_NUMBER] ssn [SSN]",
		},
		{
			name: "credit card wins over phone",
			in:   "card 4111111111111111",
			want: "card [CREDIT_CARD]",
		},
		{
			name: "nothing to redact",
			in:   "how do I update the firmware?",
			want: "how do I update the firmware?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := newTestEngine(t, Config{})
			assert.Equal(t, tt.want, e.Sanitize(tt.in))
		})
	}
}

func TestNew_VocabularyOverride(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, Config{
		Vocabulary: Vocabulary{
			Toxicity: []string{"bananas"},
		},
	})

	// Override replaces the toxicity table wholesale.
	assert.Equal(t, CategoryToxicity, e.Check("totally bananas", "").Category)
	assert.False(t, e.Check("how do I hack this", "").Flagged)

	// Unset categories keep defaults.
	assert.Equal(t, CategoryLegalFinancial, e.Check("should I sue", "").Category)
}
