package agent

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/koopa0/helpdesk/internal/retrieval"
)

// ToolScheduleMeeting identifies the meeting-scheduling tool in Result.ToolUsed.
const ToolScheduleMeeting = "schedule_meeting"

// defaultScheduleKeywords trigger the scheduling intent check on the user
// message.
var defaultScheduleKeywords = []string{
	"schedule", "appointment", "meeting", "call", "speak", "talk",
	"book", "reserve", "set up", "arrange",
}

// scheduleResponseKeywords confirm scheduling intent in the model's own
// output before the canned override replaces it.
var scheduleResponseKeywords = []string{"schedule", "appointment", "meeting"}

const msgScheduleMeeting = `I'd be happy to help you schedule a meeting with our support team!

Meeting ID: %s
Status: Pending confirmation

To complete the scheduling, please provide:
- Your name
- Email address
- Phone number (optional)
- Preferred date and time
- Brief description of what you need help with

A support specialist will confirm the meeting details with you shortly.`

// IntentDetector decides whether a user message expresses a tool-worthy
// intent. The keyword implementation is deliberately simple; a structured
// tool-call contract can replace it as long as scheduling intent keeps
// producing the canned instructional message.
type IntentDetector interface {
	Detect(message string) bool
}

// KeywordIntentDetector flags messages containing any of a fixed
// case-insensitive keyword vocabulary.
type KeywordIntentDetector struct {
	keywords []string
}

// NewKeywordIntentDetector builds a detector. With no keywords given, the
// default scheduling vocabulary is used.
func NewKeywordIntentDetector(keywords ...string) *KeywordIntentDetector {
	if len(keywords) == 0 {
		keywords = defaultScheduleKeywords
	}
	return &KeywordIntentDetector{keywords: keywords}
}

// Detect reports whether message contains any configured keyword.
func (d *KeywordIntentDetector) Detect(message string) bool {
	return containsAnyKeyword(message, d.keywords)
}

// scheduleOverride returns the canned scheduling Result when the model's
// output confirms scheduling intent, or nil when it does not. The override
// replaces the model text entirely and carries a fresh correlation id.
func scheduleOverride(modelText string) *Result {
	if !containsAnyKeyword(modelText, scheduleResponseKeywords) {
		return nil
	}

	meetingID := "meeting_" + uuid.NewString()
	return &Result{
		Message:    fmt.Sprintf(msgScheduleMeeting, meetingID),
		Sources:    []retrieval.Source{},
		Confidence: 0.8,
		ToolUsed:   ToolScheduleMeeting,
		MeetingID:  meetingID,
	}
}

// containsAnyKeyword checks s for any of the keywords, case-insensitively.
func containsAnyKeyword(s string, keywords []string) bool {
	lower := strings.ToLower(s)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
