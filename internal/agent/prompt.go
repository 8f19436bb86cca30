package agent

import (
	"fmt"

	"github.com/koopa0/helpdesk/internal/retrieval"
)

// maxHistoryTurns bounds how much conversation history reaches the model.
const maxHistoryTurns = 10

// systemPrompt is the base instruction set for every generation call.
const systemPrompt = `You are a customer support assistant, designed to help users with questions about our products and services.

Your role is to:
1. Provide accurate, helpful information about our products, services, and troubleshooting
2. Be friendly, professional, and empathetic
3. Always cite your sources when providing information
4. Redirect users to official support channels when appropriate
5. Never provide personal, legal, or financial advice
6. Detect and handle sensitive queries appropriately

When responding:
- Use the provided context from the official support documentation
- If you don't have enough information, suggest contacting the support team directly
- Be concise but thorough
- Use a helpful, conversational tone
- Always mention the source of your information

Available tools:
- schedule_meeting: Can schedule a meeting with the support team if the user requests it

Remember: You are not a replacement for the official support team, but a helpful assistant to guide users to the right information.`

// voicePromptSuffix adapts the system prompt for spoken responses.
const voicePromptSuffix = `

For voice interactions:
- Keep responses concise and conversational
- Use simple, clear language
- Avoid complex technical jargon
- Be more direct and actionable
- Focus on the most important information first`

// buildSystemPrompt composes the system instruction for one generation call.
// The context citation instruction is only attached when retrieval produced
// real context; the sentinel text carries no sources worth citing.
func buildSystemPrompt(contextText, product string, voice bool) string {
	prompt := systemPrompt

	if product != "" {
		prompt += fmt.Sprintf("\n\nFocus on %s specifically. Use the provided context to give accurate information about %s.", product, product)
	}
	if voice {
		prompt += voicePromptSuffix
	}
	if contextText != "" && contextText != retrieval.NoContextSentinel {
		prompt += fmt.Sprintf("\n\nHere is relevant information from the support documentation:\n\n%s\n\nUse this information to answer the user's question. Always cite the sources when providing information.", contextText)
	}

	return prompt
}

// recentTurns returns the last n turns of history, oldest first.
func recentTurns(history []Turn, n int) []Turn {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}
