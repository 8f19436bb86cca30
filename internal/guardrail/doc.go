// Package guardrail screens user input before it reaches the language model.
//
// The engine runs a fixed sequence of checks in priority order: personal-data
// patterns, legal/financial keywords, toxicity keywords, sensitive topics,
// then per-user rate limiting. The first matching category wins and
// short-circuits the rest; the rate-limit counter is incremented on every
// call as a side effect, independent of which category flags.
//
// Detection is pure pattern matching and never fails: empty or unmatched
// input yields an unflagged verdict. Sanitize is available separately for
// redacting personal data from text destined for logs.
package guardrail
