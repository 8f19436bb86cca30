// Package agent coordinates the response pipeline: guardrail screening,
// knowledge retrieval, prompt assembly, model generation, and the fallback
// policy applied when any of those stages fails.
//
// The pipeline is request-scoped and never returns a raw error to its
// caller. Every path, including guardrail rejections, provider quota
// exhaustion, and unexpected panics, produces a well-formed Result whose
// confidence reflects how much trust the caller should place in the message.
package agent
