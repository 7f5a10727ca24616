// Package llm provides an OpenRouter-compatible chat client used by the
// classifier to label anomaly events.
//
// The client sends a system prompt plus a user prompt (optionally with an
// inline JPEG or PNG frame) and asks the model for a JSON object. Responses
// wrapped in markdown code fences or surrounded by prose are recovered by
// DecodeLLMJSON.
//
// # Retry Behaviour
//
// Requests are retried on HTTP 408/429/5xx, empty completions, and network
// timeouts with exponential backoff (base 1s, max 10s, 3 attempts by default).
// Context cancellation aborts retries immediately. A missing API key fails
// fast with ErrMissingAPIKey so callers can record an unanalyzed result
// without touching the network.
package llm
