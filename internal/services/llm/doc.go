// Package llm provides the generation provider used by every pipeline phase.
//
// # Providers
//
// Client talks to an OpenAI-compatible chat completion endpoint (OpenRouter by
// default). Mock produces deterministic offline output for dry runs and tests.
// NewProvider picks one from config. Tracing wraps any provider and appends a
// JSONL record per call (trace id, run, phase, latency, status).
//
// # Entry Points
//
// Client.Generate: free-text completion (streams when configured).
// Client.StreamGenerate: SSE completion with a per-chunk callback.
// Client.CompleteJSON: JSON-object completion.
// Client.HealthCheck: verify API key and model availability.
// DecodeLLMJSON: tolerant JSON decoding of model output.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors, empty completions, and
// network timeouts with exponential backoff (base 1s, max 10s, up to
// llm.max_attempts). Requests are paced by a token-bucket limiter sized from
// llm.requests_per_minute. Context cancellation aborts retries immediately.
package llm
