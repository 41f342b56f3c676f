// Package llm provides the language model assistant used to pick and rank
// grocery products. It supports the Anthropic and OpenAI APIs behind a
// single Assistant interface, with request rate limiting, embedded prompt
// templates and helpers for pulling JSON out of model replies.
//
// Callers treat a nil Assistant as "unavailable" and fall back to their
// own heuristics.
package llm
