// Package redact removes secrets from diff content before it is sent to any
// LLM provider.
//
// Detection uses regex heuristics covering common secret shapes: API keys,
// JWTs, private keys, AWS access key IDs and secret access keys, bearer
// tokens, and provider-specific tokens (Anthropic, OpenAI, GitHub, Slack).
//
// [Diff] is the entry point for review input. It walks a unified diff line
// by line so markers and headers survive, and fully masks the contents of
// files that are secret carriers by convention (.env, private keys, .netrc)
// where value-shaped heuristics would miss.
package redact
