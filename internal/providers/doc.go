// Package providers implements the Client interface for each supported LLM
// vendor.
//
// Supported providers: Anthropic (Claude), OpenAI (GPT), Google (Gemini),
// Ollama / LMStudio for local models, and an offline mock.
//
// Clients make exactly one HTTP call per Infer and surface failures as typed
// errors (RateLimitError, ServerError, TransportError, AuthError, APIError).
// Callers own the retry decision; [Retry] applies a RetryPolicy with
// exponential back-off over any of these calls. HTTP clients are injected via
// struct fields so tests can redirect calls to local httptest servers without
// making live API requests.
//
// Use [New] to obtain a Client by provider name and model string.
package providers
