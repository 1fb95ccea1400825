// Package nlp provides language model clients for the answer pipeline.
//
// Every model is reached through an OpenAI-compatible chat completion API.
// Calls are tagged with a usage (router, decompose, entities, chitchat,
// answer, rerank) through the request context, and RouterClient maps usages
// to configured models.
//
// # Client Wrappers
//
//   - RetryClient: retry transient failures with exponential backoff
//   - CircuitBreakerClient: fail fast while a model endpoint is unhealthy
//   - TokenTrackingClient: record token usage per request and usage tag
//   - RouterClient: pick a model per usage tag with an optional fallback
//
// # Usage
//
//	client, err := nlp.NewClient(cfg.NLP, nlp.WithLogger(log))
//	answer, err := nlp.Complete(ctx, client, types.UsageAnswer, system, user)
package nlp
