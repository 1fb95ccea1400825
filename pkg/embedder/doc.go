// Package embedder provides text embedding clients for vector retrieval.
//
// OpenAIEmbedder talks to any OpenAI-compatible /embeddings endpoint and
// batches large inputs. CachedClient keeps recent query vectors in an LRU so
// repeated questions skip the embedding round trip.
//
//	base, err := embedder.NewOpenAIEmbedder(cfg.Embedding)
//	client, err := embedder.NewCachedClient(base, cfg.Embedding.CacheSize)
//	vec, err := client.EmbedSingle(ctx, "which minerals contain lithium?")
package embedder
