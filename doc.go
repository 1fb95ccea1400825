// Package multirag answers questions from several evidence sources.
//
// A question is classified by a router into a subset of backends (vector
// search over a document corpus, a knowledge graph, web search) or into a
// direct answer that needs no retrieval. Routed questions may be decomposed
// into sub-queries, which are fanned out to the selected backends in
// parallel. The merged evidence is handed to a language model that writes
// the final answer.
//
// # Basic Usage
//
// Build the components and hand them to NewClient:
//
//	llm, err := nlp.NewClient(cfg.NLP, nlp.WithLogger(logger))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	coordinator := retrieval.NewCoordinator([]retrieval.Backend{
//		retrieval.NewVectorBackend(emb, store, rerank.New(scorer), 10, logger, nil),
//		retrieval.NewGraphBackend(graphstore.NewLLMEntityExtractor(llm), neo4j, 100),
//	}, retrieval.WithBackendTimeout(10*time.Second))
//
//	client, err := multirag.NewClient(multirag.Components{
//		Router:      router.New(llm, router.WithCacheSize(1024)),
//		Coordinator: coordinator,
//		Synthesizer: generation.NewSynthesizer(generation.NewLLMGenerator(llm), logger),
//	}, multirag.NewDefaultConfig(), logger)
//
// # Answering
//
// Answer never fails. Backend failures, timeouts and model errors are
// recorded in the reasoning trace of the result:
//
//	result := client.Answer(ctx, "What minerals contain lithium?", types.DefaultAnswerOptions())
//	fmt.Println(result.Answer)
//	for _, line := range result.Trace {
//		fmt.Println(line)
//	}
//
// Evidence is ordered deterministically: graph before vector before web,
// then by sub-query, then by each backend's native rank.
//
// # Synthesis Paths
//
// Every result records the path that produced it:
//
//   - direct: conversational answer, no retrieval
//   - context: answer grounded in retrieved evidence
//   - no_evidence: backends were queried but returned nothing
//   - no_backends: no routed backend was enabled and configured
//   - apology: the generation backend failed
//   - rejected: the question was empty or too long
package multirag
