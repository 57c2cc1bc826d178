// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Leaf Stages
//
// The reasoning loop dispatches to three stateless leaf stages:
//
//   - Retriever: ranked passages for a query from a knowledge source
//   - TripleExtractor: triples from one passage
//   - AnswerGenerator: the bounded final answer from accumulated evidence
//
// # Infrastructure
//
//   - KnowledgeStore: passage persistence (SQLite)
//   - SearchEngine: full-text passage search (SQLite FTS5). Always available.
//   - VectorIndex: embedding similarity search. Only used when EmbeddingService is configured.
//   - EmbeddingService / LLMService: model providers
//   - DatasetLoader, ResultWriter, ResultStore: batch input and output
//   - ConfigStore, PromptStore: configuration
//   - LengthBounder: answer length accounting in characters or tokens
//   - TraceRecorder: step trace export (OpenTelemetry)
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
