// Package domain defines the core entities of the RAS question-answering pipeline.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Question: an immutable input with its dataset tag and answer budget
//   - Triple: a (subject, predicate, object) fact extracted from a passage
//   - EvidenceState: passages and triples accumulated by one reasoning loop
//   - Decision: the planner's choice for the next loop iteration
//   - Answer: the bounded terminal output with its evidence snapshot
//   - Checkpoint: the versioned parameter blob of a trainable planner
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
