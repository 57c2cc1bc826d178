// Package sqlite provides a SQLite-based implementation of the storage ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. One database file holds one
// knowledge source and implements, through a single connection pool:
//
//   - KnowledgeStore: passages and their embeddings
//   - SearchEngine: FTS5 keyword index ranked by bm25
//   - ResultStore: run summaries and result rows
//
// Embeddings are persisted as little-endian float32 blobs and loaded into an
// in-memory vector index at startup.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// Knowledge sources live at <knowledge_path>/<source>.db; run history at
// ~/.ras/data/history.db.
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
