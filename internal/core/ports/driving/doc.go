// Package driving holds the entry points the CLI, the MCP server and the
// progress view call into: answering questions, batch runs, knowledge
// search, settings and run history. Services in internal/core/services
// implement them.
package driving
