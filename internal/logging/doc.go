// Package logging provides concrete implementations of the tripload.Logger interface.
//
// Available implementations:
//   - ConsoleLogger: human-readable lines on stderr, the default for interactive runs
//   - ZapLogger: one JSON object per message via go.uber.org/zap, for log shippers
//   - NullLogger: discards all messages (useful for testing)
//
// All logger implementations are safe for concurrent use by multiple goroutines.
package logging
