// Package logging provides a minimal logging interface and adapters for agentcouncil.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the orchestrator, agents and tools use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation (testing, minimal setups)
//   - LogToolCall / LogModelCall helpers with consistent attribute names
//
// Usage:
//
//	logger := logging.New(logging.Config{Level: logging.LogLevelInfo, Format: "json"})
//	orch := orchestrator.New(octx, func(o *orchestrator.Options) { o.Logger = logger })
//
// Log messages use dotted event names ("agent.run.start", "tool.call.failed")
// followed by key/value pairs.
package logging
