// Package core provides the foundational domain types shared by the
// orchestrator, the agents and the tool layer. It defines:
//
//   - AgentTask / AgentType (identity of one spawned agent)
//   - Status (the forward-only agent lifecycle)
//   - Event (the tagged union streamed to the transport)
//   - Citation and Command (the artifacts merged into a final answer)
//   - Content / Part (the role based conversation model handed to providers)
//   - OrchestratorContext / SystemProfile (externally supplied, read-only state)
//   - Admission (the tier quota boundary)
//
// The package intentionally keeps implementation concerns (model providers,
// tool back-ends, persistence) out of scope, exposing small types and
// interfaces so every other package can depend on it without cycles.
package core
