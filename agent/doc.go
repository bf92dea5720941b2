// Package agent contains the agent execution contract and the concrete agents
// of agentcouncil. The package focuses on three concerns:
//
//  1. The reusable lifecycle skeleton (BaseAgent, Execute): status machine,
//     circuit breaker admission, events, metrics, tracing and audit
//  2. The bounded tool-calling loop (CallWithTools) and sub-agent spawning
//  3. Concrete agents: research, planner, validator, synthesizer, curious and
//     custom
//
// Execution model:
//   - An agent is constructed for exactly one AgentTask by a Factory and run
//     once through Execute
//   - Agents report progress only through events written to Env.Emit; events
//     of one agent are emitted in order and end with a terminal status
//   - Failures of tools and sub-agents are values, never panics; a failing
//     agent degrades to an error event followed by the error status
//
// Collaborators (model pool, tool registry, breakers, quotas, audit, metrics)
// are injected through Env and shared by all agents of a conversation.
package agent
