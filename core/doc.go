// Package core provides the foundational domain types and interfaces used by
// the agent coordination engine. It defines the core abstractions for:
//
//   - Agents and their typed capability sets
//   - Coordination sessions (the per-task state owned by the coordinator)
//   - Agent selections and orchestration plans
//   - Pluggable stores for sessions, agent responses and vector context
//
// Implementation concerns (persistence, LLM backends, tool transports) live in
// sibling packages. core keeps only small interfaces so backends can be
// swapped without touching callers.
package core
