// Package registry contains AgentRegistry and ResponseStore implementations.
// The interfaces reside in the core package; depend on core.AgentRegistry and
// core.ResponseStore in your code and select an implementation at wiring
// time.
//
// InMemoryRegistry and InMemoryResponseStore are process-local and suited to
// tests and single-node demos. The sqlite sub-package provides a durable
// backend. Cached wraps any registry with an expiring LRU.
package registry
