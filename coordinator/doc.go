// Package coordinator owns coordination sessions and drives advisor agents
// through them.
//
// Session mutations go through core.SessionStore.Update so they are atomic
// per session. Handoff is a compare-and-swap on the current agent. Mutations
// on unknown or closed sessions report false instead of an error; invalid
// input is returned as *core.ValidationError.
//
// Coordinate and ResolveConflicts never fail because the LLM backend did:
// every backend error, parse failure or panic on that path degrades to the
// deterministic database answer. Recommend chains everything into the full
// advisory pipeline.
package coordinator
