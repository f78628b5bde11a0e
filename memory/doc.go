// Package memory contains concrete ContextStore implementations. The store
// interface and SearchResult type reside in the core package. Depend on
// core.ContextStore in your code; select an implementation (the in‑memory
// store here, or the chromem sub-package) at wiring time.
//
// Every store scopes reads by owner key: a query for one owner never returns
// another owner's items.
package memory
