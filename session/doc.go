// Package session houses concrete implementations of core.SessionStore.
// The interface itself (and the CoordinationSession struct) live in the core
// package; keeping only implementations here prevents the coordinator from
// depending on concrete storage.
//
// InMemoryStore is the default, volatile backend. The redis sub-package
// provides a shared backend whose Update is atomic across processes. Only the
// wiring layer decides which implementation to instantiate.
package session
