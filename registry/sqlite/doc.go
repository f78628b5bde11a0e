// Package sqlite provides a durable core.AgentRegistry and core.ResponseStore
// on top of modernc.org/sqlite. Schema changes are goose migrations embedded
// in the binary and applied by Open.
package sqlite
