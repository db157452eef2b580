// Package store provides durable storage for the service registry.
//
// Backed by SQLite in WAL mode. The registry table is a full snapshot:
// saving replaces the table contents atomically, loading reads it back.
// Runtime state (running flags, restart counts) is deliberately not part
// of the snapshot contract; callers decide what survives a reload.
package store
