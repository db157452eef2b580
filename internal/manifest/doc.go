// Package manifest compiles CUE service manifests into registry entries.
//
// A manifest declares the supervised services, their pids, dependency
// wiring and restart budgets:
//
//	services: {
//		init: {pid: 1, restart_limit: 0}
//		vfs:  {pid: 2, deps: ["init"], restart_limit: 3}
//	}
//
// Compilation uses the CUE SDK's Go API directly (not CLI subprocess) and
// validates the result into a DAG before anything touches the manager.
package manifest
