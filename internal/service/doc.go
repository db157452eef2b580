// Package service supervises long-lived services under liveness contracts.
//
// Each registered service carries a dependency list and a contract (unique
// id, restart limit, restarts consumed). Dependency edits are cycle-guarded
// so the depends-on relation stays a DAG. A crash restarts the crashed
// service and every transitive dependent exactly once, then re-admits them
// to the scheduler, unless the crashed service's restart budget is spent.
//
// The manager assumes a single logical mutator, like the scheduler it feeds.
package service
