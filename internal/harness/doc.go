// Package harness executes YAML-defined kernel scenarios.
//
// A scenario declares services, drives the scheduler, service manager and
// IPC fastpath through a step list, then asserts on the resulting trace
// and final state. Each scenario runs against a freshly constructed kernel
// so cases never share state.
//
// Golden trace comparison (via goldie) pins the exact event sequence a
// scenario produces; assertions cover targeted properties.
package harness
