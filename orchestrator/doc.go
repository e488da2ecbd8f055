// Package orchestrator is the workflow orchestration engine. It creates
// workflows, drives their steps across the pipeline workers in order,
// propagates each step's output into the next step's input, retries
// failed steps, enforces a ceiling on concurrently active workflows, and
// exposes status, cancel, and list operations.
//
// Each active workflow is driven by its own goroutine (the step
// executor); the Registry and the concurrency Gate are the only state
// shared across workflow executions.
package orchestrator
