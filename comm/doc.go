// Package comm moves task traffic between the orchestrator and the
// pipeline workers. The Communicator correlates outgoing task requests
// with asynchronous task responses and applies a per-request timeout;
// the Bus is the in-process transport behind it. Swapping the Bus for a
// network broker only requires another Transport implementation.
package comm
