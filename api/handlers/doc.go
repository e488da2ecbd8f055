// Package handlers contains the HTTP handlers fronting the
// orchestration engine. The HTTP layer is a thin collaborator: it
// validates transport-level input, delegates to the orchestrator, and
// maps typed error codes to HTTP statuses.
package handlers
