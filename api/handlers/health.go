package handlers

import (
	"net/http"
	"time"

	"github.com/printforge/printflow/orchestrator"
)

// HealthHandler serves liveness information.
type HealthHandler struct {
	orch    *orchestrator.Orchestrator
	started time.Time
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(orch *orchestrator.Orchestrator) *HealthHandler {
	return &HealthHandler{orch: orch, started: time.Now()}
}

// ServeHTTP reports process health and the active workflow count.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, map[string]any{
		"status":           "ok",
		"uptime_seconds":   time.Since(h.started).Seconds(),
		"active_workflows": h.orch.ActiveCount(),
	})
}
