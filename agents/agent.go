package agents

import (
	"context"

	"github.com/printforge/printflow/types"
)

// Agent is the uniform capability every pipeline worker implements.
// Execute never returns a Go error: worker-level failures are reported
// through TaskResult.Success so the orchestrator treats business failures
// and transport failures through one retry path.
type Agent interface {
	// Execute runs one task and returns its result.
	Execute(ctx context.Context, task *types.Task) *types.TaskResult
	// Type returns the worker kind this agent serves.
	Type() types.AgentType
}
