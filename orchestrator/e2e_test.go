package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/printforge/printflow/agents"
	"github.com/printforge/printflow/comm"
	"github.com/printforge/printflow/types"
)

// TestEndToEnd_CubeRequest runs the full pipeline with the real bus,
// communicator, and all four workers.
func TestEndToEnd_CubeRequest(t *testing.T) {
	logger := zap.NewNop()

	bus := comm.NewBus(logger)
	bus.Register(agents.NewResearchAgent(logger))
	bus.Register(agents.NewCADAgent(logger))
	bus.Register(agents.NewSlicerAgent(logger))
	bus.Register(agents.NewPrinterAgent(logger))

	communicator := comm.NewCommunicator(bus, logger)
	o := newTestOrchestrator(t, communicator, DefaultConfig())

	id, err := o.CreateWorkflow(context.Background(), CreateRequest{
		UserRequest: "Create a simple cube with 2cm sides",
		UserID:      "maker-1",
	})
	require.NoError(t, err)

	snap := awaitState(t, o, id, StateCompleted)
	assert.Equal(t, float64(100), snap.ProgressPercentage)
	assert.Empty(t, snap.ErrorMessage)
	for _, step := range snap.Steps {
		assert.Equal(t, StepCompleted, step.Status)
	}

	// Inspect the stored workflow to check output propagation across the
	// whole chain.
	wf, ok := o.registry.Get(id)
	require.True(t, ok)

	wf.mu.RLock()
	defer wf.mu.RUnlock()

	research := wf.steps[0]
	assert.Equal(t, "cube", research.OutputData["object_type"])
	assert.Equal(t, []float64{20}, research.OutputData["dimensions_mm"])

	cad := wf.steps[1]
	assert.Equal(t, "cube", cad.InputData["object_type"], "research output must reach the cad step")
	assert.Contains(t, cad.OutputData["model_file"], ".stl")
	assert.Equal(t, float64(20*20*20), cad.OutputData["volume_mm3"])

	slicer := wf.steps[2]
	assert.Equal(t, cad.OutputData["model_file"], slicer.InputData["model_file"])
	assert.Contains(t, slicer.OutputData["gcode_file"], ".gcode")
	assert.Equal(t, 100, slicer.OutputData["layer_count"], "20mm at 0.2mm layers")

	printer := wf.steps[3]
	assert.Equal(t, slicer.OutputData["gcode_file"], printer.InputData["gcode_file"])
	assert.Equal(t, "completed", printer.OutputData["job_status"])
	assert.NotEmpty(t, printer.OutputData["job_id"])
}

// slowAgent stands in for a wedged worker: it never answers before the
// step timeout.
type slowAgent struct {
	agentType types.AgentType
	delay     time.Duration
}

func (a *slowAgent) Type() types.AgentType { return a.agentType }

func (a *slowAgent) Execute(ctx context.Context, task *types.Task) *types.TaskResult {
	select {
	case <-time.After(a.delay):
		return types.NewTaskResult(map[string]any{"ok": true})
	case <-ctx.Done():
		return types.NewTaskFailure("interrupted")
	}
}

// TestEndToEnd_WorkerTimeout exercises the communicator timeout feeding
// the retry path until the workflow fails.
func TestEndToEnd_WorkerTimeout(t *testing.T) {
	logger := zap.NewNop()

	bus := comm.NewBus(logger)
	bus.Register(agents.NewResearchAgent(logger))
	bus.Register(&slowAgent{agentType: types.AgentCAD, delay: 5 * time.Second})

	communicator := comm.NewCommunicator(bus, logger)

	cfg := DefaultConfig()
	cfg.StepTimeout = 30 * time.Millisecond
	o := newTestOrchestrator(t, communicator, cfg)

	id, err := o.CreateWorkflow(context.Background(), CreateRequest{UserRequest: "a cube"})
	require.NoError(t, err)

	snap := awaitState(t, o, id, StateFailed)
	assert.Equal(t, StepCompleted, snap.Steps[0].Status)
	assert.Equal(t, StepFailed, snap.Steps[1].Status)
	assert.Equal(t, DefaultMaxRetries, snap.Steps[1].RetryCount)
	assert.Contains(t, snap.ErrorMessage, "no response from cad")
}

// TestEndToEnd_UnregisteredAgent fails the pipeline at the first missing
// worker.
func TestEndToEnd_UnregisteredAgent(t *testing.T) {
	logger := zap.NewNop()

	bus := comm.NewBus(logger)
	bus.Register(agents.NewResearchAgent(logger))
	// No cad/slicer/printer registered.

	communicator := comm.NewCommunicator(bus, logger)
	o := newTestOrchestrator(t, communicator, DefaultConfig())

	id, err := o.CreateWorkflow(context.Background(), CreateRequest{UserRequest: "a cube"})
	require.NoError(t, err)

	snap := awaitState(t, o, id, StateFailed)
	assert.Equal(t, StepCompleted, snap.Steps[0].Status)
	assert.Equal(t, StepFailed, snap.Steps[1].Status)
	assert.Contains(t, snap.ErrorMessage, "no agent registered")
}
