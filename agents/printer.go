package agents

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/printforge/printflow/types"
)

// PrinterAgent simulates driving the physical printer with the sliced
// G-code. The real device driver speaks serial G-code; the contract
// stays the same.
type PrinterAgent struct {
	// simulatedLayerTime shortens the per-layer wait so tests and local
	// runs finish quickly. Zero means no wait at all.
	simulatedLayerTime time.Duration
	logger             *zap.Logger
}

// NewPrinterAgent creates the printing worker.
func NewPrinterAgent(logger *zap.Logger) *PrinterAgent {
	return &PrinterAgent{logger: logger.With(zap.String("agent", string(types.AgentPrinter)))}
}

func (a *PrinterAgent) Type() types.AgentType { return types.AgentPrinter }

// Execute runs the print job described by the slicer output.
func (a *PrinterAgent) Execute(ctx context.Context, task *types.Task) *types.TaskResult {
	gcodeFile, ok := task.Params["gcode_file"].(string)
	if !ok || gcodeFile == "" {
		return types.NewTaskFailure("printer: missing gcode_file")
	}

	layers := 0
	switch v := task.Params["layer_count"].(type) {
	case int:
		layers = v
	case float64:
		layers = int(v)
	}
	if layers <= 0 {
		return types.NewTaskFailure("printer: missing layer_count")
	}

	jobID := uuid.NewString()
	start := time.Now()

	if a.simulatedLayerTime > 0 {
		select {
		case <-time.After(time.Duration(layers) * a.simulatedLayerTime):
		case <-ctx.Done():
			return types.NewTaskFailure("printer: job interrupted: " + ctx.Err().Error())
		}
	}

	a.logger.Info("print job finished",
		zap.String("task_id", task.TaskID),
		zap.String("job_id", jobID),
		zap.String("gcode_file", gcodeFile),
		zap.Int("layers", layers),
	)

	return types.NewTaskResult(map[string]any{
		"job_id":          jobID,
		"gcode_file":      gcodeFile,
		"layers_printed":  layers,
		"printer_status":  "idle",
		"job_status":      "completed",
		"elapsed_seconds": time.Since(start).Seconds(),
	})
}
