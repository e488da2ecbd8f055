package agents

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/printforge/printflow/types"
)

// SlicerAgent converts a model description into G-code estimates:
// layer count, filament use, and print time.
type SlicerAgent struct {
	layerHeight float64
	logger      *zap.Logger
}

// NewSlicerAgent creates the G-code generation worker with a 0.2mm layer height.
func NewSlicerAgent(logger *zap.Logger) *SlicerAgent {
	return &SlicerAgent{
		layerHeight: 0.2,
		logger:      logger.With(zap.String("agent", string(types.AgentSlicer))),
	}
}

func (a *SlicerAgent) Type() types.AgentType { return types.AgentSlicer }

// Execute slices the model produced by the cad stage.
func (a *SlicerAgent) Execute(ctx context.Context, task *types.Task) *types.TaskResult {
	modelFile, ok := task.Params["model_file"].(string)
	if !ok || modelFile == "" {
		return types.NewTaskFailure("slicer: missing model_file")
	}

	volume, ok := task.Params["volume_mm3"].(float64)
	if !ok || volume <= 0 {
		return types.NewTaskFailure("slicer: missing volume_mm3")
	}

	height := 20.0
	if dims := toFloatSlice(task.Params["dimensions_mm"]); len(dims) > 0 {
		height = dims[len(dims)-1]
	}

	layers := int(math.Ceil(height / a.layerHeight))
	// 20% infill plus two perimeter walls, 1.25 g/cm^3 PLA density
	filamentGrams := volume / 1000 * 0.32 * 1.25
	printSeconds := float64(layers)*18 + filamentGrams*90

	a.logger.Debug("model sliced",
		zap.String("task_id", task.TaskID),
		zap.Int("layers", layers),
		zap.Float64("filament_g", filamentGrams),
	)

	return types.NewTaskResult(map[string]any{
		"gcode_file":      strings.TrimSuffix(modelFile, ".stl") + ".gcode",
		"layer_count":     layers,
		"layer_height_mm": a.layerHeight,
		"filament_g":      math.Round(filamentGrams*100) / 100,
		"print_time_s":    math.Round(printSeconds),
		"print_time":      formatDuration(printSeconds),
	})
}

func formatDuration(seconds float64) string {
	s := int(seconds)
	if s < 3600 {
		return fmt.Sprintf("%dm%ds", s/60, s%60)
	}
	return fmt.Sprintf("%dh%dm", s/3600, (s%3600)/60)
}
