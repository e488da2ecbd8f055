package agents

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/printforge/printflow/types"
)

// CADAgent derives a printable model description from the requirements
// produced by the research stage.
type CADAgent struct {
	logger *zap.Logger
}

// NewCADAgent creates the model-generation worker.
func NewCADAgent(logger *zap.Logger) *CADAgent {
	return &CADAgent{logger: logger.With(zap.String("agent", string(types.AgentCAD)))}
}

func (a *CADAgent) Type() types.AgentType { return types.AgentCAD }

// Execute builds a primitive model from object_type and dimensions_mm.
func (a *CADAgent) Execute(ctx context.Context, task *types.Task) *types.TaskResult {
	objectType, ok := task.Params["object_type"].(string)
	if !ok || objectType == "" {
		return types.NewTaskFailure("cad: missing object_type")
	}

	dims := toFloatSlice(task.Params["dimensions_mm"])
	if len(dims) == 0 {
		return types.NewTaskFailure("cad: missing dimensions_mm")
	}

	volume, triangles := modelGeometry(objectType, dims)

	a.logger.Debug("model generated",
		zap.String("task_id", task.TaskID),
		zap.String("object_type", objectType),
		zap.Float64("volume_mm3", volume),
	)

	return types.NewTaskResult(map[string]any{
		"model_file":     fmt.Sprintf("%s_%s.stl", objectType, task.TaskID[:8]),
		"model_format":   "stl",
		"object_type":    objectType,
		"dimensions_mm":  dims,
		"volume_mm3":     volume,
		"triangle_count": triangles,
	})
}

// modelGeometry estimates volume and mesh size for the supported primitives.
func modelGeometry(objectType string, dims []float64) (volume float64, triangles int) {
	d := dims[0]
	switch objectType {
	case "sphere":
		r := d / 2
		return 4.0 / 3.0 * math.Pi * r * r * r, 1280
	case "cylinder":
		r := d / 2
		h := d
		if len(dims) > 1 {
			h = dims[1]
		}
		return math.Pi * r * r * h, 512
	case "cone":
		r := d / 2
		h := d
		if len(dims) > 1 {
			h = dims[1]
		}
		return math.Pi * r * r * h / 3, 384
	default:
		// cube and everything without a closed-form volume
		w, h, l := d, d, d
		if len(dims) > 1 {
			h = dims[1]
		}
		if len(dims) > 2 {
			l = dims[2]
		}
		return w * h * l, 12
	}
}

// toFloatSlice tolerates the type loss that map[string]any round-trips
// introduce (JSON decodes numbers as float64, slices as []any).
func toFloatSlice(v any) []float64 {
	switch vv := v.(type) {
	case []float64:
		return vv
	case []any:
		out := make([]float64, 0, len(vv))
		for _, e := range vv {
			if f, ok := e.(float64); ok {
				out = append(out, f)
			}
		}
		return out
	}
	return nil
}
