package agents

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/printforge/printflow/types"
)

// dimensionPattern matches "2cm", "15 mm", "0.5in" style size tokens.
var dimensionPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(mm|cm|in)`)

var knownShapes = []string{"cube", "box", "sphere", "ball", "cylinder", "cone", "pyramid", "gear", "bracket", "vase"}

var knownMaterials = []string{"pla", "abs", "petg", "tpu", "nylon", "resin"}

// ResearchAgent turns a free-text object request into structured
// requirements: object type, dimensions, and material.
type ResearchAgent struct {
	logger *zap.Logger
}

// NewResearchAgent creates the requirements-analysis worker.
func NewResearchAgent(logger *zap.Logger) *ResearchAgent {
	return &ResearchAgent{logger: logger.With(zap.String("agent", string(types.AgentResearch)))}
}

func (a *ResearchAgent) Type() types.AgentType { return types.AgentResearch }

// Execute extracts requirements from the user_request parameter.
func (a *ResearchAgent) Execute(ctx context.Context, task *types.Task) *types.TaskResult {
	request, ok := task.Params["user_request"].(string)
	if !ok || strings.TrimSpace(request) == "" {
		return types.NewTaskFailure("research: missing user_request")
	}

	lower := strings.ToLower(request)

	shape := "cube" // default primitive when the request names no shape
	for _, s := range knownShapes {
		if strings.Contains(lower, s) {
			shape = normalizeShape(s)
			break
		}
	}

	material := "pla"
	for _, m := range knownMaterials {
		if strings.Contains(lower, m) {
			material = m
			break
		}
	}

	dimensions := extractDimensions(lower)

	a.logger.Debug("requirements extracted",
		zap.String("task_id", task.TaskID),
		zap.String("shape", shape),
		zap.String("material", material),
	)

	return types.NewTaskResult(map[string]any{
		"object_type":   shape,
		"material":      material,
		"dimensions_mm": dimensions,
		"requirements":  request,
	})
}

func normalizeShape(s string) string {
	switch s {
	case "box":
		return "cube"
	case "ball":
		return "sphere"
	}
	return s
}

// extractDimensions returns all size tokens converted to millimetres.
// A request with no explicit size gets a single 20mm default.
func extractDimensions(text string) []float64 {
	matches := dimensionPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return []float64{20}
	}

	dims := make([]float64, 0, len(matches))
	for _, m := range matches {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		switch m[2] {
		case "cm":
			v *= 10
		case "in":
			v *= 25.4
		}
		dims = append(dims, v)
	}
	if len(dims) == 0 {
		return []float64{20}
	}
	return dims
}
