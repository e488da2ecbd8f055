package types

import (
	"time"

	"github.com/google/uuid"
)

// AgentType identifies one of the four worker kinds in the pipeline.
// The set is closed: the orchestrator switches on the tag only to pick
// a destination, never on worker-internal behavior.
type AgentType string

const (
	AgentResearch AgentType = "research"
	AgentCAD      AgentType = "cad"
	AgentSlicer   AgentType = "slicer"
	AgentPrinter  AgentType = "printer"
)

// Valid reports whether t is one of the known worker kinds.
func (t AgentType) Valid() bool {
	switch t {
	case AgentResearch, AgentCAD, AgentSlicer, AgentPrinter:
		return true
	}
	return false
}

// Task is the request half of the uniform worker contract: a task id,
// an operation name, and operation-specific parameters.
type Task struct {
	TaskID    string         `json:"task_id"`
	Operation string         `json:"operation"`
	Params    map[string]any `json:"params,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewTask creates a task with a fresh id.
func NewTask(operation string, params map[string]any) *Task {
	return &Task{
		TaskID:    uuid.NewString(),
		Operation: operation,
		Params:    params,
		CreatedAt: time.Now(),
	}
}

// TaskResult is the response half of the worker contract. It is never
// persisted beyond being folded into a workflow step's output.
type TaskResult struct {
	Success      bool           `json:"success"`
	Data         map[string]any `json:"data,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// NewTaskResult creates a successful result carrying data.
func NewTaskResult(data map[string]any) *TaskResult {
	return &TaskResult{Success: true, Data: data}
}

// NewTaskFailure creates a failed result with an error message.
func NewTaskFailure(message string) *TaskResult {
	return &TaskResult{Success: false, ErrorMessage: message}
}
