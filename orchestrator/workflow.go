package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/printforge/printflow/types"
)

// WorkflowState is the lifecycle state of a workflow. Non-terminal
// states mirror the phase of the currently active step.
type WorkflowState string

const (
	StatePending       WorkflowState = "PENDING"
	StateResearchPhase WorkflowState = "RESEARCH_PHASE"
	StateCADPhase      WorkflowState = "CAD_PHASE"
	StateSlicingPhase  WorkflowState = "SLICING_PHASE"
	StatePrintingPhase WorkflowState = "PRINTING_PHASE"
	StateCompleted     WorkflowState = "COMPLETED"
	StateFailed        WorkflowState = "FAILED"
	StateCancelled     WorkflowState = "CANCELLED"
)

// Terminal reports whether the state is COMPLETED, FAILED, or CANCELLED.
func (s WorkflowState) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// phaseFor maps a worker kind to the workflow state that mirrors it.
func phaseFor(agentType types.AgentType) WorkflowState {
	switch agentType {
	case types.AgentResearch:
		return StateResearchPhase
	case types.AgentCAD:
		return StateCADPhase
	case types.AgentSlicer:
		return StateSlicingPhase
	case types.AgentPrinter:
		return StatePrintingPhase
	}
	return StatePending
}

// StepStatus is the lifecycle status of one workflow step.
type StepStatus string

const (
	StepPending   StepStatus = "PENDING"
	StepRunning   StepStatus = "RUNNING"
	StepCompleted StepStatus = "COMPLETED"
	StepFailed    StepStatus = "FAILED"
	StepSkipped   StepStatus = "SKIPPED"
)

// DefaultMaxRetries is the per-step retry budget unless configured.
const DefaultMaxRetries = 3

// WorkflowStep is one stage of a workflow, bound to exactly one worker
// kind. Steps are created with the parent workflow and mutated only by
// the executor that owns the workflow, under the workflow's lock.
type WorkflowStep struct {
	ID           string
	Name         string
	AgentType    types.AgentType
	Status       StepStatus
	InputData    map[string]any
	OutputData   map[string]any
	StartTime    time.Time
	EndTime      time.Time
	RetryCount   int
	MaxRetries   int
	ErrorMessage string
}

// CanRetry reports whether a failed step has retry budget left.
func (s *WorkflowStep) CanRetry() bool {
	return s.Status == StepFailed && s.RetryCount < s.MaxRetries
}

// Duration returns how long the step has run. Zero until started.
func (s *WorkflowStep) Duration() time.Duration {
	if s.StartTime.IsZero() {
		return 0
	}
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// Workflow is one end-to-end pipeline execution for a single user
// request. The identity fields are immutable after creation; mutable
// state is guarded by mu and written only by the owning executor (plus
// the cancel path, which flips the cancellation flag).
type Workflow struct {
	ID          string
	UserRequest string
	UserID      string
	Metadata    map[string]any
	CreatedAt   time.Time

	mu           sync.RWMutex
	state        WorkflowState
	steps        []*WorkflowStep
	progress     float64
	errorMessage string
	cancelled    bool
	cancelReason string
	cancelFn     context.CancelFunc
}

// pipelineSteps defines the canonical research → cad → slicer → printer
// pipeline. The step order never changes after creation.
var pipelineSteps = []struct {
	name      string
	agentType types.AgentType
}{
	{"Requirements Analysis", types.AgentResearch},
	{"3D Model Generation", types.AgentCAD},
	{"G-code Generation", types.AgentSlicer},
	{"3D Printing", types.AgentPrinter},
}

// newWorkflow builds a PENDING workflow with the canonical four steps.
func newWorkflow(userRequest, userID string, metadata map[string]any, maxRetries int) *Workflow {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	steps := make([]*WorkflowStep, 0, len(pipelineSteps))
	for _, ps := range pipelineSteps {
		steps = append(steps, &WorkflowStep{
			ID:         uuid.NewString(),
			Name:       ps.name,
			AgentType:  ps.agentType,
			Status:     StepPending,
			MaxRetries: maxRetries,
		})
	}

	return &Workflow{
		ID:          uuid.NewString(),
		UserRequest: userRequest,
		UserID:      userID,
		Metadata:    metadata,
		CreatedAt:   time.Now(),
		state:       StatePending,
		steps:       steps,
	}
}

// State returns the current workflow state.
func (w *Workflow) State() WorkflowState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// Progress returns the current progress percentage.
func (w *Workflow) Progress() float64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.progress
}

// IsCancelled reports whether cancellation has been requested.
func (w *Workflow) IsCancelled() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cancelled
}

// cancel marks the workflow CANCELLED and signals the executor. Returns
// false if the workflow is already terminal, so a second cancel is a
// no-op.
func (w *Workflow) cancel(reason string) bool {
	w.mu.Lock()
	cancelFn := w.cancelFn
	if w.state.Terminal() {
		w.mu.Unlock()
		return false
	}
	w.cancelled = true
	w.cancelReason = reason
	w.state = StateCancelled
	w.mu.Unlock()

	// Unblock an in-flight communicator send; step state is still only
	// transitioned at step boundaries.
	if cancelFn != nil {
		cancelFn()
	}
	return true
}

// bindCancel stores the executor's context cancel function.
func (w *Workflow) bindCancel(fn context.CancelFunc) {
	w.mu.Lock()
	w.cancelFn = fn
	w.mu.Unlock()
}

// startStep transitions step i to RUNNING, records its input and start
// time, and mirrors the step's phase in the workflow state. Returns
// false if cancellation has already been requested.
func (w *Workflow) startStep(i int, input map[string]any) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancelled {
		return false
	}
	step := w.steps[i]
	step.Status = StepRunning
	step.InputData = input
	step.StartTime = time.Now()
	w.state = phaseFor(step.AgentType)
	return true
}

// completeStep transitions step i to COMPLETED, stores its output, and
// recomputes progress.
func (w *Workflow) completeStep(i int, output map[string]any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	step := w.steps[i]
	step.Status = StepCompleted
	step.OutputData = output
	step.EndTime = time.Now()
	w.recomputeProgress()
}

// retryStep performs the FAILED → RUNNING self-loop on step i,
// incrementing its retry count.
func (w *Workflow) retryStep(i int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	step := w.steps[i]
	step.Status = StepRunning
	step.RetryCount++
}

// markStepFailed transitions step i to FAILED with the attempt's error.
func (w *Workflow) markStepFailed(i int, message string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	step := w.steps[i]
	step.Status = StepFailed
	step.EndTime = time.Now()
	step.ErrorMessage = message
}

// fail transitions the workflow to FAILED with the terminal error.
// No-op when already terminal (a cancel may have raced in).
func (w *Workflow) fail(message string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state.Terminal() {
		return
	}
	w.state = StateFailed
	w.errorMessage = message
}

// complete transitions the workflow to COMPLETED. No-op when terminal.
func (w *Workflow) complete() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state.Terminal() {
		return
	}
	w.state = StateCompleted
	w.recomputeProgress()
}

// skipFrom marks step i and every later non-terminal step SKIPPED.
// Used when cancellation is observed at a step boundary.
func (w *Workflow) skipFrom(i int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, step := range w.steps[i:] {
		if step.Status == StepPending || step.Status == StepRunning {
			step.Status = StepSkipped
		}
	}
}

// recomputeProgress derives progress from completed steps. Callers must
// hold mu.
func (w *Workflow) recomputeProgress() {
	completed := 0
	for _, step := range w.steps {
		if step.Status == StepCompleted {
			completed++
		}
	}
	w.progress = 100 * float64(completed) / float64(len(w.steps))
}

// stepInput builds the input for step i: the original request and
// caller metadata, overlaid with the previous step's output. Step 0
// receives only the original request.
func (w *Workflow) stepInput(i int) map[string]any {
	w.mu.RLock()
	defer w.mu.RUnlock()

	input := map[string]any{
		"user_request": w.UserRequest,
		"workflow_id":  w.ID,
	}
	for k, v := range w.Metadata {
		input[k] = v
	}
	if i > 0 {
		for k, v := range w.steps[i-1].OutputData {
			input[k] = v
		}
	}
	return input
}

// stepCount returns the fixed number of steps.
func (w *Workflow) stepCount() int {
	return len(w.steps)
}

// stepRetryState returns the retry counters for step i.
func (w *Workflow) stepRetryState(i int) (retryCount, maxRetries int) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.steps[i].RetryCount, w.steps[i].MaxRetries
}

// agentTypeOf returns the worker kind bound to step i.
func (w *Workflow) agentTypeOf(i int) types.AgentType {
	return w.steps[i].AgentType
}

// StepSnapshot is the externally visible summary of one step.
type StepSnapshot struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	AgentType  types.AgentType `json:"agent_type"`
	Status     StepStatus      `json:"status"`
	RetryCount int             `json:"retry_count"`
	Duration   float64         `json:"duration_seconds"`
}

// Snapshot is the externally visible state of a workflow. It is a deep
// copy: mutating it never touches the stored workflow.
type Snapshot struct {
	WorkflowID         string         `json:"workflow_id"`
	State              WorkflowState  `json:"state"`
	ProgressPercentage float64        `json:"progress_percentage"`
	Steps              []StepSnapshot `json:"steps"`
	ErrorMessage       string         `json:"error_message,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
}

// snapshot captures the workflow's current state for external readers.
func (w *Workflow) snapshot() *Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()

	steps := make([]StepSnapshot, 0, len(w.steps))
	for _, step := range w.steps {
		steps = append(steps, StepSnapshot{
			ID:         step.ID,
			Name:       step.Name,
			AgentType:  step.AgentType,
			Status:     step.Status,
			RetryCount: step.RetryCount,
			Duration:   step.Duration().Seconds(),
		})
	}

	return &Snapshot{
		WorkflowID:         w.ID,
		State:              w.state,
		ProgressPercentage: w.progress,
		Steps:              steps,
		ErrorMessage:       w.errorMessage,
		CreatedAt:          w.CreatedAt,
	}
}
