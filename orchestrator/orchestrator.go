package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/printforge/printflow/internal/metrics"
	"github.com/printforge/printflow/types"
)

// Config tunes the orchestration engine.
type Config struct {
	// MaxConcurrentWorkflows bounds simultaneously non-terminal workflows.
	MaxConcurrentWorkflows int
	// MaxRequestLength bounds the user_request string.
	MaxRequestLength int
	// StepTimeout bounds each communicator send.
	StepTimeout time.Duration
	// Retry is the step-level retry policy.
	Retry RetryPolicy
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentWorkflows: DefaultMaxConcurrentWorkflows,
		MaxRequestLength:       2000,
		StepTimeout:            30 * time.Second,
		Retry:                  DefaultRetryPolicy(),
	}
}

// CreateRequest carries the caller's input for a new workflow.
type CreateRequest struct {
	UserRequest string         `json:"user_request"`
	UserID      string         `json:"user_id,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Orchestrator is the public facade of the engine: create, status,
// cancel, list, and the task dispatch entry point. It is a thin,
// non-blocking layer; each created workflow runs on its own goroutine.
type Orchestrator struct {
	cfg      Config
	registry *Registry
	gate     *Gate
	sender   Sender
	metrics  *metrics.Collector
	logger   *zap.Logger

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
}

// New creates an orchestrator with constructor-injected collaborators.
// collector may be nil to run without metrics.
func New(sender Sender, cfg Config, collector *metrics.Collector, logger *zap.Logger) *Orchestrator {
	if cfg.MaxRequestLength <= 0 {
		cfg.MaxRequestLength = 2000
	}
	if cfg.StepTimeout <= 0 {
		cfg.StepTimeout = 30 * time.Second
	}
	if cfg.Retry.MaxRetries <= 0 {
		cfg.Retry.MaxRetries = DefaultMaxRetries
	}

	baseCtx, stop := context.WithCancel(context.Background())
	return &Orchestrator{
		cfg:      cfg,
		registry: NewRegistry(logger),
		gate:     NewGate(cfg.MaxConcurrentWorkflows),
		sender:   sender,
		metrics:  collector,
		logger:   logger.With(zap.String("component", "orchestrator")),
		baseCtx:  baseCtx,
		stop:     stop,
	}
}

// CreateWorkflow validates the request, admits it through the gate,
// registers the workflow, and launches its executor. A full gate fails
// fast with MAX_WORKFLOWS_EXCEEDED and performs no partial registration.
func (o *Orchestrator) CreateWorkflow(ctx context.Context, req CreateRequest) (string, error) {
	if strings.TrimSpace(req.UserRequest) == "" {
		return "", types.NewValidationError("user_request must not be empty")
	}
	if len(req.UserRequest) > o.cfg.MaxRequestLength {
		return "", types.NewValidationError(
			fmt.Sprintf("user_request exceeds %d characters", o.cfg.MaxRequestLength))
	}

	if !o.gate.Admit() {
		o.metrics.RecordWorkflowRejected()
		return "", types.NewWorkflowError(types.ErrMaxWorkflowsExceeded,
			fmt.Sprintf("maximum of %d concurrent workflows reached", o.gate.Capacity())).
			WithRetryable(true)
	}

	wf := newWorkflow(req.UserRequest, req.UserID, req.Metadata, o.cfg.Retry.MaxRetries)
	if err := o.registry.Insert(wf); err != nil {
		o.gate.Release()
		return "", err
	}
	o.metrics.RecordWorkflowCreated()

	o.logger.Info("workflow created",
		zap.String("workflow_id", wf.ID),
		zap.String("user_id", req.UserID),
		zap.Int("steps", wf.stepCount()),
	)

	exec := &executor{
		wf:          wf,
		sender:      o.sender,
		retry:       o.cfg.Retry,
		gate:        o.gate,
		metrics:     o.metrics,
		tracer:      otel.Tracer("github.com/printforge/printflow/orchestrator"),
		stepTimeout: o.cfg.StepTimeout,
		logger:      o.logger,
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		exec.run(o.baseCtx)
	}()

	return wf.ID, nil
}

// GetWorkflowStatus returns a snapshot of one workflow. Unknown ids fail
// with WORKFLOW_NOT_FOUND; a placeholder is never returned.
func (o *Orchestrator) GetWorkflowStatus(ctx context.Context, workflowID string) (*Snapshot, error) {
	wf, ok := o.registry.Get(workflowID)
	if !ok {
		return nil, types.NewWorkflowError(types.ErrWorkflowNotFound, "workflow not found: "+workflowID)
	}
	return wf.snapshot(), nil
}

// CancelWorkflow requests cooperative cancellation. Returns false for
// unknown or already-terminal workflows, true exactly once otherwise.
func (o *Orchestrator) CancelWorkflow(ctx context.Context, workflowID, reason string) bool {
	wf, ok := o.registry.Get(workflowID)
	if !ok {
		return false
	}
	cancelled := wf.cancel(reason)
	if cancelled {
		o.logger.Info("workflow cancellation requested",
			zap.String("workflow_id", workflowID),
			zap.String("reason", reason),
		)
	}
	return cancelled
}

// ListWorkflows returns a snapshot of every tracked workflow,
// oldest-created first.
func (o *Orchestrator) ListWorkflows(ctx context.Context) []*Snapshot {
	workflows := o.registry.List()
	out := make([]*Snapshot, 0, len(workflows))
	for _, wf := range workflows {
		out = append(out, wf.snapshot())
	}
	return out
}

// ExecuteTask is the single dispatch entry mapping a task operation to
// one of the public operations. Unknown operations and missing payload
// fields fail with a validation error.
func (o *Orchestrator) ExecuteTask(ctx context.Context, task *types.Task) (map[string]any, error) {
	if task == nil {
		return nil, types.NewValidationError("task must not be nil")
	}

	switch task.Operation {
	case "create_workflow":
		userRequest, _ := task.Params["user_request"].(string)
		if userRequest == "" {
			return nil, types.NewValidationError("create_workflow requires user_request")
		}
		userID, _ := task.Params["user_id"].(string)
		metadata, _ := task.Params["metadata"].(map[string]any)
		id, err := o.CreateWorkflow(ctx, CreateRequest{UserRequest: userRequest, UserID: userID, Metadata: metadata})
		if err != nil {
			return nil, err
		}
		return map[string]any{"workflow_id": id}, nil

	case "get_workflow_status":
		workflowID, _ := task.Params["workflow_id"].(string)
		if workflowID == "" {
			return nil, types.NewValidationError("get_workflow_status requires workflow_id")
		}
		snap, err := o.GetWorkflowStatus(ctx, workflowID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"workflow": snap}, nil

	case "cancel_workflow":
		workflowID, _ := task.Params["workflow_id"].(string)
		if workflowID == "" {
			return nil, types.NewValidationError("cancel_workflow requires workflow_id")
		}
		reason, _ := task.Params["reason"].(string)
		return map[string]any{"cancelled": o.CancelWorkflow(ctx, workflowID, reason)}, nil

	case "list_workflows":
		return map[string]any{"workflows": o.ListWorkflows(ctx)}, nil

	default:
		return nil, types.NewValidationError("unknown operation: " + task.Operation)
	}
}

// ActiveCount reports workflows currently in a non-terminal state.
func (o *Orchestrator) ActiveCount() int {
	count := 0
	for _, wf := range o.registry.List() {
		if !wf.State().Terminal() {
			count++
		}
	}
	return count
}

// Shutdown cancels all running executors and waits for them to finish,
// bounded by ctx.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.stop()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
