package orchestrator

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/printforge/printflow/internal/metrics"
	"github.com/printforge/printflow/types"
)

// Sender is the communicator capability the executor depends on.
// Satisfied by *comm.Communicator.
type Sender interface {
	Send(ctx context.Context, agentType types.AgentType, input map[string]any, timeout time.Duration) *types.TaskResult
}

// executor drives one workflow through its steps sequentially. It is
// the single writer of the workflow's mutable state; cross-workflow
// coordination happens only through the gate and the registry.
type executor struct {
	wf          *Workflow
	sender      Sender
	retry       RetryPolicy
	gate        *Gate
	metrics     *metrics.Collector
	tracer      trace.Tracer
	stepTimeout time.Duration
	logger      *zap.Logger
}

// run executes the workflow until a terminal state is reached, then
// releases the gate slot exactly once.
func (e *executor) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	e.wf.bindCancel(cancel)

	defer func() {
		state := e.wf.State()
		e.gate.Release()
		e.metrics.RecordWorkflowFinished(string(state))
		e.logger.Info("workflow finished",
			zap.String("workflow_id", e.wf.ID),
			zap.String("state", string(state)),
			zap.Float64("progress", e.wf.Progress()),
		)
	}()

	for i := 0; i < e.wf.stepCount(); i++ {
		// Cancellation is cooperative and observed at step boundaries.
		if e.wf.IsCancelled() {
			e.wf.skipFrom(i)
			e.logger.Info("workflow cancelled, remaining steps skipped",
				zap.String("workflow_id", e.wf.ID),
				zap.Int("skipped_from", i),
			)
			return
		}
		if !e.runStep(ctx, i) {
			return
		}
	}

	e.wf.complete()
}

// runStep drives step i through its attempts. Returns false when the
// pipeline must stop (terminal failure or cancellation).
func (e *executor) runStep(ctx context.Context, i int) bool {
	agentType := e.wf.agentTypeOf(i)
	input := e.wf.stepInput(i)

	if !e.wf.startStep(i, input) {
		// Cancellation raced in between the boundary check and the start.
		e.wf.skipFrom(i)
		return false
	}

	ctx, span := e.tracer.Start(ctx, "workflow.step",
		trace.WithAttributes(
			attribute.String("workflow.id", e.wf.ID),
			attribute.String("step.agent_type", string(agentType)),
			attribute.Int("step.index", i),
		),
	)
	defer span.End()

	e.logger.Debug("step started",
		zap.String("workflow_id", e.wf.ID),
		zap.String("agent", string(agentType)),
		zap.Int("step", i),
	)

	for {
		start := time.Now()
		result := e.sender.Send(ctx, agentType, input, e.stepTimeout)
		e.metrics.RecordStepDuration(string(agentType), time.Since(start))

		if result.Success {
			e.wf.completeStep(i, result.Data)
			e.logger.Info("step completed",
				zap.String("workflow_id", e.wf.ID),
				zap.String("agent", string(agentType)),
				zap.Int("step", i),
				zap.Float64("progress", e.wf.Progress()),
			)
			return true
		}

		message := result.ErrorMessage
		if message == "" {
			message = "step failed without error message"
		}

		// An attempt abandoned because the workflow was cancelled does
		// not burn retry budget; the boundary handling skips the rest.
		if e.wf.IsCancelled() {
			e.wf.skipFrom(i)
			return false
		}

		e.wf.markStepFailed(i, message)
		retryCount, maxRetries := e.wf.stepRetryState(i)
		if !e.retry.ShouldRetry(retryCount, maxRetries) {
			e.metrics.RecordStepFailure(string(agentType))
			span.SetStatus(codes.Error, message)
			e.wf.fail(message)
			e.logger.Warn("step failed terminally",
				zap.String("workflow_id", e.wf.ID),
				zap.String("agent", string(agentType)),
				zap.Int("step", i),
				zap.Int("retries", retryCount),
				zap.String("error", message),
			)
			return false
		}

		e.wf.retryStep(i)
		e.metrics.RecordStepRetry(string(agentType))
		e.logger.Warn("step attempt failed, retrying",
			zap.String("workflow_id", e.wf.ID),
			zap.String("agent", string(agentType)),
			zap.Int("step", i),
			zap.Int("attempt", retryCount+1),
			zap.String("error", message),
		)

		if delay := e.retry.Delay(retryCount + 1); delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				e.wf.skipFrom(i)
				return false
			}
		}
		// Resend with the identical input.
	}
}
