package comm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/printforge/printflow/types"
)

const senderName = "orchestrator"

// Communicator sends task requests to workers and correlates the
// asynchronous responses back to their callers. Each in-flight request
// has its own pending entry, so one slow worker never blocks another
// correlation.
type Communicator struct {
	transport Transport

	mu      sync.Mutex
	pending map[string]chan *types.TaskResult

	logger *zap.Logger
}

// NewCommunicator creates a communicator on top of the given transport.
// If the transport is a *Bus, the communicator installs itself as the
// bus's response handler.
func NewCommunicator(transport Transport, logger *zap.Logger) *Communicator {
	c := &Communicator{
		transport: transport,
		pending:   make(map[string]chan *types.TaskResult),
		logger:    logger.With(zap.String("component", "communicator")),
	}
	if bus, ok := transport.(*Bus); ok {
		bus.SetResponseHandler(c)
	}
	return c
}

// correlationKey builds the (agent, task_id) key matching a response to
// its originating request.
func correlationKey(agentType types.AgentType, taskID string) string {
	return string(agentType) + "/" + taskID
}

// Send dispatches one task to a worker and waits for its result, at most
// `timeout`. A timeout or transport failure comes back as a failed
// TaskResult tagged with the communication error code, never as a panic
// or a hung call.
func (c *Communicator) Send(ctx context.Context, agentType types.AgentType, input map[string]any, timeout time.Duration) *types.TaskResult {
	task := types.NewTask("execute_step", input)
	msg := types.NewTaskRequest(senderName, agentType, task)
	key := correlationKey(agentType, task.TaskID)

	// Buffered so a late response never blocks the inbound path.
	resultCh := make(chan *types.TaskResult, 1)
	c.mu.Lock()
	c.pending[key] = resultCh
	c.mu.Unlock()

	if err := c.transport.Deliver(ctx, msg); err != nil {
		c.evict(key)
		c.logger.Warn("task delivery failed",
			zap.String("agent", string(agentType)),
			zap.String("task_id", task.TaskID),
			zap.Error(err),
		)
		return communicationFailure(types.GetErrorCode(err), err.Error())
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case result := <-resultCh:
		return result
	case <-timer.C:
		c.evict(key)
		c.logger.Warn("task timed out",
			zap.String("agent", string(agentType)),
			zap.String("task_id", task.TaskID),
			zap.Duration("timeout", timeout),
		)
		return communicationFailure(types.ErrAgentTimeout,
			fmt.Sprintf("no response from %s within %s", agentType, timeout))
	case <-ctx.Done():
		c.evict(key)
		return communicationFailure(types.ErrAgentCommunication,
			fmt.Sprintf("send to %s aborted: %v", agentType, ctx.Err()))
	}
}

// HandleResponse implements ResponseHandler. Responses whose pending
// entry was already evicted (late arrivals after a timeout) are dropped.
func (c *Communicator) HandleResponse(msg *types.Message) {
	if msg.Type != types.MessageTaskResponse {
		c.logger.Warn("ignoring non-response message", zap.String("type", string(msg.Type)))
		return
	}

	taskID, _ := msg.Payload["task_id"].(string)
	key := correlationKey(types.AgentType(msg.Sender), taskID)

	c.mu.Lock()
	resultCh, ok := c.pending[key]
	if ok {
		delete(c.pending, key)
	}
	c.mu.Unlock()

	if !ok {
		c.logger.Debug("dropping uncorrelated response",
			zap.String("sender", msg.Sender),
			zap.String("task_id", taskID),
		)
		return
	}

	resultCh <- resultFromPayload(msg.Payload)
}

// PendingCount reports the number of unresolved correlations.
func (c *Communicator) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *Communicator) evict(key string) {
	c.mu.Lock()
	delete(c.pending, key)
	c.mu.Unlock()
}

func resultFromPayload(payload map[string]any) *types.TaskResult {
	result := &types.TaskResult{}
	result.Success, _ = payload["success"].(bool)
	result.Data, _ = payload["data"].(map[string]any)
	result.ErrorMessage, _ = payload["error_message"].(string)
	result.Metadata, _ = payload["metadata"].(map[string]any)
	return result
}

func communicationFailure(code types.ErrorCode, message string) *types.TaskResult {
	if code == "" {
		code = types.ErrAgentCommunication
	}
	result := types.NewTaskFailure(message)
	result.Metadata = map[string]any{"error_code": string(code)}
	return result
}
