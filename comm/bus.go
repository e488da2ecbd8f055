package comm

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/printforge/printflow/agents"
	"github.com/printforge/printflow/types"
)

// Transport delivers a task_request envelope toward its receiver. The
// matching task_response arrives asynchronously at the ResponseHandler
// installed on the transport.
type Transport interface {
	Deliver(ctx context.Context, msg *types.Message) error
}

// ResponseHandler consumes inbound task_response envelopes.
type ResponseHandler interface {
	HandleResponse(msg *types.Message)
}

// Bus is the in-process Transport: each registered agent is invoked on
// its own goroutine and its result is routed back through the handler.
type Bus struct {
	mu       sync.RWMutex
	agents   map[types.AgentType]agents.Agent
	limiters map[types.AgentType]*rate.Limiter
	handler  ResponseHandler
	logger   *zap.Logger
	wg       sync.WaitGroup
}

// NewBus creates an empty bus.
func NewBus(logger *zap.Logger) *Bus {
	return &Bus{
		agents:   make(map[types.AgentType]agents.Agent),
		limiters: make(map[types.AgentType]*rate.Limiter),
		logger:   logger.With(zap.String("component", "bus")),
	}
}

// Register makes an agent reachable under its type. Registering the
// same type again replaces the previous agent.
func (b *Bus) Register(agent agents.Agent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.agents[agent.Type()] = agent
}

// SetRateLimit throttles deliveries to one agent type. Useful when a
// worker fronts a device that cannot absorb bursts.
func (b *Bus) SetRateLimit(agentType types.AgentType, limit rate.Limit, burst int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.limiters[agentType] = rate.NewLimiter(limit, burst)
}

// SetResponseHandler installs the inbound response path. Must be called
// before the first Deliver.
func (b *Bus) SetResponseHandler(handler ResponseHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = handler
}

// Deliver dispatches a task_request to its registered agent. Delivery is
// asynchronous: the agent runs on its own goroutine and the response is
// pushed to the handler when it completes.
func (b *Bus) Deliver(ctx context.Context, msg *types.Message) error {
	if msg.Type != types.MessageTaskRequest {
		return types.NewCommunicationError("bus: cannot deliver " + string(msg.Type))
	}

	agentType := types.AgentType(msg.Receiver)

	b.mu.RLock()
	agent, ok := b.agents[agentType]
	limiter := b.limiters[agentType]
	handler := b.handler
	b.mu.RUnlock()

	if !ok {
		return types.NewError(types.ErrAgentNotRegistered, "bus: no agent registered for "+msg.Receiver)
	}
	if handler == nil {
		return types.NewCommunicationError("bus: no response handler installed")
	}

	taskID, _ := msg.Payload["task_id"].(string)
	operation, _ := msg.Payload["operation"].(string)
	params, _ := msg.Payload["params"].(map[string]any)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				b.logger.Debug("delivery abandoned while rate limited",
					zap.String("receiver", msg.Receiver),
					zap.Error(err),
				)
				return
			}
		}

		task := &types.Task{TaskID: taskID, Operation: operation, Params: params, CreatedAt: msg.Timestamp}
		result := agent.Execute(ctx, task)
		handler.HandleResponse(types.NewTaskResponse(agentType, msg.Sender, taskID, result))
	}()

	msg.Status = types.MessageDelivered
	return nil
}

// Shutdown waits for all in-flight deliveries to finish.
func (b *Bus) Shutdown() {
	b.wg.Wait()
}
