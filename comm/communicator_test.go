package comm

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/printforge/printflow/types"
)

// echoAgent answers immediately with its input params.
type echoAgent struct {
	agentType types.AgentType
}

func (a *echoAgent) Type() types.AgentType { return a.agentType }

func (a *echoAgent) Execute(ctx context.Context, task *types.Task) *types.TaskResult {
	return types.NewTaskResult(map[string]any{"echo": task.Params, "operation": task.Operation})
}

// stuckAgent blocks until its release channel closes.
type stuckAgent struct {
	agentType types.AgentType
	release   chan struct{}
}

func (a *stuckAgent) Type() types.AgentType { return a.agentType }

func (a *stuckAgent) Execute(ctx context.Context, task *types.Task) *types.TaskResult {
	select {
	case <-a.release:
		return types.NewTaskResult(map[string]any{"late": true})
	case <-ctx.Done():
		return types.NewTaskFailure("interrupted")
	}
}

func TestCommunicator_RoundTrip(t *testing.T) {
	bus := NewBus(zap.NewNop())
	bus.Register(&echoAgent{agentType: types.AgentResearch})
	c := NewCommunicator(bus, zap.NewNop())

	result := c.Send(context.Background(), types.AgentResearch,
		map[string]any{"user_request": "a cube"}, time.Second)

	require.True(t, result.Success)
	echo, ok := result.Data["echo"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "a cube", echo["user_request"])
	assert.Equal(t, "execute_step", result.Data["operation"])
	assert.Equal(t, 0, c.PendingCount(), "correlation entry must be consumed")
}

func TestCommunicator_Timeout(t *testing.T) {
	agent := &stuckAgent{agentType: types.AgentPrinter, release: make(chan struct{})}
	defer close(agent.release)

	bus := NewBus(zap.NewNop())
	bus.Register(agent)
	c := NewCommunicator(bus, zap.NewNop())

	start := time.Now()
	result := c.Send(context.Background(), types.AgentPrinter, nil, 50*time.Millisecond)

	require.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage, "no response from printer")
	assert.Equal(t, string(types.ErrAgentTimeout), result.Metadata["error_code"])
	assert.Less(t, time.Since(start), time.Second, "timeout must not hang")
	assert.Equal(t, 0, c.PendingCount(), "timed-out entry must be evicted")
}

func TestCommunicator_UnregisteredAgent(t *testing.T) {
	bus := NewBus(zap.NewNop())
	c := NewCommunicator(bus, zap.NewNop())

	result := c.Send(context.Background(), types.AgentSlicer, nil, time.Second)

	require.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage, "no agent registered")
	assert.Equal(t, string(types.ErrAgentNotRegistered), result.Metadata["error_code"])
}

func TestCommunicator_SlowSendDoesNotBlockOthers(t *testing.T) {
	stuck := &stuckAgent{agentType: types.AgentPrinter, release: make(chan struct{})}

	bus := NewBus(zap.NewNop())
	bus.Register(stuck)
	bus.Register(&echoAgent{agentType: types.AgentResearch})
	c := NewCommunicator(bus, zap.NewNop())

	// Occupy the printer correlation.
	done := make(chan *types.TaskResult, 1)
	go func() {
		done <- c.Send(context.Background(), types.AgentPrinter, nil, 2*time.Second)
	}()

	// Other correlations proceed immediately.
	result := c.Send(context.Background(), types.AgentResearch,
		map[string]any{"user_request": "x"}, time.Second)
	require.True(t, result.Success)

	close(stuck.release)
	late := <-done
	assert.True(t, late.Success)
}

func TestCommunicator_ConcurrentSends(t *testing.T) {
	bus := NewBus(zap.NewNop())
	bus.Register(&echoAgent{agentType: types.AgentCAD})
	c := NewCommunicator(bus, zap.NewNop())

	var wg sync.WaitGroup
	results := make([]*types.TaskResult, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			results[n] = c.Send(context.Background(), types.AgentCAD,
				map[string]any{"n": n}, time.Second)
		}(i)
	}
	wg.Wait()

	for i, result := range results {
		require.True(t, result.Success, "send %d failed: %s", i, result.ErrorMessage)
		echo := result.Data["echo"].(map[string]any)
		assert.Equal(t, i, echo["n"], "results must correlate to their own request")
	}
	assert.Equal(t, 0, c.PendingCount())
}

func TestCommunicator_DropsUncorrelatedResponse(t *testing.T) {
	bus := NewBus(zap.NewNop())
	c := NewCommunicator(bus, zap.NewNop())

	// A response nobody is waiting for must be dropped quietly.
	c.HandleResponse(types.NewTaskResponse(types.AgentCAD, senderName, "ghost-task", types.NewTaskResult(nil)))
	assert.Equal(t, 0, c.PendingCount())

	// Non-response messages are ignored.
	c.HandleResponse(types.NewMessage(types.MessageTaskRequest, "x", "y", nil))
}

func TestCommunicator_ContextCancellation(t *testing.T) {
	agent := &stuckAgent{agentType: types.AgentCAD, release: make(chan struct{})}
	defer close(agent.release)

	bus := NewBus(zap.NewNop())
	bus.Register(agent)
	c := NewCommunicator(bus, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	result := c.Send(ctx, types.AgentCAD, nil, 5*time.Second)
	require.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage, "aborted")
	assert.Equal(t, 0, c.PendingCount())
}

func TestBus_RejectsResponseEnvelopeDelivery(t *testing.T) {
	bus := NewBus(zap.NewNop())
	bus.Register(&echoAgent{agentType: types.AgentCAD})
	bus.SetResponseHandler(&nopHandler{})

	err := bus.Deliver(context.Background(),
		types.NewTaskResponse(types.AgentCAD, "orchestrator", "t1", types.NewTaskResult(nil)))
	require.Error(t, err)
}

type nopHandler struct{}

func (n *nopHandler) HandleResponse(msg *types.Message) {}

func TestBus_RateLimitSmoke(t *testing.T) {
	bus := NewBus(zap.NewNop())
	bus.Register(&echoAgent{agentType: types.AgentResearch})
	// Generous limit: traffic passes, just shaped.
	bus.SetRateLimit(types.AgentResearch, 1000, 10)
	c := NewCommunicator(bus, zap.NewNop())

	for i := 0; i < 5; i++ {
		result := c.Send(context.Background(), types.AgentResearch,
			map[string]any{"user_request": "x"}, time.Second)
		require.True(t, result.Success)
	}
}
