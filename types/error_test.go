package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorString(t *testing.T) {
	err := NewValidationError("user_request is required")
	assert.Equal(t, "[VALIDATION_ERROR] user_request is required", err.Error())

	wrapped := NewError(ErrInternalError, "registry insert").WithCause(errors.New("duplicate id"))
	assert.Equal(t, "[INTERNAL_ERROR] registry insert: duplicate id", wrapped.Error())
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewCommunicationError("deliver failed").WithCause(cause)

	assert.ErrorIs(t, err, cause)

	var typed *Error
	require.True(t, errors.As(fmt.Errorf("outer: %w", err), &typed))
	assert.Equal(t, ErrAgentCommunication, typed.Code)
}

func TestRetryableDefaults(t *testing.T) {
	assert.False(t, IsRetryable(NewValidationError("bad input")))
	assert.False(t, IsRetryable(NewWorkflowError(ErrWorkflowNotFound, "nope")))
	assert.True(t, IsRetryable(NewCommunicationError("bus down")))
	assert.True(t, IsRetryable(NewTimeoutError("no response")))
	assert.True(t, IsRetryable(NewWorkflowError(ErrMaxWorkflowsExceeded, "full").WithRetryable(true)))
	assert.False(t, IsRetryable(errors.New("plain error")))
}

func TestGetErrorCode(t *testing.T) {
	assert.Equal(t, ErrWorkflowNotFound, GetErrorCode(NewWorkflowError(ErrWorkflowNotFound, "x")))
	assert.Equal(t, ErrorCode(""), GetErrorCode(errors.New("plain")))
	assert.Equal(t, ErrorCode(""), GetErrorCode(nil))
}

func TestAgentTypeValid(t *testing.T) {
	for _, at := range []AgentType{AgentResearch, AgentCAD, AgentSlicer, AgentPrinter} {
		assert.True(t, at.Valid(), at)
	}
	assert.False(t, AgentType("laser").Valid())
	assert.False(t, AgentType("").Valid())
}

func TestTaskEnvelopeRoundTrip(t *testing.T) {
	task := NewTask("execute_step", map[string]any{"user_request": "a cube"})
	assert.NotEmpty(t, task.TaskID)
	assert.False(t, task.CreatedAt.IsZero())

	req := NewTaskRequest("orchestrator", AgentResearch, task)
	assert.Equal(t, MessageTaskRequest, req.Type)
	assert.Equal(t, string(AgentResearch), req.Receiver)
	assert.Equal(t, task.TaskID, req.Payload["task_id"])
	assert.Equal(t, MessagePending, req.Status)

	resp := NewTaskResponse(AgentResearch, "orchestrator", task.TaskID, NewTaskResult(map[string]any{"ok": true}))
	assert.Equal(t, MessageTaskResponse, resp.Type)
	assert.Equal(t, task.TaskID, resp.Payload["task_id"])
	assert.Equal(t, true, resp.Payload["success"])
	assert.NotEqual(t, req.MessageID, resp.MessageID)
}
