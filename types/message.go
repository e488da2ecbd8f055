package types

import (
	"time"

	"github.com/google/uuid"
)

// MessageType distinguishes the two directions of agent traffic.
type MessageType string

const (
	MessageTaskRequest  MessageType = "task_request"
	MessageTaskResponse MessageType = "task_response"
)

// MessagePriority orders messages when a transport supports priorities.
type MessagePriority int

const (
	PriorityLow    MessagePriority = 0
	PriorityNormal MessagePriority = 1
	PriorityHigh   MessagePriority = 2
)

// MessageStatus tracks a message through the transport.
type MessageStatus string

const (
	MessagePending   MessageStatus = "pending"
	MessageDelivered MessageStatus = "delivered"
	MessageExpired   MessageStatus = "expired"
)

// Message is the transport-level envelope between the orchestrator and a
// worker. Messages are transient: created per request and discarded once
// the response has been correlated and consumed.
type Message struct {
	MessageID  string          `json:"message_id"`
	Sender     string          `json:"sender"`
	Receiver   string          `json:"receiver"`
	Type       MessageType     `json:"message_type"`
	Payload    map[string]any  `json:"payload,omitempty"`
	Priority   MessagePriority `json:"priority"`
	Status     MessageStatus   `json:"status"`
	RetryCount int             `json:"retry_count"`
	MaxRetries int             `json:"max_retries"`
	Timestamp  time.Time       `json:"timestamp"`
}

// NewMessage creates an envelope with a fresh id and pending status.
func NewMessage(msgType MessageType, sender, receiver string, payload map[string]any) *Message {
	return &Message{
		MessageID: uuid.NewString(),
		Sender:    sender,
		Receiver:  receiver,
		Type:      msgType,
		Payload:   payload,
		Priority:  PriorityNormal,
		Status:    MessagePending,
		Timestamp: time.Now(),
	}
}

// NewTaskRequest wraps a task into a request envelope addressed to a worker.
func NewTaskRequest(sender string, receiver AgentType, task *Task) *Message {
	return NewMessage(MessageTaskRequest, sender, string(receiver), map[string]any{
		"task_id":   task.TaskID,
		"operation": task.Operation,
		"params":    task.Params,
	})
}

// NewTaskResponse wraps a worker result into a response envelope. The
// task id is carried in the payload so the communicator can correlate
// the response with its pending request.
func NewTaskResponse(sender AgentType, receiver, taskID string, result *TaskResult) *Message {
	return NewMessage(MessageTaskResponse, string(sender), receiver, map[string]any{
		"task_id":       taskID,
		"success":       result.Success,
		"data":          result.Data,
		"error_message": result.ErrorMessage,
		"metadata":      result.Metadata,
	})
}
