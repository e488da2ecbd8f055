package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/printforge/printflow/orchestrator"
	"github.com/printforge/printflow/types"
)

// WorkflowHandler serves the workflow operations:
//
//	POST /v1/workflows              create
//	GET  /v1/workflows              list
//	GET  /v1/workflows/{id}         status
//	POST /v1/workflows/{id}/cancel  cancel
type WorkflowHandler struct {
	orch   *orchestrator.Orchestrator
	logger *zap.Logger
}

// NewWorkflowHandler creates a workflow handler.
func NewWorkflowHandler(orch *orchestrator.Orchestrator, logger *zap.Logger) *WorkflowHandler {
	return &WorkflowHandler{orch: orch, logger: logger.With(zap.String("component", "workflow_handler"))}
}

// CreateWorkflowRequest is the JSON body of the create endpoint.
type CreateWorkflowRequest struct {
	UserRequest string         `json:"user_request"`
	UserID      string         `json:"user_id,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// CancelWorkflowRequest is the JSON body of the cancel endpoint.
type CancelWorkflowRequest struct {
	Reason string `json:"reason,omitempty"`
}

// ServeHTTP routes /v1/workflows requests.
func (h *WorkflowHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/workflows")
	rest = strings.Trim(rest, "/")

	switch {
	case rest == "" && r.Method == http.MethodPost:
		h.handleCreate(w, r)
	case rest == "" && r.Method == http.MethodGet:
		h.handleList(w, r)
	case strings.HasSuffix(rest, "/cancel") && r.Method == http.MethodPost:
		h.handleCancel(w, r, strings.TrimSuffix(rest, "/cancel"))
	case rest != "" && !strings.Contains(rest, "/") && r.Method == http.MethodGet:
		h.handleStatus(w, r, rest)
	default:
		WriteError(w, types.NewValidationError("unknown workflow endpoint"), h.logger)
	}
}

func (h *WorkflowHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, types.NewValidationError("invalid JSON body").WithCause(err), h.logger)
		return
	}

	id, err := h.orch.CreateWorkflow(r.Context(), orchestrator.CreateRequest{
		UserRequest: req.UserRequest,
		UserID:      req.UserID,
		Metadata:    req.Metadata,
	})
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	WriteSuccess(w, map[string]any{"workflow_id": id})
}

func (h *WorkflowHandler) handleStatus(w http.ResponseWriter, r *http.Request, id string) {
	snap, err := h.orch.GetWorkflowStatus(r.Context(), id)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, snap)
}

func (h *WorkflowHandler) handleCancel(w http.ResponseWriter, r *http.Request, id string) {
	var req CancelWorkflowRequest
	if r.Body != nil {
		// Body is optional; a missing reason is fine.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	cancelled := h.orch.CancelWorkflow(r.Context(), id, req.Reason)
	WriteSuccess(w, map[string]any{"cancelled": cancelled})
}

func (h *WorkflowHandler) handleList(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, map[string]any{"workflows": h.orch.ListWorkflows(r.Context())})
}
