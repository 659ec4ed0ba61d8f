package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3/client"
)

// ExecutionStatus is the lifecycle state of a workflow run.
type ExecutionStatus string

const (
	StatusRunning   ExecutionStatus = "running"
	StatusCompleted ExecutionStatus = "completed"
	StatusFailed    ExecutionStatus = "failed"
	StatusPaused    ExecutionStatus = "paused"
)

// Execution is one run of a workflow on the execution backend.
type Execution struct {
	ID            string          `json:"id"`
	WorkflowID    string          `json:"workflow_id,omitempty"`
	Status        ExecutionStatus `json:"status"`
	StartedAt     time.Time       `json:"started_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	CurrentStepID *string         `json:"current_step_id,omitempty"`
	ErrorMessage  *string         `json:"error_message,omitempty"`
	ExecutionData json.RawMessage `json:"execution_data,omitempty"`
}

// Finished reports whether the run has stopped for good.
func (e Execution) Finished() bool {
	return e.Status == StatusCompleted || e.Status == StatusFailed
}

// ExecuteRequest starts a run, optionally against a document.
type ExecuteRequest struct {
	DocumentID  *string        `json:"document_id,omitempty"`
	InitialData map[string]any `json:"initial_data"`
}

// DefaultExecutionLimit is used when ListExecutions gets a non-positive limit.
const DefaultExecutionLimit = 20

// WorkflowClient talks to the workflow-execution backend.
type WorkflowClient struct {
	caller
}

// NewWorkflowClient creates a client for the service at baseURL.
func NewWorkflowClient(baseURL string, timeout time.Duration) *WorkflowClient {
	return &WorkflowClient{caller: newCaller("workflow", baseURL, timeout)}
}

// ListExecutions returns the most recent runs of a workflow.
func (c *WorkflowClient) ListExecutions(ctx context.Context, workflowID string, limit int) ([]Execution, error) {
	if workflowID == "" {
		return nil, errors.New("backend: workflow list_executions: empty workflow id")
	}
	if limit <= 0 {
		limit = DefaultExecutionLimit
	}

	var out []Execution
	err := c.do(ctx, "list_executions", "GET", "/workflows/"+url.PathEscape(workflowID)+"/executions",
		client.Config{Param: map[string]string{"limit": strconv.Itoa(limit)}}, &out)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Execution{}
	}
	return out, nil
}

// ExecuteWorkflow starts a run and returns its initial record.
func (c *WorkflowClient) ExecuteWorkflow(ctx context.Context, workflowID string, req ExecuteRequest) (*Execution, error) {
	if workflowID == "" {
		return nil, errors.New("backend: workflow execute: empty workflow id")
	}
	if req.InitialData == nil {
		req.InitialData = map[string]any{}
	}

	var out Execution
	err := c.do(ctx, "execute", "POST", "/workflows/"+url.PathEscape(workflowID)+"/execute",
		client.Config{Body: req}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
