package temporal

import (
	"context"
	"errors"
	"time"
)

// ErrWorkflowNotFound is returned when no workflow has the requested ID.
var ErrWorkflowNotFound = errors.New("workflow not found")

// SendWorkflows starts and inspects send workflows.
// The server depends on this interface so handlers can be tested without Temporal.
type SendWorkflows interface {
	// StartSendSOL starts a SendSOLWorkflow and returns immediately.
	StartSendSOL(ctx context.Context, input SendSOLInput) (*WorkflowRun, error)

	// DescribeSendSOL reports a workflow's status and, once complete, its result.
	DescribeSendSOL(ctx context.Context, workflowID string) (*SendSOLStatus, error)
}

// WorkflowRun identifies a started workflow.
type WorkflowRun struct {
	WorkflowID string `json:"workflow_id"`
	RunID      string `json:"run_id"`
}

// SendSOLStatus is the externally visible state of a send workflow.
type SendSOLStatus struct {
	WorkflowID string         `json:"workflow_id"`
	RunID      string         `json:"run_id"`
	Status     string         `json:"status"`
	StartedAt  time.Time      `json:"started_at"`
	ClosedAt   *time.Time     `json:"closed_at,omitempty"`
	Result     *SendSOLResult `json:"result,omitempty"`
	Error      string         `json:"error,omitempty"`
}
