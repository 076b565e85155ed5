package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// SendRequest starts a send workflow.
type SendRequest struct {
	Recipient  string `json:"recipient"`
	SOL        string `json:"sol,omitempty"`
	AirdropSOL string `json:"airdrop_sol,omitempty"`
	NoAirdrop  bool   `json:"no_airdrop,omitempty"`
}

// WorkflowRun identifies a started workflow.
type WorkflowRun struct {
	WorkflowID string `json:"workflow_id"`
	RunID      string `json:"run_id"`
	Recipient  string `json:"recipient"`
	Lamports   uint64 `json:"lamports"`
	Network    string `json:"network"`
	Status     string `json:"status"`
}

// SendResult is the outcome of a finished send workflow.
type SendResult struct {
	Sender            string    `json:"sender"`
	SenderGenerated   bool      `json:"sender_generated"`
	Recipient         string    `json:"recipient"`
	Lamports          uint64    `json:"lamports"`
	Network           string    `json:"network"`
	AirdropSignature  string    `json:"airdrop_signature,omitempty"`
	TransferSignature string    `json:"transfer_signature,omitempty"`
	ExplorerURL       string    `json:"explorer_url,omitempty"`
	Status            string    `json:"status"`
	Error             *string   `json:"error,omitempty"`
	CompletedAt       time.Time `json:"completed_at"`
}

// WorkflowStatus is the state of a send workflow.
type WorkflowStatus struct {
	WorkflowID string      `json:"workflow_id"`
	RunID      string      `json:"run_id"`
	Status     string      `json:"status"`
	StartedAt  time.Time   `json:"started_at"`
	ClosedAt   *time.Time  `json:"closed_at,omitempty"`
	Result     *SendResult `json:"result,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// Done reports whether the workflow has closed.
func (s *WorkflowStatus) Done() bool {
	return s.Status != "running"
}

// StartSend starts a send workflow and returns without waiting for it.
func (c *Client) StartSend(ctx context.Context, req SendRequest) (*WorkflowRun, error) {
	var run WorkflowRun
	if err := c.do(ctx, http.MethodPost, "/api/v1/send-workflows", req, &run, http.StatusAccepted); err != nil {
		return nil, err
	}
	c.logger.Debug("send workflow started", "workflow_id", run.WorkflowID)
	return &run, nil
}

// SendStatus returns the state of a send workflow.
func (c *Client) SendStatus(ctx context.Context, workflowID string) (*WorkflowStatus, error) {
	var s WorkflowStatus
	if err := c.do(ctx, http.MethodGet, "/api/v1/send-workflows/"+url.PathEscape(workflowID), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// WaitSend polls a send workflow until it closes or ctx is done.
func (c *Client) WaitSend(ctx context.Context, workflowID string, interval time.Duration) (*WorkflowStatus, error) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		status, err := c.SendStatus(ctx, workflowID)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
				return nil, err
			}
			c.logger.Warn("failed to poll workflow, will retry", "workflow_id", workflowID, "error", err)
		} else if status.Done() {
			return status, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for workflow %s: %w", workflowID, ctx.Err())
		case <-ticker.C:
		}
	}
}
