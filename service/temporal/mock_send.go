package temporal

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockSendWorkflows is a mock implementation of SendWorkflows for testing.
type MockSendWorkflows struct {
	mu        sync.Mutex
	started   map[string]SendSOLInput
	statuses  map[string]*SendSOLStatus
	next      int
	startErr  error
	statusErr error
}

// NewMockSendWorkflows creates a new MockSendWorkflows.
func NewMockSendWorkflows() *MockSendWorkflows {
	return &MockSendWorkflows{
		started:  make(map[string]SendSOLInput),
		statuses: make(map[string]*SendSOLStatus),
	}
}

// StartSendSOL records the input and reports the workflow as running.
func (m *MockSendWorkflows) StartSendSOL(ctx context.Context, input SendSOLInput) (*WorkflowRun, error) {
	if m.startErr != nil {
		return nil, m.startErr
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.next++
	run := &WorkflowRun{
		WorkflowID: fmt.Sprintf("send-sol-mock-%d", m.next),
		RunID:      fmt.Sprintf("run-%d", m.next),
	}
	m.started[run.WorkflowID] = input
	m.statuses[run.WorkflowID] = &SendSOLStatus{
		WorkflowID: run.WorkflowID,
		RunID:      run.RunID,
		Status:     "running",
		StartedAt:  time.Now(),
	}
	return run, nil
}

// DescribeSendSOL returns the recorded status.
func (m *MockSendWorkflows) DescribeSendSOL(ctx context.Context, workflowID string) (*SendSOLStatus, error) {
	if m.statusErr != nil {
		return nil, m.statusErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	status, ok := m.statuses[workflowID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWorkflowNotFound, workflowID)
	}
	cp := *status
	return &cp, nil
}

// Complete marks a started workflow as finished with result.
func (m *MockSendWorkflows) Complete(workflowID string, result *SendSOLResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if status, ok := m.statuses[workflowID]; ok {
		now := time.Now()
		status.Status = StatusCompleted
		status.ClosedAt = &now
		status.Result = result
	}
}

// Started returns the input a workflow was started with.
func (m *MockSendWorkflows) Started(workflowID string) (SendSOLInput, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	in, ok := m.started[workflowID]
	return in, ok
}

// StartCount returns the number of started workflows.
func (m *MockSendWorkflows) StartCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.started)
}

// SetStartError configures the mock to return an error on StartSendSOL.
func (m *MockSendWorkflows) SetStartError(err error) {
	m.startErr = err
}

// SetStatusError configures the mock to return an error on DescribeSendSOL.
func (m *MockSendWorkflows) SetStatusError(err error) {
	m.statusErr = err
}

var _ SendWorkflows = (*MockSendWorkflows)(nil)
