package temporal

import (
	"fmt"
	"time"

	"github.com/brojonat/solplay/service/solana"
	temporalsdk "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

var a *Activities // for type-safe activity invocation

// SendSOLWorkflowName is the registered name of SendSOLWorkflow.
const SendSOLWorkflowName = "SendSOLWorkflow"

// Send workflow statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// SendSOLInput contains the input parameters for a send workflow.
type SendSOLInput struct {
	Recipient       string `json:"recipient"`
	Lamports        uint64 `json:"lamports"`
	AirdropLamports uint64 `json:"airdrop_lamports"`
	Network         string `json:"network"`
}

// Validate checks the input before any activity runs.
func (in SendSOLInput) Validate() error {
	var errs []error
	if in.Recipient == "" {
		errs = append(errs, fmt.Errorf("recipient is required"))
	}
	if in.Lamports == 0 {
		errs = append(errs, fmt.Errorf("lamports must be positive"))
	}
	if _, err := solana.ParseNetwork(in.Network); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid send input: %v", errs)
	}
	return nil
}

// SendSOLResult contains the outcome of a send workflow.
type SendSOLResult struct {
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

// SendSOLWorkflow funds a sender (by airdrop when requested), waits for the
// airdrop to confirm, then transfers lamports to the recipient.
//
// The workflow performs these steps:
// 1. Resolve the sender address (ResolveSender activity)
// 2. Airdrop to the sender and confirm it (RequestAirdrop, ConfirmSignature)
// 3. Transfer to the recipient; the activity confirms before returning (TransferSOL)
// 4. Record the outcome in the activity log (RecordActivity)
func SendSOLWorkflow(ctx workflow.Context, input SendSOLInput) (*SendSOLResult, error) {
	logger := workflow.GetLogger(ctx)
	info := workflow.GetInfo(ctx)
	logger.Info("SendSOLWorkflow started",
		"recipient", input.Recipient,
		"lamports", input.Lamports,
		"network", input.Network,
	)

	result := &SendSOLResult{
		Recipient: input.Recipient,
		Lamports:  input.Lamports,
		Network:   input.Network,
	}

	if err := input.Validate(); err != nil {
		return failSend(ctx, result, info.WorkflowStartTime, err)
	}

	activityOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 300 * time.Second,
		RetryPolicy: &temporalsdk.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, activityOptions)

	// Step 1: resolve the sender
	var sender *ResolveSenderResult
	err := workflow.ExecuteActivity(ctx, a.ResolveSender, ResolveSenderInput{
		Network: input.Network,
		RunID:   info.WorkflowExecution.RunID,
	}).Get(ctx, &sender)
	if err != nil {
		return failSend(ctx, result, info.WorkflowStartTime, fmt.Errorf("failed to resolve sender: %w", err))
	}
	result.Sender = sender.Address
	result.SenderGenerated = sender.Generated

	// Step 2: airdrop to the sender
	if input.AirdropLamports > 0 {
		var airdrop *SignatureResult
		err = workflow.ExecuteActivity(ctx, a.RequestAirdrop, RequestAirdropInput{
			Network:  input.Network,
			Address:  sender.Address,
			Lamports: input.AirdropLamports,
		}).Get(ctx, &airdrop)
		if err != nil {
			return failSend(ctx, result, info.WorkflowStartTime, fmt.Errorf("failed to request airdrop: %w", err))
		}
		result.AirdropSignature = airdrop.Signature
		logger.Info("airdrop requested", "sender", sender.Address, "signature", airdrop.Signature)

		err = workflow.ExecuteActivity(ctx, a.ConfirmSignature, ConfirmSignatureInput{
			Network:   input.Network,
			Signature: airdrop.Signature,
		}).Get(ctx, nil)
		if err != nil {
			return failSend(ctx, result, info.WorkflowStartTime, fmt.Errorf("failed to confirm airdrop: %w", err))
		}
	} else if sender.Generated {
		return failSend(ctx, result, info.WorkflowStartTime,
			fmt.Errorf("a generated sender has no funds; airdrop_lamports must be positive"))
	}

	// Step 3: transfer. A retried send could pay twice, so it runs once.
	transferCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 300 * time.Second,
		RetryPolicy:         &temporalsdk.RetryPolicy{MaximumAttempts: 1},
	})
	var transfer *SignatureResult
	err = workflow.ExecuteActivity(transferCtx, a.TransferSOL, TransferSOLInput{
		Network:   input.Network,
		RunID:     info.WorkflowExecution.RunID,
		Recipient: input.Recipient,
		Lamports:  input.Lamports,
	}).Get(ctx, &transfer)
	if err != nil {
		return failSend(ctx, result, info.WorkflowStartTime, fmt.Errorf("failed to transfer: %w", err))
	}

	network, _ := solana.ParseNetwork(input.Network)
	result.TransferSignature = transfer.Signature
	result.ExplorerURL = network.ExplorerTxURL(transfer.Signature)
	result.Status = StatusCompleted
	result.CompletedAt = workflow.Now(ctx)

	// Step 4: record
	recordSend(ctx, result, info.WorkflowStartTime)

	logger.Info("SendSOLWorkflow completed successfully",
		"sender", result.Sender,
		"recipient", result.Recipient,
		"transfer_signature", result.TransferSignature,
	)

	return result, nil
}

// failSend records a failed run and returns the result with the error.
func failSend(ctx workflow.Context, result *SendSOLResult, startedAt time.Time, err error) (*SendSOLResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Error("SendSOLWorkflow failed", "recipient", result.Recipient, "error", err)

	msg := err.Error()
	result.Status = StatusFailed
	result.Error = &msg
	result.CompletedAt = workflow.Now(ctx)

	if result.Recipient != "" && result.Network != "" {
		recordSend(ctx, result, startedAt)
	}
	return result, err
}

// recordSend writes the run to the activity log. Failures are logged only.
func recordSend(ctx workflow.Context, result *SendSOLResult, startedAt time.Time) {
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporalsdk.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    3,
		},
	})

	detail := map[string]any{
		"sender": result.Sender,
	}
	if result.AirdropSignature != "" {
		detail["airdrop_signature"] = result.AirdropSignature
	}
	if result.ExplorerURL != "" {
		detail["explorer_url"] = result.ExplorerURL
	}
	if result.Error != nil {
		detail["error"] = *result.Error
	}

	err := workflow.ExecuteActivity(ctx, a.RecordActivity, RecordActivityInput{
		Kind:              solana.ActionSendWorkflow,
		Network:           result.Network,
		Address:           result.Recipient,
		Signature:         result.TransferSignature,
		Lamports:          result.Lamports,
		Status:            result.Status,
		Detail:            detail,
		WorkflowStartedAt: startedAt,
	}).Get(ctx, nil)
	if err != nil {
		workflow.GetLogger(ctx).Warn("failed to record send workflow", "error", err)
	}
}
