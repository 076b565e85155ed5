package temporal

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/brojonat/solplay/service/db"
	"github.com/brojonat/solplay/service/journal"
	"github.com/brojonat/solplay/service/metrics"
	"github.com/brojonat/solplay/service/solana"
	solanago "github.com/gagliardetto/solana-go"
	temporalsdk "go.temporal.io/sdk/temporal"
)

// Error types surfaced to the workflow as non-retryable application errors.
const (
	errTypeInvalidInput       = "InvalidInput"
	errTypeAirdropUnavailable = "AirdropUnavailable"
	errTypeTransactionFailed  = "TransactionFailed"
	errTypeWrongNetwork       = "WrongNetwork"
)

// ResolveSenderInput contains parameters for the ResolveSender activity.
type ResolveSenderInput struct {
	Network string `json:"network"`
	RunID   string `json:"run_id"`
}

// ResolveSenderResult is the public half of the sender keypair.
type ResolveSenderResult struct {
	Address   string `json:"address"`
	Generated bool   `json:"generated"`
	Lamports  uint64 `json:"lamports"`
}

// RequestAirdropInput contains parameters for the RequestAirdrop activity.
type RequestAirdropInput struct {
	Network  string `json:"network"`
	Address  string `json:"address"`
	Lamports uint64 `json:"lamports"`
}

// ConfirmSignatureInput contains parameters for the ConfirmSignature activity.
type ConfirmSignatureInput struct {
	Network   string `json:"network"`
	Signature string `json:"signature"`
}

// TransferSOLInput contains parameters for the TransferSOL activity.
// The sender is derived from RunID on the worker.
type TransferSOLInput struct {
	Network   string `json:"network"`
	RunID     string `json:"run_id"`
	Recipient string `json:"recipient"`
	Lamports  uint64 `json:"lamports"`
}

// SignatureResult carries a transaction signature back to the workflow.
type SignatureResult struct {
	Signature string `json:"signature"`
}

// RecordActivityInput contains parameters for the RecordActivity activity.
type RecordActivityInput struct {
	Kind              string         `json:"kind"`
	Network           string         `json:"network"`
	Address           string         `json:"address"`
	Signature         string         `json:"signature"`
	Lamports          uint64         `json:"lamports"`
	Status            string         `json:"status"`
	Detail            map[string]any `json:"detail,omitempty"`
	WorkflowStartedAt time.Time      `json:"workflow_started_at"`
}

// SolanaClientInterface defines the Solana operations needed by activities.
type SolanaClientInterface interface {
	Network() solana.Network
	GetBalance(ctx context.Context, address solanago.PublicKey) (uint64, error)
	RequestAirdrop(ctx context.Context, address solanago.PublicKey, lamports uint64) (solanago.Signature, error)
	ConfirmSignature(ctx context.Context, sig solanago.Signature) error
	TransferSOL(ctx context.Context, from solanago.PrivateKey, to solanago.PublicKey, lamports uint64) (solanago.Signature, error)
}

// RecorderInterface defines the activity log operations needed by activities.
type RecorderInterface interface {
	Record(ctx context.Context, e journal.Entry) (*db.Activity, error)
}

// Activities holds the dependencies needed by Temporal activities.
type Activities struct {
	solana   SolanaClientInterface
	recorder RecorderInterface
	payer    solanago.PrivateKey
	seed     []byte
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewActivities creates a new Activities instance with explicit dependencies.
// With a nil payer every workflow run sends from its own generated keypair,
// derived on the worker from a per-process seed and the run ID.
// If metrics is nil, no metrics will be recorded.
func NewActivities(
	solanaClient SolanaClientInterface,
	recorder RecorderInterface,
	payer solanago.PrivateKey,
	m *metrics.Metrics,
	logger *slog.Logger,
) (*Activities, error) {
	if logger == nil {
		logger = slog.Default()
	}
	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("failed to seed sender keys: %w", err)
	}
	return &Activities{
		solana:   solanaClient,
		recorder: recorder,
		payer:    payer,
		seed:     seed,
		metrics:  m,
		logger:   logger,
	}, nil
}

// senderKey returns the keypair that signs transfers for one workflow run.
func (a *Activities) senderKey(runID string) (solanago.PrivateKey, bool, error) {
	if len(a.payer) > 0 {
		return a.payer, false, nil
	}
	if runID == "" {
		return nil, false, temporalsdk.NewNonRetryableApplicationError(
			"run id is required to derive a sender", errTypeInvalidInput, nil)
	}
	h := sha256.New()
	h.Write(a.seed)
	h.Write([]byte(runID))
	key := ed25519.NewKeyFromSeed(h.Sum(nil))
	return solanago.PrivateKey(key), true, nil
}

// checkNetwork rejects work for a cluster this worker does not serve.
func (a *Activities) checkNetwork(network string) error {
	n, err := solana.ParseNetwork(network)
	if err != nil {
		return temporalsdk.NewNonRetryableApplicationError(err.Error(), errTypeInvalidInput, err)
	}
	if n != a.solana.Network() {
		return temporalsdk.NewNonRetryableApplicationError(
			fmt.Sprintf("worker serves %s, not %s", a.solana.Network(), n), errTypeWrongNetwork, nil)
	}
	return nil
}

func (a *Activities) observe(activity string, start time.Time) {
	a.metrics.RecordActivityDuration(activity, time.Since(start).Seconds())
}

// ResolveSender reports the address that will fund the transfer and its
// current balance. The secret key stays on the worker.
func (a *Activities) ResolveSender(ctx context.Context, input ResolveSenderInput) (*ResolveSenderResult, error) {
	defer a.observe("ResolveSender", time.Now())

	if err := a.checkNetwork(input.Network); err != nil {
		return nil, err
	}
	key, generated, err := a.senderKey(input.RunID)
	if err != nil {
		return nil, err
	}

	balance, err := a.solana.GetBalance(ctx, key.PublicKey())
	if err != nil {
		a.logger.WarnContext(ctx, "failed to read sender balance",
			"sender", key.PublicKey().String(),
			"error", err,
		)
		balance = 0
	}

	a.logger.InfoContext(ctx, "resolved sender",
		"sender", key.PublicKey().String(),
		"generated", generated,
		"lamports", balance,
	)

	return &ResolveSenderResult{
		Address:   key.PublicKey().String(),
		Generated: generated,
		Lamports:  balance,
	}, nil
}

// RequestAirdrop asks the cluster faucet to fund an address.
func (a *Activities) RequestAirdrop(ctx context.Context, input RequestAirdropInput) (*SignatureResult, error) {
	defer a.observe("RequestAirdrop", time.Now())

	if err := a.checkNetwork(input.Network); err != nil {
		return nil, err
	}
	address, err := solanago.PublicKeyFromBase58(input.Address)
	if err != nil {
		return nil, temporalsdk.NewNonRetryableApplicationError(
			fmt.Sprintf("invalid address: %v", err), errTypeInvalidInput, err)
	}

	sig, err := a.solana.RequestAirdrop(ctx, address, input.Lamports)
	if err != nil {
		if errors.Is(err, solana.ErrAirdropUnavailable) {
			return nil, temporalsdk.NewNonRetryableApplicationError(err.Error(), errTypeAirdropUnavailable, err)
		}
		a.logger.ErrorContext(ctx, "airdrop failed",
			"address", input.Address,
			"error", err,
		)
		return nil, fmt.Errorf("failed to request airdrop: %w", err)
	}

	return &SignatureResult{Signature: sig.String()}, nil
}

// ConfirmSignature waits until a signature reaches the confirmed commitment.
func (a *Activities) ConfirmSignature(ctx context.Context, input ConfirmSignatureInput) error {
	defer a.observe("ConfirmSignature", time.Now())

	if err := a.checkNetwork(input.Network); err != nil {
		return err
	}
	sig, err := solanago.SignatureFromBase58(input.Signature)
	if err != nil {
		return temporalsdk.NewNonRetryableApplicationError(
			fmt.Sprintf("invalid signature: %v", err), errTypeInvalidInput, err)
	}

	if err := a.solana.ConfirmSignature(ctx, sig); err != nil {
		if errors.Is(err, solana.ErrTransactionFailed) {
			return temporalsdk.NewNonRetryableApplicationError(err.Error(), errTypeTransactionFailed, err)
		}
		return fmt.Errorf("failed to confirm %s: %w", input.Signature, err)
	}
	return nil
}

// TransferSOL sends lamports from the run's sender to the recipient and
// waits for confirmation.
func (a *Activities) TransferSOL(ctx context.Context, input TransferSOLInput) (*SignatureResult, error) {
	defer a.observe("TransferSOL", time.Now())

	if err := a.checkNetwork(input.Network); err != nil {
		return nil, err
	}
	if input.Lamports == 0 {
		return nil, temporalsdk.NewNonRetryableApplicationError("lamports must be positive", errTypeInvalidInput, nil)
	}
	recipient, err := solanago.PublicKeyFromBase58(input.Recipient)
	if err != nil {
		return nil, temporalsdk.NewNonRetryableApplicationError(
			fmt.Sprintf("invalid recipient: %v", err), errTypeInvalidInput, err)
	}
	key, _, err := a.senderKey(input.RunID)
	if err != nil {
		return nil, err
	}

	sig, err := a.solana.TransferSOL(ctx, key, recipient, input.Lamports)
	if err != nil {
		a.logger.ErrorContext(ctx, "transfer failed",
			"sender", key.PublicKey().String(),
			"recipient", input.Recipient,
			"error", err,
		)
		if errors.Is(err, solana.ErrTransactionFailed) {
			return nil, temporalsdk.NewNonRetryableApplicationError(err.Error(), errTypeTransactionFailed, err)
		}
		return nil, fmt.Errorf("failed to transfer: %w", err)
	}

	return &SignatureResult{Signature: sig.String()}, nil
}

// RecordActivity writes the workflow outcome to the activity log.
func (a *Activities) RecordActivity(ctx context.Context, input RecordActivityInput) error {
	defer a.observe("RecordActivity", time.Now())

	if input.Kind == solana.ActionSendWorkflow && !input.WorkflowStartedAt.IsZero() {
		a.metrics.RecordWorkflowDuration(input.Status, time.Since(input.WorkflowStartedAt).Seconds())
	}

	if a.recorder == nil {
		a.logger.DebugContext(ctx, "no activity recorder configured", "kind", input.Kind)
		return nil
	}

	network, err := solana.ParseNetwork(input.Network)
	if err != nil {
		return temporalsdk.NewNonRetryableApplicationError(err.Error(), errTypeInvalidInput, err)
	}

	detail := make(map[string]any, len(input.Detail)+1)
	maps.Copy(detail, input.Detail)
	if input.Status != "" {
		detail["status"] = input.Status
	}

	if _, err := a.recorder.Record(ctx, journal.Entry{
		Kind:      input.Kind,
		Network:   network,
		Address:   input.Address,
		Signature: input.Signature,
		Lamports:  input.Lamports,
		Detail:    detail,
	}); err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}
	return nil
}
