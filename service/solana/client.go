package solana

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/brojonat/solplay/service/metrics"
	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
)

// DefaultAirdropLamports is the airdrop size used when none is given (1 SOL).
const DefaultAirdropLamports = solana.LAMPORTS_PER_SOL

var (
	// ErrAirdropUnavailable is returned when the cluster has no faucet.
	ErrAirdropUnavailable = errors.New("airdrops are not available on this network")

	// ErrAccountNotFound is returned when an address holds no account.
	ErrAccountNotFound = errors.New("account not found")

	// ErrTransactionFailed wraps the on-chain error of a confirmed but failed transaction.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrConfirmTimeout is returned when a signature does not reach the
	// confirmed commitment in time.
	ErrConfirmTimeout = errors.New("timed out waiting for confirmation")
)

// RPCClient is an interface for the Solana RPC operations we need.
// This allows us to mock the RPC layer in tests without hitting real Solana nodes.
type RPCClient interface {
	GetBalance(ctx context.Context, address solana.PublicKey) (uint64, error)
	RequestAirdrop(ctx context.Context, address solana.PublicKey, lamports uint64) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) ([]*rpc.SignatureStatusesResult, error)
	GetLatestBlockhash(ctx context.Context) (solana.Hash, error)
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	GetMinimumBalanceForRentExemption(ctx context.Context, dataSize uint64) (uint64, error)
	GetAccountInfo(ctx context.Context, address solana.PublicKey) (*rpc.Account, error)
	GetTokenAccountBalance(ctx context.Context, account solana.PublicKey) (*rpc.UiTokenAmount, error)
}

// Client provides the playground operations on top of an RPC client.
// Every call is logged and recorded in metrics.
type Client struct {
	rpc          RPCClient
	network      Network
	logger       *slog.Logger
	metrics      *metrics.Metrics
	timeout      time.Duration
	pollInterval time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithConfirmTiming sets how long ConfirmSignature waits and how often it polls.
func WithConfirmTiming(timeout, pollInterval time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
		if pollInterval > 0 {
			c.pollInterval = pollInterval
		}
	}
}

// NewClient creates a new Solana client for the given network.
// If metrics is nil, no metrics will be recorded.
func NewClient(rpcClient RPCClient, network Network, m *metrics.Metrics, logger *slog.Logger, opts ...ClientOption) *Client {
	c := &Client{
		rpc:          rpcClient,
		network:      network,
		logger:       logger,
		metrics:      m,
		timeout:      60 * time.Second,
		pollInterval: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Network returns the cluster this client talks to.
func (c *Client) Network() Network {
	return c.network
}

// observe records metrics for one RPC call.
func (c *Client) observe(method string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	c.metrics.RecordRPCCall(method, status, string(c.network), time.Since(start).Seconds())
}

// GetBalance returns the balance of address in lamports.
func (c *Client) GetBalance(ctx context.Context, address solana.PublicKey) (uint64, error) {
	start := time.Now()
	lamports, err := c.rpc.GetBalance(ctx, address)
	c.observe("getBalance", start, err)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to get balance", "address", address.String(), "error", err)
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}

	c.logger.DebugContext(ctx, "fetched balance", "address", address.String(), "lamports", lamports)
	return lamports, nil
}

// RequestAirdrop asks the cluster faucet for lamports. It does not wait for
// confirmation; call ConfirmSignature for that.
func (c *Client) RequestAirdrop(ctx context.Context, address solana.PublicKey, lamports uint64) (solana.Signature, error) {
	if !c.network.HasFaucet() {
		c.metrics.RecordAction(ActionAirdrop, ErrAirdropUnavailable)
		return solana.Signature{}, fmt.Errorf("%w: %s", ErrAirdropUnavailable, c.network)
	}
	if lamports == 0 {
		lamports = DefaultAirdropLamports
	}

	start := time.Now()
	sig, err := c.rpc.RequestAirdrop(ctx, address, lamports)
	c.observe("requestAirdrop", start, err)
	c.metrics.RecordAction(ActionAirdrop, err)
	if err != nil {
		c.logger.ErrorContext(ctx, "airdrop request failed",
			"address", address.String(),
			"lamports", lamports,
			"error", err,
		)
		return solana.Signature{}, fmt.Errorf("failed to request airdrop: %w", err)
	}

	c.metrics.RecordLamports(ActionAirdrop, string(c.network), lamports)
	c.logger.InfoContext(ctx, "airdrop requested",
		"address", address.String(),
		"lamports", lamports,
		"signature", sig.String(),
	)
	return sig, nil
}

// ConfirmSignature polls the signature status until it reaches the confirmed
// commitment, the transaction fails, or the confirm timeout elapses.
func (c *Client) ConfirmSignature(ctx context.Context, sig solana.Signature) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		callStart := time.Now()
		statuses, err := c.rpc.GetSignatureStatuses(ctx, sig)
		c.observe("getSignatureStatuses", callStart, err)

		if err != nil {
			c.logger.WarnContext(ctx, "failed to fetch signature status, retrying",
				"signature", sig.String(),
				"error", err,
			)
		} else if len(statuses) > 0 && statuses[0] != nil {
			status := statuses[0]
			if status.Err != nil {
				c.metrics.RecordConfirmation("failed", time.Since(start).Seconds())
				return fmt.Errorf("%w: %v", ErrTransactionFailed, status.Err)
			}
			if status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
				status.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
				c.metrics.RecordConfirmation(string(status.ConfirmationStatus), time.Since(start).Seconds())
				c.logger.DebugContext(ctx, "signature confirmed",
					"signature", sig.String(),
					"status", status.ConfirmationStatus,
					"slot", status.Slot,
				)
				return nil
			}
		}

		select {
		case <-ctx.Done():
			c.metrics.RecordConfirmation("timeout", time.Since(start).Seconds())
			return fmt.Errorf("%w: %s after %v", ErrConfirmTimeout, sig.String(), time.Since(start).Round(time.Millisecond))
		case <-ticker.C:
		}
	}
}

// TransferSOL sends lamports from the keypair to the recipient and waits for confirmation.
func (c *Client) TransferSOL(ctx context.Context, from solana.PrivateKey, to solana.PublicKey, lamports uint64) (solana.Signature, error) {
	ix := system.NewTransferInstruction(lamports, from.PublicKey(), to).Build()

	sig, err := c.sendAndConfirm(ctx, ActionTransfer, from, []solana.Instruction{ix})
	if err != nil {
		return solana.Signature{}, err
	}

	c.metrics.RecordLamports(ActionTransfer, string(c.network), lamports)
	c.logger.InfoContext(ctx, "transfer confirmed",
		"from", from.PublicKey().String(),
		"to", to.String(),
		"lamports", lamports,
		"signature", sig.String(),
	)
	return sig, nil
}

// CreateMint creates a new SPL token mint with the payer as mint authority
// and no freeze authority.
func (c *Client) CreateMint(ctx context.Context, payer solana.PrivateKey, decimals uint8) (*MintResult, error) {
	mint, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate mint keypair: %w", err)
	}

	start := time.Now()
	rent, err := c.rpc.GetMinimumBalanceForRentExemption(ctx, token.MINT_SIZE)
	c.observe("getMinimumBalanceForRentExemption", start, err)
	if err != nil {
		c.metrics.RecordAction(ActionCreateMint, err)
		return nil, fmt.Errorf("failed to get rent exemption: %w", err)
	}

	instructions := []solana.Instruction{
		system.NewCreateAccountInstruction(
			rent,
			token.MINT_SIZE,
			solana.TokenProgramID,
			payer.PublicKey(),
			mint.PublicKey(),
		).Build(),
		token.NewInitializeMintInstructionBuilder().
			SetDecimals(decimals).
			SetMintAuthority(payer.PublicKey()).
			SetMintAccount(mint.PublicKey()).
			SetSysVarRentPubkeyAccount(solana.SysVarRentPubkey).
			Build(),
	}

	sig, err := c.sendAndConfirm(ctx, ActionCreateMint, payer, instructions, mint)
	if err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx, "mint created",
		"mint", mint.PublicKey().String(),
		"decimals", decimals,
		"signature", sig.String(),
	)
	return &MintResult{Mint: mint.PublicKey().String(), Signature: sig.String()}, nil
}

// CreateTokenAccount creates the payer's associated token account for mint.
func (c *Client) CreateTokenAccount(ctx context.Context, payer solana.PrivateKey, mint solana.PublicKey) (*TokenAccountResult, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(payer.PublicKey(), mint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive token account: %w", err)
	}

	ix := associatedtokenaccount.NewCreateInstruction(payer.PublicKey(), payer.PublicKey(), mint).Build()
	sig, err := c.sendAndConfirm(ctx, ActionCreateTokenAccount, payer, []solana.Instruction{ix})
	if err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx, "token account created",
		"mint", mint.String(),
		"token_account", ata.String(),
		"signature", sig.String(),
	)
	return &TokenAccountResult{Address: ata.String(), Signature: sig.String()}, nil
}

// MintTo mints amount base units of mint into the payer's associated token account.
func (c *Client) MintTo(ctx context.Context, payer solana.PrivateKey, mint solana.PublicKey, amount uint64) (solana.Signature, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(payer.PublicKey(), mint)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to derive token account: %w", err)
	}

	ix := token.NewMintToInstruction(amount, mint, ata, payer.PublicKey(), nil).Build()
	sig, err := c.sendAndConfirm(ctx, ActionMintTo, payer, []solana.Instruction{ix})
	if err != nil {
		return solana.Signature{}, err
	}

	c.logger.InfoContext(ctx, "tokens minted",
		"mint", mint.String(),
		"token_account", ata.String(),
		"amount", amount,
		"signature", sig.String(),
	)
	return sig, nil
}

// GetTokenBalance returns the balance of an SPL token account.
func (c *Client) GetTokenBalance(ctx context.Context, account solana.PublicKey) (*TokenBalance, error) {
	start := time.Now()
	amount, err := c.rpc.GetTokenAccountBalance(ctx, account)
	c.observe("getTokenAccountBalance", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to get token balance: %w", err)
	}
	if amount == nil {
		return nil, ErrAccountNotFound
	}

	balance := &TokenBalance{
		Amount:   amount.Amount,
		Decimals: amount.Decimals,
		UIAmount: amount.UiAmountString,
	}
	if balance.UIAmount == "" {
		var raw uint64
		if _, err := fmt.Sscan(amount.Amount, &raw); err == nil {
			balance.UIAmount = FormatTokenAmount(raw, amount.Decimals)
		}
	}
	return balance, nil
}

// GetAccount fetches an account and decodes mint data when present.
func (c *Client) GetAccount(ctx context.Context, address solana.PublicKey) (*AccountInfo, error) {
	start := time.Now()
	account, err := c.rpc.GetAccountInfo(ctx, address)
	if errors.Is(err, rpc.ErrNotFound) {
		account, err = nil, nil
	}
	c.observe("getAccountInfo", start, err)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to get account", "address", address.String(), "error", err)
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, address.String())
	}

	return accountToDomain(address, account), nil
}

// sendAndConfirm builds a transaction paid by payer, signs it with payer and
// any extra signers, submits it, and waits for confirmation.
func (c *Client) sendAndConfirm(
	ctx context.Context,
	kind string,
	payer solana.PrivateKey,
	instructions []solana.Instruction,
	extraSigners ...solana.PrivateKey,
) (sig solana.Signature, err error) {
	defer func() {
		c.metrics.RecordAction(kind, err)
	}()

	start := time.Now()
	blockhash, err := c.rpc.GetLatestBlockhash(ctx)
	c.observe("getLatestBlockhash", start, err)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to get latest blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(payer.PublicKey()))
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to build %s transaction: %w", kind, err)
	}

	signers := append([]solana.PrivateKey{payer}, extraSigners...)
	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		for i := range signers {
			if signers[i].PublicKey().Equals(key) {
				return &signers[i]
			}
		}
		return nil
	}); err != nil {
		return solana.Signature{}, fmt.Errorf("failed to sign %s transaction: %w", kind, err)
	}

	start = time.Now()
	sig, err = c.rpc.SendTransaction(ctx, tx)
	c.observe("sendTransaction", start, err)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to send transaction", "kind", kind, "error", err)
		return solana.Signature{}, fmt.Errorf("failed to send %s transaction: %w", kind, err)
	}

	if err := c.ConfirmSignature(ctx, sig); err != nil {
		return sig, err
	}
	return sig, nil
}

// LoadKeypair reads a solana-keygen JSON keypair file.
func LoadKeypair(path string) (solana.PrivateKey, error) {
	key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load keypair %s: %w", path, err)
	}
	return key, nil
}
