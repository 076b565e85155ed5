package solana

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
)

// LamportsPerSOL is the number of lamports in one SOL.
const LamportsPerSOL = solana.LAMPORTS_PER_SOL

// solDecimals is the exponent between lamports and SOL.
const solDecimals = 9

var (
	// ErrNegativeAmount is returned for negative SOL amounts.
	ErrNegativeAmount = errors.New("amount must not be negative")

	// ErrFractionalLamports is returned when an amount has more than nine decimals.
	ErrFractionalLamports = errors.New("amount is smaller than one lamport")

	errNotMintLayout = fmt.Errorf("data is not %d bytes", token.MINT_SIZE)
)

// LamportsToSOL converts lamports to SOL without loss of precision.
func LamportsToSOL(lamports uint64) decimal.Decimal {
	return decimal.NewFromUint64(lamports).Shift(-solDecimals)
}

// FormatSOL renders lamports as a SOL amount string, e.g. "1.5".
func FormatSOL(lamports uint64) string {
	return LamportsToSOL(lamports).String()
}

// SOLToLamports parses a decimal SOL amount such as "0.1".
func SOLToLamports(sol string) (uint64, error) {
	amount, err := decimal.NewFromString(sol)
	if err != nil {
		return 0, fmt.Errorf("invalid SOL amount %q: %w", sol, err)
	}
	if amount.IsNegative() {
		return 0, ErrNegativeAmount
	}
	lamports := amount.Shift(solDecimals)
	if !lamports.Equal(lamports.Truncate(0)) {
		return 0, fmt.Errorf("%w: %s", ErrFractionalLamports, sol)
	}
	if lamports.GreaterThan(decimal.NewFromUint64(^uint64(0))) {
		return 0, fmt.Errorf("amount %s SOL overflows lamports", sol)
	}
	return lamports.BigInt().Uint64(), nil
}

// FormatTokenAmount renders a raw token amount with the mint's decimals.
func FormatTokenAmount(raw uint64, decimals uint8) string {
	return decimal.NewFromUint64(raw).Shift(-int32(decimals)).String()
}

// ParseMint decodes SPL mint account data. The data must be exactly the
// mint layout size.
func ParseMint(data []byte) (*MintInfo, error) {
	if len(data) != token.MINT_SIZE {
		return nil, fmt.Errorf("%w: got %d", errNotMintLayout, len(data))
	}

	if err := checkMintTags(data); err != nil {
		return nil, err
	}

	var mint token.Mint
	if err := bin.NewBinDecoder(data).Decode(&mint); err != nil {
		return nil, fmt.Errorf("failed to decode mint: %w", err)
	}

	info := &MintInfo{
		Supply:        fmt.Sprintf("%d", mint.Supply),
		Decimals:      mint.Decimals,
		IsInitialized: mint.IsInitialized,
	}
	if mint.MintAuthority != nil {
		authority := mint.MintAuthority.String()
		info.MintAuthority = &authority
	}
	if mint.FreezeAuthority != nil {
		authority := mint.FreezeAuthority.String()
		info.FreezeAuthority = &authority
	}
	return info, nil
}

// Offsets of the tag bytes in the mint layout.
const (
	mintAuthorityTagOffset   = 0
	mintInitializedOffset    = 45
	freezeAuthorityTagOffset = 46
)

// checkMintTags rejects data whose option tags or initialized flag are not
// 0 or 1. The SDK decoder accepts any value there.
func checkMintTags(data []byte) error {
	for _, off := range []int{mintAuthorityTagOffset, freezeAuthorityTagOffset} {
		if tag := binary.LittleEndian.Uint32(data[off : off+4]); tag > 1 {
			return fmt.Errorf("invalid option tag %d at offset %d", tag, off)
		}
	}
	if flag := data[mintInitializedOffset]; flag > 1 {
		return fmt.Errorf("invalid initialized flag %d", flag)
	}
	return nil
}

// accountToDomain converts an RPC account into AccountInfo. Data of mint
// size is decoded as a mint; a layout failure is reported in
// MintDecodeError rather than failing the lookup.
func accountToDomain(address solana.PublicKey, account *rpc.Account) *AccountInfo {
	data := account.Data.GetBinary()
	info := &AccountInfo{
		Address:    address.String(),
		Owner:      account.Owner.String(),
		Lamports:   account.Lamports,
		SOL:        FormatSOL(account.Lamports),
		Executable: account.Executable,
		DataHex:    hex.EncodeToString(data),
	}

	if len(data) == token.MINT_SIZE {
		mint, err := ParseMint(data)
		if err != nil {
			info.MintDecodeError = err.Error()
		} else {
			info.Mint = mint
		}
	}
	return info
}
