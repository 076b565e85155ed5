package txcodec

import (
	"encoding/json"
	"fmt"
	"strings"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/mr-tron/base58"
)

// Placeholder values of the demonstration draft. They are short base58
// strings, left-padded to 32 bytes.
const (
	PlaceholderFrom      = "11111111111111111111111111111111"
	PlaceholderTo        = "22222222222222222222222222222222"
	PlaceholderBlockhash = "33333333333333333333333333333333"
	PlaceholderLamports  = 1000
)

// Draft describes the single native transfer the encoder builds.
type Draft struct {
	From            string `json:"from"`
	To              string `json:"to"`
	Lamports        uint64 `json:"lamports"`
	RecentBlockhash string `json:"recentBlockhash"`
	// FeePayer defaults to From.
	FeePayer string `json:"feePayer,omitempty"`
}

// DefaultDraft returns the fixed placeholder transfer.
func DefaultDraft() Draft {
	return Draft{
		From:            PlaceholderFrom,
		To:              PlaceholderTo,
		Lamports:        PlaceholderLamports,
		RecentBlockhash: PlaceholderBlockhash,
		FeePayer:        PlaceholderFrom,
	}
}

// DraftFromJSON parses a draft. Missing fields fall back to the placeholder values.
func DraftFromJSON(data []byte) (Draft, error) {
	d := DefaultDraft()
	d.FeePayer = ""
	if err := json.Unmarshal(data, &d); err != nil {
		return Draft{}, fmt.Errorf("invalid draft JSON: %w", err)
	}
	return d, nil
}

// Encoder serialises drafts as unsigned transactions.
type Encoder struct {
	encoding Encoding
}

// NewEncoder creates an encoder producing text in enc (Base64 when nil).
func NewEncoder(enc Encoding) *Encoder {
	if enc == nil {
		enc = Base64
	}
	return &Encoder{encoding: enc}
}

// Encode builds the transfer described by d and returns the wire bytes in
// the encoder's text encoding. Every required signature slot is zero-filled.
func (e *Encoder) Encode(d Draft) (string, error) {
	raw, err := BuildUnsigned(d)
	if err != nil {
		return "", err
	}
	return e.encoding.EncodeToString(raw), nil
}

// Encode encodes d as base64.
func Encode(d Draft) (string, error) {
	return NewEncoder(Base64).Encode(d)
}

// BuildUnsigned returns the wire bytes of the draft's transaction with empty signatures.
func BuildUnsigned(d Draft) ([]byte, error) {
	from, err := ParsePlaceholderKey(d.From)
	if err != nil {
		return nil, fmt.Errorf("from: %w", err)
	}
	to, err := ParsePlaceholderKey(d.To)
	if err != nil {
		return nil, fmt.Errorf("to: %w", err)
	}
	payer := from
	if d.FeePayer != "" {
		if payer, err = ParsePlaceholderKey(d.FeePayer); err != nil {
			return nil, fmt.Errorf("feePayer: %w", err)
		}
	}
	blockhashKey, err := ParsePlaceholderKey(d.RecentBlockhash)
	if err != nil {
		return nil, fmt.Errorf("recentBlockhash: %w", err)
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(d.Lamports, from, to).Build(),
		},
		solana.Hash(blockhashKey),
		solana.TransactionPayer(payer),
	)
	if err != nil {
		return nil, fmt.Errorf("build transaction: %w", err)
	}

	return MarshalUnsigned(tx)
}

// MarshalUnsigned serialises tx with its existing signatures, padding the
// signature section with zero-filled slots up to the required signer count.
func MarshalUnsigned(tx *solana.Transaction) ([]byte, error) {
	message, err := tx.Message.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}

	count := max(int(tx.Message.Header.NumRequiredSignatures), len(tx.Signatures))
	out := make([]byte, 0, 3+count*signatureLength+len(message))
	if err := bin.EncodeCompactU16Length(&out, count); err != nil {
		return nil, fmt.Errorf("encode signature count: %w", err)
	}
	for i := 0; i < count; i++ {
		var sig solana.Signature
		if i < len(tx.Signatures) {
			sig = tx.Signatures[i]
		}
		out = append(out, sig[:]...)
	}
	return append(out, message...), nil
}

// ParsePlaceholderKey decodes a base58 string into 32 bytes. Strings that
// decode to fewer bytes are left-padded with zeros, the way wallet SDKs treat
// short placeholder addresses.
func ParsePlaceholderKey(s string) (solana.PublicKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return solana.PublicKey{}, fmt.Errorf("empty key")
	}
	b, err := base58.Decode(s)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid base58 %q: %w", s, err)
	}
	if len(b) > solana.PublicKeyLength {
		return solana.PublicKey{}, fmt.Errorf("key %q decodes to %d bytes, more than %d", s, len(b), solana.PublicKeyLength)
	}
	var key solana.PublicKey
	copy(key[solana.PublicKeyLength-len(b):], b)
	return key, nil
}
