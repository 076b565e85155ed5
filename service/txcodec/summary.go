package txcodec

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/samber/lo"
)

// Summary is the display projection of a decoded transaction. Signatures and
// instructions keep their on-wire order.
type Summary struct {
	RecentBlockhash     *string              `json:"recentBlockhash,omitempty"`
	FeePayer            *string              `json:"feePayer,omitempty"`
	Signatures          []SignatureEntry     `json:"signatures"`
	Instructions        []InstructionSummary `json:"instructions"`
	Version             string               `json:"version"`
	AddressTableLookups []LookupSummary      `json:"addressTableLookups,omitempty"`
}

// SignatureEntry pairs a required signer with its signature. Signature is nil
// when the slot is zero-filled (unsigned).
type SignatureEntry struct {
	PublicKey string  `json:"publicKey"`
	Signature *string `json:"signature"`
}

type InstructionSummary struct {
	ProgramID string       `json:"programId"`
	Keys      []AccountKey `json:"keys"`
	Data      string       `json:"data"`
}

type AccountKey struct {
	Pubkey     string `json:"pubkey"`
	IsSigner   bool   `json:"isSigner"`
	IsWritable bool   `json:"isWritable"`
}

type LookupSummary struct {
	AccountKey      string `json:"accountKey"`
	WritableIndexes []int  `json:"writableIndexes"`
	ReadonlyIndexes []int  `json:"readonlyIndexes"`
}

// JSON renders the summary pretty-printed with two-space indentation.
func (s *Summary) JSON() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

const (
	versionLegacy = "legacy"
	versionV0     = "0"
)

// loadedKey is an account key that lives in an address lookup table. It
// cannot be resolved without fetching the table, so it is named by position.
type loadedKey struct {
	table    solana.PublicKey
	index    uint8
	writable bool
}

func (k loadedKey) String() string {
	return fmt.Sprintf("%s#%d", k.table, k.index)
}

// accountTable resolves instruction account indexes against the message
// header, static keys, and lookup-table entries.
type accountTable struct {
	header  solana.MessageHeader
	static  []solana.PublicKey
	loaded  []loadedKey
	signers int
}

func newAccountTable(env *envelope) accountTable {
	msg := env.message
	t := accountTable{
		header:  msg.Header,
		static:  msg.AccountKeys,
		signers: max(int(msg.Header.NumRequiredSignatures), len(env.signatures)),
	}
	// Writable entries of every table come before any readonly entry.
	for _, l := range msg.AddressTableLookups {
		for _, idx := range l.WritableIndexes {
			t.loaded = append(t.loaded, loadedKey{table: l.AccountKey, index: idx, writable: true})
		}
	}
	for _, l := range msg.AddressTableLookups {
		for _, idx := range l.ReadonlyIndexes {
			t.loaded = append(t.loaded, loadedKey{table: l.AccountKey, index: idx})
		}
	}
	return t
}

func (t accountTable) len() int {
	return len(t.static) + len(t.loaded)
}

func (t accountTable) name(i int) string {
	if i < len(t.static) {
		return t.static[i].String()
	}
	return t.loaded[i-len(t.static)].String()
}

func (t accountTable) isSigner(i int) bool {
	return i < len(t.static) && i < t.signers
}

func (t accountTable) isWritable(i int) bool {
	if i >= len(t.static) {
		return t.loaded[i-len(t.static)].writable
	}
	required := int(t.header.NumRequiredSignatures)
	if i < required {
		return i < required-int(t.header.NumReadonlySignedAccounts)
	}
	return i < len(t.static)-int(t.header.NumReadonlyUnsignedAccounts)
}

// project builds the summary. Callers must have checked that every index
// referenced by the message is inside the account table.
func project(env *envelope) *Summary {
	msg := env.message
	table := newAccountTable(env)

	blockhash := msg.RecentBlockhash.String()
	summary := &Summary{
		RecentBlockhash: &blockhash,
		Signatures:      make([]SignatureEntry, 0, len(env.signatures)),
		Instructions:    make([]InstructionSummary, 0, len(msg.Instructions)),
		Version:         versionLegacy,
	}
	if env.versioned {
		summary.Version = versionV0
	}
	if msg.Header.NumRequiredSignatures > 0 && len(msg.AccountKeys) > 0 {
		payer := msg.AccountKeys[0].String()
		summary.FeePayer = &payer
	}

	for i, sig := range env.signatures {
		entry := SignatureEntry{PublicKey: table.name(i)}
		if sig != (solana.Signature{}) {
			encoded := base64.StdEncoding.EncodeToString(sig[:])
			entry.Signature = &encoded
		}
		summary.Signatures = append(summary.Signatures, entry)
	}

	for _, ix := range msg.Instructions {
		keys := lo.Map(ix.Accounts, func(idx uint16, _ int) AccountKey {
			return AccountKey{
				Pubkey:     table.name(int(idx)),
				IsSigner:   table.isSigner(int(idx)),
				IsWritable: table.isWritable(int(idx)),
			}
		})
		if keys == nil {
			keys = []AccountKey{}
		}
		summary.Instructions = append(summary.Instructions, InstructionSummary{
			ProgramID: table.name(int(ix.ProgramIDIndex)),
			Keys:      keys,
			Data:      base64.StdEncoding.EncodeToString(ix.Data),
		})
	}

	if len(msg.AddressTableLookups) > 0 {
		summary.AddressTableLookups = lo.Map(msg.AddressTableLookups, func(l solana.MessageAddressTableLookup, _ int) LookupSummary {
			return LookupSummary{
				AccountKey:      l.AccountKey.String(),
				WritableIndexes: indexes(l.WritableIndexes),
				ReadonlyIndexes: indexes(l.ReadonlyIndexes),
			}
		})
	}

	return summary
}

// indexes widens lookup indexes so they render as numbers rather than base64.
func indexes(in []uint8) []int {
	out := make([]int, len(in))
	for i, v := range in {
		out[i] = int(v)
	}
	return out
}
