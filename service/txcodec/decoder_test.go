package txcodec

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_InputErrors(t *testing.T) {
	tests := []struct {
		name string
		blob string
		kind FailureKind
	}{
		{name: "empty", blob: "", kind: KindEmptyInput},
		{name: "whitespace only", blob: "  \n\t ", kind: KindEmptyInput},
		{name: "not base64", blob: "not-base64!!", kind: KindInvalidEncoding},
		{name: "garbage bytes", blob: base64.StdEncoding.EncodeToString([]byte("hello")), kind: KindUnrecognizedFormat},
		{name: "single zero byte", blob: "AA==", kind: KindUnrecognizedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := Decode(tt.blob)
			assert.False(t, outcome.OK())
			assert.Nil(t, outcome.Summary)
			assert.Equal(t, tt.kind, outcome.Kind)
			assert.NotEmpty(t, outcome.Message)
		})
	}

	t.Run("unrecognized message text", func(t *testing.T) {
		outcome := Decode(base64.StdEncoding.EncodeToString([]byte("hello")))
		assert.Equal(t, unrecognizedMessage, outcome.Message)
	})
}

func TestDecode_RoundTripDefaultDraft(t *testing.T) {
	blob, err := Encode(DefaultDraft())
	require.NoError(t, err)

	outcome := Decode(blob)
	require.True(t, outcome.OK(), "decode failed: %s", outcome.Message)

	s := outcome.Summary
	// The placeholder payer is the system program, which the strict format
	// rejects, so the lenient legacy strategy produces the summary.
	assert.Equal(t, "legacy", outcome.Strategy)
	assert.Equal(t, versionLegacy, s.Version)

	require.Len(t, s.Instructions, 1)
	ix := s.Instructions[0]
	assert.Equal(t, "11111111111111111111111111111111", ix.ProgramID)
	assert.Equal(t, "AgAAAOgDAAAAAAAA", ix.Data)

	to, err := ParsePlaceholderKey(PlaceholderTo)
	require.NoError(t, err)
	assert.Equal(t, []AccountKey{
		{Pubkey: PlaceholderFrom, IsSigner: true, IsWritable: true},
		{Pubkey: to.String(), IsSigner: false, IsWritable: true},
	}, ix.Keys)

	require.NotNil(t, s.FeePayer)
	assert.Equal(t, PlaceholderFrom, *s.FeePayer)

	blockhash, err := ParsePlaceholderKey(PlaceholderBlockhash)
	require.NoError(t, err)
	require.NotNil(t, s.RecentBlockhash)
	assert.Equal(t, blockhash.String(), *s.RecentBlockhash)

	require.Len(t, s.Signatures, 1)
	assert.Equal(t, PlaceholderFrom, s.Signatures[0].PublicKey)
	assert.Nil(t, s.Signatures[0].Signature)
}

func TestDecode_Deterministic(t *testing.T) {
	blob, err := Encode(DefaultDraft())
	require.NoError(t, err)

	first := Decode(blob)
	second := Decode(blob)
	assert.Equal(t, first, second)

	t.Run("wrapped input", func(t *testing.T) {
		var wrapped strings.Builder
		for i, r := range blob {
			if i > 0 && i%20 == 0 {
				wrapped.WriteString("\n  ")
			}
			wrapped.WriteRune(r)
		}
		assert.Equal(t, first, Decode("\n"+wrapped.String()+"\n"))
	})
}

func TestDecode_Versioned(t *testing.T) {
	t.Run("legacy message with every signature", func(t *testing.T) {
		want := testSignature(7)
		tx := simpleTransfer(1)
		tx.signatures[0] = want

		outcome := Decode(tx.base64(t))
		require.True(t, outcome.OK(), outcome.Message)
		assert.Equal(t, "versioned", outcome.Strategy)
		assert.Equal(t, versionLegacy, outcome.Summary.Version)

		require.Len(t, outcome.Summary.Signatures, 1)
		sig := outcome.Summary.Signatures[0]
		assert.Equal(t, testKey(1).String(), sig.PublicKey)
		require.NotNil(t, sig.Signature)
		assert.Equal(t, base64.StdEncoding.EncodeToString(want[:]), *sig.Signature)
	})

	t.Run("v0 message with lookups", func(t *testing.T) {
		table := testKey(50)
		tx := rawTx{
			signatures: make([]solana.Signature, 1),
			versioned:  true,
			header:     [3]byte{1, 0, 1},
			keys:       []solana.PublicKey{testKey(1), testKey(2)},
			blockhash:  testHash(9),
			ixs:        []rawIx{{program: 1, accounts: []uint8{0, 2, 3}, data: []byte{9}}},
			lookups:    []rawLookup{{table: table, writable: []uint8{5}, readonly: []uint8{7}}},
		}

		outcome := Decode(tx.base64(t))
		require.True(t, outcome.OK(), outcome.Message)
		assert.Equal(t, "versioned", outcome.Strategy)

		s := outcome.Summary
		assert.Equal(t, versionV0, s.Version)
		require.Len(t, s.Instructions, 1)
		assert.Equal(t, testKey(2).String(), s.Instructions[0].ProgramID)
		assert.Equal(t, []AccountKey{
			{Pubkey: testKey(1).String(), IsSigner: true, IsWritable: true},
			{Pubkey: table.String() + "#5", IsSigner: false, IsWritable: true},
			{Pubkey: table.String() + "#7", IsSigner: false, IsWritable: false},
		}, s.Instructions[0].Keys)

		require.Len(t, s.AddressTableLookups, 1)
		assert.Equal(t, LookupSummary{
			AccountKey:      table.String(),
			WritableIndexes: []int{5},
			ReadonlyIndexes: []int{7},
		}, s.AddressTableLookups[0])
	})

	t.Run("v0 message missing signatures", func(t *testing.T) {
		tx := simpleTransfer(0)
		tx.versioned = true

		outcome := Decode(tx.base64(t))
		assert.False(t, outcome.OK())
		assert.Equal(t, KindMissingSignatures, outcome.Kind)
		assert.Contains(t, outcome.Message, "have 0, message requires 1")
	})

	t.Run("v0 account index out of range is unclassified", func(t *testing.T) {
		tx := simpleTransfer(1)
		tx.versioned = true
		tx.ixs[0].accounts = []uint8{0, 9}

		outcome := Decode(tx.base64(t))
		assert.Equal(t, KindUnrecognizedFormat, outcome.Kind)
		assert.Equal(t, unrecognizedMessage, outcome.Message)

		_, err := parseVersioned(tx.bytes(t))
		require.ErrorIs(t, err, errIndexOutOfRange)
		assert.NotErrorIs(t, err, ErrAccountIndexOutOfRange)
	})

	t.Run("v0 lookup without indexes", func(t *testing.T) {
		tx := simpleTransfer(1)
		tx.versioned = true
		tx.lookups = []rawLookup{{table: testKey(50)}}

		outcome := Decode(tx.base64(t))
		assert.Equal(t, KindUnrecognizedFormat, outcome.Kind)
	})
}

func TestDecode_LegacyFallThrough(t *testing.T) {
	t.Run("missing signatures fall through to legacy", func(t *testing.T) {
		outcome := Decode(simpleTransfer(0).base64(t))
		require.True(t, outcome.OK(), outcome.Message)
		assert.Equal(t, "legacy", outcome.Strategy)
		assert.Empty(t, outcome.Summary.Signatures)
		require.Len(t, outcome.Summary.Instructions, 1)
		assert.Equal(t, testKey(2).String(), outcome.Summary.Instructions[0].ProgramID)
	})

	t.Run("trailing bytes are tolerated by legacy", func(t *testing.T) {
		tx := simpleTransfer(1)
		tx.trailing = []byte{1, 2, 3}

		outcome := Decode(tx.base64(t))
		require.True(t, outcome.OK(), outcome.Message)
		assert.Equal(t, "legacy", outcome.Strategy)
	})

	t.Run("extra signature slots", func(t *testing.T) {
		tx := simpleTransfer(2)
		tx.signatures[1] = testSignature(3)

		outcome := Decode(tx.base64(t))
		require.True(t, outcome.OK(), outcome.Message)
		assert.Equal(t, "legacy", outcome.Strategy)
		require.Len(t, outcome.Summary.Signatures, 2)
		assert.Equal(t, testKey(2).String(), outcome.Summary.Signatures[1].PublicKey)
	})
}

func TestDecode_MalformedLegacy(t *testing.T) {
	t.Run("missing fee payer", func(t *testing.T) {
		tx := rawTx{
			header:    [3]byte{0, 0, 0},
			keys:      []solana.PublicKey{testKey(1)},
			blockhash: testHash(9),
			ixs:       []rawIx{{program: 0}},
		}

		outcome := Decode(tx.base64(t))
		assert.Equal(t, KindMalformedLegacyFields, outcome.Kind)
		assert.Nil(t, outcome.Summary)
		assert.Contains(t, outcome.Message, ErrMissingFeePayer.Error())
	})

	t.Run("no account keys", func(t *testing.T) {
		tx := rawTx{header: [3]byte{1, 0, 0}, blockhash: testHash(9)}

		outcome := Decode(tx.base64(t))
		assert.Equal(t, KindMalformedLegacyFields, outcome.Kind)
	})

	t.Run("zero blockhash reports the later classified failure", func(t *testing.T) {
		tx := simpleTransfer(0)
		tx.blockhash = solana.Hash{}

		// versioned reports MissingSignatures first, legacy then reports
		// the blockhash and its failure wins.
		outcome := Decode(tx.base64(t))
		assert.Equal(t, KindMalformedLegacyFields, outcome.Kind)
		assert.Contains(t, outcome.Message, ErrMissingBlockhash.Error())
	})

	t.Run("program index out of range", func(t *testing.T) {
		tx := simpleTransfer(1)
		tx.ixs[0].program = 5

		outcome := Decode(tx.base64(t))
		assert.Equal(t, KindMalformedLegacyFields, outcome.Kind)
		assert.Contains(t, outcome.Message, ErrAccountIndexOutOfRange.Error())
	})

	t.Run("account index out of range", func(t *testing.T) {
		tx := simpleTransfer(1)
		tx.ixs[0].accounts = []uint8{0, 9}

		outcome := Decode(tx.base64(t))
		assert.Equal(t, KindMalformedLegacyFields, outcome.Kind)
	})
}

func TestDecode_PreservesOrder(t *testing.T) {
	tx := rawTx{
		signatures: []solana.Signature{testSignature(1), testSignature(2)},
		header:     [3]byte{2, 0, 2},
		keys:       []solana.PublicKey{testKey(1), testKey(2), testKey(3), testKey(4)},
		blockhash:  testHash(9),
		ixs: []rawIx{
			{program: 3, accounts: []uint8{1}, data: []byte{0xb}},
			{program: 2, accounts: []uint8{0, 1}, data: []byte{0xa}},
			{program: 3, data: nil},
		},
	}

	outcome := Decode(tx.base64(t))
	require.True(t, outcome.OK(), outcome.Message)
	s := outcome.Summary

	require.Len(t, s.Signatures, 2)
	assert.Equal(t, testKey(1).String(), s.Signatures[0].PublicKey)
	assert.Equal(t, testKey(2).String(), s.Signatures[1].PublicKey)

	programs := make([]string, 0, len(s.Instructions))
	for _, ix := range s.Instructions {
		programs = append(programs, ix.ProgramID)
	}
	assert.Equal(t, []string{testKey(4).String(), testKey(3).String(), testKey(4).String()}, programs)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte{0xb}), s.Instructions[0].Data)
	assert.Equal(t, []AccountKey{}, s.Instructions[2].Keys)
	assert.Equal(t, "", s.Instructions[2].Data)
}

func TestDecode_UnsupportedFormats(t *testing.T) {
	t.Run("version 1 message", func(t *testing.T) {
		raw := simpleTransfer(1).bytes(t)
		raw = append(raw[:1+signatureLength:1+signatureLength], append([]byte{0x81}, raw[1+signatureLength:]...)...)

		outcome := Decode(base64.StdEncoding.EncodeToString(raw))
		assert.Equal(t, KindUnrecognizedFormat, outcome.Kind)
	})

	t.Run("header byte 0x7f", func(t *testing.T) {
		tx := simpleTransfer(1)
		tx.header[0] = 0x7f

		outcome := Decode(tx.base64(t))
		assert.Equal(t, KindUnrecognizedFormat, outcome.Kind)
	})
}

func TestDecoder_Options(t *testing.T) {
	blob := simpleTransfer(1).bytes(t)

	t.Run("base58 input", func(t *testing.T) {
		d := NewDecoder(WithEncoding(Base58))
		assert.Equal(t, "base58", d.Encoding().Name())

		outcome := d.Decode(base58.Encode(blob))
		require.True(t, outcome.OK(), outcome.Message)
		assert.Equal(t, "versioned", outcome.Strategy)
	})

	t.Run("observer sees every outcome", func(t *testing.T) {
		var seen []Outcome
		d := NewDecoder(WithObserver(func(o Outcome, elapsed time.Duration) {
			assert.GreaterOrEqual(t, elapsed, time.Duration(0))
			seen = append(seen, o)
		}))

		d.Decode("")
		d.Decode(base64.StdEncoding.EncodeToString(blob))

		require.Len(t, seen, 2)
		assert.Equal(t, KindEmptyInput, seen[0].Kind)
		assert.True(t, seen[1].OK())
	})

	t.Run("panicking strategy is skipped", func(t *testing.T) {
		boom := Strategy{
			Name:  "boom",
			Parse: func([]byte) (*Summary, error) { panic("index out of range") },
		}
		d := NewDecoder(
			WithStrategies(append([]Strategy{boom}, DefaultStrategies()...)...),
			WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		)

		outcome := d.Decode(base64.StdEncoding.EncodeToString(blob))
		require.True(t, outcome.OK(), outcome.Message)
		assert.Equal(t, "versioned", outcome.Strategy)

		only := NewDecoder(WithStrategies(boom))
		assert.Equal(t, KindUnrecognizedFormat, only.Decode(base64.StdEncoding.EncodeToString(blob)).Kind)
	})

	t.Run("custom classified failure", func(t *testing.T) {
		errCustom := errors.New("custom layout")
		custom := Strategy{
			Name:  "custom",
			Parse: func([]byte) (*Summary, error) { return nil, fmt.Errorf("wrapped: %w", errCustom) },
			Known: []Matcher{MatchError(KindMalformedLegacyFields, errCustom)},
		}

		outcome := NewDecoder(WithStrategies(custom)).Decode(base64.StdEncoding.EncodeToString(blob))
		assert.Equal(t, KindMalformedLegacyFields, outcome.Kind)
		assert.Equal(t, "wrapped: custom layout", outcome.Message)
	})

	t.Run("nil summary counts as failure", func(t *testing.T) {
		empty := Strategy{
			Name:  "empty",
			Parse: func([]byte) (*Summary, error) { return nil, nil },
		}

		outcome := NewDecoder(WithStrategies(empty)).Decode(base64.StdEncoding.EncodeToString(blob))
		assert.Equal(t, KindUnrecognizedFormat, outcome.Kind)
	})

	t.Run("encoding yielding no bytes", func(t *testing.T) {
		outcome := NewDecoder(WithEncoding(emptyEncoding{})).Decode("anything")
		assert.Equal(t, KindInvalidEncoding, outcome.Kind)
		assert.Equal(t, "empty input decoded to zero bytes", outcome.Message)
	})

	t.Run("no strategies", func(t *testing.T) {
		outcome := NewDecoder(WithStrategies()).Decode(base64.StdEncoding.EncodeToString(blob))
		assert.Equal(t, KindUnrecognizedFormat, outcome.Kind)
	})
}

// emptyEncoding accepts any text and decodes it to nothing.
type emptyEncoding struct{}

func (emptyEncoding) Name() string                        { return "empty" }
func (emptyEncoding) DecodeString(string) ([]byte, error) { return nil, nil }
func (emptyEncoding) EncodeToString([]byte) string        { return "" }

func TestDecoder_Concurrent(t *testing.T) {
	blob, err := Encode(DefaultDraft())
	require.NoError(t, err)
	want := Decode(blob)

	d := NewDecoder()
	var wg sync.WaitGroup
	results := make([]Outcome, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = d.Decode(blob)
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, want, got)
	}
}

func TestOutcome(t *testing.T) {
	t.Run("success has no error", func(t *testing.T) {
		o := Success(&Summary{}, "legacy")
		assert.True(t, o.OK())
		assert.NoError(t, o.Err())
	})

	t.Run("failure converts to DecodeError", func(t *testing.T) {
		o := Failure(KindMissingSignatures, "have 0")
		err := o.Err()
		require.Error(t, err)

		var decodeErr *DecodeError
		require.True(t, errors.As(err, &decodeErr))
		assert.Equal(t, KindMissingSignatures, decodeErr.Kind)
		assert.Equal(t, "MissingSignatures: have 0", err.Error())
	})
}

func TestSummary_JSON(t *testing.T) {
	tx := simpleTransfer(1)
	tx.versioned = true
	tx.lookups = []rawLookup{{table: testKey(50), writable: []uint8{3}, readonly: []uint8{4, 6}}}

	outcome := Decode(tx.base64(t))
	require.True(t, outcome.OK(), outcome.Message)

	data, err := outcome.Summary.JSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"recentBlockhash\"")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, versionV0, decoded["version"])
	assert.Contains(t, decoded, "feePayer")

	instructions := decoded["instructions"].([]any)
	require.Len(t, instructions, 1)
	assert.Contains(t, instructions[0], "programId")

	lookups := decoded["addressTableLookups"].([]any)
	require.Len(t, lookups, 1)
	assert.Equal(t, []any{float64(4), float64(6)}, lookups[0].(map[string]any)["readonlyIndexes"])
}
