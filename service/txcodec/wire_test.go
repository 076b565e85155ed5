package txcodec

import (
	"encoding/base64"
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rawTx writes transaction bytes field by field so tests can produce
// malformed messages the SDK would refuse to build.
type rawTx struct {
	signatures []solana.Signature
	versioned  bool
	header     [3]byte
	keys       []solana.PublicKey
	blockhash  solana.Hash
	ixs        []rawIx
	lookups    []rawLookup
	trailing   []byte
}

type rawIx struct {
	program  uint8
	accounts []uint8
	data     []byte
}

type rawLookup struct {
	table    solana.PublicKey
	writable []uint8
	readonly []uint8
}

func (r rawTx) bytes(t *testing.T) []byte {
	t.Helper()

	var out []byte
	require.NoError(t, bin.EncodeCompactU16Length(&out, len(r.signatures)))
	for _, sig := range r.signatures {
		out = append(out, sig[:]...)
	}
	if r.versioned {
		out = append(out, versionPrefixMask)
	}
	out = append(out, r.header[:]...)
	require.NoError(t, bin.EncodeCompactU16Length(&out, len(r.keys)))
	for _, k := range r.keys {
		out = append(out, k[:]...)
	}
	out = append(out, r.blockhash[:]...)
	require.NoError(t, bin.EncodeCompactU16Length(&out, len(r.ixs)))
	for _, ix := range r.ixs {
		out = append(out, ix.program)
		require.NoError(t, bin.EncodeCompactU16Length(&out, len(ix.accounts)))
		out = append(out, ix.accounts...)
		require.NoError(t, bin.EncodeCompactU16Length(&out, len(ix.data)))
		out = append(out, ix.data...)
	}
	if r.versioned {
		out = append(out, byte(len(r.lookups)))
		for _, l := range r.lookups {
			out = append(out, l.table[:]...)
			require.NoError(t, bin.EncodeCompactU16Length(&out, len(l.writable)))
			out = append(out, l.writable...)
			require.NoError(t, bin.EncodeCompactU16Length(&out, len(l.readonly)))
			out = append(out, l.readonly...)
		}
	}
	return append(out, r.trailing...)
}

func (r rawTx) base64(t *testing.T) string {
	t.Helper()
	return base64.StdEncoding.EncodeToString(r.bytes(t))
}

func testKey(b byte) solana.PublicKey {
	var k solana.PublicKey
	k[0] = 0x42
	k[31] = b
	return k
}

func testHash(b byte) solana.Hash {
	return solana.Hash(testKey(b))
}

func testSignature(b byte) solana.Signature {
	var s solana.Signature
	for i := range s {
		s[i] = b
	}
	return s
}

// simpleTransfer is a well-formed legacy message with one signer, one
// readonly program and one instruction.
func simpleTransfer(sigs int) rawTx {
	return rawTx{
		signatures: make([]solana.Signature, sigs),
		header:     [3]byte{1, 0, 1},
		keys:       []solana.PublicKey{testKey(1), testKey(2)},
		blockhash:  testHash(9),
		ixs:        []rawIx{{program: 1, accounts: []uint8{0}, data: []byte{1, 2, 3}}},
	}
}

func TestReadEnvelope(t *testing.T) {
	t.Run("legacy message", func(t *testing.T) {
		env, err := readEnvelope(simpleTransfer(1).bytes(t))
		require.NoError(t, err)
		assert.False(t, env.versioned)
		assert.Len(t, env.signatures, 1)
		assert.Len(t, env.message.AccountKeys, 2)
		assert.Equal(t, 0, env.trailing)
	})

	t.Run("v0 message", func(t *testing.T) {
		tx := simpleTransfer(1)
		tx.versioned = true
		tx.lookups = []rawLookup{{table: testKey(7), writable: []uint8{1}}}

		env, err := readEnvelope(tx.bytes(t))
		require.NoError(t, err)
		assert.True(t, env.versioned)
		require.Len(t, env.message.AddressTableLookups, 1)
		assert.Equal(t, testKey(7), env.message.AddressTableLookups[0].AccountKey)
	})

	t.Run("counts trailing bytes", func(t *testing.T) {
		tx := simpleTransfer(1)
		tx.trailing = []byte{0xff, 0xfe}

		env, err := readEnvelope(tx.bytes(t))
		require.NoError(t, err)
		assert.Equal(t, 2, env.trailing)
	})

	t.Run("signature count larger than input", func(t *testing.T) {
		_, err := readEnvelope([]byte{5, 1, 2, 3})
		assert.ErrorIs(t, err, errTruncated)
	})

	t.Run("no message after signatures", func(t *testing.T) {
		raw := make([]byte, 1+signatureLength)
		raw[0] = 1
		_, err := readEnvelope(raw)
		assert.ErrorIs(t, err, errTruncated)
	})

	t.Run("unsupported version", func(t *testing.T) {
		raw := simpleTransfer(1).bytes(t)
		raw = append(raw[:1+signatureLength], append([]byte{0x81}, raw[1+signatureLength:]...)...)
		_, err := readEnvelope(raw)
		assert.ErrorIs(t, err, errUnsupportedVersion)
	})

	t.Run("ambiguous 0x7f prefix", func(t *testing.T) {
		tx := simpleTransfer(1)
		tx.header[0] = 0x7f
		_, err := readEnvelope(tx.bytes(t))
		assert.ErrorIs(t, err, errAmbiguousPrefix)
	})

	t.Run("truncated message", func(t *testing.T) {
		raw := simpleTransfer(1).bytes(t)
		_, err := readEnvelope(raw[:len(raw)-40])
		assert.Error(t, err)
	})
}
