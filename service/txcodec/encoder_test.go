package txcodec

import (
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlaceholderKey(t *testing.T) {
	t.Run("all ones is the zero key", func(t *testing.T) {
		key, err := ParsePlaceholderKey(PlaceholderFrom)
		require.NoError(t, err)
		assert.Equal(t, solana.PublicKey{}, key)
		assert.Equal(t, solana.SystemProgramID, key)
	})

	t.Run("short strings are left padded", func(t *testing.T) {
		key, err := ParsePlaceholderKey("2")
		require.NoError(t, err)
		assert.Equal(t, byte(1), key[31])
		assert.Equal(t, solana.PublicKey{31: 1}, key)
	})

	t.Run("real address is unchanged", func(t *testing.T) {
		want := solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
		key, err := ParsePlaceholderKey(want.String())
		require.NoError(t, err)
		assert.Equal(t, want, key)
	})

	t.Run("invalid alphabet", func(t *testing.T) {
		_, err := ParsePlaceholderKey("0OIl")
		assert.Error(t, err)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := ParsePlaceholderKey("  ")
		assert.Error(t, err)
	})

	t.Run("too long", func(t *testing.T) {
		long := base58.Encode(append([]byte{9}, make([]byte, 33)...))
		_, err := ParsePlaceholderKey(long)
		assert.ErrorContains(t, err, "more than 32")
	})
}

func TestEncode(t *testing.T) {
	t.Run("default draft is deterministic", func(t *testing.T) {
		first, err := Encode(DefaultDraft())
		require.NoError(t, err)
		second, err := Encode(DefaultDraft())
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("unsigned transfer has one empty signature slot", func(t *testing.T) {
		raw, err := BuildUnsigned(DefaultDraft())
		require.NoError(t, err)

		tx, err := solana.TransactionFromBytes(raw)
		require.NoError(t, err)
		require.Len(t, tx.Signatures, 1)
		assert.True(t, tx.Signatures[0].IsZero())
		assert.Equal(t, uint8(1), tx.Message.Header.NumRequiredSignatures)
		require.Len(t, tx.Message.Instructions, 1)

		program, err := tx.Message.Program(tx.Message.Instructions[0].ProgramIDIndex)
		require.NoError(t, err)
		assert.Equal(t, system.ProgramID, program)
	})

	t.Run("distinct payer decodes with the strict strategy", func(t *testing.T) {
		from := solana.MustPublicKeyFromBase58("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM")
		to := solana.MustPublicKeyFromBase58("HN7cABqLq46Es1jh92dQQisAq662SmxELLLsHHe4YWrH")
		draft := Draft{
			From:            from.String(),
			To:              to.String(),
			Lamports:        5_000,
			RecentBlockhash: PlaceholderBlockhash,
		}

		blob, err := Encode(draft)
		require.NoError(t, err)

		outcome := Decode(blob)
		require.True(t, outcome.OK(), outcome.Message)
		assert.Equal(t, "versioned", outcome.Strategy)
		require.NotNil(t, outcome.Summary.FeePayer)
		assert.Equal(t, from.String(), *outcome.Summary.FeePayer)
		assert.Equal(t, system.ProgramID.String(), outcome.Summary.Instructions[0].ProgramID)
	})

	t.Run("base58 encoder", func(t *testing.T) {
		blob, err := NewEncoder(Base58).Encode(DefaultDraft())
		require.NoError(t, err)

		outcome := NewDecoder(WithEncoding(Base58)).Decode(blob)
		require.True(t, outcome.OK(), outcome.Message)
	})

	t.Run("invalid keys", func(t *testing.T) {
		for _, field := range []string{"from", "to", "feePayer", "recentBlockhash"} {
			d := DefaultDraft()
			switch field {
			case "from":
				d.From = "bad0"
			case "to":
				d.To = "bad0"
			case "feePayer":
				d.FeePayer = "bad0"
			case "recentBlockhash":
				d.RecentBlockhash = "bad0"
			}
			_, err := Encode(d)
			assert.ErrorContains(t, err, field)
		}
	})
}

func TestDraftFromJSON(t *testing.T) {
	t.Run("partial draft keeps placeholders", func(t *testing.T) {
		d, err := DraftFromJSON([]byte(`{"lamports": 42}`))
		require.NoError(t, err)
		assert.Equal(t, uint64(42), d.Lamports)
		assert.Equal(t, PlaceholderFrom, d.From)
		assert.Equal(t, PlaceholderTo, d.To)
		assert.Equal(t, PlaceholderBlockhash, d.RecentBlockhash)
		assert.Empty(t, d.FeePayer)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		_, err := DraftFromJSON([]byte(`{"lamports": "many"`))
		assert.Error(t, err)
	})
}

func TestEncodingByName(t *testing.T) {
	for name, want := range map[string]string{"": "base64", "BASE64": "base64", " base58 ": "base58"} {
		enc, err := EncodingByName(name)
		require.NoError(t, err)
		assert.Equal(t, want, enc.Name())
	}

	_, err := EncodingByName("hex")
	assert.Error(t, err)
}

func TestBase64Variants(t *testing.T) {
	raw := []byte{0xfb, 0xff, 0xbf, 0x01}
	for _, text := range []string{"+/+/AQ==", "+/+/AQ", "-_-_AQ==", "-_-_AQ", "+/+/\nAQ=="} {
		got, err := Base64.DecodeString(text)
		require.NoError(t, err, text)
		assert.Equal(t, raw, got, text)
	}
	assert.Equal(t, "+/+/AQ==", Base64.EncodeToString(raw))

	_, err := Base64.DecodeString("a")
	assert.Error(t, err)

	_, err = Base58.DecodeString(strings.Repeat("0", 4))
	assert.Error(t, err)
}
