package txcodec

import (
	"encoding/base64"
	"fmt"
	"strings"
	"unicode"

	"github.com/mr-tron/base58"
)

// Encoding converts between the text form of a blob and its raw bytes.
// Decoders and encoders receive it explicitly; nothing is registered globally.
type Encoding interface {
	Name() string
	DecodeString(s string) ([]byte, error)
	EncodeToString(b []byte) string
}

var (
	// Base64 is the default encoding used by wallets and RPC nodes.
	Base64 Encoding = base64Encoding{}

	// Base58 is the encoding used by older RPC responses and explorers.
	Base58 Encoding = base58Encoding{}
)

// EncodingByName returns the encoding registered under name ("base64" or "base58").
// An empty name selects Base64.
func EncodingByName(name string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "base64":
		return Base64, nil
	case "base58":
		return Base58, nil
	default:
		return nil, fmt.Errorf("unknown encoding %q: must be base64 or base58", name)
	}
}

type base64Encoding struct{}

func (base64Encoding) Name() string { return "base64" }

// DecodeString accepts padded and unpadded input in both the standard and
// URL-safe alphabets. Whitespace inside the text (wrapped pastes) is ignored.
func (base64Encoding) DecodeString(s string) ([]byte, error) {
	s = stripSpace(s)

	var firstErr error
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		b, err := enc.DecodeString(s)
		if err == nil {
			return b, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, fmt.Errorf("invalid base64: %w", firstErr)
}

func (base64Encoding) EncodeToString(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

type base58Encoding struct{}

func (base58Encoding) Name() string { return "base58" }

func (base58Encoding) DecodeString(s string) ([]byte, error) {
	b, err := base58.Decode(stripSpace(s))
	if err != nil {
		return nil, fmt.Errorf("invalid base58: %w", err)
	}
	return b, nil
}

func (base58Encoding) EncodeToString(b []byte) string {
	return base58.Encode(b)
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
