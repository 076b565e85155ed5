package txcodec

import (
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

const (
	signatureLength = 64

	// versionPrefixMask marks a versioned message; the low seven bits carry the version.
	versionPrefixMask = 0x80
)

var (
	errTruncated          = errors.New("truncated transaction")
	errUnsupportedVersion = errors.New("unsupported message version")
	errAmbiguousPrefix    = errors.New("message prefix does not match decoded version")
)

// envelope is a transaction split into its signature section and message,
// before any strategy-specific validation.
type envelope struct {
	signatures []solana.Signature
	message    solana.Message
	versioned  bool
	trailing   int
}

// readEnvelope decodes the compact signature array followed by a legacy or
// v0 message. It performs no semantic checks.
func readEnvelope(raw []byte) (*envelope, error) {
	dec := bin.NewBinDecoder(raw)

	count, err := dec.ReadCompactU16()
	if err != nil {
		return nil, fmt.Errorf("read signature count: %w", err)
	}
	if count*signatureLength > dec.Remaining() {
		return nil, fmt.Errorf("%w: %d signatures but only %d bytes remain", errTruncated, count, dec.Remaining())
	}

	env := &envelope{signatures: make([]solana.Signature, count)}
	for i := range env.signatures {
		b, err := dec.ReadNBytes(signatureLength)
		if err != nil {
			return nil, fmt.Errorf("read signature %d: %w", i, err)
		}
		copy(env.signatures[i][:], b)
	}

	prefix, err := dec.Peek(1)
	if err != nil {
		return nil, fmt.Errorf("%w: missing message", errTruncated)
	}
	// 0x7f is a legal legacy header byte but the message decoder reads it as
	// a version prefix.
	if prefix[0] == versionPrefixMask-1 {
		return nil, fmt.Errorf("%w: prefix 0x%02x", errAmbiguousPrefix, prefix[0])
	}
	env.versioned = prefix[0]&versionPrefixMask != 0
	if env.versioned {
		if version := prefix[0] &^ versionPrefixMask; version != 0 {
			return nil, fmt.Errorf("%w: %d", errUnsupportedVersion, version)
		}
	}

	if err := env.message.UnmarshalWithDecoder(dec); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	if env.message.IsVersioned() != env.versioned {
		return nil, fmt.Errorf("%w: prefix 0x%02x", errAmbiguousPrefix, prefix[0])
	}
	env.trailing = dec.Remaining()

	return env, nil
}
