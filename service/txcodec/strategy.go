package txcodec

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Known failure signatures. Strategies wrap these so matchers can recognise
// them with errors.Is.
var (
	ErrSignatureCountMismatch = errors.New("signature count does not match required signatures")
	ErrMissingFeePayer        = errors.New("missing fee payer")
	ErrMissingBlockhash       = errors.New("missing recent blockhash")
	ErrAccountIndexOutOfRange = errors.New("account index outside account keys")
)

var (
	errNotLegacy       = errors.New("message is versioned")
	errInvalidHeader   = errors.New("invalid message header")
	errTooManyAccounts = errors.New("too many account keys")
	errProgramIsPayer  = errors.New("fee payer cannot be a program")
	errEmptyLookup     = errors.New("address table lookup has no indexes")
	errTrailingBytes   = errors.New("trailing bytes after message")
	errIndexOutOfRange = errors.New("instruction index outside account table")
)

// maxAccountKeys is the largest account table an instruction can address with u8 indexes.
const maxAccountKeys = 256

// Matcher recognises an expected failure of a strategy and names its kind.
type Matcher struct {
	Kind  FailureKind
	Match func(err error) bool
}

// MatchError returns a matcher that recognises any error wrapping target.
func MatchError(kind FailureKind, target error) Matcher {
	return Matcher{
		Kind:  kind,
		Match: func(err error) bool { return errors.Is(err, target) },
	}
}

// Strategy is one candidate interpretation of the raw transaction bytes.
type Strategy struct {
	Name  string
	Parse func(raw []byte) (*Summary, error)
	Known []Matcher
}

// classify returns the kind of the first matcher that recognises err.
func (s Strategy) classify(err error) (FailureKind, bool) {
	for _, m := range s.Known {
		if m.Match(err) {
			return m.Kind, true
		}
	}
	return "", false
}

// DefaultStrategies returns the built-in strategies in priority order: the
// strict versioned format first, the lenient legacy format last.
func DefaultStrategies() []Strategy {
	return []Strategy{
		VersionedStrategy(),
		LegacyStrategy(),
	}
}

// VersionedStrategy accepts legacy and v0 messages that pass the protocol's
// sanitize rules and carry exactly one signature slot per required signer.
func VersionedStrategy() Strategy {
	return Strategy{
		Name:  "versioned",
		Parse: parseVersioned,
		Known: []Matcher{
			MatchError(KindMissingSignatures, ErrSignatureCountMismatch),
		},
	}
}

// LegacyStrategy accepts legacy messages only. It tolerates missing or extra
// signature slots but rejects messages without a fee payer, a blockhash, or
// with instructions pointing outside the account keys.
func LegacyStrategy() Strategy {
	return Strategy{
		Name:  "legacy",
		Parse: parseLegacy,
		Known: []Matcher{
			MatchError(KindMalformedLegacyFields, ErrMissingFeePayer),
			MatchError(KindMalformedLegacyFields, ErrMissingBlockhash),
			MatchError(KindMalformedLegacyFields, ErrAccountIndexOutOfRange),
		},
	}
}

func parseVersioned(raw []byte) (*Summary, error) {
	env, err := readEnvelope(raw)
	if err != nil {
		return nil, err
	}
	if err := sanitize(env); err != nil {
		return nil, err
	}

	required := int(env.message.Header.NumRequiredSignatures)
	if len(env.signatures) != required {
		return nil, fmt.Errorf("%w: have %d, message requires %d", ErrSignatureCountMismatch, len(env.signatures), required)
	}

	return project(env), nil
}

// sanitize applies the structural checks a validator runs before accepting a message.
func sanitize(env *envelope) error {
	msg := env.message
	h := msg.Header

	if env.trailing > 0 {
		return fmt.Errorf("%w: %d bytes", errTrailingBytes, env.trailing)
	}
	if h.NumReadonlySignedAccounts >= h.NumRequiredSignatures {
		return fmt.Errorf("%w: %d readonly signers of %d required", errInvalidHeader, h.NumReadonlySignedAccounts, h.NumRequiredSignatures)
	}
	if int(h.NumRequiredSignatures)+int(h.NumReadonlyUnsignedAccounts) > len(msg.AccountKeys) {
		return fmt.Errorf("%w: header describes more accounts than the %d keys present", errInvalidHeader, len(msg.AccountKeys))
	}

	for i, l := range msg.AddressTableLookups {
		if len(l.WritableIndexes)+len(l.ReadonlyIndexes) == 0 {
			return fmt.Errorf("%w: lookup %d", errEmptyLookup, i)
		}
	}

	table := newAccountTable(env)
	if table.len() > maxAccountKeys {
		return fmt.Errorf("%w: %d", errTooManyAccounts, table.len())
	}

	for i, ix := range msg.Instructions {
		program := int(ix.ProgramIDIndex)
		if program >= len(msg.AccountKeys) {
			return fmt.Errorf("%w: instruction %d program index %d", errIndexOutOfRange, i, program)
		}
		if program == 0 {
			return fmt.Errorf("instruction %d: %w", i, errProgramIsPayer)
		}
		for _, idx := range ix.Accounts {
			if int(idx) >= table.len() {
				return fmt.Errorf("%w: instruction %d account index %d", errIndexOutOfRange, i, idx)
			}
		}
	}

	return nil
}

func parseLegacy(raw []byte) (*Summary, error) {
	env, err := readEnvelope(raw)
	if err != nil {
		return nil, err
	}
	if env.versioned {
		return nil, errNotLegacy
	}

	msg := env.message
	keys := len(msg.AccountKeys)

	if msg.Header.NumRequiredSignatures == 0 || keys == 0 {
		return nil, ErrMissingFeePayer
	}
	if msg.RecentBlockhash == (solana.Hash{}) {
		return nil, ErrMissingBlockhash
	}
	if len(env.signatures) > keys {
		return nil, fmt.Errorf("%w: %d signatures for %d account keys", ErrAccountIndexOutOfRange, len(env.signatures), keys)
	}
	for i, ix := range msg.Instructions {
		if int(ix.ProgramIDIndex) >= keys {
			return nil, fmt.Errorf("%w: instruction %d program index %d", ErrAccountIndexOutOfRange, i, ix.ProgramIDIndex)
		}
		for _, idx := range ix.Accounts {
			if int(idx) >= keys {
				return nil, fmt.Errorf("%w: instruction %d account index %d", ErrAccountIndexOutOfRange, i, idx)
			}
		}
	}

	return project(env), nil
}
