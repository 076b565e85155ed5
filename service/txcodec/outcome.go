package txcodec

import "fmt"

// FailureKind classifies why a blob could not be decoded.
type FailureKind string

const (
	KindEmptyInput            FailureKind = "EmptyInput"
	KindInvalidEncoding       FailureKind = "InvalidEncoding"
	KindMissingSignatures     FailureKind = "MissingSignatures"
	KindMalformedLegacyFields FailureKind = "MalformedLegacyFields"
	KindUnrecognizedFormat    FailureKind = "UnrecognizedFormat"
)

const unrecognizedMessage = "could not decode as any known transaction format"

// Outcome is the result of a single Decode call. Exactly one of Summary or
// Kind is set: a successful decode carries the summary and the name of the
// strategy that produced it, a failed decode carries a kind and a message.
type Outcome struct {
	Summary  *Summary    `json:"summary,omitempty"`
	Strategy string      `json:"strategy,omitempty"`
	Kind     FailureKind `json:"kind,omitempty"`
	Message  string      `json:"message,omitempty"`
}

// Success builds a successful outcome.
func Success(summary *Summary, strategy string) Outcome {
	return Outcome{Summary: summary, Strategy: strategy}
}

// Failure builds a failed outcome.
func Failure(kind FailureKind, message string) Outcome {
	return Outcome{Kind: kind, Message: message}
}

// OK reports whether the decode succeeded.
func (o Outcome) OK() bool {
	return o.Summary != nil
}

// Err returns the failure as an error, or nil for a successful outcome.
func (o Outcome) Err() error {
	if o.OK() {
		return nil
	}
	return &DecodeError{Kind: o.Kind, Message: o.Message}
}

// DecodeError is the error form of a failed Outcome.
type DecodeError struct {
	Kind    FailureKind
	Message string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}
