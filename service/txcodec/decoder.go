// Package txcodec decodes user-supplied transaction blobs into a uniform,
// display-ready summary and encodes a placeholder transfer for demonstration.
//
// Decoding tries a fixed list of strategies in priority order and returns the
// first success. Failures a strategy expects are classified into a
// FailureKind; anything else is swallowed and the next strategy is tried.
// Decode never returns a Go error: every input maps to an Outcome.
package txcodec

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

// Observer is called once per Decode with the outcome and how long it took.
type Observer func(outcome Outcome, elapsed time.Duration)

// Decoder holds an immutable strategy list and text encoding. It has no
// mutable state and is safe for concurrent use.
type Decoder struct {
	encoding   Encoding
	strategies []Strategy
	observer   Observer
	logger     *slog.Logger
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithEncoding sets the text encoding of incoming blobs (default Base64).
func WithEncoding(enc Encoding) Option {
	return func(d *Decoder) {
		if enc != nil {
			d.encoding = enc
		}
	}
}

// WithStrategies replaces the strategy list. Order is priority order.
func WithStrategies(strategies ...Strategy) Option {
	return func(d *Decoder) {
		d.strategies = append([]Strategy(nil), strategies...)
	}
}

// WithObserver registers a hook that sees every outcome (used for metrics).
func WithObserver(obs Observer) Option {
	return func(d *Decoder) {
		d.observer = obs
	}
}

// WithLogger sets the logger used for debug output about swallowed failures.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Decoder) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDecoder creates a Decoder using base64 and the default strategies unless overridden.
func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{
		encoding:   Base64,
		strategies: DefaultStrategies(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Encoding returns the text encoding this decoder expects.
func (d *Decoder) Encoding() Encoding {
	return d.encoding
}

// Decode interprets blob as an encoded transaction.
func (d *Decoder) Decode(blob string) Outcome {
	start := time.Now()
	outcome := d.decode(blob)
	if d.observer != nil {
		d.observer(outcome, time.Since(start))
	}
	return outcome
}

func (d *Decoder) decode(blob string) Outcome {
	text := strings.TrimSpace(blob)
	if text == "" {
		return Failure(KindEmptyInput, "input is empty")
	}

	raw, err := d.encoding.DecodeString(text)
	if err != nil {
		return Failure(KindInvalidEncoding, err.Error())
	}
	if len(raw) == 0 {
		return Failure(KindInvalidEncoding, fmt.Sprintf("%s input decoded to zero bytes", d.encoding.Name()))
	}

	var classified *Outcome
	for _, s := range d.strategies {
		summary, err := attempt(s, raw)
		if err == nil {
			return Success(summary, s.Name)
		}

		kind, known := s.classify(err)
		if !known {
			d.logger.Debug("strategy rejected input", "strategy", s.Name, "error", err)
			continue
		}

		d.logger.Debug("strategy recognised input but failed", "strategy", s.Name, "kind", kind, "error", err)
		failure := Failure(kind, err.Error())
		classified = &failure
	}

	if classified != nil {
		return *classified
	}
	return Failure(KindUnrecognizedFormat, unrecognizedMessage)
}

// attempt runs one strategy, converting a panic into an ordinary failure.
func attempt(s Strategy, raw []byte) (summary *Summary, err error) {
	defer func() {
		if r := recover(); r != nil {
			summary = nil
			err = fmt.Errorf("strategy %s panicked: %v", s.Name, r)
		}
	}()

	summary, err = s.Parse(raw)
	if err == nil && summary == nil {
		err = fmt.Errorf("strategy %s returned no summary", s.Name)
	}
	return summary, err
}

// Decode decodes a base64 blob with the default strategies.
func Decode(blob string) Outcome {
	return defaultDecoder.Decode(blob)
}

var defaultDecoder = NewDecoder()
