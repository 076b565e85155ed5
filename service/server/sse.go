package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/brojonat/solplay/service/metrics"
	natspkg "github.com/brojonat/solplay/service/nats"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const sseKeepalive = 10 * time.Second

// SSEPublisher manages Server-Sent Events connections for activity streaming.
type SSEPublisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	logger *slog.Logger
}

// NewSSEPublisher creates a new SSE publisher that subscribes to NATS internally.
func NewSSEPublisher(natsURL string, logger *slog.Logger) (*SSEPublisher, error) {
	nc, js, err := natspkg.Connect(natsURL, "solplay-sse-publisher")
	if err != nil {
		return nil, err
	}

	logger.Info("SSE publisher initialized", "nats_url", natsURL)

	return &SSEPublisher{
		nc:     nc,
		js:     js,
		logger: logger,
	}, nil
}

// Close closes the NATS connection.
func (p *SSEPublisher) Close() error {
	if p.nc != nil {
		p.nc.Close()
		p.logger.Info("SSE publisher closed")
	}
	return nil
}

// sseMessage is one event payload plus its acknowledgement.
type sseMessage struct {
	data []byte
	ack  func()
}

// subscribe creates an ephemeral consumer on subject and feeds its messages
// into the returned channel until ctx is done. done is closed when consuming stops.
func (p *SSEPublisher) subscribe(ctx context.Context, subject string) (<-chan sseMessage, <-chan struct{}, error) {
	cons, err := p.js.CreateOrUpdateConsumer(ctx, natspkg.StreamName, jetstream.ConsumerConfig{
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverNewPolicy,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	msgs := make(chan sseMessage, 10)
	done := make(chan struct{})
	go func() {
		defer close(done)
		cc, err := cons.Consume(func(msg jetstream.Msg) {
			select {
			case msgs <- sseMessage{data: msg.Data(), ack: func() { msg.Ack() }}:
			case <-ctx.Done():
			}
		})
		if err != nil {
			p.logger.ErrorContext(ctx, "failed to start consuming messages", "error", err)
			return
		}
		<-ctx.Done()
		cc.Stop()
	}()
	return msgs, done, nil
}

// handleStreamActivities handles SSE streaming of playground activity.
// GET /api/v1/stream/activities streams every kind; /api/v1/stream/activities/{kind}
// (or ?kind=) streams one.
func handleStreamActivities(publisher *SSEPublisher, m *metrics.Metrics, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		kind := r.PathValue("kind")
		if kind == "" {
			kind = r.URL.Query().Get("kind")
		}
		subject := natspkg.SubjectForKind(kind)

		msgs, done, err := publisher.subscribe(r.Context(), subject)
		if err != nil {
			logger.ErrorContext(r.Context(), "failed to subscribe", "subject", subject, "error", err)
			writeError(w, "failed to subscribe", http.StatusServiceUnavailable)
			return
		}

		serveEvents(r.Context(), w, subject, msgs, done, sseKeepalive, m, logger)
	})
}

// serveEvents writes SSE frames until the client leaves or the source closes.
func serveEvents(
	ctx context.Context,
	w http.ResponseWriter,
	subject string,
	msgs <-chan sseMessage,
	done <-chan struct{},
	keepaliveEvery time.Duration,
	m *metrics.Metrics,
	logger *slog.Logger,
) {
	flush := func() {
		if flusher, ok := w.(http.Flusher); ok {
			flusher.Flush()
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	m.RecordSSEConnectionChange(1)
	defer m.RecordSSEConnectionChange(-1)

	logger.DebugContext(ctx, "SSE client connected", "subject", subject)

	hello, _ := json.Marshal(map[string]string{"subject": subject})
	fmt.Fprintf(w, "event: connected\ndata: %s\n\n", hello)
	flush()
	m.RecordSSEEventSent("connected")

	keepalive := time.NewTicker(keepaliveEvery)
	defer keepalive.Stop()

	for {
		select {
		case <-keepalive.C:
			fmt.Fprintf(w, ": keepalive\n\n")
			flush()

		case msg := <-msgs:
			var event natspkg.ActivityEvent
			if err := json.Unmarshal(msg.data, &event); err != nil {
				logger.WarnContext(ctx, "failed to unmarshal event", "error", err)
				msg.ack()
				continue
			}
			data, err := json.Marshal(event)
			if err != nil {
				logger.WarnContext(ctx, "failed to marshal event", "error", err)
				msg.ack()
				continue
			}

			fmt.Fprintf(w, "event: activity\ndata: %s\n\n", data)
			flush()
			msg.ack()
			m.RecordSSEEventSent("activity")

			logger.DebugContext(ctx, "sent activity event",
				"kind", event.Kind,
				"signature", event.Signature,
			)

		case <-ctx.Done():
			logger.DebugContext(ctx, "SSE client disconnected", "subject", subject)
			return

		case <-done:
			return
		}
	}
}
