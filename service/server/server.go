package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/brojonat/solplay/service/config"
	"github.com/brojonat/solplay/service/db"
	"github.com/brojonat/solplay/service/journal"
	"github.com/brojonat/solplay/service/metrics"
	"github.com/brojonat/solplay/service/solana"
	"github.com/brojonat/solplay/service/temporal"
	"github.com/brojonat/solplay/service/txcodec"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Version is reported by /api/v1/version. It is set at build time.
var Version = "dev"

// Playground is the set of chain operations the HTTP API exposes.
// *solana.Client implements it.
type Playground interface {
	Network() solana.Network
	GetBalance(ctx context.Context, address solanago.PublicKey) (uint64, error)
	GetAccount(ctx context.Context, address solanago.PublicKey) (*solana.AccountInfo, error)
	RequestAirdrop(ctx context.Context, address solanago.PublicKey, lamports uint64) (solanago.Signature, error)
	ConfirmSignature(ctx context.Context, sig solanago.Signature) error
	TransferSOL(ctx context.Context, from solanago.PrivateKey, to solanago.PublicKey, lamports uint64) (solanago.Signature, error)
	CreateMint(ctx context.Context, payer solanago.PrivateKey, decimals uint8) (*solana.MintResult, error)
	CreateTokenAccount(ctx context.Context, payer solanago.PrivateKey, mint solanago.PublicKey) (*solana.TokenAccountResult, error)
	MintTo(ctx context.Context, payer solanago.PrivateKey, mint solanago.PublicKey, amount uint64) (solanago.Signature, error)
	GetTokenBalance(ctx context.Context, account solanago.PublicKey) (*solana.TokenBalance, error)
}

// Recorder writes playground actions to the activity log.
// *journal.Journal implements it.
type Recorder interface {
	Record(ctx context.Context, e journal.Entry) (*db.Activity, error)
}

// ActivityLister reads the activity log. *db.Store implements it.
type ActivityLister interface {
	ListActivities(ctx context.Context, params db.ListActivitiesParams) ([]*db.Activity, error)
}

// Deps are the collaborators of the server. Everything except Playground is
// optional; routes whose collaborator is missing answer 503.
type Deps struct {
	Playground   Playground
	Payer        solanago.PrivateKey
	Recorder     Recorder
	Activities   ActivityLister
	Workflows    temporal.SendWorkflows
	SSEPublisher *SSEPublisher
}

// Server represents the HTTP server for the playground API.
type Server struct {
	addr     string
	cfg      *config.Config
	deps     Deps
	decoders map[string]*txcodec.Decoder
	renderer *TemplateRenderer
	metrics  *metrics.Metrics
	logger   *slog.Logger
	server   *http.Server
}

// New creates a new HTTP server with the given dependencies.
// The metrics is optional - if nil, the metrics endpoint won't be available.
func New(addr string, cfg *config.Config, deps Deps, m *metrics.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	observe := func(o txcodec.Outcome, elapsed time.Duration) {
		m.RecordDecode(o.Strategy, string(o.Kind), elapsed.Seconds())
	}
	decoders := make(map[string]*txcodec.Decoder)
	for _, enc := range []txcodec.Encoding{txcodec.Base64, txcodec.Base58} {
		decoders[enc.Name()] = txcodec.NewDecoder(
			txcodec.WithEncoding(enc),
			txcodec.WithObserver(observe),
			txcodec.WithLogger(logger),
		)
	}
	return &Server{
		addr:     addr,
		cfg:      cfg,
		deps:     deps,
		decoders: decoders,
		metrics:  m,
		logger:   logger,
	}
}

// WithTemplates adds the HTML playground page using embedded templates.
func (s *Server) WithTemplates() error {
	renderer, err := NewTemplateRenderer(s.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize templates: %w", err)
	}
	s.renderer = renderer
	s.logger.Info("HTML templates loaded from embedded files")
	return nil
}

// Handler builds the routed, middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	route := func(pattern, name string, h http.Handler) {
		mux.Handle(pattern, metrics.HTTPMetricsMiddleware(s.metrics, name)(h))
	}

	// Codec routes
	route("POST /api/v1/decode", "decode", handleDecode(s.decoders, s.maxDecodeBytes(), s.logger))
	route("GET /api/v1/encode", "encode", handleEncode(s.metrics, s.logger))
	route("POST /api/v1/encode", "encode", handleEncode(s.metrics, s.logger))

	// Playground routes
	p := s.playground()
	route("GET /api/v1/accounts/{address}", "get_account", handleGetAccount(p, s.logger))
	route("GET /api/v1/accounts/{address}/balance", "get_balance", handleGetBalance(p, s.logger))
	route("GET /api/v1/accounts/{address}/fund-request", "fund_request", handleFundRequest(p, s.logger))
	route("POST /api/v1/airdrop", "airdrop", handleAirdrop(p, s.recorder(), s.logger))
	route("POST /api/v1/transfers", "transfer", handleTransfer(p, s.deps.Payer, s.recorder(), s.logger))
	route("POST /api/v1/mints", "create_mint", handleCreateMint(p, s.deps.Payer, s.recorder(), s.logger))
	route("POST /api/v1/mints/{mint}/token-accounts", "create_token_account", handleCreateTokenAccount(p, s.deps.Payer, s.recorder(), s.logger))
	route("POST /api/v1/mints/{mint}/mint-to", "mint_to", handleMintTo(p, s.deps.Payer, s.recorder(), s.logger))
	route("GET /api/v1/token-accounts/{address}/balance", "token_balance", handleGetTokenBalance(p, s.logger))

	// Send workflow routes
	route("POST /api/v1/send-workflows", "start_send_workflow", handleStartSendWorkflow(s.deps.Workflows, s.network(), s.logger))
	route("GET /api/v1/send-workflows/{workflow_id}", "get_send_workflow", handleGetSendWorkflow(s.deps.Workflows, s.logger))

	// Activity log
	route("GET /api/v1/activities", "list_activities", handleListActivities(s.deps.Activities, s.logger))

	// SSE streaming endpoints (if SSE publisher is configured)
	if s.deps.SSEPublisher != nil {
		stream := handleStreamActivities(s.deps.SSEPublisher, s.metrics, s.logger)
		mux.Handle("GET /api/v1/stream/activities/{kind}", stream)
		mux.Handle("GET /api/v1/stream/activities", stream)
		s.logger.Info("SSE streaming endpoints enabled")
	} else {
		s.logger.Warn("SSE publisher not configured, streaming endpoints disabled")
	}

	// HTML page (if template renderer is configured)
	if s.renderer != nil {
		mux.HandleFunc("GET /{$}", handlePlaygroundPage(s.renderer, s.network()))
		s.logger.Info("HTML page endpoints enabled")
	}

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.HandleFunc("GET /api/v1/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{
			"version": Version,
			"network": string(s.network()),
		}, http.StatusOK)
	})

	// Prometheus metrics endpoint (if metrics collector is configured)
	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.Handler())
		s.logger.Info("Prometheus metrics endpoint enabled")
	}

	return corsMiddleware(mux)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:        s.addr,
		Handler:     s.Handler(),
		ReadTimeout: 15 * time.Second,
		// Playground actions wait for confirmation and SSE streams stay open,
		// so there is no write timeout.
		IdleTimeout: 60 * time.Second,
	}

	s.logger.Info("starting HTTP server", "addr", s.addr, "network", s.network())
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	// Close SSE publisher first (disconnects all clients)
	if s.deps.SSEPublisher != nil {
		s.deps.SSEPublisher.Close()
	}

	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) maxDecodeBytes() int64 {
	if s.cfg != nil && s.cfg.MaxDecodeBytes > 0 {
		return int64(s.cfg.MaxDecodeBytes)
	}
	return defaultMaxDecodeBytes
}

func (s *Server) network() solana.Network {
	if s.deps.Playground != nil {
		return s.deps.Playground.Network()
	}
	if s.cfg != nil {
		if n, err := solana.ParseNetwork(s.cfg.SolanaNetwork); err == nil {
			return n
		}
	}
	return solana.Devnet
}

func (s *Server) playground() Playground {
	return s.deps.Playground
}

// recorder never returns nil so handlers can record unconditionally.
func (s *Server) recorder() Recorder {
	if s.deps.Recorder != nil {
		return s.deps.Recorder
	}
	return journal.New(nil, nil, s.logger)
}

// corsMiddleware adds CORS headers to all responses and handles OPTIONS preflight requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
