package temporal

import (
	"fmt"
	"log/slog"

	"github.com/brojonat/solplay/service/metrics"
	solanago "github.com/gagliardetto/solana-go"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
)

// WorkerConfig contains configuration for the Temporal worker.
type WorkerConfig struct {
	// Temporal connection settings
	TemporalHost      string
	TemporalNamespace string
	TaskQueue         string

	// Dependencies
	SolanaClient SolanaClientInterface
	Recorder     RecorderInterface   // Optional: if nil, runs are not written to the activity log
	Payer        solanago.PrivateKey // Optional: if nil, each run generates its own sender
	Metrics      *metrics.Metrics    // Optional: if nil, no metrics will be recorded
	Logger       *slog.Logger
}

// Worker wraps a Temporal worker and provides lifecycle management.
type Worker struct {
	client client.Client
	worker worker.Worker
	logger *slog.Logger
}

// NewWorker creates and configures a new Temporal worker.
// The worker will process workflows and activities on the configured task queue.
func NewWorker(config WorkerConfig) (*Worker, error) {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.SolanaClient == nil {
		return nil, fmt.Errorf("solana client is required")
	}

	logger := config.Logger.With("component", "temporal_worker")

	logger.Info("creating temporal worker",
		"host", config.TemporalHost,
		"namespace", config.TemporalNamespace,
		"task_queue", config.TaskQueue,
		"network", config.SolanaClient.Network(),
		"payer_configured", len(config.Payer) > 0,
	)

	c, err := client.Dial(client.Options{
		HostPort:  config.TemporalHost,
		Namespace: config.TemporalNamespace,
		Logger:    newTemporalLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to temporal: %w", err)
	}

	activities, err := NewActivities(config.SolanaClient, config.Recorder, config.Payer, config.Metrics, logger)
	if err != nil {
		c.Close()
		return nil, err
	}

	w := worker.New(c, config.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     10,
		MaxConcurrentWorkflowTaskExecutionSize: 10,
	})
	register(w, activities)

	logger.Info("registered workflow and activities",
		"workflow", SendSOLWorkflowName,
		"activities", []string{"ResolveSender", "RequestAirdrop", "ConfirmSignature", "TransferSOL", "RecordActivity"},
	)

	return &Worker{
		client: c,
		worker: w,
		logger: logger,
	}, nil
}

// registry is the registration surface shared by worker.Worker and the
// test workflow environment.
type registry interface {
	RegisterWorkflowWithOptions(w any, options workflow.RegisterOptions)
	RegisterActivity(a any)
}

func register(r registry, activities *Activities) {
	r.RegisterWorkflowWithOptions(SendSOLWorkflow, workflow.RegisterOptions{Name: SendSOLWorkflowName})
	r.RegisterActivity(activities.ResolveSender)
	r.RegisterActivity(activities.RequestAirdrop)
	r.RegisterActivity(activities.ConfirmSignature)
	r.RegisterActivity(activities.TransferSOL)
	r.RegisterActivity(activities.RecordActivity)
}

// Start begins processing workflows and activities.
// This method blocks until Stop is called or an error occurs.
func (w *Worker) Start() error {
	w.logger.Info("starting temporal worker")
	err := w.worker.Run(worker.InterruptCh())
	if err != nil {
		w.logger.Error("worker stopped with error", "error", err)
		return fmt.Errorf("worker stopped with error: %w", err)
	}
	w.logger.Info("worker stopped gracefully")
	return nil
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() {
	w.logger.Info("stopping temporal worker")
	w.worker.Stop()
	w.client.Close()
	w.logger.Info("temporal worker stopped")
}
