package temporal

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
)

// DefaultTaskQueue is the queue browser automation work is dispatched on.
const DefaultTaskQueue = "browser-automation"

// WorkerConfig contains configuration for the Temporal worker.
type WorkerConfig struct {
	// TaskQueue is the name of the task queue to poll.
	TaskQueue string

	// MaxConcurrentActivityExecutionSize caps concurrent activity executions.
	// Each browser activity holds a browser connection, so this stays small.
	// Default: 2
	MaxConcurrentActivityExecutionSize int

	// MaxConcurrentWorkflowTaskExecutionSize caps concurrent workflow tasks.
	// Default: 10
	MaxConcurrentWorkflowTaskExecutionSize int
}

// DefaultWorkerConfig returns a WorkerConfig with default values.
func DefaultWorkerConfig(taskQueue string) WorkerConfig {
	if taskQueue == "" {
		taskQueue = DefaultTaskQueue
	}
	return WorkerConfig{
		TaskQueue:                              taskQueue,
		MaxConcurrentActivityExecutionSize:     2,
		MaxConcurrentWorkflowTaskExecutionSize: 10,
	}
}

// workerOptionsFromConfig builds worker.Options, applying defaults for any
// zero-valued fields.
func workerOptionsFromConfig(config WorkerConfig) worker.Options {
	def := DefaultWorkerConfig(config.TaskQueue)
	options := worker.Options{
		MaxConcurrentActivityExecutionSize:     config.MaxConcurrentActivityExecutionSize,
		MaxConcurrentWorkflowTaskExecutionSize: config.MaxConcurrentWorkflowTaskExecutionSize,
	}
	if options.MaxConcurrentActivityExecutionSize <= 0 {
		options.MaxConcurrentActivityExecutionSize = def.MaxConcurrentActivityExecutionSize
	}
	if options.MaxConcurrentWorkflowTaskExecutionSize <= 0 {
		options.MaxConcurrentWorkflowTaskExecutionSize = def.MaxConcurrentWorkflowTaskExecutionSize
	}
	return options
}

// WorkerManager manages the lifecycle of a Temporal worker.
type WorkerManager struct {
	worker     worker.Worker
	taskQueue  string
	workflows  []string
	activities int
	logger     zerolog.Logger
}

// NewWorkerManager creates a new WorkerManager with the given configuration.
func NewWorkerManager(c client.Client, config WorkerConfig, logger zerolog.Logger) (*WorkerManager, error) {
	if config.TaskQueue == "" {
		return nil, fmt.Errorf("task queue is required")
	}
	return &WorkerManager{
		worker:    worker.New(c, config.TaskQueue, workerOptionsFromConfig(config)),
		taskQueue: config.TaskQueue,
		logger:    logger.With().Str("component", "temporal_worker").Logger(),
	}, nil
}

// RegisterWorkflow registers a workflow function under name.
func (m *WorkerManager) RegisterWorkflow(name string, wf interface{}) {
	m.worker.RegisterWorkflowWithOptions(wf, workflow.RegisterOptions{Name: name})
	m.workflows = append(m.workflows, name)
}

// RegisterActivity registers an activity function or a struct whose exported
// methods are activities.
func (m *WorkerManager) RegisterActivity(a interface{}) {
	m.worker.RegisterActivityWithOptions(a, activity.RegisterOptions{SkipInvalidStructFunctions: true})
	m.activities++
}

// Workflows returns the registered workflow names in registration order.
func (m *WorkerManager) Workflows() []string {
	return append([]string(nil), m.workflows...)
}

// TaskQueue returns the configured task queue name.
func (m *WorkerManager) TaskQueue() string {
	return m.taskQueue
}

// Run starts polling and blocks until ctx is cancelled, then stops the
// worker, letting in-flight activities finish.
func (m *WorkerManager) Run(ctx context.Context) error {
	return runWorker(ctx, m.worker, func() {
		m.logger.Info().
			Str("task_queue", m.taskQueue).
			Strs("workflows", m.workflows).
			Int("activity_sets", m.activities).
			Msg("temporal worker started")
	})
}

// runner is the subset of worker.Worker used by runWorker.
type runner interface {
	Start() error
	Stop()
}

func runWorker(ctx context.Context, w runner, started func()) error {
	if err := w.Start(); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	if started != nil {
		started()
	}
	<-ctx.Done()
	w.Stop()
	return nil
}
