// Package temporal wires the worker's browser automation, document and digest
// workflows to a Temporal server.
//
// # Client
//
// WorkflowClient starts workflows by their registered name, so callers such
// as the HTTP API never import the workflows package:
//
//	c, err := temporal.NewClient(temporal.ClientConfig{HostPort: "localhost:7233"}, logger)
//	if err != nil {
//	    return err
//	}
//	wc := temporal.NewWorkflowClient(c, cfg)
//	defer wc.Close()
//
//	exec, err := wc.Start(ctx, temporal.SearchWorkflowName, "", "temporal durable execution")
//
// Request and result types shared between the client and the workflows live
// in workflow_types.go.
//
// # Schedules
//
// EnsureSchedule creates a cron schedule or updates an existing one in place,
// so every deploy converges on the configured cron and timezone.
//
// # Worker
//
// WorkerManager registers workflows under explicit names and runs until its
// context is cancelled:
//
//	m, err := temporal.NewWorkerManager(c, temporal.DefaultWorkerConfig(queue), logger)
//	m.RegisterWorkflow(temporal.SearchWorkflowName, workflows.SearchWithRetryWorkflow)
//	m.RegisterActivity(browserActivities)
//	err = m.Run(ctx)
//
// # Error Handling
//
// Client errors are wrapped in *TemporalError and match the package
// sentinels with errors.Is:
//
//	if temporal.IsWorkflowAlreadyStarted(err) {
//	    // a run with the same ID is still open
//	}
package temporal
