// Package observability provides logging and metrics support for the
// integrations worker.
//
// # Logging
//
// Create a logger from configuration:
//
//	logger := observability.NewLogger(observability.LoggingConfig{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stdout",
//	})
//
// Attach browser session fields:
//
//	logger = observability.WithSessionContext(logger, handle.SessionID, handle.AttemptID)
//
// The Temporal SDK logs through NewTemporalLogger so worker and client output
// shares the same sink and format.
//
// # Metrics
//
//	metrics := observability.NewMetrics("integrations")
//	metrics.RecordFaultInjected("search execution")
//
// All Record methods accept a nil receiver, so components built without
// metrics need no guards.
//
// # Context Helpers
//
//	ctx = observability.WithRequestID(ctx, requestID)
//	logger = observability.LoggerFromContext(ctx, logger)
package observability
